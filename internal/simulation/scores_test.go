package simulation

import (
	"context"
	"testing"

	"github.com/MrSnakeDoc/ctfboard/internal/domain"
)

func TestUpdateScoresIncrements(t *testing.T) {
	roster := domain.Roster{
		Services: []string{"svc"},
		Teams:    []string{"normal", "boosted"},
		Boosted:  []string{"boosted"},
	}

	tests := []struct {
		name      string
		rolls     []int
		wantGain  map[string]int
		wantRange map[string][2]int
	}{
		{
			name:     "zero roll gains nothing",
			rolls:    []int{0, 0},
			wantGain: map[string]int{"normal": 0, "boosted": 0},
		},
		{
			name:      "ordinary roll gains one draw",
			rolls:     []int{5, 42, 9, 110},
			wantGain:  map[string]int{"normal": 42, "boosted": 110},
			wantRange: map[string][2]int{"normal": {0, 100}, "boosted": {0, 110}},
		},
		{
			name:      "ten doubles the draw",
			rolls:     []int{10, 100, 10, 110},
			wantGain:  map[string]int{"normal": 200, "boosted": 220},
			wantRange: map[string][2]int{"normal": {0, 100}, "boosted": {0, 110}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roller := &scriptedRoller{values: tt.rolls}
			b := newBoard(t, Options{Roster: roster, Roller: roller})

			b.UpdateScores(context.Background())

			scores := b.Scores()
			for team, want := range tt.wantGain {
				if scores[team] != want {
					t.Errorf("%s = %d, want %d", team, scores[team], want)
				}
			}

			// Calls alternate: outcome roll in [0,10], then the draw.
			var draws [][2]int
			for _, c := range roller.calls {
				if c != [2]int{0, 10} {
					draws = append(draws, c)
				}
			}
			if len(tt.wantRange) > 0 {
				if len(draws) != 2 || draws[0] != tt.wantRange["normal"] || draws[1] != tt.wantRange["boosted"] {
					t.Errorf("draw ranges = %v, want normal %v then boosted %v",
						draws, tt.wantRange["normal"], tt.wantRange["boosted"])
				}
			}
		})
	}
}

func TestScoresBounds(t *testing.T) {
	b := newBoard(t, Options{Roller: extremeRoller{high: true}})
	b.UpdateScores(context.Background())

	for team, score := range b.Scores() {
		want := 200
		if b.Roster().IsBoosted(team) {
			want = 220
		}
		if score != want {
			t.Errorf("%s = %d, want %d at the maximum roll", team, score, want)
		}
	}
}

func TestScoresNeverDecrease(t *testing.T) {
	b := newBoard(t, Options{Roller: NewRoller(99)})
	prev := b.Scores()

	for i := 0; i < 200; i++ {
		b.UpdateScores(context.Background())
		cur := b.Scores()
		for team, score := range cur {
			gain := score - prev[team]
			if gain < 0 || gain > 220 {
				t.Fatalf("update %d: %s moved by %d", i, team, gain)
			}
			if !b.Roster().IsBoosted(team) && gain > 200 {
				t.Fatalf("update %d: %s gained %d, above the normal maximum", i, team, gain)
			}
		}
		prev = cur
	}
}

func TestStandings(t *testing.T) {
	roster := domain.Roster{
		Services: []string{"svc"},
		Teams:    []string{"alpha", "bravo", "charlie", "delta"},
	}
	roller := &scriptedRoller{values: []int{
		5, 30, // alpha
		5, 70, // bravo
		5, 30, // charlie
		0, // delta
	}}
	b := newBoard(t, Options{Roster: roster, Roller: roller})
	b.UpdateScores(context.Background())

	want := []domain.Standing{
		{Rank: 1, Team: "bravo", Score: 70},
		{Rank: 2, Team: "alpha", Score: 30},
		{Rank: 2, Team: "charlie", Score: 30},
		{Rank: 4, Team: "delta", Score: 0},
	}
	got := b.Standings()
	if len(got) != len(want) {
		t.Fatalf("Standings() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("standings[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
	if b.LastUpdate().IsZero() {
		t.Error("LastUpdate() should be set after a score update")
	}
}

func TestSeededRollerIsReproducible(t *testing.T) {
	a, b := NewRoller(5), NewRoller(5)
	for i := 0; i < 100; i++ {
		x, y := a.Between(0, 100), b.Between(0, 100)
		if x != y {
			t.Fatalf("draw %d differs: %d vs %d", i, x, y)
		}
		if x < 0 || x > 100 {
			t.Fatalf("draw %d = %d outside [0, 100]", i, x)
		}
	}
	if got := NewRoller(0).Between(3, 3); got != 3 {
		t.Errorf("Between(3, 3) = %d, want 3", got)
	}
}
