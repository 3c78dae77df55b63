package domain

import "testing"

func TestDefaultRosterIsValid(t *testing.T) {
	r := DefaultRoster()
	if err := r.Validate(); err != nil {
		t.Fatalf("DefaultRoster().Validate() = %v", err)
	}
	if len(r.Services) != 7 {
		t.Errorf("catalog size = %d, want 7", len(r.Services))
	}
	if len(r.Teams) != 16 {
		t.Errorf("team count = %d, want 16", len(r.Teams))
	}
	if !r.IsBoosted("侍") || !r.IsBoosted("Shellphish") {
		t.Error("侍 and Shellphish should be boosted")
	}
	if r.IsBoosted("OSUSEC") {
		t.Error("OSUSEC should not be boosted")
	}
}

func TestRosterValidate(t *testing.T) {
	tests := []struct {
		name    string
		roster  Roster
		wantErr bool
	}{
		{
			name:   "minimal",
			roster: Roster{Services: []string{"a"}, Teams: []string{"t"}},
		},
		{
			name:    "no services",
			roster:  Roster{Teams: []string{"t"}},
			wantErr: true,
		},
		{
			name:    "no teams",
			roster:  Roster{Services: []string{"a"}},
			wantErr: true,
		},
		{
			name:    "duplicate service",
			roster:  Roster{Services: []string{"a", "a"}, Teams: []string{"t"}},
			wantErr: true,
		},
		{
			name:    "duplicate team",
			roster:  Roster{Services: []string{"a"}, Teams: []string{"t", "t"}},
			wantErr: true,
		},
		{
			name:    "pending outside catalog",
			roster:  Roster{Services: []string{"a"}, Pending: []string{"b"}, Teams: []string{"t"}},
			wantErr: true,
		},
		{
			name:    "pending twice",
			roster:  Roster{Services: []string{"a"}, Pending: []string{"a", "a"}, Teams: []string{"t"}},
			wantErr: true,
		},
		{
			name:    "boosted outside roster",
			roster:  Roster{Services: []string{"a"}, Teams: []string{"t"}, Boosted: []string{"u"}},
			wantErr: true,
		},
		{
			name:    "empty name",
			roster:  Roster{Services: []string{""}, Teams: []string{"t"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.roster.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRoundClone(t *testing.T) {
	r := Round{"mambo": Up}
	c := r.Clone()
	c["mambo"] = Down
	if r["mambo"] != Up {
		t.Error("Clone() shares storage with the original round")
	}
}
