package domain

import (
	"errors"
	"fmt"
)

// Roster is the immutable cast of a simulation: the service catalog, the
// services queued for the first round, and the competing teams.
type Roster struct {
	// Services is the full catalog. Order is preserved for display.
	Services []string

	// Pending lists the services queued before the first round, in
	// insertion order. They become active when the first round is generated.
	Pending []string

	// Teams is the scoreboard roster, in display order.
	Teams []string

	// Boosted teams draw score increments from a wider range.
	Boosted []string
}

// DefaultRoster returns the built-in catalog and team list.
func DefaultRoster() Roster {
	return Roster{
		Services: []string{
			"containerchall2",
			"corewar-n2",
			"mambo",
			"nivisor",
			"perplexity",
			"router-pi",
			"web4factory",
		},
		Pending: []string{"web4factory", "router-pi"},
		Teams: []string{
			"./V /home/r/.bin/tw",
			"Balsn.217@TSJ.tw",
			"CP-r3kapig",
			"DiceGuesser",
			"Katzebin",
			"Maple Mallard Magistrates",
			"OSUSEC",
			"PTB_WTL",
			"Sauercloud",
			"Shellphish",
			"StarBugs",
			"Straw Hat",
			"Water Paddler",
			"perfect r✪✪✪t",
			"the new organizers",
			"侍",
		},
		Boosted: []string{"侍", "Shellphish"},
	}
}

// Validate checks the roster invariants the simulation relies on.
func (r Roster) Validate() error {
	if len(r.Services) == 0 {
		return errors.New("roster: at least one service is required")
	}
	if len(r.Teams) == 0 {
		return errors.New("roster: at least one team is required")
	}

	services, err := uniqueSet("service", r.Services)
	if err != nil {
		return err
	}
	teams, err := uniqueSet("team", r.Teams)
	if err != nil {
		return err
	}
	if _, err := uniqueSet("pending service", r.Pending); err != nil {
		return err
	}
	if _, err := uniqueSet("boosted team", r.Boosted); err != nil {
		return err
	}

	for _, s := range r.Pending {
		if !services[s] {
			return fmt.Errorf("roster: pending service %q is not in the catalog", s)
		}
	}
	for _, team := range r.Boosted {
		if !teams[team] {
			return fmt.Errorf("roster: boosted team %q is not in the team list", team)
		}
	}
	return nil
}

// IsBoosted reports whether team draws from the wider score range.
func (r Roster) IsBoosted(team string) bool {
	for _, b := range r.Boosted {
		if b == team {
			return true
		}
	}
	return false
}

func uniqueSet(kind string, values []string) (map[string]bool, error) {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		if v == "" {
			return nil, fmt.Errorf("roster: empty %s name", kind)
		}
		if set[v] {
			return nil, fmt.Errorf("roster: duplicate %s %q", kind, v)
		}
		set[v] = true
	}
	return set, nil
}
