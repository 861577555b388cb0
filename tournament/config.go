package tournament

import (
	"fmt"
	"io/ioutil"
	"time"

	mapset "github.com/deckarep/golang-set"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/flipstack/flipsim/bot"
	"github.com/flipstack/flipsim/game"
)

// Mode selects how entrants are grouped into games.
type Mode string

const (
	// ModePairwise schedules every unordered pair of entrants.
	ModePairwise Mode = "pairwise"
	// ModeAllTogether seats every entrant in the same game.
	ModeAllTogether Mode = "all-together"
)

// Entrant names one competing bot. Strategy is a registered strategy
// name; the runner constructs a fresh seeded instance per game.
type Entrant struct {
	Name     string `yaml:"name"`
	Strategy string `yaml:"strategy"`
}

// Script is the YAML tournament description.
type Script struct {
	Name         string    `yaml:"name"`
	Mode         Mode      `yaml:"mode"`
	Entrants     []Entrant `yaml:"entrants"`
	GamesPerPair int       `yaml:"games-per-pair"`
	Seed         int64     `yaml:"seed"`
	Workers      int       `yaml:"workers"`
	TargetScore  int       `yaml:"target-score"`
	DecisionTime string    `yaml:"decision-time"`
	ReplayDir    string    `yaml:"replay-dir"`
	KeepReplays  int       `yaml:"keep-replays"`
}

// ReadScript reads a tournament script yaml file.
func ReadScript(fileName string) (*Script, error) {
	bytes, err := ioutil.ReadFile(fileName)
	if err != nil {
		return nil, errors.Wrapf(err, "Error reading tournament script file [%s]", fileName)
	}

	var script Script
	err = yaml.Unmarshal(bytes, &script)
	if err != nil {
		return nil, errors.Wrapf(err, "Error parsing YAML file [%s]", fileName)
	}

	err = script.Validate()
	if err != nil {
		return nil, errors.Wrapf(err, "Error validating script [%s]", fileName)
	}

	return &script, nil
}

func (s *Script) Validate() error {
	if s.Mode != ModePairwise && s.Mode != ModeAllTogether {
		return fmt.Errorf("Invalid mode [%s]", s.Mode)
	}
	if len(s.Entrants) < 2 {
		return fmt.Errorf("Need at least 2 entrants, got [%d]", len(s.Entrants))
	}
	if s.GamesPerPair <= 0 {
		return fmt.Errorf("Invalid games-per-pair [%d]", s.GamesPerPair)
	}

	// Check entrant names are unique and strategies are registered.
	names := mapset.NewSet()
	for _, e := range s.Entrants {
		if e.Name == "" {
			return fmt.Errorf("Entrant with empty name")
		}
		if names.Contains(e.Name) {
			return fmt.Errorf("Duplicate entrant name [%s]", e.Name)
		}
		names.Add(e.Name)
		if !bot.Registered(e.Strategy) {
			return fmt.Errorf("Unknown strategy [%s] for entrant [%s]", e.Strategy, e.Name)
		}
	}

	if s.DecisionTime != "" {
		if _, err := time.ParseDuration(s.DecisionTime); err != nil {
			return fmt.Errorf("Invalid decision-time [%s]", s.DecisionTime)
		}
	}
	return nil
}

// Rules builds the per-game rules the script implies, falling back to
// the defaults for anything unset.
func (s *Script) Rules() game.Rules {
	rules := game.DefaultRules()
	if s.TargetScore > 0 {
		rules.TargetScore = s.TargetScore
	}
	if s.DecisionTime != "" {
		// Validate() already parsed it once.
		if d, err := time.ParseDuration(s.DecisionTime); err == nil {
			rules.DecisionTimeout = d
		}
	}
	return rules
}
