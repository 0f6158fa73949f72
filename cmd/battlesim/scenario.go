package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/battalionsim/internal/battalion"
)

// Side is one battalion in a scenario file.
type Side struct {
	Troops    []battalion.TroopEntry      `yaml:"troops" json:"troops"`
	Enforcers []battalion.EnforcerLoadout `yaml:"enforcers" json:"enforcers"`
	MiscBuffs battalion.MiscBuffs         `yaml:"misc_buffs" json:"misc_buffs"`
}

// Scenario is an attacker, a defender and the enforcers the attacker may field.
// The defender plays the opponent for the recommenders.
type Scenario struct {
	Attacker           Side                        `yaml:"attacker"`
	Defender           Side                        `yaml:"defender"`
	AvailableEnforcers []battalion.EnforcerLoadout `yaml:"available_enforcers"`
}

var errEmptyScenario = errors.New("scenario has no troops on either side")

func loadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}

	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("failed to parse scenario %s: %w", path, err)
	}
	if len(sc.Attacker.Troops) == 0 && len(sc.Defender.Troops) == 0 {
		return nil, errEmptyScenario
	}
	for name, side := range map[string]Side{"attacker": sc.Attacker, "defender": sc.Defender} {
		for i, t := range side.Troops {
			if t.Quantity < 0 {
				return nil, fmt.Errorf("%s.troops[%d]: quantity must not be negative", name, i)
			}
		}
	}
	return &sc, nil
}
