package gamedata

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/battalionsim/internal/logger"
)

// Table names, also used as keys in Availability and LoadReport.
const (
	TableTroopStats       = "troop_stats"
	TableEnforcerBuffs    = "enforcer_buffs"
	TableTierMultipliers  = "enforcer_tier_multipliers"
	TableSignatureWeapons = "signature_weapon_buffs"
	TableCounters         = "counter_info"
	TableMiscBuffs        = "misc_buffs"
)

// LoadReport records the outcome of loading each table.
type LoadReport struct {
	Loaded []string
	Failed map[string]error
}

// OK reports whether every table loaded.
func (r *LoadReport) OK() bool {
	return len(r.Failed) == 0
}

// loadTable reads a JSON or YAML file into out. JSON is a subset of YAML,
// so a single decoder serves both formats.
func loadTable(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// resolveTablePath prefers <name>.json and falls back to <name>.yaml.
func resolveTablePath(dir, name string) string {
	jsonPath := filepath.Join(dir, name+".json")
	if _, err := os.Stat(jsonPath); err == nil {
		return jsonPath
	}
	yamlPath := filepath.Join(dir, name+".yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return yamlPath
	}
	return jsonPath
}

// LoadDir loads every reference table from dir. Each table is fetched in its own
// goroutine; a table that fails is left nil and reported, the others still load.
func LoadDir(dir string) (*GameData, *LoadReport) {
	data := &GameData{}
	report := &LoadReport{Failed: make(map[string]error)}

	var troopStats TroopStatTable
	var enforcerBuffs EnforcerBuffTable
	var tierMultipliers TierMultiplierTable
	var weapons SignatureWeaponTable
	var counters CounterTable
	var misc MiscBuffTable

	jobs := []struct {
		name   string
		target any
		commit func()
	}{
		{TableTroopStats, &troopStats, func() { data.TroopStats = troopStats }},
		{TableEnforcerBuffs, &enforcerBuffs, func() { data.EnforcerBuffs = enforcerBuffs }},
		{TableTierMultipliers, &tierMultipliers, func() { data.TierMultipliers = tierMultipliers }},
		{TableSignatureWeapons, &weapons, func() { data.SignatureWeapons = weapons }},
		{TableCounters, &counters, func() { data.Counters = counters }},
		{TableMiscBuffs, &misc, func() { data.MiscBuffs = &misc }},
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, job := range jobs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := resolveTablePath(dir, job.name)
			err := loadTable(path, job.target)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed[job.name] = err
				logger.Error("Failed to load game data table", "table", job.name, "path", path, "error", err)
				return
			}
			job.commit()
			report.Loaded = append(report.Loaded, job.name)
			logger.Debug("Loaded game data table", "table", job.name, "path", path)
		}()
	}
	wg.Wait()

	sort.Strings(report.Loaded)
	data.normalize()

	if report.OK() {
		logger.Info("All game data initialized", "dir", dir, "tables", len(report.Loaded))
	} else {
		logger.Warning("Some game data failed to load", "dir", dir, "loaded", len(report.Loaded), "failed", len(report.Failed))
	}
	return data, report
}

// normalize replaces tables that decoded to an empty document (null) with nil,
// so an empty file is treated the same as a missing one.
func (g *GameData) normalize() {
	if len(g.TroopStats) == 0 {
		g.TroopStats = nil
	}
	if len(g.EnforcerBuffs) == 0 {
		g.EnforcerBuffs = nil
	}
	if len(g.TierMultipliers) == 0 {
		g.TierMultipliers = nil
	}
	if len(g.SignatureWeapons) == 0 {
		g.SignatureWeapons = nil
	}
	if len(g.Counters) == 0 {
		g.Counters = nil
	}
	if g.MiscBuffs != nil && g.MiscBuffs.TrainingCenterDEFBonus == nil {
		g.MiscBuffs = nil
	}
}
