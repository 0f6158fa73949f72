package gamedata

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTable(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func writeFullDataset(t *testing.T, dir string) {
	t.Helper()
	writeTable(t, dir, "troop_stats.json", `{
  "Bruiser": {"T1": {"atk": 10, "def": 12, "hp": 50, "speed": 20, "load": 30}},
  "Mortar Car": {"T3": {"atk": 40, "def": 5, "hp": 30}}
}`)
	writeTable(t, dir, "enforcer_buffs.json", `{
  "Bubba": {"buffs": [
    {"name": "Bruiser ATK Up", "type": "Combat", "max_value": 0.2},
    {"name": "Cash Production Up", "type": "Economy", "max_value": 0.1}
  ]}
}`)
	writeTable(t, dir, "enforcer_tier_multipliers.json", `{"Grand": {"percentage_benefit": 1.0}, "Elite": {"percentage_benefit": 0.5}}`)
	writeTable(t, dir, "signature_weapon_buffs.json", `{
  "Bubba": {"weapon_name": "Big Bat",
            "basic_skill": {"name": "Bruiser HP Up", "buff_value": 0.05},
            "exclusive_skill": {"name": "Crew DEF Up"}}
}`)
	writeTable(t, dir, "counter_info.json", `{"Bruiser": {"strong_against": ["Hitman"], "weak_against": ["Biker"]}}`)
	writeTable(t, dir, "misc_buffs.json", `{"training_center_def_bonus": {"level_12": 0.06, "level_30": 0.15}}`)
}

func TestLoadDir_AllTables(t *testing.T) {
	dir := t.TempDir()
	writeFullDataset(t, dir)

	data, report := LoadDir(dir)
	if !report.OK() {
		t.Fatalf("expected all tables to load, failures: %v", report.Failed)
	}
	if len(report.Loaded) != 6 {
		t.Errorf("expected 6 loaded tables, got %d", len(report.Loaded))
	}
	if !data.Complete() {
		t.Errorf("expected complete data, availability %v", data.Availability())
	}

	stats, ok := data.TroopStats.Lookup("Bruiser", "T1")
	if !ok {
		t.Fatal("Bruiser T1 not found")
	}
	if stats.ATK != 10 || stats.DEF != 12 || stats.HP != 50 {
		t.Errorf("unexpected Bruiser T1 stats: %+v", stats)
	}
	if !data.TroopStats.HasTroopType("Mortar Car") {
		t.Error("multi-word troop type missing")
	}

	buffs := data.EnforcerBuffs["Bubba"].Buffs
	if len(buffs) != 2 || !buffs[0].IsCombat() || buffs[1].IsCombat() {
		t.Errorf("unexpected Bubba buffs: %+v", buffs)
	}

	if got := data.TierMultipliers["Elite"].PercentageBenefit; got != 0.5 {
		t.Errorf("Elite multiplier = %v, want 0.5", got)
	}

	weapon := data.SignatureWeapons["Bubba"]
	if !weapon.BasicSkill.Usable() {
		t.Error("basic skill should be usable")
	}
	if weapon.ExclusiveSkill.Usable() {
		t.Error("exclusive skill without buff_value should not be usable")
	}

	if bonus, ok := data.MiscBuffs.TrainingCenterBonus(12); !ok || bonus != 0.06 {
		t.Errorf("training center level 12 = %v/%v, want 0.06/true", bonus, ok)
	}
	if _, ok := data.MiscBuffs.TrainingCenterBonus(10); ok {
		t.Error("level 10 should not exist")
	}
}

func TestLoadDir_MissingTableDoesNotBlockOthers(t *testing.T) {
	dir := t.TempDir()
	writeFullDataset(t, dir)
	if err := os.Remove(filepath.Join(dir, "counter_info.json")); err != nil {
		t.Fatal(err)
	}
	writeTable(t, dir, "misc_buffs.json", `{not valid`)

	data, report := LoadDir(dir)
	if report.OK() {
		t.Fatal("expected failures to be reported")
	}
	if _, ok := report.Failed[TableCounters]; !ok {
		t.Error("missing counter table not reported")
	}
	if _, ok := report.Failed[TableMiscBuffs]; !ok {
		t.Error("malformed misc table not reported")
	}
	if data.Counters != nil || data.MiscBuffs != nil {
		t.Error("failed tables should be nil")
	}
	if data.TroopStats == nil || data.EnforcerBuffs == nil || data.SignatureWeapons == nil {
		t.Error("healthy tables should still load")
	}
	if data.Complete() {
		t.Error("Complete() should be false")
	}
}

func TestLoadDir_YAMLFallback(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "troop_stats.yaml", "Biker:\n  T4:\n    atk: 30\n    def: 20\n    hp: 80\n")

	data, _ := LoadDir(dir)
	if stats, ok := data.TroopStats.Lookup("Biker", "T4"); !ok || stats.HP != 80 {
		t.Errorf("expected Biker T4 from YAML twin, got %+v/%v", stats, ok)
	}
}

func TestLevelTable_BareNumericKeys(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "misc_buffs.json", `{"training_center_def_bonus": {"5": 0.02}}`)

	data, report := LoadDir(dir)
	if _, failed := report.Failed[TableMiscBuffs]; failed {
		t.Fatalf("misc buffs failed: %v", report.Failed[TableMiscBuffs])
	}
	if bonus, ok := data.MiscBuffs.TrainingCenterBonus(5); !ok || bonus != 0.02 {
		t.Errorf("level 5 = %v/%v, want 0.02/true", bonus, ok)
	}
}

func TestLevelTable_InvalidKey(t *testing.T) {
	dir := t.TempDir()
	writeTable(t, dir, "misc_buffs.json", `{"training_center_def_bonus": {"level_x": 0.02}}`)

	_, report := LoadDir(dir)
	if _, failed := report.Failed[TableMiscBuffs]; !failed {
		t.Error("expected invalid level key to fail the table")
	}
}

func TestNormalizeTroopType(t *testing.T) {
	tests := map[string]string{
		"Bruisers": "Bruiser",
		"Bruiser":  "Bruiser",
		"Bikers":   "Biker",
		"Hitmen":   "Hitmen",
		"Boss":     "Bos",
	}
	for in, want := range tests {
		if got := NormalizeTroopType(in); got != want {
			t.Errorf("NormalizeTroopType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestAvailability_NilGameData(t *testing.T) {
	var data *GameData
	for name, ok := range data.Availability() {
		if ok {
			t.Errorf("table %s reported available on nil GameData", name)
		}
	}
}
