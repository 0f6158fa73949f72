package battalion

import (
	"errors"
	"math"
	"testing"

	"github.com/lawnchairsociety/battalionsim/internal/gamedata"
	"github.com/lawnchairsociety/battalionsim/internal/gamedata/gamedatatest"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregate_BaseStatsOnly(t *testing.T) {
	data := gamedatatest.New()
	result, err := Aggregate(data, []TroopEntry{{Type: "Bruiser", Tier: "T1", Quantity: 1000}}, nil, MiscBuffs{})
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}

	if result.TotalHP != 1000*50 {
		t.Errorf("TotalHP = %v, want %v", result.TotalHP, 1000*50)
	}
	if result.TotalATK != 10000 || result.TotalDEF != 10000 {
		t.Errorf("unexpected totals ATK=%v DEF=%v", result.TotalATK, result.TotalDEF)
	}
	if len(result.Details) != 1 {
		t.Fatalf("expected 1 group, got %d", len(result.Details))
	}
	applied := result.Details[0].BuffsApplied
	if applied == nil || len(applied) != 0 {
		t.Errorf("BuffsApplied = %#v, want empty non-nil slice", applied)
	}
}

func TestAggregate_UnresolvedGroupsExcluded(t *testing.T) {
	data := gamedatatest.New()
	troops := []TroopEntry{
		{Type: "Bruiser", Tier: "T1", Quantity: 100},
		{Type: "Wall", Tier: "T1", Quantity: 10},
		{Type: "Biker", Tier: "T9", Quantity: 10},
		{Type: "Hitman", Tier: "T4", Quantity: 10},
	}

	result, err := Aggregate(data, troops, nil, MiscBuffs{})
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}

	want := 100*50.0 + 10*160.0
	if result.TotalHP != want {
		t.Errorf("TotalHP = %v, want %v", result.TotalHP, want)
	}
	if len(result.Details) != 4 {
		t.Fatalf("expected every entry in details, got %d", len(result.Details))
	}
	failed := result.Failed()
	if len(failed) != 2 {
		t.Fatalf("expected 2 failed groups, got %d", len(failed))
	}
	if failed[0].Type != "Wall" || failed[0].Error == "" {
		t.Errorf("unexpected failed group: %+v", failed[0])
	}
	if result.Details[1].OK() {
		t.Error("Wall group should carry an error")
	}
}

func TestAggregate_BuffsAreBaseReferenced(t *testing.T) {
	data := gamedatatest.New()
	troops := []TroopEntry{{Type: "Bruiser", Tier: "T1", Quantity: 100}}
	enforcers := []EnforcerLoadout{
		{Name: "Bubba", Tier: "Grand"},
		{Name: "The Professor", Tier: "Grand"},
	}

	result, err := Aggregate(data, troops, enforcers, MiscBuffs{})
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	group := result.Details[0]

	// Bruiser HP Up 0.2 and Crew HP Up 0.1 on a base of 5000.
	if !approx(group.HP, 5000*(1+0.2+0.1)) {
		t.Errorf("HP = %v, want %v (not compounded %v)", group.HP, 5000*1.3, 5000*1.2*1.1)
	}
	if !approx(group.ATK, 1000*1.1) {
		t.Errorf("ATK = %v, want %v", group.ATK, 1100.0)
	}
	if !approx(group.DEF, 1000*1.05) {
		t.Errorf("DEF = %v, want %v", group.DEF, 1050.0)
	}
	// Research Speed Up is an economy buff and must not appear.
	if len(group.BuffsApplied) != 4 {
		t.Fatalf("expected 4 audit entries, got %d: %+v", len(group.BuffsApplied), group.BuffsApplied)
	}

	for _, entry := range group.BuffsApplied {
		if entry.Stat == "hp" && entry.BaseValue != 5000 {
			t.Errorf("HP buff %q computed against %v, want base 5000", entry.BuffName, entry.BaseValue)
		}
	}
	first := group.BuffsApplied[0]
	if first.Source != "Enforcer: Bubba (Tier: Grand)" || first.BuffName != "Bruiser HP Up" {
		t.Errorf("unexpected first entry: %+v", first)
	}
	if !approx(first.Before, 5000) || !approx(first.After, 6000) || !approx(first.Increase, 1000) {
		t.Errorf("unexpected before/after on first entry: %+v", first)
	}
}

func TestAggregate_ZeroMultiplierIsNoOp(t *testing.T) {
	data := gamedatatest.New()
	troops := []TroopEntry{{Type: "Bruiser", Tier: "T1", Quantity: 100}}

	tests := []struct {
		name string
		tier string
	}{
		{"zero multiplier tier", "Common"},
		{"unknown tier", "Mythic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Aggregate(data, troops, []EnforcerLoadout{{Name: "Bubba", Tier: tt.tier}}, MiscBuffs{})
			if err != nil {
				t.Fatalf("Aggregate error: %v", err)
			}
			group := result.Details[0]
			if group.HP != group.BaseHP || group.ATK != group.BaseATK {
				t.Errorf("stats changed: %+v", group)
			}
			for _, entry := range group.BuffsApplied {
				if entry.Increase != 0 {
					t.Errorf("unexpected nonzero audit entry: %+v", entry)
				}
			}
		})
	}
}

func TestAggregate_ElitePartialMultiplier(t *testing.T) {
	data := gamedatatest.New()
	result, _ := Aggregate(data,
		[]TroopEntry{{Type: "Biker", Tier: "T1", Quantity: 100}},
		[]EnforcerLoadout{{Name: "Red Thorn", Tier: "Elite"}},
		MiscBuffs{})

	group := result.Details[0]
	if !approx(group.ATK, 1100*1.1) {
		t.Errorf("ATK = %v, want %v", group.ATK, 1210.0)
	}
	if !approx(group.BuffsApplied[0].Percentage, 0.1) {
		t.Errorf("Percentage = %v, want 0.1", group.BuffsApplied[0].Percentage)
	}
}

func TestAggregate_TrainingCenter(t *testing.T) {
	data := gamedatatest.New()
	troops := []TroopEntry{{Type: "Bruiser", Tier: "T1", Quantity: 100}}

	t.Run("known level", func(t *testing.T) {
		result, _ := Aggregate(data, troops, nil, TrainingCenter(12))
		group := result.Details[0]
		if !approx(group.DEF, 1060) {
			t.Errorf("DEF = %v, want 1060", group.DEF)
		}
		if len(group.BuffsApplied) != 1 {
			t.Fatalf("expected 1 audit entry, got %d", len(group.BuffsApplied))
		}
		entry := group.BuffsApplied[0]
		if entry.BuffName != "Training Center DEF Bonus" || entry.Source != "Training Center Level 12" {
			t.Errorf("unexpected entry: %+v", entry)
		}
	})

	t.Run("unknown level", func(t *testing.T) {
		result, _ := Aggregate(data, troops, nil, TrainingCenter(10))
		group := result.Details[0]
		if group.DEF != 1000 || len(group.BuffsApplied) != 0 {
			t.Errorf("level 10 should apply nothing: %+v", group)
		}
	})

	t.Run("followed by enforcer buff", func(t *testing.T) {
		result, _ := Aggregate(data, troops,
			[]EnforcerLoadout{{Name: "The Professor", Tier: "Grand"}},
			TrainingCenter(12))
		group := result.Details[0]
		// Crew DEF Up 0.05 uses base 1000, not the trained 1060.
		if !approx(group.DEF, 1110) {
			t.Errorf("DEF = %v, want 1110", group.DEF)
		}
	})

	t.Run("level zero is looked up", func(t *testing.T) {
		zero := gamedatatest.New()
		zero.MiscBuffs = &gamedata.MiscBuffTable{TrainingCenterDEFBonus: gamedata.LevelTable{0: 0.5}}

		result, _ := Aggregate(zero, troops, nil, TrainingCenter(0))
		group := result.Details[0]
		if !approx(group.DEF, 1500) || len(group.BuffsApplied) != 1 {
			t.Errorf("level 0 should apply its 0.5 bonus: %+v", group)
		}

		result, _ = Aggregate(zero, troops, nil, MiscBuffs{})
		if group := result.Details[0]; group.DEF != 1000 || len(group.BuffsApplied) != 0 {
			t.Errorf("no level given should apply nothing: %+v", group)
		}
	})
}

func TestMiscBuffs_Clone(t *testing.T) {
	original := TrainingCenter(25)
	clone := original.Clone()
	*clone.TrainingCenterLevel = 0

	if level, _ := original.Level(); level != 25 {
		t.Errorf("editing the clone changed the original to %d", level)
	}
	if _, ok := (MiscBuffs{}).Clone().Level(); ok {
		t.Error("clone of an unset level should stay unset")
	}
}

func TestAggregate_SignatureWeapon(t *testing.T) {
	data := gamedatatest.New()
	troops := []TroopEntry{{Type: "Bruiser", Tier: "T1", Quantity: 100}}

	result, err := Aggregate(data, troops, []EnforcerLoadout{{Name: "Bubba", Tier: "Grand", HasSignatureWeapon: true}}, MiscBuffs{})
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	group := result.Details[0]

	if !approx(group.ATK, 1000*(1+0.1+0.05)) {
		t.Errorf("ATK = %v, want 1150", group.ATK)
	}
	if !approx(group.HP, 5000*(1+0.2+0.03)) {
		t.Errorf("HP = %v, want 6150", group.HP)
	}
	if len(group.BuffsApplied) != 4 {
		t.Fatalf("expected 4 audit entries, got %d", len(group.BuffsApplied))
	}
	if got := group.BuffsApplied[2].Source; got != "Signature Weapon: Big Bat (Bubba) - Basic Skill" {
		t.Errorf("basic skill source = %q", got)
	}
	if got := group.BuffsApplied[3].Source; got != "Signature Weapon: Big Bat (Bubba) - Exclusive Skill" {
		t.Errorf("exclusive skill source = %q", got)
	}
}

func TestAggregate_WeaponSkillWithoutValueSkipped(t *testing.T) {
	data := gamedatatest.New()
	result, _ := Aggregate(data,
		[]TroopEntry{{Type: "Biker", Tier: "T1", Quantity: 10}},
		[]EnforcerLoadout{{Name: "Enigma", Tier: "Grand", HasSignatureWeapon: true}},
		MiscBuffs{})

	if n := len(result.Details[0].BuffsApplied); n != 1 {
		t.Errorf("expected only the Crew ATK enforcer buff, got %d entries", n)
	}
}

func TestAggregate_MissingOptionalTables(t *testing.T) {
	data := gamedatatest.Bare()
	troops := []TroopEntry{{Type: "Bruiser", Tier: "T1", Quantity: 100}}
	enforcers := []EnforcerLoadout{{Name: "Bubba", Tier: "Grand", HasSignatureWeapon: true}}

	result, err := Aggregate(data, troops, enforcers, TrainingCenter(12))
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	if result.TotalHP != 5000 || len(result.Details[0].BuffsApplied) != 0 {
		t.Errorf("expected unbuffed result, got %+v", result)
	}
}

func TestAggregate_UnknownAndEconomyEnforcers(t *testing.T) {
	data := gamedatatest.New()
	result, err := Aggregate(data,
		[]TroopEntry{{Type: "Hitman", Tier: "T1", Quantity: 10}},
		[]EnforcerLoadout{{Name: "Nobody", Tier: "Grand"}, {Name: "Mole", Tier: "Grand", HasSignatureWeapon: true}},
		MiscBuffs{})
	if err != nil {
		t.Fatalf("Aggregate error: %v", err)
	}
	if len(result.Details[0].BuffsApplied) != 0 {
		t.Errorf("expected no buffs, got %+v", result.Details[0].BuffsApplied)
	}
}

func TestAggregate_NoTroopStats(t *testing.T) {
	for _, data := range []*gamedata.GameData{nil, {}} {
		result, err := Aggregate(data, []TroopEntry{{Type: "Bruiser", Tier: "T1", Quantity: 1}}, nil, MiscBuffs{})
		if !errors.Is(err, ErrTroopStatsUnavailable) {
			t.Errorf("error = %v, want ErrTroopStatsUnavailable", err)
		}
		if result.TotalHP != 0 || len(result.Details) != 0 {
			t.Errorf("expected empty result, got %+v", result)
		}
	}
}

func TestAggregate_DoesNotShareState(t *testing.T) {
	data := gamedatatest.New()
	troops := []TroopEntry{{Type: "Bruiser", Tier: "T1", Quantity: 100}}
	enforcers := []EnforcerLoadout{{Name: "Bubba", Tier: "Grand"}}

	first, _ := Aggregate(data, troops, enforcers, MiscBuffs{})
	second, _ := Aggregate(data, troops, enforcers, MiscBuffs{})
	if first.TotalHP != second.TotalHP {
		t.Errorf("repeated aggregation differs: %v vs %v", first.TotalHP, second.TotalHP)
	}
	if base, _ := data.TroopStats.Lookup("Bruiser", "T1"); base.HP != 50 {
		t.Errorf("game data mutated: %+v", base)
	}
}
