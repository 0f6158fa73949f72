package strategy

import (
	"strings"

	"github.com/lawnchairsociety/battalionsim/internal/battalion"
	"github.com/lawnchairsociety/battalionsim/internal/gamedata"
)

// The three combat archetypes of the counter triangle.
const (
	Bruiser = "Bruiser"
	Hitman  = "Hitman"
	Biker   = "Biker"
)

// Archetypes lists the archetypes in classification order; earlier entries
// win ties.
var Archetypes = []string{Bruiser, Hitman, Biker}

// IsArchetype reports whether name is one of the three archetypes.
func IsArchetype(name string) bool {
	return name == Bruiser || name == Hitman || name == Biker
}

// CounterPlan is the fixed response to a dominant opponent archetype.
type CounterPlan struct {
	Primary     string
	Sacrificial [2]string
}

var rotation = map[string]CounterPlan{
	Bruiser: {Primary: Biker, Sacrificial: [2]string{Hitman, Bruiser}},
	Biker:   {Primary: Hitman, Sacrificial: [2]string{Bruiser, Biker}},
	Hitman:  {Primary: Bruiser, Sacrificial: [2]string{Biker, Hitman}},
}

// CounterFor returns the counter plan against a dominant archetype.
func CounterFor(archetype string) (CounterPlan, bool) {
	plan, ok := rotation[archetype]
	return plan, ok
}

// Classification is the HP held by each archetype in a battalion.
type Classification struct {
	HP       map[string]float64
	Total    float64
	Dominant string
}

// Classify sums HP per archetype over resolved groups (plural type names are
// singularized) and picks the archetype holding the most. Dominant is empty
// when no group belongs to an archetype.
func Classify(result battalion.Result) Classification {
	c := Classification{HP: make(map[string]float64, len(Archetypes))}
	for _, a := range Archetypes {
		c.HP[a] = 0
	}
	for _, g := range result.Details {
		if !g.OK() {
			continue
		}
		t := gamedata.NormalizeTroopType(g.Type)
		if !IsArchetype(t) {
			continue
		}
		c.HP[t] += g.HP
		c.Total += g.HP
	}

	best := 0.0
	for _, a := range Archetypes {
		if c.HP[a] > best {
			best = c.HP[a]
			c.Dominant = a
		}
	}
	return c
}

var quickAliases = map[string]string{
	"bruiser":  Bruiser,
	"bruisers": Bruiser,
	"hitman":   Hitman,
	"hitmen":   Hitman,
	"hitmans":  Hitman,
	"biker":    Biker,
	"bikers":   Biker,
}

// QuickCounter maps an opponent composition to a one-for-one counter
// composition: every Bruiser is answered by a Biker, every Hitman by a Bruiser
// and every Biker by a Hitman. Unknown keys are ignored. It needs no game data.
func QuickCounter(opponent map[string]int) map[string]int {
	out := map[string]int{Bruiser: 0, Hitman: 0, Biker: 0}
	for name, qty := range opponent {
		archetype, ok := quickAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok || qty <= 0 {
			continue
		}
		out[rotation[archetype].Primary] += qty
	}
	return out
}
