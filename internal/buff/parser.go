// Package buff decodes human-readable buff labels such as "Biker ATK Up" or
// "Crew HP Down" into structured descriptors.
package buff

import (
	"errors"
	"fmt"
	"strings"
)

// Crew is the normalized target meaning "every troop group".
const Crew = "Crew"

// Stat is the battle stat a buff modifies.
type Stat string

const (
	ATK Stat = "ATK"
	DEF Stat = "DEF"
	HP  Stat = "HP"
)

// Direction is the trailing Up/Down token of a label. It is validated but
// does not change how the buff is applied.
type Direction string

const (
	Up   Direction = "Up"
	Down Direction = "Down"
)

var (
	ErrTooFewTokens     = errors.New("buff label needs at least three words")
	ErrInvalidDirection = errors.New("buff label must end with Up or Down")
	ErrInvalidStat      = errors.New("buff label stat must be ATK, DEF or HP")
	ErrUnknownTarget    = errors.New("buff label target is not a known troop type")
)

// TypeSet is the set of troop types a label target is validated against.
type TypeSet interface {
	HasTroopType(name string) bool
}

// Descriptor is a successfully parsed buff label.
type Descriptor struct {
	Target    string
	Stat      Stat
	Direction Direction
	Label     string
}

// AppliesTo reports whether the buff affects a troop group of the given type.
func (d Descriptor) AppliesTo(troopType string) bool {
	return d.Target == Crew || d.Target == troopType
}

// Parse decodes label. When known is nil every target is accepted as written;
// callers holding an unloaded table must pass a nil interface, not a nil map.
func Parse(label string, known TypeSet) (Descriptor, error) {
	tokens := strings.Fields(label)
	if len(tokens) < 3 {
		return Descriptor{}, fmt.Errorf("%q: %w", label, ErrTooFewTokens)
	}

	var direction Direction
	switch strings.ToUpper(tokens[len(tokens)-1]) {
	case "UP":
		direction = Up
	case "DOWN":
		direction = Down
	default:
		return Descriptor{}, fmt.Errorf("%q: %w", label, ErrInvalidDirection)
	}

	stat := Stat(strings.ToUpper(tokens[len(tokens)-2]))
	switch stat {
	case ATK, DEF, HP:
	default:
		return Descriptor{}, fmt.Errorf("%q: %w", label, ErrInvalidStat)
	}

	target, err := resolveTarget(strings.Join(tokens[:len(tokens)-2], " "), known)
	if err != nil {
		return Descriptor{}, fmt.Errorf("%q: %w", label, err)
	}

	return Descriptor{
		Target:    target,
		Stat:      stat,
		Direction: direction,
		Label:     label,
	}, nil
}

func resolveTarget(target string, known TypeSet) (string, error) {
	if strings.EqualFold(target, Crew) {
		return Crew, nil
	}
	if known == nil || known.HasTroopType(target) {
		return target, nil
	}
	if singular, ok := strings.CutSuffix(target, "s"); ok && known.HasTroopType(singular) {
		return singular, nil
	}
	return "", ErrUnknownTarget
}
