// Package catalog holds the immutable content registries consumed by map generation and
// progression: location types and their change rules, biomes, item price tables, factions and
// missions. Registries are built once and passed by reference; nothing here is global.
package catalog

import (
	"strings"

	"golang.org/x/text/cases"
)

// Identifier is a case-insensitive content key. Values are stored folded.
type Identifier string

// None is the identifier content uses to explicitly clear a reference (e.g. "faction: none").
const None Identifier = "none"

// ID folds s into an Identifier.
func ID(s string) Identifier {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	// Casers hold state, so one is built per call.
	return Identifier(cases.Fold().String(s))
}

// IDs folds every string in list.
func IDs(list []string) []Identifier {
	if len(list) == 0 {
		return nil
	}
	out := make([]Identifier, 0, len(list))
	for _, s := range list {
		if id := ID(s); id != "" {
			out = append(out, id)
		}
	}
	return out
}

// IsEmpty reports whether the identifier is unset.
func (id Identifier) IsEmpty() bool { return id == "" }

// String implements fmt.Stringer.
func (id Identifier) String() string { return string(id) }

// containsID reports whether id appears in list.
func containsID(list []Identifier, id Identifier) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
