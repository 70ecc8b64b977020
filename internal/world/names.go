package world

import (
	"fmt"
	"math/rand"
)

var (
	namePrefixes = []string{
		"Abyss", "Brine", "Coral", "Drift", "Ember", "Frost", "Gloom", "Hollow",
		"Iron", "Jade", "Kelp", "Lantern", "Murk", "North", "Oxide", "Pale",
		"Rust", "Salt", "Tide", "Umber", "Vent", "Whale", "Black", "Silver",
		"Deep", "Cold", "Glass", "Copper",
	}
	nameSuffixes = []string{
		"haven", "reach", "hollow", "trench", "vent", "shelf", "rift", "spire",
		"deep", "fall", "crest", "point", "well", "gate", "watch", "ridge",
		"basin", "shoal", "sound", "helm", "rest", "port", "drift", "maw",
	}
)

// generateNames produces distinct base names by combining syllables. Once the
// combinations run out a numeral keeps names distinct.
func generateNames(rng *rand.Rand, count int) []string {
	used := make(map[string]bool, count)
	names := make([]string, 0, count)
	limit := len(namePrefixes) * len(nameSuffixes)

	for len(names) < count {
		name := namePrefixes[rng.Intn(len(namePrefixes))] + nameSuffixes[rng.Intn(len(nameSuffixes))]
		if len(used) >= limit {
			name = fmt.Sprintf("%s %d", name, len(names)+1)
		}
		if !used[name] {
			used[name] = true
			names = append(names, name)
		}
	}
	return names
}

// pickBaseName draws a name from a type's own list that no location uses yet.
func pickBaseName(rng *rand.Rand, names []string, taken map[string]bool) (string, bool) {
	var free []string
	for _, n := range names {
		if !taken[n] {
			free = append(free, n)
		}
	}
	if len(free) == 0 {
		return "", false
	}
	return free[rng.Intn(len(free))], true
}
