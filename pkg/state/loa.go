package state

import "fmt"

// LevelOfAssurance is the ordinal authentication-strength value
// negotiated between relying party, hub and identity provider.
type LevelOfAssurance string

const (
	Level1 LevelOfAssurance = "LEVEL_1"
	Level2 LevelOfAssurance = "LEVEL_2"
	Level3 LevelOfAssurance = "LEVEL_3"
	Level4 LevelOfAssurance = "LEVEL_4"
)

var loaRank = map[LevelOfAssurance]int{
	Level1: 1,
	Level2: 2,
	Level3: 3,
	Level4: 4,
}

// Valid reports whether l is one of the known levels.
func (l LevelOfAssurance) Valid() bool {
	_, ok := loaRank[l]
	return ok
}

// AtLeast reports whether l meets or exceeds min.
func (l LevelOfAssurance) AtLeast(min LevelOfAssurance) bool {
	return loaRank[l] >= loaRank[min]
}

// ParseLevelOfAssurance converts a stored or wire value into a
// LevelOfAssurance, rejecting unknown values.
func ParseLevelOfAssurance(s string) (LevelOfAssurance, error) {
	l := LevelOfAssurance(s)
	if !l.Valid() {
		return "", fmt.Errorf("unknown level of assurance %q", s)
	}
	return l, nil
}
