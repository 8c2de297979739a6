package series

import (
	"fmt"
	"strings"
)

// Mode selects how a set of files is merged.
type Mode string

const (
	// ModeSequential unions consecutive, non-overlapping spans of the same parameters.
	ModeSequential Mode = "sequential"

	// ModeStackParameters aligns files on shared instants and places their parameters side by side.
	ModeStackParameters Mode = "stack-parameters"

	// ModeStdMerge groups files by station, concatenates each group, then stacks stations.
	ModeStdMerge Mode = "std-merge"
)

// Modes lists every supported mode.
var Modes = []Mode{ModeSequential, ModeStackParameters, ModeStdMerge}

// Valid reports whether m is a supported mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeSequential, ModeStackParameters, ModeStdMerge:
		return true
	default:
		return false
	}
}

// ParseMode converts a user-supplied string into a Mode.
func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", fmt.Errorf("invalid mode %q (must be sequential, stack-parameters, or std-merge)", s)
	}
	return m, nil
}
