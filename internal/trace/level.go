package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // nothing but crash dumps
	LevelPhase        // driver and pass boundaries
	LevelDetail       // plus declarations
	LevelDebug        // plus call sites and instructions
)

var levelNames = [...]string{"off", "error", "phase", "detail", "debug"}

// deepest is the finest scope each level lets through; 0 blocks everything.
var deepest = [...]Scope{0, 0, ScopePass, ScopeDecl, ScopeNode}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "unknown"
}

// ParseLevel converts a flag or config value to a Level. Empty means off.
func ParseLevel(s string) (Level, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return LevelOff, nil
	}
	for i, n := range levelNames {
		if n == name {
			return Level(i), nil // #nosec G115 -- bounded by levelNames
		}
	}
	return LevelOff, fmt.Errorf("invalid trace level: %q (expected: %s)", s, strings.Join(levelNames[:], "|"))
}

// ShouldEmit reports whether events of scope pass at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	return int(l) < len(deepest) && scope != 0 && scope <= deepest[l]
}
