package merge

import (
	"fmt"
	"strings"

	"github.com/jward/usemerge/internal/usetree"
)

// Policy selects how aggressively unrelated imports are folded together.
type Policy string

const (
	// One merges every declaration into a single declaration.
	One Policy = "one"
	// Crate merges declarations sharing any leading path segment.
	Crate Policy = "crate"
	// Module merges only declarations from the same module, keeping the
	// result one level deep.
	Module Policy = "module"
)

// Policies lists the accepted policy names in documentation order.
var Policies = []Policy{One, Crate, Module}

// ParsePolicy converts a configuration value to a Policy. Matching is
// case-insensitive.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case One, Crate, Module:
		return p, nil
	}
	return "", fmt.Errorf("merge: unknown policy %q (want one, crate or module)", s)
}

func (p Policy) String() string { return string(p) }

// isTreeAllowed reports whether t may take part in a merge under p. Module
// only accepts bare trees with at most one path segment.
func (p Policy) isTreeAllowed(t *usetree.UseTree) bool {
	if p != Module {
		return true
	}
	return !t.Grouped && t.Path.Len() <= 1
}
