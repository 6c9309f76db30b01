package usemerge

import (
	"errors"
	"fmt"

	"github.com/jward/usemerge/internal/merge"
	"github.com/jward/usemerge/internal/usetree"
)

// ErrNotMergeable is returned by MergeUses when the two declarations cannot
// be combined under the Engine's policy.
var ErrNotMergeable = errors.New("usemerge: declarations are not mergeable")

// parseUse accepts a full declaration (`pub use a::b;`) or a bare tree (`a::b`).
func parseUse(text string) (*usetree.Use, error) {
	u, err := usetree.ParseUse(text)
	if err == nil {
		return u, nil
	}
	t, treeErr := usetree.ParseTree(text)
	if treeErr != nil {
		return nil, err
	}
	return &usetree.Use{Tree: t}, nil
}

// MergeUses merges two declarations given as text and returns the merged
// declaration. The result keeps the attributes and visibility of a.
func (e *Engine) MergeUses(a, b string) (string, error) {
	ua, err := parseUse(a)
	if err != nil {
		return "", fmt.Errorf("usemerge: parse %q: %w", a, err)
	}
	ub, err := parseUse(b)
	if err != nil {
		return "", fmt.Errorf("usemerge: parse %q: %w", b, err)
	}
	merged, ok := merge.TryMergeImports(ua, ub, e.policy)
	if !ok {
		return "", ErrNotMergeable
	}
	return merged.String(), nil
}
