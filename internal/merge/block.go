package merge

import (
	"slices"

	"github.com/jward/usemerge/internal/usetree"
)

// MergeBlock folds a run of declarations together. Each declaration is merged
// into the first earlier result that accepts it, or kept on its own; the
// results are then ordered with SortUses. The inputs are not modified.
func MergeBlock(uses []*usetree.Use, p Policy) []*usetree.Use {
	out := make([]*usetree.Use, 0, len(uses))
	for _, u := range uses {
		merged := false
		for i, prev := range out {
			if m, ok := TryMergeImports(prev, u, p); ok {
				out[i] = m
				merged = true
				break
			}
		}
		if !merged {
			out = append(out, u.Clone())
		}
	}
	SortUses(out)
	return out
}

// InsertUse adds u to a list of existing declarations, merging it into the
// first one that accepts it. Otherwise u is inserted before the first
// declaration that sorts after it. It returns the new list and the index of
// the declaration that now holds u. The input slice and its elements are not
// modified; unchanged elements are shared with the result.
func InsertUse(uses []*usetree.Use, u *usetree.Use, p Policy) ([]*usetree.Use, int) {
	out := slices.Clone(uses)
	for i, existing := range uses {
		if m, ok := TryMergeImports(existing, u, p); ok {
			out[i] = m
			return out, i
		}
	}
	i := 0
	for i < len(uses) && useCmp(uses[i], u) <= 0 {
		i++
	}
	return slices.Insert(out, i, u.Clone()), i
}

// SortUses orders declarations by path, placing a plain import before a
// braced list that shares its prefix. The sort is stable.
func SortUses(uses []*usetree.Use) {
	slices.SortStableFunc(uses, useCmp)
}

// useCmp breaks UseTreePathCmp ties between `a::b` and `a::b::{..}` by
// putting the leaf first, keeping the order total.
func useCmp(a, b *usetree.Use) int {
	if c := UseTreePathCmp(a.Tree.Path, a.Tree.Grouped, b.Tree.Path, b.Tree.Grouped); c != 0 {
		return c
	}
	switch {
	case a.Tree.Grouped == b.Tree.Grouped:
		return 0
	case !a.Tree.Grouped:
		return -1
	default:
		return 1
	}
}
