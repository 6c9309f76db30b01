// Package merge combines `use` declarations.
//
// Every entry point works on deep copies of its arguments: a failed merge
// leaves the inputs untouched, and a successful one returns a freshly owned
// tree whose grouped nodes are in canonical order (see PathCmpForSort).
package merge

import (
	"slices"
	"sort"

	"github.com/jward/usemerge/internal/usetree"
)

// TryMergeImports merges rhs into lhs. The result carries lhs's attributes
// and visibility. ok is false when the declarations differ in visibility or
// attributes, or when the trees cannot be merged under p.
func TryMergeImports(lhs, rhs *usetree.Use, p Policy) (*usetree.Use, bool) {
	if !Mergeable(lhs, rhs) {
		return nil, false
	}
	tree, ok := TryMergeTrees(lhs.Tree, rhs.Tree, p)
	if !ok {
		return nil, false
	}
	out := lhs.Clone()
	out.Tree = tree
	return out, true
}

// TryMergeTrees merges rhs into lhs without modifying either.
func TryMergeTrees(lhs, rhs *usetree.UseTree, p Policy) (*usetree.UseTree, bool) {
	if lhs == nil || rhs == nil {
		return nil, false
	}
	l, r := lhs.Clone(), rhs.Clone()
	if tryMergeTreesMut(l, r, p) {
		normalize(l)
		return l, true
	}
	// The recursive attempt may have rewritten l and r; start over.
	out, ok := mergeTreesIntoOne(lhs.Clone(), rhs.Clone(), p)
	if !ok {
		return nil, false
	}
	normalize(out)
	return out, true
}

func tryMergeTreesMut(lhs, rhs *usetree.UseTree, p Policy) bool {
	if lhs.Path == nil || rhs.Path == nil {
		return false
	}
	lp, rp, ok := CommonPrefix(lhs.Path, rhs.Path)
	if !ok {
		return false
	}
	if lhs.Equal(rhs) {
		return true
	}
	splitPrefix(lhs, lp)
	splitPrefix(rhs, rp)
	return recursiveMerge(lhs, rhs, p)
}

// recursiveMerge merges the children of from into into, keeping into's
// children sorted. It returns false if any child cannot be placed; into is
// then in an unspecified state and must be discarded.
//
// Recursion depth is bounded by the nesting depth of the input trees, which
// for real import lists is a handful of levels.
func recursiveMerge(into, from *usetree.UseTree, p Policy) bool {
	for _, c := range into.Children {
		if !p.isTreeAllowed(c) {
			return false
		}
	}
	slices.SortStableFunc(into.Children, func(a, b *usetree.UseTree) int {
		return PathCmpForSort(a.Path, b.Path)
	})

	for _, c := range from.Children {
		if !p.isTreeAllowed(c) {
			return false
		}

		i, lp, rp, found := findCandidate(into.Children, c)
		if !found {
			if p == Module && len(into.Children) > 0 && c.Grouped {
				return false
			}
			insertSorted(into, c)
			continue
		}

		t := into.Children[i]
		if t.Path == nil {
			// Both pathless: `*` or a nested `{...}`.
			if t.Equal(c) {
				continue
			}
			return false
		}

		if lp.Equal(t.Path) && rp.Equal(c.Path) {
			switch lSelf, rSelf := containsSelf(t), containsSelf(c); {
			case lSelf == selfYes && rSelf == selfNoList && c.Alias == "":
				continue
			case lSelf == selfNoList && rSelf == selfYes && t.Alias == "":
				into.Children[i] = c
				continue
			}
			if t.Equal(c) {
				continue
			}
			if t.IsSimplePath() && c.IsSimplePath() {
				// Same path, different rename: both imports are kept.
				insertSorted(into, c)
				continue
			}
		}

		splitPrefix(t, lp)
		splitPrefix(c, rp)
		if !recursiveMerge(t, c, p) {
			return false
		}
	}
	return true
}

// findCandidate locates the sibling c should merge with. Siblings sharing
// c's search key form a contiguous run; an exact path match is preferred,
// otherwise the first sibling with a common prefix is used.
func findCandidate(children []*usetree.UseTree, c *usetree.UseTree) (int, *usetree.Path, *usetree.Path, bool) {
	start := sort.Search(len(children), func(i int) bool {
		return PathCmpBinSearch(children[i].Path, c.Path) >= 0
	})
	end := start
	for end < len(children) && PathCmpBinSearch(children[end].Path, c.Path) == 0 {
		end++
	}
	if start == end {
		return 0, nil, nil, false
	}
	if c.Path == nil {
		for i := start; i < end; i++ {
			if children[i].Equal(c) {
				return i, nil, nil, true
			}
		}
		return start, nil, nil, true
	}

	best := -1
	var bl, br *usetree.Path
	for i := start; i < end; i++ {
		lp, rp, ok := CommonPrefix(children[i].Path, c.Path)
		if !ok {
			continue
		}
		if children[i].Path.Equal(c.Path) {
			return i, lp, rp, true
		}
		if best < 0 {
			best, bl, br = i, lp, rp
		}
	}
	if best < 0 {
		return 0, nil, nil, false
	}
	return best, bl, br, true
}

// insertSorted adds c after every sibling that does not sort after it.
func insertSorted(into *usetree.UseTree, c *usetree.UseTree) {
	i := sort.Search(len(into.Children), func(i int) bool {
		return PathCmpForSort(into.Children[i].Path, c.Path) > 0
	})
	into.Children = slices.Insert(into.Children, i, c)
	into.Grouped = true
}

type selfState int

const (
	selfNoList selfState = iota // a plain path: no child list, not a glob
	selfNo                      // a glob, or a list without a bare `self`
	selfYes                     // a list containing a bare `self`
)

func containsSelf(t *usetree.UseTree) selfState {
	switch {
	case t.Grouped:
		for _, c := range t.Children {
			if c.IsBareSelf() {
				return selfYes
			}
		}
		return selfNo
	case t.Glob:
		return selfNo
	}
	return selfNoList
}

// normalize sorts every grouped node's children into canonical order.
func normalize(t *usetree.UseTree) {
	t.Walk(func(n *usetree.UseTree) {
		if n.Grouped {
			slices.SortStableFunc(n.Children, func(a, b *usetree.UseTree) int {
				return PathCmpForSort(a.Path, b.Path)
			})
		}
	})
}
