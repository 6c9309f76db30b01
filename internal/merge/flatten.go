package merge

import "github.com/jward/usemerge/internal/usetree"

// mergeTreesIntoOne builds `{lhs..., rhs...}` for trees that share no usable
// prefix. It only applies under One and consumes both arguments.
//
// A side with a path is kept whole; a pathless group contributes its
// children. A leading `::` present on both sides is hoisted onto the new
// group. When only one side is rooted, that side is kept whole so the
// qualifier stays attached to it.
func mergeTreesIntoOne(lhs, rhs *usetree.UseTree, p Policy) (*usetree.UseTree, bool) {
	if p != One {
		return nil, false
	}

	lRoot, rRoot := lhs.HasLeadingRoot(), rhs.HasLeadingRoot()
	bothRooted := lRoot && rRoot
	if bothRooted {
		stripRoot(lhs)
		stripRoot(rhs)
	}

	out := &usetree.UseTree{Grouped: true, Rooted: bothRooted}
	for _, side := range []struct {
		t        *usetree.UseTree
		keepRoot bool
	}{
		{lhs, lRoot && !rRoot},
		{rhs, rRoot && !lRoot},
	} {
		switch {
		case side.t.Path != nil || side.keepRoot:
			out.Children = append(out.Children, side.t)
		case side.t.Grouped:
			out.Children = append(out.Children, side.t.Children...)
		default:
			return nil, false
		}
	}
	return out, true
}

func stripRoot(t *usetree.UseTree) {
	if t.Path != nil {
		t.Path.Rooted = false
		return
	}
	t.Rooted = false
}
