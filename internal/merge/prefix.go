package merge

import "github.com/jward/usemerge/internal/usetree"

// CommonPrefix walks a and b from their first segment and returns the
// longest run of textually equal segments, as a prefix of each. ok is false
// when the first segments already differ. A leading `::` belongs to the first
// segment, so `::std` and `std` share nothing.
func CommonPrefix(a, b *usetree.Path) (pa, pb *usetree.Path, ok bool) {
	if a.Len() == 0 || b.Len() == 0 || a.Rooted != b.Rooted {
		return nil, nil, false
	}
	n := 0
	for n < len(a.Segments) && n < len(b.Segments) && a.Segments[n] == b.Segments[n] {
		n++
	}
	if n == 0 {
		return nil, nil, false
	}
	return a.Prefix(n), b.Prefix(n), true
}

// splitPrefix rewrites t in place into `prefix::{rest}` form, where prefix
// must be a prefix of t.Path.
func splitPrefix(t *usetree.UseTree, prefix *usetree.Path) {
	if t.Path.Len() == prefix.Len() {
		switch {
		case t.Grouped:
			return
		case t.Glob:
			t.Glob = false
			t.Children = []*usetree.UseTree{usetree.GlobOf(nil)}
		default:
			t.Children = []*usetree.UseTree{{Path: usetree.SelfPath(), Alias: t.Alias}}
		}
		t.Path = prefix.Clone()
		t.Alias = ""
		t.Grouped = true
		return
	}

	rest := &usetree.UseTree{
		Path:     t.Path.Suffix(prefix.Len()),
		Alias:    t.Alias,
		Glob:     t.Glob,
		Grouped:  t.Grouped,
		Children: t.Children,
	}
	*t = usetree.UseTree{
		Path:     prefix.Clone(),
		Grouped:  true,
		Children: []*usetree.UseTree{rest},
	}
}
