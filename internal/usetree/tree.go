package usetree

import (
	"sort"
	"strings"
)

// UseTree is one node of an import tree.
//
// A leaf has no child list: it imports Path (optionally renamed with Alias)
// or, when Glob is set, everything under Path. A grouped node imports each of
// its Children relative to Path. Grouped and Glob are mutually exclusive in
// well-formed input.
type UseTree struct {
	Path     *Path
	Alias    string // rename target, "_" for an underscore import, "" for none
	Glob     bool
	Grouped  bool
	Children []*UseTree

	// Rooted marks a pathless tree written with a leading `::`, e.g. `::{a, b}`.
	// A tree with a path carries the qualifier on Path instead.
	Rooted bool
}

// Leaf returns a plain import of path.
func Leaf(path *Path) *UseTree {
	return &UseTree{Path: path}
}

// Group returns a grouped node with the given prefix (may be nil) and children.
func Group(prefix *Path, children ...*UseTree) *UseTree {
	return &UseTree{Path: prefix, Grouped: true, Children: children}
}

// GlobOf returns `path::*`; a nil path yields a bare `*`.
func GlobOf(path *Path) *UseTree {
	return &UseTree{Path: path, Glob: true}
}

// IsSimplePath reports whether the tree has neither a child list nor a glob.
func (t *UseTree) IsSimplePath() bool {
	return !t.Grouped && !t.Glob
}

// HasLeadingRoot reports whether the tree starts with `::`.
func (t *UseTree) HasLeadingRoot() bool {
	if t.Path != nil {
		return t.Path.Rooted
	}
	return t.Rooted
}

// IsBareSelf reports whether the tree is exactly `self`, with no rename.
func (t *UseTree) IsBareSelf() bool {
	return t.Path.IsSelf() && t.IsSimplePath() && t.Alias == ""
}

// Clone returns a deep copy sharing no memory with t.
func (t *UseTree) Clone() *UseTree {
	if t == nil {
		return nil
	}
	c := &UseTree{
		Path:    t.Path.Clone(),
		Alias:   t.Alias,
		Glob:    t.Glob,
		Grouped: t.Grouped,
		Rooted:  t.Rooted,
	}
	if t.Children != nil {
		c.Children = make([]*UseTree, len(t.Children))
		for i, child := range t.Children {
			c.Children[i] = child.Clone()
		}
	}
	return c
}

// Equal reports structural equality, including child order.
func (t *UseTree) Equal(o *UseTree) bool {
	if t == nil || o == nil {
		return t == o
	}
	if !t.Path.Equal(o.Path) || t.Alias != o.Alias || t.Glob != o.Glob ||
		t.Grouped != o.Grouped || t.Rooted != o.Rooted || len(t.Children) != len(o.Children) {
		return false
	}
	for i := range t.Children {
		if !t.Children[i].Equal(o.Children[i]) {
			return false
		}
	}
	return true
}

// Walk calls fn for t and every descendant, parents before children.
func (t *UseTree) Walk(fn func(*UseTree)) {
	fn(t)
	for _, c := range t.Children {
		c.Walk(fn)
	}
}

func (t *UseTree) String() string {
	var b strings.Builder
	t.write(&b)
	return b.String()
}

func (t *UseTree) write(b *strings.Builder) {
	if t.Path == nil && t.Rooted {
		b.WriteString("::")
	}
	if t.Path != nil {
		b.WriteString(t.Path.String())
	}
	switch {
	case t.Glob:
		if t.Path != nil {
			b.WriteString("::")
		}
		b.WriteString("*")
	case t.Grouped:
		if t.Path != nil {
			b.WriteString("::")
		}
		b.WriteString("{")
		for i, c := range t.Children {
			if i > 0 {
				b.WriteString(", ")
			}
			c.write(b)
		}
		b.WriteString("}")
	}
	if t.Alias != "" {
		b.WriteString(" as ")
		b.WriteString(t.Alias)
	}
}

// ConcretePaths expands the tree into the fully-qualified imports it denotes,
// sorted and deduplicated. A `self` entry denotes its enclosing prefix, a glob
// ends in `::*`, and a rename is rendered as ` as name`.
func (t *UseTree) ConcretePaths() []string {
	seen := make(map[string]struct{})
	t.collect(nil, seen)
	out := make([]string, 0, len(seen))
	for p := range seen {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func (t *UseTree) collect(prefix *Path, seen map[string]struct{}) {
	full := prefix
	switch {
	case t.Path.IsSelf() && prefix != nil:
		// `self` denotes the enclosing prefix itself.
	case t.Path != nil:
		full = prefix.Join(t.Path)
	case t.Rooted && prefix == nil:
		full = &Path{Rooted: true}
	}

	if t.Grouped {
		for _, c := range t.Children {
			c.collect(full, seen)
		}
		return
	}

	s := full.String()
	if t.Glob {
		if s != "" && s != "::" {
			s += "::"
		}
		s += "*"
	}
	if t.Alias != "" {
		s += " as " + t.Alias
	}
	seen[s] = struct{}{}
}

// VisibilityKind enumerates visibility qualifiers.
type VisibilityKind int

const (
	VisPub      VisibilityKind = iota // pub
	VisPubCrate                       // pub(crate)
	VisPubSuper                       // pub(super)
	VisPubSelf                        // pub(self)
	VisPubIn                          // pub(in path)
	VisCrate                          // crate (legacy)
)

// Visibility is a visibility qualifier. A nil *Visibility means private.
type Visibility struct {
	Kind VisibilityKind
	In   *Path // restriction path for VisPubIn
}

// Equal compares kind and restriction path. Two nil visibilities are equal.
func (v *Visibility) Equal(o *Visibility) bool {
	if v == nil || o == nil {
		return v == o
	}
	return v.Kind == o.Kind && v.In.Equal(o.In)
}

// Clone returns a deep copy.
func (v *Visibility) Clone() *Visibility {
	if v == nil {
		return nil
	}
	return &Visibility{Kind: v.Kind, In: v.In.Clone()}
}

func (v *Visibility) String() string {
	if v == nil {
		return ""
	}
	switch v.Kind {
	case VisPubCrate:
		return "pub(crate)"
	case VisPubSuper:
		return "pub(super)"
	case VisPubSelf:
		return "pub(self)"
	case VisPubIn:
		return "pub(in " + v.In.String() + ")"
	case VisCrate:
		return "crate"
	default:
		return "pub"
	}
}

// Attr is an outer attribute attached to a declaration, kept as raw text
// such as `#[cfg(test)]`.
type Attr struct {
	Text string
}

// Use is a whole `use` declaration.
type Use struct {
	Attrs      []Attr
	Visibility *Visibility
	Tree       *UseTree
}

// Clone returns a deep copy.
func (u *Use) Clone() *Use {
	if u == nil {
		return nil
	}
	c := &Use{Visibility: u.Visibility.Clone(), Tree: u.Tree.Clone()}
	if u.Attrs != nil {
		c.Attrs = make([]Attr, len(u.Attrs))
		copy(c.Attrs, u.Attrs)
	}
	return c
}

// Equal reports structural equality of attributes, visibility and tree.
func (u *Use) Equal(o *Use) bool {
	if u == nil || o == nil {
		return u == o
	}
	if len(u.Attrs) != len(o.Attrs) || !u.Visibility.Equal(o.Visibility) {
		return false
	}
	for i := range u.Attrs {
		if u.Attrs[i] != o.Attrs[i] {
			return false
		}
	}
	return u.Tree.Equal(o.Tree)
}

// String renders the declaration, one attribute per line before the item.
func (u *Use) String() string {
	var b strings.Builder
	for _, a := range u.Attrs {
		b.WriteString(a.Text)
		b.WriteString("\n")
	}
	if u.Visibility != nil {
		b.WriteString(u.Visibility.String())
		b.WriteString(" ")
	}
	b.WriteString("use ")
	u.Tree.write(&b)
	b.WriteString(";")
	return b.String()
}
