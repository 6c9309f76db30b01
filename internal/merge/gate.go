package merge

import "github.com/jward/usemerge/internal/usetree"

// Mergeable reports whether two declarations may be merged at all: their
// visibilities must match and their attributes must be textually identical.
func Mergeable(a, b *usetree.Use) bool {
	return eqVisibility(a.Visibility, b.Visibility) && eqAttrs(a.Attrs, b.Attrs)
}

func eqVisibility(a, b *usetree.Visibility) bool {
	return a.Equal(b)
}

// eqAttrs compares attribute lists element by element, in order.
// `#[a] #[b]` and `#[b] #[a]` are therefore not equal.
func eqAttrs(a, b []usetree.Attr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Text != b[i].Text {
			return false
		}
	}
	return true
}
