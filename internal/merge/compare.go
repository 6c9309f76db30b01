package merge

import (
	"strings"

	"github.com/jward/usemerge/internal/usetree"
)

// The three orderings below serve different purposes and must not be
// interchanged. All return a negative number when a sorts before b, zero
// when they are equivalent and a positive number otherwise.

// PathCmpForSort is the canonical sibling order: pathless trees first, then a
// bare `self`, then paths compared segment by segment. Two paths are
// equivalent when one is a prefix of the other.
func PathCmpForSort(a, b *usetree.Path) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch aSelf, bSelf := a.IsSelf(), b.IsSelf(); {
	case aSelf && bSelf:
		return 0
	case aSelf:
		return -1
	case bSelf:
		return 1
	}
	return pathCmpShort(a, b)
}

// PathCmpBinSearch orders by first segment only. It is the lookup key used to
// find a merge candidate among sorted siblings; equality says nothing about
// the rest of the path.
func PathCmpBinSearch(a, b *usetree.Path) int {
	switch {
	case a.Len() == 0 && b.Len() == 0:
		return 0
	case a.Len() == 0:
		return -1
	case b.Len() == 0:
		return 1
	}
	return segmentCmp(a.First(), b.First())
}

// UseTreePathCmp compares full paths. When one path runs out first, the side
// without a child list sorts before the other and the side with one sorts
// after it, so `a::b` precedes `a::b::c` while `a::b::{c}` follows `a::b::c`.
func UseTreePathCmp(a *usetree.Path, aHasList bool, b *usetree.Path, bHasList bool) int {
	var as, bs []usetree.Segment
	if a != nil {
		as = a.Segments
	}
	if b != nil {
		bs = b.Segments
	}
	for i := 0; i < len(as) || i < len(bs); i++ {
		switch {
		case i >= len(bs):
			if !bHasList {
				return 1
			}
			return -1
		case i >= len(as):
			if !aHasList {
				return -1
			}
			return 1
		}
		if c := segmentCmp(as[i], bs[i]); c != 0 {
			return c
		}
	}
	return 0
}

func pathCmpShort(a, b *usetree.Path) int {
	for i := 0; i < len(a.Segments) && i < len(b.Segments); i++ {
		if c := segmentCmp(a.Segments[i], b.Segments[i]); c != 0 {
			return c
		}
	}
	return 0
}

// segmentCmp orders identifiers by text. Keyword segments carry no name:
// they sort before every identifier and are equivalent to each other.
func segmentCmp(a, b usetree.Segment) int {
	aKw, bKw := a.IsKeyword(), b.IsKeyword()
	switch {
	case aKw && bKw:
		return 0
	case aKw:
		return -1
	case bKw:
		return 1
	}
	return strings.Compare(a.Name, b.Name)
}
