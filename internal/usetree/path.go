package usetree

import "strings"

// SegmentKind classifies a path segment. Only Name segments carry an
// identifier that participates in ordering; keyword segments sort before
// every identifier and compare equal to each other.
type SegmentKind int

const (
	SegmentName     SegmentKind = iota // ordinary identifier
	SegmentSelf                        // self
	SegmentSuper                       // super
	SegmentCrate                       // crate
	SegmentSelfType                    // Self
)

// Segment is one atomic name in a path.
type Segment struct {
	Kind SegmentKind
	Name string // identifier text, empty for keyword segments
}

// NameSegment returns an identifier segment.
func NameSegment(name string) Segment {
	return Segment{Kind: SegmentName, Name: name}
}

// SelfSegment returns the `self` keyword segment.
func SelfSegment() Segment {
	return Segment{Kind: SegmentSelf}
}

// keywordSegments maps keyword text to its segment kind.
var keywordSegments = map[string]SegmentKind{
	"self":  SegmentSelf,
	"super": SegmentSuper,
	"crate": SegmentCrate,
	"Self":  SegmentSelfType,
}

// SegmentFromText classifies raw segment text.
func SegmentFromText(text string) Segment {
	if kind, ok := keywordSegments[text]; ok {
		return Segment{Kind: kind}
	}
	return NameSegment(text)
}

// Text returns the segment as written in source.
func (s Segment) Text() string {
	switch s.Kind {
	case SegmentSelf:
		return "self"
	case SegmentSuper:
		return "super"
	case SegmentCrate:
		return "crate"
	case SegmentSelfType:
		return "Self"
	default:
		return s.Name
	}
}

// IsKeyword reports whether the segment is a path keyword rather than an identifier.
func (s Segment) IsKeyword() bool {
	return s.Kind != SegmentName
}

// Path is a non-empty sequence of segments with an optional leading `::`.
type Path struct {
	Segments []Segment
	Rooted   bool
}

// NewPath builds a path from segment texts, e.g. NewPath("std", "fmt").
func NewPath(segments ...string) *Path {
	p := &Path{Segments: make([]Segment, len(segments))}
	for i, s := range segments {
		p.Segments[i] = SegmentFromText(s)
	}
	return p
}

// SelfPath returns the single-segment path `self`.
func SelfPath() *Path {
	return &Path{Segments: []Segment{SelfSegment()}}
}

// Len returns the number of segments; a nil path has length 0.
func (p *Path) Len() int {
	if p == nil {
		return 0
	}
	return len(p.Segments)
}

// First returns the first segment. The path must be non-empty.
func (p *Path) First() Segment {
	return p.Segments[0]
}

// IsSelf reports whether the path is exactly `self`.
func (p *Path) IsSelf() bool {
	return p != nil && !p.Rooted && len(p.Segments) == 1 && p.Segments[0].Kind == SegmentSelf
}

// Clone returns a deep copy. Cloning nil yields nil.
func (p *Path) Clone() *Path {
	if p == nil {
		return nil
	}
	c := &Path{Segments: make([]Segment, len(p.Segments)), Rooted: p.Rooted}
	copy(c.Segments, p.Segments)
	return c
}

// Equal reports structural equality: same segments and same root qualifier.
func (p *Path) Equal(o *Path) bool {
	if p == nil || o == nil {
		return p == o
	}
	if p.Rooted != o.Rooted || len(p.Segments) != len(o.Segments) {
		return false
	}
	for i := range p.Segments {
		if p.Segments[i] != o.Segments[i] {
			return false
		}
	}
	return true
}

// Prefix returns the first n segments, keeping the root qualifier.
func (p *Path) Prefix(n int) *Path {
	c := &Path{Segments: make([]Segment, n), Rooted: p.Rooted}
	copy(c.Segments, p.Segments[:n])
	return c
}

// Suffix returns the segments after the first n, without a root qualifier.
// It returns nil when nothing remains.
func (p *Path) Suffix(n int) *Path {
	if n >= len(p.Segments) {
		return nil
	}
	c := &Path{Segments: make([]Segment, len(p.Segments)-n)}
	copy(c.Segments, p.Segments[n:])
	return c
}

// Join appends o's segments to p, keeping p's root qualifier. A nil p
// yields a copy of o.
func (p *Path) Join(o *Path) *Path {
	if p == nil {
		return o.Clone()
	}
	c := p.Clone()
	if o != nil {
		c.Segments = append(c.Segments, o.Segments...)
	}
	return c
}

func (p *Path) String() string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	if p.Rooted {
		b.WriteString("::")
	}
	for i, s := range p.Segments {
		if i > 0 {
			b.WriteString("::")
		}
		b.WriteString(s.Text())
	}
	return b.String()
}
