package usetree

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ParseTree parses the tree part of a use declaration, e.g. `std::{fmt, io::Read}`.
func ParseTree(src string) (*UseTree, error) {
	s := &scanner{src: src}
	t, err := s.tree()
	if err != nil {
		return nil, err
	}
	s.accept(";")
	if !s.eof() {
		return nil, s.errorf("unexpected trailing input")
	}
	return t, nil
}

// ParseUse parses a full declaration including outer attributes and
// visibility, e.g. `#[cfg(test)] pub(crate) use a::{b, c};`. The trailing
// semicolon is optional.
func ParseUse(src string) (*Use, error) {
	s := &scanner{src: src}
	u := &Use{}
	for {
		text, ok, err := s.attr()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		u.Attrs = append(u.Attrs, Attr{Text: text})
	}

	vis, err := s.visibility()
	if err != nil {
		return nil, err
	}
	u.Visibility = vis

	if !s.keyword("use") {
		return nil, s.errorf("expected `use`")
	}
	if u.Tree, err = s.tree(); err != nil {
		return nil, err
	}
	s.accept(";")
	if !s.eof() {
		return nil, s.errorf("unexpected trailing input")
	}
	return u, nil
}

// MustParseTree is like ParseTree but panics on error.
func MustParseTree(src string) *UseTree {
	t, err := ParseTree(src)
	if err != nil {
		panic(err)
	}
	return t
}

// MustParseUse is like ParseUse but panics on error.
func MustParseUse(src string) *Use {
	u, err := ParseUse(src)
	if err != nil {
		panic(err)
	}
	return u
}

type scanner struct {
	src string
	pos int
}

func (s *scanner) errorf(format string, args ...any) error {
	return fmt.Errorf("usetree: parse %q at offset %d: %s", s.src, s.pos, fmt.Sprintf(format, args...))
}

// skip advances past whitespace and comments. Block comments nest.
func (s *scanner) skip() {
	for s.pos < len(s.src) {
		rest := s.src[s.pos:]
		switch {
		case strings.HasPrefix(rest, "//"):
			if i := strings.IndexByte(rest, '\n'); i >= 0 {
				s.pos += i + 1
			} else {
				s.pos = len(s.src)
			}
		case strings.HasPrefix(rest, "/*"):
			depth := 0
			for s.pos < len(s.src) {
				rest = s.src[s.pos:]
				if strings.HasPrefix(rest, "/*") {
					depth++
					s.pos += 2
				} else if strings.HasPrefix(rest, "*/") {
					depth--
					s.pos += 2
					if depth == 0 {
						break
					}
				} else {
					s.pos++
				}
			}
		default:
			r, size := utf8.DecodeRuneInString(rest)
			if !unicode.IsSpace(r) {
				return
			}
			s.pos += size
		}
	}
}

func (s *scanner) eof() bool {
	s.skip()
	return s.pos >= len(s.src)
}

func (s *scanner) peek(tok string) bool {
	s.skip()
	return strings.HasPrefix(s.src[s.pos:], tok)
}

func (s *scanner) accept(tok string) bool {
	if s.peek(tok) {
		s.pos += len(tok)
		return true
	}
	return false
}

func (s *scanner) expect(tok string) error {
	if !s.accept(tok) {
		return s.errorf("expected %q", tok)
	}
	return nil
}

// word reads an identifier or keyword, including raw identifiers (`r#type`)
// and macro metavariables (`$crate`).
func (s *scanner) word() (string, bool) {
	s.skip()
	start := s.pos
	if strings.HasPrefix(s.src[s.pos:], "r#") {
		s.pos += 2
	} else if strings.HasPrefix(s.src[s.pos:], "$") {
		s.pos++
	}
	body := s.pos
	for s.pos < len(s.src) {
		r, size := utf8.DecodeRuneInString(s.src[s.pos:])
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			break
		}
		s.pos += size
	}
	if s.pos == body {
		s.pos = start
		return "", false
	}
	return s.src[start:s.pos], true
}

// keyword consumes kw only when it appears as a whole word.
func (s *scanner) keyword(kw string) bool {
	save := s.pos
	if w, ok := s.word(); ok && w == kw {
		return true
	}
	s.pos = save
	return false
}

// attr consumes one outer attribute and returns its raw text.
func (s *scanner) attr() (string, bool, error) {
	if !s.peek("#") {
		return "", false, nil
	}
	start := s.pos
	s.pos++
	if err := s.expect("["); err != nil {
		return "", false, err
	}
	depth := 1
	for s.pos < len(s.src) && depth > 0 {
		switch c := s.src[s.pos]; c {
		case '[':
			depth++
		case ']':
			depth--
		case '"':
			s.pos++
			for s.pos < len(s.src) && s.src[s.pos] != '"' {
				if s.src[s.pos] == '\\' {
					s.pos++
				}
				s.pos++
			}
		}
		s.pos++
	}
	if depth != 0 {
		return "", false, s.errorf("unterminated attribute")
	}
	return s.src[start:s.pos], true, nil
}

func (s *scanner) visibility() (*Visibility, error) {
	save := s.pos
	w, ok := s.word()
	switch {
	case ok && w == "pub":
	case ok && w == "crate":
		if s.keyword("use") {
			s.pos -= len("use")
			return &Visibility{Kind: VisCrate}, nil
		}
		s.pos = save
		return nil, nil
	default:
		s.pos = save
		return nil, nil
	}

	if !s.accept("(") {
		return &Visibility{Kind: VisPub}, nil
	}
	v := &Visibility{}
	kw, _ := s.word()
	switch kw {
	case "crate":
		v.Kind = VisPubCrate
	case "super":
		v.Kind = VisPubSuper
	case "self":
		v.Kind = VisPubSelf
	case "in":
		v.Kind = VisPubIn
		p, err := s.path()
		if err != nil {
			return nil, err
		}
		v.In = p
	default:
		return nil, s.errorf("unknown visibility restriction %q", kw)
	}
	if err := s.expect(")"); err != nil {
		return nil, err
	}
	return v, nil
}

func (s *scanner) tree() (*UseTree, error) {
	rooted := s.accept("::")
	switch {
	case s.accept("*"):
		return &UseTree{Glob: true, Rooted: rooted}, nil
	case s.peek("{"):
		children, err := s.group()
		if err != nil {
			return nil, err
		}
		return &UseTree{Grouped: true, Children: children, Rooted: rooted}, nil
	}

	p, err := s.path()
	if err != nil {
		return nil, err
	}
	p.Rooted = rooted
	t := &UseTree{Path: p}
	if s.accept("::") {
		switch {
		case s.accept("*"):
			t.Glob = true
		case s.peek("{"):
			if t.Children, err = s.group(); err != nil {
				return nil, err
			}
			t.Grouped = true
		default:
			return nil, s.errorf("expected `*` or `{` after `::`")
		}
	}

	if s.keyword("as") {
		alias, ok := s.word()
		if !ok {
			return nil, s.errorf("expected name after `as`")
		}
		t.Alias = alias
	}
	return t, nil
}

// path reads `seg(::seg)*`, stopping before a `::` that introduces `*` or `{`.
func (s *scanner) path() (*Path, error) {
	first, ok := s.word()
	if !ok {
		return nil, s.errorf("expected path segment")
	}
	p := &Path{Segments: []Segment{SegmentFromText(first)}}
	for {
		save := s.pos
		if !s.accept("::") {
			break
		}
		if s.peek("*") || s.peek("{") {
			s.pos = save
			break
		}
		seg, ok := s.word()
		if !ok {
			return nil, s.errorf("expected path segment after `::`")
		}
		p.Segments = append(p.Segments, SegmentFromText(seg))
	}
	return p, nil
}

func (s *scanner) group() ([]*UseTree, error) {
	if err := s.expect("{"); err != nil {
		return nil, err
	}
	children := []*UseTree{}
	for !s.accept("}") {
		if s.eof() {
			return nil, s.errorf("unterminated `{`")
		}
		child, err := s.tree()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
		if !s.accept(",") {
			if err := s.expect("}"); err != nil {
				return nil, err
			}
			break
		}
	}
	return children, nil
}
