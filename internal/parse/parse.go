// Package parse locates `use` declarations in Rust source with tree-sitter.
//
// tree-sitter supplies item boundaries, attribute ownership and nesting
// (modules, function bodies). The text of each declaration is then read by
// usetree.ParseUse, which produces the value tree the merge engine works on.
package parse

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/rust"

	"github.com/jward/usemerge/internal/usetree"
)

// Node types in the Rust grammar.
const (
	nodeUse          = "use_declaration"
	nodeAttribute    = "attribute_item"
	nodeLineComment  = "line_comment"
	nodeBlockComment = "block_comment"
)

func isComment(n *sitter.Node) bool {
	t := n.Type()
	return t == nodeLineComment || t == nodeBlockComment
}

// Decl is one `use` declaration and its location. The range starts at the
// first outer attribute, if any.
type Decl struct {
	Use       *usetree.Use
	Text      string
	StartByte uint32
	EndByte   uint32
	StartLine uint32 // 1-based
	EndLine   uint32
	// Commented is set when a comment sits inside the declaration or between
	// it and its attributes. Rewriting such a declaration would drop the comment.
	Commented bool
}

// Block is a run of declarations that are adjacent siblings in the same item
// list. A blank line, a comment or any other item ends a block.
type Block struct {
	Decls  []Decl
	Indent string // leading whitespace of the first declaration's line
}

// StartByte returns the offset of the first declaration.
func (b Block) StartByte() uint32 { return b.Decls[0].StartByte }

// EndByte returns the end offset of the last declaration.
func (b Block) EndByte() uint32 { return b.Decls[len(b.Decls)-1].EndByte }

// File holds everything extracted from one source file.
type File struct {
	Decls  []Decl  // in source order
	Blocks []Block // in source order
	// Unparsed counts declarations tree-sitter found but whose text could not
	// be read as a use tree (macro fragments, syntax errors).
	Unparsed int
}

// IsRustFile reports whether path names a Rust source file.
func IsRustFile(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".rs")
}

// Source extracts declarations from Rust source.
func Source(ctx context.Context, src []byte) (*File, error) {
	if len(src) == 0 {
		return &File{}, nil
	}
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(rust.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse: tree-sitter: %w", err)
	}
	defer tree.Close()

	f := &File{}
	f.walk(tree.RootNode(), src)
	return f, nil
}

// walk scans the named children of n as one item list, then descends into
// every child that can hold further items.
func (f *File) walk(n *sitter.Node, src []byte) {
	var (
		run         []Decl
		attrFrom    = -1 // start byte of pending attributes
		attrComment bool
		prevEnd     uint32
	)
	flush := func() {
		if len(run) > 0 {
			f.Blocks = append(f.Blocks, Block{Decls: run, Indent: indentAt(src, run[0].StartByte)})
			run = nil
		}
	}

	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case nodeAttribute:
			if attrFrom < 0 {
				attrFrom = int(child.StartByte())
			}
			continue
		case nodeLineComment, nodeBlockComment:
			if attrFrom >= 0 {
				attrComment = true
			} else {
				flush()
				prevEnd = child.EndByte()
			}
			continue
		case nodeUse:
			start := child.StartByte()
			if attrFrom >= 0 {
				start = uint32(attrFrom)
			}
			commented := attrComment
			attrFrom, attrComment = -1, false

			d, ok := declAt(src, start, child)
			if !ok {
				f.Unparsed++
				flush()
				prevEnd = child.EndByte()
				continue
			}
			if len(run) > 0 && !adjacent(src[prevEnd:start]) {
				flush()
			}
			d.Commented = commented || hasComment(child)
			f.Decls = append(f.Decls, d)
			run = append(run, d)
			prevEnd = d.EndByte
			continue
		}

		attrFrom, attrComment = -1, false
		flush()
		prevEnd = child.EndByte()
		if child.NamedChildCount() > 0 {
			f.walk(child, src)
		}
	}
	flush()
}

func declAt(src []byte, start uint32, n *sitter.Node) (Decl, bool) {
	text := string(src[start:n.EndByte()])
	u, err := usetree.ParseUse(text)
	if err != nil {
		return Decl{}, false
	}
	return Decl{
		Use:       u,
		Text:      text,
		StartByte: start,
		EndByte:   n.EndByte(),
		StartLine: lineOf(src, start),
		EndLine:   n.EndPoint().Row + 1,
	}, true
}

// adjacent reports whether gap holds only whitespace with at most one newline.
func adjacent(gap []byte) bool {
	return strings.TrimSpace(string(gap)) == "" && strings.Count(string(gap), "\n") <= 1
}

func hasComment(n *sitter.Node) bool {
	count := int(n.NamedChildCount())
	for i := 0; i < count; i++ {
		c := n.NamedChild(i)
		if isComment(c) || hasComment(c) {
			return true
		}
	}
	return false
}

func lineOf(src []byte, off uint32) uint32 {
	return uint32(strings.Count(string(src[:off]), "\n")) + 1
}

// indentAt returns the whitespace between the start of the line holding off
// and the first non-blank character on it.
func indentAt(src []byte, off uint32) string {
	lineStart := strings.LastIndexByte(string(src[:off]), '\n') + 1
	end := lineStart
	for end < int(off) && (src[end] == ' ' || src[end] == '\t') {
		end++
	}
	return string(src[lineStart:end])
}
