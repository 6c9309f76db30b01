package usemerge

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/jward/usemerge/internal/merge"
	"github.com/jward/usemerge/internal/parse"
	"github.com/jward/usemerge/internal/usetree"
)

// FileResult is the outcome of rewriting one file's declarations.
type FileResult struct {
	Path    string `json:"path,omitempty" yaml:"path,omitempty"`
	Source  []byte `json:"-" yaml:"-"`
	Changed bool   `json:"changed" yaml:"changed"`
	// Before and After count declarations in the rewritten blocks.
	Before int `json:"before" yaml:"before"`
	After  int `json:"after" yaml:"after"`
	// Skipped counts blocks left alone because they contain comments.
	Skipped int `json:"skipped" yaml:"skipped"`
	// Index is the position of the inserted or extended declaration within
	// its block. Only set by InsertImport.
	Index int `json:"index,omitempty" yaml:"index,omitempty"`
}

// edit replaces src[start:end] with text.
type edit struct {
	start, end int
	text       string
}

func applyEdits(src []byte, edits []edit) []byte {
	slices.SortFunc(edits, func(a, b edit) int { return b.start - a.start })
	out := slices.Clone(src)
	for _, ed := range edits {
		out = slices.Concat(out[:ed.start], []byte(ed.text), out[ed.end:])
	}
	return out
}

// render prints declarations one per line, continuing at indent.
func render(uses []*usetree.Use, indent string) string {
	lines := lo.FlatMap(uses, func(u *usetree.Use, _ int) []string {
		return strings.Split(u.String(), "\n")
	})
	return strings.Join(lines, "\n"+indent)
}

func concretePaths(uses []*usetree.Use) []string {
	paths := lo.Uniq(lo.FlatMap(uses, func(u *usetree.Use, _ int) []string {
		return u.Tree.ConcretePaths()
	}))
	slices.Sort(paths)
	return paths
}

func sameUses(a, b []*usetree.Use) bool {
	return slices.EqualFunc(a, b, func(x, y *usetree.Use) bool { return x.Equal(y) })
}

// MergeSource merges and orders every block of consecutive declarations in
// src. Blocks holding comments are left untouched. The input is not modified.
func (e *Engine) MergeSource(ctx context.Context, src []byte) (*FileResult, error) {
	pf, err := parse.Source(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("usemerge: %w", err)
	}

	res := &FileResult{}
	var edits []edit
	for _, b := range pf.Blocks {
		if slices.ContainsFunc(b.Decls, func(d parse.Decl) bool { return d.Commented }) {
			res.Skipped++
			continue
		}
		in := lo.Map(b.Decls, func(d parse.Decl, _ int) *usetree.Use { return d.Use })
		out := merge.MergeBlock(in, e.policy)
		if sameUses(in, out) {
			continue
		}
		if !slices.Equal(concretePaths(in), concretePaths(out)) {
			// Refuse any rewrite that would change what the block imports.
			e.logger.Error("merge changed imported paths, block left as is",
				zap.Uint32("line", b.Decls[0].StartLine))
			continue
		}
		res.Before += len(in)
		res.After += len(out)
		edits = append(edits, edit{
			start: int(b.StartByte()),
			end:   int(b.EndByte()),
			text:  render(out, b.Indent),
		})
	}

	res.Changed = len(edits) > 0
	res.Source = applyEdits(src, edits)
	return res, nil
}

// MergeFile runs MergeSource on the file at path. The file is not written;
// see WriteFile.
func (e *Engine) MergeFile(ctx context.Context, path string) (*FileResult, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("usemerge: read %s: %w", path, err)
	}
	res, err := e.MergeSource(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("usemerge: %s: %w", path, err)
	}
	res.Path = path
	e.logger.Debug("merged",
		zap.String("file", path),
		zap.Bool("changed", res.Changed),
		zap.Int("before", res.Before),
		zap.Int("after", res.After),
		zap.Int("skipped", res.Skipped),
	)
	return res, nil
}

// WriteFile writes a changed result back to disk and re-indexes the file.
func (e *Engine) WriteFile(ctx context.Context, res *FileResult) error {
	if res.Path == "" {
		return fmt.Errorf("usemerge: write: result has no path")
	}
	if !res.Changed {
		return nil
	}
	info, err := os.Stat(res.Path)
	if err != nil {
		return fmt.Errorf("usemerge: write %s: %w", res.Path, err)
	}
	if err := os.WriteFile(res.Path, res.Source, info.Mode().Perm()); err != nil {
		return fmt.Errorf("usemerge: write %s: %w", res.Path, err)
	}
	if _, err := e.indexFile(ctx, res.Path, e.store); err != nil {
		return fmt.Errorf("usemerge: reindex %s: %w", res.Path, err)
	}
	e.logger.Info("wrote", zap.String("file", res.Path))
	return nil
}

// InsertImport adds the declaration text to the file at path. The
// declaration is merged into the first declaration of the file's leading
// block that accepts it, or inserted in sorted position. A file without
// declarations gets it after its leading comments and inner attributes.
// The file is not written; see WriteFile.
func (e *Engine) InsertImport(ctx context.Context, path, text string) (*FileResult, error) {
	u, err := parseUse(text)
	if err != nil {
		return nil, fmt.Errorf("usemerge: insert: %w", err)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("usemerge: read %s: %w", path, err)
	}
	res, err := e.insertSource(ctx, src, u)
	if err != nil {
		return nil, fmt.Errorf("usemerge: %s: %w", path, err)
	}
	res.Path = path
	return res, nil
}

func (e *Engine) insertSource(ctx context.Context, src []byte, u *usetree.Use) (*FileResult, error) {
	pf, err := parse.Source(ctx, src)
	if err != nil {
		return nil, err
	}

	res := &FileResult{}
	var ed edit
	switch b, ok := leadingBlock(pf); {
	case !ok:
		off := headerEnd(src)
		text := u.String() + "\n"
		if off < len(src) && src[off] != '\n' {
			text += "\n"
		}
		ed = edit{start: off, end: off, text: text}
		res.After = 1

	case slices.ContainsFunc(b.Decls, func(d parse.Decl) bool { return d.Commented }):
		// Rewriting would drop the comments; add a separate line instead.
		off := int(b.StartByte())
		ed = edit{start: off, end: off, text: u.String() + "\n" + b.Indent}
		res.Before, res.After = len(b.Decls), len(b.Decls)+1
		res.Skipped = 1

	default:
		in := lo.Map(b.Decls, func(d parse.Decl, _ int) *usetree.Use { return d.Use })
		out, idx := merge.InsertUse(in, u, e.policy)
		if sameUses(in, out) {
			return &FileResult{Source: slices.Clone(src), Index: idx}, nil
		}
		res.Before, res.After, res.Index = len(in), len(out), idx
		ed = edit{start: int(b.StartByte()), end: int(b.EndByte()), text: render(out, b.Indent)}
	}

	res.Changed = true
	res.Source = applyEdits(src, []edit{ed})
	return res, nil
}

// leadingBlock returns the first top-level block, or the first block when
// every block is nested.
func leadingBlock(pf *parse.File) (parse.Block, bool) {
	if len(pf.Blocks) == 0 {
		return parse.Block{}, false
	}
	if b, ok := lo.Find(pf.Blocks, func(b parse.Block) bool { return b.Indent == "" }); ok {
		return b, true
	}
	return pf.Blocks[0], true
}

// headerEnd returns the offset just past the file's leading comment lines,
// inner attributes and blank lines.
func headerEnd(src []byte) int {
	off := 0
	for off < len(src) {
		end := len(src)
		if i := slices.Index(src[off:], '\n'); i >= 0 {
			end = off + i + 1
		}
		line := strings.TrimSpace(string(src[off:end]))
		outerDoc := strings.HasPrefix(line, "///") && !strings.HasPrefix(line, "////")
		header := line == "" || strings.HasPrefix(line, "#!") ||
			(strings.HasPrefix(line, "//") && !outerDoc)
		if !header {
			break
		}
		off = end
	}
	return off
}
