package usemerge

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/samber/lo"

	"github.com/jward/usemerge/internal/merge"
	"github.com/jward/usemerge/internal/store"
	"github.com/jward/usemerge/internal/usetree"
)

// QueryBuilder provides read access to the declaration index.
type QueryBuilder struct {
	store  *store.Store
	policy merge.Policy
}

// Candidate is a pair of indexed declarations of one file that would merge.
type Candidate struct {
	A      *IndexedUse `json:"a" yaml:"a"`
	B      *IndexedUse `json:"b" yaml:"b"`
	Merged string      `json:"merged" yaml:"merged"`
}

// Files returns every indexed file ordered by path.
func (q *QueryBuilder) Files() ([]*File, error) {
	files, err := q.store.Files()
	if err != nil {
		return nil, fmt.Errorf("files: %w", err)
	}
	return files, nil
}

// UsesInFile returns the declarations of the file at path in source order.
// An unindexed file has none.
func (q *QueryBuilder) UsesInFile(path string) ([]*IndexedUse, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("uses in file: %w", err)
	}
	f, err := q.store.FileByPath(path)
	if err != nil {
		return nil, fmt.Errorf("uses in file: lookup file: %w", err)
	}
	if f == nil {
		return nil, nil
	}
	uses, err := q.store.UsesByFile(f.ID)
	if err != nil {
		return nil, fmt.Errorf("uses in file: %w", err)
	}
	return uses, nil
}

// FilesImporting returns the files importing prefix or anything below it.
// `std::fmt` matches `std::fmt` and `std::fmt::Display` but not `std::fmtx`.
func (q *QueryBuilder) FilesImporting(prefix string) ([]*File, error) {
	files, err := q.store.FilesImporting(prefix)
	if err != nil {
		return nil, fmt.Errorf("files importing: %w", err)
	}
	return files, nil
}

// MergeCandidates returns every pair of declarations in the file at path
// that would merge under the query's policy, in source order.
func (q *QueryBuilder) MergeCandidates(path string) ([]Candidate, error) {
	uses, err := q.UsesInFile(path)
	if err != nil {
		return nil, fmt.Errorf("merge candidates: %w", err)
	}

	type parsed struct {
		row *IndexedUse
		use *usetree.Use
	}
	var decls []parsed
	for _, u := range uses {
		pu, err := usetree.ParseUse(u.Text)
		if err != nil {
			// Indexed text always parsed once; a failure means the row is stale.
			return nil, fmt.Errorf("merge candidates: declaration %d: %w", u.ID, err)
		}
		decls = append(decls, parsed{row: u, use: pu})
	}

	var out []Candidate
	for i, a := range decls {
		for _, b := range decls[i+1:] {
			merged, ok := merge.TryMergeImports(a.use, b.use, q.policy)
			if !ok {
				continue
			}
			out = append(out, Candidate{A: a.row, B: b.row, Merged: merged.String()})
		}
	}
	return out, nil
}

// ImportedPaths returns the sorted set of concrete paths the file at path imports.
func (q *QueryBuilder) ImportedPaths(path string) ([]string, error) {
	uses, err := q.UsesInFile(path)
	if err != nil {
		return nil, fmt.Errorf("imported paths: %w", err)
	}
	paths := lo.Uniq(lo.FlatMap(uses, func(u *IndexedUse, _ int) []string { return u.Paths }))
	slices.Sort(paths)
	return paths, nil
}
