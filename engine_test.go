package usemerge

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestNew_Defaults(t *testing.T) {
	e := newTestEngine(t)

	require.NotNil(t, e.Store())
	require.NotNil(t, e.runtime)
	assert.Equal(t, Crate, e.Policy())
	assert.True(t, e.useParallel)
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/dir/db.sqlite")
	require.Error(t, err)
}

func TestClose(t *testing.T) {
	e, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, e.Close())
}

// --- MergeUses ---

func TestMergeUses(t *testing.T) {
	e := newTestEngine(t)

	got, err := e.MergeUses("use std::collections::HashMap;", "use std::collections::HashSet;")
	require.NoError(t, err)
	assert.Equal(t, "use std::collections::{HashMap, HashSet};", got)

	got, err = e.MergeUses("std::fmt", "std::io")
	require.NoError(t, err)
	assert.Equal(t, "use std::{fmt, io};", got)

	_, err = e.MergeUses("pub use a::b;", "use a::c;")
	assert.ErrorIs(t, err, ErrNotMergeable)

	_, err = e.MergeUses("use a::{b", "use a::c;")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotMergeable)
}

func TestMergeUses_ModulePolicy(t *testing.T) {
	e := newTestEngine(t, WithPolicy(Module))

	_, err := e.MergeUses("use std::collections::HashMap;", "use std::fmt::Display;")
	assert.ErrorIs(t, err, ErrNotMergeable)
}

// --- MergeSource / MergeFile ---

func TestMergeSource_LeavesSeparatedBlocksAlone(t *testing.T) {
	e := newTestEngine(t)

	src := "use std::fmt;\n\nuse std::io;\n"
	res, err := e.MergeSource(context.Background(), []byte(src))
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Equal(t, src, string(res.Source))
}

func TestMergeSource_Counts(t *testing.T) {
	e := newTestEngine(t)

	src := "use a::b;\nuse a::c;\nuse a::d;\n\nuse x::{/* why */ y};\nuse x::z;\n"
	res, err := e.MergeSource(context.Background(), []byte(src))
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, 3, res.Before)
	assert.Equal(t, 1, res.After)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, "use a::{b, c, d};\n\nuse x::{/* why */ y};\nuse x::z;\n", string(res.Source))
}

func TestMergeSource_DoesNotModifyInput(t *testing.T) {
	e := newTestEngine(t)

	src := []byte("use a::b;\nuse a::c;\n")
	orig := string(src)
	_, err := e.MergeSource(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, orig, string(src))
}

func TestMergeFile_WriteAndReindex(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "lib.rs")
	writeFile(t, path, "use std::fmt;\nuse std::io;\n\nfn main() {}\n")
	require.NoError(t, e.IndexFiles(ctx, []string{path}))

	uses, err := e.Query().UsesInFile(path)
	require.NoError(t, err)
	require.Len(t, uses, 2)

	res, err := e.MergeFile(ctx, path)
	require.NoError(t, err)
	require.True(t, res.Changed)
	assert.Equal(t, path, res.Path)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(onDisk), "use std::fmt;\nuse std::io;", "MergeFile does not write")

	require.NoError(t, e.WriteFile(ctx, res))
	onDisk, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "use std::{fmt, io};\n\nfn main() {}\n", string(onDisk))

	uses, err = e.Query().UsesInFile(path)
	require.NoError(t, err)
	require.Len(t, uses, 1)
	assert.Equal(t, "std::{fmt, io}", uses[0].Tree)
	assert.Equal(t, []string{"std::fmt", "std::io"}, uses[0].Paths)
}

func TestMergeFile_Missing(t *testing.T) {
	e := newTestEngine(t)
	_, err := e.MergeFile(context.Background(), filepath.Join(t.TempDir(), "nope.rs"))
	require.Error(t, err)
}

func TestWriteFile_NoPath(t *testing.T) {
	e := newTestEngine(t)
	err := e.WriteFile(context.Background(), &FileResult{Changed: true})
	require.Error(t, err)
}

// --- InsertImport ---

func TestInsertImport(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		src     string
		use     string
		want    string
		changed bool
		index   int
	}{
		{
			name:    "merges into existing",
			policy:  Crate,
			src:     "use crate::a;\nuse std::fmt;\n\nfn main() {}\n",
			use:     "use std::io;",
			want:    "use crate::a;\nuse std::{fmt, io};\n\nfn main() {}\n",
			changed: true,
			index:   1,
		},
		{
			name:    "sorted position",
			policy:  Module,
			src:     "use crate::a;\nuse std::fmt;\n",
			use:     "log::info",
			want:    "use crate::a;\nuse log::info;\nuse std::fmt;\n",
			changed: true,
			index:   1,
		},
		{
			name:    "already imported",
			policy:  Crate,
			src:     "use std::fmt;\n",
			use:     "use std::fmt;",
			want:    "use std::fmt;\n",
			changed: false,
		},
		{
			name:    "after inner docs",
			policy:  Crate,
			src:     "//! Crate docs\n\nfn main() {}\n",
			use:     "use std::fmt;",
			want:    "//! Crate docs\n\nuse std::fmt;\n\nfn main() {}\n",
			changed: true,
		},
		{
			name:    "before outer docs",
			policy:  Crate,
			src:     "/// Entry point.\nfn main() {}\n",
			use:     "use std::fmt;",
			want:    "use std::fmt;\n\n/// Entry point.\nfn main() {}\n",
			changed: true,
		},
		{
			name:    "empty file",
			policy:  Crate,
			src:     "",
			use:     "use std::fmt;",
			want:    "use std::fmt;\n",
			changed: true,
		},
		{
			name:    "commented block gets its own line",
			policy:  Crate,
			src:     "use std::{fmt, /* x */ io};\n",
			use:     "use std::fs;",
			want:    "use std::fs;\nuse std::{fmt, /* x */ io};\n",
			changed: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t, WithPolicy(tt.policy))
			path := filepath.Join(t.TempDir(), "main.rs")
			writeFile(t, path, tt.src)

			res, err := e.InsertImport(context.Background(), path, tt.use)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(res.Source))
			assert.Equal(t, tt.changed, res.Changed)
			assert.Equal(t, tt.index, res.Index)
		})
	}
}

func TestInsertImport_BadDeclaration(t *testing.T) {
	e := newTestEngine(t)
	path := filepath.Join(t.TempDir(), "main.rs")
	writeFile(t, path, "use a::b;\n")

	_, err := e.InsertImport(context.Background(), path, "use a::{")
	require.Error(t, err)
}

// --- Indexing ---

func TestIndexFiles_SkipsNonRust(t *testing.T) {
	for _, parallel := range []bool{true, false} {
		e := newTestEngine(t, WithParallel(parallel))
		dir := t.TempDir()
		txt := filepath.Join(dir, "readme.txt")
		writeFile(t, txt, "use a::b;\n")

		require.NoError(t, e.IndexFiles(context.Background(), []string{txt}))
		files, err := e.Query().Files()
		require.NoError(t, err)
		assert.Empty(t, files)
	}
}

func TestIndexFiles_RecordsDeclarations(t *testing.T) {
	for _, parallel := range []bool{true, false} {
		e := newTestEngine(t, WithParallel(parallel), WithWorkers(2))
		ctx := context.Background()
		dir := t.TempDir()
		a := filepath.Join(dir, "a.rs")
		b := filepath.Join(dir, "b.rs")
		writeFile(t, a, "use std::fmt;\nuse std::io::{self, Read};\n\nmod m {\n    pub use super::Thing as Other;\n}\n")
		writeFile(t, b, "use std::fmt::Display;\n")

		require.NoError(t, e.IndexFiles(ctx, []string{a, b}))

		files, err := e.Query().Files()
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, a, files[0].Path)
		assert.Equal(t, 3, files[0].UseCount)
		assert.Len(t, files[0].Hash, 16)

		uses, err := e.Query().UsesInFile(a)
		require.NoError(t, err)
		require.Len(t, uses, 3)
		assert.Equal(t, 0, uses[0].Block)
		assert.Equal(t, 1, uses[2].Block)
		assert.Equal(t, "pub", uses[2].Visibility)
		assert.Equal(t, []string{"super::Thing as Other"}, uses[2].Paths)

		importers, err := e.Query().FilesImporting("std::fmt")
		require.NoError(t, err)
		assert.Len(t, importers, 2)

		paths, err := e.Query().ImportedPaths(a)
		require.NoError(t, err)
		assert.Equal(t, []string{"std::fmt", "std::io", "std::io::Read", "super::Thing as Other"}, paths)
	}
}

func TestIndexFiles_SkipsUnchanged(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := newTestEngine(t, WithLogger(zap.New(core)), WithParallel(false))
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "lib.rs")
	writeFile(t, path, "use a::b;\n")
	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	assert.Equal(t, 1, logs.FilterMessage("unchanged").Len())

	writeFile(t, path, "use a::b;\nuse a::c;\n")
	require.NoError(t, e.IndexFiles(ctx, []string{path}))
	uses, err := e.Query().UsesInFile(path)
	require.NoError(t, err)
	assert.Len(t, uses, 2)
}

func TestIndexFiles_CollectsErrors(t *testing.T) {
	for _, parallel := range []bool{true, false} {
		e := newTestEngine(t, WithParallel(parallel))
		dir := t.TempDir()
		good := filepath.Join(dir, "good.rs")
		writeFile(t, good, "use a::b;\n")
		missing1 := filepath.Join(dir, "missing1.rs")
		missing2 := filepath.Join(dir, "missing2.rs")

		err := e.IndexFiles(context.Background(), []string{missing1, good, missing2})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing1.rs")
		assert.Contains(t, err.Error(), "missing2.rs")

		files, ferr := e.Query().Files()
		require.NoError(t, ferr)
		require.Len(t, files, 1, "good file still indexed")
	}
}

func TestIndexDirectory(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "src", "lib.rs"), "use std::fmt;\n")
	writeFile(t, filepath.Join(root, "src", "util.rs"), "use std::io;\n")
	writeFile(t, filepath.Join(root, "target", "debug", "gen.rs"), "use gen::x;\n")
	writeFile(t, filepath.Join(root, ".cache", "x.rs"), "use hidden::x;\n")
	writeFile(t, filepath.Join(root, "README.md"), "# crate\n")

	require.NoError(t, e.IndexDirectory(ctx, root))
	files, err := e.Query().Files()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, filepath.Join(root, "src", "lib.rs"), files[0].Path)

	require.NoError(t, os.Remove(filepath.Join(root, "src", "util.rs")))
	require.NoError(t, e.IndexDirectory(ctx, root))
	files, err = e.Query().Files()
	require.NoError(t, err)
	require.Len(t, files, 1, "deleted file is pruned")
}

func TestIndexDirectory_PrunesFilesIndexedByRelativePath(t *testing.T) {
	e := newTestEngine(t, WithParallel(false))
	ctx := context.Background()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "lib.rs"), "use std::fmt;\n")
	t.Chdir(root)

	require.NoError(t, e.IndexFiles(ctx, []string{"lib.rs"}))
	files, err := e.Query().Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.True(t, filepath.IsAbs(files[0].Path), "stored path %q", files[0].Path)

	uses, err := e.Query().UsesInFile("lib.rs")
	require.NoError(t, err)
	assert.Len(t, uses, 1)

	require.NoError(t, os.Remove(filepath.Join(root, "lib.rs")))
	require.NoError(t, e.IndexDirectory(ctx, root))
	files, err = e.Query().Files()
	require.NoError(t, err)
	assert.Empty(t, files)
}

// --- Query ---

func TestQuery_MergeCandidates(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lib.rs")
	writeFile(t, path, "use std::fmt;\n\nuse crate::a;\n\nuse std::io;\n")
	require.NoError(t, e.IndexFiles(ctx, []string{path}))

	cands, err := e.Query().MergeCandidates(path)
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "use std::fmt;", cands[0].A.Text)
	assert.Equal(t, "use std::io;", cands[0].B.Text)
	assert.Equal(t, "use std::{fmt, io};", cands[0].Merged)

	none, err := e.Query().MergeCandidates(filepath.Join(t.TempDir(), "unindexed.rs"))
	require.NoError(t, err)
	assert.Empty(t, none)
}

// --- Scripts ---

func TestRunSource_SeesIndex(t *testing.T) {
	e := newTestEngine(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "lib.rs")
	writeFile(t, path, "use std::fmt;\n")
	require.NoError(t, e.IndexFiles(ctx, []string{path}))

	script := `
got := files()
assert(len(got) == 1, "one indexed file")
assert(try_merge("use std::fmt;", "use std::io;") == "use std::{fmt, io};", "merge")
`
	require.NoError(t, e.RunSource(ctx, script, nil))
}

func TestRunScript_FromFS(t *testing.T) {
	fsys := fstest.MapFS{
		"check.risor": &fstest.MapFile{Data: []byte(`
out := merge_block(["use a::b;", "use a::c;"])
assert(len(out) == 1, "merged to one")
assert(policy == "module", "engine policy reaches scripts")
`)},
	}
	e := newTestEngine(t, WithScriptsFS(fsys), WithPolicy(Module))

	require.NoError(t, e.RunScript(context.Background(), "check.risor", nil))
}
