package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate())
	t.Cleanup(func() { s.Close() })
	return s
}

func testFile(path string) *File {
	return &File{Path: path, Hash: "abc123", LastIndexed: time.Now().Truncate(time.Second)}
}

func testUse(ordinal int, tree string, paths ...string) *Use {
	return &Use{
		Ordinal:   ordinal,
		Text:      "use " + tree + ";",
		Tree:      tree,
		StartLine: ordinal + 1,
		EndLine:   ordinal + 1,
		Paths:     paths,
	}
}

func TestMigrate_TablesExist(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, table := range []string{"files", "uses", "use_paths"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)
	require.NoError(t, s.Migrate())
}

func TestFileByPath_NotFound(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f, err := s.FileByPath("/missing.rs")
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestInsertFile_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f := testFile("/src/lib.rs")
	id, err := s.InsertFile(f)
	require.NoError(t, err)
	require.Positive(t, id)

	got, err := s.FileByPath("/src/lib.rs")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "abc123", got.Hash)
	assert.True(t, f.LastIndexed.Equal(got.LastIndexed))
}

func TestPutFile_ReplacesPreviousData(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f := testFile("/src/lib.rs")
	require.NoError(t, s.PutFile(f, []*Use{
		testUse(0, "std::fmt", "std::fmt"),
		testUse(1, "std::io::{self, Read}", "std::io", "std::io::Read"),
	}))
	firstID := f.ID

	uses, err := s.UsesByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, uses, 2)
	assert.Equal(t, "std::fmt", uses[0].Tree)
	assert.Equal(t, []string{"std::io", "std::io::Read"}, uses[1].Paths)

	f2 := testFile("/src/lib.rs")
	f2.Hash = "def456"
	require.NoError(t, s.PutFile(f2, []*Use{testUse(0, "std::{fmt, io}", "std::fmt", "std::io")}))
	assert.Equal(t, firstID, f2.ID, "file row is reused")

	uses, err = s.UsesByFile(f2.ID)
	require.NoError(t, err)
	require.Len(t, uses, 1)
	assert.Equal(t, "std::{fmt, io}", uses[0].Tree)

	got, err := s.FileByPath("/src/lib.rs")
	require.NoError(t, err)
	assert.Equal(t, "def456", got.Hash)
	assert.Equal(t, 1, got.UseCount)

	n, err := s.CountUses()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestUsesByFile_Attributes(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	u := testUse(0, "a::b", "a::b")
	u.Attrs = []string{"#[cfg(test)]", "#[allow(unused)]"}
	u.Visibility = "pub(crate)"
	f := testFile("/a.rs")
	require.NoError(t, s.PutFile(f, []*Use{u}))

	uses, err := s.UsesByFile(f.ID)
	require.NoError(t, err)
	require.Len(t, uses, 1)
	assert.Equal(t, []string{"#[cfg(test)]", "#[allow(unused)]"}, uses[0].Attrs)
	assert.Equal(t, "pub(crate)", uses[0].Visibility)
}

func TestUsesByFile_Empty(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f := testFile("/empty.rs")
	require.NoError(t, s.PutFile(f, nil))
	uses, err := s.UsesByFile(f.ID)
	require.NoError(t, err)
	assert.Empty(t, uses)
}

func TestFilesImporting(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	require.NoError(t, s.PutFile(testFile("/a.rs"), []*Use{testUse(0, "std::fmt", "std::fmt")}))
	require.NoError(t, s.PutFile(testFile("/b.rs"), []*Use{testUse(0, "std::fmt::Display", "std::fmt::Display")}))
	require.NoError(t, s.PutFile(testFile("/c.rs"), []*Use{testUse(0, "std::fmtx", "std::fmtx")}))
	require.NoError(t, s.PutFile(testFile("/d.rs"), []*Use{testUse(0, "Std::fmt::Write", "Std::fmt::Write")}))

	files, err := s.FilesImporting("std::fmt")
	require.NoError(t, err)
	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"/a.rs", "/b.rs"}, paths, "matching is exact and case-sensitive")

	files, err = s.FilesImporting("std::fmt::Display")
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "/b.rs", files[0].Path)
}

func TestDeleteFile(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f := testFile("/a.rs")
	require.NoError(t, s.PutFile(f, []*Use{testUse(0, "a::b", "a::b")}))
	require.NoError(t, s.DeleteFile(f.ID))

	got, err := s.FileByPath("/a.rs")
	require.NoError(t, err)
	assert.Nil(t, got)
	n, err := s.CountUses()
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteFileData_KeepsFileRow(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	f := testFile("/a.rs")
	require.NoError(t, s.PutFile(f, []*Use{testUse(0, "a::b", "a::b")}))
	require.NoError(t, s.DeleteFileData(f.ID))

	got, err := s.FileByPath("/a.rs")
	require.NoError(t, err)
	require.NotNil(t, got)
	uses, err := s.UsesByFile(f.ID)
	require.NoError(t, err)
	assert.Empty(t, uses)
}

func TestFiles_Ordered(t *testing.T) {
	t.Parallel()
	s := newTestStore(t)

	for _, p := range []string{"/z.rs", "/a.rs", "/m.rs"} {
		require.NoError(t, s.PutFile(testFile(p), nil))
	}
	files, err := s.Files()
	require.NoError(t, err)
	require.Len(t, files, 3)
	assert.Equal(t, "/a.rs", files[0].Path)
	assert.Equal(t, "/z.rs", files[2].Path)
}

func TestContentHash(t *testing.T) {
	t.Parallel()

	a, err := ContentHash([]byte("use std::fmt;"))
	require.NoError(t, err)
	b, err := ContentHash([]byte("use std::fmt;"))
	require.NoError(t, err)
	c, err := ContentHash([]byte("use std::io;"))
	require.NoError(t, err)

	assert.Len(t, a, 16)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
