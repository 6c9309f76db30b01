package store

import (
	"database/sql"
	"fmt"
)

// --- File operations ---

func (s *Store) InsertFile(f *File) (int64, error) {
	res, err := s.db.Exec(
		"INSERT INTO files (path, hash, use_count, unparsed, last_indexed) VALUES (?, ?, ?, ?, ?)",
		f.Path, f.Hash, f.UseCount, f.Unparsed, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("insert file: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	return id, nil
}

const fileColumns = "id, path, hash, use_count, unparsed, last_indexed"

func scanFile(scanner interface{ Scan(...any) error }) (*File, error) {
	f := &File{}
	var hash sql.NullString
	var lastIndexed sql.NullTime
	if err := scanner.Scan(&f.ID, &f.Path, &hash, &f.UseCount, &f.Unparsed, &lastIndexed); err != nil {
		return nil, err
	}
	f.Hash = hash.String
	f.LastIndexed = lastIndexed.Time
	return f, nil
}

// FileByPath returns nil, nil when the file is not indexed.
func (s *Store) FileByPath(path string) (*File, error) {
	f, err := scanFile(s.db.QueryRow("SELECT "+fileColumns+" FROM files WHERE path = ?", path))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("file by path: %w", err)
	}
	return f, nil
}

func (s *Store) queryFiles(query string, args ...any) ([]*File, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()
	var files []*File
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

// Files returns every indexed file ordered by path.
func (s *Store) Files() ([]*File, error) {
	return s.queryFiles("SELECT " + fileColumns + " FROM files ORDER BY path")
}

// FilesImporting returns files holding a declaration that imports prefix
// itself or anything below it.
func (s *Store) FilesImporting(prefix string) ([]*File, error) {
	return s.queryFiles(
		`SELECT `+fileColumns+` FROM files WHERE id IN (
		   SELECT file_id FROM use_paths WHERE path = ?1 OR substr(path, 1, length(?2)) = ?2
		 ) ORDER BY path`,
		prefix, prefix+"::",
	)
}

// --- Use operations ---

// PutFile replaces everything stored for f.Path with the given declarations.
func (s *Store) PutFile(f *File, uses []*Use) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("put file: begin: %w", err)
	}
	defer tx.Rollback()

	if err := putFileTx(tx, f, uses); err != nil {
		return fmt.Errorf("put file %s: %w", f.Path, err)
	}
	return tx.Commit()
}

// InsertUse inserts one declaration and its concrete paths.
func (s *Store) InsertUse(u *Use) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("insert use: begin: %w", err)
	}
	defer tx.Rollback()

	id, err := insertUseTx(tx, u)
	if err != nil {
		return 0, err
	}
	return id, tx.Commit()
}

const useColumns = "id, file_id, ordinal, block, text, tree, visibility, attrs, start_line, end_line, start_byte, end_byte"

func scanUse(scanner interface{ Scan(...any) error }) (*Use, error) {
	u := &Use{}
	var vis, attrs sql.NullString
	if err := scanner.Scan(&u.ID, &u.FileID, &u.Ordinal, &u.Block, &u.Text, &u.Tree, &vis, &attrs,
		&u.StartLine, &u.EndLine, &u.StartByte, &u.EndByte); err != nil {
		return nil, err
	}
	u.Visibility = vis.String
	u.Attrs = unmarshalAttrs(attrs.String)
	return u, nil
}

// UsesByFile returns a file's declarations in source order, with Paths set.
func (s *Store) UsesByFile(fileID int64) ([]*Use, error) {
	rows, err := s.db.Query("SELECT "+useColumns+" FROM uses WHERE file_id = ? ORDER BY ordinal", fileID)
	if err != nil {
		return nil, fmt.Errorf("uses by file: %w", err)
	}
	defer rows.Close()

	var uses []*Use
	byID := make(map[int64]*Use)
	for rows.Next() {
		u, err := scanUse(rows)
		if err != nil {
			return nil, fmt.Errorf("scan use: %w", err)
		}
		uses = append(uses, u)
		byID[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(uses) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(uses))
	for i, u := range uses {
		ids[i] = u.ID
	}
	pathRows, err := s.db.Query(
		"SELECT use_id, path FROM use_paths WHERE use_id IN ("+placeholderList(len(ids))+") ORDER BY id",
		int64sToArgs(ids)...,
	)
	if err != nil {
		return nil, fmt.Errorf("use paths: %w", err)
	}
	defer pathRows.Close()
	for pathRows.Next() {
		var id int64
		var p string
		if err := pathRows.Scan(&id, &p); err != nil {
			return nil, fmt.Errorf("scan use path: %w", err)
		}
		if u := byID[id]; u != nil {
			u.Paths = append(u.Paths, p)
		}
	}
	return uses, pathRows.Err()
}

// CountUses returns the number of stored declarations.
func (s *Store) CountUses() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM uses").Scan(&n); err != nil {
		return 0, fmt.Errorf("count uses: %w", err)
	}
	return n, nil
}
