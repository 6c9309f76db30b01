package store

import (
	"database/sql"
	"fmt"
)

// CommitBatch writes every file buffered in batch within a single
// transaction. Each file's previous declarations are replaced.
func (s *Store) CommitBatch(batch *BatchedStore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	for _, e := range batch.Entries() {
		if err := putFileTx(tx, e.File, e.Uses); err != nil {
			return fmt.Errorf("commit batch: file %s: %w", e.File.Path, err)
		}
	}
	return tx.Commit()
}

// --- Transaction-scoped helpers ---

func putFileTx(tx *sql.Tx, f *File, uses []*Use) error {
	f.UseCount = len(uses)
	id, err := upsertFileTx(tx, f)
	if err != nil {
		return err
	}
	if err := deleteFileDataTx(tx, id); err != nil {
		return err
	}
	for _, u := range uses {
		u.FileID = id
		if _, err := insertUseTx(tx, u); err != nil {
			return err
		}
	}
	return nil
}

func upsertFileTx(tx *sql.Tx, f *File) (int64, error) {
	_, err := tx.Exec(
		`INSERT INTO files (path, hash, use_count, unparsed, last_indexed) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(path) DO UPDATE SET
		   hash = excluded.hash,
		   use_count = excluded.use_count,
		   unparsed = excluded.unparsed,
		   last_indexed = excluded.last_indexed`,
		f.Path, f.Hash, f.UseCount, f.Unparsed, f.LastIndexed,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert file: %w", err)
	}
	if err := tx.QueryRow("SELECT id FROM files WHERE path = ?", f.Path).Scan(&f.ID); err != nil {
		return 0, fmt.Errorf("upsert file: id: %w", err)
	}
	return f.ID, nil
}

func insertUseTx(tx *sql.Tx, u *Use) (int64, error) {
	res, err := tx.Exec(
		`INSERT INTO uses (file_id, ordinal, block, text, tree, visibility, attrs, start_line, end_line, start_byte, end_byte)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.FileID, u.Ordinal, u.Block, u.Text, u.Tree, u.Visibility, marshalAttrs(u.Attrs),
		u.StartLine, u.EndLine, u.StartByte, u.EndByte,
	)
	if err != nil {
		return 0, fmt.Errorf("insert use: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	u.ID = id

	for _, p := range u.Paths {
		if _, err := tx.Exec("INSERT INTO use_paths (use_id, file_id, path) VALUES (?, ?, ?)", id, u.FileID, p); err != nil {
			return 0, fmt.Errorf("insert use path %q: %w", p, err)
		}
	}
	return id, nil
}
