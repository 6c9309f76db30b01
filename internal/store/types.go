package store

import "time"

// File is one indexed source file.
type File struct {
	ID          int64
	Path        string
	Hash        string
	UseCount    int
	Unparsed    int
	LastIndexed time.Time
}

// Use is one stored `use` declaration. Tree holds the canonical rendering of
// the declaration's tree; Text is the source as written.
type Use struct {
	ID         int64
	FileID     int64
	Ordinal    int // position among the file's declarations
	Block      int // index of the block the declaration belongs to
	Text       string
	Tree       string
	Visibility string
	Attrs      []string
	StartLine  int
	EndLine    int
	StartByte  int
	EndByte    int

	// Paths are the concrete import paths the declaration denotes.
	Paths []string
}
