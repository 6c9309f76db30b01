package store

// DataStore is the write side used while indexing. Store writes straight to
// SQLite; BatchedStore buffers in memory for the parallel pipeline.
type DataStore interface {
	// PutFile replaces everything stored for f.Path.
	PutFile(f *File, uses []*Use) error
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
