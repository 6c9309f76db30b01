package store

import "sync"

// BatchedStore buffers per-file index data in memory so parse workers never
// touch SQLite. A single goroutine later writes it with Store.CommitBatch.
//
// Thread safety: the mutex protects the entry slice. Entries are returned in
// the order PutFile was called.
type BatchedStore struct {
	mu      sync.Mutex
	entries []BatchEntry
}

// BatchEntry is one buffered file.
type BatchEntry struct {
	File *File
	Uses []*Use
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates an empty BatchedStore.
func NewBatchedStore() *BatchedStore {
	return &BatchedStore{}
}

func (b *BatchedStore) PutFile(f *File, uses []*Use) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, BatchEntry{File: f, Uses: uses})
	return nil
}

// Len returns the number of buffered files.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Entries returns a snapshot of the buffered files.
func (b *BatchedStore) Entries() []BatchEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]BatchEntry, len(b.entries))
	copy(out, b.entries)
	return out
}
