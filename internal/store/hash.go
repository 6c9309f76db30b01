package store

import (
	"fmt"

	"github.com/minio/highwayhash"
)

var hashKey = []byte("usemerge-index-content-hash-key!")

// ContentHash returns a hex digest of a file's bytes, used to skip files that
// have not changed since they were last indexed.
func ContentHash(data []byte) (string, error) {
	h, err := highwayhash.New64(hashKey)
	if err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	if _, err := h.Write(data); err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
