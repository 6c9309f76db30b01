package usemerge

import (
	"github.com/jward/usemerge/internal/merge"
	"github.com/jward/usemerge/internal/store"
)

// Public aliases for internal types used by the Engine and QueryBuilder API.

type Store = store.Store
type File = store.File
type IndexedUse = store.Use

// Policy selects how aggressively declarations are combined.
type Policy = merge.Policy

const (
	One    = merge.One
	Crate  = merge.Crate
	Module = merge.Module
)

// ParsePolicy parses one, crate or module, ignoring case.
func ParsePolicy(s string) (Policy, error) {
	return merge.ParsePolicy(s)
}
