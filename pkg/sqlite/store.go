// Package sqlite provides the public API for the SQLite Larder backend.
// It exposes the factory function for opening stores while keeping the
// implementation internal.
package sqlite

import (
	"github.com/mesh-intelligence/larder/internal/sqlite"
	"github.com/mesh-intelligence/larder/pkg/types"
)

// Open opens a SQLite store with the given configuration.
//
// Example:
//
//	store, err := sqlite.Open(types.Config{Path: "app.db"})
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
func Open(cfg types.Config) (types.Store, error) {
	return sqlite.Open(cfg)
}
