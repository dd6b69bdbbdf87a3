// Package sqlite implements the Larder persistence gateway on SQLite.
// A Store owns the connection pool and DDL generation; each unit of work
// checks out a Session, which carries the transaction frame stack.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// Store is the SQLite implementation of types.Store.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	cfg    types.Config
	closed bool
}

// Open validates the configuration and opens the database.
func Open(cfg types.Config) (*Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", buildDSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.InMemory {
		// A shared in-memory database disappears when its last connection
		// closes; a single pooled connection keeps it alive and stable.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	return &Store{db: db, cfg: cfg}, nil
}

// buildDSN renders the connection string with pragma parameters.
func buildDSN(cfg types.Config) string {
	v := url.Values{}
	if cfg.BusyTimeoutMS > 0 {
		v.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeoutMS))
	}
	if cfg.ForeignKeys {
		v.Add("_pragma", "foreign_keys(1)")
	}

	base := "file:" + cfg.Path
	if cfg.InMemory {
		base = "file:larder"
		v.Set("mode", "memory")
		v.Set("cache", "shared")
	}
	if enc := v.Encode(); enc != "" {
		return base + "?" + enc
	}
	return base
}

// Session checks a connection out of the pool and returns a gateway bound
// to it. The session must be closed when the unit of work ends.
func (s *Store) Session(ctx context.Context) (types.Gateway, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, types.ErrStoreClosed
	}
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}
	return &Session{conn: conn}, nil
}

// CreateTables generates and executes CREATE TABLE IF NOT EXISTS statements
// for the given descriptors, in order.
func (s *Store) CreateTables(ctx context.Context, descs ...types.EntityDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return types.ErrStoreClosed
	}
	for _, desc := range descs {
		ddl, err := createTableSQL(desc)
		if err != nil {
			return err
		}
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("create table %s: %w", desc.TableName, err)
		}
	}
	return nil
}

// Close releases the connection pool. Close is idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

var _ types.Store = (*Store)(nil)
