package types

import "context"

// Store is a backing database. It creates schema from descriptors and hands
// out sessions. A Store is safe for concurrent use; the sessions it returns
// are not.
type Store interface {
	// Session acquires a connection-backed gateway for one unit of work.
	// The caller owns the session and must Close it.
	Session(ctx context.Context) (Gateway, error)

	// CreateTables generates and executes CREATE TABLE IF NOT EXISTS
	// statements for the given descriptors.
	CreateTables(ctx context.Context, descs ...EntityDescriptor) error

	// Close releases the underlying connection pool.
	Close() error
}

// Transactor is the nested-transaction capability of a session. Frames form
// a LIFO stack: the first BeginTx opens a real transaction, every further
// BeginTx opens a savepoint. Commit and Rollback act on the top frame only
// and return ErrNoTransaction when the stack is empty.
type Transactor interface {
	BeginTx(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	// TxDepth returns the number of open transaction frames.
	TxDepth() int
}

// Gateway is the persistence capability set bound to one backend session.
// It covers row-level CRUD, raw parameterized query execution, and
// transaction primitives.
//
// A Gateway is bound to exactly one logical unit of work. It holds shared
// mutable transaction state with no internal locking, so it must not be
// used from multiple goroutines concurrently.
//
// Write operations commit immediately only while no transaction frame is
// open; inside a frame they ride the frame's scope.
type Gateway interface {
	Transactor

	// Save inserts a new row, assigning a generated identity when the
	// primary key is absent, and returns the stored row re-read from the
	// database.
	Save(ctx context.Context, desc EntityDescriptor, row Row) (Row, error)

	// FindByID returns the row with the given primary key, or ErrNotFound.
	FindByID(ctx context.Context, desc EntityDescriptor, id any) (Row, error)

	// FindAll returns every row of the table.
	FindAll(ctx context.Context, desc EntityDescriptor) ([]Row, error)

	// Update writes the row identified by its primary key, reconciling a
	// detached row by inserting it when no stored row matches. Returns the
	// stored row re-read from the database.
	Update(ctx context.Context, desc EntityDescriptor, row Row) (Row, error)

	// Delete removes the row with the given primary key, or ErrNotFound.
	Delete(ctx context.Context, desc EntityDescriptor, id any) error

	// Exists reports whether a row with the given primary key exists.
	Exists(ctx context.Context, desc EntityDescriptor, id any) (bool, error)

	// Count returns the number of rows in the table.
	Count(ctx context.Context, desc EntityDescriptor) (int64, error)

	// ExecuteQuery runs a compiled derived query. Result rows are hydrated
	// by column name against the descriptor.
	ExecuteQuery(ctx context.Context, q CompiledQuery, desc EntityDescriptor, args []any) (QueryResult, error)

	// Close rolls back any open transaction frames and returns the
	// connection to the pool. Close is idempotent.
	Close(ctx context.Context) error
}
