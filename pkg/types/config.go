package types

import "errors"

// Config holds connection parameters for opening a store.
type Config struct {
	// Path is the database file path. Ignored when InMemory is set.
	Path string `json:"path" yaml:"path"`

	// InMemory opens a shared in-memory database instead of a file.
	InMemory bool `json:"in_memory" yaml:"in_memory"`

	// BusyTimeoutMS is the SQLite busy timeout in milliseconds.
	// Zero selects the backend default.
	BusyTimeoutMS int `json:"busy_timeout_ms" yaml:"busy_timeout_ms"`

	// MaxOpenConns caps the connection pool. Zero means unlimited.
	MaxOpenConns int `json:"max_open_conns" yaml:"max_open_conns"`

	// ForeignKeys enables foreign key enforcement.
	ForeignKeys bool `json:"foreign_keys" yaml:"foreign_keys"`
}

// Config validation errors.
var (
	ErrPathEmpty           = errors.New("database path must not be empty")
	ErrBusyTimeoutInvalid  = errors.New("busy timeout must not be negative")
	ErrMaxOpenConnsInvalid = errors.New("max open connections must not be negative")
)

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if !c.InMemory && c.Path == "" {
		return ErrPathEmpty
	}
	if c.BusyTimeoutMS < 0 {
		return ErrBusyTimeoutInvalid
	}
	if c.MaxOpenConns < 0 {
		return ErrMaxOpenConnsInvalid
	}
	return nil
}
