package types

import (
	"errors"
	"fmt"
)

// Gateway and repository operation errors.
var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidID     = errors.New("invalid entity ID")
	ErrSessionClosed = errors.New("session is closed")
	ErrStoreClosed   = errors.New("store is closed")

	// ErrNoTransaction is returned by Commit and Rollback when no
	// transaction frame is open. The frame stack is never bypassed with a
	// direct session commit.
	ErrNoTransaction = errors.New("no open transaction")

	// ErrArgumentCount is returned when the arguments passed to a derived
	// method do not match the compiled query's parameter count.
	ErrArgumentCount = errors.New("argument count does not match query parameters")

	// ErrOperationMismatch is returned when a derived method name compiles
	// to a different operation than the call site expects, e.g. passing a
	// countBy name to Find.
	ErrOperationMismatch = errors.New("derived method operation does not match call")
)

// SyntaxError reports a method name that does not follow the derivation
// grammar. Atom names the offending condition segment when one could be
// isolated.
type SyntaxError struct {
	Method string
	Atom   string
}

func (e *SyntaxError) Error() string {
	if e.Atom != "" {
		return fmt.Sprintf("invalid query method %q: unrecognized condition %q", e.Method, e.Atom)
	}
	return fmt.Sprintf("invalid query method %q", e.Method)
}

// MappingError reports a failure to hydrate a result row into an entity,
// usually a column that the descriptor does not declare or a value of an
// unexpected type.
type MappingError struct {
	Table  string
	Column string
	Err    error
}

func (e *MappingError) Error() string {
	return fmt.Sprintf("mapping column %q of table %q: %v", e.Column, e.Table, e.Err)
}

func (e *MappingError) Unwrap() error {
	return e.Err
}
