package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/larder/pkg/types"
)

// frameKind tags a transaction frame as the root transaction or a nested
// savepoint.
type frameKind int

const (
	frameRoot frameKind = iota
	frameNested
)

// frame is one entry of the session's transaction stack.
type frame struct {
	kind      frameKind
	savepoint string // empty for the root frame
}

// Session implements types.Gateway on one pooled SQLite connection.
//
// The connection runs in autocommit mode until BeginTx opens the root frame,
// so writes outside any frame commit immediately and writes inside a frame
// commit or roll back with that frame. Frames form a LIFO stack: the root
// frame is a real transaction, every frame above it a savepoint.
//
// A Session is bound to one unit of work and is not safe for concurrent use.
type Session struct {
	conn   *sql.Conn
	frames []frame
	seq    int // savepoint name counter, monotonic per session
	closed bool
}

// BeginTx opens a new transaction frame: a real transaction when the stack
// is empty, a savepoint otherwise.
func (s *Session) BeginTx(ctx context.Context) error {
	if s.closed {
		return types.ErrSessionClosed
	}
	if len(s.frames) == 0 {
		if _, err := s.conn.ExecContext(ctx, "BEGIN"); err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		s.frames = append(s.frames, frame{kind: frameRoot})
		return nil
	}

	s.seq++
	sp := fmt.Sprintf("sp_%d", s.seq)
	if _, err := s.conn.ExecContext(ctx, "SAVEPOINT "+sp); err != nil {
		s.seq--
		return fmt.Errorf("savepoint %s: %w", sp, err)
	}
	s.frames = append(s.frames, frame{kind: frameNested, savepoint: sp})
	return nil
}

// Commit commits strictly the top frame: savepoint release for a nested
// frame, full commit for the root. Frames below are unaffected. With no open
// frame it returns ErrNoTransaction; there is no fallback to a direct
// session commit.
func (s *Session) Commit(ctx context.Context) error {
	if s.closed {
		return types.ErrSessionClosed
	}
	if len(s.frames) == 0 {
		return types.ErrNoTransaction
	}

	top := s.frames[len(s.frames)-1]
	var err error
	if top.kind == frameNested {
		_, err = s.conn.ExecContext(ctx, "RELEASE SAVEPOINT "+top.savepoint)
	} else {
		_, err = s.conn.ExecContext(ctx, "COMMIT")
	}
	if err != nil {
		// The frame stays open; Close will roll it back.
		return fmt.Errorf("commit: %w", err)
	}
	s.frames = s.frames[:len(s.frames)-1]
	return nil
}

// Rollback rolls back strictly the top frame: savepoint rollback for a
// nested frame, full rollback for the root. With no open frame it returns
// ErrNoTransaction.
func (s *Session) Rollback(ctx context.Context) error {
	if s.closed {
		return types.ErrSessionClosed
	}
	if len(s.frames) == 0 {
		return types.ErrNoTransaction
	}

	top := s.frames[len(s.frames)-1]
	s.frames = s.frames[:len(s.frames)-1]

	if top.kind == frameNested {
		if _, err := s.conn.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+top.savepoint); err != nil {
			return fmt.Errorf("rollback to savepoint %s: %w", top.savepoint, err)
		}
		// Rolling back to a savepoint keeps it on the connection; release
		// it so the frame is fully destroyed.
		if _, err := s.conn.ExecContext(ctx, "RELEASE SAVEPOINT "+top.savepoint); err != nil {
			return fmt.Errorf("release savepoint %s: %w", top.savepoint, err)
		}
		return nil
	}
	if _, err := s.conn.ExecContext(ctx, "ROLLBACK"); err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// TxDepth returns the number of open transaction frames.
func (s *Session) TxDepth() int {
	return len(s.frames)
}

// Close rolls back any frames still open and returns the connection to the
// pool, so a session always releases with a consistent transaction state
// however its unit of work terminated. Close is idempotent.
func (s *Session) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true

	var rollbackErr error
	if len(s.frames) > 0 {
		// One full rollback discards the root frame and every savepoint
		// above it.
		_, rollbackErr = s.conn.ExecContext(ctx, "ROLLBACK")
		s.frames = nil
	}
	return errors.Join(rollbackErr, s.conn.Close())
}

var _ types.Gateway = (*Session)(nil)
