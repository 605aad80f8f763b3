package benchmark

import (
	"context"
	"database/sql"
	"fmt"
)

// Isolator resets shared caching state in the backing store so every trial
// starts from a comparable condition.
type Isolator interface {
	Isolate(ctx context.Context) error
}

// IsolatorFunc adapts a function to the Isolator interface.
type IsolatorFunc func(ctx context.Context) error

// Isolate calls f(ctx).
func (f IsolatorFunc) Isolate(ctx context.Context) error {
	return f(ctx)
}

// NoopIsolator performs no reset. Use it for stores without cache controls
// or in tests.
type NoopIsolator struct{}

// Isolate does nothing.
func (NoopIsolator) Isolate(context.Context) error { return nil }

// SQLIsolator runs administrative statements on a dedicated handle, for
// example "DBCC FREEPROCCACHE" and "DBCC DROPCLEANBUFFERS" on SQL Server or
// "DISCARD ALL" on PostgreSQL.
type SQLIsolator struct {
	DB         *sql.DB
	Statements []string
}

// Isolate executes each statement in order and stops at the first failure.
func (s SQLIsolator) Isolate(ctx context.Context) error {
	if s.DB == nil {
		return fmt.Errorf("isolation handle is nil")
	}
	for _, stmt := range s.Statements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}
