// Package databasetest provides an in-memory database.Adapter that records
// the statements it receives.
package databasetest

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"reflect"
	"sync"

	"github.com/alchemy-swift/alchemy-sub004/internal/adapters/database"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
)

// Adapter is a fake database.Adapter. Statements executed outside a
// transaction, or inside one that commits, are appended to Committed.
type Adapter struct {
	// Fail, when set, is consulted before every Exec and Query.
	Fail func(stmt domain.SQL) error
	// Respond returns the rows for a Query.
	Respond func(stmt domain.SQL) ([][]any, error)

	name string

	mu         sync.Mutex
	connected  bool
	committed  []domain.SQL
	rolledBack []domain.SQL
	commits    int
	rollbacks  int
}

// New creates a fake adapter reporting dialect.
func New(dialect string) *Adapter {
	return &Adapter{name: dialect}
}

// Connect marks the adapter connected.
func (a *Adapter) Connect(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = true
	return nil
}

// Disconnect marks the adapter disconnected.
func (a *Adapter) Disconnect(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.connected = false
	return nil
}

// Ping fails unless the adapter is connected.
func (a *Adapter) Ping(context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.connected {
		return database.ErrNotConnected
	}
	return nil
}

// Dialect returns the configured dialect name.
func (a *Adapter) Dialect() string { return a.name }

// Exec records stmt.
func (a *Adapter) Exec(_ context.Context, stmt domain.SQL) (sql.Result, error) {
	if err := a.fail(stmt); err != nil {
		return nil, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.committed = append(a.committed, stmt)
	return driver.RowsAffected(1), nil
}

// Query returns the rows produced by Respond.
func (a *Adapter) Query(_ context.Context, stmt domain.SQL) (database.Rows, error) {
	if err := a.fail(stmt); err != nil {
		return nil, err
	}
	if a.Respond == nil {
		return &Rows{}, nil
	}
	data, err := a.Respond(stmt)
	if err != nil {
		return nil, database.Wrap(stmt.Statement, err, nil)
	}
	return &Rows{data: data}, nil
}

// Begin starts a recording transaction.
func (a *Adapter) Begin(context.Context) (database.Transaction, error) {
	return &Tx{adapter: a}, nil
}

// Committed returns every statement that took effect.
func (a *Adapter) Committed() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return statements(a.committed)
}

// RolledBack returns every statement discarded by a rollback.
func (a *Adapter) RolledBack() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return statements(a.rolledBack)
}

// Commits returns the number of committed transactions.
func (a *Adapter) Commits() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.commits
}

// Rollbacks returns the number of rolled back transactions.
func (a *Adapter) Rollbacks() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rollbacks
}

// Reset forgets recorded statements and counters.
func (a *Adapter) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.committed, a.rolledBack = nil, nil
	a.commits, a.rollbacks = 0, 0
}

func (a *Adapter) fail(stmt domain.SQL) error {
	if a.Fail == nil {
		return nil
	}
	if err := a.Fail(stmt); err != nil {
		return database.Wrap(stmt.Statement, err, nil)
	}
	return nil
}

// Tx buffers statements until Commit or Rollback.
type Tx struct {
	adapter *Adapter
	pending []domain.SQL
	done    bool
}

// Exec buffers stmt.
func (t *Tx) Exec(_ context.Context, stmt domain.SQL) (sql.Result, error) {
	if t.done {
		return nil, sql.ErrTxDone
	}
	if err := t.adapter.fail(stmt); err != nil {
		return nil, err
	}
	t.pending = append(t.pending, stmt)
	return driver.RowsAffected(1), nil
}

// Query delegates to the adapter.
func (t *Tx) Query(ctx context.Context, stmt domain.SQL) (database.Rows, error) {
	if t.done {
		return nil, sql.ErrTxDone
	}
	return t.adapter.Query(ctx, stmt)
}

// Commit publishes the buffered statements.
func (t *Tx) Commit() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.adapter.mu.Lock()
	defer t.adapter.mu.Unlock()
	t.adapter.committed = append(t.adapter.committed, t.pending...)
	t.adapter.commits++
	return nil
}

// Rollback discards the buffered statements.
func (t *Tx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.adapter.mu.Lock()
	defer t.adapter.mu.Unlock()
	t.adapter.rolledBack = append(t.adapter.rolledBack, t.pending...)
	t.adapter.rollbacks++
	return nil
}

// Rows iterates over in-memory rows.
type Rows struct {
	data [][]any
	pos  int
}

// NewRows creates Rows over data.
func NewRows(data ...[]any) *Rows {
	return &Rows{data: data}
}

// Next advances to the next row.
func (r *Rows) Next() bool {
	if r.pos >= len(r.data) {
		return false
	}
	r.pos++
	return true
}

// Scan copies the current row into dest, converting where the types allow.
func (r *Rows) Scan(dest ...any) error {
	if r.pos == 0 || r.pos > len(r.data) {
		return fmt.Errorf("databasetest: Scan called without a current row")
	}
	row := r.data[r.pos-1]
	if len(dest) != len(row) {
		return fmt.Errorf("databasetest: expected %d destinations, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		if s, ok := d.(sql.Scanner); ok {
			if err := s.Scan(row[i]); err != nil {
				return err
			}
			continue
		}
		dv := reflect.ValueOf(d)
		if dv.Kind() != reflect.Pointer || dv.IsNil() {
			return fmt.Errorf("databasetest: destination %d is not a pointer", i)
		}
		if row[i] == nil {
			dv.Elem().SetZero()
			continue
		}
		sv := reflect.ValueOf(row[i])
		if !sv.Type().ConvertibleTo(dv.Elem().Type()) {
			return fmt.Errorf("databasetest: cannot scan %T into %T", row[i], d)
		}
		dv.Elem().Set(sv.Convert(dv.Elem().Type()))
	}
	return nil
}

// Close is a no-op.
func (r *Rows) Close() error { return nil }

// Err always returns nil.
func (r *Rows) Err() error { return nil }

func statements(stmts []domain.SQL) []string {
	out := make([]string, len(stmts))
	for i, s := range stmts {
		out[i] = s.Statement
	}
	return out
}

var (
	_ database.Adapter     = (*Adapter)(nil)
	_ database.Transaction = (*Tx)(nil)
)
