// Package history stores which migrations have run in a table inside the
// target database.
package history

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/alchemy-swift/alchemy-sub004/internal/adapters/database"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/grammar"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/builder"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/domain"
	query "github.com/alchemy-swift/alchemy-sub004/internal/core/query/builder"
)

// DefaultTable is the name of the history table.
const DefaultTable = "_alchemy_migrations"

// Tracker reads and writes the history table. Every method takes the
// Queryer to run on so callers can share a transaction.
type Tracker struct {
	grammar *grammar.Grammar
	table   string
	now     func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithTable overrides the history table name.
func WithTable(name string) Option {
	return func(t *Tracker) { t.table = name }
}

// WithClock overrides the time source used for applied_at and ids.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// NewTracker creates a tracker compiling with g.
func NewTracker(g *grammar.Grammar, opts ...Option) *Tracker {
	t := &Tracker{
		grammar: g,
		table:   DefaultTable,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Table returns the history table name.
func (t *Tracker) Table() string {
	return t.table
}

// EnsureTable creates the history table when it does not exist.
func (t *Tracker) EnsureTable(ctx context.Context, q database.Queryer) error {
	create, err := builder.CreateTableIfNotExists(t.table, func(tb *builder.TableBuilder) {
		tb.String("id", 26).PrimaryKey()
		tb.String("name").NotNull().Unique()
		tb.Int("batch").NotNull()
		tb.String("checksum", 64).NotNull()
		tb.Date("applied_at").NotNull()
	})
	if err != nil {
		return fmt.Errorf("failed to build history table: %w", err)
	}
	stmts, err := t.grammar.CompileSchema(create)
	if err != nil {
		return fmt.Errorf("failed to compile history table: %w", err)
	}
	for _, stmt := range stmts {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create migration table: %w", err)
		}
	}
	return nil
}

// Applied returns every record, oldest batch first.
func (t *Tracker) Applied(ctx context.Context, q database.Queryer) ([]domain.Record, error) {
	stmt, err := query.Table(t.table).
		Select("id", "name", "batch", "checksum", "applied_at").
		OrderBy("batch").
		OrderBy("id").
		Compile(t.grammar)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, stmt)
	if err != nil {
		return nil, fmt.Errorf("failed to query migrations: %w", err)
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var r domain.Record
		if err := rows.Scan(&r.ID, &r.Name, &r.Batch, &r.Checksum, &r.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan migration: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// LastBatch returns the highest batch number, or 0 when nothing ran.
func (t *Tracker) LastBatch(ctx context.Context, q database.Queryer) (int, error) {
	stmt, err := query.Table(t.table).Select("MAX(batch)").Compile(t.grammar)
	if err != nil {
		return 0, err
	}

	rows, err := q.Query(ctx, stmt)
	if err != nil {
		return 0, fmt.Errorf("failed to query last batch: %w", err)
	}
	defer rows.Close()

	var batch sql.NullInt64
	if rows.Next() {
		if err := rows.Scan(&batch); err != nil {
			return 0, fmt.Errorf("failed to scan last batch: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return 0, err
	}
	return int(batch.Int64), nil
}

// Record inserts a history row and returns it with its id and time set.
func (t *Tracker) Record(ctx context.Context, q database.Queryer, name string, batch int, checksum string) (domain.Record, error) {
	now := t.now().UTC().Truncate(time.Second)
	rec := domain.Record{
		ID:        t.newID(now),
		Name:      name,
		Batch:     batch,
		Checksum:  checksum,
		AppliedAt: now,
	}

	stmt, err := query.Table(t.table).Insert(map[string]any{
		"id":         rec.ID,
		"name":       rec.Name,
		"batch":      rec.Batch,
		"checksum":   rec.Checksum,
		"applied_at": rec.AppliedAt,
	}).Compile(t.grammar)
	if err != nil {
		return domain.Record{}, err
	}
	if _, err := q.Exec(ctx, stmt); err != nil {
		return domain.Record{}, fmt.Errorf("failed to record migration %s: %w", name, err)
	}
	return rec, nil
}

// Remove deletes the history row for name.
func (t *Tracker) Remove(ctx context.Context, q database.Queryer, name string) error {
	stmt, err := query.Table(t.table).Where("name", "=", name).Delete().Compile(t.grammar)
	if err != nil {
		return err
	}
	if _, err := q.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("failed to remove migration %s: %w", name, err)
	}
	return nil
}

// Reset drops the history table.
func (t *Tracker) Reset(ctx context.Context, q database.Queryer) error {
	stmts, err := t.grammar.CompileSchema(domain.DropTable{Table: t.table, IfExists: true})
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		if _, err := q.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to drop migration table: %w", err)
		}
	}
	return nil
}

// newID returns a ULID for now. The monotonic entropy source is not safe
// for concurrent use.
func (t *Tracker) newID(now time.Time) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(now), t.entropy).String()
}
