// Package executor applies and rolls back migrations against a database.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alchemy-swift/alchemy-sub004/internal/adapters/database"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/domain"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/history"
	"github.com/alchemy-swift/alchemy-sub004/internal/core/migration/planner"
	"github.com/alchemy-swift/alchemy-sub004/internal/debug"
)

// ErrUnknownMigration is returned when the history names a migration that
// is no longer available.
var ErrUnknownMigration = errors.New("migration not found")

// StatementError reports which statement of a migration failed.
type StatementError struct {
	Migration string
	// Index is the zero-based position of the statement in the plan.
	Index     int
	Statement string
	Err       error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("migration %s: statement %d failed: %v", e.Migration, e.Index+1, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

// Result lists the migrations a run touched.
type Result struct {
	Batch      int
	Migrations []string
}

// Executor runs migrations one transaction each.
type Executor struct {
	adapter database.Adapter
	planner *planner.Planner
	tracker *history.Tracker
}

// NewExecutor creates an executor.
func NewExecutor(adapter database.Adapter, p *planner.Planner, t *history.Tracker) *Executor {
	return &Executor{adapter: adapter, planner: p, tracker: t}
}

// Up applies every migration that is not yet recorded, in order, as a new
// batch. It stops at the first failure; earlier migrations stay applied.
func (e *Executor) Up(ctx context.Context, migrations []domain.Migration) (*Result, error) {
	if err := e.tracker.EnsureTable(ctx, e.adapter); err != nil {
		return nil, err
	}
	pending, err := e.Pending(ctx, migrations)
	if err != nil {
		return nil, err
	}
	last, err := e.tracker.LastBatch(ctx, e.adapter)
	if err != nil {
		return nil, err
	}

	result := &Result{Batch: last + 1}
	if len(pending) == 0 {
		debug.Info("nothing to migrate")
		return result, nil
	}

	for _, m := range pending {
		plan, err := e.planner.Plan(m.Up)
		if err != nil {
			return result, fmt.Errorf("failed to plan migration %s: %w", m.Name, err)
		}

		start := time.Now()
		err = e.run(ctx, m.Name, plan, func(tx database.Transaction) error {
			_, err := e.tracker.Record(ctx, tx, m.Name, result.Batch, plan.Checksum)
			return err
		})
		if err != nil {
			return result, err
		}
		debug.Info("migration applied", "name", m.Name, "batch", result.Batch, "statements", len(plan.Statements), "duration", time.Since(start))
		result.Migrations = append(result.Migrations, m.Name)
	}
	return result, nil
}

// Down rolls back the latest batch, newest migration first.
func (e *Executor) Down(ctx context.Context, migrations []domain.Migration) (*Result, error) {
	if err := e.tracker.EnsureTable(ctx, e.adapter); err != nil {
		return nil, err
	}
	records, err := e.tracker.Applied(ctx, e.adapter)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		debug.Info("nothing to roll back")
		return &Result{}, nil
	}

	batch := records[len(records)-1].Batch
	result := &Result{Batch: batch}
	byName := index(migrations)

	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]
		if rec.Batch != batch {
			break
		}
		m, ok := byName[rec.Name]
		if !ok {
			return result, fmt.Errorf("%w: %s", ErrUnknownMigration, rec.Name)
		}

		plan, err := e.planner.Plan(m.Down)
		if err != nil {
			return result, fmt.Errorf("failed to plan rollback of %s: %w", m.Name, err)
		}
		err = e.run(ctx, m.Name, plan, func(tx database.Transaction) error {
			return e.tracker.Remove(ctx, tx, m.Name)
		})
		if err != nil {
			return result, err
		}
		debug.Info("migration rolled back", "name", m.Name, "batch", batch)
		result.Migrations = append(result.Migrations, m.Name)
	}
	return result, nil
}

// Reset rolls back every batch.
func (e *Executor) Reset(ctx context.Context, migrations []domain.Migration) (*Result, error) {
	result := &Result{}
	for {
		r, err := e.Down(ctx, migrations)
		if r != nil {
			result.Migrations = append(result.Migrations, r.Migrations...)
		}
		if err != nil {
			return result, err
		}
		if len(r.Migrations) == 0 {
			return result, nil
		}
	}
}

// Pending returns the migrations without a history record.
func (e *Executor) Pending(ctx context.Context, migrations []domain.Migration) ([]domain.Migration, error) {
	records, err := e.tracker.Applied(ctx, e.adapter)
	if err != nil {
		return nil, err
	}
	applied := make(map[string]bool, len(records))
	for _, r := range records {
		applied[r.Name] = true
	}

	var pending []domain.Migration
	for _, m := range migrations {
		if !applied[m.Name] {
			pending = append(pending, m)
		}
	}
	return pending, nil
}

// Status reports each migration as pending, applied or modified since it
// was applied.
func (e *Executor) Status(ctx context.Context, migrations []domain.Migration) ([]domain.StatusEntry, error) {
	if err := e.tracker.EnsureTable(ctx, e.adapter); err != nil {
		return nil, err
	}
	records, err := e.tracker.Applied(ctx, e.adapter)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]domain.Record, len(records))
	for _, r := range records {
		byName[r.Name] = r
	}

	entries := make([]domain.StatusEntry, 0, len(migrations))
	for _, m := range migrations {
		entry := domain.StatusEntry{Name: m.Name, Status: domain.Pending}
		if rec, ok := byName[m.Name]; ok {
			appliedAt := rec.AppliedAt
			entry.Status = domain.Applied
			entry.Batch = rec.Batch
			entry.AppliedAt = &appliedAt

			plan, err := e.planner.Plan(m.Up)
			if err != nil {
				return nil, fmt.Errorf("failed to plan migration %s: %w", m.Name, err)
			}
			if plan.Checksum != rec.Checksum {
				entry.Status = domain.Modified
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// run executes plan and then record inside one transaction.
func (e *Executor) run(ctx context.Context, name string, plan *planner.Plan, record func(database.Transaction) error) (err error) {
	debug.Debug("running migration", "name", name, "statements", len(plan.Statements), "checksum", plan.Checksum)

	tx, err := e.adapter.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	for i, stmt := range plan.Statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return &StatementError{Migration: name, Index: i, Statement: stmt.Statement, Err: err}
		}
	}

	if err := record(tx); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to record migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration: %w", err)
	}
	return nil
}

func index(migrations []domain.Migration) map[string]domain.Migration {
	byName := make(map[string]domain.Migration, len(migrations))
	for _, m := range migrations {
		byName[m.Name] = m
	}
	return byName
}
