package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/alchemy-swift/alchemy-sub004/internal/core/query/domain"
	"github.com/alchemy-swift/alchemy-sub004/internal/debug"
)

// Conn is the database/sql plumbing shared by the driver adapters. Driver
// packages embed it and add Connect.
type Conn struct {
	db        *sql.DB
	cache     *StatementCache
	translate Translator
	dialect   string
}

// NewConn creates an unconnected Conn for dialect.
func NewConn(dialect string, translate Translator) *Conn {
	return &Conn{dialect: dialect, translate: translate}
}

// Open attaches db, applies the pool settings from cfg and pings it.
func (c *Conn) Open(ctx context.Context, db *sql.DB, cfg Config) error {
	if cfg.MaxConnections > 0 {
		db.SetMaxOpenConns(cfg.MaxConnections)
	}
	if cfg.MaxIdleTime > 0 {
		db.SetConnMaxIdleTime(time.Duration(cfg.MaxIdleTime) * time.Second)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.ConnectTimeout)*time.Second)
		defer cancel()
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if cfg.StatementCacheSize > 0 {
		cache, err := NewStatementCache(cfg.StatementCacheSize)
		if err != nil {
			db.Close()
			return fmt.Errorf("failed to create statement cache: %w", err)
		}
		c.cache = cache
	}

	c.db = db
	debug.Debug("database connected", "dialect", c.dialect, "cache", cfg.StatementCacheSize)
	return nil
}

// DB returns the underlying pool, or nil before Connect.
func (c *Conn) DB() *sql.DB {
	return c.db
}

// Disconnect closes cached statements and the pool.
func (c *Conn) Disconnect(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	if c.cache != nil {
		c.cache.Close()
	}
	err := c.db.Close()
	c.db = nil
	return err
}

// Exec executes a statement that returns no rows.
func (c *Conn) Exec(ctx context.Context, stmt domain.SQL) (sql.Result, error) {
	if c.db == nil {
		return nil, ErrNotConnected
	}
	debug.Debug("exec", "sql", stmt.Statement, "binds", len(stmt.Binds))

	if c.cache != nil {
		prepared, release, err := c.cache.GetOrPrepare(ctx, c.db, stmt.Statement)
		if err != nil {
			return nil, Wrap(stmt.Statement, err, c.translate)
		}
		defer release()
		res, err := prepared.ExecContext(ctx, stmt.Args()...)
		return res, Wrap(stmt.Statement, err, c.translate)
	}
	res, err := c.db.ExecContext(ctx, stmt.Statement, stmt.Args()...)
	return res, Wrap(stmt.Statement, err, c.translate)
}

// Query executes a statement that returns rows.
func (c *Conn) Query(ctx context.Context, stmt domain.SQL) (Rows, error) {
	if c.db == nil {
		return nil, ErrNotConnected
	}
	debug.Debug("query", "sql", stmt.Statement, "binds", len(stmt.Binds))

	var (
		rows *sql.Rows
		err  error
	)
	if c.cache != nil {
		prepared, release, perr := c.cache.GetOrPrepare(ctx, c.db, stmt.Statement)
		if perr != nil {
			return nil, Wrap(stmt.Statement, perr, c.translate)
		}
		rows, err = prepared.QueryContext(ctx, stmt.Args()...)
		release()
	} else {
		rows, err = c.db.QueryContext(ctx, stmt.Statement, stmt.Args()...)
	}
	if err != nil {
		return nil, Wrap(stmt.Statement, err, c.translate)
	}
	return rows, nil
}

// Begin starts a transaction.
func (c *Conn) Begin(ctx context.Context) (Transaction, error) {
	if c.db == nil {
		return nil, ErrNotConnected
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &Tx{tx: tx, translate: c.translate}, nil
}

// Ping checks if the database connection is alive.
func (c *Conn) Ping(ctx context.Context) error {
	if c.db == nil {
		return ErrNotConnected
	}
	return c.db.PingContext(ctx)
}

// Dialect returns the dialect name.
func (c *Conn) Dialect() string {
	return c.dialect
}

// Tx implements Transaction over *sql.Tx.
type Tx struct {
	tx        *sql.Tx
	translate Translator
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback rolls back the transaction.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// Exec executes a statement within the transaction.
func (t *Tx) Exec(ctx context.Context, stmt domain.SQL) (sql.Result, error) {
	debug.Debug("tx exec", "sql", stmt.Statement, "binds", len(stmt.Binds))
	res, err := t.tx.ExecContext(ctx, stmt.Statement, stmt.Args()...)
	return res, Wrap(stmt.Statement, err, t.translate)
}

// Query executes a statement within the transaction.
func (t *Tx) Query(ctx context.Context, stmt domain.SQL) (Rows, error) {
	debug.Debug("tx query", "sql", stmt.Statement, "binds", len(stmt.Binds))
	rows, err := t.tx.QueryContext(ctx, stmt.Statement, stmt.Args()...)
	if err != nil {
		return nil, Wrap(stmt.Statement, err, t.translate)
	}
	return rows, nil
}

var _ Transaction = (*Tx)(nil)
