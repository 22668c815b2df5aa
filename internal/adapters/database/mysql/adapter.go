// Package mysql implements the MySQL database adapter.
package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/alchemy-swift/alchemy-sub004/internal/adapters/database"
)

// MySQL server error numbers for integrity violations.
const (
	errDuplicateEntry   = 1062
	errBadNull          = 1048
	errRowIsReferenced  = 1451
	errNoReferencedRow  = 1452
	errRowIsReferenced2 = 1217
	errNoReferencedRow2 = 1216
)

// MySQLAdapter implements database.Adapter for MySQL.
type MySQLAdapter struct {
	*database.Conn
	config database.Config
	dsn    string
}

// NewMySQLAdapter creates a new MySQL adapter. The URL may be a driver DSN
// ("user:pass@tcp(host:3306)/db") or a mysql:// URL.
func NewMySQLAdapter(config database.Config) (*MySQLAdapter, error) {
	dsn, err := ParseDSN(config.URL)
	if err != nil {
		return nil, err
	}
	return &MySQLAdapter{
		Conn:   database.NewConn("mysql", TranslateError),
		config: config,
		dsn:    dsn,
	}, nil
}

// Connect establishes a connection to the MySQL database.
func (a *MySQLAdapter) Connect(ctx context.Context) error {
	db, err := sql.Open("mysql", a.dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	return a.Open(ctx, db, a.config)
}

// ParseDSN normalizes raw into a driver DSN with time parsing enabled.
func ParseDSN(raw string) (string, error) {
	if raw == "" {
		return "", errors.New("mysql: connection url is required")
	}

	var cfg *mysql.Config
	if strings.HasPrefix(raw, "mysql://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("mysql: invalid url: %w", err)
		}
		cfg = mysql.NewConfig()
		cfg.Net = "tcp"
		cfg.Addr = u.Host
		if u.Port() == "" {
			cfg.Addr = u.Hostname() + ":3306"
		}
		cfg.DBName = strings.TrimPrefix(u.Path, "/")
		if u.User != nil {
			cfg.User = u.User.Username()
			cfg.Passwd, _ = u.User.Password()
		}
		params := u.Query()
		if len(params) > 0 {
			cfg.Params = make(map[string]string, len(params))
			for k := range params {
				cfg.Params[k] = params.Get(k)
			}
		}
	} else {
		var err error
		cfg, err = mysql.ParseDSN(raw)
		if err != nil {
			return "", fmt.Errorf("mysql: invalid dsn: %w", err)
		}
	}

	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// TranslateError maps a *mysql.MySQLError to a database violation sentinel.
func TranslateError(err error) error {
	var myErr *mysql.MySQLError
	if !errors.As(err, &myErr) {
		return nil
	}
	switch myErr.Number {
	case errDuplicateEntry:
		return database.ErrUniqueViolation
	case errRowIsReferenced, errNoReferencedRow, errRowIsReferenced2, errNoReferencedRow2:
		return database.ErrForeignKeyViolation
	case errBadNull:
		return database.ErrNotNullViolation
	}
	return nil
}

var _ database.Adapter = (*MySQLAdapter)(nil)
