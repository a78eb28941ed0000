package session

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	// Drivers accepted by OpenSQL.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultSQLTable is the table SQL stores use unless told otherwise.
const DefaultSQLTable = "tgroute_sessions"

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// OpenSQL opens a database for a SQL store. driver is "mysql" or "sqlite3";
// for sqlite3 the parent directory of dsn is created when needed.
func OpenSQL(driver, dsn string) (*sql.DB, error) {
	switch driver {
	case "sqlite3":
		if dir := filepath.Dir(dsn); dsn != ":memory:" && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create db directory %s: %w", dir, err)
			}
		}
	case "mysql":
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s db: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s db: %w", driver, err)
	}
	return db, nil
}

// SQL keeps one row per (key, field). Every row of a key carries the key's
// expiry, which is rewritten on each access. The statements are plain SQL
// that MySQL and SQLite both accept.
type SQL struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

// SQLOption configures a SQL store.
type SQLOption func(*SQL)

// WithTable overrides DefaultSQLTable.
func WithTable(name string) SQLOption {
	return func(s *SQL) {
		s.table = name
	}
}

// WithSQLClock replaces time.Now, for tests.
func WithSQLClock(now func() time.Time) SQLOption {
	return func(s *SQL) {
		s.now = now
	}
}

// NewSQL returns a Store on db. Call EnsureSchema before first use.
func NewSQL(db *sql.DB, opts ...SQLOption) (*SQL, error) {
	s := &SQL{db: db, table: DefaultSQLTable, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if !tableName.MatchString(s.table) {
		return nil, fmt.Errorf("invalid table name %q", s.table)
	}
	return s, nil
}

// EnsureSchema creates the session table if it does not exist.
func (s *SQL) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS `+s.table+` (
		session_key VARCHAR(191) NOT NULL,
		field       VARCHAR(191) NOT NULL,
		value       TEXT NOT NULL,
		expires_at  BIGINT NOT NULL,
		PRIMARY KEY (session_key, field)
	)`)
	if err != nil {
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

// withTx purges the key if it has expired, runs fn and finally moves the
// key's expiry to now+ttl.
func (s *SQL) withTx(ctx context.Context, key string, ttl time.Duration, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	now := s.now()
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM `+s.table+` WHERE session_key = ? AND expires_at <= ?`,
		key, now.UnixNano(),
	); err != nil {
		return fmt.Errorf("failed to purge expired key[%s]: %w", key, err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE `+s.table+` SET expires_at = ? WHERE session_key = ?`,
		now.Add(ttl).UnixNano(), key,
	); err != nil {
		return fmt.Errorf("failed to refresh key[%s]: %w", key, err)
	}
	return tx.Commit()
}

func (s *SQL) GetField(ctx context.Context, key, field string, ttl time.Duration) (string, bool, error) {
	if err := checkArgs(key, ttl); err != nil {
		return "", false, err
	}
	var (
		value string
		found bool
	)
	err := s.withTx(ctx, key, ttl, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`SELECT value FROM `+s.table+` WHERE session_key = ? AND field = ?`,
			key, field,
		).Scan(&value)
		switch {
		case err == sql.ErrNoRows:
			return nil
		case err != nil:
			return fmt.Errorf("failed to get field[%s] of key[%s]: %w", field, key, err)
		}
		found = true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}

func (s *SQL) UpdateFields(ctx context.Context, key string, fields map[string]string, ttl time.Duration) error {
	if err := checkArgs(key, ttl); err != nil {
		return err
	}
	expiresAt := s.now().Add(ttl).UnixNano()
	return s.withTx(ctx, key, ttl, func(tx *sql.Tx) error {
		for f, v := range fields {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM `+s.table+` WHERE session_key = ? AND field = ?`, key, f,
			); err != nil {
				return fmt.Errorf("failed to replace field[%s] of key[%s]: %w", f, key, err)
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO `+s.table+` (session_key, field, value, expires_at) VALUES (?, ?, ?, ?)`,
				key, f, v, expiresAt,
			); err != nil {
				return fmt.Errorf("failed to set field[%s] of key[%s]: %w", f, key, err)
			}
		}
		return nil
	})
}

func (s *SQL) DeleteFields(ctx context.Context, key string, ttl time.Duration, fields ...string) error {
	if err := checkArgs(key, ttl); err != nil {
		return err
	}
	return s.withTx(ctx, key, ttl, func(tx *sql.Tx) error {
		for _, f := range fields {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM `+s.table+` WHERE session_key = ? AND field = ?`, key, f,
			); err != nil {
				return fmt.Errorf("failed to delete field[%s] of key[%s]: %w", f, key, err)
			}
		}
		return nil
	})
}

func (s *SQL) DeleteKey(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM `+s.table+` WHERE session_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete key[%s]: %w", key, err)
	}
	return nil
}

func (s *SQL) Snapshot(ctx context.Context, key string, ttl time.Duration) (map[string]string, error) {
	if err := checkArgs(key, ttl); err != nil {
		return nil, err
	}
	out := make(map[string]string)
	err := s.withTx(ctx, key, ttl, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT field, value FROM `+s.table+` WHERE session_key = ?`, key,
		)
		if err != nil {
			return fmt.Errorf("failed to read key[%s]: %w", key, err)
		}
		defer rows.Close()
		for rows.Next() {
			var f, v string
			if err := rows.Scan(&f, &v); err != nil {
				return fmt.Errorf("failed to scan key[%s]: %w", key, err)
			}
			out[f] = v
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

var _ Store = (*SQL)(nil)
