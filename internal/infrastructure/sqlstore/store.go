// Package sqlstore implements the user, OTP and note stores on database/sql.
// The same queries run on Postgres (pgx) and SQLite (modernc); timestamps are
// stored as Unix milliseconds.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/go-notes-api/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Supported dialects.
const (
	Postgres = "postgres"
	SQLite   = "sqlite"
)

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

// DB is a migrated database handle shared by the stores.
type DB struct {
	sqlDB *sql.DB
}

// Open connects with the given dialect and applies embedded migrations.
// For SQLite, dsn is a file path or ":memory:".
func Open(ctx context.Context, dialect, dsn string) (*DB, error) {
	var (
		driver       string
		gooseDialect string
	)
	switch dialect {
	case Postgres:
		driver, gooseDialect = "pgx", "postgres"
	case SQLite:
		driver, gooseDialect = "sqlite", "sqlite3"
		if strings.TrimSpace(dsn) == "" {
			return nil, fmt.Errorf("sqlite path is required")
		}
		if dsn != ":memory:" {
			dsn += "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
		}
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	sqlDB, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}
	if dialect == SQLite {
		// One writer avoids SQLITE_BUSY and keeps :memory: a single database.
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}
	if err := migrate(ctx, sqlDB, gooseDialect); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &DB{sqlDB: sqlDB}, nil
}

func migrate(ctx context.Context, db *sql.DB, dialect string) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect(dialect); err != nil {
		return err
	}
	return goose.UpContext(ctx, db, "migrations")
}

// Close closes the underlying handle.
func (d *DB) Close() error {
	if d == nil || d.sqlDB == nil {
		return nil
	}
	return d.sqlDB.Close()
}

func toMillis(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMillis(v int64) time.Time { return time.UnixMilli(v).UTC() }

// isUniqueViolation recognises unique and primary-key violations from both drivers.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return false
}

func mapWriteErr(op string, err error) error {
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, domain.ErrDuplicateKey)
	}
	return fmt.Errorf("%s: %w", op, err)
}
