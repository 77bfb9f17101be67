package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// InterruptedMessage is written to render tasks found mid-render at startup.
const InterruptedMessage = "interrupted by restart"

// goose keeps its dialect, FS and logger in package globals.
var gooseMu sync.Mutex

type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// New opens the agent database, applies migrations and fails render tasks a
// previous process left mid-render.
func New(dbPath string, logger *slog.Logger) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := open(dbPath)
	if err != nil {
		return nil, err
	}

	db := &DB{conn: conn, logger: logger}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	n, err := db.markInterruptedTasks()
	if err != nil && logger != nil {
		logger.Warn("failed to mark interrupted render tasks", "error", err)
	} else if n > 0 && logger != nil {
		logger.Warn("render tasks interrupted by previous shutdown", "count", n)
	}

	return db, nil
}

// OpenExisting opens a database another process may be serving, for
// inspection. It neither migrates nor touches task rows.
func OpenExisting(dbPath string) (*DB, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("database not found: %w", err)
	}
	conn, err := open(dbPath)
	if err != nil {
		return nil, err
	}
	return &DB{conn: conn}, nil
}

func open(dbPath string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to execute %s: %w", pragma, err)
		}
	}
	return conn, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) Conn() *sql.DB {
	return d.conn
}

func (d *DB) migrate() error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if d.logger != nil {
		goose.SetLogger(&slogGooseLogger{logger: d.logger})
	} else {
		goose.SetLogger(goose.NopLogger())
	}

	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("failed to set dialect: %w", err)
	}

	return goose.Up(d.conn, "migrations")
}

// markInterruptedTasks fails rows left in rendering by a crash. They are not
// requeued.
func (d *DB) markInterruptedTasks() (int64, error) {
	now := time.Now().UTC().Format("2006-01-02T15:04:05.000000Z07:00")
	res, err := d.conn.ExecContext(context.Background(), `
		UPDATE render_tasks
		SET status = 'error', error_message = ?, completed_at = ?
		WHERE status = 'rendering'
	`, InterruptedMessage, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// slogGooseLogger adapts the goose logger interface to slog.
type slogGooseLogger struct {
	logger *slog.Logger
}

func (l *slogGooseLogger) Printf(format string, v ...interface{}) {
	l.logger.Info(fmt.Sprintf(format, v...), "component", "migrations")
}

// Fatalf logs without exiting; goose.Up returns the error to New.
func (l *slogGooseLogger) Fatalf(format string, v ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, v...), "component", "migrations")
}
