// Package sqlstore keeps tasks in a SQL database. MySQL and SQLite are
// supported; both use the same table layout.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "modernc.org/sqlite"

	"github.com/Makepad-fr/donezo/internal/model"
	"github.com/Makepad-fr/donezo/internal/store"
)

// Dialect selects the driver and DDL.
type Dialect string

const (
	MySQL  Dialect = "mysql"
	SQLite Dialect = "sqlite"
)

// timeLayout is fixed width so created_at sorts as text on both dialects.
const timeLayout = "2006-01-02T15:04:05.000000Z07:00"

type Store struct {
	db      *sql.DB
	dialect Dialect
}

var _ store.Store = (*Store)(nil)

// Open connects, pings and migrates.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	var driver string
	switch dialect {
	case MySQL:
		cfg, err := mysql.ParseDSN(dsn)
		if err != nil {
			return nil, fmt.Errorf("parse dsn: %w", err)
		}
		// report matched rows, not changed rows, so a no-op update is not "not found"
		cfg.ClientFoundRows = true
		dsn = cfg.FormatDSN()
		driver = "mysql"
	case SQLite:
		driver = "sqlite"
	default:
		return nil, fmt.Errorf("unknown sql dialect %q", dialect)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	if dialect == SQLite {
		// one connection keeps ":memory:" databases alive and serializes writers
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	s := &Store{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate(ctx context.Context) error {
	var ddl []string
	switch s.dialect {
	case MySQL:
		ddl = []string{
			`CREATE TABLE IF NOT EXISTS tasks (
    id VARCHAR(64) PRIMARY KEY,
    user_id VARCHAR(64) NOT NULL,
    title TEXT NOT NULL,
    notes TEXT NULL,
    priority VARCHAR(10) NULL,
    is_completed BOOLEAN NOT NULL DEFAULT FALSE,
    created_at VARCHAR(40) NOT NULL,
    KEY idx_tasks_user_created (user_id, created_at)
)`,
		}
	default:
		ddl = []string{
			`CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    title TEXT NOT NULL,
    notes TEXT,
    priority TEXT,
    is_completed INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL
)`,
			`CREATE INDEX IF NOT EXISTS idx_tasks_user_created ON tasks(user_id, created_at)`,
		}
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) List(ctx context.Context, userID string) ([]model.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, notes, priority, is_completed, created_at
    FROM tasks
    WHERE user_id=?
    ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	out := []model.Task{}
	for rows.Next() {
		var (
			t        model.Task
			notes    sql.NullString
			priority sql.NullString
			created  string
		)
		if err := rows.Scan(&t.ID, &t.Title, &notes, &priority, &t.IsCompleted, &created); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Notes = model.NormalizeNotes(notes.String)
		if t.Priority, err = model.ParsePriority(priority.String); err != nil {
			return nil, fmt.Errorf("task %s: %w", t.ID, err)
		}
		at, err := time.Parse(timeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("task %s: created_at: %w", t.ID, err)
		}
		t.CreatedAt = model.Timestamp(at)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) Insert(ctx context.Context, userID string, t model.Task) (model.Task, error) {
	t.CreatedAt = model.Timestamp(t.CreatedAt)
	_, err := s.db.ExecContext(ctx, `INSERT INTO tasks
    (id, user_id, title, notes, priority, is_completed, created_at)
    VALUES(?,?,?,?,?,?,?)`,
		t.ID, userID, t.Title, nullable(t.Notes), nullable(string(t.Priority)), t.IsCompleted,
		t.CreatedAt.Format(timeLayout))
	if err != nil {
		return model.Task{}, fmt.Errorf("insert task: %w", err)
	}
	return t, nil
}

func (s *Store) Update(ctx context.Context, id string, p model.Patch) error {
	if p.IsEmpty() {
		return nil
	}
	var (
		sets []string
		args []any
	)
	if p.Title != nil {
		sets = append(sets, "title=?")
		args = append(args, *p.Title)
	}
	if p.Notes != nil {
		sets = append(sets, "notes=?")
		args = append(args, nullable(*p.Notes))
	}
	if p.Priority != nil {
		sets = append(sets, "priority=?")
		args = append(args, nullable(string(*p.Priority)))
	}
	if p.IsCompleted != nil {
		sets = append(sets, "is_completed=?")
		args = append(args, *p.IsCompleted)
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, "UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		return fmt.Errorf("update task: %w", err)
	}
	return affected(res, id)
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return affected(res, id)
}

func affected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("task %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// nullable maps "" to SQL NULL, matching the hosted table.
func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
