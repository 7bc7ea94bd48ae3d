package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"todo-api/models"
)

var tableIdent = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLite stores tasks in a local database file. It has no native expiry, so
// reads skip rows whose ttl has passed and PurgeExpired deletes them.
type SQLite struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

// OpenSQLite opens path (":memory:" is accepted) and creates the table and
// its indexes if they do not exist.
func OpenSQLite(ctx context.Context, path, table string) (*SQLite, error) {
	if !tableIdent.MatchString(table) {
		return nil, fmt.Errorf("invalid sqlite table name %q", table)
	}

	inMemory := path == ":memory:"
	dsn := path
	if !inMemory && !strings.Contains(path, "?") {
		dsn = path + "?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if inMemory {
		// ":memory:" databases live and die with their connection
		db.SetMaxOpenConns(1)
	}

	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		task_id TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		user_id TEXT,
		is_completed INTEGER NOT NULL DEFAULT 0,
		created_time INTEGER NOT NULL,
		ttl INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_user_created ON %[1]s(user_id, created_time DESC);
	CREATE INDEX IF NOT EXISTS idx_%[1]s_ttl ON %[1]s(ttl);
	`, table)
	if _, err := db.ExecContext(ctx, query); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}

	return &SQLite{db: db, table: table, now: time.Now}, nil
}

// WithClock replaces the clock used for expiry checks.
func (s *SQLite) WithClock(now func() time.Time) *SQLite {
	s.now = now
	return s
}

// Put inserts the task, replacing any row with the same id.
func (s *SQLite) Put(ctx context.Context, task models.Task) error {
	query := fmt.Sprintf(`
	INSERT OR REPLACE INTO %s (task_id, content, user_id, is_completed, created_time, ttl)
	VALUES (?, ?, ?, ?, ?, ?)
	`, s.table)
	_, err := s.db.ExecContext(ctx, query,
		task.TaskID, task.Content, nullable(task.UserID), task.IsCompleted, task.CreatedTime, task.TTL)
	if err != nil {
		return fmt.Errorf("sqlite put: %w", err)
	}
	return nil
}

// Get retrieves a live task by id
func (s *SQLite) Get(ctx context.Context, taskID string) (models.Task, error) {
	query := fmt.Sprintf(`
	SELECT task_id, content, user_id, is_completed, created_time, ttl
	FROM %s
	WHERE task_id = ? AND ttl > ?
	`, s.table)
	task, err := scanTask(s.db.QueryRowContext(ctx, query, taskID, s.now().Unix()))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Task{}, ErrNotFound
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("sqlite get: %w", err)
	}
	return task, nil
}

// ListByUser returns the user's newest live tasks first
func (s *SQLite) ListByUser(ctx context.Context, userID string, limit int) ([]models.Task, error) {
	query := fmt.Sprintf(`
	SELECT task_id, content, user_id, is_completed, created_time, ttl
	FROM %s
	WHERE user_id = ? AND ttl > ?
	ORDER BY created_time DESC, task_id DESC
	LIMIT ?
	`, s.table)
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, query, userID, s.now().Unix(), limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite list: %w", err)
	}
	defer rows.Close()

	tasks := make([]models.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite list scan: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite list: %w", err)
	}
	return tasks, nil
}

// Update writes the non-nil fields of upd. A missing or expired id matches no row.
func (s *SQLite) Update(ctx context.Context, taskID string, upd models.TaskUpdate) error {
	query := fmt.Sprintf(`
	UPDATE %s
	SET content = COALESCE(?, content), is_completed = COALESCE(?, is_completed)
	WHERE task_id = ? AND ttl > ?
	`, s.table)
	_, err := s.db.ExecContext(ctx, query,
		nullable(upd.Content), nullable(upd.IsCompleted), taskID, s.now().Unix())
	if err != nil {
		return fmt.Errorf("sqlite update: %w", err)
	}
	return nil
}

// Delete deletes a task by id
func (s *SQLite) Delete(ctx context.Context, taskID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE task_id = ?`, s.table)
	if _, err := s.db.ExecContext(ctx, query, taskID); err != nil {
		return fmt.Errorf("sqlite delete: %w", err)
	}
	return nil
}

// PurgeExpired deletes every row whose ttl is at or before now.
func (s *SQLite) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE ttl <= ?`, s.table)
	res, err := s.db.ExecContext(ctx, query, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("sqlite purge: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(r rowScanner) (models.Task, error) {
	var (
		task   models.Task
		userID sql.NullString
	)
	err := r.Scan(&task.TaskID, &task.Content, &userID, &task.IsCompleted, &task.CreatedTime, &task.TTL)
	if err != nil {
		return models.Task{}, err
	}
	if userID.Valid {
		task.UserID = &userID.String
	}
	return task, nil
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
