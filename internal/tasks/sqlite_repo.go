package tasks

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/s1natex/tasktracker-api/internal/storage"
)

const sqliteTaskColumns = `id, user_id, title, description, priority, due_date, reminder, completed, created_at`

type SQLiteRepo struct {
	db *sql.DB
}

func NewSQLiteRepo(db *sql.DB) *SQLiteRepo {
	return &SQLiteRepo{db: db}
}

func (r *SQLiteRepo) Create(ctx context.Context, t Task) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tasks (`+sqliteTaskColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.User, t.Title, t.Description, string(t.Priority),
		nullTime(t.DueDate), nullTime(t.Reminder), t.Completed, storage.FormatTime(t.CreatedAt))
	return err
}

func (r *SQLiteRepo) Get(ctx context.Context, id string) (Task, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sqliteTaskColumns+` FROM tasks WHERE id = ?`, id)
	t, err := scanSQLiteTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

func (r *SQLiteRepo) List(ctx context.Context, q Query) ([]Task, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + sqliteTaskColumns + ` FROM tasks WHERE user_id = ?`)
	args := []any{q.Owner}

	if q.Completed != nil {
		sb.WriteString(` AND completed = ?`)
		args = append(args, *q.Completed)
	}
	if q.Search != "" {
		lower := storage.UnicodeLowerFunc
		sb.WriteString(` AND (` + lower + `(title) LIKE ? ESCAPE '\' OR ` + lower + `(description) LIKE ? ESCAPE '\')`)
		pattern := "%" + escapeLike(strings.ToLower(q.Search)) + "%"
		args = append(args, pattern, pattern)
	}

	switch q.Sort {
	case SortDueDate:
		sb.WriteString(` ORDER BY due_date IS NULL, due_date ASC, created_at DESC, rowid DESC`)
	case SortPriority:
		sb.WriteString(` ORDER BY ` + priorityRankSQL + `, created_at DESC, rowid DESC`)
	default:
		sb.WriteString(` ORDER BY created_at DESC, rowid DESC`)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		t, err := scanSQLiteTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update rewrites the mutable fields. user_id and created_at are never touched.
func (r *SQLiteRepo) Update(ctx context.Context, t Task) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE tasks
		SET title = ?, description = ?, priority = ?, due_date = ?, reminder = ?, completed = ?
		WHERE id = ?
	`, t.Title, t.Description, string(t.Priority), nullTime(t.DueDate), nullTime(t.Reminder), t.Completed, t.ID)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

func (r *SQLiteRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(res)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteTask(s rowScanner) (Task, error) {
	var (
		t                 Task
		priority, created string
		due, reminder     sql.NullString
	)
	if err := s.Scan(&t.ID, &t.User, &t.Title, &t.Description, &priority, &due, &reminder, &t.Completed, &created); err != nil {
		return Task{}, err
	}
	t.Priority = Priority(priority)
	if ts, err := storage.ParseTime(created); err == nil {
		t.CreatedAt = ts
	}
	t.DueDate = parseNullTime(due)
	t.Reminder = parseNullTime(reminder)
	return t, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: storage.FormatTime(*t), Valid: true}
}

func parseNullTime(s sql.NullString) *time.Time {
	if !s.Valid {
		return nil
	}
	ts, err := storage.ParseTime(s.String)
	if err != nil {
		return nil
	}
	return &ts
}

const priorityRankSQL = `CASE priority WHEN 'High' THEN 0 WHEN 'Medium' THEN 1 WHEN 'Low' THEN 2 ELSE 3 END`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
