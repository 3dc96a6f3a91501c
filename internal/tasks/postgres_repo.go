package tasks

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgTaskColumns = `id, user_id, title, description, priority, due_date, reminder, completed, created_at`

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(pool *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{pool: pool}
}

func (r *PostgresRepo) Create(ctx context.Context, t Task) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO tasks (`+pgTaskColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, t.ID, t.User, t.Title, t.Description, string(t.Priority), t.DueDate, t.Reminder, t.Completed, t.CreatedAt)
	return err
}

func (r *PostgresRepo) Get(ctx context.Context, id string) (Task, error) {
	t, err := scanPgTask(r.pool.QueryRow(ctx, `SELECT `+pgTaskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

func (r *PostgresRepo) List(ctx context.Context, q Query) ([]Task, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + pgTaskColumns + ` FROM tasks WHERE user_id = $1`)
	args := []any{q.Owner}

	if q.Completed != nil {
		args = append(args, *q.Completed)
		sb.WriteString(` AND completed = $` + strconv.Itoa(len(args)))
	}
	if q.Search != "" {
		args = append(args, "%"+escapeLike(q.Search)+"%")
		n := strconv.Itoa(len(args))
		sb.WriteString(` AND (title ILIKE $` + n + ` OR description ILIKE $` + n + `)`)
	}

	switch q.Sort {
	case SortDueDate:
		sb.WriteString(` ORDER BY due_date ASC NULLS LAST, created_at DESC, id`)
	case SortPriority:
		sb.WriteString(` ORDER BY ` + priorityRankSQL + `, created_at DESC, id`)
	default:
		sb.WriteString(` ORDER BY created_at DESC, id`)
	}

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Task{}
	for rows.Next() {
		t, err := scanPgTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// Update rewrites the mutable fields. user_id and created_at are never touched.
func (r *PostgresRepo) Update(ctx context.Context, t Task) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, priority = $3, due_date = $4, reminder = $5, completed = $6
		WHERE id = $7
	`, t.Title, t.Description, string(t.Priority), t.DueDate, t.Reminder, t.Completed, t.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanPgTask(row pgx.Row) (Task, error) {
	var (
		t        Task
		priority string
	)
	if err := row.Scan(&t.ID, &t.User, &t.Title, &t.Description, &priority, &t.DueDate, &t.Reminder, &t.Completed, &t.CreatedAt); err != nil {
		return Task{}, err
	}
	t.Priority = Priority(priority)
	t.CreatedAt = t.CreatedAt.UTC()
	if t.DueDate != nil {
		d := t.DueDate.UTC()
		t.DueDate = &d
	}
	if t.Reminder != nil {
		rm := t.Reminder.UTC()
		t.Reminder = &rm
	}
	return t, nil
}
