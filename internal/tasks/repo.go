package tasks

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

var (
	ErrTitleRequired   = errors.New("title required")
	ErrNotFound        = errors.New("task not found")
	ErrNotOwner        = errors.New("task belongs to another user")
	ErrOwnerImmutable  = errors.New("task owner cannot be changed")
	ErrUnauthenticated = errors.New("no authenticated caller")
)

// Repository persists tasks. Get, Update and Delete return ErrNotFound for unknown ids.
type Repository interface {
	Create(ctx context.Context, t Task) error
	Get(ctx context.Context, id string) (Task, error)
	List(ctx context.Context, q Query) ([]Task, error)
	Update(ctx context.Context, t Task) error
	Delete(ctx context.Context, id string) error
}

type memEntry struct {
	task Task
	seq  int64
}

type InMemoryRepo struct {
	mu    sync.Mutex
	seq   int64
	store map[string]memEntry
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		store: make(map[string]memEntry),
	}
}

func (r *InMemoryRepo) Create(_ context.Context, t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.store[t.ID] = memEntry{task: t, seq: r.seq}
	return nil
}

func (r *InMemoryRepo) Get(_ context.Context, id string) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.store[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return e.task, nil
}

func (r *InMemoryRepo) List(_ context.Context, q Query) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	matched := make([]memEntry, 0, len(r.store))
	for _, e := range r.store {
		if q.matches(e.task) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if c := compareTasks(a.task, b.task, q.Sort); c != 0 {
			return c < 0
		}
		return a.seq > b.seq
	})

	out := make([]Task, len(matched))
	for i, e := range matched {
		out[i] = e.task
	}
	return out, nil
}

func (r *InMemoryRepo) Update(_ context.Context, t Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.store[t.ID]
	if !ok {
		return ErrNotFound
	}
	t.User = e.task.User
	t.CreatedAt = e.task.CreatedAt
	e.task = t
	r.store[t.ID] = e
	return nil
}

func (r *InMemoryRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.store[id]; !ok {
		return ErrNotFound
	}
	delete(r.store, id)
	return nil
}

func (q Query) matches(t Task) bool {
	if t.User != q.Owner {
		return false
	}
	if q.Completed != nil && t.Completed != *q.Completed {
		return false
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(t.Title), needle) &&
			!strings.Contains(strings.ToLower(t.Description), needle) {
			return false
		}
	}
	return true
}

// compareTasks returns <0 when a sorts before b. Every order falls back to newest first.
func compareTasks(a, b Task, order SortOrder) int {
	switch order {
	case SortDueDate:
		switch {
		case a.DueDate == nil && b.DueDate != nil:
			return 1
		case a.DueDate != nil && b.DueDate == nil:
			return -1
		case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Compare(*b.DueDate)
		}
	case SortPriority:
		if ra, rb := a.Priority.rank(), b.Priority.rank(); ra != rb {
			return ra - rb
		}
	}
	return b.CreatedAt.Compare(a.CreatedAt)
}
