package tasks

import (
	"context"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const otelName = "github.com/s1natex/tasktracker-api/internal/tasks"

// Service applies ownership and validation rules on top of a Repository.
type Service struct {
	repo  Repository
	now   func() time.Time
	newID func() string
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:  repo,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// List returns the caller's tasks matching p. It never returns another user's task.
func (s *Service) List(ctx context.Context, caller string, p ListParams) (out []Task, err error) {
	ctx, span := startSpan(ctx, "Tasks.List", caller)
	defer func() { endSpan(span, "list", err) }()

	if caller == "" {
		return nil, ErrUnauthenticated
	}
	out, err = s.repo.List(ctx, BuildQuery(caller, p))
	if err != nil {
		return nil, fmt.Errorf("repo list: %w", err)
	}
	span.SetAttributes(attribute.Int("tasks.count", len(out)))
	return out, nil
}

func (s *Service) Create(ctx context.Context, caller string, in CreateInput) (t Task, err error) {
	ctx, span := startSpan(ctx, "Tasks.Create", caller)
	defer func() { endSpan(span, "create", err) }()

	if caller == "" {
		return Task{}, ErrUnauthenticated
	}
	if err := in.Validate(); err != nil {
		return Task{}, err
	}

	priority := in.Priority
	if priority == "" {
		priority = PriorityMedium
	}
	t = Task{
		ID:          s.newID(),
		User:        caller,
		Title:       in.Title,
		Description: in.Description,
		Priority:    priority,
		DueDate:     in.DueDate.Value,
		Reminder:    in.Reminder.Value,
		Completed:   false,
		CreatedAt:   s.now().UTC().Truncate(time.Microsecond),
	}
	if err := s.repo.Create(ctx, t); err != nil {
		return Task{}, fmt.Errorf("repo create: %w", err)
	}
	return t, nil
}

// Update merges patch onto the caller's task. Lookup failures win over ownership
// failures, which win over validation failures.
func (s *Service) Update(ctx context.Context, caller, id string, patch Patch) (t Task, err error) {
	ctx, span := startSpan(ctx, "Tasks.Update", caller)
	defer func() { endSpan(span, "update", err) }()
	span.SetAttributes(attribute.String("task.id", id))

	t, err = s.owned(ctx, caller, id)
	if err != nil {
		return Task{}, err
	}
	if err := patch.Validate(); err != nil {
		return Task{}, err
	}
	if patch.User != nil && *patch.User != t.User {
		return Task{}, ErrOwnerImmutable
	}

	patch.Apply(&t)
	if err := s.repo.Update(ctx, t); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Task{}, err
		}
		return Task{}, fmt.Errorf("repo update: %w", err)
	}
	return t, nil
}

func (s *Service) Delete(ctx context.Context, caller, id string) (err error) {
	ctx, span := startSpan(ctx, "Tasks.Delete", caller)
	defer func() { endSpan(span, "delete", err) }()
	span.SetAttributes(attribute.String("task.id", id))

	if _, err := s.owned(ctx, caller, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("repo delete: %w", err)
	}
	return nil
}

// Authorize reports whether caller may modify task id, with the same
// not-found-before-not-owner precedence as Update. Handlers call it before
// reading the request body.
func (s *Service) Authorize(ctx context.Context, caller, id string) (err error) {
	ctx, span := startSpan(ctx, "Tasks.Authorize", caller)
	defer func() { endSpan(span, "authorize", err) }()
	span.SetAttributes(attribute.String("task.id", id))

	_, err = s.owned(ctx, caller, id)
	return err
}

func (s *Service) owned(ctx context.Context, caller, id string) (Task, error) {
	if caller == "" {
		return Task{}, ErrUnauthenticated
	}
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Task{}, err
		}
		return Task{}, fmt.Errorf("repo get: %w", err)
	}
	if t.User != caller {
		return Task{}, ErrNotOwner
	}
	return t, nil
}

// isClientError reports failures caused by the request body rather than the store.
func isClientError(err error) bool {
	var verrs validation.Errors
	return errors.Is(err, ErrTitleRequired) || errors.Is(err, ErrOwnerImmutable) || errors.As(err, &verrs)
}

func startSpan(ctx context.Context, name, caller string) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(otelName).Start(ctx, name)
	span.SetAttributes(attribute.String("user.id", caller))
	return ctx, span
}

func endSpan(span trace.Span, operation string, err error) {
	observe(operation, err)
	if err != nil && !isClientError(err) && !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrNotOwner) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
