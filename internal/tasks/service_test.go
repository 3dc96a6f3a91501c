package tasks

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/s1natex/tasktracker-api/internal/envelope"
)

func newTestService() (*Service, *InMemoryRepo) {
	repo := NewInMemoryRepo()
	svc := NewService(repo)
	now := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	n := 0
	svc.now = func() time.Time {
		n++
		return now.Add(time.Duration(n) * time.Minute)
	}
	svc.newID = func() string { return fmt.Sprintf("t%d", n+1) }
	return svc, repo
}

func strPtr(s string) *string { return &s }

func TestService_CreateDefaults(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	got, err := svc.Create(ctx, "alice", CreateInput{Title: "Buy milk"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got.User != "alice" || got.Priority != PriorityMedium || got.Completed {
		t.Errorf("unexpected defaults: %+v", got)
	}
	if got.ID == "" || got.CreatedAt.IsZero() || got.CreatedAt.Location() != time.UTC {
		t.Errorf("expected id and UTC createdAt: %+v", got)
	}

	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	got, err = svc.Create(ctx, "alice", CreateInput{Title: "Report", Priority: PriorityHigh, DueDate: OptionalTime{Set: true, Value: &due}})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if got.Priority != PriorityHigh || got.DueDate == nil || !got.DueDate.Equal(due) || got.Reminder != nil {
		t.Errorf("unexpected task: %+v", got)
	}
}

func TestService_CreateValidation(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()

	if _, err := svc.Create(ctx, "alice", CreateInput{Title: " \t"}); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
	_, err := svc.Create(ctx, "alice", CreateInput{Title: "x", Priority: "Urgent"})
	if msg, ok := envelope.ValidationMessage(err); !ok || msg == "" {
		t.Fatalf("expected a validation error, got %v", err)
	}
	if _, err := svc.Create(ctx, "", CreateInput{Title: "x"}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if len(repo.store) != 0 {
		t.Fatalf("invalid input must not be stored")
	}
}

func TestService_UpdateOrderOfChecks(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	task, err := svc.Create(ctx, "alice", CreateInput{Title: "mine"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name   string
		caller string
		id     string
		patch  Patch
		want   error
	}{
		{"missing id", "alice", "nope", Patch{Title: strPtr("")}, ErrNotFound},
		{"not owner before validation", "bob", task.ID, Patch{Title: strPtr("")}, ErrNotOwner},
		{"blank title", "alice", task.ID, Patch{Title: strPtr("  ")}, ErrTitleRequired},
		{"owner change", "alice", task.ID, Patch{User: strPtr("bob")}, ErrOwnerImmutable},
		{"no caller", "", task.ID, Patch{}, ErrUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Update(ctx, tt.caller, tt.id, tt.patch); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	stored, err := svc.repo.Get(ctx, task.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored != task {
		t.Fatalf("rejected updates must leave the task unchanged: %+v", stored)
	}
}

func TestService_Authorize(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	task, err := svc.Create(ctx, "alice", CreateInput{Title: "mine"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		caller, id string
		want       error
	}{
		{"alice", task.ID, nil},
		{"bob", task.ID, ErrNotOwner},
		{"bob", "nope", ErrNotFound},
		{"", task.ID, ErrUnauthenticated},
	}
	for _, tt := range tests {
		if err := svc.Authorize(ctx, tt.caller, tt.id); !errors.Is(err, tt.want) {
			t.Errorf("Authorize(%q, %q) = %v, want %v", tt.caller, tt.id, err, tt.want)
		}
	}
}

func TestService_UpdatePartial(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	due := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	task, err := svc.Create(ctx, "alice", CreateInput{
		Title:       "Buy milk",
		Description: "semi-skimmed",
		Priority:    PriorityLow,
		DueDate:     OptionalTime{Set: true, Value: &due},
		Reminder:    OptionalTime{Set: true, Value: &due},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	done := true
	high := PriorityHigh
	got, err := svc.Update(ctx, "alice", task.ID, Patch{
		Completed: &done,
		Priority:  &high,
		DueDate:   OptionalTime{Set: true},
		User:      strPtr("alice"),
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !got.Completed || got.Priority != PriorityHigh || got.DueDate != nil {
		t.Errorf("patch not applied: %+v", got)
	}
	if got.Title != "Buy milk" || got.Description != "semi-skimmed" || got.Reminder == nil {
		t.Errorf("absent fields must be kept: %+v", got)
	}
	if got.ID != task.ID || got.User != "alice" || !got.CreatedAt.Equal(task.CreatedAt) {
		t.Errorf("identity fields changed: %+v", got)
	}
}

func TestService_DeleteAndList(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a, _ := svc.Create(ctx, "alice", CreateInput{Title: "a"})
	b, _ := svc.Create(ctx, "alice", CreateInput{Title: "b"})
	if _, err := svc.Create(ctx, "bob", CreateInput{Title: "c"}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := svc.Delete(ctx, "bob", a.ID); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
	if err := svc.Delete(ctx, "alice", a.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, "alice", a.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, err := svc.List(ctx, "alice", ListParams{Sort: "bogus", Filter: "bogus"})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if !equalIDs(list, b.ID) {
		t.Fatalf("expected only %s, got %v", b.ID, ids(list))
	}
	if _, err := svc.List(ctx, "", ListParams{}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestBuildQuery(t *testing.T) {
	tests := []struct {
		p         ListParams
		completed *bool
		sort      SortOrder
	}{
		{ListParams{}, nil, SortNewest},
		{ListParams{Filter: "completed", Sort: "dueDate"}, boolPtr(true), SortDueDate},
		{ListParams{Filter: "pending", Sort: "priority"}, boolPtr(false), SortPriority},
		{ListParams{Filter: "all", Sort: "title"}, nil, SortNewest},
	}
	for _, tt := range tests {
		q := BuildQuery("u", tt.p)
		if q.Owner != "u" || q.Sort != tt.sort {
			t.Errorf("BuildQuery(%+v) = %+v", tt.p, q)
		}
		if (q.Completed == nil) != (tt.completed == nil) || (q.Completed != nil && *q.Completed != *tt.completed) {
			t.Errorf("BuildQuery(%+v) completed = %v, want %v", tt.p, q.Completed, tt.completed)
		}
	}
}

func boolPtr(b bool) *bool { return &b }
