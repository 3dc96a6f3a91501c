package tasks

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 2000
)

var priorities = []any{PriorityHigh, PriorityMedium, PriorityLow}

// OptionalTime distinguishes an absent JSON field from an explicit null.
// Set is true whenever the field appeared in the body; Value is nil for null or "".
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *OptionalTime) UnmarshalJSON(b []byte) error {
	o.Set = true
	o.Value = nil
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("dates must be strings in RFC 3339 or YYYY-MM-DD format")
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	o.Value = &t
	return nil
}

// ParseDate accepts RFC 3339 or YYYY-MM-DD and returns UTC truncated to the
// microsecond, the precision every store keeps.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC().Truncate(time.Microsecond), nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q: use RFC 3339 or YYYY-MM-DD", s)
}

// CreateInput is the body of POST /tasks. Owner, completion, id and creation time
// are server-assigned; the matching body fields are accepted and ignored.
type CreateInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Priority    Priority        `json:"priority"`
	DueDate     OptionalTime    `json:"dueDate"`
	Reminder    OptionalTime    `json:"reminder"`
	User        json.RawMessage `json:"user"`
	Completed   json.RawMessage `json:"completed"`
	ID          json.RawMessage `json:"id"`
	CreatedAt   json.RawMessage `json:"createdAt"`
}

func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return ErrTitleRequired
	}
	return validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.RuneLength(1, maxTitleLen)),
		validation.Field(&in.Description, validation.RuneLength(0, maxDescriptionLen)),
		validation.Field(&in.Priority, validation.In(priorities...).Error("must be one of High, Medium, Low")),
	)
}

// Patch is the body of PUT /tasks/{id}. Nil fields and unset dates are left untouched.
type Patch struct {
	Title       *string         `json:"title"`
	Description *string         `json:"description"`
	Priority    *Priority       `json:"priority"`
	DueDate     OptionalTime    `json:"dueDate"`
	Reminder    OptionalTime    `json:"reminder"`
	Completed   *bool           `json:"completed"`
	User        *string         `json:"user"`
	ID          json.RawMessage `json:"id"`
	CreatedAt   json.RawMessage `json:"createdAt"`
}

func (p Patch) Validate() error {
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return ErrTitleRequired
	}
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.RuneLength(1, maxTitleLen)),
		validation.Field(&p.Description, validation.RuneLength(0, maxDescriptionLen)),
		validation.Field(&p.Priority, validation.NilOrNotEmpty, validation.In(priorities...).Error("must be one of High, Medium, Low")),
	)
}

// Apply merges the present fields onto t. The owner is never changed here.
func (p Patch) Apply(t *Task) {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate.Set {
		t.DueDate = p.DueDate.Value
	}
	if p.Reminder.Set {
		t.Reminder = p.Reminder.Value
	}
	if p.Completed != nil {
		t.Completed = *p.Completed
	}
}
