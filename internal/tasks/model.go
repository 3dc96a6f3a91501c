package tasks

import "time"

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// rank orders priorities High first; unknown values sort after Low.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

type Task struct {
	ID          string     `json:"id"`
	User        string     `json:"user"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	Reminder    *time.Time `json:"reminder"`
	Completed   bool       `json:"completed"`
	CreatedAt   time.Time  `json:"createdAt"`
}

type SortOrder int

const (
	SortNewest SortOrder = iota
	SortDueDate
	SortPriority
)

// ListParams are the raw filter, search and sort query parameters of a listing.
type ListParams struct {
	Filter string
	Search string
	Sort   string
}

// Query is a listing scoped to one owner. Search is a literal, case-insensitive
// substring matched against title or description.
type Query struct {
	Owner     string
	Completed *bool
	Search    string
	Sort      SortOrder
}

// BuildQuery scopes a listing to caller. Unknown filter and sort values are ignored.
func BuildQuery(caller string, p ListParams) Query {
	q := Query{Owner: caller, Search: p.Search}
	switch p.Filter {
	case "completed":
		done := true
		q.Completed = &done
	case "pending":
		done := false
		q.Completed = &done
	}
	switch p.Sort {
	case "dueDate":
		q.Sort = SortDueDate
	case "priority":
		q.Sort = SortPriority
	default:
		q.Sort = SortNewest
	}
	return q
}
