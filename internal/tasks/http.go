package tasks

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/s1natex/tasktracker-api/internal/auth"
	"github.com/s1natex/tasktracker-api/internal/envelope"
)

// RegisterRoutes mounts the task endpoints. They expect auth.WithCaller to have run.
func RegisterRoutes(r chi.Router, svc *Service, logger *slog.Logger) {
	r.Get("/tasks", listTasks(svc, logger))
	r.Post("/tasks", createTask(svc, logger))
	r.Put("/tasks/{id}", updateTask(svc, logger))
	r.Delete("/tasks/{id}", deleteTask(svc, logger))
}

func listTasks(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := callerID(r)
		q := r.URL.Query()

		list, err := svc.List(r.Context(), caller, ListParams{
			Filter: q.Get("filter"),
			Search: q.Get("search"),
			Sort:   q.Get("sort"),
		})
		if err != nil {
			writeError(w, r, logger, "list", caller, "", err, "Server error while fetching tasks")
			return
		}
		envelope.List(w, r, list)
	}
}

func createTask(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := callerID(r)

		var in CreateInput
		if err := envelope.Decode(w, r, &in); err != nil {
			writeError(w, r, logger, "create", caller, "", err, "")
			return
		}

		t, err := svc.Create(r.Context(), caller, in)
		if err != nil {
			writeError(w, r, logger, "create", caller, "", err, "Server error while creating task")
			return
		}
		envelope.OK(w, r, http.StatusCreated, t, "Task created successfully")
	}
}

func updateTask(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := callerID(r)
		id := chi.URLParam(r, "id")

		if err := svc.Authorize(r.Context(), caller, id); err != nil {
			writeError(w, r, logger, "update", caller, id, err, "Server error while updating task")
			return
		}

		var patch Patch
		if err := envelope.Decode(w, r, &patch); err != nil {
			writeError(w, r, logger, "update", caller, id, err, "")
			return
		}

		t, err := svc.Update(r.Context(), caller, id, patch)
		if err != nil {
			writeError(w, r, logger, "update", caller, id, err, "Server error while updating task")
			return
		}
		envelope.OK(w, r, http.StatusOK, t, "Task updated successfully")
	}
}

func deleteTask(svc *Service, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller := callerID(r)
		id := chi.URLParam(r, "id")

		if err := svc.Delete(r.Context(), caller, id); err != nil {
			writeError(w, r, logger, "delete", caller, id, err, "Server error while deleting task")
			return
		}
		envelope.OK(w, r, http.StatusOK, nil, "Task deleted successfully")
	}
}

func callerID(r *http.Request) string {
	id, _ := auth.CallerFrom(r.Context())
	return id.UserID
}

// writeError maps a failure to its status and client message and logs it. Storage
// failures are answered with internalMsg only; their detail stays in the log.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op, caller, taskID string, err error, internalMsg string) {
	status, msg := http.StatusInternalServerError, internalMsg

	var decErr *envelope.DecodeError
	switch {
	case errors.As(err, &decErr):
		status, msg = http.StatusBadRequest, decErr.Msg
	case errors.Is(err, ErrTitleRequired):
		status, msg = http.StatusBadRequest, "Title is required"
	case errors.Is(err, ErrOwnerImmutable):
		status, msg = http.StatusBadRequest, "Task owner cannot be changed"
	case errors.Is(err, ErrNotFound):
		status, msg = http.StatusNotFound, "Task not found"
	// another user's task answers 401, not 403
	case errors.Is(err, ErrNotOwner):
		status, msg = http.StatusUnauthorized, "Not authorized"
	case errors.Is(err, ErrUnauthenticated):
		status, msg = http.StatusUnauthorized, "Not authorized, no token"
	default:
		if vmsg, ok := envelope.ValidationMessage(err); ok {
			status, msg = http.StatusBadRequest, vmsg
		}
	}

	attrs := []any{
		slog.String("op", op),
		slog.String("user_id", caller),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	}
	if taskID != "" {
		attrs = append(attrs, slog.String("task_id", taskID))
	}
	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	logger.Log(r.Context(), level, "task_"+op+"_failed", attrs...)

	envelope.Fail(w, r, status, msg)
}
