package tasks

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/s1natex/tasktracker-api/internal/auth"
)

type taskEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    Task   `json:"data"`
}

type listEnvelope struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Data    []Task `json:"data"`
}

// newTestServer mounts the task routes behind a stub that trusts the X-Test-User header.
func newTestServer() (*chi.Mux, *InMemoryRepo) {
	repo := NewInMemoryRepo()
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if u := req.Header.Get("X-Test-User"); u != "" {
				req = req.WithContext(auth.WithCaller(req.Context(), auth.Identity{UserID: u}))
			}
			next.ServeHTTP(w, req)
		})
	})
	RegisterRoutes(r, NewService(repo), slog.New(slog.NewJSONHandler(io.Discard, nil)))
	return r, repo
}

func do(r http.Handler, method, path, user, body string) *httptest.ResponseRecorder {
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeTask(t *testing.T, rec *httptest.ResponseRecorder) taskEnvelope {
	t.Helper()
	var env taskEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to parse JSON: %v, body=%s", err, rec.Body.String())
	}
	return env
}

func decodeMessage(t *testing.T, rec *httptest.ResponseRecorder) (bool, string) {
	t.Helper()
	var env struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to parse JSON: %v, body=%s", err, rec.Body.String())
	}
	return env.Success, env.Message
}

func TestPostTasks_Success(t *testing.T) {
	r, _ := newTestServer()

	rec := do(r, http.MethodPost, "/tasks", "alice", `{"title":"Buy milk","user":"mallory","completed":true}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d, body=%s", rec.Code, rec.Body.String())
	}

	env := decodeTask(t, rec)
	got := env.Data
	if !env.Success || env.Message != "Task created successfully" {
		t.Errorf("unexpected envelope: %+v", env)
	}
	if got.ID == "" {
		t.Errorf("expected an id")
	}
	if got.User != "alice" {
		t.Errorf("owner must come from the token, got %q", got.User)
	}
	if got.Completed {
		t.Errorf("new tasks should default to completed=false")
	}
	if got.Priority != PriorityMedium {
		t.Errorf("expected default priority Medium, got %q", got.Priority)
	}
	if got.CreatedAt.IsZero() {
		t.Errorf("expected createdAt to be set")
	}
}

func TestPostTasks_BadRequests(t *testing.T) {
	r, repo := newTestServer()

	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"blank title", `{"title":"   "}`, "Title is required"},
		{"missing title", `{"description":"x"}`, "Title is required"},
		{"invalid json", `{"title":`, ""},
		{"unknown field", `{"title":"x","colour":"red"}`, ""},
		{"bad priority", `{"title":"x","priority":"Urgent"}`, ""},
		{"bad date", `{"title":"x","dueDate":"tomorrow"}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(r, http.MethodPost, "/tasks", "alice", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d, body=%s", rec.Code, rec.Body.String())
			}
			ok, msg := decodeMessage(t, rec)
			if ok || msg == "" {
				t.Fatalf("expected failure envelope with message, got success=%v message=%q", ok, msg)
			}
			if tt.msg != "" && msg != tt.msg {
				t.Errorf("expected message %q, got %q", tt.msg, msg)
			}
		})
	}

	if n := len(repo.store); n != 0 {
		t.Fatalf("rejected requests must not store tasks, have %d", n)
	}
}

func TestGetTasks_ScopedToCaller(t *testing.T) {
	r, _ := newTestServer()

	for _, title := range []string{"first", "second"} {
		if rec := do(r, http.MethodPost, "/tasks", "alice", `{"title":"`+title+`"}`); rec.Code != http.StatusCreated {
			t.Fatalf("seed: %d", rec.Code)
		}
	}
	do(r, http.MethodPost, "/tasks", "bob", `{"title":"bob's"}`)

	rec := do(r, http.MethodGet, "/tasks", "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	var env listEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to parse JSON: %v", err)
	}
	if !env.Success || env.Count != 2 || len(env.Data) != 2 {
		t.Fatalf("unexpected list envelope: %+v", env)
	}
	if env.Data[0].Title != "second" || env.Data[1].Title != "first" {
		t.Errorf("expected newest first, got %q, %q", env.Data[0].Title, env.Data[1].Title)
	}

	rec = do(r, http.MethodGet, "/tasks?filter=completed", "alice", "")
	if !bytes.Contains(rec.Body.Bytes(), []byte(`"data":[]`)) || !bytes.Contains(rec.Body.Bytes(), []byte(`"count":0`)) {
		t.Errorf("expected empty data array, got %s", rec.Body.String())
	}
}

func TestGetTasks_NoCaller(t *testing.T) {
	r, _ := newTestServer()

	rec := do(r, http.MethodGet, "/tasks", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestPutTasks(t *testing.T) {
	r, _ := newTestServer()

	env := decodeTask(t, do(r, http.MethodPost, "/tasks", "alice", `{"title":"Buy milk","dueDate":"2025-09-01"}`))
	id := env.Data.ID

	tests := []struct {
		name   string
		user   string
		path   string
		body   string
		status int
		msg    string
	}{
		{"unknown id", "alice", "/tasks/does-not-exist", `{"title":"x"}`, http.StatusNotFound, "Task not found"},
		{"other user", "bob", "/tasks/" + id, `{"title":"Hack"}`, http.StatusUnauthorized, "Not authorized"},
		{"other user, unknown id wins", "bob", "/tasks/nope", `{"title":"Hack"}`, http.StatusNotFound, "Task not found"},
		{"blank title", "alice", "/tasks/" + id, `{"title":""}`, http.StatusBadRequest, "Title is required"},
		{"owner change", "alice", "/tasks/" + id, `{"user":"bob"}`, http.StatusBadRequest, "Task owner cannot be changed"},
		{"invalid json", "alice", "/tasks/" + id, `{`, http.StatusBadRequest, ""},
		{"other user, unknown field", "bob", "/tasks/" + id, `{"foo":1}`, http.StatusUnauthorized, "Not authorized"},
		{"other user, invalid json", "bob", "/tasks/" + id, `{`, http.StatusUnauthorized, "Not authorized"},
		{"other user, bad date", "bob", "/tasks/" + id, `{"dueDate":"soon"}`, http.StatusUnauthorized, "Not authorized"},
		{"unknown id, invalid body", "alice", "/tasks/nope", `{"foo":1}`, http.StatusNotFound, "Task not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(r, http.MethodPut, tt.path, tt.user, tt.body)
			if rec.Code != tt.status {
				t.Fatalf("expected %d, got %d, body=%s", tt.status, rec.Code, rec.Body.String())
			}
			if ok, msg := decodeMessage(t, rec); ok || (tt.msg != "" && msg != tt.msg) {
				t.Errorf("unexpected envelope: success=%v message=%q", ok, msg)
			}
		})
	}

	rec := do(r, http.MethodPut, "/tasks/"+id, "alice", `{"title":"Buy oat milk","completed":true,"dueDate":null,"user":"alice"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	got := decodeTask(t, rec)
	if got.Message != "Task updated successfully" {
		t.Errorf("unexpected message %q", got.Message)
	}
	if got.Data.Title != "Buy oat milk" || !got.Data.Completed || got.Data.DueDate != nil || got.Data.User != "alice" {
		t.Errorf("update not applied: %+v", got.Data)
	}
	if !got.Data.CreatedAt.Equal(env.Data.CreatedAt) {
		t.Errorf("createdAt changed: %v -> %v", env.Data.CreatedAt, got.Data.CreatedAt)
	}
}

func TestDeleteTasks(t *testing.T) {
	r, _ := newTestServer()

	id := decodeTask(t, do(r, http.MethodPost, "/tasks", "alice", `{"title":"temp"}`)).Data.ID

	if rec := do(r, http.MethodDelete, "/tasks/"+id, "bob", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-owner, got %d", rec.Code)
	}

	rec := do(r, http.MethodDelete, "/tasks/"+id, "alice", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d, body=%s", rec.Code, rec.Body.String())
	}
	if ok, msg := decodeMessage(t, rec); !ok || msg != "Task deleted successfully" {
		t.Errorf("unexpected envelope: success=%v message=%q", ok, msg)
	}

	if rec := do(r, http.MethodDelete, "/tasks/"+id, "alice", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}
