// Package envelope writes the uniform JSON response wrapper shared by every endpoint.
package envelope

import (
	"net/http"

	"github.com/go-chi/render"
)

// Envelope is the {success, data?, message?, count?} body of every response.
type Envelope struct {
	Success bool   `json:"success"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK writes a successful envelope carrying data and an optional message.
func OK(w http.ResponseWriter, r *http.Request, status int, data any, message string) {
	Write(w, r, status, Envelope{Success: true, Data: data, Message: message})
}

// List writes a successful envelope for a collection, including its size.
func List[T any](w http.ResponseWriter, r *http.Request, items []T) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	Write(w, r, http.StatusOK, Envelope{Success: true, Count: &n, Data: items})
}

// Fail writes an unsuccessful envelope. message must be safe to show to clients.
func Fail(w http.ResponseWriter, r *http.Request, status int, message string) {
	Write(w, r, status, Envelope{Success: false, Message: message})
}

func Write(w http.ResponseWriter, r *http.Request, status int, env Envelope) {
	render.Status(r, status)
	render.JSON(w, r, env)
}
