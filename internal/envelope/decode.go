package envelope

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const maxBodyBytes = 1 << 20

// DecodeError carries a client-safe description of why a request body was rejected.
type DecodeError struct {
	Msg string
}

func (e *DecodeError) Error() string { return e.Msg }

// Decode reads a single JSON object from the request body into dst, rejecting
// unknown fields, trailing data and oversized bodies.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &syntaxErr):
			return &DecodeError{Msg: fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxErr.Offset)}
		case errors.Is(err, io.ErrUnexpectedEOF):
			return &DecodeError{Msg: "Request body contains badly-formed JSON"}
		case errors.As(err, &typeErr):
			return &DecodeError{Msg: fmt.Sprintf("Request body contains an invalid value for the %q field", typeErr.Field)}
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			field := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return &DecodeError{Msg: fmt.Sprintf("Request body contains unknown field %s", field)}
		case errors.Is(err, io.EOF):
			return &DecodeError{Msg: "Request body must not be empty"}
		case errors.As(err, &maxErr):
			return &DecodeError{Msg: "Request body is too large"}
		default:
			// custom UnmarshalJSON implementations report their own messages
			return &DecodeError{Msg: err.Error()}
		}
	}
	if dec.More() {
		return &DecodeError{Msg: "Request body must only contain a single JSON object"}
	}
	return nil
}

// ValidationMessage extracts the client-facing text of input validation failures.
func ValidationMessage(err error) (string, bool) {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return verrs.Error(), true
	}
	return "", false
}
