package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrUnauthorized matches (errors.Is) any APIError with status 401.
var ErrUnauthorized = errors.New("unauthorized")

// FallbackMessage is shown when the server gave nothing usable.
const FallbackMessage = "Something went wrong. Please try again."

// APIError is a non-2xx response decoded from either error envelope:
// {"errors": {"field": ["msg"]}} or {"message": "..."} / {"title": "..."}.
type APIError struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *APIError) Error() string {
	msgs := e.FieldMessages()
	switch {
	case len(msgs) > 0:
		return fmt.Sprintf("api: %d: %s", e.Status, strings.Join(msgs, "; "))
	case e.Message != "":
		return fmt.Sprintf("api: %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("api: %d %s", e.Status, http.StatusText(e.Status))
	}
}

func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// FieldMessages flattens the field errors, ordered by field name.
func (e *APIError) FieldMessages() []string {
	fields := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	var out []string
	for _, f := range fields {
		for _, m := range e.Fields[f] {
			if m = strings.TrimSpace(m); m != "" {
				out = append(out, m)
			}
		}
	}
	return out
}

type errorEnvelope struct {
	Errors  map[string][]string `json:"errors"`
	Message string              `json:"message"`
	Title   string              `json:"title"`
}

func decodeError(status int, body []byte) *APIError {
	e := &APIError{Status: status}
	var env errorEnvelope
	if err := json.Unmarshal(body, &env); err == nil {
		e.Fields = env.Errors
		e.Message = env.Message
		if e.Message == "" {
			e.Message = env.Title
		}
	}
	return e
}

// Messages extracts what to show the user from err, in priority order: the
// field error list, the message field, fallback.
func Messages(err error, fallback string) []string {
	if fallback == "" {
		fallback = FallbackMessage
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msgs := apiErr.FieldMessages(); len(msgs) > 0 {
			return msgs
		}
		if apiErr.Message != "" {
			return []string{apiErr.Message}
		}
	}
	return []string{fallback}
}
