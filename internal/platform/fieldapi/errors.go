package fieldapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a non-2xx answer from the field API.
type Error struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
	// Body is the decoded JSON body, nil when the body was not JSON.
	Body any
}

func (e *Error) Error() string {
	return fmt.Sprintf("fieldapi: %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Is lets errors.Is(err, ErrUpstream) match any API error.
func (e *Error) Is(target error) bool {
	return target == ErrUpstream
}

// StatusOf returns the upstream status code carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

var messageKeys = []string{"message", "mensaje", "error", "detail", "msg", "title"}

func newError(method, path string, status int, body any, raw []byte) *Error {
	msg := extractMessage(body)
	if msg == "" {
		if text := strings.TrimSpace(string(raw)); text != "" && body == nil && len(text) <= 200 {
			msg = text
		} else {
			msg = http.StatusText(status)
		}
	}
	return &Error{Method: method, Path: path, StatusCode: status, Message: msg, Body: body}
}

func extractMessage(body any) string {
	switch v := body.(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		for _, key := range messageKeys {
			value, ok := v[key]
			if !ok {
				continue
			}
			if msg := extractMessage(value); msg != "" {
				return msg
			}
		}
	}
	return ""
}
