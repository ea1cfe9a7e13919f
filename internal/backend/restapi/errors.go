package restapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized is wrapped by API errors with status 401.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrNotFound is wrapped by API errors with status 404.
	ErrNotFound = errors.New("not found")

	// ErrNoToken is returned by Login when the response carries no token.
	ErrNoToken = errors.New("token not found in response")
)

// APIError is a non-2xx response. Detail is the server's "detail" field
// when it sent one.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("request failed: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Unwrap maps well-known statuses to sentinel errors.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// Detail returns the server-provided detail of err, or "" when err is not
// an API error or the server sent none.
func Detail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}

const maxErrorBody = 64 << 10

// decodeAPIError reads a FastAPI-style error body:
// {"detail": "text"} or {"detail": [{"msg": "..."}, ...]}.
func decodeAPIError(r *http.Response) *APIError {
	apiErr := &APIError{StatusCode: r.StatusCode}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxErrorBody))
	if err != nil || len(body) == 0 {
		return apiErr
	}

	var wrapper struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil || len(wrapper.Detail) == 0 {
		return apiErr
	}
	apiErr.Detail = detailText(wrapper.Detail)
	return apiErr
}

func detailText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(raw, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}

	if string(raw) == "null" {
		return ""
	}
	return string(raw)
}
