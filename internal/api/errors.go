package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrUnauthorized matches any *StatusError with a 401 status.
var ErrUnauthorized = errors.New("unauthorized")

// StatusError is a response the server rejected with a 4xx/5xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrUnauthorized) match 401 responses.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.StatusCode == http.StatusUnauthorized
}

// TransportError means the server could not be reached at all.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("cannot reach server, check your connection: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ErrorMessage extracts a human-readable message from an error body.
// It understands {"message": ...}, {"error": ...} and {"detail": ...} where
// detail is either a string or a list of {"loc": [...], "msg": ...} items.
// Bodies it cannot read fall back to "server error: <code>".
func ErrorMessage(code int, body []byte) string {
	var fields map[string]json.RawMessage
	if len(body) > 0 && json.Unmarshal(body, &fields) == nil {
		for _, key := range []string{"message", "error"} {
			var s string
			if raw, ok := fields[key]; ok && json.Unmarshal(raw, &s) == nil && s != "" {
				return s
			}
		}
		if raw, ok := fields["detail"]; ok {
			if msg := detailMessage(raw); msg != "" {
				return msg
			}
		}
	}
	return fmt.Sprintf("server error: %d", code)
}

type validationDetail struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

func detailMessage(raw json.RawMessage) string {
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}

	var items []validationDetail
	if json.Unmarshal(raw, &items) != nil {
		return ""
	}
	msgs := make([]string, 0, len(items))
	for _, item := range items {
		if item.Msg == "" {
			continue
		}
		field := ""
		if n := len(item.Loc); n > 0 {
			field = fmt.Sprint(item.Loc[n-1])
		}
		if field != "" {
			msgs = append(msgs, field+": "+item.Msg)
		} else {
			msgs = append(msgs, item.Msg)
		}
	}
	return strings.Join(msgs, "; ")
}
