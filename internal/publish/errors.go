package publish

import (
	"fmt"
	"net/http"
	"strings"
)

type ErrorKind string

const (
	KindAuth         ErrorKind = "AUTH_ERROR"
	KindRateLimit    ErrorKind = "RATE_LIMIT"
	KindContent      ErrorKind = "CONTENT_ERROR"
	KindMedia        ErrorKind = "MEDIA_ERROR"
	KindPermission   ErrorKind = "PERMISSION_ERROR"
	KindAPI          ErrorKind = "API_ERROR"
	KindInternal     ErrorKind = "INTERNAL_ERROR"
	KindNotConnected ErrorKind = "NOT_CONNECTED"
	KindTokenExpired ErrorKind = "TOKEN_EXPIRED"
)

var kindStatus = map[ErrorKind]int{
	KindAuth:         http.StatusUnauthorized,
	KindRateLimit:    http.StatusTooManyRequests,
	KindContent:      http.StatusBadRequest,
	KindMedia:        http.StatusBadRequest,
	KindPermission:   http.StatusForbidden,
	KindAPI:          http.StatusInternalServerError,
	KindInternal:     http.StatusInternalServerError,
	KindNotConnected: http.StatusBadRequest,
	KindTokenExpired: http.StatusUnauthorized,
}

func (k ErrorKind) HTTPStatus() int {
	if status, ok := kindStatus[k]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Error is a failure that already carries its canonical kind. The classifier
// passes it through untouched.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	switch {
	case e.Message == "" && e.Err != nil:
		return e.Err.Error()
	case e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	default:
		return e.Message
	}
}

func (e *Error) Unwrap() error { return e.Err }

// ProviderError holds the diagnostic fields of an error response exactly as the
// provider sent them. Adapters return it unclassified.
type ProviderError struct {
	Provider   Provider
	StatusCode int
	Code       int
	Subcode    int
	CodeText   string
	Message    string
	// UserMessage is the end-user text some providers send next to Message.
	UserMessage string
}

func (e *ProviderError) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Provider))
	b.WriteString(": ")
	if e.Message != "" {
		b.WriteString(e.Message)
	} else {
		b.WriteString("request failed")
	}
	if e.UserMessage != "" && e.UserMessage != e.Message {
		b.WriteString(": ")
		b.WriteString(e.UserMessage)
	}
	var details []string
	if e.Code != 0 {
		details = append(details, fmt.Sprintf("code %d", e.Code))
	}
	if e.Subcode != 0 {
		details = append(details, fmt.Sprintf("subcode %d", e.Subcode))
	}
	if e.CodeText != "" {
		details = append(details, e.CodeText)
	}
	if e.StatusCode != 0 {
		details = append(details, fmt.Sprintf("status %d", e.StatusCode))
	}
	if len(details) > 0 {
		b.WriteString(" (")
		b.WriteString(strings.Join(details, ", "))
		b.WriteString(")")
	}
	return b.String()
}
