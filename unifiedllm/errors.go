package unifiedllm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ErrorKind classifies a completion failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindAuth
	KindNotFound
	KindInvalidRequest
	KindContextLength
	KindQuota
	KindContentFilter
	KindRateLimit
	KindServer
	KindTimeout
	KindNetwork
	KindConfig
	KindAborted
)

var kindNames = map[ErrorKind]string{
	KindUnknown:        "unknown",
	KindAuth:           "auth",
	KindNotFound:       "not_found",
	KindInvalidRequest: "invalid_request",
	KindContextLength:  "context_length",
	KindQuota:          "quota",
	KindContentFilter:  "content_filter",
	KindRateLimit:      "rate_limit",
	KindServer:         "server",
	KindTimeout:        "timeout",
	KindNetwork:        "network",
	KindConfig:         "config",
	KindAborted:        "aborted",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Transient reports whether a failure of this kind may succeed on a later
// attempt. Unknown failures count as transient.
func (k ErrorKind) Transient() bool {
	switch k {
	case KindUnknown, KindRateLimit, KindServer, KindTimeout, KindNetwork:
		return true
	}
	return false
}

// Error is the single error type produced by the client, its middleware and
// provider adapters.
type Error struct {
	Kind     ErrorKind
	Provider string
	Status   int
	Message  string
	// RetryAfter is the server-requested wait, zero when absent.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		fmt.Fprintf(&b, "%s: ", e.Provider)
	}
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (%d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil && e.Err.Error() != e.Message {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error of the same kind, so errors.Is(err,
// &Error{Kind: KindRateLimit}) works as a kind test.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Provider == "" && t.Message == ""
}

func newError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err).Transient()
}

var statusKinds = map[int]ErrorKind{
	http.StatusBadRequest:            KindInvalidRequest,
	http.StatusUnprocessableEntity:   KindInvalidRequest,
	http.StatusUnauthorized:          KindAuth,
	http.StatusForbidden:             KindAuth,
	http.StatusPaymentRequired:       KindQuota,
	http.StatusNotFound:              KindNotFound,
	http.StatusRequestTimeout:        KindTimeout,
	http.StatusRequestEntityTooLarge: KindContextLength,
	http.StatusTooManyRequests:       KindRateLimit,
}

// FromStatus builds an Error for an HTTP status returned by provider.
func FromStatus(provider string, status int, msg string, retryAfter time.Duration) *Error {
	kind, ok := statusKinds[status]
	if !ok && status >= 500 {
		kind = KindServer
	}
	return &Error{
		Kind:       kind,
		Provider:   provider,
		Status:     status,
		Message:    msg,
		RetryAfter: retryAfter,
	}
}
