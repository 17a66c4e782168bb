// Package sperr defines the error taxonomy shared by the Sparkplug client
// library. Every public operation returns either nil or an *Error; callers
// match on the Kind with errors.Is.
package sperr

import (
	"errors"
	"fmt"
)

// Kind classifies a library error.
type Kind int

const (
	// NotConnected means the operation requires a Connected session.
	NotConnected Kind = iota
	// ConnectFailed means the transport refused or timed out while connecting.
	ConnectFailed
	// DisconnectFailed means the transport reported a failure on disconnect;
	// the session still transitions to Disconnected.
	DisconnectFailed
	// PublishFailed means the transport rejected a publish.
	PublishFailed
	// SubscribeFailed means the transport rejected a subscribe.
	SubscribeFailed
	// Timeout means a blocking operation exceeded its bound.
	Timeout
	// PreconditionViolated means a protocol ordering rule was broken by the
	// caller, e.g. DBIRTH before NBIRTH.
	PreconditionViolated
	// TopicInvalid means a topic string could not be parsed.
	TopicInvalid
	// PayloadDecodeFailed means bytes did not decode to the Tahu schema.
	PayloadDecodeFailed
)

var kindNames = map[Kind]string{
	NotConnected:         "not connected",
	ConnectFailed:        "connect failed",
	DisconnectFailed:     "disconnect failed",
	PublishFailed:        "publish failed",
	SubscribeFailed:      "subscribe failed",
	Timeout:              "timeout",
	PreconditionViolated: "precondition violated",
	TopicInvalid:         "invalid topic",
	PayloadDecodeFailed:  "payload decode failed",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown error"
}

// Error carries the kind, a human-readable detail, and an optional cause.
type Error struct {
	Kind   Kind
	Detail string
	Cause  error
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Detail, e.Cause)
	case e.Detail != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Cause)
	}
	return e.Kind.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same Kind, so
// errors.Is(err, &sperr.Error{Kind: sperr.NotConnected}) holds regardless of
// detail text.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New builds an error of the given kind with a formatted detail.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...)}
}

// Wrap builds an error of the given kind around a cause.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Detail: fmt.Sprintf(format, args...), Cause: cause}
}

// KindOf extracts the Kind of err, or ok=false for foreign errors.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsKind reports whether err is a library error of the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
