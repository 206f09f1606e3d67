// Package errs defines the discriminated error kinds surfaced across the
// capture-and-clip engine (spec §7). Each kind wraps an underlying cause and
// is distinguishable via errors.Is against the sentinel Kind values.
package errs

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories from the error-handling design.
type Kind string

const (
	// KindTapAttachFailed: tab not capturable, tap refused to attach.
	KindTapAttachFailed Kind = "tap_attach_failed"
	// KindTapBodyUnavailable: response body too large or expired by the time it was requested.
	KindTapBodyUnavailable Kind = "tap_body_unavailable"
	// KindStoreTransient: quota exceeded or store contention; caller may retry.
	KindStoreTransient Kind = "store_transient"
	// KindStoreClosed: an operation was attempted after the store was torn down.
	KindStoreClosed Kind = "store_closed"
	// KindDuplicateID: append rejected because the identifier already exists in the stream.
	KindDuplicateID Kind = "duplicate_id"
	// KindConfigMissing: a required configuration value (e.g. endpoint) was absent.
	KindConfigMissing Kind = "config_missing"
	// KindRemoteStoreError: the remote object store responded with a non-2xx status.
	KindRemoteStoreError Kind = "remote_store_error"
	// KindBlobOrphaned: the blob upload succeeded but the row write failed afterward.
	KindBlobOrphaned Kind = "blob_orphaned"
	// KindCancelled: the caller cancelled the operation before it completed.
	KindCancelled Kind = "cancelled"
)

// Error is the concrete error type carrying a Kind plus contextual detail.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Status and Body carry the remote response for KindRemoteStoreError.
	Status int
	Body   string
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is allows errors.Is(err, errs.Sentinel(kind)) style checks by treating a
// kind sentinel as a target that matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	var k kindSentinel
	if errors.As(target, &k) {
		return e.Kind == Kind(k)
	}
	return false
}

// kindSentinel lets bare Kind constants participate in errors.Is.
type kindSentinel Kind

func (k kindSentinel) Error() string { return string(k) }

// Sentinel returns an error value usable as an errors.Is target for kind.
func Sentinel(kind Kind) error { return kindSentinel(kind) }

// New builds an *Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds an *Error of the given kind around an existing cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// RemoteStore builds a KindRemoteStoreError carrying the response status/body.
func RemoteStore(status int, body string) *Error {
	return &Error{
		Kind:    KindRemoteStoreError,
		Message: fmt.Sprintf("remote store responded %d", status),
		Status:  status,
		Body:    body,
	}
}

// OfKind reports whether err is an *Error of the given kind.
func OfKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
