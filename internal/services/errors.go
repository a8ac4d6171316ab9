// Package services defines the business logic of the publisher: credential
// resolution, asset upload, payload composition, protocol selection, the
// scheduled-post state machine and engagement reconciliation.
//
// This file centralizes the service-level error values and the typed errors
// of the publish pipeline so that callers can branch with errors.Is/As.
// Translation into HTTP status codes happens in the handler layer.
package services

import (
	"errors"
	"fmt"
)

// Lifecycle and lookup errors.
var (
	// ErrScheduledPostNotFound indicates that no scheduled post has the given id.
	ErrScheduledPostNotFound = errors.New("scheduled post not found")

	// ErrDraftNotFound indicates that the scheduled post references a missing draft.
	ErrDraftNotFound = errors.New("draft not found")

	// ErrNotConnected is returned when no valid access token exists for the
	// resolving identity. It is terminal and leaves the post status unchanged.
	ErrNotConnected = errors.New("linkedin account not connected")

	// ErrNotDispatchable is returned when a publish is requested for a post
	// that is cancelled, failed or already being published.
	ErrNotDispatchable = errors.New("scheduled post is not dispatchable")

	// ErrAlreadyClaimed is returned when another caller won the
	// scheduled|queued -> posting transition.
	ErrAlreadyClaimed = errors.New("scheduled post already claimed")

	// ErrNotCancellable is returned when cancel is requested after dispatch
	// began or the post is already terminal.
	ErrNotCancellable = errors.New("scheduled post cannot be cancelled")
)

// UploadReason classifies a failed asset upload.
type UploadReason string

const (
	UploadFetchFailed    UploadReason = "fetch_failed"
	UploadRegisterFailed UploadReason = "register_failed"
	UploadPutFailed      UploadReason = "put_failed"
	// UploadSettleInterrupted means the bytes were stored but the publish
	// was cancelled during the image settle wait.
	UploadSettleInterrupted UploadReason = "settle_interrupted"
)

// UploadError reports a single asset that could not be uploaded. It is never
// fatal to a publish on its own.
type UploadError struct {
	Reason UploadReason
	URL    string
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload %s: %s: %v", e.Reason, e.URL, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// ComposeError reports a draft that cannot be turned into a payload.
type ComposeError struct {
	Detail string
}

func (e *ComposeError) Error() string { return "compose: " + e.Detail }

// PublishErrorKind classifies a failed post-creation attempt.
type PublishErrorKind string

const (
	// TransientServer is a platform 5xx or transport failure; retried within budget.
	TransientServer PublishErrorKind = "transient_server"
	// ValidationRejected is any other non-2xx; never retried.
	ValidationRejected PublishErrorKind = "validation_rejected"
)

// PublishError is the terminal error of one strategy execution.
type PublishError struct {
	Kind       PublishErrorKind
	StatusCode int
	Detail     string
}

func (e *PublishError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("publish %s (status %d): %s", e.Kind, e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("publish %s: %s", e.Kind, e.Detail)
}
