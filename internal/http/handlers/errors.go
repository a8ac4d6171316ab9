package handlers

// Error codes carried in ErrorResponse.Code. Clients branch on these rather
// than on messages. The generic codes follow the HTTP status; the publishing
// codes name the lifecycle rule that rejected the request.
//
//	{"request_id": "e1b9be03-...", "code": "not_connected", "message": "linkedin account not connected"}
//
// The rate limiter answers 429 with "too_many_requests" from the middleware
// package.
const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeMethodNotAllowed = "method_not_allowed"
	ErrCodeInternal         = "internal_error"

	// Publishing lifecycle.
	ErrCodeNotConnected    = "not_connected"    // no credential for the org
	ErrCodeNotDispatchable = "not_dispatchable" // claimed elsewhere or not pending
	ErrCodeNotCancellable  = "not_cancellable"  // already posted or failed
	ErrCodePublishFailed   = "publish_failed"
	ErrCodeSyncFailed      = "sync_failed"
	ErrCodeListFailed      = "list_failed"
)
