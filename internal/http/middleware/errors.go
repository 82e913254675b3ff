package middleware

// Error codes written by middleware that aborts a request before it reaches a
// handler. They share the ErrorResponse envelope of the handlers package.
const (
	CodeTooManyRequests    = "too_many_requests"
	CodeBadIdempotencyKey  = "bad_idempotency_key"
	CodeStorageUnavailable = "storage_unavailable"
	CodeInternal           = "internal_error"
)
