// Package handlers defines the HTTP-layer error codes used across all API
// endpoints. Codes are stable, lowercase snake_case strings returned in the
// `code` field of ErrorResponse; clients branch on them rather than on
// messages.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "comment_too_long",
//	  "message": "comment too long"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeNotFound         = "not_found"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeInvalidRating     = "invalid_rating"
	ErrCodeCommentTooLong    = "comment_too_long"
	ErrCodeInvalidProfile    = "invalid_profile"
	ErrCodeRemoteUnavailable = "remote_unavailable"
	ErrCodeStorage           = "storage_failed"
	ErrCodeInvalidPattern    = "invalid_pattern"
)
