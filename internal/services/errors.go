// Package services defines the business logic for favorites, reviews, the
// local profile and remote recipe browsing. This file centralizes
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// Translation into user-facing messages or HTTP status codes is performed at
// the handler layer.
package services

import "errors"

// Validation errors. These are returned before any write is attempted.
var (
	// ErrInvalidRecipeID is returned when a recipe identifier is blank or too long.
	ErrInvalidRecipeID = errors.New("invalid recipe id")

	// ErrInvalidRating is returned when a rating is outside 1..5.
	ErrInvalidRating = errors.New("rating must be between 1 and 5")

	// ErrCommentTooLong is returned when a review comment exceeds the limit.
	ErrCommentTooLong = errors.New("comment too long")

	// ErrEmptyUsername is returned when a profile is saved without a username.
	ErrEmptyUsername = errors.New("username is empty")

	// ErrUsernameTooLong is returned when a username exceeds the limit.
	ErrUsernameTooLong = errors.New("username too long")

	// ErrBioTooLong is returned when a bio exceeds the limit.
	ErrBioTooLong = errors.New("bio too long")

	// ErrInvalidAvatar is returned when an avatar is not an image data URL
	// or is larger than allowed.
	ErrInvalidAvatar = errors.New("avatar must be an image of at most 2MB")
)

// Lookup and availability errors.
var (
	// ErrRecipeNotFound indicates the remote API has no such recipe.
	ErrRecipeNotFound = errors.New("recipe not found")

	// ErrReviewNotFound indicates no review with that id exists.
	ErrReviewNotFound = errors.New("review not found")

	// ErrRemoteUnavailable is returned when a primary read needs the remote
	// API and it failed with no local data to fall back on.
	ErrRemoteUnavailable = errors.New("remote recipe service unavailable")

	// ErrStorage is returned when local storage could not be written.
	ErrStorage = errors.New("local storage write failed")
)

// ErrInvalidPattern is returned when a cache invalidation pattern does not compile.
var ErrInvalidPattern = errors.New("invalid pattern")
