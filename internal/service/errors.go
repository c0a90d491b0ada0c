package service

import "errors"

// Service-level sentinel errors. The HTTP layer translates these to status
// codes; anything else is a 500 with a generic body.
var (
	ErrInvalidRequest = errors.New("invalid_request")

	// ErrNotFound covers unknown entities and unknown codes alike so
	// responses cannot be used as an existence oracle.
	ErrNotFound = errors.New("not_found")

	ErrAlreadyExists = errors.New("already_exists")

	// ErrAlreadyUsed reports a grant that is no longer ACTIVE, including the
	// loser of a concurrent double redemption.
	ErrAlreadyUsed = errors.New("already_used")

	ErrInvalidCredentials = errors.New("invalid_credentials")

	ErrRateLimited = errors.New("rate_limited")

	ErrForbidden = errors.New("forbidden")

	// ErrExpired reports a sub-user whose access window has elapsed. Only
	// returned after the credential itself verified.
	ErrExpired = errors.New("expired")
)
