package domain

import "errors"

var (
	// ErrAccountNotFound is returned when an account id does not resolve to a stored account.
	ErrAccountNotFound = errors.New("account not found")
	// ErrUnknownAccountType is returned when a type code has no catalog entry.
	ErrUnknownAccountType = errors.New("unknown account type")
	// ErrUpstreamUnavailable wraps failures of the customer or transaction services.
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	// ErrValidation marks requests that are missing required fields or carry invalid values.
	ErrValidation = errors.New("invalid request")
)
