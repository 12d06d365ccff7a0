package data

import "errors"

// Shared sentinel errors for data-layer repositories.
var (
	ErrExternalIDRequired = errors.New("external_id is required")
	ErrAccountIDRequired  = errors.New("account_id is required")
	ErrInvalidRank        = errors.New("invalid rank")
)
