package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidStartDay indicates a period start day outside 1-31.
	ErrInvalidStartDay = errors.New("period start day must be between 1 and 31")
	// ErrInvalidAmount indicates a negative assignment amount.
	ErrInvalidAmount = errors.New("assignment amount must not be negative")
	// ErrDataUnavailable indicates a ledger or directory query failed.
	// Zero activity is a valid outcome, unknown activity is not; callers
	// must fail the read instead of substituting zeros.
	ErrDataUnavailable = errors.New("source data unavailable")
	// ErrUnknownCategory indicates a write referenced a category that does
	// not exist for the household.
	ErrUnknownCategory = errors.New("unknown category")
)
