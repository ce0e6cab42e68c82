package domain

import "errors"

// Business errors. All of them are recoverable; callers map them to a retry,
// a user prompt or a no-op. Anything else coming out of the core is a
// programming error or an infrastructure failure.
var (
	ErrNotFound          = errors.New("order not found")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidState      = errors.New("invalid order state")
	ErrAlreadyClaimed    = errors.New("order already claimed")
	ErrNotClaimed        = errors.New("order not claimed")
	ErrWrongWaiter       = errors.New("wrong waiter")
	ErrInvalidArgument   = errors.New("invalid argument")
)
