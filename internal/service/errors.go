package service

import "errors"

var (
	// ErrPoolNotFound is returned when a draw targets an unknown prize pool
	ErrPoolNotFound = errors.New("prize pool not found")

	// ErrPoolInactive is returned when a draw targets a deactivated pool
	ErrPoolInactive = errors.New("prize pool is not active")

	// ErrInsufficientBalance is returned when the user cannot afford the
	// draw cost or spin stake; no state has been mutated
	ErrInsufficientBalance = errors.New("insufficient point balance")

	// ErrNoStock is returned when the pool has no drawable entries left;
	// the user's daily attempt is not consumed
	ErrNoStock = errors.New("prize pool out of stock")

	// ErrDailyLimitExceeded is returned when the user reached the pool's
	// daily draw limit
	ErrDailyLimitExceeded = errors.New("daily draw limit exceeded")

	// ErrAlreadyClaimed is returned when the user already claimed a
	// once-ever pool
	ErrAlreadyClaimed = errors.New("reward already claimed")

	// ErrConfigInconsistent is returned when the pool or reel configuration
	// cannot support a well-defined draw; new draws are blocked until an
	// admin fixes the configuration
	ErrConfigInconsistent = errors.New("reward configuration inconsistent")

	// ErrReelConfigNotFound is returned when a spin targets an unknown reel
	// configuration
	ErrReelConfigNotFound = errors.New("reel configuration not found")

	// ErrInvalidRequest is returned when request data is invalid or incomplete
	ErrInvalidRequest = errors.New("invalid request")
)
