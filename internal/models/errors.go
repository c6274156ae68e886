package models

import "errors"

var (
	ErrNotFound          = errors.New("record not found")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrInvalidState      = errors.New("delivery is not retryable in its current status")
	ErrRetryExhausted    = errors.New("retry limit reached")
	ErrValidation        = errors.New("missing or invalid field")
)
