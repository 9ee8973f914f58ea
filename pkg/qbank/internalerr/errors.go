package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrIndexUnreadable = errors.New("topic index unreadable")
	ErrMoveFailed      = errors.New("move failed")
	ErrLocked          = errors.New("corpus locked by another run")
)
