package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidChannelName = errors.New("invalid channel name")
	ErrUnauthorized       = errors.New("not authorized")
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
