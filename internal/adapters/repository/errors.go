package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound      = errors.New("competitor not found")
	ErrAlreadyExists = errors.New("competitor already exists")
	ErrInvalidLimit  = errors.New("invalid limit")
)
