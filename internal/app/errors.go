package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrInvalidCompetitor = errors.New("invalid competitor")
	ErrUnknownCompetitor = errors.New("unknown competitor")
	ErrBackpressure      = errors.New("match queue is full")
)
