package glicko

import "errors"

// Sentinel kinds for rating computation errors. Callers match them with errors.Is.
var (
	ErrInvalidInput    = errors.New("invalid rating input")
	ErrNonConvergence  = errors.New("volatility iteration did not converge")
	ErrDegenerateInput = errors.New("degenerate rating input")
)
