package period

import "errors"

// Sentinel kinds for ledger errors.
var (
	ErrInvalidMatch = errors.New("invalid match")
)
