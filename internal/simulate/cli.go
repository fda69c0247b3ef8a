package simulate

import (
	"io"
	"os"
)

// ShowHelp prints usage information for the simulation tool.
func ShowHelp(w io.Writer) {
	if w == nil {
		w = os.Stdout
	}
	_, _ = io.WriteString(w, `Glicko rating simulator
=======================

Registers synthetic competitors with hidden strengths, submits random
matches decided by those strengths, closes the rating period and prints
the resulting leaderboard.

Usage:
  go run ./cmd/simulate [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -competitors int
        Number of competitors to register (default 200)
  -matches int
        Number of matches to submit (default 5000)
  -top int
        Number of leaderboard entries to print (default 20)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -key string
        API key for /recalculate (default $GLICKO_API_KEY, also read from .env)
  -seed uint
        Seed for strengths and outcomes (default: current time)
  -verbose
        Log every failed request
  -help
        Show this help message
`)
}
