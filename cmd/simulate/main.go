package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/glicko/internal/simulate"
	"github.com/okian/glicko/pkg/logger"
)

// Default configuration constants.
const (
	defaultCompetitors   = 200
	defaultMatches       = 5000
	defaultTopN          = 20
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 30 * time.Second
	defaultSettleTimeout = time.Minute
	defaultRunTimeout    = 10 * time.Minute
)

func main() {
	// The service and the simulator share the same .env file.
	_ = godotenv.Load()

	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		competitors = flag.Int("competitors", defaultCompetitors, "Number of competitors to register")
		matches     = flag.Int("matches", defaultMatches, "Number of matches to submit")
		topN        = flag.Int("top", defaultTopN, "Number of leaderboard entries to print")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		key         = flag.String("key", os.Getenv("GLICKO_API_KEY"), "API key for /recalculate")
		seed        = flag.Uint64("seed", uint64(time.Now().UnixNano()), "Seed for strengths and outcomes")
		verbose     = flag.Bool("verbose", false, "Log every failed request")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simulate.ShowHelp(os.Stdout)
		return
	}

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	cfg := &simulate.Config{
		BaseURL:       *baseURL,
		Competitors:   *competitors,
		Matches:       *matches,
		TopN:          *topN,
		Workers:       *workers,
		Timeout:       *timeout,
		SettleTimeout: defaultSettleTimeout,
		APIKey:        *key,
		Seed:          *seed,
		Verbose:       *verbose,
	}

	if _, err := simulate.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "simulation failed", logger.Error(err))
		cancel()
		os.Exit(1)
	}
}
