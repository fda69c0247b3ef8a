package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/glicko/pkg/logger"
)

// Submission results.
const (
	resultAccepted  = "accepted"
	resultDuplicate = "duplicate"
	resultFailed    = "failed"
)

// HTTPClient wraps http.Client with the service base URL.
type HTTPClient struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func newHTTPClient(cfg *Config) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}
}

// do sends a request and decodes a JSON response into out when the status
// is one of want.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any, want ...int) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	for _, status := range want {
		if resp.StatusCode == status {
			if out != nil {
				if err := json.Unmarshal(data, out); err != nil {
					return resp.StatusCode, fmt.Errorf("parse response: %w", err)
				}
			}
			return resp.StatusCode, nil
		}
	}
	return resp.StatusCode, fmt.Errorf("%s %s: HTTP %d: %s", method, path, resp.StatusCode, bytes.TrimSpace(data))
}

// fanOut runs fn for every index in [0, n) on workers goroutines and counts
// the results fn reports.
func fanOut(ctx context.Context, workers, n int, label string, fn func(i int) string) map[string]int {
	var (
		mu     sync.Mutex
		counts = map[string]int{}
		done   atomic.Int64
		wg     sync.WaitGroup
	)
	if workers < 1 {
		workers = 1
	}

	indices := make(chan int, workers*2)
	stopProgress := make(chan struct{})
	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-stopProgress:
				return
			case <-ticker.C:
				logger.Get().Info(ctx, "progress", logger.String("step", label),
					logger.Int("done", int(done.Load())), logger.Int("total", n))
			}
		}
	}()

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range indices {
				if ctx.Err() != nil {
					continue
				}
				result := fn(i)
				done.Add(1)
				mu.Lock()
				counts[result]++
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(indices)
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case indices <- i:
			}
		}
	}()

	wg.Wait()
	close(stopProgress)
	return counts
}

// registerCompetitors registers every competitor concurrently.
func registerCompetitors(ctx context.Context, cfg *Config, client *HTTPClient, competitors []Competitor) (int, error) {
	counts := fanOut(ctx, cfg.Workers, len(competitors), "register", func(i int) string {
		body := map[string]string{"id": competitors[i].ID}
		if _, err := client.do(ctx, http.MethodPost, "/competitors", body, nil, http.StatusCreated); err != nil {
			if cfg.Verbose {
				logger.Get().Warn(ctx, "registration failed", logger.String("competitorID", competitors[i].ID), logger.Error(err))
			}
			return resultFailed
		}
		return resultAccepted
	})
	if failed := counts[resultFailed]; failed > 0 {
		return counts[resultAccepted], fmt.Errorf("%d of %d registrations failed", failed, len(competitors))
	}
	return counts[resultAccepted], ctx.Err()
}

// submitMatches posts every match concurrently and fills the submission stats.
func submitMatches(ctx context.Context, cfg *Config, client *HTTPClient, matches []MatchRequest, stats *Stats) {
	counts := fanOut(ctx, cfg.Workers, len(matches), "submit", func(i int) string {
		var ack AckResponse
		status, err := client.do(ctx, http.MethodPost, "/matches", matches[i], &ack, http.StatusAccepted, http.StatusOK)
		switch {
		case err != nil:
			if cfg.Verbose {
				logger.Get().Warn(ctx, "submission failed", logger.String("matchID", matches[i].MatchID), logger.Error(err))
			}
			return resultFailed
		case status == http.StatusOK || ack.Duplicate:
			return resultDuplicate
		default:
			return resultAccepted
		}
	})

	stats.MatchesAccepted = counts[resultAccepted]
	stats.MatchesDuplicate = counts[resultDuplicate]
	stats.MatchesFailed = counts[resultFailed]
	stats.MatchesSubmitted = stats.MatchesAccepted + stats.MatchesDuplicate + stats.MatchesFailed
}

// waitForRecording polls /stats until the workers have recorded at least
// want matches or the settle timeout expires.
func waitForRecording(ctx context.Context, cfg *Config, client *HTTPClient, want int) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.SettleTimeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		var stats map[string]any
		if _, err := client.do(ctx, http.MethodGet, "/stats", nil, &stats, http.StatusOK); err == nil {
			if pending, ok := stats["pendingMatches"].(float64); ok && int(pending) >= want {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("matches not recorded in time: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
