package service

import (
	"github.com/okian/glicko/internal/adapters/repository"
	"github.com/okian/glicko/internal/domain/glicko"
	"github.com/okian/glicko/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the match queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore sets the competitor store. The service owns it and closes it on Stop.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithEngineOptions configures the rating engine.
func WithEngineOptions(opts ...glicko.Option) Option {
	return func(s *Service) {
		s.engineOpts = append(s.engineOpts, opts...)
	}
}

// WithAPIKey sets the key required to trigger a recalculation.
func WithAPIKey(key string) Option {
	return func(s *Service) {
		s.apiKey = key
	}
}

// WithDefaults sets the starting state of newly registered competitors.
// Non-positive values keep the current default.
func WithDefaults(rating, ratingDeviation, volatility float64) Option {
	return func(s *Service) {
		if rating > 0 {
			s.defaultRating = rating
		}
		if ratingDeviation > 0 {
			s.defaultRD = ratingDeviation
		}
		if volatility > 0 {
			s.defaultVolatility = volatility
		}
	}
}
