package config

import "errors"

// ErrInvalidConfig is the kind of every Validate failure; ErrLoadConfig wraps
// file, .env and environment read errors.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrLoadConfig    = errors.New("load config failed")

	// ErrMissingAPIKey and ErrUnknownDriver narrow ErrInvalidConfig.
	ErrMissingAPIKey = errors.New("api_key must be set")
	ErrUnknownDriver = errors.New("unknown store_driver")
)
