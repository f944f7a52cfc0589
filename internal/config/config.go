// Package config loads runtime settings from the environment, with a .env
// file picked up when present.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirily11/bybit-backtest/pkg/errors"
)

// Config holds the settings shared by the server and CLI entrypoints.
type Config struct {
	// ServerAddr is the HTTP listen address.
	ServerAddr string
	// BybitTestnet switches the market client to the paper trading host.
	BybitTestnet bool
	// RequestTimeout bounds each outbound market request.
	RequestTimeout time.Duration
	// RequestsPerSec throttles outbound market requests.
	RequestsPerSec int
	// CacheTTL is how long kline responses stay cached.
	CacheTTL time.Duration
}

// Defaults for absent environment variables.
const (
	DefaultServerAddr     = ":8080"
	DefaultRequestTimeout = 30 * time.Second
	DefaultRequestsPerSec = 5
	DefaultCacheTTL       = time.Hour
)

// Load reads the configuration from the environment. A missing .env file is
// not an error; a malformed variable is.
func Load() (Config, error) {
	// ignore the error: the .env file is optional outside development
	_ = godotenv.Load()

	config := Config{
		ServerAddr:     DefaultServerAddr,
		RequestTimeout: DefaultRequestTimeout,
		RequestsPerSec: DefaultRequestsPerSec,
		CacheTTL:       DefaultCacheTTL,
	}

	if addr := os.Getenv("SERVER_ADDR"); addr != "" {
		config.ServerAddr = addr
	}

	if testnet := os.Getenv("BYBIT_TESTNET"); testnet != "" {
		value, err := strconv.ParseBool(testnet)
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid BYBIT_TESTNET", err)
		}

		config.BybitTestnet = value
	}

	if timeout := os.Getenv("REQUEST_TIMEOUT"); timeout != "" {
		value, err := time.ParseDuration(timeout)
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid REQUEST_TIMEOUT", err)
		}

		config.RequestTimeout = value
	}

	if rps := os.Getenv("REQUESTS_PER_SEC"); rps != "" {
		value, err := strconv.Atoi(rps)
		if err != nil || value <= 0 {
			return Config{}, errors.Newf(errors.ErrCodeInvalidConfiguration, "invalid REQUESTS_PER_SEC: %s", rps)
		}

		config.RequestsPerSec = value
	}

	if ttl := os.Getenv("CACHE_TTL"); ttl != "" {
		value, err := time.ParseDuration(ttl)
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid CACHE_TTL", err)
		}

		config.CacheTTL = value
	}

	return config, nil
}
