package datasource

import (
	"slices"
	"time"

	"github.com/moznion/go-optional"
	"github.com/sirily11/bybit-backtest/internal/types"
)

// MemorySource serves candles from a slice. It backs the HTTP API, where
// candles arrive in the request body, and keeps engine tests free of disk IO.
type MemorySource struct {
	candles []types.Candle
}

// NewMemorySource clones and sorts the given candles by timestamp ascending.
func NewMemorySource(candles []types.Candle) *MemorySource {
	sorted := slices.Clone(candles)
	slices.SortFunc(sorted, func(a, b types.Candle) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	return &MemorySource{candles: sorted}
}

// Initialize implements CandleSource. The path is ignored; the candles were
// supplied at construction.
func (m *MemorySource) Initialize(path string) error {
	return nil
}

// ReadAll implements CandleSource.
func (m *MemorySource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Candle, error) bool) {
	return func(yield func(types.Candle, error) bool) {
		for _, candle := range m.candles {
			if !inRange(candle.Timestamp, start, end) {
				continue
			}

			if !yield(candle, nil) {
				return
			}
		}
	}
}

// GetRange implements CandleSource.
func (m *MemorySource) GetRange(start time.Time, end time.Time) ([]types.Candle, error) {
	return Collect(m, optional.Some(start), optional.Some(end))
}

// Count implements CandleSource.
func (m *MemorySource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	count := 0

	for _, candle := range m.candles {
		if inRange(candle.Timestamp, start, end) {
			count++
		}
	}

	return count, nil
}

// Close implements CandleSource.
func (m *MemorySource) Close() error {
	return nil
}

func inRange(ts time.Time, start optional.Option[time.Time], end optional.Option[time.Time]) bool {
	if start.IsSome() && ts.Before(start.Unwrap()) {
		return false
	}

	if end.IsSome() && ts.After(end.Unwrap()) {
		return false
	}

	return true
}
