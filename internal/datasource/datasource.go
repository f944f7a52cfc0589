// Package datasource provides candle sources for the backtest engine.
// Sources yield candles strictly ordered by timestamp ascending.
package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/sirily11/bybit-backtest/internal/types"
)

// CandleSource is a stream of historical candles. Initialize binds the
// source to a data file; ReadAll yields candles inside the optional time
// range in ascending timestamp order.
type CandleSource interface {
	// Initialize binds the source to the given data path.
	Initialize(path string) error
	// ReadAll yields every candle in the range to the caller.
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Candle, error) bool)
	// GetRange collects the candles between start and end inclusive.
	GetRange(start time.Time, end time.Time) ([]types.Candle, error)
	// Count returns the number of candles in the range.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Close releases any resources held by the source.
	Close() error
}

// Collect drains a source's range into a slice, stopping at the first error.
func Collect(source CandleSource, start optional.Option[time.Time], end optional.Option[time.Time]) ([]types.Candle, error) {
	var candles []types.Candle

	var readErr error

	source.ReadAll(start, end)(func(candle types.Candle, err error) bool {
		if err != nil {
			readErr = err
			return false
		}

		candles = append(candles, candle)

		return true
	})

	if readErr != nil {
		return nil, readErr
	}

	return candles, nil
}
