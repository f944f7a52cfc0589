// Package indicator computes technical indicator columns over a
// chronologically sorted candle series. Every indicator follows the same
// trailing-window contract: a fixed lookback, NaN until the window fills,
// one value per candle thereafter. NaN means undefined (warm-up), never zero.
package indicator

import (
	"math"

	"github.com/sirily11/bybit-backtest/internal/types"
)

// Indicator computes one or more columns over a full candle series.
type Indicator interface {
	// Name returns the indicator type.
	Name() types.IndicatorType
	// Columns returns the output column names, e.g. ["RSI_14"].
	Columns() []string
	// Compute returns one value per candle for every column. The input must
	// be sorted ascending by timestamp. Undefined values are NaN.
	Compute(candles []types.Candle) (map[string][]float64, error)
}

// nanSlice returns a slice of n NaN values, the all-undefined column.
func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}
