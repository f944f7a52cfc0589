package indicator

import (
	"math"

	"github.com/sirily11/bybit-backtest/internal/types"
	"github.com/sirily11/bybit-backtest/pkg/errors"
)

// Column names for the Bollinger Bands output.
const (
	ColumnBollingerUpper  = "BBANDS_UPPER"
	ColumnBollingerMiddle = "BBANDS_MIDDLE"
	ColumnBollingerLower  = "BBANDS_LOWER"
)

// BollingerBands computes the SMA middle band plus upper/lower bands at a
// configurable number of standard deviations.
type BollingerBands struct {
	period int
	stdDev float64
}

// NewBollingerBands creates a Bollinger Bands indicator.
func NewBollingerBands(period int, stdDev float64) (*BollingerBands, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "Bollinger Bands period must be a positive integer, got %d", period)
	}

	if stdDev <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "Bollinger Bands standard deviation multiplier must be positive, got %f", stdDev)
	}

	return &BollingerBands{period: period, stdDev: stdDev}, nil
}

// Name returns the name of the indicator.
func (bb *BollingerBands) Name() types.IndicatorType {
	return types.IndicatorTypeBollingerBands
}

// Columns returns the output column names.
func (bb *BollingerBands) Columns() []string {
	return []string{ColumnBollingerUpper, ColumnBollingerMiddle, ColumnBollingerLower}
}

// Compute calculates the three bands over the trailing window. Values are
// defined from index period-1 onward.
func (bb *BollingerBands) Compute(candles []types.Candle) (map[string][]float64, error) {
	n := len(candles)
	upper := nanSlice(n)
	middle := nanSlice(n)
	lower := nanSlice(n)

	for i := bb.period - 1; i < n; i++ {
		var sum float64
		for j := i - bb.period + 1; j <= i; j++ {
			sum += candles[j].Close
		}

		mean := sum / float64(bb.period)

		var squaredDiffSum float64

		for j := i - bb.period + 1; j <= i; j++ {
			diff := candles[j].Close - mean
			squaredDiffSum += diff * diff
		}

		sigma := math.Sqrt(squaredDiffSum / float64(bb.period))

		middle[i] = mean
		upper[i] = mean + bb.stdDev*sigma
		lower[i] = mean - bb.stdDev*sigma
	}

	return map[string][]float64{
		ColumnBollingerUpper:  upper,
		ColumnBollingerMiddle: middle,
		ColumnBollingerLower:  lower,
	}, nil
}
