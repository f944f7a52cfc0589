package indicator

import (
	"fmt"

	"github.com/sirily11/bybit-backtest/internal/types"
	"github.com/sirily11/bybit-backtest/pkg/errors"
)

// SMA is the simple moving average of close prices.
type SMA struct {
	period int
}

// NewSMA creates an SMA indicator for the given period.
func NewSMA(period int) (*SMA, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "SMA period must be a positive integer, got %d", period)
	}

	return &SMA{period: period}, nil
}

// Name returns the name of the indicator.
func (s *SMA) Name() types.IndicatorType {
	return types.IndicatorTypeSMA
}

// Columns returns the output column names.
func (s *SMA) Columns() []string {
	return []string{fmt.Sprintf("SMA_%d", s.period)}
}

// Compute calculates the trailing mean of close over the period. Values are
// defined from index period-1 onward.
func (s *SMA) Compute(candles []types.Candle) (map[string][]float64, error) {
	n := len(candles)
	values := nanSlice(n)

	var sum float64

	for i := 0; i < n; i++ {
		sum += candles[i].Close
		if i >= s.period {
			sum -= candles[i-s.period].Close
		}

		if i >= s.period-1 {
			values[i] = sum / float64(s.period)
		}
	}

	return map[string][]float64{s.Columns()[0]: values}, nil
}
