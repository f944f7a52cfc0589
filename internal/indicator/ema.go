package indicator

import (
	"fmt"

	"github.com/sirily11/bybit-backtest/internal/types"
	"github.com/sirily11/bybit-backtest/pkg/errors"
)

// EMA is the exponential moving average of close prices, seeded with the
// simple average of the first period closes.
type EMA struct {
	period int
}

// NewEMA creates an EMA indicator for the given period.
func NewEMA(period int) (*EMA, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "EMA period must be a positive integer, got %d", period)
	}

	return &EMA{period: period}, nil
}

// Name returns the name of the indicator.
func (e *EMA) Name() types.IndicatorType {
	return types.IndicatorTypeEMA
}

// Columns returns the output column names.
func (e *EMA) Columns() []string {
	return []string{fmt.Sprintf("EMA_%d", e.period)}
}

// Compute calculates the EMA with smoothing factor 2/(period+1). Values are
// defined from index period-1 onward.
func (e *EMA) Compute(candles []types.Candle) (map[string][]float64, error) {
	n := len(candles)
	values := nanSlice(n)

	if n < e.period {
		return map[string][]float64{e.Columns()[0]: values}, nil
	}

	var seed float64
	for i := 0; i < e.period; i++ {
		seed += candles[i].Close
	}

	seed /= float64(e.period)
	values[e.period-1] = seed

	multiplier := 2.0 / (float64(e.period) + 1.0)

	prev := seed
	for i := e.period; i < n; i++ {
		prev = (candles[i].Close-prev)*multiplier + prev
		values[i] = prev
	}

	return map[string][]float64{e.Columns()[0]: values}, nil
}
