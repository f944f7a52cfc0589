package indicator

import (
	"fmt"

	"github.com/sirily11/bybit-backtest/internal/types"
	"github.com/sirily11/bybit-backtest/pkg/errors"
)

// RSI is the Relative Strength Index over a rolling window of close deltas.
type RSI struct {
	period int
}

// NewRSI creates an RSI indicator for the given period.
func NewRSI(period int) (*RSI, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "RSI period must be a positive integer, got %d", period)
	}

	return &RSI{period: period}, nil
}

// Name returns the name of the indicator.
func (r *RSI) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

// Columns returns the output column names.
func (r *RSI) Columns() []string {
	return []string{fmt.Sprintf("RSI_%d", r.period)}
}

// Compute calculates RSI using a rolling simple mean of gains and losses,
// converted to the 0-100 scale via 100 - 100/(1+RS). The first candle has
// no prior close, so its delta counts as zero gain and zero loss; values
// are defined from index period onward.
func (r *RSI) Compute(candles []types.Candle) (map[string][]float64, error) {
	n := len(candles)
	values := nanSlice(n)

	gains := make([]float64, n)
	losses := make([]float64, n)

	for i := 1; i < n; i++ {
		change := candles[i].Close - candles[i-1].Close
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	for i := r.period; i < n; i++ {
		var avgGain, avgLoss float64

		for j := i - r.period + 1; j <= i; j++ {
			avgGain += gains[j]
			avgLoss += losses[j]
		}

		avgGain /= float64(r.period)
		avgLoss /= float64(r.period)

		if avgLoss == 0 {
			values[i] = 100

			continue
		}

		rs := avgGain / avgLoss
		values[i] = 100 - (100 / (1 + rs))
	}

	return map[string][]float64{r.Columns()[0]: values}, nil
}
