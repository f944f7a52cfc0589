package indicator

import (
	"fmt"

	"github.com/sirily11/bybit-backtest/internal/types"
	"github.com/sirily11/bybit-backtest/pkg/errors"
)

// MFI is the Money Flow Index, a volume-weighted momentum oscillator on the
// same 0-100 scale as RSI.
type MFI struct {
	period int
}

// NewMFI creates an MFI indicator for the given period.
func NewMFI(period int) (*MFI, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "MFI period must be a positive integer, got %d", period)
	}

	return &MFI{period: period}, nil
}

// Name returns the name of the indicator.
func (m *MFI) Name() types.IndicatorType {
	return types.IndicatorTypeMFI
}

// Columns returns the output column names.
func (m *MFI) Columns() []string {
	return []string{fmt.Sprintf("MFI_%d", m.period)}
}

// Compute calculates MFI from typical-price money flow. Classifying a flow
// as positive or negative needs the previous typical price, so values are
// defined from index period onward.
func (m *MFI) Compute(candles []types.Candle) (map[string][]float64, error) {
	n := len(candles)
	values := nanSlice(n)

	typical := make([]float64, n)
	for i := 0; i < n; i++ {
		typical[i] = (candles[i].High + candles[i].Low + candles[i].Close) / 3
	}

	positiveFlow := make([]float64, n)
	negativeFlow := make([]float64, n)

	for i := 1; i < n; i++ {
		rawFlow := typical[i] * candles[i].Volume

		switch {
		case typical[i] > typical[i-1]:
			positiveFlow[i] = rawFlow
		case typical[i] < typical[i-1]:
			negativeFlow[i] = rawFlow
		}
	}

	for i := m.period; i < n; i++ {
		var positiveSum, negativeSum float64

		for j := i - m.period + 1; j <= i; j++ {
			positiveSum += positiveFlow[j]
			negativeSum += negativeFlow[j]
		}

		if negativeSum == 0 {
			values[i] = 100

			continue
		}

		ratio := positiveSum / negativeSum
		values[i] = 100 - (100 / (1 + ratio))
	}

	return map[string][]float64{m.Columns()[0]: values}, nil
}
