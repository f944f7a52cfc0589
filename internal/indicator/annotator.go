package indicator

import (
	"slices"

	"github.com/sirily11/bybit-backtest/internal/types"
	"github.com/sirily11/bybit-backtest/pkg/errors"
)

// Annotate decorates a candle series with the columns of every given
// indicator. The input may arrive in any order (exchange kline endpoints
// return newest-first); it is sorted ascending by timestamp before any
// computation. Duplicate timestamps and non-finite fields are data errors.
// An empty input yields an empty output and no error.
func Annotate(candles []types.Candle, indicators []Indicator) ([]types.AnnotatedCandle, error) {
	annotated := make([]types.AnnotatedCandle, 0, len(candles))
	if len(candles) == 0 {
		return annotated, nil
	}

	sorted := slices.Clone(candles)
	slices.SortFunc(sorted, func(a, b types.Candle) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	for i, candle := range sorted {
		if !candle.IsFinite() {
			return nil, errors.Newf(errors.ErrCodeNonFiniteValue, "candle at %s has a non-finite field", candle.Timestamp)
		}

		if i > 0 && !sorted[i-1].Timestamp.Before(candle.Timestamp) {
			return nil, errors.Newf(errors.ErrCodeDuplicateTimestamp, "duplicate candle timestamp %s", candle.Timestamp)
		}

		annotated = append(annotated, types.NewAnnotatedCandle(candle))
	}

	for _, ind := range indicators {
		columns, err := ind.Compute(sorted)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeIndicatorCalculation, err, "failed to compute indicator %s", ind.Name())
		}

		for name, values := range columns {
			for i, value := range values {
				// SetIndicator drops NaN, keeping warm-up slots undefined
				annotated[i].SetIndicator(name, value)
			}
		}
	}

	return annotated, nil
}
