package indicator

import (
	"time"

	"github.com/sirily11/bybit-backtest/internal/types"
)

// makeCandles builds a minute-spaced series where every OHLC field equals
// the given close price.
func makeCandles(closes ...float64) []types.Candle {
	base := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, 0, len(closes))

	for i, close := range closes {
		candles = append(candles, types.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      close,
			High:      close,
			Low:       close,
			Close:     close,
			Volume:    100,
			Turnover:  close * 100,
		})
	}

	return candles
}
