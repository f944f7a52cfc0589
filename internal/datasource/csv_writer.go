package datasource

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/sirily11/bybit-backtest/internal/types"
)

// WriteCandlesCSV writes candles to a CSV file readable by DuckDBSource.
// Timestamps are written as epoch milliseconds, matching exchange dumps.
func WriteCandlesCSV(path string, candles []types.Candle) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create csv file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	if err := writer.Write([]string{"timestamp", "open", "high", "low", "close", "volume", "turnover"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	for _, candle := range candles {
		record := []string{
			strconv.FormatInt(candle.Timestamp.UnixMilli(), 10),
			formatFloat(candle.Open),
			formatFloat(candle.High),
			formatFloat(candle.Low),
			formatFloat(candle.Close),
			formatFloat(candle.Volume),
			formatFloat(candle.Turnover),
		}

		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write csv record: %w", err)
		}
	}

	writer.Flush()

	return writer.Error()
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
