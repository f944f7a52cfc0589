package backtest

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirily11/bybit-backtest/internal/types"
)

// getResultFolder composes the per-run result folder from the config name,
// the optional time range, and the data file name.
func (e *Engine) getResultFolder(configName string, dataPath string) string {
	configFolder := filepath.Join(e.resultsFolder, strings.TrimSuffix(filepath.Base(configName), filepath.Ext(configName)))

	var dataFolder string

	if e.config.StartTime.IsSome() || e.config.EndTime.IsSome() {
		startTimeStr := "all"
		endTimeStr := "all"

		if e.config.StartTime.IsSome() {
			startTimeStr = e.config.StartTime.Unwrap().Format("20060102")
		}

		if e.config.EndTime.IsSome() {
			endTimeStr = e.config.EndTime.Unwrap().Format("20060102")
		}

		timeRange := fmt.Sprintf("%s_%s", startTimeStr, endTimeStr)
		dataFolder = filepath.Join(configFolder, timeRange)
	} else {
		dataFolder = configFolder
	}

	dataFileName := strings.TrimSuffix(filepath.Base(dataPath), filepath.Ext(dataPath))

	return filepath.Join(dataFolder, dataFileName)
}

// defaultStart is the first candle's timestamp, zero when the set is empty.
func defaultStart(candles []types.Candle) time.Time {
	if len(candles) == 0 {
		return time.Time{}
	}

	start := candles[0].Timestamp

	for _, candle := range candles[1:] {
		if candle.Timestamp.Before(start) {
			start = candle.Timestamp
		}
	}

	return start
}

// defaultEnd is the last candle's timestamp, zero when the set is empty.
func defaultEnd(candles []types.Candle) time.Time {
	if len(candles) == 0 {
		return time.Time{}
	}

	end := candles[0].Timestamp

	for _, candle := range candles[1:] {
		if candle.Timestamp.After(end) {
			end = candle.Timestamp
		}
	}

	return end
}
