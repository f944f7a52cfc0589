package types

import (
	"math"
	"time"

	"github.com/moznion/go-optional"
)

// Candle is a single OHLCV aggregation over a fixed time bucket.
type Candle struct {
	Timestamp time.Time `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
	Open      float64   `yaml:"open" json:"open" csv:"open"`
	High      float64   `yaml:"high" json:"high" csv:"high"`
	Low       float64   `yaml:"low" json:"low" csv:"low"`
	Close     float64   `yaml:"close" json:"close" csv:"close"`
	Volume    float64   `yaml:"volume" json:"volume" csv:"volume"`
	Turnover  float64   `yaml:"turnover" json:"turnover" csv:"turnover"`
}

// IsFinite reports whether every numeric field of the candle is a finite number.
func (c Candle) IsFinite() bool {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume, c.Turnover} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}

	return true
}

// AnnotatedCandle is a candle decorated with computed indicator columns.
// A column that is absent from the map is undefined for this candle
// (the indicator's warm-up window has not filled yet).
type AnnotatedCandle struct {
	Candle

	indicators map[string]float64
}

// NewAnnotatedCandle wraps a candle with an empty indicator column set.
func NewAnnotatedCandle(candle Candle) AnnotatedCandle {
	return AnnotatedCandle{
		Candle:     candle,
		indicators: make(map[string]float64),
	}
}

// SetIndicator records a computed indicator value under the given column name.
// NaN values are treated as undefined and not stored.
func (a *AnnotatedCandle) SetIndicator(column string, value float64) {
	if math.IsNaN(value) {
		return
	}

	if a.indicators == nil {
		a.indicators = make(map[string]float64)
	}

	a.indicators[column] = value
}

// Indicator returns the value of the given column, or None when the column
// is undefined for this candle.
func (a AnnotatedCandle) Indicator(column string) optional.Option[float64] {
	value, ok := a.indicators[column]
	if !ok {
		return optional.None[float64]()
	}

	return optional.Some(value)
}

// Indicators returns a copy of all defined indicator columns.
func (a AnnotatedCandle) Indicators() map[string]float64 {
	out := make(map[string]float64, len(a.indicators))
	for k, v := range a.indicators {
		out[k] = v
	}

	return out
}
