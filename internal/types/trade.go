package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide is the direction of an executed trade.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "buy"
	TradeSideSell TradeSide = "sell"
)

// CloseReason explains why a position was closed.
type CloseReason string

const (
	CloseReasonTakeProfit CloseReason = "take_profit"
	CloseReasonStopLoss   CloseReason = "stop_loss"
)

// Trade is an immutable record of one executed buy or sell.
// ProfitLoss, ProfitLossPercentage and Reason are only meaningful on
// closing (sell) trades; buys carry zero values there.
type Trade struct {
	ID        string    `yaml:"id" json:"id" csv:"id"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp" csv:"timestamp"`
	Side      TradeSide `yaml:"side" json:"side" csv:"side"`
	Price     float64   `yaml:"price" json:"price" csv:"price"`
	Quantity  float64   `yaml:"quantity" json:"quantity" csv:"quantity"`
	// Value is price * quantity.
	Value                float64     `yaml:"value" json:"value" csv:"value"`
	ProfitLoss           float64     `yaml:"profit_loss" json:"profit_loss" csv:"profit_loss"`
	ProfitLossPercentage float64     `yaml:"profit_loss_percentage" json:"profit_loss_percentage" csv:"profit_loss_percentage"`
	Reason               CloseReason `yaml:"reason,omitempty" json:"reason,omitempty" csv:"reason"`
}

// CalculateProfitLoss computes (exitPrice - entryPrice) * quantity using
// decimal arithmetic to avoid accumulating float error across a long ledger.
func CalculateProfitLoss(entryPrice float64, exitPrice float64, quantity float64) float64 {
	entryDec := decimal.NewFromFloat(entryPrice).Mul(decimal.NewFromFloat(quantity))
	exitDec := decimal.NewFromFloat(exitPrice).Mul(decimal.NewFromFloat(quantity))

	result, _ := exitDec.Sub(entryDec).Float64()

	return result
}

// RoundQuantity truncates a quantity to the given number of decimal places,
// rounding toward zero the way exchanges quantize order sizes.
func RoundQuantity(quantity float64, decimalPrecision int32) float64 {
	result, _ := decimal.NewFromFloat(quantity).RoundFloor(decimalPrecision).Float64()

	return result
}
