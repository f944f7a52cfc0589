package types

// Balance maps an asset symbol (e.g. "USDT", "BTC") to a non-negative quantity.
type Balance map[string]float64

// QuoteAsset is the settlement asset every position is sized and measured in.
const QuoteAsset = "USDT"

// Clone returns an independent copy of the balance.
func (b Balance) Clone() Balance {
	out := make(Balance, len(b))
	for asset, quantity := range b {
		out[asset] = quantity
	}

	return out
}

// Get returns the quantity held for an asset, zero when the asset is absent.
func (b Balance) Get(asset string) float64 {
	return b[asset]
}

// PositionSide is the direction of an open position. Short selling is not
// supported, so the only populated value is long.
type PositionSide string

const PositionSideLong PositionSide = "long"

// OpenPosition holds the fields that only exist while a position is open.
// The engine stores it as optional.Option[OpenPosition]: a flat book is
// None, so there is no stale entry price to misread.
type OpenPosition struct {
	EntryPrice float64      `yaml:"entry_price" json:"entry_price"`
	Quantity   float64      `yaml:"quantity" json:"quantity"`
	Side       PositionSide `yaml:"side" json:"side"`
}

// Metrics is the aggregate performance report for one backtest run.
// It is zeroed at initialization and mutated only when a position closes.
type Metrics struct {
	TotalTrades           int     `yaml:"total_trades" json:"total_trades"`
	WinningTrades         int     `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades          int     `yaml:"losing_trades" json:"losing_trades"`
	WinRate               float64 `yaml:"win_rate" json:"win_rate"`
	TotalProfitLoss       float64 `yaml:"total_profit_loss" json:"total_profit_loss"`
	TotalProfitPercentage float64 `yaml:"total_profit_percentage" json:"total_profit_percentage"`
	AverageProfitPerTrade float64 `yaml:"average_profit_per_trade" json:"average_profit_per_trade"`
	AverageWin            float64 `yaml:"average_win" json:"average_win"`
	AverageLoss           float64 `yaml:"average_loss" json:"average_loss"`
	LargestWin            float64 `yaml:"largest_win" json:"largest_win"`
	LargestLoss           float64 `yaml:"largest_loss" json:"largest_loss"`

	// Part of the report schema but never computed; always zero.
	ProfitFactor         float64 `yaml:"profit_factor" json:"profit_factor"`
	MaxDrawdown          float64 `yaml:"max_drawdown" json:"max_drawdown"`
	MaxConsecutiveWins   int     `yaml:"max_consecutive_wins" json:"max_consecutive_wins"`
	MaxConsecutiveLosses int     `yaml:"max_consecutive_losses" json:"max_consecutive_losses"`
}
