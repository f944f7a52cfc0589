package backtest

import (
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/sirily11/bybit-backtest/internal/logger"
	"github.com/sirily11/bybit-backtest/internal/types"
	"github.com/sirily11/bybit-backtest/pkg/errors"
	"go.uber.org/zap"
)

// BacktestState holds everything that changes while a run executes: the
// balances, the open position (None when flat), the trade ledger and the
// aggregate metrics. It is owned by exactly one run and is not safe for
// concurrent use.
type BacktestState struct {
	log *logger.Logger

	startTime time.Time
	endTime   time.Time
	baseAsset string

	initialBalance types.Balance
	currentBalance types.Balance
	position       optional.Option[types.OpenPosition]
	trades         []types.Trade
	metrics        types.Metrics

	strategyVars any

	initialized bool
}

// NewBacktestState creates an uninitialized state. Initialize must be called
// before trades can execute.
func NewBacktestState(log *logger.Logger) *BacktestState {
	return &BacktestState{
		log:      log,
		position: optional.None[types.OpenPosition](),
	}
}

// Initialize resets the state for a fresh run: cloned balances, no position,
// empty ledger, zeroed metrics. Calling it again discards the previous run
// entirely.
func (b *BacktestState) Initialize(startTime time.Time, endTime time.Time, initialBalance types.Balance, baseAsset string) error {
	if len(initialBalance) == 0 {
		return errors.New(errors.ErrCodeInvalidBalance, "initial balance is empty")
	}

	for asset, quantity := range initialBalance {
		if quantity < 0 {
			return errors.Newf(errors.ErrCodeInvalidBalance, "initial balance for %s is negative: %f", asset, quantity)
		}
	}

	b.startTime = startTime
	b.endTime = endTime
	b.baseAsset = baseAsset
	b.initialBalance = initialBalance.Clone()
	b.currentBalance = initialBalance.Clone()
	b.position = optional.None[types.OpenPosition]()
	b.trades = nil
	b.metrics = types.Metrics{}
	b.strategyVars = nil
	b.initialized = true

	b.log.Debug("Backtest state initialized",
		zap.Time("start_time", startTime),
		zap.Time("end_time", endTime),
		zap.Float64("quote_balance", initialBalance.Get(types.QuoteAsset)),
	)

	return nil
}

// SetStrategyVars records the configuration echoed back in the result report.
func (b *BacktestState) SetStrategyVars(vars any) {
	b.strategyVars = vars
}

// InPosition reports whether a position is currently open.
func (b *BacktestState) InPosition() bool {
	return b.position.IsSome()
}

// Position returns the open position, None when flat.
func (b *BacktestState) Position() optional.Option[types.OpenPosition] {
	return b.position
}

// CurrentBalance returns a copy of the live balances.
func (b *BacktestState) CurrentBalance() types.Balance {
	return b.currentBalance.Clone()
}

// ExecuteTrade applies a buy or sell at the given price. A buy that would
// overdraw the quote balance, a buy while already in a position, or a sell
// while flat is refused without touching any state; the return value reports
// whether the trade executed. Metrics update only on sells, which close the
// position.
func (b *BacktestState) ExecuteTrade(timestamp time.Time, side types.TradeSide, price float64, quantity float64, reason types.CloseReason) (bool, error) {
	if !b.initialized {
		return false, errors.New(errors.ErrCodeBacktestNotInitialized, "state not initialized")
	}

	if price <= 0 || quantity <= 0 {
		return false, errors.Newf(errors.ErrCodeInvalidParameter, "invalid trade: price=%f quantity=%f", price, quantity)
	}

	switch side {
	case types.TradeSideBuy:
		return b.executeBuy(timestamp, price, quantity), nil
	case types.TradeSideSell:
		return b.executeSell(timestamp, price, quantity, reason), nil
	default:
		return false, errors.Newf(errors.ErrCodeInvalidParameter, "unknown trade side: %s", side)
	}
}

func (b *BacktestState) executeBuy(timestamp time.Time, price float64, quantity float64) bool {
	if b.position.IsSome() {
		b.log.Debug("Buy refused: position already open")
		return false
	}

	cost := price * quantity
	available := b.currentBalance.Get(types.QuoteAsset)
	if cost > available {
		b.log.Debug("Buy refused: insufficient quote balance",
			zap.Float64("cost", cost),
			zap.Float64("available", available),
		)
		return false
	}

	b.currentBalance[types.QuoteAsset] = available - cost
	b.currentBalance[b.baseAsset] = b.currentBalance.Get(b.baseAsset) + quantity
	b.position = optional.Some(types.OpenPosition{
		EntryPrice: price,
		Quantity:   quantity,
		Side:       types.PositionSideLong,
	})

	b.trades = append(b.trades, types.Trade{
		ID:        uuid.New().String(),
		Timestamp: timestamp,
		Side:      types.TradeSideBuy,
		Price:     price,
		Quantity:  quantity,
		Value:     cost,
	})

	b.log.Info("Opened position",
		zap.Time("timestamp", timestamp),
		zap.Float64("price", price),
		zap.Float64("quantity", quantity),
	)

	return true
}

func (b *BacktestState) executeSell(timestamp time.Time, price float64, quantity float64, reason types.CloseReason) bool {
	if b.position.IsNone() {
		b.log.Debug("Sell refused: no open position")
		return false
	}

	position := b.position.Unwrap()
	proceeds := price * quantity
	profitLoss := types.CalculateProfitLoss(position.EntryPrice, price, quantity)
	profitPct := (price - position.EntryPrice) / position.EntryPrice * 100

	b.currentBalance[types.QuoteAsset] = b.currentBalance.Get(types.QuoteAsset) + proceeds
	b.currentBalance[b.baseAsset] = b.currentBalance.Get(b.baseAsset) - quantity
	b.position = optional.None[types.OpenPosition]()

	b.trades = append(b.trades, types.Trade{
		ID:                   uuid.New().String(),
		Timestamp:            timestamp,
		Side:                 types.TradeSideSell,
		Price:                price,
		Quantity:             quantity,
		Value:                proceeds,
		ProfitLoss:           profitLoss,
		ProfitLossPercentage: profitPct,
		Reason:               reason,
	})

	b.updateMetrics(profitLoss)

	b.log.Info("Closed position",
		zap.Time("timestamp", timestamp),
		zap.Float64("price", price),
		zap.Float64("profit_loss", profitLoss),
		zap.String("reason", string(reason)),
	)

	return true
}

// updateMetrics folds one closing trade into the aggregate report.
func (b *BacktestState) updateMetrics(profitLoss float64) {
	m := &b.metrics

	m.TotalTrades++
	m.TotalProfitLoss += profitLoss

	if profitLoss > 0 {
		m.WinningTrades++
		m.AverageWin += (profitLoss - m.AverageWin) / float64(m.WinningTrades)
		if profitLoss > m.LargestWin {
			m.LargestWin = profitLoss
		}
	} else {
		m.LosingTrades++
		m.AverageLoss += (profitLoss - m.AverageLoss) / float64(m.LosingTrades)
		if profitLoss < m.LargestLoss {
			m.LargestLoss = profitLoss
		}
	}

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	m.AverageProfitPerTrade = m.TotalProfitLoss / float64(m.TotalTrades)

	initial := b.initialBalance.Get(types.QuoteAsset)
	if initial > 0 {
		m.TotalProfitPercentage = m.TotalProfitLoss / initial * 100
	}
}

// Metrics returns a copy of the aggregate report.
func (b *BacktestState) Metrics() types.Metrics {
	return b.metrics
}

// Trades returns a copy of the trade ledger in execution order.
func (b *BacktestState) Trades() []types.Trade {
	out := make([]types.Trade, len(b.trades))
	copy(out, b.trades)

	return out
}

// GetResults snapshots the run into a Result report. The snapshot is
// independent of the live state.
func (b *BacktestState) GetResults() types.Result {
	return types.Result{
		InitialBalance: b.initialBalance.Clone(),
		FinalBalance:   b.currentBalance.Clone(),
		Metrics:        b.metrics,
		Trades:         b.Trades(),
		StrategyVars:   b.strategyVars,
	}
}
