package backtest

import (
	"fmt"
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/sirily11/bybit-backtest/internal/indicator"
	"github.com/sirily11/bybit-backtest/internal/logger"
	"github.com/sirily11/bybit-backtest/internal/types"
	"github.com/sirily11/bybit-backtest/pkg/errors"
	"go.uber.org/zap"
)

// DefaultQuantityPrecision is the number of decimal places order quantities
// are truncated to.
const DefaultQuantityPrecision int32 = 8

// OnCandleCallback is invoked after each evaluated candle with the index of
// the candle just processed and the total candle count.
type OnCandleCallback func(current int, total int)

// Backtest evaluates one strategy configuration over one candle sequence.
// Construction validates the configuration, so a Backtest in hand always
// carries a usable strategy.
type Backtest struct {
	config     StrategyConfig
	state      *BacktestState
	log        *logger.Logger
	indicators []indicator.Indicator
	// columns lists every indicator column the entry rules read. A candle
	// missing any of them is in the warm-up window and is skipped.
	columns   []string
	precision int32
}

// NewBacktest validates the configuration and builds the indicator set it
// requires.
func NewBacktest(config StrategyConfig, log *logger.Logger) (*Backtest, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	indicators, columns, err := buildIndicators(config.Indicators)
	if err != nil {
		return nil, err
	}

	return &Backtest{
		config:     config,
		state:      NewBacktestState(log),
		log:        log,
		indicators: indicators,
		columns:    columns,
		precision:  DefaultQuantityPrecision,
	}, nil
}

// buildIndicators constructs the indicator instances a configuration needs
// and collects the columns its entry rules depend on.
func buildIndicators(options IndicatorOptions) ([]indicator.Indicator, []string, error) {
	var indicators []indicator.Indicator
	var columns []string

	if options.RSI != nil {
		rsi, err := indicator.NewRSI(options.RSI.Period)
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid rsi options", err)
		}
		indicators = append(indicators, rsi)
		columns = append(columns, rsi.Columns()...)
	}

	if options.MFI != nil {
		mfi, err := indicator.NewMFI(options.MFI.Period)
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid mfi options", err)
		}
		indicators = append(indicators, mfi)
		columns = append(columns, mfi.Columns()...)
	}

	if options.Bollinger != nil {
		bb, err := indicator.NewBollingerBands(options.Bollinger.Period, options.Bollinger.StdDev)
		if err != nil {
			return nil, nil, errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid bollinger options", err)
		}
		indicators = append(indicators, bb)
		// Only the lower band participates in the entry rule.
		columns = append(columns, indicator.ColumnBollingerLower)
	}

	for _, cross := range []struct {
		options *CrossOptions
		build   func(period int) (indicator.Indicator, error)
		name    string
	}{
		{options.SMA, func(p int) (indicator.Indicator, error) {
			ind, err := indicator.NewSMA(p)
			return ind, err
		}, "sma"},
		{options.EMA, func(p int) (indicator.Indicator, error) {
			ind, err := indicator.NewEMA(p)
			return ind, err
		}, "ema"},
	} {
		if cross.options == nil {
			continue
		}

		for _, period := range cross.options.Periods[:2] {
			ind, err := cross.build(period)
			if err != nil {
				return nil, nil, errors.Wrapf(errors.ErrCodeBacktestConfigError, err, "invalid %s options", cross.name)
			}
			indicators = append(indicators, ind)
			columns = append(columns, ind.Columns()...)
		}
	}

	return indicators, columns, nil
}

// Indicators returns the indicator set built from the configuration.
func (b *Backtest) Indicators() []indicator.Indicator {
	return b.indicators
}

// State exposes the run state for inspection.
func (b *Backtest) State() *BacktestState {
	return b.state
}

// Initialize resets the run state with the configured starting balance.
func (b *Backtest) Initialize(startTime time.Time, endTime time.Time) error {
	if err := b.state.Initialize(startTime, endTime, b.config.InitialBalance, b.config.BaseAsset()); err != nil {
		return err
	}

	b.state.SetStrategyVars(b.config)

	return nil
}

// Step evaluates one annotated candle against the strategy. Candles inside
// any indicator's warm-up window are skipped. The only error it returns is a
// non-finite close price, which poisons every downstream comparison and
// aborts the run.
func (b *Backtest) Step(candle types.AnnotatedCandle) error {
	if math.IsNaN(candle.Close) || math.IsInf(candle.Close, 0) {
		return errors.Newf(errors.ErrCodeNonFiniteValue, "non-finite close price at %s", candle.Timestamp.Format(time.RFC3339))
	}

	values := make(map[string]float64, len(b.columns))
	for _, column := range b.columns {
		v := candle.Indicator(column)
		if v.IsNone() {
			return nil
		}
		values[column] = v.Unwrap()
	}

	if b.state.InPosition() {
		b.evaluateExit(candle)
		return nil
	}

	b.evaluateEntry(candle, values)

	return nil
}

// evaluateEntry opens a position when every configured indicator rule
// signals at once. A signal with no funds behind it is a no-op.
func (b *Backtest) evaluateEntry(candle types.AnnotatedCandle, values map[string]float64) {
	if !b.buySignal(candle, values) {
		return
	}

	quote := b.state.CurrentBalance().Get(types.QuoteAsset)
	amount := quote * b.config.Position.Size / 100
	quantity := types.RoundQuantity(amount/candle.Close, b.precision)
	if quantity <= 0 {
		return
	}

	executed, err := b.state.ExecuteTrade(candle.Timestamp, types.TradeSideBuy, candle.Close, quantity, "")
	if err != nil {
		b.log.Warn("Buy failed", zap.Error(err))
		return
	}

	if !executed {
		b.log.Debug("Buy signal with no executable size", zap.Float64("quantity", quantity))
	}
}

// buySignal applies the configured entry rules conjunctively.
func (b *Backtest) buySignal(candle types.AnnotatedCandle, values map[string]float64) bool {
	ind := b.config.Indicators

	if ind.RSI != nil {
		if values[fmt.Sprintf("RSI_%d", ind.RSI.Period)] > *ind.RSI.BuyThreshold {
			return false
		}
	}

	if ind.MFI != nil {
		if values[fmt.Sprintf("MFI_%d", ind.MFI.Period)] > *ind.MFI.BuyThreshold {
			return false
		}
	}

	if ind.Bollinger != nil {
		if candle.Close >= values[indicator.ColumnBollingerLower] {
			return false
		}
	}

	if ind.SMA != nil {
		short := values[fmt.Sprintf("SMA_%d", ind.SMA.Periods[0])]
		long := values[fmt.Sprintf("SMA_%d", ind.SMA.Periods[1])]
		if short <= long {
			return false
		}
	}

	if ind.EMA != nil {
		short := values[fmt.Sprintf("EMA_%d", ind.EMA.Periods[0])]
		long := values[fmt.Sprintf("EMA_%d", ind.EMA.Periods[1])]
		if short <= long {
			return false
		}
	}

	return true
}

// evaluateExit closes the open position when the return against the entry
// price crosses a threshold. The profit target is checked before the stop
// loss, so a degenerate configuration where both trigger closes as
// take_profit.
func (b *Backtest) evaluateExit(candle types.AnnotatedCandle) {
	position := b.state.Position().Unwrap()
	returnPct := (candle.Close - position.EntryPrice) / position.EntryPrice * 100

	var reason types.CloseReason
	switch {
	case returnPct >= *b.config.Position.ProfitTarget:
		reason = types.CloseReasonTakeProfit
	case returnPct <= *b.config.Position.StopLoss:
		reason = types.CloseReasonStopLoss
	default:
		return
	}

	if _, err := b.state.ExecuteTrade(candle.Timestamp, types.TradeSideSell, candle.Close, position.Quantity, reason); err != nil {
		b.log.Warn("Sell failed", zap.Error(err))
	}
}

// Run executes the full pipeline over a candle sequence: reset state,
// annotate, evaluate every candle in order, snapshot the result. Annotation
// failures produce a result with no trades and the error recorded; a
// non-finite price mid-run produces a partial result with the trades
// completed before the abort.
func (b *Backtest) Run(startTime time.Time, endTime time.Time, candles []types.Candle, onCandle optional.Option[OnCandleCallback]) types.Result {
	if err := b.Initialize(startTime, endTime); err != nil {
		return types.Result{
			InitialBalance: b.config.InitialBalance.Clone(),
			FinalBalance:   b.config.InitialBalance.Clone(),
			StrategyVars:   b.config,
			Error:          err.Error(),
		}
	}

	annotated, err := indicator.Annotate(candles, b.indicators)
	if err != nil {
		result := b.state.GetResults()
		result.Error = errors.Wrap(errors.ErrCodeBacktestDataError, "annotation failed", err).Error()

		return result
	}

	total := len(annotated)
	for i, candle := range annotated {
		if err := b.Step(candle); err != nil {
			b.log.Error("Run aborted",
				zap.Int("candle", i),
				zap.Error(err),
			)

			result := b.state.GetResults()
			result.Error = err.Error()

			return result
		}

		if onCandle.IsSome() {
			onCandle.Unwrap()(i+1, total)
		}
	}

	return b.state.GetResults()
}
