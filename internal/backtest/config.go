package backtest

import (
	"encoding/json"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/sirily11/bybit-backtest/internal/types"
	"github.com/sirily11/bybit-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

// RSIOptions configures the RSI entry rule.
type RSIOptions struct {
	Period        int      `yaml:"period" json:"period" jsonschema:"title=Period,description=RSI lookback window,minimum=1" validate:"gt=0"`
	BuyThreshold  *float64 `yaml:"buy_threshold" json:"buy_threshold" jsonschema:"title=Buy Threshold,description=Enter when RSI is at or below this value,minimum=0,maximum=100" validate:"required,gte=0,lte=100"`
	SellThreshold *float64 `yaml:"sell_threshold,omitempty" json:"sell_threshold,omitempty" jsonschema:"title=Sell Threshold"`
}

// MFIOptions configures the MFI entry rule.
type MFIOptions struct {
	Period        int      `yaml:"period" json:"period" jsonschema:"title=Period,minimum=1" validate:"gt=0"`
	BuyThreshold  *float64 `yaml:"buy_threshold" json:"buy_threshold" jsonschema:"title=Buy Threshold,minimum=0,maximum=100" validate:"required,gte=0,lte=100"`
	SellThreshold *float64 `yaml:"sell_threshold,omitempty" json:"sell_threshold,omitempty" jsonschema:"title=Sell Threshold"`
}

// BollingerOptions configures the Bollinger Bands entry rule.
type BollingerOptions struct {
	Period int     `yaml:"period" json:"period" jsonschema:"title=Period,minimum=1" validate:"gt=0"`
	StdDev float64 `yaml:"std_dev" json:"std_dev" jsonschema:"title=Standard Deviations,description=Band width multiplier" validate:"gt=0"`
}

// CrossOptions configures a moving-average cross rule. The first period is
// the short leg, the second the long leg.
type CrossOptions struct {
	Periods []int `yaml:"periods" json:"periods" jsonschema:"title=Periods,description=Short and long window lengths" validate:"min=2,dive,gt=0"`
}

// IndicatorOptions groups the recognized indicator rules. A nil group is
// not part of the strategy.
type IndicatorOptions struct {
	RSI       *RSIOptions       `yaml:"rsi,omitempty" json:"rsi,omitempty"`
	MFI       *MFIOptions       `yaml:"mfi,omitempty" json:"mfi,omitempty"`
	Bollinger *BollingerOptions `yaml:"bollinger,omitempty" json:"bollinger,omitempty"`
	SMA       *CrossOptions     `yaml:"sma,omitempty" json:"sma,omitempty"`
	EMA       *CrossOptions     `yaml:"ema,omitempty" json:"ema,omitempty"`
}

// PositionOptions configures position sizing and exit thresholds.
// TrailingStop is part of the accepted schema but has no evaluation branch
// in the core loop; it is carried through to the result untouched.
type PositionOptions struct {
	// Size is the percentage of the quote balance committed per entry.
	Size float64 `yaml:"size" json:"size" jsonschema:"title=Position Size,description=Percent of quote balance to commit per entry,minimum=0,maximum=100" validate:"required,gt=0,lte=100"`
	// ProfitTarget is the percentage return that closes a position as take_profit.
	// A pointer so an explicit zero survives validation; absence is rejected.
	ProfitTarget *float64 `yaml:"profit_target" json:"profit_target" jsonschema:"title=Profit Target,description=Percent return that triggers take profit" validate:"required"`
	// StopLoss is the (negative) percentage return that closes a position as stop_loss.
	StopLoss     *float64 `yaml:"stop_loss" json:"stop_loss" jsonschema:"title=Stop Loss,description=Percent return that triggers stop loss (negative)" validate:"required"`
	TrailingStop *float64 `yaml:"trailing_stop,omitempty" json:"trailing_stop,omitempty" jsonschema:"title=Trailing Stop"`
}

// FilterOptions is part of the accepted schema but is not consulted by the
// evaluation loop.
type FilterOptions struct {
	VolumeThreshold *float64 `yaml:"volume_threshold,omitempty" json:"volume_threshold,omitempty" jsonschema:"title=Volume Threshold"`
	PriceThreshold  *float64 `yaml:"price_threshold,omitempty" json:"price_threshold,omitempty" jsonschema:"title=Price Threshold"`
}

// StrategyConfig is the validated, strongly typed strategy configuration.
// It is parsed once at run start; malformed input is rejected before any
// candle is evaluated.
type StrategyConfig struct {
	Symbol         string           `yaml:"symbol,omitempty" json:"symbol,omitempty" jsonschema:"title=Symbol,description=Trading pair,default=BTCUSDT"`
	Indicators     IndicatorOptions `yaml:"indicators" json:"indicators"`
	Position       PositionOptions  `yaml:"position" json:"position"`
	Filters        *FilterOptions   `yaml:"filters,omitempty" json:"filters,omitempty"`
	InitialBalance types.Balance    `yaml:"initial_balance,omitempty" json:"initial_balance,omitempty" jsonschema:"title=Initial Balance,description=Asset to starting quantity"`
}

// Defaults applied by ApplyDefaults.
const (
	DefaultSymbol          = "BTCUSDT"
	DefaultRSIPeriod       = 14
	DefaultMFIPeriod       = 14
	DefaultBollingerPeriod = 20
	DefaultBollingerStdDev = 2.0
)

// DefaultInitialBalance returns the starting balance used when the config
// does not supply one.
func DefaultInitialBalance() types.Balance {
	return types.Balance{types.QuoteAsset: 10000.0, "BTC": 0.0}
}

// ApplyDefaults fills the documented defaults for absent optional fields.
func (c *StrategyConfig) ApplyDefaults() {
	if c.Symbol == "" {
		c.Symbol = DefaultSymbol
	}

	if c.InitialBalance == nil {
		c.InitialBalance = DefaultInitialBalance()
	}

	if c.Indicators.RSI != nil && c.Indicators.RSI.Period == 0 {
		c.Indicators.RSI.Period = DefaultRSIPeriod
	}

	if c.Indicators.MFI != nil && c.Indicators.MFI.Period == 0 {
		c.Indicators.MFI.Period = DefaultMFIPeriod
	}

	if c.Indicators.Bollinger != nil {
		if c.Indicators.Bollinger.Period == 0 {
			c.Indicators.Bollinger.Period = DefaultBollingerPeriod
		}

		if c.Indicators.Bollinger.StdDev == 0 {
			c.Indicators.Bollinger.StdDev = DefaultBollingerStdDev
		}
	}
}

// BaseAsset derives the traded asset from the symbol, e.g. BTC for BTCUSDT.
func (c *StrategyConfig) BaseAsset() string {
	return strings.TrimSuffix(c.Symbol, types.QuoteAsset)
}

// Validate checks the configuration before any candle is evaluated.
func (c *StrategyConfig) Validate() error {
	ind := c.Indicators
	if ind.RSI == nil && ind.MFI == nil && ind.Bollinger == nil && ind.SMA == nil && ind.EMA == nil {
		return errors.New(errors.ErrCodeBacktestConfigError, "strategy configures no indicator rule")
	}

	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeBacktestConfigError, "invalid strategy config", err)
	}

	for asset, quantity := range c.InitialBalance {
		if quantity < 0 {
			return errors.Newf(errors.ErrCodeInvalidBalance, "initial balance for %s is negative", asset)
		}
	}

	if c.InitialBalance.Get(types.QuoteAsset) <= 0 {
		return errors.Newf(errors.ErrCodeInvalidBalance, "initial %s balance must be positive", types.QuoteAsset)
	}

	return nil
}

// ParseStrategyConfig parses a YAML strategy configuration, applies the
// documented defaults, and validates it.
func ParseStrategyConfig(content string) (StrategyConfig, error) {
	var config StrategyConfig
	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return StrategyConfig{}, errors.Wrap(errors.ErrCodeBacktestConfigError, "failed to parse strategy config", err)
	}

	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return StrategyConfig{}, err
	}

	return config, nil
}

// GenerateSchema generates a JSON schema for the StrategyConfig.
func (c *StrategyConfig) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
	}

	schema := reflector.Reflect(c)
	schema.Title = "strategy-config"
	schema.Description = "Declarative strategy configuration for the backtest engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates a JSON schema string for the StrategyConfig.
func (c *StrategyConfig) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
