package types

type IndicatorType string

const (
	IndicatorTypeRSI            IndicatorType = "rsi"
	IndicatorTypeSMA            IndicatorType = "sma"
	IndicatorTypeEMA            IndicatorType = "ema"
	IndicatorTypeMFI            IndicatorType = "mfi"
	IndicatorTypeBollingerBands IndicatorType = "bollinger"
)
