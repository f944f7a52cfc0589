package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeMissingParameter     ErrorCode = 102
	ErrCodeInvalidPeriod        ErrorCode = 103
	ErrCodeInvalidThreshold     ErrorCode = 104
	ErrCodeInvalidBalance       ErrorCode = 105

	// Data errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeDuplicateTimestamp    ErrorCode = 203
	ErrCodeNonFiniteValue        ErrorCode = 204

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeIndicatorCalculation   ErrorCode = 302

	// Backtest errors (400-499)
	ErrCodeBacktestNotInitialized ErrorCode = 400
	ErrCodeBacktestConfigError    ErrorCode = 401
	ErrCodeBacktestDataError      ErrorCode = 402
	ErrCodeBacktestNoConfigs      ErrorCode = 403
	ErrCodeBacktestNoDataPaths    ErrorCode = 404
	ErrCodeBacktestNoResultsDir   ErrorCode = 405
	ErrCodeBacktestNoDatasource   ErrorCode = 406

	// Market data errors (500-599)
	ErrCodeMarketDataFetchFailed ErrorCode = 500
	ErrCodeMarketDataParseFailed ErrorCode = 501
	ErrCodeMarketDataRateLimited ErrorCode = 502
	ErrCodeExchangeError         ErrorCode = 503
)
