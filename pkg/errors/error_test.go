package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ErrorTestSuite struct {
	suite.Suite
}

func TestErrorSuite(t *testing.T) {
	suite.Run(t, new(ErrorTestSuite))
}

func (suite *ErrorTestSuite) TestNewError() {
	err := New(ErrCodeInvalidParameter, "invalid parameter")
	suite.NotNil(err)
	suite.Equal(ErrCodeInvalidParameter, err.Code)
	suite.Equal("invalid parameter", err.Message)
	suite.Nil(err.Cause)
}

func (suite *ErrorTestSuite) TestNewfError() {
	err := Newf(ErrCodeDataNotFound, "no candles for symbol %s", "BTCUSDT")
	suite.NotNil(err)
	suite.Equal(ErrCodeDataNotFound, err.Code)
	suite.Equal("no candles for symbol BTCUSDT", err.Message)
}

func (suite *ErrorTestSuite) TestWrapError() {
	cause := errors.New("underlying error")
	err := Wrap(ErrCodeQueryFailed, "query failed", cause)
	suite.NotNil(err)
	suite.Equal(ErrCodeQueryFailed, err.Code)
	suite.Equal(cause, err.Cause)
	suite.Equal(cause, errors.Unwrap(err))
}

func (suite *ErrorTestSuite) TestWrapfError() {
	cause := errors.New("underlying error")
	err := Wrapf(ErrCodeMarketDataFetchFailed, cause, "failed to fetch klines for %s", "BTCUSDT")
	suite.Equal(ErrCodeMarketDataFetchFailed, err.Code)
	suite.Equal("failed to fetch klines for BTCUSDT", err.Message)
	suite.Equal(cause, err.Cause)
}

func (suite *ErrorTestSuite) TestErrorString() {
	err := New(ErrCodeBacktestConfigError, "missing buy threshold")
	suite.Equal("[401] missing buy threshold", err.Error())

	wrapped := Wrap(ErrCodeBacktestConfigError, "invalid config", errors.New("boom"))
	suite.Equal("[401] invalid config: boom", wrapped.Error())
}

func (suite *ErrorTestSuite) TestGetCode() {
	err := New(ErrCodeNonFiniteValue, "NaN close price")
	suite.Equal(ErrCodeNonFiniteValue, GetCode(err))
	suite.Equal(ErrCodeUnknown, GetCode(errors.New("plain error")))
}

func (suite *ErrorTestSuite) TestHasCodeThroughWrapping() {
	inner := New(ErrCodeDuplicateTimestamp, "duplicate candle")
	outer := fmt.Errorf("annotate: %w", inner)
	suite.True(HasCode(outer, ErrCodeDuplicateTimestamp))
	suite.False(HasCode(outer, ErrCodeDataNotFound))
}
