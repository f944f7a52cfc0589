package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"
)

type RSITestSuite struct {
	suite.Suite
}

func TestRSISuite(t *testing.T) {
	suite.Run(t, new(RSITestSuite))
}

func (suite *RSITestSuite) TestNewRSIInvalidPeriod() {
	_, err := NewRSI(0)
	suite.Error(err)

	_, err = NewRSI(-5)
	suite.Error(err)
}

func (suite *RSITestSuite) TestColumnName() {
	rsi, err := NewRSI(14)
	suite.Require().NoError(err)
	suite.Equal([]string{"RSI_14"}, rsi.Columns())
}

func (suite *RSITestSuite) TestWarmupIsUndefined() {
	rsi, err := NewRSI(2)
	suite.Require().NoError(err)

	columns, err := rsi.Compute(makeCandles(100, 101, 102, 103))
	suite.Require().NoError(err)

	values := columns["RSI_2"]
	suite.Len(values, 4)
	// the first period values have no full window of deltas
	suite.True(math.IsNaN(values[0]))
	suite.True(math.IsNaN(values[1]))
	suite.False(math.IsNaN(values[2]))
}

func (suite *RSITestSuite) TestPerfectUptrendReadsHundred() {
	rsi, err := NewRSI(2)
	suite.Require().NoError(err)

	columns, err := rsi.Compute(makeCandles(100, 101, 102, 103, 104))
	suite.Require().NoError(err)

	values := columns["RSI_2"]
	for i := 2; i < len(values); i++ {
		suite.InDelta(100.0, values[i], 1e-9)
	}
}

func (suite *RSITestSuite) TestAlternatingSeriesReadsFifty() {
	rsi, err := NewRSI(2)
	suite.Require().NoError(err)

	columns, err := rsi.Compute(makeCandles(100, 101, 100, 101, 100))
	suite.Require().NoError(err)

	values := columns["RSI_2"]
	// each window holds one unit gain and one unit loss
	suite.InDelta(50.0, values[2], 1e-9)
	suite.InDelta(50.0, values[3], 1e-9)
	suite.InDelta(50.0, values[4], 1e-9)
}

func (suite *RSITestSuite) TestOversoldReading() {
	rsi, err := NewRSI(2)
	suite.Require().NoError(err)

	// +1 then -3: RS = 0.5/1.5, RSI = 100 - 100/(4/3) = 25
	columns, err := rsi.Compute(makeCandles(102, 103, 100))
	suite.Require().NoError(err)

	suite.InDelta(25.0, columns["RSI_2"][2], 1e-9)
}

func (suite *RSITestSuite) TestPeriodLongerThanSeries() {
	rsi, err := NewRSI(14)
	suite.Require().NoError(err)

	columns, err := rsi.Compute(makeCandles(100, 101, 102))
	suite.Require().NoError(err)

	for _, v := range columns["RSI_14"] {
		suite.True(math.IsNaN(v))
	}
}

func (suite *RSITestSuite) TestEmptySeries() {
	rsi, err := NewRSI(14)
	suite.Require().NoError(err)

	columns, err := rsi.Compute(nil)
	suite.Require().NoError(err)
	suite.Empty(columns["RSI_14"])
}
