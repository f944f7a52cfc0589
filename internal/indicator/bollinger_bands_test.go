package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"
)

type BollingerBandsTestSuite struct {
	suite.Suite
}

func TestBollingerBandsSuite(t *testing.T) {
	suite.Run(t, new(BollingerBandsTestSuite))
}

func (suite *BollingerBandsTestSuite) TestNewBollingerBandsInvalidParams() {
	_, err := NewBollingerBands(0, 2.0)
	suite.Error(err)

	_, err = NewBollingerBands(20, 0)
	suite.Error(err)
}

func (suite *BollingerBandsTestSuite) TestColumns() {
	bb, err := NewBollingerBands(20, 2.0)
	suite.Require().NoError(err)
	suite.ElementsMatch([]string{"BBANDS_UPPER", "BBANDS_MIDDLE", "BBANDS_LOWER"}, bb.Columns())
}

func (suite *BollingerBandsTestSuite) TestBands() {
	bb, err := NewBollingerBands(2, 2.0)
	suite.Require().NoError(err)

	columns, err := bb.Compute(makeCandles(1, 3, 5))
	suite.Require().NoError(err)

	suite.True(math.IsNaN(columns[ColumnBollingerMiddle][0]))

	// window {1, 3}: mean 2, population sigma 1
	suite.InDelta(2.0, columns[ColumnBollingerMiddle][1], 1e-9)
	suite.InDelta(4.0, columns[ColumnBollingerUpper][1], 1e-9)
	suite.InDelta(0.0, columns[ColumnBollingerLower][1], 1e-9)

	// window {3, 5}: mean 4, population sigma 1
	suite.InDelta(4.0, columns[ColumnBollingerMiddle][2], 1e-9)
	suite.InDelta(6.0, columns[ColumnBollingerUpper][2], 1e-9)
	suite.InDelta(2.0, columns[ColumnBollingerLower][2], 1e-9)
}

func (suite *BollingerBandsTestSuite) TestFlatSeriesHasZeroWidth() {
	bb, err := NewBollingerBands(3, 2.0)
	suite.Require().NoError(err)

	columns, err := bb.Compute(makeCandles(10, 10, 10, 10))
	suite.Require().NoError(err)

	suite.InDelta(10.0, columns[ColumnBollingerUpper][3], 1e-9)
	suite.InDelta(10.0, columns[ColumnBollingerLower][3], 1e-9)
}
