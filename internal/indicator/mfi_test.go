package indicator

import (
	"math"
	"testing"

	"github.com/stretchr/testify/suite"
)

type MFITestSuite struct {
	suite.Suite
}

func TestMFISuite(t *testing.T) {
	suite.Run(t, new(MFITestSuite))
}

func (suite *MFITestSuite) TestNewMFIInvalidPeriod() {
	_, err := NewMFI(0)
	suite.Error(err)
}

func (suite *MFITestSuite) TestAllPositiveFlowReadsHundred() {
	mfi, err := NewMFI(2)
	suite.Require().NoError(err)

	columns, err := mfi.Compute(makeCandles(10, 11, 12, 13))
	suite.Require().NoError(err)

	values := columns["MFI_2"]
	suite.True(math.IsNaN(values[0]))
	suite.True(math.IsNaN(values[1]))
	suite.InDelta(100.0, values[2], 1e-9)
	suite.InDelta(100.0, values[3], 1e-9)
}

func (suite *MFITestSuite) TestMixedFlow() {
	mfi, err := NewMFI(2)
	suite.Require().NoError(err)

	// typical prices equal closes, volume fixed at 100 per candle
	columns, err := mfi.Compute(makeCandles(10, 12, 11, 13))
	suite.Require().NoError(err)

	values := columns["MFI_2"]
	// window {+1200, -1100}: 100 - 100/(1+1200/1100)
	suite.InDelta(100-100/(1+1200.0/1100.0), values[2], 1e-9)
	// window {-1100, +1300}
	suite.InDelta(100-100/(1+1300.0/1100.0), values[3], 1e-9)
}
