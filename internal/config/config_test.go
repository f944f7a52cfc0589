package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestDefaults() {
	config, err := Load()
	suite.Require().NoError(err)

	suite.Equal(DefaultServerAddr, config.ServerAddr)
	suite.Equal(DefaultRequestTimeout, config.RequestTimeout)
	suite.Equal(DefaultRequestsPerSec, config.RequestsPerSec)
	suite.Equal(DefaultCacheTTL, config.CacheTTL)
	suite.False(config.BybitTestnet)
}

func (suite *ConfigTestSuite) TestOverrides() {
	suite.T().Setenv("SERVER_ADDR", ":9090")
	suite.T().Setenv("BYBIT_TESTNET", "true")
	suite.T().Setenv("REQUEST_TIMEOUT", "10s")
	suite.T().Setenv("REQUESTS_PER_SEC", "20")
	suite.T().Setenv("CACHE_TTL", "5m")

	config, err := Load()
	suite.Require().NoError(err)

	suite.Equal(":9090", config.ServerAddr)
	suite.True(config.BybitTestnet)
	suite.Equal(10*time.Second, config.RequestTimeout)
	suite.Equal(20, config.RequestsPerSec)
	suite.Equal(5*time.Minute, config.CacheTTL)
}

func (suite *ConfigTestSuite) TestMalformedValuesRejected() {
	suite.T().Setenv("BYBIT_TESTNET", "maybe")

	_, err := Load()
	suite.Require().Error(err)
}

func (suite *ConfigTestSuite) TestMalformedDurationRejected() {
	suite.T().Setenv("REQUEST_TIMEOUT", "soon")

	_, err := Load()
	suite.Require().Error(err)
}
