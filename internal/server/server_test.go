package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirily11/bybit-backtest/internal/logger"
	"github.com/sirily11/bybit-backtest/internal/market/bybit"
	"github.com/sirily11/bybit-backtest/internal/types"
	"github.com/sirily11/bybit-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

// stubFetcher serves canned candles and records the last request.
type stubFetcher struct {
	candles    []types.Candle
	err        error
	lastParams bybit.KlineParams
	rangeCalls int
	pageCalls  int
}

func (s *stubFetcher) GetKlines(ctx context.Context, params bybit.KlineParams) ([]types.Candle, error) {
	s.lastParams = params
	s.pageCalls++

	return s.candles, s.err
}

func (s *stubFetcher) GetKlinesRange(ctx context.Context, params bybit.KlineParams) ([]types.Candle, error) {
	s.lastParams = params
	s.rangeCalls++

	return s.candles, s.err
}

func makeCandles(closes ...float64) []types.Candle {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]types.Candle, len(closes))

	for i, close := range closes {
		candles[i] = types.Candle{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Open:      close,
			High:      close,
			Low:       close,
			Close:     close,
			Volume:    100,
			Turnover:  100 * close,
		}
	}

	return candles
}

type ServerTestSuite struct {
	suite.Suite
	fetcher *stubFetcher
	server  *Server
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (suite *ServerTestSuite) SetupTest() {
	log, err := logger.NewDevelopmentLogger()
	suite.Require().NoError(err)

	suite.fetcher = &stubFetcher{}
	suite.server = NewServer(log, suite.fetcher)
}

func (suite *ServerTestSuite) do(req *http.Request) *httptest.ResponseRecorder {
	recorder := httptest.NewRecorder()
	suite.server.Router().ServeHTTP(recorder, req)

	return recorder
}

func (suite *ServerTestSuite) TestHealth() {
	recorder := suite.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	suite.Equal(http.StatusOK, recorder.Code)
}

func (suite *ServerTestSuite) TestIndicatorCatalog() {
	recorder := suite.do(httptest.NewRequest(http.MethodGet, "/api/v1/indicators", nil))
	suite.Require().Equal(http.StatusOK, recorder.Code)

	var infos []IndicatorInfo
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &infos))
	suite.Len(infos, 5)

	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, string(info.Name))
		suite.NotEmpty(info.Columns)
	}

	suite.Contains(names, "rsi")
	suite.Contains(names, "bollinger")
}

func (suite *ServerTestSuite) TestKlinesRequiresSymbol() {
	recorder := suite.do(httptest.NewRequest(http.MethodGet, "/api/v1/klines", nil))
	suite.Equal(http.StatusBadRequest, recorder.Code)
}

func (suite *ServerTestSuite) TestKlinesSinglePage() {
	suite.fetcher.candles = makeCandles(100, 101)

	recorder := suite.do(httptest.NewRequest(http.MethodGet, "/api/v1/klines?symbol=BTCUSDT&interval=60", nil))
	suite.Require().Equal(http.StatusOK, recorder.Code)

	var candles []types.Candle
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &candles))
	suite.Len(candles, 2)
	suite.Equal("BTCUSDT", suite.fetcher.lastParams.Symbol)
	suite.Equal(bybit.Interval1h, suite.fetcher.lastParams.Interval)
	suite.Equal(1, suite.fetcher.pageCalls)
	suite.Equal(0, suite.fetcher.rangeCalls)
}

func (suite *ServerTestSuite) TestKlinesFullRange() {
	suite.fetcher.candles = makeCandles(100, 101, 102)

	recorder := suite.do(httptest.NewRequest(http.MethodGet, "/api/v1/klines?symbol=BTCUSDT&start=0&end=180000", nil))
	suite.Require().Equal(http.StatusOK, recorder.Code)
	suite.Equal(1, suite.fetcher.rangeCalls)
	suite.Equal(int64(180000), suite.fetcher.lastParams.End.UnixMilli())
}

func (suite *ServerTestSuite) TestKlinesRFC3339Bounds() {
	suite.fetcher.candles = makeCandles(100)

	recorder := suite.do(httptest.NewRequest(http.MethodGet, "/api/v1/klines?symbol=BTCUSDT&start=2024-01-01T00:00:00Z&end=2024-01-02T00:00:00Z", nil))
	suite.Require().Equal(http.StatusOK, recorder.Code)
	suite.Equal(2024, suite.fetcher.lastParams.Start.Year())
}

func (suite *ServerTestSuite) TestKlinesInvalidBound() {
	recorder := suite.do(httptest.NewRequest(http.MethodGet, "/api/v1/klines?symbol=BTCUSDT&start=yesterday", nil))
	suite.Equal(http.StatusBadRequest, recorder.Code)
}

func (suite *ServerTestSuite) TestKlinesUpstreamFailure() {
	suite.fetcher.err = errors.New(errors.ErrCodeExchangeError, "exchange down")

	recorder := suite.do(httptest.NewRequest(http.MethodGet, "/api/v1/klines?symbol=BTCUSDT", nil))
	suite.Equal(http.StatusBadGateway, recorder.Code)
}

func (suite *ServerTestSuite) TestKlinesRateLimited() {
	suite.fetcher.err = errors.New(errors.ErrCodeMarketDataRateLimited, "slow down")

	recorder := suite.do(httptest.NewRequest(http.MethodGet, "/api/v1/klines?symbol=BTCUSDT", nil))
	suite.Equal(http.StatusTooManyRequests, recorder.Code)
}

func backtestBody(candles []types.Candle) *bytes.Buffer {
	body := map[string]any{
		"config": map[string]any{
			"indicators": map[string]any{
				"rsi": map[string]any{"period": 2, "buy_threshold": 30},
			},
			"position": map[string]any{
				"size":          100,
				"profit_target": 0.3,
				"stop_loss":     -0.3,
			},
		},
		"candles": candles,
	}

	encoded, _ := json.Marshal(body)

	return bytes.NewBuffer(encoded)
}

func (suite *ServerTestSuite) TestBacktestRoundTrip() {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/backtest", backtestBody(makeCandles(102, 103, 100, 100.35)))
	recorder := suite.do(req)
	suite.Require().Equal(http.StatusOK, recorder.Code)

	var result types.Result
	suite.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &result))
	suite.Empty(result.Error)
	suite.Len(result.Trades, 2)
	suite.InDelta(10035.0, result.FinalBalance.Get(types.QuoteAsset), 1e-9)
}

func (suite *ServerTestSuite) TestBacktestRequiresCandles() {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/backtest", backtestBody(nil))
	recorder := suite.do(req)
	suite.Equal(http.StatusBadRequest, recorder.Code)
}

func (suite *ServerTestSuite) TestBacktestInvalidConfig() {
	body := bytes.NewBufferString(fmt.Sprintf(`{"config":{},"candles":%s}`, mustJSON(makeCandles(100, 101))))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/backtest", body)
	recorder := suite.do(req)
	suite.Equal(http.StatusBadRequest, recorder.Code)
}

func (suite *ServerTestSuite) TestBacktestMalformedBody() {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/backtest", bytes.NewBufferString("{not json"))
	recorder := suite.do(req)
	suite.Equal(http.StatusBadRequest, recorder.Code)
}

func mustJSON(v any) string {
	encoded, _ := json.Marshal(v)

	return string(encoded)
}
