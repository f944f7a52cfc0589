package bybit

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirily11/bybit-backtest/internal/logger"
	"github.com/sirily11/bybit-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
	"golang.org/x/time/rate"
)

// klinePage renders the v5 envelope with rows newest first, the way the
// exchange serves them.
func klinePage(rows ...string) string {
	list := ""
	for i, row := range rows {
		if i > 0 {
			list += ","
		}
		list += row
	}

	return fmt.Sprintf(`{"retCode":0,"retMsg":"OK","result":{"category":"spot","symbol":"BTCUSDT","list":[%s]}}`, list)
}

func klineRow(millis int64, close float64) string {
	return fmt.Sprintf(`["%d","%.1f","%.1f","%.1f","%.1f","100","1000"]`, millis, close, close, close, close)
}

type ClientTestSuite struct {
	suite.Suite
	log *logger.Logger
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (suite *ClientTestSuite) SetupTest() {
	log, err := logger.NewDevelopmentLogger()
	suite.Require().NoError(err)

	suite.log = log
}

func (suite *ClientTestSuite) TestLimiterMatchesConfiguredRate() {
	client := NewClient(ClientOptions{RequestsPerSec: 8}, suite.log)

	suite.Equal(rate.Limit(8), client.limiter.Limit())
	suite.Equal(8, client.limiter.Burst())
}

func (suite *ClientTestSuite) newClient(server *httptest.Server) *Client {
	return NewClient(ClientOptions{
		BaseURL:        server.URL,
		RequestsPerSec: 1000,
		MaxRetryTime:   2 * time.Second,
	}, suite.log)
}

func (suite *ClientTestSuite) TestGetKlinesAscendingOrder() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		suite.Equal("/v5/market/kline", r.URL.Path)
		suite.Equal("BTCUSDT", r.URL.Query().Get("symbol"))
		suite.Equal("spot", r.URL.Query().Get("category"))

		fmt.Fprint(w, klinePage(
			klineRow(180000, 103),
			klineRow(120000, 102),
			klineRow(60000, 101),
		))
	}))
	defer server.Close()

	client := suite.newClient(server)

	candles, err := client.GetKlines(context.Background(), KlineParams{Symbol: "BTCUSDT"})
	suite.Require().NoError(err)
	suite.Require().Len(candles, 3)

	suite.Equal(int64(60000), candles[0].Timestamp.UnixMilli())
	suite.Equal(101.0, candles[0].Close)
	suite.Equal(int64(180000), candles[2].Timestamp.UnixMilli())
	suite.True(candles[0].Timestamp.Before(candles[1].Timestamp))
}

func (suite *ClientTestSuite) TestMissingSymbolRejected() {
	client := NewClient(ClientOptions{}, suite.log)

	_, err := client.GetKlines(context.Background(), KlineParams{})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMissingParameter))
}

func (suite *ClientTestSuite) TestResponseCached() {
	var hits atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, klinePage(klineRow(60000, 101)))
	}))
	defer server.Close()

	client := suite.newClient(server)
	params := KlineParams{Symbol: "BTCUSDT"}

	_, err := client.GetKlines(context.Background(), params)
	suite.Require().NoError(err)

	_, err = client.GetKlines(context.Background(), params)
	suite.Require().NoError(err)
	suite.Equal(int64(1), hits.Load())

	client.ResetCache()

	_, err = client.GetKlines(context.Background(), params)
	suite.Require().NoError(err)
	suite.Equal(int64(2), hits.Load())
}

func (suite *ClientTestSuite) TestCachedResultIsACopy() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, klinePage(klineRow(60000, 101)))
	}))
	defer server.Close()

	client := suite.newClient(server)
	params := KlineParams{Symbol: "BTCUSDT"}

	first, err := client.GetKlines(context.Background(), params)
	suite.Require().NoError(err)

	first[0].Close = 0

	second, err := client.GetKlines(context.Background(), params)
	suite.Require().NoError(err)
	suite.Equal(101.0, second[0].Close)
}

func (suite *ClientTestSuite) TestExchangeErrorSurfaced() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"retCode":10001,"retMsg":"params error","result":{}}`)
	}))
	defer server.Close()

	client := suite.newClient(server)

	_, err := client.GetKlines(context.Background(), KlineParams{Symbol: "BTCUSDT"})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeExchangeError))
}

func (suite *ClientTestSuite) TestServerErrorRetried() {
	var hits atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		fmt.Fprint(w, klinePage(klineRow(60000, 101)))
	}))
	defer server.Close()

	client := suite.newClient(server)

	candles, err := client.GetKlines(context.Background(), KlineParams{Symbol: "BTCUSDT"})
	suite.Require().NoError(err)
	suite.Len(candles, 1)
	suite.GreaterOrEqual(hits.Load(), int64(2))
}

func (suite *ClientTestSuite) TestClientErrorNotRetried() {
	var hits atomic.Int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := suite.newClient(server)

	_, err := client.GetKlines(context.Background(), KlineParams{Symbol: "BTCUSDT"})
	suite.Require().Error(err)
	suite.Equal(int64(1), hits.Load())
}

func (suite *ClientTestSuite) TestMalformedRowRejected() {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"retCode":0,"retMsg":"OK","result":{"list":[["60000","not-a-number","1","1","1","1","1"]]}}`)
	}))
	defer server.Close()

	client := suite.newClient(server)

	_, err := client.GetKlines(context.Background(), KlineParams{Symbol: "BTCUSDT"})
	suite.Require().Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeMarketDataParseFailed))
}

func (suite *ClientTestSuite) TestRangePagination() {
	// two pages: the first serves [120s, 180s], the second [0s, 60s]
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		end := r.URL.Query().Get("end")
		if end >= "120000" {
			fmt.Fprint(w, klinePage(klineRow(180000, 104), klineRow(120000, 103)))
			return
		}

		fmt.Fprint(w, klinePage(klineRow(60000, 102), klineRow(0, 101)))
	}))
	defer server.Close()

	client := suite.newClient(server)

	candles, err := client.GetKlinesRange(context.Background(), KlineParams{
		Symbol: "BTCUSDT",
		Start:  time.UnixMilli(0),
		End:    time.UnixMilli(180000),
		Limit:  2,
	})
	suite.Require().NoError(err)
	suite.Require().Len(candles, 4)

	for i := 1; i < len(candles); i++ {
		suite.True(candles[i-1].Timestamp.Before(candles[i].Timestamp))
	}

	suite.Equal(101.0, candles[0].Close)
	suite.Equal(104.0, candles[3].Close)
}
