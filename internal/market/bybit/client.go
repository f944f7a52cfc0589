// Package bybit fetches historical klines from the Bybit v5 market API.
// The kline endpoint is public, so no request signing is involved.
package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirily11/bybit-backtest/internal/logger"
	"github.com/sirily11/bybit-backtest/internal/types"
	"github.com/sirily11/bybit-backtest/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	// MainnetBaseURL is the production API host.
	MainnetBaseURL = "https://api.bybit.com"
	// TestnetBaseURL is the paper trading API host.
	TestnetBaseURL = "https://api-testnet.bybit.com"

	klinePath = "/v5/market/kline"

	// MaxKlineLimit is the largest page size the kline endpoint accepts.
	MaxKlineLimit = 1000
)

// Category is the Bybit product category.
type Category string

const (
	CategorySpot    Category = "spot"
	CategoryLinear  Category = "linear"
	CategoryInverse Category = "inverse"
)

// Interval is the kline interval in the API's notation: minutes as bare
// numbers, then D, W and M.
type Interval string

const (
	Interval1m  Interval = "1"
	Interval5m  Interval = "5"
	Interval15m Interval = "15"
	Interval30m Interval = "30"
	Interval1h  Interval = "60"
	Interval4h  Interval = "240"
	Interval1d  Interval = "D"
	Interval1w  Interval = "W"
	Interval1M  Interval = "M"
)

// KlineParams identifies one kline request.
type KlineParams struct {
	Category Category
	Symbol   string
	Interval Interval
	// Start and End bound the window in milliseconds inclusive; zero values
	// leave the bound open.
	Start time.Time
	End   time.Time
	// Limit caps the page size, defaulting to MaxKlineLimit.
	Limit int
}

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL        string
	Timeout        time.Duration
	RequestsPerSec int
	CacheTTL       time.Duration
	MaxRetryTime   time.Duration
}

// Client is a rate-limited, retrying kline fetcher with a TTL response
// cache. It is safe for concurrent use.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	limiter      *rate.Limiter
	cache        *responseCache
	log          *logger.Logger
	maxRetryTime time.Duration
}

// NewClient creates a Client, filling defaults for any zero option.
func NewClient(opts ClientOptions, log *logger.Logger) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = MainnetBaseURL
	}

	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}

	if opts.RequestsPerSec == 0 {
		opts.RequestsPerSec = 5
	}

	if opts.CacheTTL == 0 {
		opts.CacheTTL = DefaultCacheTTL
	}

	if opts.MaxRetryTime == 0 {
		opts.MaxRetryTime = 30 * time.Second
	}

	return &Client{
		baseURL:      opts.BaseURL,
		httpClient:   &http.Client{Timeout: opts.Timeout},
		limiter:      rate.NewLimiter(rate.Limit(opts.RequestsPerSec), opts.RequestsPerSec),
		cache:        newResponseCache(opts.CacheTTL),
		log:          log,
		maxRetryTime: opts.MaxRetryTime,
	}
}

// klineResponse is the envelope every v5 endpoint wraps its payload in.
type klineResponse struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		Category string     `json:"category"`
		Symbol   string     `json:"symbol"`
		List     [][]string `json:"list"`
	} `json:"result"`
}

// GetKlines fetches one page of candles. The API returns rows newest first;
// the result is reversed into ascending timestamp order.
func (c *Client) GetKlines(ctx context.Context, params KlineParams) ([]types.Candle, error) {
	if params.Symbol == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "symbol is required")
	}

	if params.Category == "" {
		params.Category = CategorySpot
	}

	if params.Interval == "" {
		params.Interval = Interval1m
	}

	if params.Limit <= 0 || params.Limit > MaxKlineLimit {
		params.Limit = MaxKlineLimit
	}

	requestURL := c.klineURL(params)

	if candles, ok := c.cache.get(requestURL); ok {
		c.log.Debug("Kline cache hit", zap.String("url", requestURL))
		return slices.Clone(candles), nil
	}

	body, err := c.doRequest(ctx, requestURL)
	if err != nil {
		return nil, err
	}

	var response klineResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "failed to decode kline response", err)
	}

	if response.RetCode != 0 {
		return nil, errors.Newf(errors.ErrCodeExchangeError, "exchange returned %d: %s", response.RetCode, response.RetMsg)
	}

	candles, err := parseKlineList(response.Result.List)
	if err != nil {
		return nil, err
	}

	c.cache.set(requestURL, candles)

	return slices.Clone(candles), nil
}

// GetKlinesRange pages backwards through the kline endpoint until the whole
// window is covered, returning candles in ascending timestamp order.
func (c *Client) GetKlinesRange(ctx context.Context, params KlineParams) ([]types.Candle, error) {
	if params.Start.IsZero() || params.End.IsZero() {
		return nil, errors.New(errors.ErrCodeMissingParameter, "start and end are required for range fetches")
	}

	var all []types.Candle

	end := params.End

	for {
		page := params
		page.End = end

		candles, err := c.GetKlines(ctx, page)
		if err != nil {
			return nil, err
		}

		if len(candles) == 0 {
			break
		}

		all = append(candles, all...)

		oldest := candles[0].Timestamp
		if !oldest.After(params.Start) || len(candles) < page.Limit {
			break
		}

		end = oldest.Add(-time.Millisecond)
	}

	// trim anything the last page overshot
	for len(all) > 0 && all[0].Timestamp.Before(params.Start) {
		all = all[1:]
	}

	return all, nil
}

// ResetCache drops every cached response.
func (c *Client) ResetCache() {
	c.cache.reset()
}

func (c *Client) klineURL(params KlineParams) string {
	query := url.Values{}
	query.Set("category", string(params.Category))
	query.Set("symbol", params.Symbol)
	query.Set("interval", string(params.Interval))
	query.Set("limit", strconv.Itoa(params.Limit))

	if !params.Start.IsZero() {
		query.Set("start", strconv.FormatInt(params.Start.UnixMilli(), 10))
	}

	if !params.End.IsZero() {
		query.Set("end", strconv.FormatInt(params.End.UnixMilli(), 10))
	}

	return fmt.Sprintf("%s%s?%s", c.baseURL, klinePath, query.Encode())
}

// doRequest performs a rate-limited GET with exponential backoff on
// transient failures. Client errors other than 429 are not retried.
func (c *Client) doRequest(ctx context.Context, requestURL string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "rate limiter wait failed", err)
	}

	var body []byte

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
		case resp.StatusCode == http.StatusTooManyRequests:
			return errors.New(errors.ErrCodeMarketDataRateLimited, "rate limited by exchange")
		case resp.StatusCode >= 500:
			return errors.Newf(errors.ErrCodeMarketDataFetchFailed, "server error: %d", resp.StatusCode)
		default:
			return backoff.Permanent(errors.Newf(errors.ErrCodeMarketDataFetchFailed, "unexpected status: %d", resp.StatusCode))
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}

		return nil
	}

	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.MaxElapsedTime = c.maxRetryTime

	if err := backoff.Retry(operation, backoff.WithContext(backoffStrategy, ctx)); err != nil {
		return nil, errors.Wrap(errors.ErrCodeMarketDataFetchFailed, "kline request failed", err)
	}

	return body, nil
}

// parseKlineList decodes the API's newest-first string rows into ascending
// candles. Rows are [startTime, open, high, low, close, volume, turnover].
func parseKlineList(list [][]string) ([]types.Candle, error) {
	candles := make([]types.Candle, 0, len(list))

	for _, row := range list {
		if len(row) < 7 {
			return nil, errors.Newf(errors.ErrCodeMarketDataParseFailed, "kline row has %d fields, want 7", len(row))
		}

		millis, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeMarketDataParseFailed, "invalid kline start time", err)
		}

		fields := make([]float64, 6)

		for i := 0; i < 6; i++ {
			value, err := strconv.ParseFloat(row[i+1], 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "invalid kline field %q", row[i+1])
			}

			fields[i] = value
		}

		candles = append(candles, types.Candle{
			Timestamp: time.UnixMilli(millis).UTC(),
			Open:      fields[0],
			High:      fields[1],
			Low:       fields[2],
			Close:     fields[3],
			Volume:    fields[4],
			Turnover:  fields[5],
		})
	}

	slices.Reverse(candles)

	return candles, nil
}
