// Package server exposes the kline fetcher and the backtest engine over a
// small JSON API.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/moznion/go-optional"
	"github.com/sirily11/bybit-backtest/internal/backtest"
	"github.com/sirily11/bybit-backtest/internal/indicator"
	"github.com/sirily11/bybit-backtest/internal/logger"
	"github.com/sirily11/bybit-backtest/internal/market/bybit"
	"github.com/sirily11/bybit-backtest/internal/types"
	"github.com/sirily11/bybit-backtest/pkg/errors"
	"go.uber.org/zap"
)

// KlineFetcher is the slice of the market client the server needs.
type KlineFetcher interface {
	GetKlines(ctx context.Context, params bybit.KlineParams) ([]types.Candle, error)
	GetKlinesRange(ctx context.Context, params bybit.KlineParams) ([]types.Candle, error)
}

// Server serves the HTTP API.
type Server struct {
	log        *logger.Logger
	fetcher    KlineFetcher
	router     *mux.Router
	indicators indicator.Registry
}

// NewServer wires the routes.
func NewServer(log *logger.Logger, fetcher KlineFetcher) *Server {
	registry, err := indicator.DefaultRegistry()
	if err != nil {
		// the default registry only fails on a programming error
		panic(err)
	}

	s := &Server{
		log:        log,
		fetcher:    fetcher,
		indicators: registry,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", s.handleHealth).Methods("GET")
	router.HandleFunc("/api/v1/klines", s.handleKlines).Methods("GET")
	router.HandleFunc("/api/v1/indicators", s.handleIndicators).Methods("GET")
	router.HandleFunc("/api/v1/backtest", s.handleBacktest).Methods("POST")
	s.router = router

	return s
}

// Router returns the configured router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Start blocks serving the API until the context is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("API server listening", zap.String("addr", addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// IndicatorInfo describes one supported indicator.
type IndicatorInfo struct {
	Name    types.IndicatorType `json:"name"`
	Columns []string            `json:"columns"`
}

// handleIndicators lists the supported indicators and the columns they
// annotate at their conventional periods.
func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	names := s.indicators.ListIndicators()
	slices.Sort(names)

	infos := make([]IndicatorInfo, 0, len(names))

	for _, name := range names {
		ind, err := s.indicators.GetIndicator(name)
		if err != nil {
			s.writeError(w, err)
			return
		}

		infos = append(infos, IndicatorInfo{
			Name:    name,
			Columns: ind.Columns(),
		})
	}

	writeJSON(w, http.StatusOK, infos)
}

// handleKlines proxies the exchange kline endpoint. With both start and end
// present it pages through the whole window, otherwise it returns one page.
func (s *Server) handleKlines(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	params := bybit.KlineParams{
		Category: bybit.Category(query.Get("category")),
		Symbol:   query.Get("symbol"),
		Interval: bybit.Interval(query.Get("interval")),
	}

	if params.Symbol == "" {
		s.writeError(w, errors.New(errors.ErrCodeMissingParameter, "symbol is required"))
		return
	}

	for _, bound := range []struct {
		name  string
		value *time.Time
	}{
		{"start", &params.Start},
		{"end", &params.End},
	} {
		raw := query.Get(bound.name)
		if raw == "" {
			continue
		}

		parsed, err := parseTimestamp(raw)
		if err != nil {
			s.writeError(w, errors.Wrapf(errors.ErrCodeInvalidParameter, err, "invalid %s", bound.name))
			return
		}

		*bound.value = parsed
	}

	var candles []types.Candle

	var err error

	if !params.Start.IsZero() && !params.End.IsZero() {
		candles, err = s.fetcher.GetKlinesRange(r.Context(), params)
	} else {
		candles, err = s.fetcher.GetKlines(r.Context(), params)
	}

	if err != nil {
		s.writeError(w, err)
		return
	}

	if candles == nil {
		candles = []types.Candle{}
	}

	writeJSON(w, http.StatusOK, candles)
}

// BacktestRequest is the payload for POST /api/v1/backtest: a strategy
// configuration and the candles to evaluate it over.
type BacktestRequest struct {
	Config  backtest.StrategyConfig `json:"config"`
	Candles []types.Candle          `json:"candles"`
}

// handleBacktest runs one backtest synchronously and returns the result.
// Strategy failures during the run are reported inside the result body, not
// as an HTTP error.
func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var request BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid request body", err))
		return
	}

	if len(request.Candles) == 0 {
		s.writeError(w, errors.New(errors.ErrCodeMissingParameter, "candles are required"))
		return
	}

	request.Config.ApplyDefaults()

	run, err := backtest.NewBacktest(request.Config, s.log)
	if err != nil {
		s.writeError(w, err)
		return
	}

	startTime := request.Candles[0].Timestamp
	endTime := request.Candles[len(request.Candles)-1].Timestamp
	result := run.Run(startTime, endTime, request.Candles, optional.None[backtest.OnCandleCallback]())

	writeJSON(w, http.StatusOK, result)
}

// parseTimestamp accepts epoch milliseconds or RFC3339.
func parseTimestamp(raw string) (time.Time, error) {
	if millis, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(millis).UTC(), nil
	}

	return time.Parse(time.RFC3339, raw)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps the error's code category to an HTTP status.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	code := errors.GetCode(err)
	switch {
	case code >= 100 && code < 200:
		status = http.StatusBadRequest
	case code == errors.ErrCodeBacktestConfigError:
		status = http.StatusBadRequest
	case code == errors.ErrCodeMarketDataRateLimited:
		status = http.StatusTooManyRequests
	case code >= 500 && code < 600:
		status = http.StatusBadGateway
	}

	s.log.Warn("Request failed",
		zap.Int("status", status),
		zap.Error(err),
	)

	writeJSON(w, status, map[string]string{"error": err.Error()})
}
