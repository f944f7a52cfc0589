package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/sirily11/bybit-backtest/internal/config"
	"github.com/sirily11/bybit-backtest/internal/datasource"
	"github.com/sirily11/bybit-backtest/internal/logger"
	"github.com/sirily11/bybit-backtest/internal/market/bybit"
	"github.com/urfave/cli/v3"
)

// downloadAction fetches klines from the exchange and writes them to a CSV
// file the backtest command can consume.
func downloadAction(ctx context.Context, cmd *cli.Command) error {
	symbol := cmd.String("symbol")
	interval := cmd.String("interval")
	start := cmd.Timestamp("start")
	end := cmd.Timestamp("end")
	output := cmd.String("output")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	appLogger, err := logger.NewLogger()
	if err != nil {
		return err
	}

	baseURL := bybit.MainnetBaseURL
	if cfg.BybitTestnet {
		baseURL = bybit.TestnetBaseURL
	}

	client := bybit.NewClient(bybit.ClientOptions{
		BaseURL:        baseURL,
		Timeout:        cfg.RequestTimeout,
		RequestsPerSec: cfg.RequestsPerSec,
		CacheTTL:       cfg.CacheTTL,
	}, appLogger)

	log.Printf("Downloading %s %s klines from %s to %s...",
		symbol, interval, start.Format("2006-01-02"), end.Format("2006-01-02"))

	candles, err := client.GetKlinesRange(ctx, bybit.KlineParams{
		Symbol:   symbol,
		Interval: bybit.Interval(interval),
		Start:    start,
		End:      end,
	})
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	if err := datasource.WriteCandlesCSV(output, candles); err != nil {
		return err
	}

	log.Printf("Wrote %d candles to %s", len(candles), output)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "download",
		Usage: "Download historical klines from Bybit",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "symbol",
				Aliases:  []string{"s"},
				Usage:    "Trading pair, e.g. BTCUSDT",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Kline interval: minutes as numbers, then D, W, M",
				Value:   string(bybit.Interval1m),
			},
			&cli.TimestampFlag{
				Name:     "start",
				Usage:    "Start date in `YYYY-MM-DD` format",
				Required: true,
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.TimestampFlag{
				Name:  "end",
				Usage: "End date in `YYYY-MM-DD` format. Defaults to now.",
				Value: time.Now(),
				Config: cli.TimestampConfig{
					Layouts: []string{"2006-01-02"},
				},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output CSV path",
				Value:   "./candles.csv",
			},
		},
		Action: downloadAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
