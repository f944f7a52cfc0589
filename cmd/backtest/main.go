package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/sirily11/bybit-backtest/internal/backtest"
	"github.com/sirily11/bybit-backtest/internal/datasource"
	"github.com/sirily11/bybit-backtest/internal/logger"
	"github.com/urfave/cli/v3"
)

// backtestAction wires the engine from the CLI flags and runs the batch.
func backtestAction(ctx context.Context, cmd *cli.Command) error {
	configGlob := cmd.String("config")
	dataGlob := cmd.String("data")
	output := cmd.String("output")
	engineConfigPath := cmd.String("engine-config")

	engineConfig := "{}"

	if engineConfigPath != "" {
		content, err := os.ReadFile(engineConfigPath)
		if err != nil {
			return fmt.Errorf("failed to read engine config: %w", err)
		}

		engineConfig = string(content)
	}

	engine := backtest.NewEngine()
	if err := engine.Initialize(engineConfig); err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}

	if err := engine.SetConfigPath(configGlob); err != nil {
		return err
	}

	if err := engine.SetDataPath(dataGlob); err != nil {
		return err
	}

	if err := engine.SetResultsFolder(output); err != nil {
		return err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	source, err := datasource.NewDuckDBSource(log)
	if err != nil {
		return err
	}
	defer source.Close()

	if err := engine.SetDataSource(source); err != nil {
		return err
	}

	var bar *progressbar.ProgressBar

	callback := backtest.OnCandleCallback(func(current int, total int) {
		if bar == nil || current == 1 {
			bar = progressbar.Default(int64(total))
			bar.Describe("Backtesting")
		}

		_ = bar.Set(current)
	})

	if err := engine.Run(optional.Some(callback)); err != nil {
		return fmt.Errorf("backtest run failed: %w", err)
	}

	fmt.Printf("Results written to %s\n", output)

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "Run strategy configurations against historical candle data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "config",
				Aliases:  []string{"c"},
				Usage:    "Glob of strategy config YAML files",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "data",
				Aliases:  []string{"d"},
				Usage:    "Glob of candle data files (CSV or Parquet)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Results folder, wiped before each run",
				Value:   "./results",
			},
			&cli.StringFlag{
				Name:    "engine-config",
				Aliases: []string{"e"},
				Usage:   "Optional engine config YAML with start_time, end_time and decimal_precision",
			},
		},
		Action: backtestAction,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
