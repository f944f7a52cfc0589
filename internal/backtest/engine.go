package backtest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/moznion/go-optional"
	"github.com/sirily11/bybit-backtest/internal/datasource"
	"github.com/sirily11/bybit-backtest/internal/logger"
	"github.com/sirily11/bybit-backtest/internal/types"
	"github.com/sirily11/bybit-backtest/pkg/errors"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Result files written per run.
const (
	ResultFileName = "results.yaml"
	TradesFileName = "trades.json"
)

// Engine runs every loaded strategy configuration against every data path
// and writes one result folder per combination. A failed run records its
// error in the result and does not abort the batch.
type Engine struct {
	config              EngineConfig
	strategyConfigPaths []string
	strategyConfigs     []string
	dataPaths           []string
	resultsFolder       string
	log                 *logger.Logger
	datasource          datasource.CandleSource
}

// NewEngine creates an engine with default configuration and no loaded runs.
func NewEngine() *Engine {
	return &Engine{
		config: EmptyConfig(),
	}
}

// Initialize parses the engine configuration and sets up logging.
func (e *Engine) Initialize(config string) error {
	if err := yaml.Unmarshal([]byte(config), &e.config); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse engine config", err)
	}

	log, err := logger.NewLogger()
	if err != nil {
		return err
	}

	e.log = log
	e.log.Debug("Backtest engine initialized",
		zap.String("config", config),
	)

	return nil
}

// SetConfigPath loads strategy configuration files matching a glob pattern.
func (e *Engine) SetConfigPath(path string) error {
	files, err := filepath.Glob(path)
	if err != nil {
		e.log.Error("Failed to set config path",
			zap.String("path", path),
			zap.Error(err),
		)

		return err
	}

	e.strategyConfigPaths = files
	e.strategyConfigs = nil
	e.log.Debug("Config paths set",
		zap.Strings("files", files),
	)

	return nil
}

// SetConfigContent loads strategy configurations directly from strings.
func (e *Engine) SetConfigContent(configs []string) error {
	e.strategyConfigs = configs
	e.strategyConfigPaths = nil
	e.log.Debug("Config content set",
		zap.Int("count", len(configs)),
	)

	return nil
}

// SetDataPath loads data files matching a glob pattern.
func (e *Engine) SetDataPath(path string) error {
	files, err := filepath.Glob(path)
	if err != nil {
		e.log.Error("Failed to set data path",
			zap.String("path", path),
			zap.Error(err),
		)

		return err
	}

	absolutePaths := make([]string, len(files))

	for i, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			return err
		}

		absolutePaths[i] = absPath
	}

	e.dataPaths = absolutePaths
	e.log.Debug("Data paths set",
		zap.Strings("files", absolutePaths),
	)

	return nil
}

// SetResultsFolder sets the folder the run reports are written into. The
// folder is wiped at the start of Run.
func (e *Engine) SetResultsFolder(folder string) error {
	e.resultsFolder = folder

	return nil
}

// SetDataSource sets the candle source runs read from.
func (e *Engine) SetDataSource(source datasource.CandleSource) error {
	e.datasource = source

	return nil
}

// GetConfigSchema returns the JSON schema of the engine configuration.
func (e *Engine) GetConfigSchema() (string, error) {
	return e.config.GenerateSchemaJSON()
}

type configItem struct {
	name    string
	content string
}

// Run executes every configuration against every data path. The callback, if
// provided, is invoked after each evaluated candle.
func (e *Engine) Run(onCandle optional.Option[OnCandleCallback]) error {
	if err := e.preRunCheck(); err != nil {
		return err
	}

	if _, err := os.Stat(e.resultsFolder); err == nil {
		os.RemoveAll(e.resultsFolder)
	}

	if err := os.MkdirAll(e.resultsFolder, 0755); err != nil {
		return fmt.Errorf("failed to create results folder: %w", err)
	}

	configs, err := e.collectConfigs()
	if err != nil {
		return err
	}

	for _, cfg := range configs {
		for _, dataPath := range e.dataPaths {
			if err := e.runOne(cfg, dataPath, onCandle); err != nil {
				return err
			}
		}
	}

	return nil
}

// runOne executes a single configuration against a single data path and
// writes the result folder. A strategy failure is recorded in the result
// file instead of returned; only IO failures propagate.
func (e *Engine) runOne(cfg configItem, dataPath string, onCandle optional.Option[OnCandleCallback]) error {
	resultFolderPath := e.getResultFolder(cfg.name, dataPath)

	e.log.Debug("Running backtest",
		zap.String("config", cfg.name),
		zap.String("data", dataPath),
		zap.String("result", resultFolderPath),
	)

	result := e.execute(cfg, dataPath, onCandle)

	if err := os.MkdirAll(resultFolderPath, 0755); err != nil {
		return fmt.Errorf("failed to create result folder: %w", err)
	}

	if err := types.WriteResult(filepath.Join(resultFolderPath, ResultFileName), result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	if err := writeTrades(filepath.Join(resultFolderPath, TradesFileName), result.Trades); err != nil {
		return fmt.Errorf("failed to write trades: %w", err)
	}

	return nil
}

// execute runs the strategy pipeline and always produces a result, folding
// configuration and data errors into Result.Error.
func (e *Engine) execute(cfg configItem, dataPath string, onCandle optional.Option[OnCandleCallback]) types.Result {
	strategyConfig, err := ParseStrategyConfig(cfg.content)
	if err != nil {
		e.log.Error("Invalid strategy config",
			zap.String("config", cfg.name),
			zap.Error(err),
		)

		return types.Result{Error: err.Error()}
	}

	backtest, err := NewBacktest(strategyConfig, e.log)
	if err != nil {
		return types.Result{StrategyVars: strategyConfig, Error: err.Error()}
	}

	backtest.precision = e.config.DecimalPrecision

	if err := e.datasource.Initialize(dataPath); err != nil {
		e.log.Error("Failed to initialize data source",
			zap.String("data", dataPath),
			zap.Error(err),
		)

		return types.Result{
			StrategyVars: strategyConfig,
			Error:        errors.Wrap(errors.ErrCodeBacktestDataError, "failed to initialize data source", err).Error(),
		}
	}

	candles, err := datasource.Collect(e.datasource, e.config.StartTime, e.config.EndTime)
	if err != nil {
		return types.Result{
			StrategyVars: strategyConfig,
			Error:        errors.Wrap(errors.ErrCodeBacktestDataError, "failed to read candles", err).Error(),
		}
	}

	startTime := defaultStart(candles)
	if e.config.StartTime.IsSome() {
		startTime = e.config.StartTime.Unwrap()
	}

	endTime := defaultEnd(candles)
	if e.config.EndTime.IsSome() {
		endTime = e.config.EndTime.Unwrap()
	}

	return backtest.Run(startTime, endTime, candles, onCandle)
}

func (e *Engine) collectConfigs() ([]configItem, error) {
	var configs []configItem

	if len(e.strategyConfigs) > 0 {
		for i, content := range e.strategyConfigs {
			configs = append(configs, configItem{
				name:    fmt.Sprintf("config_%d", i),
				content: content,
			})
		}

		return configs, nil
	}

	for _, configPath := range e.strategyConfigPaths {
		content, err := os.ReadFile(configPath)
		if err != nil {
			e.log.Error("Failed to read config",
				zap.String("config", configPath),
				zap.Error(err),
			)

			return nil, err
		}

		configs = append(configs, configItem{
			name:    configPath,
			content: string(content),
		})
	}

	return configs, nil
}

func (e *Engine) preRunCheck() error {
	if len(e.strategyConfigPaths) == 0 && len(e.strategyConfigs) == 0 {
		e.log.Error("No strategy configs loaded")

		return errors.New(errors.ErrCodeBacktestNoConfigs, "no strategy configs loaded")
	}

	if len(e.dataPaths) == 0 {
		e.log.Error("No data paths loaded")

		return errors.New(errors.ErrCodeBacktestNoDataPaths, "no data paths loaded")
	}

	if e.resultsFolder == "" {
		e.log.Error("No results folder set")

		return errors.New(errors.ErrCodeBacktestNoResultsDir, "no results folder set")
	}

	if e.datasource == nil {
		e.log.Error("No data source set")

		return errors.New(errors.ErrCodeBacktestNoDatasource, "no data source set")
	}

	return nil
}

func writeTrades(path string, trades []types.Trade) error {
	if trades == nil {
		trades = []types.Trade{}
	}

	data, err := json.MarshalIndent(trades, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal trades: %w", err)
	}

	return os.WriteFile(path, data, 0644)
}
