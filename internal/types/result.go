package types

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Result is the report produced by one backtest run. When Error is non-empty
// the run aborted mid-sequence and the ledger holds the trades completed
// before the failure.
type Result struct {
	InitialBalance Balance `yaml:"initial_balance" json:"initial_balance"`
	FinalBalance   Balance `yaml:"final_balance" json:"final_balance"`
	Metrics        Metrics `yaml:"metrics" json:"metrics"`
	Trades         []Trade `yaml:"trades" json:"trades"`
	// StrategyVars is the strategy configuration the run was evaluated with.
	StrategyVars any    `yaml:"strategy_vars" json:"strategy_vars"`
	Error        string `yaml:"error,omitempty" json:"error,omitempty"`
}

// WriteResult writes the result report to a YAML file.
func WriteResult(path string, result Result) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write result to file: %w", err)
	}

	return nil
}
