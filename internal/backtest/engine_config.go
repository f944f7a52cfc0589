package backtest

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
)

// EngineConfig configures a batch of backtest runs. Start and end times are
// optional; absent values mean the full extent of each data file.
type EngineConfig struct {
	StartTime        optional.Option[time.Time] `yaml:"start_time" json:"start_time" jsonschema:"title=Start Time,description=Optional start of the evaluated period"`
	EndTime          optional.Option[time.Time] `yaml:"end_time" json:"end_time" jsonschema:"title=End Time,description=Optional end of the evaluated period"`
	DecimalPrecision int32                      `yaml:"decimal_precision" json:"decimal_precision" jsonschema:"title=Decimal Precision,description=Decimal places order quantities are truncated to,minimum=0"`
}

// EmptyConfig returns the engine defaults.
func EmptyConfig() EngineConfig {
	return EngineConfig{
		StartTime:        optional.None[time.Time](),
		EndTime:          optional.None[time.Time](),
		DecimalPrecision: DefaultQuantityPrecision,
	}
}

// UnmarshalYAML implements custom unmarshaling so absent timestamps become
// None instead of zero times.
func (c *EngineConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type Config struct {
		StartTime        *time.Time `yaml:"start_time"`
		EndTime          *time.Time `yaml:"end_time"`
		DecimalPrecision *int32     `yaml:"decimal_precision"`
	}

	var config Config
	if err := unmarshal(&config); err != nil {
		return err
	}

	if config.StartTime != nil {
		c.StartTime = optional.Some(*config.StartTime)
	}

	if config.EndTime != nil {
		c.EndTime = optional.Some(*config.EndTime)
	}

	if config.DecimalPrecision != nil {
		c.DecimalPrecision = *config.DecimalPrecision
	} else if c.DecimalPrecision == 0 {
		c.DecimalPrecision = DefaultQuantityPrecision
	}

	return nil
}

// GenerateSchema generates a JSON schema for the EngineConfig.
func (c *EngineConfig) GenerateSchema() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		ExpandedStruct:            true,
		AllowAdditionalProperties: false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t.String() == "optional.Option[time.Time]" {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)
	schema.Title = "backtest-engine-config"
	schema.Description = "Configuration schema for the backtest engine"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema
}

// GenerateSchemaJSON generates a JSON schema string for the EngineConfig.
func (c *EngineConfig) GenerateSchemaJSON() (string, error) {
	schemaBytes, err := json.MarshalIndent(c.GenerateSchema(), "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
