package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// fileConfig mirrors config.toml. Durations are strings ("10s", "500ms").
type fileConfig struct {
	BaseURL      string `toml:"base_url" json:"base_url,omitempty"`
	Timeout      string `toml:"timeout" json:"timeout,omitempty"`
	PollInterval string `toml:"poll_interval" json:"poll_interval,omitempty"`
}

const schemaURL = "taskdash://config.schema.json"

const fileSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "base_url": {"type": "string", "pattern": "^https?://"},
    "timeout": {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)?(ms|s|m)$"},
    "poll_interval": {"type": "string", "pattern": "^[0-9]+(\\.[0-9]+)?(ms|s|m)$"}
  }
}`

// Load applies settings in priority order:
// 1. Defaults
// 2. config.toml in the config directory (if present)
// 3. Environment (TASKDASH_BASE_URL)
// Flags are applied by the caller afterwards.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	if cfg.HasFile() {
		if err := cfg.loadFile(cfg.FilePath()); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", cfg.FilePath(), err)
		}
	}

	if v := strings.TrimSpace(os.Getenv(BaseURLEnv)); v != "" {
		cfg.BaseURL = v
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	var fc fileConfig
	md, err := toml.DecodeFile(path, &fc)
	if err != nil {
		return err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("unknown key: %s", undecoded[0].String())
	}
	if err := validateFile(fc); err != nil {
		return err
	}

	if fc.BaseURL != "" {
		c.BaseURL = strings.TrimRight(fc.BaseURL, "/")
	}
	if fc.Timeout != "" {
		d, err := time.ParseDuration(fc.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		c.Timeout = d
	}
	if fc.PollInterval != "" {
		d, err := time.ParseDuration(fc.PollInterval)
		if err != nil {
			return fmt.Errorf("poll_interval: %w", err)
		}
		c.PollInterval = d
	}
	return nil
}

// validateFile checks the decoded file against the embedded JSON Schema.
func validateFile(fc fileConfig) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(schemaURL, strings.NewReader(fileSchema)); err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	schema, err := compiler.Compile(schemaURL)
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return err
	}
	var obj interface{}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}

	if err := schema.Validate(obj); err != nil {
		return firstSchemaError(err)
	}
	return nil
}

func firstSchemaError(err error) error {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	if field == "" {
		return fmt.Errorf("invalid config: %s", ve.Message)
	}
	return fmt.Errorf("invalid config: %s: %s", field, ve.Message)
}
