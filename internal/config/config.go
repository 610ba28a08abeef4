package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"sync"

	"relaygen/internal/discovery"
	"relaygen/internal/logging"
	"relaygen/internal/tracing"

	"github.com/joho/godotenv"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath = "relaygen.yaml"
	envPrefix   = "RELAYGEN_"
	schemaURL   = "relaygen.schema.json"
)

//go:embed schema.json
var schemaSource string

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

type ProviderConfig struct {
	Package string `yaml:"package"`
	Name    string `yaml:"name"`
}

type Config struct {
	Project struct {
		Root string `yaml:"root"`
		// Module overrides the module path read from go.mod.
		Module string `yaml:"module"`
	} `yaml:"project"`
	Generate struct {
		Workers  int            `yaml:"workers"`
		Provider ProviderConfig `yaml:"provider"`
	} `yaml:"generate"`
	History struct {
		Enabled bool   `yaml:"enabled"`
		DB      string `yaml:"db"`
	} `yaml:"history"`
	Metrics struct {
		// Textfile receives the run metrics in node_exporter textfile format. Empty disables export.
		Textfile string `yaml:"textfile"`
	} `yaml:"metrics"`
	Tracing tracing.Config `yaml:"tracing"`
	Logging logging.Config `yaml:"logging"`
}

func Default() *Config {
	cfg := &Config{}
	cfg.Project.Root = "."
	cfg.Generate.Provider = ProviderConfig{
		Package: discovery.DefaultProviderPkgPath,
		Name:    discovery.DefaultProviderName,
	}
	cfg.History.Enabled = true
	cfg.History.DB = ".relaygen/history.db"
	cfg.Logging = logging.DefaultConfig()
	return cfg
}

// Discovery is the provider selection for discovery.
func (c *Config) Discovery() discovery.Options {
	return discovery.Options{
		ProviderPkgPath: c.Generate.Provider.Package,
		ProviderName:    c.Generate.Provider.Name,
	}
}

// LoadConfig reads path over the defaults. A missing file is not an error.
// .env is loaded first and RELAYGEN_* variables win over the file.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	file, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := Validate(file); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks a YAML document against the embedded schema.
func Validate(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse yaml: %w", err)
	}
	if doc == nil {
		return nil
	}

	// Round-trip through JSON so the validator sees JSON types.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config is not representable as JSON: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var value any
	if err := dec.Decode(&value); err != nil {
		return err
	}

	schema, err := loadSchema()
	if err != nil {
		return err
	}
	return schema.Validate(value)
}

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(schemaURL, strings.NewReader(schemaSource)); err != nil {
			schemaErr = fmt.Errorf("failed to load config schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(schemaURL)
	})
	return compiledSchema, schemaErr
}

func applyEnv(cfg *Config) error {
	str := map[string]*string{
		"ROOT":             &cfg.Project.Root,
		"MODULE":           &cfg.Project.Module,
		"DB":               &cfg.History.DB,
		"PROVIDER_PACKAGE": &cfg.Generate.Provider.Package,
		"PROVIDER_NAME":    &cfg.Generate.Provider.Name,
		"LOG_LEVEL":        &cfg.Logging.Level,
		"LOG_FORMAT":       &cfg.Logging.Format,
		"METRICS_TEXTFILE": &cfg.Metrics.Textfile,
		"TRACE_FILE":       &cfg.Tracing.File,
	}
	for key, dst := range str {
		if v := os.Getenv(envPrefix + key); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv(envPrefix + "WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid %sWORKERS %q", envPrefix, v)
		}
		cfg.Generate.Workers = n
	}

	bools := map[string]*bool{
		"HISTORY": &cfg.History.Enabled,
		"TRACE":   &cfg.Tracing.Enabled,
	}
	for key, dst := range bools {
		if v := os.Getenv(envPrefix + key); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s %q: %w", envPrefix, key, v, err)
			}
			*dst = b
		}
	}
	return nil
}
