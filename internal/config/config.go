// Package config loads pacenet settings from YAML and the environment.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"pacenet/internal/classify"
	"pacenet/internal/engine"
	"pacenet/internal/network"
	"pacenet/internal/storage"
)

// Config is the full run configuration.
type Config struct {
	Topology   network.Topology    `yaml:"topology"`
	Thresholds classify.Thresholds `yaml:"thresholds"`
	Engine     EngineConfig        `yaml:"engine"`
	Sweep      SweepConfig         `yaml:"sweep"`
	Storage    StorageConfig       `yaml:"storage"`
	FileTree   FileTreeConfig      `yaml:"filetree"`
	Logging    LoggingConfig       `yaml:"logging"`
	Metrics    MetricsConfig       `yaml:"metrics"`
}

// EngineConfig selects the engine and carries its per-run settings.
type EngineConfig struct {
	Name          string `yaml:"name" validate:"oneof=lif"`
	engine.Config `yaml:",inline"`
}

type SweepConfig struct {
	// Workers is the number of simulations run concurrently.
	Workers int `yaml:"workers" validate:"min=1"`
	// ArchiveEvery archives per-run artifacts after this many completions;
	// zero disables archiving.
	ArchiveEvery int   `yaml:"archive_every" validate:"min=0"`
	Seed         int64 `yaml:"seed"`
}

type StorageConfig struct {
	Kind       string `yaml:"kind" validate:"oneof=memory sqlite"`
	SQLitePath string `yaml:"sqlite_path" validate:"required_if=Kind sqlite"`
}

type FileTreeConfig struct {
	// Roots are indexed by root identity.
	Roots []string `yaml:"roots" validate:"min=1,dive,required"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=console json"`
}

type MetricsConfig struct {
	// Textfile, when set, receives a Prometheus text exposition after each
	// batch.
	Textfile string `yaml:"textfile"`
}

func Default() *Config {
	return &Config{
		Topology:   network.DefaultTopology(),
		Thresholds: classify.DefaultThresholds(),
		Engine: EngineConfig{
			Name:   engine.LIFName,
			Config: engine.DefaultConfig(),
		},
		Sweep: SweepConfig{
			Workers:      runtime.NumCPU(),
			ArchiveEvery: 20,
			Seed:         1,
		},
		Storage: StorageConfig{
			Kind:       storage.DefaultStoreKind(),
			SQLitePath: "pacenet.db",
		},
		FileTree: FileTreeConfig{
			Roots: []string{filepath.Join("data", "root0"), filepath.Join("data", "root1")},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path (skipped when empty), applies PACENET_* environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	if err := applyEnvOverrides(cfg, os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks field constraints and the cross-section invariants the
// tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	if err := c.Topology.Validate(); err != nil {
		return fmt.Errorf("topology: %w", err)
	}
	if err := c.Engine.Config.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	if c.Thresholds.StopTime != c.Engine.StopTime {
		return fmt.Errorf("thresholds.stop_time %g must equal engine.stop_time %g", c.Thresholds.StopTime, c.Engine.StopTime)
	}
	return nil
}

func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := e.Namespace()
	if i := strings.IndexByte(field, '.'); i >= 0 {
		field = field[i+1:]
	}
	switch e.Tag() {
	case "required", "required_if":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "gtefield":
		return fmt.Sprintf("%s must not be less than %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

// applyEnvOverrides applies PACENET_* environment variables to cfg.
func applyEnvOverrides(cfg *Config, getenv func(string) string) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"PACENET_WORKERS", &cfg.Sweep.Workers},
		{"PACENET_ARCHIVE_EVERY", &cfg.Sweep.ArchiveEvery},
	}
	for _, o := range ints {
		if v := getenv(o.key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", o.key, err)
			}
			*o.dst = n
		}
	}
	if v := getenv("PACENET_SEED"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("PACENET_SEED: %w", err)
		}
		cfg.Sweep.Seed = n
	}

	strs := []struct {
		key string
		dst *string
	}{
		{"PACENET_ENGINE", &cfg.Engine.Name},
		{"PACENET_STORE", &cfg.Storage.Kind},
		{"PACENET_SQLITE_PATH", &cfg.Storage.SQLitePath},
		{"PACENET_LOG_LEVEL", &cfg.Logging.Level},
		{"PACENET_LOG_FORMAT", &cfg.Logging.Format},
		{"PACENET_METRICS_TEXTFILE", &cfg.Metrics.Textfile},
	}
	for _, o := range strs {
		if v := getenv(o.key); v != "" {
			*o.dst = v
		}
	}

	if v := getenv("PACENET_ROOTS"); v != "" {
		cfg.FileTree.Roots = filepath.SplitList(v)
	}
	return nil
}
