package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/antijam/mimo-controller/internal/env"
	"gopkg.in/yaml.v3"
)

// Simulation engines.
const (
	EngineAnalytic = "analytic"
	EngineSidecar  = "sidecar"
)

// ErrInvalid is wrapped by every Validate failure.
var ErrInvalid = errors.New("invalid config")

// #region config
// Config is the file-level configuration shared by the CLI commands.
type Config struct {
	Dataset        string        `yaml:"dataset"`
	Scaler         string        `yaml:"scaler"`
	MaxSteps       int           `yaml:"max_steps"`
	Seed           uint64        `yaml:"seed"`
	Episodes       int           `yaml:"episodes"`
	Engine         string        `yaml:"engine"`
	DB             string        `yaml:"db"`
	ListenAddr     string        `yaml:"listen_addr"`
	SidecarAddr    string        `yaml:"sidecar_addr"`
	SidecarTimeout time.Duration `yaml:"sidecar_timeout"`
	ResultsDir     string        `yaml:"results_dir"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Dataset:        "balanced_dataset_20000.csv",
		Scaler:         "rf_scaler.bin",
		MaxSteps:       env.DefaultConfig().MaxSteps,
		Episodes:       100,
		Engine:         EngineAnalytic,
		DB:             "antijam.db",
		ListenAddr:     "localhost:50061",
		SidecarAddr:    "localhost:50051",
		SidecarTimeout: 10 * time.Second,
		ResultsDir:     "results",
	}
}

// #endregion config

// #region load
// Load reads path over Default() and then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := Parse(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	cfg.ApplyEnv(os.Getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML into cfg, keeping fields the document does not set.
// Unknown keys are rejected.
func Parse(b []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides paths and addresses from ANTIJAM_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	envOr := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}
	c.DB = envOr("ANTIJAM_DB", c.DB)
	c.SidecarAddr = envOr("ANTIJAM_SIDECAR_ADDR", c.SidecarAddr)
	c.ListenAddr = envOr("ANTIJAM_LISTEN_ADDR", c.ListenAddr)
	c.Dataset = envOr("ANTIJAM_DATASET", c.Dataset)
	c.Scaler = envOr("ANTIJAM_SCALER", c.Scaler)
}

// #endregion load

// #region validate
// Validate rejects settings no command can run with.
func (c Config) Validate() error {
	if c.MaxSteps <= 0 {
		return fmt.Errorf("%w: max_steps must be positive, got %d", ErrInvalid, c.MaxSteps)
	}
	if c.Episodes <= 0 {
		return fmt.Errorf("%w: episodes must be positive, got %d", ErrInvalid, c.Episodes)
	}
	switch c.Engine {
	case EngineAnalytic, EngineSidecar:
	default:
		return fmt.Errorf("%w: unknown engine %q", ErrInvalid, c.Engine)
	}
	if c.SidecarTimeout < 0 {
		return fmt.Errorf("%w: negative sidecar_timeout", ErrInvalid)
	}
	return nil
}

// Env returns the environment construction parameters.
func (c Config) Env() env.Config {
	return env.Config{
		DatasetPath: c.Dataset,
		ScalerPath:  c.Scaler,
		MaxSteps:    c.MaxSteps,
		Seed:        c.Seed,
	}
}

// #endregion validate
