package main

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/pavanmanishd/dynarr"
	"github.com/pavanmanishd/dynarr/storage"
)

// Config is the bench configuration file.
type Config struct {
	Log LogConfig `toml:"log"`
	// Heap configures the storage every scenario allocates from.
	Heap storage.HeapConfig `toml:"heap"`
	// Strategy is one of three-halves, double or pow2.
	Strategy   string   `toml:"strategy"`
	Length     int      `toml:"length"`
	Iterations int      `toml:"iterations"`
	Scenarios  []string `toml:"scenarios"`
}

type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

func defaultConfig() Config {
	return Config{
		Log:        LogConfig{Level: "info"},
		Strategy:   "three-halves",
		Length:     1024,
		Iterations: 1000,
	}
}

// loadConfig reads path over the defaults. An empty path yields the
// defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, errors.Wrapf(err, "read config %s", path)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, errors.Errorf("unknown config keys %v in %s", undecoded, path)
		}
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.Length < 0 {
		return errors.Errorf("length must not be negative, got %d", c.Length)
	}
	if c.Iterations <= 0 {
		return errors.Errorf("iterations must be positive, got %d", c.Iterations)
	}
	if _, err := c.strategy(); err != nil {
		return err
	}
	for _, name := range c.Scenarios {
		if _, ok := scenarios[name]; !ok {
			return errors.Errorf("unknown scenario %q", name)
		}
	}
	return nil
}

func (c *Config) strategy() (dynarr.ReserveStrategy, error) {
	switch c.Strategy {
	case "", "three-halves":
		return dynarr.ThreeHalves{}, nil
	case "double":
		return dynarr.DoubleOrMin{}, nil
	case "pow2":
		return dynarr.Pow2{}, nil
	default:
		return nil, errors.Errorf("unknown strategy %q", c.Strategy)
	}
}

func newLogger(c LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if c.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if c.Level != "" {
		level, err := zapcore.ParseLevel(c.Level)
		if err != nil {
			return nil, errors.Wrap(err, "log level")
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}
	return zc.Build()
}
