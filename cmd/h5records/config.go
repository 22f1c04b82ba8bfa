package main

import (
	"os"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Config is the optional TOML configuration file. Flags given on the
// command line take precedence over it.
type Config struct {
	Log  LogConfig  `toml:"log"`
	Dump DumpConfig `toml:"dump"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type DumpConfig struct {
	// MaxValues limits how many elements of each dataset or attribute are
	// printed with --values; 0 prints all of them.
	MaxValues int `toml:"max_values"`
}

func defaultConfig() Config {
	return Config{
		Log:  LogConfig{Level: "info", Format: "text"},
		Dump: DumpConfig{MaxValues: 16},
	}
}

// loadConfig reads path over the defaults. An empty path yields the
// defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrap(err, "read config file")
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config file %s", path)
	}
	return cfg, nil
}

// configure loads the configuration named by --config, applies the flags
// set on the command line and sets up logging.
func configure(c *cli.Context) (Config, error) {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return cfg, err
	}
	if c.IsSet("log-level") {
		cfg.Log.Level = c.String("log-level")
	}
	if c.IsSet("log-format") {
		cfg.Log.Format = c.String("log-format")
	}
	if c.IsSet("max-values") {
		cfg.Dump.MaxValues = c.Int("max-values")
	}
	return cfg, setupLogging(cfg.Log)
}

func setupLogging(cfg LogConfig) error {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return err
	}
	logrus.SetLevel(level)
	switch cfg.Format {
	case "", "text":
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		return errors.Errorf("unknown log format %q, possible values: text, json", cfg.Format)
	}
	return nil
}
