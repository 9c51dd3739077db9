package main

import (
	"context"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ridefit/internal/config"
	"github.com/samcharles93/ridefit/internal/logger"
	"github.com/samcharles93/ridefit/pkg/activity"
)

type configKey struct{}

// setup loads the config file and installs the logger. Flags set on the
// command line win over config file values.
func setup(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if path == "" {
		path = config.Path()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return ctx, err
	}
	applyLogConfig(cmd, &cfg)

	log, err := logger.New(cfg.LogFormat, cfg.LogLevel, errWriter(cmd))
	if err != nil {
		return ctx, err
	}
	log.Debug("config loaded", "path", path)

	ctx = logger.WithContext(ctx, log)
	return context.WithValue(ctx, configKey{}, cfg), nil
}

func applyLogConfig(c *cli.Command, cfg *config.Config) {
	if c.IsSet("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("log-format") || cfg.LogFormat == "" {
		cfg.LogFormat = c.String("log-format")
	}
	if c.Bool("debug") {
		cfg.LogLevel = "debug"
	}
}

func configFrom(ctx context.Context) config.Config {
	if cfg, ok := ctx.Value(configKey{}).(config.Config); ok {
		return cfg
	}
	return config.Default()
}

// deviceFrom returns the configured creator identity, or nil when the config
// leaves every field at its zero value.
func deviceFrom(cfg config.Config) *activity.Device {
	d := activity.Device(cfg.Device)
	if d == (activity.Device{}) {
		return nil
	}
	return &d
}

func outWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}
