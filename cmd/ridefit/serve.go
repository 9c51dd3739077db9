package main

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ridefit/internal/api"
	"github.com/samcharles93/ridefit/internal/config"
	"github.com/samcharles93/ridefit/internal/logger"
	"github.com/samcharles93/ridefit/internal/store"
)

func serveCmd() *cli.Command {
	var (
		addr        string
		readTimeout time.Duration
		dataDir     string
		noArchive   bool
	)

	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the codec and activity archive over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "addr",
				Usage:       "listen address",
				Value:       "127.0.0.1:8088",
				Destination: &addr,
			},
			&cli.DurationFlag{
				Name:        "read-timeout",
				Usage:       "read header timeout",
				Value:       30 * time.Second,
				Destination: &readTimeout,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "activity archive directory",
				Destination: &dataDir,
			},
			&cli.BoolFlag{
				Name:        "no-archive",
				Usage:       "serve only the stateless encode and decode routes",
				Destination: &noArchive,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg := configFrom(ctx)
			applyServeConfig(cmd, cfg, &addr, &readTimeout, &dataDir)

			opts := api.Options{
				Logger:         log.WithGroup("api"),
				RateLimit:      cfg.Server.RateLimit,
				RateBurst:      cfg.Server.RateBurst,
				MaxBodyBytes:   cfg.Server.MaxBodyBytes,
				VerifyChecksum: cfg.Decode.Verify(),
				FTP:            cfg.FTP,
				Device:         deviceFrom(cfg),
			}
			if !noArchive {
				archive, err := store.Open(dataDir)
				if err != nil {
					return err
				}
				defer func() {
					if err := archive.Close(); err != nil {
						log.Error("close archive", "error", err)
					}
				}()
				opts.Archive = archive
				log.Info("activity archive opened", "dir", dataDir)
			}

			server := api.NewServer(opts)
			e := echo.New()
			e.Use(middleware.RequestLogger())
			e.Use(middleware.Recover())
			server.Register(e)
			log.Info("starting server", "address", addr)
			sc := echo.StartConfig{
				Address: addr,
				BeforeServeFunc: func(srv *http.Server) error {
					srv.ReadHeaderTimeout = readTimeout
					return nil
				},
			}
			return sc.Start(ctx, e)
		},
	}
}

// applyServeConfig applies config file values to serve flags that were not
// set explicitly.
func applyServeConfig(c *cli.Command, cfg config.Config, addr *string, readTimeout *time.Duration, dataDir *string) {
	if cfg.Server.Address != "" && !c.IsSet("addr") {
		*addr = cfg.Server.Address
	}
	if cfg.Server.ReadTimeout > 0 && !c.IsSet("read-timeout") {
		*readTimeout = cfg.Server.ReadTimeout
	}
	if !c.IsSet("data-dir") {
		*dataDir = cfg.Server.DataDir
	}
}
