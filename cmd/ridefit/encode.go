package main

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ridefit/internal/logger"
	"github.com/samcharles93/ridefit/pkg/activity"
)

func encodeCmd() *cli.Command {
	var (
		in, out string
		ftp     int64
	)

	return &cli.Command{
		Name:  "encode",
		Usage: "Encode an activity JSON document as a FIT file",
		Flags: append(ioFlags(&in, &out, "output .fit file (- for stdout)"),
			&cli.Int64Flag{
				Name:        "ftp",
				Usage:       "functional threshold power in watts (overrides the document)",
				Destination: &ftp,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg := configFrom(ctx)

			raw, err := readInput(cmd, in)
			if err != nil {
				return err
			}
			var a activity.Activity
			if err := json.Unmarshal(raw, &a); err != nil {
				return fmt.Errorf("parse activity: %w", err)
			}
			if a.StartedAt.IsZero() {
				return fmt.Errorf("parse activity: startedAt is required")
			}
			switch {
			case cmd.IsSet("ftp"):
				a.FTP = int(ftp)
			case a.FTP == 0:
				a.FTP = cfg.FTP
			}
			if a.FTP < 0 {
				return fmt.Errorf("ftp must not be negative, got %d", a.FTP)
			}
			if a.Device == nil {
				a.Device = deviceFrom(cfg)
			}

			data := activity.Encode(a)
			if err := writeOutput(cmd, out, data); err != nil {
				return err
			}
			log.Info("encoded activity",
				"samples", len(a.Samples),
				"segments", len(a.Plan.Segments),
				"bytes", len(data),
				"out", out,
			)
			return nil
		},
	}
}
