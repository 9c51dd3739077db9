package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ridefit/internal/fitfile"
	"github.com/samcharles93/ridefit/internal/logger"
	"github.com/samcharles93/ridefit/pkg/activity"
	"github.com/samcharles93/ridefit/pkg/fit"
)

func decodeCmd() *cli.Command {
	var (
		in, out  string
		pretty   bool
		noVerify bool
	)

	return &cli.Command{
		Name:  "decode",
		Usage: "Decode a FIT activity file to JSON",
		Flags: append(ioFlags(&in, &out, "output .json file (- for stdout)"),
			&cli.BoolFlag{
				Name:        "pretty",
				Usage:       "indent the JSON output",
				Destination: &pretty,
			},
			&cli.BoolFlag{
				Name:        "no-verify",
				Usage:       "skip the trailing file checksum check",
				Destination: &noVerify,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log := logger.FromContext(ctx)
			cfg := configFrom(ctx)

			verify := cfg.Decode.Verify()
			if cmd.IsSet("no-verify") {
				verify = !noVerify
			}

			data, closeFn, err := openFit(cmd, in)
			if err != nil {
				return err
			}
			defer closeFn()

			res, decErr := activity.Decode(data, fit.WithChecksum(verify))
			if res == nil {
				return fmt.Errorf("decode %s: %w", in, decErr)
			}

			var body []byte
			if pretty {
				body, err = json.MarshalIndent(res, "", "  ")
			} else {
				body, err = json.Marshal(res)
			}
			if err != nil {
				return err
			}
			if err := writeOutput(cmd, out, append(body, '\n')); err != nil {
				return err
			}

			if errors.Is(decErr, fit.ErrTruncatedStream) {
				log.Warn("decode truncated", "samples", len(res.Samples), "error", decErr)
				return fmt.Errorf("decode %s: partial result: %w", in, decErr)
			}
			log.Info("decoded activity",
				"samples", len(res.Samples),
				"segments", len(res.Plan.Segments),
				"lossless", res.Meta.Lossless,
			)
			return nil
		},
	}
}

// openFit maps a FIT file from disk, or reads it from stdin for "-".
func openFit(cmd *cli.Command, path string) ([]byte, func(), error) {
	if path == "-" || path == "" {
		data, err := readInput(cmd, path)
		return data, func() {}, err
	}
	f, err := fitfile.Open(path)
	if err != nil {
		return nil, nil, err
	}
	return f.Data, func() { _ = f.Close() }, nil
}
