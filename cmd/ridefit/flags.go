package main

import "github.com/urfave/cli/v3"

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "path to config.yaml (default: user config dir)",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "log level (debug, info, warn, error)",
			Value: "info",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "log format (pretty, json, text)",
			Value: "pretty",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "enable debug logging (shorthand for --log-level=debug)",
		},
	}
}

func ioFlags(in, out *string, outUsage string) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "in",
			Aliases:     []string{"i"},
			Usage:       "input file (- for stdin)",
			Value:       "-",
			Destination: in,
		},
		&cli.StringFlag{
			Name:        "out",
			Aliases:     []string{"o"},
			Usage:       outUsage,
			Value:       "-",
			Destination: out,
		},
	}
}
