package main

import (
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ridefit/internal/fitfile"
)

// readInput returns the contents of path, or of stdin when path is "-".
func readInput(cmd *cli.Command, path string) ([]byte, error) {
	if path == "-" || path == "" {
		r := cmd.Root().Reader
		if r == nil {
			r = os.Stdin
		}
		return io.ReadAll(r)
	}
	return os.ReadFile(path)
}

// writeOutput replaces path with data, or writes it to stdout when path is "-".
func writeOutput(cmd *cli.Command, path string, data []byte) error {
	if path == "-" || path == "" {
		_, err := outWriter(cmd).Write(data)
		return err
	}
	return fitfile.WriteFile(path, data)
}
