package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/ridefit/internal/fitfile"
	"github.com/samcharles93/ridefit/pkg/activity"
	"github.com/samcharles93/ridefit/pkg/fit"
)

func inspectCmd() *cli.Command {
	var (
		path            string
		showRecords     bool
		showDefinitions bool
		showDevFields   bool
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Print the structure of a FIT file",
		ArgsUsage: "<file.fit>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "in",
				Aliases:     []string{"i"},
				Usage:       "path to .fit file",
				Destination: &path,
			},
			&cli.BoolFlag{
				Name:        "records",
				Usage:       "print every data record",
				Destination: &showRecords,
			},
			&cli.BoolFlag{
				Name:        "definitions",
				Usage:       "print the definitions bound at end of file",
				Destination: &showDefinitions,
			},
			&cli.BoolFlag{
				Name:        "dev-fields",
				Usage:       "print developer field descriptions",
				Destination: &showDevFields,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			if path == "" {
				path = cmd.Args().First()
			}
			if path == "" {
				return errors.New("inspect: missing file (use --in or pass a path)")
			}

			f, err := fitfile.Open(path)
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			return inspect(outWriter(cmd), path, f.Data, inspectOptions{
				records:     showRecords,
				definitions: showDefinitions,
				devFields:   showDevFields,
			})
		},
	}
}

type inspectOptions struct {
	records     bool
	definitions bool
	devFields   bool
}

func inspect(w io.Writer, name string, data []byte, opts inspectOptions) error {
	dec, err := fit.NewDecoder(data, fit.WithChecksum(false))
	if err != nil {
		return err
	}
	h := dec.Header()
	declared := int(h.Size) + int(h.DataSize)

	fmt.Fprintf(w, "file:       %s (%s)\n", name, formatBytes(uint64(len(data))))
	fmt.Fprintf(w, "header:     %d bytes, protocol %d.%d, profile %d.%02d\n",
		h.Size, h.ProtocolVersion>>4, h.ProtocolVersion&0x0f, h.ProfileVersion/100, h.ProfileVersion%100)
	fmt.Fprintf(w, "records:    %s\n", formatBytes(uint64(h.DataSize)))
	if h.Size >= fit.HeaderSize {
		fmt.Fprintf(w, "header crc: %#04x (%s)\n", h.Checksum, crcStatus(h.Checksum == 0 || h.Checksum == fit.Checksum(data[:12])))
	}
	if len(data) >= declared+2 {
		want := binary.LittleEndian.Uint16(data[declared:])
		fmt.Fprintf(w, "file crc:   %#04x (%s)\n", want, crcStatus(fit.Checksum(data[:declared]) == want))
	} else {
		fmt.Fprintf(w, "file crc:   missing (%d of %d bytes present)\n", len(data), declared+2)
	}

	counts := map[fit.MesgNum]int{}
	var streamErr error
	for {
		m, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			streamErr = err
			break
		}
		counts[m.Global]++
		if opts.records {
			printRecord(w, m)
		}
	}

	fmt.Fprintln(w, "\nmessages:")
	globals := make([]fit.MesgNum, 0, len(counts))
	for g := range counts {
		globals = append(globals, g)
	}
	sort.Slice(globals, func(i, j int) bool { return globals[i] < globals[j] })
	for _, g := range globals {
		fmt.Fprintf(w, "  %-20s %6d\n", g, counts[g])
	}

	if opts.definitions {
		fmt.Fprintln(w, "\ndefinitions:")
		for _, def := range dec.Definitions() {
			fmt.Fprintf(w, "  local %-2d %-20s %d fields, %d dev fields, %d bytes\n",
				def.Local, def.Global, len(def.Fields), len(def.DevFields), def.DataSize())
		}
	}

	if opts.devFields {
		fmt.Fprintln(w, "\ndeveloper fields:")
		for _, desc := range dec.FieldDescriptions() {
			native := ""
			if desc.HasNative {
				native = fmt.Sprintf(" native=%s", desc.NativeMesg)
			}
			fmt.Fprintf(w, "  [%d:%d] %-16s %-8s%s\n", desc.Key.Index, desc.Key.Num, desc.Name, desc.Type, native)
		}
	}

	if res, err := activity.Decode(data, fit.WithChecksum(false)); res != nil && err == nil {
		fmt.Fprintln(w, "\nactivity:")
		fmt.Fprintf(w, "  workout:  %s (%d segments, lossless=%t)\n", orDash(res.Plan.Title), len(res.Plan.Segments), res.Meta.Lossless)
		fmt.Fprintf(w, "  started:  %s\n", res.Meta.StartedAt.Format("2006-01-02 15:04:05Z07:00"))
		fmt.Fprintf(w, "  elapsed:  %.0fs, timer %.0fs\n", res.Meta.ElapsedSec, res.Meta.TimerSec)
		fmt.Fprintf(w, "  samples:  %d\n", len(res.Samples))
		fmt.Fprintf(w, "  ftp:      %d W\n", res.Meta.FTP)
	}

	if streamErr != nil {
		return fmt.Errorf("inspect %s: %w", name, streamErr)
	}
	return nil
}

func printRecord(w io.Writer, m *fit.Message) {
	var b strings.Builder
	fmt.Fprintf(&b, "@%-7d %-18s", m.Offset, m.Global)
	for _, f := range m.Fields {
		if f.Value == nil {
			continue
		}
		fmt.Fprintf(&b, " %d=%v", f.Num, f.Value)
	}
	for _, f := range m.DevFields {
		name := f.Name
		if name == "" {
			name = fmt.Sprintf("dev%d:%d", f.Key.Index, f.Key.Num)
		}
		switch v := f.Value.(type) {
		case []byte:
			fmt.Fprintf(&b, " %s=<%d bytes>", name, len(v))
		case string:
			if len(v) > 32 {
				v = v[:32] + "..."
			}
			fmt.Fprintf(&b, " %s=%q", name, v)
		default:
			fmt.Fprintf(&b, " %s=%v", name, v)
		}
	}
	fmt.Fprintln(w, b.String())
}

func crcStatus(ok bool) string {
	if ok {
		return "ok"
	}
	return "MISMATCH"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func formatBytes(b uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.2f GiB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.2f MiB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.2f KiB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
