package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/samcharles93/ridefit/pkg/activity"
	"github.com/samcharles93/ridefit/pkg/fit"
)

const rideJSON = `{
	"workout": {"title": "Over-Unders", "rawSegments": [[10, 50, 70], [12, 95, 105, 92], [8, 0, 0, "freeride"]]},
	"samples": [
		{"t": 0, "power": 150, "heartRate": 110, "cadence": 88},
		{"t": 1, "power": 160, "heartRate": 111, "cadence": 89},
		{"t": 2, "power": 170, "cadence": 90}
	],
	"startedAt": "2024-05-10T18:30:00Z",
	"endedAt": "2024-05-10T19:00:00Z"
}`

func runApp(t *testing.T, dir string, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Reader = strings.NewReader(stdin)
	app.Writer = &stdout
	app.ErrWriter = &stderr
	argv := append([]string{"ridefit", "--config", filepath.Join(dir, "config.yaml")}, args...)
	err := app.Run(context.Background(), argv)
	return stdout.String(), stderr.String(), err
}

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestEncodeDecodeCommands(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fitPath := filepath.Join(dir, "ride.fit")
	if _, stderr, err := runApp(t, dir, rideJSON, "encode", "--ftp", "280", "--out", fitPath); err != nil {
		t.Fatalf("encode: %v\n%s", err, stderr)
	}

	stdout, stderr, err := runApp(t, dir, "", "decode", "--in", fitPath)
	if err != nil {
		t.Fatalf("decode: %v\n%s", err, stderr)
	}
	var res activity.Result
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("decode output: %v\n%s", err, stdout)
	}
	if res.Plan.Title != "Over-Unders" || len(res.Plan.Segments) != 3 {
		t.Fatalf("plan: got %+v", res.Plan)
	}
	if res.Meta.FTP != 280 {
		t.Fatalf("ftp: got %d want 280", res.Meta.FTP)
	}
	if len(res.Samples) != 3 || res.Samples[2].HeartRate != nil {
		t.Fatalf("samples: got %+v", res.Samples)
	}
}

func TestEncodeUsesConfigDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeConfig(t, dir, "ftp: 240\ndevice:\n  product_name: garage-pc\n")

	stdout, stderr, err := runApp(t, dir, rideJSON, "encode")
	if err != nil {
		t.Fatalf("encode: %v\n%s", err, stderr)
	}
	if !strings.Contains(stdout, "garage-pc") {
		t.Fatal("configured product name not written")
	}
	res, err := activity.Decode([]byte(stdout))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Meta.FTP != 240 {
		t.Fatalf("ftp: got %d want 240", res.Meta.FTP)
	}
}

func TestEncodeRejectsMissingStart(t *testing.T) {
	t.Parallel()

	_, _, err := runApp(t, t.TempDir(), `{"ftp": 200}`, "encode")
	if err == nil || !strings.Contains(err.Error(), "startedAt is required") {
		t.Fatalf("got %v want missing startedAt error", err)
	}
}

func TestDecodeTruncatedWritesPartial(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data, _, err := runApp(t, dir, rideJSON, "encode", "--ftp", "250")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	cut := filepath.Join(dir, "cut.fit")
	if err := os.WriteFile(cut, []byte(data[:len(data)-40]), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := runApp(t, dir, "", "decode", "--in", cut)
	if !errors.Is(err, fit.ErrTruncatedStream) {
		t.Fatalf("got %v want ErrTruncatedStream", err)
	}
	var res activity.Result
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("partial output: %v\n%s", err, stdout)
	}
	if len(res.Samples) != 3 {
		t.Fatalf("partial samples: got %d want 3", len(res.Samples))
	}
}

func TestDecodeChecksumVerification(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	data, _, err := runApp(t, dir, rideJSON, "encode", "--ftp", "250")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	corrupt := []byte(data)
	corrupt[len(corrupt)-1] ^= 0xff
	path := filepath.Join(dir, "bad.fit")
	if err := os.WriteFile(path, corrupt, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := runApp(t, dir, "", "decode", "--in", path); !errors.Is(err, fit.ErrChecksumMismatch) {
		t.Fatalf("got %v want ErrChecksumMismatch", err)
	}
	if _, _, err := runApp(t, dir, "", "decode", "--no-verify", "--in", path); err != nil {
		t.Fatalf("--no-verify: %v", err)
	}

	writeConfig(t, dir, "decode:\n  verify_checksum: false\n")
	if _, _, err := runApp(t, dir, "", "decode", "--in", path); err != nil {
		t.Fatalf("verify disabled in config: %v", err)
	}
}

func TestInspectCommand(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	fitPath := filepath.Join(dir, "ride.fit")
	if _, _, err := runApp(t, dir, rideJSON, "encode", "--ftp", "250", "--out", fitPath); err != nil {
		t.Fatalf("encode: %v", err)
	}

	stdout, stderr, err := runApp(t, dir, "", "inspect", "--definitions", "--dev-fields", fitPath)
	if err != nil {
		t.Fatalf("inspect: %v\n%s", err, stderr)
	}
	for _, want := range []string{
		"header:     14 bytes, protocol 2.0, profile 21.32",
		"file crc:",
		"(ok)",
		"record",
		"workout_step",
		"definitions:",
		"developer fields:",
		"Over-Unders (3 segments, lossless=true)",
		"samples:  3",
	} {
		if !strings.Contains(stdout, want) {
			t.Fatalf("inspect output missing %q:\n%s", want, stdout)
		}
	}
}

func TestInspectNeedsPath(t *testing.T) {
	t.Parallel()

	if _, _, err := runApp(t, t.TempDir(), "", "inspect"); err == nil {
		t.Fatal("expected error without a path")
	}
}

func TestFormatBytes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   uint64
		want string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.00 KiB"},
		{3 << 20, "3.00 MiB"},
		{5 << 30, "5.00 GiB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.in); got != tt.want {
			t.Fatalf("formatBytes(%d): got %q want %q", tt.in, got, tt.want)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	t.Parallel()

	stdout, _, err := runApp(t, t.TempDir(), "", "version")
	if err != nil {
		t.Fatalf("version: %v", err)
	}
	if !strings.HasPrefix(stdout, "version:") {
		t.Fatalf("unexpected output: %q", stdout)
	}
}
