package activity

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/samcharles93/ridefit/pkg/fit"
)

var t0 = time.Date(2024, 3, 1, 7, 0, 0, 0, time.UTC)

func messages(t *testing.T, data []byte) []*fit.Message {
	t.Helper()
	dec, err := fit.NewDecoder(data)
	if err != nil {
		t.Fatalf("NewDecoder: %v", err)
	}
	var out []*fit.Message
	for {
		m, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("Next: %v", err)
		}
		out = append(out, m)
	}
}

func byGlobal(msgs []*fit.Message, g fit.MesgNum) []*fit.Message {
	var out []*fit.Message
	for _, m := range msgs {
		if m.Global == g {
			out = append(out, m)
		}
	}
	return out
}

func sampleRide() Activity {
	samples := make([]Sample, 0, 300)
	for i := range 300 {
		s := Sample{T: i, Power: intp(150 + i%40), Cadence: intp(85 + i%5), TargetPower: intp(200)}
		if i%7 != 0 {
			s.HeartRate = intp(120 + i%30)
		}
		samples = append(samples, s)
	}
	return Activity{
		Plan: WorkoutPlan{
			Source:      "zwo",
			Title:       "Sweet Spot 3x10",
			SourceURL:   "https://example.com/workouts/ss3x10",
			Description: "Three blocks just below threshold.",
			Segments: []Segment{
				{Minutes: 10, StartPct: 50, EndPct: 75},
				{Minutes: 10, StartPct: 88, EndPct: 92, Cadence: 90},
				{Minutes: 2.5, StartPct: 55, EndPct: 55, FreeRide: true},
				{Minutes: 5, StartPct: 75, EndPct: 40},
			},
			TextEvents: []TextEvent{{OffsetSec: 30, DurationSec: 10, Text: "Settle in"}},
		},
		Samples:   samples,
		FTP:       260,
		StartedAt: t0,
		EndedAt:   t0.Add(300 * time.Second),
		PauseEvents: []PauseEvent{
			{Kind: EventPause, At: t0.Add(120 * time.Second)},
			{Kind: EventResume, At: t0.Add(150 * time.Second)},
		},
	}
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	in := sampleRide()
	res, err := Decode(Encode(in))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !reflect.DeepEqual(res.Plan, in.Plan) {
		t.Fatalf("plan mismatch:\ngot  %+v\nwant %+v", res.Plan, in.Plan)
	}
	if !reflect.DeepEqual(res.Samples, in.Samples) {
		t.Fatalf("samples mismatch: got %d samples, want %d", len(res.Samples), len(in.Samples))
	}
	if !res.Meta.Lossless {
		t.Fatal("expected plan from embedded payload")
	}
	if res.Meta.FTP != in.FTP {
		t.Fatalf("ftp: got %d want %d", res.Meta.FTP, in.FTP)
	}
	if !res.Meta.StartedAt.Equal(t0) || !res.Meta.EndedAt.Equal(in.EndedAt) {
		t.Fatalf("bounds: got %v..%v", res.Meta.StartedAt, res.Meta.EndedAt)
	}
	if res.Meta.ElapsedSec != 300 || res.Meta.TimerSec != 270 {
		t.Fatalf("durations: got elapsed %v timer %v want 300/270", res.Meta.ElapsedSec, res.Meta.TimerSec)
	}

	want := []TimerEvent{
		{At: t0, Kind: EventResume},
		{At: t0.Add(120 * time.Second), Kind: EventPause},
		{At: t0.Add(150 * time.Second), Kind: EventResume},
		{At: t0.Add(300 * time.Second), Kind: EventStop},
	}
	if len(res.Meta.Events) != len(want) {
		t.Fatalf("events: got %d want %d", len(res.Meta.Events), len(want))
	}
	for i, ev := range res.Meta.Events {
		if ev.Kind != want[i].Kind || !ev.At.Equal(want[i].At) {
			t.Fatalf("event %d: got %+v want %+v", i, ev, want[i])
		}
	}
}

func TestDecodeExampleDocument(t *testing.T) {
	t.Parallel()

	doc := `{
		"workout": {"rawSegments": [[5, 50, 50], [1, 100, 100, "freeride"]]},
		"samples": [{"t": 0, "power": 120}],
		"ftp": 250,
		"startedAt": "2024-03-01T07:00:00Z",
		"endedAt": "2024-03-01T07:06:00Z"
	}`
	var a Activity
	if err := json.Unmarshal([]byte(doc), &a); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	res, err := Decode(Encode(a))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []Segment{
		{Minutes: 5, StartPct: 50, EndPct: 50},
		{Minutes: 1, StartPct: 100, EndPct: 100, FreeRide: true},
	}
	if !reflect.DeepEqual(res.Plan.Segments, want) {
		t.Fatalf("segments: got %+v want %+v", res.Plan.Segments, want)
	}
	if len(res.Samples) != 1 || res.Samples[0].T != 0 || res.Samples[0].Power == nil || *res.Samples[0].Power != 120 {
		t.Fatalf("samples: got %+v", res.Samples)
	}
	if res.Meta.ElapsedSec != 360 {
		t.Fatalf("elapsed: got %v want 360", res.Meta.ElapsedSec)
	}
}

func TestEmptyActivity(t *testing.T) {
	t.Parallel()

	res, err := Decode(Encode(Activity{StartedAt: t0}))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(res.Samples) != 0 || len(res.Plan.Segments) != 0 {
		t.Fatalf("got %d samples %d segments, want none", len(res.Samples), len(res.Plan.Segments))
	}
	if res.Meta.Averages != (Averages{}) {
		t.Fatalf("averages: got %+v want all nil", res.Meta.Averages)
	}
	if res.Meta.TotalWorkJ != 0 {
		t.Fatalf("work: got %d want 0", res.Meta.TotalWorkJ)
	}
}

func TestChecksumTrailer(t *testing.T) {
	t.Parallel()

	data := Encode(sampleRide())
	n := len(data)
	if got, want := binary.LittleEndian.Uint16(data[n-2:]), fit.Checksum(data[:n-2]); got != want {
		t.Fatalf("trailer: got %#04x want %#04x", got, want)
	}

	corrupt := bytes.Clone(data)
	corrupt[n/2] ^= 0x01
	if fit.Checksum(corrupt[:n-2]) == fit.Checksum(data[:n-2]) {
		t.Fatal("single byte change did not change checksum")
	}
	if _, err := Decode(corrupt); !errors.Is(err, fit.ErrChecksumMismatch) {
		t.Fatalf("got %v want ErrChecksumMismatch", err)
	}
	if _, err := Decode(corrupt, fit.WithChecksum(false)); errors.Is(err, fit.ErrChecksumMismatch) {
		t.Fatalf("verification disabled but got %v", err)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	t.Parallel()

	a := sampleRide()
	if !bytes.Equal(Encode(a), Encode(a)) {
		t.Fatal("two encodings of the same activity differ")
	}
}

func TestPayloadChunkBoundaries(t *testing.T) {
	t.Parallel()

	base := len(marshalPlan(WorkoutPlan{Title: "a", Segments: []Segment{}})) - 1
	for _, tc := range []struct {
		size   int
		chunks int
	}{
		{ChunkSize - 1, 1},
		{ChunkSize, 2},
		{ChunkSize + 1, 2},
	} {
		plan := WorkoutPlan{Title: strings.Repeat("a", tc.size-base), Segments: []Segment{}}
		if got := len(marshalPlan(plan)); got != tc.size {
			t.Fatalf("payload size: got %d want %d", got, tc.size)
		}

		data := Encode(Activity{Plan: plan, StartedAt: t0, EndedAt: t0.Add(time.Minute)})
		dec, err := fit.NewDecoder(data)
		if err != nil {
			t.Fatalf("NewDecoder: %v", err)
		}
		for {
			if _, err := dec.Next(); err != nil {
				break
			}
		}
		chunks := 0
		for _, d := range dec.FieldDescriptions() {
			if strings.HasPrefix(d.Name, chunkPrefix) {
				chunks++
			}
		}
		if chunks != tc.chunks {
			t.Fatalf("size %d: got %d chunks want %d", tc.size, chunks, tc.chunks)
		}

		res, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if res.Plan.Title != plan.Title || !res.Meta.Lossless {
			t.Fatalf("size %d: title length %d lossless %v", tc.size, len(res.Plan.Title), res.Meta.Lossless)
		}
	}
}

func TestMissingHeartRateStaysAbsent(t *testing.T) {
	t.Parallel()

	a := Activity{
		Samples:   []Sample{{T: 0, Power: intp(200)}, {T: 1, Power: intp(210), HeartRate: intp(140)}},
		StartedAt: t0,
	}
	data := Encode(a)

	records := byGlobal(messages(t, data), fit.MesgRecord)
	if len(records) != 2 {
		t.Fatalf("records: got %d want 2", len(records))
	}
	for _, f := range records[0].Fields {
		if f.Num == fit.RecordHeartRate && f.Value != nil {
			t.Fatalf("heart rate: got %v want sentinel", f.Value)
		}
	}
	raw := records[0].Offset + 1 + 4 // header byte, timestamp
	if data[raw] != 0xFF {
		t.Fatalf("heart rate byte: got %#x want 0xff", data[raw])
	}

	res, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Samples[0].HeartRate != nil {
		t.Fatalf("heart rate: got %d want nil", *res.Samples[0].HeartRate)
	}
	if res.Samples[1].HeartRate == nil || *res.Samples[1].HeartRate != 140 {
		t.Fatalf("heart rate: got %v want 140", res.Samples[1].HeartRate)
	}
}

func TestFreeRideUsesOpenTarget(t *testing.T) {
	t.Parallel()

	for _, ftp := range []int{0, 250} {
		a := Activity{
			Plan:      WorkoutPlan{Segments: []Segment{{Minutes: 3, StartPct: 60, EndPct: 60, FreeRide: true}}},
			FTP:       ftp,
			StartedAt: t0,
		}
		data := Encode(a)

		steps := byGlobal(messages(t, data), fit.MesgWorkoutStep)
		if len(steps) != 1 {
			t.Fatalf("steps: got %d want 1", len(steps))
		}
		if typ, _ := steps[0].Uint(fit.StepTargetType); uint8(typ) != fit.TargetTypeOpen {
			t.Fatalf("target type: got %d want open", typ)
		}
		if _, ok := steps[0].Uint(fit.StepCustomTargetLow); ok {
			t.Fatal("free ride step carries a power bound")
		}

		res, err := Decode(data)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if len(res.Plan.Segments) != 1 || !res.Plan.Segments[0].FreeRide {
			t.Fatalf("ftp %d: got %+v want free ride", ftp, res.Plan.Segments)
		}
	}
}

func TestPowerTargetsUseWattOffset(t *testing.T) {
	t.Parallel()

	a := Activity{
		Plan:      WorkoutPlan{Segments: []Segment{{Minutes: 5, StartPct: 50, EndPct: 105, Cadence: 95}}},
		FTP:       250,
		StartedAt: t0,
	}
	steps := byGlobal(messages(t, Encode(a)), fit.MesgWorkoutStep)
	if len(steps) != 1 {
		t.Fatalf("steps: got %d want 1", len(steps))
	}
	step := steps[0]
	checks := []struct {
		num  uint8
		want uint64
	}{
		{fit.StepTargetType, uint64(fit.TargetTypePower)},
		{fit.StepDurationValue, 300000},
		{fit.StepCustomTargetLow, 1125},
		{fit.StepCustomTargetHigh, 1263},
		{fit.StepSecondaryTargetType, uint64(fit.TargetTypeCadence)},
		{fit.StepSecondaryCustomTargetLow, 95},
		{fit.StepSecondaryCustomTargetHigh, 95},
	}
	for _, c := range checks {
		if got, ok := step.Uint(c.num); !ok || got != c.want {
			t.Fatalf("field %d: got %d,%v want %d", c.num, got, ok, c.want)
		}
	}
	if pct, ok := devFloat(step, nameEndPct, keyEndPct); !ok || pct != 105 {
		t.Fatalf("end pct: got %v,%v want 105", pct, ok)
	}
}

func TestTimerEventsBracketEmptyPauses(t *testing.T) {
	t.Parallel()

	a := Activity{StartedAt: t0, EndedAt: t0.Add(10 * time.Minute)}
	events := byGlobal(messages(t, Encode(a)), fit.MesgEvent)
	if len(events) != 2 {
		t.Fatalf("events: got %d want 2", len(events))
	}
	first, _ := events[0].Uint(fit.EventEventType)
	last, _ := events[1].Uint(fit.EventEventType)
	if uint8(first) != fit.EventTypeStart || uint8(last) != fit.EventTypeStopAll {
		t.Fatalf("event types: got %d,%d want start,stop_all", first, last)
	}
	if ts, _ := events[0].Uint(fit.FieldTimestamp); uint32(ts) != fit.FromTime(t0) {
		t.Fatalf("resume at %d want session start", ts)
	}
	if ts, _ := events[1].Uint(fit.FieldTimestamp); uint32(ts) != fit.FromTime(a.EndedAt) {
		t.Fatalf("stop at %d want session end", ts)
	}
}

func TestFileStartsWithFileID(t *testing.T) {
	t.Parallel()

	msgs := messages(t, Encode(sampleRide()))
	if msgs[0].Global != fit.MesgFileID {
		t.Fatalf("first message: got %v want file_id", msgs[0].Global)
	}
	if msgs[len(msgs)-1].Global != fit.MesgActivity {
		t.Fatalf("last message: got %v want activity", msgs[len(msgs)-1].Global)
	}
	fileID := msgs[0]
	if v, _ := fileID.Uint(fit.FileIDManufacturer); uint16(v) != fit.ManufacturerDevelopment {
		t.Fatalf("manufacturer: got %d", v)
	}
	if name, _ := fileID.String(fit.FileIDProductName); name != defaultProductName {
		t.Fatalf("product name: got %q", name)
	}
}

func TestOversizedPlanFallsBackToSteps(t *testing.T) {
	t.Parallel()

	segments := []Segment{
		{Minutes: 10, StartPct: 50, EndPct: 75},
		{Minutes: 5, StartPct: 33.3, EndPct: 66.7},
		{Minutes: 0.5, StartPct: 110.5, EndPct: 110.5, Cadence: 100},
		{Minutes: 3, StartPct: 60, EndPct: 60, FreeRide: true},
	}
	a := Activity{
		Plan: WorkoutPlan{
			Title:       "Long notes",
			Source:      "zwo",
			Description: strings.Repeat("d", maxChunks*ChunkSize),
			Segments:    segments,
		},
		FTP:       240,
		StartedAt: t0,
	}

	res, err := Decode(Encode(a))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Meta.Lossless {
		t.Fatal("oversized plan should not be embedded")
	}
	if !reflect.DeepEqual(res.Plan.Segments, segments) {
		t.Fatalf("segments: got %+v want %+v", res.Plan.Segments, segments)
	}
	if res.Plan.Title != "Long notes" || res.Plan.Source != "zwo" {
		t.Fatalf("metadata: got title %q source %q", res.Plan.Title, res.Plan.Source)
	}
	if !strings.HasPrefix(a.Plan.Description, res.Plan.Description) || res.Plan.Description == "" {
		t.Fatalf("description: got %d bytes", len(res.Plan.Description))
	}
}

// stepsOnlyFile builds a file the way a third-party tool might: no
// developer fields, steps written out of order with a gap.
func stepsOnlyFile() []byte {
	session := fit.DefineMessage(0, fit.MesgSession, []fit.FieldDef{
		{Num: fit.SessionStartTime, Type: fit.Uint32},
		{Num: fit.SessionThresholdPower, Type: fit.Uint16},
	}, nil)
	step := fit.DefineMessage(1, fit.MesgWorkoutStep, []fit.FieldDef{
		{Num: fit.FieldMessageIndex, Type: fit.Uint16},
		{Num: fit.StepDurationType, Type: fit.Enum},
		{Num: fit.StepDurationValue, Type: fit.Uint32},
		{Num: fit.StepTargetType, Type: fit.Enum},
		{Num: fit.StepCustomTargetLow, Type: fit.Uint32},
		{Num: fit.StepCustomTargetHigh, Type: fit.Uint32},
	}, nil)

	w := fit.NewWriter()
	w.Define(step)
	w.Write(1, map[uint8]any{
		fit.FieldMessageIndex: 3, fit.StepDurationType: fit.DurationTypeTime, fit.StepDurationValue: 60000,
		fit.StepTargetType: fit.TargetTypePower, fit.StepCustomTargetLow: 80, fit.StepCustomTargetHigh: 80,
	}, nil)
	w.Write(1, map[uint8]any{
		fit.FieldMessageIndex: 0, fit.StepDurationType: fit.DurationTypeTime, fit.StepDurationValue: 600000,
		fit.StepTargetType: fit.TargetTypePower, fit.StepCustomTargetLow: 1125, fit.StepCustomTargetHigh: 1250,
	}, nil)
	w.Write(1, map[uint8]any{
		fit.FieldMessageIndex: 2, fit.StepDurationType: fit.DurationTypeTime, fit.StepDurationValue: 300000,
		fit.StepTargetType: fit.TargetTypeOpen, fit.StepCustomTargetLow: 1300,
	}, nil)
	w.Define(session)
	w.Write(0, map[uint8]any{fit.SessionStartTime: fit.FromTime(t0), fit.SessionThresholdPower: 250}, nil)
	return w.Finish()
}

func TestLossyPlanFromSteps(t *testing.T) {
	t.Parallel()

	res, err := Decode(stepsOnlyFile())
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	want := []Segment{
		{Minutes: 10, StartPct: 50, EndPct: 100},
		{Minutes: 5, FreeRide: true},
		{Minutes: 1, StartPct: 80, EndPct: 80},
	}
	if !reflect.DeepEqual(res.Plan.Segments, want) {
		t.Fatalf("segments: got %+v want %+v", res.Plan.Segments, want)
	}
	if res.Meta.Lossless {
		t.Fatal("steps-only file reported lossless")
	}
	if res.Meta.FTP != 250 || !res.Meta.StartedAt.Equal(t0) {
		t.Fatalf("meta: got ftp %d start %v", res.Meta.FTP, res.Meta.StartedAt)
	}
}

func TestPercentOfFTP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value uint64
		ftp   int
		want  float64
	}{
		{1125, 250, 50},
		{1200, 300, 66.7},
		{1200, 0, 0},
		{95, 250, 95},
	}
	for _, tc := range tests {
		if got := percentOfFTP(tc.value, tc.ftp); got != tc.want {
			t.Fatalf("percentOfFTP(%d, %d): got %v want %v", tc.value, tc.ftp, got, tc.want)
		}
	}
}

func TestTruncatedFileReturnsPartialResult(t *testing.T) {
	t.Parallel()

	in := sampleRide()
	data := Encode(in)
	res, err := Decode(data[:len(data)/2])
	if !errors.Is(err, fit.ErrTruncatedStream) {
		t.Fatalf("got %v want ErrTruncatedStream", err)
	}
	if res == nil {
		t.Fatal("partial result is nil")
	}
	if len(res.Samples) == 0 || len(res.Samples) >= len(in.Samples) {
		t.Fatalf("partial samples: got %d of %d", len(res.Samples), len(in.Samples))
	}
	if !reflect.DeepEqual(res.Plan.Segments, in.Plan.Segments) {
		t.Fatalf("plan lost before the cut: %+v", res.Plan.Segments)
	}
}

func TestStartFallsBackToFirstSample(t *testing.T) {
	t.Parallel()

	a := Activity{
		Samples: []Sample{
			{T: 5, Power: intp(100)},
			{T: 6, Power: intp(110)},
			{T: 7, Power: intp(120)},
		},
		FTP:       200,
		StartedAt: t0,
		EndedAt:   t0.Add(time.Minute),
	}
	data := Encode(a)

	cut := -1
	for _, m := range messages(t, data) {
		if m.Global == fit.MesgEvent {
			cut = m.Offset
			break
		}
	}
	if cut < 0 {
		t.Fatal("no event record found")
	}

	res, err := Decode(data[:cut])
	if !errors.Is(err, fit.ErrTruncatedStream) {
		t.Fatalf("got %v want ErrTruncatedStream", err)
	}
	if want := t0.Add(5 * time.Second); !res.Meta.StartedAt.Equal(want) {
		t.Fatalf("start: got %v want %v", res.Meta.StartedAt, want)
	}
	if len(res.Samples) != 3 {
		t.Fatalf("samples: got %d want 3", len(res.Samples))
	}
	for i, s := range res.Samples {
		if s.T != i {
			t.Fatalf("sample %d: got T=%d want %d", i, s.T, i)
		}
	}
}

func TestElapsedFallsBackToLastSample(t *testing.T) {
	t.Parallel()

	a := Activity{
		Samples:   []Sample{{T: 0, Power: intp(100)}, {T: 90, Power: intp(100)}},
		StartedAt: t0,
	}
	res, err := Decode(Encode(a))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if res.Meta.ElapsedSec != 90 {
		t.Fatalf("elapsed: got %v want 90", res.Meta.ElapsedSec)
	}
	if want := t0.Add(90 * time.Second); !res.Meta.EndedAt.Equal(want) {
		t.Fatalf("end: got %v want %v", res.Meta.EndedAt, want)
	}
}

func BenchmarkEncode(b *testing.B) {
	a := sampleRide()
	for range 11 {
		a.Samples = append(a.Samples, a.Samples[:300]...)
	}
	for i := range a.Samples {
		a.Samples[i].T = i
	}
	b.ReportAllocs()
	for b.Loop() {
		Encode(a)
	}
}

func BenchmarkDecode(b *testing.B) {
	data := Encode(sampleRide())
	b.ReportAllocs()
	for b.Loop() {
		if _, err := Decode(data); err != nil {
			b.Fatal(err)
		}
	}
}

func FuzzDecode(f *testing.F) {
	f.Add(Encode(sampleRide()))
	f.Add(stepsOnlyFile())
	f.Fuzz(func(t *testing.T, data []byte) {
		res, err := Decode(data, fit.WithChecksum(false))
		if err == nil && res == nil {
			t.Fatal("nil result without error")
		}
	})
}
