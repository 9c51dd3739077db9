package activity

import (
	"errors"
	"io"
	"math"

	"github.com/samcharles93/ridefit/pkg/fit"
)

// Decode parses a FIT activity file.
//
// Header and checksum failures return a nil Result. When the record stream
// is cut short Decode returns everything decoded up to that point together
// with an error wrapping fit.ErrTruncatedStream.
func Decode(data []byte, opts ...fit.Option) (*Result, error) {
	dec, err := fit.NewDecoder(data, opts...)
	if err != nil {
		return nil, err
	}

	var s scan
	for {
		m, err := dec.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return s.result(), err
		}
		s.add(m)
	}
	return s.result(), nil
}

type rawSample struct {
	ts     uint32
	sample Sample
}

// scan collects the messages of one decode pass.
type scan struct {
	samples []rawSample
	steps   []*fit.Message
	workout *fit.Message
	session *fit.Message
	events  []TimerEvent
	chunks  map[int][]byte
}

func (s *scan) add(m *fit.Message) {
	switch m.Global {
	case fit.MesgRecord:
		s.addRecord(m)
	case fit.MesgWorkoutStep:
		s.addStep(m)
	case fit.MesgWorkout:
		s.workout = m
		s.addChunks(m)
	case fit.MesgSession:
		if s.session == nil {
			s.session = m
		}
	case fit.MesgEvent:
		s.addEvent(m)
	}
}

func (s *scan) addRecord(m *fit.Message) {
	ts, ok := m.Uint(fit.FieldTimestamp)
	if !ok {
		return
	}
	var smp Sample
	smp.Power = uintField(m, fit.RecordPower)
	smp.HeartRate = uintField(m, fit.RecordHeartRate)
	smp.Cadence = uintField(m, fit.RecordCadence)
	if v, ok := devFloat(m, nameTargetPower, keyTargetPower); ok {
		smp.TargetPower = intp(int(math.Round(v)))
	}
	s.samples = append(s.samples, rawSample{ts: uint32(ts), sample: smp})
}

// addStep places m by its message index. Steps without one are appended.
func (s *scan) addStep(m *fit.Message) {
	idx := len(s.steps)
	if v, ok := m.Uint(fit.FieldMessageIndex); ok {
		idx = int(v)
	}
	if idx >= len(s.steps) {
		s.steps = append(s.steps, make([]*fit.Message, idx+1-len(s.steps))...)
	}
	s.steps[idx] = m
}

func (s *scan) addChunks(m *fit.Message) {
	for _, f := range m.DevFields {
		i, ok := chunkIndex(f)
		if !ok {
			continue
		}
		if s.chunks == nil {
			s.chunks = make(map[int][]byte)
		}
		switch v := f.Value.(type) {
		case []byte:
			s.chunks[i] = v
		case string:
			s.chunks[i] = []byte(v)
		}
	}
}

func (s *scan) addEvent(m *fit.Message) {
	if ev, ok := m.Uint(fit.EventEvent); !ok || uint8(ev) != fit.EventTimer {
		return
	}
	ts, ok1 := m.Uint(fit.FieldTimestamp)
	typ, ok2 := m.Uint(fit.EventEventType)
	if !ok1 || !ok2 {
		return
	}
	kind, ok := eventKind(typ)
	if !ok {
		return
	}
	s.events = append(s.events, TimerEvent{At: fit.ToTime(uint32(ts)), Kind: kind})
}

func (s *scan) result() *Result {
	r := &Result{Samples: make([]Sample, 0, len(s.samples))}
	meta := &r.Meta
	meta.Events = s.events
	if meta.Events == nil {
		meta.Events = []TimerEvent{}
	}

	var startTS uint32
	haveStart := false
	if s.session != nil {
		sess := s.session
		if v, ok := sess.Uint(fit.SessionStartTime); ok {
			startTS, haveStart = uint32(v), true
		}
		if v, ok := sess.Uint(fit.SessionThresholdPower); ok {
			meta.FTP = int(v)
		}
		if v, ok := sess.Uint(fit.SessionTotalWork); ok {
			meta.TotalWorkJ = int64(v)
		}
		if v, ok := sess.Uint(fit.SessionTotalElapsedTime); ok {
			meta.ElapsedSec = float64(v) / fit.TimeScale
		}
		if v, ok := sess.Uint(fit.SessionTotalTimerTime); ok {
			meta.TimerSec = float64(v) / fit.TimeScale
		}
		if v, ok := sess.Uint(fit.FieldTimestamp); ok {
			meta.EndedAt = fit.ToTime(uint32(v))
		}
		meta.Averages = Averages{
			AvgPower:     uintField(sess, fit.SessionAvgPower),
			MaxPower:     uintField(sess, fit.SessionMaxPower),
			AvgHeartRate: uintField(sess, fit.SessionAvgHeartRate),
			MaxHeartRate: uintField(sess, fit.SessionMaxHeartRate),
			AvgCadence:   uintField(sess, fit.SessionAvgCadence),
			MaxCadence:   uintField(sess, fit.SessionMaxCadence),
		}
	}
	if !haveStart && len(s.samples) > 0 {
		startTS, haveStart = s.samples[0].ts, true
	}
	if haveStart {
		meta.StartedAt = fit.ToTime(startTS)
	}
	if meta.EndedAt.IsZero() && haveStart {
		meta.EndedAt = meta.StartedAt.Add(seconds(meta.ElapsedSec))
	}

	for _, rs := range s.samples {
		smp := rs.sample
		smp.T = int(int64(rs.ts) - int64(startTS))
		r.Samples = append(r.Samples, smp)
	}

	r.Plan, meta.Lossless = s.plan(meta.FTP)
	return r
}

// plan prefers the embedded payload and falls back to the workout steps.
func (s *scan) plan(ftp int) (WorkoutPlan, bool) {
	var p WorkoutPlan
	lossless := false
	if payload := joinPayload(s.chunks); len(payload) > 0 {
		if decoded, err := unmarshalPlan(payload); err == nil {
			p, lossless = decoded, true
		}
	}
	if !lossless {
		p.Segments = s.segments(ftp)
	}
	if p.Segments == nil {
		p.Segments = []Segment{}
	}

	if w := s.workout; w != nil {
		if p.Title == "" {
			p.Title, _ = w.String(fit.WorkoutName)
		}
		if p.Source == "" {
			p.Source = devString(w, nameSource, keySource)
		}
		if p.SourceURL == "" {
			p.SourceURL = devString(w, nameSourceURL, keySourceURL)
		}
		if p.Description == "" {
			p.Description = devString(w, nameDescription, keyDescription)
		}
		if p.Description == "" {
			p.Description, _ = w.String(fit.WorkoutDescription)
		}
	}
	return p, lossless
}

// segments rebuilds the plan from the workout steps, skipping holes.
func (s *scan) segments(ftp int) []Segment {
	out := make([]Segment, 0, len(s.steps))
	for _, m := range s.steps {
		if m == nil {
			continue
		}
		var seg Segment
		if typ, ok := m.Uint(fit.StepDurationType); ok && uint8(typ) == fit.DurationTypeTime {
			if ms, ok := m.Uint(fit.StepDurationValue); ok {
				seg.Minutes = float64(ms) / (60 * fit.TimeScale)
			}
		}

		target, _ := m.Uint(fit.StepTargetType)
		seg.FreeRide = uint8(target) == fit.TargetTypeOpen

		startPct, okStart := devFloat(m, nameStartPct, keyStartPct)
		endPct, okEnd := devFloat(m, nameEndPct, keyEndPct)
		if !okStart && !seg.FreeRide {
			if v, ok := m.Uint(fit.StepCustomTargetLow); ok {
				startPct = percentOfFTP(v, ftp)
			}
		}
		if !okEnd && !seg.FreeRide {
			if v, ok := m.Uint(fit.StepCustomTargetHigh); ok {
				endPct = percentOfFTP(v, ftp)
			}
		}
		seg.StartPct, seg.EndPct = startPct, endPct

		if typ, ok := m.Uint(fit.StepSecondaryTargetType); ok && uint8(typ) == fit.TargetTypeCadence {
			if v, ok := m.Uint(fit.StepSecondaryCustomTargetLow); ok {
				seg.Cadence = int(v)
			}
		}
		out = append(out, seg)
	}
	return out
}

// percentOfFTP converts a custom power target back to a percentage of FTP,
// rounded to one decimal. Values below the watt offset are already
// percentages.
func percentOfFTP(v uint64, ftp int) float64 {
	if v < fit.PowerTargetOffset {
		return float64(v)
	}
	if ftp <= 0 {
		return 0
	}
	watts := float64(v - fit.PowerTargetOffset)
	return math.Round(watts/float64(ftp)*1000) / 10
}

func uintField(m *fit.Message, num uint8) *int {
	v, ok := m.Uint(num)
	if !ok {
		return nil
	}
	return intp(int(v))
}
