package activity

import (
	"slices"
	"time"

	"github.com/samcharles93/ridefit/pkg/fit"
)

// bracketEvents sorts the recorded pause events and makes sure the timeline
// opens with a resume at start and closes with a stop at end.
func bracketEvents(start, end time.Time, pauses []PauseEvent) []TimerEvent {
	events := make([]TimerEvent, 0, len(pauses)+2)
	hasStart, hasStop := false, false
	for _, p := range pauses {
		switch p.Kind {
		case EventResume, EventPause, EventStop:
		default:
			continue
		}
		events = append(events, TimerEvent{At: p.At, Kind: p.Kind})
		if p.Kind == EventResume && !p.At.After(start) {
			hasStart = true
		}
		if p.Kind == EventStop && !p.At.Before(end) {
			hasStop = true
		}
	}
	slices.SortStableFunc(events, func(a, b TimerEvent) int { return a.At.Compare(b.At) })

	if !hasStart {
		events = slices.Insert(events, 0, TimerEvent{At: start, Kind: EventResume})
	}
	if !hasStop {
		events = append(events, TimerEvent{At: end, Kind: EventStop})
	}
	return events
}

// activeSeconds sums the time the timer was running between start and end.
func activeSeconds(start, end time.Time, events []TimerEvent) float64 {
	var active time.Duration
	running := false
	var since time.Time
	for _, ev := range events {
		at := clampTime(ev.At, start, end)
		switch ev.Kind {
		case EventResume:
			if !running {
				running, since = true, at
			}
		case EventPause, EventStop:
			if running {
				active += at.Sub(since)
				running = false
			}
		}
	}
	if running {
		active += end.Sub(since)
	}
	return max(active.Seconds(), 0)
}

func clampTime(t, lo, hi time.Time) time.Time {
	if t.Before(lo) {
		return lo
	}
	if t.After(hi) {
		return hi
	}
	return t
}

func eventType(k EventKind) uint8 {
	switch k {
	case EventResume:
		return fit.EventTypeStart
	case EventPause:
		return fit.EventTypeStop
	default:
		return fit.EventTypeStopAll
	}
}

func eventKind(eventType uint64) (EventKind, bool) {
	switch uint8(eventType) {
	case fit.EventTypeStart:
		return EventResume, true
	case fit.EventTypeStop:
		return EventPause, true
	case fit.EventTypeStopAll:
		return EventStop, true
	}
	return "", false
}
