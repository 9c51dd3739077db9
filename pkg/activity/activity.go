// Package activity encodes recorded indoor cycling sessions as FIT activity
// files and decodes them back.
//
// Besides the standard messages (workout, workout steps, records, timer
// events, lap and session summaries) every file carries the complete workout
// plan as a compact JSON document split across developer fields on the
// workout message. Decoding prefers that payload and falls back to rebuilding
// the plan from the workout steps when a file does not carry it.
//
// Encode and Decode are pure functions of their inputs and safe for
// concurrent use.
package activity

import "time"

// EventKind is the meaning of a timer event.
type EventKind string

const (
	EventResume EventKind = "resume"
	EventPause  EventKind = "pause"
	EventStop   EventKind = "stop"
)

// Segment is one block of a workout plan. Power bounds are percentages of
// FTP; a free-ride segment has no power target. Cadence 0 means no cadence
// target.
type Segment struct {
	Minutes  float64
	StartPct float64
	EndPct   float64
	FreeRide bool
	Cadence  int
}

// TextEvent is an on-screen annotation shown OffsetSec into the workout.
type TextEvent struct {
	OffsetSec   int    `json:"offset"`
	DurationSec int    `json:"duration,omitempty"`
	Text        string `json:"text"`
}

// WorkoutPlan is the structured workout a session was ridden against.
type WorkoutPlan struct {
	Source      string      `json:"source,omitempty"`
	Title       string      `json:"title,omitempty"`
	SourceURL   string      `json:"sourceURL,omitempty"`
	Description string      `json:"description,omitempty"`
	Segments    []Segment   `json:"rawSegments"`
	TextEvents  []TextEvent `json:"textEvents,omitempty"`
}

// Sample is one time-series point, T seconds after the session start.
// Nil fields were not measured.
type Sample struct {
	T           int  `json:"t"`
	Power       *int `json:"power,omitempty"`
	HeartRate   *int `json:"heartRate,omitempty"`
	Cadence     *int `json:"cadence,omitempty"`
	TargetPower *int `json:"targetPower,omitempty"`
}

// PauseEvent is a timer transition recorded during the session.
type PauseEvent struct {
	Kind EventKind `json:"type"`
	At   time.Time `json:"at"`
}

// Device identifies the software that wrote the file. Zero fields take the
// package defaults.
type Device struct {
	Manufacturer    uint16  `json:"manufacturer,omitempty"`
	Product         uint16  `json:"product,omitempty"`
	ProductName     string  `json:"productName,omitempty"`
	SoftwareVersion float64 `json:"softwareVersion,omitempty"`
	SerialNumber    uint32  `json:"serialNumber,omitempty"`
}

// Activity is everything Encode needs to write a file.
type Activity struct {
	Plan            WorkoutPlan  `json:"workout"`
	Samples         []Sample     `json:"samples"`
	FTP             int          `json:"ftp"`
	StartedAt       time.Time    `json:"startedAt"`
	EndedAt         time.Time    `json:"endedAt"`
	PauseEvents     []PauseEvent `json:"pauseEvents,omitempty"`
	TotalElapsedSec float64      `json:"totalElapsedSec,omitempty"`
	Device          *Device      `json:"device,omitempty"`
}

// TimerEvent is a decoded timer transition.
type TimerEvent struct {
	At   time.Time `json:"at"`
	Kind EventKind `json:"type"`
}

// Averages are the session aggregates; nil when no sample carried the metric.
type Averages struct {
	AvgPower     *int `json:"avgPower,omitempty"`
	MaxPower     *int `json:"maxPower,omitempty"`
	AvgHeartRate *int `json:"avgHeartRate,omitempty"`
	MaxHeartRate *int `json:"maxHeartRate,omitempty"`
	AvgCadence   *int `json:"avgCadence,omitempty"`
	MaxCadence   *int `json:"maxCadence,omitempty"`
}

// Meta is the session-level information recovered by Decode.
type Meta struct {
	FTP        int          `json:"ftp"`
	StartedAt  time.Time    `json:"startedAt"`
	EndedAt    time.Time    `json:"endedAt"`
	TotalWorkJ int64        `json:"totalWork"`
	ElapsedSec float64      `json:"elapsedSec"`
	TimerSec   float64      `json:"timerSec"`
	Averages   Averages     `json:"averages"`
	Events     []TimerEvent `json:"events"`
	// Lossless is true when the plan came from the embedded payload rather
	// than being rebuilt from workout steps.
	Lossless bool `json:"lossless"`
}

// Result is the output of Decode.
type Result struct {
	Plan    WorkoutPlan `json:"workout"`
	Samples []Sample    `json:"samples"`
	Meta    Meta        `json:"meta"`
}

func intp(v int) *int { return &v }
