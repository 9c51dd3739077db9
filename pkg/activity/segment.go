package activity

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
)

const freeRideTag = "freeride"

// MarshalJSON writes the compact tuple form
// [minutes, startPct, endPct, "freeride"?, cadence?].
func (s Segment) MarshalJSON() ([]byte, error) {
	tuple := []any{s.Minutes, s.StartPct, s.EndPct}
	if s.FreeRide {
		tuple = append(tuple, freeRideTag)
	}
	if s.Cadence > 0 {
		tuple = append(tuple, s.Cadence)
	}
	return json.Marshal(tuple)
}

// UnmarshalJSON reads the tuple form written by MarshalJSON. Trailing
// elements are recognised by type: the free-ride tag is a string, the cadence
// a number.
func (s *Segment) UnmarshalJSON(b []byte) error {
	var tuple []any
	if err := json.Unmarshal(b, &tuple); err != nil {
		return err
	}
	if len(tuple) < 3 {
		return errors.New("segment: expected [minutes, startPct, endPct, ...]")
	}
	var nums [3]float64
	for i := range nums {
		f, ok := tuple[i].(float64)
		if !ok {
			return fmt.Errorf("segment: element %d is not a number", i)
		}
		nums[i] = f
	}
	*s = Segment{Minutes: nums[0], StartPct: nums[1], EndPct: nums[2]}
	for _, extra := range tuple[3:] {
		switch v := extra.(type) {
		case string:
			if v == freeRideTag {
				s.FreeRide = true
			}
		case float64:
			s.Cadence = int(v)
		}
	}
	return nil
}
