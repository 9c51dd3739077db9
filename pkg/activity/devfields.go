package activity

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/samcharles93/ridefit/pkg/fit"
)

// devIndex is the single developer namespace written by Encode.
const devIndex uint8 = 0

var (
	// developerID and applicationID are written to the developer_data_id message.
	developerID   = uuid.MustParse("5b0e9c52-7b0f-4d4e-9a39-2a1b8f6c1d07")
	applicationID = uuid.MustParse("c3f4a1d2-88e5-4b7a-bf5d-0e6e2b9a4f11")

	// serialNamespace derives file serial numbers from session start times.
	serialNamespace = uuid.MustParse("0f2d6a3e-51c4-4f8b-8d27-6b1e9f0c3a55")
)

const applicationVersion = 100

const (
	nameTargetPower = "target_power"
	nameStartPct    = "vd_start_pct"
	nameEndPct      = "vd_end_pct"
	nameSource      = "vd_source"
	nameSourceURL   = "vd_source_url"
	nameDescription = "vd_description"
	chunkPrefix     = "vd_canon"
)

var (
	keyTargetPower = fit.DevKey{Index: devIndex, Num: 0}
	keyStartPct    = fit.DevKey{Index: devIndex, Num: 1}
	keyEndPct      = fit.DevKey{Index: devIndex, Num: 2}
	keySource      = fit.DevKey{Index: devIndex, Num: 3}
	keySourceURL   = fit.DevKey{Index: devIndex, Num: 4}
	keyDescription = fit.DevKey{Index: devIndex, Num: 5}
)

// firstChunkNum is the field number of vd_canon0.
const firstChunkNum = 6

// maxChunks keeps chunk field numbers below the invalid field number 255.
const maxChunks = 255 - firstChunkNum

func chunkKey(i int) fit.DevKey {
	return fit.DevKey{Index: devIndex, Num: uint8(firstChunkNum + i)}
}

func chunkName(i int) string { return chunkPrefix + strconv.Itoa(i) }

// chunkIndex recovers the chunk position of a workout developer field, by
// name when it was described and by field number otherwise.
func chunkIndex(f fit.DevFieldValue) (int, bool) {
	if f.Resolved {
		if !strings.HasPrefix(f.Name, chunkPrefix) {
			return 0, false
		}
		i, err := strconv.Atoi(strings.TrimPrefix(f.Name, chunkPrefix))
		return i, err == nil && i >= 0
	}
	if f.Key.Index != devIndex || f.Key.Num < firstChunkNum {
		return 0, false
	}
	return int(f.Key.Num) - firstChunkNum, true
}

// devField is one developer field declared by Encode.
type devField struct {
	def   fit.DevFieldDef
	name  string
	units string
	mesg  fit.MesgNum
}

var fixedDevFields = []devField{
	{def: fit.DevFieldDef{Num: keyTargetPower.Num, Type: fit.Uint16, DevIndex: devIndex}, name: nameTargetPower, units: "watts", mesg: fit.MesgRecord},
	{def: fit.DevFieldDef{Num: keyStartPct.Num, Type: fit.Float32, DevIndex: devIndex}, name: nameStartPct, units: "%", mesg: fit.MesgWorkoutStep},
	{def: fit.DevFieldDef{Num: keyEndPct.Num, Type: fit.Float32, DevIndex: devIndex}, name: nameEndPct, units: "%", mesg: fit.MesgWorkoutStep},
	{def: fit.DevFieldDef{Num: keySource.Num, Type: fit.String, Size: 64, DevIndex: devIndex}, name: nameSource, mesg: fit.MesgWorkout},
	{def: fit.DevFieldDef{Num: keySourceURL.Num, Type: fit.String, Size: 128, DevIndex: devIndex}, name: nameSourceURL, mesg: fit.MesgWorkout},
	{def: fit.DevFieldDef{Num: keyDescription.Num, Type: fit.String, Size: 200, DevIndex: devIndex}, name: nameDescription, mesg: fit.MesgWorkout},
}

// declaredDevFields returns every developer field of a file carrying n payload chunks.
func declaredDevFields(n int) []devField {
	out := make([]devField, 0, len(fixedDevFields)+n)
	out = append(out, fixedDevFields...)
	for i := range n {
		k := chunkKey(i)
		out = append(out, devField{
			def:  fit.DevFieldDef{Num: k.Num, Type: fit.Byte, Size: ChunkSize, DevIndex: devIndex},
			name: chunkName(i),
			mesg: fit.MesgWorkout,
		})
	}
	return out
}

// devDefsFor selects the field definitions decorating mesg, in declaration order.
func devDefsFor(fields []devField, mesg fit.MesgNum) []fit.DevFieldDef {
	var out []fit.DevFieldDef
	for _, f := range fields {
		if f.mesg == mesg {
			out = append(out, f.def)
		}
	}
	return out
}

// lookupDev finds a developer field by its described name, falling back to
// the key Encode uses when the file carried no description.
func lookupDev(m *fit.Message, name string, key fit.DevKey) (fit.DevFieldValue, bool) {
	for _, f := range m.DevFields {
		if f.Resolved && f.Name == name && f.Value != nil {
			return f, true
		}
	}
	f, ok := m.Dev(key)
	if !ok || (f.Resolved && f.Name != name) {
		return fit.DevFieldValue{}, false
	}
	return f, true
}

func devFloat(m *fit.Message, name string, key fit.DevKey) (float64, bool) {
	f, ok := lookupDev(m, name, key)
	if !ok {
		return 0, false
	}
	if v, ok := fit.AsFloat(f.Value); ok {
		return shortestFloat(v, f.Type), true
	}
	return rawFloat(f)
}

// shortestFloat undoes float32 widening so a percentage written as 33.3
// reads back as 33.3 rather than 33.29999923706055.
func shortestFloat(v float64, t fit.BaseType) float64 {
	if t != fit.Float32 {
		return v
	}
	r, err := strconv.ParseFloat(strconv.FormatFloat(v, 'g', -1, 32), 64)
	if err != nil {
		return v
	}
	return r
}

func devString(m *fit.Message, name string, key fit.DevKey) string {
	f, ok := lookupDev(m, name, key)
	if !ok {
		return ""
	}
	switch v := f.Value.(type) {
	case string:
		return v
	case []byte:
		return strings.TrimRight(string(v), "\x00")
	}
	return ""
}

// rawFloat interprets an undescribed numeric developer field with the type
// Encode writes under the same key.
func rawFloat(f fit.DevFieldValue) (float64, bool) {
	b, ok := f.Value.([]byte)
	if !ok {
		return 0, false
	}
	for _, d := range fixedDevFields {
		if d.def.Key() == f.Key && !d.def.Type.Variable() {
			v, ok := fit.AsFloat(d.def.Type.Decode(b))
			return shortestFloat(v, d.def.Type), ok
		}
	}
	return 0, false
}
