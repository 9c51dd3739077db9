package activity

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/samcharles93/ridefit/pkg/fit"
)

// Local slots. Every message kind keeps its own slot for the whole file.
const (
	slotFileID uint8 = iota
	slotDeviceInfo
	slotDevDataID
	slotFieldDesc
	slotWorkout
	slotStep
	slotRecord
	slotEvent
	slotLap
	slotSession
	slotActivity
)

const (
	defaultProduct     uint16 = 1
	defaultProductName        = "ridefit"
)

var (
	fileIDDef = fit.DefineMessage(slotFileID, fit.MesgFileID, []fit.FieldDef{
		{Num: fit.FileIDType, Type: fit.Enum},
		{Num: fit.FileIDManufacturer, Type: fit.Uint16},
		{Num: fit.FileIDProduct, Type: fit.Uint16},
		{Num: fit.FileIDSerialNumber, Type: fit.Uint32},
		{Num: fit.FileIDTimeCreated, Type: fit.Uint32},
		{Num: fit.FileIDProductName, Type: fit.String, Size: 20},
	}, nil)

	deviceInfoDef = fit.DefineMessage(slotDeviceInfo, fit.MesgDeviceInfo, []fit.FieldDef{
		{Num: fit.FieldTimestamp, Type: fit.Uint32},
		{Num: fit.DeviceInfoDeviceIndex, Type: fit.Uint8},
		{Num: fit.DeviceInfoManufacturer, Type: fit.Uint16},
		{Num: fit.DeviceInfoSerialNumber, Type: fit.Uint32},
		{Num: fit.DeviceInfoProduct, Type: fit.Uint16},
		{Num: fit.DeviceInfoSoftwareVersion, Type: fit.Uint16},
		{Num: fit.DeviceInfoProductName, Type: fit.String, Size: 20},
	}, nil)

	devDataIDDef = fit.DefineMessage(slotDevDataID, fit.MesgDeveloperDataID, []fit.FieldDef{
		{Num: fit.DeveloperDataIDDeveloperID, Type: fit.Byte, Size: 16},
		{Num: fit.DeveloperDataIDApplicationID, Type: fit.Byte, Size: 16},
		{Num: fit.DeveloperDataIDManufacturerID, Type: fit.Uint16},
		{Num: fit.DeveloperDataIDDeveloperDataIndex, Type: fit.Uint8},
		{Num: fit.DeveloperDataIDApplicationVersion, Type: fit.Uint32},
	}, nil)

	fieldDescDef = fit.DefineMessage(slotFieldDesc, fit.MesgFieldDescription, []fit.FieldDef{
		{Num: fit.FieldDescDeveloperDataIndex, Type: fit.Uint8},
		{Num: fit.FieldDescFieldDefinitionNumber, Type: fit.Uint8},
		{Num: fit.FieldDescBaseTypeID, Type: fit.Uint8},
		{Num: fit.FieldDescFieldName, Type: fit.String, Size: 32},
		{Num: fit.FieldDescUnits, Type: fit.String, Size: 16},
		{Num: fit.FieldDescNativeMesgNum, Type: fit.Uint16},
	}, nil)

	workoutFields = []fit.FieldDef{
		{Num: fit.WorkoutSport, Type: fit.Enum},
		{Num: fit.WorkoutSubSport, Type: fit.Enum},
		{Num: fit.WorkoutNumValidSteps, Type: fit.Uint16},
		{Num: fit.WorkoutName, Type: fit.String, Size: 64},
		{Num: fit.WorkoutDescription, Type: fit.String, Size: 128},
	}

	stepDef = fit.DefineMessage(slotStep, fit.MesgWorkoutStep, []fit.FieldDef{
		{Num: fit.FieldMessageIndex, Type: fit.Uint16},
		{Num: fit.StepDurationType, Type: fit.Enum},
		{Num: fit.StepDurationValue, Type: fit.Uint32},
		{Num: fit.StepTargetType, Type: fit.Enum},
		{Num: fit.StepTargetValue, Type: fit.Uint32},
		{Num: fit.StepCustomTargetLow, Type: fit.Uint32},
		{Num: fit.StepCustomTargetHigh, Type: fit.Uint32},
		{Num: fit.StepIntensity, Type: fit.Enum},
		{Num: fit.StepSecondaryTargetType, Type: fit.Enum},
		{Num: fit.StepSecondaryCustomTargetLow, Type: fit.Uint32},
		{Num: fit.StepSecondaryCustomTargetHigh, Type: fit.Uint32},
	}, devDefsFor(fixedDevFields, fit.MesgWorkoutStep))

	recordDef = fit.DefineMessage(slotRecord, fit.MesgRecord, []fit.FieldDef{
		{Num: fit.FieldTimestamp, Type: fit.Uint32},
		{Num: fit.RecordHeartRate, Type: fit.Uint8},
		{Num: fit.RecordCadence, Type: fit.Uint8},
		{Num: fit.RecordPower, Type: fit.Uint16},
	}, devDefsFor(fixedDevFields, fit.MesgRecord))

	eventDef = fit.DefineMessage(slotEvent, fit.MesgEvent, []fit.FieldDef{
		{Num: fit.FieldTimestamp, Type: fit.Uint32},
		{Num: fit.EventEvent, Type: fit.Enum},
		{Num: fit.EventEventType, Type: fit.Enum},
		{Num: fit.EventEventGroup, Type: fit.Uint8},
	}, nil)

	lapDef = fit.DefineMessage(slotLap, fit.MesgLap, []fit.FieldDef{
		{Num: fit.FieldTimestamp, Type: fit.Uint32},
		{Num: fit.FieldMessageIndex, Type: fit.Uint16},
		{Num: fit.LapEvent, Type: fit.Enum},
		{Num: fit.LapEventType, Type: fit.Enum},
		{Num: fit.LapStartTime, Type: fit.Uint32},
		{Num: fit.LapTotalElapsedTime, Type: fit.Uint32},
		{Num: fit.LapTotalTimerTime, Type: fit.Uint32},
		{Num: fit.LapAvgHeartRate, Type: fit.Uint8},
		{Num: fit.LapMaxHeartRate, Type: fit.Uint8},
		{Num: fit.LapAvgCadence, Type: fit.Uint8},
		{Num: fit.LapMaxCadence, Type: fit.Uint8},
		{Num: fit.LapAvgPower, Type: fit.Uint16},
		{Num: fit.LapMaxPower, Type: fit.Uint16},
		{Num: fit.LapSport, Type: fit.Enum},
		{Num: fit.LapTotalWork, Type: fit.Uint32},
	}, nil)

	sessionDef = fit.DefineMessage(slotSession, fit.MesgSession, []fit.FieldDef{
		{Num: fit.FieldTimestamp, Type: fit.Uint32},
		{Num: fit.FieldMessageIndex, Type: fit.Uint16},
		{Num: fit.SessionEvent, Type: fit.Enum},
		{Num: fit.SessionEventType, Type: fit.Enum},
		{Num: fit.SessionStartTime, Type: fit.Uint32},
		{Num: fit.SessionSport, Type: fit.Enum},
		{Num: fit.SessionSubSport, Type: fit.Enum},
		{Num: fit.SessionTotalElapsedTime, Type: fit.Uint32},
		{Num: fit.SessionTotalTimerTime, Type: fit.Uint32},
		{Num: fit.SessionAvgHeartRate, Type: fit.Uint8},
		{Num: fit.SessionMaxHeartRate, Type: fit.Uint8},
		{Num: fit.SessionAvgCadence, Type: fit.Uint8},
		{Num: fit.SessionMaxCadence, Type: fit.Uint8},
		{Num: fit.SessionAvgPower, Type: fit.Uint16},
		{Num: fit.SessionMaxPower, Type: fit.Uint16},
		{Num: fit.SessionFirstLapIndex, Type: fit.Uint16},
		{Num: fit.SessionNumLaps, Type: fit.Uint16},
		{Num: fit.SessionThresholdPower, Type: fit.Uint16},
		{Num: fit.SessionTotalWork, Type: fit.Uint32},
	}, nil)

	activityDef = fit.DefineMessage(slotActivity, fit.MesgActivity, []fit.FieldDef{
		{Num: fit.FieldTimestamp, Type: fit.Uint32},
		{Num: fit.ActivityTotalTimerTime, Type: fit.Uint32},
		{Num: fit.ActivityNumSessions, Type: fit.Uint16},
		{Num: fit.ActivityType, Type: fit.Enum},
		{Num: fit.ActivityEvent, Type: fit.Enum},
		{Num: fit.ActivityEventType, Type: fit.Enum},
		{Num: fit.ActivityLocalTimestamp, Type: fit.Uint32},
	}, nil)
)

// Encode writes a as a complete FIT activity file. It never fails: absent
// values are written as sentinels and an empty sample list yields empty
// aggregates.
func Encode(a Activity) []byte {
	start := a.StartedAt
	elapsed := elapsedSeconds(a)
	end := a.EndedAt
	if end.IsZero() || end.Before(start) {
		end = start.Add(seconds(elapsed))
	}
	events := bracketEvents(start, end, a.PauseEvents)
	timer := activeSeconds(start, end, events)
	agg := computeAggregates(a.Samples)
	dev := deviceOf(a)

	chunks := splitPayload(marshalPlan(a.Plan))
	if len(chunks) > maxChunks {
		// Too large to embed; decoders rebuild the plan from the steps.
		chunks = nil
	}
	declared := declaredDevFields(len(chunks))

	w := fit.NewWriter()
	startTS := fit.FromTime(start)
	endTS := fit.FromTime(end)

	w.Define(fileIDDef)
	w.Write(slotFileID, map[uint8]any{
		fit.FileIDType:         fit.FileTypeActivity,
		fit.FileIDManufacturer: dev.Manufacturer,
		fit.FileIDProduct:      dev.Product,
		fit.FileIDSerialNumber: dev.SerialNumber,
		fit.FileIDTimeCreated:  startTS,
		fit.FileIDProductName:  dev.ProductName,
	}, nil)

	w.Define(devDataIDDef)
	w.Write(slotDevDataID, map[uint8]any{
		fit.DeveloperDataIDDeveloperID:        developerID[:],
		fit.DeveloperDataIDApplicationID:      applicationID[:],
		fit.DeveloperDataIDManufacturerID:     dev.Manufacturer,
		fit.DeveloperDataIDDeveloperDataIndex: devIndex,
		fit.DeveloperDataIDApplicationVersion: applicationVersion,
	}, nil)

	w.Define(fieldDescDef)
	for _, f := range declared {
		w.Write(slotFieldDesc, map[uint8]any{
			fit.FieldDescDeveloperDataIndex:    f.def.DevIndex,
			fit.FieldDescFieldDefinitionNumber: f.def.Num,
			fit.FieldDescBaseTypeID:            f.def.Type.ID(),
			fit.FieldDescFieldName:             f.name,
			fit.FieldDescUnits:                 f.units,
			fit.FieldDescNativeMesgNum:         uint16(f.mesg),
		}, nil)
	}

	w.Define(deviceInfoDef)
	w.Write(slotDeviceInfo, map[uint8]any{
		fit.FieldTimestamp:            startTS,
		fit.DeviceInfoDeviceIndex:     0,
		fit.DeviceInfoManufacturer:    dev.Manufacturer,
		fit.DeviceInfoSerialNumber:    dev.SerialNumber,
		fit.DeviceInfoProduct:         dev.Product,
		fit.DeviceInfoSoftwareVersion: math.Round(dev.SoftwareVersion * 100),
		fit.DeviceInfoProductName:     dev.ProductName,
	}, nil)

	writeWorkout(w, a.Plan, chunks, declared)
	writeSteps(w, a.Plan.Segments, a.FTP)

	w.Define(recordDef)
	for _, s := range a.Samples {
		w.Write(slotRecord, map[uint8]any{
			fit.FieldTimestamp:  fit.FromTime(start.Add(time.Duration(s.T) * time.Second)),
			fit.RecordHeartRate: s.HeartRate,
			fit.RecordCadence:   s.Cadence,
			fit.RecordPower:     s.Power,
		}, map[fit.DevKey]any{
			keyTargetPower: s.TargetPower,
		})
	}

	w.Define(eventDef)
	for _, ev := range events {
		w.Write(slotEvent, map[uint8]any{
			fit.FieldTimestamp:  fit.FromTime(ev.At),
			fit.EventEvent:      fit.EventTimer,
			fit.EventEventType:  eventType(ev.Kind),
			fit.EventEventGroup: 0,
		}, nil)
	}

	elapsedMS := math.Round(elapsed * fit.TimeScale)
	timerMS := math.Round(timer * fit.TimeScale)

	w.Define(lapDef)
	w.Write(slotLap, map[uint8]any{
		fit.FieldTimestamp:      endTS,
		fit.FieldMessageIndex:   0,
		fit.LapEvent:            fit.EventLap,
		fit.LapEventType:        fit.EventTypeStop,
		fit.LapStartTime:        startTS,
		fit.LapTotalElapsedTime: elapsedMS,
		fit.LapTotalTimerTime:   timerMS,
		fit.LapAvgHeartRate:     agg.AvgHeartRate,
		fit.LapMaxHeartRate:     agg.MaxHeartRate,
		fit.LapAvgCadence:       agg.AvgCadence,
		fit.LapMaxCadence:       agg.MaxCadence,
		fit.LapAvgPower:         agg.AvgPower,
		fit.LapMaxPower:         agg.MaxPower,
		fit.LapSport:            fit.SportCycling,
		fit.LapTotalWork:        agg.workJ,
	}, nil)

	w.Define(sessionDef)
	w.Write(slotSession, map[uint8]any{
		fit.FieldTimestamp:          endTS,
		fit.FieldMessageIndex:       0,
		fit.SessionEvent:            fit.EventSession,
		fit.SessionEventType:        fit.EventTypeStop,
		fit.SessionStartTime:        startTS,
		fit.SessionSport:            fit.SportCycling,
		fit.SessionSubSport:         fit.SubSportIndoorCycling,
		fit.SessionTotalElapsedTime: elapsedMS,
		fit.SessionTotalTimerTime:   timerMS,
		fit.SessionAvgHeartRate:     agg.AvgHeartRate,
		fit.SessionMaxHeartRate:     agg.MaxHeartRate,
		fit.SessionAvgCadence:       agg.AvgCadence,
		fit.SessionMaxCadence:       agg.MaxCadence,
		fit.SessionAvgPower:         agg.AvgPower,
		fit.SessionMaxPower:         agg.MaxPower,
		fit.SessionFirstLapIndex:    0,
		fit.SessionNumLaps:          1,
		fit.SessionThresholdPower:   a.FTP,
		fit.SessionTotalWork:        agg.workJ,
	}, nil)

	_, zoneOffset := start.Zone()
	w.Define(activityDef)
	w.Write(slotActivity, map[uint8]any{
		fit.FieldTimestamp:         endTS,
		fit.ActivityTotalTimerTime: timerMS,
		fit.ActivityNumSessions:    1,
		fit.ActivityType:           fit.ActivityTypeManual,
		fit.ActivityEvent:          fit.EventActivity,
		fit.ActivityEventType:      fit.EventTypeStop,
		fit.ActivityLocalTimestamp: int64(endTS) + int64(zoneOffset),
	}, nil)

	return w.Finish()
}

func writeWorkout(w *fit.Writer, p WorkoutPlan, chunks [][]byte, declared []devField) {
	def := fit.DefineMessage(slotWorkout, fit.MesgWorkout, workoutFields, devDefsFor(declared, fit.MesgWorkout))
	values := map[fit.DevKey]any{
		keySource:      p.Source,
		keySourceURL:   p.SourceURL,
		keyDescription: p.Description,
	}
	for i, c := range chunks {
		values[chunkKey(i)] = c
	}

	w.Define(def)
	w.Write(slotWorkout, map[uint8]any{
		fit.WorkoutSport:         fit.SportCycling,
		fit.WorkoutSubSport:      fit.SubSportIndoorCycling,
		fit.WorkoutNumValidSteps: len(p.Segments),
		fit.WorkoutName:          p.Title,
		fit.WorkoutDescription:   p.Description,
	}, values)
}

func writeSteps(w *fit.Writer, segments []Segment, ftp int) {
	w.Define(stepDef)
	for i, seg := range segments {
		fields := map[uint8]any{
			fit.FieldMessageIndex: i,
			fit.StepDurationType:  fit.DurationTypeTime,
			fit.StepDurationValue: seg.Minutes * 60 * fit.TimeScale,
			fit.StepTargetValue:   0,
			fit.StepIntensity:     fit.IntensityActive,
		}
		if seg.FreeRide {
			fields[fit.StepTargetType] = fit.TargetTypeOpen
		} else {
			fields[fit.StepTargetType] = fit.TargetTypePower
			fields[fit.StepCustomTargetLow] = powerTarget(seg.StartPct, ftp)
			fields[fit.StepCustomTargetHigh] = powerTarget(seg.EndPct, ftp)
		}
		if seg.Cadence > 0 {
			fields[fit.StepSecondaryTargetType] = fit.TargetTypeCadence
			fields[fit.StepSecondaryCustomTargetLow] = seg.Cadence
			fields[fit.StepSecondaryCustomTargetHigh] = seg.Cadence
		}
		w.Write(slotStep, fields, map[fit.DevKey]any{
			keyStartPct: seg.StartPct,
			keyEndPct:   seg.EndPct,
		})
	}
}

// powerTarget converts a percentage of FTP to the offset watt form used by
// custom power targets.
func powerTarget(pct float64, ftp int) int64 {
	watts := math.Round(pct / 100 * float64(ftp))
	if math.IsNaN(watts) {
		watts = 0
	}
	return int64(max(watts, 0)) + fit.PowerTargetOffset
}

func elapsedSeconds(a Activity) float64 {
	if a.TotalElapsedSec > 0 {
		return a.TotalElapsedSec
	}
	if !a.EndedAt.IsZero() && a.EndedAt.After(a.StartedAt) {
		return a.EndedAt.Sub(a.StartedAt).Seconds()
	}
	if n := len(a.Samples); n > 0 {
		return float64(max(a.Samples[n-1].T, 0))
	}
	return 0
}

func seconds(s float64) time.Duration {
	return time.Duration(math.Round(s * float64(time.Second)))
}

// deviceOf fills the zero fields of a.Device with the package defaults.
func deviceOf(a Activity) Device {
	var d Device
	if a.Device != nil {
		d = *a.Device
	}
	if d.Manufacturer == 0 {
		d.Manufacturer = fit.ManufacturerDevelopment
	}
	if d.Product == 0 {
		d.Product = defaultProduct
	}
	if d.ProductName == "" {
		d.ProductName = defaultProductName
	}
	if d.SerialNumber == 0 {
		d.SerialNumber = uuid.NewSHA1(serialNamespace, []byte(a.StartedAt.UTC().Format(time.RFC3339Nano))).ID()
	}
	return d
}
