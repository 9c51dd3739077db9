package fit

import "strconv"

// MesgNum is a global message number.
type MesgNum uint16

const (
	MesgFileID           MesgNum = 0
	MesgSession          MesgNum = 18
	MesgLap              MesgNum = 19
	MesgRecord           MesgNum = 20
	MesgEvent            MesgNum = 21
	MesgDeviceInfo       MesgNum = 23
	MesgWorkout          MesgNum = 26
	MesgWorkoutStep      MesgNum = 27
	MesgActivity         MesgNum = 34
	MesgFieldDescription MesgNum = 206
	MesgDeveloperDataID  MesgNum = 207
)

var mesgNames = map[MesgNum]string{
	MesgFileID:           "file_id",
	MesgSession:          "session",
	MesgLap:              "lap",
	MesgRecord:           "record",
	MesgEvent:            "event",
	MesgDeviceInfo:       "device_info",
	MesgWorkout:          "workout",
	MesgWorkoutStep:      "workout_step",
	MesgActivity:         "activity",
	MesgFieldDescription: "field_description",
	MesgDeveloperDataID:  "developer_data_id",
}

func (m MesgNum) String() string {
	if name, ok := mesgNames[m]; ok {
		return name
	}
	return "mesg_" + strconv.Itoa(int(m))
}

// Fields shared by most messages.
const (
	FieldTimestamp    uint8 = 253
	FieldMessageIndex uint8 = 254
)

// file_id
const (
	FileIDType         uint8 = 0
	FileIDManufacturer uint8 = 1
	FileIDProduct      uint8 = 2
	FileIDSerialNumber uint8 = 3
	FileIDTimeCreated  uint8 = 4
	FileIDProductName  uint8 = 8
)

// device_info
const (
	DeviceInfoDeviceIndex     uint8 = 0
	DeviceInfoManufacturer    uint8 = 2
	DeviceInfoSerialNumber    uint8 = 3
	DeviceInfoProduct         uint8 = 4
	DeviceInfoSoftwareVersion uint8 = 5
	DeviceInfoProductName     uint8 = 27
)

// developer_data_id
const (
	DeveloperDataIDDeveloperID        uint8 = 0
	DeveloperDataIDApplicationID      uint8 = 1
	DeveloperDataIDManufacturerID     uint8 = 2
	DeveloperDataIDDeveloperDataIndex uint8 = 3
	DeveloperDataIDApplicationVersion uint8 = 4
)

// field_description
const (
	FieldDescDeveloperDataIndex    uint8 = 0
	FieldDescFieldDefinitionNumber uint8 = 1
	FieldDescBaseTypeID            uint8 = 2
	FieldDescFieldName             uint8 = 3
	FieldDescUnits                 uint8 = 8
	FieldDescNativeMesgNum         uint8 = 14
)

// workout
const (
	WorkoutSport         uint8 = 4
	WorkoutNumValidSteps uint8 = 6
	WorkoutName          uint8 = 8
	WorkoutSubSport      uint8 = 11
	WorkoutDescription   uint8 = 17
)

// workout_step
const (
	StepDurationType              uint8 = 1
	StepDurationValue             uint8 = 2
	StepTargetType                uint8 = 3
	StepTargetValue               uint8 = 4
	StepCustomTargetLow           uint8 = 5
	StepCustomTargetHigh          uint8 = 6
	StepIntensity                 uint8 = 7
	StepSecondaryTargetType       uint8 = 19
	StepSecondaryCustomTargetLow  uint8 = 21
	StepSecondaryCustomTargetHigh uint8 = 22
)

// record
const (
	RecordHeartRate uint8 = 3
	RecordCadence   uint8 = 4
	RecordPower     uint8 = 7
)

// event
const (
	EventEvent      uint8 = 0
	EventEventType  uint8 = 1
	EventEventGroup uint8 = 4
)

// session
const (
	SessionEvent            uint8 = 0
	SessionEventType        uint8 = 1
	SessionStartTime        uint8 = 2
	SessionSport            uint8 = 5
	SessionSubSport         uint8 = 6
	SessionTotalElapsedTime uint8 = 7
	SessionTotalTimerTime   uint8 = 8
	SessionAvgHeartRate     uint8 = 16
	SessionMaxHeartRate     uint8 = 17
	SessionAvgCadence       uint8 = 18
	SessionMaxCadence       uint8 = 19
	SessionAvgPower         uint8 = 20
	SessionMaxPower         uint8 = 21
	SessionFirstLapIndex    uint8 = 25
	SessionNumLaps          uint8 = 26
	SessionThresholdPower   uint8 = 45
	SessionTotalWork        uint8 = 48
)

// lap
const (
	LapEvent            uint8 = 0
	LapEventType        uint8 = 1
	LapStartTime        uint8 = 2
	LapTotalElapsedTime uint8 = 7
	LapTotalTimerTime   uint8 = 8
	LapAvgHeartRate     uint8 = 15
	LapMaxHeartRate     uint8 = 16
	LapAvgCadence       uint8 = 17
	LapMaxCadence       uint8 = 18
	LapAvgPower         uint8 = 19
	LapMaxPower         uint8 = 20
	LapSport            uint8 = 25
	LapTotalWork        uint8 = 41
)

// activity
const (
	ActivityTotalTimerTime uint8 = 0
	ActivityNumSessions    uint8 = 1
	ActivityType           uint8 = 2
	ActivityEvent          uint8 = 3
	ActivityEventType      uint8 = 4
	ActivityLocalTimestamp uint8 = 5
)

// Profile enum values.
const (
	FileTypeActivity uint8 = 4

	ManufacturerDevelopment uint16 = 255

	SportCycling          uint8 = 2
	SubSportIndoorCycling uint8 = 6

	EventTimer    uint8 = 0
	EventSession  uint8 = 8
	EventLap      uint8 = 9
	EventActivity uint8 = 26

	EventTypeStart   uint8 = 0
	EventTypeStop    uint8 = 1
	EventTypeStopAll uint8 = 4

	DurationTypeTime uint8 = 0

	TargetTypeCadence uint8 = 3
	TargetTypePower   uint8 = 4
	TargetTypeOpen    uint8 = 2

	IntensityActive uint8 = 0

	ActivityTypeManual uint8 = 0
)

// PowerTargetOffset is added to a custom power target given in watts; smaller
// values are percentages of FTP.
const PowerTargetOffset = 1000

// TimeScale converts seconds to the millisecond fields used for durations.
const TimeScale = 1000
