// Package fit implements the subset of the FIT activity-file format needed to
// write and read indoor cycling sessions.
//
// A file is a fixed header, a stream of definition and data records, and a
// trailing CRC-16. Definition records declare the binary shape of later data
// records for one of 16 local slots; developer fields extend a message with
// vendor fields whose types are declared by field-description messages.
package fit

import "time"

// Format constants must never change.
const (
	// Magic is the data type tag carried in bytes 8..11 of the header.
	Magic = ".FIT"

	// HeaderSize is the size of the header written by this package.
	HeaderSize = 14

	// LegacyHeaderSize is the size of a header without its own checksum.
	LegacyHeaderSize = 12

	// ProtocolVersion is 2.0, the first version to carry developer fields.
	ProtocolVersion uint8 = 0x20

	// ProfileVersion is written as major*100+minor.
	ProfileVersion uint16 = 2132

	// MaxLocalSlots is the number of local message slots addressable by a record header.
	MaxLocalSlots = 16
)

// Record header bits.
const (
	headerCompressed  = 0x80
	headerDefinition  = 0x40
	headerDevData     = 0x20
	headerLocalMask   = 0x0F
	compressedLocMask = 0x60
)

// Architecture values of a definition record.
const (
	ArchLittleEndian uint8 = 0
	ArchBigEndian    uint8 = 1
)

// epochOffset is the Unix time of the FIT epoch, 1989-12-31T00:00:00Z.
const epochOffset = 631065600

// ToTime converts a FIT timestamp to UTC wall time.
func ToTime(ts uint32) time.Time {
	return time.Unix(int64(ts)+epochOffset, 0).UTC()
}

// FromTime converts wall time to a FIT timestamp. Times before the epoch map to 0.
func FromTime(t time.Time) uint32 {
	s := t.Unix() - epochOffset
	if s < 0 {
		return 0
	}
	if s > int64(^uint32(0)-1) {
		return ^uint32(0) - 1
	}
	return uint32(s)
}
