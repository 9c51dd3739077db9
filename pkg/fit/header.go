package fit

import (
	"encoding/binary"
	"fmt"
)

// Header is the file header. DataSize counts the record region only.
type Header struct {
	Size            uint8
	ProtocolVersion uint8
	ProfileVersion  uint16
	DataSize        uint32
	Magic           [4]byte
	Checksum        uint16
}

// NewHeader returns the header written by this package for a record region of dataSize bytes.
func NewHeader(dataSize uint32) Header {
	h := Header{
		Size:            HeaderSize,
		ProtocolVersion: ProtocolVersion,
		ProfileVersion:  ProfileVersion,
		DataSize:        dataSize,
	}
	copy(h.Magic[:], Magic)
	return h
}

// encodeHeader writes h into dst and fills in the header checksum.
func encodeHeader(dst []byte, h Header) bool {
	if len(dst) < HeaderSize {
		return false
	}
	dst[0] = h.Size
	dst[1] = h.ProtocolVersion
	binary.LittleEndian.PutUint16(dst[2:4], h.ProfileVersion)
	binary.LittleEndian.PutUint32(dst[4:8], h.DataSize)
	copy(dst[8:12], h.Magic[:])
	binary.LittleEndian.PutUint16(dst[12:14], Checksum(dst[:12]))
	return true
}

// decodeHeader parses and validates the header at the start of data.
func decodeHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < LegacyHeaderSize {
		return h, fmt.Errorf("%w: %d bytes", ErrInvalidHeader, len(data))
	}
	h.Size = data[0]
	if h.Size < LegacyHeaderSize || int(h.Size) > len(data) {
		return h, fmt.Errorf("%w: header size %d", ErrInvalidHeader, h.Size)
	}
	h.ProtocolVersion = data[1]
	h.ProfileVersion = binary.LittleEndian.Uint16(data[2:4])
	h.DataSize = binary.LittleEndian.Uint32(data[4:8])
	copy(h.Magic[:], data[8:12])
	if string(h.Magic[:]) != Magic {
		return h, ErrInvalidMagic
	}
	if !h.Compatible() {
		return h, fmt.Errorf("%w: protocol version %#x", ErrInvalidHeader, h.ProtocolVersion)
	}
	if h.Size >= HeaderSize {
		h.Checksum = binary.LittleEndian.Uint16(data[12:14])
		// A zero checksum means the writer did not compute one.
		if h.Checksum != 0 && h.Checksum != Checksum(data[:12]) {
			return h, ErrHeaderChecksum
		}
	}
	return h, nil
}

// Compatible reports whether the protocol major version is supported.
func (h Header) Compatible() bool {
	return h.ProtocolVersion>>4 <= ProtocolVersion>>4
}
