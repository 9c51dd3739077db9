package fit

// crcPoly is the reflected CRC-16 polynomial 0x8005.
const crcPoly = 0xA001

// Checksum returns the CRC-16/ARC of data, the checksum used by both the
// header and the file trailer.
func Checksum(data []byte) uint16 {
	return UpdateChecksum(0, data)
}

// UpdateChecksum continues a running checksum over data.
func UpdateChecksum(crc uint16, data []byte) uint16 {
	for _, b := range data {
		crc ^= uint16(b)
		for range 8 {
			if crc&1 != 0 {
				crc = crc>>1 ^ crcPoly
			} else {
				crc >>= 1
			}
		}
	}
	return crc
}
