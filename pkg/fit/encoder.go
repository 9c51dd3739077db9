package fit

// EncodeRecord encodes one data record for def, record header included.
// Standard fields are looked up by field number and developer fields by
// DevKey; a missing or nil value is written as the type's sentinel.
func EncodeRecord(def *Definition, fields map[uint8]any, devFields map[DevKey]any) []byte {
	buf := make([]byte, 1+def.DataSize())
	buf[0] = def.Local & headerLocalMask
	order := def.byteOrder()

	off := 1
	for _, f := range def.Fields {
		w := f.width()
		f.Type.encode(buf[off:off+w], order, fields[f.Num])
		off += w
	}
	for _, f := range def.DevFields {
		w := f.width()
		f.Type.encode(buf[off:off+w], order, devFields[f.Key()])
		off += w
	}
	return buf
}
