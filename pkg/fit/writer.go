package fit

import (
	"encoding/binary"
	"fmt"
)

// Writer builds a complete file in memory.
//
// Space for the header is reserved up-front and patched in Finish, once the
// size of the record region is known. A Writer is single-use.
type Writer struct {
	buf    []byte
	defs   [MaxLocalSlots]*Definition
	counts map[MesgNum]int
	closed bool
}

// NewWriter returns an empty writer.
func NewWriter() *Writer {
	return &Writer{
		buf:    make([]byte, HeaderSize, 4096),
		counts: make(map[MesgNum]int),
	}
}

// Define emits def and binds it to its local slot.
func (w *Writer) Define(def *Definition) {
	w.mustBeOpen()
	w.buf = append(w.buf, def.raw...)
	w.defs[def.Local] = def
}

// Write emits one data record using the definition bound to local.
// Writing to an unbound slot is a programming error and panics.
func (w *Writer) Write(local uint8, fields map[uint8]any, devFields map[DevKey]any) {
	w.mustBeOpen()
	if int(local) >= MaxLocalSlots || w.defs[local] == nil {
		panic(fmt.Sprintf("fit: write to undefined local slot %d", local))
	}
	def := w.defs[local]
	w.buf = append(w.buf, EncodeRecord(def, fields, devFields)...)
	w.counts[def.Global]++
}

// Count returns the number of data records written for a global message.
func (w *Writer) Count(m MesgNum) int { return w.counts[m] }

// Len returns the number of bytes written so far, header included.
func (w *Writer) Len() int { return len(w.buf) }

// Finish patches the header and appends the file checksum. The writer must
// not be used afterwards.
func (w *Writer) Finish() []byte {
	w.mustBeOpen()
	w.closed = true

	dataSize := len(w.buf) - HeaderSize
	if !encodeHeader(w.buf[:HeaderSize], NewHeader(uint32(dataSize))) {
		panic("fit: encode header failed")
	}
	w.buf = binary.LittleEndian.AppendUint16(w.buf, Checksum(w.buf))
	return w.buf
}

func (w *Writer) mustBeOpen() {
	if w.closed {
		panic("fit: writer already finished")
	}
}
