package fit

import (
	"encoding/binary"
	"fmt"
	"io"
	"slices"
)

// Field is one decoded standard field. Value is nil when the sentinel was read.
type Field struct {
	Num   uint8
	Type  BaseType
	Value any
}

// DevFieldValue is one decoded developer field. Resolved is false when no
// field description was seen for Key, in which case Value holds raw bytes.
type DevFieldValue struct {
	Key      DevKey
	Name     string
	Type     BaseType
	Resolved bool
	Value    any
}

// FieldDescription declares the name and type of a developer field.
type FieldDescription struct {
	Key        DevKey
	Name       string
	Units      string
	Type       BaseType
	NativeMesg MesgNum
	HasNative  bool
}

// Message is one decoded data record.
type Message struct {
	Global              MesgNum
	Local               uint8
	Offset              int
	CompressedTimestamp bool
	Fields              []Field
	DevFields           []DevFieldValue
}

// Get returns the value of a standard field; ok is false when the field is
// absent from the definition or holds the sentinel.
func (m *Message) Get(num uint8) (any, bool) {
	for i := range m.Fields {
		if m.Fields[i].Num == num {
			return m.Fields[i].Value, m.Fields[i].Value != nil
		}
	}
	return nil, false
}

func (m *Message) Uint(num uint8) (uint64, bool) {
	v, ok := m.Get(num)
	if !ok {
		return 0, false
	}
	return AsUint(v)
}

func (m *Message) Int(num uint8) (int64, bool) {
	v, ok := m.Get(num)
	if !ok {
		return 0, false
	}
	return AsInt(v)
}

func (m *Message) Float(num uint8) (float64, bool) {
	v, ok := m.Get(num)
	if !ok {
		return 0, false
	}
	return AsFloat(v)
}

func (m *Message) String(num uint8) (string, bool) {
	v, ok := m.Get(num)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (m *Message) Bytes(num uint8) ([]byte, bool) {
	v, ok := m.Get(num)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

// Dev returns the developer field stored under key.
func (m *Message) Dev(key DevKey) (DevFieldValue, bool) {
	for _, f := range m.DevFields {
		if f.Key == key {
			return f, f.Value != nil
		}
	}
	return DevFieldValue{}, false
}

// DevFloat returns a resolved numeric developer field.
func (m *Message) DevFloat(key DevKey) (float64, bool) {
	f, ok := m.Dev(key)
	if !ok || !f.Resolved {
		return 0, false
	}
	return AsFloat(f.Value)
}

// Decoder reads records in a single forward pass. Its slot and field
// description tables live only as long as the decoder.
type Decoder struct {
	data     []byte
	header   Header
	pos      int
	end      int
	declared int

	verify bool
	defs   [MaxLocalSlots]*Definition
	descs  map[DevKey]FieldDescription
	err    error
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithChecksum enables or disables verification of the trailing file checksum.
func WithChecksum(verify bool) Option {
	return func(d *Decoder) { d.verify = verify }
}

// NewDecoder validates the header of data and prepares a decoder over its
// record region. A file shorter than its header declares is not rejected
// here: Next reports ErrTruncatedStream once the available records run out.
func NewDecoder(data []byte, opts ...Option) (*Decoder, error) {
	d := &Decoder{
		data:   data,
		verify: true,
		descs:  make(map[DevKey]FieldDescription),
	}
	for _, opt := range opts {
		opt(d)
	}

	h, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}
	d.header = h
	d.pos = int(h.Size)
	d.declared = int(h.Size) + int(h.DataSize)
	d.end = min(d.declared, len(data))

	if d.verify && len(data) >= d.declared+2 {
		want := binary.LittleEndian.Uint16(data[d.declared : d.declared+2])
		if got := Checksum(data[:d.declared]); got != want {
			return nil, fmt.Errorf("%w: got %#04x want %#04x", ErrChecksumMismatch, got, want)
		}
	}
	return d, nil
}

// Header returns the parsed file header.
func (d *Decoder) Header() Header { return d.header }

// Offset returns the position of the next unread record.
func (d *Decoder) Offset() int { return d.pos }

// Next returns the next data record. Definition records are consumed
// internally. It returns io.EOF at the end of the record region and an error
// wrapping ErrTruncatedStream when a record cannot be decoded safely; no
// further records are returned after an error.
func (d *Decoder) Next() (*Message, error) {
	for {
		if d.err != nil {
			return nil, d.err
		}
		if d.pos >= d.end {
			if d.end < d.declared {
				return nil, d.fail(fmt.Errorf("%w: record region ends at %d, header declares %d", ErrTruncatedStream, d.end, d.declared))
			}
			return nil, io.EOF
		}

		h := d.data[d.pos]
		switch {
		case h&headerCompressed != 0:
			return d.readData((h&compressedLocMask)>>5, true)
		case h&headerDefinition != 0:
			if err := d.readDefinition(h); err != nil {
				return nil, d.fail(err)
			}
		default:
			return d.readData(h&headerLocalMask, false)
		}
	}
}

func (d *Decoder) fail(err error) error {
	d.err = err
	return err
}

func (d *Decoder) readDefinition(h uint8) error {
	start := d.pos
	if d.end-start < 6 {
		return fmt.Errorf("%w: short definition at %d", ErrTruncatedStream, start)
	}
	arch := d.data[start+2]
	if arch > ArchBigEndian {
		return fmt.Errorf("%w: %d at %d", ErrUnsupportedArchitecture, arch, start)
	}
	def := &Definition{Local: h & headerLocalMask, Arch: arch}
	if arch == ArchBigEndian {
		def.Global = MesgNum(binary.BigEndian.Uint16(d.data[start+3:]))
	} else {
		def.Global = MesgNum(binary.LittleEndian.Uint16(d.data[start+3:]))
	}

	off := start + 6
	n := int(d.data[start+5])
	if d.end-off < 3*n {
		return fmt.Errorf("%w: short field list at %d", ErrTruncatedStream, start)
	}
	def.Fields = make([]FieldDef, n)
	for i := range n {
		p := d.data[off+3*i:]
		def.Fields[i] = FieldDef{Num: p[0], Size: p[1], Type: TypeOf(p[2])}
	}
	off += 3 * n

	if h&headerDevData != 0 {
		if off >= d.end {
			return fmt.Errorf("%w: missing developer field count at %d", ErrTruncatedStream, start)
		}
		m := int(d.data[off])
		off++
		if d.end-off < 3*m {
			return fmt.Errorf("%w: short developer field list at %d", ErrTruncatedStream, start)
		}
		def.DevFields = make([]DevFieldDef, m)
		for i := range m {
			p := d.data[off+3*i:]
			def.DevFields[i] = DevFieldDef{Num: p[0], Size: p[1], DevIndex: p[2], Type: Byte}
		}
		off += 3 * m
	}

	def.raw = d.data[start:off:off]
	d.defs[def.Local] = def
	d.pos = off
	return nil
}

func (d *Decoder) readData(local uint8, compressed bool) (*Message, error) {
	start := d.pos
	def := d.defs[local]
	if def == nil {
		return nil, d.fail(fmt.Errorf("%w: data record for undefined local slot %d at %d", ErrTruncatedStream, local, start))
	}
	size := def.DataSize()
	if d.end-start-1 < size {
		return nil, d.fail(fmt.Errorf("%w: %s record at %d needs %d bytes", ErrTruncatedStream, def.Global, start, size))
	}

	order := def.byteOrder()
	msg := &Message{
		Global:              def.Global,
		Local:               local,
		Offset:              start,
		CompressedTimestamp: compressed,
		Fields:              make([]Field, len(def.Fields)),
	}
	off := start + 1
	for i, f := range def.Fields {
		w := f.width()
		msg.Fields[i] = Field{Num: f.Num, Type: f.Type, Value: f.Type.decode(d.data[off:off+w], order)}
		off += w
	}
	if len(def.DevFields) > 0 {
		msg.DevFields = make([]DevFieldValue, len(def.DevFields))
		for i, f := range def.DevFields {
			w := f.width()
			v := DevFieldValue{Key: f.Key(), Type: Byte}
			if desc, ok := d.descs[v.Key]; ok {
				v.Name = desc.Name
				v.Type = desc.Type
				v.Resolved = true
			}
			v.Value = v.Type.decode(d.data[off:off+w], order)
			msg.DevFields[i] = v
			off += w
		}
	}
	d.pos = off

	if msg.Global == MesgFieldDescription {
		d.register(msg)
	}
	return msg, nil
}

func (d *Decoder) register(m *Message) {
	idx, ok1 := m.Uint(FieldDescDeveloperDataIndex)
	num, ok2 := m.Uint(FieldDescFieldDefinitionNumber)
	if !ok1 || !ok2 {
		return
	}
	desc := FieldDescription{
		Key:  DevKey{Index: uint8(idx), Num: uint8(num)},
		Type: Byte,
	}
	if id, ok := m.Uint(FieldDescBaseTypeID); ok {
		desc.Type = TypeOf(uint8(id))
	}
	desc.Name, _ = m.String(FieldDescFieldName)
	desc.Units, _ = m.String(FieldDescUnits)
	if native, ok := m.Uint(FieldDescNativeMesgNum); ok {
		desc.NativeMesg = MesgNum(native)
		desc.HasNative = true
	}
	d.descs[desc.Key] = desc
}

// Definitions returns the definitions currently bound to local slots.
func (d *Decoder) Definitions() []*Definition {
	out := make([]*Definition, 0, MaxLocalSlots)
	for _, def := range d.defs {
		if def != nil {
			out = append(out, def)
		}
	}
	return out
}

// FieldDescriptions returns the developer field descriptions seen so far,
// ordered by developer index and field number.
func (d *Decoder) FieldDescriptions() []FieldDescription {
	out := make([]FieldDescription, 0, len(d.descs))
	for _, desc := range d.descs {
		out = append(out, desc)
	}
	slices.SortFunc(out, func(a, b FieldDescription) int {
		if a.Key.Index != b.Key.Index {
			return int(a.Key.Index) - int(b.Key.Index)
		}
		return int(a.Key.Num) - int(b.Key.Num)
	})
	return out
}
