package fit

import (
	"encoding/binary"
	"fmt"
)

// FieldDef declares one standard field of a message. A zero Size means the
// natural width of Type; String and Byte fields must declare their width.
type FieldDef struct {
	Num  uint8
	Type BaseType
	Size uint8
}

// DevFieldDef declares one developer field. Type is how the writer encodes the
// value; readers learn it from the matching field description.
type DevFieldDef struct {
	Num      uint8
	Type     BaseType
	Size     uint8
	DevIndex uint8
}

// DevKey identifies a developer field across developer namespaces.
type DevKey struct {
	Index uint8
	Num   uint8
}

// Key returns the composite lookup key of d.
func (d DevFieldDef) Key() DevKey { return DevKey{Index: d.DevIndex, Num: d.Num} }

// width is the declared size. Definitions read from a file keep whatever
// size the file declared, including 0.
func (f FieldDef) width() int { return int(f.Size) }

func (d DevFieldDef) width() int { return int(d.Size) }

// Definition is the schema bound to a local slot. It is immutable once built.
type Definition struct {
	Local     uint8
	Global    MesgNum
	Arch      uint8
	Fields    []FieldDef
	DevFields []DevFieldDef

	raw []byte
}

// DefineMessage builds a little-endian definition record for local slot local.
// Field order is preserved exactly; data records are laid out positionally.
func DefineMessage(local uint8, global MesgNum, fields []FieldDef, devFields []DevFieldDef) *Definition {
	if local >= MaxLocalSlots {
		panic(fmt.Sprintf("fit: local slot %d out of range", local))
	}
	if len(fields) > 255 || len(devFields) > 255 {
		panic("fit: too many fields in definition")
	}

	d := &Definition{
		Local:     local,
		Global:    global,
		Arch:      ArchLittleEndian,
		Fields:    append([]FieldDef(nil), fields...),
		DevFields: append([]DevFieldDef(nil), devFields...),
	}
	for i := range d.Fields {
		if d.Fields[i].Size == 0 {
			d.Fields[i].Size = uint8(d.Fields[i].Type.Size())
		}
	}
	for i := range d.DevFields {
		if d.DevFields[i].Size == 0 {
			d.DevFields[i].Size = uint8(d.DevFields[i].Type.Size())
		}
	}

	hdr := headerDefinition | local
	if len(devFields) > 0 {
		hdr |= headerDevData
	}
	buf := make([]byte, 0, 6+3*len(fields)+1+3*len(devFields))
	buf = append(buf, hdr, 0, d.Arch)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(global))
	buf = append(buf, uint8(len(fields)))
	for _, f := range d.Fields {
		buf = append(buf, f.Num, uint8(f.width()), f.Type.ID())
	}
	if len(devFields) > 0 {
		buf = append(buf, uint8(len(devFields)))
		for _, f := range d.DevFields {
			buf = append(buf, f.Num, uint8(f.width()), f.DevIndex)
		}
	}
	d.raw = buf
	return d
}

// Bytes returns the encoded definition record, record header included.
func (d *Definition) Bytes() []byte {
	out := make([]byte, len(d.raw))
	copy(out, d.raw)
	return out
}

// DataSize returns the size of a data record for d, record header excluded.
func (d *Definition) DataSize() int {
	n := 0
	for _, f := range d.Fields {
		n += f.width()
	}
	for _, f := range d.DevFields {
		n += f.width()
	}
	return n
}

func (d *Definition) byteOrder() binary.ByteOrder {
	if d.Arch == ArchBigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
