package fit

import (
	"encoding/binary"
	"math"
	"unicode/utf8"
)

// BaseType is the wire identifier of a field's base type.
type BaseType uint8

const (
	Enum    BaseType = 0x00
	Sint8   BaseType = 0x01
	Uint8   BaseType = 0x02
	String  BaseType = 0x07
	Byte    BaseType = 0x0D
	Sint16  BaseType = 0x83
	Uint16  BaseType = 0x84
	Sint32  BaseType = 0x85
	Uint32  BaseType = 0x86
	Float32 BaseType = 0x88
)

// typeInfo is one row of the registry. put reports false when v carries no
// value, in which case the caller writes the sentinel instead.
type typeInfo struct {
	name     string
	size     int
	sentinel uint64
	put      func(dst []byte, order binary.ByteOrder, v any) bool
	get      func(src []byte, order binary.ByteOrder) any
}

// registry is indexed by wire id; nil rows are unknown ids.
var registry = func() (r [256]*typeInfo) {
	r[Enum] = &typeInfo{name: "enum", size: 1, sentinel: 0xFF, put: putUint, get: getUint}
	r[Sint8] = &typeInfo{name: "sint8", size: 1, sentinel: 0x7F, put: putInt, get: getInt}
	r[Uint8] = &typeInfo{name: "uint8", size: 1, sentinel: 0xFF, put: putUint, get: getUint}
	r[Sint16] = &typeInfo{name: "sint16", size: 2, sentinel: 0x7FFF, put: putInt, get: getInt}
	r[Uint16] = &typeInfo{name: "uint16", size: 2, sentinel: 0xFFFF, put: putUint, get: getUint}
	r[Sint32] = &typeInfo{name: "sint32", size: 4, sentinel: 0x7FFFFFFF, put: putInt, get: getInt}
	r[Uint32] = &typeInfo{name: "uint32", size: 4, sentinel: 0xFFFFFFFF, put: putUint, get: getUint}
	r[Float32] = &typeInfo{name: "float32", size: 4, sentinel: 0xFFFFFFFF, put: putFloat32, get: getFloat32}
	r[String] = &typeInfo{name: "string", size: 1, sentinel: 0x00, put: putString, get: getString}
	r[Byte] = &typeInfo{name: "byte", size: 1, sentinel: 0xFF, put: putBytes, get: getBytes}
	return r
}()

var byName = func() map[string]BaseType {
	m := make(map[string]BaseType)
	for id, ti := range registry {
		if ti != nil {
			m[ti.name] = BaseType(id)
		}
	}
	return m
}()

// TypeOf resolves a wire id. Unknown ids resolve to Byte so their bytes are
// still surfaced raw.
func TypeOf(id uint8) BaseType {
	if registry[id] != nil {
		return BaseType(id)
	}
	return Byte
}

// TypeByName resolves a registry name such as "uint16".
func TypeByName(name string) (BaseType, bool) {
	t, ok := byName[name]
	return t, ok
}

func (t BaseType) info() *typeInfo {
	if ti := registry[t]; ti != nil {
		return ti
	}
	return registry[Byte]
}

// ID returns the wire identifier.
func (t BaseType) ID() uint8 { return uint8(t) }

// Name returns the registry name.
func (t BaseType) Name() string { return t.info().name }

func (t BaseType) String() string { return t.Name() }

// Size returns the encoded width of one value. String and Byte report 1: their
// width is declared per field.
func (t BaseType) Size() int { return t.info().size }

// Variable reports whether the field width is chosen by the definition.
func (t BaseType) Variable() bool { return t == String || t == Byte }

// Sentinel returns the bit pattern meaning "no value" for one element.
func (t BaseType) Sentinel() uint64 { return t.info().sentinel }

// fill writes the sentinel over dst.
func (t BaseType) fill(dst []byte, order binary.ByteOrder) {
	ti := t.info()
	switch {
	case t == String:
		clear(dst)
	case t == Byte || len(dst) != ti.size:
		for i := range dst {
			dst[i] = 0xFF
		}
	default:
		putBits(dst, order, ti.sentinel)
	}
}

// encode writes v into dst, falling back to the sentinel when v is absent.
func (t BaseType) encode(dst []byte, order binary.ByteOrder, v any) {
	ti := t.info()
	if !t.Variable() && len(dst) != ti.size {
		t.fill(dst, order)
		return
	}
	if v == nil || !ti.put(dst, order, v) {
		t.fill(dst, order)
	}
}

// decode reads one field, returning nil for the sentinel. Numeric fields whose
// declared width differs from the type width are returned as raw bytes.
func (t BaseType) decode(src []byte, order binary.ByteOrder) any {
	ti := t.info()
	if !t.Variable() && len(src) != ti.size {
		return getBytes(src, order)
	}
	return ti.get(src, order)
}

func putBits(dst []byte, order binary.ByteOrder, v uint64) {
	switch len(dst) {
	case 1:
		dst[0] = uint8(v)
	case 2:
		order.PutUint16(dst, uint16(v))
	case 4:
		order.PutUint32(dst, uint32(v))
	}
}

func getBits(src []byte, order binary.ByteOrder) uint64 {
	switch len(src) {
	case 1:
		return uint64(src[0])
	case 2:
		return uint64(order.Uint16(src))
	case 4:
		return uint64(order.Uint32(src))
	}
	return 0
}

func putUint(dst []byte, order binary.ByteOrder, v any) bool {
	n, ok := toInt64(v)
	if !ok {
		return false
	}
	limit := int64(1)<<(8*len(dst)) - 1
	putBits(dst, order, uint64(min(max(n, 0), limit)))
	return true
}

func getUint(src []byte, order binary.ByteOrder) any {
	bits := getBits(src, order)
	if bits == uintSentinel(len(src)) {
		return nil
	}
	return bits
}

func uintSentinel(size int) uint64 {
	return uint64(1)<<(8*size) - 1
}

func putInt(dst []byte, order binary.ByteOrder, v any) bool {
	n, ok := toInt64(v)
	if !ok {
		return false
	}
	hi := int64(1)<<(8*len(dst)-1) - 1
	lo := -hi - 1
	putBits(dst, order, uint64(min(max(n, lo), hi)))
	return true
}

func getInt(src []byte, order binary.ByteOrder) any {
	bits := getBits(src, order)
	hi := uint64(1)<<(8*len(src)-1) - 1
	if bits == hi {
		return nil
	}
	switch len(src) {
	case 1:
		return int64(int8(bits))
	case 2:
		return int64(int16(bits))
	default:
		return int64(int32(bits))
	}
}

func putFloat32(dst []byte, order binary.ByteOrder, v any) bool {
	f, ok := toFloat64(v)
	if !ok || math.IsNaN(f) {
		return false
	}
	order.PutUint32(dst, math.Float32bits(float32(f)))
	return true
}

func getFloat32(src []byte, order binary.ByteOrder) any {
	bits := order.Uint32(src)
	if bits == 0xFFFFFFFF {
		return nil
	}
	return float64(math.Float32frombits(bits))
}

func putString(dst []byte, _ binary.ByteOrder, v any) bool {
	s, ok := toString(v)
	if !ok || s == "" {
		return false
	}
	// Keep room for the terminator and never split a rune.
	limit := len(dst) - 1
	if len(s) > limit {
		cut := max(limit, 0)
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	clear(dst)
	copy(dst, s)
	return s != ""
}

func getString(src []byte, _ binary.ByteOrder) any {
	n := 0
	for n < len(src) && src[n] != 0 {
		n++
	}
	if n == 0 {
		return nil
	}
	return string(src[:n])
}

func putBytes(dst []byte, _ binary.ByteOrder, v any) bool {
	var b []byte
	switch x := v.(type) {
	case []byte:
		if x == nil {
			return false
		}
		b = x
	case string:
		b = []byte(x)
	default:
		return false
	}
	clear(dst)
	copy(dst, b)
	return true
}

func getBytes(src []byte, _ binary.ByteOrder) any {
	allInvalid := true
	for _, c := range src {
		if c != 0xFF {
			allInvalid = false
			break
		}
	}
	if allInvalid {
		return nil
	}
	out := make([]byte, len(src))
	copy(out, src)
	return out
}

// Decode interprets little-endian bytes as t, returning nil for the sentinel.
func (t BaseType) Decode(b []byte) any {
	return t.decode(b, binary.LittleEndian)
}

// IsSentinel reports whether b holds t's "no value" pattern.
func (t BaseType) IsSentinel(b []byte) bool {
	return t.Decode(b) == nil
}
