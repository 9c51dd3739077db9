package fit

import (
	"bytes"
	"testing"
)

func TestDefineMessageLayout(t *testing.T) {
	t.Parallel()

	def := DefineMessage(2, MesgRecord,
		[]FieldDef{{Num: FieldTimestamp, Type: Uint32}, {Num: RecordPower, Type: Uint16}},
		[]DevFieldDef{{Num: 0, Type: Uint16, DevIndex: 0}},
	)
	want := []byte{
		0x62, 0x00, 0x00, 0x14, 0x00, 0x02,
		253, 4, 0x86,
		7, 2, 0x84,
		0x01,
		0, 2, 0,
	}
	if got := def.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("definition bytes mismatch:\n got %x\nwant %x", got, want)
	}
	if def.DataSize() != 8 {
		t.Fatalf("data size mismatch: got %d want 8", def.DataSize())
	}
}

func TestDefineMessageWithoutDevFields(t *testing.T) {
	t.Parallel()

	def := DefineMessage(15, MesgWorkout, []FieldDef{{Num: WorkoutName, Type: String, Size: 16}}, nil)
	got := def.Bytes()
	if got[0] != 0x4F {
		t.Fatalf("record header mismatch: got %#x want 0x4f", got[0])
	}
	if len(got) != 9 {
		t.Fatalf("definition length mismatch: got %d want 9", len(got))
	}
	if got[7] != 16 {
		t.Fatalf("declared string width mismatch: got %d want 16", got[7])
	}
}

func TestDefineMessagePreservesOrderAndIsImmutable(t *testing.T) {
	t.Parallel()

	fields := []FieldDef{{Num: 7, Type: Uint16}, {Num: 3, Type: Uint8}, {Num: 253, Type: Uint32}}
	def := DefineMessage(0, MesgRecord, fields, nil)
	fields[0].Num = 99

	if def.Fields[0].Num != 7 || def.Fields[1].Num != 3 || def.Fields[2].Num != 253 {
		t.Fatalf("field order not preserved: %+v", def.Fields)
	}
	b := def.Bytes()
	b[0] = 0
	if def.Bytes()[0] != 0x40 {
		t.Fatalf("Bytes must return a copy")
	}
}

func TestDefineMessageFillsNaturalSize(t *testing.T) {
	t.Parallel()

	def := DefineMessage(0, MesgRecord,
		[]FieldDef{{Num: FieldTimestamp, Type: Uint32}, {Num: RecordCadence, Type: Uint8}},
		[]DevFieldDef{{Num: 1, Type: Float32}},
	)
	if def.Fields[0].Size != 4 || def.Fields[1].Size != 1 || def.DevFields[0].Size != 4 {
		t.Fatalf("sizes not filled: %+v %+v", def.Fields, def.DevFields)
	}
}

func TestDefineMessageRejectsBadSlot(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for slot 16")
		}
	}()
	DefineMessage(16, MesgRecord, nil, nil)
}
