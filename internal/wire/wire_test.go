package wire

import (
	"reflect"
	"testing"
)

func TestRoundTripClearFillRect(t *testing.T) {
	b := NewBuilder()
	b.Clear(10, 20, 30)
	b.FillRect(1.5, 2.5, 100, 200)

	got := DecodeAll(b.Bytes())
	want := []Record{
		ClearRecord{10, 20, 30},
		FillRectRecord{1.5, 2.5, 100, 200},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestSetColorThenDrawLineStateIsCallerSide(t *testing.T) {
	b := NewBuilder()
	b.SetColor(1, 2, 3, 255)
	b.DrawLine(0, 0, 10, 10, 2.5)

	got := DecodeAll(b.Bytes())
	want := []Record{
		SetColorRecord{1, 2, 3, 255},
		DrawLineRecord{0, 0, 10, 10, 2.5},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestDrawTextRoundTrip(t *testing.T) {
	b := NewBuilder()
	if err := b.DrawText(5, 6, "hello"); err != nil {
		t.Fatal(err)
	}
	got := DecodeAll(b.Bytes())
	want := []Record{DrawTextRecord{5, 6, "hello"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestLoadSoundPlaySoundStopSoundSetVolume(t *testing.T) {
	b := NewBuilder()
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(b.LoadSound("click", "a.ogg"))
	must(b.PlaySound("click", true, 0.5))
	must(b.StopSound("click"))
	must(b.SetVolume("click", 0.8))

	got := DecodeAll(b.Bytes())
	want := []Record{
		LoadSoundRecord{"click", "a.ogg"},
		PlaySoundRecord{"click", true, 0.5},
		StopSoundRecord{"click"},
		SetVolumeRecord{"click", 0.8},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestLoadImageDrawImageRoundTrip(t *testing.T) {
	b := NewBuilder()
	if err := b.LoadImage("sprite", "sprite.png"); err != nil {
		t.Fatal(err)
	}
	args := DrawImageArgs{X: 1, Y: 2, W: 3, H: 4, SX: 5, SY: 6, SW: 7, SH: 8, Rotation: 9, OX: 10, OY: 11}
	if err := b.DrawImage("sprite", args); err != nil {
		t.Fatal(err)
	}

	got := DecodeAll(b.Bytes())
	want := []Record{
		LoadImageRecord{"sprite", "sprite.png"},
		DrawImageRecord{"sprite", args},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestUnknownOpcodeStopsButKeepsPriorRecords(t *testing.T) {
	b := NewBuilder()
	b.Clear(1, 2, 3)
	buf := append(b.Bytes(), 0xFE) // unknown opcode appended

	got := DecodeAll(buf)
	want := []Record{ClearRecord{1, 2, 3}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestTruncationMidRecordIsClean(t *testing.T) {
	b := NewBuilder()
	b.Clear(1, 2, 3)
	b.SetColor(4, 5, 6, 7)
	full := b.Bytes()
	truncated := full[:len(full)-2] // cut into the SET_COLOR payload

	got := DecodeAll(truncated)
	want := []Record{ClearRecord{1, 2, 3}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %#v, want %#v", got, want)
	}
}

func TestEmptyStreamDecodesToNoRecords(t *testing.T) {
	got := DecodeAll(nil)
	if len(got) != 0 {
		t.Fatalf("expected no records, got %#v", got)
	}
}

func TestMalformedUTF8DecodesLossily(t *testing.T) {
	b := NewBuilder()
	b.putU8(byte(OpDrawText))
	b.putF32(0)
	b.putF32(0)
	bad := []byte{0xff, 0xfe, 'h', 'i'}
	b.putU16(uint16(len(bad)))
	b.buf = append(b.buf, bad...)

	got := DecodeAll(b.Bytes())
	if len(got) != 1 {
		t.Fatalf("expected one record, got %#v", got)
	}
	rec, ok := got[0].(DrawTextRecord)
	if !ok {
		t.Fatalf("expected DrawTextRecord, got %#v", got[0])
	}
	if rec.Text == "" {
		t.Fatalf("expected non-empty lossily-decoded text")
	}
}

func TestLongStringRejected(t *testing.T) {
	b := NewBuilder()
	longStr := make([]byte, MaxStringLen+1)
	if err := b.DrawText(0, 0, string(longStr)); err == nil {
		t.Fatal("expected error for over-length string")
	}
}
