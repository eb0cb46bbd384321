package wire

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Builder accumulates opcode records into a flat byte stream. It is used by
// the Logic Host to produce FramePayloads and by tests to construct fixtures.
type Builder struct {
	buf []byte
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Bytes returns the accumulated stream. The returned slice aliases the
// Builder's internal buffer and must not be mutated by the caller.
func (b *Builder) Bytes() []byte {
	return b.buf
}

// Reset clears the builder so it can be reused for the next frame.
func (b *Builder) Reset() {
	b.buf = b.buf[:0]
}

func (b *Builder) putU8(v byte) {
	b.buf = append(b.buf, v)
}

func (b *Builder) putU16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *Builder) putF32(v float32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], math.Float32bits(v))
	b.buf = append(b.buf, tmp[:]...)
}

// putString writes a u16 length prefix followed by raw UTF-8 bytes. Strings
// longer than MaxStringLen are rejected with an error instead of being
// written with a wrapped length.
func (b *Builder) putString(s string) error {
	if len(s) > MaxStringLen {
		return fmt.Errorf("wire: string length %d exceeds max %d", len(s), MaxStringLen)
	}
	b.putU16(uint16(len(s)))
	b.buf = append(b.buf, s...)
	return nil
}

// Clear emits a CLEAR record.
func (b *Builder) Clear(r, g, bl byte) {
	b.putU8(byte(OpClear))
	b.putU8(r)
	b.putU8(g)
	b.putU8(bl)
}

// SetColor emits a SET_COLOR record, installing the stateful fill/stroke color.
func (b *Builder) SetColor(r, g, bl, a byte) {
	b.putU8(byte(OpSetColor))
	b.putU8(r)
	b.putU8(g)
	b.putU8(bl)
	b.putU8(a)
}

// FillRect emits a FILL_RECT record.
func (b *Builder) FillRect(x, y, w, h float32) {
	b.putU8(byte(OpFillRect))
	b.putF32(x)
	b.putF32(y)
	b.putF32(w)
	b.putF32(h)
}

// DrawLine emits a DRAW_LINE record.
func (b *Builder) DrawLine(x1, y1, x2, y2, width float32) {
	b.putU8(byte(OpDrawLine))
	b.putF32(x1)
	b.putF32(y1)
	b.putF32(x2)
	b.putF32(y2)
	b.putF32(width)
}

// DrawText emits a DRAW_TEXT record.
func (b *Builder) DrawText(x, y float32, text string) error {
	b.putU8(byte(OpDrawText))
	b.putF32(x)
	b.putF32(y)
	return b.putString(text)
}

// LoadSound emits a LOAD_SOUND record.
func (b *Builder) LoadSound(name, url string) error {
	b.putU8(byte(OpLoadSound))
	if err := b.putString(name); err != nil {
		return err
	}
	return b.putString(url)
}

// PlaySound emits a PLAY_SOUND record.
func (b *Builder) PlaySound(name string, loop bool, volume float32) error {
	b.putU8(byte(OpPlaySound))
	if err := b.putString(name); err != nil {
		return err
	}
	if loop {
		b.putU8(1)
	} else {
		b.putU8(0)
	}
	b.putF32(volume)
	return nil
}

// StopSound emits a STOP_SOUND record.
func (b *Builder) StopSound(name string) error {
	b.putU8(byte(OpStopSound))
	return b.putString(name)
}

// SetVolume emits a SET_VOLUME record.
func (b *Builder) SetVolume(name string, volume float32) error {
	b.putU8(byte(OpSetVolume))
	if err := b.putString(name); err != nil {
		return err
	}
	b.putF32(volume)
	return nil
}

// LoadImage emits a LOAD_IMAGE record.
func (b *Builder) LoadImage(name, url string) error {
	b.putU8(byte(OpLoadImage))
	if err := b.putString(name); err != nil {
		return err
	}
	return b.putString(url)
}

// DrawImageArgs bundles the 11 float fields a DRAW_IMAGE record carries, to
// keep the method signature from sprawling across eleven positional floats.
type DrawImageArgs struct {
	X, Y, W, H     float32
	SX, SY, SW, SH float32
	Rotation       float32
	OX, OY         float32
}

// DrawImage emits a DRAW_IMAGE record.
func (b *Builder) DrawImage(name string, a DrawImageArgs) error {
	b.putU8(byte(OpDrawImage))
	if err := b.putString(name); err != nil {
		return err
	}
	b.putF32(a.X)
	b.putF32(a.Y)
	b.putF32(a.W)
	b.putF32(a.H)
	b.putF32(a.SX)
	b.putF32(a.SY)
	b.putF32(a.SW)
	b.putF32(a.SH)
	b.putF32(a.Rotation)
	b.putF32(a.OX)
	b.putF32(a.OY)
	return nil
}
