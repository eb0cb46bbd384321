package wire

import (
	"encoding/binary"
	"math"
	"strings"
)

// Sink receives decoded records one at a time, in stream order. Implementing
// Sink lets a consumer (the debug rasterizer, the Logic Host test harness)
// avoid allocating a []Record for streams it only needs to walk once.
type Sink interface {
	Clear(r, g, b byte)
	SetColor(r, g, b, a byte)
	FillRect(x, y, w, h float32)
	DrawLine(x1, y1, x2, y2, width float32)
	DrawText(x, y float32, text string)
	LoadSound(name, url string)
	PlaySound(name string, loop bool, volume float32)
	StopSound(name string)
	SetVolume(name string, volume float32)
	LoadImage(name, url string)
	DrawImage(name string, a DrawImageArgs)
}

// reader walks a byte slice, reporting whether each fixed-size read fit.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) remaining() int { return len(r.buf) - r.pos }

func (r *reader) u8() (byte, bool) {
	if r.remaining() < 1 {
		return 0, false
	}
	v := r.buf[r.pos]
	r.pos++
	return v, true
}

func (r *reader) u16() (uint16, bool) {
	if r.remaining() < 2 {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, true
}

func (r *reader) f32() (float32, bool) {
	if r.remaining() < 4 {
		return 0, false
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.buf[r.pos:]))
	r.pos += 4
	return v, true
}

// str reads a u16-length-prefixed UTF-8 string, decoding lossily: malformed
// byte sequences become the Unicode replacement character rather than
// aborting the stream.
func (r *reader) str() (string, bool) {
	n, ok := r.u16()
	if !ok {
		return "", false
	}
	if r.remaining() < int(n) {
		return "", false
	}
	raw := r.buf[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return strings.ToValidUTF8(string(raw), "�"), true
}

// Decode walks buf, dispatching each record to sink in order. Truncation at
// any opcode boundary — including mid-payload — stops decoding without
// error; an unrecognized opcode stops decoding the remainder of the frame
// but the records already dispatched stand.
func Decode(buf []byte, sink Sink) {
	r := &reader{buf: buf}
	for {
		op, ok := r.u8()
		if !ok {
			return
		}
		switch Opcode(op) {
		case OpClear:
			cr, okr := r.u8()
			cg, okg := r.u8()
			cb, okb := r.u8()
			if !(okr && okg && okb) {
				return
			}
			sink.Clear(cr, cg, cb)

		case OpSetColor:
			cr, okr := r.u8()
			cg, okg := r.u8()
			cb, okb := r.u8()
			ca, oka := r.u8()
			if !(okr && okg && okb && oka) {
				return
			}
			sink.SetColor(cr, cg, cb, ca)

		case OpFillRect:
			x, okx := r.f32()
			y, oky := r.f32()
			w, okw := r.f32()
			h, okh := r.f32()
			if !(okx && oky && okw && okh) {
				return
			}
			sink.FillRect(x, y, w, h)

		case OpDrawLine:
			x1, ok1 := r.f32()
			y1, ok2 := r.f32()
			x2, ok3 := r.f32()
			y2, ok4 := r.f32()
			width, ok5 := r.f32()
			if !(ok1 && ok2 && ok3 && ok4 && ok5) {
				return
			}
			sink.DrawLine(x1, y1, x2, y2, width)

		case OpDrawText:
			x, okx := r.f32()
			y, oky := r.f32()
			if !(okx && oky) {
				return
			}
			text, okt := r.str()
			if !okt {
				return
			}
			sink.DrawText(x, y, text)

		case OpLoadSound:
			name, okn := r.str()
			if !okn {
				return
			}
			url, oku := r.str()
			if !oku {
				return
			}
			sink.LoadSound(name, url)

		case OpPlaySound:
			name, okn := r.str()
			if !okn {
				return
			}
			loopByte, okl := r.u8()
			if !okl {
				return
			}
			volume, okv := r.f32()
			if !okv {
				return
			}
			sink.PlaySound(name, loopByte != 0, volume)

		case OpStopSound:
			name, okn := r.str()
			if !okn {
				return
			}
			sink.StopSound(name)

		case OpSetVolume:
			name, okn := r.str()
			if !okn {
				return
			}
			volume, okv := r.f32()
			if !okv {
				return
			}
			sink.SetVolume(name, volume)

		case OpLoadImage:
			name, okn := r.str()
			if !okn {
				return
			}
			url, oku := r.str()
			if !oku {
				return
			}
			sink.LoadImage(name, url)

		case OpDrawImage:
			name, okn := r.str()
			if !okn {
				return
			}
			var a DrawImageArgs
			fields := []*float32{&a.X, &a.Y, &a.W, &a.H, &a.SX, &a.SY, &a.SW, &a.SH, &a.Rotation, &a.OX, &a.OY}
			complete := true
			for _, f := range fields {
				v, ok := r.f32()
				if !ok {
					complete = false
					break
				}
				*f = v
			}
			if !complete {
				return
			}
			sink.DrawImage(name, a)

		default:
			// Unknown opcode: fail closed on the tail, keep what was parsed.
			return
		}
	}
}

// collector is a Sink that materializes every record into a slice, used by
// DecodeAll for callers (such as tests) that need the full record list
// rather than a streaming callback.
type collector struct {
	records []Record
}

func (c *collector) Clear(r, g, b byte) { c.records = append(c.records, ClearRecord{r, g, b}) }
func (c *collector) SetColor(r, g, b, a byte) {
	c.records = append(c.records, SetColorRecord{r, g, b, a})
}
func (c *collector) FillRect(x, y, w, h float32) {
	c.records = append(c.records, FillRectRecord{x, y, w, h})
}
func (c *collector) DrawLine(x1, y1, x2, y2, width float32) {
	c.records = append(c.records, DrawLineRecord{x1, y1, x2, y2, width})
}
func (c *collector) DrawText(x, y float32, text string) {
	c.records = append(c.records, DrawTextRecord{x, y, text})
}
func (c *collector) LoadSound(name, url string) {
	c.records = append(c.records, LoadSoundRecord{name, url})
}
func (c *collector) PlaySound(name string, loop bool, volume float32) {
	c.records = append(c.records, PlaySoundRecord{name, loop, volume})
}
func (c *collector) StopSound(name string) { c.records = append(c.records, StopSoundRecord{name}) }
func (c *collector) SetVolume(name string, volume float32) {
	c.records = append(c.records, SetVolumeRecord{name, volume})
}
func (c *collector) LoadImage(name, url string) {
	c.records = append(c.records, LoadImageRecord{name, url})
}
func (c *collector) DrawImage(name string, a DrawImageArgs) {
	c.records = append(c.records, DrawImageRecord{name, a})
}

// DecodeAll decodes buf into a slice of Records, in stream order.
func DecodeAll(buf []byte) []Record {
	c := &collector{}
	Decode(buf, c)
	return c.records
}
