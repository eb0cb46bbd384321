// Package rasterizer replays a draw-command stream into a raster image for
// the debug endpoint's render action. It is a deterministic pure function:
// same bytes in, same pixels out, safe against truncated or malformed input.
package rasterizer

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/evanreyes/drawcast/internal/wire"
)

// Width and Height are the fixed debug-snapshot canvas dimensions.
const (
	Width  = 800
	Height = 600
)

// canvas implements wire.Sink, replaying opcodes onto an image.NRGBA. Text
// and image opcodes have no font/texture state to render with, so they
// draw as placeholder rectangles per spec.
type canvas struct {
	img         *image.NRGBA
	strokeColor color.NRGBA
	strokeWidth float32
}

func newCanvas() *canvas {
	img := image.NewNRGBA(image.Rect(0, 0, Width, Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.NRGBA{0, 0, 0, 255}), image.Point{}, draw.Src)
	return &canvas{img: img, strokeColor: color.NRGBA{255, 255, 255, 255}, strokeWidth: 1}
}

func (c *canvas) Clear(r, g, b byte) {
	draw.Draw(c.img, c.img.Bounds(), image.NewUniform(color.NRGBA{r, g, b, 255}), image.Point{}, draw.Src)
}

func (c *canvas) SetColor(r, g, b, a byte) {
	c.strokeColor = color.NRGBA{r, g, b, a}
}

func (c *canvas) FillRect(x, y, w, h float32) {
	rect := image.Rect(int(x), int(y), int(x+w), int(y+h)).Intersect(c.img.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(c.img, rect, image.NewUniform(c.strokeColor), image.Point{}, draw.Over)
}

func (c *canvas) DrawLine(x1, y1, x2, y2, width float32) {
	prev := c.strokeWidth
	c.strokeWidth = width
	c.bresenham(x1, y1, x2, y2)
	c.strokeWidth = prev
}

// bresenham draws the line with integer-step Bresenham, thickened by
// stamping a strokeWidth-sized square at each step.
func (c *canvas) bresenham(x1, y1, x2, y2 float32) {
	ix1, iy1 := int(math.Round(float64(x1))), int(math.Round(float64(y1)))
	ix2, iy2 := int(math.Round(float64(x2))), int(math.Round(float64(y2)))

	dx := absInt(ix2 - ix1)
	dy := -absInt(iy2 - iy1)
	sx, sy := 1, 1
	if ix1 > ix2 {
		sx = -1
	}
	if iy1 > iy2 {
		sy = -1
	}
	err := dx + dy

	half := int(math.Max(1, float64(c.strokeWidth)/2))
	x, y := ix1, iy1
	for {
		c.stamp(x, y, half)
		if x == ix2 && y == iy2 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func (c *canvas) stamp(cx, cy, half int) {
	rect := image.Rect(cx-half, cy-half, cx+half+1, cy+half+1).Intersect(c.img.Bounds())
	if rect.Empty() {
		return
	}
	draw.Draw(c.img, rect, image.NewUniform(c.strokeColor), image.Point{}, draw.Over)
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// placeholderBox is the fixed size of the placeholder rectangle drawn for
// text and image opcodes, which have no preserved font/texture state.
const placeholderBox = 16

func (c *canvas) DrawText(x, y float32, text string) {
	c.FillRect(x, y-placeholderBox, float32(len(text))*8, placeholderBox)
}

func (c *canvas) LoadSound(name, url string)                         {}
func (c *canvas) PlaySound(name string, loop bool, volume float32)   {}
func (c *canvas) StopSound(name string)                              {}
func (c *canvas) SetVolume(name string, volume float32)              {}
func (c *canvas) LoadImage(name, url string)                         {}

func (c *canvas) DrawImage(name string, a wire.DrawImageArgs) {
	w, h := a.W, a.H
	if w == 0 {
		w = placeholderBox
	}
	if h == 0 {
		h = placeholderBox
	}
	c.FillRect(a.X, a.Y, w, h)
}

// Render replays stream as draw commands onto an 800x600 canvas and
// returns the resulting image. Truncated or unknown-opcode streams decode
// as far as wire.Decode allows and render whatever was parsed; Render
// itself never errors.
func Render(stream []byte) image.Image {
	c := newCanvas()
	wire.Decode(stream, c)
	return c.img
}

// EncodePNG renders stream and encodes the result as PNG bytes.
func EncodePNG(stream []byte) ([]byte, error) {
	img := Render(stream)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
