package rasterizer

import (
	"image/color"
	"testing"

	"github.com/evanreyes/drawcast/internal/wire"
)

func TestRenderEmptyStreamIsBlackCanvas(t *testing.T) {
	img := Render(nil)
	if img.Bounds().Dx() != Width || img.Bounds().Dy() != Height {
		t.Fatalf("unexpected canvas size %v", img.Bounds())
	}
	r, g, b, a := img.At(0, 0).RGBA()
	want := color.NRGBA{0, 0, 0, 255}
	wr, wg, wb, wa := want.RGBA()
	if r != wr || g != wg || b != wb || a != wa {
		t.Fatalf("expected black canvas at origin, got %v,%v,%v,%v", r, g, b, a)
	}
}

func TestRenderClearChangesBackground(t *testing.T) {
	b := wire.NewBuilder()
	b.Clear(200, 100, 50)

	img := Render(b.Bytes())
	r, g, bl, _ := img.At(400, 300).RGBA()
	if r>>8 != 200 || g>>8 != 100 || bl>>8 != 50 {
		t.Fatalf("expected cleared color, got %v %v %v", r>>8, g>>8, bl>>8)
	}
}

func TestRenderFillRectIsContainedWithinBounds(t *testing.T) {
	b := wire.NewBuilder()
	b.SetColor(255, 0, 0, 255)
	b.FillRect(10, 10, 20, 20)

	img := Render(b.Bytes())
	r, g, bl, _ := img.At(15, 15).RGBA()
	if r>>8 != 255 || g>>8 != 0 || bl>>8 != 0 {
		t.Fatalf("expected red fill inside rect, got %v %v %v", r>>8, g>>8, bl>>8)
	}
	r, g, bl, _ = img.At(35, 35).RGBA()
	if r != 0 || g != 0 || bl != 0 {
		t.Fatalf("expected black background outside rect, got %v %v %v", r>>8, g>>8, bl>>8)
	}
}

func TestRenderTruncatedStreamDoesNotPanic(t *testing.T) {
	b := wire.NewBuilder()
	b.Clear(1, 2, 3)
	b.SetColor(4, 5, 6, 7)
	full := b.Bytes()
	truncated := full[:len(full)-2]

	_ = Render(truncated) // must not panic
}

func TestRenderUnknownOpcodeDoesNotPanic(t *testing.T) {
	b := wire.NewBuilder()
	b.Clear(1, 2, 3)
	buf := append(b.Bytes(), 0xFE)
	_ = Render(buf)
}

func TestEncodePNGProducesValidHeader(t *testing.T) {
	b := wire.NewBuilder()
	b.Clear(1, 2, 3)

	out, err := EncodePNG(b.Bytes())
	if err != nil {
		t.Fatal(err)
	}
	pngMagic := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	if len(out) < len(pngMagic) {
		t.Fatalf("output too short")
	}
	for i, bb := range pngMagic {
		if out[i] != bb {
			t.Fatalf("expected PNG magic header, got %v", out[:8])
		}
	}
}
