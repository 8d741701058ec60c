//go:build opencv
// +build opencv

package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func TestPreprocess_BinarizesAndUpscales(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 80))
	for x := 0; x < 200; x++ {
		for y := 0; y < 80; y++ {
			src.Set(x, y, color.RGBA{R: 230, G: 230, B: 220, A: 255})
		}
	}
	for x := 40; x < 160; x++ {
		src.Set(x, 40, color.Black)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatalf("encode: %v", err)
	}

	out, steps, err := Preprocess(buf.Bytes())
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if img.Bounds().Dx() < minWidth {
		t.Fatalf("expected upscale to %d, got %d", minWidth, img.Bounds().Dx())
	}
	if len(steps) != 5 {
		t.Fatalf("unexpected steps %v", steps)
	}
}

func TestPreprocess_RejectsGarbage(t *testing.T) {
	if _, _, err := Preprocess([]byte("garbage")); err == nil {
		t.Fatal("expected decode error")
	}
}
