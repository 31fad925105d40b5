package probe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"testing"

	"golang.org/x/image/tiff"
)

func TestProbeHeaderFormats(t *testing.T) {
	src := solidImage(37, 21)

	tests := []struct {
		name   string
		encode func(*bytes.Buffer) error
		format string
	}{
		{"png", func(b *bytes.Buffer) error { return png.Encode(b, src) }, FormatPNG},
		{"jpeg", func(b *bytes.Buffer) error { return jpeg.Encode(b, src, &jpeg.Options{Quality: 80}) }, FormatJPEG},
		{"gif", func(b *bytes.Buffer) error { return gif.Encode(b, src, nil) }, FormatGIF},
		{"tiff", func(b *bytes.Buffer) error { return tiff.Encode(b, src, nil) }, FormatTIFF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := tt.encode(&buf); err != nil {
				t.Fatalf("encode %s: %v", tt.name, err)
			}
			data := buf.Bytes()

			if got := DetectFormat(data); got != tt.format {
				t.Fatalf("expected format %s, got %q", tt.format, got)
			}
			if err := ValidateBuffer(data); err != nil {
				t.Fatalf("expected valid buffer, got %v", err)
			}

			dims, err := Probe(data)
			if err != nil {
				t.Fatalf("probe: %v", err)
			}
			if dims.Width != 37 || dims.Height != 21 {
				t.Fatalf("expected 37x21, got %s", dims)
			}
		})
	}
}

func TestProbeSimpleWebPHeader(t *testing.T) {
	data := make([]byte, 30)
	copy(data[0:4], "RIFF")
	copy(data[8:12], "WEBP")
	copy(data[12:16], "VP8 ")
	binary.LittleEndian.PutUint16(data[26:28], 640|0xC000)
	binary.LittleEndian.PutUint16(data[28:30], 480)

	dims, err := Probe(data)
	if err != nil {
		t.Fatalf("probe webp: %v", err)
	}
	if dims.Width != 640 || dims.Height != 480 {
		t.Fatalf("expected 640x480, got %s", dims)
	}
}

func TestProbeJPEGSkipsHuffmanMarker(t *testing.T) {
	data := []byte{
		0xFF, 0xD8,
		0xFF, 0xE0, 0x00, 0x04, 0x00, 0x00,
		0xFF, 0xC4, 0x00, 0x04, 0x00, 0x00,
		0xFF, 0xC0, 0x00, 0x0B, 0x08, 0x00, 0x32, 0x00, 0x64, 0x01, 0x01, 0x11, 0x00,
	}

	dims, err := Probe(data)
	if err != nil {
		t.Fatalf("probe jpeg: %v", err)
	}
	if dims.Width != 100 || dims.Height != 50 {
		t.Fatalf("expected 100x50, got %s", dims)
	}
}

func TestProbeUnknownBufferFails(t *testing.T) {
	data := []byte("definitely not an image")

	if err := ValidateBuffer(data); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}

	_, err := Probe(data)
	var dimErr *DimensionError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionError, got %v", err)
	}
	if dimErr.Error() != "could not determine image dimensions" {
		t.Fatalf("unexpected message %q", dimErr.Error())
	}
}

func TestProbeTruncatedPNGFails(t *testing.T) {
	data := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A}
	if _, err := Probe(data); err == nil {
		t.Fatal("expected truncated png to fail")
	}
}

func TestValidateBufferEmpty(t *testing.T) {
	if err := ValidateBuffer(nil); !errors.Is(err, ErrInvalidImage) {
		t.Fatalf("expected ErrInvalidImage, got %v", err)
	}
}

func solidImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 5), G: uint8(y * 9), B: 140, A: 255})
		}
	}
	return img
}
