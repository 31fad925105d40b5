package pipeline

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/dunamismax/imagetools/internal/domain"
)

func BenchmarkRotateFlipPrimary(b *testing.B) {
	benchmarkRotate(b, Config{DisableSecondary: true})
}

func BenchmarkRotateFlipSecondary(b *testing.B) {
	benchmarkRotate(b, Config{DisablePrimary: true})
}

func benchmarkRotate(b *testing.B, cfg Config) {
	source := benchmarkPNG(b, 640, 480)
	engine := newTestEngine(cfg)
	opts := domain.DefaultRotateFlipOptions()
	opts.Rotation = 33
	opts.CropToFit = true
	opts.Format = "jpeg"
	opts.Quality = 82

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.RotateFlip(context.Background(), source, opts); err != nil {
			b.Fatalf("rotate: %v", err)
		}
	}
}

func BenchmarkColorRestoreSecondary(b *testing.B) {
	source := benchmarkPNG(b, 640, 480)
	engine := newTestEngine(Config{DisablePrimary: true})
	opts := domain.DefaultColorRestoreOptions()
	opts.Denoise = true
	opts.PreserveDetails = true

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := engine.ColorRestore(context.Background(), source, opts); err != nil {
			b.Fatalf("color restore: %v", err)
		}
	}
}

func benchmarkPNG(b *testing.B, w, h int) []byte {
	b.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{
				R: uint8((x * 255) / w),
				G: uint8((y * 255) / h),
				B: 140,
				A: 255,
			})
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		b.Fatalf("encode source png: %v", err)
	}
	return buf.Bytes()
}
