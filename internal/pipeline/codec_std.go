package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"

	"github.com/dunamismax/imagetools/internal/probe"
)

// stdCodec uses the standard library encoders. It cannot write WebP, so a
// WebP request is written as PNG.
type stdCodec struct{}

func (stdCodec) Name() string {
	return "stdlib"
}

func (stdCodec) Decode(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}
	return img, nil
}

func (stdCodec) Encode(img image.Image, format string, quality int) ([]byte, string, error) {
	format = normalizeOutputFormat(format)
	if format == probe.FormatWebP {
		format = probe.FormatPNG
	}

	data, err := encodeImage(img, format, quality)
	if err != nil {
		return nil, "", err
	}
	return data, format, nil
}

func encodeImage(img image.Image, format string, quality int) ([]byte, error) {
	var buf bytes.Buffer

	switch format {
	case probe.FormatJPEG:
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: encodeQuality(quality)}); err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
	case probe.FormatPNG:
		encoder := png.Encoder{CompressionLevel: png.DefaultCompression}
		if err := encoder.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return buf.Bytes(), nil
}
