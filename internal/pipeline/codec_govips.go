//go:build govips && cgo

package pipeline

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/dunamismax/imagetools/internal/probe"
)

// govipsCodec decodes and encodes through libvips, which adds WebP export.
type govipsCodec struct{}

func (govipsCodec) Name() string {
	return "libvips"
}

func (govipsCodec) Decode(data []byte) (image.Image, error) {
	ref, err := vips.NewImageFromBuffer(data)
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		return nil, fmt.Errorf("auto-rotate source image: %w", err)
	}

	params := vips.NewPngExportParams()
	params.Compression = 0
	raw, _, err := ref.ExportPng(params)
	if err != nil {
		return nil, fmt.Errorf("export decoded pixels: %w", err)
	}

	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("read decoded pixels: %w", err)
	}
	return img, nil
}

func (govipsCodec) Encode(img image.Image, format string, quality int) ([]byte, string, error) {
	var raw bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.NoCompression}
	if err := encoder.Encode(&raw, img); err != nil {
		return nil, "", fmt.Errorf("stage pixels: %w", err)
	}

	ref, err := vips.NewImageFromBuffer(raw.Bytes())
	if err != nil {
		return nil, "", fmt.Errorf("load staged pixels: %w", err)
	}
	defer ref.Close()

	format = normalizeOutputFormat(format)
	data, err := exportGovipsImage(ref, format, encodeQuality(quality))
	if err != nil {
		return nil, "", err
	}
	return data, format, nil
}

func exportGovipsImage(img *vips.ImageRef, format string, quality int) ([]byte, error) {
	switch format {
	case probe.FormatJPEG:
		params := vips.NewJpegExportParams()
		params.Quality = quality
		data, _, err := img.ExportJpeg(params)
		if err != nil {
			return nil, fmt.Errorf("encode jpeg: %w", err)
		}
		return data, nil
	case probe.FormatPNG:
		data, _, err := img.ExportPng(vips.NewPngExportParams())
		if err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		return data, nil
	case probe.FormatWebP:
		params := vips.NewWebpExportParams()
		params.Quality = quality
		data, _, err := img.ExportWebp(params)
		if err != nil {
			return nil, fmt.Errorf("encode webp: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
