package pipeline

import (
	"errors"
	"image"
	"strings"

	"github.com/dunamismax/imagetools/internal/probe"
)

const defaultQuality = 90

var ErrUnsupportedFormat = errors.New("unsupported output format")

// Codec turns encoded bytes into pixels and back. Encode reports the format
// it actually wrote, which differs from the request when the codec cannot
// produce it.
type Codec interface {
	Name() string
	Decode(data []byte) (image.Image, error)
	Encode(img image.Image, format string, quality int) ([]byte, string, error)
}

func normalizeOutputFormat(format string) string {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "jpg", "jpeg":
		return probe.FormatJPEG
	case "png":
		return probe.FormatPNG
	case "webp":
		return probe.FormatWebP
	default:
		return probe.FormatPNG
	}
}

// resolveOutputFormat picks the requested format, or the input's format when
// none was requested and the input is one we can write.
func resolveOutputFormat(requested, inputFormat string) string {
	if strings.TrimSpace(requested) != "" {
		return normalizeOutputFormat(requested)
	}
	return normalizeOutputFormat(inputFormat)
}

func encodeQuality(quality int) int {
	if quality <= 0 || quality > 100 {
		return defaultQuality
	}
	return quality
}

func ContentType(format string) string {
	switch format {
	case probe.FormatJPEG:
		return "image/jpeg"
	case probe.FormatWebP:
		return "image/webp"
	case probe.FormatGIF:
		return "image/gif"
	case probe.FormatTIFF:
		return "image/tiff"
	default:
		return "image/png"
	}
}

// FileExtension maps a format to the extension used in download names.
func FileExtension(format string) string {
	switch format {
	case probe.FormatJPEG:
		return "jpg"
	case probe.FormatTIFF:
		return "tif"
	case "":
		return "png"
	default:
		return format
	}
}
