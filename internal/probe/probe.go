// Package probe reads image dimensions from container headers without a full
// decode and checks that a buffer carries a recognized image signature.
package probe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
	FormatGIF  = "gif"
	FormatWebP = "webp"
	FormatTIFF = "tiff"
)

var ErrInvalidImage = errors.New("buffer is not a recognized image")

type Dimensions struct {
	Width  int
	Height int
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// DimensionError is returned when neither header parsing nor a full decode
// could produce a size.
type DimensionError struct {
	Err error
}

func (e *DimensionError) Error() string {
	return "could not determine image dimensions"
}

func (e *DimensionError) Unwrap() error {
	return e.Err
}

// DetectFormat returns the container format implied by the leading bytes, or
// "" when no known signature matches.
func DetectFormat(data []byte) string {
	switch {
	case len(data) >= 4 && data[0] == 0x89 && data[1] == 'P' && data[2] == 'N' && data[3] == 'G':
		return FormatPNG
	case len(data) >= 3 && data[0] == 0xFF && data[1] == 0xD8 && data[2] == 0xFF:
		return FormatJPEG
	case len(data) >= 3 && data[0] == 'G' && data[1] == 'I' && data[2] == 'F':
		return FormatGIF
	case len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return FormatWebP
	case len(data) >= 4 && (bytes.Equal(data[0:4], []byte{'I', 'I', 0x2A, 0x00}) || bytes.Equal(data[0:4], []byte{'M', 'M', 0x00, 0x2A})):
		return FormatTIFF
	default:
		return ""
	}
}

func ValidateBuffer(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("%w: empty buffer", ErrInvalidImage)
	}
	if DetectFormat(data) == "" {
		return ErrInvalidImage
	}
	return nil
}

// Probe returns the pixel size of data. Header parsing is tried first; a full
// decode via the registered image codecs is the fallback.
func Probe(data []byte) (Dimensions, error) {
	var (
		dims Dimensions
		err  error
	)

	switch DetectFormat(data) {
	case FormatPNG:
		dims, err = parsePNG(data)
	case FormatJPEG:
		dims, err = parseJPEG(data)
	case FormatGIF:
		dims, err = parseGIF(data)
	case FormatWebP:
		dims, err = parseWebP(data)
	default:
		err = errors.New("no header parser for format")
	}
	if err == nil && dims.Width > 0 && dims.Height > 0 {
		return dims, nil
	}

	cfg, _, decodeErr := image.DecodeConfig(bytes.NewReader(data))
	if decodeErr != nil {
		return Dimensions{}, &DimensionError{Err: errors.Join(err, decodeErr)}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Dimensions{}, &DimensionError{Err: fmt.Errorf("decoded size %dx%d", cfg.Width, cfg.Height)}
	}
	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}

func parsePNG(data []byte) (Dimensions, error) {
	if len(data) < 24 {
		return Dimensions{}, errors.New("png header truncated")
	}
	return Dimensions{
		Width:  int(binary.BigEndian.Uint32(data[16:20])),
		Height: int(binary.BigEndian.Uint32(data[20:24])),
	}, nil
}

// parseJPEG walks marker segments until a start-of-frame marker. C4 (DHT),
// C8 (JPG extension) and CC (DAC) share the range but carry no frame header.
func parseJPEG(data []byte) (Dimensions, error) {
	i := 2
	for i+3 < len(data) {
		if data[i] != 0xFF {
			i++
			continue
		}
		marker := data[i+1]
		if marker == 0xFF {
			i++
			continue
		}
		if marker == 0xD8 || marker == 0x01 || (marker >= 0xD0 && marker <= 0xD7) {
			i += 2
			continue
		}

		if marker >= 0xC0 && marker <= 0xCF && marker != 0xC4 && marker != 0xC8 && marker != 0xCC {
			if i+9 > len(data) {
				return Dimensions{}, errors.New("jpeg frame header truncated")
			}
			return Dimensions{
				Height: int(binary.BigEndian.Uint16(data[i+5 : i+7])),
				Width:  int(binary.BigEndian.Uint16(data[i+7 : i+9])),
			}, nil
		}

		segmentLen := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		if segmentLen < 2 {
			return Dimensions{}, errors.New("jpeg segment length invalid")
		}
		i += 2 + segmentLen
	}
	return Dimensions{}, errors.New("jpeg frame header not found")
}

func parseGIF(data []byte) (Dimensions, error) {
	if len(data) < 10 {
		return Dimensions{}, errors.New("gif header truncated")
	}
	return Dimensions{
		Width:  int(binary.LittleEndian.Uint16(data[6:8])),
		Height: int(binary.LittleEndian.Uint16(data[8:10])),
	}, nil
}

// parseWebP only understands the simple lossy layout. VP8L and VP8X files
// are left to the decoder fallback.
func parseWebP(data []byte) (Dimensions, error) {
	if len(data) < 30 {
		return Dimensions{}, errors.New("webp header truncated")
	}
	if string(data[12:16]) != "VP8 " {
		return Dimensions{}, fmt.Errorf("webp chunk %q not parsed from header", string(data[12:16]))
	}
	return Dimensions{
		Width:  int(binary.LittleEndian.Uint16(data[26:28]) & 0x3FFF),
		Height: int(binary.LittleEndian.Uint16(data[28:30]) & 0x3FFF),
	}, nil
}
