package pipeline

import (
	"context"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/imagetools/internal/domain"
)

var embossKernel = [9]float64{
	-2, -1, 0,
	-1, 1, 1,
	0, 1, 2,
}

var vintageTone = adjustment{Sepia: 0.5, Saturation: 0.7, Contrast: -10}

func artisticPrimary(name string, img image.Image) *image.NRGBA {
	switch name {
	case "sepia":
		return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA { return sepiaTone(c, 1) })
	case "invert":
		return imaging.Invert(img)
	case "vintage":
		return vintageTone.applyPrimary(img)
	case "emboss":
		return imaging.Convolve3x3(img, embossKernel, nil)
	case "sketch":
		gray := imaging.Grayscale(img)
		return colorDodge(gray, imaging.Blur(imaging.Invert(gray), 3))
	case "posterize":
		return imaging.AdjustFunc(img, posterizePixel(4))
	case "blur":
		return imaging.Blur(img, 3)
	default:
		return imaging.Grayscale(img)
	}
}

func artisticSecondary(name string, src *image.NRGBA) *image.NRGBA {
	switch name {
	case "sepia":
		return mapPixels(src, func(c color.NRGBA) color.NRGBA { return sepiaTone(c, 1) })
	case "invert":
		return mapPixels(src, invertPixel)
	case "vintage":
		return vintageTone.applySecondary(src)
	case "emboss":
		return convolve3x3(src, embossKernel, 0)
	case "sketch":
		gray := mapPixels(src, grayscalePixel)
		return colorDodge(gray, gaussianBlur(mapPixels(gray, invertPixel), 3))
	case "posterize":
		return mapPixels(src, posterizePixel(4))
	case "blur":
		return gaussianBlur(src, 3)
	default:
		return mapPixels(src, grayscalePixel)
	}
}

// colorDodge brightens base by blend: base*255/(255-blend). Both images must
// share bounds.
func colorDodge(base, blend *image.NRGBA) *image.NRGBA {
	dst := image.NewNRGBA(base.Bounds())
	for i := 0; i < len(base.Pix); i += 4 {
		for c := 0; c < 3; c++ {
			b := float64(base.Pix[i+c])
			m := float64(blend.Pix[i+c])
			if m >= 255 {
				dst.Pix[i+c] = 255
				continue
			}
			dst.Pix[i+c] = clamp8(b * 255 / (255 - m))
		}
		dst.Pix[i+3] = base.Pix[i+3]
	}
	return dst
}

// ArtisticFilter applies one named filter and blends it with the original by
// intensity.
func (e *Engine) ArtisticFilter(ctx context.Context, data []byte, opts domain.ArtisticFilterOptions) (Result, error) {
	t := float64(opts.Intensity) / 100
	labels := func() []string { return []string{artisticFilterLabel(opts.Filter)} }

	return e.run(ctx, data, job{
		tool:     domain.ToolArtisticFilter,
		output:   opts.Output,
		validate: opts.Validate,
		primary: func(_ context.Context, img image.Image) (image.Image, []string, error) {
			filtered := artisticPrimary(opts.Filter, img)
			if t >= 1 {
				return filtered, labels(), nil
			}
			return blendPrimary(img, filtered, t), labels(), nil
		},
		secondary: func(_ context.Context, src *image.NRGBA) (*image.NRGBA, []string, error) {
			filtered := artisticSecondary(opts.Filter, src)
			if t >= 1 {
				return filtered, labels(), nil
			}
			return blendNRGBA(src, filtered, t), labels(), nil
		},
	})
}
