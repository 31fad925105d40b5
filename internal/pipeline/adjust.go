package pipeline

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// adjustment is a fixed combination of tone and colour changes. Zero values
// leave the image unchanged, except Saturation and Gamma where 1 is neutral
// and 0 is read as 1.
type adjustment struct {
	Saturation  float64 // factor
	Brightness  float64 // percent, -100..100
	Contrast    float64 // percent, -100..100
	Gamma       float64
	Hue         float64 // degrees
	Temperature float64 // -100 (cool) .. 100 (warm)
	Sepia       float64 // 0..1 blend toward sepia
}

func (a adjustment) saturation() float64 {
	if a.Saturation == 0 {
		return 1
	}
	return a.Saturation
}

func (a adjustment) gamma() float64 {
	if a.Gamma <= 0 {
		return 1
	}
	return a.Gamma
}

// colorStep covers the per-pixel steps that have no imaging equivalent with
// the same formula: saturation, hue, temperature and sepia. Each clamps.
func (a adjustment) colorStep(c color.NRGBA) color.NRGBA {
	if f := a.saturation(); f != 1 {
		c = saturate(c, f)
	}
	c = shiftHue(c, a.Hue)
	if a.Temperature != 0 {
		c = warm(c, a.Temperature)
	}
	if a.Sepia > 0 {
		c = sepiaTone(c, a.Sepia)
	}
	return c
}

// pixel applies every step of a in order, clamping after each.
func (a adjustment) pixel(c color.NRGBA) color.NRGBA {
	c = a.colorStep(c)
	if a.Brightness != 0 {
		shift := 255 * a.Brightness / 100
		c = perChannel(c, func(v float64) float64 { return v + shift })
	}
	if a.Contrast != 0 {
		factor := (100 + a.Contrast) / 100
		c = perChannel(c, func(v float64) float64 { return (v-127.5)*factor + 127.5 })
	}
	if g := a.gamma(); g != 1 {
		c = perChannel(c, func(v float64) float64 { return 255 * math.Pow(v/255, 1/g) })
	}
	return c
}

func (a adjustment) isZero() bool {
	return a.saturation() == 1 && a.Brightness == 0 && a.Contrast == 0 && a.gamma() == 1 &&
		a.Hue == 0 && a.Temperature == 0 && a.Sepia == 0
}

// applyPrimary runs the adjustment through imaging's parallel operations.
func (a adjustment) applyPrimary(img image.Image) *image.NRGBA {
	out := imaging.AdjustFunc(img, a.colorStep)
	if a.Brightness != 0 {
		out = imaging.AdjustBrightness(out, a.Brightness)
	}
	if a.Contrast != 0 {
		out = imaging.AdjustContrast(out, a.Contrast)
	}
	if g := a.gamma(); g != 1 {
		out = imaging.AdjustGamma(out, g)
	}
	return out
}

func (a adjustment) applySecondary(src *image.NRGBA) *image.NRGBA {
	if a.isZero() {
		return cloneNRGBA(src)
	}
	return mapPixels(src, a.pixel)
}

func perChannel(c color.NRGBA, fn func(float64) float64) color.NRGBA {
	return color.NRGBA{
		R: clamp8(fn(float64(c.R))),
		G: clamp8(fn(float64(c.G))),
		B: clamp8(fn(float64(c.B))),
		A: c.A,
	}
}

func warm(c color.NRGBA, temperature float64) color.NRGBA {
	shift := temperature * 0.3
	return color.NRGBA{
		R: clamp8(float64(c.R) + shift),
		G: c.G,
		B: clamp8(float64(c.B) - shift),
		A: c.A,
	}
}

func sepiaTone(c color.NRGBA, amount float64) color.NRGBA {
	r, g, b := float64(c.R), float64(c.G), float64(c.B)
	sr := clamp8(0.393*r + 0.769*g + 0.189*b)
	sg := clamp8(0.349*r + 0.686*g + 0.168*b)
	sb := clamp8(0.272*r + 0.534*g + 0.131*b)
	mix := func(orig float64, tone uint8) uint8 {
		return clamp8(orig*(1-amount) + float64(tone)*amount)
	}
	return color.NRGBA{R: mix(r, sr), G: mix(g, sg), B: mix(b, sb), A: c.A}
}

func grayscalePixel(c color.NRGBA) color.NRGBA {
	y := clamp8(luma(float64(c.R), float64(c.G), float64(c.B)))
	return color.NRGBA{R: y, G: y, B: y, A: c.A}
}

func invertPixel(c color.NRGBA) color.NRGBA {
	return color.NRGBA{R: 255 - c.R, G: 255 - c.G, B: 255 - c.B, A: c.A}
}

func posterizePixel(levels int) func(color.NRGBA) color.NRGBA {
	step := 255 / float64(levels-1)
	q := func(v uint8) uint8 {
		return clamp8(math.Round(float64(v)/step) * step)
	}
	return func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: q(c.R), G: q(c.G), B: q(c.B), A: c.A}
	}
}

// grayWorldPrimary is the imaging-backed colour cast correction.
func grayWorldPrimary(img image.Image) *image.NRGBA {
	src := imaging.Clone(img)
	var sumR, sumG, sumB float64
	n := float64(len(src.Pix) / 4)
	if n == 0 {
		return src
	}
	for i := 0; i < len(src.Pix); i += 4 {
		sumR += float64(src.Pix[i])
		sumG += float64(src.Pix[i+1])
		sumB += float64(src.Pix[i+2])
	}
	scaleR, scaleG, scaleB := grayWorldScales(sumR/n, sumG/n, sumB/n)
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clamp8(float64(c.R) * scaleR),
			G: clamp8(float64(c.G) * scaleG),
			B: clamp8(float64(c.B) * scaleB),
			A: c.A,
		}
	})
}

// blendPrimary mixes base toward top by t.
func blendPrimary(base, top image.Image, t float64) *image.NRGBA {
	return imaging.Overlay(base, top, image.Pt(0, 0), math.Max(0, math.Min(1, t)))
}
