package pipeline

import (
	"context"
	"image"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/imagetools/internal/domain"
)

// step is one labelled operation with an implementation per tier.
type step struct {
	label     string
	primary   func(img image.Image) image.Image
	secondary func(src *image.NRGBA) *image.NRGBA
}

func adjustStep(label string, a adjustment) step {
	return step{
		label:     label,
		primary:   func(img image.Image) image.Image { return a.applyPrimary(img) },
		secondary: a.applySecondary,
	}
}

func colorCastStep(label string) step {
	return step{
		label:     label,
		primary:   func(img image.Image) image.Image { return grayWorldPrimary(img) },
		secondary: grayWorld,
	}
}

func denoiseStep() step {
	return step{
		label:     LabelDenoise,
		primary:   func(img image.Image) image.Image { return imaging.Blur(img, 0.6) },
		secondary: func(src *image.NRGBA) *image.NRGBA { return medianFilter(src, 1) },
	}
}

// sharpenStep is an unsharp mask. imaging.Sharpen only takes a sigma, so
// the primary tier folds amount into it.
func sharpenStep(label string, sigma, amount float64) step {
	return step{
		label:     label,
		primary:   func(img image.Image) image.Image { return imaging.Sharpen(img, sigma*amount) },
		secondary: func(src *image.NRGBA) *image.NRGBA { return unsharpMask(src, sigma, amount) },
	}
}

func kernelStep(label string, kernel [9]float64) step {
	return step{
		label:     label,
		primary:   func(img image.Image) image.Image { return imaging.Convolve3x3(img, kernel, nil) },
		secondary: func(src *image.NRGBA) *image.NRGBA { return convolve3x3(src, kernel, 0) },
	}
}

// steps runs in order and records each label as it is applied.
type steps []step

func (s steps) primary(ctx context.Context, img image.Image) (image.Image, []string, error) {
	labels := make([]string, 0, len(s))
	for _, st := range s {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		img = st.primary(img)
		labels = append(labels, st.label)
	}
	return img, labels, nil
}

func (s steps) secondary(ctx context.Context, src *image.NRGBA) (*image.NRGBA, []string, error) {
	labels := make([]string, 0, len(s))
	for _, st := range s {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		src = st.secondary(src)
		labels = append(labels, st.label)
	}
	return src, labels, nil
}

const (
	LabelDenoise          = "Noise reduction"
	LabelColorCast        = "Color cast correction"
	LabelDetailPreserve   = "Detail preservation"
	LabelEdgeEnhance      = "Edge enhancement"
	LabelColorCorrection  = "Color correction"
	LabelSharpen          = "Sharpening"
	LabelBrightnessAdjust = "Brightness adjustment"
	LabelContrastAdjust   = "Contrast adjustment"
	LabelTemperature      = "Temperature adjustment"
)

func restoreModeLabel(mode string) string { return "Color restoration: " + mode }

func unblurModeLabel(mode string) string { return "Deblur: " + mode }

func enhanceModeLabel(mode string) string { return "Auto enhance: " + mode }

func artisticFilterLabel(name string) string { return "Artistic filter: " + name }

var restoreModes = []string{"auto", "faded", "vintage", "sepia", "vibrant"}

var restoreScores = func() ScoreTable {
	t := ScoreTable{
		Base: 60,
		Increments: map[string]int{
			LabelColorCast:      8,
			LabelDenoise:        6,
			LabelDetailPreserve: 6,
		},
		IntensityWeight: 0.1,
		Ceiling:         98,
	}
	for _, mode := range restoreModes {
		t.Increments[restoreModeLabel(mode)] = 10
	}
	return t
}()

func restoreAdjustment(mode string, k float64) adjustment {
	switch mode {
	case "faded":
		return adjustment{Saturation: 1 + 0.5*k, Contrast: 25 * k, Gamma: 1 - 0.1*k}
	case "vintage":
		return adjustment{Saturation: 1 - 0.2*k, Contrast: 10 * k, Temperature: 20 * k}
	case "sepia":
		return adjustment{Sepia: k}
	case "vibrant":
		return adjustment{Saturation: 1 + 0.6*k, Contrast: 10 * k}
	default:
		return adjustment{Saturation: 1 + 0.3*k, Contrast: 15 * k, Brightness: 5 * k}
	}
}

// ColorRestore applies one restoration mode and then the enabled
// sub-enhancements: colour cast, denoise, detail preservation.
func (e *Engine) ColorRestore(ctx context.Context, data []byte, opts domain.ColorRestoreOptions) (Result, error) {
	k := float64(opts.Intensity) / 100
	plan := steps{adjustStep(restoreModeLabel(opts.Mode), restoreAdjustment(opts.Mode, k))}
	if opts.CorrectColorCast {
		plan = append(plan, colorCastStep(LabelColorCast))
	}
	if opts.Denoise {
		plan = append(plan, denoiseStep())
	}
	if opts.PreserveDetails {
		plan = append(plan, sharpenStep(LabelDetailPreserve, 1, 0.4))
	}

	scores := restoreScores
	return e.run(ctx, data, job{
		tool:      domain.ToolColorRestore,
		output:    opts.Output,
		validate:  opts.Validate,
		primary:   plan.primary,
		secondary: plan.secondary,
		score:     &scores,
		intensity: opts.Intensity,
	})
}

var unblurModes = []string{"standard", "gaussian", "motion", "deep"}

var unblurScores = func() ScoreTable {
	t := ScoreTable{
		Base: 55,
		Increments: map[string]int{
			LabelDenoise:        5,
			LabelEdgeEnhance:    8,
			LabelDetailPreserve: 6,
		},
		IntensityWeight: 0.15,
		Ceiling:         97,
	}
	for _, mode := range unblurModes {
		t.Increments[unblurModeLabel(mode)] = 15
	}
	return t
}()

var edgeKernel = [9]float64{
	0, -1, 0,
	-1, 5, -1,
	0, -1, 0,
}

func unblurModeStep(mode string, s float64) step {
	label := unblurModeLabel(mode)
	switch mode {
	case "gaussian":
		return sharpenStep(label, 1.5, 0.8+2*s)
	case "motion":
		k := 0.5 + s
		return kernelStep(label, [9]float64{
			0, 0, 0,
			-k, 1 + 2*k, -k,
			0, 0, 0,
		})
	case "deep":
		sharpen := sharpenStep(label, 1, 1+s)
		contrast := adjustment{Contrast: 10 * s}
		return step{
			label:     label,
			primary:   func(img image.Image) image.Image { return contrast.applyPrimary(sharpen.primary(img)) },
			secondary: func(src *image.NRGBA) *image.NRGBA { return contrast.applySecondary(sharpen.secondary(src)) },
		}
	default:
		return sharpenStep(label, 1, 0.5+1.5*s)
	}
}

// Unblur sharpens by mode, then applies denoise, edge enhancement and detail
// preservation when enabled. Detail preservation blends part of the
// unsharpened image back in to limit halos.
func (e *Engine) Unblur(ctx context.Context, data []byte, opts domain.UnblurOptions) (Result, error) {
	s := float64(opts.Strength) / 100
	plan := steps{unblurModeStep(opts.Mode, s)}
	if opts.Denoise {
		plan = append(plan, denoiseStep())
	}
	if opts.EdgeEnhance {
		plan = append(plan, kernelStep(LabelEdgeEnhance, edgeKernel))
	}

	primary := plan.primary
	secondary := plan.secondary
	if opts.PreserveDetails {
		primary = func(ctx context.Context, img image.Image) (image.Image, []string, error) {
			out, labels, err := plan.primary(ctx, img)
			if err != nil {
				return nil, nil, err
			}
			return blendPrimary(out, img, 0.2), append(labels, LabelDetailPreserve), nil
		}
		secondary = func(ctx context.Context, src *image.NRGBA) (*image.NRGBA, []string, error) {
			out, labels, err := plan.secondary(ctx, src)
			if err != nil {
				return nil, nil, err
			}
			return blendNRGBA(out, src, 0.2), append(labels, LabelDetailPreserve), nil
		}
	}

	scores := unblurScores
	return e.run(ctx, data, job{
		tool:      domain.ToolUnblur,
		output:    opts.Output,
		validate:  opts.Validate,
		primary:   primary,
		secondary: secondary,
		score:     &scores,
		intensity: opts.Strength,
	})
}

var enhanceModes = []string{"auto", "portrait", "landscape", "low-light", "vivid"}

var enhanceScores = func() ScoreTable {
	t := ScoreTable{
		Base: 65,
		Increments: map[string]int{
			LabelBrightnessAdjust: 3,
			LabelContrastAdjust:   3,
			LabelTemperature:      3,
			LabelColorCorrection:  6,
			LabelDenoise:          5,
			LabelSharpen:          6,
		},
		IntensityWeight: 0.1,
		Ceiling:         99,
	}
	for _, mode := range enhanceModes {
		t.Increments[enhanceModeLabel(mode)] = 10
	}
	return t
}()

func enhanceAdjustment(mode string, k float64) adjustment {
	switch mode {
	case "portrait":
		return adjustment{Saturation: 1 + 0.05*k, Brightness: 8 * k, Temperature: 10 * k, Gamma: 1 + 0.05*k}
	case "landscape":
		return adjustment{Saturation: 1 + 0.35*k, Contrast: 15 * k}
	case "low-light":
		return adjustment{Brightness: 15 * k, Gamma: 1 + 0.6*k}
	case "vivid":
		return adjustment{Saturation: 1 + 0.5*k, Contrast: 20 * k}
	default:
		return adjustment{Saturation: 1 + 0.15*k, Contrast: 10 * k, Brightness: 5 * k}
	}
}

// AutoEnhance applies a mode, the manual brightness, contrast and temperature
// offsets, then colour correction, denoise and sharpening when enabled.
func (e *Engine) AutoEnhance(ctx context.Context, data []byte, opts domain.AutoEnhanceOptions) (Result, error) {
	k := float64(opts.Intensity) / 100
	plan := steps{adjustStep(enhanceModeLabel(opts.Mode), enhanceAdjustment(opts.Mode, k))}
	if opts.Brightness != 0 {
		plan = append(plan, adjustStep(LabelBrightnessAdjust, adjustment{Brightness: float64(opts.Brightness) / 2}))
	}
	if opts.Contrast != 0 {
		plan = append(plan, adjustStep(LabelContrastAdjust, adjustment{Contrast: float64(opts.Contrast) / 2}))
	}
	if opts.Temperature != 0 {
		plan = append(plan, adjustStep(LabelTemperature, adjustment{Temperature: float64(opts.Temperature)}))
	}
	if opts.ColorCorrect {
		plan = append(plan, colorCastStep(LabelColorCorrection))
	}
	if opts.Denoise {
		plan = append(plan, denoiseStep())
	}
	if opts.Sharpen {
		plan = append(plan, sharpenStep(LabelSharpen, 1, 0.6))
	}

	scores := enhanceScores
	return e.run(ctx, data, job{
		tool:      domain.ToolAutoEnhance,
		output:    opts.Output,
		validate:  opts.Validate,
		primary:   plan.primary,
		secondary: plan.secondary,
		score:     &scores,
		intensity: opts.Intensity,
	})
}
