package pipeline

import (
	"context"
	"fmt"
	"image"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/imagetools/internal/domain"
)

// Crop extracts the requested rectangle. Output dimensions equal the
// requested width and height exactly.
func (e *Engine) Crop(ctx context.Context, data []byte, opts domain.CropOptions) (Result, error) {
	rect := image.Rect(opts.X, opts.Y, opts.X+opts.Width, opts.Y+opts.Height)
	labels := func() []string {
		return []string{fmt.Sprintf("Cropped to %dx%d at (%d,%d)", opts.Width, opts.Height, opts.X, opts.Y)}
	}

	return e.run(ctx, data, job{
		tool:     domain.ToolCrop,
		output:   opts.Output,
		validate: opts.Validate,
		bounds:   opts.ValidateBounds,
		primary: func(_ context.Context, img image.Image) (image.Image, []string, error) {
			return imaging.Crop(img, rect.Add(img.Bounds().Min)), labels(), nil
		},
		secondary: func(_ context.Context, src *image.NRGBA) (*image.NRGBA, []string, error) {
			return cropNRGBA(src, rect), labels(), nil
		},
	})
}

// resizePlan is the geometry of a resize: the source is scaled to scaled,
// then padded (contain) or centre-cropped (cover) to canvas.
type resizePlan struct {
	scaled image.Point
	canvas image.Point
}

func planResize(srcW, srcH int, opts domain.ResizeOptions) resizePlan {
	atLeastOne := func(v float64) int {
		return max(1, int(math.Round(v)))
	}
	same := func(p image.Point) resizePlan { return resizePlan{scaled: p, canvas: p} }

	switch {
	case opts.Width == 0:
		return same(image.Pt(atLeastOne(float64(srcW)*float64(opts.Height)/float64(srcH)), opts.Height))
	case opts.Height == 0:
		return same(image.Pt(opts.Width, atLeastOne(float64(srcH)*float64(opts.Width)/float64(srcW))))
	}

	target := image.Pt(opts.Width, opts.Height)
	sx := float64(opts.Width) / float64(srcW)
	sy := float64(opts.Height) / float64(srcH)

	switch opts.Fit {
	case domain.FitFill:
		return same(target)
	case domain.FitCover:
		s := math.Max(sx, sy)
		scaled := image.Pt(max(opts.Width, atLeastOne(float64(srcW)*s)), max(opts.Height, atLeastOne(float64(srcH)*s)))
		return resizePlan{scaled: scaled, canvas: target}
	case domain.FitContain:
		s := math.Min(sx, sy)
		scaled := image.Pt(min(opts.Width, atLeastOne(float64(srcW)*s)), min(opts.Height, atLeastOne(float64(srcH)*s)))
		return resizePlan{scaled: scaled, canvas: target}
	default:
		s := math.Min(sx, sy)
		return same(image.Pt(min(opts.Width, atLeastOne(float64(srcW)*s)), min(opts.Height, atLeastOne(float64(srcH)*s))))
	}
}

func (e *Engine) Resize(ctx context.Context, data []byte, opts domain.ResizeOptions) (Result, error) {
	bg := backgroundColor(opts.Background)
	label := func(p resizePlan) []string {
		return []string{fmt.Sprintf("Resized to %dx%d (%s)", p.canvas.X, p.canvas.Y, opts.Fit)}
	}

	return e.run(ctx, data, job{
		tool:     domain.ToolResize,
		output:   opts.Output,
		validate: opts.Validate,
		primary: func(_ context.Context, img image.Image) (image.Image, []string, error) {
			b := img.Bounds()
			plan := planResize(b.Dx(), b.Dy(), opts)
			out := imaging.Resize(img, plan.scaled.X, plan.scaled.Y, imaging.Lanczos)
			switch {
			case plan.canvas == plan.scaled:
			case opts.Fit == domain.FitCover:
				out = imaging.CropCenter(out, plan.canvas.X, plan.canvas.Y)
			default:
				out = imaging.PasteCenter(imaging.New(plan.canvas.X, plan.canvas.Y, bg), out)
			}
			return out, label(plan), nil
		},
		secondary: func(_ context.Context, src *image.NRGBA) (*image.NRGBA, []string, error) {
			b := src.Bounds()
			plan := planResize(b.Dx(), b.Dy(), opts)
			out := scaleBilinear(src, plan.scaled.X, plan.scaled.Y)
			switch {
			case plan.canvas == plan.scaled:
			case opts.Fit == domain.FitCover:
				out = cropCenterNRGBA(out, plan.canvas.X, plan.canvas.Y)
			default:
				canvas := newCanvas(plan.canvas.X, plan.canvas.Y, bg)
				compositeOver(canvas, out, (plan.canvas.X-plan.scaled.X)/2, (plan.canvas.Y-plan.scaled.Y)/2)
				out = canvas
			}
			return out, label(plan), nil
		},
	})
}

// rotation is the geometry of a clockwise rotation.
type rotation struct {
	degrees float64 // normalized to [0, 360)
	quarter int     // clockwise quarter turns, or -1 when degrees is not a multiple of 90
	width   int     // bounding box of the rotated image
	height  int
	cropW   int // cropToFit canvas, the input size; 0 otherwise
	cropH   int
}

func planRotation(w, h int, opts domain.RotateFlipOptions) rotation {
	deg := math.Mod(opts.Rotation, 360)
	if deg < 0 {
		deg += 360
	}
	r := rotation{degrees: deg, quarter: -1}

	if math.Mod(deg, 90) == 0 {
		r.quarter = int(deg / 90)
		r.width, r.height = w, h
		if r.quarter%2 == 1 {
			r.width, r.height = h, w
		}
		return r
	}

	sin, cos := math.Sincos(deg * math.Pi / 180)
	sin, cos = math.Abs(sin), math.Abs(cos)
	r.width = int(math.Round(float64(w)*cos + float64(h)*sin))
	r.height = int(math.Round(float64(w)*sin + float64(h)*cos))
	if opts.CropToFit {
		r.cropW, r.cropH = w, h
	}
	return r
}

// size is the final canvas of the rotation.
func (r rotation) size() (int, int) {
	if r.cropW > 0 {
		return r.cropW, r.cropH
	}
	return r.width, r.height
}

func rotationLabels(opts domain.RotateFlipOptions, plan rotation) []string {
	var labels []string
	if plan.degrees != 0 {
		labels = append(labels, "Rotated "+strconv.FormatFloat(opts.Rotation, 'f', -1, 64)+" degrees")
	}
	if plan.cropW > 0 {
		labels = append(labels, fmt.Sprintf("Cropped to fit %dx%d", plan.cropW, plan.cropH))
	}
	if opts.FlipHorizontal {
		labels = append(labels, "Flipped horizontally")
	}
	if opts.FlipVertical {
		labels = append(labels, "Flipped vertically")
	}
	return labels
}

func rotatePrimary(img image.Image, opts domain.RotateFlipOptions) (*image.NRGBA, []string) {
	b := img.Bounds()
	plan := planRotation(b.Dx(), b.Dy(), opts)

	var out *image.NRGBA
	switch plan.quarter {
	case 0:
		out = imaging.Clone(img)
	case 1:
		out = imaging.Rotate270(img)
	case 2:
		out = imaging.Rotate180(img)
	case 3:
		out = imaging.Rotate90(img)
	default:
		bg := backgroundColor(opts.Background)
		out = imaging.Rotate(img, 360-plan.degrees, bg)
		w, h := plan.size()
		if rb := out.Bounds(); rb.Dx() != w || rb.Dy() != h {
			out = imaging.PasteCenter(imaging.New(w, h, bg), out)
		}
	}

	if opts.FlipHorizontal {
		out = imaging.FlipH(out)
	}
	if opts.FlipVertical {
		out = imaging.FlipV(out)
	}
	return out, rotationLabels(opts, plan)
}

func rotateSecondary(src *image.NRGBA, opts domain.RotateFlipOptions) (*image.NRGBA, []string) {
	b := src.Bounds()
	plan := planRotation(b.Dx(), b.Dy(), opts)

	var out *image.NRGBA
	if plan.quarter >= 0 {
		out = rotateQuarterNRGBA(src, plan.quarter)
	} else {
		w, h := plan.size()
		out = rotateBilinear(src, plan.degrees, w, h, backgroundColor(opts.Background))
	}

	if opts.FlipHorizontal {
		out = flipHNRGBA(out)
	}
	if opts.FlipVertical {
		out = flipVNRGBA(out)
	}
	return out, rotationLabels(opts, plan)
}

// RotateFlip rotates clockwise about the centre, then applies flips.
func (e *Engine) RotateFlip(ctx context.Context, data []byte, opts domain.RotateFlipOptions) (Result, error) {
	return e.run(ctx, data, job{
		tool:     domain.ToolRotateFlip,
		output:   opts.Output,
		validate: opts.Validate,
		primary: func(_ context.Context, img image.Image) (image.Image, []string, error) {
			out, labels := rotatePrimary(img, opts)
			return out, labels, nil
		},
		secondary: func(_ context.Context, src *image.NRGBA) (*image.NRGBA, []string, error) {
			out, labels := rotateSecondary(src, opts)
			return out, labels, nil
		},
	})
}
