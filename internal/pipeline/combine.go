package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/disintegration/imaging"
	"github.com/dunamismax/imagetools/internal/domain"
	"github.com/dunamismax/imagetools/internal/probe"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

var errMissingPixels = errors.New("an input image has no decoded pixels")

// layoutPlan places images on a shared canvas.
type layoutPlan struct {
	canvas    image.Point
	positions []image.Point
}

func alignOffset(space, size int, align string) int {
	switch align {
	case domain.AlignStart:
		return 0
	case domain.AlignEnd:
		return space - size
	default:
		return (space - size) / 2
	}
}

// planLayout computes the canvas and per-image origins. Side-by-side is
// sum(w) + spacing*(n-1) wide and max(h) tall; top-bottom is the transpose;
// overlay stacks everything on a max(w) x max(h) canvas.
func planLayout(sizes []image.Point, opts domain.CombineOptions) layoutPlan {
	var maxW, maxH, sumW, sumH int
	for _, s := range sizes {
		maxW = max(maxW, s.X)
		maxH = max(maxH, s.Y)
		sumW += s.X
		sumH += s.Y
	}
	gaps := opts.Spacing * max(0, len(sizes)-1)
	plan := layoutPlan{positions: make([]image.Point, len(sizes))}

	switch opts.Layout {
	case domain.LayoutTopBottom:
		plan.canvas = image.Pt(maxW, sumH+gaps)
		y := 0
		for i, s := range sizes {
			plan.positions[i] = image.Pt(alignOffset(maxW, s.X, opts.Alignment), y)
			y += s.Y + opts.Spacing
		}
	case domain.LayoutOverlay:
		plan.canvas = image.Pt(maxW, maxH)
		for i, s := range sizes {
			plan.positions[i] = image.Pt(alignOffset(maxW, s.X, opts.Alignment), alignOffset(maxH, s.Y, opts.Alignment))
		}
	default:
		plan.canvas = image.Pt(sumW+gaps, maxH)
		x := 0
		for i, s := range sizes {
			plan.positions[i] = image.Pt(x, alignOffset(maxH, s.Y, opts.Alignment))
			x += s.X + opts.Spacing
		}
	}
	return plan
}

type transformed struct {
	img    image.Image
	labels []string
}

// Combine rotates and flips each image independently and concurrently, then
// composes the results in one sequential step. Each phase has its own
// fallback; if composition cannot run the first input is returned as is.
func (e *Engine) Combine(ctx context.Context, images [][]byte, opts domain.CombineOptions) (Result, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "pipeline."+domain.ToolCombine)
	defer span.End()

	if res := opts.ValidateImageCount(len(images)); !res.Valid {
		return Result{}, failSpan(span, domain.InvalidOptions(res.Reason))
	}
	for _, data := range images {
		if err := probe.ValidateBuffer(data); err != nil {
			return Result{}, failSpan(span, invalidImage(err))
		}
	}
	if res := opts.Validate(); !res.Valid {
		return Result{}, failSpan(span, domain.InvalidOptions(res.Reason))
	}
	dims := make([]probe.Dimensions, len(images))
	for i, data := range images {
		d, err := probeDimensions(data)
		if err != nil {
			return Result{}, failSpan(span, err)
		}
		dims[i] = d
	}

	parts := make([]transformed, len(images))
	g, gctx := errgroup.WithContext(ctx)
	for i := range images {
		g.Go(func() error {
			parts[i] = e.transformPart(gctx, images[i], perImageOptions(opts, i))
			return gctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, failSpan(span, domain.ProcessingError(domain.ToolCombine, err))
	}

	labels := make([]string, 0, len(images)+1)
	labels = append(labels, fmt.Sprintf("Combined %d images (%s)", len(images), opts.Layout))
	for i, part := range parts {
		for _, label := range part.labels {
			labels = append(labels, fmt.Sprintf("Image %d: %s", i+1, label))
		}
	}

	inputFormat := probe.DetectFormat(images[0])
	format := resolveOutputFormat(opts.Format, inputFormat)
	bg := backgroundColor(opts.Background)

	var primary, secondary Stage[rendered]
	if !e.cfg.DisablePrimary {
		primary = func(ctx context.Context) (rendered, error) {
			imgs, err := partImages(parts)
			if err != nil {
				return rendered{}, err
			}
			plan := planLayout(imageSizes(imgs), opts)
			canvas := imaging.New(plan.canvas.X, plan.canvas.Y, bg)
			for i, img := range imgs {
				if err := ctx.Err(); err != nil {
					return rendered{}, err
				}
				canvas = imaging.Overlay(canvas, img, plan.positions[i], 1)
			}
			return render(e.codec, canvas, format, opts.Quality, labels)
		}
	}
	if !e.cfg.DisableSecondary {
		secondary = func(ctx context.Context) (rendered, error) {
			imgs, err := partImages(parts)
			if err != nil {
				return rendered{}, err
			}
			plan := planLayout(imageSizes(imgs), opts)
			canvas := newCanvas(plan.canvas.X, plan.canvas.Y, bg)
			for i, img := range imgs {
				if err := ctx.Err(); err != nil {
					return rendered{}, err
				}
				compositeOver(canvas, toNRGBA(img), plan.positions[i].X, plan.positions[i].Y)
			}
			return render(e.raster, canvas, format, opts.Quality, labels)
		}
	}

	outcome := WithFallback(ctx, primary, secondary, func() rendered {
		return passthrough(images[0], inputFormat, dims[0])
	})
	e.logOutcome(domain.ToolCombine, outcome.Tier, outcome.Errors)
	span.SetAttributes(
		attribute.String("pipeline.tier", string(outcome.Tier)),
		attribute.Int("pipeline.images", len(images)),
	)

	return Result{
		Data:        outcome.Value.data,
		Format:      outcome.Value.format,
		ContentType: ContentType(outcome.Value.format),
		Original:    dims[0],
		Inputs:      dims,
		Processed:   outcome.Value.dims,
		Labels:      outcome.Value.labels,
		Tier:        outcome.Tier,
		Elapsed:     time.Since(start),
	}, nil
}

// transformPart runs one image's rotate/flip under its own fallback. The
// passthrough tier yields no pixels, which makes composition fall through
// to returning the first input.
func (e *Engine) transformPart(ctx context.Context, data []byte, opts domain.RotateFlipOptions) transformed {
	var primary, secondary Stage[transformed]
	if !e.cfg.DisablePrimary {
		primary = func(ctx context.Context) (transformed, error) {
			if err := ctx.Err(); err != nil {
				return transformed{}, err
			}
			img, err := e.codec.Decode(data)
			if err != nil {
				return transformed{}, err
			}
			out, labels := rotatePrimary(img, opts)
			return transformed{img: out, labels: labels}, nil
		}
	}
	if !e.cfg.DisableSecondary {
		secondary = func(ctx context.Context) (transformed, error) {
			if err := ctx.Err(); err != nil {
				return transformed{}, err
			}
			img, err := e.raster.Decode(data)
			if err != nil {
				return transformed{}, err
			}
			out, labels := rotateSecondary(toNRGBA(img), opts)
			return transformed{img: out, labels: labels}, nil
		}
	}

	outcome := WithFallback(ctx, primary, secondary, func() transformed {
		return transformed{labels: []string{LabelMock}}
	})
	e.logOutcome(domain.ToolRotateFlip, outcome.Tier, outcome.Errors)
	return outcome.Value
}

func perImageOptions(opts domain.CombineOptions, i int) domain.RotateFlipOptions {
	var out domain.RotateFlipOptions
	if i < len(opts.Images) {
		out = opts.Images[i]
	}
	if out.Background == "" {
		out.Background = opts.Background
	}
	return out
}

func partImages(parts []transformed) ([]image.Image, error) {
	imgs := make([]image.Image, len(parts))
	for i, part := range parts {
		if part.img == nil {
			return nil, fmt.Errorf("image %d: %w", i+1, errMissingPixels)
		}
		imgs[i] = part.img
	}
	return imgs, nil
}

func imageSizes(imgs []image.Image) []image.Point {
	sizes := make([]image.Point, len(imgs))
	for i, img := range imgs {
		sizes[i] = img.Bounds().Size()
	}
	return sizes
}
