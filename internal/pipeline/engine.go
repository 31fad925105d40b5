package pipeline

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/dunamismax/imagetools/internal/domain"
	"github.com/dunamismax/imagetools/internal/probe"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/dunamismax/imagetools/internal/pipeline"

// Config switches processing tiers off. A disabled tier behaves like a
// backend whose native library is missing.
type Config struct {
	DisablePrimary   bool
	DisableSecondary bool
}

// Result is everything a tool produced for one request.
type Result struct {
	Data        []byte
	Format      string
	ContentType string
	Original    probe.Dimensions
	Inputs      []probe.Dimensions
	Processed   probe.Dimensions
	Elapsed     time.Duration
	Labels      []string
	Score       int
	Scored      bool
	Tier        Tier
}

// Engine runs image tools through the primary, secondary and passthrough
// tiers. It holds no per-request state and is safe for concurrent use.
type Engine struct {
	cfg    Config
	codec  Codec
	raster Codec
	logger logrus.FieldLogger
	tracer trace.Tracer
}

func NewEngine(cfg Config, logger logrus.FieldLogger, tracer trace.Tracer) *Engine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}
	return &Engine{
		cfg:    cfg,
		codec:  newCodec(),
		raster: stdCodec{},
		logger: logger,
		tracer: tracer,
	}
}

// CodecName reports the codec behind the primary tier.
func (e *Engine) CodecName() string {
	return e.codec.Name()
}

type (
	primaryFunc   func(ctx context.Context, img image.Image) (image.Image, []string, error)
	secondaryFunc func(ctx context.Context, img *image.NRGBA) (*image.NRGBA, []string, error)
)

type job struct {
	tool      string
	output    domain.Output
	validate  func() domain.ValidationResult
	bounds    func(probe.Dimensions) domain.ValidationResult
	primary   primaryFunc
	secondary secondaryFunc
	score     *ScoreTable
	intensity int
}

type rendered struct {
	data   []byte
	format string
	dims   probe.Dimensions
	labels []string
}

func (e *Engine) run(ctx context.Context, data []byte, j job) (Result, error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, "pipeline."+j.tool)
	defer span.End()

	if err := probe.ValidateBuffer(data); err != nil {
		return Result{}, failSpan(span, invalidImage(err))
	}
	if res := j.validate(); !res.Valid {
		return Result{}, failSpan(span, domain.InvalidOptions(res.Reason))
	}
	dims, err := probeDimensions(data)
	if err != nil {
		return Result{}, failSpan(span, err)
	}
	if j.bounds != nil {
		if res := j.bounds(dims); !res.Valid {
			return Result{}, failSpan(span, domain.InvalidOptions(res.Reason))
		}
	}
	if err := ctx.Err(); err != nil {
		return Result{}, failSpan(span, domain.ProcessingError(j.tool, err))
	}

	inputFormat := probe.DetectFormat(data)
	format := resolveOutputFormat(j.output.Format, inputFormat)

	outcome := WithFallback(ctx,
		e.primaryStage(data, format, j),
		e.secondaryStage(data, format, j),
		func() rendered { return passthrough(data, inputFormat, dims) },
	)
	e.logOutcome(j.tool, outcome.Tier, outcome.Errors)
	span.SetAttributes(
		attribute.String("pipeline.tier", string(outcome.Tier)),
		attribute.String("pipeline.format", outcome.Value.format),
	)

	res := Result{
		Data:        outcome.Value.data,
		Format:      outcome.Value.format,
		ContentType: ContentType(outcome.Value.format),
		Original:    dims,
		Inputs:      []probe.Dimensions{dims},
		Processed:   outcome.Value.dims,
		Labels:      outcome.Value.labels,
		Tier:        outcome.Tier,
	}
	if j.score != nil {
		res.Score = j.score.Score(res.Labels, j.intensity)
		res.Scored = true
	}
	res.Elapsed = time.Since(start)
	return res, nil
}

func (e *Engine) primaryStage(data []byte, format string, j job) Stage[rendered] {
	if e.cfg.DisablePrimary || j.primary == nil {
		return nil
	}
	return func(ctx context.Context) (rendered, error) {
		if err := ctx.Err(); err != nil {
			return rendered{}, err
		}
		img, err := e.codec.Decode(data)
		if err != nil {
			return rendered{}, err
		}
		out, labels, err := j.primary(ctx, img)
		if err != nil {
			return rendered{}, err
		}
		return render(e.codec, out, format, j.output.Quality, labels)
	}
}

func (e *Engine) secondaryStage(data []byte, format string, j job) Stage[rendered] {
	if e.cfg.DisableSecondary || j.secondary == nil {
		return nil
	}
	return func(ctx context.Context) (rendered, error) {
		if err := ctx.Err(); err != nil {
			return rendered{}, err
		}
		img, err := e.raster.Decode(data)
		if err != nil {
			return rendered{}, err
		}
		out, labels, err := j.secondary(ctx, toNRGBA(img))
		if err != nil {
			return rendered{}, err
		}
		return render(e.raster, out, format, j.output.Quality, labels)
	}
}

func render(codec Codec, img image.Image, format string, quality int, labels []string) (rendered, error) {
	data, actual, err := codec.Encode(img, format, quality)
	if err != nil {
		return rendered{}, err
	}
	b := img.Bounds()
	return rendered{
		data:   data,
		format: actual,
		dims:   probe.Dimensions{Width: b.Dx(), Height: b.Dy()},
		labels: labels,
	}, nil
}

func passthrough(data []byte, format string, dims probe.Dimensions) rendered {
	return rendered{
		data:   data,
		format: format,
		dims:   dims,
		labels: []string{LabelMock},
	}
}

func (e *Engine) logOutcome(tool string, tier Tier, errs map[Tier]error) {
	for _, t := range []Tier{TierPrimary, TierSecondary} {
		err, ok := errs[t]
		if !ok {
			continue
		}
		entry := e.logger.WithFields(logrus.Fields{"tool": tool, "tier": t})
		if errors.Is(err, ErrBackendUnavailable) {
			entry.Debug("processing tier unavailable")
			continue
		}
		entry.WithError(err).Warn("processing tier failed")
	}
	if tier == TierMock {
		e.logger.WithField("tool", tool).Error("all processing tiers failed, returning input unmodified")
	}
}

func invalidImage(err error) *domain.Error {
	derr := domain.BadRequest(domain.CodeInvalidImageFile, "uploaded file is not a supported image (png, jpeg, gif, webp, tiff)")
	derr.Err = err
	return derr
}

func probeDimensions(data []byte) (probe.Dimensions, error) {
	dims, err := probe.Probe(data)
	if err != nil {
		derr := domain.BadRequest(domain.CodeDimensionError, err.Error())
		derr.Err = err
		return probe.Dimensions{}, derr
	}
	return dims, nil
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
