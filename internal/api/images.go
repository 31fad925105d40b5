package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/dunamismax/imagetools/internal/domain"
	"github.com/dunamismax/imagetools/internal/pipeline"
)

const (
	imageField   = "image"
	optionsField = "options"
)

var combineFields = []string{"images", "images[]"}

type route struct {
	path    string
	handler http.HandlerFunc
}

// imageTool describes one single-image endpoint: how to build default
// options, run the engine and add tool-specific headers.
type imageTool[O any] struct {
	tool     string
	defaults func() O
	run      func(ctx context.Context, data []byte, opts O) (pipeline.Result, error)
	headers  func(h http.Header, opts O, res pipeline.Result)
}

func imageTools(s *Server) []route {
	return []route{
		imageRoute(s, imageTool[domain.CropOptions]{
			tool:     domain.ToolCrop,
			defaults: func() domain.CropOptions { return domain.CropOptions{} },
			run:      s.engine.Crop,
			headers: func(h http.Header, _ domain.CropOptions, res pipeline.Result) {
				h.Set("X-Cropped-Dimensions", res.Processed.String())
			},
		}),
		imageRoute(s, imageTool[domain.ResizeOptions]{
			tool:     domain.ToolResize,
			defaults: domain.DefaultResizeOptions,
			run:      s.engine.Resize,
			headers: func(h http.Header, opts domain.ResizeOptions, _ pipeline.Result) {
				h.Set("X-Resize-Fit", opts.Fit)
			},
		}),
		imageRoute(s, imageTool[domain.RotateFlipOptions]{
			tool:     domain.ToolRotateFlip,
			defaults: domain.DefaultRotateFlipOptions,
			run:      s.engine.RotateFlip,
			headers: func(h http.Header, opts domain.RotateFlipOptions, _ pipeline.Result) {
				h.Set("X-Rotation-Angle", strconv.FormatFloat(opts.Rotation, 'f', -1, 64))
			},
		}),
		imageRoute(s, imageTool[domain.ColorRestoreOptions]{
			tool:     domain.ToolColorRestore,
			defaults: domain.DefaultColorRestoreOptions,
			run:      s.engine.ColorRestore,
			headers:  scoreHeader[domain.ColorRestoreOptions]("X-Restoration-Score"),
		}),
		imageRoute(s, imageTool[domain.UnblurOptions]{
			tool:     domain.ToolUnblur,
			defaults: domain.DefaultUnblurOptions,
			run:      s.engine.Unblur,
			headers:  scoreHeader[domain.UnblurOptions]("X-Unblur-Score"),
		}),
		imageRoute(s, imageTool[domain.AutoEnhanceOptions]{
			tool:     domain.ToolAutoEnhance,
			defaults: domain.DefaultAutoEnhanceOptions,
			run:      s.engine.AutoEnhance,
			headers:  scoreHeader[domain.AutoEnhanceOptions]("X-Enhancement-Score"),
		}),
		imageRoute(s, imageTool[domain.ArtisticFilterOptions]{
			tool:     domain.ToolArtisticFilter,
			defaults: domain.DefaultArtisticFilterOptions,
			run:      s.engine.ArtisticFilter,
			headers: func(h http.Header, opts domain.ArtisticFilterOptions, _ pipeline.Result) {
				h.Set("X-Artistic-Filter", opts.Filter)
			},
		}),
	}
}

// scoreHeader reports the cosmetic score some tools attach.
func scoreHeader[O any](name string) func(http.Header, O, pipeline.Result) {
	return func(h http.Header, _ O, res pipeline.Result) {
		if res.Scored {
			h.Set(name, strconv.Itoa(res.Score))
		}
	}
}

func imageRoute[O any](s *Server, t imageTool[O]) route {
	return route{
		path:    "/api/tools/image/" + t.tool,
		handler: func(w http.ResponseWriter, r *http.Request) { serveImageTool(s, t, w, r) },
	}
}

func serveImageTool[O any](s *Server, t imageTool[O], w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := formFiles(r, imageField)
	if len(files) == 0 {
		s.writeError(w, r, domain.BadRequest(domain.CodeNoFile, "no image file provided"))
		return
	}
	in, err := readUpload(files[0])
	if err != nil {
		s.writeError(w, r, domain.BadRequest(domain.CodeNoFile, err.Error()))
		return
	}
	if err := checkImageType(in); err != nil {
		s.writeError(w, r, err)
		return
	}

	opts := t.defaults()
	if err := decodeOptions(r.FormValue(optionsField), &opts); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := t.run(r.Context(), in.data, opts)
	if err != nil {
		s.recordUsage(r.Context(), domain.UsageLog{Tool: t.tool, Status: statusOf(err), Files: 1, InputBytes: int64(len(in.data))})
		s.writeError(w, r, err)
		return
	}

	h := w.Header()
	s.writeImageHeaders(h, t.tool, in.name, res)
	t.headers(h, opts, res)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)

	s.recordUsage(r.Context(), usageFor(t.tool, res, int64(len(in.data)), 1))
}

func (s *Server) handleCombine(w http.ResponseWriter, r *http.Request) {
	if err := s.parseMultipart(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := formFiles(r, combineFields...)
	switch {
	case len(files) == 0:
		s.writeError(w, r, domain.BadRequest(domain.CodeNoFiles, "no image files provided"))
		return
	case len(files) > domain.MaxCombineImages:
		s.writeError(w, r, domain.BadRequest(domain.CodeTooManyFiles,
			fmt.Sprintf("at most %d images can be combined, got %d", domain.MaxCombineImages, len(files))))
		return
	}

	uploads, err := readUploads(files)
	if err != nil {
		s.writeError(w, r, domain.BadRequest(domain.CodeNoFiles, err.Error()))
		return
	}
	images := make([][]byte, len(uploads))
	var inputBytes int64
	for i, u := range uploads {
		if err := checkImageType(u); err != nil {
			s.writeError(w, r, err)
			return
		}
		images[i] = u.data
		inputBytes += int64(len(u.data))
	}

	opts := domain.DefaultCombineOptions()
	if err := decodeOptions(r.FormValue(optionsField), &opts); err != nil {
		s.writeError(w, r, err)
		return
	}

	res, err := s.engine.Combine(r.Context(), images, opts)
	if err != nil {
		s.recordUsage(r.Context(), domain.UsageLog{Tool: domain.ToolCombine, Status: statusOf(err), Files: len(images), InputBytes: inputBytes})
		s.writeError(w, r, err)
		return
	}

	h := w.Header()
	s.writeImageHeaders(h, domain.ToolCombine, uploads[0].name, res)
	h.Set("X-Combined-Layout", opts.Layout)
	h.Set("X-Images-Combined", strconv.Itoa(len(images)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)

	s.recordUsage(r.Context(), usageFor(domain.ToolCombine, res, inputBytes, len(images)))
}

func (s *Server) writeImageHeaders(h http.Header, tool, inputName string, res pipeline.Result) {
	filename := fmt.Sprintf("%s-%s.%s", stem(inputName), tool, pipeline.FileExtension(res.Format))
	h.Set("Content-Type", res.ContentType)
	h.Set("Content-Disposition", attachment(filename))
	h.Set("Content-Length", strconv.Itoa(len(res.Data)))
	h.Set("X-Processing-Time", formatElapsed(res.Elapsed.Milliseconds()))
	h.Set("X-Original-Dimensions", res.Original.String())
	h.Set("X-Processed-Dimensions", res.Processed.String())
	h.Set("X-Processing-Backend", string(res.Tier))
	h.Set("X-Applied-Enhancements", strings.Join(res.Labels, ", "))

	s.metrics.tierTotal.WithLabelValues(tool, string(res.Tier)).Inc()
}

func formatElapsed(ms int64) string {
	return strconv.FormatInt(ms, 10) + "ms"
}

func usageFor(tool string, res pipeline.Result, inputBytes int64, files int) domain.UsageLog {
	inputs := res.Inputs
	if len(inputs) == 0 {
		inputs = append(inputs, res.Original)
	}
	var pixels int64
	for _, d := range inputs {
		pixels += int64(d.Width) * int64(d.Height)
	}
	return domain.UsageLog{
		Tool:            tool,
		Tier:            string(res.Tier),
		Status:          http.StatusOK,
		Files:           files,
		InputBytes:      inputBytes,
		OutputBytes:     int64(len(res.Data)),
		PixelsProcessed: pixels,
		ComputeTimeMS:   res.Elapsed.Milliseconds(),
	}
}
