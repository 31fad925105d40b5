package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dunamismax/imagetools/internal/document"
	"github.com/dunamismax/imagetools/internal/domain"
	"github.com/dunamismax/imagetools/internal/pipeline"
	"github.com/dunamismax/imagetools/internal/store"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

const defaultMaxUploadBytes = 50 << 20

// ImageEngine runs the image tools. *pipeline.Engine implements it.
type ImageEngine interface {
	CodecName() string
	Crop(ctx context.Context, data []byte, opts domain.CropOptions) (pipeline.Result, error)
	Resize(ctx context.Context, data []byte, opts domain.ResizeOptions) (pipeline.Result, error)
	RotateFlip(ctx context.Context, data []byte, opts domain.RotateFlipOptions) (pipeline.Result, error)
	Combine(ctx context.Context, images [][]byte, opts domain.CombineOptions) (pipeline.Result, error)
	ColorRestore(ctx context.Context, data []byte, opts domain.ColorRestoreOptions) (pipeline.Result, error)
	Unblur(ctx context.Context, data []byte, opts domain.UnblurOptions) (pipeline.Result, error)
	AutoEnhance(ctx context.Context, data []byte, opts domain.AutoEnhanceOptions) (pipeline.Result, error)
	ArtisticFilter(ctx context.Context, data []byte, opts domain.ArtisticFilterOptions) (pipeline.Result, error)
}

// Options wires a Server. Engine and Converter are required; the rest are
// optional.
type Options struct {
	Logger         logrus.FieldLogger
	Engine         ImageEngine
	Converter      document.Converter
	Usage          store.UsageStore
	RateLimiter    RateLimiter
	Tracer         trace.Tracer
	MaxUploadBytes int64
	Version        string
}

type Server struct {
	logger      logrus.FieldLogger
	engine      ImageEngine
	converter   document.Converter
	usage       store.UsageStore
	rateLimiter RateLimiter
	tracer      trace.Tracer
	metrics     *metrics
	maxUpload   int64
	version     string
	now         func() time.Time
	mux         *http.ServeMux
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = defaultMaxUploadBytes
	}

	s := &Server{
		logger:      opts.Logger,
		engine:      opts.Engine,
		converter:   opts.Converter,
		usage:       opts.Usage,
		rateLimiter: opts.RateLimiter,
		tracer:      opts.Tracer,
		metrics:     newMetrics(),
		maxUpload:   opts.MaxUploadBytes,
		version:     opts.Version,
		now:         time.Now,
		mux:         http.NewServeMux(),
	}
	s.routes()
	return s
}

// Handler is the mux behind request ID, tracing, metrics, access log and
// rate limit middleware, outermost first.
func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = s.withRateLimit(h)
	h = s.withAccessLog(h)
	h = s.metrics.withHTTPMetrics(h)
	h = s.withTracing(h)
	h = withRequestID(h)
	return h
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)
	s.mux.Handle("GET /metrics", s.metrics.metricsHandler())

	s.mux.HandleFunc("GET /api/tools/image/health", s.handleImageHealth)
	s.mux.HandleFunc("GET /api/tools/image/{tool}/health", s.handleToolHealth)
	s.mux.HandleFunc("GET /api/tools/image/rotate-flip/combine/health", s.handleToolHealth)
	for _, tool := range imageTools(s) {
		s.mux.HandleFunc("POST "+tool.path, tool.handler)
	}
	s.mux.HandleFunc("POST /api/tools/image/rotate-flip/combine", s.handleCombine)

	s.mux.HandleFunc("GET /api/convert/health", s.handleConvertHealth)
	s.mux.HandleFunc("POST /api/convert/word-to-pdf", s.handleWordToPDF)
	s.mux.HandleFunc("POST /api/convert/batch/word-to-pdf", s.handleBatchWordToPDF)

	s.mux.HandleFunc("/", s.handleNotFound)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, domain.NewError(domain.CodeNotFound, http.StatusNotFound,
		fmt.Sprintf("route %s %s not found", r.Method, r.URL.Path)))
}

// decodeOptions fills into (already holding defaults) from the JSON options
// form field. Unknown fields and trailing values are rejected.
func decodeOptions(raw string, into any) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	decoder := json.NewDecoder(strings.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(into); err != nil {
		return domain.InvalidOptions(fmt.Sprintf("invalid options JSON: %v", err))
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return domain.InvalidOptions("invalid options JSON: multiple JSON values are not allowed")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	Timestamp string `json:"timestamp"`
}

// writeError maps err onto the JSON error body. Anything that is not a
// *domain.Error becomes a 500 INTERNAL_ERROR with a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	code := domain.CodeInternalError
	message := "internal server error"

	var derr *domain.Error
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &derr):
		status, code, message = derr.Status, derr.Code, derr.Error()
	case errors.As(err, &tooLarge):
		status, code = http.StatusRequestEntityTooLarge, domain.CodeFileTooLarge
		message = fmt.Sprintf("upload exceeds the %d byte limit", tooLarge.Limit)
	}

	entry := s.logger.WithFields(logrus.Fields{
		"request_id": requestIDFrom(r.Context()),
		"code":       code,
		"status":     status,
	})
	if status >= http.StatusInternalServerError {
		entry.WithError(err).Error("request failed")
	} else {
		entry.WithError(err).Debug("request rejected")
	}

	writeJSON(w, status, errorResponse{
		Error:     message,
		Code:      code,
		Timestamp: s.now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) recordUsage(ctx context.Context, entry domain.UsageLog) {
	if s.usage == nil {
		return
	}
	entry.RequestID = requestIDFrom(ctx)
	entry.CreatedAt = s.now()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := s.usage.Record(ctx, entry); err != nil {
		s.logger.WithError(err).WithField("tool", entry.Tool).Warn("record usage failed")
	}
}
