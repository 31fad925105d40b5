package api

import (
	"net/http"

	"github.com/dunamismax/imagetools/internal/document"
	"github.com/dunamismax/imagetools/internal/domain"
)

// toolFeatures is the static description served by the health endpoints.
var toolFeatures = map[string][]string{
	domain.ToolCrop:           {"rectangle extraction", "bounds checked against the image"},
	domain.ToolResize:         {"fill", "contain", "cover", "inside"},
	domain.ToolRotateFlip:     {"arbitrary angle rotation", "horizontal flip", "vertical flip", "crop to fit"},
	domain.ToolCombine:        {"side-by-side", "top-bottom", "overlay", "per-image rotation"},
	domain.ToolColorRestore:   {"auto", "faded", "vintage", "sepia", "vibrant", "denoise", "color cast correction"},
	domain.ToolUnblur:         {"standard", "gaussian", "motion", "deep", "edge enhancement"},
	domain.ToolAutoEnhance:    {"auto", "portrait", "landscape", "low-light", "vivid", "manual adjustments"},
	domain.ToolArtisticFilter: {"grayscale", "sepia", "invert", "vintage", "emboss", "sketch", "posterize", "blur"},
}

var imageToolOrder = []string{
	domain.ToolCrop,
	domain.ToolResize,
	domain.ToolRotateFlip,
	domain.ToolCombine,
	domain.ToolColorRestore,
	domain.ToolUnblur,
	domain.ToolAutoEnhance,
	domain.ToolArtisticFilter,
}

func (s *Server) handleImageHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"service":   "image-tools",
		"version":   s.version,
		"codec":     s.engine.CodecName(),
		"tools":     imageToolOrder,
		"timestamp": s.now().UTC(),
	})
}

func (s *Server) handleToolHealth(w http.ResponseWriter, r *http.Request) {
	tool := r.PathValue("tool")
	if tool == "" {
		tool = domain.ToolCombine
	}
	features, ok := toolFeatures[tool]
	if !ok {
		s.handleNotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"tool":      tool,
		"features":  features,
		"timestamp": s.now().UTC(),
	})
}

func (s *Server) handleConvertHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"service":       "document-conversion",
		"features":      []string{"word-to-pdf", "batch-word-to-pdf"},
		"maxBatchFiles": document.MaxBatch,
		"timestamp":     s.now().UTC(),
	})
}
