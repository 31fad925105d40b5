package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dunamismax/imagetools/internal/document"
	"github.com/dunamismax/imagetools/internal/domain"
)

const (
	documentField = "file"
	batchField    = "files"
)

func (s *Server) handleWordToPDF(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := s.parseMultipart(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := formFiles(r, documentField)
	if len(files) == 0 {
		s.writeError(w, r, domain.BadRequest(domain.CodeNoFile, "no document file provided"))
		return
	}
	in, err := readUpload(files[0])
	if err != nil {
		s.writeError(w, r, domain.BadRequest(domain.CodeNoFile, err.Error()))
		return
	}
	up := document.Upload{Name: in.name, Data: in.data}
	if err := document.Sniff(up); err != nil {
		s.writeError(w, r, domain.BadRequest(domain.CodeInvalidFileType, err.Error()))
		return
	}

	doc, err := s.converter.Convert(r.Context(), up)
	if err != nil {
		s.metrics.conversions.WithLabelValues("failed").Inc()
		s.recordUsage(r.Context(), domain.UsageLog{
			Tool: domain.ToolWordToPDF, Status: http.StatusInternalServerError, Files: 1, InputBytes: int64(len(in.data)),
		})
		s.writeError(w, r, &domain.Error{
			Code:    domain.CodeWordToPDFError,
			Status:  http.StatusInternalServerError,
			Message: "word to pdf conversion failed",
			Err:     err,
		})
		return
	}
	s.metrics.conversions.WithLabelValues("converted").Inc()

	elapsed := time.Since(start)
	h := w.Header()
	h.Set("Content-Type", "application/pdf")
	h.Set("Content-Disposition", attachment(doc.Name))
	h.Set("Content-Length", strconv.Itoa(len(doc.Data)))
	h.Set("X-Processing-Time", formatElapsed(elapsed.Milliseconds()))
	h.Set("X-Page-Count", strconv.Itoa(doc.Pages))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)

	s.recordUsage(r.Context(), domain.UsageLog{
		Tool:          domain.ToolWordToPDF,
		Status:        http.StatusOK,
		Files:         1,
		InputBytes:    int64(len(in.data)),
		OutputBytes:   int64(len(doc.Data)),
		ComputeTimeMS: elapsed.Milliseconds(),
	})
}

func (s *Server) handleBatchWordToPDF(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if err := s.parseMultipart(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := formFiles(r, batchField, batchField+"[]")
	switch {
	case len(files) == 0:
		s.writeError(w, r, domain.BadRequest(domain.CodeNoFiles, "no document files provided"))
		return
	case len(files) > document.MaxBatch:
		s.writeError(w, r, domain.BadRequest(domain.CodeTooManyFiles,
			fmt.Sprintf("at most %d documents per batch, got %d", document.MaxBatch, len(files))))
		return
	}
	for _, fh := range files {
		if err := document.CheckExtension(fh.Filename); err != nil {
			s.writeError(w, r, domain.BadRequest(domain.CodeInvalidFileType, err.Error()))
			return
		}
	}

	uploads, err := readUploads(files)
	if err != nil {
		s.writeError(w, r, domain.BadRequest(domain.CodeNoFiles, err.Error()))
		return
	}
	batch := make([]document.Upload, len(uploads))
	var inputBytes int64
	for i, u := range uploads {
		batch[i] = document.Upload{Name: u.name, Data: u.data}
		inputBytes += int64(len(u.data))
	}

	archive, err := document.ConvertBatch(r.Context(), s.converter, batch)
	s.metrics.conversions.WithLabelValues("converted").Add(float64(archive.Succeeded))
	s.metrics.conversions.WithLabelValues("failed").Add(float64(archive.Failed()))
	for _, f := range archive.Failures {
		s.logger.WithError(f.Err).WithField("file", f.Name).Warn("batch document conversion failed")
	}
	if err != nil {
		status := http.StatusInternalServerError
		s.recordUsage(r.Context(), domain.UsageLog{
			Tool: domain.ToolWordToPDF, Status: status, Files: len(batch), InputBytes: inputBytes,
		})
		message := "batch conversion failed"
		if errors.Is(err, document.ErrNothingConverted) {
			message = fmt.Sprintf("none of the %d documents could be converted", archive.Total)
		}
		s.writeError(w, r, &domain.Error{
			Code:    domain.CodeBatchConversion,
			Status:  status,
			Message: message,
			Err:     err,
		})
		return
	}

	elapsed := time.Since(start)
	h := w.Header()
	h.Set("Content-Type", "application/zip")
	h.Set("Content-Disposition", attachment(document.ArchiveName))
	h.Set("Content-Length", strconv.Itoa(len(archive.Data)))
	h.Set("X-Processing-Time", formatElapsed(elapsed.Milliseconds()))
	h.Set("X-Total-Files", strconv.Itoa(archive.Total))
	h.Set("X-Successful-Conversions", strconv.Itoa(archive.Succeeded))
	h.Set("X-Failed-Conversions", strconv.Itoa(archive.Failed()))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(archive.Data)

	s.recordUsage(r.Context(), domain.UsageLog{
		Tool:          domain.ToolWordToPDF,
		Status:        http.StatusOK,
		Files:         len(batch),
		InputBytes:    inputBytes,
		OutputBytes:   int64(len(archive.Data)),
		ComputeTimeMS: elapsed.Milliseconds(),
	})
}
