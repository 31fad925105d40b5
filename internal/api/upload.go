package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dunamismax/imagetools/internal/domain"
	"github.com/gabriel-vasile/mimetype"
)

type upload struct {
	name string
	data []byte
}

// parseMultipart reads the whole form into memory under the upload limit.
func (s *Server) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return domain.BadRequest(domain.CodeNoFile, "request must be multipart/form-data")
		}
		return domain.BadRequest(domain.CodeNoFile, fmt.Sprintf("could not read upload: %v", err))
	}
	return nil
}

// formFiles returns the files under the first field name that has any.
func formFiles(r *http.Request, fields ...string) []*multipart.FileHeader {
	if r.MultipartForm == nil {
		return nil
	}
	for _, field := range fields {
		if files := r.MultipartForm.File[field]; len(files) > 0 {
			return files
		}
	}
	return nil
}

func readUpload(fh *multipart.FileHeader) (upload, error) {
	f, err := fh.Open()
	if err != nil {
		return upload{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return upload{}, fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	return upload{name: fh.Filename, data: data}, nil
}

func readUploads(files []*multipart.FileHeader) ([]upload, error) {
	out := make([]upload, 0, len(files))
	for _, fh := range files {
		u, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// checkImageType rejects uploads whose content is not sniffed as an image.
func checkImageType(u upload) error {
	detected := mimetype.Detect(u.data)
	if !strings.HasPrefix(detected.String(), "image/") {
		return domain.BadRequest(domain.CodeInvalidFileType,
			fmt.Sprintf("%s is %s, not an image", displayName(u.name), detected.String()))
	}
	return nil
}

// attachment builds a Content-Disposition value safe to put in a header.
func attachment(filename string) string {
	return fmt.Sprintf("attachment; filename=%q", sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r == '"' || r == '\\' || r == '/':
			b.WriteRune('_')
		case r < 0x20 || r > 0x7e:
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	out := b.String()
	if out == "" || out == "." {
		return "download"
	}
	return out
}

func displayName(name string) string {
	if name == "" {
		return "upload"
	}
	return sanitizeFilename(name)
}

func stem(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		return "image"
	}
	return sanitizeFilename(base)
}
