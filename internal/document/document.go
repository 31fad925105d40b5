// Package document converts Word documents to PDF through an external office
// engine and packages batch results into a ZIP archive.
package document

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrUnsupportedType = errors.New("only .doc and .docx files are supported")
	ErrContentMismatch = errors.New("file content is not a Word document")
	ErrEmptyDocument   = errors.New("file is empty")
)

const (
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimeDOC  = "application/msword"
	mimeOLE  = "application/x-ole-storage"
	mimeZIP  = "application/zip"
)

// Upload is one file received from a client.
type Upload struct {
	Name string
	Data []byte
}

// Document is a converted PDF.
type Document struct {
	Name  string
	Data  []byte
	Pages int
}

// Converter turns a Word document into a PDF.
type Converter interface {
	Convert(ctx context.Context, upload Upload) (Document, error)
}

// CheckExtension accepts .doc and .docx names in any case.
func CheckExtension(name string) error {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".doc", ".docx":
		return nil
	default:
		return fmt.Errorf("%s: %w", name, ErrUnsupportedType)
	}
}

// Sniff checks that the bytes look like the container the extension claims:
// OOXML (or plain zip) for .docx, OLE compound storage for .doc.
func Sniff(upload Upload) error {
	if err := CheckExtension(upload.Name); err != nil {
		return err
	}
	if len(upload.Data) == 0 {
		return fmt.Errorf("%s: %w", upload.Name, ErrEmptyDocument)
	}

	accepted := []string{mimeDOCX, mimeZIP}
	if strings.EqualFold(filepath.Ext(upload.Name), ".doc") {
		accepted = []string{mimeDOC, mimeOLE}
	}

	detected := mimetype.Detect(upload.Data)
	for mt := detected; mt != nil; mt = mt.Parent() {
		for _, want := range accepted {
			if mt.Is(want) {
				return nil
			}
		}
	}
	return fmt.Errorf("%s detected as %s: %w", upload.Name, detected.String(), ErrContentMismatch)
}

// PDFName maps "report.docx" to "report.pdf".
func PDFName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." || base == "/" {
		base = "document"
	}
	return base + ".pdf"
}
