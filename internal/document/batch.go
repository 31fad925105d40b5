package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
)

const (
	ReportName  = "conversion_report.txt"
	ArchiveName = "converted_documents.zip"
	MaxBatch    = 10
)

var ErrNothingConverted = errors.New("no document in the batch could be converted")

// Failure records one file that did not convert.
type Failure struct {
	Name string
	Err  error
}

// Archive is the result of a batch: a ZIP with one PDF per success plus a
// report when anything failed.
type Archive struct {
	Data      []byte
	Total     int
	Succeeded int
	Failures  []Failure
}

// Failed is the number of files missing from the archive.
func (a Archive) Failed() int {
	return len(a.Failures)
}

// ConvertBatch converts uploads one at a time, in order. A failed file is
// recorded and the batch carries on. If every file fails the archive is not
// built and ErrNothingConverted is returned along with the failures.
func ConvertBatch(ctx context.Context, conv Converter, uploads []Upload) (Archive, error) {
	archive := Archive{Total: len(uploads)}
	docs := make([]Document, 0, len(uploads))
	for _, upload := range uploads {
		if err := ctx.Err(); err != nil {
			return archive, err
		}
		doc, err := conv.Convert(ctx, upload)
		if err != nil {
			archive.Failures = append(archive.Failures, Failure{Name: upload.Name, Err: err})
			continue
		}
		docs = append(docs, doc)
	}
	archive.Succeeded = len(docs)
	if len(docs) == 0 {
		return archive, ErrNothingConverted
	}

	data, err := writeZip(docs, archive)
	if err != nil {
		return archive, fmt.Errorf("build archive: %w", err)
	}
	archive.Data = data
	return archive, nil
}

func writeZip(docs []Document, archive Archive) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	now := time.Now()
	names := make(map[string]int, len(docs))

	add := func(name string, data []byte) error {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: now,
		})
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	}

	for _, doc := range docs {
		if err := add(uniqueName(names, doc.Name), doc.Data); err != nil {
			return nil, fmt.Errorf("add %s: %w", doc.Name, err)
		}
	}
	if len(archive.Failures) > 0 {
		if err := add(ReportName, []byte(Report(archive))); err != nil {
			return nil, fmt.Errorf("add report: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// uniqueName suffixes repeated names: a.pdf, a (2).pdf, a (3).pdf.
func uniqueName(seen map[string]int, name string) string {
	seen[name]++
	n := seen[name]
	if n == 1 {
		return name
	}
	base := strings.TrimSuffix(name, ".pdf")
	return fmt.Sprintf("%s (%d).pdf", base, n)
}

// Report is the plain-text summary stored next to the PDFs.
func Report(archive Archive) string {
	var b strings.Builder
	b.WriteString("Word to PDF batch conversion report\n")
	fmt.Fprintf(&b, "Total files: %d\n", archive.Total)
	fmt.Fprintf(&b, "Successful conversions: %d\n", archive.Succeeded)
	fmt.Fprintf(&b, "Failed conversions: %d\n", archive.Failed())
	if archive.Failed() > 0 {
		b.WriteString("\nFailed files:\n")
		for _, f := range archive.Failures {
			fmt.Fprintf(&b, "- %s: %v\n", f.Name, f.Err)
		}
	}
	return b.String()
}
