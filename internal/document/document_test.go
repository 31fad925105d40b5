package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/sirupsen/logrus"
)

func TestCheckExtension(t *testing.T) {
	cases := []struct {
		name string
		ok   bool
	}{
		{name: "letter.docx", ok: true},
		{name: "LETTER.DOC", ok: true},
		{name: "notes.txt", ok: false},
		{name: "archive.docx.zip", ok: false},
		{name: "noext", ok: false},
	}
	for _, tc := range cases {
		err := CheckExtension(tc.name)
		if tc.ok && err != nil {
			t.Fatalf("%s: expected ok, got %v", tc.name, err)
		}
		if !tc.ok && !errors.Is(err, ErrUnsupportedType) {
			t.Fatalf("%s: expected ErrUnsupportedType, got %v", tc.name, err)
		}
	}
}

func TestSniff(t *testing.T) {
	if err := Sniff(Upload{Name: "a.docx", Data: testDOCX(t)}); err != nil {
		t.Fatalf("docx: expected ok, got %v", err)
	}
	if err := Sniff(Upload{Name: "a.doc", Data: testDOC()}); err != nil {
		t.Fatalf("doc: expected ok, got %v", err)
	}
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n', 0, 0, 0, 0}
	if err := Sniff(Upload{Name: "a.docx", Data: png}); !errors.Is(err, ErrContentMismatch) {
		t.Fatalf("png as docx: expected ErrContentMismatch, got %v", err)
	}
	if err := Sniff(Upload{Name: "a.doc", Data: testDOCX(t)}); !errors.Is(err, ErrContentMismatch) {
		t.Fatalf("zip as doc: expected ErrContentMismatch, got %v", err)
	}
	if err := Sniff(Upload{Name: "a.docx"}); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("empty: expected ErrEmptyDocument, got %v", err)
	}
}

func TestPDFName(t *testing.T) {
	cases := map[string]string{
		"report.docx":          "report.pdf",
		"Q3 plan.DOC":          "Q3 plan.pdf",
		"../../etc/passwd.doc": "passwd.pdf",
		`C:\docs\memo.docx`:    "memo.pdf",
		".docx":                "document.pdf",
	}
	for in, want := range cases {
		if got := PDFName(in); got != want {
			t.Fatalf("PDFName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPageCount(t *testing.T) {
	pages, err := PageCount(minimalPDF(3))
	if err != nil {
		t.Fatalf("page count: %v", err)
	}
	if pages != 3 {
		t.Fatalf("expected 3 pages, got %d", pages)
	}

	if _, err := PageCount([]byte("not a pdf")); !errors.Is(err, ErrInvalidPDF) {
		t.Fatalf("expected ErrInvalidPDF, got %v", err)
	}
}

type fakeExecutor struct {
	pdf     []byte
	workDir string
	args    []string
	block   bool
	fail    bool
}

func (f *fakeExecutor) RunCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	f.args = append([]string{name}, args...)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.fail {
		return []byte("source file could not be loaded"), errors.New("exit status 1")
	}
	for i, arg := range args {
		if arg == "--outdir" && i+1 < len(args) {
			f.workDir = args[i+1]
		}
	}
	input := args[len(args)-1]
	out := strings.TrimSuffix(input, ".docx") + ".pdf"
	return nil, os.WriteFile(out, f.pdf, 0o600)
}

func newTestConverter(exec CommandExecutor, timeout time.Duration) *OfficeConverter {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	conv := NewOfficeConverter("soffice", timeout, logger)
	conv.executor = exec
	return conv
}

func TestOfficeConverterConvert(t *testing.T) {
	exec := &fakeExecutor{pdf: minimalPDF(2)}
	conv := newTestConverter(exec, time.Second)

	doc, err := conv.Convert(context.Background(), Upload{Name: "minutes.docx", Data: testDOCX(t)})
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if doc.Name != "minutes.pdf" || doc.Pages != 2 {
		t.Fatalf("unexpected document name=%s pages=%d", doc.Name, doc.Pages)
	}
	if exec.args[0] != "soffice" || !contains(exec.args, "--headless") || !contains(exec.args, "pdf") {
		t.Fatalf("unexpected command: %v", exec.args)
	}
	if _, err := os.Stat(exec.workDir); !os.IsNotExist(err) {
		t.Fatalf("expected work dir %s to be removed, stat err=%v", exec.workDir, err)
	}
}

func TestOfficeConverterFailures(t *testing.T) {
	conv := newTestConverter(&fakeExecutor{fail: true}, time.Second)
	_, err := conv.Convert(context.Background(), Upload{Name: "a.docx", Data: testDOCX(t)})
	if err == nil || !strings.Contains(err.Error(), "could not be loaded") {
		t.Fatalf("expected engine output in error, got %v", err)
	}

	conv = newTestConverter(&fakeExecutor{block: true}, 20*time.Millisecond)
	_, err = conv.Convert(context.Background(), Upload{Name: "a.docx", Data: testDOCX(t)})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}

	conv = newTestConverter(&fakeExecutor{pdf: []byte("garbage")}, time.Second)
	_, err = conv.Convert(context.Background(), Upload{Name: "a.docx", Data: testDOCX(t)})
	if !errors.Is(err, ErrInvalidPDF) {
		t.Fatalf("expected ErrInvalidPDF, got %v", err)
	}

	_, err = conv.Convert(context.Background(), Upload{Name: "a.txt", Data: []byte("hello")})
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("expected ErrUnsupportedType, got %v", err)
	}
}

type stubConverter struct {
	failing map[string]bool
	calls   []string
}

func (s *stubConverter) Convert(_ context.Context, upload Upload) (Document, error) {
	s.calls = append(s.calls, upload.Name)
	if s.failing[upload.Name] {
		return Document{}, errors.New("corrupt document")
	}
	return Document{Name: PDFName(upload.Name), Data: []byte("%PDF-1.4 " + upload.Name), Pages: 1}, nil
}

func TestConvertBatchPartialFailure(t *testing.T) {
	conv := &stubConverter{failing: map[string]bool{"two.docx": true}}
	uploads := []Upload{{Name: "one.docx"}, {Name: "two.docx"}, {Name: "three.doc"}}

	archive, err := ConvertBatch(context.Background(), conv, uploads)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if archive.Total != 3 || archive.Succeeded != 2 || archive.Failed() != 1 {
		t.Fatalf("unexpected counts total=%d ok=%d failed=%d", archive.Total, archive.Succeeded, archive.Failed())
	}
	if strings.Join(conv.calls, ",") != "one.docx,two.docx,three.doc" {
		t.Fatalf("expected sequential in-order calls, got %v", conv.calls)
	}

	entries := readZip(t, archive.Data)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d: %v", len(entries), keys(entries))
	}
	if _, ok := entries["one.pdf"]; !ok {
		t.Fatalf("missing one.pdf: %v", keys(entries))
	}
	if _, ok := entries["three.pdf"]; !ok {
		t.Fatalf("missing three.pdf: %v", keys(entries))
	}
	report, ok := entries[ReportName]
	if !ok {
		t.Fatalf("missing report: %v", keys(entries))
	}
	if !strings.Contains(report, "two.docx: corrupt document") || !strings.Contains(report, "Failed conversions: 1") {
		t.Fatalf("unexpected report:\n%s", report)
	}
}

func TestConvertBatchAllSucceedHasNoReport(t *testing.T) {
	archive, err := ConvertBatch(context.Background(), &stubConverter{}, []Upload{{Name: "a.docx"}, {Name: "a.doc"}})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	entries := readZip(t, archive.Data)
	if _, ok := entries[ReportName]; ok {
		t.Fatal("report must be omitted when nothing failed")
	}
	if _, ok := entries["a.pdf"]; !ok {
		t.Fatalf("missing a.pdf: %v", keys(entries))
	}
	if _, ok := entries["a (2).pdf"]; !ok {
		t.Fatalf("missing a (2).pdf: %v", keys(entries))
	}
}

func TestConvertBatchAllFail(t *testing.T) {
	conv := &stubConverter{failing: map[string]bool{"a.docx": true}}
	archive, err := ConvertBatch(context.Background(), conv, []Upload{{Name: "a.docx"}})
	if !errors.Is(err, ErrNothingConverted) {
		t.Fatalf("expected ErrNothingConverted, got %v", err)
	}
	if archive.Failed() != 1 || archive.Data != nil {
		t.Fatalf("unexpected archive: failed=%d data=%d", archive.Failed(), len(archive.Data))
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func readZip(t *testing.T, data []byte) map[string]string {
	t.Helper()

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	out := make(map[string]string, len(zr.File))
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("open %s: %v", f.Name, err)
		}
		body, err := io.ReadAll(rc)
		_ = rc.Close()
		if err != nil {
			t.Fatalf("read %s: %v", f.Name, err)
		}
		out[f.Name] = string(body)
	}
	return out
}

func testDOCX(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range []string{"[Content_Types].xml", "word/document.xml"} {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
		if _, err := w.Write([]byte("<xml/>")); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func testDOC() []byte {
	data := make([]byte, 1024)
	copy(data, []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1})
	return data
}

// minimalPDF writes a PDF with blank letter-size pages and a correct xref.
func minimalPDF(pages int) []byte {
	var buf bytes.Buffer
	offsets := []int{}
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for i := 0; i < pages; i++ {
		obj("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}
