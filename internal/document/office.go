package document

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	defaultOfficeBinary  = "soffice"
	defaultOfficeTimeout = 60 * time.Second
)

// CommandExecutor runs an external command and returns its combined output.
type CommandExecutor interface {
	RunCombined(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execExecutor struct{}

func (execExecutor) RunCombined(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// OfficeConverter drives a headless LibreOffice. Every conversion gets its own
// temp dir and profile, removed when the call returns.
type OfficeConverter struct {
	binary   string
	timeout  time.Duration
	executor CommandExecutor
	logger   logrus.FieldLogger
}

func NewOfficeConverter(binary string, timeout time.Duration, logger logrus.FieldLogger) *OfficeConverter {
	if strings.TrimSpace(binary) == "" {
		binary = defaultOfficeBinary
	}
	if timeout <= 0 {
		timeout = defaultOfficeTimeout
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &OfficeConverter{
		binary:   binary,
		timeout:  timeout,
		executor: execExecutor{},
		logger:   logger,
	}
}

func (c *OfficeConverter) Convert(ctx context.Context, upload Upload) (Document, error) {
	if err := Sniff(upload); err != nil {
		return Document{}, err
	}

	workDir, err := os.MkdirTemp("", "imagetools-office-*")
	if err != nil {
		return Document{}, fmt.Errorf("create work dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			c.logger.WithError(err).WithField("dir", workDir).Warn("remove work dir failed")
		}
	}()

	inputPath := filepath.Join(workDir, "input"+strings.ToLower(filepath.Ext(upload.Name)))
	if err := os.WriteFile(inputPath, upload.Data, 0o600); err != nil {
		return Document{}, fmt.Errorf("write input: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	output, err := c.executor.RunCombined(runCtx, c.binary, officeArgs(workDir, inputPath)...)
	if err != nil {
		if runCtx.Err() != nil {
			return Document{}, fmt.Errorf("office conversion timed out after %s: %w", c.timeout, runCtx.Err())
		}
		return Document{}, fmt.Errorf("office conversion failed: %w: %s", err, strings.TrimSpace(string(output)))
	}

	pdfPath := strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".pdf"
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return Document{}, fmt.Errorf("read converted pdf: %w", err)
	}
	pages, err := PageCount(data)
	if err != nil {
		return Document{}, err
	}

	c.logger.WithFields(logrus.Fields{
		"file":        upload.Name,
		"pages":       pages,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Debug("document converted")

	return Document{Name: PDFName(upload.Name), Data: data, Pages: pages}, nil
}

func officeArgs(workDir, inputPath string) []string {
	return []string{
		"-env:UserInstallation=file://" + filepath.ToSlash(filepath.Join(workDir, "profile")),
		"--headless",
		"--norestore",
		"--convert-to", "pdf",
		"--outdir", workDir,
		inputPath,
	}
}
