package domain

import (
	"fmt"
	"net/http"
	"strings"
)

const (
	CodeNoFile             = "NO_FILE"
	CodeNoFiles            = "NO_FILES"
	CodeTooManyFiles       = "TOO_MANY_FILES"
	CodeInvalidFileType    = "INVALID_FILE_TYPE"
	CodeFileTooLarge       = "FILE_TOO_LARGE"
	CodeInvalidImageFile   = "INVALID_IMAGE_FILE"
	CodeInvalidOptions     = "INVALID_OPTIONS"
	CodeDimensionError     = "DIMENSION_ERROR"
	CodeWordToPDFError     = "WORD_TO_PDF_CONVERSION_ERROR"
	CodeBatchConversion    = "BATCH_CONVERSION_ERROR"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeNotFound           = "NOT_FOUND"
	CodeInternalError      = "INTERNAL_ERROR"
	processingErrorPostfix = "_PROCESSING_ERROR"
)

// Error is a failure with a stable client-facing code and the HTTP status it
// maps to.
type Error struct {
	Code    string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewError(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

func BadRequest(code, message string) *Error {
	return NewError(code, http.StatusBadRequest, message)
}

func InvalidOptions(reason string) *Error {
	return BadRequest(CodeInvalidOptions, reason)
}

// ProcessingError wraps a failure inside a tool, e.g. ROTATE_FLIP_PROCESSING_ERROR.
func ProcessingError(tool string, err error) *Error {
	return &Error{
		Code:    ProcessingCode(tool),
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("%s processing failed", tool),
		Err:     err,
	}
}

func ProcessingCode(tool string) string {
	return strings.ToUpper(strings.ReplaceAll(tool, "-", "_")) + processingErrorPostfix
}
