package id

import (
	"strings"

	"github.com/google/uuid"
)

const maxLen = 128

// New returns a random request identifier.
func New() string {
	return uuid.NewString()
}

// FromHeader keeps a caller-supplied identifier when it is short printable
// ASCII, and otherwise mints a new one.
func FromHeader(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || len(value) > maxLen {
		return New()
	}
	for _, r := range value {
		if r < 0x21 || r > 0x7e {
			return New()
		}
	}
	return value
}
