package chat

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmptyInput = errors.New("message is empty")
	ErrTooLong    = errors.New("message is too long")
)

// Validate trims the input and enforces the emptiness and length limits.
// It never touches session state, so a failed submission leaves the
// conversation exactly as it was.
func Validate(text string, maxLen int) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", ErrEmptyInput
	}
	if maxLen > 0 && utf8.RuneCountInString(text) > maxLen {
		return "", ErrTooLong
	}
	return trimmed, nil
}
