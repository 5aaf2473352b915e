package server

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// validateUsername trims the display name and checks it against the
// configured length bounds. It returns the trimmed name or a user-facing
// error.
func validateUsername(name string, limits LimitsConfig) (string, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("username cannot be empty")
	}

	length := utf8.RuneCountInString(trimmed)
	if length < limits.MinUsernameLength {
		return "", fmt.Errorf("username must be at least %d characters", limits.MinUsernameLength)
	}
	if length > limits.MaxUsernameLength {
		return "", fmt.Errorf("username cannot exceed %d characters", limits.MaxUsernameLength)
	}
	return trimmed, nil
}

// sanitizeMessage neutralizes HTML tags in chat text and trims surrounding
// whitespace. Signaling payloads are never sanitized; they are opaque.
func sanitizeMessage(message string) string {
	message = strings.ReplaceAll(message, "<", "&lt;")
	message = strings.ReplaceAll(message, ">", "&gt;")
	return strings.TrimSpace(message)
}
