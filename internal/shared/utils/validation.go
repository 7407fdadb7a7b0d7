package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/GriffinCanCode/EnvForge/backend/internal/domain/blueprint"
)

// Size limits (in bytes)
const (
	MaxGraphSize   = 1 * 1024 * 1024 // 1MB - graph file upload limit
	MaxMessageSize = 16 * 1024       // 16KB - single conversation message limit
)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}

	if value == "" && !required {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}

	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

// ValidateMessage validates one conversation message: an intent, an
// answer or a request naming more entities.
func ValidateMessage(message string) error {
	if err := ValidateString(message, "message", 1, MaxMessageSize, true); err != nil {
		return err
	}
	if strings.TrimSpace(message) == "" {
		return fmt.Errorf("message is blank")
	}

	whitespaceCount := 0
	for _, r := range message {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			whitespaceCount++
		}
	}
	if whitespaceCount > len(message)/2 {
		return fmt.Errorf("message contains excessive whitespace")
	}

	return nil
}

// ValidateGraphSize checks an uploaded graph file against MaxGraphSize.
func ValidateGraphSize(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("graph is required")
	}
	if len(data) > MaxGraphSize {
		return fmt.Errorf("graph size %d bytes exceeds maximum %d bytes", len(data), MaxGraphSize)
	}
	return nil
}

// ParseFormat maps "yaml", "yml" and "json" to a graph format. Empty
// means YAML.
func ParseFormat(s string) (blueprint.Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "yaml", "yml":
		return blueprint.FormatYAML, nil
	case "json":
		return blueprint.FormatJSON, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use yaml or json)", s)
	}
}
