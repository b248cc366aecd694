package status

import (
	"fmt"
)

// ProgressFormatter defines how run progress is formatted
type ProgressFormatter interface {
	// FormatProgress formats a progress message
	FormatProgress(current, total int) string

	// FormatError formats an error message
	FormatError(err error) string
}

// DefaultProgressFormatter provides a default implementation of ProgressFormatter
type DefaultProgressFormatter struct{}

// NewDefaultProgressFormatter creates a new DefaultProgressFormatter
func NewDefaultProgressFormatter() *DefaultProgressFormatter {
	return &DefaultProgressFormatter{}
}

// FormatProgress formats a progress message with percentage
func (f *DefaultProgressFormatter) FormatProgress(current, total int) string {
	if current < 0 {
		current = 0
	}
	if total < 0 {
		total = 0
	}

	percentage := float64(100)
	if current < total {
		percentage = float64(current) / float64(total) * 100
	}

	if current >= total {
		return fmt.Sprintf("✅ Progress: %d/%d (%.0f%%)", current, total, percentage)
	}
	return fmt.Sprintf("⏳ Progress: %d/%d (%.0f%%)", current, total, percentage)
}

// FormatError formats an error message with emoji
func (f *DefaultProgressFormatter) FormatError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("❌ Error: %v", err)
}
