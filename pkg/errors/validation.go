package errors

import (
	"strings"
	"unicode"
)

// MaxLabelLength caps group label text. The limit matches the prompt
// buffer of the interactive tooling this grew out of.
const MaxLabelLength = 2048

// ValidateLabel validates a group label.
//
// The validation rules are intentionally conservative:
//   - No empty labels (a collapsed group must stay identifiable)
//   - No control characters (labels end up in DOT output and JSON)
//   - Maximum length of MaxLabelLength characters
func ValidateLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return New(ErrCodeInvalidLabel, "group label cannot be empty")
	}

	if len(label) > MaxLabelLength {
		return New(ErrCodeInvalidLabel, "group label too long (max %d characters)", MaxLabelLength)
	}

	for _, r := range label {
		if r != '\n' && unicode.IsControl(r) {
			return New(ErrCodeInvalidLabel, "group label contains invalid control characters")
		}
	}

	return nil
}

// ValidateMarker validates a boundary marker string.
//
// Markers are matched as comment substrings, so whitespace and control
// characters would make matches unpredictable.
func ValidateMarker(marker string) error {
	if marker == "" {
		return New(ErrCodeInvalidMarker, "marker cannot be empty")
	}

	for _, r := range marker {
		if unicode.IsSpace(r) {
			return New(ErrCodeInvalidMarker, "marker cannot contain whitespace")
		}
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidMarker, "marker contains invalid control characters")
		}
	}

	return nil
}

// ValidateNodeID validates a node id against a graph of n nodes.
func ValidateNodeID(id, n int) error {
	if id < 0 || id >= n {
		return New(ErrCodeInvalidNode, "node id %d out of range [0, %d)", id, n)
	}
	return nil
}
