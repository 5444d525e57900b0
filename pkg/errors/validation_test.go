package errors

import (
	"strings"
	"testing"
)

func TestValidateLabel(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		wantErr bool
	}{
		{"valid label", "decrypt loop", false},
		{"single char", "x", false},
		{"multiline", "stage 1\nstage 2", false},
		{"max length", strings.Repeat("a", MaxLabelLength), false},
		{"empty", "", true},
		{"whitespace only", "   \t ", true},
		{"too long", strings.Repeat("a", MaxLabelLength+1), true},
		{"control character", "bad\x00label", true},
		{"tab", "bad\tlabel", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLabel(tt.label)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateLabel(%q) error = %v, wantErr %v", tt.label, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidLabel) {
				t.Errorf("error code = %v, want %v", GetCode(err), ErrCodeInvalidLabel)
			}
		})
	}
}

func TestValidateMarker(t *testing.T) {
	tests := []struct {
		name    string
		marker  string
		wantErr bool
	}{
		{"default marker", "GG:stop", false},
		{"plain word", "STOP", false},
		{"punctuation", "@boundary!", false},
		{"empty", "", true},
		{"inner space", "GG stop", true},
		{"newline", "GG\nstop", true},
		{"control character", "GG\x01stop", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateMarker(tt.marker)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateMarker(%q) error = %v, wantErr %v", tt.marker, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidMarker) {
				t.Errorf("error code = %v, want %v", GetCode(err), ErrCodeInvalidMarker)
			}
		})
	}
}

func TestValidateNodeID(t *testing.T) {
	tests := []struct {
		name    string
		id      int
		n       int
		wantErr bool
	}{
		{"first node", 0, 4, false},
		{"last node", 3, 4, false},
		{"negative", -1, 4, true},
		{"out of range", 4, 4, true},
		{"empty graph", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeID(tt.id, tt.n)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNodeID(%d, %d) error = %v, wantErr %v", tt.id, tt.n, err, tt.wantErr)
			}
		})
	}
}
