package textfilter

import (
	"errors"
	"strings"
	"testing"
)

func TestHandleFilter_Clean(t *testing.T) {
	filter := NewHandleFilter()

	tests := []struct {
		name     string
		input    string
		expected string
		err      error
	}{
		{
			name:     "plain handle",
			input:    "neo",
			expected: "neo",
		},
		{
			name:     "whitespace collapsed",
			input:    "  zero   cool ",
			expected: "zero cool",
		},
		{
			name:     "punctuation stripped",
			input:    "<acid_burn!>",
			expected: "acid_burn",
		},
		{
			name:     "dots and dashes kept",
			input:    "crash.override-2",
			expected: "crash.override-2",
		},
		{
			name:     "unicode letters kept",
			input:    "ñandú",
			expected: "ñandú",
		},
		{
			name:     "word boundaries - partial matches are allowed",
			input:    "classic assassin",
			expected: "classic assassin",
		},
		{
			name:  "empty",
			input: "   ",
			err:   ErrEmptyHandle,
		},
		{
			name:  "only symbols",
			input: "!!!",
			err:   ErrEmptyHandle,
		},
		{
			name:  "too long",
			input: strings.Repeat("x", MaxHandleLength+1),
			err:   ErrHandleTooLong,
		},
		{
			name:  "blocked word",
			input: "big shit",
			err:   ErrBlockedHandle,
		},
		{
			name:  "blocked word any case",
			input: "DumbAss",
			err:   ErrBlockedHandle,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filter.Clean(tt.input)
			if !errors.Is(err, tt.err) {
				t.Fatalf("Clean(%q) error = %v, want %v", tt.input, err, tt.err)
			}
			if got != tt.expected {
				t.Errorf("Clean(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestHandleFilter_ExtraWords(t *testing.T) {
	filter := NewHandleFilter("admin", "root")

	if _, err := filter.Clean("root"); !errors.Is(err, ErrBlockedHandle) {
		t.Errorf("Expected extra word to be blocked, got %v", err)
	}
	if got, err := filter.Clean("rooted"); err != nil || got != "rooted" {
		t.Errorf("Expected partial match to pass, got %q, %v", got, err)
	}
}
