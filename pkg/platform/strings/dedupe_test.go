package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrimLower(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "nil slice",
			input:    nil,
			expected: nil,
		},
		{
			name:     "lowercases and dedupes",
			input:    []string{"Bickford", "bickford", "BICKFORD"},
			expected: []string{"bickford"},
		},
		{
			name:     "trims, drops empties, preserves order",
			input:    []string{"  BRANDON ", "", "bickford", "Brandon", "  "},
			expected: []string{"brandon", "bickford"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrimLower(tt.input))
		})
	}
}

func TestAllTokensAlpha(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"Brandon Bickford", true},
		{"  Amani   Mwakyusa ", true},
		{"Zuhura Ñandú", true},
		{"", false},
		{"   ", false},
		{"Brandon 4567", false},
		{"Dr. Bickford", false},
		{"O'Neil", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, AllTokensAlpha(tt.input))
		})
	}
}
