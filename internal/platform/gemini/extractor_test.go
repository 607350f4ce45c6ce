package gemini

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripCodeFence(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "bare JSON passes through",
			input:    `[{"title":"pay rent"}]`,
			expected: `[{"title":"pay rent"}]`,
		},
		{
			name:     "json fence",
			input:    "```json\n[{\"title\":\"pay rent\"}]\n```",
			expected: `[{"title":"pay rent"}]`,
		},
		{
			name:     "anonymous fence",
			input:    "```\n[]\n```",
			expected: `[]`,
		},
		{
			name:     "surrounding whitespace",
			input:    "  \n```json\n[]\n```\n  ",
			expected: `[]`,
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.expected, stripCodeFence(tc.input))
		})
	}
}
