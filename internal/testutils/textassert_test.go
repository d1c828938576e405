package testutils

import (
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
)

func TestTextAsserter_DefaultOptions(t *testing.T) {
	opts := NewTextAsserter(t).GetOptions()

	assert.False(t, opts.TrimSpace)
	assert.True(t, opts.IgnoreTrailingWhitespace)
	assert.False(t, opts.IgnoreEmptyLines)
	assert.True(t, opts.StripANSI)
	assert.False(t, opts.EnableColors)
}

func TestTextAsserter_Diff(t *testing.T) {
	tests := []struct {
		name      string
		opts      []TextOption
		actual    string
		expected  string
		wantMatch bool
	}{
		{
			name:      "identical",
			actual:    "NAME  ID\nMouse dev-1\n",
			expected:  "NAME  ID\nMouse dev-1\n",
			wantMatch: true,
		},
		{
			name:      "trailing whitespace ignored",
			actual:    "LEVEL   \n75%  ",
			expected:  "LEVEL\n75%",
			wantMatch: true,
		},
		{
			name:      "trailing whitespace significant",
			opts:      []TextOption{WithIgnoreTrailingWhitespace(false)},
			actual:    "LEVEL   ",
			expected:  "LEVEL",
			wantMatch: false,
		},
		{
			name:      "empty lines ignored",
			opts:      []TextOption{WithIgnoreEmptyLines(true)},
			actual:    "a\n\nb",
			expected:  "a\nb",
			wantMatch: true,
		},
		{
			name:      "trim space",
			opts:      []TextOption{WithTrimSpace(true)},
			actual:    "\n\n  done\n",
			expected:  "done",
			wantMatch: true,
		},
		{
			name:      "different content",
			actual:    "75%",
			expected:  "80%",
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			diff := NewTextAsserter(t).WithOptions(tt.opts...).Diff(tt.actual, tt.expected)
			if tt.wantMatch {
				assert.Empty(t, diff)
			} else {
				assert.NotEmpty(t, diff)
			}
		})
	}
}

func TestTextAsserter_StripsColorCodes(t *testing.T) {
	red := color.New(color.FgRed)
	red.EnableColor()

	NewTextAsserter(t).Assert(red.Sprint("15%"), "15%")
}

func TestTextAsserter_ColorizedDiff(t *testing.T) {
	diff := NewTextAsserter(t).WithOptions(WithEnableColors(true)).Diff("a b", "a c")

	assert.Contains(t, diff, "\x1b[")
	assert.Contains(t, diff, "a·b")
}

func TestTextAsserter_ReportsFailure(t *testing.T) {
	rec := &recordingT{}
	NewTextAsserter(rec).Assert("actual", "expected")

	if assert.Len(t, rec.failures, 1) {
		assert.Contains(t, rec.failures[0], "unified diff")
	}
}
