package service

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratePasscode(t *testing.T) {
	tests := []struct {
		length  int
		pattern *regexp.Regexp
	}{
		{4, regexp.MustCompile(`^[1-9][0-9]{3}$`)},
		{6, regexp.MustCompile(`^[1-9][0-9]{5}$`)},
	}

	for _, tt := range tests {
		for i := 0; i < 200; i++ {
			passcode, err := GeneratePasscode(tt.length)
			require.NoError(t, err)
			assert.Regexp(t, tt.pattern, passcode)
		}
	}
}

func TestGeneratePasscodeRejectsOtherLengths(t *testing.T) {
	for _, length := range []int{0, 3, 5, 8} {
		_, err := GeneratePasscode(length)
		assert.ErrorIs(t, err, ErrInvalidPasscodeLength)
	}
}

func TestGenerateSlug(t *testing.T) {
	pattern := regexp.MustCompile(`^[0-9A-Za-z]{8}$`)
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		slug, err := GenerateSlug()
		require.NoError(t, err)
		assert.Regexp(t, pattern, slug)
		seen[slug] = true
	}
	assert.Greater(t, len(seen), 490)
}

func TestNormalizePasscode(t *testing.T) {
	tests := []struct {
		input    string
		expected string
		valid    bool
	}{
		{"123456", "123456", true},
		{"123-456", "123456", true},
		{" 12 34 ", "1234", true},
		{"12345", "", false},
		{"abcd", "", false},
		{"1234567", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := NormalizePasscode(tt.input)
			if !tt.valid {
				assert.ErrorIs(t, err, ErrInvalidPasscode)
				assert.True(t, IsValidation(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestValidateSlug(t *testing.T) {
	assert.NoError(t, ValidateSlug("aBcD1234"))
	assert.ErrorIs(t, ValidateSlug("short"), ErrInvalidSlug)
	assert.ErrorIs(t, ValidateSlug("toolong123"), ErrInvalidSlug)
}

func TestParsePasscodeLength(t *testing.T) {
	tests := []struct {
		input    string
		expected int
	}{
		{"", 6},
		{"4", 4},
		{" 6 ", 6},
		{"5", 5},
		{"0", 0},
		{"six", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParsePasscodeLength(tt.input))
		})
	}
}
