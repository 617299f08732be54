package service

import (
	"strings"
	"testing"

	"burnshare/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCreateRequest(t *testing.T) {
	const limit = 300 * mib
	file := func(size int64) *FileUpload {
		return &FileUpload{Name: "a.png", Size: size, Body: strings.NewReader("x")}
	}

	tests := []struct {
		name     string
		req      CreateShareRequest
		expected error
	}{
		{"text ok", CreateShareRequest{ContentType: storage.ContentText, ContentText: "hi", PasscodeLength: 6}, nil},
		{"unknown type", CreateShareRequest{ContentType: "video", ContentText: "hi", PasscodeLength: 6}, ErrInvalidContentType},
		{"type checked first", CreateShareRequest{ContentType: "", PasscodeLength: 5}, ErrInvalidContentType},
		{"blank text", CreateShareRequest{ContentType: storage.ContentText, ContentText: " \n\t", PasscodeLength: 6}, ErrEmptyContent},
		{"missing file", CreateShareRequest{ContentType: storage.ContentImage, PasscodeLength: 6}, ErrEmptyContent},
		{"empty file", CreateShareRequest{ContentType: storage.ContentFile, File: file(0), PasscodeLength: 6}, ErrEmptyContent},
		{"exactly the limit", CreateShareRequest{ContentType: storage.ContentFile, File: file(limit), PasscodeLength: 4}, nil},
		{"bad passcode length", CreateShareRequest{ContentType: storage.ContentText, ContentText: "hi", PasscodeLength: 5}, ErrInvalidPasscodeLength},
		{"zero passcode length", CreateShareRequest{ContentType: storage.ContentText, ContentText: "hi"}, ErrInvalidPasscodeLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCreateRequest(&tt.req, limit)
			if tt.expected == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expected)
			assert.True(t, IsValidation(err))
		})
	}
}

func TestValidateCreateRequestFileTooLarge(t *testing.T) {
	const limit = 300 * mib
	req := &CreateShareRequest{
		ContentType:    storage.ContentImage,
		File:           &FileUpload{Name: "big.bin", Size: limit + 1, Body: strings.NewReader("x")},
		PasscodeLength: 6,
	}

	err := ValidateCreateRequest(req, limit)
	require.Error(t, err)
	assert.True(t, IsValidation(err))

	var tooLarge *FileTooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, int64(314572801), tooLarge.Size)
	assert.Equal(t, int64(314572800), tooLarge.Limit)
	assert.Equal(t, "File size 300.00MB exceeds the 300MB limit", err.Error())
}
