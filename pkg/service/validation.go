package service

import (
	"io"
	"strings"

	"burnshare/pkg/storage"
)

type FileUpload struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
}

// CreateShareRequest is the normalized create input, whatever the wire
// format was.
type CreateShareRequest struct {
	ContentType    storage.ContentType
	ContentText    string
	File           *FileUpload
	PasscodeLength int
}

// ValidateCreateRequest stops at the first rule that fails: content type,
// text, file presence, file size, passcode length.
func ValidateCreateRequest(req *CreateShareRequest, maxFileSize int64) error {
	switch req.ContentType {
	case storage.ContentText, storage.ContentImage, storage.ContentFile:
	default:
		return &ValidationError{Err: ErrInvalidContentType}
	}

	if req.ContentType == storage.ContentText {
		if strings.TrimSpace(req.ContentText) == "" {
			return &ValidationError{Err: ErrEmptyContent}
		}
	} else {
		if req.File == nil || req.File.Body == nil || req.File.Size <= 0 {
			return &ValidationError{Err: ErrEmptyContent}
		}
		if req.File.Size > maxFileSize {
			return &ValidationError{Err: &FileTooLargeError{Size: req.File.Size, Limit: maxFileSize}}
		}
	}

	if req.PasscodeLength != 4 && req.PasscodeLength != 6 {
		return &ValidationError{Err: ErrInvalidPasscodeLength}
	}
	return nil
}
