package service

import (
	"errors"
	"fmt"
)

const mib = 1024 * 1024

var (
	ErrInvalidContentType    = errors.New("content type must be text, image or file")
	ErrEmptyContent          = errors.New("content cannot be empty")
	ErrInvalidPasscode       = errors.New("passcode must be 4 or 6 digits")
	ErrInvalidPasscodeLength = errors.New("passcode length must be 4 or 6")
	ErrInvalidSlug           = errors.New("invalid share link")
	ErrUnsupportedBody       = errors.New("request body must be JSON or multipart form data")
	ErrInvalidRating         = errors.New("rating must be an integer between 1 and 5")

	// ErrNotFound deliberately covers unknown, already used and expired
	// shares alike.
	ErrNotFound = errors.New("share not found, already viewed or expired")

	ErrGenerationExhausted = errors.New("could not allocate unique share credentials")
	ErrStorage             = errors.New("storage unavailable")
)

// ValidationError marks a client-fixable request problem.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

type FileTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("File size %.2fMB exceeds the %dMB limit", float64(e.Size)/mib, e.Limit/mib)
}

// IsValidation reports whether err should be answered with 400.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
