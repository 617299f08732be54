package service

import (
	"crypto/rand"
	"math/big"
	"strconv"
	"strings"
)

const (
	base62Chars = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

	SlugLength            = 8
	DefaultPasscodeLength = 6
)

// GeneratePasscode returns a uniformly random number in
// [10^(length-1), 10^length-1], so it never has a leading zero.
func GeneratePasscode(length int) (string, error) {
	if length != 4 && length != 6 {
		return "", ErrInvalidPasscodeLength
	}
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length-1)), nil)
	span := new(big.Int).Mul(low, big.NewInt(9))

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", err
	}
	return n.Add(n, low).String(), nil
}

func GenerateSlug() (string, error) {
	var result strings.Builder
	result.Grow(SlugLength)
	alphabet := big.NewInt(int64(len(base62Chars)))
	for i := 0; i < SlugLength; i++ {
		n, err := rand.Int(rand.Reader, alphabet)
		if err != nil {
			return "", err
		}
		result.WriteByte(base62Chars[n.Int64()])
	}
	return result.String(), nil
}

// NormalizePasscode drops everything but digits, so grouped input such as
// "123-456" resolves to "123456".
func NormalizePasscode(raw string) (string, error) {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, raw)
	if len(digits) != 4 && len(digits) != 6 {
		return "", &ValidationError{Err: ErrInvalidPasscode}
	}
	return digits, nil
}

func ValidateSlug(slug string) error {
	if len(slug) != SlugLength {
		return &ValidationError{Err: ErrInvalidSlug}
	}
	return nil
}

// ParsePasscodeLength reads the optional passcode_length form field; empty
// means the default. Anything unparsable comes back as 0, which validation
// rejects after the content checks.
func ParsePasscodeLength(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DefaultPasscodeLength
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return n
}
