package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"burnshare/pkg/config"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("blob not found")

const defaultContentType = "application/octet-stream"

var keyPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.[a-z0-9]{1,16}$`)

type Object struct {
	Body        io.ReadCloser
	ContentType string
	Size        int64
}

// Store keeps opaque payloads by key. Delete of a missing key is not an error.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (*Object, error)
	Delete(ctx context.Context, key string) error
}

func New(ctx context.Context, conf config.Blob) (Store, error) {
	switch conf.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "s3":
		return NewS3Store(ctx, conf)
	case "minio":
		return NewMinioStore(ctx, conf)
	}
	return nil, fmt.Errorf("unsupported blob store %q", conf.Driver)
}

// NewKey returns a fresh random key. The extension of fileName is kept as a
// content hint only.
func NewKey(fileName string) string {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if ext == "" || len(ext) > 16 || strings.IndexFunc(ext, notAlnum) >= 0 {
		ext = "bin"
	}
	return uuid.New().String() + "." + ext
}

func notAlnum(r rune) bool {
	return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
}

// ValidKey reports whether key has the shape produced by NewKey.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// PublicURL is the download URL served by the file endpoint for key.
func PublicURL(baseURL, key string) string {
	return strings.TrimRight(baseURL, "/") + "/api/files/" + key
}

func contentTypeOrDefault(contentType string) string {
	if contentType == "" {
		return defaultContentType
	}
	return contentType
}
