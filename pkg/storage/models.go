package storage

import (
	"time"
)

type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
	ContentFile  ContentType = "file"
)

// IsBinary reports whether the payload lives in the blob store.
func (c ContentType) IsBinary() bool {
	return c == ContentImage || c == ContentFile
}

type Share struct {
	ID          string      `json:"-" db:"id"`
	Passcode    string      `json:"passcode" db:"passcode"`
	Slug        string      `json:"slug" db:"slug"`
	ContentType ContentType `json:"content_type" db:"content_type"`
	ContentText *string     `json:"content_text,omitempty" db:"content_text"`
	FileKey     *string     `json:"-" db:"file_key"`
	FileName    *string     `json:"file_name,omitempty" db:"file_name"`
	FileSize    *int64      `json:"file_size,omitempty" db:"file_size"`
	MimeType    *string     `json:"mime_type,omitempty" db:"mime_type"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	ExpiresAt   time.Time   `json:"expires_at" db:"expires_at"`
	Accessed    bool        `json:"-" db:"accessed"`
}

type Review struct {
	ID        string    `json:"id" db:"id"`
	Rating    int       `json:"rating" db:"rating"`
	Comment   *string   `json:"comment" db:"comment"`
	IPHash    string    `json:"-" db:"ip_hash"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type ReviewFilter struct {
	Limit  int
	Offset int
	Rating *int
}

type ReviewStats struct {
	Total        int64         `json:"total"`
	Average      float64       `json:"average"`
	Distribution map[int]int64 `json:"distribution"`
}

// NewReviewStats returns stats with every rating bucket present.
func NewReviewStats() *ReviewStats {
	return &ReviewStats{Distribution: map[int]int64{5: 0, 4: 0, 3: 0, 2: 0, 1: 0}}
}
