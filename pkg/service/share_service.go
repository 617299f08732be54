package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"burnshare/pkg/blob"
	"burnshare/pkg/config"
	"burnshare/pkg/logging"
	"burnshare/pkg/metrics"
	"burnshare/pkg/storage"

	"github.com/google/uuid"
)

const defaultMimeType = "application/octet-stream"

type ShareConfig struct {
	MaxFileSize      int64
	Retention        time.Duration
	CreateAttempts   int
	ClaimedFileGrace time.Duration
	PublicBaseURL    string
}

func DefaultShareConfig() ShareConfig {
	return ShareConfig{
		MaxFileSize:      300 * mib,
		Retention:        24 * time.Hour,
		CreateAttempts:   3,
		ClaimedFileGrace: 15 * time.Minute,
	}
}

func NewShareConfig(conf *config.Config) ShareConfig {
	return ShareConfig{
		MaxFileSize:      conf.Share.MaxFileSize,
		Retention:        conf.Share.Retention,
		CreateAttempts:   conf.Share.CreateAttempts,
		ClaimedFileGrace: conf.Share.ClaimedFileGrace,
		PublicBaseURL:    conf.HTTP.PublicBaseURL,
	}
}

type ShareService struct {
	shares storage.ShareStorage
	blobs  blob.Store
	logger *logging.Logger
	cfg    ShareConfig
	now    func() time.Time
}

func NewShareService(shares storage.ShareStorage, blobs blob.Store, logger *logging.Logger, cfg ShareConfig) *ShareService {
	return &ShareService{
		shares: shares,
		blobs:  blobs,
		logger: logger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (s *ShareService) WithClock(now func() time.Time) *ShareService {
	s.now = now
	return s
}

func (s *ShareService) Config() ShareConfig {
	return s.cfg
}

type CreateShareResponse struct {
	Passcode  string    `json:"passcode"`
	Slug      string    `json:"slug"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SharePayload is what the single successful retrieval hands back.
type SharePayload struct {
	ContentType storage.ContentType `json:"content_type"`
	ContentText *string             `json:"content_text,omitempty"`
	FileURL     *string             `json:"file_url,omitempty"`
	FileName    *string             `json:"file_name,omitempty"`
	FileSize    *int64              `json:"file_size,omitempty"`
	MimeType    *string             `json:"mime_type,omitempty"`
}

// IsLive is the one visibility rule: not yet claimed and not yet expired.
func IsLive(share *storage.Share, now time.Time) bool {
	return !share.Accessed && now.Before(share.ExpiresAt)
}

func (s *ShareService) Create(ctx context.Context, req *CreateShareRequest) (*CreateShareResponse, error) {
	if err := ValidateCreateRequest(req, s.cfg.MaxFileSize); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	share := &storage.Share{
		ID:          uuid.New().String(),
		ContentType: req.ContentType,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.cfg.Retention),
	}

	if req.ContentType.IsBinary() {
		key := blob.NewKey(req.File.Name)
		mimeType := req.File.MimeType
		if mimeType == "" {
			mimeType = defaultMimeType
		}
		// blob first: a failed insert leaves an orphan blob, never a row
		// pointing at nothing
		if err := s.blobs.Put(ctx, key, req.File.Body, req.File.Size, mimeType); err != nil {
			s.logger.LogShareOperation(ctx, "create", string(req.ContentType), false)
			return nil, fmt.Errorf("%w: store file: %w", ErrStorage, err)
		}
		fileName := req.File.Name
		size := req.File.Size
		share.FileKey = &key
		share.FileName = &fileName
		share.FileSize = &size
		share.MimeType = &mimeType
	} else {
		text := req.ContentText
		share.ContentText = &text
	}

	attempts := max(s.cfg.CreateAttempts, 1)
	for attempt := 0; attempt < attempts; attempt++ {
		passcode, err := GeneratePasscode(req.PasscodeLength)
		if err != nil {
			s.discardBlob(ctx, share)
			return nil, err
		}
		slug, err := GenerateSlug()
		if err != nil {
			s.discardBlob(ctx, share)
			return nil, err
		}
		share.Passcode = passcode
		share.Slug = slug

		err = s.shares.InsertShare(ctx, share)
		if err == nil {
			metrics.SharesCreated.WithLabelValues(string(share.ContentType)).Inc()
			s.logger.LogShareOperation(ctx, "create", string(share.ContentType), true)
			return &CreateShareResponse{
				Passcode:  passcode,
				Slug:      slug,
				ExpiresAt: share.ExpiresAt,
			}, nil
		}
		if !errors.Is(err, storage.ErrConflict) {
			s.discardBlob(ctx, share)
			s.logger.LogShareOperation(ctx, "create", string(share.ContentType), false)
			return nil, fmt.Errorf("%w: insert share: %w", ErrStorage, err)
		}

		metrics.CredentialConflicts.Inc()
		s.logger.Debug(ctx, "credential collision, regenerating", "attempt", attempt+1)
	}

	s.discardBlob(ctx, share)
	s.logger.LogShareOperation(ctx, "create", string(share.ContentType), false)
	return nil, ErrGenerationExhausted
}

func (s *ShareService) RetrieveByPasscode(ctx context.Context, raw string) (*SharePayload, error) {
	passcode, err := NormalizePasscode(raw)
	if err != nil {
		return nil, err
	}
	share, err := s.shares.FindLiveByPasscode(ctx, passcode)
	if err != nil {
		return nil, fmt.Errorf("%w: find share: %w", ErrStorage, err)
	}
	return s.claim(ctx, share, "passcode")
}

func (s *ShareService) RetrieveBySlug(ctx context.Context, slug string) (*SharePayload, error) {
	if err := ValidateSlug(slug); err != nil {
		return nil, err
	}
	share, err := s.shares.FindLiveBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("%w: find share: %w", ErrStorage, err)
	}
	return s.claim(ctx, share, "slug")
}

// claim is the single winning retrieval. The compare-and-set on accessed
// serialises concurrent callers; text rows are then deleted before the
// payload leaves, binary rows stay claimed until the file is downloaded or
// the grace period runs out.
func (s *ShareService) claim(ctx context.Context, share *storage.Share, via string) (*SharePayload, error) {
	if share == nil {
		metrics.RetrievalMisses.Inc()
		return nil, ErrNotFound
	}

	now := s.now()
	if !IsLive(share, now) {
		if err := s.destroy(ctx, share); err != nil {
			s.logger.Warn(ctx, "lazy expiry failed", "error", err)
		}
		metrics.RetrievalMisses.Inc()
		return nil, ErrNotFound
	}

	won, err := s.shares.ClaimShare(ctx, share.ID, now.Add(s.cfg.ClaimedFileGrace))
	if err != nil {
		return nil, fmt.Errorf("%w: claim share: %w", ErrStorage, err)
	}
	if !won {
		metrics.RetrievalMisses.Inc()
		return nil, ErrNotFound
	}

	if !share.ContentType.IsBinary() {
		if err := s.shares.DeleteShare(ctx, share.ID); err != nil {
			// the row is claimed and invisible; the sweep removes it later
			s.logger.LogShareOperation(ctx, "retrieve", string(share.ContentType), false)
			return nil, fmt.Errorf("%w: delete share: %w", ErrStorage, err)
		}
	}

	metrics.SharesRetrieved.WithLabelValues(via).Inc()
	s.logger.LogShareOperation(ctx, "retrieve", string(share.ContentType), true)
	return s.payload(share), nil
}

func (s *ShareService) payload(share *storage.Share) *SharePayload {
	p := &SharePayload{
		ContentType: share.ContentType,
		ContentText: share.ContentText,
		FileName:    share.FileName,
		FileSize:    share.FileSize,
		MimeType:    share.MimeType,
	}
	if share.FileKey != nil {
		url := blob.PublicURL(s.cfg.PublicBaseURL, *share.FileKey)
		p.FileURL = &url
	}
	return p
}

// destroy removes the row, then the blob. A failed blob delete is logged
// and counted; the share is already unreachable so the call still succeeds.
func (s *ShareService) destroy(ctx context.Context, share *storage.Share) error {
	if err := s.shares.DeleteShare(ctx, share.ID); err != nil {
		return fmt.Errorf("%w: delete share: %w", ErrStorage, err)
	}
	if share.FileKey != nil {
		s.deleteBlob(ctx, *share.FileKey)
	}
	return nil
}

func (s *ShareService) deleteBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		metrics.OrphanedBlobs.Inc()
		s.logger.Warn(ctx, "blob delete failed, leaving orphan", "key", key, "error", err)
	}
}

func (s *ShareService) discardBlob(ctx context.Context, share *storage.Share) {
	if share.FileKey != nil {
		s.deleteBlob(ctx, *share.FileKey)
	}
}

type FileDownload struct {
	*blob.Object
	FileName string
}

// OpenFile streams the blob of a claimed share. Only claimed shares inside
// their grace period are served; anything else is not found.
func (s *ShareService) OpenFile(ctx context.Context, key string) (*FileDownload, error) {
	if !blob.ValidKey(key) {
		return nil, ErrNotFound
	}

	share, err := s.shares.FindByFileKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%w: find share: %w", ErrStorage, err)
	}
	if share == nil || !share.Accessed || !s.now().Before(share.ExpiresAt) {
		return nil, ErrNotFound
	}

	obj, err := s.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: open file: %w", ErrStorage, err)
	}
	if share.MimeType != nil {
		obj.ContentType = *share.MimeType
	}

	download := &FileDownload{Object: obj}
	if share.FileName != nil {
		download.FileName = *share.FileName
	}
	return download, nil
}

// FinishDownload destroys the share that owns key once its bytes have been
// handed to the response.
func (s *ShareService) FinishDownload(ctx context.Context, key string) error {
	share, err := s.shares.FindByFileKey(ctx, key)
	if err != nil {
		return fmt.Errorf("%w: find share: %w", ErrStorage, err)
	}
	if share == nil {
		s.deleteBlob(ctx, key)
		return nil
	}
	if err := s.destroy(ctx, share); err != nil {
		return err
	}
	s.logger.LogShareOperation(ctx, "download", string(share.ContentType), true)
	return nil
}
