package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgUniqueViolation = "23505"

const postgresSchema = `
CREATE TABLE IF NOT EXISTS shares (
	id           TEXT PRIMARY KEY,
	passcode     TEXT NOT NULL,
	slug         TEXT NOT NULL,
	content_type TEXT NOT NULL CHECK (content_type IN ('text', 'image', 'file')),
	content_text TEXT,
	file_key     TEXT,
	file_name    TEXT,
	file_size    BIGINT,
	mime_type    TEXT,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at   TIMESTAMPTZ NOT NULL,
	accessed     BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE UNIQUE INDEX IF NOT EXISTS shares_live_passcode ON shares (passcode) WHERE NOT accessed;
CREATE UNIQUE INDEX IF NOT EXISTS shares_live_slug ON shares (slug) WHERE NOT accessed;
CREATE UNIQUE INDEX IF NOT EXISTS shares_file_key ON shares (file_key) WHERE file_key IS NOT NULL;
CREATE INDEX IF NOT EXISTS shares_expires_at ON shares (expires_at);

CREATE TABLE IF NOT EXISTS reviews (
	id         TEXT PRIMARY KEY,
	rating     SMALLINT NOT NULL CHECK (rating BETWEEN 1 AND 5),
	comment    TEXT,
	ip_hash    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS reviews_created_at ON reviews (created_at DESC);
`

const shareColumns = `id, passcode, slug, content_type, content_text, file_key, file_name, file_size, mime_type, created_at, expires_at, accessed`

type PostgresStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresStorage(pool *pgxpool.Pool) *PostgresStorage {
	return &PostgresStorage{pool: pool}
}

func (s *PostgresStorage) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("migrate postgres schema: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStorage) InsertShare(ctx context.Context, share *Share) error {
	query := `INSERT INTO shares (` + shareColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := s.pool.Exec(ctx, query,
		share.ID, share.Passcode, share.Slug, string(share.ContentType), share.ContentText,
		share.FileKey, share.FileName, share.FileSize, share.MimeType,
		share.CreatedAt, share.ExpiresAt, share.Accessed,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *PostgresStorage) FindLiveByPasscode(ctx context.Context, passcode string) (*Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE passcode = $1 AND NOT accessed LIMIT 1`
	return scanPostgresShare(s.pool.QueryRow(ctx, query, passcode))
}

func (s *PostgresStorage) FindLiveBySlug(ctx context.Context, slug string) (*Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE slug = $1 AND NOT accessed LIMIT 1`
	return scanPostgresShare(s.pool.QueryRow(ctx, query, slug))
}

func (s *PostgresStorage) FindByFileKey(ctx context.Context, key string) (*Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE file_key = $1`
	return scanPostgresShare(s.pool.QueryRow(ctx, query, key))
}

func (s *PostgresStorage) ClaimShare(ctx context.Context, id string, notAfter time.Time) (bool, error) {
	query := `UPDATE shares SET accessed = TRUE, expires_at = LEAST(expires_at, $2) WHERE id = $1 AND NOT accessed`
	tag, err := s.pool.Exec(ctx, query, id, notAfter)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *PostgresStorage) DeleteShare(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM shares WHERE id = $1`, id)
	return err
}

func (s *PostgresStorage) ListExpired(ctx context.Context, now time.Time) ([]*Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE expires_at < $1 ORDER BY expires_at`
	rows, err := s.pool.Query(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []*Share
	for rows.Next() {
		share, err := scanPostgresShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, share)
	}
	return shares, rows.Err()
}

func scanPostgresShare(row pgx.Row) (*Share, error) {
	var share Share
	var contentType string
	err := row.Scan(&share.ID, &share.Passcode, &share.Slug, &contentType, &share.ContentText,
		&share.FileKey, &share.FileName, &share.FileSize, &share.MimeType,
		&share.CreatedAt, &share.ExpiresAt, &share.Accessed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	share.ContentType = ContentType(contentType)
	return &share, nil
}

func (s *PostgresStorage) CreateReview(ctx context.Context, review *Review) error {
	query := `INSERT INTO reviews (id, rating, comment, ip_hash, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := s.pool.Exec(ctx, query, review.ID, review.Rating, review.Comment, review.IPHash, review.CreatedAt)
	return err
}

func (s *PostgresStorage) ListReviews(ctx context.Context, filter ReviewFilter) ([]*Review, error) {
	query := `SELECT id, rating, comment, created_at FROM reviews
		WHERE ($1::SMALLINT IS NULL OR rating = $1)
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	rows, err := s.pool.Query(ctx, query, filter.Rating, filter.Limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]*Review, 0, filter.Limit)
	for rows.Next() {
		var review Review
		if err := rows.Scan(&review.ID, &review.Rating, &review.Comment, &review.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, &review)
	}
	return reviews, rows.Err()
}

func (s *PostgresStorage) ReviewStats(ctx context.Context) (*ReviewStats, error) {
	query := `SELECT
		COUNT(*),
		COALESCE(AVG(rating), 0)::FLOAT8,
		COALESCE(SUM(CASE WHEN rating = 5 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN rating = 4 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN rating = 3 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN rating = 2 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN rating = 1 THEN 1 ELSE 0 END), 0)
		FROM reviews`

	stats := NewReviewStats()
	var five, four, three, two, one int64
	err := s.pool.QueryRow(ctx, query).Scan(&stats.Total, &stats.Average, &five, &four, &three, &two, &one)
	if err != nil {
		return nil, err
	}
	stats.Average = roundAverage(stats.Average)
	stats.Distribution = map[int]int64{5: five, 4: four, 3: three, 2: two, 1: one}
	return stats, nil
}

func roundAverage(avg float64) float64 {
	return math.Round(avg*100) / 100
}
