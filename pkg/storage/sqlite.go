package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Timestamps are stored as unix milliseconds so that range scans on
// expires_at compare integers.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS shares (
	id           TEXT NOT NULL PRIMARY KEY,
	passcode     TEXT NOT NULL,
	slug         TEXT NOT NULL,
	content_type TEXT NOT NULL CHECK (content_type IN ('text', 'image', 'file')),
	content_text TEXT,
	file_key     TEXT,
	file_name    TEXT,
	file_size    INTEGER,
	mime_type    TEXT,
	created_at   INTEGER NOT NULL,
	expires_at   INTEGER NOT NULL,
	accessed     INTEGER NOT NULL DEFAULT 0
);
CREATE UNIQUE INDEX IF NOT EXISTS shares_live_passcode ON shares (passcode) WHERE accessed = 0;
CREATE UNIQUE INDEX IF NOT EXISTS shares_live_slug ON shares (slug) WHERE accessed = 0;
CREATE UNIQUE INDEX IF NOT EXISTS shares_file_key ON shares (file_key) WHERE file_key IS NOT NULL;
CREATE INDEX IF NOT EXISTS shares_expires_at ON shares (expires_at);

CREATE TABLE IF NOT EXISTS reviews (
	id         TEXT NOT NULL PRIMARY KEY,
	rating     INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
	comment    TEXT,
	ip_hash    TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS reviews_created_at ON reviews (created_at);
`

type SQLiteStorage struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database file at path. ":memory:" gives
// a private in-memory database.
func OpenSQLite(path string) (*SQLiteStorage, error) {
	dsn := path
	if path != ":memory:" {
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection: SQLite serialises writers anyway, and ":memory:" is
	// per-connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", path, err)
	}
	return &SQLiteStorage{db: db}, nil
}

func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) InsertShare(ctx context.Context, share *Share) error {
	query := `INSERT INTO shares (` + shareColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		share.ID, share.Passcode, share.Slug, string(share.ContentType), share.ContentText,
		share.FileKey, share.FileName, share.FileSize, share.MimeType,
		share.CreatedAt.UnixMilli(), share.ExpiresAt.UnixMilli(), share.Accessed,
	)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return ErrConflict
		}
		return err
	}
	return nil
}

func (s *SQLiteStorage) FindLiveByPasscode(ctx context.Context, passcode string) (*Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE passcode = ? AND accessed = 0 LIMIT 1`
	return scanSQLiteShare(s.db.QueryRowContext(ctx, query, passcode))
}

func (s *SQLiteStorage) FindLiveBySlug(ctx context.Context, slug string) (*Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE slug = ? AND accessed = 0 LIMIT 1`
	return scanSQLiteShare(s.db.QueryRowContext(ctx, query, slug))
}

func (s *SQLiteStorage) FindByFileKey(ctx context.Context, key string) (*Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE file_key = ?`
	return scanSQLiteShare(s.db.QueryRowContext(ctx, query, key))
}

func (s *SQLiteStorage) ClaimShare(ctx context.Context, id string, notAfter time.Time) (bool, error) {
	query := `UPDATE shares SET accessed = 1, expires_at = MIN(expires_at, ?) WHERE id = ? AND accessed = 0`
	res, err := s.db.ExecContext(ctx, query, notAfter.UnixMilli(), id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *SQLiteStorage) DeleteShare(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM shares WHERE id = ?`, id)
	return err
}

func (s *SQLiteStorage) ListExpired(ctx context.Context, now time.Time) ([]*Share, error) {
	query := `SELECT ` + shareColumns + ` FROM shares WHERE expires_at < ? ORDER BY expires_at`
	rows, err := s.db.QueryContext(ctx, query, now.UnixMilli())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []*Share
	for rows.Next() {
		share, err := scanSQLiteShare(rows)
		if err != nil {
			return nil, err
		}
		shares = append(shares, share)
	}
	return shares, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteShare(row rowScanner) (*Share, error) {
	var share Share
	var contentType string
	var createdAt, expiresAt int64
	err := row.Scan(&share.ID, &share.Passcode, &share.Slug, &contentType, &share.ContentText,
		&share.FileKey, &share.FileName, &share.FileSize, &share.MimeType,
		&createdAt, &expiresAt, &share.Accessed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	share.ContentType = ContentType(contentType)
	share.CreatedAt = time.UnixMilli(createdAt).UTC()
	share.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	return &share, nil
}

func isSQLiteUniqueViolation(err error) bool {
	var sqliteErr *sqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *SQLiteStorage) CreateReview(ctx context.Context, review *Review) error {
	query := `INSERT INTO reviews (id, rating, comment, ip_hash, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, review.ID, review.Rating, review.Comment, review.IPHash, review.CreatedAt.UnixMilli())
	return err
}

func (s *SQLiteStorage) ListReviews(ctx context.Context, filter ReviewFilter) ([]*Review, error) {
	query := `SELECT id, rating, comment, created_at FROM reviews`
	args := []any{}
	if filter.Rating != nil {
		query += ` WHERE rating = ?`
		args = append(args, *filter.Rating)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, filter.Limit, filter.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]*Review, 0, filter.Limit)
	for rows.Next() {
		var review Review
		var createdAt int64
		if err := rows.Scan(&review.ID, &review.Rating, &review.Comment, &createdAt); err != nil {
			return nil, err
		}
		review.CreatedAt = time.UnixMilli(createdAt).UTC()
		reviews = append(reviews, &review)
	}
	return reviews, rows.Err()
}

func (s *SQLiteStorage) ReviewStats(ctx context.Context) (*ReviewStats, error) {
	query := `SELECT
		COUNT(*),
		COALESCE(AVG(rating), 0),
		COALESCE(SUM(CASE WHEN rating = 5 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN rating = 4 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN rating = 3 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN rating = 2 THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN rating = 1 THEN 1 ELSE 0 END), 0)
		FROM reviews`

	stats := NewReviewStats()
	var five, four, three, two, one int64
	err := s.db.QueryRowContext(ctx, query).Scan(&stats.Total, &stats.Average, &five, &four, &three, &two, &one)
	if err != nil {
		return nil, err
	}
	stats.Average = roundAverage(stats.Average)
	stats.Distribution = map[int]int64{5: five, 4: four, 3: three, 2: two, 1: one}
	return stats, nil
}
