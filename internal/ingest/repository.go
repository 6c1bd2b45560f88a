package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Record is the ledger row kept for each completed upload. File bytes are
// never stored.
type Record struct {
	BlobID      string    `json:"blobId"`
	Workspace   string    `json:"workspace"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	// UploadedBy is the authenticated subject of the caller, empty for
	// uploads made outside the HTTP API.
	UploadedBy  string    `json:"uploadedBy"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ErrNotFound is returned when no ledger row exists for a blob.
var ErrNotFound = errors.New("upload not found")

// ErrAlreadyExists is returned when a blob id is recorded twice.
var ErrAlreadyExists = errors.New("upload already recorded")

// Repository handles upload ledger database operations.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Record inserts a ledger row.
func (r *Repository) Record(ctx context.Context, rec Record) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO uploads (blob_id, workspace, filename, content_type, size, url, source, uploaded_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.BlobID, rec.Workspace, rec.Filename, rec.ContentType, rec.Size, rec.URL, rec.Source, rec.UploadedBy, rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("record upload: %w", err)
	}
	return nil
}

// GetByBlobID fetches the ledger row for blobID.
func (r *Repository) GetByBlobID(ctx context.Context, blobID string) (*Record, error) {
	rec := &Record{}
	err := r.db.QueryRow(ctx,
		`SELECT blob_id, workspace, filename, content_type, size, url, source, uploaded_by, created_at
		 FROM uploads WHERE blob_id = $1`,
		blobID,
	).Scan(&rec.BlobID, &rec.Workspace, &rec.Filename, &rec.ContentType, &rec.Size, &rec.URL, &rec.Source, &rec.UploadedBy, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get upload by blob id: %w", err)
	}
	return rec, nil
}

// Recent returns up to limit rows, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := r.db.Query(ctx,
		`SELECT blob_id, workspace, filename, content_type, size, url, source, uploaded_by, created_at
		 FROM uploads ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list uploads: %w", err)
	}
	recs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var rec Record
		err := row.Scan(&rec.BlobID, &rec.Workspace, &rec.Filename, &rec.ContentType, &rec.Size, &rec.URL, &rec.Source, &rec.UploadedBy, &rec.CreatedAt)
		return rec, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan uploads: %w", err)
	}
	return recs, nil
}

// isUniqueViolation checks whether an error is a PostgreSQL unique_violation (code 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
