package ingest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pkt.systems/pslog"

	"github.com/radif/ingest/internal/db"
)

// testRepository connects to the database named by INGEST_TEST_DATABASE_URL
// and applies the migrations. Tests using it are skipped when it is unset.
func testRepository(t *testing.T) (*Repository, *pgxpool.Pool) {
	t.Helper()
	dsn := os.Getenv("INGEST_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("INGEST_TEST_DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger := pslog.NoopLogger()
	pool, err := db.Connect(ctx, dsn, logger)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	require.NoError(t, db.Migrate(dsn, logger))
	return NewRepository(pool), pool
}

func newRecord(createdAt time.Time) Record {
	id := uuid.NewString()
	return Record{
		BlobID:      id,
		Workspace:   "acme",
		Filename:    "doc.pdf",
		ContentType: "application/pdf",
		Size:        5,
		URL:         "https://huly.example/files/acme/" + id,
		Source:      "data",
		UploadedBy:  "ci-bot",
		CreatedAt:   createdAt,
	}
}

func cleanup(t *testing.T, pool *pgxpool.Pool, ids ...string) {
	t.Cleanup(func() {
		_, err := pool.Exec(context.Background(), `DELETE FROM uploads WHERE blob_id = ANY($1)`, ids)
		assert.NoError(t, err)
	})
}

func TestRepositoryRecordAndGet(t *testing.T) {
	repo, pool := testRepository(t)
	ctx := context.Background()

	rec := newRecord(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	cleanup(t, pool, rec.BlobID)
	require.NoError(t, repo.Record(ctx, rec))

	got, err := repo.GetByBlobID(ctx, rec.BlobID)
	require.NoError(t, err)
	assert.Equal(t, rec.BlobID, got.BlobID)
	assert.Equal(t, rec.Filename, got.Filename)
	assert.Equal(t, rec.Size, got.Size)
	assert.Equal(t, "ci-bot", got.UploadedBy)
	assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))
}

func TestRepositoryGetMissing(t *testing.T) {
	repo, _ := testRepository(t)

	_, err := repo.GetByBlobID(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepositoryRejectsDuplicateBlob(t *testing.T) {
	repo, pool := testRepository(t)
	ctx := context.Background()

	rec := newRecord(time.Now().UTC())
	cleanup(t, pool, rec.BlobID)
	require.NoError(t, repo.Record(ctx, rec))
	assert.ErrorIs(t, repo.Record(ctx, rec), ErrAlreadyExists)
}

func TestRepositoryRecentNewestFirst(t *testing.T) {
	repo, pool := testRepository(t)
	ctx := context.Background()

	// Far-future timestamps keep these rows ahead of anything else in the table.
	base := time.Date(2199, 1, 1, 0, 0, 0, 0, time.UTC)
	older := newRecord(base)
	newer := newRecord(base.Add(time.Hour))
	cleanup(t, pool, older.BlobID, newer.BlobID)
	require.NoError(t, repo.Record(ctx, older))
	require.NoError(t, repo.Record(ctx, newer))

	recs, err := repo.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, newer.BlobID, recs[0].BlobID)
	assert.Equal(t, older.BlobID, recs[1].BlobID)

	one, err := repo.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, newer.BlobID, one[0].BlobID)
}
