package safefetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radif/ingest/internal/fileerr"
)

func allowAll(string) bool { return false }

func requireFetchError(t *testing.T, err error) *fileerr.Error {
	t.Helper()
	require.Error(t, err)
	fe, ok := fileerr.As(err)
	require.True(t, ok, "expected classified error, got %T", err)
	require.Equal(t, fileerr.KindFileFetchError, fe.Kind)
	return fe
}

func TestFetchReturnsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	data, err := NewFetcher(WithURLFilter(allowAll)).Fetch(context.Background(), srv.URL+"/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

func TestFetchBlockedURLNeverDials(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	_, err := NewFetcher().Fetch(context.Background(), srv.URL)
	fe := requireFetchError(t, err)
	assert.Equal(t, srv.URL, fe.URL)
	assert.Zero(t, hits.Load())

	_, err = NewFetcher().Fetch(context.Background(), "http://169.254.169.254/latest/meta-data")
	requireFetchError(t, err)
}

func TestFetchDoesNotFollowRedirects(t *testing.T) {
	var targetHits atomic.Int32
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		targetHits.Add(1)
		_, _ = w.Write([]byte("internal"))
	}))
	defer target.Close()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer srv.Close()

	_, err := NewFetcher(WithURLFilter(allowAll)).Fetch(context.Background(), srv.URL)
	fe := requireFetchError(t, err)
	assert.Contains(t, fe.Reason, "redirect")
	assert.Zero(t, targetHits.Load())
}

func TestFetchRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewFetcher(WithURLFilter(allowAll)).Fetch(context.Background(), srv.URL)
	fe := requireFetchError(t, err)
	assert.Contains(t, fe.Reason, "404")
}

func TestFetchTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	_, err := NewFetcher(WithURLFilter(allowAll), WithTimeout(100*time.Millisecond)).
		Fetch(context.Background(), srv.URL)
	fe := requireFetchError(t, err)
	assert.Contains(t, fe.Reason, "timed out")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetchCapsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	data, err := NewFetcher(WithURLFilter(allowAll), WithMaxBytes(10)).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, data, 11)
}
