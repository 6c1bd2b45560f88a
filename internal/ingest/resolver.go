package ingest

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/radif/ingest/internal/fileerr"
	"github.com/radif/ingest/internal/metrics"
)

// Fetcher retrieves a remote URL. Failures must be FileFetchError.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Resolver produces the bytes of a Request.
type Resolver struct {
	fetcher  Fetcher
	maxBytes int64
	metrics  *metrics.Metrics
}

// NewResolver returns a Resolver that fetches remote URLs with f.
func NewResolver(f Fetcher, m *metrics.Metrics) *Resolver {
	return &Resolver{fetcher: f, maxBytes: MaxFileSize, metrics: m}
}

// Resolve returns the bytes named by req's effective source.
func (r *Resolver) Resolve(ctx context.Context, req Request) ([]byte, error) {
	switch req.Source() {
	case SourceFile:
		return r.readLocal(strings.TrimSpace(req.FilePath))
	case SourceURL:
		return r.fetch(ctx, strings.TrimSpace(req.FileURL))
	case SourceData:
		return DecodePayload(req.Data)
	default:
		return nil, fileerr.InvalidData("no file source supplied", nil)
	}
}

func (r *Resolver) readLocal(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fileerr.NotFound(path, err)
		}
		return nil, fileerr.InvalidData("stat local file", err)
	}
	if info.IsDir() {
		return nil, fileerr.InvalidData("path is a directory", nil)
	}
	// Refuse before buffering rather than after.
	if info.Size() > r.maxBytes {
		return nil, fileerr.TooLarge(info.Size(), r.maxBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fileerr.NotFound(path, err)
		}
		return nil, fileerr.InvalidData("read local file", err)
	}
	return data, nil
}

func (r *Resolver) fetch(ctx context.Context, url string) ([]byte, error) {
	if r.fetcher == nil {
		return nil, fileerr.FetchFailed(url, "remote fetching is disabled", nil)
	}
	data, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		r.metrics.ObserveFetch("error")
		if fileerr.KindOf(err) == fileerr.KindFileFetchError {
			return nil, err
		}
		return nil, fileerr.FetchFailed(url, err.Error(), err)
	}
	r.metrics.ObserveFetch("ok")
	return data, nil
}
