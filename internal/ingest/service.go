package ingest

import (
	"context"
	"strings"
	"time"

	"pkt.systems/pslog"

	"github.com/radif/ingest/internal/fileerr"
	"github.com/radif/ingest/internal/metrics"
	"github.com/radif/ingest/internal/middleware"
	"github.com/radif/ingest/internal/storage"
)

// Connector hands out the scope's storage connection. *storage.Manager
// implements it.
type Connector interface {
	Connect(ctx context.Context) (*storage.Connection, error)
	Invalidate(conn *storage.Connection)
}

// Recorder persists metadata about completed uploads.
type Recorder interface {
	Record(ctx context.Context, rec Record) error
}

// Service is the upload pipeline: resolve, validate, connect, write.
type Service struct {
	resolver *Resolver
	conns    Connector
	recorder Recorder
	logger   pslog.Logger
	metrics  *metrics.Metrics
	maxSize  int64
	now      func() time.Time
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRecorder enables the upload ledger.
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

// WithLogger sets the logger.
func WithLogger(l pslog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics sink.
func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

// NewService creates a new upload Service.
func NewService(resolver *Resolver, conns Connector, opts ...ServiceOption) *Service {
	s := &Service{
		resolver: resolver,
		conns:    conns,
		logger:   pslog.NoopLogger(),
		maxSize:  MaxFileSize,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Upload stores the file described by req. Size and content type are checked
// before the storage connection is touched.
func (s *Service) Upload(ctx context.Context, req Request) (*Result, error) {
	source := req.Source()
	res, err := s.upload(ctx, req)
	if err != nil {
		s.metrics.ObserveUpload(string(source), string(fileerr.KindOf(err)), 0)
		s.logger.Warn("ingest.upload.failed",
			"filename", req.Filename,
			"source", string(source),
			"kind", string(fileerr.KindOf(err)),
			"error", err,
		)
		return nil, err
	}
	s.metrics.ObserveUpload(string(source), "ok", res.Size)
	s.logger.Info("ingest.upload.ok",
		"filename", req.Filename,
		"source", string(source),
		"blob_id", res.BlobID,
		"size", res.Size,
	)
	return res, nil
}

func (s *Service) upload(ctx context.Context, req Request) (*Result, error) {
	data, err := s.resolver.Resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	size := int64(len(data))
	if err := CheckSize(size, s.maxSize); err != nil {
		return nil, err
	}
	contentType := strings.TrimSpace(req.ContentType)
	if err := CheckContentType(contentType); err != nil {
		return nil, err
	}

	conn, err := s.conns.Connect(ctx)
	if err != nil {
		return nil, err
	}
	written, err := conn.Write(ctx, storage.WriteRequest{
		Filename:    req.Filename,
		ContentType: contentType,
		Data:        data,
		Size:        size,
	})
	if err != nil {
		if storage.IsAuthFailure(err) {
			s.conns.Invalidate(conn)
		}
		return nil, fileerr.UploadFailed(req.Filename, err)
	}
	if written.Size == 0 {
		written.Size = size
	}

	res := &Result{
		BlobID:      written.BlobID,
		ContentType: contentType,
		Size:        written.Size,
		URL:         conn.URLFor(written.BlobID),
	}
	s.record(ctx, req, conn.Workspace(), res)
	return res, nil
}

func (s *Service) record(ctx context.Context, req Request, workspace string, res *Result) {
	if s.recorder == nil {
		return
	}
	err := s.recorder.Record(ctx, Record{
		BlobID:      res.BlobID,
		Workspace:   workspace,
		Filename:    req.Filename,
		ContentType: res.ContentType,
		Size:        res.Size,
		URL:         res.URL,
		Source:      string(req.Source()),
		UploadedBy:  middleware.Subject(ctx),
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		s.logger.Warn("ingest.ledger.record_failed", "blob_id", res.BlobID, "error", err)
	}
}

// URLFor returns the access URL of a stored blob. Nothing is written, but when
// no connection is cached yet the first call dials the storage backend (an
// accounts login or a bucket check). Later calls reuse the cached connection
// and perform no I/O.
func (s *Service) URLFor(ctx context.Context, blobID string) (string, error) {
	blobID = strings.TrimSpace(blobID)
	if blobID == "" {
		return "", fileerr.InvalidData("blob id is required", nil)
	}
	conn, err := s.conns.Connect(ctx)
	if err != nil {
		return "", err
	}
	return conn.URLFor(blobID), nil
}
