// Package storage manages the authenticated connection to the blob-storage
// backend and the writes performed over it.
//
// A Manager is the caller-owned scope: build one at startup, share it with
// every upload, and Close it on shutdown. The backend is chosen by the Dialer
// handed to the Manager: the platform's front upload endpoint or any
// S3-compatible store (MinIO, ArvanCloud, AWS S3).
package storage

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// WriteRequest is a single blob write.
type WriteRequest struct {
	Filename    string
	ContentType string
	Data        []byte
	Size        int64
}

// WriteResult is what the backend reports for a completed write.
type WriteResult struct {
	BlobID string
	Size   int64
}

// Backend stores blobs. Implementations must be safe for concurrent use.
type Backend interface {
	Write(ctx context.Context, req WriteRequest) (WriteResult, error)
}

// Endpoints are the storage URLs derived from the configured base URL.
type Endpoints struct {
	Files  string
	Upload string
}

const (
	filesPath  = "files"
	uploadPath = "upload"
)

// NewEndpoints joins base with the fixed files and upload paths.
func NewEndpoints(base string) (Endpoints, error) {
	base = strings.TrimSpace(base)
	u, err := url.Parse(base)
	if err != nil {
		return Endpoints{}, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Endpoints{}, fmt.Errorf("base url %q must be absolute", base)
	}
	files, err := url.JoinPath(base, filesPath)
	if err != nil {
		return Endpoints{}, fmt.Errorf("join files endpoint: %w", err)
	}
	upload, err := url.JoinPath(base, uploadPath)
	if err != nil {
		return Endpoints{}, fmt.Errorf("join upload endpoint: %w", err)
	}
	return Endpoints{Files: files, Upload: upload}, nil
}

// Connection is an authenticated channel to the backend. It is immutable once
// built and may be shared by concurrent uploads.
type Connection struct {
	endpoints Endpoints
	workspace string
	backend   Backend
}

// NewConnection binds a backend to its endpoints and workspace.
func NewConnection(endpoints Endpoints, workspace string, backend Backend) *Connection {
	return &Connection{
		endpoints: endpoints,
		workspace: workspace,
		backend:   backend,
	}
}

// Endpoints returns the storage endpoints.
func (c *Connection) Endpoints() Endpoints { return c.endpoints }

// Workspace returns the tenant the connection is scoped to.
func (c *Connection) Workspace() string { return c.workspace }

// Write stores one blob.
func (c *Connection) Write(ctx context.Context, req WriteRequest) (WriteResult, error) {
	return c.backend.Write(ctx, req)
}

// URLFor composes the access URL of blobID. It performs no I/O.
func (c *Connection) URLFor(blobID string) string {
	return strings.TrimRight(c.endpoints.Files, "/") + "/" +
		url.PathEscape(c.workspace) + "/" + url.PathEscape(blobID)
}

func (c *Connection) close() error {
	if closer, ok := c.backend.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
