package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// FrontBackend writes blobs to the platform's upload endpoint with a PUT of
// the raw bytes.
type FrontBackend struct {
	client    *http.Client
	upload    string
	workspace string
	token     string
}

type frontUploadResponse struct {
	ID   string `json:"id"`
	Size int64  `json:"size"`
}

// Write implements Backend.
func (b *FrontBackend) Write(ctx context.Context, wr WriteRequest) (WriteResult, error) {
	target := strings.TrimRight(b.upload, "/") + "/" + url.PathEscape(b.workspace) +
		"?filename=" + url.QueryEscape(wr.Filename)

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(wr.Data))
	if err != nil {
		return WriteResult{}, fmt.Errorf("build upload request: %w", err)
	}
	req.ContentLength = wr.Size
	req.Header.Set("Content-Type", wr.ContentType)
	req.Header.Set("Authorization", "Bearer "+b.token)

	resp, err := b.client.Do(req)
	if err != nil {
		return WriteResult{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return WriteResult{}, fmt.Errorf("read upload response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return WriteResult{}, fmt.Errorf("upload endpoint returned %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var out frontUploadResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return WriteResult{}, fmt.Errorf("decode upload response: %w", err)
	}
	if strings.TrimSpace(out.ID) == "" {
		return WriteResult{}, errors.New("upload endpoint returned no blob id")
	}
	if out.Size == 0 {
		out.Size = wr.Size
	}
	return WriteResult{BlobID: out.ID, Size: out.Size}, nil
}

// FrontDialer returns a Dialer that binds the session token to the upload
// endpoint under baseURL. No request is made while dialing.
func FrontDialer(baseURL string, client *http.Client) Dialer {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Minute}
	}
	return func(_ context.Context, s Session) (*Connection, error) {
		endpoints, err := NewEndpoints(baseURL)
		if err != nil {
			return nil, err
		}
		if s.Workspace == "" {
			return nil, errors.New("session has no workspace")
		}
		backend := &FrontBackend{
			client:    client,
			upload:    endpoints.Upload,
			workspace: s.Workspace,
			token:     s.Token,
		}
		return NewConnection(endpoints, s.Workspace, backend), nil
	}
}
