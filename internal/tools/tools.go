// Package tools exposes the upload pipeline as MCP tools.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"pkt.systems/pslog"

	"github.com/radif/ingest/internal/fileerr"
	"github.com/radif/ingest/internal/ingest"
)

const (
	ToolUploadFile = "upload_file"
	ToolGetFileURL = "get_file_url"
)

var descriptions = map[string]string{
	ToolUploadFile: "Upload a file to workspace storage. Provide filename, contentType and exactly one of " +
		"filePath (server-local path), fileUrl (public http(s) URL) or data (base64, data URL header allowed). " +
		"Returns the blob id, size and access URL.",
	ToolGetFileURL: "Return the access URL of a previously uploaded blob. Nothing is written; the first call may authenticate against storage.",
}

// UploadInput are the arguments of upload_file.
type UploadInput struct {
	Filename    string `json:"filename" jsonschema:"Name to store the file under"`
	ContentType string `json:"contentType" jsonschema:"Declared MIME type, e.g. application/pdf"`
	FilePath    string `json:"filePath,omitempty" jsonschema:"Absolute path of a file on the server"`
	FileURL     string `json:"fileUrl,omitempty" jsonschema:"Public http(s) URL to fetch the file from"`
	Data        string `json:"data,omitempty" jsonschema:"Base64 file content, optionally with a data URL header"`
}

// URLInput are the arguments of get_file_url.
type URLInput struct {
	BlobID string `json:"blobId" jsonschema:"Blob id returned by upload_file"`
}

// URLOutput is the result of get_file_url.
type URLOutput struct {
	BlobID string `json:"blobId"`
	URL    string `json:"url"`
}

// Option configures the tool server.
type Option func(*server)

// WithLocalPaths allows upload_file to read server-local paths.
func WithLocalPaths(allow bool) Option {
	return func(s *server) { s.allowLocalPaths = allow }
}

// WithLogger sets the logger.
func WithLogger(l pslog.Logger) Option {
	return func(s *server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithVersion sets the implementation version reported to clients.
func WithVersion(v string) Option {
	return func(s *server) { s.version = v }
}

type server struct {
	svc             *ingest.Service
	allowLocalPaths bool
	logger          pslog.Logger
	version         string
}

// NewServer builds an MCP server with the upload tools registered.
func NewServer(svc *ingest.Service, opts ...Option) *mcpsdk.Server {
	s := &server{svc: svc, logger: pslog.NoopLogger(), version: "dev"}
	for _, opt := range opts {
		opt(s)
	}
	srv := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name:    "ingest",
		Version: s.version,
	}, &mcpsdk.ServerOptions{
		Instructions: "Upload files into workspace storage with upload_file; resolve blob URLs with get_file_url.",
	})
	s.register(srv)
	return srv
}

// HTTPHandler serves srv over the streamable HTTP transport.
func HTTPHandler(srv *mcpsdk.Server) http.Handler {
	return mcpsdk.NewStreamableHTTPHandler(func(*http.Request) *mcpsdk.Server {
		return srv
	}, nil)
}

func (s *server) register(srv *mcpsdk.Server) {
	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        ToolUploadFile,
		Description: descriptions[ToolUploadFile],
	}, withStructuredToolErrors(s.handleUpload))
	mcpsdk.AddTool(srv, &mcpsdk.Tool{
		Name:        ToolGetFileURL,
		Description: descriptions[ToolGetFileURL],
	}, withStructuredToolErrors(s.handleURL))
}

func (s *server) handleUpload(ctx context.Context, _ *mcpsdk.CallToolRequest, in UploadInput) (*mcpsdk.CallToolResult, ingest.Result, error) {
	req := ingest.Request{
		Filename:    strings.TrimSpace(in.Filename),
		ContentType: in.ContentType,
		FilePath:    in.FilePath,
		FileURL:     in.FileURL,
		Data:        in.Data,
	}
	switch {
	case req.Filename == "":
		return nil, ingest.Result{}, fileerr.InvalidData("filename is required", nil)
	case strings.TrimSpace(req.ContentType) == "":
		return nil, ingest.Result{}, fileerr.InvalidData("contentType is required", nil)
	case req.Source() == ingest.SourceFile && !s.allowLocalPaths:
		return nil, ingest.Result{}, fileerr.InvalidData("local file paths are disabled on this server", nil)
	}

	s.logger.Debug("mcp.tool.call", "tool", ToolUploadFile, "source", string(req.Source()), "filename", req.Filename)
	res, err := s.svc.Upload(ctx, req)
	if err != nil {
		return nil, ingest.Result{}, err
	}
	return nil, *res, nil
}

func (s *server) handleURL(ctx context.Context, _ *mcpsdk.CallToolRequest, in URLInput) (*mcpsdk.CallToolResult, URLOutput, error) {
	s.logger.Debug("mcp.tool.call", "tool", ToolGetFileURL, "blob_id", in.BlobID)
	url, err := s.svc.URLFor(ctx, in.BlobID)
	if err != nil {
		return nil, URLOutput{}, err
	}
	return nil, URLOutput{BlobID: strings.TrimSpace(in.BlobID), URL: url}, nil
}

type toolErrorEnvelope struct {
	Kind      string `json:"kind"`
	Detail    string `json:"detail,omitempty"`
	Retryable bool   `json:"retryable"`
}

func withStructuredToolErrors[In, Out any](h mcpsdk.ToolHandlerFor[In, Out]) mcpsdk.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input In) (*mcpsdk.CallToolResult, Out, error) {
		res, out, err := h(ctx, req, input)
		if err == nil {
			return res, out, nil
		}
		var zero Out
		return nil, zero, toolError{Envelope: classifyToolError(err)}
	}
}

type toolError struct {
	Envelope toolErrorEnvelope
}

func (e toolError) Error() string {
	encoded, err := json.Marshal(map[string]any{"error": e.Envelope})
	if err != nil {
		return `{"error":{"kind":"tool_error","detail":"failed to encode error envelope"}}`
	}
	return string(encoded)
}

func classifyToolError(err error) toolErrorEnvelope {
	env := toolErrorEnvelope{Kind: "tool_error", Detail: strings.TrimSpace(err.Error())}
	if fe, ok := fileerr.As(err); ok {
		env.Kind = string(fe.Kind)
		env.Retryable = fe.Kind == fileerr.KindConnection
		return env
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		env.Kind = "timeout"
		env.Retryable = true
	}
	return env
}
