package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/radif/ingest/internal/response"
)

// maxRequestBody bounds the JSON body: a base64 payload of MaxFileSize plus
// room for the other fields.
const maxRequestBody = MaxFileSize/3*4 + 1<<20

// Ledger reads back recorded uploads. *Repository implements it.
type Ledger interface {
	GetByBlobID(ctx context.Context, blobID string) (*Record, error)
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// Handler holds HTTP handlers for the file endpoints.
type Handler struct {
	svc             *Service
	ledger          Ledger
	allowLocalPaths bool
}

// NewHandler creates a new file Handler. ledger may be nil, in which case the
// listing endpoints answer 503.
func NewHandler(svc *Service, ledger Ledger, allowLocalPaths bool) *Handler {
	return &Handler{svc: svc, ledger: ledger, allowLocalPaths: allowLocalPaths}
}

// Routes mounts the file endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Upload)
	r.Get("/", h.List)
	r.Get("/{blobId}", h.Get)
	r.Get("/{blobId}/url", h.URL)
}

// URLResponse is the body of the URL endpoint.
type URLResponse struct {
	BlobID string `json:"blobId" example:"6630e1c2a4f3b2d1e0f9a8b7"`
	URL    string `json:"url"    example:"https://huly.example/files/acme/6630e1c2a4f3b2d1e0f9a8b7"`
}

// Upload godoc
//
//	@Summary		Upload a file
//	@Description	Stores a file given as a server-local path, a remote URL or an inline base64 payload.
//	@Description	Exactly one source is expected; filePath wins over fileUrl, which wins over data.
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			body	body		Request	true	"File to upload"
//	@Success		201		{object}	response.Envelope{data=Result}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		403		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		413		{object}	response.Envelope
//	@Failure		415		{object}	response.Envelope
//	@Failure		502		{object}	response.Envelope
//	@Failure		503		{object}	response.Envelope
//	@Router			/files [post]
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		response.BadRequest(w, "invalid request body")
		return
	}

	req.Filename = strings.TrimSpace(req.Filename)
	if req.Filename == "" {
		response.BadRequest(w, "filename is required")
		return
	}
	if strings.TrimSpace(req.ContentType) == "" {
		response.BadRequest(w, "contentType is required")
		return
	}
	if req.Source() == SourceNone {
		response.BadRequest(w, "one of filePath, fileUrl or data is required")
		return
	}
	if req.Source() == SourceFile && !h.allowLocalPaths {
		response.Forbidden(w, "local file paths are disabled on this server")
		return
	}

	res, err := h.svc.Upload(r.Context(), req)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.Created(w, res)
}

// URL godoc
//
//	@Summary		Get the access URL of a blob
//	@Description	Composes the URL of a stored blob. Nothing is written and the blob is not checked for existence. The first call after startup may authenticate against storage.
//	@Tags			files
//	@Produce		json
//	@Security		BearerAuth
//	@Param			blobId	path		string	true	"Blob ID"
//	@Success		200		{object}	response.Envelope{data=URLResponse}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		502		{object}	response.Envelope
//	@Failure		503		{object}	response.Envelope
//	@Router			/files/{blobId}/url [get]
func (h *Handler) URL(w http.ResponseWriter, r *http.Request) {
	blobID := chi.URLParam(r, "blobId")
	url, err := h.svc.URLFor(r.Context(), blobID)
	if err != nil {
		response.FromError(w, err)
		return
	}
	response.OK(w, URLResponse{BlobID: blobID, URL: url})
}

// Get godoc
//
//	@Summary		Get an upload record
//	@Description	Returns the ledger record of a previous upload.
//	@Tags			files
//	@Produce		json
//	@Security		BearerAuth
//	@Param			blobId	path		string	true	"Blob ID"
//	@Success		200		{object}	response.Envelope{data=Record}
//	@Failure		401		{object}	response.Envelope
//	@Failure		404		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Failure		503		{object}	response.Envelope
//	@Router			/files/{blobId} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		response.ServiceUnavailable(w, "upload ledger is not configured")
		return
	}
	rec, err := h.ledger.GetByBlobID(r.Context(), chi.URLParam(r, "blobId"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "upload not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, rec)
}

// List godoc
//
//	@Summary		List recent uploads
//	@Description	Returns ledger records, newest first.
//	@Tags			files
//	@Produce		json
//	@Security		BearerAuth
//	@Param			limit	query		int	false	"Maximum records (1-500, default 50)"
//	@Success		200		{object}	response.Envelope{data=[]Record}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Failure		503		{object}	response.Envelope
//	@Router			/files [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.ledger == nil {
		response.ServiceUnavailable(w, "upload ledger is not configured")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}
	recs, err := h.ledger.Recent(r.Context(), limit)
	if err != nil {
		response.InternalError(w)
		return
	}
	if recs == nil {
		recs = []Record{}
	}
	response.OK(w, recs)
}
