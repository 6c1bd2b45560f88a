// Package fileerr defines the closed set of classified failures produced by the
// file ingestion pipeline. Every component returns one of these kinds instead of
// letting a raw I/O or network error escape.
package fileerr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dustin/go-humanize"
)

// Kind is the stable, machine-readable tag of a classified failure.
type Kind string

const (
	KindFileNotFound       Kind = "FileNotFound"
	KindInvalidFileData    Kind = "InvalidFileData"
	KindFileFetchError     Kind = "FileFetchError"
	KindInvalidContentType Kind = "InvalidContentType"
	KindFileTooLarge       Kind = "FileTooLarge"
	KindConnection         Kind = "HulyConnectionError"
	KindAuth               Kind = "HulyAuthError"
	KindFileUploadError    Kind = "FileUploadError"
)

// Kinds lists every kind in the taxonomy.
var Kinds = []Kind{
	KindFileNotFound,
	KindInvalidFileData,
	KindFileFetchError,
	KindInvalidContentType,
	KindFileTooLarge,
	KindConnection,
	KindAuth,
	KindFileUploadError,
}

// Error is a classified pipeline failure. Only the context fields relevant to
// Kind are populated.
type Error struct {
	Kind    Kind
	Message string

	Path        string
	URL         string
	Reason      string
	ContentType string
	Allowed     []string
	Size        int64
	Limit       int64

	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Message != "" {
		return e.Message
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) || t == nil {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" when err is
// not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// NotFound reports a local path that does not exist.
func NotFound(path string, err error) *Error {
	return &Error{
		Kind:    KindFileNotFound,
		Message: fmt.Sprintf("file not found: %s", path),
		Path:    path,
		Err:     err,
	}
}

// InvalidData reports undecodable, empty or unreadable input.
func InvalidData(reason string, err error) *Error {
	msg := "invalid file data: " + reason
	if err != nil {
		msg += ": " + err.Error()
	}
	return &Error{
		Kind:    KindInvalidFileData,
		Message: msg,
		Reason:  reason,
		Err:     err,
	}
}

// FetchFailed collapses every remote retrieval failure.
func FetchFailed(url, reason string, err error) *Error {
	return &Error{
		Kind:    KindFileFetchError,
		Message: fmt.Sprintf("failed to fetch %s: %s", url, reason),
		URL:     url,
		Reason:  reason,
		Err:     err,
	}
}

// BadContentType reports a declared MIME type outside the allowlist.
func BadContentType(contentType string, allowed []string) *Error {
	return &Error{
		Kind:        KindInvalidContentType,
		Message:     fmt.Sprintf("content type %q is not allowed", contentType),
		ContentType: contentType,
		Allowed:     append([]string(nil), allowed...),
	}
}

// TooLarge reports a buffer above the size ceiling.
func TooLarge(size, limit int64) *Error {
	return &Error{
		Kind: KindFileTooLarge,
		Message: fmt.Sprintf("file size %s exceeds limit of %s",
			humanize.IBytes(uint64(size)), humanize.IBytes(uint64(limit))),
		Size:  size,
		Limit: limit,
	}
}

// Connection reports a transient failure to reach the storage backend.
func Connection(err error) *Error {
	return &Error{
		Kind:    KindConnection,
		Message: "storage connection failed: " + errText(err),
		Reason:  errText(err),
		Err:     err,
	}
}

// Auth reports a permanent credential failure against the storage backend.
func Auth(err error) *Error {
	return &Error{
		Kind:    KindAuth,
		Message: "storage authentication failed: " + errText(err),
		Reason:  errText(err),
		Err:     err,
	}
}

// UploadFailed reports a backend write failure on an established connection.
func UploadFailed(filename string, err error) *Error {
	return &Error{
		Kind:    KindFileUploadError,
		Message: fmt.Sprintf("upload of %q failed: %s", filename, errText(err)),
		Path:    filename,
		Reason:  errText(err),
		Err:     err,
	}
}

// HTTPStatus maps a kind to the status code used by the HTTP transport.
func HTTPStatus(k Kind) int {
	switch k {
	case KindFileNotFound:
		return http.StatusNotFound
	case KindInvalidFileData:
		return http.StatusBadRequest
	case KindInvalidContentType:
		return http.StatusUnsupportedMediaType
	case KindFileTooLarge:
		return http.StatusRequestEntityTooLarge
	case KindConnection:
		return http.StatusServiceUnavailable
	case KindFileFetchError, KindAuth, KindFileUploadError:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errText(err error) string {
	if err == nil {
		return "unknown error"
	}
	return strings.TrimSpace(err.Error())
}
