// Package ingest turns caller-supplied file data (a local path, a remote URL or
// an inline base64 payload) into a validated blob on the storage backend.
package ingest

import "strings"

// Source identifies where the bytes of a Request come from.
type Source string

const (
	SourceNone Source = ""
	SourceFile Source = "file"
	SourceURL  Source = "url"
	SourceData Source = "data"
)

// Request is one upload. Exactly one of FilePath, FileURL or Data is expected;
// when several are set FilePath wins over FileURL, which wins over Data.
type Request struct {
	Filename    string `json:"filename"              example:"doc.pdf"`
	ContentType string `json:"contentType"           example:"application/pdf"`
	FilePath    string `json:"filePath,omitempty"    example:"/tmp/doc.pdf"`
	FileURL     string `json:"fileUrl,omitempty"     example:"https://example.com/doc.pdf"`
	Data        string `json:"data,omitempty"        example:"aGVsbG8="`
}

// Source returns the source that will be resolved.
func (r Request) Source() Source {
	switch {
	case strings.TrimSpace(r.FilePath) != "":
		return SourceFile
	case strings.TrimSpace(r.FileURL) != "":
		return SourceURL
	case strings.TrimSpace(r.Data) != "":
		return SourceData
	default:
		return SourceNone
	}
}

// Result describes a stored blob.
type Result struct {
	BlobID      string `json:"blobId"      example:"6630e1c2a4f3b2d1e0f9a8b7"`
	ContentType string `json:"contentType" example:"application/pdf"`
	Size        int64  `json:"size"        example:"5"`
	URL         string `json:"url"         example:"https://huly.example/files/acme/6630e1c2a4f3b2d1e0f9a8b7"`
}
