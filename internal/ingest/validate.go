package ingest

import (
	"mime"
	"strings"

	"github.com/radif/ingest/internal/fileerr"
)

// MaxFileSize is the largest accepted upload.
const MaxFileSize int64 = 100 << 20

// AllowedContentTypes are the declared MIME types accepted for upload. The
// declared type is trusted; file contents are not sniffed.
var AllowedContentTypes = []string{
	// images
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"image/svg+xml",
	"image/bmp",
	"image/tiff",
	"image/x-icon",
	// documents
	"application/pdf",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.ms-excel",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.ms-powerpoint",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"application/vnd.oasis.opendocument.text",
	"application/vnd.oasis.opendocument.spreadsheet",
	"application/rtf",
	"text/plain",
	"text/csv",
	"text/markdown",
	"text/html",
	"application/json",
	"application/xml",
	"text/xml",
	// archives
	"application/zip",
	"application/gzip",
	"application/x-tar",
	"application/x-7z-compressed",
	"application/vnd.rar",
	// audio / video
	"audio/mpeg",
	"audio/wav",
	"audio/ogg",
	"audio/webm",
	"video/mp4",
	"video/webm",
	"video/ogg",
	"video/quicktime",
	// generic binary
	"application/octet-stream",
}

var allowedSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(AllowedContentTypes))
	for _, ct := range AllowedContentTypes {
		set[ct] = struct{}{}
	}
	return set
}()

// CheckSize fails with FileTooLarge when size exceeds limit.
func CheckSize(size, limit int64) error {
	if size > limit {
		return fileerr.TooLarge(size, limit)
	}
	return nil
}

// CheckContentType fails with InvalidContentType unless the media type of ct,
// ignoring parameters and case, is allowlisted.
func CheckContentType(ct string) error {
	if _, ok := allowedSet[mediaType(ct)]; !ok {
		return fileerr.BadContentType(ct, AllowedContentTypes)
	}
	return nil
}

func mediaType(ct string) string {
	ct = strings.TrimSpace(ct)
	if parsed, _, err := mime.ParseMediaType(ct); err == nil {
		return parsed
	}
	return strings.ToLower(ct)
}
