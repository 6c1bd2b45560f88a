package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/radif/ingest/internal/fileerr"
)

func TestCheckSize(t *testing.T) {
	assert.NoError(t, CheckSize(0, MaxFileSize))
	assert.NoError(t, CheckSize(MaxFileSize, MaxFileSize))

	err := CheckSize(MaxFileSize+1, MaxFileSize)
	fe, ok := fileerr.As(err)
	require.True(t, ok)
	assert.Equal(t, fileerr.KindFileTooLarge, fe.Kind)
	assert.Equal(t, MaxFileSize+1, fe.Size)
	assert.Equal(t, MaxFileSize, fe.Limit)
}

func TestCheckContentTypeAllowlist(t *testing.T) {
	for _, ct := range AllowedContentTypes {
		assert.NoError(t, CheckContentType(ct), ct)
	}
	assert.NoError(t, CheckContentType("text/plain; charset=utf-8"))
	assert.NoError(t, CheckContentType("  Application/PDF "))
}

func TestCheckContentTypeRejects(t *testing.T) {
	for _, ct := range []string{
		"",
		"application/x-msdownload",
		"application/x-sh",
		"text/javascript",
		"image",
		"not a mime type",
	} {
		err := CheckContentType(ct)
		fe, ok := fileerr.As(err)
		require.True(t, ok, ct)
		assert.Equal(t, fileerr.KindInvalidContentType, fe.Kind)
		assert.Equal(t, ct, fe.ContentType)
		assert.NotEmpty(t, fe.Allowed)
	}
}

func TestRequestSourcePrecedence(t *testing.T) {
	assert.Equal(t, SourceFile, Request{FilePath: "/a", FileURL: "http://x", Data: "aA=="}.Source())
	assert.Equal(t, SourceURL, Request{FileURL: "http://x", Data: "aA=="}.Source())
	assert.Equal(t, SourceData, Request{Data: "aA=="}.Source())
	assert.Equal(t, SourceNone, Request{FilePath: "  "}.Source())
}
