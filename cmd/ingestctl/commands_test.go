package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pkt.systems/pslog"

	"github.com/radif/ingest/internal/ingest"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand(pslog.NoopLogger())
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func frontEnv(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "/upload/acme", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "blob-" + r.URL.Query().Get("filename"), "size": len(body)})
	}))
	t.Cleanup(srv.Close)

	t.Setenv("STORAGE_BACKEND", "front")
	t.Setenv("HULY_URL", srv.URL)
	t.Setenv("HULY_TOKEN", "tok")
	t.Setenv("HULY_WORKSPACE", "acme")
	t.Setenv("DATABASE_URL", "")
	return srv.URL
}

func TestUploadCommandLocalFile(t *testing.T) {
	base := frontEnv(t)
	path := filepath.Join(t.TempDir(), "report.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0o600))

	out, err := run(t, "upload", "--file", path, "--type", "application/pdf")
	require.NoError(t, err)

	var res ingest.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "blob-report.pdf", res.BlobID)
	assert.Equal(t, int64(4), res.Size)
	assert.Equal(t, base+"/files/acme/blob-report.pdf", res.URL)
}

func TestUploadCommandRequiresSource(t *testing.T) {
	frontEnv(t)
	_, err := run(t, "upload", "--name", "a.txt", "--type", "text/plain")
	assert.ErrorContains(t, err, "--file, --url or --data")
}

func TestURLCommand(t *testing.T) {
	base := frontEnv(t)
	out, err := run(t, "url", "blob-9")
	require.NoError(t, err)
	assert.Equal(t, base+"/files/acme/blob-9", strings.TrimSpace(out))
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	out, err := run(t, "token", "--subject", "ci-bot", "--ttl", "1h")
	require.NoError(t, err)

	claims := &jwt.RegisteredClaims{}
	_, err = jwt.ParseWithClaims(strings.TrimSpace(out), claims, func(*jwt.Token) (interface{}, error) {
		return []byte("s3cret"), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ci-bot", claims.Subject)
}
