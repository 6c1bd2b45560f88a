package app

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pkt.systems/pslog"

	"github.com/radif/ingest/internal/config"
	"github.com/radif/ingest/internal/storage"
)

func TestTokenProviderSelection(t *testing.T) {
	p, err := TokenProvider(&config.Config{StorageBackend: config.BackendS3, HulyWorkspace: "acme"})
	require.NoError(t, err)
	s, err := p.Exchange(context.Background())
	require.NoError(t, err)
	assert.Equal(t, storage.Session{Workspace: "acme"}, s)

	p, err = TokenProvider(&config.Config{StorageBackend: config.BackendFront, HulyToken: "tok", HulyWorkspace: "acme"})
	require.NoError(t, err)
	s, err = p.Exchange(context.Background())
	require.NoError(t, err)
	assert.Equal(t, storage.Session{Token: "tok", Workspace: "acme"}, s)

	p, err = TokenProvider(&config.Config{StorageBackend: config.BackendFront, HulyEmail: "a@b.c", HulyPassword: "pw"})
	require.NoError(t, err)
	assert.IsType(t, &storage.AccountsClient{}, p)

	_, err = TokenProvider(&config.Config{StorageBackend: "ftp"})
	assert.Error(t, err)
}

func TestBuildWithoutLedger(t *testing.T) {
	cfg := &config.Config{
		StorageBackend: config.BackendFront,
		HulyURL:        "https://huly.example",
		HulyToken:      "tok",
		HulyWorkspace:  "acme",
	}
	p, err := Build(context.Background(), cfg, pslog.NoopLogger(), prometheus.NewRegistry())
	require.NoError(t, err)
	defer p.Close()

	assert.Nil(t, p.Ledger)
	assert.Equal(t, storage.StateUnconnected, p.Manager.State())

	url, err := p.Service.URLFor(context.Background(), "blob-1")
	require.NoError(t, err)
	assert.Equal(t, "https://huly.example/files/acme/blob-1", url)
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	_, err := Build(context.Background(), &config.Config{StorageBackend: config.BackendFront}, pslog.NoopLogger(), prometheus.NewRegistry())
	assert.ErrorContains(t, err, "invalid configuration")
}
