// Package app wires configuration into a ready-to-use upload pipeline. Both the
// API server and ingestctl build their dependencies here.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"pkt.systems/pslog"

	"github.com/radif/ingest/internal/config"
	"github.com/radif/ingest/internal/db"
	"github.com/radif/ingest/internal/ingest"
	"github.com/radif/ingest/internal/metrics"
	"github.com/radif/ingest/internal/safefetch"
	"github.com/radif/ingest/internal/storage"
)

// NewLogger returns the process logger. INGEST_LOG_* variables tune the
// output; level, when valid, overrides the minimum level.
func NewLogger(level string) pslog.Logger {
	logger := pslog.LoggerFromEnv(
		pslog.WithEnvPrefix("INGEST_LOG_"),
		pslog.WithEnvOptions(pslog.Options{Mode: pslog.ModeStructured, MinLevel: pslog.InfoLevel}),
		pslog.WithEnvWriter(os.Stderr),
	).With("app", "ingest")
	if lvl, ok := pslog.ParseLevel(level); ok {
		logger = logger.LogLevel(lvl)
	}
	return logger
}

// TokenProvider selects how the storage session is obtained: a fixed
// workspace for S3, a pre-issued token, or a password login against the
// accounts service.
func TokenProvider(cfg *config.Config) (storage.TokenProvider, error) {
	switch cfg.StorageBackend {
	case config.BackendS3:
		return storage.FixedSession(storage.Session{Workspace: cfg.HulyWorkspace}), nil
	case config.BackendFront:
		if cfg.HulyToken != "" {
			return storage.NewStaticToken(cfg.HulyToken, cfg.HulyWorkspace)
		}
		return storage.NewAccountsClient(cfg.HulyAccountsURL, cfg.HulyEmail, cfg.HulyPassword, cfg.HulyWorkspace, nil), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// Dialer returns the backend dialer for cfg.StorageBackend.
func Dialer(cfg *config.Config, logger pslog.Logger) storage.Dialer {
	if cfg.StorageBackend == config.BackendS3 {
		return storage.MinioDialer(storage.S3Config{
			Endpoint:   cfg.StorageEndpoint,
			AccessKey:  cfg.StorageAccessKey,
			SecretKey:  cfg.StorageSecretKey,
			Bucket:     cfg.StorageBucket,
			PublicBase: cfg.StoragePublicBase,
			UseSSL:     cfg.StorageUseSSL,
			PublicRead: cfg.StoragePublicRead,
		}, logger)
	}
	return storage.FrontDialer(cfg.HulyURL, nil)
}

// Pipeline is the assembled upload stack.
type Pipeline struct {
	Service *ingest.Service
	Manager *storage.Manager
	Ledger  *ingest.Repository // nil when DATABASE_URL is empty
	Metrics *metrics.Metrics

	pool *pgxpool.Pool
}

// Build validates cfg and assembles the pipeline. Nothing is dialled except
// the ledger database, when configured; the storage connection is opened on
// first use.
func Build(ctx context.Context, cfg *config.Config, logger pslog.Logger, reg prometheus.Registerer) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	mt, err := metrics.New(reg)
	if err != nil {
		return nil, fmt.Errorf("register metrics: %w", err)
	}
	provider, err := TokenProvider(cfg)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{Metrics: mt}
	p.Manager = storage.NewManager(provider, Dialer(cfg, logger.With("sys", "storage")),
		storage.WithManagerLogger(logger.With("sys", "storage")),
		storage.WithManagerMetrics(mt),
	)

	opts := []ingest.ServiceOption{
		ingest.WithLogger(logger.With("sys", "ingest")),
		ingest.WithMetrics(mt),
	}
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(cfg.DatabaseURL, logger); err != nil {
			pool.Close()
			return nil, err
		}
		p.pool = pool
		p.Ledger = ingest.NewRepository(pool)
		opts = append(opts, ingest.WithRecorder(p.Ledger))
	}

	fetcher := safefetch.NewFetcher(
		safefetch.WithTimeout(cfg.FetchTimeout),
		safefetch.WithLogger(logger.With("sys", "fetch")),
	)
	p.Service = ingest.NewService(ingest.NewResolver(fetcher, mt), p.Manager, opts...)
	return p, nil
}

// Close releases the storage connection and the ledger pool.
func (p *Pipeline) Close() error {
	var errs []error
	if p.Manager != nil {
		errs = append(errs, p.Manager.Close())
	}
	if p.pool != nil {
		p.pool.Close()
	}
	return errors.Join(errs...)
}
