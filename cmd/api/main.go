//	@title			Ingest API
//	@version		1.0
//	@description	File ingestion service: resolves local, remote and inline files and stores them in workspace storage.
//
//	@host		localhost:8080
//	@BasePath	/api/v1
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT Bearer token. Format: **Bearer {token}**

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/radif/ingest/internal/app"
	"github.com/radif/ingest/internal/config"
	"github.com/radif/ingest/internal/ingest"
	appMiddleware "github.com/radif/ingest/internal/middleware"
	"github.com/radif/ingest/internal/tools"

	_ "github.com/radif/ingest/docs/swagger"
)

func main() {
	logger := app.NewLogger(os.Getenv("LOG_LEVEL"))

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Error("config.load.failed", "error", err)
		os.Exit(1)
	}
	logger = app.NewLogger(cfg.LogLevel)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ctx := context.Background()
	pipeline, err := app.Build(ctx, cfg, logger, reg)
	if err != nil {
		logger.Error("pipeline.build.failed", "error", err)
		os.Exit(1)
	}
	defer pipeline.Close()

	// Wire dependencies: repository → service → handler
	var ledger ingest.Ledger
	if pipeline.Ledger != nil {
		ledger = pipeline.Ledger
	}
	fileHandler := ingest.NewHandler(pipeline.Service, ledger, cfg.AllowLocalPaths)
	mcpServer := tools.NewServer(pipeline.Service,
		tools.WithLocalPaths(cfg.AllowLocalPaths),
		tools.WithLogger(logger.With("sys", "mcp")),
	)

	// Router
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(appMiddleware.Logger(logger.With("sys", "http")))
	r.Use(chiMiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "Mcp-Session-Id"},
		ExposedHeaders: []string{"Mcp-Session-Id"},
		MaxAge:         300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","storage":"` + pipeline.Manager.State().String() + `"}`))
	})

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Swagger UI — available at http://localhost:8080/swagger/
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	// MCP over streamable HTTP, behind the same bearer token as the API.
	r.With(appMiddleware.RequireAuth(cfg.JWTSecret)).Handle("/mcp", tools.HTTPHandler(mcpServer))

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/files", func(r chi.Router) {
			r.Use(appMiddleware.RequireAuth(cfg.JWTSecret))
			fileHandler.Routes(r)
		})
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 15 * time.Second,
		// Bodies carry up to 100 MiB of base64 and uploads wait on remote fetches.
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server.listening", "port", cfg.Port, "env", cfg.AppEnv, "backend", cfg.StorageBackend)
		logger.Info("server.swagger", "url", "http://localhost:"+cfg.Port+"/swagger/")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server.failed", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	logger.Info("server.shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server.forced_shutdown", "error", err)
	}

	logger.Info("server.stopped")
}
