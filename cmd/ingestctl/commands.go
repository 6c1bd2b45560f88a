package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"pkt.systems/pslog"

	"github.com/radif/ingest/internal/app"
	"github.com/radif/ingest/internal/auth"
	"github.com/radif/ingest/internal/config"
	"github.com/radif/ingest/internal/ingest"
	"github.com/radif/ingest/internal/tools"
)

func newRootCommand(logger pslog.Logger) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "ingestctl",
		Short:         "ingestctl uploads files into workspace storage",
		SilenceErrors: true,
		SilenceUsage:  true,
		Example: `
  # Upload a local file
  ingestctl upload --file ./report.pdf --type application/pdf

  # Upload from a public URL under a different name
  ingestctl upload --url https://example.com/a.png --name logo.png --type image/png

  # Mint a bearer token for the HTTP API
  JWT_SECRET=... ingestctl token --subject ci-bot --ttl 24h

  # Serve upload_file and get_file_url to an MCP client over stdio
  ingestctl mcp`,
	}
	cmd.AddCommand(
		newUploadCommand(logger),
		newURLCommand(logger),
		newTokenCommand(logger),
		newMCPCommand(logger),
	)
	return cmd
}

func loadPipeline(cmd *cobra.Command, logger pslog.Logger) (*app.Pipeline, *config.Config, error) {
	cfg, err := config.Load(logger)
	if err != nil {
		return nil, nil, err
	}
	p, err := app.Build(cmd.Context(), cfg, logger, prometheus.NewRegistry())
	if err != nil {
		return nil, nil, err
	}
	return p, cfg, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newUploadCommand(logger pslog.Logger) *cobra.Command {
	var req ingest.Request
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload one file from a local path, a URL or a base64 payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if req.Source() == ingest.SourceNone {
				return errors.New("one of --file, --url or --data is required")
			}
			if req.Filename == "" && req.FilePath != "" {
				req.Filename = filepath.Base(req.FilePath)
			}
			if req.Filename == "" {
				return errors.New("--name is required")
			}
			p, _, err := loadPipeline(cmd, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			res, err := p.Service.Upload(cmd.Context(), req)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), res)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&req.FilePath, "file", "", "local file to upload")
	flags.StringVar(&req.FileURL, "url", "", "public http(s) URL to fetch and upload")
	flags.StringVar(&req.Data, "data", "", "base64 payload (a data URL header is accepted)")
	flags.StringVar(&req.Filename, "name", "", "stored filename (defaults to the base name of --file)")
	flags.StringVar(&req.ContentType, "type", "", "declared MIME type")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newURLCommand(logger pslog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "url <blobId>",
		Short: "Print the access URL of a stored blob",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, _, err := loadPipeline(cmd, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			url, err := p.Service.URLFor(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), url)
			return err
		},
	}
}

func newTokenCommand(logger pslog.Logger) *cobra.Command {
	var subject string
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP API and /mcp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(logger)
			if err != nil {
				return err
			}
			token, err := auth.IssueToken(cfg.JWTSecret, subject, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "token subject (caller identity)")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTTL, "token lifetime")
	_ = cmd.MarkFlagRequired("subject")
	return cmd
}

func newMCPCommand(logger pslog.Logger) *cobra.Command {
	var allowLocal bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the upload tools over MCP stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, _, err := loadPipeline(cmd, logger)
			if err != nil {
				return err
			}
			defer p.Close()

			srv := tools.NewServer(p.Service,
				tools.WithLocalPaths(allowLocal),
				tools.WithLogger(logger.With("sys", "mcp")),
			)
			logger.Info("mcp.stdio.serving")
			return srv.Run(cmd.Context(), &mcpsdk.StdioTransport{})
		},
	}
	cmd.Flags().BoolVar(&allowLocal, "allow-local-paths", true, "let upload_file read files on this machine")
	return cmd
}
