// Command ingestctl uploads files and resolves blob URLs from the command line,
// mints API tokens, and serves the upload tools over MCP stdio.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/radif/ingest/internal/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := app.NewLogger(os.Getenv("LOG_LEVEL"))
	cmd := newRootCommand(logger)
	if err := cmd.ExecuteContext(ctx); err != nil {
		if ctx.Err() == nil {
			fmt.Fprintf(os.Stderr, "%s\n", err)
		}
		stop()
		os.Exit(1)
	}
}
