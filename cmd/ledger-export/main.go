// Command ledger-export performs a one-shot export of the action ledger to
// S3-compatible object storage as JSONL. Destination settings come from the
// same config layering as the server (-since narrows the window).
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/vyapaars/syncledger/internal/flagx"
	"github.com/vyapaars/syncledger/internal/logging"
	"github.com/vyapaars/syncledger/internal/server"
	"github.com/vyapaars/syncledger/internal/server/config"
	"github.com/vyapaars/syncledger/internal/server/export"
	"github.com/vyapaars/syncledger/internal/server/repositories/repomanager"
)

func main() {
	cfg := config.LoadConfig()
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	ctx := context.Background()

	since := parseSinceFlag()

	db, err := server.OpenDB(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Error(ctx, err.Error())
		os.Exit(1)
	}
	defer db.Close()

	dest, err := export.NewS3Destination(ctx, cfg.S3Bucket, cfg.ExportObjectKey, cfg.S3Region, cfg.S3BaseEndpoint)
	if err != nil {
		logger.Error(ctx, err.Error())
		os.Exit(1)
	}

	exporter := export.NewExporter(db, repomanager.NewPostgresRepositoryManager(), logger)
	n, err := exporter.Export(ctx, since, dest)
	if err != nil {
		logger.Error(ctx, err.Error())
		os.Exit(1)
	}

	logger.Info(ctx, "export finished", "records", n, "bucket", cfg.S3Bucket, "key", cfg.ExportObjectKey)
}

// parseSinceFlag reads the optional -since flag (RFC 3339). The zero time
// exports the whole ledger.
func parseSinceFlag() time.Time {
	args := flagx.FilterArgs(os.Args[1:], []string{"-since"})

	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	raw := fs.String("since", "", "export actions received at or after this RFC 3339 time")
	_ = fs.Parse(args)

	if *raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, *raw)
	if err != nil {
		slog.Error("invalid -since value", "value", *raw, "err", err)
		os.Exit(2)
	}
	return t
}
