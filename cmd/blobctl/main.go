// Command blobctl uploads, downloads, lists, and deletes objects through a
// blobvault client configured from the environment.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/stackline-io/blobvault"
	"github.com/stackline-io/blobvault/config"
	"github.com/stackline-io/blobvault/errors"
	"github.com/stackline-io/blobvault/internal/metrics"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "blobctl:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		key   = flag.String("key", "", "object key (generated from the file name when empty on upload)")
		owner = flag.String("owner", "", "owner to scope generated keys and metadata under")
	)
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		return fmt.Errorf("usage: blobctl [flags] upload|download|list|delete [args]")
	}

	log, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck // best-effort flush on exit

	cfg := config.FromEnv()

	metrics.Init()
	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil {
				log.Warn("metrics server stopped", zap.Error(err))
			}
		}()
	}

	client, err := blobvault.New(
		blobvault.WithBucket(cfg.Bucket),
		blobvault.WithRegion(cfg.Region),
		blobvault.WithEndpoint(cfg.Endpoint),
		blobvault.WithForcePathStyle(cfg.ForcePathStyle),
		blobvault.WithMaxRetries(cfg.MaxRetries),
		blobvault.WithMaxFileSize(cfg.MaxFileSize),
		blobvault.WithAllowedExtensions(cfg.AllowedExtensions...),
		blobvault.WithTuning(cfg.Tuning),
		blobvault.WithLogger(log),
	)
	if err != nil {
		return err
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[0] {
	case "upload":
		if len(args) < 2 {
			return fmt.Errorf("usage: blobctl upload <path>")
		}
		outcome, err := client.UploadFile(ctx, *key, args[1], blobvault.WithOwner(*owner))
		if err != nil {
			if errors.IsValidation(err) {
				return fmt.Errorf("rejected before upload: %w", err)
			}
			return err
		}
		fmt.Printf("uploaded %s (%d bytes, %s) etag=%s\n",
			outcome.Key, outcome.Size, outcome.Strategy, outcome.ETag)
		if outcome.URL != "" {
			fmt.Println(outcome.URL)
		}
		return nil

	case "download":
		if len(args) < 3 {
			return fmt.Errorf("usage: blobctl download <key> <path>")
		}
		return client.DownloadFile(ctx, args[1], args[2])

	case "list":
		prefix := ""
		if len(args) > 1 {
			prefix = args[1]
		}
		objects, err := client.ListAll(ctx, prefix)
		if err != nil {
			return err
		}
		for _, obj := range objects {
			fmt.Printf("%12d  %s  %s\n", obj.Size, obj.LastModified.Format("2006-01-02 15:04:05"), obj.Key)
		}
		return nil

	case "delete":
		if len(args) < 2 {
			return fmt.Errorf("usage: blobctl delete <key> [key...]")
		}
		if len(args) == 2 {
			return client.Delete(ctx, args[1])
		}
		result, err := client.DeleteMany(ctx, args[1:])
		if err != nil {
			return err
		}
		for _, derr := range result.Errors {
			fmt.Fprintf(os.Stderr, "failed to delete %s: %s %s\n", derr.Key, derr.Code, derr.Message)
		}
		fmt.Printf("deleted %d objects\n", len(result.Deleted))
		return nil

	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
