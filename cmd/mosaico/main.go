// Command mosaico runs the time-series ingest/index/query server.
//
// Logging:
//   - Base logger is created here with output format and level
//   - Logger is passed to all components via dependency injection
//   - No global slog configuration (no slog.SetDefault)
//   - Components scope loggers with their own attributes
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"mosaico/internal/auth"
	"mosaico/internal/home"
	"mosaico/internal/logging"
	"mosaico/internal/metadata"
	"mosaico/internal/objectstore"
	"mosaico/internal/rpc"
	"mosaico/internal/server"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	baseHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelDebug, // Allow all levels; filtering done by ComponentFilterHandler
	})
	filterHandler := logging.NewComponentFilterHandler(baseHandler, slog.LevelInfo)
	logger := slog.New(filterHandler)

	rootCmd := &cobra.Command{
		Use:   "mosaico",
		Short: "Time-series ingest, index and query server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the mosaico server",
		RunE: func(cmd *cobra.Command, args []string) error {
			host, _ := cmd.Flags().GetString("host")
			port, _ := cmd.Flags().GetInt("port")
			localStore, _ := cmd.Flags().GetString("local-store")

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return run(ctx, logger, host, port, localStore)
		},
	}
	runCmd.Flags().String("host", "0.0.0.0", "listen host")
	runCmd.Flags().Int("port", 4566, "listen port")
	runCmd.Flags().String("local-store", "", "local filesystem path for object storage (default: S3-compatible backend via MOSAICO_STORE_* env vars)")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(version)
		},
	}

	rootCmd.AddCommand(runCmd, versionCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, host string, port int, localStore string) error {
	hd, err := home.Default()
	if err != nil {
		return fmt.Errorf("resolve home directory: %w", err)
	}

	dbURL, ok := os.LookupEnv("MOSAICO_REPOSITORY_DB_URL")
	if !ok || dbURL == "" {
		if err := hd.EnsureExists(); err != nil {
			return err
		}
		dbURL = hd.ConfigPath("sqlite")
		logger.Info("MOSAICO_REPOSITORY_DB_URL not set, using home directory default", "path", dbURL)
	}

	repo, err := metadata.NewRepository(ctx, dbURL)
	if err != nil {
		return fmt.Errorf("open metadata repository: %w", err)
	}
	defer func() { _ = repo.Close() }()

	store, err := buildStore(ctx, localStore)
	if err != nil {
		return fmt.Errorf("build object store: %w", err)
	}
	logger.Info("object store ready", "schema", store.URLSchema().String())

	secret, err := tokenSecret()
	if err != nil {
		return err
	}
	tokens := auth.NewTokenService(secret)

	handlers := rpc.New(rpc.Config{
		Repo:               repo,
		Store:              store,
		Tokens:             tokens,
		TargetMessageBytes: envInt64("MOSAICO_TARGET_MESSAGE_BYTES", 8<<20),
		MaxChunkBytes:      envInt64("MOSAICO_MAX_CHUNK_BYTES", 256<<20),
		Logger:             logger,
	})

	srv := server.New(server.Config{Logger: logger, Handler: handlers})

	addr := fmt.Sprintf("%s:%d", host, port)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ServeTCP(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutdown signal received, draining")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return <-errCh
}

// buildStore constructs the object store: local filesystem when
// --local-store is given, otherwise an S3-compatible backend configured
// entirely from MOSAICO_STORE_* env vars, matching §6's env contract.
func buildStore(ctx context.Context, localStore string) (objectstore.Store, error) {
	if localStore != "" {
		return objectstore.NewFilesystemStore(localStore)
	}

	endpoint := os.Getenv("MOSAICO_STORE_ENDPOINT")
	bucket := os.Getenv("MOSAICO_STORE_BUCKET")
	accessKey := os.Getenv("MOSAICO_STORE_ACCESS_KEY")
	secretKey := os.Getenv("MOSAICO_STORE_SECRET_KEY")
	if bucket == "" {
		return nil, fmt.Errorf("no --local-store given and MOSAICO_STORE_BUCKET is unset")
	}

	return objectstore.NewS3Store(ctx, objectstore.S3Config{
		Bucket:    bucket,
		Endpoint:  endpoint,
		AccessKey: accessKey,
		SecretKey: secretKey,
	})
}

// tokenSecret reads the HMAC secret for topic-key JWTs from the
// environment. Unlike the store or repository, there is no safe default:
// an empty or generated-per-run secret would invalidate every previously
// issued topic key on restart.
func tokenSecret() ([]byte, error) {
	secret := os.Getenv("MOSAICO_TOKEN_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("MOSAICO_TOKEN_SECRET must be set")
	}
	return []byte(secret), nil
}

func envInt64(name string, def int64) int64 {
	raw, ok := os.LookupEnv(name)
	if !ok {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}
