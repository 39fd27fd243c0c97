package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	cipheradapter "github.com/ericfisherdev/keysync/internal/adapter/driven/cipher"
	"github.com/ericfisherdev/keysync/internal/adapter/driven/keyfile"
	sqliteadapter "github.com/ericfisherdev/keysync/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/keysync/internal/adapter/driving/http"
	"github.com/ericfisherdev/keysync/internal/application"
	"github.com/ericfisherdev/keysync/internal/config"
	"github.com/ericfisherdev/keysync/internal/metric"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	once := pflag.Bool("once", false, "admit keys, resync all credentials and exit without serving")
	pflag.Parse()

	// 1. Load configuration (fail fast on malformed env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"key_file", cfg.KeyFile,
		"override_key", cfg.HasEncryptionKey(),
		"init_timeout", cfg.InitTimeout,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Open database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()
	slog.Info("database opened", "path", cfg.DBPath)

	// 4. Run migrations on writer connection.
	version, err := sqliteadapter.RunMigrations(db.Writer)
	if err != nil {
		return err
	}
	slog.Info("migrations complete", "schema_version", version)

	// 5. Wire adapters and services.
	keyStore := sqliteadapter.NewKeyRepo(db)
	associationStore := sqliteadapter.NewAssociationRepo(db)
	credentialStore := sqliteadapter.NewCredentialRepo(db)
	source := keyfile.NewSource(cfg.EncryptionKey, cfg.KeyFile, slog.Default())

	keySvc := application.NewKeyService(keyStore, associationStore, credentialStore, cipheradapter.NewAESGCM(), source, slog.Default())
	credSvc := application.NewCredentialService(keySvc, credentialStore, slog.Default())
	metrics := metric.New()

	// 6. Admit keys and resync under a single deadline. No key means no
	// credential can be read or written, so failure stops startup.
	initCtx, cancelInit := context.WithTimeout(ctx, cfg.InitTimeout)
	start := time.Now()
	report, err := keySvc.Init(initCtx)
	cancelInit()
	// Key admission failures are not resync outcomes.
	if err == nil || application.FailedIn(err, "resync") {
		metrics.ObserveResync(report, time.Since(start), err)
	}
	if err != nil {
		return fmt.Errorf("initialize encryption keys: %w", err)
	}
	if report.Lost > 0 {
		slog.Warn("credentials with lost encryption keys; restore the key and resync",
			"lost", report.Lost,
		)
	}

	if *once {
		slog.Info("keysync init complete", "resolved", report.Resolved, "lost", report.Lost)
		return nil
	}

	// 7. Create HTTP handler and register API routes.
	apiHandler := httphandler.NewHandler(keyStore, keySvc, credSvc, metrics, slog.Default())
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(apiHandler, metrics.Handler(), slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.InitTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		// 8. Wait for shutdown signal or server failure.
		<-gctx.Done()
		slog.Info("shutting down")

		// 9. Graceful shutdown with 10s timeout for HTTP server drain.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	slog.Info("keysync started", "listen_addr", cfg.ListenAddr)

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("shutdown complete")
	return nil
}
