package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kdimtricp/ansimtalk/internal/ai"
	"github.com/kdimtricp/ansimtalk/internal/analysis"
	"github.com/kdimtricp/ansimtalk/internal/api"
	"github.com/kdimtricp/ansimtalk/internal/archive"
	"github.com/kdimtricp/ansimtalk/internal/custody"
	"github.com/kdimtricp/ansimtalk/internal/database"
	"github.com/kdimtricp/ansimtalk/internal/events"
	"github.com/kdimtricp/ansimtalk/internal/session"
	"github.com/kdimtricp/ansimtalk/internal/storage"
	"github.com/kdimtricp/ansimtalk/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web server",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	localStorage, err := storage.NewLocalStorage(cfg.Upload.StagingDir, cfg.Upload.PublicDir)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	db, err := openDatabase()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if err := db.RunMigrations(ctx, logger); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	clients := ai.NewClients(ctx, cfg, logger)
	defer clients.Close()

	ledger, ledgerCloser, err := custody.New(ctx, cfg.Custody, db)
	if err != nil {
		return fmt.Errorf("failed to initialize custody ledger: %w", err)
	}
	defer ledgerCloser.Close()

	var archiver archive.Archiver
	if cfg.Archive.Bucket != "" {
		gcs, err := archive.NewGCSArchiver(ctx, cfg.Archive.Bucket, logger)
		if err != nil {
			logger.Warn("Evidence archive disabled", "bucket", cfg.Archive.Bucket, "error", err)
		} else {
			defer gcs.Close()
			archiver = gcs
			logger.Info("Evidence archive enabled", "bucket", cfg.Archive.Bucket)
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	if len(cfg.Events.Brokers) > 0 {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		if err != nil {
			logger.Warn("Analysis events disabled", "error", err)
		} else {
			publisher = kafkaPublisher
			logger.Info("Publishing analysis events", "brokers", cfg.Events.Brokers, "topic", cfg.Events.Topic)
		}
	}
	defer publisher.Close()

	sessions := session.NewManager(database.NewSessionRepository(db), session.Options{
		SecretKey: cfg.Server.SecretKey,
		MaxAge:    cfg.Server.SessionMaxAge,
		Secure:    cfg.Server.SecureCookies,
		Logger:    logger,
	})

	app, err := api.NewApp(api.App{
		Config:    cfg,
		Storage:   localStorage,
		Analyzer:  analysis.NewService(clients, localStorage, logger),
		Sessions:  sessions,
		Custody:   custody.NewRecorder(ledger, logger),
		Archiver:  archiver,
		Publisher: publisher,
		Logger:    logger,
	}, web.Templates())
	if err != nil {
		return err
	}

	go sessions.RunSweeper(ctx, cfg.Server.SweepInterval, app.ExpireSession)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			"port", cfg.Server.Port,
			"stagingDir", cfg.Upload.StagingDir,
			"publicDir", cfg.Upload.PublicDir,
			"database", cfg.Database.Type,
			"maxUploadSize", cfg.Upload.MaxSize,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
