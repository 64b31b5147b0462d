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

	"go.uber.org/zap"

	"timemachine/internal/config"
	"timemachine/internal/db"
	"timemachine/internal/handlers"
	"timemachine/internal/httpclient"
	"timemachine/internal/logging"
	"timemachine/internal/repository"
	"timemachine/internal/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger, err := logging.New(cfg.IsDevelopment())
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbConn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer dbConn.Close()

	if err := db.RunMigrations(ctx, dbConn); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}

	encSvc, err := services.NewEncryptionService(cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("encryption: %w", err)
	}

	users := repository.NewUsers(dbConn)
	entries := repository.NewEntries(dbConn)
	jiraEntries := repository.NewJiraEntries(dbConn)
	riseEntries := repository.NewRiseEntries(dbConn)

	httpOpts := []httpclient.ClientFunc{
		httpclient.SetTimeout(cfg.SyncTimeout),
		httpclient.SetMaxRetries(cfg.SyncMaxRetries),
		httpclient.SetLogger(logger.Named("httpclient")),
	}
	jiraSvc := services.NewJiraService(users, entries, jiraEntries, encSvc, logger.Named("jira"), httpOpts...)
	riseSvc := services.NewRiseService(cfg.RiseAPIURL, users, entries, riseEntries, encSvc, logger.Named("rise"), httpOpts...)
	entrySvc := services.NewEntryService(users, entries, jiraEntries, riseEntries, jiraSvc, riseSvc, logger.Named("entries"))

	router := handlers.NewRouter(handlers.Deps{
		DB:          dbConn,
		Users:       users,
		Entries:     entrySvc,
		Encryption:  encSvc,
		JWTSecret:   cfg.JWTSecret,
		CORSOrigins: cfg.CORSOrigins,
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutdown initiated")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
