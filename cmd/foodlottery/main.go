package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/foodlottery/internal/config"
	"github.com/dukerupert/foodlottery/internal/database"
	"github.com/dukerupert/foodlottery/internal/logging"
	"github.com/dukerupert/foodlottery/internal/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	restoreID := flag.Int64("restore-backup", 0, "download and decrypt this backup id, then exit")
	restoreTo := flag.String("restore-to", "restored.db", "destination for -restore-backup")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	srv, err := server.New(db, cfg, logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		db.Close()
		os.Exit(1)
	}

	if *restoreID != 0 {
		code := restore(srv, *restoreID, *restoreTo, cfg.Backup.Passphrase, logger)
		db.Close() // os.Exit skips deferred calls
		os.Exit(code)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv.BackupManager().Start(ctx)
	defer srv.BackupManager().Stop()

	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				srv.CleanupRateLimits()
			}
		}
	}()

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: cfg.DrawDelay + 10*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("food lottery running", "addr", cfg.Addr(), "db", cfg.DBPath)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func restore(srv *server.Server, id int64, dst, passphrase string, logger *slog.Logger) int {
	if passphrase == "" {
		logger.Error("restore needs backup.passphrase (FOODLOTTERY_BACKUP_PASSPHRASE)")
		return 1
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := srv.BackupManager().Fetch(ctx, id, passphrase, dst); err != nil {
		logger.Error("restore failed", "backup_id", id, "error", err)
		return 1
	}
	logger.Info("backup restored", "backup_id", id, "path", dst)
	return 0
}
