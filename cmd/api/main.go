package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"square-customer-sync/internal/config"
	"square-customer-sync/internal/db"
	"square-customer-sync/internal/httpserver"
	credrepo "square-customer-sync/internal/repository/credential"
	recordrepo "square-customer-sync/internal/repository/record"
	linkersvc "square-customer-sync/internal/service/linker"
	syncsvc "square-customer-sync/internal/service/sync"
	"square-customer-sync/internal/square"
)

func main() {
	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[api] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect to db: %v", err)
	}
	defer dbpool.Close()

	credRepo := credrepo.NewPostgres(dbpool, logger)
	recordRepo := recordrepo.NewPostgres(dbpool, logger)

	client := square.NewClient(cfg.SquareBaseURL, cfg.SquareVersion, logger)
	fetcher := square.NewFetcher(client, logger, cfg.HistoryWindowDays, cfg.MaxRecords)
	oauthCfg := square.OAuthConfig{
		ClientID:     cfg.SquareClientID,
		ClientSecret: cfg.SquareClientSecret,
		RedirectURI:  cfg.SquareRedirectURI,
	}

	invLinker := linkersvc.New(fetcher, credRepo, logger, cfg.OrderBatchSize, rate.Every(time.Second))
	orch := syncsvc.NewOrchestrator(credRepo, recordRepo, fetcher, invLinker, logger, cfg.SyncDeadline)
	scheduler := syncsvc.NewScheduler(credRepo, orch, client, oauthCfg, logger, syncsvc.SchedulerConfig{
		Interval:         cfg.SyncInterval,
		SyncThreshold:    time.Duration(cfg.SyncThresholdDays) * 24 * time.Hour,
		RefreshThreshold: time.Duration(cfg.RefreshThresholdDays) * 24 * time.Hour,
		MerchantDelay:    cfg.MerchantDelay,
		ErrorCooldown:    cfg.ErrorCooldown,
	})
	go scheduler.Run(ctx)

	srv, err := httpserver.New(cfg.HTTPAddr, logger, dbpool, httpserver.Deps{
		Creds:      credRepo,
		Records:    recordRepo,
		Sync:       scheduler,
		Square:     client,
		OAuth:      oauthCfg,
		CronSecret: cfg.CronSecret,
		APIKey:     cfg.APIKey,
	})
	if err != nil {
		logger.Fatalf("init server: %v", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Printf("starting http server on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Printf("received shutdown signal")
	case err := <-serverErr:
		logger.Printf("server error: %v", err)
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("graceful shutdown failed: %v", err)
	} else {
		logger.Printf("server stopped")
	}
}
