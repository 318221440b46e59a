// cmd/server/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/unclebandit/partnerconnex-backend/internal/config"
	"github.com/unclebandit/partnerconnex-backend/internal/controller"
	"github.com/unclebandit/partnerconnex-backend/internal/db"
	"github.com/unclebandit/partnerconnex-backend/internal/handler"
	"github.com/unclebandit/partnerconnex-backend/internal/logger"
	"github.com/unclebandit/partnerconnex-backend/internal/metrics"
	"github.com/unclebandit/partnerconnex-backend/internal/model"
	"github.com/unclebandit/partnerconnex-backend/internal/queue"
	"github.com/unclebandit/partnerconnex-backend/internal/repository"
	"github.com/unclebandit/partnerconnex-backend/internal/service"
	"github.com/unclebandit/partnerconnex-backend/internal/upload"
	"github.com/unclebandit/partnerconnex-backend/internal/wizard"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.GetLogger().WithField("error", err).Fatal("❌ Server stopped")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.App.LogLevel)

	campaignRepo, submissionRepo, closeDB, err := openRepositories(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer closeDB()

	q, closeQueue, err := openQueue(cfg.AMQP)
	if err != nil {
		return err
	}
	defer closeQueue()
	if err := queue.StartSubmissionSubscriber(q, queue.LogSubmission); err != nil {
		return err
	}

	sessions, closeSessions, err := openSessionStore(ctx, cfg.Redis, cfg.Wizard.SessionTTL)
	if err != nil {
		return err
	}
	defer closeSessions()

	objects, closeObjects, err := openObjectStore(ctx, cfg.App, cfg.Storage)
	if err != nil {
		return err
	}
	defer closeObjects()

	registry, err := metrics.NewRegistryFromConfig(ctx, cfg.Metrics)
	if err != nil {
		return fmt.Errorf("metrics registry: %w", err)
	}

	campaignService := &service.CampaignService{
		CampaignRepo:   campaignRepo,
		SubmissionRepo: submissionRepo,
		BaseURL:        cfg.App.BaseURL,
	}
	submissionService := &service.SubmissionService{
		CampaignRepo:   campaignRepo,
		SubmissionRepo: submissionRepo,
		Queue:          q,
	}
	uploadOpts := upload.OptionsFromConfig(cfg.Storage, cfg.Upload)
	wizardService := &wizard.Service{
		Campaigns:      campaignRepo,
		Store:          sessions,
		Submitter:      submissionService,
		Metrics:        registry,
		Uploader:       upload.NewUploader(objects, uploadOpts),
		RequireNDAView: cfg.Wizard.RequireNDAView,
	}

	var files *handler.FileHandler
	if mem, ok := objects.(*upload.MemoryStore); ok {
		files = &handler.FileHandler{Objects: mem}
	}

	router := controller.NewRouter(
		&controller.CampaignController{CampaignService: campaignService},
		&handler.WizardHandler{
			Campaigns:      campaignService,
			Wizard:         wizardService,
			Platforms:      registry,
			MaxUploadBytes: 10*uploadOpts.MaxBytes + 1<<20,
		},
		files,
		cfg.App.AllowedOrigins,
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.GetLogger().WithField("addr", srv.Addr).Info("🚀 Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		logger.GetLogger().Info("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// ====== wiring ======

func openRepositories(ctx context.Context, cfg config.Database) (repository.CampaignRepositoryInterface, repository.SubmissionRepositoryInterface, func(), error) {
	if !cfg.Enabled() {
		logger.GetLogger().Warn("⚠️ No database configured, using in-memory repositories with demo campaigns")
		return repository.NewMemoryCampaignRepository(model.DemoCampaigns()...), &repository.MemorySubmissionRepository{}, func() {}, nil
	}

	conn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := db.EnsureSchema(ctx, conn); err != nil {
		conn.Close()
		return nil, nil, nil, err
	}
	return &repository.CampaignRepository{DB: conn},
		&repository.SubmissionRepository{DB: conn},
		func() { closeQuietly(conn) },
		nil
}

func closeQuietly(conn *sql.DB) {
	if err := conn.Close(); err != nil {
		logger.GetLogger().WithField("error", err).Warn("⚠️ Failed to close database")
	}
}

func openQueue(cfg config.AMQP) (queue.Queue, func(), error) {
	if cfg.URL == "" {
		logger.GetLogger().Info("No AMQP url configured, using in-memory queue")
		q := queue.NewInMemoryQueue()
		return q, func() {
			if !q.Drain(5 * time.Second) {
				logger.GetLogger().Warn("⚠️ Pending submission events dropped at shutdown")
			}
		}, nil
	}
	q, err := queue.NewAMQPQueue(cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	q.QueueNames = map[string]string{queue.TopicSubmissionReceived: cfg.Queue}
	return q, func() { _ = q.Close() }, nil
}

func openSessionStore(ctx context.Context, cfg config.Redis, ttl time.Duration) (wizard.Store, func(), error) {
	if cfg.Addr == "" {
		logger.GetLogger().Info("No Redis configured, keeping wizard sessions in memory")
		return wizard.NewMemoryStore(ttl), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}
	logger.GetLogger().WithField("addr", cfg.Addr).Info("✅ Connected to Redis")
	return wizard.NewRedisStore(client, ttl), func() { _ = client.Close() }, nil
}

func openObjectStore(ctx context.Context, app config.App, cfg config.Storage) (upload.ObjectStore, func(), error) {
	if !cfg.Enabled {
		logger.GetLogger().Info("Cloud storage disabled, keeping uploads in memory")
		return upload.NewMemoryStore(app.BaseURL+"/files", cfg.Bucket), func() {}, nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("storage client: %w", err)
	}
	return upload.NewGCSStore(client, cfg.Bucket), func() { _ = client.Close() }, nil
}
