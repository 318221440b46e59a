// cmd/worker/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/unclebandit/partnerconnex-backend/internal/config"
	"github.com/unclebandit/partnerconnex-backend/internal/logger"
	"github.com/unclebandit/partnerconnex-backend/internal/mail"
	"github.com/unclebandit/partnerconnex-backend/internal/queue"
	"github.com/unclebandit/partnerconnex-backend/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.GetLogger().WithField("error", err).Fatal("❌ Worker stopped")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.SetLevel(cfg.App.LogLevel)

	if cfg.AMQP.URL == "" {
		return errors.New("amqp.url is required for the worker")
	}
	if cfg.Mail.SMTPHost == "" {
		logger.GetLogger().Warn("⚠️ mail.smtp_host not set, notifications will fail and be retried")
	}

	q, err := queue.NewAMQPQueue(cfg.AMQP.URL)
	if err != nil {
		return err
	}
	defer q.Close()
	q.QueueNames = map[string]string{queue.TopicSubmissionReceived: cfg.AMQP.Queue}

	if err := startWorker(q, mail.NewMailer(cfg.Mail)); err != nil {
		return err
	}

	logger.GetLogger().WithField("queue", cfg.AMQP.Queue).Info("Worker running, waiting for messages...")
	<-ctx.Done()
	logger.GetLogger().Info("Worker shutting down")
	return nil
}

// startWorker subscribes the mail notifier to submission events on q.
func startWorker(q queue.Queue, mailer service.Mailer) error {
	notifier := &service.NotificationService{Mailer: mailer}
	return queue.StartSubmissionSubscriber(q, notifier.HandleSubmissionEvent)
}
