package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/DeafMist/prevword/internal/bootstrap"
	"github.com/DeafMist/prevword/internal/config"
	"github.com/DeafMist/prevword/internal/logger"
	"github.com/DeafMist/prevword/internal/models"
	"github.com/DeafMist/prevword/internal/publish"
	"github.com/DeafMist/prevword/internal/resolver"
)

type wordResolver interface {
	Resolve(ctx context.Context, puzzleDate string) (models.Resolution, error)
}

type publisher interface {
	Publish(ctx context.Context, res models.Resolution) error
}

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	svc, err := bootstrap.Build(cfg.Common, log)
	if err != nil {
		log.Error("init resolver", slog.Any("err", err))
		os.Exit(1)
	}
	defer svc.Close()

	if err := waitForStore(ctx, log, svc, 10, 2*time.Second); err != nil {
		log.Error("cache store unavailable", slog.Any("err", err))
		os.Exit(1)
	}

	pub := publish.NewKafka(cfg.KafkaBrokers, cfg.KafkaTopic, log, publish.WithRetry(cfg.PublishAttempts, time.Second))
	defer pub.Close()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info("worker running",
		slog.Duration("interval", cfg.Interval),
		slog.String("topic", cfg.KafkaTopic),
	)

	runOnce(ctx, log, svc.Resolver, pub)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return
		case <-ticker.C:
			runOnce(ctx, log, svc.Resolver, pub)
		}
	}
}

// waitForStore pings the cache store with exponential backoff capped at 30s.
func waitForStore(ctx context.Context, log *slog.Logger, store pinger, maxRetries int, delay time.Duration) error {
	var err error
	for i := 0; i < maxRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = store.Ping(pingCtx)
		cancel()
		if err == nil {
			return nil
		}

		log.Warn("cache store ping failed, retrying",
			slog.Any("err", err),
			slog.Int("attempt", i+1),
			slog.Int("max_retries", maxRetries),
			slog.Duration("retry_in", delay),
		)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}
	}
	return err
}

// runOnce resolves today's previous word and publishes it. Failures are logged and
// retried on the next tick.
func runOnce(ctx context.Context, log *slog.Logger, r wordResolver, pub publisher) {
	subCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	res, err := r.Resolve(subCtx, "")
	if err != nil {
		log.Warn("resolve failed (will retry on next interval)",
			slog.String("kind", resolver.Describe(err)),
			slog.Any("err", err),
		)
		return
	}

	if err := pub.Publish(subCtx, res); err != nil {
		log.Warn("publish failed (will retry on next interval)", slog.Any("err", err))
		return
	}

	log.Info("run completed",
		slog.String("target_date", res.TargetDate),
		slog.String("word", res.Display()),
		slog.Bool("from_cache", res.FromCache),
	)
}
