package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/m3rciful/imagebot/core/logger"
)

const (
	jobPromptExpire = "prompt.expire"
	jobAuditPrune   = "audit.prune"
)

type expirer interface {
	Expire(cutoff time.Time) []int64
}

type pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// newScheduler registers the housekeeping jobs enabled in cfg. It is not started.
func newScheduler(cfg Config, prompts expirer, audit pruner, now func() time.Time) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	if ttl := cfg.Prompt.PendingTTL; ttl > 0 {
		_, err = s.NewJob(
			gocron.DurationJob(cfg.Prompt.SweepInterval),
			gocron.NewTask(func() { expirePrompts(logger.Background(), prompts, ttl, now()) }),
			gocron.WithName(jobPromptExpire),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = s.Shutdown()
			return nil, fmt.Errorf("scheduler: %s: %w", jobPromptExpire, err)
		}
	}

	if days := cfg.Audit.RetentionDays; days > 0 {
		_, err = s.NewJob(
			gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
			gocron.NewTask(func() { pruneAudit(logger.Background(), audit, days, now()) }),
			gocron.WithName(jobAuditPrune),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			_ = s.Shutdown()
			return nil, fmt.Errorf("scheduler: %s: %w", jobAuditPrune, err)
		}
	}

	logger.LogEvent(logger.Background(), logger.Sched, slog.LevelInfo, "scheduler.jobs",
		slog.Int("count", len(s.Jobs())),
	)
	return s, nil
}

func expirePrompts(ctx context.Context, prompts expirer, ttl time.Duration, now time.Time) int {
	expired := prompts.Expire(now.Add(-ttl))
	if len(expired) > 0 {
		logger.Info(ctx, logger.CompSched, jobPromptExpire, slog.Int("expired", len(expired)))
	}
	return len(expired)
}

func pruneAudit(ctx context.Context, audit pruner, days int, now time.Time) {
	start := time.Now()
	n, err := audit.Prune(ctx, now.AddDate(0, 0, -days))
	if err != nil {
		logger.Warn(ctx, logger.CompSched, jobAuditPrune, slog.String("status", "fail"), logger.Err(err))
		return
	}
	logger.Info(ctx, logger.CompSched, jobAuditPrune,
		slog.String("status", "ok"),
		slog.Int64("deleted", n),
		slog.Duration("duration", logger.Took(start)),
	)
}
