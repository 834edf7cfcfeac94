package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/scolaria/scolaria/internal/discounts"
	jobmetrics "github.com/scolaria/scolaria/internal/jobs"
)

// PolicyWarmupJob re-primes the discount policy cache so the first payment
// after a cold start or a policy bump does not pay the database round trip.
type PolicyWarmupJob struct {
	Policies *discounts.Service
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewPolicyWarmupJob wires dependencies for the warmup handler.
func NewPolicyWarmupJob(policySvc *discounts.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *PolicyWarmupJob {
	return &PolicyWarmupJob{Policies: policySvc, Logger: logger, Metrics: metrics}
}

// Handle processes policy warmup tasks.
func (j *PolicyWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("policy warmup: handler not configured")
	}

	tracker := j.metrics().Track(TaskPolicyWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	if err := j.Policies.Warm(ctx); err != nil {
		resultErr = err
		j.logger().Error("warm policy cache", slog.Any("error", err))
		return resultErr
	}
	j.logger().Info("policy cache warmed")
	return resultErr
}

func (j *PolicyWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskPolicyWarmup))
	}
	return slog.Default().With(slog.String("job", TaskPolicyWarmup))
}

func (j *PolicyWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}
