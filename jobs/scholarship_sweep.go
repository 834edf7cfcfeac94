package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/scolaria/scolaria/internal/discounts"
	jobmetrics "github.com/scolaria/scolaria/internal/jobs"
	"github.com/scolaria/scolaria/internal/scholarships"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// ScholarshipSweepJob deactivates scholarship offers once the enrolment
// deadline configured on the discount policy has passed.
type ScholarshipSweepJob struct {
	Scholarships *scholarships.Service
	Policies     *discounts.Service
	Logger       *slog.Logger
	Metrics      *jobmetrics.Metrics
	clock        func() time.Time
}

// NewScholarshipSweepJob wires dependencies for the sweep handler.
func NewScholarshipSweepJob(scholarshipSvc *scholarships.Service, policySvc *discounts.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *ScholarshipSweepJob {
	return &ScholarshipSweepJob{
		Scholarships: scholarshipSvc,
		Policies:     policySvc,
		Logger:       logger,
		Metrics:      metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes scholarship sweep tasks.
func (j *ScholarshipSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("scholarship sweep: handler not configured")
	}
	var payload ScholarshipSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskScholarshipSweep)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	policy, err := j.Policies.Current(ctx)
	if err != nil {
		resultErr = err
		logger.Error("load discount policy", slog.Any("error", err))
		return resultErr
	}

	now := j.now()
	if policy.Deadline == nil || !now.After(*policy.Deadline) {
		logger.Info("enrolment window still open, nothing to sweep")
		return resultErr
	}
	if payload.DryRun {
		logger.Info("dry run, skipping deactivation")
		return resultErr
	}

	swept, err := j.Scholarships.SweepExpiredOffers(ctx, policy.Deadline, now)
	if err != nil {
		resultErr = err
		logger.Error("sweep offers", slog.Any("error", err))
		return resultErr
	}
	j.metrics().AddSweptOffers(swept)
	logger.Info("completed scholarship sweep", slog.Int64("offers_deactivated", swept))
	return resultErr
}

func (j *ScholarshipSweepJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskScholarshipSweep))
	}
	return slog.Default().With(slog.String("job", TaskScholarshipSweep))
}

func (j *ScholarshipSweepJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *ScholarshipSweepJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
