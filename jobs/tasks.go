// Package jobs hosts the asynq background worker: task definitions, the
// worker runtime and the cron schedule.
package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskScholarshipSweep deactivates scholarship offers after the
	// enrolment deadline.
	TaskScholarshipSweep = "scholarship:sweep"
	// TaskPolicyWarmup re-primes the discount policy cache.
	TaskPolicyWarmup = "policy:warmup"
)

// ScholarshipSweepPayload parametrises a sweep run. An empty payload sweeps
// against the current policy deadline.
type ScholarshipSweepPayload struct {
	// DryRun reports what would be deactivated without writing.
	DryRun bool `json:"dry_run,omitempty"`
}

// PolicyWarmupPayload is currently empty; the task re-reads the singleton
// policy into the cache.
type PolicyWarmupPayload struct{}

// NewScholarshipSweepTask constructs an asynq task for the sweep.
func NewScholarshipSweepTask(payload ScholarshipSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskScholarshipSweep, data), nil
}

// NewPolicyWarmupTask constructs an asynq task for the cache warmup.
func NewPolicyWarmupTask() (*asynq.Task, error) {
	data, err := json.Marshal(PolicyWarmupPayload{})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPolicyWarmup, data), nil
}
