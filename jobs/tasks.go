package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBookValueRefresh recomputes cached asset book values.
	TaskBookValueRefresh = "assets:bookvalue:refresh"
	// TaskReportWarmup precompiles the fiscal-year reports into the cache.
	TaskReportWarmup = "reports:warmup"
)

// YearPayload targets a fiscal year; zero means the current year at
// execution time.
type YearPayload struct {
	Year         int       `json:"year"`
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewBookValueRefreshTask constructs an Asynq task for the nightly
// book-value refresh.
func NewBookValueRefreshTask(year int, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(YearPayload{Year: year, ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBookValueRefresh, body, asynq.Queue(QueueDefault)), nil
}

// NewReportWarmupTask constructs an Asynq task for report precompilation.
func NewReportWarmupTask(year int, at time.Time) (*asynq.Task, error) {
	body, err := json.Marshal(YearPayload{Year: year, ScheduledFor: at})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, body, asynq.Queue(QueueDefault)), nil
}
