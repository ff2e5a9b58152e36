// Package poller waits for a remote book generation job to reach a terminal
// state by querying its status at a fixed interval.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/jackzampolin/wikibook/internal/types"
)

const (
	// DefaultInterval is the delay between status requests.
	DefaultInterval = 10 * time.Second
	// DefaultMaxAttempts is the number of status requests before giving up.
	DefaultMaxAttempts = 30

	defaultFailureMessage = "book generation failed"
)

// ErrTimeout is returned when the attempt budget runs out before the job
// reaches a terminal state.
var ErrTimeout = errors.New("book generation is taking longer than expected, please try again later")

var errStillRunning = errors.New("job still running")

// JobFailedError reports a job the server marked as failed.
type JobFailedError struct {
	TaskID  string
	Status  types.JobStatus
	Message string
}

func (e *JobFailedError) Error() string {
	return e.Message
}

// StatusFetcher retrieves the current state of a job.
type StatusFetcher interface {
	JobStatus(ctx context.Context, taskID string) (*types.Job, error)
}

// FetcherFunc adapts a function to StatusFetcher.
type FetcherFunc func(ctx context.Context, taskID string) (*types.Job, error)

func (f FetcherFunc) JobStatus(ctx context.Context, taskID string) (*types.Job, error) {
	return f(ctx, taskID)
}

// Progress is reported after every poll.
type Progress struct {
	Status types.JobStatus
	// RawStatus is the server's status string when Status is unknown.
	RawStatus string
	Message   string
}

// ProgressFunc receives the status and display message after every poll.
type ProgressFunc func(Progress)

// Config configures a Poller.
type Config struct {
	// Interval between polls (default: 10s)
	Interval time.Duration
	// MaxAttempts is the poll budget (default: 30)
	MaxAttempts uint
	// Timer drives the delay between polls. Nil uses the real clock.
	Timer  retry.Timer
	Logger *slog.Logger
}

// Poller polls one job at a time. It holds no per-job state and may be
// shared between goroutines.
type Poller struct {
	interval    time.Duration
	maxAttempts uint
	timer       retry.Timer
	logger      *slog.Logger
}

// New creates a Poller.
func New(cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Poller{
		interval:    cfg.Interval,
		maxAttempts: cfg.MaxAttempts,
		timer:       cfg.Timer,
		logger:      cfg.Logger,
	}
}

// Interval returns the configured delay between polls.
func (p *Poller) Interval() time.Duration { return p.interval }

// MaxAttempts returns the poll budget.
func (p *Poller) MaxAttempts() uint { return p.maxAttempts }

// Poll queries the job until it completes, fails, the budget is exhausted,
// or ctx is cancelled. Requests are strictly sequential. Transport errors are
// reported through progress and consume an attempt; they never end the loop
// early.
func (p *Poller) Poll(ctx context.Context, taskID string, fetcher StatusFetcher, progress ProgressFunc) (*types.Job, error) {
	logger := p.logger.With("task_id", taskID)

	var (
		attempt int
		result  *types.Job
		failure *JobFailedError
		lastErr error
	)

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(p.maxAttempts),
		retry.Delay(p.interval),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	}
	if p.timer != nil {
		opts = append(opts, retry.WithTimer(p.timer))
	}

	_ = retry.Do(func() error {
		attempt++
		job, err := fetcher.JobStatus(ctx, taskID)
		if err != nil {
			if ctx.Err() != nil {
				return retry.Unrecoverable(ctx.Err())
			}
			lastErr = err
			logger.Warn("status check failed", "attempt", attempt, "error", err)
			p.notify(progress, Progress{Status: types.StatusError, Message: TransportMessage(attempt, int(p.maxAttempts))})
			return err
		}

		logger.Debug("job status", "attempt", attempt, "status", job.StatusLabel())
		p.notify(progress, Progress{
			Status:    job.Status,
			RawStatus: job.RawStatus,
			Message:   Message(job.Status, attempt, job.Message),
		})

		switch {
		case job.Status == types.StatusCompleted:
			if job.TaskID == "" {
				job.TaskID = taskID
			}
			if !job.HasArtifact() {
				logger.Warn("job completed without download or view URL")
			}
			result = job
			return nil
		case job.Status.IsFailure():
			msg := job.Message
			if msg == "" {
				msg = defaultFailureMessage
			}
			failure = &JobFailedError{TaskID: taskID, Status: job.Status, Message: msg}
			return retry.Unrecoverable(failure)
		default:
			lastErr = nil
			return errStillRunning
		}
	}, opts...)

	switch {
	case result != nil:
		logger.Info("job completed", "attempts", attempt)
		return result, nil
	case failure != nil:
		logger.Info("job failed", "attempts", attempt, "message", failure.Message)
		return nil, failure
	case ctx.Err() != nil:
		return nil, ctx.Err()
	}

	logger.Warn("job polling budget exhausted", "attempts", attempt)
	if lastErr != nil {
		return nil, fmt.Errorf("%w (last error: %v)", ErrTimeout, lastErr)
	}
	return nil, ErrTimeout
}

// notify invokes progress, recovering from panics so polling continues.
func (p *Poller) notify(progress ProgressFunc, report Progress) {
	if progress == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("progress callback panicked", "panic", r)
		}
	}()
	progress(report)
}
