package bookflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/wikibook/internal/types"
)

// Status is the local state of a tracked flow.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// subscriberBuffer is the number of updates a slow subscriber may fall
// behind before updates are dropped for it.
const subscriberBuffer = 32

// ErrRecordNotFound is returned for unknown record IDs.
var ErrRecordNotFound = errors.New("book job not found")

// Creator runs a book flow. *Flow implements it.
type Creator interface {
	Check(req Request) error
	Title(settings types.BookSettings) string
	Create(ctx context.Context, req Request, onUpdate UpdateFunc) (*types.Job, error)
}

// Record is a flow started through a Tracker.
type Record struct {
	ID          string     `json:"id" yaml:"id"`
	Status      Status     `json:"status" yaml:"status"`
	Title       string     `json:"title" yaml:"title"`
	Request     Request    `json:"request" yaml:"request"`
	TaskID      string     `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	Message     string     `json:"message,omitempty" yaml:"message,omitempty"`
	Job         *types.Job `json:"job,omitempty" yaml:"job,omitempty"`
	Error       string     `json:"error,omitempty" yaml:"error,omitempty"`
	Updates     []Update   `json:"updates,omitempty" yaml:"updates,omitempty"`
	CreatedAt   time.Time  `json:"created_at" yaml:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// Done reports whether the flow has ended.
func (r *Record) Done() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

func (r *Record) clone() *Record {
	c := *r
	c.Updates = append([]Update(nil), r.Updates...)
	if r.Job != nil {
		job := *r.Job
		c.Job = &job
	}
	return &c
}

type entry struct {
	record *Record
	cancel context.CancelFunc
	subs   map[chan Update]struct{}
}

// Tracker runs flows in the background and keeps their progress in memory
// so clients can reconnect to them.
type Tracker struct {
	creator Creator
	ctx     context.Context
	logger  *slog.Logger

	mu      sync.RWMutex
	entries map[string]*entry
	wg      sync.WaitGroup
}

// NewTracker creates a Tracker. Flows started through it are cancelled when
// ctx is done.
func NewTracker(ctx context.Context, creator Creator, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		creator: creator,
		ctx:     ctx,
		logger:  logger,
		entries: make(map[string]*entry),
	}
}

// Start checks req and runs the flow in the background. Input and session
// errors are returned synchronously and nothing is recorded for them.
func (t *Tracker) Start(req Request) (*Record, error) {
	if err := t.creator.Check(req); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(t.ctx)
	rec := &Record{
		ID:        uuid.New().String(),
		Status:    StatusRunning,
		Title:     t.creator.Title(req.Settings),
		Request:   req,
		CreatedAt: time.Now(),
	}
	e := &entry{record: rec, cancel: cancel, subs: make(map[chan Update]struct{})}

	t.mu.Lock()
	t.entries[rec.ID] = e
	snapshot := rec.clone()
	t.mu.Unlock()

	t.logger.Info("book job started", "id", rec.ID, "pages", len(req.Pages))

	t.wg.Add(1)
	go t.run(ctx, e, req)

	return snapshot, nil
}

func (t *Tracker) run(ctx context.Context, e *entry, req Request) {
	defer t.wg.Done()
	defer e.cancel()

	var (
		job *types.Job
		err error
	)
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("book flow panicked: %v", r)
			}
		}()
		job, err = t.creator.Create(ctx, req, func(u Update) { t.publish(e, u) })
	}()

	t.finish(e, job, err)
}

func (t *Tracker) publish(e *entry, u Update) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := e.record
	rec.Updates = append(rec.Updates, u)
	rec.Message = u.Message
	if u.TaskID != "" {
		rec.TaskID = u.TaskID
	}
	for ch := range e.subs {
		select {
		case ch <- u:
		default:
		}
	}
}

func (t *Tracker) finish(e *entry, job *types.Job, err error) {
	now := time.Now()
	final := Update{Time: now}

	t.mu.Lock()
	rec := e.record
	rec.CompletedAt = &now
	if err != nil {
		rec.Status = StatusFailed
		rec.Error = err.Error()
		final.Status = types.StatusFailed
		final.Message = err.Error()
	} else {
		rec.Status = StatusCompleted
		rec.Job = job
		if job.TaskID != "" {
			rec.TaskID = job.TaskID
		}
		if job.Title != "" {
			rec.Title = job.Title
		}
		final.Status = types.StatusCompleted
		final.Message = "book is ready"
	}
	final.TaskID = rec.TaskID
	rec.Message = final.Message
	rec.Updates = append(rec.Updates, final)
	for ch := range e.subs {
		select {
		case ch <- final:
		default:
		}
		close(ch)
	}
	e.subs = nil
	id, status := rec.ID, rec.Status
	t.mu.Unlock()

	if err != nil {
		t.logger.Warn("book job failed", "id", id, "error", err)
		return
	}
	t.logger.Info("book job completed", "id", id, "status", status, "task_id", job.TaskID)
}

// Get returns a snapshot of the record with the given ID.
func (t *Tracker) Get(id string) (*Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[id]
	if !ok {
		return nil, false
	}
	return e.record.clone(), true
}

// List returns snapshots of every record, newest first.
func (t *Tracker) List() []*Record {
	t.mu.RLock()
	records := make([]*Record, 0, len(t.entries))
	for _, e := range t.entries {
		records = append(records, e.record.clone())
	}
	t.mu.RUnlock()

	sort.Slice(records, func(i, j int) bool {
		if records[i].CreatedAt.Equal(records[j].CreatedAt) {
			return records[i].ID > records[j].ID
		}
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records
}

// Subscribe returns the updates seen so far and a channel that receives
// later ones. The channel is closed when the flow ends, or immediately if
// it already has. Call the returned function to unsubscribe early.
func (t *Tracker) Subscribe(id string) ([]Update, <-chan Update, func(), error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.entries[id]
	if !ok {
		return nil, nil, nil, ErrRecordNotFound
	}
	history := append([]Update(nil), e.record.Updates...)
	ch := make(chan Update, subscriberBuffer)
	if e.subs == nil {
		close(ch)
		return history, ch, func() {}, nil
	}
	e.subs[ch] = struct{}{}

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			if _, ok := e.subs[ch]; ok {
				delete(e.subs, ch)
				close(ch)
			}
		})
	}
	return history, ch, unsubscribe, nil
}

// Cancel stops a running flow. The record ends as failed.
func (t *Tracker) Cancel(id string) error {
	t.mu.RLock()
	e, ok := t.entries[id]
	t.mu.RUnlock()
	if !ok {
		return ErrRecordNotFound
	}
	e.cancel()
	return nil
}

// Wait blocks until every started flow has ended.
func (t *Tracker) Wait() {
	t.wg.Wait()
}
