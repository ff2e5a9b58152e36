package bookflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackzampolin/wikibook/internal/api"
	"github.com/jackzampolin/wikibook/internal/bookapi"
	"github.com/jackzampolin/wikibook/internal/poller"
	"github.com/jackzampolin/wikibook/internal/types"
)

// ErrNotAuthenticated is returned when no session token is available.
var ErrNotAuthenticated = errors.New("sign in to create a book")

// ErrNoTaskID is returned when the service accepts a request without
// assigning a task.
var ErrNoTaskID = errors.New("book request was not accepted")

// Service is the part of the PDF service a flow talks to.
type Service interface {
	Generate(ctx context.Context, req bookapi.GenerateRequest) (*bookapi.GenerateResponse, error)
	JobStatus(ctx context.Context, taskID string) (*types.Job, error)
}

// Request is one book to create.
type Request struct {
	Pages    []types.SourcePage `json:"pages" yaml:"pages"`
	Settings types.BookSettings `json:"settings" yaml:"settings"`
}

// Update is one progress report.
type Update struct {
	Status  types.JobStatus `json:"status" yaml:"status"`
	Message string          `json:"message" yaml:"message"`
	TaskID  string          `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	Time    time.Time       `json:"time" yaml:"time"`
	// RawStatus is the server's word for a status this client does not know.
	RawStatus string `json:"raw_status,omitempty" yaml:"raw_status,omitempty"`
}

// Label returns the status to display.
func (u Update) Label() string {
	return types.StatusLabel(u.Status, u.RawStatus)
}

// UpdateFunc receives progress reports. It is called synchronously from the
// flow's goroutine.
type UpdateFunc func(Update)

// Config configures a Flow.
type Config struct {
	Service Service
	Tokens  api.TokenSource
	Poller  *poller.Poller
	// WikiBaseURL is sent as base_url so the service can resolve bare page
	// titles.
	WikiBaseURL  string
	DefaultTitle string
	Logger       *slog.Logger
}

// Flow runs the submission sequence for one book at a time per call. It is
// safe to use from several goroutines.
type Flow struct {
	service      Service
	tokens       api.TokenSource
	poller       *poller.Poller
	wikiBaseURL  string
	defaultTitle string
	logger       *slog.Logger
}

// New creates a Flow.
func New(cfg Config) *Flow {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Poller == nil {
		cfg.Poller = poller.New(poller.Config{Logger: cfg.Logger})
	}
	if cfg.DefaultTitle == "" {
		cfg.DefaultTitle = DefaultTitle
	}
	return &Flow{
		service:      cfg.Service,
		tokens:       cfg.Tokens,
		poller:       cfg.Poller,
		wikiBaseURL:  cfg.WikiBaseURL,
		defaultTitle: cfg.DefaultTitle,
		logger:       cfg.Logger,
	}
}

// Check runs every local precondition of Create without touching the
// network.
func (f *Flow) Check(req Request) error {
	if err := Validate(req.Pages); err != nil {
		return err
	}
	if f.tokens == nil || f.tokens.Token() == "" {
		return ErrNotAuthenticated
	}
	return nil
}

// Title returns the book title a request with settings is submitted under.
func (f *Flow) Title(settings types.BookSettings) string {
	return ResolveTitle(settings, f.defaultTitle)
}

// Create validates the request, submits it and polls the job until it
// completes, fails or the poll budget runs out.
func (f *Flow) Create(ctx context.Context, req Request, onUpdate UpdateFunc) (*types.Job, error) {
	if err := f.Check(req); err != nil {
		return nil, err
	}
	emit := func(u Update) {
		if onUpdate != nil {
			u.Time = time.Now()
			onUpdate(u)
		}
	}

	title := f.Title(req.Settings)
	gen := bookapi.GenerateRequest{
		WikiPages: PageRefs(req.Pages),
		BookTitle: title,
		BaseURL:   f.wikiBaseURL,
	}

	emit(Update{Status: types.StatusProcessing, Message: "sending book request..."})
	resp, err := f.service.Generate(ctx, gen)
	if err != nil {
		return nil, err
	}
	if resp.TaskID == "" {
		if resp.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrNoTaskID, resp.Message)
		}
		return nil, ErrNoTaskID
	}

	logger := f.logger.With("task_id", resp.TaskID)
	logger.Info("book submitted", "title", title, "pages", len(gen.WikiPages))

	job, err := f.poller.Poll(ctx, resp.TaskID, f.service, func(p poller.Progress) {
		emit(Update{Status: p.Status, RawStatus: p.RawStatus, Message: p.Message, TaskID: resp.TaskID})
	})
	if err != nil {
		logger.Warn("book generation did not complete", "error", err)
		return nil, err
	}
	if job.Title == "" {
		job.Title = title
	}
	logger.Info("book ready", "download_url", job.DownloadURL, "view_url", job.ViewURL)
	return job, nil
}
