package bookapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/jackzampolin/wikibook/internal/types"
)

// GenerateRequest is the body of POST /pdf/generate.
type GenerateRequest struct {
	WikiPages []string `json:"wiki_pages"`
	BookTitle string   `json:"book_title"`
	// BaseURL is the wiki REST page endpoint the service resolves bare
	// page titles against.
	BaseURL string `json:"base_url"`
}

// GenerateResponse is the service's answer to a generation request.
type GenerateResponse struct {
	TaskID  string `json:"task_id"`
	Status  string `json:"status,omitempty"`
	Message string `json:"message,omitempty"`
}

// Generate submits a book generation request.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	c.logger.Info("submitting book", "title", req.BookTitle, "pages", len(req.WikiPages))

	var resp GenerateResponse
	if err := c.http.Post(ctx, "/pdf/generate", req, &resp); err != nil {
		return nil, fmt.Errorf("generate book: %w", err)
	}
	return &resp, nil
}

type statusResponse struct {
	Status      string  `json:"status"`
	TaskID      *string `json:"task_id"`
	Title       *string `json:"title"`
	DownloadURL *string `json:"download_url"`
	ViewURL     *string `json:"view_url"`
	Message     *string `json:"message"`
}

// JobStatus fetches the current state of a generation job. The payload is
// validated against the embedded status schema before it is trusted.
func (c *Client) JobStatus(ctx context.Context, taskID string) (*types.Job, error) {
	var raw json.RawMessage
	if err := c.http.Get(ctx, "/pdf/status/"+url.PathEscape(taskID), &raw); err != nil {
		return nil, err
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	if err := c.statusSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("status response does not match schema: %w", err)
	}

	var resp statusResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}

	job := &types.Job{
		TaskID:      deref(resp.TaskID),
		Status:      types.ParseJobStatus(resp.Status),
		Title:       deref(resp.Title),
		DownloadURL: deref(resp.DownloadURL),
		ViewURL:     deref(resp.ViewURL),
		Message:     deref(resp.Message),
	}
	if job.Status == types.StatusUnknown {
		job.RawStatus = resp.Status
	}
	if job.TaskID == "" {
		job.TaskID = taskID
	}
	// The service reports the finished book's title in the message field.
	if job.Title == "" && job.Status == types.StatusCompleted {
		job.Title = job.Message
	}
	return job, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
