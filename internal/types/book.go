// Package types provides shared types used across multiple packages.
// This package has no dependencies on other wikibook packages to avoid import cycles.
package types

import "strings"

// SourcePage is one page the user wants in the book.
// URL is either a full address or a bare wiki page title.
type SourcePage struct {
	URL   string `json:"url" yaml:"url"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
}

// BookSettings holds user-chosen book metadata.
type BookSettings struct {
	Title    string `json:"title" yaml:"title"`
	Subtitle string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	Author   string `json:"author,omitempty" yaml:"author,omitempty"`
}

// JobStatus is the server-reported state of a generation job.
type JobStatus string

const (
	StatusProcessing  JobStatus = "processing"
	StatusDownloading JobStatus = "downloading"
	StatusGenerating  JobStatus = "generating"
	StatusCompleted   JobStatus = "completed"
	StatusFailed      JobStatus = "failed"
	StatusError       JobStatus = "error"
	// StatusUnknown covers any status string the server sends that is not
	// in the known set. Pollers treat it as still running.
	StatusUnknown JobStatus = "unknown"
)

// ParseJobStatus converts a server status string to a JobStatus.
// Unrecognized values map to StatusUnknown; keep the original string in
// Job.RawStatus when it needs to be shown.
func ParseJobStatus(s string) JobStatus {
	switch JobStatus(strings.ToLower(strings.TrimSpace(s))) {
	case StatusProcessing:
		return StatusProcessing
	case StatusDownloading:
		return StatusDownloading
	case StatusGenerating:
		return StatusGenerating
	case StatusCompleted:
		return StatusCompleted
	case StatusFailed:
		return StatusFailed
	case StatusError:
		return StatusError
	default:
		return StatusUnknown
	}
}

// IsTerminal reports whether no further polling is needed.
func (s JobStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusError
}

// IsFailure reports whether the status is a terminal failure.
func (s JobStatus) IsFailure() bool {
	return s == StatusFailed || s == StatusError
}

// Job is the latest known state of a remote generation job.
type Job struct {
	TaskID      string    `json:"task_id" yaml:"task_id"`
	Status      JobStatus `json:"status" yaml:"status"`
	Title       string    `json:"title,omitempty" yaml:"title,omitempty"`
	DownloadURL string    `json:"download_url,omitempty" yaml:"download_url,omitempty"`
	ViewURL     string    `json:"view_url,omitempty" yaml:"view_url,omitempty"`
	Message     string    `json:"message,omitempty" yaml:"message,omitempty"`
	// RawStatus is the server's status string when Status is StatusUnknown.
	RawStatus string `json:"raw_status,omitempty" yaml:"raw_status,omitempty"`
}

// StatusLabel returns the status for display: the server's own word for
// statuses this client does not know.
func (j *Job) StatusLabel() string {
	return StatusLabel(j.Status, j.RawStatus)
}

// StatusLabel returns raw when status is StatusUnknown and raw is set,
// otherwise the status itself.
func StatusLabel(status JobStatus, raw string) string {
	if status == StatusUnknown && raw != "" {
		return raw
	}
	return string(status)
}

// HasArtifact reports whether the job carries at least one URL to the result.
func (j *Job) HasArtifact() bool {
	return j != nil && (j.DownloadURL != "" || j.ViewURL != "")
}

// User is the account returned by the auth API.
type User struct {
	ID       string `json:"id,omitempty" yaml:"id,omitempty"`
	Email    string `json:"email,omitempty" yaml:"email,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Picture  string `json:"picture,omitempty" yaml:"picture,omitempty"`
	Provider string `json:"provider,omitempty" yaml:"provider,omitempty"`
}

// RemoteBook is a book stored in the user's library on the PDF service.
type RemoteBook struct {
	ID          string `json:"id,omitempty" yaml:"id,omitempty"`
	TaskID      string `json:"task_id,omitempty" yaml:"task_id,omitempty"`
	Title       string `json:"title,omitempty" yaml:"title,omitempty"`
	Status      string `json:"status,omitempty" yaml:"status,omitempty"`
	CreatedAt   string `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	DownloadURL string `json:"download_url,omitempty" yaml:"download_url,omitempty"`
	ViewURL     string `json:"view_url,omitempty" yaml:"view_url,omitempty"`
}

// PDFMetadata describes a generated PDF file.
type PDFMetadata struct {
	Title     string `json:"title" yaml:"title"`
	Author    string `json:"author,omitempty" yaml:"author,omitempty"`
	CreatedAt string `json:"createdAt,omitempty" yaml:"created_at,omitempty"`
	PageCount int    `json:"pageCount,omitempty" yaml:"page_count,omitempty"`
	Size      string `json:"size,omitempty" yaml:"size,omitempty"`
}
