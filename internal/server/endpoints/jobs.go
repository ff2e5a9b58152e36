package endpoints

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/wikibook/internal/api"
	"github.com/jackzampolin/wikibook/internal/bookflow"
	"github.com/jackzampolin/wikibook/internal/svcctx"
	"github.com/jackzampolin/wikibook/internal/types"
)

// CreateJobRequest is the request body for starting a book job.
type CreateJobRequest = bookflow.Request

// JobResponse wraps a single tracked job.
type JobResponse struct {
	Job *bookflow.Record `json:"job"`
}

// ListJobsResponse lists tracked jobs, newest first.
type ListJobsResponse struct {
	Jobs []*bookflow.Record `json:"jobs"`
}

// BookFlags holds the page and metadata flags shared by commands that build
// a book.
type BookFlags struct {
	pages    []string
	title    string
	subtitle string
	author   string
}

// Register adds the flags to cmd.
func (f *BookFlags) Register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.pages, "page", "p", nil, "Page title or URL (repeatable, in book order)")
	cmd.Flags().StringVar(&f.title, "title", "", "Book title")
	cmd.Flags().StringVar(&f.subtitle, "subtitle", "", "Book subtitle")
	cmd.Flags().StringVar(&f.author, "author", "", "Book author")
}

// Request builds a book request from the flags. Positional args are
// appended to --page values.
func (f *BookFlags) Request(args []string) bookflow.Request {
	refs := append(append([]string(nil), f.pages...), args...)
	pages := make([]types.SourcePage, 0, len(refs))
	for _, ref := range refs {
		pages = append(pages, types.SourcePage{URL: ref})
	}
	return bookflow.Request{
		Pages: pages,
		Settings: types.BookSettings{
			Title:    f.title,
			Subtitle: f.subtitle,
			Author:   f.author,
		},
	}
}

// CreateJobEndpoint handles POST /api/jobs.
type CreateJobEndpoint struct{}

func (e *CreateJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/jobs", e.handler
}

func (e *CreateJobEndpoint) RequiresSession() bool { return true }

// handler godoc
//
//	@Summary		Create a book
//	@Description	Validate the pages and start submitting the book in the background. Follow progress with /api/jobs/{id}/events.
//	@Tags			jobs
//	@Accept			json
//	@Produce		json
//	@Param			request	body		CreateJobRequest	true	"Pages and book settings"
//	@Success		202		{object}	JobResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		401		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/jobs [post]
func (e *CreateJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req CreateJobRequest
	if !decodeBody(w, r, &req) {
		return
	}

	tracker := svcctx.TrackerFrom(r.Context())
	if tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "job tracker not initialized")
		return
	}

	rec, err := tracker.Start(req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, JobResponse{Job: rec})
}

func (e *CreateJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	var flags BookFlags
	var watch bool
	cmd := &cobra.Command{
		Use:   "create [page...]",
		Short: "Start creating a book on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp JobResponse
			if err := client.Post(cmd.Context(), "/api/jobs", flags.Request(args), &resp); err != nil {
				return err
			}
			if !watch {
				return api.Output(resp)
			}
			rec, err := WatchJob(cmd.Context(), getServerURL(), resp.Job.ID, PrintUpdate)
			if err != nil {
				return err
			}
			return api.Output(JobResponse{Job: rec})
		},
	}
	flags.Register(cmd)
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Follow progress until the book is ready")
	return cmd
}

// ListJobsEndpoint handles GET /api/jobs.
type ListJobsEndpoint struct{}

func (e *ListJobsEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs", e.handler
}

func (e *ListJobsEndpoint) RequiresSession() bool { return false }

// handler godoc
//
//	@Summary		List book jobs
//	@Description	List jobs started since the server came up, newest first
//	@Tags			jobs
//	@Produce		json
//	@Param			status	query		string	false	"Filter by status (running, completed, failed)"
//	@Success		200		{object}	ListJobsResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/jobs [get]
func (e *ListJobsEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	tracker := svcctx.TrackerFrom(r.Context())
	if tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "job tracker not initialized")
		return
	}

	status := bookflow.Status(r.URL.Query().Get("status"))
	jobs := []*bookflow.Record{}
	for _, rec := range tracker.List() {
		if status != "" && rec.Status != status {
			continue
		}
		rec.Updates = nil
		jobs = append(jobs, rec)
	}
	writeJSON(w, http.StatusOK, ListJobsResponse{Jobs: jobs})
}

func (e *ListJobsEndpoint) Command(getServerURL func() string) *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List book jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/jobs"
			if status != "" {
				path += "?" + url.Values{"status": {status}}.Encode()
			}
			client := api.NewClient(getServerURL())
			var resp ListJobsResponse
			if err := client.Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Filter by status (running, completed, failed)")
	return cmd
}

// GetJobEndpoint handles GET /api/jobs/{id}.
type GetJobEndpoint struct{}

func (e *GetJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/jobs/{id}", e.handler
}

func (e *GetJobEndpoint) RequiresSession() bool { return false }

// handler godoc
//
//	@Summary		Get a book job
//	@Description	Get a job with its full progress history
//	@Tags			jobs
//	@Produce		json
//	@Param			id	path		string	true	"Job ID"
//	@Success		200	{object}	JobResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/jobs/{id} [get]
func (e *GetJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	tracker := svcctx.TrackerFrom(r.Context())
	if tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "job tracker not initialized")
		return
	}

	rec, ok := tracker.Get(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, bookflow.ErrRecordNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, JobResponse{Job: rec})
}

func (e *GetJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a book job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp JobResponse
			if err := client.Get(cmd.Context(), "/api/jobs/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// CancelJobEndpoint handles DELETE /api/jobs/{id}.
type CancelJobEndpoint struct{}

func (e *CancelJobEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/jobs/{id}", e.handler
}

func (e *CancelJobEndpoint) RequiresSession() bool { return false }

// handler godoc
//
//	@Summary		Cancel a book job
//	@Description	Stop polling a running job. The job ends as failed. The PDF service may still finish the book.
//	@Tags			jobs
//	@Param			id	path	string	true	"Job ID"
//	@Success		204
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/jobs/{id} [delete]
func (e *CancelJobEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	tracker := svcctx.TrackerFrom(r.Context())
	if tracker == nil {
		writeError(w, http.StatusServiceUnavailable, "job tracker not initialized")
		return
	}

	if err := tracker.Cancel(r.PathValue("id")); err != nil {
		if errors.Is(err, bookflow.ErrRecordNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *CancelJobEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <id>",
		Short: "Cancel a running book job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/jobs/"+url.PathEscape(args[0]), nil); err != nil {
				return err
			}
			api.Progressf("Cancelled %s", args[0])
			return nil
		},
	}
}
