package endpoints

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/wikibook/internal/api"
	"github.com/jackzampolin/wikibook/internal/bookapi"
	"github.com/jackzampolin/wikibook/internal/bookflow"
	"github.com/jackzampolin/wikibook/internal/render"
	"github.com/jackzampolin/wikibook/internal/svcctx"
	"github.com/jackzampolin/wikibook/internal/types"
)

// ListBooksResponse is the response for listing books.
type ListBooksResponse struct {
	Books []types.RemoteBook `json:"books"`
}

// BookResponse is one library book with details about its file.
type BookResponse struct {
	Book      types.RemoteBook   `json:"book"`
	Available bool               `json:"available"`
	Metadata  *types.PDFMetadata `json:"metadata,omitempty"`
}

// DownloadBookRequest selects a finished book to save locally. Set one of
// JobID, BookID or the URLs.
type DownloadBookRequest struct {
	JobID       string `json:"job_id,omitempty"`
	BookID      string `json:"book_id,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
	ViewURL     string `json:"view_url,omitempty"`
	// Name of the saved file (default: taken from the URL)
	Name string `json:"name,omitempty"`
}

// DownloadBookResponse describes the saved file.
type DownloadBookResponse struct {
	File *render.PDFInfo `json:"file"`
}

// withTaskID fills in the task id from the book's URLs when the service
// left it out.
func withTaskID(b types.RemoteBook) types.RemoteBook {
	b.TaskID = bookapi.BookTaskID(b)
	return b
}

// ListBooksEndpoint handles GET /api/books.
type ListBooksEndpoint struct{}

func (e *ListBooksEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books", e.handler
}

func (e *ListBooksEndpoint) RequiresSession() bool { return true }

// handler godoc
//
//	@Summary		List books
//	@Description	List the signed-in user's books on the PDF service
//	@Tags			books
//	@Produce		json
//	@Success		200	{object}	ListBooksResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		502	{object}	ErrorResponse
//	@Router			/api/books [get]
func (e *ListBooksEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	client := svcctx.BookAPIFrom(r.Context())
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "book service client not initialized")
		return
	}

	remote, err := client.Books(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	books := make([]types.RemoteBook, 0, len(remote))
	for _, b := range remote {
		books = append(books, withTaskID(b))
	}
	writeJSON(w, http.StatusOK, ListBooksResponse{Books: books})
}

func (e *ListBooksEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your books",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())
			var resp ListBooksResponse
			if err := client.Get(ctx, "/api/books", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetBookEndpoint handles GET /api/books/{id}.
type GetBookEndpoint struct{}

func (e *GetBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}", e.handler
}

func (e *GetBookEndpoint) RequiresSession() bool { return true }

// handler godoc
//
//	@Summary		Get a book
//	@Description	Get a library book, whether its file can be viewed, and the file's metadata
//	@Tags			books
//	@Produce		json
//	@Param			id	path		string	true	"Book ID"
//	@Success		200	{object}	BookResponse
//	@Failure		401	{object}	ErrorResponse
//	@Failure		502	{object}	ErrorResponse
//	@Router			/api/books/{id} [get]
func (e *GetBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	client := svcctx.BookAPIFrom(ctx)
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "book service client not initialized")
		return
	}

	book, err := client.Book(ctx, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	resp := BookResponse{Book: withTaskID(*book)}
	if pdfPath := bookapi.PDFPath(book.ViewURL); pdfPath != "" {
		resp.Available = client.CheckPDF(ctx, pdfPath)
		if resp.Available {
			meta := client.PDFMetadata(ctx, pdfPath)
			resp.Metadata = &meta
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *GetBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp BookResponse
			if err := client.Get(cmd.Context(), "/api/books/"+url.PathEscape(args[0]), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// DeleteBookEndpoint handles DELETE /api/books/{id}.
type DeleteBookEndpoint struct{}

func (e *DeleteBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/books/{id}", e.handler
}

func (e *DeleteBookEndpoint) RequiresSession() bool { return true }

// handler godoc
//
//	@Summary		Delete a book
//	@Description	Remove a book from the library on the PDF service
//	@Tags			books
//	@Param			id	path	string	true	"Book ID"
//	@Success		204
//	@Failure		401	{object}	ErrorResponse
//	@Failure		502	{object}	ErrorResponse
//	@Router			/api/books/{id} [delete]
func (e *DeleteBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	client := svcctx.BookAPIFrom(r.Context())
	if client == nil {
		writeError(w, http.StatusServiceUnavailable, "book service client not initialized")
		return
	}

	if err := client.DeleteBook(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a book from your library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			if err := client.Delete(cmd.Context(), "/api/books/"+url.PathEscape(args[0]), nil); err != nil {
				return err
			}
			api.Progressf("Deleted %s", args[0])
			return nil
		},
	}
}

// DownloadBookEndpoint handles POST /api/books/download.
type DownloadBookEndpoint struct{}

func (e *DownloadBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books/download", e.handler
}

func (e *DownloadBookEndpoint) RequiresSession() bool { return true }

// handler godoc
//
//	@Summary		Download a book
//	@Description	Save a finished book into the books directory and check the PDF
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			request	body		DownloadBookRequest	true	"Book to save"
//	@Success		200		{object}	DownloadBookResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/books/download [post]
func (e *DownloadBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req DownloadBookRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := r.Context()
	client := svcctx.BookAPIFrom(ctx)
	h := svcctx.HomeFrom(ctx)
	if client == nil || h == nil {
		writeError(w, http.StatusServiceUnavailable, "book service client not initialized")
		return
	}

	downloadURL, viewURL := req.DownloadURL, req.ViewURL
	switch {
	case req.JobID != "":
		tracker := svcctx.TrackerFrom(ctx)
		if tracker == nil {
			writeError(w, http.StatusServiceUnavailable, "job tracker not initialized")
			return
		}
		rec, ok := tracker.Get(req.JobID)
		if !ok {
			writeError(w, http.StatusNotFound, bookflow.ErrRecordNotFound.Error())
			return
		}
		if rec.Status != bookflow.StatusCompleted {
			writeError(w, http.StatusConflict, "book job has not completed")
			return
		}
		if rec.Job != nil {
			downloadURL, viewURL = rec.Job.DownloadURL, rec.Job.ViewURL
		}
	case req.BookID != "":
		book, err := client.Book(ctx, req.BookID)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		downloadURL, viewURL = book.DownloadURL, book.ViewURL
	}

	info, err := bookflow.Download(ctx, client, downloadURL, viewURL, h.BooksDir(), req.Name)
	if err != nil {
		if errors.Is(err, bookflow.ErrNoArtifact) || errors.Is(err, bookapi.ErrForeignURL) || errors.Is(err, bookapi.ErrInvalidFileName) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DownloadBookResponse{File: info})
}

func (e *DownloadBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req DownloadBookRequest
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Save a finished book on the server's disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.JobID == "" && req.BookID == "" && req.DownloadURL == "" && req.ViewURL == "" {
				return errors.New("one of --job, --book or --url is required")
			}
			client := api.NewClient(getServerURL())
			var resp DownloadBookResponse
			if err := client.Post(cmd.Context(), "/api/books/download", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&req.JobID, "job", "", "Completed job ID")
	cmd.Flags().StringVar(&req.BookID, "book", "", "Library book ID")
	cmd.Flags().StringVar(&req.DownloadURL, "url", "", "Download URL")
	cmd.Flags().StringVar(&req.Name, "name", "", "File name (default from URL)")
	return cmd
}
