package endpoints

import (
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/wikibook/internal/api"
	"github.com/jackzampolin/wikibook/internal/bookflow"
	"github.com/jackzampolin/wikibook/internal/svcctx"
)

// PreviewRequest is the body of POST /api/preview.
type PreviewRequest struct {
	bookflow.Request
	// Format is pdf (default) or epub.
	Format string `json:"format,omitempty"`
}

// PreviewResponse describes the rendered file. URL serves it from this
// server.
type PreviewResponse struct {
	Preview *bookflow.PreviewResult `json:"preview"`
	URL     string                  `json:"url"`
}

// PreviewEndpoint handles POST /api/preview.
type PreviewEndpoint struct{}

func (e *PreviewEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/preview", e.handler
}

func (e *PreviewEndpoint) RequiresSession() bool { return false }

// handler godoc
//
//	@Summary		Render a preview
//	@Description	Fetch the pages and render them locally to PDF or EPUB without the PDF service
//	@Tags			preview
//	@Accept			json
//	@Produce		json
//	@Param			request	body		PreviewRequest	true	"Pages, settings and format"
//	@Success		200		{object}	PreviewResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/preview [post]
func (e *PreviewEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	format, err := bookflow.ParseFormat(req.Format)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	previewer := svcctx.PreviewerFrom(r.Context())
	if previewer == nil {
		writeError(w, http.StatusServiceUnavailable, "previewer not initialized")
		return
	}

	result, err := previewer.Preview(r.Context(), req.Request, format)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{
		Preview: result,
		URL:     "/api/previews/" + url.PathEscape(filepath.Base(result.Path)),
	})
}

func (e *PreviewEndpoint) Command(getServerURL func() string) *cobra.Command {
	var flags BookFlags
	var format string
	cmd := &cobra.Command{
		Use:   "preview [page...]",
		Short: "Render a book locally on the server",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			req := PreviewRequest{Request: flags.Request(args), Format: format}
			var resp PreviewResponse
			if err := client.Post(cmd.Context(), "/api/preview", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	flags.Register(cmd)
	cmd.Flags().StringVarP(&format, "format", "f", "pdf", "Output format (pdf or epub)")
	return cmd
}

// PreviewFileEndpoint handles GET /api/previews/{name}.
type PreviewFileEndpoint struct{}

func (e *PreviewFileEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/previews/{name}", e.handler
}

func (e *PreviewFileEndpoint) RequiresSession() bool { return false }

// handler godoc
//
//	@Summary		Fetch a preview file
//	@Description	Serve a file rendered by /api/preview
//	@Tags			preview
//	@Produce		application/pdf,application/epub+zip
//	@Param			name	path	string	true	"File name"
//	@Success		200
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/previews/{name} [get]
func (e *PreviewFileEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	h := svcctx.HomeFrom(r.Context())
	if h == nil {
		writeError(w, http.StatusServiceUnavailable, "home directory not initialized")
		return
	}

	name := r.PathValue("name")
	if name == "" || name != filepath.Base(name) || name[0] == '.' {
		writeError(w, http.StatusNotFound, "preview not found")
		return
	}

	path := filepath.Join(h.PreviewsDir(), name)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, "preview not found")
		return
	}
	if filepath.Ext(name) == ".epub" {
		w.Header().Set("Content-Type", "application/epub+zip")
	}
	http.ServeFile(w, r, path)
}

func (e *PreviewFileEndpoint) Command(getServerURL func() string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "fetch <name>",
		Short: "Copy a rendered preview from the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := out
			if dest == "" {
				dest = filepath.Base(args[0])
			}
			f, err := os.Create(dest)
			if err != nil {
				return err
			}
			client := api.NewClient(getServerURL())
			n, err := client.Download(cmd.Context(), "/api/previews/"+url.PathEscape(filepath.Base(args[0])), f)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				os.Remove(dest)
				return err
			}
			api.Progressf("Saved %s (%d bytes)", dest, n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Destination file (default: the preview's name)")
	return cmd
}
