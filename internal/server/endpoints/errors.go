package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"

	"github.com/jackzampolin/wikibook/internal/api"
	"github.com/jackzampolin/wikibook/internal/bookapi"
	"github.com/jackzampolin/wikibook/internal/bookflow"
	"github.com/jackzampolin/wikibook/internal/poller"
)

// writeServiceError maps an error from the PDF service or wiki to a response.
// Upstream 4xx answers keep their status; everything else from upstream is a
// bad gateway.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		statusErr    *api.StatusError
		transportErr *api.TransportError
		jobErr       *poller.JobFailedError
	)
	switch {
	case bookflow.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, bookapi.ErrBookNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, bookflow.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &jobErr), errors.Is(err, bookapi.ErrNotPDF):
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, poller.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &statusErr):
		code := statusErr.StatusCode
		if code < 400 {
			code = http.StatusBadRequest
		} else if code >= 500 {
			code = http.StatusBadGateway
		}
		writeError(w, code, err.Error())
	case errors.As(err, &transportErr):
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeBody decodes a JSON request body into v and answers 400 on failure.
// Bodies must be sent as application/json, which browsers cannot do
// cross-site without a preflight.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		writeError(w, http.StatusUnsupportedMediaType, "content type must be application/json")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
