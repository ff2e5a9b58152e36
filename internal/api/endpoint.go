package api

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Endpoint defines both an HTTP route and its corresponding CLI command.
type Endpoint interface {
	// Route returns the HTTP method, path, and handler for this endpoint.
	Route() (method, path string, handler http.HandlerFunc)

	// RequiresSession reports whether the handler needs a signed-in session.
	// The server answers 401 for these routes until one exists.
	RequiresSession() bool

	// Command returns a Cobra command that calls this endpoint via HTTP.
	// getServerURL is called at runtime so the --server flag is honored.
	Command(getServerURL func() string) *cobra.Command
}
