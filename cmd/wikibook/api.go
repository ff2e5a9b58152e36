package main

import (
	"github.com/spf13/cobra"

	"github.com/jackzampolin/wikibook/internal/api"
	"github.com/jackzampolin/wikibook/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running wikibook server via HTTP.

These commands require a running server (wikibook serve).
Use --server to specify a custom server URL.

Examples:
  wikibook api health                      # Check server health
  wikibook api auth login --email me@x.org # Sign the server in
  wikibook api search pages "solar"        # Search the wiki
  wikibook api jobs create --page Sun      # Submit a book
  wikibook api jobs watch <id>             # Follow a job`,
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return serverURL
}

// group builds a subcommand holding the commands of eps.
func group(use, short string, eps []api.Endpoint) *cobra.Command {
	cmd := &cobra.Command{Use: use, Short: short}
	for _, ep := range eps {
		cmd.AddCommand(ep.Command(getServerURL))
	}
	return cmd
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	for _, ep := range endpoints.HealthCommands() {
		apiCmd.AddCommand(ep.Command(getServerURL))
	}

	apiCmd.AddCommand(group("auth", "Session commands", endpoints.AuthCommands()))
	apiCmd.AddCommand(group("search", "Wiki search commands", endpoints.SearchCommands()))
	apiCmd.AddCommand(group("jobs", "Book job commands", endpoints.JobCommands()))
	apiCmd.AddCommand(group("books", "Library and preview commands", endpoints.BookCommands()))
	apiCmd.AddCommand(group("settings", "Configuration settings commands", endpoints.SettingsCommands()))

	rootCmd.AddCommand(apiCmd)
}
