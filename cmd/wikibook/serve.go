package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/wikibook/internal/server"
	"github.com/jackzampolin/wikibook/internal/svcctx"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the wikibook desk server",
	Long: `Start the wikibook HTTP server.

The server keeps the session with the PDF service, runs book jobs in the
background and reloads its configuration when the config file changes.

The server provides:
  - /health - Basic server health check
  - /ready  - Readiness check (includes PDF service status)
  - /status - Session, service and job summary
  - /api/*  - Search, jobs, books, previews and settings

Examples:
  wikibook serve                    # Start on the configured port (8080)
  wikibook serve --port 3000        # Start on custom port
  wikibook serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger, err := newLogger(os.Stdout)
		if err != nil {
			return err
		}

		h, err := openHome()
		if err != nil {
			return err
		}
		mgr, err := loadConfig(h)
		if err != nil {
			return err
		}
		if mgr.ConfigFile() != "" {
			mgr.WatchConfig()
		}
		cfg := mgr.Get()

		svcs, err := svcctx.New(ctx, cfg, h, logger)
		if err != nil {
			return err
		}

		host := cfg.Server.Host
		if cmd.Flags().Changed("host") {
			host = serveHost
		}
		port := cfg.Server.Port
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv, err := server.New(server.Config{
			Host:               host,
			Port:               port,
			RateLimitPerMinute: cfg.Server.RateLimitPerMinute,
			Services:           svcs,
			ConfigManager:      mgr,
			Logger:             logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to (overrides server.host)")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on (overrides server.port)")

	rootCmd.AddCommand(serveCmd)
}
