package main

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/wikibook/internal/config"
	"github.com/jackzampolin/wikibook/internal/home"
	"github.com/jackzampolin/wikibook/internal/svcctx"
)

// openHome resolves --home and creates its directories.
func openHome() (*home.Dir, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}
	return h, nil
}

// loadConfig reads --config, falling back to the home directory's
// config.yaml when --home is given and the file exists.
func loadConfig(h *home.Dir) (*config.Manager, error) {
	file := cfgFile
	if file == "" && homeDir != "" && h.ConfigExists() {
		file = h.ConfigPath()
	}
	return config.NewManager(file)
}

// standalone wires the services for commands that run without a server.
// The saved session is restored when the service still accepts it.
func standalone(ctx context.Context, logger *slog.Logger) (*svcctx.Services, error) {
	h, err := openHome()
	if err != nil {
		return nil, err
	}
	mgr, err := loadConfig(h)
	if err != nil {
		return nil, err
	}
	svcs, err := svcctx.New(ctx, mgr.Get(), h, logger)
	if err != nil {
		return nil, err
	}
	if _, err := svcs.Session.Load(ctx); err != nil {
		logger.Warn("could not restore session", "error", err)
	}
	return svcs, nil
}
