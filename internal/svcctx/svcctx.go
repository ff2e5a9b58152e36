// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackzampolin/wikibook/internal/bookapi"
	"github.com/jackzampolin/wikibook/internal/bookflow"
	"github.com/jackzampolin/wikibook/internal/config"
	"github.com/jackzampolin/wikibook/internal/content"
	"github.com/jackzampolin/wikibook/internal/home"
	"github.com/jackzampolin/wikibook/internal/poller"
	"github.com/jackzampolin/wikibook/internal/render"
	"github.com/jackzampolin/wikibook/internal/session"
	"github.com/jackzampolin/wikibook/internal/translate"
	"github.com/jackzampolin/wikibook/internal/wiki"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Config      *config.Config
	ConfigStore config.Store
	Session     *session.Manager
	BookAPI     *bookapi.Client
	Wiki        *wiki.Client
	Fetcher     *content.Fetcher
	Flow        *bookflow.Flow
	Tracker     *bookflow.Tracker
	Previewer   *bookflow.Previewer
	Logger      *slog.Logger
	Home        *home.Dir
}

// New wires every service from cfg. Background flows started through the
// tracker are cancelled when ctx is done. The saved session is not loaded;
// call Session.Load when a validated session is needed.
func New(ctx context.Context, cfg *config.Config, h *home.Dir, logger *slog.Logger) (*Services, error) {
	if logger == nil {
		logger = slog.Default()
	}

	sess := session.NewManager(h.SessionPath(), logger)
	bookClient, err := bookapi.New(bookapi.Config{
		BaseURL:        cfg.Backend.BaseURL,
		ContentBaseURL: cfg.Backend.ContentBaseURL,
		Timeout:        cfg.Backend.Timeout(),
		Tokens:         sess,
		OnUnauthorized: sess.Clear,
		Logger:         logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create book service client: %w", err)
	}
	sess.SetAuthenticator(bookClient)

	wikiClient := wiki.NewClient(WikiConfig(cfg, logger))
	fetcher := content.NewFetcher(wikiClient, content.WithLogger(logger))

	flow := bookflow.New(bookflow.Config{
		Service: bookClient,
		Tokens:  sess,
		Poller: poller.New(poller.Config{
			Interval:    cfg.Poll.Interval(),
			MaxAttempts: cfg.Poll.MaxAttempts,
			Logger:      logger,
		}),
		WikiBaseURL:  cfg.Wiki.RestURL,
		DefaultTitle: cfg.Book.DefaultTitle,
		Logger:       logger,
	})

	pdfOpts := render.DefaultPDFOptions()
	pdfOpts.FontPath = cfg.Render.FontPath
	if cfg.Render.FontFamily != "" {
		pdfOpts.FontFamily = cfg.Render.FontFamily
	}
	pdfOpts.RTL = cfg.Render.RTL

	previewer := bookflow.NewPreviewer(bookflow.PreviewConfig{
		Fetcher:    fetcher,
		Translator: translate.New(translate.WithLogger(logger)),
		PDF:        render.NewPDFRenderer(pdfOpts, logger),
		EPUB:       render.NewEPUBRenderer(logger),
		Dir:        h.PreviewsDir(),
		Lang:       cfg.Render.Lang,
		Logger:     logger,
	})

	return &Services{
		Config:      cfg,
		ConfigStore: config.NewStore(h.ConfigPath()),
		Session:     sess,
		BookAPI:     bookClient,
		Wiki:        wikiClient,
		Fetcher:     fetcher,
		Flow:        flow,
		Tracker:     bookflow.NewTracker(ctx, flow, logger),
		Previewer:   previewer,
		Logger:      logger,
		Home:        h,
	}, nil
}

// WikiConfig converts the wiki section of cfg.
func WikiConfig(cfg *config.Config, logger *slog.Logger) wiki.Config {
	w := cfg.Wiki
	return wiki.Config{
		APIURL:               w.APIURL,
		RestURL:              w.RestURL,
		SearchURL:            w.SearchURL,
		SiteURL:              w.SiteURL,
		CategoryPrefix:       w.CategoryPrefix,
		SearchLimit:          w.SearchLimit,
		MinSearchLength:      w.MinSearchLength,
		CacheTTL:             w.CacheTTL(),
		Timeout:              cfg.Backend.Timeout(),
		ExcludeCategories:    w.ExcludeCategories,
		RestrictToCategories: w.RestrictToCategories,
		Logger:               logger,
	}
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// ConfigFrom extracts the loaded configuration from context.
func ConfigFrom(ctx context.Context) *config.Config {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// ConfigStoreFrom extracts the config store from context.
func ConfigStoreFrom(ctx context.Context) config.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.ConfigStore
	}
	return nil
}

// SessionFrom extracts the session manager from context.
func SessionFrom(ctx context.Context) *session.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Session
	}
	return nil
}

// BookAPIFrom extracts the PDF service client from context.
func BookAPIFrom(ctx context.Context) *bookapi.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.BookAPI
	}
	return nil
}

// WikiFrom extracts the wiki client from context.
func WikiFrom(ctx context.Context) *wiki.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.Wiki
	}
	return nil
}

// FlowFrom extracts the submission flow from context.
func FlowFrom(ctx context.Context) *bookflow.Flow {
	if s := ServicesFrom(ctx); s != nil {
		return s.Flow
	}
	return nil
}

// TrackerFrom extracts the background job tracker from context.
func TrackerFrom(ctx context.Context) *bookflow.Tracker {
	if s := ServicesFrom(ctx); s != nil {
		return s.Tracker
	}
	return nil
}

// PreviewerFrom extracts the local previewer from context.
func PreviewerFrom(ctx context.Context) *bookflow.Previewer {
	if s := ServicesFrom(ctx); s != nil {
		return s.Previewer
	}
	return nil
}

// LoggerFrom extracts the logger from context, falling back to slog's
// default logger.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
