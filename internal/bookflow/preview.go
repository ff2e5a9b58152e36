package bookflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/jackzampolin/wikibook/internal/content"
	"github.com/jackzampolin/wikibook/internal/render"
	"github.com/jackzampolin/wikibook/internal/translate"
	"github.com/jackzampolin/wikibook/internal/types"
)

// Format is a local output format.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatEPUB Format = "epub"
)

// ParseFormat accepts "pdf" and "epub", case-insensitively. Blank means PDF.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case "", FormatPDF:
		return FormatPDF, nil
	case FormatEPUB:
		return FormatEPUB, nil
	default:
		return "", fmt.Errorf("unsupported format %q (want pdf or epub)", s)
	}
}

// PageFetcher loads source pages. *content.Fetcher implements it.
type PageFetcher interface {
	FetchAll(ctx context.Context, srcs []types.SourcePage) ([]*content.Page, error)
}

// PreviewResult describes a locally rendered file.
type PreviewResult struct {
	Path     string   `json:"path" yaml:"path"`
	Format   Format   `json:"format" yaml:"format"`
	Title    string   `json:"title" yaml:"title"`
	Chapters []string `json:"chapters" yaml:"chapters"`
	Pages    int      `json:"pages,omitempty" yaml:"pages,omitempty"`
	Size     int64    `json:"size" yaml:"size"`
}

// Previewer renders books locally without the PDF service.
type Previewer struct {
	fetcher    PageFetcher
	translator *translate.Translator
	pdf        *render.PDFRenderer
	epub       *render.EPUBRenderer
	dir        string
	lang       string
	logger     *slog.Logger
}

// PreviewConfig configures a Previewer.
type PreviewConfig struct {
	Fetcher    PageFetcher
	Translator *translate.Translator
	PDF        *render.PDFRenderer
	EPUB       *render.EPUBRenderer
	// Dir receives rendered files.
	Dir    string
	Lang   string
	Logger *slog.Logger
}

// NewPreviewer creates a Previewer.
func NewPreviewer(cfg PreviewConfig) *Previewer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Translator == nil {
		cfg.Translator = translate.New(translate.WithLogger(cfg.Logger))
	}
	if cfg.PDF == nil {
		cfg.PDF = render.NewPDFRenderer(render.DefaultPDFOptions(), cfg.Logger)
	}
	if cfg.EPUB == nil {
		cfg.EPUB = render.NewEPUBRenderer(cfg.Logger)
	}
	if cfg.Dir == "" {
		cfg.Dir = os.TempDir()
	}
	return &Previewer{
		fetcher:    cfg.Fetcher,
		translator: cfg.Translator,
		pdf:        cfg.PDF,
		epub:       cfg.EPUB,
		dir:        cfg.Dir,
		lang:       cfg.Lang,
		logger:     cfg.Logger,
	}
}

// Preview fetches every page, translates it and writes a local file.
func (p *Previewer) Preview(ctx context.Context, req Request, format Format) (*PreviewResult, error) {
	if err := Validate(req.Pages); err != nil {
		return nil, err
	}

	pages, err := p.fetcher.FetchAll(ctx, req.Pages)
	if err != nil {
		return nil, err
	}

	settings := req.Settings
	settings.Title = ResolveTitle(settings, "")
	book := render.Book{
		Settings: settings,
		Chapters: render.ChaptersFromPages(pages, p.translator),
		Lang:     p.lang,
	}

	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create preview directory: %w", err)
	}
	name := fmt.Sprintf("%s-%s.%s", slug(settings.Title), uuid.New().String()[:8], format)
	path := filepath.Join(p.dir, name)

	result := &PreviewResult{Path: path, Format: format, Title: settings.Title}
	for _, ch := range book.Chapters {
		result.Chapters = append(result.Chapters, ch.Title)
	}

	switch format {
	case FormatEPUB:
		if err := p.epub.RenderFile(path, book); err != nil {
			return nil, err
		}
		stat, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("failed to stat preview: %w", err)
		}
		result.Size = stat.Size()
	default:
		if err := p.pdf.RenderFile(path, book); err != nil {
			return nil, err
		}
		info, err := render.Inspect(path)
		if err != nil {
			return nil, err
		}
		result.Pages = info.Pages
		result.Size = info.Size
	}

	p.logger.Info("preview rendered", "path", path, "format", format, "chapters", len(book.Chapters))
	return result, nil
}

// slug makes a file-name-safe version of title. Letters of any script are
// kept.
func slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "book"
	}
	return s
}
