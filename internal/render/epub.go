package render

import (
	"errors"
	"fmt"
	"html"
	"io"
	"log/slog"
	"regexp"
	"strings"

	epub "github.com/go-shiori/go-epub"
)

var imgSrcRegex = regexp.MustCompile(`<img src="([^"]+)"`)

// EPUBRenderer writes books as EPUB.
type EPUBRenderer struct {
	// EmbedImages downloads remote images into the archive. Images that
	// cannot be fetched keep their remote address.
	EmbedImages bool
	logger      *slog.Logger
}

// NewEPUBRenderer creates an EPUBRenderer.
func NewEPUBRenderer(logger *slog.Logger) *EPUBRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &EPUBRenderer{logger: logger}
}

func (r *EPUBRenderer) build(book Book) (*epub.Epub, error) {
	if len(book.Chapters) == 0 {
		return nil, errors.New("book has no chapters")
	}

	title := book.Settings.Title
	if title == "" {
		title = "Untitled"
	}
	e, err := epub.NewEpub(title)
	if err != nil {
		return nil, fmt.Errorf("failed to create epub: %w", err)
	}
	if book.Settings.Author != "" {
		e.SetAuthor(book.Settings.Author)
	}
	if book.Settings.Subtitle != "" {
		e.SetDescription(book.Settings.Subtitle)
	}
	lang := book.Lang
	if lang == "" {
		lang = "he"
	}
	e.SetLang(lang)

	if _, err := e.AddSection(titlePage(book), title, "title.xhtml", ""); err != nil {
		return nil, fmt.Errorf("failed to add title page: %w", err)
	}

	images := 0
	for i, ch := range book.Chapters {
		body := "<h1>" + html.EscapeString(ch.Title) + "</h1>\n" + XHTML(ch.Nodes)
		if r.EmbedImages {
			body = r.embedImages(e, body, &images)
		}
		if _, err := e.AddSection(body, ch.Title, fmt.Sprintf("chapter-%03d.xhtml", i+1), ""); err != nil {
			return nil, fmt.Errorf("failed to add chapter %q: %w", ch.Title, err)
		}
	}
	return e, nil
}

// Render writes book as EPUB to w.
func (r *EPUBRenderer) Render(w io.Writer, book Book) error {
	e, err := r.build(book)
	if err != nil {
		return err
	}
	if _, err := e.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write epub: %w", err)
	}
	r.logger.Info("epub rendered", "title", book.Settings.Title, "chapters", len(book.Chapters))
	return nil
}

// RenderFile writes book as EPUB to path.
func (r *EPUBRenderer) RenderFile(path string, book Book) error {
	e, err := r.build(book)
	if err != nil {
		return err
	}
	if err := e.Write(path); err != nil {
		return fmt.Errorf("failed to write epub file: %w", err)
	}
	r.logger.Info("epub rendered", "path", path, "chapters", len(book.Chapters))
	return nil
}

func (r *EPUBRenderer) embedImages(e *epub.Epub, body string, count *int) string {
	return imgSrcRegex.ReplaceAllStringFunc(body, func(match string) string {
		src := html.UnescapeString(imgSrcRegex.FindStringSubmatch(match)[1])
		if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
			return match
		}
		*count++
		internal, err := e.AddImage(src, fmt.Sprintf("image-%03d%s", *count, imageExt(src)))
		if err != nil {
			r.logger.Warn("failed to embed image", "src", src, "error", err)
			return match
		}
		return `<img src="` + html.EscapeString(internal) + `"`
	})
}

func titlePage(book Book) string {
	var b strings.Builder
	b.WriteString("<h1>" + html.EscapeString(book.Settings.Title) + "</h1>\n")
	if book.Settings.Subtitle != "" {
		b.WriteString("<h2>" + html.EscapeString(book.Settings.Subtitle) + "</h2>\n")
	}
	if book.Settings.Author != "" {
		b.WriteString("<p>by " + html.EscapeString(book.Settings.Author) + "</p>\n")
	}
	return b.String()
}

func imageExt(src string) string {
	if i := strings.IndexAny(src, "?#"); i >= 0 {
		src = src[:i]
	}
	if i := strings.LastIndex(src, "."); i >= 0 && i > strings.LastIndex(src, "/") {
		if ext := strings.ToLower(src[i:]); len(ext) <= 5 {
			return ext
		}
	}
	return ""
}
