package bookapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jackzampolin/wikibook/internal/types"
)

var (
	// ErrBookNotFound is returned when the library has no book with the given id.
	ErrBookNotFound = errors.New("book not found")
	// ErrForeignURL is returned for download URLs outside the service.
	ErrForeignURL = errors.New("download url is not on the pdf service")
	// ErrInvalidFileName is returned for download names that cannot be
	// saved inside the target directory.
	ErrInvalidFileName = errors.New("invalid file name")
	// ErrNotPDF is returned when a download does not start with a PDF header.
	ErrNotPDF = errors.New("downloaded file is not a pdf")
)

var uuidPattern = regexp.MustCompile(`(?i)[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}`)

// TaskIDFromURL extracts the task UUID embedded in a view or download URL.
func TaskIDFromURL(u string) string {
	return uuidPattern.FindString(u)
}

// BookTaskID returns the task id of a library book, falling back to the
// UUID embedded in its view or download URL.
func BookTaskID(b types.RemoteBook) string {
	if b.TaskID != "" {
		return b.TaskID
	}
	if id := TaskIDFromURL(b.ViewURL); id != "" {
		return id
	}
	return TaskIDFromURL(b.DownloadURL)
}

// PDFPath returns the part of a view URL the metadata and availability
// endpoints expect: everything after /pdf/view/, or the last path segment
// for other URLs.
func PDFPath(viewURL string) string {
	p := viewURL
	if parsed, err := url.Parse(viewURL); err == nil {
		p = parsed.Path
	}
	if i := strings.Index(p, "/pdf/view/"); i >= 0 {
		return p[i+len("/pdf/view/"):]
	}
	if base := path.Base(p); base != "." && base != "/" {
		return base
	}
	return ""
}

type booksResponse struct {
	Status  string             `json:"status"`
	Message string             `json:"message,omitempty"`
	Books   []types.RemoteBook `json:"books"`
}

// Books lists the signed-in user's library.
func (c *Client) Books(ctx context.Context) ([]types.RemoteBook, error) {
	var resp booksResponse
	if err := c.http.Get(ctx, "/books", &resp); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	if resp.Status != "success" {
		return nil, fmt.Errorf("list books: %s", orDefault(resp.Message, "unexpected response status "+resp.Status))
	}
	return resp.Books, nil
}

type bookResponse struct {
	types.RemoteBook
	Success bool              `json:"success"`
	Book    *types.RemoteBook `json:"book,omitempty"`
	Message string            `json:"message,omitempty"`
}

// Book returns one library book.
func (c *Client) Book(ctx context.Context, id string) (*types.RemoteBook, error) {
	var resp bookResponse
	if err := c.http.Get(ctx, "/book/"+url.PathEscape(id), &resp); err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}
	if !resp.Success {
		if resp.Message != "" {
			return nil, fmt.Errorf("get book: %w: %s", ErrBookNotFound, resp.Message)
		}
		return nil, fmt.Errorf("get book: %w", ErrBookNotFound)
	}
	if resp.Book != nil {
		return resp.Book, nil
	}
	return &resp.RemoteBook, nil
}

// DeleteBook removes a book from the library.
func (c *Client) DeleteBook(ctx context.Context, id string) error {
	var resp struct {
		Success bool   `json:"success"`
		Message string `json:"message,omitempty"`
	}
	if err := c.http.Delete(ctx, "/book/"+url.PathEscape(id), &resp); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("delete book: %s", orDefault(resp.Message, "delete failed"))
	}
	c.logger.Info("book deleted", "id", id)
	return nil
}

// PDFMetadata returns metadata for a generated file. When the service cannot
// answer, a minimal record derived from the path is returned instead.
func (c *Client) PDFMetadata(ctx context.Context, pdfPath string) types.PDFMetadata {
	var resp struct {
		Success  bool              `json:"success"`
		Metadata types.PDFMetadata `json:"metadata"`
		Message  string            `json:"message,omitempty"`
	}
	err := c.http.Get(ctx, "/pdf/metadata/"+url.PathEscape(pdfPath), &resp)
	if err == nil && resp.Success {
		return resp.Metadata
	}
	if err == nil {
		err = fmt.Errorf("%s", orDefault(resp.Message, "metadata unavailable"))
	}
	c.logger.Warn("pdf metadata unavailable, using file name", "path", pdfPath, "error", err)

	return types.PDFMetadata{
		Title:     strings.TrimSuffix(path.Base(pdfPath), ".pdf"),
		Author:    "unknown",
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

// CheckPDF reports whether a generated file can be viewed.
func (c *Client) CheckPDF(ctx context.Context, pdfPath string) bool {
	code, err := c.http.Head(ctx, "/pdf/view/"+strings.TrimPrefix(pdfPath, "/"))
	if err != nil {
		c.logger.Debug("pdf not available", "path", pdfPath, "error", err)
		return false
	}
	return code == 200
}

// Download streams a generated file to w. u may be relative to the service
// origin or absolute on the service or content origin; other hosts are
// refused with ErrForeignURL.
func (c *Client) Download(ctx context.Context, u string, w io.Writer) (int64, error) {
	resolved := c.ResolveURL(u)
	if !c.http.Trusts(resolved) {
		return 0, fmt.Errorf("download %s: %w", u, ErrForeignURL)
	}
	n, err := c.http.Download(ctx, resolved, w)
	if err != nil {
		return n, fmt.Errorf("download %s: %w", u, err)
	}
	return n, nil
}

// DownloadFile saves a generated file into dir and returns its path.
// name defaults to the last segment of the URL and is reduced to a plain
// file name; the result always lands directly in dir. Files without a PDF
// header are discarded.
func (c *Client) DownloadFile(ctx context.Context, u, dir, name string) (string, error) {
	if name == "" {
		name = fileNameFromURL(u)
	}
	dest, err := destPath(dir, name)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create download directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".download-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := c.Download(ctx, u, tmp); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := checkPDFHeader(tmp.Name()); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", fmt.Errorf("failed to move download into place: %w", err)
	}

	c.logger.Info("book downloaded", "path", dest)
	return dest, nil
}

// destPath joins dir and the base of name, refusing anything that would
// leave dir.
func destPath(dir, name string) (string, error) {
	base := filepath.Base(filepath.Clean(strings.ReplaceAll(name, "\\", "/")))
	if base == "." || base == ".." || base == string(filepath.Separator) || strings.HasPrefix(base, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve download directory: %w", err)
	}
	dest := filepath.Join(absDir, base)
	if filepath.Dir(dest) != absDir {
		return "", fmt.Errorf("%w: %q", ErrInvalidFileName, name)
	}
	return dest, nil
}

func checkPDFHeader(p string) error {
	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("failed to open download: %w", err)
	}
	defer f.Close()
	head := make([]byte, 5)
	if _, err := io.ReadFull(f, head); err != nil || string(head) != "%PDF-" {
		return ErrNotPDF
	}
	return nil
}

func fileNameFromURL(u string) string {
	p := u
	if parsed, err := url.Parse(u); err == nil {
		p = parsed.Path
	}
	name := path.Base(p)
	if name == "" || name == "." || name == "/" {
		name = "book"
	}
	if decoded, err := url.PathUnescape(name); err == nil {
		name = decoded
	}
	name = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == 0 {
			return '_'
		}
		return r
	}, name)
	if !strings.HasSuffix(strings.ToLower(name), ".pdf") {
		name += ".pdf"
	}
	return name
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
