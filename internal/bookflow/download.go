package bookflow

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/jackzampolin/wikibook/internal/render"
)

// ErrNoArtifact is returned when a finished book has no URL to download.
var ErrNoArtifact = errors.New("book has no download url")

// Downloader saves a generated file. *bookapi.Client implements it.
type Downloader interface {
	DownloadFile(ctx context.Context, u, dir, name string) (string, error)
}

// Download saves the book at downloadURL (or viewURL when that is empty)
// into dir and checks that the result is a readable PDF. An unreadable
// file is removed.
func Download(ctx context.Context, d Downloader, downloadURL, viewURL, dir, name string) (*render.PDFInfo, error) {
	u := downloadURL
	if u == "" {
		u = viewURL
	}
	if u == "" {
		return nil, ErrNoArtifact
	}
	path, err := d.DownloadFile(ctx, u, dir, name)
	if err != nil {
		return nil, err
	}
	info, err := render.Inspect(path)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("downloaded file is not a valid PDF: %w", err)
	}
	return info, nil
}
