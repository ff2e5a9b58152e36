// Package bookflow drives book creation: local validation, submission to
// the PDF service, polling until the job settles, and tracking of flows
// running in the background.
package bookflow

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackzampolin/wikibook/internal/types"
)

// DefaultTitle is used when the user leaves the book title blank.
const DefaultTitle = "My Book"

// ErrNoPages is returned when a book has no source pages.
var ErrNoPages = errors.New("add at least one page to the book")

// ValidationError reports an invalid source page.
type ValidationError struct {
	// Index is the zero-based position of the page.
	Index   int
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("page %d: %s", e.Index+1, e.Message)
}

// Validate checks pages before anything is sent. Duplicates are allowed.
func Validate(pages []types.SourcePage) error {
	if len(pages) == 0 {
		return ErrNoPages
	}
	for i, p := range pages {
		if strings.TrimSpace(p.URL) == "" {
			return &ValidationError{Index: i, Message: "url is empty"}
		}
	}
	return nil
}

// PageRefs returns the trimmed URLs of pages in order.
func PageRefs(pages []types.SourcePage) []string {
	refs := make([]string, len(pages))
	for i, p := range pages {
		refs[i] = strings.TrimSpace(p.URL)
	}
	return refs
}

// ResolveTitle returns the trimmed title, or def when it is blank.
func ResolveTitle(settings types.BookSettings, def string) string {
	if title := strings.TrimSpace(settings.Title); title != "" {
		return title
	}
	if def == "" {
		def = DefaultTitle
	}
	return def
}

// IsValidation reports whether err was caused by invalid input.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.Is(err, ErrNoPages) || errors.As(err, &ve)
}
