// Package render lays out translated pages locally as a PDF preview or an
// EPUB export, and inspects finished PDF files.
package render

import (
	"strings"

	"github.com/jackzampolin/wikibook/internal/content"
	"github.com/jackzampolin/wikibook/internal/translate"
	"github.com/jackzampolin/wikibook/internal/types"
)

// Chapter is one source page ready for layout.
type Chapter struct {
	Title string
	URL   string
	Nodes []translate.Node
}

// Book is everything a renderer needs.
type Book struct {
	Settings types.BookSettings
	Chapters []Chapter
	// Lang is the BCP 47 language tag written into EPUB metadata.
	Lang string
}

// ChaptersFromPages translates fetched pages into chapters.
func ChaptersFromPages(pages []*content.Page, tr *translate.Translator) []Chapter {
	if tr == nil {
		tr = translate.New()
	}
	chapters := make([]Chapter, 0, len(pages))
	for _, p := range pages {
		chapters = append(chapters, Chapter{
			Title: p.Title,
			URL:   p.URL,
			Nodes: tr.Translate(p.HTML),
		})
	}
	return chapters
}

// collapse folds runs of whitespace into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
