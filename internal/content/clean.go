package content

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/russross/blackfriday/v2"
)

// WikiNoiseSelectors are removed from wiki pages before printing.
var WikiNoiseSelectors = []string{
	".mw-editsection",
	".dablink",
	".sistersitebox",
	"#toc",
	".toc",
	".toccolours",
	".metadata",
	".plainlinks",
	".thumb",
	"script",
	"style",
	".gallery",
	".noprint",
	".error",
	".mw-empty-elt",
	".aspaklarya-edit-full-locked",
}

// CleanWikiHTML strips editing and navigation chrome from rendered wiki HTML
// and returns the inner markup of the article body.
func CleanWikiHTML(raw string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to parse wiki html: %w", err)
	}

	doc.Find(strings.Join(WikiNoiseSelectors, ", ")).Remove()

	article := doc.Find(".mw-parser-output").First()
	if article.Length() == 0 {
		article = doc.Find("body").First()
	}
	html, err := article.Html()
	if err != nil {
		return "", fmt.Errorf("failed to render wiki html: %w", err)
	}
	return strings.TrimSpace(html), nil
}

// MainContent returns the markup of the first main, article or body
// element of a document.
func MainContent(raw string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}
	doc.Find("script, style, nav, header, footer").Remove()

	for _, sel := range []string{"main", "article", "body"} {
		if s := doc.Find(sel).First(); s.Length() > 0 {
			return s.Html()
		}
	}
	return "", ErrEmptyContent
}

// RenderMarkdown converts markdown to HTML and returns the text of its first
// heading as a title candidate.
func RenderMarkdown(src []byte) (html, title string) {
	parser := blackfriday.New(blackfriday.WithExtensions(blackfriday.CommonExtensions))
	ast := parser.Parse(src)
	ast.Walk(func(node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if entering && node.Type == blackfriday.Heading {
			title = strings.TrimSpace(nodeText(node))
			return blackfriday.Terminate
		}
		return blackfriday.GoToNext
	})

	return string(blackfriday.Run(src)), title
}

func nodeText(node *blackfriday.Node) string {
	var b strings.Builder
	node.Walk(func(n *blackfriday.Node, entering bool) blackfriday.WalkStatus {
		if entering && (n.Type == blackfriday.Text || n.Type == blackfriday.Code) {
			b.Write(n.Literal)
		}
		return blackfriday.GoToNext
	})
	return b.String()
}
