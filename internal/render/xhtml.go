package render

import (
	"html"
	"strings"

	"github.com/jackzampolin/wikibook/internal/translate"
)

// XHTML serializes translated nodes back into well-formed markup. Loose
// inline runs at the top level are wrapped in paragraphs.
func XHTML(nodes []translate.Node) string {
	var b strings.Builder
	var inline []translate.Node
	flush := func() {
		if strings.TrimSpace(translate.PlainText(inline)) != "" || hasImage(inline) {
			b.WriteString("<p>")
			writeInline(&b, inline)
			b.WriteString("</p>\n")
		}
		inline = nil
	}

	for _, n := range nodes {
		switch n.Kind {
		case translate.KindParagraph:
			flush()
			b.WriteString("<p>")
			writeInline(&b, n.Children)
			b.WriteString("</p>\n")
		case translate.KindHeading:
			flush()
			writeHeading(&b, "h2", n.Children)
		case translate.KindSubheading:
			flush()
			writeHeading(&b, "h3", n.Children)
		default:
			inline = append(inline, n)
		}
	}
	flush()
	return b.String()
}

func writeHeading(b *strings.Builder, tag string, children []translate.Node) {
	text := collapse(translate.PlainText(children))
	if text == "" {
		return
	}
	b.WriteString("<" + tag + ">")
	b.WriteString(html.EscapeString(text))
	b.WriteString("</" + tag + ">\n")
}

func writeInline(b *strings.Builder, nodes []translate.Node) {
	for _, n := range nodes {
		switch n.Kind {
		case translate.KindText:
			b.WriteString(html.EscapeString(n.Text))
		case translate.KindLink:
			b.WriteString(`<a href="` + html.EscapeString(n.Href) + `">`)
			writeInline(b, n.Children)
			b.WriteString("</a>")
		case translate.KindImage:
			if n.Src != "" {
				b.WriteString(`<img src="` + html.EscapeString(n.Src) + `" alt=""/>`)
			}
		default:
			// Block nodes nested in inline content keep only their text.
			writeInline(b, n.Children)
		}
	}
}

func hasImage(nodes []translate.Node) bool {
	found := false
	translate.Walk(nodes, func(n translate.Node) bool {
		if n.Kind == translate.KindImage && n.Src != "" {
			found = true
		}
		return !found
	})
	return found
}
