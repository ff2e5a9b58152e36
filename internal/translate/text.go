package translate

import "strings"

// PlainText concatenates the text content of nodes in document order.
func PlainText(nodes []Node) string {
	var b strings.Builder
	writeText(&b, nodes)
	return b.String()
}

func writeText(b *strings.Builder, nodes []Node) {
	for _, n := range nodes {
		if n.Kind == KindText {
			b.WriteString(n.Text)
			continue
		}
		writeText(b, n.Children)
	}
}

// Walk calls fn for every node in pre-order. Returning false from fn skips
// that node's children.
func Walk(nodes []Node, fn func(Node) bool) {
	for _, n := range nodes {
		if fn(n) {
			Walk(n.Children, fn)
		}
	}
}

// Headings returns the plain text of every heading and subheading.
func Headings(nodes []Node) []string {
	var out []string
	Walk(nodes, func(n Node) bool {
		if n.Kind == KindHeading || n.Kind == KindSubheading {
			if text := strings.TrimSpace(PlainText(n.Children)); text != "" {
				out = append(out, text)
			}
			return false
		}
		return true
	})
	return out
}
