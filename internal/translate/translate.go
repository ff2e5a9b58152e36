// Package translate converts sanitized HTML fragments into a small tree of
// typed document nodes that renderers can lay out without knowing HTML.
//
// Element dispatch is by lower-cased tag name:
//
//	p        -> paragraph
//	h1, h2   -> heading
//	h3, h4   -> subheading
//	a        -> link (href, default "#")
//	img      -> image (src, default "")
//	other    -> children spliced into the parent sequence
//
// Text is emitted verbatim with entities already decoded. Comments and
// doctypes produce nothing. Translation never fails: if the fragment cannot
// be walked, the whole input collapses to a single text node holding its
// tag-stripped content.
package translate

import (
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// DefaultMaxDepth bounds element nesting during the walk.
const DefaultMaxDepth = 512

// ErrTooDeep is returned by the walk when nesting exceeds the depth ceiling.
var ErrTooDeep = errors.New("html nesting exceeds maximum depth")

// Kind identifies a document node variant.
type Kind string

const (
	KindParagraph  Kind = "paragraph"
	KindHeading    Kind = "heading"
	KindSubheading Kind = "subheading"
	KindLink       Kind = "link"
	KindImage      Kind = "image"
	KindText       Kind = "text"
)

// Node is one translated document node.
// Text is set only for KindText, Href only for KindLink, Src only for KindImage.
type Node struct {
	Kind     Kind   `json:"kind"`
	Text     string `json:"text,omitempty"`
	Href     string `json:"href,omitempty"`
	Src      string `json:"src,omitempty"`
	Children []Node `json:"children,omitempty"`
}

// ParseFunc parses an HTML fragment into its top-level nodes.
type ParseFunc func(fragment string) ([]*xhtml.Node, error)

// Translator converts HTML fragments to nodes. The zero value is not usable;
// construct with New. A Translator is safe for concurrent use.
type Translator struct {
	maxDepth int
	parse    ParseFunc
	strip    *bluemonday.Policy
	logger   *slog.Logger
}

// Option configures a Translator.
type Option func(*Translator)

// WithMaxDepth sets the nesting ceiling. Values <= 0 keep the default.
func WithMaxDepth(depth int) Option {
	return func(t *Translator) {
		if depth > 0 {
			t.maxDepth = depth
		}
	}
}

// WithParser replaces the HTML parser.
func WithParser(fn ParseFunc) Option {
	return func(t *Translator) {
		if fn != nil {
			t.parse = fn
		}
	}
}

// WithLogger sets the logger used to report fallbacks.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Translator) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates a Translator.
func New(opts ...Option) *Translator {
	t := &Translator{
		maxDepth: DefaultMaxDepth,
		parse:    ParseFragment,
		strip:    bluemonday.StrictPolicy(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

var defaultTranslator = New()

// Translate converts a fragment using the default Translator.
func Translate(fragment string) []Node {
	return defaultTranslator.Translate(fragment)
}

// StripTags removes all markup from a fragment and decodes entities.
func StripTags(fragment string) string {
	return defaultTranslator.StripTags(fragment)
}

// ParseFragment parses s as the content of a <body> element.
func ParseFragment(s string) ([]*xhtml.Node, error) {
	body := &xhtml.Node{Type: xhtml.ElementNode, Data: "body", DataAtom: atom.Body}
	return xhtml.ParseFragment(strings.NewReader(s), body)
}

// Translate converts fragment into document nodes in document order.
func (t *Translator) Translate(fragment string) (nodes []Node) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("html translation panicked, using stripped text", "panic", r)
			nodes = t.fallback(fragment)
		}
	}()

	nodes, err := t.translate(fragment)
	if err != nil {
		t.logger.Debug("html translation failed, using stripped text", "error", err)
		return t.fallback(fragment)
	}
	return nodes
}

// StripTags removes all markup from a fragment and decodes entities.
func (t *Translator) StripTags(fragment string) string {
	return html.UnescapeString(t.strip.Sanitize(fragment))
}

func (t *Translator) translate(fragment string) ([]Node, error) {
	roots, err := t.parse(fragment)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}

	var out []Node
	for _, n := range roots {
		translated, err := t.walk(n, 1)
		if err != nil {
			return nil, err
		}
		out = append(out, translated...)
	}
	return out, nil
}

func (t *Translator) fallback(fragment string) []Node {
	return []Node{{Kind: KindText, Text: t.StripTags(fragment)}}
}

func (t *Translator) walk(n *xhtml.Node, depth int) ([]Node, error) {
	switch n.Type {
	case xhtml.TextNode:
		return []Node{{Kind: KindText, Text: n.Data}}, nil
	case xhtml.ElementNode:
	default:
		return nil, nil
	}

	if depth > t.maxDepth {
		return nil, ErrTooDeep
	}

	switch strings.ToLower(n.Data) {
	case "img":
		return []Node{{Kind: KindImage, Src: attr(n, "src", "")}}, nil
	case "p":
		return t.container(n, depth, Node{Kind: KindParagraph})
	case "h1", "h2":
		return t.container(n, depth, Node{Kind: KindHeading})
	case "h3", "h4":
		return t.container(n, depth, Node{Kind: KindSubheading})
	case "a":
		return t.container(n, depth, Node{Kind: KindLink, Href: attr(n, "href", "#")})
	default:
		return t.children(n, depth)
	}
}

func (t *Translator) container(n *xhtml.Node, depth int, node Node) ([]Node, error) {
	children, err := t.children(n, depth)
	if err != nil {
		return nil, err
	}
	node.Children = children
	return []Node{node}, nil
}

func (t *Translator) children(n *xhtml.Node, depth int) ([]Node, error) {
	var out []Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		translated, err := t.walk(c, depth+1)
		if err != nil {
			return nil, err
		}
		out = append(out, translated...)
	}
	return out, nil
}

// attr returns the value of key, or def when the attribute is missing or empty.
func attr(n *xhtml.Node, key, def string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) && a.Val != "" {
			return a.Val
		}
	}
	return def
}
