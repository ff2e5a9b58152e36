package translate

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	xhtml "golang.org/x/net/html"
)

func text(s string) Node { return Node{Kind: KindText, Text: s} }

func TestTranslate(t *testing.T) {
	tests := []struct {
		name     string
		fragment string
		want     []Node
	}{
		{
			name:     "text only",
			fragment: "hello world",
			want:     []Node{text("hello world")},
		},
		{
			name:     "entities decoded",
			fragment: "Tom &amp; Jerry",
			want:     []Node{text("Tom & Jerry")},
		},
		{
			name:     "empty",
			fragment: "",
			want:     nil,
		},
		{
			name:     "paragraph",
			fragment: "<p>one</p><p>two</p>",
			want: []Node{
				{Kind: KindParagraph, Children: []Node{text("one")}},
				{Kind: KindParagraph, Children: []Node{text("two")}},
			},
		},
		{
			name:     "headings",
			fragment: "<h1>A</h1><h2>B</h2><h3>C</h3><h4>D</h4>",
			want: []Node{
				{Kind: KindHeading, Children: []Node{text("A")}},
				{Kind: KindHeading, Children: []Node{text("B")}},
				{Kind: KindSubheading, Children: []Node{text("C")}},
				{Kind: KindSubheading, Children: []Node{text("D")}},
			},
		},
		{
			name:     "upper case tags",
			fragment: "<H1>Title</H1>",
			want:     []Node{{Kind: KindHeading, Children: []Node{text("Title")}}},
		},
		{
			name:     "link with href",
			fragment: `<a href="https://example.com/x">Y</a>`,
			want:     []Node{{Kind: KindLink, Href: "https://example.com/x", Children: []Node{text("Y")}}},
		},
		{
			name:     "link without href",
			fragment: `<a>Y</a>`,
			want:     []Node{{Kind: KindLink, Href: "#", Children: []Node{text("Y")}}},
		},
		{
			name:     "link with empty href",
			fragment: `<a href="">Y</a>`,
			want:     []Node{{Kind: KindLink, Href: "#", Children: []Node{text("Y")}}},
		},
		{
			name:     "image",
			fragment: `<img src="pic.png" alt="x">`,
			want:     []Node{{Kind: KindImage, Src: "pic.png"}},
		},
		{
			name:     "image without src",
			fragment: `<img alt="x">`,
			want:     []Node{{Kind: KindImage}},
		},
		{
			name:     "unknown tag spliced",
			fragment: "<foo>bar</foo>",
			want:     []Node{text("bar")},
		},
		{
			name:     "h5 is not a heading",
			fragment: "<h5>small</h5>",
			want:     []Node{text("small")},
		},
		{
			name:     "wrappers spliced in order",
			fragment: "<div>a<span>b</span><p>c</p></div>",
			want: []Node{
				text("a"),
				text("b"),
				{Kind: KindParagraph, Children: []Node{text("c")}},
			},
		},
		{
			name:     "inline formatting inside paragraph",
			fragment: "<p>a<b>bold</b>c</p>",
			want: []Node{
				{Kind: KindParagraph, Children: []Node{text("a"), text("bold"), text("c")}},
			},
		},
		{
			name:     "comments ignored",
			fragment: "<!-- note -->visible",
			want:     []Node{text("visible")},
		},
		{
			name:     "nested link in paragraph",
			fragment: `<p>see <a href="/wiki/X">X</a></p>`,
			want: []Node{
				{Kind: KindParagraph, Children: []Node{
					text("see "),
					{Kind: KindLink, Href: "/wiki/X", Children: []Node{text("X")}},
				}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Translate(tt.fragment)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Translate(%q)\n got: %#v\nwant: %#v", tt.fragment, got, tt.want)
			}
		})
	}
}

func TestTranslate_Fallback(t *testing.T) {
	t.Run("parser error", func(t *testing.T) {
		tr := New(WithParser(func(string) ([]*xhtml.Node, error) {
			return nil, errors.New("boom")
		}))
		got := tr.Translate("<p>Hello &amp; <b>world</b></p>")
		want := []Node{text("Hello & world")}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	})

	t.Run("parser panic", func(t *testing.T) {
		tr := New(WithParser(func(string) ([]*xhtml.Node, error) {
			panic("unexpected")
		}))
		got := tr.Translate("<i>plain</i>")
		want := []Node{text("plain")}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	})

	t.Run("nesting beyond ceiling", func(t *testing.T) {
		tr := New(WithMaxDepth(3))
		got := tr.Translate("<div><div><div><p>x</p></div></div></div>")
		want := []Node{text("x")}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	})

	t.Run("nesting within ceiling", func(t *testing.T) {
		tr := New(WithMaxDepth(3))
		got := tr.Translate("<div><div><p>x</p></div></div>")
		want := []Node{{Kind: KindParagraph, Children: []Node{text("x")}}}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %#v, want %#v", got, want)
		}
	})

	t.Run("default ceiling", func(t *testing.T) {
		deep := strings.Repeat("<div>", DefaultMaxDepth+10) + "deep" + strings.Repeat("</div>", DefaultMaxDepth+10)
		got := Translate(deep)
		want := []Node{text("deep")}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("got %d nodes, want single stripped text node", len(got))
		}
	})
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"<p>Tom &amp; Jerry</p>", "Tom & Jerry"},
		{"<b>a</b> &lt;tag&gt;", "a <tag>"},
		{"no markup", "no markup"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := StripTags(tt.in); got != tt.want {
			t.Errorf("StripTags(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPlainTextAndHeadings(t *testing.T) {
	nodes := Translate("<h2>Intro</h2><p>Some <a href='#'>linked</a> text</p><h3> Details </h3>")

	if got, want := PlainText(nodes), "IntroSome linked text Details "; got != want {
		t.Errorf("PlainText() = %q, want %q", got, want)
	}
	if got, want := Headings(nodes), []string{"Intro", "Details"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Headings() = %v, want %v", got, want)
	}
}
