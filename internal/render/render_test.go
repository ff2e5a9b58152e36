package render

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/jackzampolin/wikibook/internal/content"
	"github.com/jackzampolin/wikibook/internal/translate"
	"github.com/jackzampolin/wikibook/internal/types"
)

func testBook() Book {
	return Book{
		Settings: types.BookSettings{Title: "Cities", Subtitle: "A short tour", Author: "Dana"},
		Chapters: ChaptersFromPages([]*content.Page{
			{Title: "Haifa", URL: "https://wiki.test/Haifa", HTML: `<h2>History</h2><p>A port on the <a href="https://wiki.test/Carmel">Carmel</a> coast.</p><img src="https://img.test/haifa.jpg">`},
			{Title: "Jerusalem & Co", URL: "https://wiki.test/Jerusalem", HTML: `<p>Old city.</p><h3>Walls</h3>loose text`},
		}, nil),
	}
}

func TestPDFRenderer_Render(t *testing.T) {
	r := NewPDFRenderer(DefaultPDFOptions(), nil)

	var buf bytes.Buffer
	if err := r.Render(&buf, testBook()); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Errorf("output is not a PDF: %q", buf.Bytes()[:min(16, buf.Len())])
	}
}

func TestPDFRenderer_ChapterStarts(t *testing.T) {
	r := NewPDFRenderer(DefaultPDFOptions(), nil)
	doc, err := r.layout(testBook(), nil)
	if err != nil {
		t.Fatal(err)
	}
	// cover, contents, then one page per short chapter
	if want := []int{3, 4}; !reflect.DeepEqual(doc.starts, want) {
		t.Errorf("chapter starts = %v, want %v", doc.starts, want)
	}
}

func TestPDFRenderer_RenderFileAndInspect(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.pdf")
	if err := NewPDFRenderer(DefaultPDFOptions(), nil).RenderFile(path, testBook()); err != nil {
		t.Fatalf("RenderFile() error = %v", err)
	}

	info, err := Inspect(path)
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if info.Pages != 4 {
		t.Errorf("Pages = %d, want 4", info.Pages)
	}
	if info.Size == 0 || info.Path != path {
		t.Errorf("info = %+v", info)
	}
}

func TestPDFRenderer_Errors(t *testing.T) {
	r := NewPDFRenderer(DefaultPDFOptions(), nil)
	if err := r.Render(io.Discard, Book{}); err == nil {
		t.Error("expected error for empty book")
	}

	bad := NewPDFRenderer(PDFOptions{FontPath: filepath.Join(t.TempDir(), "missing.ttf")}, nil)
	if err := bad.Render(io.Discard, testBook()); err == nil {
		t.Error("expected error for missing font")
	}
}

func TestInspect_NotPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x.pdf")
	os.WriteFile(path, []byte("hello"), 0o644)
	if _, err := Inspect(path); err == nil {
		t.Error("expected error")
	}
	if _, err := Inspect(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestEPUBRenderer_RenderFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "book.epub")
	if err := NewEPUBRenderer(nil).RenderFile(path, testBook()); err != nil {
		t.Fatalf("RenderFile() error = %v", err)
	}

	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("not a zip: %v", err)
	}
	defer zr.Close()

	files := map[string]string{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		data, _ := io.ReadAll(rc)
		rc.Close()
		files[filepath.Base(f.Name)] = string(data)
	}

	if files["mimetype"] != "application/epub+zip" {
		t.Errorf("mimetype = %q", files["mimetype"])
	}
	for name, want := range map[string]string{
		"title.xhtml":       "A short tour",
		"chapter-001.xhtml": `<a href="https://wiki.test/Carmel">Carmel</a>`,
		"chapter-002.xhtml": "Jerusalem &amp; Co",
	} {
		if !strings.Contains(files[name], want) {
			t.Errorf("%s does not contain %q", name, want)
		}
	}
}

func TestEPUBRenderer_Render(t *testing.T) {
	var buf bytes.Buffer
	if err := NewEPUBRenderer(nil).Render(&buf, testBook()); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("PK")) {
		t.Error("output is not a zip archive")
	}
	if err := NewEPUBRenderer(nil).Render(io.Discard, Book{}); err == nil {
		t.Error("expected error for empty book")
	}
}

func TestXHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "paragraph with link",
			in:   `<p>See <a href="/x?a=1&b=2">here</a>.</p>`,
			want: "<p>See <a href=\"/x?a=1&amp;b=2\">here</a>.</p>\n",
		},
		{
			name: "headings",
			in:   `<h1>Top</h1><h4>Sub &lt;part&gt;</h4>`,
			want: "<h2>Top</h2>\n<h3>Sub &lt;part&gt;</h3>\n",
		},
		{
			name: "loose text wrapped",
			in:   `just <b>text</b>`,
			want: "<p>just text</p>\n",
		},
		{
			name: "whitespace only dropped",
			in:   "  \n ",
			want: "",
		},
		{
			name: "image",
			in:   `<img src="a.png">`,
			want: "<p><img src=\"a.png\" alt=\"\"/></p>\n",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := XHTML(translate.Translate(tt.in)); got != tt.want {
				t.Errorf("XHTML() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCollapseInline(t *testing.T) {
	tests := map[string]string{
		"":           "",
		"   ":        " ",
		"a  b":       "a b",
		" lead":      " lead",
		"trail\n":    "trail ",
		"\tboth  x ": " both x ",
	}
	for in, want := range tests {
		if got := collapseInline(in); got != want {
			t.Errorf("collapseInline(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestImageExt(t *testing.T) {
	tests := map[string]string{
		"https://img.test/a.JPG":        ".jpg",
		"https://img.test/a.png?w=100":  ".png",
		"https://img.test/dir.v2/photo": "",
	}
	for in, want := range tests {
		if got := imageExt(in); got != want {
			t.Errorf("imageExt(%q) = %q, want %q", in, got, want)
		}
	}
}
