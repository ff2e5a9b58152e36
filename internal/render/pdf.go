package render

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/jackzampolin/wikibook/internal/translate"
)

// PDFOptions configures the PDF layout.
type PDFOptions struct {
	// FontPath is a TrueType font with the glyphs the content needs. Without
	// it the core Helvetica font is used, which only covers Latin-1.
	FontPath string
	// FontFamily names the font registered from FontPath.
	FontFamily string
	// RTL lays text out right to left. Only honored with FontPath set.
	RTL         bool
	PageNumbers bool
	TOCTitle    string
}

// DefaultPDFOptions returns the default layout.
func DefaultPDFOptions() PDFOptions {
	return PDFOptions{
		FontFamily:  "BookFont",
		PageNumbers: true,
		TOCTitle:    "Contents",
	}
}

// PDFRenderer writes books as PDF.
type PDFRenderer struct {
	opts   PDFOptions
	logger *slog.Logger
}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer(opts PDFOptions, logger *slog.Logger) *PDFRenderer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.FontFamily == "" {
		opts.FontFamily = "BookFont"
	}
	if opts.TOCTitle == "" {
		opts.TOCTitle = "Contents"
	}
	return &PDFRenderer{opts: opts, logger: logger}
}

const (
	margin     = 20.0
	lineHeight = 6.0
)

// pdfDoc is one layout pass.
type pdfDoc struct {
	pdf    *gofpdf.Fpdf
	opts   PDFOptions
	family string
	rtl    bool
	tr     func(string) string
	starts []int
}

// Render writes book as PDF to w.
func (r *PDFRenderer) Render(w io.Writer, book Book) error {
	if len(book.Chapters) == 0 {
		return errors.New("book has no chapters")
	}

	// The first pass only records where each chapter starts; the table of
	// contents has the same length either way.
	first, err := r.layout(book, nil)
	if err != nil {
		return err
	}
	final, err := r.layout(book, first.starts)
	if err != nil {
		return err
	}

	if err := final.pdf.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	r.logger.Info("pdf rendered", "title", book.Settings.Title, "chapters", len(book.Chapters), "pages", final.pdf.PageCount())
	return nil
}

// RenderFile writes book as PDF to path.
func (r *PDFRenderer) RenderFile(path string, book Book) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := r.Render(f, book); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

func (r *PDFRenderer) layout(book Book, pageNums []int) (*pdfDoc, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, margin)
	pdf.SetTitle(book.Settings.Title, true)
	pdf.SetAuthor(book.Settings.Author, true)
	pdf.SetCreator("wikibook", true)

	d := &pdfDoc{pdf: pdf, opts: r.opts, family: "Helvetica", tr: func(s string) string { return s }}
	if r.opts.FontPath != "" {
		pdf.AddUTF8Font(r.opts.FontFamily, "", r.opts.FontPath)
		pdf.AddUTF8Font(r.opts.FontFamily, "B", r.opts.FontPath)
		pdf.AddUTF8Font(r.opts.FontFamily, "I", r.opts.FontPath)
		d.family = r.opts.FontFamily
		d.rtl = r.opts.RTL
		if d.rtl {
			pdf.RTL()
		}
	} else {
		d.tr = pdf.UnicodeTranslatorFromDescriptor("")
	}
	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to load font %s: %w", r.opts.FontPath, err)
	}

	if r.opts.PageNumbers {
		pdf.SetFooterFunc(func() {
			pdf.SetY(-15)
			pdf.SetFont(d.family, "I", 8)
			pdf.CellFormat(0, 10, fmt.Sprintf("%d", pdf.PageNo()), "", 0, "C", false, 0, "")
		})
	}

	d.cover(book)
	d.contents(book, pageNums)
	for _, ch := range book.Chapters {
		d.chapter(ch)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("failed to lay out pdf: %w", err)
	}
	return d, nil
}

func (d *pdfDoc) align() string {
	if d.rtl {
		return "R"
	}
	return "L"
}

func (d *pdfDoc) cover(book Book) {
	d.pdf.AddPage()
	d.pdf.SetY(80)
	d.pdf.SetFont(d.family, "B", 28)
	d.pdf.MultiCell(0, 12, d.tr(book.Settings.Title), "", "C", false)

	if book.Settings.Subtitle != "" {
		d.pdf.Ln(4)
		d.pdf.SetFont(d.family, "", 16)
		d.pdf.MultiCell(0, 8, d.tr(book.Settings.Subtitle), "", "C", false)
	}
	if book.Settings.Author != "" {
		d.pdf.Ln(10)
		d.pdf.SetFont(d.family, "I", 14)
		d.pdf.MultiCell(0, 8, d.tr("by "+book.Settings.Author), "", "C", false)
	}
}

func (d *pdfDoc) contents(book Book, pageNums []int) {
	d.pdf.AddPage()
	d.pdf.SetFont(d.family, "B", 20)
	d.pdf.CellFormat(0, 10, d.tr(d.opts.TOCTitle), "", 1, d.align(), false, 0, "")
	d.pdf.Ln(8)

	pageW, _ := d.pdf.GetPageSize()
	width := pageW - 2*margin
	titleW, numW := width*0.85, width*0.15
	titleAlign, numAlign := "L", "R"
	if d.rtl {
		titleAlign, numAlign = "R", "L"
	}

	d.pdf.SetFont(d.family, "", 12)
	for i, ch := range book.Chapters {
		num := ""
		if i < len(pageNums) {
			num = fmt.Sprintf("%d", pageNums[i])
		}
		d.pdf.CellFormat(titleW, 8, d.tr(fitText(d.pdf, ch.Title, titleW)), "", 0, titleAlign, false, 0, "")
		d.pdf.CellFormat(numW, 8, num, "", 1, numAlign, false, 0, "")
	}
}

func (d *pdfDoc) chapter(ch Chapter) {
	d.pdf.AddPage()
	d.starts = append(d.starts, d.pdf.PageNo())

	d.pdf.SetFont(d.family, "B", 22)
	d.pdf.MultiCell(0, 10, d.tr(ch.Title), "", d.align(), false)
	d.pdf.Ln(6)

	d.blocks(ch.Nodes)
}

// blocks lays out a node sequence. Inline runs between block nodes are
// gathered into paragraphs.
func (d *pdfDoc) blocks(nodes []translate.Node) {
	var inline []translate.Node
	flush := func() {
		if len(inline) > 0 {
			d.paragraph(inline)
			inline = nil
		}
	}

	for _, n := range nodes {
		switch n.Kind {
		case translate.KindParagraph:
			flush()
			d.paragraph(n.Children)
		case translate.KindHeading:
			flush()
			d.heading(n.Children, 16)
		case translate.KindSubheading:
			flush()
			d.heading(n.Children, 13)
		case translate.KindImage:
			flush()
			d.image(n)
		default:
			inline = append(inline, n)
		}
	}
	flush()
}

func (d *pdfDoc) heading(children []translate.Node, size float64) {
	text := collapse(translate.PlainText(children))
	if text == "" {
		return
	}
	d.pdf.Ln(4)
	d.pdf.SetFont(d.family, "B", size)
	d.pdf.MultiCell(0, size*0.5, d.tr(text), "", d.align(), false)
	d.pdf.Ln(2)
}

func (d *pdfDoc) paragraph(children []translate.Node) {
	if collapse(translate.PlainText(children)) == "" {
		d.images(children)
		return
	}

	d.pdf.SetFont(d.family, "", 11)
	if d.rtl {
		d.pdf.MultiCell(0, lineHeight, d.tr(collapse(translate.PlainText(children))), "", "R", false)
	} else {
		d.inline(children)
		d.pdf.Ln(lineHeight)
	}
	d.pdf.Ln(2)
	d.images(children)
}

// images lays out images nested inside inline content.
func (d *pdfDoc) images(nodes []translate.Node) {
	for _, n := range nodes {
		if n.Kind == translate.KindImage {
			d.image(n)
			continue
		}
		d.images(n.Children)
	}
}

func (d *pdfDoc) inline(nodes []translate.Node) {
	for _, n := range nodes {
		switch n.Kind {
		case translate.KindText:
			if text := collapseInline(n.Text); text != "" {
				d.pdf.Write(lineHeight, d.tr(text))
			}
		case translate.KindLink:
			text := collapseInline(translate.PlainText(n.Children))
			if text == "" {
				continue
			}
			d.pdf.SetTextColor(30, 60, 160)
			if strings.HasPrefix(n.Href, "http://") || strings.HasPrefix(n.Href, "https://") {
				d.pdf.WriteLinkString(lineHeight, d.tr(text), n.Href)
			} else {
				d.pdf.Write(lineHeight, d.tr(text))
			}
			d.pdf.SetTextColor(0, 0, 0)
		case translate.KindImage:
			// laid out by images
		default:
			d.inline(n.Children)
		}
	}
}

func (d *pdfDoc) image(n translate.Node) {
	if n.Src == "" {
		return
	}
	d.pdf.SetFont(d.family, "I", 9)
	d.pdf.SetTextColor(110, 110, 110)
	d.pdf.MultiCell(0, 5, d.tr("[image: "+path.Base(n.Src)+"]"), "", "C", false)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.Ln(2)
}

// collapseInline folds whitespace but keeps a single leading or trailing
// space so adjacent inline runs stay separated.
func collapseInline(s string) string {
	if strings.TrimSpace(s) == "" {
		if s != "" {
			return " "
		}
		return ""
	}
	out := collapse(s)
	if s[0] == ' ' || s[0] == '\n' || s[0] == '\t' {
		out = " " + out
	}
	if last := s[len(s)-1]; last == ' ' || last == '\n' || last == '\t' {
		out += " "
	}
	return out
}

// fitText shortens s with an ellipsis until it fits width.
func fitText(pdf *gofpdf.Fpdf, s string, width float64) string {
	s = collapse(s)
	if pdf.GetStringWidth(s) <= width-2 {
		return s
	}
	runes := []rune(s)
	for len(runes) > 1 {
		runes = runes[:len(runes)-1]
		if candidate := string(runes) + "..."; pdf.GetStringWidth(candidate) <= width-2 {
			return candidate
		}
	}
	return s
}
