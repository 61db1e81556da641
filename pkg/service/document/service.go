package document

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/jacespedes2019/ElSol-Challenge/pkg/domain/model"
	"github.com/ledongthuc/pdf"
	"github.com/m-mizutani/goerr/v2"
)

// Format is a document type text can be pulled from
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatHTML  Format = "html"
	FormatPlain Format = "plain"
)

var formatsByExt = map[string]Format{
	".pdf":      FormatPDF,
	".html":     FormatHTML,
	".htm":      FormatHTML,
	".txt":      FormatPlain,
	".md":       FormatPlain,
	".markdown": FormatPlain,
}

// imageExts need OCR, which is not provided
var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true, ".heic": true,
}

// Service extracts plain text from uploaded documents
type Service interface {
	ExtractText(ctx context.Context, filename string, data []byte) (string, error)
}

type client struct{}

func New() Service {
	return &client{}
}

// DetectFormat maps a filename to its document format. Images and unknown
// types yield model.ErrUnsupportedMedia.
func DetectFormat(filename string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if imageExts[ext] {
		return "", goerr.Wrap(model.ErrUnsupportedMedia, "image documents require OCR, which is not available",
			goerr.V("filename", filename))
	}
	format, ok := formatsByExt[ext]
	if !ok {
		return "", goerr.Wrap(model.ErrUnsupportedMedia, "unsupported document type",
			goerr.V("filename", filename), goerr.V("ext", ext))
	}
	return format, nil
}

func (c *client) ExtractText(ctx context.Context, filename string, data []byte) (string, error) {
	format, err := DetectFormat(filename)
	if err != nil {
		return "", err
	}

	var text string
	switch format {
	case FormatPDF:
		text, err = pdfText(data)
	case FormatHTML:
		text, err = htmlText(data)
	case FormatPlain:
		if !utf8.Valid(data) {
			return "", goerr.Wrap(model.ErrValidation, "text document is not valid UTF-8", goerr.V("filename", filename))
		}
		text = string(data)
	}
	if err != nil {
		return "", goerr.Wrap(err, "failed to extract document text", goerr.V("filename", filename))
	}

	return cleanWhitespace(text), nil
}

func pdfText(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = goerr.Wrap(model.ErrValidation, "malformed PDF", goerr.V("panic", r))
		}
	}()

	rdr, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", goerr.Wrap(model.ErrValidation, "failed to open PDF", goerr.V("cause", err.Error()))
	}
	b, err := rdr.GetPlainText()
	if err != nil {
		return "", goerr.Wrap(model.ErrValidation, "failed to read PDF text", goerr.V("cause", err.Error()))
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, b); err != nil {
		return "", goerr.Wrap(err, "failed to read PDF buffer")
	}
	return buf.String(), nil
}

// blockElements end a line of text. Inline elements keep their text joined.
const blockElements = "address, article, aside, blockquote, dd, div, dl, dt, fieldset, figcaption, figure, footer, " +
	"form, h1, h2, h3, h4, h5, h6, header, hr, li, main, nav, ol, p, pre, section, table, tbody, td, th, thead, tr, ul"

func htmlText(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", goerr.Wrap(model.ErrValidation, "failed to parse HTML", goerr.V("cause", err.Error()))
	}
	doc.Find("script, style, noscript, template").Remove()

	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}

	sel.Find("br").ReplaceWithHtml("\n")
	sel.Find(blockElements).BeforeHtml("\n").AfterHtml("\n")

	return sel.Text(), nil
}

var (
	blankRun = regexp.MustCompile(`[ \t\f\v]+`)
	lineRun  = regexp.MustCompile(`\s*\n\s*`)
)

func cleanWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = blankRun.ReplaceAllString(s, " ")
	s = lineRun.ReplaceAllString(s, "\n")
	return strings.TrimSpace(s)
}
