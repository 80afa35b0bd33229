// Package extract pulls plain text out of uploaded documents so it can be
// used as generation content. PDF, DOCX, PPTX, HTML and plain text are
// supported; the type is sniffed from the bytes, not the file name.
package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"flashgen/internal/domain"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

const (
	mimePDF  = "application/pdf"
	mimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	mimePPTX = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	mimeZIP  = "application/zip"
	mimeHTML = "text/html"
	mimeText = "text/plain"
)

// DefaultMaxXMLBytes caps the decompressed XML read out of one DOCX or PPTX
// container when no other limit is configured.
const DefaultMaxXMLBytes int64 = 32 << 20

var (
	errNoText      = errors.New("document contains no extractable text")
	errXMLTooLarge = errors.New("document body exceeds the decompressed size limit")
)

// Result is the text extracted from one document.
type Result struct {
	Text       string
	Characters int
	Truncated  bool
	MIME       string
}

// Extractor turns document bytes into plain text of at most maxChars
// characters.
type Extractor struct {
	maxChars    int
	maxXMLBytes int64
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMaxXMLBytes bounds the total decompressed size of the XML parts read
// from a DOCX or PPTX container. Non-positive values keep the default.
func WithMaxXMLBytes(n int64) Option {
	return func(e *Extractor) {
		if n > 0 {
			e.maxXMLBytes = n
		}
	}
}

func New(maxChars int, opts ...Option) *Extractor {
	e := &Extractor{maxChars: maxChars, maxXMLBytes: DefaultMaxXMLBytes}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract detects the document type of data and returns its text. Unknown
// or unreadable documents yield an UnsupportedDocument error.
func (e *Extractor) Extract(data []byte) (*Result, error) {
	if len(data) == 0 {
		return nil, domain.NewUnsupportedDocumentError(errors.New("empty file"))
	}

	mtype := mimetype.Detect(data)
	text, err := e.extract(mtype, data)
	if err != nil {
		return nil, domain.NewUnsupportedDocumentError(err).WithContext("mime", mtype.String())
	}

	text = cleanText(text)
	if text == "" {
		return nil, domain.NewUnsupportedDocumentError(errNoText).WithContext("mime", mtype.String())
	}

	result := &Result{MIME: mtype.String()}
	if e.maxChars > 0 && utf8.RuneCountInString(text) > e.maxChars {
		text = string([]rune(text)[:e.maxChars])
		result.Truncated = true
	}
	result.Text = text
	result.Characters = utf8.RuneCountInString(text)
	return result, nil
}

func (e *Extractor) extract(mtype *mimetype.MIME, data []byte) (string, error) {
	switch {
	case mtype.Is(mimePDF):
		return extractPDF(data)
	case mtype.Is(mimeDOCX), mtype.Is(mimePPTX), mtype.Is(mimeZIP):
		return extractOpenXML(data, e.maxXMLBytes, e.maxChars)
	case isA(mtype, mimeHTML):
		return extractHTML(decodeText(data, mtype.String()))
	case isA(mtype, mimeText):
		return decodeText(data, mtype.String()), nil
	default:
		return "", fmt.Errorf("unsupported file type %s", mtype.String())
	}
}

// isA reports whether mtype is want or a descendant of it in the mimetype
// hierarchy (e.g. text/csv under text/plain).
func isA(mtype *mimetype.MIME, want string) bool {
	for m := mtype; m != nil; m = m.Parent() {
		if m.Is(want) {
			return true
		}
	}
	return false
}

func extractPDF(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return string(b), nil
}

// extractOpenXML reads the text runs of a DOCX body or of every PPTX slide.
// The parts may decompress to at most maxBytes in total; an archive whose
// declared sizes exceed that is rejected before anything is inflated.
// Reading stops once more than maxChars non-space characters are collected.
func extractOpenXML(data []byte, maxBytes int64, maxChars int) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open zip container: %w", err)
	}

	var parts []*zip.File
	var total uint64
	for _, f := range zr.File {
		switch {
		case f.Name == "word/document.xml":
		case strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml"):
		default:
			continue
		}
		total += f.UncompressedSize64
		if total > uint64(maxBytes) {
			return "", fmt.Errorf("%s: %w", f.Name, errXMLTooLarge)
		}
		parts = append(parts, f)
	}
	if len(parts) == 0 {
		return "", errors.New("zip archive is not a docx or pptx document")
	}

	out := &textCollector{limit: maxChars}
	for _, f := range parts {
		if out.full() {
			break
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", f.Name, err)
		}
		// Never inflate past the declared size checked above.
		textFromXML(io.LimitReader(rc, int64(f.UncompressedSize64)), out)
		_ = rc.Close()
		out.WriteString("\n")
	}
	return out.String(), nil
}

// textCollector accumulates extracted text and reports when more than limit
// non-space runes have been gathered. A limit <= 0 never fills.
type textCollector struct {
	strings.Builder
	limit   int
	visible int
}

func (c *textCollector) add(b []byte) {
	c.Write(b)
	for _, r := range string(b) {
		if !unicode.IsSpace(r) {
			c.visible++
		}
	}
}

func (c *textCollector) full() bool {
	return c.limit > 0 && c.visible > c.limit
}

// textFromXML collects the character data of <w:t> and <a:t> runs. Paragraph
// ends (<w:p>, <a:p>) become line breaks.
func textFromXML(r io.Reader, out *textCollector) {
	dec := xml.NewDecoder(r)
	inText := false
	for !out.full() {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		switch t := tok.(type) {
		case xml.StartElement:
			inText = t.Name.Local == "t"
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				out.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				out.add(t)
			}
		}
	}
}

var skippedHTMLElements = map[string]bool{"script": true, "style": true, "noscript": true, "head": true}

var blockHTMLElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "blockquote": true, "pre": true,
}

func extractHTML(doc string) (string, error) {
	z := html.NewTokenizer(strings.NewReader(doc))
	var out strings.Builder
	skipDepth := 0
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if errors.Is(z.Err(), io.EOF) {
				return out.String(), nil
			}
			return "", fmt.Errorf("parse html: %w", z.Err())
		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if tt == html.StartTagToken && skippedHTMLElements[tag] {
				skipDepth++
			}
			if blockHTMLElements[tag] {
				out.WriteString("\n")
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			tag := string(name)
			if skippedHTMLElements[tag] && skipDepth > 0 {
				skipDepth--
			}
			if blockHTMLElements[tag] {
				out.WriteString("\n")
			}
		case html.TextToken:
			if skipDepth == 0 {
				out.Write(z.Text())
			}
		}
	}
}

// decodeText converts data to UTF-8, guessing the source encoding from the
// bytes and the detected content type when data is not valid UTF-8.
func decodeText(data []byte, contentType string) string {
	if utf8.Valid(data) {
		return string(data)
	}
	enc, _, _ := charset.DetermineEncoding(data, contentType)
	decoded, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), enc.NewDecoder()))
	if err != nil || !utf8.Valid(decoded) {
		return strings.ToValidUTF8(string(data), "")
	}
	return string(decoded)
}

// cleanText normalizes line endings, collapses runs of blanks inside lines
// and keeps at most one empty line between paragraphs.
func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\u00a0", " ")

	var out []string
	blank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if line == "" {
			if len(out) > 0 {
				blank = true
			}
			continue
		}
		if blank {
			out = append(out, "")
			blank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
