// Package document turns uploaded agreement files into plain text for
// providers that cannot read the original bytes.
package document

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ppiankov/creditlens/internal/model"
	"golang.org/x/net/html"
)

// Kind is the normalised document family
type Kind string

const (
	KindText     Kind = "text"
	KindMarkdown Kind = "markdown"
	KindCSV      Kind = "csv"
	KindJSON     Kind = "json"
	KindHTML     Kind = "html"
	KindPDF      Kind = "pdf"
	KindUnknown  Kind = "unknown"
)

var extensionKinds = map[string]Kind{
	".txt":      KindText,
	".text":     KindText,
	".md":       KindMarkdown,
	".markdown": KindMarkdown,
	".csv":      KindCSV,
	".json":     KindJSON,
	".html":     KindHTML,
	".htm":      KindHTML,
	".pdf":      KindPDF,
}

// Detect classifies a file by its declared content type, then by extension
func Detect(file model.DocumentFile) Kind {
	mime := strings.ToLower(strings.TrimSpace(file.MimeType))
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch mime {
	case "text/plain":
		return KindText
	case "text/markdown", "text/x-markdown":
		return KindMarkdown
	case "text/csv":
		return KindCSV
	case "application/json":
		return KindJSON
	case "text/html", "application/xhtml+xml":
		return KindHTML
	case "application/pdf":
		return KindPDF
	}
	if kind, ok := extensionKinds[strings.ToLower(filepath.Ext(file.Name))]; ok {
		return kind
	}
	return KindUnknown
}

// ToText returns the readable text of file. Binary formats, including PDF,
// fail with model.ErrExtraction since there is no OCR.
func ToText(file model.DocumentFile) (string, error) {
	kind := Detect(file)
	switch kind {
	case KindText, KindMarkdown, KindCSV:
		return plain(file)
	case KindJSON:
		return indentJSON(file)
	case KindHTML:
		return visibleHTML(file)
	default:
		return "", fmt.Errorf("%w: %s (%s) cannot be read as text", model.ErrExtraction, file.Name, file.MimeType)
	}
}

func plain(file model.DocumentFile) (string, error) {
	if !utf8.Valid(file.Data) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", model.ErrExtraction, file.Name)
	}
	return strings.TrimPrefix(string(file.Data), "\ufeff"), nil
}

func indentJSON(file model.DocumentFile) (string, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, file.Data, "", "  "); err != nil {
		return "", fmt.Errorf("%w: %s: %v", model.ErrExtraction, file.Name, err)
	}
	return buf.String(), nil
}

func visibleHTML(file model.DocumentFile) (string, error) {
	doc, err := html.Parse(bytes.NewReader(file.Data))
	if err != nil {
		return "", fmt.Errorf("%w: parse html: %v", model.ErrExtraction, err)
	}
	return visibleText(doc), nil
}

// visibleText walks the tree keeping text nodes outside script-like elements.
// Block elements end a line so clause numbering stays readable.
func visibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "template":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.Join(strings.Fields(n.Data), " ")
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockElements[n.Data] {
			buf.WriteString("\n")
		}
	}

	walk(n)
	return tidy(buf.String())
}

var blockElements = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true, "table": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"section": true, "article": true, "blockquote": true, "pre": true,
}

func tidy(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
