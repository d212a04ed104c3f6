// Package pdftext extracts plain text from input documents. It is the host
// package generated parsers import as "parsegen/pdftext".
package pdftext

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"

	"parsegen/internal/logging"
)

// ErrUnsupported is returned for inputs that are neither PDF nor plain text.
type ErrUnsupported struct {
	Path string
	MIME string
}

func (e *ErrUnsupported) Error() string {
	return fmt.Sprintf("unsupported document type %s for %s", e.MIME, e.Path)
}

// Text returns the whole document as one string, pages separated by a
// newline.
func Text(path string) (string, error) {
	pages, err := Pages(path)
	if err != nil {
		return "", err
	}
	return strings.Join(pages, "\n"), nil
}

// Pages returns the plain text of each page in order. A plain-text input is a
// single page.
func Pages(path string) ([]string, error) {
	kind, err := detect(path)
	if err != nil {
		return nil, err
	}
	if kind == kindText {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []string{string(data)}, nil
	}
	return readPDF(path)
}

// readPDF extracts row-grouped text page by page. The PDF library panics on
// some malformed inputs; those become errors.
// openPDF is swapped out in tests.
var openPDF = pdf.Open

func readPDF(path string) (pages []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("read pdf %s: %v", path, rec)
		}
	}()

	f, r, err := openPDF(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	pages = make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("page %d of %s: %w", i, path, err)
		}
		var sb strings.Builder
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, t := range row.Content {
				if s := strings.TrimSpace(t.S); s != "" {
					words = append(words, s)
				}
			}
			if len(words) == 0 {
				continue
			}
			sb.WriteString(strings.Join(words, " "))
			sb.WriteByte('\n')
		}
		pages = append(pages, sb.String())
	}
	logging.SandboxDebug("pdftext: %s has %d pages", path, len(pages))
	return pages, nil
}

// Lines returns every non-blank line of every page, trimmed.
func Lines(path string) ([]string, error) {
	pages, err := Pages(path)
	if err != nil {
		return nil, err
	}
	var lines []string
	for _, page := range pages {
		for _, line := range strings.Split(page, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return lines, nil
}

// PlainText returns the document's text as the PDF library's reader
// concatenates it, without row grouping. Useful when row detection splits
// table cells.
func PlainText(path string) (string, error) {
	kind, err := detect(path)
	if err != nil {
		return "", err
	}
	if kind == kindText {
		data, err := os.ReadFile(path)
		return string(data), err
	}

	return plainPDF(path)
}

func plainPDF(path string) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("read pdf %s: %v", path, rec)
		}
	}()

	f, r, err := openPDF(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	rd, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract text from %s: %w", path, err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rd); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type docKind int

const (
	kindPDF docKind = iota
	kindText
)

func detect(path string) (docKind, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return 0, fmt.Errorf("detect type of %s: %w", path, err)
	}
	if mt.Is("application/pdf") {
		return kindPDF, nil
	}
	for m := mt; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return kindText, nil
		}
	}
	return 0, &ErrUnsupported{Path: path, MIME: mt.String()}
}
