package pdftext

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/coverline/claimlens/internal/core/domain"
	"github.com/coverline/claimlens/internal/core/ports"
)

type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, doc *domain.ClaimDocument) (domain.DocumentText, error) {
	rc, err := e.storage.Open(ctx, doc.StorageKey)
	if err != nil {
		return domain.DocumentText{}, fmt.Errorf("open source document: %w", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return domain.DocumentText{}, fmt.Errorf("read source document: %w", err)
	}

	reader, err := parse(raw)
	if err != nil {
		return domain.DocumentText{}, domain.WrapError(domain.ErrInvalidInput, "parse pdf", err)
	}

	content := joinPages(collectPages(reader, doc.Filename))
	if content == "" {
		return domain.DocumentText{}, domain.WrapError(domain.ErrInvalidInput, "extract pdf text",
			errors.New("document contains no extractable text"))
	}

	return domain.DocumentText{Content: content, Pages: reader.NumPage()}, nil
}

// The parser panics on some malformed cross-reference tables instead of
// returning an error, so parsing is fenced off here.
func parse(raw []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()
	return pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
}

type pageText struct {
	number int
	text   string
}

// collectPages pulls the plain text of every page, skipping pages the
// parser cannot decode. Image-only pages come back empty and are dropped
// later by joinPages.
func collectPages(reader *pdf.Reader, filename string) []pageText {
	total := reader.NumPage()
	pages := make([]pageText, 0, total)
	for n := 1; n <= total; n++ {
		page := reader.Page(n)
		if page.V.IsNull() {
			continue
		}
		text, err := readPage(page)
		if err != nil {
			slog.Warn("pdf_page_unreadable", "filename", filename, "page", n, "error", err)
			continue
		}
		pages = append(pages, pageText{number: n, text: text})
	}
	return pages
}

func readPage(page pdf.Page) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()
	return page.GetPlainText(nil)
}

// joinPages assembles the per-page text with page markers so a finding can
// cite a location inside the document.
func joinPages(pages []pageText) string {
	var b strings.Builder
	for _, p := range pages {
		trimmed := strings.TrimSpace(p.text)
		if trimmed == "" {
			continue
		}
		fmt.Fprintf(&b, "--- Page %d ---\n%s\n", p.number, trimmed)
	}
	return strings.TrimSpace(b.String())
}
