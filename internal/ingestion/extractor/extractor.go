package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	pdf "github.com/ledongthuc/pdf"

	"github.com/yungbote/labreport-backend/internal/platform/logger"
)

var (
	ErrNotPDF        = errors.New("document is not a PDF")
	ErrEmptyDocument = errors.New("document is empty")
	ErrTooLarge      = errors.New("document exceeds size limit")
	// ErrUnreadable wraps parser failures on documents that carry a PDF
	// header but cannot be decoded.
	ErrUnreadable = errors.New("document could not be decoded")
)

const defaultMaxBytes = 32 << 20

// PDFTextExtractor turns a PDF blob into one flattened line of text per page.
type PDFTextExtractor struct {
	log      *logger.Logger
	maxBytes int64
}

func NewPDFTextExtractor(log *logger.Logger, maxBytes int64) *PDFTextExtractor {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &PDFTextExtractor{log: log.With("component", "PDFTextExtractor"), maxBytes: maxBytes}
}

// ExtractPages reads the whole document and returns page texts in order.
// Line breaks inside a page are collapsed to single spaces so values that
// wrap onto the next line still sit next to their names.
func (e *PDFTextExtractor) ExtractPages(ctx context.Context, r io.Reader) ([]string, error) {
	data, err := io.ReadAll(io.LimitReader(r, e.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if int64(len(data)) > e.maxBytes {
		return nil, ErrTooLarge
	}
	if len(data) == 0 {
		return nil, ErrEmptyDocument
	}
	if !IsPDF(data) {
		return nil, ErrNotPDF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := readPDFPages(data)
	if err != nil {
		return nil, err
	}
	pages := make([]string, 0, len(raw))
	for _, p := range raw {
		pages = append(pages, FlattenPage(p))
	}
	e.log.Debug("pdf text extracted", "pages", len(pages))
	return pages, nil
}

func IsPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

// FlattenPage joins the lines of one page with single spaces.
func FlattenPage(text string) string {
	return strings.Join(strings.Fields(strings.ReplaceAll(text, "\u00a0", " ")), " ")
}

// readPDFPages recovers from parser panics, which the pdf package raises on
// some malformed cross-reference tables.
func readPDFPages(data []byte) (pages []string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages = nil
			err = fmt.Errorf("%w: pdf parse panic: %v", ErrUnreadable, rec)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: pdf reader: %v", ErrUnreadable, err)
	}
	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, pErr := p.GetPlainText(nil)
		if pErr != nil {
			return nil, fmt.Errorf("%w: pdf page %d text: %v", ErrUnreadable, i, pErr)
		}
		pages = append(pages, text)
	}
	return pages, nil
}
