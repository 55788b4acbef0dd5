package extract

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor extracts page text from PDF documents. It runs a
// primary plain-text engine first and retries the whole document with
// a secondary row-based engine when the primary fails or yields no
// text; scanned or oddly-encoded PDFs often succeed on only one of
// the two.
type PDFExtractor struct {
	logger *slog.Logger
}

// NewPDFExtractor creates a PDF extractor.
func NewPDFExtractor() *PDFExtractor {
	return &PDFExtractor{logger: slog.Default().With("component", "extract-pdf")}
}

type pdfEngine func(page pdf.Page) (string, error)

// Extract implements Extractor.
func (e *PDFExtractor) Extract(ctx context.Context, content []byte) (*Result, error) {
	if len(content) < 4 || !bytes.HasPrefix(content, []byte("%PDF")) {
		return nil, fmt.Errorf("not a PDF file: invalid header")
	}

	result, primaryErr := e.extractWith(ctx, content, pagePlainText)
	if primaryErr == nil {
		return result, nil
	}

	e.logger.Warn("primary pdf engine failed, retrying with row-based engine", "err", primaryErr)
	result, secondaryErr := e.extractWith(ctx, content, pageTextByRow)
	if secondaryErr == nil {
		return result, nil
	}
	return nil, fmt.Errorf("both pdf engines failed: primary: %v, secondary: %w", primaryErr, secondaryErr)
}

func (e *PDFExtractor) extractWith(ctx context.Context, content []byte, engine pdfEngine) (result *Result, err error) {
	// The pdf library panics on some malformed documents; treat a
	// panic as an engine failure so the secondary still gets a shot.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("pdf engine panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	total := reader.NumPage()
	labels := make([]string, 0, total)
	segments := make([]string, 0, total)

	for i := 1; i <= total; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, pageErr := engine(page)
		if pageErr != nil {
			e.logger.Debug("pdf page extraction failed", "page", i, "err", pageErr)
			continue
		}
		labels = append(labels, fmt.Sprintf("page %d", i))
		segments = append(segments, text)
	}

	return resultFromSegments(labels, segments)
}

func pagePlainText(page pdf.Page) (string, error) {
	return page.GetPlainText(nil)
}

func pageTextByRow(page pdf.Page) (string, error) {
	rows, err := page.GetTextByRow()
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, row := range rows {
		for _, word := range row.Content {
			sb.WriteString(word.S)
			sb.WriteString(" ")
		}
		sb.WriteString("\n")
	}
	return sb.String(), nil
}
