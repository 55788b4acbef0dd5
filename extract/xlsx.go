package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSXExtractor extracts sheet contents from Excel workbooks as
// pipe-separated rows, one boundary per sheet.
type XLSXExtractor struct{}

// NewXLSXExtractor creates an XLSX extractor.
func NewXLSXExtractor() *XLSXExtractor {
	return &XLSXExtractor{}
}

// Extract implements Extractor.
func (e *XLSXExtractor) Extract(ctx context.Context, content []byte) (*Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	labels := make([]string, 0, len(sheets))
	segments := make([]string, 0, len(sheets))

	for _, sheet := range sheets {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		rows, err := f.GetRows(sheet)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}

		var sb strings.Builder
		sb.WriteString("Sheet: " + sheet + "\n")
		for _, row := range rows {
			if !anyCell(row) {
				continue
			}
			sb.WriteString(strings.Join(row, " | "))
			sb.WriteString("\n")
		}

		labels = append(labels, "sheet "+sheet)
		segments = append(segments, sb.String())
	}

	return resultFromSegments(labels, segments)
}

func anyCell(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return true
		}
	}
	return false
}
