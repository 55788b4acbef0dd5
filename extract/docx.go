package extract

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/nguyenthenguyen/docx"
)

// DOCXExtractor extracts paragraph and table text from Word documents.
type DOCXExtractor struct{}

// NewDOCXExtractor creates a DOCX extractor.
func NewDOCXExtractor() *DOCXExtractor {
	return &DOCXExtractor{}
}

// Extract implements Extractor. Word documents carry no page markers
// in their XML, so the whole document is a single boundary.
func (e *DOCXExtractor) Extract(ctx context.Context, content []byte) (*Result, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("read docx: %w", err)
	}
	defer doc.Close()

	raw := doc.Editable().GetContent()
	text := strings.TrimSpace(flattenDocxXML(raw))
	if text == "" {
		return nil, ErrNoTextContent
	}

	return resultFromSegments([]string{"document"}, []string{text})
}

// flattenDocxXML strips WordprocessingML markup, turning paragraph and
// row ends into newlines and table cell ends into separators.
func flattenDocxXML(raw string) string {
	var sb strings.Builder
	inTag := false
	var tag strings.Builder

	for _, r := range raw {
		switch {
		case r == '<':
			inTag = true
			tag.Reset()
		case r == '>':
			inTag = false
			switch tag.String() {
			case "/w:p", "/w:tr":
				sb.WriteString("\n")
			case "/w:tc":
				sb.WriteString(" | ")
			}
		case inTag:
			tag.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
