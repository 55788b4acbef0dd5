package extract

import (
	"context"
	"strings"

	"github.com/mynkchaudhry/VendorDocComparsion/chunking"
)

// Result is the output of text extraction: the full plain text and the
// word-offset boundaries of its source pages or sheets.
type Result struct {
	Text       string
	Boundaries []chunking.Boundary
}

// Extractor extracts plain text and source boundaries from raw
// document bytes. Implementations must be safe for concurrent use.
type Extractor interface {
	Extract(ctx context.Context, content []byte) (*Result, error)
}

// Registry dispatches extraction by normalized file type.
type Registry struct {
	extractors map[string]Extractor
}

// NewRegistry creates a registry with the built-in extractors for
// pdf, docx and xlsx documents.
func NewRegistry() *Registry {
	r := &Registry{extractors: make(map[string]Extractor)}
	r.Register("pdf", NewPDFExtractor())
	r.Register("docx", NewDOCXExtractor())
	r.Register("doc", NewDOCXExtractor())
	r.Register("xlsx", NewXLSXExtractor())
	r.Register("xls", NewXLSXExtractor())
	return r
}

// Register binds an extractor to a file type, replacing any previous
// binding. Intended for tests and custom deployments.
func (r *Registry) Register(fileType string, e Extractor) {
	r.extractors[normalizeType(fileType)] = e
}

// Supported reports whether a file type has a registered extractor.
func (r *Registry) Supported(fileType string) bool {
	_, ok := r.extractors[normalizeType(fileType)]
	return ok
}

// Extract routes content to the extractor registered for fileType.
func (r *Registry) Extract(ctx context.Context, content []byte, fileType string) (*Result, error) {
	e, ok := r.extractors[normalizeType(fileType)]
	if !ok {
		return nil, ErrUnsupportedFileType
	}
	return e.Extract(ctx, content)
}

func normalizeType(fileType string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(fileType), "."))
}

// resultFromSegments assembles a Result from per-source text segments,
// computing the word-offset boundary of each labeled segment.
func resultFromSegments(labels, segments []string) (*Result, error) {
	var (
		sb         strings.Builder
		boundaries []chunking.Boundary
		offset     int
	)
	for i, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		words := len(strings.Fields(seg))
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(seg)
		boundaries = append(boundaries, chunking.Boundary{
			Label:     labels[i],
			StartWord: offset,
			EndWord:   offset + words,
		})
		offset += words
	}
	if sb.Len() == 0 {
		return nil, ErrNoTextContent
	}
	return &Result{Text: sb.String(), Boundaries: boundaries}, nil
}
