package extract

import "errors"

var (
	// ErrUnsupportedFileType is returned for file types with no
	// registered extractor.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrNoTextContent is returned when a document was readable but
	// contained no extractable text.
	ErrNoTextContent = errors.New("no text content found in document")
)
