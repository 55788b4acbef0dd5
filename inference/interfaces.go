package inference

import (
	"context"

	"github.com/mynkchaudhry/VendorDocComparsion/core"
)

// FragmentExtractor extracts a structured vendor-data fragment from a
// single document chunk. totalChunks tells the backend where the chunk
// sits in the document so prompts can carry that context.
//
// Implementations return errors wrapped with Permanent for failures
// that retrying cannot fix.
type FragmentExtractor interface {
	ExtractFragment(ctx context.Context, chunk core.DocumentChunk, totalChunks int) (*core.StructuredData, error)
}
