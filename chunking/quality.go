package chunking

import (
	"strings"
	"unicode"
)

// Content shorter than this many non-space characters is scored zero
// outright; such chunks are OCR noise or page furniture.
const minContentChars = 10

// Score rates chunk content in [0,1] from density heuristics: the
// ratio of alphabetic characters, overall length, and the presence of
// table-like rows. Chunks scoring below the configured quality
// threshold are skipped before inference.
func Score(content string) float64 {
	var alpha, total int
	for _, r := range content {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsLetter(r) {
			alpha++
		}
	}
	if total < minContentChars {
		return 0
	}

	alphaRatio := float64(alpha) / float64(total)

	lengthFactor := float64(total) / 500
	if lengthFactor > 1 {
		lengthFactor = 1
	}

	score := 0.7*alphaRatio + 0.3*lengthFactor

	if hasTableStructure(content) {
		score += 0.1
	}
	if score > 1 {
		score = 1
	}
	return score
}

// Collapsed content needs at least this many pipes, at this ratio to
// word count, to still read as tabular.
const (
	minTablePipes     = 4
	minTablePipeRatio = 0.1
)

// hasTableStructure detects pipe- or tab-delimited rows, which the
// extractors emit for tables and spreadsheets.
func hasTableStructure(content string) bool {
	rows := 0
	for _, line := range strings.Split(content, "\n") {
		if strings.Count(line, "|") >= 2 || strings.Count(line, "\t") >= 2 {
			rows++
			if rows >= 2 {
				return true
			}
		}
	}

	// Chunking collapses all whitespace to single spaces, folding the
	// extractor's rows onto one line; fall back to overall pipe
	// density so tabular chunks keep their bonus.
	pipes := strings.Count(content, "|")
	if pipes < minTablePipes {
		return false
	}
	words := len(strings.Fields(content))
	return words > 0 && float64(pipes)/float64(words) >= minTablePipeRatio
}
