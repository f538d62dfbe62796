// Package text splits extracted document text into overlapping passages
// sized for embedding.
package text

import (
	"errors"
	"strings"
	"unicode/utf8"
)

var (
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
	ErrInvalidOverlap   = errors.New("overlap must be non-negative and smaller than chunk size")
)

// Cut-point preference order: paragraph, line, sentence, word.
var separators = []string{"\n\n", "\n", ". ", " "}

// Split cuts text into an ordered sequence of chunks of at most chunkSize
// bytes. Each chunk starts exactly overlap bytes before the end of the
// previous one, so consecutive chunks share that many bytes and no content
// is lost. Cut points prefer natural boundaries in the trailing half of the
// window, falling back to a hard cut. Multi-byte runes are never split.
func Split(text string, chunkSize, overlap int) ([]string, error) {
	if chunkSize <= 0 {
		return nil, ErrInvalidChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, ErrInvalidOverlap
	}
	if text == "" {
		return nil, nil
	}
	if len(text) <= chunkSize {
		return []string{text}, nil
	}

	var chunks []string
	start := 0
	for {
		if start+chunkSize >= len(text) {
			chunks = append(chunks, text[start:])
			return chunks, nil
		}

		cut := findCut(text, start, start+chunkSize, overlap)
		chunks = append(chunks, text[start:cut])

		start = cut - overlap
		for start > 0 && !utf8.RuneStart(text[start]) {
			start--
		}
	}
}

// findCut picks the rightmost separator boundary in the trailing half of the
// window so chunks stay close to chunkSize. The boundary must leave room for
// the overlap to move the next chunk forward. Without a usable boundary the
// window end itself is the cut.
func findCut(text string, start, end, overlap int) int {
	for end > start && !utf8.RuneStart(text[end]) {
		end--
	}

	window := text[start:end]
	floor := len(window) / 2
	if floor <= overlap {
		floor = overlap + 1
	}

	for _, sep := range separators {
		idx := strings.LastIndex(window, sep)
		if idx < 0 {
			continue
		}
		cut := idx + len(sep)
		if cut > floor {
			return start + cut
		}
	}
	return end
}
