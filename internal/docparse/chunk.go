package docparse

import "unicode/utf8"

// Default sliding-window parameters, tuned so one window fits comfortably
// inside a single extraction prompt.
const (
	DefaultChunkSize    = 3000
	DefaultChunkOverlap = 200
)

// ChunkText splits raw text into consecutive windows of at most size bytes,
// advancing size-overlap bytes each step. Window edges back off to rune
// boundaries so multi-byte characters are never split. The final window
// always reaches the end of the text, even when that makes it shorter than
// size. Empty input yields no chunks.
func ChunkText(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 4
		}
	}
	stride := size - overlap

	var chunks []string
	pos := 0
	for {
		end := pos + size
		if end >= len(text) {
			chunks = append(chunks, text[pos:])
			break
		}
		// Never cut a multi-byte rune in half at a window edge.
		for end > pos && !utf8.RuneStart(text[end]) {
			end--
		}
		chunks = append(chunks, text[pos:end])
		pos += stride
		for pos < len(text) && !utf8.RuneStart(text[pos]) {
			pos++
		}
		if pos >= len(text) {
			break
		}
	}
	return chunks
}
