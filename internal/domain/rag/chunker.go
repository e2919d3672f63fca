// Package rag implements the retrieval pipeline: chunked knowledge sources,
// asynchronous embedding, and cosine-similarity retrieval at chat time.
package rag

import "strings"

const (
	// DefaultChunkSize is the character budget per chunk.
	DefaultChunkSize = 800
	// DefaultChunkOverlap is the character overlap between consecutive chunks.
	DefaultChunkOverlap = 200
)

// Chunk splits text into pieces of at most size characters, advancing by
// (size - overlap) characters between pieces so neighbours share context
// at their boundary. Splits land on word boundaries, never mid-word.
//
// Rules:
//   - Empty or whitespace-only input returns nil.
//   - Text that fits in one chunk returns a single normalized chunk.
//   - overlap must be < size; if not, overlap is clamped to size-1.
func Chunk(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if overlap >= size {
		overlap = size - 1
	}

	normalized := strings.Join(words, " ")
	if len(normalized) <= size {
		return []string{normalized}
	}

	stride := size - overlap
	var chunks []string

	start := 0
	for start < len(normalized) {
		end := start + size
		if end >= len(normalized) {
			chunks = append(chunks, strings.TrimSpace(normalized[start:]))
			break
		}
		// Back up to the last space inside the window so words stay whole.
		cut := strings.LastIndexByte(normalized[start:end], ' ')
		if cut <= 0 {
			cut = size
		}
		chunks = append(chunks, strings.TrimSpace(normalized[start:start+cut]))

		// Align the next start to a word boundary inside the stride window.
		next := start + stride
		if sp := strings.LastIndexByte(normalized[start:next], ' '); sp > 0 {
			next = start + sp + 1
		}
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return chunks
}
