package rag

import (
	"strings"
	"testing"
)

func TestChunk_EmptyInput(t *testing.T) {
	for _, input := range []string{"", "   ", "\n\t "} {
		if got := Chunk(input, DefaultChunkSize, DefaultChunkOverlap); got != nil {
			t.Errorf("Chunk(%q) = %v; want nil", input, got)
		}
	}
}

func TestChunk_ShortTextSingleChunk(t *testing.T) {
	text := "demoplane   answers questions about\nyour product"
	got := Chunk(text, DefaultChunkSize, DefaultChunkOverlap)

	if len(got) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(got))
	}
	if got[0] != "demoplane answers questions about your product" {
		t.Errorf("chunk not whitespace-normalized: %q", got[0])
	}
}

func TestChunk_LongTextMultipleChunks(t *testing.T) {
	// ~200 words of 9 chars each is well past one 800-char chunk.
	word := "knowledge"
	text := strings.Repeat(word+" ", 200)

	got := Chunk(text, DefaultChunkSize, DefaultChunkOverlap)
	if len(got) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(got))
	}

	for i, c := range got {
		if len(c) > DefaultChunkSize {
			t.Errorf("chunk %d length %d exceeds size %d", i, len(c), DefaultChunkSize)
		}
		for _, w := range strings.Fields(c) {
			if w != word {
				t.Errorf("chunk %d split a word: %q", i, w)
			}
		}
	}
}

func TestChunk_OverlapSharesContext(t *testing.T) {
	words := make([]string, 300)
	for i := range words {
		words[i] = "w" + string(rune('a'+i%26))
	}
	text := strings.Join(words, " ")

	got := Chunk(text, 100, 40)
	if len(got) < 3 {
		t.Fatalf("expected at least 3 chunks, got %d", len(got))
	}

	// The tail of chunk i must reappear at the head of chunk i+1.
	for i := 0; i < len(got)-1; i++ {
		tail := strings.Fields(got[i])
		head := strings.Fields(got[i+1])
		if len(tail) == 0 || len(head) == 0 {
			t.Fatalf("empty chunk at %d", i)
		}
		lastWord := tail[len(tail)-1]
		found := false
		for _, w := range head {
			if w == lastWord {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("chunk %d tail word %q missing from chunk %d head", i, lastWord, i+1)
		}
	}
}

func TestChunk_OverlapClamped(t *testing.T) {
	text := strings.Repeat("alpha ", 100)

	// overlap >= size must not loop forever or panic
	got := Chunk(text, 50, 50)
	if len(got) == 0 {
		t.Fatal("expected chunks even with clamped overlap")
	}
}
