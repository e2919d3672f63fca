package rag

import (
	"context"
	"fmt"
	"sort"

	"github.com/demoplane/demoplane/internal/infra/llm"
)

const (
	defaultTopK = 4
	maxTopK     = 20
)

// Result is one retrieved chunk with its similarity score.
type Result struct {
	ChunkID    string  `json:"chunk_id"`
	SourceID   string  `json:"source_id"`
	SourceName string  `json:"source_name"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

// Retriever embeds a query and ranks stored chunks by cosine similarity
// in memory. The corpus is demo-sized so a full scan per query is fine.
type Retriever struct {
	store    *Store
	provider llm.LLMProvider
}

func NewRetriever(store *Store, provider llm.LLMProvider) *Retriever {
	return &Retriever{store: store, provider: provider}
}

// Retrieve returns the topK most similar embedded chunks for query.
// An empty corpus returns an empty slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = defaultTopK
	}
	if topK > maxTopK {
		topK = maxTopK
	}

	candidates, err := r.store.embeddedChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("rag: load embedded chunks: %w", err)
	}
	if len(candidates) == 0 {
		return []Result{}, nil
	}

	embedResp, err := r.provider.Embed(ctx, llm.EmbedRequest{Texts: []string{query}})
	if err != nil {
		return nil, fmt.Errorf("rag: embed query: %w", err)
	}
	if len(embedResp.Embeddings) == 0 {
		return nil, fmt.Errorf("rag: provider returned no query vector")
	}
	queryVec := embedResp.Embeddings[0]

	scored := make([]Result, 0, len(candidates))
	for _, c := range candidates {
		vec, decodeErr := decodeEmbedding(c.embedding)
		if decodeErr != nil {
			continue // skip malformed vectors
		}
		scored = append(scored, Result{
			ChunkID:    c.chunkID,
			SourceID:   c.sourceID,
			SourceName: c.sourceName,
			Content:    c.content,
			Score:      cosineSimilarity(queryVec, vec),
		})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}
