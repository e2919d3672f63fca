package rag

import (
	"context"
	"log"
	"time"

	"github.com/demoplane/demoplane/internal/infra/eventbus"
	"github.com/demoplane/demoplane/internal/infra/llm"
)

const embedBatchSize = 32

// EmbedWorker consumes ingest events and backfills chunk embeddings.
// On startup it reconciles any rows left pending by a crash or a
// dropped event before entering the consumption loop.
type EmbedWorker struct {
	store    *Store
	provider llm.LLMProvider
	bus      eventbus.EventBus
}

func NewEmbedWorker(store *Store, provider llm.LLMProvider, bus eventbus.EventBus) *EmbedWorker {
	return &EmbedWorker{store: store, provider: provider, bus: bus}
}

// Run blocks until ctx is cancelled. Call it from its own goroutine.
func (w *EmbedWorker) Run(ctx context.Context) {
	w.drainPending(ctx, "")

	ingested := w.bus.Subscribe(eventbus.TopicSourceIngested)
	configured := w.bus.Subscribe(eventbus.TopicConfigUpdated)
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-ingested:
			sourceID, _ := evt.Payload.(string)
			w.drainPending(ctx, sourceID)
		case <-configured:
			// A settings change may have fixed a bad credential.
			// Give previously failed chunks another chance.
			if n, err := w.store.ResetFailedChunks(ctx); err != nil {
				log.Printf("embed worker: reset failed chunks: %v", err)
			} else if n > 0 {
				w.drainPending(ctx, "")
			}
		}
	}
}

// drainPending embeds pending chunks in batches until none remain.
func (w *EmbedWorker) drainPending(ctx context.Context, sourceID string) {
	for {
		chunks, err := w.store.PendingChunks(ctx, sourceID, embedBatchSize)
		if err != nil {
			log.Printf("embed worker: list pending: %v", err)
			return
		}
		if len(chunks) == 0 {
			return
		}
		if err := w.embedBatch(ctx, chunks); err != nil {
			log.Printf("embed worker: batch failed: %v", err)
			return
		}
	}
}

func (w *EmbedWorker) embedBatch(ctx context.Context, chunks []*StoredChunk) error {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embedCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	resp, err := w.provider.Embed(embedCtx, llm.EmbedRequest{Texts: texts})
	if err != nil {
		// Mark the batch failed rather than leaving it pending so the
		// drain loop cannot spin on a bad credential.
		for _, c := range chunks {
			if markErr := w.store.MarkChunkFailed(ctx, c.ID); markErr != nil {
				log.Printf("embed worker: mark failed %s: %v", c.ID, markErr)
			}
		}
		return err
	}

	for i, c := range chunks {
		if i >= len(resp.Embeddings) {
			break
		}
		if err := w.store.SetChunkEmbedding(ctx, c.ID, resp.Embeddings[i]); err != nil {
			log.Printf("embed worker: store embedding %s: %v", c.ID, err)
		}
	}
	return nil
}
