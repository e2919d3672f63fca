package rag

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/demoplane/demoplane/internal/infra/eventbus"
	"github.com/demoplane/demoplane/pkg/uuid"
)

var ErrSourceNotFound = errors.New("knowledge source not found")

// Embedding status values for rag_chunk rows.
const (
	StatusPending  = "pending"
	StatusEmbedded = "embedded"
	StatusFailed   = "failed"
)

// Source is an ingested knowledge document.
type Source struct {
	ID         string
	Name       string
	SourceType string
	Preview    string
	ChunkCount int
	CreatedAt  time.Time
}

// StoredChunk is one persisted piece of a source.
type StoredChunk struct {
	ID              string
	SourceID        string
	ChunkIndex      int
	Content         string
	EmbeddingStatus string
}

// IngestInput describes a document to ingest.
type IngestInput struct {
	Name       string
	SourceType string // "upload" | "generated" | "seed"
	Content    string
}

// Store persists knowledge sources and their chunks, and triggers
// asynchronous embedding through the event bus.
type Store struct {
	db  *sql.DB
	bus eventbus.EventBus
}

func NewStore(db *sql.DB, bus eventbus.EventBus) *Store {
	return &Store{db: db, bus: bus}
}

// Ingest chunks the document, persists the source and its chunks with
// pending embeddings, and publishes an ingest event for the embed worker.
func (s *Store) Ingest(ctx context.Context, in IngestInput) (*Source, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("rag: source name is required")
	}
	chunks := Chunk(in.Content, DefaultChunkSize, DefaultChunkOverlap)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("rag: document has no content")
	}
	sourceType := in.SourceType
	if sourceType == "" {
		sourceType = "generated"
	}

	preview := chunks[0]
	if len(preview) > 200 {
		preview = preview[:200]
	}

	src := &Source{
		ID:         uuid.NewV7().String(),
		Name:       strings.TrimSpace(in.Name),
		SourceType: sourceType,
		Preview:    preview,
		ChunkCount: len(chunks),
		CreatedAt:  time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("rag: begin ingest tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO rag_source (id, name, source_type, preview, chunk_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, src.ID, src.Name, src.SourceType, src.Preview, src.ChunkCount, src.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("rag: insert source: %w", err)
	}

	for i, content := range chunks {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO rag_chunk (id, source_id, chunk_index, content, embedding_status, created_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, uuid.NewV7().String(), src.ID, i, content, StatusPending, time.Now().UTC())
		if err != nil {
			return nil, fmt.Errorf("rag: insert chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("rag: commit ingest: %w", err)
	}

	if s.bus != nil {
		s.bus.Publish(eventbus.TopicSourceIngested, src.ID)
	}
	return src, nil
}

// ListSources returns all sources, newest first.
func (s *Store) ListSources(ctx context.Context) ([]*Source, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, source_type, preview, chunk_count, created_at
		FROM rag_source
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Source, 0)
	for rows.Next() {
		var (
			src     Source
			preview sql.NullString
		)
		if err := rows.Scan(&src.ID, &src.Name, &src.SourceType, &preview, &src.ChunkCount, &src.CreatedAt); err != nil {
			return nil, err
		}
		src.Preview = preview.String
		out = append(out, &src)
	}
	return out, rows.Err()
}

// DeleteSource removes a source; its chunks cascade.
func (s *Store) DeleteSource(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM rag_source WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSourceNotFound
	}
	return nil
}

// PendingChunks returns chunks awaiting embedding, oldest first.
// sourceID filters to one source when non-empty.
func (s *Store) PendingChunks(ctx context.Context, sourceID string, limit int) ([]*StoredChunk, error) {
	query := `
		SELECT id, source_id, chunk_index, content, embedding_status
		FROM rag_chunk
		WHERE embedding_status = ?
	`
	args := []any{StatusPending}
	if sourceID != "" {
		query += " AND source_id = ?"
		args = append(args, sourceID)
	}
	query += " ORDER BY created_at ASC, chunk_index ASC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*StoredChunk, 0)
	for rows.Next() {
		var c StoredChunk
		if err := rows.Scan(&c.ID, &c.SourceID, &c.ChunkIndex, &c.Content, &c.EmbeddingStatus); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// SetChunkEmbedding stores the vector and flips the chunk to embedded.
func (s *Store) SetChunkEmbedding(ctx context.Context, chunkID string, vec []float32) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE rag_chunk SET embedding = ?, embedding_status = ? WHERE id = ?
	`, encodeEmbedding(vec), StatusEmbedded, chunkID)
	return err
}

// MarkChunkFailed records an embedding failure. Failed chunks stay out of
// the drain loop until ResetFailedChunks flips them back.
func (s *Store) MarkChunkFailed(ctx context.Context, chunkID string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE rag_chunk SET embedding_status = ? WHERE id = ?
	`, StatusFailed, chunkID)
	return err
}

// ResetFailedChunks flips failed chunks back to pending so the embed worker
// retries them, typically after an admin fixes the model credential.
func (s *Store) ResetFailedChunks(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE rag_chunk SET embedding_status = ? WHERE embedding_status = ?
	`, StatusPending, StatusFailed)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// embeddedRow joins a chunk with its parent source name for retrieval.
type embeddedRow struct {
	chunkID    string
	sourceID   string
	sourceName string
	content    string
	embedding  []byte
}

// embeddedChunks fetches every embedded vector with its content and source.
func (s *Store) embeddedChunks(ctx context.Context) ([]embeddedRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.source_id, s.name, c.content, c.embedding
		FROM rag_chunk c
		JOIN rag_source s ON s.id = c.source_id
		WHERE c.embedding_status = ? AND c.embedding IS NOT NULL
	`, StatusEmbedded)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]embeddedRow, 0)
	for rows.Next() {
		var r embeddedRow
		if err := rows.Scan(&r.chunkID, &r.sourceID, &r.sourceName, &r.content, &r.embedding); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
