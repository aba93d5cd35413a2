package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/quarrylab/distill/internal/embed"
)

// VectorStore persists memories in SQLite alongside embedding vectors.
// Write replaces the whole table, so the store always mirrors the latest
// extraction run.
type VectorStore struct {
	db       *sql.DB
	dbPath   string
	embedder embed.Embedder

	// EmbedContext controls whether the context field participates in
	// the embedded text. Off by default: triggers alone retrieve better
	// for short queries.
	EmbedContext bool
}

// SearchResult pairs a stored memory with its similarity score.
type SearchResult struct {
	Memory Memory
	Score  float64
}

// Stats holds observability counters for the vector store.
type Stats struct {
	MemoryCount    int64
	EmbeddingCount int64
	DBSizeBytes    int64
}

// OpenVector opens (or creates) the SQLite database at path. The embedder
// may be nil for read-only use; Write then stores memories without vectors.
func OpenVector(path string, embedder embed.Embedder) (*VectorStore, error) {
	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", p, err)
		}
	}

	return &VectorStore{db: db, dbPath: path, embedder: embedder}, nil
}

// Close closes the database connection.
func (s *VectorStore) Close() error {
	return s.db.Close()
}

// Write replaces the memories table with the given batch. The table is
// dropped and recreated so reruns are idempotent, and the insert happens
// inside one transaction so a failure leaves nothing half-written.
func (s *VectorStore) Write(ctx context.Context, memories []Memory) error {
	var vectors [][]float32
	if s.embedder != nil && len(memories) > 0 {
		texts := make([]string, len(memories))
		for i, m := range memories {
			texts[i] = s.embedText(m)
		}
		var err error
		vectors, err = s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding memories: %w", err)
		}
		if len(vectors) != len(memories) {
			return fmt.Errorf("embedder returned %d vectors for %d memories", len(vectors), len(memories))
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmts := []string{
		`DROP TABLE IF EXISTS memories`,
		`CREATE TABLE memories (
			id TEXT PRIMARY KEY,
			text TEXT NOT NULL,
			context TEXT NOT NULL DEFAULT '',
			source TEXT NOT NULL DEFAULT '',
			embedding BLOB,
			dimensions INTEGER NOT NULL DEFAULT 0
		)`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("preparing memories table: %w", err)
		}
	}

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO memories (id, text, context, source, embedding, dimensions) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer insert.Close()

	for i, m := range memories {
		var blob []byte
		var dims int
		if vectors != nil {
			blob = float32ToBytes(vectors[i])
			dims = len(vectors[i])
		}
		if _, err := insert.ExecContext(ctx, m.ID, m.Text, m.Context, m.Source, blob, dims); err != nil {
			return fmt.Errorf("inserting memory %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing: %w", err)
	}
	return nil
}

// Search performs brute-force cosine similarity search over all stored
// embeddings and returns the top-K results above minSimilarity.
func (s *VectorStore) Search(ctx context.Context, query []float32, limit int, minSimilarity float64) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, context, source, embedding FROM memories WHERE embedding IS NOT NULL`)
	if err != nil {
		return nil, fmt.Errorf("querying memories: %w", err)
	}
	defer rows.Close()

	var candidates []SearchResult
	for rows.Next() {
		var m Memory
		var blob []byte
		if err := rows.Scan(&m.ID, &m.Text, &m.Context, &m.Source, &blob); err != nil {
			return nil, fmt.Errorf("scanning memory row: %w", err)
		}
		sim := cosineSimilarity(query, bytesToFloat32(blob))
		if sim >= minSimilarity {
			candidates = append(candidates, SearchResult{Memory: m, Score: sim})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Sort by score descending (simple insertion sort for small N)
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].Score > candidates[j-1].Score; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// SearchText matches memories whose text or context contains the query
// substring. Fallback for stores opened without an embedder.
func (s *VectorStore) SearchText(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	pattern := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, text, context, source FROM memories
		 WHERE text LIKE ? OR context LIKE ? LIMIT ?`,
		pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("querying memories: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var m Memory
		if err := rows.Scan(&m.ID, &m.Text, &m.Context, &m.Source); err != nil {
			return nil, fmt.Errorf("scanning memory row: %w", err)
		}
		results = append(results, SearchResult{Memory: m, Score: 1})
	}
	return results, rows.Err()
}

// Count returns the number of stored memories. A missing table counts as
// zero rather than an error, so fresh databases report cleanly.
func (s *VectorStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&count)
	if err != nil {
		if !tableExists(ctx, s.db, "memories") {
			return 0, nil
		}
		return 0, fmt.Errorf("counting memories: %w", err)
	}
	return count, nil
}

// Stats reports memory and embedding counts plus the database file size.
func (s *VectorStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	count, err := s.Count(ctx)
	if err != nil {
		return st, err
	}
	st.MemoryCount = count

	if count > 0 {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM memories WHERE embedding IS NOT NULL`).Scan(&st.EmbeddingCount)
		if err != nil {
			return st, fmt.Errorf("counting embeddings: %w", err)
		}
	}

	var pageCount, pageSize int64
	s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount)
	s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
	st.DBSizeBytes = pageCount * pageSize

	return st, nil
}

// Embedder exposes the store's embedder for query-time embedding.
func (s *VectorStore) Embedder() embed.Embedder {
	return s.embedder
}

func (s *VectorStore) embedText(m Memory) string {
	if s.EmbedContext && m.Context != "" {
		return m.Text + " " + m.Context
	}
	return m.Text
}

func tableExists(ctx context.Context, db *sql.DB, name string) bool {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&n)
	return err == nil && n > 0
}

// cosineSimilarity computes cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// float32ToBytes converts a float32 slice to a byte slice (little-endian).
func float32ToBytes(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// bytesToFloat32 converts a byte slice back to float32 slice (little-endian).
func bytesToFloat32(buf []byte) []float32 {
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
