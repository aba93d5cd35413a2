// Package store persists extracted memories. Two backends are supported:
// plain JSONL files and a SQLite database with embedding vectors for
// semantic search (modernc.org/sqlite, no cgo).
//
// The output path selects the backend: paths with a "sqlite://" scheme
// open the vector store, everything else is treated as a JSONL file path.
package store

import (
	"context"
	"strings"
)

// SQLiteScheme prefixes output paths that route to the vector store.
const SQLiteScheme = "sqlite://"

// Memory is a single extracted, deduplicated memory entry.
type Memory struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Context string `json:"context"`
	Source  string `json:"source"`
}

// Backend writes a finalized batch of memories to durable storage.
// Write replaces any previous batch for the same destination, so a rerun
// over identical input converges to the same stored state.
type Backend interface {
	Write(ctx context.Context, memories []Memory) error
}

// IsSQLitePath reports whether the output path routes to the vector store.
func IsSQLitePath(path string) bool {
	return strings.HasPrefix(path, SQLiteScheme)
}

// SQLitePath strips the scheme from a vector store output path.
func SQLitePath(path string) string {
	return strings.TrimPrefix(path, SQLiteScheme)
}
