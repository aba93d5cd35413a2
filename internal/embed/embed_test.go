package embed

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func embedServer(t *testing.T, handler http.HandlerFunc) Config {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return Config{
		Provider:    "custom",
		Model:       "test-embed",
		Endpoint:    srv.URL,
		MaxRetries:  2,
		TimeoutSecs: 5,
	}
}

func embedReply(vectors [][]float32) []byte {
	type datum struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	}
	var data []datum
	for i, v := range vectors {
		data = append(data, datum{Embedding: v, Index: i})
	}
	b, _ := json.Marshal(map[string]interface{}{"data": data})
	return b
}

func TestParseEmbedFlag(t *testing.T) {
	cfg, err := ParseEmbedFlag("ollama/nomic-embed-text")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Provider != "ollama" || cfg.Model != "nomic-embed-text" {
		t.Errorf("got %s/%s", cfg.Provider, cfg.Model)
	}
	if cfg.Endpoint == "" {
		t.Error("no default endpoint")
	}

	if _, err := ParseEmbedFlag("no-slash"); err == nil {
		t.Error("expected error for missing slash")
	}
	if _, err := ParseEmbedFlag("mystery/model"); err == nil {
		t.Error("expected error for unknown provider")
	}

	// Model names with slashes survive.
	cfg, err = ParseEmbedFlag("openrouter/sentence-transformers/all-MiniLM-L6-v2")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model != "sentence-transformers/all-MiniLM-L6-v2" {
		t.Errorf("model = %q", cfg.Model)
	}
}

func TestClientEmbedNormalizes(t *testing.T) {
	cfg := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(embedReply([][]float32{{3, 4}}))
	})
	c, err := NewClient(cfg)
	if err != nil {
		t.Fatal(err)
	}

	v, err := c.Embed(context.Background(), "text")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 2 {
		t.Fatalf("got %d dims", len(v))
	}
	// (3,4) normalizes to (0.6, 0.8)
	if math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Errorf("vector = %v", v)
	}
	if c.Dimensions() != 2 {
		t.Errorf("dimensions = %d", c.Dimensions())
	}
}

func TestClientEmbedBatchOrder(t *testing.T) {
	cfg := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		var req embedRequest
		json.NewDecoder(r.Body).Decode(&req)
		if len(req.Input) != 3 {
			t.Errorf("input = %v", req.Input)
		}
		// Return entries out of order; the client must restore by index.
		b, _ := json.Marshal(map[string]interface{}{
			"data": []map[string]interface{}{
				{"embedding": []float32{0, 1}, "index": 1},
				{"embedding": []float32{1, 0}, "index": 0},
				{"embedding": []float32{0, -1}, "index": 2},
			},
		})
		w.Write(b)
	})
	c, _ := NewClient(cfg)

	vectors, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if vectors[0][0] != 1 || vectors[1][1] != 1 || vectors[2][1] != -1 {
		t.Errorf("vectors out of order: %v", vectors)
	}
}

func TestClientEmbedRetries(t *testing.T) {
	var calls atomic.Int64
	cfg := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "transient", http.StatusServiceUnavailable)
			return
		}
		w.Write(embedReply([][]float32{{1, 0}}))
	})
	c, _ := NewClient(cfg)

	if _, err := c.Embed(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2", calls.Load())
	}
}

func TestClientEmbedCountMismatch(t *testing.T) {
	cfg := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write(embedReply([][]float32{{1, 0}}))
	})
	cfg.MaxRetries = 0
	c, _ := NewClient(cfg)

	if _, err := c.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("expected error when server returns fewer embeddings than inputs")
	}
}

func TestClientEmbedEmptyText(t *testing.T) {
	cfg := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called for empty text")
	})
	c, _ := NewClient(cfg)
	if _, err := c.Embed(context.Background(), "  "); err == nil {
		t.Fatal("expected error for empty text")
	}
}

func TestClientEmbedBatchEmpty(t *testing.T) {
	cfg := embedServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("server should not be called for empty batch")
	})
	c, _ := NewClient(cfg)
	vectors, err := c.EmbedBatch(context.Background(), nil)
	if err != nil || vectors != nil {
		t.Fatalf("got %v, %v", vectors, err)
	}
}
