package extract

import (
	"strings"
	"testing"
)

func TestFinalizeDropsNils(t *testing.T) {
	raw := []*RawAdvice{
		nil,
		{Trigger: "t1", Advice: "a1", SourceDoc: "doc.md"},
		nil,
	}
	memories, dups := Finalize(raw)
	if len(memories) != 1 || dups != 0 {
		t.Fatalf("got %d memories, %d dups", len(memories), dups)
	}
}

func TestFinalizeDedupFirstWins(t *testing.T) {
	raw := []*RawAdvice{
		{Trigger: "same trigger", Advice: "same advice", SourceDoc: "first.md", SourceSection: "A"},
		{Trigger: "same trigger", Advice: "same advice", SourceDoc: "second.md", SourceSection: "B"},
		{Trigger: "same trigger", Advice: "different advice", SourceDoc: "third.md"},
	}
	memories, dups := Finalize(raw)
	if len(memories) != 2 {
		t.Fatalf("expected 2 memories, got %d", len(memories))
	}
	if dups != 1 {
		t.Errorf("expected 1 duplicate, got %d", dups)
	}
	if memories[0].Source != "first.md#A" {
		t.Errorf("first occurrence should keep its provenance, got %q", memories[0].Source)
	}
}

func TestFinalizeProvenanceDoesNotBreakDedup(t *testing.T) {
	// Identical advice from two documents must still collapse: provenance
	// lives in Source, not in the dedup key.
	raw := []*RawAdvice{
		{Trigger: "t", Advice: "a", Example: "e", SourceDoc: "one.md"},
		{Trigger: "t", Advice: "a", Example: "e", SourceDoc: "two.md"},
	}
	memories, dups := Finalize(raw)
	if len(memories) != 1 || dups != 1 {
		t.Fatalf("got %d memories, %d dups", len(memories), dups)
	}
}

func TestFinalizeExampleInContext(t *testing.T) {
	raw := []*RawAdvice{
		{Trigger: "t", Advice: "wrap errors", Example: "fmt.Errorf(\"x: %w\", err)"},
	}
	memories, _ := Finalize(raw)
	if len(memories) != 1 {
		t.Fatal("expected 1 memory")
	}
	ctx := memories[0].Context
	if !strings.HasPrefix(ctx, "wrap errors") || !strings.Contains(ctx, "Example:\nfmt.Errorf") {
		t.Errorf("context = %q", ctx)
	}

	// No example: context is the advice alone.
	memories, _ = Finalize([]*RawAdvice{{Trigger: "t2", Advice: "plain"}})
	if memories[0].Context != "plain" {
		t.Errorf("context = %q", memories[0].Context)
	}
}

func TestFinalizeUniqueIDs(t *testing.T) {
	var raw []*RawAdvice
	for i := 0; i < 50; i++ {
		raw = append(raw, &RawAdvice{Trigger: "t" + string(rune('a'+i%26)) + string(rune('a'+i/26)), Advice: "a"})
	}
	memories, _ := Finalize(raw)
	seen := make(map[string]bool)
	for _, m := range memories {
		if m.ID == "" {
			t.Fatal("empty ID")
		}
		if seen[m.ID] {
			t.Fatalf("duplicate ID %s", m.ID)
		}
		seen[m.ID] = true
	}
}
