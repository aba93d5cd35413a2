package extract

import (
	"strings"

	"github.com/google/uuid"

	"github.com/quarrylab/distill/internal/store"
)

// Finalize converts raw advice into deduplicated memories with fresh IDs.
// Nil entries (failed or skipped candidates) are dropped. Duplicates are
// detected by exact match on trimmed text plus trimmed context; the first
// occurrence wins, keeping its provenance. Returns the memories in input
// order and the number of duplicates removed.
func Finalize(raw []*RawAdvice) ([]store.Memory, int) {
	seen := make(map[string]struct{})
	var memories []store.Memory
	duplicates := 0

	for _, advice := range raw {
		if advice == nil {
			continue
		}

		m := toMemory(advice)
		key := strings.TrimSpace(m.Text) + "\x00" + strings.TrimSpace(m.Context)
		if _, dup := seen[key]; dup {
			duplicates++
			continue
		}
		seen[key] = struct{}{}

		m.ID = uuid.NewString()
		memories = append(memories, m)
	}

	return memories, duplicates
}

// toMemory maps advice fields onto the output record. Provenance goes in
// Source only, never Context, so identical advice from different documents
// still deduplicates.
func toMemory(advice *RawAdvice) store.Memory {
	context := advice.Advice
	if advice.Example != "" {
		context += "\n\nExample:\n" + advice.Example
	}

	source := advice.SourceDoc
	if advice.SourceSection != "" {
		source += "#" + advice.SourceSection
	}

	return store.Memory{
		Text:    advice.Trigger,
		Context: context,
		Source:  source,
	}
}
