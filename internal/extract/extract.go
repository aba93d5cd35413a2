// Package extract turns documentation candidates into memories. It drives
// the full pipeline: collect files, derive candidates, fan out LLM calls
// across a bounded worker pool, parse and validate responses, then
// deduplicate and assign IDs.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/quarrylab/distill/internal/docparse"
	"github.com/quarrylab/distill/internal/llm"
	"github.com/quarrylab/distill/internal/store"
)

// Sentinel errors that map to process exit codes at the CLI boundary.
var (
	// ErrInputNotFound means the source path does not exist or contains
	// no documentation files.
	ErrInputNotFound = errors.New("input not found")

	// ErrEmptyExtraction means the run produced zero memories.
	ErrEmptyExtraction = errors.New("no memories extracted")

	// ErrPersistence wraps output backend failures.
	ErrPersistence = errors.New("persistence failed")
)

// RawAdvice is one parsed-but-unfinalized extraction from an LLM response.
type RawAdvice struct {
	Trigger       string `json:"trigger"`
	Advice        string `json:"advice"`
	Example       string `json:"example"`
	SourceDoc     string `json:"-"`
	SourceSection string `json:"-"`
}

// Options configures an extraction run.
type Options struct {
	// Source is a documentation file or directory tree.
	Source string

	// Strategy derives candidates from each document.
	Strategy docparse.Strategy

	// Provider answers extraction prompts. Required unless DryRun.
	Provider llm.Provider

	// Model overrides the provider's default model for this run.
	Model string

	// Workers bounds concurrent LLM calls. Clamped to [1, 8].
	Workers int

	// TimeoutSecs is the per-call deadline. Zero uses the provider default.
	TimeoutSecs int

	// Backend receives the finalized memories. Required unless DryRun.
	Backend store.Backend

	// Multi switches response parsing to JSONL, allowing several
	// memories per candidate. Used with the chunking strategy.
	Multi bool

	// DryRun lists candidates without calling the LLM or writing output.
	DryRun bool

	// Progress, if set, is called after each candidate completes.
	Progress func(done, total int)
}

// Summary reports what a run did.
type Summary struct {
	Documents  int
	Candidates []docparse.Candidate
	Skipped    int
	TimedOut   int
	Failed     int
	Duplicates int
	Memories   []store.Memory
	Elapsed    time.Duration
}

// Run executes the pipeline end to end.
func Run(ctx context.Context, opts Options) (*Summary, error) {
	start := time.Now()

	if opts.Strategy == nil {
		opts.Strategy = docparse.SectionStrategy{}
	}

	if _, err := os.Stat(opts.Source); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInputNotFound, opts.Source)
	}

	paths, err := docparse.CollectFiles(opts.Source)
	if err != nil {
		return nil, fmt.Errorf("collecting files: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no documentation files under %s", ErrInputNotFound, opts.Source)
	}

	var candidates []docparse.Candidate
	for _, path := range paths {
		doc, err := docparse.ReadDocument(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		candidates = append(candidates, opts.Strategy.Candidates(doc)...)
	}

	summary := &Summary{
		Documents:  len(paths),
		Candidates: candidates,
	}

	if opts.DryRun {
		summary.Elapsed = time.Since(start)
		return summary, nil
	}

	if opts.Provider == nil {
		return nil, fmt.Errorf("no LLM provider configured")
	}

	results := Dispatch(ctx, candidates, PoolConfig{
		Workers:     opts.Workers,
		Provider:    opts.Provider,
		Model:       opts.Model,
		TimeoutSecs: opts.TimeoutSecs,
		Multi:       opts.Multi,
		Progress:    opts.Progress,
	})

	// Flatten in candidate order so output ordering is stable across
	// worker schedules.
	var raw []*RawAdvice
	for _, slot := range results.Slots {
		raw = append(raw, slot...)
	}
	summary.Skipped = results.Skipped
	summary.TimedOut = results.TimedOut
	summary.Failed = results.Failed

	memories, duplicates := Finalize(raw)
	summary.Duplicates = duplicates
	summary.Memories = memories

	if len(memories) == 0 {
		summary.Elapsed = time.Since(start)
		return summary, ErrEmptyExtraction
	}

	if opts.Backend == nil {
		return nil, fmt.Errorf("no output backend configured")
	}
	if err := opts.Backend.Write(ctx, memories); err != nil {
		summary.Elapsed = time.Since(start)
		return summary, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	summary.Elapsed = time.Since(start)
	return summary, nil
}
