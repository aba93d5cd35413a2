package extract

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/quarrylab/distill/internal/docparse"
	"github.com/quarrylab/distill/internal/llm"
)

// MaxWorkers caps the worker pool size.
const MaxWorkers = 8

// maxPromptContent bounds how much candidate text goes into a prompt.
const maxPromptContent = 4000

// PoolConfig configures a Dispatch call.
type PoolConfig struct {
	Workers     int
	Provider    llm.Provider
	Model       string
	TimeoutSecs int
	Multi       bool
	Progress    func(done, total int)
}

// PoolResults holds per-candidate outcomes. Slots is indexed by candidate
// position: each slot is written exactly once, by the worker that claimed
// that candidate, so ordering is deterministic regardless of scheduling.
type PoolResults struct {
	Slots    [][]*RawAdvice
	Skipped  int
	TimedOut int
	Failed   int
}

// Dispatch fans candidates out over a pull-based worker pool. Workers claim
// candidates through a shared atomic cursor, so a slow call never blocks
// unrelated work and no candidate is processed twice. Failures and timeouts
// leave their slot nil; the run continues.
func Dispatch(ctx context.Context, candidates []docparse.Candidate, cfg PoolConfig) *PoolResults {
	results := &PoolResults{Slots: make([][]*RawAdvice, len(candidates))}
	if len(candidates) == 0 {
		return results
	}

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > MaxWorkers {
		workers = MaxWorkers
	}
	if workers > len(candidates) {
		workers = len(candidates)
	}

	var cursor, done, skipped, timedOut, failed atomic.Int64
	total := len(candidates)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				idx := int(cursor.Add(1)) - 1
				if idx >= total {
					return
				}
				if ctx.Err() != nil {
					return
				}

				cand := candidates[idx]
				advice, outcome := processCandidate(ctx, cand, cfg)
				results.Slots[idx] = advice

				switch outcome {
				case outcomeSkipped:
					skipped.Add(1)
				case outcomeTimedOut:
					timedOut.Add(1)
				case outcomeFailed:
					failed.Add(1)
				}

				if cfg.Progress != nil {
					cfg.Progress(int(done.Add(1)), total)
				}
			}
		}()
	}
	wg.Wait()

	results.Skipped = int(skipped.Load())
	results.TimedOut = int(timedOut.Load())
	results.Failed = int(failed.Load())
	return results
}

type outcome int

const (
	outcomeOK outcome = iota
	outcomeSkipped
	outcomeTimedOut
	outcomeFailed
)

func processCandidate(ctx context.Context, cand docparse.Candidate, cfg PoolConfig) ([]*RawAdvice, outcome) {
	prompt := BuildPrompt(cand, cfg.Multi)

	opts := llm.Opts{Model: cfg.Model}
	if cfg.TimeoutSecs > 0 {
		opts.Timeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}

	result, err := cfg.Provider.Generate(ctx, prompt, opts)
	if err != nil {
		if result.TimedOut {
			return nil, outcomeTimedOut
		}
		return nil, outcomeFailed
	}

	if cfg.Multi {
		advice := ParseJSONL(result.Text, cand.SourceDoc, cand.Section)
		if len(advice) == 0 {
			return nil, outcomeSkipped
		}
		return advice, outcomeOK
	}

	advice, err := ParseSingle(result.Text, cand.SourceDoc, cand.Section)
	if err != nil {
		// Model noise, not a call failure: the service answered, it just
		// didn't produce usable advice. Counted with the skips so Failed
		// means only transport faults.
		return nil, outcomeSkipped
	}
	if advice == nil {
		return nil, outcomeSkipped
	}
	return []*RawAdvice{advice}, outcomeOK
}

// BuildPrompt renders the extraction prompt for one candidate. Content is
// truncated so oversized sections cannot blow the model's context window.
func BuildPrompt(cand docparse.Candidate, multi bool) string {
	content := cand.Content
	if len(content) > maxPromptContent {
		cut := maxPromptContent
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut]
	}

	header := fmt.Sprintf("Documentation from %s", cand.SourceDoc)
	if cand.Section != "" {
		header += fmt.Sprintf(", section %q", cand.Section)
	}

	if multi {
		return fmt.Sprintf(`You extract actionable coding advice from documentation.

%s:

%s

Extract every distinct piece of actionable advice above. For each one, output a single line of JSON with exactly these fields:
{"trigger": "<when this advice applies, one sentence>", "advice": "<what to do>", "example": "<short code example, or empty string>"}

Output one JSON object per line and nothing else. If the text contains no actionable advice, output only the word SKIP.`, header, content)
	}

	return fmt.Sprintf(`You extract actionable coding advice from documentation.

%s:

%s

If the text above contains one clear piece of actionable advice, output a single JSON object with exactly these fields:
{"trigger": "<when this advice applies, one sentence>", "advice": "<what to do>", "example": "<short code example, or empty string>"}

Output only the JSON object and nothing else. If there is no actionable advice, output only the word SKIP.`, header, content)
}
