package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/quarrylab/distill/internal/config"
	"github.com/quarrylab/distill/internal/docparse"
	"github.com/quarrylab/distill/internal/embed"
	"github.com/quarrylab/distill/internal/extract"
	"github.com/quarrylab/distill/internal/llm"
	"github.com/quarrylab/distill/internal/store"
)

const defaultOutput = "memories.jsonl"

type extractFlags struct {
	source       string
	out          string
	model        string
	workers      string
	timeoutSecs  int
	strategy     string
	chunkSize    int
	chunkOverlap int
	embedSpec    string
	embedContext bool
	configPath   string
	dryRun       bool
	verbose      bool
}

func parseExtractFlags(args []string) (extractFlags, error) {
	f := extractFlags{strategy: "sections"}

	needValue := func(i int) (string, error) {
		if i+1 >= len(args) {
			return "", fmt.Errorf("%s requires a value", args[i])
		}
		return args[i+1], nil
	}

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--out", "--model", "--workers", "--timeout", "--strategy",
			"--chunk-size", "--chunk-overlap", "--embed", "--config":
			val, err := needValue(i)
			if err != nil {
				return f, err
			}
			i++
			switch arg {
			case "--out":
				f.out = val
			case "--model":
				f.model = val
			case "--workers":
				f.workers = val
			case "--timeout":
				n, err := strconv.Atoi(val)
				if err != nil || n < 1 {
					return f, fmt.Errorf("invalid --timeout: %s", val)
				}
				f.timeoutSecs = n
			case "--strategy":
				if val != "sections" && val != "chunks" {
					return f, fmt.Errorf("invalid --strategy: %s (want sections or chunks)", val)
				}
				f.strategy = val
			case "--chunk-size":
				n, err := strconv.Atoi(val)
				if err != nil || n < 1 {
					return f, fmt.Errorf("invalid --chunk-size: %s", val)
				}
				f.chunkSize = n
			case "--chunk-overlap":
				n, err := strconv.Atoi(val)
				if err != nil || n < 0 {
					return f, fmt.Errorf("invalid --chunk-overlap: %s", val)
				}
				f.chunkOverlap = n
			case "--embed":
				f.embedSpec = val
			case "--config":
				f.configPath = val
			}
		case "--embed-context":
			f.embedContext = true
		case "--dry-run", "-n":
			f.dryRun = true
		case "--verbose":
			f.verbose = true
		default:
			if len(arg) > 0 && arg[0] == '-' {
				return f, fmt.Errorf("unknown flag: %s", arg)
			}
			if f.source != "" {
				return f, fmt.Errorf("multiple source paths: %s and %s", f.source, arg)
			}
			f.source = arg
		}
	}

	if f.source == "" {
		return f, fmt.Errorf("usage: distill extract <path> [flags]")
	}
	return f, nil
}

func runExtract(args []string) error {
	f, err := parseExtractFlags(args)
	if err != nil {
		return err
	}

	resolved, err := config.Resolve(config.ResolveOptions{
		ConfigPath: f.configPath,
		CLIModel:   f.model,
		CLIEmbed:   f.embedSpec,
		CLIOutput:  f.out,
		CLIWorkers: f.workers,
	})
	if err != nil {
		return err
	}

	out := resolved.Output.Value
	if out == "" {
		out = defaultOutput
	}

	opts := extract.Options{
		Source:      f.source,
		Workers:     resolved.WorkerCount(1),
		TimeoutSecs: f.timeoutSecs,
		DryRun:      f.dryRun,
	}

	switch f.strategy {
	case "chunks":
		opts.Strategy = docparse.ChunkStrategy{Size: f.chunkSize, Overlap: f.chunkOverlap}
		opts.Multi = true
	default:
		opts.Strategy = docparse.SectionStrategy{}
	}

	if !f.dryRun {
		modelSpec := resolved.LLMModel.Value
		if modelSpec == "" {
			return fmt.Errorf("no LLM configured: pass --model, set DISTILL_LLM, or add llm.model to %s", resolved.ConfigPath)
		}
		llmCfg, err := llm.ParseModelFlag(modelSpec)
		if err != nil {
			return err
		}
		if llmCfg.APIKey == "" {
			llmCfg.APIKey = resolved.APIKeyForProvider(modelSpec).Value
		}
		provider, err := llm.NewProvider(llmCfg)
		if err != nil {
			return err
		}
		opts.Provider = provider
		opts.Model = llmCfg.Model

		backend, closeBackend, err := openBackend(out, resolved.EmbedModel.Value, f.embedContext)
		if err != nil {
			return err
		}
		defer closeBackend()
		opts.Backend = backend
	}

	if f.verbose {
		opts.Progress = func(done, total int) {
			fmt.Fprintf(os.Stderr, "  [%d/%d] candidates processed\n", done, total)
		}
	}

	summary, err := extract.Run(context.Background(), opts)
	if summary != nil {
		printSummary(os.Stdout, summary, out, f.dryRun, err == nil)
	}
	return err
}

func openBackend(out, embedSpec string, embedContext bool) (store.Backend, func(), error) {
	if !store.IsSQLitePath(out) {
		return store.NewJSONLStore(out), func() {}, nil
	}

	var embedder embed.Embedder
	if embedSpec != "" {
		cfg, err := embed.ParseEmbedFlag(embedSpec)
		if err != nil {
			return nil, nil, err
		}
		client, err := embed.NewClient(cfg)
		if err != nil {
			return nil, nil, err
		}
		embedder = client
	}

	vs, err := store.OpenVector(store.SQLitePath(out), embedder)
	if err != nil {
		return nil, nil, err
	}
	vs.EmbedContext = embedContext
	return vs, func() { vs.Close() }, nil
}

// printSummary reports what the run did. The "Wrote" line only appears on a
// fully successful run; a failed backend write must not claim persistence.
func printSummary(w io.Writer, s *extract.Summary, out string, dryRun, succeeded bool) {
	if dryRun {
		fmt.Fprintf(w, "Dry run: %d candidate(s) from %d document(s)\n", len(s.Candidates), s.Documents)
		for _, c := range s.Candidates {
			title := c.Section
			if title == "" {
				title = c.Reason
			}
			fmt.Fprintf(w, "  %s # %s (%s)\n", c.SourceDoc, title, c.Reason)
		}
		return
	}

	fmt.Fprintf(w, "Processed %d document(s), %d candidate(s)\n", s.Documents, len(s.Candidates))
	if s.Skipped > 0 {
		fmt.Fprintf(w, "  %d skipped by the model\n", s.Skipped)
	}
	if s.TimedOut > 0 {
		fmt.Fprintf(w, "  %d timed out\n", s.TimedOut)
	}
	if s.Failed > 0 {
		fmt.Fprintf(w, "  %d failed\n", s.Failed)
	}
	if s.Duplicates > 0 {
		fmt.Fprintf(w, "  %d duplicate(s) removed\n", s.Duplicates)
	}
	if succeeded && len(s.Memories) > 0 {
		fmt.Fprintf(w, "Wrote %d memories to %s in %s\n", len(s.Memories), out, s.Elapsed.Round(time.Millisecond))
	}
}
