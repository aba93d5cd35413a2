package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/quarrylab/distill/internal/config"
	"github.com/quarrylab/distill/internal/extract"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	switch os.Args[1] {
	case "extract":
		if err := runExtract(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(exitCode(err))
		}
	case "serve":
		if err := runServe(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "config":
		if err := runConfig(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "version", "--version", "-v":
		fmt.Printf("distill %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// exitCode maps pipeline errors to process exit codes so callers can
// distinguish bad input (2), an empty result (3), and output failures (4)
// from everything else (1).
func exitCode(err error) int {
	switch {
	case errors.Is(err, extract.ErrInputNotFound):
		return 2
	case errors.Is(err, extract.ErrEmptyExtraction):
		return 3
	case errors.Is(err, extract.ErrPersistence):
		return 4
	default:
		return 1
	}
}

func runConfig(args []string) error {
	configPath := ""
	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--config":
			if i+1 >= len(args) {
				return fmt.Errorf("--config requires a value")
			}
			i++
			configPath = args[i]
		default:
			return fmt.Errorf("unknown flag: %s", args[i])
		}
	}

	resolved, err := config.Resolve(config.ResolveOptions{ConfigPath: configPath})
	if err != nil {
		return err
	}
	// Keys stay out of the printout.
	resolved.LLMKeys = nil

	out, err := json.MarshalIndent(resolved, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func printUsage() {
	fmt.Println(`distill - turn documentation into retrievable memories

Usage:
  distill extract <path> [flags]   Extract memories from markdown docs
  distill serve [flags]            Serve a memory store over MCP (stdio)
  distill config [--config path]   Show resolved configuration
  distill version                  Print version

Extract flags:
  --out <path>           Output destination: JSONL file path or sqlite://<db path>
                         (default: memories.jsonl)
  --model <spec>         LLM as provider/model, e.g. ollama/llama3.1,
                         openai/gpt-4o-mini, cli/my-tool
  --workers <n>          Concurrent LLM calls, 1-8 (default: 1)
  --timeout <secs>       Per-call timeout in seconds
  --strategy <name>      Candidate strategy: sections or chunks (default: sections)
  --chunk-size <n>       Chunk size in bytes for the chunks strategy (default: 3000)
  --chunk-overlap <n>    Chunk overlap in bytes (default: 200)
  --embed <spec>         Embedding model as provider/model, for sqlite:// outputs
  --embed-context        Include advice context in embedded text
  --config <path>        Config file (default: ~/.distill/config.yaml)
  --dry-run              List candidates without calling the LLM
  --verbose              Log per-candidate progress

Serve flags:
  --db <path>            SQLite memory store to serve (required)
  --embed <spec>         Embedding model for semantic search queries

Exit codes:
  0  success
  1  generic failure
  2  input path missing or empty
  3  extraction produced no memories
  4  writing output failed

Environment:
  DISTILL_LLM, DISTILL_EMBED, DISTILL_OUTPUT, DISTILL_WORKERS
  OPENAI_API_KEY, OPENROUTER_API_KEY
  DISTILL_LLM_ENDPOINT, DISTILL_LLM_API_KEY (custom LLM provider)
  DISTILL_EMBED_ENDPOINT, DISTILL_EMBED_API_KEY (custom embed provider)`)
}
