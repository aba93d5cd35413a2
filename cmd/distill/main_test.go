package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/quarrylab/distill/internal/extract"
	"github.com/quarrylab/distill/internal/store"
)

func TestExitCodes(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: /nope", extract.ErrInputNotFound), 2},
		{extract.ErrEmptyExtraction, 3},
		{fmt.Errorf("%w: disk full", extract.ErrPersistence), 4},
		{errors.New("anything else"), 1},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Errorf("exitCode(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestPrintSummaryFailedWriteClaimsNothing(t *testing.T) {
	s := &extract.Summary{
		Documents: 1,
		Memories:  []store.Memory{{ID: "a", Text: "t"}},
		Elapsed:   50 * time.Millisecond,
	}

	var buf bytes.Buffer
	printSummary(&buf, s, "out.jsonl", false, false)
	if strings.Contains(buf.String(), "Wrote") {
		t.Errorf("failed run must not claim a write:\n%s", buf.String())
	}

	buf.Reset()
	printSummary(&buf, s, "out.jsonl", false, true)
	if !strings.Contains(buf.String(), "Wrote 1 memories to out.jsonl") {
		t.Errorf("successful run missing the write line:\n%s", buf.String())
	}
}

func TestParseExtractFlags(t *testing.T) {
	f, err := parseExtractFlags([]string{
		"docs/",
		"--out", "sqlite://mem.db",
		"--model", "ollama/llama3.1",
		"--workers", "4",
		"--strategy", "chunks",
		"--chunk-size", "2000",
		"--chunk-overlap", "100",
		"--embed", "ollama/nomic-embed-text",
		"--embed-context",
		"--dry-run",
	})
	if err != nil {
		t.Fatal(err)
	}
	if f.source != "docs/" || f.out != "sqlite://mem.db" || f.model != "ollama/llama3.1" {
		t.Errorf("got %+v", f)
	}
	if f.workers != "4" || f.strategy != "chunks" || f.chunkSize != 2000 || f.chunkOverlap != 100 {
		t.Errorf("got %+v", f)
	}
	if !f.embedContext || !f.dryRun {
		t.Errorf("got %+v", f)
	}
}

func TestParseExtractFlagsErrors(t *testing.T) {
	cases := [][]string{
		{},                                 // no source
		{"docs", "--strategy", "sideways"}, // bad strategy
		{"docs", "--workers"},              // missing value
		{"docs", "--chunk-size", "zero"},   // non-numeric
		{"docs", "--mystery"},              // unknown flag
		{"docs", "more-docs"},              // two sources
	}
	for _, args := range cases {
		if _, err := parseExtractFlags(args); err == nil {
			t.Errorf("args %v: expected error", args)
		}
	}
}
