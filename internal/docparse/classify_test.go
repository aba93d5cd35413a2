package docparse

import (
	"strings"
	"testing"
)

func TestClassifySkipTitles(t *testing.T) {
	for _, title := range []string{"Table of Contents", "LICENSE", "Changelog", "See Also"} {
		s := Section{Title: title, Content: "Never use this pattern. " + strings.Repeat("x", 200)}
		d := Classify(s)
		if d.Accept {
			t.Errorf("title %q should be skipped even with strong signals", title)
		}
		if d.Reason != "skip pattern" {
			t.Errorf("title %q reason = %q, want skip pattern", title, d.Reason)
		}
	}
}

func TestClassifyMostlyTable(t *testing.T) {
	content := `| Option | Default |
| ------ | ------- |
| size | 3000 |
| overlap | 200 |
| workers | 1 |`
	d := Classify(Section{Title: "Options", Content: content})
	if d.Accept || d.Reason != "mostly table" {
		t.Errorf("table section: accept=%v reason=%q", d.Accept, d.Reason)
	}
}

func TestClassifyStrongSignals(t *testing.T) {
	cases := []struct {
		name    string
		title   string
		content string
	}{
		{"callout", "Usage", "Warning: this resets the store."},
		{"negative imperative", "Usage", "Never call close twice."},
		{"prefer over", "Style", "Prefer channels over shared memory here."},
		{"instead of", "Style", "Use batch writes instead of row-by-row inserts."},
		{"common mistake", "Notes", "A common mistake is forgetting the scheme prefix."},
		{"error phrasing", "Notes", "The call fails when the endpoint is unreachable."},
		{"signal in title", "Good to Know", "short body"},
	}
	for _, tc := range cases {
		d := Classify(Section{Title: tc.title, Content: tc.content})
		if !d.Accept {
			t.Errorf("%s: not accepted (reason %q)", tc.name, d.Reason)
			continue
		}
		if d.Reason != "strong signal" {
			t.Errorf("%s: reason = %q, want strong signal", tc.name, d.Reason)
		}
	}
}

func TestClassifyMediumSignals(t *testing.T) {
	// Two medium signals, short body.
	d := Classify(Section{Title: "Usage", Content: "You can pass options. For example, set a limit."})
	if !d.Accept || d.Reason != "multiple medium" {
		t.Errorf("two medium signals: accept=%v reason=%q", d.Accept, d.Reason)
	}

	// One medium signal needs length above the threshold.
	short := "You can pass a limit."
	d = Classify(Section{Title: "Usage", Content: short})
	if d.Accept {
		t.Errorf("one medium signal + short body accepted: %q", d.Reason)
	}

	long := "You can pass a limit. " + strings.Repeat("The option applies to every request. ", 12)
	d = Classify(Section{Title: "Usage", Content: long})
	if !d.Accept || d.Reason != "medium + length" {
		t.Errorf("one medium signal + long body: accept=%v reason=%q", d.Accept, d.Reason)
	}
}

func TestClassifyLengthBoundary(t *testing.T) {
	cases := []struct {
		length int
		accept bool
		reason string
	}{
		{99, false, "too short"},
		{100, false, "no signals"},
		{101, false, "no signals"},
	}
	for _, tc := range cases {
		// Neutral filler with no signal words.
		content := strings.Repeat("z", tc.length)
		d := Classify(Section{Title: "Neutral", Content: content})
		if d.Accept != tc.accept || d.Reason != tc.reason {
			t.Errorf("length %d: accept=%v reason=%q, want accept=%v reason=%q",
				tc.length, d.Accept, d.Reason, tc.accept, tc.reason)
		}
	}
}

func TestClassifyDeterministic(t *testing.T) {
	s := Section{Title: "Setup", Content: "Make sure the daemon is running. You should check the logs."}
	first := Classify(s)
	for i := 0; i < 10; i++ {
		if got := Classify(s); got != first {
			t.Fatalf("classification changed between calls: %+v vs %+v", got, first)
		}
	}
}

func TestSectionStrategyFiltering(t *testing.T) {
	doc := Document{
		Path: "guide.md",
		Content: `# Index

short

# Pitfalls

Never mutate the slice returned by List.

# Neutral

` + strings.Repeat("plain text without any signal words at all ", 5),
	}

	cands := SectionStrategy{}.Candidates(doc)
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	if cands[0].Section != "Pitfalls" || cands[0].Reason != "strong signal" {
		t.Errorf("candidate = %q (%s)", cands[0].Section, cands[0].Reason)
	}
	if cands[0].SourceDoc != "guide.md" {
		t.Errorf("candidate source = %q", cands[0].SourceDoc)
	}
}
