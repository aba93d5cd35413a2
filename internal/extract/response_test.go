package extract

import (
	"testing"
)

func TestParseSingleValid(t *testing.T) {
	text := `{"trigger": "writing goroutines", "advice": "always pass a context", "example": "go run(ctx)"}`
	advice, err := ParseSingle(text, "doc.md", "Concurrency")
	if err != nil {
		t.Fatal(err)
	}
	if advice.Trigger != "writing goroutines" || advice.Advice != "always pass a context" {
		t.Errorf("got %+v", advice)
	}
	if advice.SourceDoc != "doc.md" || advice.SourceSection != "Concurrency" {
		t.Errorf("provenance not set: %+v", advice)
	}
}

func TestParseSingleSkip(t *testing.T) {
	for _, text := range []string{"SKIP", "skip", "  Skip  ", "```\nSKIP\n```"} {
		advice, err := ParseSingle(text, "doc.md", "")
		if err != nil {
			t.Errorf("%q: unexpected error %v", text, err)
		}
		if advice != nil {
			t.Errorf("%q: expected nil advice, got %+v", text, advice)
		}
	}
}

func TestParseSingleCodeFenced(t *testing.T) {
	text := "```json\n{\"trigger\": \"t\", \"advice\": \"a\", \"example\": \"\"}\n```"
	advice, err := ParseSingle(text, "doc.md", "")
	if err != nil {
		t.Fatal(err)
	}
	if advice.Trigger != "t" || advice.Advice != "a" {
		t.Errorf("got %+v", advice)
	}
}

func TestParseSingleChatterAroundJSON(t *testing.T) {
	text := `Here is the extraction you asked for:

{"trigger": "using the cache", "advice": "set a TTL", "example": ""}

Let me know if you need more.`
	advice, err := ParseSingle(text, "doc.md", "")
	if err != nil {
		t.Fatal(err)
	}
	if advice.Trigger != "using the cache" {
		t.Errorf("got %+v", advice)
	}
}

func TestParseSingleBracesInStrings(t *testing.T) {
	text := `{"trigger": "templating", "advice": "escape {{ and }} in templates", "example": "fmt.Println(\"{}\")"}`
	advice, err := ParseSingle(text, "doc.md", "")
	if err != nil {
		t.Fatal(err)
	}
	if advice.Advice != "escape {{ and }} in templates" {
		t.Errorf("got %q", advice.Advice)
	}
}

func TestParseSingleRejects(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"empty", ""},
		{"no json", "I could not find anything useful here."},
		{"missing trigger", `{"advice": "do the thing", "example": ""}`},
		{"missing advice", `{"trigger": "when x", "example": ""}`},
		{"whitespace only fields", `{"trigger": "  ", "advice": "  "}`},
		{"malformed", `{"trigger": "t", "advice": `},
	}
	for _, tc := range cases {
		advice, err := ParseSingle(tc.text, "doc.md", "")
		if err == nil && advice != nil {
			t.Errorf("%s: expected rejection, got %+v", tc.name, advice)
		}
	}
}

func TestParseJSONL(t *testing.T) {
	text := `# extracted advice below
{"trigger": "one", "advice": "first", "example": ""}
not json at all
{"trigger": "two", "advice": "second", "example": "x := 1"}

// a comment line
{"trigger": "", "advice": "no trigger"}
` + "```"

	advice := ParseJSONL(text, "doc.md", "")
	if len(advice) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(advice))
	}
	if advice[0].Trigger != "one" || advice[1].Trigger != "two" {
		t.Errorf("got %+v, %+v", advice[0], advice[1])
	}
}

func TestParseJSONLAllJunk(t *testing.T) {
	if advice := ParseJSONL("SKIP\n\n# nothing\n", "doc.md", ""); len(advice) != 0 {
		t.Fatalf("expected no entries, got %d", len(advice))
	}
}

func TestExtractJSONObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
		ok   bool
	}{
		{`{"a": 1}`, `{"a": 1}`, true},
		{`prefix {"a": {"b": 2}} suffix`, `{"a": {"b": 2}}`, true},
		{`{"s": "has } brace"}`, `{"s": "has } brace"}`, true},
		{`{"s": "escaped \" quote }"}`, `{"s": "escaped \" quote }"}`, true},
		{`no braces here`, ``, false},
		{`{"unclosed": 1`, ``, false},
	}
	for _, tc := range cases {
		got, ok := extractJSONObject(tc.in)
		if ok != tc.ok || got != tc.want {
			t.Errorf("extractJSONObject(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}
