package extract

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseSingle parses a single-object extraction response. A SKIP reply
// (case-insensitive) returns (nil, nil). Models often wrap JSON in code
// fences or chatter around it, so the object is located by brace matching
// rather than parsed wholesale.
func ParseSingle(text, sourceDoc, sourceSection string) (*RawAdvice, error) {
	cleaned := strings.TrimSpace(stripCodeFences(text))
	if cleaned == "" {
		return nil, fmt.Errorf("empty response")
	}
	if strings.EqualFold(cleaned, "SKIP") {
		return nil, nil
	}

	obj, ok := extractJSONObject(cleaned)
	if !ok {
		// Some models add a sentence before SKIP.
		if strings.Contains(strings.ToUpper(cleaned), "SKIP") {
			return nil, nil
		}
		return nil, fmt.Errorf("no JSON object in response")
	}

	var advice RawAdvice
	if err := json.Unmarshal([]byte(obj), &advice); err != nil {
		return nil, fmt.Errorf("parsing response JSON: %w", err)
	}

	advice.Trigger = strings.TrimSpace(advice.Trigger)
	advice.Advice = strings.TrimSpace(advice.Advice)
	advice.Example = strings.TrimSpace(advice.Example)
	if advice.Trigger == "" || advice.Advice == "" {
		return nil, fmt.Errorf("response missing trigger or advice")
	}

	advice.SourceDoc = sourceDoc
	advice.SourceSection = sourceSection
	return &advice, nil
}

// ParseJSONL parses a multi-object response, one JSON object per line.
// Blank lines, comment lines, fence markers, and unparseable lines are
// dropped rather than failing the whole response.
func ParseJSONL(text, sourceDoc, sourceSection string) []*RawAdvice {
	var out []*RawAdvice
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" ||
			strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "//") ||
			strings.HasPrefix(line, "```") {
			continue
		}
		if strings.EqualFold(line, "SKIP") {
			continue
		}

		obj, ok := extractJSONObject(line)
		if !ok {
			continue
		}
		var advice RawAdvice
		if err := json.Unmarshal([]byte(obj), &advice); err != nil {
			continue
		}
		advice.Trigger = strings.TrimSpace(advice.Trigger)
		advice.Advice = strings.TrimSpace(advice.Advice)
		advice.Example = strings.TrimSpace(advice.Example)
		if advice.Trigger == "" || advice.Advice == "" {
			continue
		}
		advice.SourceDoc = sourceDoc
		advice.SourceSection = sourceSection
		out = append(out, &advice)
	}
	return out
}

// stripCodeFences removes a surrounding markdown code fence, with or
// without a language tag.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx != -1 {
		// Drop the language tag line.
		if !strings.Contains(trimmed[:idx], "{") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// extractJSONObject finds the first balanced top-level JSON object in s.
// Braces inside string literals are ignored, including escaped quotes.
func extractJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			if inString {
				escaped = true
			}
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}
	return "", false
}
