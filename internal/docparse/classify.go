package docparse

import (
	"regexp"
	"strings"
)

// Decision is the outcome of classifying one section.
type Decision struct {
	Accept bool
	Reason string
}

// minContentLength is the shortest section body worth extracting when no
// signal patterns match. The boundary is exclusive: exactly 100 characters
// is not "too short".
const minContentLength = 100

// mediumLengthThreshold promotes a single medium signal to an accept when
// the section body is long enough to carry real advice.
const mediumLengthThreshold = 300

// skipTitles are administrative headings that never contain advice.
// Matched case-insensitively against the exact trimmed title.
var skipTitles = map[string]struct{}{
	"table of contents": {},
	"contents":          {},
	"index":             {},
	"license":           {},
	"changelog":         {},
	"references":        {},
	"acknowledgements":  {},
	"see also":          {},
}

// strongPatterns match content that almost always encodes a lesson:
// cautionary callouts, negative imperatives, comparative preference
// phrasing, and error-condition phrasing. Checked against title and
// content together so callout-style titles count.
var strongPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(warning|caution|important|gotcha|pitfall|good to know|watch out)\b`),
	regexp.MustCompile(`(?i)\b(don'?t|do not|avoid|never)\b`),
	regexp.MustCompile(`(?i)\bprefer\b[^.\n]*\bover\b`),
	regexp.MustCompile(`(?i)\b(instead of|rather than)\b`),
	regexp.MustCompile(`(?i)common mistake`),
	regexp.MustCompile(`(?i)\b(will (fail|break|not work)|throws? an error|raises? an error|results? in an error|fails? (if|when)|error when)\b`),
}

// mediumPatterns are weaker hints; two of them together, or one plus a long
// body, is enough to accept.
var mediumPatterns = []*regexp.Regexp{
	regexp.MustCompile("```"),
	regexp.MustCompile(`(?i)\bfor example\b`),
	regexp.MustCompile(`(?i)\byou (can|should)\b`),
	regexp.MustCompile(`(?i)\bmake sure\b`),
	regexp.MustCompile(`(?i)\bbe careful\b`),
}

// Classify decides whether a section contains actionable content worth
// extracting. The decision is a pure function of the section's title and
// content; the rule order binds — skip and table checks take precedence
// over signal checks even when signals are present.
func Classify(s Section) Decision {
	title := strings.ToLower(strings.TrimSpace(s.Title))
	if _, skip := skipTitles[title]; skip {
		return Decision{Reason: "skip pattern"}
	}

	if mostlyTable(s.Content) {
		return Decision{Reason: "mostly table"}
	}

	combined := s.Title + "\n" + s.Content
	for _, re := range strongPatterns {
		if re.MatchString(combined) {
			return Decision{Accept: true, Reason: "strong signal"}
		}
	}

	medium := 0
	for _, re := range mediumPatterns {
		if re.MatchString(s.Content) {
			medium++
		}
	}
	if medium >= 2 {
		return Decision{Accept: true, Reason: "multiple medium"}
	}
	if medium == 1 && len(s.Content) > mediumLengthThreshold {
		return Decision{Accept: true, Reason: "medium + length"}
	}

	if len(s.Content) < minContentLength {
		return Decision{Reason: "too short"}
	}
	return Decision{Reason: "no signals"}
}

// mostlyTable reports whether the content is dominated by markdown table
// rows: more than 3 non-blank lines of which more than 70% start and end
// with a pipe delimiter.
func mostlyTable(content string) bool {
	var total, tableRows int
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		total++
		if strings.HasPrefix(line, "|") && strings.HasSuffix(line, "|") {
			tableRows++
		}
	}
	if total <= 3 {
		return false
	}
	return float64(tableRows)/float64(total) > 0.7
}
