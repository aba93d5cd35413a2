package docparse

import (
	"regexp"
	"strings"
)

// headingRE matches markdown headings at levels 1-4: a run of 1-4 marker
// characters followed by whitespace and title text. Five or more markers do
// not match and are treated as body content.
var headingRE = regexp.MustCompile(`^(#{1,4})\s+(.+)$`)

// ParseSections splits raw document text into an ordered sequence of
// heading-delimited sections.
//
// A section's content is all lines strictly between its heading and the next
// heading (or end of input), trimmed. Content before the first heading is
// not represented anywhere: a document with no headings at all yields zero
// sections. Stateless across calls.
func ParseSections(content string) []Section {
	lines := strings.Split(content, "\n")

	var sections []Section
	open := -1 // index of the currently open section
	bodyStart := 0

	closeSection := func(endLine int) {
		if open < 0 {
			return
		}
		sections[open].Content = strings.TrimSpace(strings.Join(lines[bodyStart:endLine], "\n"))
		sections[open].EndLine = endLine
	}

	for i, line := range lines {
		m := headingRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		closeSection(i)
		sections = append(sections, Section{
			Level:     len(m[1]),
			Title:     strings.TrimSpace(m[2]),
			StartLine: i + 1,
		})
		open = len(sections) - 1
		bodyStart = i + 1
	}
	closeSection(len(lines))

	return sections
}
