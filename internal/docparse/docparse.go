// Package docparse turns documentation files into extraction candidates.
//
// Two interchangeable strategies implement the same document-to-candidates
// contract:
// - SectionStrategy splits on markdown headings (levels 1-4) and keeps only
//   sections the heuristic classifier accepts.
// - ChunkStrategy slides a fixed-size window over the raw text and queues
//   every window unconditionally.
//
// Which strategy runs is a configuration choice; downstream extraction does
// not care where a candidate came from.
package docparse

// Document is a source file scheduled for candidate production.
// Immutable once read.
type Document struct {
	Path    string
	Content string
}

// Section is a heading-delimited span of a document.
// StartLine is the 1-indexed line of the heading; EndLine is the last line
// belonging to the section's body.
type Section struct {
	Level     int // 1-4
	Title     string
	StartLine int
	EndLine   int
	Content   string
}

// Candidate is a section or window chunk selected for extraction.
// Reason records why the candidate was accepted, for observability.
type Candidate struct {
	SourceDoc string
	Section   string // empty for window chunks
	Content   string
	Reason    string
}

// Strategy produces extraction candidates from a document.
type Strategy interface {
	Candidates(doc Document) []Candidate
}

// SectionStrategy parses a document into heading-delimited sections and
// keeps the ones the classifier accepts.
type SectionStrategy struct{}

// Candidates implements Strategy.
func (SectionStrategy) Candidates(doc Document) []Candidate {
	var out []Candidate
	for _, sec := range ParseSections(doc.Content) {
		d := Classify(sec)
		if !d.Accept {
			continue
		}
		out = append(out, Candidate{
			SourceDoc: doc.Path,
			Section:   sec.Title,
			Content:   sec.Content,
			Reason:    d.Reason,
		})
	}
	return out
}

// ChunkStrategy produces sliding-window candidates that bypass
// classification entirely.
type ChunkStrategy struct {
	Size    int // window size in chars
	Overlap int // chars shared between consecutive windows
}

// Candidates implements Strategy.
func (c ChunkStrategy) Candidates(doc Document) []Candidate {
	var out []Candidate
	for _, chunk := range ChunkText(doc.Content, c.Size, c.Overlap) {
		out = append(out, Candidate{
			SourceDoc: doc.Path,
			Content:   chunk,
			Reason:    "chunk",
		})
	}
	return out
}
