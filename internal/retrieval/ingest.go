package retrieval

import (
	"fmt"
	"regexp"
	"strings"
)

// Chunk is one ingestible corpus piece.
type Chunk struct {
	ChunkID string
	Source  string
	Section string
	Text    string
}

// Default chunking bounds, in runes.
const (
	ChunkMaxChars = 1200
	ChunkOverlap  = 150
)

var (
	headingPattern = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*$`)
	sentenceSplit  = regexp.MustCompile(`(?:[.!?\n])\s+`)
	excessNewlines = regexp.MustCompile(`\n{3,}`)
)

// CleanText normalizes line endings and collapses blank-line runs.
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.TrimSpace(s)
	return excessNewlines.ReplaceAllString(s, "\n\n")
}

type section struct {
	Title string
	Text  string
}

// splitMarkdownSections cuts a document at its headings; text before the
// first heading lands in a ROOT section.
func splitMarkdownSections(md string) []section {
	lines := strings.Split(md, "\n")
	sections := []section{}
	currentTitle := "ROOT"
	buf := []string{}

	flush := func() {
		text := strings.TrimSpace(strings.Join(buf, "\n"))
		if text != "" {
			sections = append(sections, section{Title: currentTitle, Text: text})
		}
		buf = buf[:0]
	}

	for _, line := range lines {
		if m := headingPattern.FindStringSubmatch(line); m != nil {
			flush()
			currentTitle = strings.TrimSpace(m[2])
			if currentTitle == "" {
				currentTitle = "UNTITLED"
			}
		}
		buf = append(buf, line)
	}
	flush()
	return sections
}

// ChunkDocument splits a markdown document into overlapping sentence-packed
// chunks, one id per (source, section, index).
func ChunkDocument(source, md string) []Chunk {
	chunks := []Chunk{}
	for _, sec := range splitMarkdownSections(CleanText(md)) {
		for i, text := range packSentences(sec.Text, ChunkMaxChars, ChunkOverlap) {
			chunks = append(chunks, Chunk{
				ChunkID: fmt.Sprintf("%s__%s__%04d", source, slug(sec.Title), i),
				Source:  source,
				Section: sec.Title,
				Text:    text,
			})
		}
	}
	return chunks
}

func packSentences(text string, maxChars, overlap int) []string {
	sentences := sentenceSplit.Split(strings.TrimSpace(text), -1)

	packed := []string{}
	buf := ""
	for _, s := range sentences {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if len([]rune(buf))+len([]rune(s))+1 <= maxChars {
			buf = strings.TrimSpace(buf + " " + s)
		} else {
			if buf != "" {
				packed = append(packed, buf)
			}
			buf = s
		}
	}
	if buf != "" {
		packed = append(packed, buf)
	}

	if overlap <= 0 {
		return packed
	}
	out := make([]string, len(packed))
	for i, c := range packed {
		if i > 0 {
			prev := []rune(packed[i-1])
			tail := prev
			if len(prev) > overlap {
				tail = prev[len(prev)-overlap:]
			}
			c = strings.TrimSpace(string(tail) + " " + c)
		}
		out[i] = c
	}
	return out
}

var slugPattern = regexp.MustCompile(`[^a-zA-Z0-9가-힣]+`)

func slug(s string) string {
	s = slugPattern.ReplaceAllString(strings.TrimSpace(s), "-")
	return strings.Trim(s, "-")
}
