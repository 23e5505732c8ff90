// Package tone serves brand tone guides. The guides double as part of the
// RAG corpus; here they are embedded so the generator can prompt with them
// even before any corpus ingestion ran.
package tone

import (
	"embed"
	"sort"
	"strings"
)

//go:embed corpus/*.md
var corpusFS embed.FS

var guideFiles = map[string]string{
	"amoremall": "amoremall.md",
	"innisfree": "innisfree.md",
}

func ListToneIDs() []string {
	ids := make([]string, 0, len(guideFiles))
	for id := range guideFiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// LoadGuide returns the markdown guide for a tone id, or "" when absent so
// the generator falls back to RAG evidence and its default guidance.
func LoadGuide(toneID string) string {
	key := strings.ToLower(strings.TrimSpace(toneID))
	fname, ok := guideFiles[key]
	if !ok {
		return ""
	}
	data, err := corpusFS.ReadFile("corpus/" + fname)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
