package query

import (
	"strings"

	"knowhub/internal/retrieval"
)

// BuildContext projects ranked chunks into the prompt context string and
// the deduplicated source-document list. Chunk order is the store's rank
// order and is never re-sorted; document names keep their first-occurrence
// position.
func BuildContext(results []retrieval.SearchResult) (string, []string) {
	parts := make([]string, 0, len(results))
	sources := make([]string, 0, len(results))
	seen := make(map[string]bool, len(results))

	for _, r := range results {
		parts = append(parts, r.Content)
		if !seen[r.DocumentName] {
			seen[r.DocumentName] = true
			sources = append(sources, r.DocumentName)
		}
	}

	return strings.Join(parts, "\n\n"), sources
}

// RenderPrompt substitutes the context and question into the configured
// template. Placeholder presence is validated at startup, not here.
func RenderPrompt(template, contextText, question string) string {
	out := strings.ReplaceAll(template, "{context}", contextText)
	return strings.ReplaceAll(out, "{question}", question)
}
