package pipeline

import (
	"fmt"
	"strings"

	"github.com/campushelp/faq-bot/internal/retrieval"
)

// ComposeContext renders retrieved results into the context block fed
// to the generator. Pure: preserves retrieval order, never drops
// entries, and returns the empty string for empty input.
func ComposeContext(results []retrieval.Result) string {
	if len(results) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(results))
	for _, r := range results {
		blocks = append(blocks, fmt.Sprintf("Intent: %s\nQ: %s\nA: %s", r.Intent, r.Question, r.Answer))
	}

	return strings.Join(blocks, "\n\n")
}
