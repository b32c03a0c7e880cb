// Package corpus loads the static question/answer knowledge base.
package corpus

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/campushelp/faq-bot/internal/pkg/errors"
)

// Entry is one row of the knowledge base. Immutable once loaded;
// identity is the row position in the source file.
type Entry struct {
	Intent   string
	Question string
	Answer   string
}

// Entries is the ordered knowledge base.
type Entries []Entry

// Required corpus columns.
const (
	columnIntent   = "Intent"
	columnQuestion = "Question"
	columnAnswer   = "Answer"
)

// Load reads the corpus CSV at path. The file must carry a header with
// Intent, Question and Answer columns; anything else is a corpus error.
func Load(path string) (Entries, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.CorpusUnavailableError(fmt.Sprintf("corpus file %s", path), err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse reads corpus rows from r. Split out from Load for testability.
func Parse(r io.Reader) (Entries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.CorpusUnavailableError("corpus file is empty or unreadable", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}

	for _, required := range []string{columnIntent, columnQuestion, columnAnswer} {
		if _, ok := cols[required]; !ok {
			return nil, errors.CorpusUnavailableError(
				fmt.Sprintf("corpus is missing required column %s", required), nil)
		}
	}

	var entries Entries
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.CorpusUnavailableError("malformed corpus row", err)
		}

		max := cols[columnIntent]
		if cols[columnQuestion] > max {
			max = cols[columnQuestion]
		}
		if cols[columnAnswer] > max {
			max = cols[columnAnswer]
		}
		if len(record) <= max {
			return nil, errors.CorpusUnavailableError(
				fmt.Sprintf("corpus row has %d fields, expected at least %d", len(record), max+1), nil)
		}

		entries = append(entries, Entry{
			Intent:   strings.TrimSpace(record[cols[columnIntent]]),
			Question: strings.TrimSpace(record[cols[columnQuestion]]),
			Answer:   strings.TrimSpace(record[cols[columnAnswer]]),
		})
	}

	return entries, nil
}

// Intents returns the unique intent labels in first-seen order.
func (e Entries) Intents() []string {
	seen := make(map[string]bool)
	var intents []string
	for _, entry := range e {
		if !seen[entry.Intent] {
			seen[entry.Intent] = true
			intents = append(intents, entry.Intent)
		}
	}
	return intents
}

// Content composes the text embedded for an entry. The same composition
// is used at index-build time and never at query time; queries embed the
// raw question text.
func (e Entry) Content() string {
	return fmt.Sprintf("Intent: %s\nQuestion: %s\nAnswer: %s", e.Intent, e.Question, e.Answer)
}
