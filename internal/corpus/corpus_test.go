package corpus

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/campushelp/faq-bot/internal/pkg/errors"
)

const sampleCSV = `Intent,Question,Answer
Admission_Dates,When do admissions open?,Admissions open on July 1st.
Scholarship,What scholarships are available?,Merit and need-based scholarships.
Admission_Dates,What is the application deadline?,The deadline is August 15th.
Hostel,How do I apply for hostel?,Submit the hostel form online.
`

func TestParse(t *testing.T) {
	entries, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if len(entries) != 4 {
		t.Fatalf("len(entries) = %d, want 4", len(entries))
	}

	want := Entry{
		Intent:   "Admission_Dates",
		Question: "When do admissions open?",
		Answer:   "Admissions open on July 1st.",
	}
	if entries[0] != want {
		t.Errorf("entries[0] = %+v, want %+v", entries[0], want)
	}
}

func TestParse_ColumnOrder(t *testing.T) {
	// Column positions come from the header, not a fixed layout.
	reordered := `Answer,Intent,Question
Admissions open on July 1st.,Admission_Dates,When do admissions open?
`
	entries, err := Parse(strings.NewReader(reordered))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	if entries[0].Intent != "Admission_Dates" {
		t.Errorf("Intent = %q, want Admission_Dates", entries[0].Intent)
	}
	if entries[0].Answer != "Admissions open on July 1st." {
		t.Errorf("Answer = %q", entries[0].Answer)
	}
}

func TestParse_MissingColumn(t *testing.T) {
	_, err := Parse(strings.NewReader("Intent,Question\nHostel,How?\n"))
	if err == nil {
		t.Fatal("Parse() should fail when a required column is missing")
	}
	if !errors.IsCode(err, errors.CodeCorpusUnavailable) {
		t.Errorf("error = %v, want corpus unavailable", err)
	}
}

func TestParse_Empty(t *testing.T) {
	_, err := Parse(strings.NewReader(""))
	if err == nil {
		t.Fatal("Parse() should fail on empty input")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.csv"))
	if err == nil {
		t.Fatal("Load() should fail for a missing file")
	}
	if !errors.IsCode(err, errors.CodeCorpusUnavailable) {
		t.Errorf("error = %v, want corpus unavailable", err)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "faq.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0644); err != nil {
		t.Fatal(err)
	}

	entries, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("len(entries) = %d, want 4", len(entries))
	}
}

func TestIntents_FirstSeenOrder(t *testing.T) {
	entries, err := Parse(strings.NewReader(sampleCSV))
	if err != nil {
		t.Fatal(err)
	}

	got := entries.Intents()
	want := []string{"Admission_Dates", "Scholarship", "Hostel"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Intents() = %v, want %v", got, want)
	}
}

func TestEntry_Content(t *testing.T) {
	e := Entry{
		Intent:   "Library",
		Question: "What are the library hours?",
		Answer:   "Open 8am to 10pm.",
	}

	want := "Intent: Library\nQuestion: What are the library hours?\nAnswer: Open 8am to 10pm."
	if got := e.Content(); got != want {
		t.Errorf("Content() = %q, want %q", got, want)
	}
}
