package convlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/campushelp/faq-bot/internal/pkg/logger"
)

var csvHeader = []string{"timestamp", "user_id", "user_question", "predicted_intent", "confidence", "response"}

// FileStore appends entries to a CSV file. A mutex serializes writers.
type FileStore struct {
	path string
	log  *logger.Logger
	mu   sync.Mutex
}

// NewFileStore creates a CSV-backed store, creating the parent
// directory and header row if needed.
func NewFileStore(path string, log *logger.Logger) (*FileStore, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log directory: %w", err)
		}
	}

	s := &FileStore{path: path, log: log}
	if err := s.ensureHeader(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FileStore) ensureHeader() error {
	info, err := os.Stat(s.path)
	if err == nil && info.Size() > 0 {
		return nil
	}

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("creating log file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("writing log header: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Append adds one entry. Writes are serialized under the store mutex.
func (s *FileStore) Append(ctx context.Context, entry Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	record := []string{
		entry.Timestamp.Format(time.RFC3339),
		entry.UserID,
		entry.Question,
		entry.Intent,
		strconv.FormatFloat(entry.Confidence, 'f', -1, 64),
		entry.Response,
	}
	if err := w.Write(record); err != nil {
		return fmt.Errorf("appending log entry: %w", err)
	}
	w.Flush()
	return w.Error()
}

// Entries reads the full log in append order.
func (s *FileStore) Entries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	// Skip header
	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("reading log header: %w", err)
	}

	var entries []Entry
	var skipped int
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading log entry: %w", err)
		}
		if len(record) < 6 {
			skipped++
			continue
		}

		ts, err := time.Parse(time.RFC3339, record[0])
		if err != nil {
			skipped++
			continue
		}
		confidence, err := strconv.ParseFloat(record[4], 64)
		if err != nil {
			skipped++
			continue
		}

		entries = append(entries, Entry{
			Timestamp:  ts,
			UserID:     record[1],
			Question:   record[2],
			Intent:     record[3],
			Confidence: confidence,
			Response:   record[5],
		})
	}

	if skipped > 0 {
		s.log.Warn("Skipped malformed conversation log rows", "path", s.path, "skipped", skipped)
	}

	return entries, nil
}

// Close is a no-op for the file store.
func (s *FileStore) Close() error {
	return nil
}
