package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bdougie/videojudge/internal/models"
)

// verdictFile is the file name used for the final verdict inside a JSON
// results directory.
const verdictFile = "verdict.json"

// Storage defines the interface for storing analysis results
type Storage interface {
	// AddResult durably stores a single frame record
	AddResult(ctx context.Context, result models.Record) error

	// SaveVerdict stores the final verdict of a run
	SaveVerdict(ctx context.Context, verdict models.Verdict) error

	// Close releases any resources held by the storage
	Close() error
}

// Loader is implemented by storages that can read their frame records back.
type Loader interface {
	Results(ctx context.Context) ([]models.Record, error)
}

// JSONDir writes one JSON file per frame record into a directory
type JSONDir struct {
	dir string
}

// NewJSONDir creates the directory if needed and returns a storage writing into it
func NewJSONDir(dir string) (*JSONDir, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create results directory '%s': %w", dir, err)
	}
	return &JSONDir{dir: dir}, nil
}

func (s *JSONDir) Dir() string { return s.dir }

// AddResult writes <frame>.json, replacing any earlier record for the frame
func (s *JSONDir) AddResult(ctx context.Context, result models.Record) error {
	if result.FrameID == "" {
		return fmt.Errorf("record has no frame id")
	}
	path := filepath.Join(s.dir, filepath.Base(result.FrameID)+".json")
	return writeJSON(path, result)
}

func (s *JSONDir) SaveVerdict(ctx context.Context, verdict models.Verdict) error {
	return writeJSON(filepath.Join(s.dir, verdictFile), verdict)
}

func (s *JSONDir) Close() error { return nil }

// Results loads every record in the directory ordered by timestamp
func (s *JSONDir) Results(ctx context.Context) ([]models.Record, error) {
	return LoadResults(s.dir)
}

// LoadResults reads all per-frame JSON files in dir, ordered by timestamp and
// then frame id.
func LoadResults(dir string) ([]models.Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read results directory '%s': %w", dir, err)
	}

	var results []models.Record
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == verdictFile || !strings.HasSuffix(strings.ToLower(name), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		var r models.Record
		if err := json.Unmarshal(data, &r); err != nil {
			return nil, fmt.Errorf("failed to unmarshal %s: %w", name, err)
		}
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Timestamp != results[j].Timestamp {
			return results[i].Timestamp < results[j].Timestamp
		}
		return results[i].FrameID < results[j].FrameID
	})
	return results, nil
}

// writeJSON writes v to a temp file and renames it into place so a crash never
// leaves a half written record behind.
func writeJSON(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write results file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write results file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to move results file into place: %w", err)
	}
	return nil
}
