package docstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesa-rpg/mesa/internal/session"
)

// FileBackend persists the document as a single JSON file. Writes go to a
// temp file in the same directory followed by a rename, so a crash mid-write
// never leaves a truncated document behind.
type FileBackend struct {
	path string
}

// NewFileBackend creates a file backend at the given path. The parent
// directory is created if missing.
func NewFileBackend(path string) (*FileBackend, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &FileBackend{path: path}, nil
}

// Path returns the location of the data file.
func (f *FileBackend) Path() string {
	return f.path
}

// Load reads and decodes the JSON document.
func (f *FileBackend) Load(_ context.Context) (*session.Document, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoDocument
		}
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}

	var doc session.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode %s: %w", f.path, err)
	}
	return &doc, nil
}

// Save encodes the document and atomically replaces the data file.
func (f *FileBackend) Save(_ context.Context, doc *session.Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", f.path, err)
	}
	return nil
}
