package docstore

import (
	"context"
	"encoding/json"

	"github.com/mesa-rpg/mesa/internal/session"
)

// MemoryBackend holds the document in memory. Used for testing and
// development. Documents pass through a JSON round trip on both load and
// save so callers never share slices with the stored copy, matching the
// semantics of the durable backends.
type MemoryBackend struct {
	data []byte
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// Load decodes the stored document, or returns ErrNoDocument.
func (m *MemoryBackend) Load(_ context.Context) (*session.Document, error) {
	if m.data == nil {
		return nil, ErrNoDocument
	}
	var doc session.Document
	if err := json.Unmarshal(m.data, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Save encodes and stores the document.
func (m *MemoryBackend) Save(_ context.Context, doc *session.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.data = data
	return nil
}
