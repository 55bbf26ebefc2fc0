// Package docstore persists the session document behind a small read/write
// interface. The original design performed unlocked read-merge-write cycles;
// here every mutation is funneled through a single writer per store, so two
// concurrent updates can no longer lose each other's writes. Each successful
// update bumps the document-wide revision counter.
package docstore

import (
	"context"
	"errors"
	"sync"

	"github.com/mesa-rpg/mesa/internal/session"
)

// ErrNoDocument is returned by Load when the backend holds no document yet.
// Callers typically respond by seeding session.NewDocument.
var ErrNoDocument = errors.New("docstore: no document")

// Backend reads and writes the whole document. Backends need no locking of
// their own; Store serializes access.
type Backend interface {
	// Load returns the stored document, or ErrNoDocument.
	Load(ctx context.Context) (*session.Document, error)

	// Save overwrites the stored document.
	Save(ctx context.Context, doc *session.Document) error
}

// Store is the document store used by the API server. All mutations go
// through Update, which holds the writer lock for the whole
// read-modify-write cycle.
type Store struct {
	mu      sync.Mutex
	backend Backend
}

// New wraps a backend in a single-writer store.
func New(backend Backend) *Store {
	return &Store{backend: backend}
}

// Load returns the current document.
func (s *Store) Load(ctx context.Context) (*session.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Load(ctx)
}

// Save overwrites the document without touching the revision. Used for
// seeding; regular mutations go through Update.
func (s *Store) Save(ctx context.Context, doc *session.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backend.Save(ctx, doc)
}

// Update loads the document, applies fn, bumps the revision and saves the
// result, all under the writer lock. If fn returns an error nothing is
// written. The updated document is returned.
func (s *Store) Update(ctx context.Context, fn func(doc *session.Document) error) (*session.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := fn(doc); err != nil {
		return nil, err
	}
	doc.Revision++
	if err := s.backend.Save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Seed stores a fresh seed document if the backend is empty. Returns the
// document that ends up stored either way.
func (s *Store) Seed(ctx context.Context) (*session.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.backend.Load(ctx)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, ErrNoDocument) {
		return nil, err
	}
	doc = session.NewDocument()
	if err := s.backend.Save(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}
