package health

import (
	"context"
	"errors"

	"github.com/mesa-rpg/mesa/internal/docstore"
)

// DocstoreChecker implements health checking for the document store by
// loading the session document. A missing document counts as healthy; it just
// means the store has not been seeded yet.
type DocstoreChecker struct {
	store *docstore.Store
}

// NewDocstoreChecker creates a new document store health checker.
func NewDocstoreChecker(store *docstore.Store) *DocstoreChecker {
	return &DocstoreChecker{store: store}
}

// HealthCheck loads the document and reports backend errors.
func (d *DocstoreChecker) HealthCheck(ctx context.Context) error {
	_, err := d.store.Load(ctx)
	if errors.Is(err, docstore.ErrNoDocument) {
		return nil
	}
	return err
}
