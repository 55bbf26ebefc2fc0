// Package assets provides the asset gallery: listing, uploading and deleting
// the image and audio files referenced by scenes and playlists. Backends store
// bytes opaquely; nothing here interprets file contents.
package assets

import (
	"context"
	"errors"
	"io"
	"strings"
)

// Asset kinds, doubling as storage prefixes.
const (
	KindImages = "images"
	KindAudio  = "audio"
)

// Service errors.
var (
	ErrUnsupportedKind = errors.New("unsupported asset kind")
	ErrNotFound        = errors.New("asset not found")
	ErrInvalidName     = errors.New("invalid asset name")
)

// Asset describes one stored file.
type Asset struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Size int64  `json:"size"`
}

// Service is the storage interface behind the asset gallery endpoints.
type Service interface {
	// List returns all assets of the given kind.
	List(ctx context.Context, kind string) ([]Asset, error)

	// Upload stores the file under the given kind and returns its descriptor.
	Upload(ctx context.Context, kind, name, contentType string, size int64, r io.Reader) (Asset, error)

	// Delete removes the named asset. Returns ErrNotFound if absent.
	Delete(ctx context.Context, kind, name string) error
}

// ValidKind reports whether kind names a known asset collection.
func ValidKind(kind string) bool {
	return kind == KindImages || kind == KindAudio
}

// sanitizeName strips path separators and leading dots so a client-supplied
// filename can never escape the asset directory or object prefix.
func sanitizeName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, "/\\") || strings.HasPrefix(name, ".") {
		return "", ErrInvalidName
	}
	return name, nil
}
