package assets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// LocalService stores assets under a directory on the server host, one
// subdirectory per kind. Files are served by the HTTP server from the same
// directory, so URLs are paths relative to the server base URL.
type LocalService struct {
	dir     string
	baseURL string
}

// NewLocalService creates a local asset service rooted at dir. baseURL is
// prepended to generated asset URLs ("" yields server-relative URLs).
func NewLocalService(dir, baseURL string) (*LocalService, error) {
	for _, kind := range []string{KindImages, KindAudio} {
		if err := os.MkdirAll(filepath.Join(dir, kind), 0o755); err != nil {
			return nil, fmt.Errorf("create asset dir: %w", err)
		}
	}
	return &LocalService{dir: dir, baseURL: baseURL}, nil
}

// Dir returns the root asset directory, for mounting a file server.
func (s *LocalService) Dir() string {
	return s.dir
}

func (s *LocalService) assetURL(kind, name string) string {
	return s.baseURL + "/assets/files/" + kind + "/" + name
}

// List returns all assets of the given kind, sorted by name.
func (s *LocalService) List(ctx context.Context, kind string) ([]Asset, error) {
	if !ValidKind(kind) {
		return nil, ErrUnsupportedKind
	}

	entries, err := os.ReadDir(filepath.Join(s.dir, kind))
	if err != nil {
		return nil, fmt.Errorf("read asset dir: %w", err)
	}

	out := make([]Asset, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, Asset{
			Name: entry.Name(),
			URL:  s.assetURL(kind, entry.Name()),
			Size: info.Size(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Upload writes the file to disk via a temp file and rename, so a partially
// written upload never appears in listings.
func (s *LocalService) Upload(ctx context.Context, kind, name, contentType string, size int64, r io.Reader) (Asset, error) {
	if !ValidKind(kind) {
		return Asset{}, ErrUnsupportedKind
	}
	name, err := sanitizeName(name)
	if err != nil {
		return Asset{}, err
	}

	dir := filepath.Join(s.dir, kind)
	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return Asset{}, fmt.Errorf("create temp file: %w", err)
	}
	written, err := io.Copy(tmp, r)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return Asset{}, fmt.Errorf("write asset: %w", err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(dir, name)); err != nil {
		os.Remove(tmp.Name())
		return Asset{}, fmt.Errorf("finalize asset: %w", err)
	}

	return Asset{Name: name, URL: s.assetURL(kind, name), Size: written}, nil
}

// Delete removes the named asset from disk.
func (s *LocalService) Delete(ctx context.Context, kind, name string) error {
	if !ValidKind(kind) {
		return ErrUnsupportedKind
	}
	name, err := sanitizeName(name)
	if err != nil {
		return err
	}

	if err := os.Remove(filepath.Join(s.dir, kind, name)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("delete asset: %w", err)
	}
	return nil
}
