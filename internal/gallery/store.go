package gallery

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/google/renameio"
)

// Store is the process-wide gallery. It is safe for concurrent use.
//
// A single RWMutex guards both the in-memory slice and the catalog rewrite:
// mutations hold the write lock from validation through persistence and
// rollback, so readers never observe an unpersisted identity.
type Store struct {
	mu         sync.RWMutex
	path       string
	identities []Identity // gallery order: (AddedAt, ID)

	// Overridable for tests.
	writeFile  func(path string, data []byte) error
	removeFile func(path string) error
}

// writeCatalogFile replaces the catalog atomically (temp file + rename) so a
// crash mid-write never leaves a torn catalog behind.
func writeCatalogFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return renameio.WriteFile(path, data, 0o644)
}

func newStore(path string, identities []Identity) *Store {
	return &Store{
		path:       path,
		identities: identities,
		writeFile:  writeCatalogFile,
		removeFile: os.Remove,
	}
}

// Load reads the catalog at path. A missing file yields an empty gallery.
// A file that exists but cannot be parsed returns ErrCorruptCatalog.
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from configuration
	if errors.Is(err, fs.ErrNotExist) {
		return newStore(path, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}

	identities, err := decodeCatalog(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return newStore(path, identities), nil
}

// Path returns the catalog file location.
func (s *Store) Path() string {
	return s.path
}

// persistLocked rewrites the whole catalog. Caller must hold the write lock.
func (s *Store) persistLocked() error {
	data, err := encodeCatalog(s.identities)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := s.writeFile(s.path, data); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

func (s *Store) indexLocked(id string) int {
	for i := range s.identities {
		if s.identities[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) dimensionLocked() int {
	if len(s.identities) == 0 {
		return 0
	}
	return len(s.identities[0].Embedding)
}

// Append adds a new identity and rewrites the catalog.
// If the write fails the identity is removed again and ErrPersistence is returned.
func (s *Store) Append(ident Identity) error {
	if ident.ID == "" || ident.Name == "" {
		return fmt.Errorf("%w: id and name are required", ErrInvalidIdentity)
	}
	if len(ident.Embedding) == 0 {
		return fmt.Errorf("%w: empty embedding", ErrInvalidIdentity)
	}
	if ident.AddedAt.IsZero() {
		return fmt.Errorf("%w: added_at is required", ErrInvalidIdentity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexLocked(ident.ID) >= 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateID, ident.ID)
	}
	if dim := s.dimensionLocked(); dim != 0 && len(ident.Embedding) != dim {
		return fmt.Errorf("%w: got %d, gallery uses %d", ErrDimensionMismatch, len(ident.Embedding), dim)
	}

	ident.Embedding = ident.Embedding.Clone()
	ident.AddedAt = ident.AddedAt.UTC()

	// Keep gallery order. New identities are almost always the newest, so
	// this is an append in practice.
	pos, _ := slices.BinarySearchFunc(s.identities, ident, func(a, b Identity) int {
		if less(a, b) {
			return -1
		}
		if less(b, a) {
			return 1
		}
		return 0
	})
	s.identities = slices.Insert(s.identities, pos, ident)

	if err := s.persistLocked(); err != nil {
		s.identities = slices.Delete(s.identities, pos, pos+1)
		return err
	}
	return nil
}

// Remove deletes an identity, rewrites the catalog and then removes the
// identity's image file. A missing image file is not an error; other file
// errors are logged because the catalog is already committed at that point.
func (s *Store) Remove(id string) (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	pos := s.indexLocked(id)
	if pos < 0 {
		return Identity{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	removed := s.identities[pos]
	s.identities = slices.Delete(s.identities, pos, pos+1)

	if err := s.persistLocked(); err != nil {
		s.identities = slices.Insert(s.identities, pos, removed)
		return Identity{}, err
	}

	if removed.ImagePath != "" {
		if err := s.removeFile(removed.ImagePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			log.Printf("warning: failed to remove image %s for identity %s: %v", removed.ImagePath, id, err)
		}
	}
	return removed, nil
}

// Get returns the identity with the given id.
func (s *Store) Get(id string) (Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos := s.indexLocked(id)
	if pos < 0 {
		return Identity{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.identities[pos], nil
}

// List returns (id, name, added_at) for every identity in gallery order.
func (s *Store) List() []Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Summary, len(s.identities))
	for i, ident := range s.identities {
		out[i] = ident.Summary()
	}
	return out
}

// Snapshot returns a copy of the gallery in iteration order. Identities are
// immutable so the embeddings are shared, not copied.
func (s *Store) Snapshot() []Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.identities)
}

// Len returns the number of enrolled identities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.identities)
}

// Dimension returns the embedding length used by the gallery, or 0 when empty.
func (s *Store) Dimension() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dimensionLocked()
}
