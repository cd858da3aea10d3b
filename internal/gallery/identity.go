// Package gallery holds the enrolled identities in memory and persists them
// to a flat JSON catalog file.
//
// The catalog is rewritten in full after every mutation. Gallery sizes are
// small (tens to low hundreds of identities), so there is no append log,
// no compaction and no index beyond a linear scan.
package gallery

import (
	"errors"
	"time"

	"github.com/kozaktomas/face-gallery/internal/embedding"
)

var (
	// ErrCorruptCatalog is returned by Load when the catalog file exists but
	// does not match the expected schema. It is fatal at startup.
	ErrCorruptCatalog = errors.New("corrupt catalog")

	// ErrPersistence is returned when a mutation could not be written to the
	// catalog file. The in-memory gallery is rolled back before returning.
	ErrPersistence = errors.New("catalog persistence failed")

	// ErrNotFound is returned when an identity id is not in the gallery.
	ErrNotFound = errors.New("identity not found")

	// ErrDimensionMismatch is returned when an embedding length differs from
	// the length used by the rest of the gallery.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrDuplicateID is returned when appending an identity whose id is already present.
	ErrDuplicateID = errors.New("duplicate identity id")

	// ErrInvalidIdentity is returned when appending an identity with missing fields.
	ErrInvalidIdentity = errors.New("invalid identity")
)

// Identity is one enrolled person. Identities are never mutated after creation.
type Identity struct {
	ID        string
	Name      string
	Embedding embedding.Vector
	ImagePath string
	AddedAt   time.Time
}

// Summary is the listing projection of an Identity. It omits the embedding.
type Summary struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	AddedAt time.Time `json:"added_at"`
}

// Summary returns the listing projection of the identity.
func (i Identity) Summary() Summary {
	return Summary{ID: i.ID, Name: i.Name, AddedAt: i.AddedAt}
}

// less orders identities by enrollment time, then id. This is the gallery's
// iteration order and therefore decides match tie-breaks.
func less(a, b Identity) bool {
	if !a.AddedAt.Equal(b.AddedAt) {
		return a.AddedAt.Before(b.AddedAt)
	}
	return a.ID < b.ID
}
