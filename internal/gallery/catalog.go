package gallery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kozaktomas/face-gallery/internal/embedding"
)

// catalogEntry is one row of the persisted catalog, keyed by identity id.
type catalogEntry struct {
	Name      string    `json:"name"`
	ImagePath string    `json:"image_path"`
	Embedding []float64 `json:"embedding"`
	AddedAt   string    `json:"added_at,omitempty"`
	// AddedDate is the field name used by catalogs written before added_at existed.
	AddedDate string `json:"added_date,omitempty"`
}

// timestampLayouts are tried in order when reading added_at.
// Zone-less timestamps are interpreted as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// encodeCatalog serializes identities as a pretty-printed JSON object keyed by id.
func encodeCatalog(identities []Identity) ([]byte, error) {
	rows := make(map[string]catalogEntry, len(identities))
	for _, ident := range identities {
		rows[ident.ID] = catalogEntry{
			Name:      ident.Name,
			ImagePath: ident.ImagePath,
			Embedding: ident.Embedding,
			AddedAt:   formatTimestamp(ident.AddedAt),
		}
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode catalog: %w", err)
	}
	return append(data, '\n'), nil
}

// decodeCatalog parses catalog bytes into identities sorted in gallery order.
// Every schema violation is reported as ErrCorruptCatalog.
func decodeCatalog(data []byte) ([]Identity, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrCorruptCatalog)
	}

	var rows map[string]catalogEntry
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptCatalog, err)
	}
	if rows == nil {
		return nil, fmt.Errorf("%w: catalog is not an object", ErrCorruptCatalog)
	}

	identities := make([]Identity, 0, len(rows))
	dim := -1
	for id, row := range rows {
		if id == "" {
			return nil, fmt.Errorf("%w: empty identity id", ErrCorruptCatalog)
		}
		if row.Name == "" {
			return nil, fmt.Errorf("%w: identity %s has no name", ErrCorruptCatalog, id)
		}
		if len(row.Embedding) == 0 {
			return nil, fmt.Errorf("%w: identity %s has no embedding", ErrCorruptCatalog, id)
		}
		if dim == -1 {
			dim = len(row.Embedding)
		} else if len(row.Embedding) != dim {
			return nil, fmt.Errorf("%w: identity %s has %d-d embedding, expected %d",
				ErrCorruptCatalog, id, len(row.Embedding), dim)
		}

		stamp := row.AddedAt
		if stamp == "" {
			stamp = row.AddedDate
		}
		if stamp == "" {
			return nil, fmt.Errorf("%w: identity %s has no added_at", ErrCorruptCatalog, id)
		}
		addedAt, err := parseTimestamp(stamp)
		if err != nil {
			return nil, fmt.Errorf("%w: identity %s: %v", ErrCorruptCatalog, id, err)
		}

		identities = append(identities, Identity{
			ID:        id,
			Name:      row.Name,
			Embedding: embedding.Vector(row.Embedding),
			ImagePath: row.ImagePath,
			AddedAt:   addedAt,
		})
	}

	sort.Slice(identities, func(i, j int) bool {
		return less(identities[i], identities[j])
	})
	return identities, nil
}
