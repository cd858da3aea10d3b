// Package match performs thresholded nearest-neighbor search over the gallery.
//
// The search is a plain linear scan. At gallery sizes of tens to hundreds of
// identities it costs O(identities x dimension) per query, and an approximate
// index would change which identity wins near the threshold.
package match

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kozaktomas/face-gallery/internal/embedding"
	"github.com/kozaktomas/face-gallery/internal/gallery"
)

// DefaultThreshold is the maximum cosine distance accepted as a match.
const DefaultThreshold = 0.4

// ErrInvalidThreshold is returned for thresholds outside (0, 1].
var ErrInvalidThreshold = errors.New("invalid threshold")

// Result is an accepted match.
type Result struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"` // 1 - Distance, not a calibrated probability
}

func newResult(ident gallery.Identity, distance float64) Result {
	return Result{
		ID:         ident.ID,
		Name:       ident.Name,
		Distance:   distance,
		Confidence: 1 - distance,
	}
}

// Best scans identities in order and returns the closest one whose distance
// is strictly below threshold. A candidate only replaces the current best
// when it is strictly closer, so ties go to the identity seen first.
func Best(query embedding.Vector, identities []gallery.Identity, threshold float64) (Result, bool) {
	bestIdx := -1
	var bestDistance float64

	for i := range identities {
		d := embedding.Distance(query, identities[i].Embedding)
		// Written positively so a NaN distance is never accepted.
		if !(d < threshold) {
			continue
		}
		if bestIdx < 0 || d < bestDistance {
			bestIdx = i
			bestDistance = d
		}
	}

	if bestIdx < 0 {
		return Result{}, false
	}
	return newResult(identities[bestIdx], bestDistance), true
}

// Rank returns up to limit identities ordered by ascending distance,
// regardless of threshold. Equal distances keep gallery order.
// A limit <= 0 returns every identity.
func Rank(query embedding.Vector, identities []gallery.Identity, limit int) []Result {
	results := make([]Result, len(identities))
	for i := range identities {
		results[i] = newResult(identities[i], embedding.Distance(query, identities[i].Embedding))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

// ValidateThreshold checks that a threshold can ever accept a match and
// never accepts the 1.0 distance assigned to zero vectors.
func ValidateThreshold(threshold float64) error {
	if threshold <= 0 || threshold > 1 {
		return fmt.Errorf("%w: must be in (0, 1], got %v", ErrInvalidThreshold, threshold)
	}
	return nil
}
