package match

import (
	"fmt"

	"github.com/kozaktomas/face-gallery/internal/embedding"
	"github.com/kozaktomas/face-gallery/internal/gallery"
)

// Gallery is the read side of gallery.Store used for matching.
type Gallery interface {
	Snapshot() []gallery.Identity
}

// Engine matches query embeddings against a live gallery.
type Engine struct {
	gallery   Gallery
	threshold float64
}

// NewEngine creates an engine with the given distance threshold.
// A zero threshold selects DefaultThreshold.
func NewEngine(g Gallery, threshold float64) (*Engine, error) {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}
	return &Engine{gallery: g, threshold: threshold}, nil
}

// Threshold returns the configured distance threshold.
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// Match returns the best identity for query, or nil when nothing is within
// the engine threshold. An empty gallery is never an error.
func (e *Engine) Match(query embedding.Vector) (*Result, error) {
	return e.MatchWithThreshold(query, e.threshold)
}

// MatchWithThreshold is Match with a per-call threshold.
func (e *Engine) MatchWithThreshold(query embedding.Vector, threshold float64) (*Result, error) {
	if err := ValidateThreshold(threshold); err != nil {
		return nil, err
	}

	identities := e.gallery.Snapshot()
	if len(identities) == 0 {
		return nil, nil
	}
	if err := checkDimension(query, identities); err != nil {
		return nil, err
	}

	res, ok := Best(query, identities, threshold)
	if !ok {
		return nil, nil
	}
	return &res, nil
}

// Rank returns the closest identities to query regardless of threshold.
func (e *Engine) Rank(query embedding.Vector, limit int) ([]Result, error) {
	identities := e.gallery.Snapshot()
	if len(identities) == 0 {
		return []Result{}, nil
	}
	if err := checkDimension(query, identities); err != nil {
		return nil, err
	}
	return Rank(query, identities, limit), nil
}

func checkDimension(query embedding.Vector, identities []gallery.Identity) error {
	if dim := len(identities[0].Embedding); len(query) != dim {
		return fmt.Errorf("%w: query has %d components, gallery uses %d",
			gallery.ErrDimensionMismatch, len(query), dim)
	}
	return nil
}
