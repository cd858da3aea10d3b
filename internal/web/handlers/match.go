package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-gallery/internal/constants"
	"github.com/kozaktomas/face-gallery/internal/embedding"
	"github.com/kozaktomas/face-gallery/internal/match"
)

// Matcher is the part of match.Engine used by the diagnostics endpoints.
type Matcher interface {
	Threshold() float64
	MatchWithThreshold(query embedding.Vector, threshold float64) (*match.Result, error)
	Rank(query embedding.Vector, limit int) ([]match.Result, error)
}

// MatchHandler matches raw embeddings against the gallery
type MatchHandler struct {
	matcher Matcher
}

// NewMatchHandler creates a new match handler
func NewMatchHandler(m Matcher) *MatchHandler {
	return &MatchHandler{matcher: m}
}

// MatchRequest represents a match request for a precomputed embedding
type MatchRequest struct {
	Embedding []float64 `json:"embedding"`
	Threshold float64   `json:"threshold"` // 0 uses the server threshold
}

// MatchResultResponse is one matched or ranked identity
type MatchResultResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Distance   float64 `json:"distance"`
	Confidence float64 `json:"confidence"`
}

// MatchResponse represents the match response. Match is nil when no
// identity is within the threshold.
type MatchResponse struct {
	Match     *MatchResultResponse `json:"match"`
	Threshold float64              `json:"threshold"`
}

// SearchRequest represents a ranked search request
type SearchRequest struct {
	Embedding []float64 `json:"embedding"`
	Limit     int       `json:"limit"`
}

// SearchResponse lists the closest identities, nearest first
type SearchResponse struct {
	Results []MatchResultResponse `json:"results"`
}

func matchResultResponse(r match.Result) MatchResultResponse {
	return MatchResultResponse{ID: r.ID, Name: r.Name, Distance: r.Distance, Confidence: r.Confidence}
}

// Match returns the best identity within the threshold
func (h *MatchHandler) Match(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Embedding) == 0 {
		respondError(w, http.StatusBadRequest, "embedding is required")
		return
	}

	threshold := req.Threshold
	if threshold == 0 {
		threshold = h.matcher.Threshold()
	}

	res, err := h.matcher.MatchWithThreshold(req.Embedding, threshold)
	if err != nil {
		respondDomainError(w, "match", err)
		return
	}

	response := MatchResponse{Threshold: threshold}
	if res != nil {
		m := matchResultResponse(*res)
		response.Match = &m
	}
	respondJSON(w, http.StatusOK, response)
}

// Search ranks gallery identities by distance regardless of threshold
func (h *MatchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if len(req.Embedding) == 0 {
		respondError(w, http.StatusBadRequest, "embedding is required")
		return
	}
	if req.Limit < 0 || req.Limit > constants.MaxSearchLimit {
		respondError(w, http.StatusBadRequest, "limit out of range")
		return
	}
	if req.Limit == 0 {
		req.Limit = constants.DefaultSearchLimit
	}

	ranked, err := h.matcher.Rank(req.Embedding, req.Limit)
	if err != nil {
		respondDomainError(w, "search", err)
		return
	}

	results := make([]MatchResultResponse, len(ranked))
	for i, res := range ranked {
		results[i] = matchResultResponse(res)
	}
	respondJSON(w, http.StatusOK, SearchResponse{Results: results})
}
