package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/face-gallery/internal/analyzer"
	"github.com/kozaktomas/face-gallery/internal/constants"
	"github.com/kozaktomas/face-gallery/internal/enroll"
	"github.com/kozaktomas/face-gallery/internal/gallery"
	"github.com/kozaktomas/face-gallery/internal/imaging"
	"github.com/kozaktomas/face-gallery/internal/match"
	"github.com/kozaktomas/face-gallery/internal/recognize"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("failed to encode %d response: %v", status, err)
		}
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// decodeJSON reads a size-limited JSON body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, enroll.ErrInvalidName),
		errors.Is(err, imaging.ErrInvalidImage),
		errors.Is(err, gallery.ErrDimensionMismatch),
		errors.Is(err, match.ErrInvalidThreshold):
		return http.StatusBadRequest
	case errors.Is(err, enroll.ErrNoFaceDetected), errors.Is(err, analyzer.ErrNoFace):
		return http.StatusUnprocessableEntity
	case errors.Is(err, gallery.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, enroll.ErrEmbedding), errors.Is(err, recognize.ErrDetection):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondDomainError logs err and sends it with the mapped status. Server-side
// failures get a generic message so paths and internals do not leak.
func respondDomainError(w http.ResponseWriter, op string, err error) {
	status := statusForError(err)
	log.Printf("%s failed (%d): %s", op, status, sanitizeForLog(err.Error()))
	if status == http.StatusInternalServerError {
		respondError(w, status, op+" failed")
		return
	}
	respondError(w, status, err.Error())
}

// GalleryStats is the read side of the gallery used for health reporting.
type GalleryStats interface {
	Len() int
	Dimension() int
}

// HealthHandler handles the health check endpoint.
type HealthHandler struct {
	gallery GalleryStats
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(g GalleryStats) *HealthHandler {
	return &HealthHandler{gallery: g}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status     string `json:"status"`
	Identities int    `json:"identities"`
	Dimension  int    `json:"dimension"`
}

// Get reports liveness and the gallery size.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		Identities: h.gallery.Len(),
		Dimension:  h.gallery.Dimension(),
	})
}
