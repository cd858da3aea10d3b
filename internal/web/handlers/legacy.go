package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-gallery/internal/enroll"
	"github.com/kozaktomas/face-gallery/internal/gallery"
	"github.com/kozaktomas/face-gallery/internal/imaging"
	"github.com/kozaktomas/face-gallery/internal/recognize"
)

// LegacyHandler serves the pre-v1 routes used by existing browser clients.
// These always answer 200 and report failures in a {success, message}
// envelope.
type LegacyHandler struct {
	people  *PeopleHandler
	analyze *AnalyzeHandler
}

// NewLegacyHandler creates a new legacy handler
func NewLegacyHandler(people *PeopleHandler, analyze *AnalyzeHandler) *LegacyHandler {
	return &LegacyHandler{people: people, analyze: analyze}
}

// LegacyPerson is a gallery entry in the legacy listing
type LegacyPerson struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	AddedDate string `json:"added_date"`
}

// LegacyResponse is the legacy result envelope
type LegacyResponse struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	PersonID string `json:"person_id,omitempty"`
}

func respondLegacyFailure(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusOK, LegacyResponse{Success: false, Message: message})
}

// People lists enrolled identities as a bare array
func (h *LegacyHandler) People(w http.ResponseWriter, r *http.Request) {
	summaries := h.people.gallery.List()
	result := make([]LegacyPerson, len(summaries))
	for i, s := range summaries {
		result[i] = LegacyPerson{
			ID:        s.ID,
			Name:      s.Name,
			AddedDate: s.AddedAt.Format("2006-01-02T15:04:05.999999"),
		}
	}
	respondJSON(w, http.StatusOK, result)
}

// AddPerson enrolls a new identity
func (h *LegacyHandler) AddPerson(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondLegacyFailure(w, errInvalidRequestBody)
		return
	}
	if req.Name == "" || req.Image == "" {
		respondLegacyFailure(w, "Name and image required")
		return
	}

	ident, err := h.people.enroll(r.Context(), req)
	if err != nil {
		respondLegacyFailure(w, legacyEnrollMessage(err))
		return
	}
	respondJSON(w, http.StatusOK, LegacyResponse{
		Success:  true,
		Message:  fmt.Sprintf("Added %s successfully", ident.Name),
		PersonID: ident.ID,
	})
}

func legacyEnrollMessage(err error) string {
	switch {
	case errors.Is(err, imaging.ErrInvalidImage):
		return "Invalid image data"
	case errors.Is(err, enroll.ErrInvalidName):
		return "Name and image required"
	case errors.Is(err, enroll.ErrNoFaceDetected):
		return "Could not detect face in image"
	case errors.Is(err, enroll.ErrEmbedding), errors.Is(err, gallery.ErrDimensionMismatch):
		return "Error processing face: " + err.Error()
	default:
		return "Error adding person: " + err.Error()
	}
}

// AnalyzeFrame recognizes the faces in a frame
func (h *LegacyHandler) AnalyzeFrame(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondLegacyFailure(w, errInvalidRequestBody)
		return
	}
	if req.Image == "" {
		respondLegacyFailure(w, "Image data required")
		return
	}

	faces, err := h.analyze.analyze(r.Context(), req.Image)
	if errors.Is(err, imaging.ErrInvalidImage) {
		respondLegacyFailure(w, "Invalid image data")
		return
	}
	if err != nil {
		respondLegacyFailure(w, err.Error())
		return
	}
	// faces is always set on success so clients see "faces": [] rather than no key.
	respondJSON(w, http.StatusOK, struct {
		Success bool                   `json:"success"`
		Faces   []recognize.FaceResult `json:"faces"`
	}{Success: true, Faces: faces})
}

// DeletePerson removes an identity
func (h *LegacyHandler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	_, err := h.people.remove(id)
	switch {
	case err == nil:
		respondJSON(w, http.StatusOK, LegacyResponse{Success: true, Message: "Person deleted successfully"})
	case errors.Is(err, gallery.ErrNotFound):
		respondLegacyFailure(w, "Person not found")
	default:
		respondLegacyFailure(w, "Error deleting person: "+err.Error())
	}
}
