package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-gallery/internal/enroll"
	"github.com/kozaktomas/face-gallery/internal/gallery"
	"github.com/kozaktomas/face-gallery/internal/imaging"
	"github.com/kozaktomas/face-gallery/internal/metrics"
)

// Gallery is the part of gallery.Store used by the people endpoints.
type Gallery interface {
	List() []gallery.Summary
	Get(id string) (gallery.Identity, error)
	Remove(id string) (gallery.Identity, error)
}

// Enroller registers new identities.
type Enroller interface {
	Enroll(ctx context.Context, name string, imageData []byte) (gallery.Identity, error)
}

// PeopleHandler handles the identity gallery endpoints
type PeopleHandler struct {
	gallery  Gallery
	enroller Enroller
	metrics  *metrics.Metrics
}

// NewPeopleHandler creates a new people handler
func NewPeopleHandler(g Gallery, enroller Enroller, m *metrics.Metrics) *PeopleHandler {
	return &PeopleHandler{
		gallery:  g,
		enroller: enroller,
		metrics:  m,
	}
}

// PersonResponse represents one enrolled identity
type PersonResponse struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	AddedAt time.Time `json:"added_at"`
}

// EnrollRequest represents a request to enroll a new person
type EnrollRequest struct {
	Name  string `json:"name"`
	Image string `json:"image"` // base64, optionally a data URI
}

func personResponse(s gallery.Summary) PersonResponse {
	return PersonResponse{ID: s.ID, Name: s.Name, AddedAt: s.AddedAt}
}

// List returns all enrolled identities in gallery order
func (h *PeopleHandler) List(w http.ResponseWriter, r *http.Request) {
	summaries := h.gallery.List()
	result := make([]PersonResponse, len(summaries))
	for i, s := range summaries {
		result[i] = personResponse(s)
	}
	respondJSON(w, http.StatusOK, result)
}

// Get returns one identity
func (h *PeopleHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ident, err := h.gallery.Get(id)
	if err != nil {
		respondDomainError(w, "get person", err)
		return
	}
	respondJSON(w, http.StatusOK, personResponse(ident.Summary()))
}

// Create enrolls a new identity from a name and reference image
func (h *PeopleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req EnrollRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Image == "" {
		respondError(w, http.StatusBadRequest, "image is required")
		return
	}

	ident, err := h.enroll(r.Context(), req)
	if err != nil {
		respondDomainError(w, "enroll", err)
		return
	}
	respondJSON(w, http.StatusCreated, personResponse(ident.Summary()))
}

func (h *PeopleHandler) enroll(ctx context.Context, req EnrollRequest) (gallery.Identity, error) {
	data, err := imaging.DecodeDataURI(req.Image)
	if err != nil {
		return gallery.Identity{}, err
	}
	return h.enroller.Enroll(ctx, req.Name, data)
}

// Delete removes an identity and its reference image
func (h *PeopleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.remove(id); err != nil {
		respondDomainError(w, "delete person", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PeopleHandler) remove(id string) (gallery.Identity, error) {
	ident, err := h.gallery.Remove(id)
	switch {
	case err == nil:
		h.metrics.ObserveRemoval(metrics.StatusSuccess)
		log.Printf("Removed %s (%s)", sanitizeForLog(ident.Name), ident.ID)
	case errors.Is(err, gallery.ErrNotFound):
		h.metrics.ObserveRemoval(metrics.StatusRejected)
	default:
		h.metrics.ObserveRemoval(metrics.StatusError)
	}
	return ident, err
}

// ensure the enrollment service satisfies the handler contract
var _ Enroller = (*enroll.Service)(nil)
