package handlers

import (
	"net/http"
	"slices"

	"github.com/kozaktomas/face-gallery/internal/config"
)

// ConfigHandler handles configuration endpoints
type ConfigHandler struct {
	config *config.Config
}

// NewConfigHandler creates a new config handler
func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{
		config: cfg,
	}
}

// ConfigResponse represents the configuration response
type ConfigResponse struct {
	Model             string      `json:"model"`
	Detector          string      `json:"detector"`
	Threshold         float64     `json:"threshold"`
	ExpectedDimension int         `json:"expected_dimension"`
	AuthRequired      bool        `json:"auth_required"`
	Models            []ModelInfo `json:"models"`
}

// ModelInfo represents one known embedding model
type ModelInfo struct {
	Name      string  `json:"name"`
	Dimension int     `json:"dimension"`
	Threshold float64 `json:"threshold"`
}

// Get returns the recognition settings the server runs with
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	models := make([]ModelInfo, 0, len(h.config.Models.Models))
	for name, info := range h.config.Models.Models {
		models = append(models, ModelInfo{Name: name, Dimension: info.Dimension, Threshold: info.Threshold})
	}
	slices.SortFunc(models, func(a, b ModelInfo) int {
		if a.Name < b.Name {
			return -1
		}
		if a.Name > b.Name {
			return 1
		}
		return 0
	})

	response := ConfigResponse{
		Model:             h.config.Analyzer.Model,
		Detector:          h.config.Analyzer.Detector,
		Threshold:         h.config.Match.Threshold,
		ExpectedDimension: h.config.ExpectedDimension(),
		AuthRequired:      h.config.Web.APIToken != "",
		Models:            models,
	}

	respondJSON(w, http.StatusOK, response)
}
