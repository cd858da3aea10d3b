package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kozaktomas/face-gallery/internal/config"
)

func TestNewConfigHandler(t *testing.T) {
	cfg := &config.Config{}

	handler := NewConfigHandler(cfg)

	if handler == nil {
		t.Fatal("expected non-nil handler")
		return
	}

	if handler.config != cfg {
		t.Error("expected handler to hold reference to config")
	}
}

func TestConfigHandler_Get_EmptyConfig(t *testing.T) {
	handler := NewConfigHandler(&config.Config{})

	req := httptest.NewRequest("GET", "/api/v1/config", nil)
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	assertStatusCode(t, recorder, http.StatusOK)
	assertContentType(t, recorder, "application/json")

	var result ConfigResponse
	parseJSONResponse(t, recorder, &result)
	if result.Models == nil || len(result.Models) != 0 {
		t.Errorf("expected empty models list, got %v", result.Models)
	}
	if result.AuthRequired {
		t.Error("expected auth_required false without token")
	}
}

func TestConfigHandler_Get_ReturnsSettings(t *testing.T) {
	cfg := testConfig()
	cfg.Web.APIToken = "secret"
	handler := NewConfigHandler(cfg)

	req := httptest.NewRequest("GET", "/api/v1/config", nil)
	recorder := httptest.NewRecorder()

	handler.Get(recorder, req)

	var result ConfigResponse
	parseJSONResponse(t, recorder, &result)

	if result.Model != "VGG-Face" {
		t.Errorf("expected model VGG-Face, got %s", result.Model)
	}
	if result.Threshold != 0.4 {
		t.Errorf("expected threshold 0.4, got %v", result.Threshold)
	}
	if result.ExpectedDimension != 4096 {
		t.Errorf("expected dimension 4096, got %d", result.ExpectedDimension)
	}
	if !result.AuthRequired {
		t.Error("expected auth_required true with token")
	}
	if len(result.Models) != 2 || result.Models[0].Name != "Facenet512" || result.Models[1].Name != "VGG-Face" {
		t.Errorf("expected models sorted by name, got %+v", result.Models)
	}
}
