package handlers

import (
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/config"
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
	RegistryBackend string  `json:"registryBackend"`
	Threshold       float64 `json:"threshold"`
	DurationSeconds float64 `json:"durationSeconds"`
	SampleQuota     int     `json:"sampleQuota"`
	SendFailure     string  `json:"sendFailure"`
	DashboardURL    string  `json:"dashboardUrl"`
}

// Get returns the effective, non-secret configuration
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	backend := "csv"
	if h.config.Database.URL != "" {
		backend = "postgres"
	}

	respondJSON(w, http.StatusOK, ConfigResponse{
		RegistryBackend: backend,
		Threshold:       h.config.Recognition.Threshold,
		DurationSeconds: h.config.Recognition.Duration.Seconds(),
		SampleQuota:     h.config.Enroll.SampleQuota,
		SendFailure:     h.config.Recognition.SendFailure,
		DashboardURL:    h.config.Dashboard.URL,
	})
}
