package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/kozaktomas/face-attendance/internal/registry"
)

// SampleCounter reports how many samples an identity has.
type SampleCounter interface {
	Count(ctx context.Context, ownerID int) (int, error)
}

// IdentitiesHandler serves the identity registry.
type IdentitiesHandler struct {
	registry registry.Reader
	samples  SampleCounter
	logger   *slog.Logger
}

// NewIdentitiesHandler creates a new identities handler
func NewIdentitiesHandler(reg registry.Reader, samples SampleCounter, log *slog.Logger) *IdentitiesHandler {
	return &IdentitiesHandler{registry: reg, samples: samples, logger: logger.OrDiscard(log)}
}

// IdentityResponse is one registered identity.
type IdentityResponse struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	RollNumber string `json:"rollNumber"`
	Samples    int    `json:"samples"`
}

// List returns every identity, optionally filtered by ?q= (diacritic-insensitive name match).
func (h *IdentitiesHandler) List(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.registry.LoadAll(r.Context())
	if err != nil {
		h.logger.Error("failed to load registry", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load registry")
		return
	}

	var identities []registry.Identity
	if q := strings.TrimSpace(r.URL.Query().Get("q")); q != "" {
		identities = registry.Search(snapshot, q)
	} else {
		identities = registry.Sorted(snapshot)
	}

	out := make([]IdentityResponse, 0, len(identities))
	for _, identity := range identities {
		resp, err := h.toResponse(r.Context(), identity)
		if err != nil {
			h.logger.Error("failed to count samples", "id", identity.ID, "error", err)
			respondError(w, http.StatusInternalServerError, "failed to count samples")
			return
		}
		out = append(out, resp)
	}
	respondJSON(w, http.StatusOK, out)
}

// Get returns a single identity.
func (h *IdentitiesHandler) Get(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "invalid identity id")
		return
	}

	snapshot, err := h.registry.LoadAll(r.Context())
	if err != nil {
		h.logger.Error("failed to load registry", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load registry")
		return
	}
	identity, ok := snapshot[id]
	if !ok {
		respondError(w, http.StatusNotFound, "identity not found")
		return
	}

	resp, err := h.toResponse(r.Context(), identity)
	if err != nil {
		h.logger.Error("failed to count samples", "id", sanitizeForLog(raw), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to count samples")
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (h *IdentitiesHandler) toResponse(ctx context.Context, identity registry.Identity) (IdentityResponse, error) {
	count, err := h.samples.Count(ctx, identity.ID)
	if err != nil {
		return IdentityResponse{}, err
	}
	return IdentityResponse{
		ID:         identity.ID,
		Name:       identity.DisplayName,
		RollNumber: identity.ExternalReference,
		Samples:    count,
	}, nil
}
