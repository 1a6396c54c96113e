package handlers

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/lbph"
	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/kozaktomas/face-attendance/internal/train"
)

// Trainer rebuilds the model artifact.
type Trainer interface {
	Train(ctx context.Context) (train.Report, error)
}

// ModelHandler reports on and retrains the recognizer model.
type ModelHandler struct {
	modelPath string
	trainer   Trainer
	logger    *slog.Logger

	training sync.Mutex
}

// NewModelHandler creates a new model handler
func NewModelHandler(modelPath string, trainer Trainer, log *slog.Logger) *ModelHandler {
	return &ModelHandler{modelPath: modelPath, trainer: trainer, logger: logger.OrDiscard(log)}
}

// ModelResponse describes the current artifact.
type ModelResponse struct {
	Trained    bool       `json:"trained"`
	TrainedAt  *time.Time `json:"trainedAt,omitempty"`
	Identities int        `json:"identities"`
	Samples    int        `json:"samples"`
}

// TrainResponse is the result of a training run.
type TrainResponse struct {
	Samples     int         `json:"samples"`
	Identities  int         `json:"identities"`
	PerIdentity map[int]int `json:"perIdentity"`
	Excluded    int         `json:"excluded"`
	Corrupt     int         `json:"corrupt"`
}

// Get returns the status of the model artifact.
func (h *ModelHandler) Get(w http.ResponseWriter, r *http.Request) {
	model, err := lbph.Load(h.modelPath)
	if errors.Is(err, fs.ErrNotExist) {
		respondJSON(w, http.StatusOK, ModelResponse{Trained: false})
		return
	}
	if err != nil {
		h.logger.Error("failed to load model", "path", h.modelPath, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load model")
		return
	}

	trainedAt := model.TrainedAt
	respondJSON(w, http.StatusOK, ModelResponse{
		Trained:    true,
		TrainedAt:  &trainedAt,
		Identities: model.Identities(),
		Samples:    model.Len(),
	})
}

// Train retrains the model. Only one training run may be in progress.
func (h *ModelHandler) Train(w http.ResponseWriter, r *http.Request) {
	if !h.training.TryLock() {
		respondError(w, http.StatusConflict, "training already in progress")
		return
	}
	defer h.training.Unlock()

	report, err := h.trainer.Train(r.Context())
	if errors.Is(err, train.ErrNoTrainingData) {
		respondError(w, http.StatusConflict, "no training data: enroll at least one identity first")
		return
	}
	if err != nil {
		h.logger.Error("training failed", "error", err)
		respondError(w, http.StatusInternalServerError, "training failed")
		return
	}

	respondJSON(w, http.StatusOK, TrainResponse{
		Samples:     report.Samples,
		Identities:  report.Identities,
		PerIdentity: report.PerIdentity,
		Excluded:    report.Excluded,
		Corrupt:     report.Corrupt,
	})
}
