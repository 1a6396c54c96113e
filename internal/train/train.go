// Package train builds the recognizer artifact from the sample store.
package train

import (
	"context"
	"errors"
	"fmt"
	"image"
	"iter"
	"log/slog"

	"github.com/kozaktomas/face-attendance/internal/lbph"
	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/kozaktomas/face-attendance/internal/registry"
	"github.com/kozaktomas/face-attendance/internal/samples"
)

// ErrNoTrainingData is returned when no sample belongs to a registered identity.
var ErrNoTrainingData = errors.New("no training data")

// SampleSource enumerates stored samples.
type SampleSource interface {
	All(ctx context.Context) iter.Seq2[samples.Sample, error]
}

// Trainer trains and persists an LBPH model.
type Trainer struct {
	Registry  registry.Reader
	Samples   SampleSource
	ModelPath string
	Params    lbph.Params

	// Progress is called after each accepted sample.
	Progress func(accepted int)
	Logger   *slog.Logger
}

// Report summarizes a training run.
type Report struct {
	Samples     int
	Identities  int
	PerIdentity map[int]int // sample count per identity id
	Excluded    int         // samples whose owner is not registered
	Corrupt     int         // samples that could not be decoded
}

// Train rebuilds the model from every sample owned by a registered identity
// and atomically replaces the artifact at ModelPath. When there is nothing to
// train on, ErrNoTrainingData is returned and the existing artifact is kept.
func (t *Trainer) Train(ctx context.Context) (Report, error) {
	log := logger.OrDiscard(t.Logger)
	report := Report{PerIdentity: make(map[int]int)}

	snapshot, err := t.Registry.LoadAll(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to load registry: %w", err)
	}

	var (
		images []*image.Gray
		labels []int
	)
	for sample, err := range t.Samples.All(ctx) {
		if errors.Is(err, samples.ErrCorruptSample) {
			report.Corrupt++
			log.Warn("skipping unreadable sample", "path", sample.Path, "error", err)
			continue
		}
		if err != nil {
			return report, fmt.Errorf("failed to enumerate samples: %w", err)
		}
		if _, ok := snapshot[sample.OwnerID]; !ok {
			report.Excluded++
			continue
		}

		images = append(images, sample.Image)
		labels = append(labels, sample.OwnerID)
		report.PerIdentity[sample.OwnerID]++
		if t.Progress != nil {
			t.Progress(len(images))
		}
	}

	if len(images) == 0 {
		return report, ErrNoTrainingData
	}

	model, err := lbph.Train(images, labels, t.Params)
	if err != nil {
		return report, fmt.Errorf("training failed: %w", err)
	}
	if err := model.Save(t.ModelPath); err != nil {
		return report, err
	}

	report.Samples = len(images)
	report.Identities = len(report.PerIdentity)
	log.Info("model trained", "samples", report.Samples, "identities", report.Identities,
		"excluded", report.Excluded, "corrupt", report.Corrupt, "path", t.ModelPath)
	return report, nil
}
