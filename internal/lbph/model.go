package lbph

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Save writes the model atomically: a temporary file in the target directory
// is renamed over path, so readers never observe a partial artifact.
func (m *Model) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create model directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".model-*.yml")
	if err != nil {
		return fmt.Errorf("failed to create temp model file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	enc := yaml.NewEncoder(tmp)
	if err := enc.Encode(m); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := enc.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close model: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace model: %w", err)
	}
	return nil
}

// Load reads a model saved by Save. A missing file yields an error
// satisfying errors.Is(err, fs.ErrNotExist).
func Load(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m Model
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}
	if err := m.Params.validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptModel, err)
	}
	if len(m.Labels) != len(m.Histograms) {
		return nil, fmt.Errorf("%w: %d labels, %d histograms", ErrCorruptModel, len(m.Labels), len(m.Histograms))
	}
	want := m.Params.histogramLen()
	for i, hist := range m.Histograms {
		if len(hist) != want {
			return nil, fmt.Errorf("%w: histogram %d has %d bins, want %d", ErrCorruptModel, i, len(hist), want)
		}
	}
	return &m, nil
}
