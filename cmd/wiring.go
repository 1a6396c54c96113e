package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/lbph"
	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/kozaktomas/face-attendance/internal/registry"
	"github.com/kozaktomas/face-attendance/internal/registry/postgres"
	"github.com/kozaktomas/face-attendance/internal/vision"
	"github.com/kozaktomas/face-attendance/internal/vision/opencv"
)

// loadConfig loads and validates the configuration and builds the logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg := config.Load()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log, err := logger.NewFromString(os.Stderr, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v, using info\n", err)
	}
	return cfg, log, nil
}

// openRegistry returns the PostgreSQL registry when DATABASE_URL is set and
// the CSV file registry otherwise. The returned close func is never nil.
func openRegistry(ctx context.Context, cfg *config.Config, log *slog.Logger) (registry.Registry, func(), error) {
	if cfg.Database.URL == "" {
		log.Debug("using CSV registry", "path", cfg.Storage.RegistryPath)
		return registry.NewCSVFile(cfg.Storage.RegistryPath), func() {}, nil
	}

	log.Debug("connecting to PostgreSQL registry")
	pool, err := postgres.Open(ctx, &cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	closeFn := func() {
		if err := pool.Close(); err != nil {
			log.Warn("closing registry", "error", err)
		}
	}
	return postgres.NewIdentityRepository(pool), closeFn, nil
}

// registryBackend names the backend openRegistry selects.
func registryBackend(cfg *config.Config) string {
	if cfg.Database.URL != "" {
		return "postgres"
	}
	return "csv"
}

// openCamera returns the frame source: a directory replay when a frames
// directory is configured, the camera device otherwise.
func openCamera(cfg *config.Config, framesDir string) vision.Opener {
	if framesDir == "" {
		framesDir = cfg.Camera.FramesDir
	}
	if framesDir != "" {
		return vision.DirOpener{Dir: framesDir}
	}
	return opencv.Camera{Device: cfg.Camera.Device}
}

func newDetector(cfg *config.Config, params config.CascadeParams) (*opencv.CascadeDetector, error) {
	detector, err := opencv.NewCascadeDetector(cfg.Detector.CascadePath, params)
	if err != nil {
		return nil, fmt.Errorf("failed to load face detector: %w", err)
	}
	return detector, nil
}

func lbphParams(cfg *config.Config) lbph.Params {
	return lbph.Params{
		Radius:    cfg.LBPH.Radius,
		Neighbors: cfg.LBPH.Neighbors,
		GridX:     cfg.LBPH.GridX,
		GridY:     cfg.LBPH.GridY,
	}
}
