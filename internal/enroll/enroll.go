// Package enroll registers a new identity and captures its face samples.
package enroll

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/kozaktomas/face-attendance/internal/registry"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// SampleSaver persists one face sample and returns its index.
type SampleSaver interface {
	Save(ctx context.Context, ownerID int, img image.Image) (int, error)
}

// Controller runs an enrollment.
type Controller struct {
	Registry registry.Registry
	Samples  SampleSaver
	Camera   vision.Opener
	Detector vision.Detector
	Prompter Prompter

	// Quota is the number of samples to capture (default constants.SampleQuota).
	Quota int
	// RejectMultiFace skips frames with more than one face instead of using the first.
	RejectMultiFace bool
	// Progress is called after every saved sample.
	Progress func(captured, quota int)
	Logger   *slog.Logger
}

// Result describes a finished or interrupted enrollment.
type Result struct {
	Identity registry.Identity
	Samples  int // samples saved
	Frames   int // frames read from the camera

	// Registered is set once the identity is in the registry. A failed
	// enrollment with Registered set leaves a partial (possibly empty) identity.
	Registered bool
}

// Enroll assigns the next id, collects metadata, opens the camera, registers
// the identity and captures samples until the quota is reached.
//
// The camera is acquired before the registry is touched, so an unavailable
// camera leaves the registry unchanged. Once registered, the identity stays
// registered even if capture fails; the partial Result is returned with the error.
func (c *Controller) Enroll(ctx context.Context) (Result, error) {
	log := logger.OrDiscard(c.Logger)
	quota := c.Quota
	if quota <= 0 {
		quota = constants.SampleQuota
	}

	id, err := c.Registry.NextID(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to assign id: %w", err)
	}

	name, ref, err := c.Prompter.Prompt(ctx, id)
	if err != nil {
		return Result{}, err
	}
	identity := registry.NewIdentity(id, name, ref)
	if err := identity.Validate(); err != nil {
		return Result{}, err
	}
	result := Result{Identity: identity}

	source, err := c.Camera.Open(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to open camera: %w", err)
	}
	defer source.Close()

	if err := c.Registry.Register(ctx, identity); err != nil {
		return result, fmt.Errorf("failed to register identity: %w", err)
	}
	result.Registered = true
	log.Info("identity registered", "id", identity.ID, "name", identity.DisplayName)

	for result.Samples < quota {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		frame, err := source.Read(ctx)
		if errors.Is(err, vision.ErrExhausted) {
			return result, fmt.Errorf("%w: %d of %d samples", ErrIncomplete, result.Samples, quota)
		}
		if err != nil {
			return result, fmt.Errorf("failed to read frame: %w", err)
		}
		result.Frames++

		face, ok, err := c.selectFace(vision.ToGray(frame))
		if err != nil {
			return result, err
		}
		if !ok {
			continue
		}

		index, err := c.Samples.Save(ctx, identity.ID, face)
		if err != nil {
			return result, fmt.Errorf("failed to save sample: %w", err)
		}
		result.Samples++
		log.Debug("sample saved", "id", identity.ID, "index", index)
		if c.Progress != nil {
			c.Progress(result.Samples, quota)
		}
	}

	log.Info("enrollment complete", "id", identity.ID, "samples", result.Samples, "frames", result.Frames)
	return result, nil
}

// selectFace returns the crop of the first detected region, if the frame qualifies.
func (c *Controller) selectFace(gray *image.Gray) (*image.Gray, bool, error) {
	regions, err := c.Detector.Detect(gray)
	if err != nil {
		return nil, false, fmt.Errorf("face detection failed: %w", err)
	}
	if len(regions) == 0 {
		return nil, false, nil
	}
	if len(regions) > 1 && c.RejectMultiFace {
		return nil, false, nil
	}
	crop := vision.Crop(gray, regions[0])
	if crop == nil {
		return nil, false, nil
	}
	return crop, true, nil
}
