package recognition

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"time"

	"github.com/kozaktomas/face-attendance/internal/dashboard"
	"github.com/kozaktomas/face-attendance/internal/lbph"
)

// Classifier predicts the identity label of a normalized face.
type Classifier interface {
	Predict(face *image.Gray) (label int, distance float64, err error)
}

// Emitter is the outbound reporting channel.
type Emitter interface {
	Emit(event string, payload any) error
	Close() error
}

// ModelLoader loads the trained classifier.
type ModelLoader func(ctx context.Context) (Classifier, error)

// Dialer opens the reporting channel.
type Dialer func(ctx context.Context) (Emitter, error)

// ModelFile loads an LBPH artifact from path. A missing artifact is ErrNotTrained.
func ModelFile(path string) ModelLoader {
	return func(ctx context.Context) (Classifier, error) {
		model, err := lbph.Load(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: no model at %s", ErrNotTrained, path)
		}
		if err != nil {
			return nil, err
		}
		return model, nil
	}
}

// DashboardDialer connects to the Socket.IO dashboard at url, bounding the
// attempt by timeout.
func DashboardDialer(url string, timeout time.Duration, logger *slog.Logger) Dialer {
	return func(ctx context.Context) (Emitter, error) {
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		client, err := dashboard.Dial(ctx, url, dashboard.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		return client, nil
	}
}
