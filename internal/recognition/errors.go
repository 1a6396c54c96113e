package recognition

import (
	"errors"
	"fmt"

	"github.com/kozaktomas/face-attendance/internal/vision"
)

var (
	// ErrNotTrained is returned when no model artifact exists.
	ErrNotTrained = errors.New("recognizer not trained")

	// ErrChannelUnavailable is returned when the dashboard cannot be reached at session start.
	ErrChannelUnavailable = errors.New("reporting channel unavailable")

	// ErrSendFailure is returned under SendAbort when an attendance event cannot be sent.
	ErrSendFailure = errors.New("attendance send failed")

	// ErrCapture is returned when the camera fails mid-session.
	ErrCapture = fmt.Errorf("capture error: %w", vision.ErrResourceUnavailable)

	// ErrSessionUsed is returned when Run is called on a session that already ran.
	ErrSessionUsed = errors.New("session already started")
)
