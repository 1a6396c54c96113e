// Package recognition runs time-boxed attendance sessions: frames are read from
// the camera, every detected face is classified, each recognized identity is
// reported once per session and unmatched faces are stored as unknown captures.
package recognition

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/logger"
	"github.com/kozaktomas/face-attendance/internal/registry"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// UnknownSink persists crops of unmatched faces.
type UnknownSink interface {
	SaveUnknown(ctx context.Context, sessionID string, index int, img image.Image) (string, error)
}

// Session is a single recognition run. A Session is not reusable.
type Session struct {
	Registry  registry.Reader
	LoadModel ModelLoader
	Dial      Dialer
	Camera    vision.Opener
	Detector  vision.Detector
	Unknowns  UnknownSink

	// Threshold is the exclusive distance bound for a match.
	Threshold float64
	// Duration is the scan length measured from session start.
	Duration time.Duration
	// SendPolicy controls the reaction to a failed attendance emission.
	SendPolicy SendPolicy
	// IsolateRegionErrors skips a frame or region whose detection or
	// classification fails instead of ending the session.
	IsolateRegionErrors bool

	// OnAttendance is called after each first-time recognition, once the
	// event has been handed to the channel.
	OnAttendance func(identity registry.Identity, record Attendance, sendErr error)

	Now    func() time.Time
	NewID  func() string
	Logger *slog.Logger

	state   State
	started bool
}

// Result is the outcome of a session.
type Result struct {
	SessionID    string
	Present      []registry.Identity // in first-detection order
	Unknown      int
	Frames       int
	SendFailures int
	Reason       FinishReason
	StartedAt    time.Time
	FinishedAt   time.Time
}

// State returns the lifecycle state.
func (s *Session) State() State {
	return s.state
}

// scan holds the mutable state of the scanning loop.
type scan struct {
	result   Result
	present  map[int]struct{}
	model    Classifier
	channel  Emitter
	log      *slog.Logger
	deadline time.Time
}

// Run executes the session. Setup failures (no model or registry, unreachable channel,
// camera unavailable) return before scanning starts; the camera is never
// opened if the channel is unreachable. Once scanning, the session ends on
// deadline, source exhaustion or ctx cancellation, all of which return a nil
// error. A mid-session failure returns the partial Result with the error.
func (s *Session) Run(ctx context.Context) (Result, error) {
	if s.started {
		return Result{}, ErrSessionUsed
	}
	s.started = true
	defer func() { s.state = StateFinished }()

	now := s.Now
	if now == nil {
		now = time.Now
	}
	id := uuid.NewString()
	if s.NewID != nil {
		id = s.NewID()
	}
	threshold := s.Threshold
	if threshold <= 0 {
		threshold = constants.DefaultDistanceThreshold
	}
	duration := s.Duration
	if duration <= 0 {
		duration = constants.DefaultSessionDuration
	}
	log := logger.OrDiscard(s.Logger).With("session", id)

	st := &scan{
		result:  Result{SessionID: id},
		present: make(map[int]struct{}),
		log:     log,
	}

	model, err := s.LoadModel(ctx)
	if err != nil {
		return st.result, err
	}
	st.model = model

	// The registry must exist and be readable before anything is acquired.
	if checker, ok := s.Registry.(registry.Checker); ok {
		exists, err := checker.Exists(ctx)
		if err != nil {
			return st.result, fmt.Errorf("failed to check registry: %w", err)
		}
		if !exists {
			return st.result, fmt.Errorf("%w: identity registry not found", ErrNotTrained)
		}
	}
	if _, err := s.Registry.LoadAll(ctx); err != nil {
		return st.result, fmt.Errorf("failed to load registry: %w", err)
	}

	channel, err := s.Dial(ctx)
	if err != nil {
		return st.result, fmt.Errorf("%w: %v", ErrChannelUnavailable, err)
	}
	st.channel = channel
	defer func() {
		if err := channel.Close(); err != nil {
			log.Warn("failed to close reporting channel", "error", err)
		}
	}()

	source, err := s.Camera.Open(ctx)
	if err != nil {
		return st.result, fmt.Errorf("failed to open camera: %w", err)
	}
	defer source.Close()

	s.state = StateScanning
	st.result.StartedAt = now()
	st.deadline = st.result.StartedAt.Add(duration)
	log.Info("scanning started", "duration", duration, "threshold", threshold)

	runErr := s.loop(ctx, st, source, threshold, now)

	st.result.FinishedAt = now()
	if runErr != nil {
		st.result.Reason = ReasonError
	}
	log.Info("scanning finished", "reason", string(st.result.Reason), "frames", st.result.Frames,
		"present", len(st.result.Present), "unknown", st.result.Unknown)
	return st.result, runErr
}

func (s *Session) loop(ctx context.Context, st *scan, source vision.Source, threshold float64, now func() time.Time) error {
	for {
		if ctx.Err() != nil {
			st.result.Reason = ReasonCancelled
			return nil
		}
		if !now().Before(st.deadline) {
			st.result.Reason = ReasonDeadline
			return nil
		}

		frame, err := source.Read(ctx)
		switch {
		case errors.Is(err, vision.ErrExhausted):
			st.result.Reason = ReasonExhausted
			return nil
		case err != nil && ctx.Err() != nil:
			st.result.Reason = ReasonCancelled
			return nil
		case err != nil:
			return fmt.Errorf("%w: %v", ErrCapture, err)
		}
		st.result.Frames++

		// Re-read every frame so identities removed mid-session stop matching.
		snapshot, err := s.Registry.LoadAll(ctx)
		if err != nil {
			return fmt.Errorf("failed to reload registry: %w", err)
		}

		gray := vision.ToGray(frame)
		regions, err := s.Detector.Detect(gray)
		if err != nil {
			if s.IsolateRegionErrors {
				st.log.Warn("skipping frame, detection failed", "frame", st.result.Frames, "error", err)
				continue
			}
			return fmt.Errorf("face detection failed: %w", err)
		}

		for _, region := range regions {
			if err := s.classify(ctx, st, gray, region, snapshot, threshold, now); err != nil {
				return err
			}
		}
	}
}

// classify handles one detected region.
func (s *Session) classify(ctx context.Context, st *scan, gray *image.Gray, region image.Rectangle,
	snapshot map[int]registry.Identity, threshold float64, now func() time.Time) error {
	crop := vision.Crop(gray, region)
	if crop == nil {
		return nil
	}

	label, distance, err := st.model.Predict(vision.Normalize(crop, constants.SampleSize))
	if err != nil {
		if s.IsolateRegionErrors {
			st.log.Warn("skipping region, classification failed", "region", region.String(), "error", err)
			return nil
		}
		return fmt.Errorf("classification failed: %w", err)
	}

	identity, registered := snapshot[label]
	if distance >= threshold || !registered {
		return s.recordUnknown(ctx, st, crop, label, distance)
	}

	if _, seen := st.present[label]; seen {
		return nil
	}
	st.present[label] = struct{}{}
	st.result.Present = append(st.result.Present, identity)

	record := NewAttendance(identity, now())
	sendErr := st.channel.Emit(constants.AttendanceEvent, record)
	if sendErr != nil {
		st.result.SendFailures++
		st.log.Warn("failed to send attendance", "id", identity.ID, "error", sendErr)
	} else {
		st.log.Info("attendance marked", "id", identity.ID, "name", identity.DisplayName, "distance", distance)
	}
	if s.OnAttendance != nil {
		s.OnAttendance(identity, record, sendErr)
	}
	if sendErr != nil && s.SendPolicy == SendAbort {
		return fmt.Errorf("%w: %s: %v", ErrSendFailure, identity.ExternalReference, sendErr)
	}
	return nil
}

func (s *Session) recordUnknown(ctx context.Context, st *scan, crop *image.Gray, label int, distance float64) error {
	st.result.Unknown++
	index := st.result.Unknown
	if s.Unknowns == nil {
		return nil
	}
	path, err := s.Unknowns.SaveUnknown(ctx, st.result.SessionID, index, crop)
	if err != nil {
		if s.IsolateRegionErrors {
			st.log.Warn("failed to save unknown capture", "index", index, "error", err)
			return nil
		}
		return fmt.Errorf("failed to save unknown capture: %w", err)
	}
	st.log.Debug("unknown face", "index", index, "label", label, "distance", distance, "path", path)
	return nil
}
