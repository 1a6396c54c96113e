package enroll

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/kozaktomas/face-attendance/internal/registry"
	regmock "github.com/kozaktomas/face-attendance/internal/registry/mock"
	"github.com/kozaktomas/face-attendance/internal/samples"
	"github.com/kozaktomas/face-attendance/internal/vision"
	"github.com/kozaktomas/face-attendance/internal/vision/mock"
)

type recordingSaver struct {
	owners []int
	sizes  []image.Rectangle
	err    error
}

func (s *recordingSaver) Save(ctx context.Context, ownerID int, img image.Image) (int, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.owners = append(s.owners, ownerID)
	s.sizes = append(s.sizes, img.Bounds())
	return len(s.owners), nil
}

func frames(n int) []image.Image {
	out := make([]image.Image, n)
	for i := range out {
		out[i] = mock.Pattern(200, 200, i)
	}
	return out
}

func newController(reg *regmock.Registry, src *mock.Source, det *mock.Detector, saver SampleSaver) *Controller {
	return &Controller{
		Registry: reg,
		Samples:  saver,
		Camera:   &mock.Opener{Source: src},
		Detector: det,
		Prompter: StaticPrompter{DisplayName: "Ada Lovelace", ExternalReference: "R042"},
	}
}

func TestEnroll_CapturesExactlyQuota(t *testing.T) {
	ctx := context.Background()
	reg := regmock.NewRegistry(registry.NewIdentity(3, "Existing", "R003"))
	src := mock.NewSource(frames(30)...)
	store := samples.NewStore(t.TempDir())

	c := newController(reg, src, &mock.Detector{Regions: mock.WholeFrame}, store)
	var progress []int
	c.Progress = func(captured, quota int) { progress = append(progress, captured) }

	result, err := c.Enroll(ctx)
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if result.Identity.ID != 4 {
		t.Errorf("expected id 4, got %d", result.Identity.ID)
	}
	if result.Samples != 20 || result.Frames != 20 {
		t.Errorf("expected 20 samples from 20 frames, got %d from %d", result.Samples, result.Frames)
	}
	if len(progress) != 20 || progress[19] != 20 {
		t.Errorf("unexpected progress reports %v", progress)
	}
	if !src.Closed {
		t.Error("camera must be released")
	}

	count, err := store.Count(ctx, 4)
	if err != nil {
		t.Fatal(err)
	}
	if count != 20 {
		t.Errorf("expected 20 stored samples, got %d", count)
	}

	snapshot, _ := reg.LoadAll(ctx)
	if snapshot[4].ExternalReference != "R042" {
		t.Errorf("identity not registered: %+v", snapshot[4])
	}
}

func TestEnroll_SkipsFramesWithoutFace(t *testing.T) {
	reg := regmock.NewRegistry()
	src := mock.NewSource(frames(40)...)
	calls := 0
	det := &mock.Detector{Regions: func(frame *image.Gray) []image.Rectangle {
		calls++
		if calls%2 == 0 {
			return nil
		}
		return mock.WholeFrame(frame)
	}}
	saver := &recordingSaver{}

	result, err := newController(reg, src, det, saver).Enroll(context.Background())
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if result.Samples != 20 || result.Frames != 39 {
		t.Errorf("expected 20 samples from 39 frames, got %d from %d", result.Samples, result.Frames)
	}
}

func TestEnroll_UsesFirstRegionOnly(t *testing.T) {
	reg := regmock.NewRegistry()
	src := mock.NewSource(frames(20)...)
	det := &mock.Detector{Regions: func(frame *image.Gray) []image.Rectangle {
		return []image.Rectangle{image.Rect(0, 0, 50, 60), image.Rect(100, 100, 200, 200)}
	}}
	saver := &recordingSaver{}

	result, err := newController(reg, src, det, saver).Enroll(context.Background())
	if err != nil {
		t.Fatalf("Enroll: %v", err)
	}
	if result.Samples != 20 {
		t.Fatalf("expected 20 samples, got %d", result.Samples)
	}
	for i, size := range saver.sizes {
		if size.Dx() != 50 || size.Dy() != 60 {
			t.Errorf("sample %d: expected first region crop 50x60, got %v", i, size)
		}
	}
}

func TestEnroll_RejectMultiFace(t *testing.T) {
	reg := regmock.NewRegistry()
	src := mock.NewSource(frames(5)...)
	det := &mock.Detector{Regions: func(frame *image.Gray) []image.Rectangle {
		return []image.Rectangle{image.Rect(0, 0, 10, 10), image.Rect(20, 20, 30, 30)}
	}}
	c := newController(reg, src, det, &recordingSaver{})
	c.RejectMultiFace = true
	c.Quota = 2

	result, err := c.Enroll(context.Background())
	if !errors.Is(err, ErrIncomplete) {
		t.Fatalf("expected ErrIncomplete, got %v", err)
	}
	if result.Samples != 0 || result.Frames != 5 {
		t.Errorf("expected 0 samples over 5 frames, got %d over %d", result.Samples, result.Frames)
	}
}

func TestEnroll_CameraFailureLeavesRegistryUnchanged(t *testing.T) {
	reg := regmock.NewRegistry(registry.NewIdentity(1, "Existing", "R001"))
	c := newController(reg, nil, &mock.Detector{}, &recordingSaver{})
	c.Camera = &mock.Opener{OpenError: vision.ErrResourceUnavailable}

	result, err := c.Enroll(context.Background())
	if !errors.Is(err, vision.ErrResourceUnavailable) {
		t.Fatalf("expected ErrResourceUnavailable, got %v", err)
	}
	if result.Registered {
		t.Error("identity must not be reported as registered")
	}
	if reg.RegisterCalls != 0 {
		t.Errorf("expected no Register call, got %d", reg.RegisterCalls)
	}
	if reg.Len() != 1 {
		t.Errorf("expected registry unchanged, got %d identities", reg.Len())
	}
}

func TestEnroll_CaptureFailureKeepsRegistration(t *testing.T) {
	reg := regmock.NewRegistry()
	src := mock.NewSource(frames(3)...)
	src.ReadError = vision.ErrResourceUnavailable

	result, err := newController(reg, src, &mock.Detector{Regions: mock.WholeFrame}, &recordingSaver{}).Enroll(context.Background())
	if !errors.Is(err, vision.ErrResourceUnavailable) {
		t.Fatalf("expected ErrResourceUnavailable, got %v", err)
	}
	if result.Samples != 3 {
		t.Errorf("expected 3 partial samples, got %d", result.Samples)
	}
	if reg.Len() != 1 {
		t.Errorf("identity should stay registered after a capture failure")
	}
	if !src.Closed {
		t.Error("camera must be released on failure")
	}
}

func TestEnroll_FirstReadFailureReportsEmptyRegistration(t *testing.T) {
	reg := regmock.NewRegistry()
	src := mock.NewSource()
	src.ReadError = vision.ErrResourceUnavailable

	result, err := newController(reg, src, &mock.Detector{Regions: mock.WholeFrame}, &recordingSaver{}).Enroll(context.Background())
	if !errors.Is(err, vision.ErrResourceUnavailable) {
		t.Fatalf("expected ErrResourceUnavailable, got %v", err)
	}
	if !result.Registered || result.Identity.ID != 1 {
		t.Errorf("expected identity 1 reported as registered, got %+v", result)
	}
	if result.Samples != 0 || result.Frames != 0 {
		t.Errorf("expected no samples and no frames, got %d/%d", result.Samples, result.Frames)
	}
}

func TestEnroll_InvalidMetadata(t *testing.T) {
	reg := regmock.NewRegistry()
	opener := &mock.Opener{Source: mock.NewSource()}
	c := newController(reg, nil, &mock.Detector{}, &recordingSaver{})
	c.Camera = opener
	c.Prompter = StaticPrompter{DisplayName: "  ", ExternalReference: "R1"}

	_, err := c.Enroll(context.Background())
	if !errors.Is(err, registry.ErrInvalidIdentity) {
		t.Fatalf("expected ErrInvalidIdentity, got %v", err)
	}
	if opener.OpenCalls != 0 || reg.RegisterCalls != 0 {
		t.Error("invalid metadata must not open the camera or register")
	}
}

func TestEnroll_DuplicateIDFromConcurrentWriter(t *testing.T) {
	reg := regmock.NewRegistry()
	reg.RegisterError = registry.ErrDuplicateIdentity
	src := mock.NewSource(frames(1)...)

	_, err := newController(reg, src, &mock.Detector{}, &recordingSaver{}).Enroll(context.Background())
	if !errors.Is(err, registry.ErrDuplicateIdentity) {
		t.Fatalf("expected ErrDuplicateIdentity, got %v", err)
	}
	if !src.Closed {
		t.Error("camera must be released")
	}
}

func TestEnroll_Cancelled(t *testing.T) {
	reg := regmock.NewRegistry()
	src := mock.NewSource(frames(50)...)
	ctx, cancel := context.WithCancel(context.Background())

	c := newController(reg, src, &mock.Detector{Regions: mock.WholeFrame}, &recordingSaver{})
	c.Progress = func(captured, _ int) {
		if captured == 5 {
			cancel()
		}
	}

	result, err := c.Enroll(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if result.Samples != 5 {
		t.Errorf("expected 5 samples before cancellation, got %d", result.Samples)
	}
}

func TestLinePrompter(t *testing.T) {
	var out strings.Builder
	p := LinePrompter{In: strings.NewReader("Grace Hopper\nR7\n"), Out: &out}

	name, ref, err := p.Prompt(context.Background(), 1)
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if name != "Grace Hopper" || ref != "R7" {
		t.Errorf("unexpected values %q %q", name, ref)
	}
	if !strings.Contains(out.String(), "Enter name:") || !strings.Contains(out.String(), "Enter roll number:") {
		t.Errorf("expected both prompts, got %q", out.String())
	}

	preset := LinePrompter{In: strings.NewReader("R9"), Out: &out, DisplayName: "Preset"}
	name, ref, err = preset.Prompt(context.Background(), 2)
	if err != nil {
		t.Fatalf("Prompt: %v", err)
	}
	if name != "Preset" || ref != "R9" {
		t.Errorf("unexpected preset values %q %q", name, ref)
	}

	if _, _, err := (LinePrompter{In: strings.NewReader(""), Out: &out}).Prompt(context.Background(), 3); err == nil {
		t.Error("expected error on empty input")
	}
}
