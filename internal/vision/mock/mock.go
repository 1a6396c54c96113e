// Package mock provides in-memory frame sources and detectors for testing.
package mock

import (
	"context"
	"image"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/vision"
)

// Source replays a fixed list of frames, then returns ReadError or vision.ErrExhausted.
type Source struct {
	mu     sync.Mutex
	frames []image.Image
	next   int

	// ReadError is returned once the frames run out, instead of vision.ErrExhausted.
	ReadError error
	// Loop restarts the frame list instead of exhausting it.
	Loop bool

	Reads  int
	Closed bool
}

// NewSource creates a source that yields frames in order.
func NewSource(frames ...image.Image) *Source {
	return &Source{frames: frames}
}

func (s *Source) Read(ctx context.Context) (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.Reads++
	if s.next >= len(s.frames) {
		if s.Loop && len(s.frames) > 0 {
			s.next = 0
		} else if s.ReadError != nil {
			return nil, s.ReadError
		} else {
			return nil, vision.ErrExhausted
		}
	}
	frame := s.frames[s.next]
	s.next++
	return frame, nil
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Closed = true
	return nil
}

// Opener hands out a single Source and records acquisitions.
type Opener struct {
	Source    *Source
	OpenError error
	OpenCalls int
}

func (o *Opener) Open(ctx context.Context) (vision.Source, error) {
	o.OpenCalls++
	if o.OpenError != nil {
		return nil, o.OpenError
	}
	return o.Source, nil
}

// Detector returns regions chosen by a callback.
type Detector struct {
	// Regions picks the regions for a frame. A nil func detects nothing.
	Regions func(frame *image.Gray) []image.Rectangle
	// DetectError is returned for every call when set.
	DetectError error
	Calls       int
}

func (d *Detector) Detect(frame *image.Gray) ([]image.Rectangle, error) {
	d.Calls++
	if d.DetectError != nil {
		return nil, d.DetectError
	}
	if d.Regions == nil {
		return nil, nil
	}
	return d.Regions(frame), nil
}

// WholeFrame detects one region covering the entire frame.
func WholeFrame(frame *image.Gray) []image.Rectangle {
	return []image.Rectangle{frame.Bounds()}
}

// Uniform returns a w×h gray frame filled with value v.
func Uniform(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

// Pattern returns a w×h frame with a deterministic texture derived from seed.
// Frames from different seeds produce clearly different LBP histograms.
func Pattern(w, h int, seed int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Pix[y*img.Stride+x] = uint8((x*(seed+1) + y*(seed*3+1) + x*y*seed) % 256)
		}
	}
	return img
}
