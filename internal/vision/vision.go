// Package vision defines the frame source and face detector contracts used by
// enrollment and recognition, plus the raster helpers that turn a detected
// region into a classifier-ready sample.
package vision

import (
	"context"
	"image"
)

// Source yields frames from a camera or a recording.
type Source interface {
	// Read returns the next frame. It returns ErrExhausted when a finite
	// source has no more frames and an error wrapping ErrResourceUnavailable
	// when the device fails.
	Read(ctx context.Context) (image.Image, error)

	// Close releases the underlying device. It is safe to call more than once.
	Close() error
}

// Opener acquires a Source. Each call returns a fresh, exclusively owned source.
type Opener interface {
	Open(ctx context.Context) (Source, error)
}

// OpenerFunc adapts a function to the Opener interface.
type OpenerFunc func(ctx context.Context) (Source, error)

// Open calls f(ctx).
func (f OpenerFunc) Open(ctx context.Context) (Source, error) {
	return f(ctx)
}

// Detector locates face regions in a grayscale frame. Regions are returned in
// detector order and are expressed in the frame's coordinate space.
type Detector interface {
	Detect(frame *image.Gray) ([]image.Rectangle, error)
}
