// Package opencv binds the vision contracts to OpenCV through gocv.
// It is the only package that requires the OpenCV shared libraries.
package opencv

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/kozaktomas/face-attendance/internal/vision"
)

// Camera opens a local video device.
type Camera struct {
	Device int
}

// Open acquires the device. Each call opens a new capture handle.
func (c Camera) Open(ctx context.Context) (vision.Source, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	capture, err := gocv.OpenVideoCapture(c.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", vision.ErrResourceUnavailable, c.Device, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: device %d did not open", vision.ErrResourceUnavailable, c.Device)
	}
	return &cameraSource{device: c.Device, capture: capture, frame: gocv.NewMat()}, nil
}

type cameraSource struct {
	device  int
	capture *gocv.VideoCapture
	frame   gocv.Mat

	closeOnce sync.Once
}

// Read grabs the next frame and converts it to grayscale.
func (s *cameraSource) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ok := s.capture.Read(&s.frame); !ok || s.frame.Empty() {
		return nil, fmt.Errorf("%w: device %d returned no frame", vision.ErrResourceUnavailable, s.device)
	}

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(s.frame, &gray, gocv.ColorBGRToGray)

	img, err := gray.ToImage()
	if err != nil {
		return nil, fmt.Errorf("%w: convert frame: %v", vision.ErrResourceUnavailable, err)
	}
	return img, nil
}

func (s *cameraSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.frame.Close()
		err = s.capture.Close()
	})
	return err
}
