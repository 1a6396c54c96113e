package opencv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"

	"github.com/kozaktomas/face-attendance/internal/config"
)

// CascadeDetector detects faces with a Haar cascade classifier.
type CascadeDetector struct {
	classifier   gocv.CascadeClassifier
	scaleFactor  float64
	minNeighbors int
}

// NewCascadeDetector loads the cascade file. Callers must Close the detector.
func NewCascadeDetector(path string, params config.CascadeParams) (*CascadeDetector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("failed to load face cascade classifier from %s", path)
	}
	return &CascadeDetector{
		classifier:   classifier,
		scaleFactor:  params.ScaleFactor,
		minNeighbors: params.MinNeighbors,
	}, nil
}

// Detect runs multi-scale detection on a grayscale frame.
func (d *CascadeDetector) Detect(frame *image.Gray) ([]image.Rectangle, error) {
	mat, err := gocv.ImageGrayToMatGray(frame)
	if err != nil {
		return nil, fmt.Errorf("convert frame: %w", err)
	}
	defer mat.Close()

	regions := d.classifier.DetectMultiScaleWithParams(mat, d.scaleFactor, d.minNeighbors, 0, image.Point{}, image.Point{})

	// Translate back into the frame's coordinate space.
	offset := frame.Bounds().Min
	for i := range regions {
		regions[i] = regions[i].Add(offset)
	}
	return regions, nil
}

// Close releases the classifier.
func (d *CascadeDetector) Close() error {
	return d.classifier.Close()
}
