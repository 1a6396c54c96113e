// Package lbph implements a Local Binary Patterns Histograms face recognizer.
//
// Each training image is reduced to a spatial histogram of circular LBP codes;
// prediction returns the label of the nearest training histogram under the
// chi-square distance. Parameters default to radius 1, 8 neighbors and an
// 8x8 grid, and distances are comparable to the usual LBPH confidence scale
// where identical images score 0.
package lbph

import (
	"fmt"
	"image"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

const eps = 1.1920928955078125e-07 // float32 machine epsilon

// Params configures feature extraction.
type Params struct {
	Radius    int `yaml:"radius"`
	Neighbors int `yaml:"neighbors"`
	GridX     int `yaml:"grid_x"`
	GridY     int `yaml:"grid_y"`
}

// DefaultParams returns radius 1, 8 neighbors, 8x8 grid.
func DefaultParams() Params {
	return Params{Radius: 1, Neighbors: 8, GridX: 8, GridY: 8}
}

func (p Params) validate() error {
	if p.Radius <= 0 || p.Neighbors <= 0 || p.Neighbors > 16 || p.GridX <= 0 || p.GridY <= 0 {
		return fmt.Errorf("invalid LBPH parameters %+v", p)
	}
	return nil
}

// histogramLen is the feature vector length for p.
func (p Params) histogramLen() int {
	return p.GridX * p.GridY * (1 << p.Neighbors)
}

// Model is a trained recognizer.
type Model struct {
	Params     Params      `yaml:"params"`
	TrainedAt  time.Time   `yaml:"trained_at"`
	Labels     []int       `yaml:"labels,flow"`
	Histograms [][]float64 `yaml:"histograms,flow"`
}

// Train extracts one histogram per image. labels[i] is the label of images[i].
func Train(images []*image.Gray, labels []int, params Params) (*Model, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if len(images) == 0 {
		return nil, ErrEmptyTrainingSet
	}
	if len(images) != len(labels) {
		return nil, fmt.Errorf("%w: %d images, %d labels", ErrSizeMismatch, len(images), len(labels))
	}

	m := &Model{
		Params:     params,
		TrainedAt:  time.Now().UTC(),
		Labels:     append([]int(nil), labels...),
		Histograms: make([][]float64, len(images)),
	}
	for i, img := range images {
		hist, err := m.extract(img)
		if err != nil {
			return nil, fmt.Errorf("image %d (label %d): %w", i, labels[i], err)
		}
		m.Histograms[i] = hist
	}
	return m, nil
}

// Predict returns the label of the nearest training sample and its distance.
func (m *Model) Predict(img *image.Gray) (int, float64, error) {
	query, err := m.extract(img)
	if err != nil {
		return -1, 0, err
	}

	label, best := -1, math.MaxFloat64
	for i, hist := range m.Histograms {
		if d := chiSquare(hist, query); d < best {
			best = d
			label = m.Labels[i]
		}
	}
	return label, best, nil
}

// Len returns the number of training samples.
func (m *Model) Len() int {
	return len(m.Labels)
}

// Identities returns the number of distinct labels.
func (m *Model) Identities() int {
	seen := make(map[int]struct{}, len(m.Labels))
	for _, l := range m.Labels {
		seen[l] = struct{}{}
	}
	return len(seen)
}

func (m *Model) extract(img *image.Gray) ([]float64, error) {
	codes, w, h := elbp(img, m.Params.Radius, m.Params.Neighbors)
	if w < m.Params.GridX || h < m.Params.GridY {
		return nil, fmt.Errorf("%w: %v", ErrImageTooSmall, img.Bounds())
	}
	return spatialHistogram(codes, w, h, 1<<m.Params.Neighbors, m.Params.GridX, m.Params.GridY), nil
}

// elbp computes extended (circular) LBP codes with bilinear sampling.
// The result excludes a border of radius pixels and is row-major w×h.
func elbp(img *image.Gray, radius, neighbors int) ([]int, int, int) {
	b := img.Bounds()
	rows, cols := b.Dy(), b.Dx()
	w, h := cols-2*radius, rows-2*radius
	if w <= 0 || h <= 0 {
		return nil, 0, 0
	}

	at := func(y, x int) float64 {
		return float64(img.Pix[img.PixOffset(b.Min.X+x, b.Min.Y+y)])
	}

	codes := make([]int, w*h)
	for n := range neighbors {
		angle := 2 * math.Pi * float64(n) / float64(neighbors)
		x := float64(radius) * math.Cos(angle)
		y := -float64(radius) * math.Sin(angle)

		fx, fy := int(math.Floor(x)), int(math.Floor(y))
		cx, cy := int(math.Ceil(x)), int(math.Ceil(y))
		tx, ty := x-float64(fx), y-float64(fy)

		w1 := (1 - tx) * (1 - ty)
		w2 := tx * (1 - ty)
		w3 := (1 - tx) * ty
		w4 := tx * ty

		for i := radius; i < rows-radius; i++ {
			for j := radius; j < cols-radius; j++ {
				t := w1*at(i+fy, j+fx) + w2*at(i+fy, j+cx) + w3*at(i+cy, j+fx) + w4*at(i+cy, j+cx)
				c := at(i, j)
				if t > c || math.Abs(t-c) < eps {
					codes[(i-radius)*w+(j-radius)] |= 1 << n
				}
			}
		}
	}
	return codes, w, h
}

// spatialHistogram concatenates the normalized code histograms of a gridX×gridY
// tiling. Trailing rows and columns that do not fill a whole cell are ignored.
func spatialHistogram(codes []int, w, h, bins, gridX, gridY int) []float64 {
	cellW, cellH := w/gridX, h/gridY
	out := make([]float64, 0, gridX*gridY*bins)

	for gy := range gridY {
		for gx := range gridX {
			hist := make([]float64, bins)
			for y := gy * cellH; y < (gy+1)*cellH; y++ {
				row := codes[y*w : (y+1)*w]
				for x := gx * cellW; x < (gx+1)*cellW; x++ {
					hist[row[x]]++
				}
			}
			if total := floats.Sum(hist); total > 0 {
				floats.Scale(1/total, hist)
			}
			out = append(out, hist...)
		}
	}
	return out
}

// chiSquare is the alternative chi-square distance 2*sum((a-b)^2/(a+b)).
func chiSquare(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		s := a[i] + b[i]
		if math.Abs(s) > eps {
			sum += d * d / s
		}
	}
	return 2 * sum
}
