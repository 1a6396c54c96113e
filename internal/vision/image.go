package vision

import (
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// ToGray converts img to an 8-bit grayscale image with a zero origin.
// An *image.Gray that already has a zero origin is returned as is.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Rect.Min == (image.Point{}) {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	return gray
}

// Crop copies the part of frame covered by region. The region is clipped to
// the frame bounds; an empty intersection yields a nil image.
func Crop(frame *image.Gray, region image.Rectangle) *image.Gray {
	region = region.Intersect(frame.Bounds())
	if region.Empty() {
		return nil
	}
	out := image.NewGray(image.Rect(0, 0, region.Dx(), region.Dy()))
	draw.Draw(out, out.Bounds(), frame, region.Min, draw.Src)
	return out
}

// Normalize scales img to a size×size grayscale square using bilinear interpolation.
func Normalize(img image.Image, size int) *image.Gray {
	gray := ToGray(img)
	if gray.Bounds().Dx() == size && gray.Bounds().Dy() == size {
		return gray
	}
	dst := image.NewGray(image.Rect(0, 0, size, size))
	draw.BiLinear.Scale(dst, dst.Bounds(), gray, gray.Bounds(), draw.Src, nil)
	return dst
}

// DecodeFile reads a JPEG, PNG or BMP file.
func DecodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}
	return img, nil
}

// EncodeJPEGFile writes img as a JPEG file, creating or truncating path.
func EncodeJPEGFile(path string, img image.Image, quality int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: quality}); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}
