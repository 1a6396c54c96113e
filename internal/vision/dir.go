package vision

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

var frameExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
}

// DirOpener replays the image files of a directory in lexical order.
// It stands in for a camera in offline sessions.
type DirOpener struct {
	Dir string
}

// Open lists the directory. The frame list is fixed at open time.
func (o DirOpener) Open(ctx context.Context) (Source, error) {
	entries, err := os.ReadDir(o.Dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResourceUnavailable, err)
	}

	var frames []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if frameExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			frames = append(frames, filepath.Join(o.Dir, entry.Name()))
		}
	}
	sort.Strings(frames)

	return &DirSource{frames: frames}, nil
}

// DirSource is the Source returned by DirOpener.
type DirSource struct {
	frames []string
	next   int
	closed bool
}

// Read decodes the next file. A file that cannot be decoded is a device failure.
func (s *DirSource) Read(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.closed {
		return nil, fmt.Errorf("%w: source closed", ErrResourceUnavailable)
	}
	if s.next >= len(s.frames) {
		return nil, ErrExhausted
	}

	path := s.frames[s.next]
	s.next++

	img, err := DecodeFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResourceUnavailable, err)
	}
	return img, nil
}

// Len returns the number of frames the source was opened with.
func (s *DirSource) Len() int {
	return len(s.frames)
}

func (s *DirSource) Close() error {
	s.closed = true
	return nil
}
