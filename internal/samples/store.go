// Package samples stores normalized face samples on disk, one directory
// ("bucket") per identity id plus a reserved bucket for unknown captures.
//
//	<root>/<id>/<index>.jpg
//	<root>/unknown/<session-id>/unknown_<index>.jpg
package samples

import (
	"context"
	"fmt"
	"image"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"github.com/kozaktomas/face-attendance/internal/vision"
)

// Sample is one stored face image.
type Sample struct {
	OwnerID int
	Index   int
	Path    string
	Image   *image.Gray
}

// Store is a filesystem-backed sample store.
type Store struct {
	root    string
	size    int
	quality int

	mu sync.Mutex
}

// NewStore creates a store rooted at dir. The directory is created lazily on first save.
func NewStore(dir string) *Store {
	return &Store{
		root:    dir,
		size:    constants.SampleSize,
		quality: constants.SampleJPEGQuality,
	}
}

// Root returns the store directory.
func (s *Store) Root() string {
	return s.root
}

// Save normalizes img and writes it as the next sample of ownerID's bucket.
// It returns the index assigned to the sample.
func (s *Store) Save(ctx context.Context, ownerID int, img image.Image) (int, error) {
	if ownerID <= 0 {
		return 0, fmt.Errorf("%w: %d", ErrInvalidOwner, ownerID)
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bucket := s.bucketPath(ownerID)
	if err := os.MkdirAll(bucket, 0755); err != nil {
		return 0, fmt.Errorf("failed to create sample bucket: %w", err)
	}

	files, err := listSampleFiles(bucket)
	if err != nil {
		return 0, err
	}
	index := 1
	for _, f := range files {
		index = max(index, f.index+1)
	}

	path := filepath.Join(bucket, strconv.Itoa(index)+constants.SampleExt)
	if err := vision.EncodeJPEGFile(path, vision.Normalize(img, s.size), s.quality); err != nil {
		return 0, fmt.Errorf("failed to save sample: %w", err)
	}
	return index, nil
}

// SaveUnknown writes an unrecognized face crop into the unknown bucket of a session.
// The crop is stored as captured, without resizing.
func (s *Store) SaveUnknown(ctx context.Context, sessionID string, index int, img image.Image) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	dir := filepath.Join(s.root, constants.UnknownBucket, sessionID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create unknown bucket: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("unknown_%d%s", index, constants.SampleExt))
	if err := vision.EncodeJPEGFile(path, vision.ToGray(img), s.quality); err != nil {
		return "", fmt.Errorf("failed to save unknown capture: %w", err)
	}
	return path, nil
}

// Count returns the number of samples in ownerID's bucket.
func (s *Store) Count(ctx context.Context, ownerID int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	files, err := listSampleFiles(s.bucketPath(ownerID))
	if err != nil {
		return 0, err
	}
	return len(files), nil
}

// All enumerates every identity sample in ascending owner then index order.
// The unknown bucket and non-numeric directories are skipped. A file that
// cannot be decoded is yielded with an error wrapping ErrCorruptSample;
// iteration continues if the consumer keeps ranging.
func (s *Store) All(ctx context.Context) iter.Seq2[Sample, error] {
	return func(yield func(Sample, error) bool) {
		owners, err := s.owners()
		if err != nil {
			yield(Sample{}, err)
			return
		}

		for _, owner := range owners {
			files, err := listSampleFiles(s.bucketPath(owner))
			if err != nil {
				if !yield(Sample{OwnerID: owner}, err) {
					return
				}
				continue
			}

			for _, f := range files {
				if err := ctx.Err(); err != nil {
					yield(Sample{}, err)
					return
				}

				sample := Sample{OwnerID: owner, Index: f.index, Path: f.path}
				img, err := vision.DecodeFile(f.path)
				if err != nil {
					if !yield(sample, fmt.Errorf("%w: %v", ErrCorruptSample, err)) {
						return
					}
					continue
				}
				sample.Image = vision.Normalize(img, s.size)
				if !yield(sample, nil) {
					return
				}
			}
		}
	}
}

func (s *Store) bucketPath(ownerID int) string {
	return filepath.Join(s.root, strconv.Itoa(ownerID))
}

// owners returns the numeric bucket names in ascending order.
func (s *Store) owners() ([]int, error) {
	entries, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list sample store: %w", err)
	}

	var owners []int
	for _, entry := range entries {
		if !entry.IsDir() || entry.Name() == constants.UnknownBucket {
			continue
		}
		id, err := strconv.Atoi(entry.Name())
		if err != nil || id <= 0 {
			continue
		}
		owners = append(owners, id)
	}
	sort.Ints(owners)
	return owners, nil
}

type sampleFile struct {
	index int
	path  string
}

// listSampleFiles returns the .jpg files of a bucket ordered by index.
// Files whose stem is not a number get index 0 and sort by name.
func listSampleFiles(bucket string) ([]sampleFile, error) {
	entries, err := os.ReadDir(bucket)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list bucket %s: %w", bucket, err)
	}

	var files []sampleFile
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != constants.SampleExt {
			continue
		}
		index, _ := strconv.Atoi(strings.TrimSuffix(name, constants.SampleExt))
		files = append(files, sampleFile{index: index, path: filepath.Join(bucket, name)})
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].index != files[j].index {
			return files[i].index < files[j].index
		}
		return files[i].path < files[j].path
	})
	return files, nil
}
