package registry

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// csvFields is the record schema: id, display_name, external_reference.
const csvFields = 3

// CSVFile is a registry persisted as a flat, append-ordered CSV file.
// A missing file is an empty registry.
type CSVFile struct {
	path string
	mu   sync.Mutex
}

// NewCSVFile creates a CSV-backed registry at path.
func NewCSVFile(path string) *CSVFile {
	return &CSVFile{path: path}
}

// Path returns the backing file path.
func (r *CSVFile) Path() string {
	return r.path
}

// LoadAll reads and validates every record.
func (r *CSVFile) LoadAll(ctx context.Context) (map[int]Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

// Exists reports whether the registry file has been created.
func (r *CSVFile) Exists(ctx context.Context) (bool, error) {
	_, err := os.Stat(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat registry: %w", err)
	}
	return true, nil
}

// NextID returns max(existing ids)+1, or 1 if the registry is empty.
func (r *CSVFile) NextID(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot, err := r.load(ctx)
	if err != nil {
		return 0, err
	}
	return NextIDFrom(snapshot), nil
}

// Register appends identity as a new CSV row.
func (r *CSVFile) Register(ctx context.Context, identity Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot, err := r.load(ctx)
	if err != nil {
		return err
	}
	if _, exists := snapshot[identity.ID]; exists {
		return fmt.Errorf("%w: id %d", ErrDuplicateIdentity, identity.ID)
	}

	if dir := filepath.Dir(r.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating registry directory: %w", err)
		}
	}

	f, err := os.OpenFile(r.path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("opening registry: %w", err)
	}
	defer f.Close()

	// A file edited by hand may lack the trailing newline; appending would merge rows.
	if err := terminateLastLine(f); err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{strconv.Itoa(identity.ID), identity.DisplayName, identity.ExternalReference}); err != nil {
		return fmt.Errorf("writing registry record: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing registry record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("syncing registry: %w", err)
	}
	return nil
}

func (r *CSVFile) load(ctx context.Context) (map[int]Identity, error) {
	snapshot := make(map[int]Identity)

	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return snapshot, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening registry: %w", err)
	}
	defer f.Close()

	cr := csv.NewReader(f)
	cr.FieldsPerRecord = -1 // validated per row below for a precise error

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
		line, _ := cr.FieldPos(0)

		identity, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrCorruptRecord, r.path, line, err)
		}
		if _, dup := snapshot[identity.ID]; dup {
			return nil, fmt.Errorf("%w: %s line %d: duplicate id %d", ErrCorruptRecord, r.path, line, identity.ID)
		}
		snapshot[identity.ID] = identity
	}

	return snapshot, nil
}

func parseRow(row []string) (Identity, error) {
	if len(row) != csvFields {
		return Identity{}, fmt.Errorf("expected %d fields, got %d", csvFields, len(row))
	}
	id, err := strconv.Atoi(strings.TrimSpace(row[0]))
	if err != nil {
		return Identity{}, fmt.Errorf("id %q is not an integer", row[0])
	}
	identity := Identity{ID: id, DisplayName: row[1], ExternalReference: strings.TrimSpace(row[2])}
	if err := identity.ValidateStored(); err != nil {
		return Identity{}, err
	}
	return identity, nil
}

// terminateLastLine appends a newline when the file is non-empty and does not end with one.
func terminateLastLine(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat registry: %w", err)
	}
	if info.Size() == 0 {
		return nil
	}
	last := make([]byte, 1)
	if _, err := f.ReadAt(last, info.Size()-1); err != nil {
		return fmt.Errorf("reading registry tail: %w", err)
	}
	if last[0] == '\n' {
		return nil
	}
	if _, err := f.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("terminating registry line: %w", err)
	}
	return nil
}
