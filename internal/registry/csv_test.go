package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestRegistry(t *testing.T) *CSVFile {
	t.Helper()
	return NewCSVFile(filepath.Join(t.TempDir(), "persons.csv"))
}

func writeRegistryFile(t *testing.T, content string) *CSVFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "persons.csv")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write registry: %v", err)
	}
	return NewCSVFile(path)
}

func TestCSVFile_EmptyRegistry(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	snapshot, err := r.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll on missing file: %v", err)
	}
	if len(snapshot) != 0 {
		t.Errorf("expected empty snapshot, got %d identities", len(snapshot))
	}

	id, err := r.NextID(ctx)
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	if id != 1 {
		t.Errorf("expected first id 1, got %d", id)
	}
}

func TestCSVFile_NextIDStrictlyIncreasing(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	prev := 0
	for i := range 5 {
		id, err := r.NextID(ctx)
		if err != nil {
			t.Fatalf("NextID: %v", err)
		}
		if id <= prev {
			t.Fatalf("iteration %d: id %d not greater than previous %d", i, id, prev)
		}
		// Calling NextID again without registering must not skip ahead.
		again, _ := r.NextID(ctx)
		if again != id {
			t.Errorf("NextID not stable without Register: %d then %d", id, again)
		}
		if err := r.Register(ctx, NewIdentity(id, "Person", "R00")); err != nil {
			t.Fatalf("Register(%d): %v", id, err)
		}
		prev = id
	}
}

func TestCSVFile_NextIDToleratesGaps(t *testing.T) {
	r := writeRegistryFile(t, "1,Alice,R001\n7,Bob,R007\n")

	id, err := r.NextID(context.Background())
	if err != nil {
		t.Fatalf("NextID: %v", err)
	}
	if id != 8 {
		t.Errorf("expected 8 after max id 7, got %d", id)
	}
}

func TestCSVFile_RegisterDuplicate(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	if err := r.Register(ctx, NewIdentity(1, "Alice", "R001")); err != nil {
		t.Fatalf("first Register: %v", err)
	}
	err := r.Register(ctx, NewIdentity(1, "Mallory", "R666"))
	if !errors.Is(err, ErrDuplicateIdentity) {
		t.Fatalf("expected ErrDuplicateIdentity, got %v", err)
	}

	snapshot, err := r.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(snapshot) != 1 {
		t.Fatalf("expected registry unchanged with 1 identity, got %d", len(snapshot))
	}
	if snapshot[1].DisplayName != "Alice" {
		t.Errorf("expected Alice to remain, got %q", snapshot[1].DisplayName)
	}
}

func TestCSVFile_RegisterRoundTripsQuotedFields(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	if err := r.Register(ctx, NewIdentity(1, "  Novák, Jan ", "R-01")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	snapshot, err := r.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	got := snapshot[1]
	if got.DisplayName != "Novák, Jan" {
		t.Errorf("expected trimmed name with comma, got %q", got.DisplayName)
	}
	if got.ExternalReference != "R-01" {
		t.Errorf("expected reference R-01, got %q", got.ExternalReference)
	}
}

func TestCSVFile_RegisterInvalid(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	tests := []struct {
		name     string
		identity Identity
	}{
		{"zero id", NewIdentity(0, "Alice", "R001")},
		{"negative id", NewIdentity(-3, "Alice", "R001")},
		{"empty name", NewIdentity(1, "   ", "R001")},
		{"empty reference", NewIdentity(1, "Alice", "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := r.Register(ctx, tt.identity); !errors.Is(err, ErrInvalidIdentity) {
				t.Errorf("expected ErrInvalidIdentity, got %v", err)
			}
		})
	}
	if _, err := os.Stat(r.Path()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("invalid registrations must not create the registry file")
	}
}

func TestCSVFile_AppendAfterMissingTrailingNewline(t *testing.T) {
	ctx := context.Background()
	r := writeRegistryFile(t, "1,Alice,R001")

	if err := r.Register(ctx, NewIdentity(2, "Bob", "R002")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	snapshot, err := r.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 identities, got %d", len(snapshot))
	}
}

func TestCSVFile_SkipsBlankLines(t *testing.T) {
	r := writeRegistryFile(t, "1,Alice,R001\n\n2,Bob,R002\n\n")

	snapshot, err := r.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(snapshot) != 2 {
		t.Errorf("expected 2 identities, got %d", len(snapshot))
	}
}

func TestCSVFile_CorruptRecords(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"non-integer id", "abc,Alice,R001\n"},
		{"zero id", "0,Alice,R001\n"},
		{"missing field", "1,Alice\n"},
		{"extra field", "1,Alice,R001,extra\n"},
		{"empty name", "1,,R001\n"},
		{"duplicate id", "1,Alice,R001\n1,Bob,R002\n"},
		{"bad quoting", "1,\"Alice,R001\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := writeRegistryFile(t, tt.content)
			_, err := r.LoadAll(context.Background())
			if !errors.Is(err, ErrCorruptRecord) {
				t.Errorf("expected ErrCorruptRecord, got %v", err)
			}
			if _, err := r.NextID(context.Background()); !errors.Is(err, ErrCorruptRecord) {
				t.Errorf("NextID should surface ErrCorruptRecord, got %v", err)
			}
		})
	}
}

func TestCSVFile_EmptyExternalReferenceOnLoad(t *testing.T) {
	ctx := context.Background()
	r := writeRegistryFile(t, "1,Alice,R001\n2,Bob,\n3,Carol,  \n")

	snapshot, err := r.LoadAll(ctx)
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if len(snapshot) != 3 {
		t.Fatalf("expected 3 identities, got %d", len(snapshot))
	}
	if snapshot[2].DisplayName != "Bob" || snapshot[2].ExternalReference != "" {
		t.Errorf("unexpected identity 2: %+v", snapshot[2])
	}
	if snapshot[3].ExternalReference != "" {
		t.Errorf("expected blank reference to be trimmed, got %q", snapshot[3].ExternalReference)
	}

	// Writes still require a reference.
	err = r.Register(ctx, NewIdentity(4, "Dave", ""))
	if !errors.Is(err, ErrInvalidIdentity) {
		t.Errorf("expected ErrInvalidIdentity on Register, got %v", err)
	}
}

func TestCSVFile_Exists(t *testing.T) {
	ctx := context.Background()
	r := newTestRegistry(t)

	exists, err := r.Exists(ctx)
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if exists {
		t.Error("expected missing file to report false")
	}
	if id, err := r.NextID(ctx); err != nil || id != 1 {
		t.Errorf("NextID on missing file: id=%d err=%v", id, err)
	}

	if err := r.Register(ctx, NewIdentity(1, "Alice", "R001")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if exists, err = r.Exists(ctx); err != nil || !exists {
		t.Errorf("expected file to exist after Register, got %v, %v", exists, err)
	}
}
