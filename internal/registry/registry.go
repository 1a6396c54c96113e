// Package registry provides the persistent identity registry.
// The registry is append-only: identities are assigned monotonically increasing ids
// and are never updated or deleted through this package.
package registry

import (
	"context"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Identity is a registered person. ID is also the sample store bucket name.
type Identity struct {
	ID                int
	DisplayName       string
	ExternalReference string // roll or ID number reported to the dashboard
}

// Reader provides the registry snapshot used by training and recognition.
type Reader interface {
	// LoadAll returns every registered identity keyed by id.
	LoadAll(ctx context.Context) (map[int]Identity, error)
}

// Checker is implemented by registries whose backing store can be absent.
// A missing store reads as empty through LoadAll; Exists tells the two apart.
type Checker interface {
	Exists(ctx context.Context) (bool, error)
}

// Registry provides read and append access to identities.
type Registry interface {
	Reader

	// NextID returns max(existing ids)+1, or 1 if the registry is empty.
	NextID(ctx context.Context) (int, error)

	// Register appends a new identity. Fails with ErrDuplicateIdentity
	// if the id already exists; the registry is unchanged after a failure.
	Register(ctx context.Context, identity Identity) error
}

// NewIdentity builds an identity with normalized metadata.
func NewIdentity(id int, displayName, externalReference string) Identity {
	return Identity{
		ID:                id,
		DisplayName:       norm.NFC.String(strings.TrimSpace(displayName)),
		ExternalReference: strings.TrimSpace(externalReference),
	}
}

// Validate checks the identity invariants enforced on write.
func (i Identity) Validate() error {
	if err := i.ValidateStored(); err != nil {
		return err
	}
	if i.ExternalReference == "" {
		return invalidf("external reference is required")
	}
	return nil
}

// ValidateStored checks a persisted record. Older registries may hold rows
// with an empty external reference, so only the id and name are required.
func (i Identity) ValidateStored() error {
	if i.ID <= 0 {
		return invalidf("id must be positive, got %d", i.ID)
	}
	if i.DisplayName == "" {
		return invalidf("display name is required")
	}
	return nil
}

// NextIDFrom computes the next id for a snapshot.
func NextIDFrom(snapshot map[int]Identity) int {
	maxID := 0
	for id := range snapshot {
		maxID = max(maxID, id)
	}
	return maxID + 1
}

// Sorted returns the snapshot ordered by id.
func Sorted(snapshot map[int]Identity) []Identity {
	out := make([]Identity, 0, len(snapshot))
	for _, identity := range snapshot {
		out = append(out, identity)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
