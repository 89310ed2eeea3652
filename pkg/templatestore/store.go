// Package templatestore persists voiceprint templates, one record per
// owner.
//
// Records are msgpack-encoded and self-describing: each carries a format
// version, the embedding dimension and the enrollment sample rate, so a
// change of extractor model is detected on Load instead of silently
// producing meaningless similarities.
//
// Backends:
//
//   - [Badger]: BadgerDB v4, one key per owner ("templates:<owner>").
//   - [Memory]: in-process map, for tests and ephemeral servers.
//   - [Files]: any [FileStore]; [LocalFiles] writes to a temp file and
//     renames it into place, [S3Files] puts whole objects.
//
// Every backend validates owner IDs with [ValidateOwnerID] and
// serializes operations on the same owner with [OwnerLocks].
package templatestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/haivivi/voxkey/pkg/voiceprint"
)

// Errors returned by Store implementations.
var (
	// ErrTemplateNotFound is returned by Load when no template exists.
	ErrTemplateNotFound = errors.New("templatestore: template not found")

	// ErrInvalidOwnerID is returned for owner IDs that are empty, too long,
	// or not path-safe.
	ErrInvalidOwnerID = errors.New("templatestore: invalid owner id")

	// ErrStorage wraps failures of the underlying storage and records that
	// cannot be decoded.
	ErrStorage = errors.New("templatestore: storage error")
)

// Store persists templates keyed by owner ID.
//
// Implementations must be safe for concurrent use. A Save must never be
// partially visible to a concurrent Load for the same owner.
type Store interface {
	// Save atomically writes or replaces the template for t.OwnerID.
	Save(ctx context.Context, t *voiceprint.Template) error

	// Load returns the template for ownerID, or ErrTemplateNotFound.
	Load(ctx context.Context, ownerID string) (*voiceprint.Template, error)

	// Delete removes the template for ownerID. Deleting an absent
	// template is not an error.
	Delete(ctx context.Context, ownerID string) error

	// List returns the owner IDs that currently have a template, sorted.
	List(ctx context.Context) ([]string, error)

	// Close releases resources held by the store.
	Close() error
}

func storageErr(op, ownerID string, err error) error {
	if ownerID == "" {
		return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
	}
	return fmt.Errorf("%w: %s %q: %w", ErrStorage, op, ownerID, err)
}

func notFound(ownerID string) error {
	return fmt.Errorf("%w: %q", ErrTemplateNotFound, ownerID)
}

// checkSave validates a template before it is written.
func checkSave(t *voiceprint.Template) error {
	if t == nil {
		return errors.New("templatestore: nil template")
	}
	if err := ValidateOwnerID(t.OwnerID); err != nil {
		return err
	}
	return t.Validate()
}
