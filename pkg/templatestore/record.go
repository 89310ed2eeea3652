package templatestore

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/haivivi/voxkey/pkg/voiceprint"
)

// FormatVersion is the record layout version written by this package.
const FormatVersion = 1

// record is the persisted form of a template.
type record struct {
	Version      int       `msgpack:"v"`
	OwnerID      string    `msgpack:"owner_id"`
	Dim          int       `msgpack:"dim"`
	SampleRate   int       `msgpack:"sample_rate"`
	Embedding    []float32 `msgpack:"embedding"`
	Model        string    `msgpack:"model,omitempty"`
	Recordings   int       `msgpack:"recordings,omitempty"`
	EnrollmentID string    `msgpack:"enrollment_id,omitempty"`
	CreatedAt    time.Time `msgpack:"created_at"`
}

// Marshal encodes t into the record format.
func Marshal(t *voiceprint.Template) ([]byte, error) {
	return msgpack.Marshal(&record{
		Version:      FormatVersion,
		OwnerID:      t.OwnerID,
		Dim:          t.Dim,
		SampleRate:   t.SampleRate,
		Embedding:    t.Embedding,
		Model:        t.Model,
		Recordings:   t.Recordings,
		EnrollmentID: t.EnrollmentID,
		CreatedAt:    t.CreatedAt,
	})
}

// Unmarshal decodes a record. It fails when the version is unknown or the
// stored dimension disagrees with the stored vector.
func Unmarshal(data []byte) (*voiceprint.Template, error) {
	var r record
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if r.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported record version %d", r.Version)
	}
	t := &voiceprint.Template{
		OwnerID:      r.OwnerID,
		Embedding:    voiceprint.Embedding(r.Embedding),
		SampleRate:   r.SampleRate,
		Dim:          r.Dim,
		Model:        r.Model,
		Recordings:   r.Recordings,
		EnrollmentID: r.EnrollmentID,
		CreatedAt:    r.CreatedAt.UTC(),
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// decodeFor decodes data loaded for ownerID and wraps failures in ErrStorage.
func decodeFor(ownerID string, data []byte) (*voiceprint.Template, error) {
	t, err := Unmarshal(data)
	if err != nil {
		return nil, storageErr("load", ownerID, err)
	}
	if t.OwnerID != ownerID {
		return nil, storageErr("load", ownerID, fmt.Errorf("record belongs to %q", t.OwnerID))
	}
	return t, nil
}
