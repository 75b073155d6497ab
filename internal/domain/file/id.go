package file

import (
	"fmt"

	"github.com/google/uuid"
)

// FileID identifies a stored file. IDs are UUIDv7 so that index order
// follows creation time.
type FileID struct {
	value uuid.UUID
}

func NewFileID() (FileID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return FileID{}, fmt.Errorf("failed to generate file id: %w", err)
	}
	return FileID{value: id}, nil
}

func ParseFileID(s string) (FileID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return FileID{}, fmt.Errorf("invalid file id %q: %w", s, err)
	}
	return FileID{value: id}, nil
}

func (id FileID) String() string { return id.value.String() }

func (id FileID) IsZero() bool { return id.value == uuid.Nil }

// UploadSessionID identifies an upload session, UUIDv7 like FileID.
type UploadSessionID struct {
	value uuid.UUID
}

func NewUploadSessionID() (UploadSessionID, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return UploadSessionID{}, fmt.Errorf("failed to generate session id: %w", err)
	}
	return UploadSessionID{value: id}, nil
}

func ParseUploadSessionID(s string) (UploadSessionID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return UploadSessionID{}, fmt.Errorf("invalid session id %q: %w", s, err)
	}
	return UploadSessionID{value: id}, nil
}

func (id UploadSessionID) String() string { return id.value.String() }

func (id UploadSessionID) IsZero() bool { return id.value == uuid.Nil }
