package file

import "time"

// Metadata is the persisted record of a fully assembled file.
type Metadata struct {
	ID               FileID
	TenantID         string
	OriginalFilename string
	Size             Size
	MimeType         MimeType
	Checksum         Checksum
	StorageKey       StorageKey
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
