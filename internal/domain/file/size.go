package file

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// MaxFileSize caps any single stored object at 1 PB.
const MaxFileSize = int64(1) << 50

// Size is a validated byte count in [0, MaxFileSize].
type Size struct {
	bytes int64
}

func NewSize(bytes int64) (Size, error) {
	if bytes < 0 {
		return Size{}, fmt.Errorf("file size must not be negative, got %d", bytes)
	}
	if bytes > MaxFileSize {
		return Size{}, fmt.Errorf("file size %d exceeds maximum of %d bytes", bytes, MaxFileSize)
	}
	return Size{bytes: bytes}, nil
}

func (s Size) Bytes() int64 { return s.bytes }

func (s Size) IsZero() bool { return s.bytes == 0 }

// Add returns the sum, failing if the result leaves the valid range.
func (s Size) Add(other Size) (Size, error) {
	return NewSize(s.bytes + other.bytes)
}

// Sub returns the difference, failing if the result would be negative.
func (s Size) Sub(other Size) (Size, error) {
	return NewSize(s.bytes - other.bytes)
}

// Human renders the size for display, e.g. "1.5 MB".
func (s Size) Human() string {
	return humanize.Bytes(uint64(s.bytes))
}

func (s Size) String() string {
	return fmt.Sprintf("%d", s.bytes)
}
