package file

import (
	"fmt"
	"strings"
)

const (
	maxStorageKeyLength = 1024
	maxSegmentLength    = 255
)

// Windows device names are rejected even on POSIX backends: keys may be
// mirrored to arbitrary filesystems by operators.
var reservedNames = map[string]bool{
	"con": true, "prn": true, "aux": true, "nul": true,
	"com1": true, "com2": true, "com3": true, "com4": true,
	"com5": true, "com6": true, "com7": true, "com8": true, "com9": true,
	"lpt1": true, "lpt2": true, "lpt3": true, "lpt4": true,
	"lpt5": true, "lpt6": true, "lpt7": true, "lpt8": true, "lpt9": true,
}

const forbiddenKeyChars = "<>:\"|?*\\"

// StorageKey is a traversal-safe relative object path such as
// "tenants/acme/2024/01/report.pdf".
type StorageKey struct {
	value string
}

func NewStorageKey(value string) (StorageKey, error) {
	if value == "" {
		return StorageKey{}, fmt.Errorf("storage key must not be empty")
	}
	if len(value) > maxStorageKeyLength {
		return StorageKey{}, fmt.Errorf("storage key exceeds %d characters", maxStorageKeyLength)
	}
	if strings.HasPrefix(value, "/") {
		return StorageKey{}, fmt.Errorf("storage key %q must be relative", value)
	}
	if len(value) >= 2 && value[1] == ':' {
		return StorageKey{}, fmt.Errorf("storage key %q must not carry a drive prefix", value)
	}
	if strings.ContainsAny(value, forbiddenKeyChars) {
		return StorageKey{}, fmt.Errorf("storage key %q contains forbidden characters", value)
	}
	for _, r := range value {
		if r < 0x20 || r == 0x7f {
			return StorageKey{}, fmt.Errorf("storage key contains control character %q", r)
		}
	}

	for _, segment := range strings.Split(value, "/") {
		if segment == "" {
			return StorageKey{}, fmt.Errorf("storage key %q contains an empty path segment", value)
		}
		if segment == "." || segment == ".." {
			return StorageKey{}, fmt.Errorf("storage key %q contains a traversal segment", value)
		}
		if len(segment) > maxSegmentLength {
			return StorageKey{}, fmt.Errorf("storage key segment %q exceeds %d characters", segment, maxSegmentLength)
		}
		base, _, _ := strings.Cut(segment, ".")
		if reservedNames[strings.ToLower(base)] {
			return StorageKey{}, fmt.Errorf("storage key segment %q is a reserved device name", segment)
		}
	}

	return StorageKey{value: value}, nil
}

func (k StorageKey) String() string { return k.value }

func (k StorageKey) IsZero() bool { return k.value == "" }

// Join appends a validated segment to the key.
func (k StorageKey) Join(segment string) (StorageKey, error) {
	return NewStorageKey(k.value + "/" + segment)
}

// Base returns the final path segment.
func (k StorageKey) Base() string {
	if i := strings.LastIndexByte(k.value, '/'); i >= 0 {
		return k.value[i+1:]
	}
	return k.value
}
