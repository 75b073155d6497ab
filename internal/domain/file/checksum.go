package file

import (
	"crypto/subtle"
	"fmt"
	"strings"
)

// digestLengths maps a supported algorithm to its hex digest length.
var digestLengths = map[string]int{
	"md5":    32,
	"sha1":   40,
	"sha256": 64,
	"sha512": 128,
}

// Checksum is a validated "algorithm:hexdigest" pair. Both parts are
// normalized to lower case at construction.
type Checksum struct {
	algorithm string
	digest    string
}

func NewChecksum(value string) (Checksum, error) {
	algorithm, digest, found := strings.Cut(value, ":")
	if !found {
		return Checksum{}, fmt.Errorf("checksum %q must be in algorithm:hexdigest format", value)
	}

	algorithm = strings.ToLower(algorithm)
	digest = strings.ToLower(digest)

	wantLen, ok := digestLengths[algorithm]
	if !ok {
		return Checksum{}, fmt.Errorf("unsupported checksum algorithm %q", algorithm)
	}
	if len(digest) != wantLen {
		return Checksum{}, fmt.Errorf("%s digest must be %d hex characters, got %d", algorithm, wantLen, len(digest))
	}
	for _, c := range digest {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return Checksum{}, fmt.Errorf("checksum digest contains non-hex character %q", c)
		}
	}

	return Checksum{algorithm: algorithm, digest: digest}, nil
}

func (c Checksum) Algorithm() string { return c.algorithm }

func (c Checksum) Digest() string { return c.digest }

func (c Checksum) IsZero() bool { return c.algorithm == "" }

// Equal compares two checksums in constant time.
func (c Checksum) Equal(other Checksum) bool {
	if c.algorithm != other.algorithm {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(c.digest), []byte(other.digest)) == 1
}

func (c Checksum) String() string {
	return c.algorithm + ":" + c.digest
}

// MarshalText serializes as "algorithm:hexdigest"; the zero value
// serializes empty. Used for JSON and database round-trips.
func (c Checksum) MarshalText() ([]byte, error) {
	if c.IsZero() {
		return []byte(""), nil
	}
	return []byte(c.String()), nil
}

func (c *Checksum) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*c = Checksum{}
		return nil
	}
	parsed, err := NewChecksum(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
