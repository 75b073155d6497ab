package crypto

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"

	"github.com/filedepot/filedepot/internal/domain/file"
)

// NewHasher returns a hash for one of the supported checksum
// algorithms: md5, sha1, sha256, sha512.
func NewHasher(algorithm string) (hash.Hash, error) {
	switch algorithm {
	case "md5":
		return md5.New(), nil
	case "sha1":
		return sha1.New(), nil
	case "sha256":
		return sha256.New(), nil
	case "sha512":
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("unsupported checksum algorithm %q", algorithm)
	}
}

func HashBytes(algorithm string, data []byte) (file.Checksum, error) {
	h, err := NewHasher(algorithm)
	if err != nil {
		return file.Checksum{}, err
	}
	h.Write(data)
	return file.NewChecksum(algorithm + ":" + hex.EncodeToString(h.Sum(nil)))
}

func HashReader(algorithm string, r io.Reader) (file.Checksum, error) {
	h, err := NewHasher(algorithm)
	if err != nil {
		return file.Checksum{}, err
	}
	if _, err := io.Copy(h, r); err != nil {
		return file.Checksum{}, fmt.Errorf("failed to hash stream: %w", err)
	}
	return file.NewChecksum(algorithm + ":" + hex.EncodeToString(h.Sum(nil)))
}
