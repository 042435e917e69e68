package utils

import (
	"os"

	"github.com/cespare/xxhash/v2"
)

// Fingerprint is a content hash used to tell whether a file really changed.
type Fingerprint uint64

// FingerprintOf hashes data.
func FingerprintOf(data []byte) Fingerprint {
	return Fingerprint(xxhash.Sum64(data))
}

// FileFingerprint hashes the file at path. A missing file has the zero
// fingerprint.
func FileFingerprint(path string) (Fingerprint, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return FingerprintOf(data), nil
}
