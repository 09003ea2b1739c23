package persistence

import (
	"fmt"
	"hash/crc32"
)

// CRC32 is used to detect accidental corruption of a snapshot payload. It is
// not a tamper check; use an encryption key for that.

// ChecksumMismatchError is returned when a stored checksum does not match
// the payload.
type ChecksumMismatchError struct {
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch: expected 0x%08x, got 0x%08x", e.Expected, e.Actual)
}

// Is reports ErrCorrupt as the class of this error.
func (e *ChecksumMismatchError) Is(target error) bool { return target == ErrCorrupt }

// checksum computes the CRC32 (IEEE) of data.
func checksum(data []byte) uint32 {
	return crc32.ChecksumIEEE(data)
}

func verifyChecksum(data []byte, expected uint32) error {
	if actual := checksum(data); actual != expected {
		return &ChecksumMismatchError{Expected: expected, Actual: actual}
	}
	return nil
}
