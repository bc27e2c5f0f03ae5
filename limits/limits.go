// Package limits provides centralized size limits for the file-push protocol.
// This ensures consistent validation across the sender and the receiver.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxFileNameLength is the largest filename the 2-byte length field can carry.
	MaxFileNameLength = 1<<16 - 1

	// MaxFileSize is the largest body the 4-byte size field can carry.
	MaxFileSize = 1<<32 - 1

	// DefaultBufferSize is the pump buffer capacity used when none is configured.
	DefaultBufferSize = 64 * 1024

	// MinBufferSize is the smallest accepted pump buffer capacity.
	MinBufferSize = 1

	// MaxBufferSize caps the pump buffer to bound memory per transfer (1MB).
	MaxBufferSize = 1024 * 1024
)

var (
	// ErrNameEmpty indicates an empty filename was provided
	ErrNameEmpty = errors.New("empty file name")

	// ErrNameTooLong indicates a filename exceeds MaxFileNameLength
	ErrNameTooLong = errors.New("file name too long")

	// ErrSizeOutOfRange indicates a file size outside [0, MaxFileSize]
	ErrSizeOutOfRange = errors.New("file size out of range")

	// ErrBufferSize indicates a buffer capacity outside [MinBufferSize, MaxBufferSize]
	ErrBufferSize = errors.New("invalid buffer size")
)

// ValidateFileName checks that name is non-empty and fits the length field.
// The length is measured in bytes, not runes, since that is what goes on the wire.
func ValidateFileName(name string) error {
	if len(name) == 0 {
		return ErrNameEmpty
	}
	if len(name) > MaxFileNameLength {
		return fmt.Errorf("%w: length %d exceeds limit %d", ErrNameTooLong, len(name), MaxFileNameLength)
	}
	return nil
}

// ValidateFileSize checks that size fits the 32-bit size field.
func ValidateFileSize(size int64) error {
	if size < 0 || size > MaxFileSize {
		return fmt.Errorf("%w: size %d not in [0, %d]", ErrSizeOutOfRange, size, int64(MaxFileSize))
	}
	return nil
}

// ValidateBufferSize checks a pump buffer capacity.
func ValidateBufferSize(n int) error {
	if n < MinBufferSize || n > MaxBufferSize {
		return fmt.Errorf("%w: %d not in [%d, %d]", ErrBufferSize, n, MinBufferSize, MaxBufferSize)
	}
	return nil
}
