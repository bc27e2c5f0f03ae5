// Package limits provides centralized size constants and validation functions
// for the file-push protocol. Every component that builds or parses a transfer
// header checks its inputs against these limits so the bounds are enforced the
// same way on both ends of a connection.
//
// # Size Hierarchy
//
//   - MaxFileNameLength (65535 bytes): the largest name the 16-bit filename
//     length field can describe. Empty names are never valid.
//
//   - MaxFileSize (2^32 - 1 bytes): the largest body the 32-bit size field can
//     describe. Zero-byte files are valid and transfer as a header only.
//
//   - DefaultBufferSize (64 KiB) and MaxBufferSize (1 MiB): bounds for the
//     reusable buffer the byte pump allocates once per transfer. The buffer is
//     never sized to the file, so memory use stays flat for large files.
//
// # Validation Functions
//
//	if err := limits.ValidateFileName(name); err != nil {
//	    // ErrNameEmpty or ErrNameTooLong
//	}
//
//	if err := limits.ValidateFileSize(size); err != nil {
//	    // ErrSizeOutOfRange
//	}
//
// Errors carry the actual and maximum values as context and can be matched
// with errors.Is.
package limits
