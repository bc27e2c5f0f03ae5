package transport

import (
	"errors"
	"fmt"
	"io"

	"github.com/opd-ai/filepush/limits"
	"github.com/sirupsen/logrus"
)

// maxStalledCalls bounds consecutive zero-byte reads or writes that return no
// error. io.Reader permits them but discourages them; a stream that keeps
// doing it is treated as broken rather than spun on forever.
const maxStalledCalls = 100

// ProgressFunc is called after each chunk with the cumulative byte count.
type ProgressFunc func(transferred int64)

// Pump moves exactly size bytes from src to dst using a reusable buffer of at
// most bufferCapacity bytes. It returns the number of bytes written to dst,
// which equals size on success.
func Pump(dst io.Writer, src io.Reader, size int64, bufferCapacity int) (int64, error) {
	return PumpWithProgress(dst, src, size, bufferCapacity, nil)
}

// PumpWithProgress is Pump with a progress callback.
//
// Each read asks for min(bufferCapacity, size-transferred) bytes and may get
// fewer. Everything read is written out in full before the next read, looping
// on short writes. If src reports EOF before size bytes arrived the pump fails
// with ErrTruncatedStream and performs no further writes.
func PumpWithProgress(dst io.Writer, src io.Reader, size int64, bufferCapacity int, progress ProgressFunc) (int64, error) {
	if size < 0 {
		return 0, fmt.Errorf("%w: negative transfer size %d", ErrInvalidInput, size)
	}
	if err := limits.ValidateBufferSize(bufferCapacity); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if size == 0 {
		return 0, nil
	}

	bufLen := int64(bufferCapacity)
	if size < bufLen {
		bufLen = size
	}
	buf := make([]byte, bufLen)

	var transferred int64
	stalled := 0

	for transferred < size {
		want := size - transferred
		if want > bufLen {
			want = bufLen
		}

		n, readErr := src.Read(buf[:want])
		if n > 0 {
			stalled = 0
			written, writeErr := WriteFull(dst, buf[:n])
			transferred += int64(written)
			if progress != nil {
				progress(transferred)
			}
			if writeErr != nil {
				return transferred, fmt.Errorf("%w: write failed after %d of %d bytes: %w",
					ErrTransferFailed, transferred, size, writeErr)
			}
		}

		if readErr != nil {
			if transferred == size {
				break
			}
			if errors.Is(readErr, io.EOF) {
				logrus.WithFields(logrus.Fields{
					"function":    "Pump",
					"transferred": transferred,
					"size":        size,
				}).Warn("Source closed before transfer completed")
				return transferred, fmt.Errorf("%w: got %d of %d bytes", ErrTruncatedStream, transferred, size)
			}
			return transferred, fmt.Errorf("%w: read failed after %d of %d bytes: %w",
				ErrTransferFailed, transferred, size, readErr)
		}

		if n == 0 {
			stalled++
			if stalled >= maxStalledCalls {
				return transferred, fmt.Errorf("%w: %w", ErrTransferFailed, io.ErrNoProgress)
			}
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Pump",
		"transferred": transferred,
		"buffer_size": bufLen,
	}).Debug("Pump completed")

	return transferred, nil
}

// WriteFull writes all of p to w, continuing after short writes. It returns
// the number of bytes written, which is len(p) unless err is non-nil.
func WriteFull(w io.Writer, p []byte) (int, error) {
	written := 0
	stalled := 0

	for written < len(p) {
		n, err := w.Write(p[written:])
		if n < 0 || n > len(p)-written {
			return written, fmt.Errorf("writer returned invalid count %d", n)
		}
		written += n
		if err != nil {
			return written, err
		}
		if n == 0 {
			stalled++
			if stalled >= maxStalledCalls {
				return written, io.ErrShortWrite
			}
			continue
		}
		stalled = 0
	}

	return written, nil
}
