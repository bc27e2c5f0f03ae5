package file

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/opd-ai/filepush/limits"
	"github.com/opd-ai/filepush/transport"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/sirupsen/logrus"
)

// diskUsageFunc reports filesystem usage for the volume holding path.
type diskUsageFunc func(path string) (*disk.UsageStat, error)

// Receiver persists incoming transfers under root/<peer>/<name>.
type Receiver struct {
	root         string
	dirMode      os.FileMode
	fileMode     os.FileMode
	bufferSize   int
	checkSpace   bool
	reserveBytes uint64
	diskUsage    diskUsageFunc
	hook         func(*Transfer)
}

// ReceiverOption configures a Receiver.
type ReceiverOption func(*Receiver)

// WithDirMode sets the mode for directories the receiver creates.
func WithDirMode(mode os.FileMode) ReceiverOption {
	return func(r *Receiver) {
		r.dirMode = mode
	}
}

// WithFileMode sets the mode for files the receiver creates.
func WithFileMode(mode os.FileMode) ReceiverOption {
	return func(r *Receiver) {
		r.fileMode = mode
	}
}

// WithReceiveBufferSize sets the pump buffer capacity.
func WithReceiveBufferSize(n int) ReceiverOption {
	return func(r *Receiver) {
		r.bufferSize = n
	}
}

// WithFreeSpaceCheck refuses transfers that would leave less than reserve
// bytes free on the destination volume.
func WithFreeSpaceCheck(reserve uint64) ReceiverOption {
	return func(r *Receiver) {
		r.checkSpace = true
		r.reserveBytes = reserve
	}
}

// WithReceiveHook registers a function called with each transfer once its
// header has been decoded.
func WithReceiveHook(hook func(*Transfer)) ReceiverOption {
	return func(r *Receiver) {
		r.hook = hook
	}
}

// NewReceiver creates a receiver rooted at root.
func NewReceiver(root string, opts ...ReceiverOption) *Receiver {
	r := &Receiver{
		root:       root,
		dirMode:    DefaultDirMode,
		fileMode:   DefaultFileMode,
		bufferSize: limits.DefaultBufferSize,
		diskUsage:  disk.Usage,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Root returns the destination root directory.
func (r *Receiver) Root() string {
	return r.root
}

// DestinationPath returns where a file named name from peerID is stored.
// The name is used as sent; separators in it create subdirectories.
func (r *Receiver) DestinationPath(peerID, name string) string {
	return filepath.Join(r.root, peerID, name)
}

// Receive reads one header and body from conn and writes the body to the
// destination path for peerID. A file left behind by a failed transfer is
// not removed.
func (r *Receiver) Receive(conn io.Reader, peerID string) (*Transfer, error) {
	if peerID == "" {
		return nil, fmt.Errorf("%w: empty peer identifier", transport.ErrInvalidInput)
	}

	header, err := transport.DecodeHeader(conn)
	if err != nil {
		if !errors.Is(err, transport.ErrProtocol) {
			err = fmt.Errorf("%w: %w", transport.ErrProtocol, err)
		}
		logrus.WithFields(logrus.Fields{
			"function": "Receive",
			"peer":     peerID,
			"error":    err.Error(),
		}).Error("Failed to read transfer header")
		return nil, err
	}

	dest := r.DestinationPath(peerID, header.Name)
	transfer := NewTransfer(TransferDirectionIncoming, header.Name, uint64(header.Size), peerID)
	transfer.Path = dest
	if r.hook != nil {
		r.hook(transfer)
	}

	fields := transfer.logFields("Receive")
	fields["path"] = dest
	logrus.WithFields(fields).Info("Receiving file")

	out, err := r.createDestination(dest, uint64(header.Size))
	if err != nil {
		err = fmt.Errorf("%w: %w", transport.ErrDestinationUnavailable, err)
		r.fail(transfer, err)
		return transfer, err
	}

	transfer.start()
	_, pumpErr := transport.PumpWithProgress(out, conn, int64(header.Size), r.bufferSize, transfer.update)
	closeErr := out.Close()

	if pumpErr != nil {
		if !errors.Is(pumpErr, transport.ErrTransferFailed) {
			pumpErr = fmt.Errorf("%w: %w", transport.ErrTransferFailed, pumpErr)
		}
		r.fail(transfer, pumpErr)
		return transfer, pumpErr
	}
	if closeErr != nil {
		err = fmt.Errorf("%w: closing %s: %w", transport.ErrTransferFailed, dest, closeErr)
		r.fail(transfer, err)
		return transfer, err
	}

	transfer.finish(nil)

	fields = transfer.logFields("Receive")
	fields["path"] = dest
	fields["duration"] = transfer.Duration()
	logrus.WithFields(fields).Info("File received")

	return transfer, nil
}

// createDestination provisions the parent directory and opens dest for
// writing, truncating any previous file.
func (r *Receiver) createDestination(dest string, size uint64) (*os.File, error) {
	dir := filepath.Dir(dest)
	if err := EnsureDirectory(dir, r.dirMode); err != nil {
		return nil, fmt.Errorf("provisioning %s: %w", dir, err)
	}

	if r.checkSpace {
		if err := r.checkFreeSpace(dir, size); err != nil {
			return nil, err
		}
	}

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, r.fileMode)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// checkFreeSpace verifies the volume holding dir can take size more bytes
// while keeping the configured reserve.
func (r *Receiver) checkFreeSpace(dir string, size uint64) error {
	usage, err := r.diskUsage(dir)
	if err != nil {
		return fmt.Errorf("checking free space on %s: %w", dir, err)
	}

	needed := size + r.reserveBytes
	if usage.Free < needed {
		logrus.WithFields(logrus.Fields{
			"function":   "checkFreeSpace",
			"path":       dir,
			"free_bytes": usage.Free,
			"needed":     needed,
		}).Warn("Insufficient disk space for transfer")
		return fmt.Errorf("insufficient space on %s: %d bytes free, %d needed", dir, usage.Free, needed)
	}
	return nil
}

// fail records err on the transfer and logs it.
func (r *Receiver) fail(transfer *Transfer, err error) {
	fields := transfer.logFields("Receive")
	fields["path"] = transfer.Path
	fields["transferred"] = transfer.GetTransferred()
	fields["error"] = err.Error()
	logrus.WithFields(fields).Error("File receive failed")
	transfer.finish(err)
}
