package file

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"

	"github.com/opd-ai/filepush/limits"
	"github.com/opd-ai/filepush/transport"
	"github.com/sirupsen/logrus"
)

// Source is a readable local file whose size can be obtained. *os.File
// satisfies it.
type Source interface {
	io.Reader
	Stat() (fs.FileInfo, error)
}

// Sender pushes one file per call over an already connected stream.
type Sender struct {
	bufferSize int
	hook       func(*Transfer)
}

// SenderOption configures a Sender.
type SenderOption func(*Sender)

// WithSendBufferSize sets the pump buffer capacity.
func WithSendBufferSize(n int) SenderOption {
	return func(s *Sender) {
		s.bufferSize = n
	}
}

// WithSendHook registers a function called with each transfer before any
// bytes are written, so callers can attach progress callbacks.
func WithSendHook(hook func(*Transfer)) SenderOption {
	return func(s *Sender) {
		s.hook = hook
	}
}

// NewSender creates a sender using limits.DefaultBufferSize unless configured.
func NewSender(opts ...SenderOption) *Sender {
	s := &Sender{bufferSize: limits.DefaultBufferSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendFile opens path, sends it under the name path, and closes it again.
func (s *Sender) SendFile(path string, conn io.Writer) (*Transfer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", transport.ErrSourceUnavailable, err)
	}
	defer f.Close()

	return s.Send(f, path, conn)
}

// Send writes the header for src under name, then exactly the file's size in
// body bytes. Header validation happens before anything touches conn, so an
// invalid name or size never produces partial output. There is no retry.
func (s *Sender) Send(src Source, name string, conn io.Writer) (*Transfer, error) {
	info, err := src.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", transport.ErrSourceUnavailable, name, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", transport.ErrSourceUnavailable, name)
	}

	size := info.Size()
	header, err := transport.EncodeHeader(name, size)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":  "Send",
			"file_name": truncateForLog(name),
			"name_len":  len(name),
			"file_size": size,
			"error":     err.Error(),
		}).Error("Cannot encode transfer header")
		return nil, fmt.Errorf("%w: %w", transport.ErrProtocol, err)
	}

	transfer := NewTransfer(TransferDirectionOutgoing, name, uint64(size), remotePeer(conn))
	transfer.Path = name
	if s.hook != nil {
		s.hook(transfer)
	}

	logrus.WithFields(transfer.logFields("Send")).Info("Sending file")

	if _, err := transport.WriteFull(conn, header); err != nil {
		err = fmt.Errorf("%w: writing header: %w", transport.ErrTransferFailed, err)
		transfer.finish(err)
		return transfer, err
	}

	transfer.start()
	_, err = transport.PumpWithProgress(conn, src, size, s.bufferSize, transfer.update)
	if err != nil {
		if !errors.Is(err, transport.ErrTransferFailed) {
			err = fmt.Errorf("%w: %w", transport.ErrTransferFailed, err)
		}
		fields := transfer.logFields("Send")
		fields["transferred"] = transfer.GetTransferred()
		fields["error"] = err.Error()
		logrus.WithFields(fields).Error("File send failed")
		transfer.finish(err)
		return transfer, err
	}

	transfer.finish(nil)

	fields := transfer.logFields("Send")
	fields["duration"] = transfer.Duration()
	logrus.WithFields(fields).Info("File sent")

	return transfer, nil
}

// remotePeer names the far end of conn for logs when it is a network connection.
func remotePeer(conn io.Writer) string {
	if c, ok := conn.(net.Conn); ok && c.RemoteAddr() != nil {
		return c.RemoteAddr().String()
	}
	return ""
}

// truncateForLog keeps absurdly long names out of log lines.
func truncateForLog(name string) string {
	const maxLogName = 128
	if len(name) <= maxLogName {
		return name
	}
	return name[:maxLogName] + "..."
}
