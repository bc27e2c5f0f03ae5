package transport

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/opd-ai/filepush/limits"
	"github.com/sirupsen/logrus"
)

const (
	// nameLengthSize is the width of the filename length field.
	nameLengthSize = 2
	// fileSizeSize is the width of the file size field.
	fileSizeSize = 4
)

// Header is the metadata block that precedes a file body on the wire.
type Header struct {
	Name string
	Size uint32
}

// EncodedLen returns the number of bytes the header occupies on the wire.
func (h *Header) EncodedLen() int {
	return nameLengthSize + len(h.Name) + fileSizeSize
}

// EncodeHeader serializes a transfer header as
// [name length (2 bytes)][name][file size (4 bytes)], big-endian.
func EncodeHeader(name string, size int64) ([]byte, error) {
	if err := limits.ValidateFileName(name); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	if err := limits.ValidateFileSize(size); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	buf := make([]byte, 0, nameLengthSize+len(name)+fileSizeSize)
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(name)))
	buf = append(buf, name...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(size))
	return buf, nil
}

// WriteHeader encodes the header and writes all of it to w.
// Nothing is written when encoding fails.
func WriteHeader(w io.Writer, name string, size int64) error {
	data, err := EncodeHeader(name, size)
	if err != nil {
		return err
	}

	if _, err := WriteFull(w, data); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "WriteHeader",
		"file_name":   name,
		"file_size":   size,
		"header_size": len(data),
	}).Debug("Transfer header written")

	return nil
}

// DecodeHeader reads one transfer header from r. Each field is read in full,
// so short reads from a socket are accumulated rather than misparsed.
func DecodeHeader(r io.Reader) (*Header, error) {
	var lenBuf [nameLengthSize]byte
	if err := readField(r, lenBuf[:], "filename length"); err != nil {
		return nil, err
	}

	nameLen := binary.BigEndian.Uint16(lenBuf[:])
	if nameLen == 0 {
		return nil, fmt.Errorf("%w: zero filename length", ErrProtocol)
	}

	name := make([]byte, nameLen)
	if err := readField(r, name, "filename"); err != nil {
		return nil, err
	}

	var sizeBuf [fileSizeSize]byte
	if err := readField(r, sizeBuf[:], "file size"); err != nil {
		return nil, err
	}

	header := &Header{
		Name: string(name),
		Size: binary.BigEndian.Uint32(sizeBuf[:]),
	}

	logrus.WithFields(logrus.Fields{
		"function":  "DecodeHeader",
		"file_name": header.Name,
		"file_size": header.Size,
	}).Debug("Transfer header decoded")

	return header, nil
}

// readField fills buf completely or reports how far it got.
func readField(r io.Reader, buf []byte, field string) error {
	n, err := io.ReadFull(r, buf)
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("%w: %s: got %d of %d bytes", ErrTruncatedStream, field, n, len(buf))
	}
	return fmt.Errorf("reading %s: %w", field, err)
}
