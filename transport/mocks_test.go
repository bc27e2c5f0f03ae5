package transport

import (
	"errors"
	"io"
	"math/rand"
)

// partialReader returns at most chunkSize bytes per Read call.
type partialReader struct {
	data      []byte
	readPos   int
	chunkSize int
	readCalls int
}

func newPartialReader(data []byte, chunkSize int) *partialReader {
	return &partialReader{data: data, chunkSize: chunkSize}
}

func (p *partialReader) Read(b []byte) (int, error) {
	p.readCalls++

	remaining := len(p.data) - p.readPos
	if remaining == 0 {
		return 0, io.EOF
	}

	toRead := p.chunkSize
	if toRead > len(b) {
		toRead = len(b)
	}
	if toRead > remaining {
		toRead = remaining
	}

	n := copy(b, p.data[p.readPos:p.readPos+toRead])
	p.readPos += n
	return n, nil
}

// randomChunkReader returns a random number of bytes in [1, maxChunk] per call.
type randomChunkReader struct {
	data     []byte
	readPos  int
	maxChunk int
	rng      *rand.Rand
}

func newRandomChunkReader(data []byte, maxChunk int, seed int64) *randomChunkReader {
	return &randomChunkReader{
		data:     data,
		maxChunk: maxChunk,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (r *randomChunkReader) Read(b []byte) (int, error) {
	remaining := len(r.data) - r.readPos
	if remaining == 0 {
		return 0, io.EOF
	}

	n := 1 + r.rng.Intn(r.maxChunk)
	if n > len(b) {
		n = len(b)
	}
	if n > remaining {
		n = remaining
	}

	copy(b, r.data[r.readPos:r.readPos+n])
	r.readPos += n
	return n, nil
}

// eofWithDataReader returns its last bytes together with io.EOF.
type eofWithDataReader struct {
	data []byte
	done bool
}

func (r *eofWithDataReader) Read(b []byte) (int, error) {
	if r.done {
		return 0, io.EOF
	}
	n := copy(b, r.data)
	r.data = r.data[n:]
	if len(r.data) == 0 {
		r.done = true
		return n, io.EOF
	}
	return n, nil
}

// shortWriter accepts at most chunkSize bytes per Write without reporting an error.
type shortWriter struct {
	data       []byte
	chunkSize  int
	writeCalls int
}

func (w *shortWriter) Write(b []byte) (int, error) {
	w.writeCalls++
	n := len(b)
	if n > w.chunkSize {
		n = w.chunkSize
	}
	w.data = append(w.data, b[:n]...)
	return n, nil
}

// stalledWriter never accepts any bytes.
type stalledWriter struct {
	writeCalls int
}

func (w *stalledWriter) Write(b []byte) (int, error) {
	w.writeCalls++
	return 0, nil
}

var errDiskFull = errors.New("no space left on device")

// failingWriter fails once more than limit bytes have been written.
type failingWriter struct {
	data  []byte
	limit int
}

func (w *failingWriter) Write(b []byte) (int, error) {
	room := w.limit - len(w.data)
	if room <= 0 {
		return 0, errDiskFull
	}
	if len(b) > room {
		w.data = append(w.data, b[:room]...)
		return room, errDiskFull
	}
	w.data = append(w.data, b...)
	return len(b), nil
}

// countingWriter records every Write call and its size.
type countingWriter struct {
	sizes []int
	total int
}

func (w *countingWriter) Write(b []byte) (int, error) {
	w.sizes = append(w.sizes, len(b))
	w.total += len(b)
	return len(b), nil
}

// errReader always fails with err.
type errReader struct {
	err error
}

func (r *errReader) Read(b []byte) (int, error) {
	return 0, r.err
}
