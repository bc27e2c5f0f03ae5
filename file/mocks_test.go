package file

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opd-ai/filepush/transport"
	"github.com/stretchr/testify/require"
)

// mockTimeProvider provides deterministic time for testing.
type mockTimeProvider struct {
	currentTime time.Time
}

func (m *mockTimeProvider) Now() time.Time {
	return m.currentTime
}

func (m *mockTimeProvider) Since(t time.Time) time.Duration {
	return m.currentTime.Sub(t)
}

func (m *mockTimeProvider) advance(d time.Duration) {
	m.currentTime = m.currentTime.Add(d)
}

func newMockTimeProvider() *mockTimeProvider {
	return &mockTimeProvider{
		currentTime: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// chunkReader delivers its data at most chunkSize bytes per Read.
type chunkReader struct {
	data      []byte
	chunkSize int
}

func (c *chunkReader) Read(b []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.chunkSize
	if n > len(b) {
		n = len(b)
	}
	if n > len(c.data) {
		n = len(c.data)
	}
	copy(b, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

// shortWriter accepts at most chunkSize bytes per Write.
type shortWriter struct {
	bytes.Buffer
	chunkSize  int
	writeCalls int
}

func (w *shortWriter) Write(b []byte) (int, error) {
	w.writeCalls++
	if len(b) > w.chunkSize {
		b = b[:w.chunkSize]
	}
	return w.Buffer.Write(b)
}

// fakeSource is a Source with a controllable Stat result.
type fakeSource struct {
	io.Reader
	info    fs.FileInfo
	statErr error
}

func (f *fakeSource) Stat() (fs.FileInfo, error) {
	return f.info, f.statErr
}

// fakeInfo is a minimal fs.FileInfo.
type fakeInfo struct {
	name  string
	size  int64
	isDir bool
}

func (f fakeInfo) Name() string       { return f.name }
func (f fakeInfo) Size() int64        { return f.size }
func (f fakeInfo) Mode() fs.FileMode  { return 0o644 }
func (f fakeInfo) ModTime() time.Time { return time.Time{} }
func (f fakeInfo) IsDir() bool        { return f.isDir }
func (f fakeInfo) Sys() any           { return nil }

var errBrokenPipe = errors.New("broken pipe")

// failWriter rejects every write.
type failWriter struct{}

func (failWriter) Write(b []byte) (int, error) {
	return 0, errBrokenPipe
}

// writeTempFile creates a file with content under dir.
func writeTempFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

// encodeTransfer builds the wire bytes for one transfer.
func encodeTransfer(t *testing.T, name string, body []byte) []byte {
	t.Helper()
	header, err := transport.EncodeHeader(name, int64(len(body)))
	require.NoError(t, err)
	return append(header, body...)
}
