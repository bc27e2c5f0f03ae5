package file

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// TransferDirection indicates whether a transfer is incoming or outgoing.
type TransferDirection uint8

const (
	// TransferDirectionIncoming represents a file being received.
	TransferDirectionIncoming TransferDirection = iota
	// TransferDirectionOutgoing represents a file being sent.
	TransferDirectionOutgoing
)

// String returns the direction name used in logs.
func (d TransferDirection) String() string {
	switch d {
	case TransferDirectionIncoming:
		return "incoming"
	case TransferDirectionOutgoing:
		return "outgoing"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// TransferState represents the current state of a file transfer.
type TransferState uint8

const (
	// TransferStatePending indicates the header has not been exchanged yet.
	TransferStatePending TransferState = iota
	// TransferStateRunning indicates the body is being pumped.
	TransferStateRunning
	// TransferStateCompleted indicates every declared byte was moved.
	TransferStateCompleted
	// TransferStateError indicates the transfer failed.
	TransferStateError
)

// String returns the state name used in logs.
func (s TransferState) String() string {
	switch s {
	case TransferStatePending:
		return "pending"
	case TransferStateRunning:
		return "running"
	case TransferStateCompleted:
		return "completed"
	case TransferStateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

// TimeProvider abstracts time operations for deterministic testing.
type TimeProvider interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// DefaultTimeProvider uses the standard library time functions.
type DefaultTimeProvider struct{}

// Now returns the current time.
func (DefaultTimeProvider) Now() time.Time { return time.Now() }

// Since returns the duration since t.
func (DefaultTimeProvider) Since(t time.Time) time.Duration { return time.Since(t) }

var defaultTimeProvider TimeProvider = DefaultTimeProvider{}

// Transfer tracks one file moving over one connection. It is created fresh
// per transfer and is not reused.
type Transfer struct {
	ID          uuid.UUID
	Direction   TransferDirection
	FileName    string
	FileSize    uint64
	Peer        string
	Path        string
	State       TransferState
	StartTime   time.Time
	EndTime     time.Time
	Transferred uint64
	Error       error

	progressCallback func(uint64)
	completeCallback func(error)

	mu            sync.Mutex
	lastChunkTime time.Time
	transferSpeed float64 // bytes per second
	timeProvider  TimeProvider
}

// NewTransfer creates a pending transfer record.
func NewTransfer(direction TransferDirection, fileName string, fileSize uint64, peer string) *Transfer {
	tp := defaultTimeProvider
	transfer := &Transfer{
		ID:            uuid.New(),
		Direction:     direction,
		FileName:      fileName,
		FileSize:      fileSize,
		Peer:          peer,
		State:         TransferStatePending,
		lastChunkTime: tp.Now(),
		timeProvider:  tp,
	}

	logrus.WithFields(transfer.logFields("NewTransfer")).Debug("Transfer created")

	return transfer
}

// SetTimeProvider sets a custom time provider for deterministic testing.
func (t *Transfer) SetTimeProvider(tp TimeProvider) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timeProvider = tp
	t.lastChunkTime = tp.Now()
}

// logFields returns the fields every transfer log line carries.
func (t *Transfer) logFields(function string) logrus.Fields {
	return logrus.Fields{
		"function":    function,
		"transfer_id": t.ID.String(),
		"direction":   t.Direction.String(),
		"peer":        t.Peer,
		"file_name":   t.FileName,
		"file_size":   t.FileSize,
	}
}

// start moves the transfer to Running once the header has been exchanged.
func (t *Transfer) start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.State = TransferStateRunning
	t.StartTime = t.timeProvider.Now()
	t.lastChunkTime = t.StartTime
}

// update records cumulative progress reported by the pump.
func (t *Transfer) update(transferred int64) {
	t.mu.Lock()
	delta := uint64(transferred) - t.Transferred
	t.Transferred = uint64(transferred)
	t.updateTransferSpeed(delta)
	callback := t.progressCallback
	t.mu.Unlock()

	if callback != nil {
		callback(uint64(transferred))
	}
}

// finish marks the transfer completed, or errored when err is non-nil.
func (t *Transfer) finish(err error) {
	t.mu.Lock()
	t.EndTime = t.timeProvider.Now()
	if err != nil {
		t.State = TransferStateError
		t.Error = err
	} else {
		t.State = TransferStateCompleted
	}
	callback := t.completeCallback
	t.mu.Unlock()

	if callback != nil {
		callback(err)
	}
}

// updateTransferSpeed calculates the current transfer speed. Callers hold t.mu.
func (t *Transfer) updateTransferSpeed(chunkSize uint64) {
	now := t.timeProvider.Now()
	duration := t.timeProvider.Since(t.lastChunkTime).Seconds()

	if duration > 0 {
		instantSpeed := float64(chunkSize) / duration

		// Exponential moving average with alpha = 0.3
		if t.transferSpeed == 0 {
			t.transferSpeed = instantSpeed
		} else {
			t.transferSpeed = 0.7*t.transferSpeed + 0.3*instantSpeed
		}
	}

	t.lastChunkTime = now
}

// OnProgress sets a callback invoked with the cumulative byte count after each chunk.
// This method is safe for concurrent use.
func (t *Transfer) OnProgress(callback func(uint64)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.progressCallback = callback
}

// OnComplete sets a callback invoked once when the transfer ends.
// This method is safe for concurrent use.
func (t *Transfer) OnComplete(callback func(error)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.completeCallback = callback
}

// GetState returns the current state.
func (t *Transfer) GetState() TransferState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.State
}

// GetTransferred returns the number of body bytes moved so far.
func (t *Transfer) GetTransferred() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Transferred
}

// GetProgress returns the current progress of the transfer as a percentage.
// A zero-byte transfer reports 100 once completed.
func (t *Transfer) GetProgress() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.FileSize == 0 {
		if t.State == TransferStateCompleted {
			return 100.0
		}
		return 0.0
	}

	return float64(t.Transferred) / float64(t.FileSize) * 100.0
}

// GetSpeed returns the current transfer speed in bytes per second.
func (t *Transfer) GetSpeed() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.transferSpeed
}

// Duration returns how long the body transfer ran. It is zero until the
// transfer started and measures up to now while it is still running.
func (t *Transfer) Duration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.StartTime.IsZero() {
		return 0
	}
	if t.EndTime.IsZero() {
		return t.timeProvider.Since(t.StartTime)
	}
	return t.EndTime.Sub(t.StartTime)
}
