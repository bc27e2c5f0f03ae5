package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/opd-ai/filepush/file"
	"github.com/sirupsen/logrus"
)

// State describes what the accept loop is doing.
type State int32

const (
	// StateIdle means Serve has not been called or has returned.
	StateIdle State = iota
	// StateAccepting means the loop is blocked waiting for a connection.
	StateAccepting
	// StateServing means a connection is being received.
	StateServing
)

// String returns the state name used in logs.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAccepting:
		return "accepting"
	case StateServing:
		return "serving"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// TransferFunc observes the outcome of each accepted connection. The
// transfer is nil when the header could not be read.
type TransferFunc func(*file.Transfer, error)

// Server accepts connections on a listener and hands each one to a
// Receiver. Connections are handled sequentially.
type Server struct {
	listener net.Listener
	receiver *file.Receiver

	state atomic.Int32

	mu         sync.Mutex
	onTransfer TransferFunc
}

// New creates a server that receives on listener into receiver. The server
// takes ownership of the listener and closes it when Serve returns.
func New(listener net.Listener, receiver *file.Receiver) *Server {
	return &Server{
		listener: listener,
		receiver: receiver,
	}
}

// Addr returns the listener's network address.
func (s *Server) Addr() net.Addr {
	return s.listener.Addr()
}

// State reports the current loop state.
func (s *Server) State() State {
	return State(s.state.Load())
}

// OnTransfer sets a callback invoked after every accepted connection has
// been handled and closed.
func (s *Server) OnTransfer(fn TransferFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTransfer = fn
}

// Serve accepts connections until ctx is cancelled or the listener fails.
// Cancelling ctx closes the listener only: a transfer already being served
// runs to completion or to I/O failure before Serve returns nil. Any accept
// error not caused by cancellation is returned. A failure on one connection
// never stops the loop.
func (s *Server) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		s.listener.Close()
	})
	defer func() {
		stop()
		s.listener.Close()
		s.state.Store(int32(StateIdle))
	}()

	logrus.WithFields(logrus.Fields{
		"function": "Serve",
		"address":  s.listener.Addr().String(),
		"root":     s.receiver.Root(),
	}).Info("Server started")

	for {
		s.state.Store(int32(StateAccepting))
		conn, err := s.listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logrus.WithFields(logrus.Fields{
					"function": "Serve",
				}).Info("Server stopped")
				return nil
			}

			logrus.WithFields(logrus.Fields{
				"function": "Serve",
				"error":    err.Error(),
			}).Error("Accept failed")
			return fmt.Errorf("accept: %w", err)
		}

		s.state.Store(int32(StateServing))
		s.handle(conn)
	}
}

// handle receives one transfer from conn and always closes it.
func (s *Server) handle(conn net.Conn) {
	peer := PeerIdentifier(conn.RemoteAddr())

	logrus.WithFields(logrus.Fields{
		"function":    "handle",
		"peer":        peer,
		"remote_addr": conn.RemoteAddr().String(),
	}).Info("Accepted connection")

	transfer, err := s.receiver.Receive(conn, peer)

	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "handle",
			"peer":     peer,
			"error":    err.Error(),
		}).Warn("Transfer failed")
	}

	if closeErr := conn.Close(); closeErr != nil && !errors.Is(closeErr, net.ErrClosed) {
		logrus.WithFields(logrus.Fields{
			"function": "handle",
			"peer":     peer,
			"error":    closeErr.Error(),
		}).Debug("Close failed")
	}

	logrus.WithFields(logrus.Fields{
		"function": "handle",
		"peer":     peer,
	}).Info("Closing connection")

	s.mu.Lock()
	fn := s.onTransfer
	s.mu.Unlock()
	if fn != nil {
		fn(transfer, err)
	}
}
