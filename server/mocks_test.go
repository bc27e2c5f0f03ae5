package server

import (
	"net"
	"sync"
)

// addrConn overrides the remote address of a wrapped connection.
type addrConn struct {
	net.Conn
	remote net.Addr
}

func (c *addrConn) RemoteAddr() net.Addr {
	return c.remote
}

// fakeListener hands out queued connections and errors.
type fakeListener struct {
	accepts chan acceptResult
	closed  chan struct{}
	once    sync.Once
}

type acceptResult struct {
	conn net.Conn
	err  error
}

func newFakeListener() *fakeListener {
	return &fakeListener{
		accepts: make(chan acceptResult, 16),
		closed:  make(chan struct{}),
	}
}

func (l *fakeListener) Accept() (net.Conn, error) {
	select {
	case r := <-l.accepts:
		return r.conn, r.err
	case <-l.closed:
		return nil, net.ErrClosed
	}
}

func (l *fakeListener) Close() error {
	l.once.Do(func() { close(l.closed) })
	return nil
}

func (l *fakeListener) Addr() net.Addr {
	return &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5000}
}

// push queues a connection from ip and returns the client end.
func (l *fakeListener) push(ip string) net.Conn {
	client, srv := net.Pipe()
	l.accepts <- acceptResult{conn: &addrConn{
		Conn:   srv,
		remote: &net.TCPAddr{IP: net.ParseIP(ip), Port: 40000},
	}}
	return client
}

func (l *fakeListener) fail(err error) {
	l.accepts <- acceptResult{err: err}
}

// timeoutError is a net.Error reporting a timeout.
type timeoutError struct{}

func (timeoutError) Error() string   { return "accept timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// stringAddr is a net.Addr without an IP.
type stringAddr string

func (a stringAddr) Network() string { return "unix" }
func (a stringAddr) String() string  { return string(a) }
