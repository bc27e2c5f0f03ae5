package transport

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultDialTimeout bounds connection establishment only. Reads and writes
// on an established connection have no deadline.
const DefaultDialTimeout = 10 * time.Second

// Address joins a host and port into a dialable TCP address.
func Address(host string, port uint16) string {
	return net.JoinHostPort(host, strconv.Itoa(int(port)))
}

// Listen creates a TCP listener on listenAddr.
func Listen(listenAddr string) (net.Listener, error) {
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", listenAddr, err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Listen",
		"address":  listener.Addr().String(),
	}).Info("Listening for transfers")

	return listener, nil
}

// Dial opens a TCP connection to addr. A zero timeout uses DefaultDialTimeout.
func Dial(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}

	dialer := &net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", addr, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":    "Dial",
		"remote_addr": conn.RemoteAddr().String(),
		"local_addr":  conn.LocalAddr().String(),
	}).Debug("Connected")

	return conn, nil
}
