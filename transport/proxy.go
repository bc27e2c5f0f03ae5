package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/proxy"
)

// ProxyConfig describes an outbound proxy for the sending side.
type ProxyConfig struct {
	Type     string // "socks5" or "http"
	Host     string
	Port     uint16
	Username string
	Password string
}

// Addr returns the proxy's host:port.
func (c *ProxyConfig) Addr() string {
	return Address(c.Host, c.Port)
}

// ParseProxyURL parses socks5://[user:pass@]host:port or
// http://[user:pass@]host:port. An empty string means no proxy.
func ParseProxyURL(raw string) (*ProxyConfig, error) {
	if raw == "" {
		return nil, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL: %w", err)
	}

	switch u.Scheme {
	case "socks5", "http":
	default:
		return nil, fmt.Errorf("unsupported proxy type: %s (must be 'socks5' or 'http')", u.Scheme)
	}

	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("proxy URL %q has no host", raw)
	}
	port, err := strconv.ParseUint(u.Port(), 10, 16)
	if err != nil || port == 0 {
		return nil, fmt.Errorf("proxy URL %q needs a port", raw)
	}

	cfg := &ProxyConfig{
		Type: u.Scheme,
		Host: host,
		Port: uint16(port),
	}
	if u.User != nil {
		cfg.Username = u.User.Username()
		cfg.Password, _ = u.User.Password()
	}
	return cfg, nil
}

// Dialer opens outbound transfer connections, directly or through a proxy.
type Dialer struct {
	timeout     time.Duration
	proxyType   string
	proxyAddr   string
	proxyDialer proxy.ContextDialer
}

// NewDialer creates a dialer. A zero timeout uses DefaultDialTimeout; a nil
// proxyCfg dials directly.
func NewDialer(timeout time.Duration, proxyCfg *ProxyConfig) (*Dialer, error) {
	if timeout <= 0 {
		timeout = DefaultDialTimeout
	}
	d := &Dialer{timeout: timeout}
	if proxyCfg == nil {
		return d, nil
	}

	d.proxyType = proxyCfg.Type
	d.proxyAddr = proxyCfg.Addr()
	forward := &net.Dialer{Timeout: timeout}

	switch proxyCfg.Type {
	case "socks5":
		var auth *proxy.Auth
		if proxyCfg.Username != "" || proxyCfg.Password != "" {
			auth = &proxy.Auth{
				User:     proxyCfg.Username,
				Password: proxyCfg.Password,
			}
		}

		socks, err := proxy.SOCKS5("tcp", d.proxyAddr, auth, forward)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		contextDialer, ok := socks.(proxy.ContextDialer)
		if !ok {
			return nil, errors.New("SOCKS5 dialer does not support contexts")
		}
		d.proxyDialer = contextDialer

	case "http":
		proxyURL := &url.URL{Scheme: "http", Host: d.proxyAddr}
		if proxyCfg.Username != "" {
			if proxyCfg.Password != "" {
				proxyURL.User = url.UserPassword(proxyCfg.Username, proxyCfg.Password)
			} else {
				proxyURL.User = url.User(proxyCfg.Username)
			}
		}
		d.proxyDialer = &httpProxyDialer{proxyURL: proxyURL, forward: forward, timeout: timeout}

	default:
		return nil, fmt.Errorf("unsupported proxy type: %s (must be 'socks5' or 'http')", proxyCfg.Type)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "NewDialer",
		"proxy_type": d.proxyType,
		"proxy_addr": d.proxyAddr,
	}).Info("Proxy configured")

	return d, nil
}

// DialContext connects to addr.
func (d *Dialer) DialContext(ctx context.Context, addr string) (net.Conn, error) {
	if d.proxyDialer == nil {
		return Dial(ctx, addr, d.timeout)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	conn, err := d.proxyDialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"function":   "DialContext",
			"address":    addr,
			"proxy_type": d.proxyType,
			"proxy_addr": d.proxyAddr,
			"error":      err.Error(),
		}).Error("Failed to dial via proxy")
		return nil, fmt.Errorf("connect to %s via %s proxy: %w", addr, d.proxyType, err)
	}

	logrus.WithFields(logrus.Fields{
		"function":   "DialContext",
		"address":    addr,
		"proxy_type": d.proxyType,
		"local_addr": conn.LocalAddr().String(),
	}).Debug("Connected via proxy")

	return conn, nil
}

// httpProxyDialer tunnels TCP through an HTTP CONNECT proxy.
type httpProxyDialer struct {
	proxyURL *url.URL
	forward  *net.Dialer
	timeout  time.Duration
}

// Dial implements proxy.Dialer.
func (d *httpProxyDialer) Dial(network, addr string) (net.Conn, error) {
	return d.DialContext(context.Background(), network, addr)
}

// DialContext implements proxy.ContextDialer.
func (d *httpProxyDialer) DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	if network != "tcp" {
		return nil, fmt.Errorf("HTTP CONNECT proxy only supports TCP, got: %s", network)
	}

	proxyConn, err := d.forward.DialContext(ctx, "tcp", d.proxyURL.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to proxy: %w", err)
	}

	connectReq := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: addr},
		Host:   addr,
		Header: make(http.Header),
	}
	if d.proxyURL.User != nil {
		password, _ := d.proxyURL.User.Password()
		connectReq.SetBasicAuth(d.proxyURL.User.Username(), password)
	}

	if err := connectReq.Write(proxyConn); err != nil {
		proxyConn.Close()
		return nil, fmt.Errorf("failed to write CONNECT request: %w", err)
	}

	if err := proxyConn.SetReadDeadline(time.Now().Add(d.timeout)); err != nil {
		proxyConn.Close()
		return nil, fmt.Errorf("failed to set read deadline: %w", err)
	}

	// the receiver never talks first, so nothing past the response is buffered
	resp, err := http.ReadResponse(bufio.NewReader(proxyConn), connectReq)
	if err != nil {
		proxyConn.Close()
		return nil, fmt.Errorf("failed to read CONNECT response: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		proxyConn.Close()
		return nil, fmt.Errorf("proxy returned non-200 status: %s", resp.Status)
	}

	if err := proxyConn.SetReadDeadline(time.Time{}); err != nil {
		proxyConn.Close()
		return nil, fmt.Errorf("failed to clear read deadline: %w", err)
	}

	return proxyConn, nil
}
