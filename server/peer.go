package server

import "net"

// PeerIdentifier returns the textual IP address of addr with the port
// dropped: dotted quad for IPv4, canonical form for IPv6. Addresses that
// carry no IP are returned as-is.
func PeerIdentifier(addr net.Addr) string {
	if addr == nil {
		return "unknown"
	}

	switch a := addr.(type) {
	case *net.TCPAddr:
		if a.IP != nil {
			return a.IP.String()
		}
	case *net.UDPAddr:
		if a.IP != nil {
			return a.IP.String()
		}
	case *net.IPAddr:
		if a.IP != nil {
			return a.IP.String()
		}
	}

	if host, _, err := net.SplitHostPort(addr.String()); err == nil {
		if ip := net.ParseIP(host); ip != nil {
			return ip.String()
		}
	}

	return addr.String()
}
