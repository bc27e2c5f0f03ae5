// Package transport implements the wire layer of the file-push protocol: the
// transfer header codec, the reliable byte pump, and the TCP helpers that hand
// connected streams to the sender and receiver.
//
// # Wire Format
//
// Every connection carries exactly one transfer. All integers are big-endian:
//
//	+----------------+------------------+-------------+----------------+
//	| name length    | name             | file size   | body           |
//	| 2 bytes        | name length      | 4 bytes     | file size      |
//	+----------------+------------------+-------------+----------------+
//
// The name is not null-terminated and may contain '/' separators. A name
// length of zero is a protocol violation.
//
// # Header Codec
//
//	data, err := transport.EncodeHeader("notes.txt", 10)
//	// err wraps ErrInvalidInput for an empty or oversized name or size
//
//	header, err := transport.DecodeHeader(conn)
//	// err wraps ErrTruncatedStream if the peer closes mid-header
//
// # Byte Pump
//
// Pump moves an exact number of bytes between two streams. Stream sockets and
// large files routinely return short reads and short writes; Pump accumulates
// across both independently and never reports success unless every byte
// arrived:
//
//	n, err := transport.Pump(file, conn, int64(header.Size), limits.DefaultBufferSize)
//	if errors.Is(err, transport.ErrTruncatedStream) {
//	    // peer closed after n bytes
//	}
//
// The pump allocates one buffer per call, bounded by the configured capacity
// rather than the transfer size.
//
// # Connections
//
// Listen and Dial wrap plain TCP. A Dialer can route the sending side through
// a SOCKS5 or HTTP CONNECT proxy instead:
//
//	proxyCfg, err := transport.ParseProxyURL("socks5://127.0.0.1:1080")
//	dialer, err := transport.NewDialer(transport.DefaultDialTimeout, proxyCfg)
//	conn, err := dialer.DialContext(ctx, "203.0.113.10:5000")
//
// # Errors
//
// The package defines the protocol's error taxonomy as sentinel errors:
//
//	var (
//	    ErrInvalidInput            // header fields violate protocol bounds
//	    ErrProtocol                // malformed or truncated header on receive
//	    ErrTruncatedStream         // transport closed before the expected count
//	    ErrSourceUnavailable       // local source file cannot be opened or stat'd
//	    ErrDestinationUnavailable  // destination directory or file cannot be created
//	    ErrTransferFailed          // body pump did not move exactly the declared size
//	)
//
// Errors are wrapped with context and may match more than one sentinel; a
// header truncated on receive matches both ErrProtocol and ErrTruncatedStream.
//
// # Thread Safety
//
// Nothing in this package keeps shared state. Codec and pump calls operate on
// the streams they are given and must not be run concurrently on the same
// stream.
package transport
