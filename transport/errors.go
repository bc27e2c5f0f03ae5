package transport

import "errors"

var (
	// ErrInvalidInput indicates header fields outside protocol bounds, detected before sending.
	ErrInvalidInput = errors.New("invalid input")

	// ErrProtocol indicates a malformed or truncated header on the receive side.
	ErrProtocol = errors.New("protocol error")

	// ErrTruncatedStream indicates the stream closed before the expected byte count.
	ErrTruncatedStream = errors.New("truncated stream")

	// ErrSourceUnavailable indicates the local source file cannot be opened or stat'd.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrDestinationUnavailable indicates the destination cannot be provisioned or created.
	ErrDestinationUnavailable = errors.New("destination unavailable")

	// ErrTransferFailed indicates a body transfer that did not move exactly the declared size.
	ErrTransferFailed = errors.New("transfer failed")
)
