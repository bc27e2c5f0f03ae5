// Package file implements the two ends of a file push: a Sender that writes
// one file's header and body to a connected stream, and a Receiver that reads
// them back and stores the file under a per-peer directory.
//
// # Sending
//
//	conn, err := transport.Dial(ctx, "203.0.113.10:5000", 0)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer conn.Close()
//
//	sender := file.NewSender(file.WithSendBufferSize(64 * 1024))
//	transfer, err := sender.SendFile("notes.txt", conn)
//
// The name on the wire is the path as given, so sending "docs/notes.txt"
// recreates the docs directory on the receiver.
//
// # Receiving
//
//	receiver := file.NewReceiver("/srv/incoming")
//	transfer, err := receiver.Receive(conn, "203.0.113.5")
//	// stored at /srv/incoming/203.0.113.5/notes.txt
//
// Files are namespaced by peer identifier, so two peers sending the same
// name never collide. Names are not sanitised: the protocol trusts its peers.
// A failed receive leaves whatever was written in place.
//
// # Directory Provisioning
//
// EnsureDirectory behaves like "mkdir -p": it walks the path from the root
// down, creates what is missing and accepts what already exists. A concurrent
// creator winning the race is not an error.
//
// # Transfer Records
//
// Each send or receive produces a Transfer carrying a unique ID, state,
// byte counts and speed. Hooks registered with WithSendHook and
// WithReceiveHook see the record before the body moves:
//
//	receiver := file.NewReceiver(root, file.WithReceiveHook(func(t *file.Transfer) {
//	    t.OnProgress(func(n uint64) {
//	        fmt.Printf("%s: %.1f%%\n", t.FileName, t.GetProgress())
//	    })
//	}))
//
// # Errors
//
// Errors wrap the sentinels defined in the transport package:
//
//   - transport.ErrSourceUnavailable: the source cannot be opened or stat'd
//   - transport.ErrProtocol: the header cannot be encoded or decoded
//   - transport.ErrDestinationUnavailable: directory or file creation failed
//   - transport.ErrTransferFailed: the body was not moved in full
//
// Neither side retries.
package file
