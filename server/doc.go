// Package server runs the receiving side of filepush: it accepts TCP
// connections one at a time and stores the single file each one carries
// under a directory named for the connecting peer's IP address.
//
//	listener, err := transport.Listen(":5000")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	srv := server.New(listener, file.NewReceiver("receivedFiles"))
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := srv.Serve(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// A failed transfer is logged and the loop moves on to the next connection.
// Cancelling ctx stops the loop at the next accept: a transfer already in
// progress runs to completion first. Serve then returns nil, and returns an
// error only when the listener itself fails.
package server
