// Package server implements the kilnd daemon.
//
// The daemon listens on a Unix domain socket for JSON-encoded operations
// from clients. Each connection carries a single request-response
// exchange: the client sends a newline-delimited JSON envelope, the
// server dispatches the operation, and writes the result back before
// closing the connection.
//
// Engine operations are delegated to the router package, which owns the
// mapping from operation names to the image, isolation, runtime, network,
// and storage subsystems. The server itself handles only the daemon-level
// status and shutdown operations.
//
// Example usage:
//
//	srv, err := server.New(server.Config{
//	    DataDir: "/var/lib/kilnd",
//	})
//	if err != nil {
//	    return err
//	}
//
//	if err := srv.Start(); err != nil {
//	    return err
//	}
//	defer srv.Stop()
//
//	srv.Wait()
package server
