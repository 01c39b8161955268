package server

// Server is the lifecycle contract for the transport servers this package
// manages.
//
// RunServer blocks until shutdown is requested; Shutdown releases the
// listener and drains in-flight requests.
type Server interface {
	// RunServer starts serving and blocks until the server stops.
	RunServer()

	// Shutdown gracefully stops the server.
	Shutdown()
}
