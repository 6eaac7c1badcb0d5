// Package transport defines the pluggable duplex byte channel the session
// engine drives: it knows nothing about MQTT, only about moving bytes in
// and out of an open connection.
package transport

// Events is the callback surface a Transport uses to report activity back
// to its owner. All methods may be called concurrently with each other and
// with Transport methods; implementations of Events must be safe for that
// (the session engine's implementation posts everything onto its own
// serial domain).
type Events interface {
	// Started is called once the underlying connection is open and ready
	// to accept writes.
	Started()

	// BytesIn delivers a chunk of bytes read from the connection. Chunks
	// are not packet-aligned; the caller is responsible for framing.
	BytesIn(chunk []byte)

	// Closed is called exactly once, when the connection has ended for
	// any reason (peer close, read/write error, or a call to Stop). err
	// is nil only when Stop was called and the connection closed
	// cleanly.
	Closed(err error)
}

// Transport is a duplex byte channel to a broker. Start, Write and Stop may
// be called from any goroutine, but the session engine built on top of
// this package never calls Write concurrently with itself — callers that
// share a Transport across goroutines must serialize their own writes.
type Transport interface {
	// Start opens the connection (or begins using an already-open one)
	// and begins delivering events. It returns once the dial attempt has
	// been launched; Events.Started (or Events.Closed on failure) report
	// the outcome asynchronously.
	Start(events Events) error

	// Write sends chunk. Writes are not buffered across calls: each Write
	// call corresponds to bytes handed to the connection in that order.
	Write(chunk []byte) error

	// Stop closes the connection. Events.Closed(nil) follows.
	Stop() error
}
