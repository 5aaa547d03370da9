package vmc

import (
	"time"
)

// Transport is the byte-level half-duplex serial link to the control
// board. Implementations must be safe for use by one exchange at a time;
// the engine owns the serialization lock.
type Transport interface {
	Open(path string, baud int) error
	Close() error
	Connected() bool

	// Send transmits one encoded frame.
	Send(bs []byte) error

	// Receive returns one complete inbound frame, or (nil, nil) when no
	// frame arrived within timeout.
	Receive(timeout time.Duration) ([]byte, error)

	// SetObserver installs a tap on raw inbound bytes.
	SetObserver(fn func(bs []byte))

	ClearBuffers() error
}
