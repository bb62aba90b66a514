package crazyflie

import "fmt"

// TransportError wraps a failure from the underlying Transport (open,
// read, write, close).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport: %s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolTimeout indicates the platform version handshake got no reply
// within its fixed boot window. The link's 3-consecutive-second timeout
// rule is reported through Dispatcher.OnTimeout, not through this type.
// There are no per-request timeouts; disconnect is the only cancellation
// mechanism.
type ProtocolTimeout struct {
	What string
}

func (e *ProtocolTimeout) Error() string { return fmt.Sprintf("protocol timeout: %s", e.What) }

// SchemaError indicates a TOC element did not parse into a well-formed
// schema entry, or a name or id did not resolve against the loaded TOC
// (unknown variable or parameter, missing block, TOC not yet loaded,
// read-only parameter). Malformed cache files do not produce it; they are
// a cache miss.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string { return fmt.Sprintf("schema error: %s", e.Reason) }

// ResourceExceeded indicates a fixed protocol limit was hit: MAX_BLOCKS,
// MAX_VARIABLES, or the 26-byte per-block payload budget.
type ResourceExceeded struct {
	Resource string
	Limit    int
}

func (e *ResourceExceeded) Error() string {
	return fmt.Sprintf("resource exceeded: %s (limit %d)", e.Resource, e.Limit)
}

// Errno mirrors the small subset of device errno values the protocol
// defines over the wire.
type Errno uint8

const (
	ErrnoOK     Errno = 0
	ErrnoEEXIST Errno = 17
	ErrnoENOENT Errno = 2
)

// DeviceError is an errno-coded failure. Log.AddBlock returns one with
// ErrnoEEXIST when a block already exists at the requested id; errno
// values the vehicle reports in settings acks are recorded on the block
// instead.
type DeviceError struct {
	Op    string
	Errno Errno
}

func (e *DeviceError) Error() string { return fmt.Sprintf("device error: %s: errno %d", e.Op, e.Errno) }

// CacheIOError indicates a TOC cache file could not be read or written on
// disk. It never surfaces a parse/format error; malformed cache contents
// are treated as a cache miss, not an error (see DESIGN.md open question 2).
type CacheIOError struct {
	Path string
	Err  error
}

func (e *CacheIOError) Error() string { return fmt.Sprintf("cache io error: %s: %v", e.Path, e.Err) }
func (e *CacheIOError) Unwrap() error { return e.Err }
