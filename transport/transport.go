// Package transport provides the byte-level link underneath a CRTP
// connection. It generalizes the teacher's SerDev interface
// (stronnag-msp-go/msp.go) from an MSP-flavored serial device into a
// protocol-agnostic read/write/close seam.
package transport

import (
	"fmt"
	"time"

	serial "github.com/albenik/go-serial/v2"
)

// Transport is anything a link dispatcher can read bytes from and write
// bytes to. Grounded on stronnag-msp-go's SerDev interface.
type Transport interface {
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
	Close() error
}

// PortLister enumerates candidate device names for Scan. Kept as a
// caller-supplied seam rather than hard-wiring an enumeration library:
// spec.md places port scanning outside the client's own responsibility.
type PortLister interface {
	List() ([]string, error)
}

// Scan implements spec.md §6's scan() operation, returning every serial
// device albenik/go-serial/v2 can enumerate on the host.
func Scan() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("transport: scan: %w", err)
	}
	return ports, nil
}

type serialPortLister struct{}

func (serialPortLister) List() ([]string, error) { return Scan() }

// DefaultPortLister is the PortLister backed by Scan.
var DefaultPortLister PortLister = serialPortLister{}

// SerialTransport opens a USB-radio-class dongle exposed as a serial
// device, mirroring stronnag-msp-go's serial.Open call in NewMSPSerial.
type SerialTransport struct {
	port *serial.Port
}

// OpenSerial opens dev at baud with a short first-byte read timeout so the
// dispatcher's 1ms-timeout receive loop (spec.md §4.2) never blocks
// indefinitely.
func OpenSerial(dev string, baud int) (*SerialTransport, error) {
	p, err := serial.Open(dev, serial.WithBaudrate(baud), serial.WithReadTimeout(1))
	if err != nil {
		return nil, fmt.Errorf("transport: open %s: %w", dev, err)
	}
	p.SetFirstByteReadTimeout(uint32((100 * time.Millisecond).Milliseconds()))
	return &SerialTransport{port: p}, nil
}

func (s *SerialTransport) Read(buf []byte) (int, error)  { return s.port.Read(buf) }
func (s *SerialTransport) Write(buf []byte) (int, error) { return s.port.Write(buf) }
func (s *SerialTransport) Close() error                  { return s.port.Close() }
