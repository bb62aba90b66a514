package crazyflie

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyharvill/gocrazyflie/telemetry"
)

// timeoutWindow/timeoutThreshold implement the link's 3-consecutive-second
// "fewer than 2 packets" timeout rule from spec.md §4.2, grounded on
// original_source/portconnect.h's portThreadFunc.
const (
	timeoutWindow           = 3
	timeoutPacketsPerSecond = 2
	readPollInterval        = time.Millisecond
)

// Dispatcher is the single background goroutine that owns the Transport:
// it receives packets, routes each to the handler registered for its
// Port, serializes outbound sends, and tracks link health. Adapted from
// the goroutine+channel reader shape of stronnag-msp-go/msp.go's Reader,
// generalized from MSP's byte-level framing (not needed here: a CRTP
// radio Transport hands back one already-framed packet per Read call) to
// CRTP's fixed one-byte header + payload envelope.
type Dispatcher struct {
	transport Transport
	logger    *slog.Logger
	metrics   *telemetry.Metrics

	sendMu sync.Mutex

	handlersMu sync.RWMutex
	handlers   map[Port]func(Packet)

	stopCh chan struct{}
	wg     sync.WaitGroup

	packetsThisSecond atomic.Int64
	windowStart       time.Time
	lowSecondsInARow   int

	onTimeout func()
}

// Transport is re-declared here (identical to transport.Transport) so the
// core package has no import-cycle dependency on the transport package;
// callers pass any type satisfying both.
type Transport interface {
	Read(buf []byte) (int, error)
	Write(buf []byte) (int, error)
	Close() error
}

// NewDispatcher wires t to a fresh Dispatcher. logger and metrics may be
// nil, in which case slog.Default() and a no-op metrics set are used.
func NewDispatcher(t Transport, logger *slog.Logger, metrics *telemetry.Metrics) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		transport:   t,
		logger:      logger,
		metrics:     metrics,
		handlers:    make(map[Port]func(Packet)),
		stopCh:      make(chan struct{}),
		windowStart: time.Time{},
	}
}

// RegisterHandler installs fn as the receiver for every packet arriving on
// port, replacing any previous handler.
func (d *Dispatcher) RegisterHandler(port Port, fn func(Packet)) {
	d.handlersMu.Lock()
	defer d.handlersMu.Unlock()
	d.handlers[port] = fn
}

// OnTimeout installs a callback invoked when the link is declared timed
// out (3 consecutive seconds under 2 packets/sec).
func (d *Dispatcher) OnTimeout(fn func()) { d.onTimeout = fn }

// Send transmits pk. Sends are mutex-serialized: at most one goroutine
// writes to the Transport at a time, matching
// original_source/portconnect.h's sendMutex-guarded send_packet.
func (d *Dispatcher) Send(pk Packet) error {
	d.sendMu.Lock()
	defer d.sendMu.Unlock()
	buf := pk.Bytes()
	if _, err := d.transport.Write(buf); err != nil {
		return &TransportError{Op: "write", Err: err}
	}
	return nil
}

// Start spawns the receive/dispatch goroutine.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.loop()
}

// Stop signals the receive loop to exit and closes the Transport. It is
// idempotent.
func (d *Dispatcher) Stop() {
	select {
	case <-d.stopCh:
		return
	default:
		close(d.stopCh)
	}
	d.wg.Wait()
	d.transport.Close()
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()
	buf := make([]byte, MTU)
	d.windowStart = time.Now()

	for {
		select {
		case <-d.stopCh:
			return
		default:
		}

		n, err := d.transport.Read(buf)
		if err != nil {
			d.logger.Debug("link read error", "err", err)
			time.Sleep(readPollInterval)
			d.checkWindow()
			continue
		}
		if n == 0 {
			time.Sleep(readPollInterval)
			d.checkWindow()
			continue
		}

		pk, ok := ParsePacket(buf[:n])
		if ok {
			d.packetsThisSecond.Add(1)
			d.route(pk)
		}
		d.checkWindow()
	}
}

func (d *Dispatcher) route(pk Packet) {
	d.handlersMu.RLock()
	fn := d.handlers[pk.Port]
	d.handlersMu.RUnlock()
	if fn != nil {
		fn(pk)
	}
}

// checkWindow runs the once-per-second packets/sec accounting and the
// 3-consecutive-second timeout detection, mirroring
// original_source/portconnect.h's portThreadFunc inline bookkeeping.
func (d *Dispatcher) checkWindow() {
	now := time.Now()
	if now.Sub(d.windowStart) < time.Second {
		return
	}

	count := d.packetsThisSecond.Swap(0)
	d.windowStart = now

	if d.metrics != nil {
		d.metrics.PacketsPerSecond.Set(float64(count))
	}

	if count < timeoutPacketsPerSecond {
		d.lowSecondsInARow++
	} else {
		d.lowSecondsInARow = 0
	}

	if d.lowSecondsInARow >= timeoutWindow {
		d.lowSecondsInARow = 0
		if d.metrics != nil {
			d.metrics.LinkTimeouts.Inc()
		}
		d.logger.Warn("link timed out", "packets_per_second", count)
		if d.onTimeout != nil {
			d.onTimeout()
		}
	}
}
