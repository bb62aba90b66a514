package crazyflie

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyharvill/gocrazyflie/telemetry"
)

// Param-port channels. ChannelTOC (0) carries TOC discovery traffic;
// Read/Write carry value requests/replies; Misc carries extended
// attribute queries. Grounded on original_source/param.h's
// READ_CHANNEL/WRITE_CHANNEL/MISC_CHANNEL constants.
const (
	paramReadChannel  Channel = 1
	paramWriteChannel Channel = 2
	paramMiscChannel  Channel = ChannelMisc
)

const paramMiscGetExtendedType byte = 0

// paramRequestKind distinguishes why a parameter is queued: NONE/READ/WRITE.
type paramRequestKind int

const (
	paramReqNone paramRequestKind = iota
	paramReqRead
	paramReqWrite
)

// paramCellState is the PENDING/REQUESTED/SET axis of the state
// cross-product spec.md §4.5 defines.
type paramCellState int

const (
	paramPending paramCellState = iota
	paramRequested
	paramSet
)

// paramQueueSource distinguishes the extended-attribute queue (drained
// strictly before) from the update queue.
type paramQueueSource int

const (
	queueExtended paramQueueSource = iota
	queueUpdate
)

// ParamValue is one parameter's atomic value cell: the float64 value and
// the (kind, state) pair are each held in their own lock-free atomic so
// the worker and any caller goroutine can race-freely read/write them,
// mirroring original_source/param.h's ParamValue (separate
// std::atomic<uint64_t>/ident/ctype/state fields).
type ParamValue struct {
	Ident        uint16
	CompleteName string
	CType        ParamType
	ReadOnly     bool
	Persistent   bool

	valueBits atomic.Uint64
	kind      atomic.Int32
	state     atomic.Int32
	pendingWrite atomic.Uint64
}

func newParamValue(name string, elem TocElement) *ParamValue {
	return &ParamValue{
		Ident:        elem.Ident,
		CompleteName: name,
		CType:        ParamType(elem.CType),
		ReadOnly:     elem.ReadOnly,
	}
}

// Value returns the last known value as float64.
func (p *ParamValue) Value() float64 {
	return float64frombits(p.valueBits.Load())
}

func (p *ParamValue) setValue(v float64) {
	p.valueBits.Store(float64bits(v))
}

// State reports the current (kind, state) pair.
func (p *ParamValue) State() (paramRequestKind, paramCellState) {
	return paramRequestKind(p.kind.Load()), paramCellState(p.state.Load())
}

func (p *ParamValue) setState(kind paramRequestKind, state paramCellState) {
	p.kind.Store(int32(kind))
	p.state.Store(int32(state))
}

// Param is the parameter engine of spec.md §4.5: TOC discovery, the
// per-parameter value cell, and the two-priority-queue worker.
type Param struct {
	mu       sync.Mutex
	toc      *Toc
	fetcher  *tocFetcher
	send     func(Packet)
	cacheDir string
	version  TocVersion
	logger   *slog.Logger
	metrics  *telemetry.Metrics

	byIdent map[uint16]*ParamValue
	byName  map[string]*ParamValue

	queueMu  sync.Mutex
	extQueue []uint16
	updQueue []uint16

	extPending atomic.Int32
	allPending atomic.Int32

	stopCh  chan struct{}
	wg      sync.WaitGroup
	running atomic.Bool

	onResetDone  func(error)
	onAllUpdated func()
}

// NewParam constructs a Param bound to send for outbound traffic.
func NewParam(send func(Packet), cacheDir string, version TocVersion, logger *slog.Logger, metrics *telemetry.Metrics) *Param {
	if logger == nil {
		logger = slog.Default()
	}
	return &Param{
		send:     send,
		cacheDir: cacheDir,
		version:  version,
		logger:   logger,
		metrics:  metrics,
		byIdent:  make(map[uint16]*ParamValue),
		byName:   make(map[string]*ParamValue),
		stopCh:   make(chan struct{}),
	}
}

// Start launches the queue worker goroutine. It must be called once per
// connection.
func (p *Param) Start() {
	if p.running.CompareAndSwap(false, true) {
		p.wg.Add(1)
		go p.workerLoop()
	}
}

// Stop halts the queue worker. Idempotent.
func (p *Param) Stop() {
	if p.running.CompareAndSwap(true, false) {
		close(p.stopCh)
		p.wg.Wait()
	}
}

// Reset (re)starts TOC discovery. onDone fires once when the TOC fetch
// completes, with a non-nil error only on protocol failure; the
// extended-attribute and update-all phases run after it. onAllUpdated
// fires once every parameter has been read during update-all.
func (p *Param) Reset(onDone func(error), onAllUpdated func()) {
	p.mu.Lock()
	p.onResetDone = onDone
	p.onAllUpdated = onAllUpdated
	p.fetcher = newTocFetcher(PortParam, p.version, p.cacheDir, p.send, p.parseParamElement, p.fetchDone)
	p.mu.Unlock()
	p.fetcher.Start()
}

func (p *Param) parseParamElement(ident uint16, rest []byte) (TocElement, error) {
	if len(rest) < 1 {
		return TocElement{}, &SchemaError{Reason: "param toc element too short"}
	}
	ctype := rest[0]
	name, group, err := splitGroupName(rest[1:])
	if err != nil {
		return TocElement{}, err
	}
	return TocElement{
		Ident:    ident,
		Group:    group,
		Name:     name,
		CType:    ctype & paramTypeMask,
		ReadOnly: ctype&ReadOnlyBit != 0,
	}, nil
}

func (p *Param) fetchDone(toc *Toc, err error) {
	p.mu.Lock()
	p.toc = toc
	done := p.onResetDone
	p.mu.Unlock()

	if err != nil {
		if done != nil {
			done(err)
		}
		return
	}

	for _, elem := range toc.Elements() {
		name := elem.CompleteName()
		pv := newParamValue(name, elem)
		p.mu.Lock()
		p.byIdent[elem.Ident] = pv
		p.byName[name] = pv
		p.mu.Unlock()
	}

	if done != nil {
		done(nil)
	}
	p.tocComplete()
}

// tocComplete pushes every parameter's extended-attribute request onto
// the extended queue, which the worker drains strictly before the update
// queue. Grounded on original_source/param.h's toc_complete.
func (p *Param) tocComplete() {
	elems := p.toc.Elements()
	p.extPending.Store(int32(len(elems)))

	p.queueMu.Lock()
	for _, e := range elems {
		p.extQueue = append(p.extQueue, e.Ident)
	}
	p.queueMu.Unlock()

	if len(elems) == 0 {
		p.updateAll()
	}
}

// updateAll requests a fresh read of every known parameter, enqueued onto
// the update queue. Completion signals param-ready via onAllUpdated.
func (p *Param) updateAll() {
	p.mu.Lock()
	n := len(p.byIdent)
	ids := make([]uint16, 0, n)
	for id := range p.byIdent {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	p.allPending.Store(int32(n))
	if n == 0 {
		if p.onAllUpdated != nil {
			p.onAllUpdated()
		}
		return
	}

	p.queueMu.Lock()
	p.updQueue = append(p.updQueue, ids...)
	p.queueMu.Unlock()
}

// workerLoop is the strict-priority scheduler: the extended queue is
// checked every iteration; the update queue is only popped when the
// extended queue was empty that iteration. 1ms sleep between iterations.
// Grounded on original_source/param.h's queueThreadFunc.
func (p *Param) workerLoop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		p.queueMu.Lock()
		var ident uint16
		var source paramQueueSource
		var ok bool
		if len(p.extQueue) > 0 {
			ident, p.extQueue = p.extQueue[0], p.extQueue[1:]
			source, ok = queueExtended, true
		} else if len(p.updQueue) > 0 {
			ident, p.updQueue = p.updQueue[0], p.updQueue[1:]
			source, ok = queueUpdate, true
		}
		depth := len(p.extQueue) + len(p.updQueue)
		p.queueMu.Unlock()
		if p.metrics != nil {
			p.metrics.ParamQueueDepth.Set(float64(depth))
		}

		if ok {
			p.dispatchQueued(ident, source)
		}
		time.Sleep(time.Millisecond)
	}
}

func (p *Param) dispatchQueued(ident uint16, source paramQueueSource) {
	p.mu.Lock()
	pv := p.byIdent[ident]
	p.mu.Unlock()
	if pv == nil {
		return
	}

	switch source {
	case queueExtended:
		pv.setState(paramReqNone, paramRequested)
		data := appendIdent([]byte{paramMiscGetExtendedType}, ident, p.version)
		p.send(Packet{Port: PortParam, Channel: paramMiscChannel, Data: data})
	case queueUpdate:
		pv.setState(paramReqRead, paramRequested)
		data := appendIdent(nil, ident, p.version)
		p.send(Packet{Port: PortParam, Channel: paramReadChannel, Data: data})
	}
}

// RequestUpdate enqueues a one-off read of name onto the update queue.
func (p *Param) RequestUpdate(name string) error {
	p.mu.Lock()
	pv, ok := p.byName[name]
	p.mu.Unlock()
	if !ok {
		return &SchemaError{Reason: "unknown parameter " + name}
	}
	pv.setState(paramReqRead, paramPending)
	p.queueMu.Lock()
	p.updQueue = append(p.updQueue, pv.Ident)
	p.queueMu.Unlock()
	return nil
}

// SetValue writes name over the wire and marks its cell REQUESTED/WRITE
// until the vehicle's ack arrives.
func (p *Param) SetValue(name string, value float64) error {
	p.mu.Lock()
	pv, ok := p.byName[name]
	p.mu.Unlock()
	if !ok {
		return &SchemaError{Reason: "unknown parameter " + name}
	}
	if pv.ReadOnly {
		return &SchemaError{Reason: "parameter " + name + " is read-only"}
	}

	pv.pendingWrite.Store(float64bits(value))
	pv.setState(paramReqWrite, paramRequested)

	data := appendIdent(nil, pv.Ident, p.version)
	data = packParamValue(pv.CType, value, data)
	p.send(Packet{Port: PortParam, Channel: paramWriteChannel, Data: data})
	return nil
}

// GetValue returns the last known value of name.
func (p *Param) GetValue(name string) (float64, error) {
	p.mu.Lock()
	pv, ok := p.byName[name]
	p.mu.Unlock()
	if !ok {
		return 0, &SchemaError{Reason: "unknown parameter " + name}
	}
	return pv.Value(), nil
}

// RegisterParamSetting explicitly binds a caller-known parameter name
// (e.g. "servo.servoAngle") so it participates in update-all without
// requiring the caller to have discovered it from the TOC first. Per
// DESIGN.md open question 3, registration is always explicit — callers
// must confirm the parameter's presence (e.g. via a deck-detection
// parameter) before calling this.
func (p *Param) RegisterParamSetting(name string) (*ParamValue, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if pv, ok := p.byName[name]; ok {
		return pv, nil
	}
	if p.toc == nil {
		return nil, &SchemaError{Reason: "param toc not yet loaded"}
	}
	elem, ok := p.toc.ElementByCompleteName(name)
	if !ok {
		return nil, &SchemaError{Reason: "unknown parameter " + name}
	}
	pv := newParamValue(name, elem)
	p.byIdent[elem.Ident] = pv
	p.byName[name] = pv
	return pv, nil
}

// HandlePacket is the Param engine's PortParam packet callback.
func (p *Param) HandlePacket(pk Packet) {
	switch pk.Channel {
	case ChannelTOC:
		p.mu.Lock()
		f := p.fetcher
		p.mu.Unlock()
		if f != nil {
			f.HandlePacket(pk)
		}
	case paramReadChannel:
		p.handleReadReply(pk.Data)
	case paramWriteChannel:
		p.handleWriteAck(pk.Data)
	case paramMiscChannel:
		p.handleExtendedReply(pk.Data)
	}
}

func (p *Param) handleReadReply(data []byte) {
	ident, rest, ok := identFrom(data, p.version)
	if !ok {
		return
	}
	p.mu.Lock()
	pv := p.byIdent[ident]
	p.mu.Unlock()
	if pv == nil {
		return
	}

	n := pv.CType.Size()
	if n == 0 || len(rest) < n {
		return
	}
	pv.setValue(unpackParamValue(pv.CType, rest[:n]))
	pv.setState(paramReqNone, paramSet)

	if p.allPending.Load() > 0 {
		if left := p.allPending.Add(-1); left == 0 {
			if p.onAllUpdated != nil {
				p.onAllUpdated()
			}
		}
	}
}

func (p *Param) handleWriteAck(data []byte) {
	ident, _, ok := identFrom(data, p.version)
	if !ok {
		return
	}
	p.mu.Lock()
	pv := p.byIdent[ident]
	p.mu.Unlock()
	if pv == nil {
		return
	}
	pv.setValue(float64frombits(pv.pendingWrite.Load()))
	pv.setState(paramReqNone, paramSet)
}

func (p *Param) handleExtendedReply(data []byte) {
	ident, rest, ok := identFrom(data, p.version)
	if !ok || len(rest) < 1 {
		return
	}
	p.mu.Lock()
	pv := p.byIdent[ident]
	p.mu.Unlock()
	if pv == nil {
		return
	}
	pv.Persistent = rest[0]&ExtendedPersistentBit != 0
	pv.setState(paramReqNone, paramSet)

	if left := p.extPending.Add(-1); left == 0 {
		p.updateAll()
	}
}
