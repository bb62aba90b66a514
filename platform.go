package crazyflie

import (
	"log/slog"
	"sync/atomic"
	"time"
)

// Link-control and platform command bytes. Grounded on
// original_source/platformservice.h.
const (
	linkServiceSource byte = 1

	versionGetProtocol byte = 0
	versionGetFirmware byte = 1

	platformSetContWave         byte = 0
	platformRequestArming       byte = 1
	platformRequestCrashRecovery byte = 2
)

const (
	platformVersionChannel Channel = 1
	platformCommandChannel Channel = 0
)

// BootWindowPolls is the number of 1ms polls the root connection sequence
// waits for the platform version handshake before giving up, grounded on
// original_source/portconnect.h's connect().
const BootWindowPolls = 100

// Platform is the platform service of spec.md §4.6: the 3-step boot
// handshake (link-control identity query, GET_PROTOCOL), arming requests,
// and crash-recovery requests.
type Platform struct {
	send   func(Packet)
	logger *slog.Logger

	protocolVersion atomic.Uint32
	onReady         func(uint8)
	onTimeout       func(error)
	bootTimer       *time.Timer
	bootDone        atomic.Bool
}

// NewPlatform constructs a Platform bound to send.
func NewPlatform(send func(Packet), logger *slog.Logger) *Platform {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Platform{send: send, logger: logger}
	p.protocolVersion.Store(uint32(NoProtocolVersion))
	return p
}

// Boot starts the version handshake; onReady fires once with the
// negotiated protocol version when the vehicle replies. onTimeout fires
// with a *ProtocolTimeout instead if no reply arrives within
// BootWindowPolls milliseconds, grounded on
// original_source/portconnect.h's connect() poll-and-give-up loop.
func (p *Platform) Boot(onReady func(uint8), onTimeout func(error)) {
	p.onReady = onReady
	p.onTimeout = onTimeout
	p.bootDone.Store(false)
	p.bootTimer = time.AfterFunc(BootWindowPolls*time.Millisecond, p.fireTimeout)
	p.send(Packet{Port: PortLinkControl, Channel: ChannelMisc, Data: []byte{linkServiceSource}})
}

func (p *Platform) fireTimeout() {
	if !p.bootDone.CompareAndSwap(false, true) {
		return
	}
	if p.onTimeout != nil {
		p.onTimeout(&ProtocolTimeout{What: "platform version handshake"})
	}
}

// ProtocolVersion returns the negotiated version, or NoProtocolVersion if
// the boot handshake has not completed.
func (p *Platform) ProtocolVersion() uint8 { return uint8(p.protocolVersion.Load()) }

// HandleLinkControl is the PortLinkControl packet callback: it completes
// step 1 of the boot handshake (identity echo) and requests the protocol
// version.
func (p *Platform) HandleLinkControl(pk Packet) {
	if pk.Channel != ChannelMisc || len(pk.Data) == 0 || pk.Data[0] != linkServiceSource {
		return
	}
	p.send(Packet{Port: PortPlatform, Channel: platformVersionChannel, Data: []byte{versionGetProtocol}})
}

// HandlePlatform is the PortPlatform packet callback: it completes step 2
// of the boot handshake (GET_PROTOCOL reply) and stores the version.
func (p *Platform) HandlePlatform(pk Packet) {
	if pk.Channel != platformVersionChannel || len(pk.Data) < 2 || pk.Data[0] != versionGetProtocol {
		return
	}
	if !p.bootDone.CompareAndSwap(false, true) {
		return
	}
	if p.bootTimer != nil {
		p.bootTimer.Stop()
	}

	version := pk.Data[1]
	p.protocolVersion.Store(uint32(version))
	p.logger.Info("platform protocol version negotiated", "version", version)
	if p.onReady != nil {
		p.onReady(version)
	}
}

// RequestArming sends an arm (true) or disarm (false) request.
func (p *Platform) RequestArming(arm bool) {
	var v byte
	if arm {
		v = 1
	}
	p.send(Packet{Port: PortPlatform, Channel: platformCommandChannel, Data: []byte{platformRequestArming, v}})
}

// RequestCrashRecovery asks the vehicle to recover from a crash state.
func (p *Platform) RequestCrashRecovery() {
	p.send(Packet{Port: PortPlatform, Channel: platformCommandChannel, Data: []byte{platformRequestCrashRecovery}})
}
