package crazyflie

// Port identifies the CRTP destination subsystem carried in a packet
// header. Grounded on original_source/ctrp.h's CrtpPorts enum.
type Port uint8

const (
	PortConsole         Port = 0x00
	PortParam           Port = 0x02
	PortCommander       Port = 0x03
	PortMem             Port = 0x04
	PortLogging         Port = 0x05
	PortLocalization    Port = 0x06
	PortCommanderGeneric Port = 0x07
	PortSetpointHL      Port = 0x08
	PortPlatform        Port = 0x0D
	PortLinkControl     Port = 0x0F

	PortNone Port = 0xFF
	PortAll  Port = 0xFF
)

// Channel is the sub-stream within a Port.
type Channel uint8

const (
	ChannelTOC  Channel = 0
	ChannelApp  Channel = 2
	ChannelMisc Channel = 3
)

// MaxPayload is the largest payload a single CRTP packet can carry; the
// wire envelope (header + payload) never exceeds MTU bytes.
const (
	MTU        = 32
	MaxPayload = MTU - 1
)

// NoProtocolVersion marks an unknown/unnegotiated protocol version.
const NoProtocolVersion uint8 = 0xFF

// Packet is a single CRTP frame: one header byte followed by up to
// MaxPayload bytes of payload.
type Packet struct {
	Port    Port
	Channel Channel
	Data    []byte
}

// headerByte packs port (upper 4 bits) and channel (lower 2 bits), with
// the link bits fixed at 0b11 as the reference Go CRTP implementation
// does (other_examples/fethicandan-crazyserver__crtp.go).
func headerByte(port Port, channel Channel) byte {
	return byte((uint8(port)&0x0F)<<4) | 0x0C | byte(uint8(channel)&0x03)
}

// Bytes serializes the packet as it goes on the wire: header byte then
// payload. It does not check or truncate Data; callers keep it within
// MaxPayload so the frame stays within MTU bytes.
func (p Packet) Bytes() []byte {
	out := make([]byte, 1+len(p.Data))
	out[0] = headerByte(p.Port, p.Channel)
	copy(out[1:], p.Data)
	return out
}

// ParsePacket decodes a raw wire frame (header byte + payload) into a
// Packet. It returns false if buf is empty.
func ParsePacket(buf []byte) (Packet, bool) {
	if len(buf) == 0 {
		return Packet{}, false
	}
	h := buf[0]
	return Packet{
		Port:    Port((h >> 4) & 0x0F),
		Channel: Channel(h & 0x03),
		Data:    append([]byte(nil), buf[1:]...),
	}, true
}
