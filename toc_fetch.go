package crazyflie

import "hash/crc32"

// tocFetcherState mirrors original_source/logtoc.h and param.h's shared
// TocFetcher states.
type tocFetcherState int

const (
	tfIdle tocFetcherState = iota
	tfGetInfo
	tfGetElement
)

// parseElementFunc decodes one TOC_ELEMENT reply's payload (everything
// after the echoed index) into a TocElement. The log and parameter
// engines each supply their own, since the type byte's meaning differs
// (LogType vs ParamType).
type parseElementFunc func(ident uint16, rest []byte) (TocElement, error)

// tocFetcher is the event-driven element-by-element TOC downloader shared
// by the log and parameter engines. It never blocks: HandlePacket is
// called inline from the owning engine's packet callback, which itself
// runs on the dispatcher goroutine — mirroring the C++ _new_packet_cb
// design rather than a blocking request/reply loop.
type tocFetcher struct {
	port      Port
	version   TocVersion
	cacheDir  string
	send      func(Packet)
	parseElem parseElementFunc
	onDone    func(*Toc, error)

	state     tocFetcherState
	toc       *Toc
	itemCount uint16
}

func newTocFetcher(port Port, version TocVersion, cacheDir string, send func(Packet), parseElem parseElementFunc, onDone func(*Toc, error)) *tocFetcher {
	return &tocFetcher{
		port:      port,
		version:   version,
		cacheDir:  cacheDir,
		send:      send,
		parseElem: parseElem,
		onDone:    onDone,
		state:     tfIdle,
	}
}

// Start kicks off (or restarts) a fetch by requesting the TOC info packet.
func (f *tocFetcher) Start() {
	f.state = tfGetInfo
	f.toc = nil
	var data []byte
	if f.version == TocV2 {
		data = []byte{tocCmdInfoV2}
	} else {
		data = []byte{tocCmdInfoV1}
	}
	f.send(Packet{Port: f.port, Channel: ChannelTOC, Data: data})
}

// requestElement asks the vehicle for element idx.
func (f *tocFetcher) requestElement(idx uint16) {
	var data []byte
	if f.version == TocV2 {
		data = []byte{tocCmdElementV2, byte(idx), byte(idx >> 8)}
	} else {
		data = []byte{tocCmdElementV1, byte(idx)}
	}
	f.send(Packet{Port: f.port, Channel: ChannelTOC, Data: data})
}

// HandlePacket feeds one TOC-channel reply into the fetcher. It returns
// true if the packet was consumed as part of the active fetch.
func (f *tocFetcher) HandlePacket(pk Packet) bool {
	if pk.Port != f.port || pk.Channel != ChannelTOC || len(pk.Data) == 0 {
		return false
	}

	switch f.state {
	case tfGetInfo:
		return f.handleInfo(pk.Data)
	case tfGetElement:
		return f.handleElement(pk.Data)
	default:
		return false
	}
}

func (f *tocFetcher) handleInfo(data []byte) bool {
	var cmd byte
	var count uint16
	var crc uint32

	if f.version == TocV2 {
		if len(data) < 7 || data[0] != tocCmdInfoV2 {
			return false
		}
		cmd = data[0]
		count = uint16(data[1]) | uint16(data[2])<<8
		crc = getU32(data[3:7])
	} else {
		if len(data) < 6 || data[0] != tocCmdInfoV1 {
			return false
		}
		cmd = data[0]
		count = uint16(data[1])
		crc = getU32(data[2:6])
	}
	_ = cmd

	if cached, ok := loadTocCache(f.cacheDir, crc); ok {
		f.state = tfIdle
		f.onDone(cached, nil)
		return true
	}

	f.itemCount = count
	f.toc = NewToc()
	f.toc.CRC = crc

	if count == 0 {
		f.toc.MarkComplete()
		f.state = tfIdle
		_ = saveTocCache(f.cacheDir, f.toc)
		f.onDone(f.toc, nil)
		return true
	}

	f.state = tfGetElement
	f.requestElement(0)
	return true
}

func (f *tocFetcher) handleElement(data []byte) bool {
	var ident uint16
	var rest []byte

	if f.version == TocV2 {
		if len(data) < 3 || data[0] != tocCmdElementV2 {
			return false
		}
		ident = uint16(data[1]) | uint16(data[2])<<8
		rest = data[3:]
	} else {
		if len(data) < 2 || data[0] != tocCmdElementV1 {
			return false
		}
		ident = uint16(data[1])
		rest = data[2:]
	}

	elem, err := f.parseElem(ident, rest)
	if err != nil {
		f.state = tfIdle
		f.onDone(nil, &SchemaError{Reason: err.Error()})
		return true
	}
	f.toc.AddElement(elem)

	next := ident + 1
	if next >= f.itemCount {
		f.toc.MarkComplete()
		f.state = tfIdle
		_ = saveTocCache(f.cacheDir, f.toc)
		f.onDone(f.toc, nil)
		return true
	}

	f.requestElement(next)
	return true
}

// crcOfCompleteNames computes an IEEE CRC-32 over the concatenation of
// names, a toc-like CRC for a known element set.
func crcOfCompleteNames(names []string) uint32 {
	h := crc32.NewIEEE()
	for _, n := range names {
		h.Write([]byte(n))
	}
	return h.Sum32()
}
