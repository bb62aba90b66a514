package crazyflie

import "strings"

// tocCmd are the TOC-channel command bytes shared by both the log and
// parameter TOC fetchers. Grounded on original_source/logtoc.h and
// param.h's identical CMD_TOC_* constants.
const (
	tocCmdElementV1 byte = 0
	tocCmdInfoV1    byte = 1
	tocCmdElementV2 byte = 2
	tocCmdInfoV2    byte = 3
)

// TocVersion selects the 8-bit (V1, <=256 items) or 16-bit (V2, <=16384
// items) element-id encoding negotiated from the platform protocol
// version.
type TocVersion int

const (
	TocV1 TocVersion = 1
	TocV2 TocVersion = 2
)

const (
	tocV1MaxItems = 256
	tocV2MaxItems = 16384
)

// TocElement is one entry in a log or parameter table of contents: a
// dotted "group.name" identity, a wire id, and a raw type/access byte
// whose interpretation (LogType vs ParamType) is owned by the caller.
type TocElement struct {
	Ident      uint16
	Group      string
	Name       string
	CType      byte
	ReadOnly   bool
	Persistent bool
}

// CompleteName is the dotted "group.name" form used to look up elements.
func (e TocElement) CompleteName() string { return e.Group + "." + e.Name }

// Toc is a CRC-keyed table of contents shared by the log and parameter
// engines. Grounded on original_source/logtoc.h's LogToc (the parameter
// engine's ParamToc in param.h has the identical shape).
type Toc struct {
	CRC      uint32
	elements []TocElement
	byID     map[uint16]TocElement
	byName   map[string]TocElement
	complete bool
}

// NewToc returns an empty, incomplete Toc.
func NewToc() *Toc {
	return &Toc{
		byID:   make(map[uint16]TocElement),
		byName: make(map[string]TocElement),
	}
}

// AddElement inserts e, indexed by both id and complete name.
func (t *Toc) AddElement(e TocElement) {
	t.elements = append(t.elements, e)
	t.byID[e.Ident] = e
	t.byName[e.CompleteName()] = e
}

// Len returns the number of elements currently held.
func (t *Toc) Len() int { return len(t.elements) }

// Complete reports whether every element (0..Len) has been fetched.
func (t *Toc) Complete() bool { return t.complete }

// MarkComplete records that the fetcher has received every element.
func (t *Toc) MarkComplete() { t.complete = true }

// Elements returns a copy of the element slice in insertion order (id
// order when filled by the fetcher).
func (t *Toc) Elements() []TocElement {
	out := make([]TocElement, len(t.elements))
	copy(out, t.elements)
	return out
}

// ElementByID looks up an element by its wire id.
func (t *Toc) ElementByID(id uint16) (TocElement, bool) {
	e, ok := t.byID[id]
	return e, ok
}

// ElementByCompleteName looks up an element by its "group.name" string.
func (t *Toc) ElementByCompleteName(name string) (TocElement, bool) {
	e, ok := t.byName[name]
	return e, ok
}

// appendIdent encodes ident onto buf using the wire width the negotiated
// TocVersion dictates: one byte for V1, two little-endian bytes for V2.
// Shared by the log and parameter engines' create/read/write framing.
func appendIdent(buf []byte, ident uint16, version TocVersion) []byte {
	if version == TocV2 {
		return append(buf, byte(ident), byte(ident>>8))
	}
	return append(buf, byte(ident))
}

// identFrom decodes an ident encoded by appendIdent from the front of
// data, returning the remaining bytes.
func identFrom(data []byte, version TocVersion) (uint16, []byte, bool) {
	if version == TocV2 {
		if len(data) < 2 {
			return 0, nil, false
		}
		return uint16(data[0]) | uint16(data[1])<<8, data[2:], true
	}
	if len(data) < 1 {
		return 0, nil, false
	}
	return uint16(data[0]), data[1:], true
}

// ElementByName looks up a dotted "group.name" string, returning false
// without a lookup when it contains no '.'. Mirrors logtoc.h's
// get_element_by_name.
func ElementByName(t *Toc, dotted string) (TocElement, bool) {
	idx := strings.IndexByte(dotted, '.')
	if idx < 0 {
		return TocElement{}, false
	}
	return t.ElementByCompleteName(dotted)
}
