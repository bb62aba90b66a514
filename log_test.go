package crazyflie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogWithToc(t *testing.T) *Log {
	t.Helper()
	var sent []Packet
	l := NewLog(func(pk Packet) { sent = append(sent, pk) }, t.TempDir(), TocV1, nil, nil)
	toc := NewToc()
	toc.AddElement(TocElement{Ident: 0, Group: "pm", Name: "vbat", CType: byte(LogFloat32)})
	toc.MarkComplete()
	l.toc = toc
	return l
}

func TestAddBlockRejectsUnknownVariable(t *testing.T) {
	l := newTestLogWithToc(t)
	_, err := l.AddBlock(0, "b", 20, []LogVarSpec{TocVar("no.such.var", LogFloat32)})
	assert.Error(t, err)
}

func TestAddBlockRejectsDuplicateID(t *testing.T) {
	l := newTestLogWithToc(t)
	_, err := l.AddBlock(0, "b", 20, []LogVarSpec{TocVar("pm.vbat", LogFloat32)})
	require.NoError(t, err)

	_, err = l.AddBlock(0, "b2", 20, []LogVarSpec{TocVar("pm.vbat", LogFloat32)})
	require.Error(t, err)
	var de *DeviceError
	assert.ErrorAs(t, err, &de)
	assert.Equal(t, ErrnoEEXIST, de.Errno)
}

func TestAddBlockRejectsTooManyBlockIDs(t *testing.T) {
	l := newTestLogWithToc(t)
	_, err := l.AddBlock(MaxLogBlocks, "b", 20, []LogVarSpec{TocVar("pm.vbat", LogFloat32)})
	assert.Error(t, err)
}

// TestAddBlockEnforcesPayloadBudget matches spec.md §8 scenario 3: six
// float32 variables (24 bytes) fit under the 26-byte block payload cap,
// a seventh (28 bytes) must be rejected.
func TestAddBlockEnforcesPayloadBudget(t *testing.T) {
	l := newTestLogWithToc(t)
	toc := l.toc
	for i := 1; i < 7; i++ {
		toc.AddElement(TocElement{Ident: uint16(i), Group: "g", Name: "v", CType: byte(LogFloat32)})
	}

	six := make([]LogVarSpec, 6)
	for i := range six {
		six[i] = TocVar("pm.vbat", LogFloat32)
	}
	_, err := l.AddBlock(0, "b", 20, six)
	require.NoError(t, err)

	seven := make([]LogVarSpec, 7)
	for i := range seven {
		seven[i] = TocVar("pm.vbat", LogFloat32)
	}
	_, err = l.AddBlock(1, "b2", 20, seven)
	require.Error(t, err)
	var re *ResourceExceeded
	assert.ErrorAs(t, err, &re)
}

// TestAddBlockChunksDescriptorsAcrossAppendFrames checks that a block
// whose variables don't fit one CREATE_BLOCK frame spills the remaining
// descriptors into APPEND_BLOCK frames, per spec.md §4.4.
func TestAddBlockChunksDescriptorsAcrossAppendFrames(t *testing.T) {
	var sent []Packet
	l := NewLog(func(pk Packet) { sent = append(sent, pk) }, t.TempDir(), TocV1, nil, nil)
	toc := NewToc()
	for i := 0; i < 20; i++ {
		toc.AddElement(TocElement{Ident: uint16(i), Group: "g", Name: "v", CType: byte(LogUint8)})
	}
	toc.MarkComplete()
	l.toc = toc

	specs := make([]LogVarSpec, 20)
	for i := range specs {
		specs[i] = TocVar("g.v", LogUint8)
	}
	_, err := l.AddBlock(0, "b", 20, specs)
	require.NoError(t, err)

	require.Greater(t, len(sent), 1, "descriptors must spill into at least one APPEND_BLOCK frame")
	assert.Equal(t, logCmdCreateBlock, sent[0].Data[0])
	for _, pk := range sent[1:] {
		assert.Equal(t, logCmdAppendBlock, pk.Data[0])
	}
}

// TestAddBlockAcceptsRawMemoryVariable covers spec.md §4.4's raw-address
// variable path, which bypasses TOC name resolution entirely.
func TestAddBlockAcceptsRawMemoryVariable(t *testing.T) {
	l := newTestLogWithToc(t)
	b, err := l.AddBlock(0, "b", 20, []LogVarSpec{RawVar(0xDEADBEEF, LogFloat32)})
	require.NoError(t, err)
	assert.Equal(t, LogVarRaw, b.Variables[0].Source)
	assert.Equal(t, uint32(0xDEADBEEF), b.Variables[0].Address)
}

func TestLogDataUpdatesVariableCell(t *testing.T) {
	l := newTestLogWithToc(t)
	b, err := l.AddBlock(0, "b", 20, []LogVarSpec{TocVar("pm.vbat", LogFloat32)})
	require.NoError(t, err)

	// ack the create so the block is ADDED.
	l.handleSettingsAck([]byte{logCmdCreateBlock, 0, byte(ErrnoOK)})
	assert.Equal(t, LogBlockAdded, b.state)

	data := []byte{0, 10, 0, 0}
	data = putF32(data, 3.87)
	l.handleData(data)

	v, ts := b.Variables[0].Fetch()
	assert.InDelta(t, 3.87, v, 0.001)
	assert.Equal(t, uint32(10), ts)
}

func TestLogTimestampWraparound(t *testing.T) {
	l := newTestLogWithToc(t)
	b, err := l.AddBlock(0, "b", 20, []LogVarSpec{TocVar("pm.vbat", LogFloat32)})
	require.NoError(t, err)

	high := []byte{0, 0xFE, 0xFF, 0xFF}
	high = putF32(high, 1)
	l.handleData(high)

	low := []byte{0, 0x01, 0x00, 0x00}
	low = putF32(low, 1)
	l.handleData(low)

	_, ts := b.Variables[0].Fetch()
	assert.Greater(t, ts, uint32(0xFFFFFE))
}
