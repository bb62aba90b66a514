package crazyflie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTocAddAndLookup(t *testing.T) {
	toc := NewToc()
	toc.AddElement(TocElement{Ident: 0, Group: "stateEstimate", Name: "x", CType: byte(LogFloat32)})
	toc.AddElement(TocElement{Ident: 1, Group: "stateEstimate", Name: "y", CType: byte(LogFloat32)})

	e, ok := toc.ElementByID(1)
	require.True(t, ok)
	assert.Equal(t, "stateEstimate.y", e.CompleteName())

	e2, ok := toc.ElementByCompleteName("stateEstimate.x")
	require.True(t, ok)
	assert.Equal(t, uint16(0), e2.Ident)

	assert.False(t, toc.Complete())
	toc.MarkComplete()
	assert.True(t, toc.Complete())
}

func TestTocCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()

	toc := NewToc()
	toc.CRC = 0xDEADBEEF
	toc.AddElement(TocElement{Ident: 0, Group: "pm", Name: "vbat", CType: byte(LogFloat32)})
	toc.MarkComplete()

	require.NoError(t, saveTocCache(dir, toc))

	loaded, ok := loadTocCache(dir, 0xDEADBEEF)
	require.True(t, ok)
	assert.True(t, loaded.Complete())
	e, ok := loaded.ElementByCompleteName("pm.vbat")
	require.True(t, ok)
	assert.Equal(t, uint16(0), e.Ident)
}

func TestTocCacheMissOnMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := tocCachePath(dir, 0x1234)
	require.NoError(t, writeFileForTest(path, []byte("{not valid json")))

	_, ok := loadTocCache(dir, 0x1234)
	assert.False(t, ok, "malformed cache file must be treated as a miss, not an error")
}

func TestTocFetcherV1SingleElement(t *testing.T) {
	dir := t.TempDir()
	var sent []Packet
	send := func(pk Packet) { sent = append(sent, pk) }

	var result *Toc
	var fetchErr error
	f := newTocFetcher(PortLogging, TocV1, dir, send,
		func(ident uint16, rest []byte) (TocElement, error) {
			name, group, err := splitGroupName(rest[1:])
			if err != nil {
				return TocElement{}, err
			}
			return TocElement{Ident: ident, Group: group, Name: name, CType: rest[0]}, nil
		},
		func(toc *Toc, err error) { result, fetchErr = toc, err },
	)

	f.Start()
	require.Len(t, sent, 1)

	// INFO reply: 1 item, arbitrary crc.
	infoData := []byte{tocCmdInfoV1, 1, 0x01, 0x02, 0x03, 0x04}
	f.HandlePacket(Packet{Port: PortLogging, Channel: ChannelTOC, Data: infoData})

	require.Len(t, sent, 2)

	elemData := append([]byte{tocCmdElementV1, 0, byte(LogFloat32)}, []byte("pm\x00vbat\x00")...)
	f.HandlePacket(Packet{Port: PortLogging, Channel: ChannelTOC, Data: elemData})

	require.NoError(t, fetchErr)
	require.NotNil(t, result)
	assert.True(t, result.Complete())
	e, ok := result.ElementByCompleteName("pm.vbat")
	require.True(t, ok)
	assert.Equal(t, byte(LogFloat32), e.CType)
}
