package crazyflie

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestParamWithToc(t *testing.T) *Param {
	t.Helper()
	p := NewParam(func(Packet) {}, t.TempDir(), TocV1, nil, nil)
	toc := NewToc()
	toc.AddElement(TocElement{Ident: 0, Group: "pm", Name: "vbatMin", CType: byte(ParamFloat32)})
	toc.AddElement(TocElement{Ident: 1, Group: "deck", Name: "bcServo", CType: byte(ParamUint8), ReadOnly: true})
	toc.MarkComplete()
	p.toc = toc
	p.byIdent[0] = newParamValue("pm.vbatMin", TocElement{Ident: 0, Group: "pm", Name: "vbatMin", CType: byte(ParamFloat32)})
	p.byName["pm.vbatMin"] = p.byIdent[0]
	p.byIdent[1] = newParamValue("deck.bcServo", TocElement{Ident: 1, Group: "deck", Name: "bcServo", CType: byte(ParamUint8), ReadOnly: true})
	p.byName["deck.bcServo"] = p.byIdent[1]
	return p
}

func TestSetValueRejectsReadOnly(t *testing.T) {
	p := newTestParamWithToc(t)
	err := p.SetValue("deck.bcServo", 1)
	assert.Error(t, err)
}

func TestDispatchQueuedUsesNegotiatedIdentWidth(t *testing.T) {
	var got Packet
	p := newTestParamWithToc(t) // TocV1
	p.send = func(pk Packet) { got = pk }
	p.dispatchQueued(0, queueUpdate)
	assert.Equal(t, []byte{0}, got.Data, "V1 read request must use a 1-byte ident")

	p2 := NewParam(func(pk Packet) { got = pk }, t.TempDir(), TocV2, nil, nil)
	p2.byIdent[3] = newParamValue("x.y", TocElement{Ident: 3, Group: "x", Name: "y", CType: byte(ParamFloat32)})
	p2.dispatchQueued(3, queueUpdate)
	assert.Equal(t, []byte{3, 0}, got.Data, "V2 read request must use a 2-byte little-endian ident")
}

func TestReadReplyUpdatesValueAndState(t *testing.T) {
	p := newTestParamWithToc(t)
	data := []byte{0}
	data = putF32(data, 3.1)
	p.handleReadReply(data)

	v, err := p.GetValue("pm.vbatMin")
	require.NoError(t, err)
	assert.InDelta(t, 3.1, v, 0.001)

	_, state := p.byIdent[0].State()
	assert.Equal(t, paramSet, state)
}

// TestWorkerDrainsExtendedQueueBeforeUpdateQueue runs the real worker
// goroutine and checks it services the extended queue strictly before the
// update queue, matching original_source/param.h's queueThreadFunc.
func TestWorkerDrainsExtendedQueueBeforeUpdateQueue(t *testing.T) {
	p := newTestParamWithToc(t)

	var mu sync.Mutex
	var order []paramQueueSource
	p.send = func(pk Packet) {
		mu.Lock()
		defer mu.Unlock()
		if pk.Channel == paramMiscChannel {
			order = append(order, queueExtended)
		} else if pk.Channel == paramReadChannel {
			order = append(order, queueUpdate)
		}
	}

	p.queueMu.Lock()
	p.extQueue = []uint16{0}
	p.updQueue = []uint16{1}
	p.queueMu.Unlock()

	p.Start()
	defer p.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, 2*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []paramQueueSource{queueExtended, queueUpdate}, order)
}
