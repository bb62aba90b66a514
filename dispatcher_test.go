package crazyflie

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatcherRoutesByPort(t *testing.T) {
	ft := newFakeTransport()
	d := NewDispatcher(ft, nil, nil)

	received := make(chan Packet, 1)
	d.RegisterHandler(PortPlatform, func(pk Packet) { received <- pk })

	d.Start()
	defer d.Stop()

	ft.inject(Packet{Port: PortPlatform, Channel: platformVersionChannel, Data: []byte{versionGetProtocol, 5}})

	select {
	case pk := <-received:
		assert.Equal(t, PortPlatform, pk.Port)
		assert.Equal(t, []byte{versionGetProtocol, 5}, pk.Data)
	case <-time.After(time.Second):
		t.Fatal("handler was never invoked")
	}
}

func TestDispatcherSendReachesTransport(t *testing.T) {
	ft := newFakeTransport()
	d := NewDispatcher(ft, nil, nil)

	require.NoError(t, d.Send(Packet{Port: PortPlatform, Channel: platformCommandChannel, Data: []byte{1}}))
	assert.Equal(t, 1, ft.writtenCount())
}
