package crazyflie

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBootSucceedsBeforeTimeout(t *testing.T) {
	p := NewPlatform(func(Packet) {}, nil)

	var ready uint8
	var timedOut error
	p.Boot(func(v uint8) { ready = v }, func(err error) { timedOut = err })

	p.HandlePlatform(Packet{Port: PortPlatform, Channel: platformVersionChannel, Data: []byte{versionGetProtocol, 4}})

	assert.Equal(t, uint8(4), ready)
	assert.Nil(t, timedOut)

	time.Sleep(BootWindowPolls * time.Millisecond + 20*time.Millisecond)
	assert.Nil(t, timedOut, "a late handshake reply must not also fire the timeout")
}

func TestBootFiresProtocolTimeoutWhenNoReplyArrives(t *testing.T) {
	p := NewPlatform(func(Packet) {}, nil)

	var timedOut error
	p.Boot(func(uint8) {}, func(err error) { timedOut = err })

	require.Eventually(t, func() bool { return timedOut != nil }, 2*time.Second, 5*time.Millisecond)
	var pt *ProtocolTimeout
	assert.ErrorAs(t, timedOut, &pt)
}
