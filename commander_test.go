package crazyflie

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendSetpointPacksRollPitchYawThrust(t *testing.T) {
	var got Packet
	c := NewCommander(func(pk Packet) { got = pk })
	c.SendSetpoint(1.5, -2.5, 10, 32767)

	require.Equal(t, PortCommander, got.Port)
	assert.InDelta(t, 1.5, getF32(got.Data[0:4]), 0.0001)
	assert.InDelta(t, -2.5, getF32(got.Data[4:8]), 0.0001)
	assert.InDelta(t, 10.0, getF32(got.Data[8:12]), 0.0001)
	assert.Equal(t, uint16(32767), getU16(got.Data[12:14]))
}

func TestSendStopSetpointUsesGenericPort(t *testing.T) {
	var got Packet
	c := NewCommander(func(pk Packet) { got = pk })
	c.SendStopSetpoint()

	assert.Equal(t, PortCommanderGeneric, got.Port)
	assert.Equal(t, []byte{crtpTypeStop}, got.Data)
}

func TestTakeoffPacksTargetYawAndUseCurrentYaw(t *testing.T) {
	var got Packet
	h := NewHighLevelCommander(func(pk Packet) { got = pk })
	h.Takeoff(0, 1.0, 0.5, 2.0, true)

	require.Equal(t, PortSetpointHL, got.Port)
	assert.InDelta(t, 1.0, getF32(got.Data[2:6]), 0.0001)
	assert.InDelta(t, 0.5, getF32(got.Data[6:10]), 0.0001)
	assert.True(t, getBool(got.Data[10:11]))
	assert.InDelta(t, 2.0, getF32(got.Data[11:15]), 0.0001)
}

func TestLandPacksTargetYawAndUseCurrentYaw(t *testing.T) {
	var got Packet
	h := NewHighLevelCommander(func(pk Packet) { got = pk })
	h.Land(0, 0.0, 0, 3.0, false)

	require.Equal(t, PortSetpointHL, got.Port)
	assert.False(t, getBool(got.Data[10:11]))
	assert.InDelta(t, 3.0, getF32(got.Data[11:15]), 0.0001)
}

func TestDefineTrajectoryPacksFullOffset(t *testing.T) {
	var got Packet
	h := NewHighLevelCommander(func(pk Packet) { got = pk })
	h.DefineTrajectory(0, 1, TrajectoryTypePoly4D, 0x01020304, 7)

	require.Equal(t, PortSetpointHL, got.Port)
	offset := getU32(got.Data[5:9])
	assert.Equal(t, uint32(0x01020304), offset, "offset must not be truncated to one byte")
}
