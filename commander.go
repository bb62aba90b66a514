package crazyflie

// Commander setpoint type bytes on PortCommanderGeneric's setpoint
// channel. Grounded on original_source/commander.h's CrtpType enum.
const (
	crtpTypeStop          byte = 0
	crtpTypeVelocityWorld byte = 1
	crtpTypeZDistance     byte = 2
	crtpTypeHover         byte = 5
	crtpTypeFullState     byte = 6
	crtpTypePosition      byte = 7
)

const (
	setpointChannel    Channel = 0
	metaCommandChannel Channel = 1
)

// millimeter/millidegree fixed-point helpers used by the full-state
// setpoint, grounded on commander.h's send_full_state_setpoint.
func mm(v float32) int16       { return int16(v * 1000) }
func milliDeg(v float32) int16 { return int16(v * 1000) }

// Commander issues the stateless low-level rate/setpoint commands of
// spec.md §4.7. Grounded on original_source/commander.h.
type Commander struct {
	send func(Packet)
}

// NewCommander constructs a Commander bound to send.
func NewCommander(send func(Packet)) *Commander { return &Commander{send: send} }

// SendSetpoint issues the classic roll/pitch/yawrate/thrust setpoint over
// PortCommander, the legacy wire shape also used by
// other_examples/fethicandan-crazyserver__control_packets.go's
// ControlRequestLegacySetpoint.
func (c *Commander) SendSetpoint(roll, pitch, yawrate float32, thrust uint16) {
	var buf []byte
	buf = putF32(buf, roll)
	buf = putF32(buf, pitch)
	buf = putF32(buf, yawrate)
	buf = putU16(buf, thrust)
	c.send(Packet{Port: PortCommander, Channel: setpointChannel, Data: buf})
}

// SendStopSetpoint cuts power immediately.
func (c *Commander) SendStopSetpoint() {
	c.send(Packet{Port: PortCommanderGeneric, Channel: setpointChannel, Data: []byte{crtpTypeStop}})
}

// SendNotifySetpointStop tells the vehicle the stream of setpoints has
// ended, without cutting power.
func (c *Commander) SendNotifySetpointStop() {
	c.send(Packet{Port: PortCommanderGeneric, Channel: metaCommandChannel, Data: []byte{0}})
}

// SendVelocityWorldSetpoint commands a velocity in the world frame.
func (c *Commander) SendVelocityWorldSetpoint(vx, vy, vz, yawrate float32) {
	buf := []byte{crtpTypeVelocityWorld}
	buf = putF32(buf, vx)
	buf = putF32(buf, vy)
	buf = putF32(buf, vz)
	buf = putF32(buf, yawrate)
	c.send(Packet{Port: PortCommanderGeneric, Channel: setpointChannel, Data: buf})
}

// SendZDistanceSetpoint commands attitude plus an absolute z distance.
func (c *Commander) SendZDistanceSetpoint(roll, pitch, yawrate, zdistance float32) {
	buf := []byte{crtpTypeZDistance}
	buf = putF32(buf, roll)
	buf = putF32(buf, pitch)
	buf = putF32(buf, yawrate)
	buf = putF32(buf, zdistance)
	c.send(Packet{Port: PortCommanderGeneric, Channel: setpointChannel, Data: buf})
}

// SendHoverSetpoint commands a horizontal velocity while holding altitude.
func (c *Commander) SendHoverSetpoint(vx, vy, yawrate, zdistance float32) {
	buf := []byte{crtpTypeHover}
	buf = putF32(buf, vx)
	buf = putF32(buf, vy)
	buf = putF32(buf, yawrate)
	buf = putF32(buf, zdistance)
	c.send(Packet{Port: PortCommanderGeneric, Channel: setpointChannel, Data: buf})
}

// SendPositionSetpoint commands an absolute world-frame position and yaw.
func (c *Commander) SendPositionSetpoint(x, y, z, yaw float32) {
	buf := []byte{crtpTypePosition}
	buf = putF32(buf, x)
	buf = putF32(buf, y)
	buf = putF32(buf, z)
	buf = putF32(buf, yaw)
	c.send(Packet{Port: PortCommanderGeneric, Channel: setpointChannel, Data: buf})
}

// SendFullStateSetpoint commands a full trajectory state: position,
// velocity, and acceleration in millimeter fixed point, orientation as a
// compressed quaternion, and body rates in millidegree fixed point.
// Grounded on commander.h's send_full_state_setpoint.
func (c *Commander) SendFullStateSetpoint(pos, vel, acc [3]float32, quat [4]float32, rollRate, pitchRate, yawRate float32) {
	buf := []byte{crtpTypeFullState}
	for _, v := range pos {
		buf = putI16(buf, mm(v))
	}
	for _, v := range vel {
		buf = putI16(buf, mm(v))
	}
	for _, v := range acc {
		buf = putI16(buf, mm(v))
	}
	buf = putU32(buf, quatCompress(quat))
	buf = putI16(buf, milliDeg(rollRate))
	buf = putI16(buf, milliDeg(pitchRate))
	buf = putI16(buf, milliDeg(yawRate))
	c.send(Packet{Port: PortCommanderGeneric, Channel: setpointChannel, Data: buf})
}
