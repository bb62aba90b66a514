package crazyflie

// High-level commander command bytes, sent fire-and-forget over
// PortSetpointHL. Grounded on
// original_source/highlevelcommander.h's hlcCommand enum.
const (
	hlcGroupMask       byte = 0
	hlcStop            byte = 3
	hlcGoTo            byte = 4
	hlcStartTrajectory byte = 5
	hlcDefineTrajectory byte = 6
	hlcTakeoff         byte = 7
	hlcLand            byte = 8
)

const (
	allGroups             byte = 0
	trajectoryLocationMem uint8 = 1
)

// TrajectoryType distinguishes how DefineTrajectory's memory blob should
// be interpreted by the vehicle.
type TrajectoryType byte

const (
	TrajectoryTypePoly4D TrajectoryType = 0
)

// HighLevelCommander issues the fire-and-forget trajectory commands of
// spec.md §4.8. Grounded on original_source/highlevelcommander.h.
type HighLevelCommander struct {
	send func(Packet)
}

// NewHighLevelCommander constructs a HighLevelCommander bound to send.
func NewHighLevelCommander(send func(Packet)) *HighLevelCommander {
	return &HighLevelCommander{send: send}
}

func (h *HighLevelCommander) sendCmd(data []byte) {
	h.send(Packet{Port: PortSetpointHL, Channel: setpointChannel, Data: data})
}

// Takeoff climbs to height over duration seconds, facing targetYaw unless
// useCurrentYaw is set, in which case targetYaw is ignored by the
// vehicle. Wire layout grounded on
// original_source/highlevelcommander.h's takeoff().
func (h *HighLevelCommander) Takeoff(group byte, height, targetYaw, duration float32, useCurrentYaw bool) {
	buf := []byte{hlcTakeoff, group}
	buf = putF32(buf, height)
	buf = putF32(buf, targetYaw)
	buf = putBool(buf, useCurrentYaw)
	buf = putF32(buf, duration)
	h.sendCmd(buf)
}

// Land descends to height over duration seconds, facing targetYaw unless
// useCurrentYaw is set. Wire layout grounded on
// original_source/highlevelcommander.h's land().
func (h *HighLevelCommander) Land(group byte, height, targetYaw, duration float32, useCurrentYaw bool) {
	buf := []byte{hlcLand, group}
	buf = putF32(buf, height)
	buf = putF32(buf, targetYaw)
	buf = putBool(buf, useCurrentYaw)
	buf = putF32(buf, duration)
	h.sendCmd(buf)
}

// Stop immediately halts high-level trajectory execution.
func (h *HighLevelCommander) Stop(group byte) {
	h.sendCmd([]byte{hlcStop, group})
}

// GoTo commands a straight-line or relative move to (x,y,z,yaw) over
// duration seconds.
func (h *HighLevelCommander) GoTo(group byte, x, y, z, yaw, duration float32, relative bool) {
	buf := []byte{hlcGoTo, group}
	buf = putBool(buf, relative)
	buf = putF32(buf, x)
	buf = putF32(buf, y)
	buf = putF32(buf, z)
	buf = putF32(buf, yaw)
	buf = putF32(buf, duration)
	h.sendCmd(buf)
}

// StartTrajectory begins executing a trajectory previously uploaded with
// DefineTrajectory.
func (h *HighLevelCommander) StartTrajectory(group, trajectoryID byte, timescale float32, relative, reversed bool) {
	buf := []byte{hlcStartTrajectory, group}
	buf = putBool(buf, relative)
	buf = putBool(buf, reversed)
	buf = append(buf, trajectoryID)
	buf = putF32(buf, timescale)
	h.sendCmd(buf)
}

// DefineTrajectory registers trajectoryID as a reference into memory at
// offset, covering nPieces polynomial pieces. Unlike
// original_source/highlevelcommander.h's define_trajectory (which
// truncates a uint32_t offset to a single byte — almost certainly
// unintentional), this packs offset as a full little-endian uint32 so
// trajectories beyond the first 255 bytes of memory are addressable; see
// DESIGN.md.
func (h *HighLevelCommander) DefineTrajectory(group, trajectoryID byte, trajType TrajectoryType, offset uint32, nPieces byte) {
	buf := []byte{hlcDefineTrajectory, group, trajectoryID, trajectoryLocationMem, byte(trajType)}
	buf = putU32(buf, offset)
	buf = append(buf, nPieces)
	h.sendCmd(buf)
}
