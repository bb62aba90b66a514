package crazyflie

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/hyharvill/gocrazyflie/telemetry"
)

// Deck-presence parameter names, grounded on
// original_source/crazyflie.h's has*Deck methods.
const (
	paramFlowDeck       = "deck.bcFlow2"
	paramMultiRanger    = "deck.bcMultiranger"
	paramLighthouseDeck = "deck.bcLighthouse4"
	paramServoDeck      = "deck.bcServo"
	paramServoAngle     = "servo.servoAngle"
)

// StateEstimate is the supplemented position/attitude log bundle from
// original_source/stateestimate.h.
type StateEstimate struct {
	id    uint8
	block *LogBlock
}

func (s *StateEstimate) connect(log *Log, id uint8) error {
	names := []string{
		"stateEstimate.x", "stateEstimate.y", "stateEstimate.z",
		"stateEstimate.yaw", "stateEstimate.pitch", "stateEstimate.roll",
	}
	specs := make([]LogVarSpec, len(names))
	for i, n := range names {
		specs[i] = TocVar(n, LogFloat32)
	}
	b, err := log.AddBlock(id, "stateestimate", 20, specs)
	if err != nil {
		return err
	}
	s.id, s.block = id, b
	return nil
}

// Position returns (x, y, z) in meters.
func (s *StateEstimate) Position() (x, y, z float64) {
	x, _ = s.block.Variables[0].Fetch()
	y, _ = s.block.Variables[1].Fetch()
	z, _ = s.block.Variables[2].Fetch()
	return
}

// Attitude returns (yaw, pitch, roll) in degrees.
func (s *StateEstimate) Attitude() (yaw, pitch, roll float64) {
	yaw, _ = s.block.Variables[3].Fetch()
	pitch, _ = s.block.Variables[4].Fetch()
	roll, _ = s.block.Variables[5].Fetch()
	return
}

// MultiRanger is the supplemented five-direction range-deck bundle from
// original_source/multiranger.h.
type MultiRanger struct {
	block *LogBlock
}

func (m *MultiRanger) connect(log *Log, id uint8) error {
	names := []string{"range.front", "range.back", "range.up", "range.left", "range.right"}
	specs := make([]LogVarSpec, len(names))
	for i, n := range names {
		specs[i] = TocVar(n, LogFloat32)
	}
	b, err := log.AddBlock(id, "range", 20, specs)
	if err != nil {
		return err
	}
	m.block = b
	return nil
}

func (m *MultiRanger) fetchMeters(idx int) float64 {
	raw, _ := m.block.Variables[idx].Fetch()
	return raw / 1000.0
}

func (m *MultiRanger) Front() float64 { return m.fetchMeters(0) }
func (m *MultiRanger) Back() float64  { return m.fetchMeters(1) }
func (m *MultiRanger) Up() float64    { return m.fetchMeters(2) }
func (m *MultiRanger) Left() float64  { return m.fetchMeters(3) }
func (m *MultiRanger) Right() float64 { return m.fetchMeters(4) }

// PowerManagement is the supplemented battery telemetry bundle from
// original_source/powermanagement.h.
type PowerManagement struct {
	block *LogBlock
}

func (p *PowerManagement) connect(log *Log, id uint8) error {
	specs := []LogVarSpec{TocVar("pm.vbat", LogFloat32), TocVar("pm.batteryLevel", LogFloat32)}
	b, err := log.AddBlock(id, "pm", 20, specs)
	if err != nil {
		return err
	}
	p.block = b
	return nil
}

func (p *PowerManagement) Vbat() float64 {
	v, _ := p.block.Variables[0].Fetch()
	return v
}

func (p *PowerManagement) BatteryLevel() float64 {
	v, _ := p.block.Variables[1].Fetch()
	return v
}

// Crazyflie is the root client of spec.md: it owns the link dispatcher,
// log/parameter engines, platform service, and both commanders, and wires
// the supplemented convenience bundles once parameters are ready.
// Grounded on original_source/crazyflie.h's CrazyFlie class.
type Crazyflie struct {
	CacheDir  string
	Logger    *slog.Logger
	Metrics   *telemetry.Metrics
	SessionID uuid.UUID

	Dispatcher *Dispatcher
	Log        *Log
	Param      *Param
	Platform   *Platform

	Commander           *Commander
	HighLevelCommander  *HighLevelCommander

	StateEstimate   StateEstimate
	MultiRanger     MultiRanger
	PowerManagement PowerManagement

	mu             sync.Mutex
	setupComplete  bool
	flowDeckFound  bool
	rangerFound    bool
	lighthouseFound bool
	servoFound     bool
}

// New constructs an unconnected Crazyflie. logger/metrics may be nil.
func New(cacheDir string, logger *slog.Logger, metrics *telemetry.Metrics) *Crazyflie {
	if logger == nil {
		logger = slog.Default()
	}
	return &Crazyflie{CacheDir: cacheDir, Logger: logger, Metrics: metrics}
}

// Connect opens the link over t and drives the full reset pipeline:
// platform boot, log TOC reset, param TOC reset, extended-attribute
// drain, and update-all. ready receives nil once setup completes, or an
// error if any stage fails; it is buffered for that single value and is
// never closed.
func (c *Crazyflie) Connect(t Transport) <-chan error {
	ready := make(chan error, 1)

	c.SessionID = uuid.New()
	c.Logger = c.Logger.With("session", c.SessionID.String())

	c.Dispatcher = NewDispatcher(t, c.Logger, c.Metrics)
	send := func(pk Packet) { c.Dispatcher.Send(pk) }
	c.Platform = NewPlatform(send, c.Logger)
	c.Dispatcher.RegisterHandler(PortLinkControl, c.Platform.HandleLinkControl)
	c.Dispatcher.RegisterHandler(PortPlatform, c.Platform.HandlePlatform)
	c.Dispatcher.Start()

	c.Platform.Boot(func(version uint8) {
		tocVersion := TocV1
		if version >= 4 {
			tocVersion = TocV2
		}

		c.Log = NewLog(send, c.CacheDir, tocVersion, c.Logger, c.Metrics)
		c.Dispatcher.RegisterHandler(PortLogging, c.Log.HandlePacket)

		c.Param = NewParam(send, c.CacheDir, tocVersion, c.Logger, c.Metrics)
		c.Dispatcher.RegisterHandler(PortParam, c.Param.HandlePacket)
		c.Param.Start()

		c.Commander = NewCommander(send)
		c.HighLevelCommander = NewHighLevelCommander(send)

		c.Log.Reset(func(err error) {
			if err != nil {
				ready <- err
				return
			}
			c.Logger.Info("log toc ready")
			c.Param.Reset(
				func(err error) {
					if err != nil {
						ready <- err
					}
				},
				func() {
					c.paramResetComplete()
					ready <- nil
				},
			)
		})
	}, func(err error) {
		ready <- err
	})

	return ready
}

// Disconnect tears down the link and stops the parameter worker.
func (c *Crazyflie) Disconnect() {
	if c.Param != nil {
		c.Param.Stop()
	}
	if c.Dispatcher != nil {
		c.Dispatcher.Stop()
	}
}

// paramResetComplete wires the supplemented telemetry bundles and
// deck-presence detection once every parameter has its initial value.
// Grounded on original_source/crazyflie.h's paramResetComplete override.
func (c *Crazyflie) paramResetComplete() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.StateEstimate.connect(c.Log, 0); err != nil {
		c.Logger.Warn("stateEstimate log block unavailable", "err", err)
	}

	if v, err := c.Param.GetValue(paramFlowDeck); err == nil && v > 0 {
		c.flowDeckFound = true
	}

	if v, err := c.Param.GetValue(paramMultiRanger); err == nil && v > 0 {
		c.rangerFound = true
		if err := c.MultiRanger.connect(c.Log, 1); err != nil {
			c.Logger.Warn("multi_ranger log block unavailable", "err", err)
		}
	}

	if err := c.PowerManagement.connect(c.Log, 2); err != nil {
		c.Logger.Warn("power management log block unavailable", "err", err)
	}

	if v, err := c.Param.GetValue(paramServoDeck); err == nil && v > 0 {
		c.servoFound = true
		if _, err := c.Param.RegisterParamSetting(paramServoAngle); err != nil {
			c.Logger.Warn("servo param unavailable", "err", err)
		}
	}

	if v, err := c.Param.GetValue(paramLighthouseDeck); err == nil && v > 0 {
		c.lighthouseFound = true
	}

	c.setupComplete = true
}

func (c *Crazyflie) HasFlowDeck() bool       { c.mu.Lock(); defer c.mu.Unlock(); return c.flowDeckFound }
func (c *Crazyflie) HasMultiRangerDeck() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.rangerFound }
func (c *Crazyflie) HasLighthouseDeck() bool { c.mu.Lock(); defer c.mu.Unlock(); return c.lighthouseFound }
func (c *Crazyflie) HasServoDeck() bool      { c.mu.Lock(); defer c.mu.Unlock(); return c.servoFound }

// IsSetupComplete reports whether paramResetComplete has finished wiring
// the supplemented telemetry bundles.
func (c *Crazyflie) IsSetupComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.setupComplete
}
