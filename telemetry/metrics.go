// Package telemetry exposes this module's own operational metrics
// (packets/sec, active blocks, parameter queue depth, timeouts) over
// Prometheus, grounded on the client_golang usage found in the
// C360Studio-semstreams example repo.
package telemetry

import "github.com/prometheus/client_golang/prometheus"

// Metrics is a small Prometheus registry a Dispatcher/Log/Param can report
// into. The zero value is not usable; construct with New.
type Metrics struct {
	PacketsPerSecond prometheus.Gauge
	BlocksActive     prometheus.Gauge
	ParamQueueDepth  prometheus.Gauge
	LinkTimeouts     prometheus.Counter
	DeviceErrors     prometheus.Counter
}

// New creates and registers a Metrics set. reg may be nil, in which case
// the default Prometheus registry is used.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		PacketsPerSecond: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crazyflie_link_packets_per_second",
			Help: "Packets received on the link in the last one-second window.",
		}),
		BlocksActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crazyflie_log_blocks_active",
			Help: "Number of log blocks currently in the STARTED state.",
		}),
		ParamQueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "crazyflie_param_queue_depth",
			Help: "Combined depth of the extended-attribute and update parameter queues.",
		}),
		LinkTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crazyflie_link_timeouts_total",
			Help: "Number of times the link was declared timed out (3 consecutive seconds under 2 packets/sec).",
		}),
		DeviceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crazyflie_device_errors_total",
			Help: "Number of DeviceError responses received from the vehicle.",
		}),
	}
	reg.MustRegister(m.PacketsPerSecond, m.BlocksActive, m.ParamQueueDepth, m.LinkTimeouts, m.DeviceErrors)
	return m
}
