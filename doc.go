// Package crazyflie is a host-side client for a CRTP-speaking quadcopter.
//
// It opens a radio/USB link (crazyflie.Transport), discovers the log and
// parameter tables of contents with CRC-keyed on-disk caching, subscribes
// to streaming telemetry blocks, reads and writes parameters through a
// queued worker, and issues low-level rate/setpoint and high-level
// trajectory flight commands. Exactly three long-lived goroutines run per
// connection: the link dispatcher, the parameter worker, and the caller's
// own goroutine.
package crazyflie
