package monitor

import (
	"net"
	"time"
)

// MonitorBuilderOption is a functional option for configuring a monitor.
// Use the With* functions to create options.
type MonitorBuilderOption func(m *monitorImpl)

// WithAddr sets the listen address of the websocket endpoint.
//
// Parameters:
//   - addr: the host:port to listen on
//
// Returns:
//   - MonitorBuilderOption: option function to apply
func WithAddr(addr string) MonitorBuilderOption {
	return func(m *monitorImpl) {
		m.addr = addr
	}
}

// WithInterval sets the broadcast cadence.
//
// Parameters:
//   - interval: time between broadcasts
//
// Returns:
//   - MonitorBuilderOption: option function to apply
func WithInterval(interval time.Duration) MonitorBuilderOption {
	return func(m *monitorImpl) {
		m.interval = interval
	}
}

// newListener opens the TCP listener for the monitor endpoint. Split out so
// Start can surface bind failures synchronously instead of inside Serve.
func newListener(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
