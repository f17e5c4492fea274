package netsync

import "asteroid-arena/internal/protocol"

// Metrics observes traffic through the synchronization layer. The debug
// server supplies a Prometheus-backed implementation.
type Metrics interface {
	Inbound(ch protocol.Channel)
	Stale(ch protocol.Channel)
	UnknownID(ch protocol.Channel)
	Outbound(ch protocol.Channel)
	Dropped(ch protocol.Channel)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) Inbound(protocol.Channel)   {}
func (NopMetrics) Stale(protocol.Channel)     {}
func (NopMetrics) UnknownID(protocol.Channel) {}
func (NopMetrics) Outbound(protocol.Channel)  {}
func (NopMetrics) Dropped(protocol.Channel)   {}
