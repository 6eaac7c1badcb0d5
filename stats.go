package nextmqtt

import "sync/atomic"

// Stats holds connection and throughput counters, snapshotted from the
// client's running atomic counters.
type Stats struct {
	PacketsSent     uint64
	PacketsReceived uint64
	BytesSent       uint64
	BytesReceived   uint64
	ReconnectCount  uint64
	Connected       bool
}

// Stats returns a snapshot of the client's traffic counters. Safe to call
// from any goroutine.
func (c *Client) Stats() Stats {
	return Stats{
		PacketsSent:     c.packetsSent.Load(),
		PacketsReceived: c.packetsReceived.Load(),
		BytesSent:       c.bytesSent.Load(),
		BytesReceived:   c.bytesReceived.Load(),
		ReconnectCount:  c.reconnectCount.Load(),
		Connected:       c.IsConnected(),
	}
}

// IsConnected reports whether the session is currently Connected. Safe to
// call from any goroutine.
func (c *Client) IsConnected() bool {
	return c.State() == Connected
}

type trafficCounters struct {
	packetsSent     atomic.Uint64
	packetsReceived atomic.Uint64
	bytesSent       atomic.Uint64
	bytesReceived   atomic.Uint64
	reconnectCount  atomic.Uint64
}
