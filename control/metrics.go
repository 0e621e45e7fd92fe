// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime metrics collector for connection and protocol-dialect counters,
// grounded on the teacher's MetricsRegistry shape but with named atomic
// counters in place of a map[string]any, since every metric this engine
// tracks is known in advance.

package control

import "sync/atomic"

// MetricsRegistry accumulates connection, byte, and upgrade counters for
// the StatsDocument served at /_livestats.js.
type MetricsRegistry struct {
	activeConnections int64
	totalConnections  int64
	bytesReceived     int64
	bytesSent         int64
	hixieUpgrades     int64
	hybiUpgrades      int64
	closedByServer    int64
	closedByPeer      int64
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{}
}

func (mr *MetricsRegistry) ConnectionOpened() {
	atomic.AddInt64(&mr.activeConnections, 1)
	atomic.AddInt64(&mr.totalConnections, 1)
}

func (mr *MetricsRegistry) ConnectionClosed(byServer bool) {
	atomic.AddInt64(&mr.activeConnections, -1)
	if byServer {
		atomic.AddInt64(&mr.closedByServer, 1)
	} else {
		atomic.AddInt64(&mr.closedByPeer, 1)
	}
}

func (mr *MetricsRegistry) BytesReceived(n int) { atomic.AddInt64(&mr.bytesReceived, int64(n)) }
func (mr *MetricsRegistry) BytesSent(n int)     { atomic.AddInt64(&mr.bytesSent, int64(n)) }

func (mr *MetricsRegistry) HixieUpgrade() { atomic.AddInt64(&mr.hixieUpgrades, 1) }
func (mr *MetricsRegistry) HybiUpgrade()  { atomic.AddInt64(&mr.hybiUpgrades, 1) }

// Snapshot is a point-in-time, race-free copy of every counter.
type Snapshot struct {
	ActiveConnections int64
	TotalConnections  int64
	BytesReceived     int64
	BytesSent         int64
	HixieUpgrades     int64
	HybiUpgrades      int64
	ClosedByServer    int64
	ClosedByPeer      int64
}

// GetSnapshot reads every counter atomically.
func (mr *MetricsRegistry) GetSnapshot() Snapshot {
	return Snapshot{
		ActiveConnections: atomic.LoadInt64(&mr.activeConnections),
		TotalConnections:  atomic.LoadInt64(&mr.totalConnections),
		BytesReceived:     atomic.LoadInt64(&mr.bytesReceived),
		BytesSent:         atomic.LoadInt64(&mr.bytesSent),
		HixieUpgrades:     atomic.LoadInt64(&mr.hixieUpgrades),
		HybiUpgrades:      atomic.LoadInt64(&mr.hybiUpgrades),
		ClosedByServer:    atomic.LoadInt64(&mr.closedByServer),
		ClosedByPeer:      atomic.LoadInt64(&mr.closedByPeer),
	}
}
