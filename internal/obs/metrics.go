// Package obs collects lightweight engine counters and latency stats.
// Everything is atomic; nothing here may block the dispatch path.
package obs

import (
	"sync/atomic"
	"time"

	"main/internal/schema"
)

const (
	maxEventType = int(schema.EventEndOfDay)
	maxAckReason = int(schema.OrderAckReasonRoutingBlocked)
)

// Metrics collects lightweight counters and latency stats.
type Metrics struct {
	eventCounts     [maxEventType + 1]uint64
	rejectionCounts [maxAckReason + 1]uint64
	outOfOrderDrops uint64
	staleFills      uint64
	invalidFills    uint64
	queueDrops      uint64
	queueClosed     uint64

	eventLatency    LatencyStats
	dispatchLatency LatencyStats
}

// LatencyStats aggregates duration samples in nanoseconds.
type LatencyStats struct {
	count uint64
	sum   uint64
	min   uint64
	max   uint64
}

// LatencySnapshot is a point-in-time view of latency stats.
type LatencySnapshot struct {
	Count uint64
	Min   time.Duration
	Max   time.Duration
	Avg   time.Duration
}

// Snapshot captures the current metrics values.
type Snapshot struct {
	EventCounts     map[schema.EventType]uint64
	RejectionCounts map[schema.OrderAckReason]uint64
	OutOfOrderDrops uint64
	StaleFills      uint64
	InvalidFills    uint64
	QueueDrops      uint64
	QueueClosed     uint64
	EventLatency    LatencySnapshot
	DispatchLatency LatencySnapshot
}

// NewMetrics allocates a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// ObserveEvent increments counters and tracks feed-to-ingress latency
// when both timestamps are present.
func (m *Metrics) ObserveEvent(header schema.EventHeader) {
	if m == nil {
		return
	}
	idx := int(header.Type)
	if idx >= 0 && idx < len(m.eventCounts) {
		atomic.AddUint64(&m.eventCounts[idx], 1)
	}
	if header.TsEvent > 0 && header.TsRecv > 0 {
		delta := header.TsRecv - header.TsEvent
		if delta >= 0 {
			m.eventLatency.Observe(time.Duration(delta))
		}
	}
}

// IncRejection increments the order rejection counter for a reason.
func (m *Metrics) IncRejection(reason schema.OrderAckReason) {
	if m == nil {
		return
	}
	idx := int(reason)
	if idx >= 0 && idx < len(m.rejectionCounts) {
		atomic.AddUint64(&m.rejectionCounts[idx], 1)
	}
}

// IncOutOfOrderDrop records a market event dropped for stale timestamp.
func (m *Metrics) IncOutOfOrderDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.outOfOrderDrops, 1)
}

// IncStaleFill records a fill that arrived after its order was canceled.
func (m *Metrics) IncStaleFill() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.staleFills, 1)
}

// IncInvalidFill records a fill inconsistent with its order.
func (m *Metrics) IncInvalidFill() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.invalidFills, 1)
}

// IncQueueDrop records an ingress queue drop.
func (m *Metrics) IncQueueDrop() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueDrops, 1)
}

// IncQueueClosed records a closed-queue publish attempt.
func (m *Metrics) IncQueueClosed() {
	if m == nil {
		return
	}
	atomic.AddUint64(&m.queueClosed, 1)
}

// ObserveDispatch measures one full dispatch step.
func (m *Metrics) ObserveDispatch(d time.Duration) {
	if m == nil {
		return
	}
	m.dispatchLatency.Observe(d)
}

// Snapshot returns a copy of the current metrics values.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	eventCounts := make(map[schema.EventType]uint64)
	for i := range m.eventCounts {
		if v := atomic.LoadUint64(&m.eventCounts[i]); v > 0 {
			eventCounts[schema.EventType(i)] = v
		}
	}
	rejections := make(map[schema.OrderAckReason]uint64)
	for i := range m.rejectionCounts {
		if v := atomic.LoadUint64(&m.rejectionCounts[i]); v > 0 {
			rejections[schema.OrderAckReason(i)] = v
		}
	}
	return Snapshot{
		EventCounts:     eventCounts,
		RejectionCounts: rejections,
		OutOfOrderDrops: atomic.LoadUint64(&m.outOfOrderDrops),
		StaleFills:      atomic.LoadUint64(&m.staleFills),
		InvalidFills:    atomic.LoadUint64(&m.invalidFills),
		QueueDrops:      atomic.LoadUint64(&m.queueDrops),
		QueueClosed:     atomic.LoadUint64(&m.queueClosed),
		EventLatency:    m.eventLatency.Snapshot(),
		DispatchLatency: m.dispatchLatency.Snapshot(),
	}
}

// Observe records a duration sample.
func (l *LatencyStats) Observe(d time.Duration) {
	if d < 0 {
		return
	}
	nanos := uint64(d)
	atomic.AddUint64(&l.count, 1)
	atomic.AddUint64(&l.sum, nanos)

	for {
		min := atomic.LoadUint64(&l.min)
		if min != 0 && nanos >= min {
			break
		}
		if atomic.CompareAndSwapUint64(&l.min, min, nanos) {
			break
		}
	}

	for {
		max := atomic.LoadUint64(&l.max)
		if nanos <= max {
			break
		}
		if atomic.CompareAndSwapUint64(&l.max, max, nanos) {
			break
		}
	}
}

// Snapshot returns the aggregated latency stats.
func (l *LatencyStats) Snapshot() LatencySnapshot {
	count := atomic.LoadUint64(&l.count)
	if count == 0 {
		return LatencySnapshot{}
	}
	sum := atomic.LoadUint64(&l.sum)
	min := atomic.LoadUint64(&l.min)
	max := atomic.LoadUint64(&l.max)
	return LatencySnapshot{
		Count: count,
		Min:   time.Duration(min),
		Max:   time.Duration(max),
		Avg:   time.Duration(sum / count),
	}
}
