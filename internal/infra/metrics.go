package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	requestsTotal   atomic.Uint64
	ordersPlaced    atomic.Uint64
	ordersCancelled atomic.Uint64
	bookRequests    atomic.Uint64
	errorsTotal     atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	streamClients atomic.Int32
}

// NewMetrics creates an empty metrics registry.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordRequest records one handled request with latency.
func (m *Metrics) RecordRequest(latencyNs int64) {
	m.requestsTotal.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// RecordOrderPlaced records a successfully admitted order.
func (m *Metrics) RecordOrderPlaced() {
	m.ordersPlaced.Add(1)
}

// RecordOrderCancelled records a successful cancellation.
func (m *Metrics) RecordOrderCancelled() {
	m.ordersCancelled.Add(1)
}

// RecordBookRequest records an order book snapshot build.
func (m *Metrics) RecordBookRequest() {
	m.bookRequests.Add(1)
}

// IncrementStreamClients increments connected websocket clients by 1.
func (m *Metrics) IncrementStreamClients() {
	m.streamClients.Add(1)
}

// DecrementStreamClients decrements connected websocket clients by 1.
func (m *Metrics) DecrementStreamClients() {
	m.streamClients.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	RequestsTotal   uint64    `json:"requests_total"`
	OrdersPlaced    uint64    `json:"orders_placed"`
	OrdersCancelled uint64    `json:"orders_cancelled"`
	BookRequests    uint64    `json:"book_requests"`
	ErrorsTotal     uint64    `json:"errors_total"`
	AvgLatencyNs    int64     `json:"avg_latency_ns"`
	StreamClients   int32     `json:"stream_clients"`
	Timestamp       time.Time `json:"timestamp"`
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		RequestsTotal:   m.requestsTotal.Load(),
		OrdersPlaced:    m.ordersPlaced.Load(),
		OrdersCancelled: m.ordersCancelled.Load(),
		BookRequests:    m.bookRequests.Load(),
		ErrorsTotal:     m.errorsTotal.Load(),
		AvgLatencyNs:    avgLatency,
		StreamClients:   m.streamClients.Load(),
		Timestamp:       time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.requestsTotal.Store(0)
	m.ordersPlaced.Store(0)
	m.ordersCancelled.Store(0)
	m.bookRequests.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.streamClients.Store(0)
}
