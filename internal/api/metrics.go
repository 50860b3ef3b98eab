package api

import (
	"sync"
	"time"
)

const DefaultMetricsSize = 100

// Metrics keeps the most recent request round-trip times in a ring buffer.
type Metrics struct {
	mu      sync.Mutex
	samples []time.Duration
	next    int
	full    bool
}

func NewMetrics(size int) *Metrics {
	if size < 1 {
		size = DefaultMetricsSize
	}
	return &Metrics{samples: make([]time.Duration, size)}
}

// Push records a sample, overwriting the oldest one when the buffer is full.
func (m *Metrics) Push(rtt time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.samples[m.next] = rtt
	m.next = (m.next + 1) % len(m.samples)
	if m.next == 0 {
		m.full = true
	}
}

func (m *Metrics) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lenLocked()
}

func (m *Metrics) lenLocked() int {
	if m.full {
		return len(m.samples)
	}
	return m.next
}

func (m *Metrics) IsFull() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.full
}

// Last returns the most recent sample, or zero when empty.
func (m *Metrics) Last() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lenLocked() == 0 {
		return 0
	}
	return m.samples[(m.next-1+len(m.samples))%len(m.samples)]
}

func (m *Metrics) Min() time.Duration {
	return m.fold(func(acc, v time.Duration) time.Duration { return min(acc, v) })
}

func (m *Metrics) Max() time.Duration {
	return m.fold(func(acc, v time.Duration) time.Duration { return max(acc, v) })
}

func (m *Metrics) Average() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.lenLocked()
	if n == 0 {
		return 0
	}
	var sum time.Duration
	for _, v := range m.samples[:n] {
		sum += v
	}
	return sum / time.Duration(n)
}

func (m *Metrics) fold(f func(acc, v time.Duration) time.Duration) time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.lenLocked()
	if n == 0 {
		return 0
	}
	acc := m.samples[0]
	for _, v := range m.samples[1:n] {
		acc = f(acc, v)
	}
	return acc
}
