// Copyright 2025 RouteSec Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics defines light-weight interfaces for metrics gathering. All
// components accept these interfaces instead of concrete implementations, so
// instrumentation stays optional: a nil metric is valid and discards all
// observations. The prometheus-backed implementations live in this package as
// well.
package metrics

import (
	"sync"
)

// Counter describes a metric that accumulates values monotonically.
type Counter interface {
	With(labelValues ...string) Counter
	Add(delta float64)
}

// Gauge describes a metric that takes specific values over time.
type Gauge interface {
	With(labelValues ...string) Gauge
	Set(value float64)
	Add(delta float64)
}

// Histogram describes a metric that takes repeated observations of the same
// kind of thing, and produces a statistical summary of those observations.
type Histogram interface {
	With(labelValues ...string) Histogram
	Observe(value float64)
}

// CounterInc increases the passed counter by one. Does nothing if c is nil.
func CounterInc(c Counter) {
	if c != nil {
		c.Add(1)
	}
}

// CounterAdd increases the passed counter by delta. Does nothing if c is nil.
func CounterAdd(c Counter, delta float64) {
	if c != nil {
		c.Add(delta)
	}
}

// CounterWith returns the counter with the label values set. Returns nil if c
// is nil.
func CounterWith(c Counter, labelValues ...string) Counter {
	if c == nil {
		return nil
	}
	return c.With(labelValues...)
}

// GaugeSet sets the passed gauge to the value. Does nothing if g is nil.
func GaugeSet(g Gauge, value float64) {
	if g != nil {
		g.Set(value)
	}
}

// GaugeAdd increases the passed gauge by delta. Does nothing if g is nil.
func GaugeAdd(g Gauge, delta float64) {
	if g != nil {
		g.Add(delta)
	}
}

// GaugeWith returns the gauge with the label values set. Returns nil if g is
// nil.
func GaugeWith(g Gauge, labelValues ...string) Gauge {
	if g == nil {
		return nil
	}
	return g.With(labelValues...)
}

// HistogramObserve observes the value on the histogram. Does nothing if h is
// nil.
func HistogramObserve(h Histogram, value float64) {
	if h != nil {
		h.Observe(value)
	}
}

// TestCounter implements the Counter interface with an in-memory value for
// use in tests. Label values are ignored.
type TestCounter struct {
	v atomicFloat
}

// NewTestCounter returns a counter that accumulates in memory.
func NewTestCounter() *TestCounter {
	return &TestCounter{}
}

// With implements Counter.
func (c *TestCounter) With(labelValues ...string) Counter { return c }

// Add implements Counter.
func (c *TestCounter) Add(delta float64) { c.v.add(delta) }

// Value returns the current value of the counter.
func (c *TestCounter) Value() float64 { return c.v.load() }

// TestGauge implements the Gauge interface with an in-memory value for use in
// tests. Label values are ignored.
type TestGauge struct {
	v atomicFloat
}

// NewTestGauge returns a gauge that records in memory.
func NewTestGauge() *TestGauge {
	return &TestGauge{}
}

// With implements Gauge.
func (g *TestGauge) With(labelValues ...string) Gauge { return g }

// Set implements Gauge.
func (g *TestGauge) Set(value float64) { g.v.store(value) }

// Add implements Gauge.
func (g *TestGauge) Add(delta float64) { g.v.add(delta) }

// Value returns the current value of the gauge.
func (g *TestGauge) Value() float64 { return g.v.load() }

type atomicFloat struct {
	mu sync.Mutex
	v  float64
}

func (f *atomicFloat) add(delta float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.v += delta
}

func (f *atomicFloat) store(v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.v = v
}

func (f *atomicFloat) load() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.v
}
