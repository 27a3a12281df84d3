/*
Copyright 2016 Stanislav Liberman

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package metrics exposes a ClientConductor's internal bookkeeping as
// Prometheus instruments: how many resources it currently holds, how many
// log buffers are mapped and lingering, and how often it trips a driver or
// inter-service timeout.
//
// Unlike a single-process daemon's metrics package, a Collector here is
// built per Context rather than registered through package-level vars and
// an init(), since a process can hold more than one Aeron connection and
// prometheus.MustRegister panics on a second registration of the same
// metric name.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collector holds the Prometheus instruments for a single ClientConductor.
// A nil *Collector is safe to call every method on; Context's default has
// no Collector attached, and the conductor never has to branch on whether
// metrics were configured.
type Collector struct {
	resourcesRegistered prometheus.Gauge
	logBuffersMapped    prometheus.Gauge
	lingeringEntries    prometheus.Gauge
	driverTimeouts      prometheus.Counter
	registrationFailure prometheus.Counter
	serviceTickGap      prometheus.Histogram
}

// NewCollector builds a Collector. namespace/subsystem prefix every metric
// name, so a process with several connections can tell them apart once
// each is registered under its own labels.
func NewCollector(namespace, subsystem string) *Collector {
	return &Collector{
		resourcesRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "resources_registered",
			Help:      "Number of publications, subscriptions and counters currently registered with the driver.",
		}),
		logBuffersMapped: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "log_buffers_mapped",
			Help:      "Number of distinct LogBuffers currently memory-mapped.",
		}),
		lingeringEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "log_buffers_lingering",
			Help:      "Number of LogBuffers awaiting their linger timeout before being unmapped.",
		}),
		driverTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "driver_timeouts_total",
			Help:      "Number of driver timeouts (keepalive or await) and conductor inter-service timeouts.",
		}),
		registrationFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "registration_failures_total",
			Help:      "Number of ON_ERROR responses the driver returned to a registration request.",
		}),
		serviceTickGap: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "service_tick_gap_seconds",
			Help:      "Observed gap between consecutive DoWork service ticks.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Register adds every instrument to reg. Pass prometheus.DefaultRegisterer
// to expose them on the process-wide /metrics endpoint, or a
// prometheus.NewRegistry() in a test that wants an isolated view.
func (c *Collector) Register(reg prometheus.Registerer) error {
	if c == nil {
		return nil
	}
	collectors := []prometheus.Collector{
		c.resourcesRegistered,
		c.logBuffersMapped,
		c.lingeringEntries,
		c.driverTimeouts,
		c.registrationFailure,
		c.serviceTickGap,
	}
	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

// SetResourcesRegistered records the current count of live resources.
func (c *Collector) SetResourcesRegistered(n int) {
	if c == nil {
		return
	}
	c.resourcesRegistered.Set(float64(n))
}

// SetLogBuffersMapped records the current count of mapped LogBuffers.
func (c *Collector) SetLogBuffersMapped(n int) {
	if c == nil {
		return
	}
	c.logBuffersMapped.Set(float64(n))
}

// SetLingeringEntries records the current count of LogBuffers awaiting
// their linger timeout.
func (c *Collector) SetLingeringEntries(n int) {
	if c == nil {
		return
	}
	c.lingeringEntries.Set(float64(n))
}

// IncDriverTimeouts records a driver or conductor-service timeout trip.
func (c *Collector) IncDriverTimeouts() {
	if c == nil {
		return
	}
	c.driverTimeouts.Inc()
}

// IncRegistrationFailures records an ON_ERROR response to a registration request.
func (c *Collector) IncRegistrationFailures() {
	if c == nil {
		return
	}
	c.registrationFailure.Inc()
}

// ObserveServiceTickGap records the time elapsed since the previous service tick.
func (c *Collector) ObserveServiceTickGap(seconds float64) {
	if c == nil {
		return
	}
	c.serviceTickGap.Observe(seconds)
}
