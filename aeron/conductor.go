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

package aeron

import (
	"time"

	"github.com/op/go-logging"

	"github.com/aeron-io/aeron-go/aeron/driver"
	"github.com/aeron-io/aeron-go/aeron/logbuffer"
)

var conductorLogger = logging.MustGetLogger("conductor")

// noCorrelationID is the sentinel service() is called with from DoWork's own
// background tick, as opposed to from inside an API call's await loop.
const noCorrelationID = int64(-1)

// fragmentLimit bounds how many driver events a single service tick will
// dispatch, so one very chatty tick cannot starve the conductor's own
// timeout bookkeeping.
const fragmentLimit = 10

const (
	maxCounterKeyLength   = int32(392)
	maxCounterLabelLength = int32(380)
)

// ClientConductor is the single-threaded serializer for every client-driver
// interaction: the hard part of this whole package. All exported
// operations acquire ctx.clientLock for their full duration; DoWork is the
// only entry point that uses a non-blocking try-lock, since it represents a
// background agent tick rather than a client request.
type ClientConductor struct {
	ctx *Context

	driverProxy         driver.Proxy
	driverEventsAdapter driver.EventsAdapter

	countersReader interface{}

	resourceByRegistrationID map[int64]clientResource
	logBuffersByID           map[int64]*logbuffer.LogBuffers
	lingeringLogBuffers      []*logbuffer.LogBuffers

	// stashedChannel is the single-slot "stashed channel" technique:
	// OnNewPublication/OnNewExclusivePublication never carry the channel
	// string, so the conductor recovers it from whichever add*Publication
	// call is currently awaiting. Sound only because the lock is held
	// across that entire await, so at most one such call is ever in flight.
	stashedChannel string

	// driverException is latched by OnError for the caller currently
	// awaiting that correlation id.
	driverException error

	timeOfLastService        int64
	timeOfLastKeepAlive      int64
	timeOfLastResourcesCheck int64

	closed bool
}

// NewClientConductor wires a conductor to its driver proxy and events
// adapter. countersReader is handed verbatim to available/unavailable
// counter handlers; it is untyped here so this package does not need to
// depend on whatever concrete counters reader a caller chooses.
func NewClientConductor(ctx *Context, proxy driver.Proxy, adapter driver.EventsAdapter, countersReader interface{}) *ClientConductor {
	now := ctx.nanoClock.Now()
	return &ClientConductor{
		ctx:                      ctx,
		driverProxy:              proxy,
		driverEventsAdapter:      adapter,
		countersReader:           countersReader,
		resourceByRegistrationID: make(map[int64]clientResource),
		logBuffersByID:           make(map[int64]*logbuffer.LogBuffers),
		timeOfLastService:        now,
		timeOfLastKeepAlive:      now,
		timeOfLastResourcesCheck: now,
	}
}

// DoWork is the entry point an external agent runner calls repeatedly. It
// never blocks: if another call already holds the lock it returns
// immediately with zero work done.
func (c *ClientConductor) DoWork() (int, error) {
	if !c.ctx.clientLock.TryLock() {
		return 0, nil
	}
	defer c.ctx.clientLock.Unlock()

	if c.closed {
		return 0, errClosedConductor()
	}

	return c.service(noCorrelationID)
}

// service is called either from DoWork's background tick (correlationID ==
// noCorrelationID) or from inside an API call's awaitResponse loop. Either
// way the caller already holds ctx.clientLock.
func (c *ClientConductor) service(correlationID int64) (int, error) {
	isAwait := correlationID != noCorrelationID

	workCount, err := c.doService()
	if err == nil {
		return workCount, nil
	}

	c.ctx.errorHandler(err)

	if isAwait || isFatalError(err) {
		return workCount, err
	}
	return workCount, nil
}

func isFatalError(err error) bool {
	ce, ok := err.(*ConductorError)
	return ok && ce.Fatal
}

// doService runs the timeout checks in order, then a single bounded poll of
// the driver events adapter").
func (c *ClientConductor) doService() (int, error) {
	now := c.ctx.nanoClock.Now()

	if now-c.timeOfLastService <= c.ctx.idleSleep.Nanoseconds() {
		return 0, nil
	}

	c.ctx.metrics.ObserveServiceTickGap(float64(now-c.timeOfLastService) / float64(time.Second))

	if err := c.checkInterServiceTimeout(now); err != nil {
		return 0, err
	}
	if err := c.checkLiveness(now); err != nil {
		return 0, err
	}
	c.checkLingerSweep(now)
	c.reportGauges()

	c.timeOfLastService = now

	workCount := c.driverEventsAdapter.Receive(c, fragmentLimit)
	return workCount, nil
}

func (c *ClientConductor) checkInterServiceTimeout(now int64) error {
	gap := now - c.timeOfLastService
	threshold := c.ctx.interServiceTimeout.Nanoseconds()
	if gap <= threshold {
		return nil
	}

	conductorLogger.Warningf("inter-service timeout: %d ns since last service, threshold %d ns", gap, threshold)
	c.ctx.metrics.IncDriverTimeouts()
	c.close()
	return errConductorServiceTimeout(gap, threshold)
}

func (c *ClientConductor) checkLiveness(now int64) error {
	if now-c.timeOfLastKeepAlive <= c.ctx.keepAliveInterval.Nanoseconds() {
		return nil
	}

	lastDriverKeepaliveMs := c.driverProxy.TimeOfLastDriverKeepaliveMs()
	epochNow := c.ctx.epochClock.Time()

	if epochNow > lastDriverKeepaliveMs+c.ctx.driverTimeout.Milliseconds() {
		conductorLogger.Warningf("driver keepalive stale: now=%d lastDriverKeepaliveMs=%d", epochNow, lastDriverKeepaliveMs)
		c.ctx.metrics.IncDriverTimeouts()
		c.close()
		return errDriverTimeout(true, "driver keepalive stale: now=%d lastDriverKeepaliveMs=%d", epochNow, lastDriverKeepaliveMs)
	}

	c.driverProxy.SendClientKeepalive()
	c.timeOfLastKeepAlive = now
	return nil
}

// reportGauges pushes the current registry sizes to the configured metrics
// Collector. Cheap no-op when no Collector was attached.
func (c *ClientConductor) reportGauges() {
	c.ctx.metrics.SetResourcesRegistered(len(c.resourceByRegistrationID))
	c.ctx.metrics.SetLogBuffersMapped(len(c.logBuffersByID))
	c.ctx.metrics.SetLingeringEntries(len(c.lingeringLogBuffers))
}

func (c *ClientConductor) checkLingerSweep(now int64) {
	if now-c.timeOfLastResourcesCheck <= c.ctx.resourceCheckInterval.Nanoseconds() {
		return
	}
	c.sweepLingeringLogBuffers(now)
	c.timeOfLastResourcesCheck = now
}

// close is the idempotent teardown shared by an orderly Close() and a fatal
// timeout. Calling it twice performs teardown exactly once.
func (c *ClientConductor) close() {
	if c.closed {
		return
	}
	c.closed = true

	addedLinger := c.forceCloseAllResources()
	c.driverProxy.ClientClose()
	if addedLinger {
		sleepBrieflyForLinger()
	}
	c.deleteAllLingering()
}

// Close tears the conductor down: every registered resource is force-closed,
// the driver is told once via clientClose, and every lingering LogBuffers is
// deleted unconditionally. Safe to call more than once.
func (c *ClientConductor) Close() error {
	c.ctx.clientLock.Lock()
	defer c.ctx.clientLock.Unlock()
	c.close()
	return nil
}

// IsClosed reports whether Close (or a fatal timeout) has already torn this
// conductor down.
func (c *ClientConductor) IsClosed() bool {
	c.ctx.clientLock.Lock()
	defer c.ctx.clientLock.Unlock()
	return c.closed
}

// sleepBrieflyForLinger gives concurrent readers a moment to notice that a
// force-close has just moved resources' log buffers to the linger list,
// before close deletes every lingering entry.
func sleepBrieflyForLinger() {
	time.Sleep(time.Millisecond)
}
