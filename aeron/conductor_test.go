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
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aeron-io/aeron-go/aeron/driver"
	"github.com/aeron-io/aeron-go/aeron/idlestrategy"
	"github.com/aeron-io/aeron-go/aeron/logbuffer"
)

// fakeProxy is a driver.Proxy test double: every outbound call allocates
// and returns the next correlation id, exactly like the real proxy would,
// without touching a ring buffer.
type fakeProxy struct {
	mu                    sync.Mutex
	nextCorrelationID     int64
	lastDriverKeepaliveMs int64
	keepalivesSent        int
	clientClosed          bool
	removedPublications   []int64
	removedSubscriptions  []int64
	removedCounters       []int64
}

func (p *fakeProxy) nextID() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextCorrelationID++
	return p.nextCorrelationID
}

func (p *fakeProxy) AddPublication(channel string, streamID int32) int64         { return p.nextID() }
func (p *fakeProxy) AddExclusivePublication(channel string, streamID int32) int64 { return p.nextID() }
func (p *fakeProxy) RemovePublication(registrationID int64) int64 {
	p.mu.Lock()
	p.removedPublications = append(p.removedPublications, registrationID)
	p.mu.Unlock()
	return p.nextID()
}
func (p *fakeProxy) AddSubscription(channel string, streamID int32) int64 { return p.nextID() }
func (p *fakeProxy) RemoveSubscription(registrationID int64) int64 {
	p.mu.Lock()
	p.removedSubscriptions = append(p.removedSubscriptions, registrationID)
	p.mu.Unlock()
	return p.nextID()
}
func (p *fakeProxy) AddDestination(registrationID int64, endpoint string) int64    { return p.nextID() }
func (p *fakeProxy) RemoveDestination(registrationID int64, endpoint string) int64 { return p.nextID() }
func (p *fakeProxy) AddRcvDestination(registrationID int64, endpoint string) int64 { return p.nextID() }
func (p *fakeProxy) RemoveRcvDestination(registrationID int64, endpoint string) int64 {
	return p.nextID()
}
func (p *fakeProxy) AddCounter(typeID int32, key []byte, label string) int64 { return p.nextID() }
func (p *fakeProxy) RemoveCounter(registrationID int64) int64 {
	p.mu.Lock()
	p.removedCounters = append(p.removedCounters, registrationID)
	p.mu.Unlock()
	return p.nextID()
}
func (p *fakeProxy) SendClientKeepalive() { p.keepalivesSent++ }
func (p *fakeProxy) ClientClose()         { p.clientClosed = true }
func (p *fakeProxy) TimeOfLastDriverKeepaliveMs() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastDriverKeepaliveMs
}

func (p *fakeProxy) removedPublicationIDs() []int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]int64, len(p.removedPublications))
	copy(out, p.removedPublications)
	return out
}

// fakeEventsAdapter lets a test script exactly which driver events arrive,
// and in what order, without a real broadcast ring. Each call to Receive
// dispatches at most one queued event, matching the real adapter's
// fragment-at-a-time draining. Safe for one goroutine to enqueue() while
// another concurrently drives Receive() through an awaitResponse loop.
type fakeEventsAdapter struct {
	mu      sync.Mutex
	pending []queuedEvent
	lastID  int64
}

type queuedEvent struct {
	correlationID int64
	apply         func(driver.Listener)
}

func (a *fakeEventsAdapter) enqueue(correlationID int64, apply func(driver.Listener)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = append(a.pending, queuedEvent{correlationID: correlationID, apply: apply})
}

func (a *fakeEventsAdapter) Receive(listener driver.Listener, fragmentLimit int) int {
	a.mu.Lock()
	if len(a.pending) == 0 {
		a.mu.Unlock()
		return 0
	}
	ev := a.pending[0]
	a.pending = a.pending[1:]
	a.mu.Unlock()

	ev.apply(listener)

	a.mu.Lock()
	a.lastID = ev.correlationID
	a.mu.Unlock()
	return 1
}

func (a *fakeEventsAdapter) LastReceivedCorrelationID() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastID
}

// manualNanoClock is a NanoClock a test advances explicitly, so timeout
// arithmetic is deterministic instead of racing a wall clock.
type manualNanoClock struct{ now int64 }

func (c *manualNanoClock) Now() int64              { return c.now }
func (c *manualNanoClock) advance(d time.Duration) { c.now += int64(d) }

type manualEpochClock struct{ ms int64 }

func (c *manualEpochClock) Time() int64             { return c.ms }
func (c *manualEpochClock) advance(d time.Duration) { c.ms += d.Milliseconds() }

// tempLogBuffersFactory maps any file name to a freshly created, correctly
// sized temp file and wraps it for real, so LogBuffers refcounting and
// linger are exercised against real memory maps without a media driver.
type tempLogBuffersFactory struct {
	dir string
	t   *testing.T
}

const testTermLength = int64(64 * 1024)

func newTempLogBuffersFactory(t *testing.T) *tempLogBuffersFactory {
	return &tempLogBuffersFactory{dir: t.TempDir(), t: t}
}

func (f *tempLogBuffersFactory) Map(logFileName string) *logbuffer.LogBuffers {
	path := filepath.Join(f.dir, logFileName)
	length := testTermLength*logbuffer.PartitionCount + 4096
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	require.NoError(f.t, err)
	require.NoError(f.t, file.Truncate(length))
	require.NoError(f.t, file.Close())
	return logbuffer.Wrap(path)
}

// testHarness wires a ClientConductor to fake collaborators. By default it
// uses the real system clocks with a short driver timeout, so an
// awaitResponse loop started on its own goroutine can be completed by the
// test enqueuing the matching driver event. manualHarness below is used
// instead for the timeout-sweep tests, which exercise a single doWork tick
// under a clock the test controls directly.
type testHarness struct {
	t         *testing.T
	conductor *ClientConductor
	proxy     *fakeProxy
	adapter   *fakeEventsAdapter
}

func newTestHarness(t *testing.T, configure func(*Context)) *testHarness {
	proxy := &fakeProxy{}
	adapter := &fakeEventsAdapter{}

	ctx := NewContext().
		IdleStrategy(idlestrategy.Busy{}).
		LogBuffersFactory(newTempLogBuffersFactory(t)).
		IdleSleep(0).
		DriverTimeout(2 * time.Second)
	if configure != nil {
		configure(ctx)
	}

	conductor := NewClientConductor(ctx, proxy, adapter, nil)
	return &testHarness{t: t, conductor: conductor, proxy: proxy, adapter: adapter}
}

// manualHarness wires a ClientConductor to clocks the test advances by
// hand, for the deterministic single-tick timeout scenarios.
type manualHarness struct {
	t         *testing.T
	conductor *ClientConductor
	proxy     *fakeProxy
	adapter   *fakeEventsAdapter
	nanoClock *manualNanoClock
	epoch     *manualEpochClock
}

func newManualHarness(t *testing.T, configure func(*Context)) *manualHarness {
	proxy := &fakeProxy{}
	adapter := &fakeEventsAdapter{}
	nanoClock := &manualNanoClock{now: 1}
	epoch := &manualEpochClock{ms: 1}

	ctx := NewContext().
		IdleStrategy(idlestrategy.Busy{}).
		NanoClock(nanoClock).
		EpochClock(epoch).
		LogBuffersFactory(newTempLogBuffersFactory(t)).
		IdleSleep(0)
	if configure != nil {
		configure(ctx)
	}

	conductor := NewClientConductor(ctx, proxy, adapter, nil)
	return &manualHarness{t: t, conductor: conductor, proxy: proxy, adapter: adapter, nanoClock: nanoClock, epoch: epoch}
}

func TestAddPublicationHappyPath(t *testing.T) {
	h := newTestHarness(t, nil)

	var pub *Publication
	var addErr error
	done := make(chan struct{})
	go func() {
		pub, addErr = h.conductor.AddPublication("aeron:udp?endpoint=localhost:40123", 10)
		close(done)
	}()

	h.adapter.enqueue(1, func(l driver.Listener) {
		l.OnNewPublication(1, 1, 10, 0x11111111, 3, 5, "pub-1.logbuffer")
	})

	<-done
	require.NoError(t, addErr)
	require.NotNil(t, pub)
	require.EqualValues(t, 1, pub.RegistrationID())
	require.EqualValues(t, 10, pub.StreamID())
	require.EqualValues(t, 0x11111111, pub.SessionID())
	require.False(t, pub.IsClosed())

	h.conductor.ctx.clientLock.Lock()
	resource, ok := h.conductor.resourceByRegistrationID[1]
	h.conductor.ctx.clientLock.Unlock()
	require.True(t, ok)
	require.Same(t, pub, resource)

	h.adapter.enqueue(2, func(l driver.Listener) { l.OnOperationSuccess(2) })
	removeErr := h.conductor.ReleasePublication(pub)
	require.NoError(t, removeErr)
	require.True(t, pub.IsClosed())
	require.Equal(t, []int64{1}, h.proxy.removedPublicationIDs())

	// A second release is a no-op.
	require.NoError(t, h.conductor.ReleasePublication(pub))
	require.Len(t, h.proxy.removedPublicationIDs(), 1)
}

func TestAddSubscriptionDriverTimeoutLeavesSubscriptionRegistered(t *testing.T) {
	h := newTestHarness(t, func(ctx *Context) {
		ctx.DriverTimeout(20 * time.Millisecond)
	})

	// No driver event is ever enqueued for this call: it must time out.
	_, err := h.conductor.AddSubscription("aeron:ipc", 3, nil, nil)
	require.Error(t, err)
	var ce *ConductorError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, KindDriverTimeout, ce.Kind)

	// Spec §9 Open Question, resolved: the pre-inserted Subscription stays
	// registered after a timed-out add; a follow-up release succeeds
	// normally rather than erroring as "unknown resource".
	resource, ok := h.conductor.resourceByRegistrationID[1]
	require.True(t, ok)
	sub, ok := resource.(*Subscription)
	require.True(t, ok)
	require.False(t, sub.IsClosed())

	h.adapter.enqueue(2, func(l driver.Listener) { l.OnOperationSuccess(2) })
	require.NoError(t, h.conductor.ReleaseSubscription(sub))
	require.True(t, sub.IsClosed())
}

func TestSharedLogBuffersAcrossTwoImagesOnOneSubscription(t *testing.T) {
	h := newTestHarness(t, nil)

	sub := newSubscription(h.conductor, "aeron:ipc", 3, 20, nil, nil)
	h.conductor.resourceByRegistrationID[20] = sub

	h.conductor.OnAvailableImage(30, 3, 0x1, 20, 7, "log-A", "127.0.0.1:9999")
	h.conductor.OnAvailableImage(31, 3, 0x2, 20, 8, "log-A", "127.0.0.1:9999")

	require.Equal(t, 2, sub.ImageCount())

	bufA, ok := h.conductor.logBuffersByID[30]
	require.True(t, ok)
	require.EqualValues(t, 1, bufA.RefCount())

	bufB, ok := h.conductor.logBuffersByID[31]
	require.True(t, ok)
	require.EqualValues(t, 1, bufB.RefCount())

	h.conductor.OnUnavailableImage(30, 20, 3)
	require.Equal(t, 1, sub.ImageCount())
	_, stillMapped := h.conductor.logBuffersByID[30]
	require.False(t, stillMapped)
	require.Len(t, h.conductor.lingeringLogBuffers, 1)
}

func TestDriverKeepaliveLostClosesConductorAndReportsDriverTimeout(t *testing.T) {
	h := newManualHarness(t, func(ctx *Context) {
		ctx.DriverTimeout(500 * time.Millisecond).KeepAliveInterval(time.Millisecond)
	})

	h.epoch.advance(600 * time.Millisecond)
	h.nanoClock.advance(2 * time.Millisecond)

	_, err := h.conductor.DoWork()
	require.Error(t, err)
	var ce *ConductorError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, KindDriverTimeout, ce.Kind)
	require.True(t, ce.Fatal)
	require.True(t, h.conductor.IsClosed())
	require.True(t, h.proxy.clientClosed)
}

func TestChannelEndpointErrorReportedWithoutRemovingResource(t *testing.T) {
	h := newTestHarness(t, nil)

	var reported []error
	h.conductor.ctx.ErrorHandler(func(err error) { reported = append(reported, err) })

	sub := newSubscription(h.conductor, "aeron:ipc", 3, 20, nil, nil)
	sub.channelStatusID = 6
	h.conductor.resourceByRegistrationID[20] = sub

	h.conductor.OnChannelEndpointError(6, "bind failed")

	require.Len(t, reported, 1)
	var ce *ConductorError
	require.ErrorAs(t, reported[0], &ce)
	require.Equal(t, KindChannelEndpointError, ce.Kind)
	require.EqualValues(t, 6, ce.ChannelStatusID)

	_, ok := h.conductor.resourceByRegistrationID[20]
	require.True(t, ok)
	require.False(t, sub.IsClosed())
}

func TestInterServiceTimeoutIsFatalAndForceClosesResources(t *testing.T) {
	h := newManualHarness(t, func(ctx *Context) {
		ctx.InterServiceTimeout(100 * time.Millisecond)
	})

	sub := newSubscription(h.conductor, "aeron:ipc", 3, 20, nil, nil)
	h.conductor.resourceByRegistrationID[20] = sub

	h.nanoClock.advance(200 * time.Millisecond)

	_, err := h.conductor.DoWork()
	require.Error(t, err)
	var ce *ConductorError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, KindConductorServiceTimeout, ce.Kind)
	require.True(t, ce.Fatal)

	require.True(t, h.conductor.IsClosed())
	require.True(t, sub.IsClosed())
	require.Empty(t, h.conductor.resourceByRegistrationID)
	require.True(t, h.proxy.clientClosed)
}

func TestCloseIsIdempotent(t *testing.T) {
	h := newTestHarness(t, nil)

	require.NoError(t, h.conductor.Close())
	require.True(t, h.conductor.IsClosed())
	require.NoError(t, h.conductor.Close())
}

func TestInvalidArgumentRejectedBeforeIssuingCommand(t *testing.T) {
	h := newTestHarness(t, nil)

	oversizedKey := make([]byte, maxCounterKeyLength+1)
	_, err := h.conductor.AddCounter(1, oversizedKey, "label")
	require.Error(t, err)
	var ce *ConductorError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, KindInvalidArgument, ce.Kind)

	h.proxy.mu.Lock()
	defer h.proxy.mu.Unlock()
	require.Zero(t, h.proxy.nextCorrelationID)
}

func TestOperationsRejectedAfterClose(t *testing.T) {
	h := newTestHarness(t, nil)
	require.NoError(t, h.conductor.Close())

	_, err := h.conductor.AddPublication("aeron:ipc", 1)
	require.Error(t, err)
	var ce *ConductorError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, KindInvalidState, ce.Kind)
}

func TestRegistrationFailureSurfacesOnlyToAwaitingCaller(t *testing.T) {
	h := newTestHarness(t, nil)

	var pub *Publication
	var addErr error
	done := make(chan struct{})
	go func() {
		pub, addErr = h.conductor.AddPublication("aeron:ipc", 1)
		close(done)
	}()

	h.adapter.enqueue(1, func(l driver.Listener) {
		l.OnError(1, 42, "channel not supported")
	})

	<-done
	require.Error(t, addErr)
	require.Nil(t, pub)
	var ce *ConductorError
	require.ErrorAs(t, addErr, &ce)
	require.Equal(t, KindRegistrationFailure, ce.Kind)
	require.EqualValues(t, 42, ce.DriverErrorCode)
}
