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
	"time"

	"github.com/aeron-io/aeron-go/aeron/idlestrategy"
	"github.com/aeron-io/aeron-go/aeron/metrics"
)

// Default timing configuration, matching the values a media driver itself
// defaults to.
const (
	DefaultKeepAliveInterval     = 500 * time.Millisecond
	DefaultDriverTimeout         = 10 * time.Second
	DefaultInterServiceTimeout   = 10 * time.Second
	DefaultIdleSleep             = time.Millisecond
	DefaultResourceLinger        = 3 * time.Second
	DefaultResourceCheckInterval = time.Second
)

// Lock is the serialization primitive the conductor uses; *sync.Mutex
// already implements it, including TryLock added in Go 1.18, so it is the
// zero-value default.
type Lock interface {
	Lock()
	TryLock() bool
	Unlock()
}

// ErrorHandler receives every non-fatal failure the conductor observes
// outside of an in-flight await: driver registration failures surfaced only
// to an awaiting caller are not routed here, but channel-endpoint errors and
// user-callback panics are.
type ErrorHandler func(error)

// AvailableImageHandler is invoked when an image becomes available under a
// subscription.
type AvailableImageHandler func(*Image)

// UnavailableImageHandler is invoked when an image is no longer available.
type UnavailableImageHandler func(*Image)

// AvailableCounterHandler is invoked when a counter becomes available.
type AvailableCounterHandler func(countersReader interface{}, registrationID int64, counterID int32)

// UnavailableCounterHandler is invoked when a counter is no longer available.
type UnavailableCounterHandler func(countersReader interface{}, registrationID int64, counterID int32)

// Context carries every piece of configuration the Aeron client and its
// ClientConductor need. It uses chained setters on an exported struct
// (aeron.go and conductor.go read ctx.idleStrategy, ctx.errorHandler, etc.
// as plain fields within the package) rather than Go's functional-options
// idiom, since this is the same configuration object the conductor reaches
// into directly.
type Context struct {
	aeronDir string

	clientLock Lock
	epochClock EpochClock
	nanoClock  NanoClock

	keepAliveInterval     time.Duration
	driverTimeout         time.Duration
	interServiceTimeout   time.Duration
	idleSleep             time.Duration
	resourceLinger        time.Duration
	resourceCheckInterval time.Duration

	idleStrategy idlestrategy.Idler

	availableImageHandler     AvailableImageHandler
	unavailableImageHandler   UnavailableImageHandler
	availableCounterHandler   AvailableCounterHandler
	unavailableCounterHandler UnavailableCounterHandler
	errorHandler              ErrorHandler

	logBuffersFactory LogBuffersFactory

	metrics *metrics.Collector
}

// NewContext returns a Context populated with the same defaults a media
// driver's own CnC file would otherwise supply.
func NewContext() *Context {
	return &Context{
		aeronDir:              defaultAeronDir(),
		clientLock:            &sync.Mutex{},
		epochClock:            SystemEpochClock{},
		nanoClock:             SystemNanoClock{},
		keepAliveInterval:     DefaultKeepAliveInterval,
		driverTimeout:         DefaultDriverTimeout,
		interServiceTimeout:   DefaultInterServiceTimeout,
		idleSleep:             DefaultIdleSleep,
		resourceLinger:        DefaultResourceLinger,
		resourceCheckInterval: DefaultResourceCheckInterval,
		idleStrategy:          idlestrategy.NewBackoff(),
		errorHandler:          func(error) {},
		logBuffersFactory:     defaultLogBuffersFactory{},
	}
}

func defaultAeronDir() string {
	return filepath.Join(os.TempDir(), "aeron")
}

// AeronDir sets the shared-memory directory the media driver publishes its
// CnC file and log buffers under.
func (ctx *Context) AeronDir(dir string) *Context { ctx.aeronDir = dir; return ctx }

// CncFileName returns the path to the media driver's command-and-control file.
func (ctx *Context) CncFileName() string { return filepath.Join(ctx.aeronDir, "cnc.dat") }

// ClientLock overrides the serialization primitive.
func (ctx *Context) ClientLock(lock Lock) *Context { ctx.clientLock = lock; return ctx }

// EpochClock overrides the wall-clock source.
func (ctx *Context) EpochClock(clock EpochClock) *Context { ctx.epochClock = clock; return ctx }

// NanoClock overrides the monotonic clock source.
func (ctx *Context) NanoClock(clock NanoClock) *Context { ctx.nanoClock = clock; return ctx }

// KeepAliveInterval sets the client-to-driver keepalive period.
func (ctx *Context) KeepAliveInterval(d time.Duration) *Context {
	ctx.keepAliveInterval = d
	return ctx
}

// DriverTimeout sets the hard deadline for a single request, and for
// observing driver liveness.
func (ctx *Context) DriverTimeout(d time.Duration) *Context { ctx.driverTimeout = d; return ctx }

// InterServiceTimeout sets the max tolerated gap between service ticks.
func (ctx *Context) InterServiceTimeout(d time.Duration) *Context {
	ctx.interServiceTimeout = d
	return ctx
}

// IdleSleep sets the throttle for the service-tick gate and await backoff.
func (ctx *Context) IdleSleep(d time.Duration) *Context { ctx.idleSleep = d; return ctx }

// ResourceLinger sets the grace period lingering log buffers are kept mapped
// for after their refcount reaches zero.
func (ctx *Context) ResourceLinger(d time.Duration) *Context { ctx.resourceLinger = d; return ctx }

// ResourceCheckInterval sets how often the linger list is swept.
func (ctx *Context) ResourceCheckInterval(d time.Duration) *Context {
	ctx.resourceCheckInterval = d
	return ctx
}

// IdleStrategy overrides the idle strategy used between service ticks.
func (ctx *Context) IdleStrategy(s idlestrategy.Idler) *Context { ctx.idleStrategy = s; return ctx }

// AvailableImageHandler sets the process-wide default invoked when a
// subscription gains an image and no per-subscription handler was given.
func (ctx *Context) AvailableImageHandler(h AvailableImageHandler) *Context {
	ctx.availableImageHandler = h
	return ctx
}

// UnavailableImageHandler sets the process-wide default unavailable-image handler.
func (ctx *Context) UnavailableImageHandler(h UnavailableImageHandler) *Context {
	ctx.unavailableImageHandler = h
	return ctx
}

// AvailableCounterHandler sets the process-wide available-counter handler.
func (ctx *Context) AvailableCounterHandler(h AvailableCounterHandler) *Context {
	ctx.availableCounterHandler = h
	return ctx
}

// UnavailableCounterHandler sets the process-wide unavailable-counter handler.
func (ctx *Context) UnavailableCounterHandler(h UnavailableCounterHandler) *Context {
	ctx.unavailableCounterHandler = h
	return ctx
}

// ErrorHandler sets the sink for non-fatal exceptions.
func (ctx *Context) ErrorHandler(h ErrorHandler) *Context {
	if h != nil {
		ctx.errorHandler = h
	}
	return ctx
}

// LogBuffersFactory overrides how a log file name is mapped to a LogBuffers.
func (ctx *Context) LogBuffersFactory(f LogBuffersFactory) *Context {
	ctx.logBuffersFactory = f
	return ctx
}

// Metrics attaches a Prometheus Collector the conductor updates on every
// service tick. Optional: a Context with none set simply skips these
// updates, since every Collector method is nil-safe.
func (ctx *Context) Metrics(c *metrics.Collector) *Context {
	ctx.metrics = c
	return ctx
}
