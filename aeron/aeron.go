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
	cryptorand "crypto/rand"
	"encoding/binary"
	"time"

	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"github.com/aeron-io/aeron-go/aeron/broadcast"
	"github.com/aeron-io/aeron-go/aeron/counters"
	"github.com/aeron-io/aeron-go/aeron/driver"
	"github.com/aeron-io/aeron-go/aeron/ringbuffer"
	"github.com/aeron-io/aeron-go/aeron/util/memmap"
)

var logger = logging.MustGetLogger("aeron")

// Aeron is the process-wide handle to a media driver connection: it maps
// the driver's CnC file, wires the command ring buffer and broadcast event
// channel the ClientConductor needs, and drives the conductor's DoWork loop
// on its own goroutine so application code never has to.
type Aeron struct {
	context   *Context
	conductor *ClientConductor
	cncFile   *memmap.File

	runnerDone chan struct{}
}

// Connect maps the media driver's CnC file under ctx.AeronDir and starts a
// ClientConductor against it. The returned Aeron owns that conductor for its
// whole lifetime; Close tears both down.
func Connect(ctx *Context) (*Aeron, error) {
	if ctx == nil {
		ctx = NewContext()
	}

	metadata, cncFile, err := counters.MapFileErr(ctx.CncFileName())
	if err != nil {
		return nil, errors.Wrap(err, "connect to media driver")
	}

	toDriverRingBuffer := new(ringbuffer.ManyToOne)
	toDriverRingBuffer.Init(metadata.ToDriverBuf.Get())
	toDriverRingBuffer.SetConsumerHeartbeatTimeMs(ctx.epochClock.Time())

	proxy := driver.NewProxy(generateClientID(), toDriverRingBuffer)

	toClientsReceiver := broadcast.NewReceiver(metadata.ToClientsBuf.Get())
	toClientsCopyReceiver := broadcast.NewCopyReceiver(toClientsReceiver)
	eventsAdapter := driver.NewEventsAdapter(toClientsCopyReceiver)

	countersReader := counters.NewCountersReader(metadata.ValuesBuf.Get())

	a := &Aeron{
		context:    ctx,
		conductor:  NewClientConductor(ctx, proxy, eventsAdapter, countersReader),
		cncFile:    cncFile,
		runnerDone: make(chan struct{}),
	}

	logger.Debugf("connected to media driver at %s", ctx.CncFileName())

	go a.runConductor()

	return a, nil
}

// generateClientID returns a random 64-bit id identifying this client to the
// media driver, falling back to a time-based value if the system entropy
// source is unavailable.
func generateClientID() int64 {
	var b [8]byte
	if _, err := cryptorand.Read(b[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(b[:]))
}

// runConductor is the agent runner loop: call DoWork, idle on however much
// work it found, repeat, until the conductor reports itself closed.
func (a *Aeron) runConductor() {
	defer close(a.runnerDone)

	for {
		workCount, err := a.conductor.DoWork()
		if err != nil {
			a.context.errorHandler(err)
			if a.conductor.IsClosed() {
				return
			}
		}
		a.context.idleStrategy.Idle(workCount)
	}
}

// Close tears down the conductor (releasing every outstanding publication,
// subscription and counter) and unmaps the CnC file. Safe to call more than
// once.
func (a *Aeron) Close() error {
	err := a.conductor.Close()

	<-a.runnerDone

	if cncErr := a.cncFile.Close(); cncErr != nil && err == nil {
		err = cncErr
	}
	return err
}

// IsClosed reports whether Close (or a fatal conductor timeout) has already
// torn this connection down.
func (a *Aeron) IsClosed() bool { return a.conductor.IsClosed() }

// AddPublication registers a new concurrent publication and blocks until
// the driver confirms it.
func (a *Aeron) AddPublication(channel string, streamID int32) (*Publication, error) {
	return a.conductor.AddPublication(channel, streamID)
}

// AddExclusivePublication registers a new single-writer publication and
// blocks until the driver confirms it.
func (a *Aeron) AddExclusivePublication(channel string, streamID int32) (*ExclusivePublication, error) {
	return a.conductor.AddExclusivePublication(channel, streamID)
}

// AddSubscription registers a new subscription, with optional per-subscription
// image callbacks overriding the context's defaults, and blocks until the
// driver confirms it.
func (a *Aeron) AddSubscription(channel string, streamID int32,
	available AvailableImageHandler, unavailable UnavailableImageHandler) (*Subscription, error) {
	return a.conductor.AddSubscription(channel, streamID, available, unavailable)
}

// AddCounter registers a new counter after validating key/label bounds and
// blocks until the driver confirms it.
func (a *Aeron) AddCounter(typeID int32, key []byte, label string) (*Counter, error) {
	return a.conductor.AddCounter(typeID, key, label)
}

// AddDestination adds a manual-mode destination to an existing publication.
func (a *Aeron) AddDestination(registrationID int64, endpoint string) error {
	return a.conductor.AddDestination(registrationID, endpoint)
}

// RemoveDestination removes a manual-mode destination from an existing publication.
func (a *Aeron) RemoveDestination(registrationID int64, endpoint string) error {
	return a.conductor.RemoveDestination(registrationID, endpoint)
}

// AddRcvDestination adds a manual-mode destination to an existing multi-destination subscription.
func (a *Aeron) AddRcvDestination(registrationID int64, endpoint string) error {
	return a.conductor.AddRcvDestination(registrationID, endpoint)
}

// RemoveRcvDestination removes a manual-mode destination from an existing multi-destination subscription.
func (a *Aeron) RemoveRcvDestination(registrationID int64, endpoint string) error {
	return a.conductor.RemoveRcvDestination(registrationID, endpoint)
}
