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

// This file implements driver.Listener on *ClientConductor: the dispatch
// table the events adapter drives while the conductor's lock is held. Every
// handler here runs on whichever goroutine is currently servicing the
// conductor, whether that is a background DoWork tick or a client API call's
// own await loop.

// OnError latches a registration failure for whichever call is awaiting
// this correlation id. A background tick that happens to observe it (no one
// is awaiting it) simply leaves it latched; the next await resets
// driverException to nil before it can be misread.
func (c *ClientConductor) OnError(correlationID int64, errorCode int32, message string) {
	c.driverException = errRegistrationFailure(correlationID, errorCode, message)
	c.ctx.metrics.IncRegistrationFailures()
}

// OnNewPublication completes an AddPublication await: map (or share) the
// LogBuffers, build the handle using the stashed channel, and insert it into
// the registry under correlationID.
func (c *ClientConductor) OnNewPublication(correlationID int64, registrationID int64, streamID int32, sessionID int32,
	publicationLimitID int32, statusIndicatorID int32, logFileName string) {
	logBuffers := c.logBuffers(registrationID, logFileName)
	ready := &publicationReadyFields{
		registrationID:           registrationID,
		sessionID:                sessionID,
		publicationLimitID:       publicationLimitID,
		channelStatusIndicatorID: statusIndicatorID,
	}
	pub := newPublication(c, c.stashedChannel, streamID, ready, logBuffers)
	c.resourceByRegistrationID[correlationID] = pub
}

// OnNewExclusivePublication is OnNewPublication's counterpart for
// addExclusivePublication.
func (c *ClientConductor) OnNewExclusivePublication(correlationID int64, registrationID int64, streamID int32, sessionID int32,
	publicationLimitID int32, statusIndicatorID int32, logFileName string) {
	logBuffers := c.logBuffers(registrationID, logFileName)
	ready := &publicationReadyFields{
		registrationID:           registrationID,
		sessionID:                sessionID,
		publicationLimitID:       publicationLimitID,
		channelStatusIndicatorID: statusIndicatorID,
	}
	pub := newExclusivePublication(c, c.stashedChannel, streamID, ready, logBuffers)
	c.resourceByRegistrationID[correlationID] = pub
}

// OnOperationSuccess is the bare ack used by destination add/remove
// commands; the await loop's correlation-id match is the only signal it
// needs to carry.
func (c *ClientConductor) OnOperationSuccess(correlationID int64) {}

// OnNewSubscription assigns the channel-status id to the Subscription
// addSubscription already pre-inserted into the registry.
func (c *ClientConductor) OnNewSubscription(correlationID int64, statusIndicatorID int32) {
	resource, ok := c.resourceByRegistrationID[correlationID]
	if !ok {
		return
	}
	if sub, ok := resource.(*Subscription); ok {
		sub.channelStatusID = statusIndicatorID
	}
}

// OnAvailableImage looks up the owning subscription, maps (or shares) the
// image's LogBuffers, invokes the subscription's availableImage callback,
// and only then adds the image to the subscription's list -- in that order,
// so the application never observes an image before its callback has run.
func (c *ClientConductor) OnAvailableImage(imageCorrelationID int64, streamID int32, sessionID int32,
	subscriptionRegistrationID int64, subscriberPositionID int32, logFileName string, sourceIdentity string) {
	resource, ok := c.resourceByRegistrationID[subscriptionRegistrationID]
	if !ok {
		return
	}
	sub, ok := resource.(*Subscription)
	if !ok || sub.HasImage(imageCorrelationID) {
		return
	}

	logBuffers := c.logBuffers(imageCorrelationID, logFileName)
	img := &Image{
		conductor:                  c,
		correlationID:              imageCorrelationID,
		subscriptionRegistrationID: subscriptionRegistrationID,
		sessionID:                  sessionID,
		streamID:                   streamID,
		sourceIdentity:             sourceIdentity,
		logBuffers:                 logBuffers,
	}

	if handler := sub.availableImageHandler; handler != nil {
		c.invokeUserCallback(func() { handler(img) })
	}

	sub.addImage(img)
}

// OnUnavailableImage removes the image from its subscription, invokes the
// unavailableImage callback if one is set, then releases the image's
// LogBuffers reference.
func (c *ClientConductor) OnUnavailableImage(imageCorrelationID int64, subscriptionRegistrationID int64, streamID int32) {
	resource, ok := c.resourceByRegistrationID[subscriptionRegistrationID]
	if !ok {
		return
	}
	sub, ok := resource.(*Subscription)
	if !ok {
		return
	}

	img, found := sub.removeImage(imageCorrelationID)
	if !found {
		return
	}
	img.closed.Store(true)

	if handler := sub.unavailableImageHandler; handler != nil {
		c.invokeUserCallback(func() { handler(img) })
	}

	c.releaseLogBuffers(img.logBuffers, img.correlationID)
}

// OnNewCounter inserts the new Counter into the registry and immediately
// delivers OnAvailableCounter to the process-wide handler, since this client
// itself is the counter's creator.
func (c *ClientConductor) OnNewCounter(correlationID int64, counterID int32) {
	counter := newCounter(c, correlationID, counterID)
	c.resourceByRegistrationID[correlationID] = counter

	if handler := c.ctx.availableCounterHandler; handler != nil {
		c.invokeUserCallback(func() { handler(c.countersReader, correlationID, counterID) })
	}
}

// OnUnavailableCounter invokes the process-wide unavailable-counter handler.
// The counter resource itself is left registered; only an explicit
// ReleaseCounter removes it.
func (c *ClientConductor) OnUnavailableCounter(registrationID int64, counterID int32) {
	if handler := c.ctx.unavailableCounterHandler; handler != nil {
		c.invokeUserCallback(func() { handler(c.countersReader, registrationID, counterID) })
	}
}

// OnClientTimeout means the driver has unilaterally decided this client is
// gone; there is nothing left to negotiate, so the conductor tears itself
// down the same way a fatal timeout would.
func (c *ClientConductor) OnClientTimeout() {
	c.close()
}

// OnChannelEndpointError reports a non-fatal, asynchronous error for every
// registered Publication, ExclusivePublication, or Subscription whose
// channel-status id matches statusIndicatorID. The resource is left intact
// and registered; only the error handler is invoked.
func (c *ClientConductor) OnChannelEndpointError(statusIndicatorID int32, message string) {
	for _, resource := range c.resourceByRegistrationID {
		channelStatusID, ok := channelStatusIDOf(resource)
		if ok && channelStatusID == statusIndicatorID {
			c.ctx.errorHandler(errChannelEndpoint(statusIndicatorID, message))
		}
	}
}

func channelStatusIDOf(resource clientResource) (int32, bool) {
	switch r := resource.(type) {
	case *Publication:
		return r.channelStatusID, true
	case *ExclusivePublication:
		return r.channelStatusID, true
	case *Subscription:
		return r.channelStatusID, true
	default:
		return 0, false
	}
}

// invokeUserCallback runs fn, reporting (never propagating) a panic as a
// non-fatal Unexpected error.
func (c *ClientConductor) invokeUserCallback(fn func()) {
	defer func() {
		if r := recover(); r == nil {
			return
		} else if err, ok := r.(error); ok {
			c.ctx.errorHandler(errUnexpected(err, "callback panicked"))
		} else {
			c.ctx.errorHandler(newError(KindUnexpected, false, "callback panicked: %v", r))
		}
	}()
	fn()
}
