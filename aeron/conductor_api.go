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

// awaitResponse implements the await protocol: block under the
// already-held conductor lock, servicing the conductor on every tick, until
// the driver events adapter reports it last saw our own correlation id, or
// the deadline passes. The lock is never released during this loop — that is
// what makes the stashed-channel technique safe.
func (c *ClientConductor) awaitResponse(correlationID int64) error {
	c.driverException = nil
	deadline := c.ctx.nanoClock.Now() + c.ctx.driverTimeout.Nanoseconds()

	for {
		c.ctx.idleStrategy.Idle(0)

		if _, err := c.service(correlationID); err != nil {
			return err
		}

		if c.driverEventsAdapter.LastReceivedCorrelationID() == correlationID {
			if c.driverException != nil {
				err := c.driverException
				c.driverException = nil
				return err
			}
			return nil
		}

		if c.ctx.nanoClock.Now() > deadline {
			c.ctx.metrics.IncDriverTimeouts()
			return errDriverTimeout(false, "no response for correlation id %d within %s", correlationID, c.ctx.driverTimeout)
		}
	}
}

// AddPublication registers a new concurrent publication and blocks until the
// driver confirms it.
func (c *ClientConductor) AddPublication(channel string, streamID int32) (*Publication, error) {
	c.ctx.clientLock.Lock()
	defer c.ctx.clientLock.Unlock()

	if c.closed {
		return nil, errClosedConductor()
	}

	c.stashedChannel = channel
	correlationID := c.driverProxy.AddPublication(channel, streamID)

	if err := c.awaitResponse(correlationID); err != nil {
		return nil, err
	}

	resource, ok := c.resourceByRegistrationID[correlationID]
	if !ok {
		return nil, newError(KindUnexpected, false, "publication %d missing from registry after await", correlationID)
	}
	pub, ok := resource.(*Publication)
	if !ok {
		return nil, newError(KindUnexpected, false, "registry entry %d is not a Publication", correlationID)
	}
	return pub, nil
}

// AddExclusivePublication registers a new single-writer publication and
// blocks until the driver confirms it.
func (c *ClientConductor) AddExclusivePublication(channel string, streamID int32) (*ExclusivePublication, error) {
	c.ctx.clientLock.Lock()
	defer c.ctx.clientLock.Unlock()

	if c.closed {
		return nil, errClosedConductor()
	}

	c.stashedChannel = channel
	correlationID := c.driverProxy.AddExclusivePublication(channel, streamID)

	if err := c.awaitResponse(correlationID); err != nil {
		return nil, err
	}

	resource, ok := c.resourceByRegistrationID[correlationID]
	if !ok {
		return nil, newError(KindUnexpected, false, "exclusive publication %d missing from registry after await", correlationID)
	}
	pub, ok := resource.(*ExclusivePublication)
	if !ok {
		return nil, newError(KindUnexpected, false, "registry entry %d is not an ExclusivePublication", correlationID)
	}
	return pub, nil
}

// AddSubscription registers a new subscription. Unlike a publication, the
// Subscription handle is inserted into the registry before the await begins,
// so a driver timeout leaves it registered.
func (c *ClientConductor) AddSubscription(channel string, streamID int32,
	available AvailableImageHandler, unavailable UnavailableImageHandler) (*Subscription, error) {
	c.ctx.clientLock.Lock()
	defer c.ctx.clientLock.Unlock()

	if c.closed {
		return nil, errClosedConductor()
	}

	if available == nil {
		available = c.ctx.availableImageHandler
	}
	if unavailable == nil {
		unavailable = c.ctx.unavailableImageHandler
	}

	correlationID := c.driverProxy.AddSubscription(channel, streamID)

	sub := newSubscription(c, channel, streamID, correlationID, available, unavailable)
	c.resourceByRegistrationID[correlationID] = sub

	if err := c.awaitResponse(correlationID); err != nil {
		return nil, err
	}

	return sub, nil
}

// AddCounter registers a new counter after validating key/label bounds
//, and blocks until the driver confirms it.
func (c *ClientConductor) AddCounter(typeID int32, key []byte, label string) (*Counter, error) {
	c.ctx.clientLock.Lock()
	defer c.ctx.clientLock.Unlock()

	if c.closed {
		return nil, errClosedConductor()
	}
	if int32(len(key)) > maxCounterKeyLength {
		return nil, errInvalidArgument("counter key length %d exceeds max %d", len(key), maxCounterKeyLength)
	}
	if int32(len(label)) > maxCounterLabelLength {
		return nil, errInvalidArgument("counter label length %d exceeds max %d", len(label), maxCounterLabelLength)
	}

	correlationID := c.driverProxy.AddCounter(typeID, key, label)

	if err := c.awaitResponse(correlationID); err != nil {
		return nil, err
	}

	resource, ok := c.resourceByRegistrationID[correlationID]
	if !ok {
		return nil, newError(KindUnexpected, false, "counter %d missing from registry after await", correlationID)
	}
	counter, ok := resource.(*Counter)
	if !ok {
		return nil, newError(KindUnexpected, false, "registry entry %d is not a Counter", correlationID)
	}
	return counter, nil
}

func (c *ClientConductor) destinationCommand(send func(int64, string) int64, registrationID int64, endpoint string) error {
	c.ctx.clientLock.Lock()
	defer c.ctx.clientLock.Unlock()

	if c.closed {
		return errClosedConductor()
	}

	correlationID := send(registrationID, endpoint)
	return c.awaitResponse(correlationID)
}

// AddDestination adds a manual-mode destination to an existing publication.
func (c *ClientConductor) AddDestination(registrationID int64, endpoint string) error {
	return c.destinationCommand(c.driverProxy.AddDestination, registrationID, endpoint)
}

// RemoveDestination removes a manual-mode destination from an existing publication.
func (c *ClientConductor) RemoveDestination(registrationID int64, endpoint string) error {
	return c.destinationCommand(c.driverProxy.RemoveDestination, registrationID, endpoint)
}

// AddRcvDestination adds a manual-mode destination to an existing multi-destination subscription.
func (c *ClientConductor) AddRcvDestination(registrationID int64, endpoint string) error {
	return c.destinationCommand(c.driverProxy.AddRcvDestination, registrationID, endpoint)
}

// RemoveRcvDestination removes a manual-mode destination from an existing multi-destination subscription.
func (c *ClientConductor) RemoveRcvDestination(registrationID int64, endpoint string) error {
	return c.destinationCommand(c.driverProxy.RemoveRcvDestination, registrationID, endpoint)
}

// ReleasePublication releases pub, issuing removePublication and awaiting
// its acknowledgement. A no-op if pub is already closed.
func (c *ClientConductor) ReleasePublication(pub *Publication) error {
	c.ctx.clientLock.Lock()
	defer c.ctx.clientLock.Unlock()

	if pub.IsClosed() {
		return nil
	}
	if c.closed {
		return errClosedConductor()
	}

	pub.markClosed()
	delete(c.resourceByRegistrationID, pub.registrationID)
	if pub.logBuffers != nil {
		c.releaseLogBuffers(pub.logBuffers, pub.registrationID)
	}

	correlationID := c.driverProxy.RemovePublication(pub.registrationID)
	return c.awaitResponse(correlationID)
}

// ReleaseExclusivePublication releases pub, issuing removePublication and
// awaiting its acknowledgement.
func (c *ClientConductor) ReleaseExclusivePublication(pub *ExclusivePublication) error {
	c.ctx.clientLock.Lock()
	defer c.ctx.clientLock.Unlock()

	if pub.IsClosed() {
		return nil
	}
	if c.closed {
		return errClosedConductor()
	}

	pub.markClosed()
	delete(c.resourceByRegistrationID, pub.registrationID)
	if pub.logBuffers != nil {
		c.releaseLogBuffers(pub.logBuffers, pub.registrationID)
	}

	correlationID := c.driverProxy.RemovePublication(pub.registrationID)
	return c.awaitResponse(correlationID)
}

// ReleaseSubscription releases sub and every image it still holds, issuing
// removeSubscription and awaiting its acknowledgement.
func (c *ClientConductor) ReleaseSubscription(sub *Subscription) error {
	c.ctx.clientLock.Lock()
	defer c.ctx.clientLock.Unlock()

	if sub.IsClosed() {
		return nil
	}
	if c.closed {
		return errClosedConductor()
	}

	sub.markClosed()
	delete(c.resourceByRegistrationID, sub.registrationID)

	for _, img := range sub.images {
		img.closed.Store(true)
		c.releaseLogBuffers(img.logBuffers, img.correlationID)
	}
	sub.images = nil

	correlationID := c.driverProxy.RemoveSubscription(sub.registrationID)
	return c.awaitResponse(correlationID)
}

// ReleaseCounter releases counter, issuing removeCounter and awaiting its
// acknowledgement.
func (c *ClientConductor) ReleaseCounter(counter *Counter) error {
	c.ctx.clientLock.Lock()
	defer c.ctx.clientLock.Unlock()

	if counter.IsClosed() {
		return nil
	}
	if c.closed {
		return errClosedConductor()
	}

	counter.markClosed()
	delete(c.resourceByRegistrationID, counter.registrationID)

	correlationID := c.driverProxy.RemoveCounter(counter.registrationID)
	return c.awaitResponse(correlationID)
}
