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

import "github.com/aeron-io/aeron-go/aeron/logbuffer"

// LogBuffersFactory maps a log file name to a LogBuffers handle. The default
// implementation memory-maps the named file; tests substitute one that
// creates and maps a temporary file so the conductor can be exercised without
// a real media driver.
type LogBuffersFactory interface {
	Map(logFileName string) *logbuffer.LogBuffers
}

type defaultLogBuffersFactory struct{}

func (defaultLogBuffersFactory) Map(logFileName string) *logbuffer.LogBuffers {
	return logbuffer.Wrap(logFileName)
}

// clientResource is the common surface every registry entry (Publication,
// ExclusivePublication, Subscription, Counter) implements so the conductor
// can manage their lifecycle generically.
type clientResource interface {
	resourceRegistrationID() int64
	markClosed()
	// logBuffersOwnerID reports the registration id under which this
	// resource's LogBuffers reference (if any) was acquired, so force-close
	// can release it without a driver round trip.
	logBuffersOwnerID() (int64, bool)
}

// logBuffers returns the existing LogBuffers for registrationID, or maps
// fileName and registers a new one. Either way the returned LogBuffers has
// had its reference count incremented before this call returns,
// so concurrent events for the same registration id (e.g. a publication
// event and a replicated image event) each hold their own count.
func (c *ClientConductor) logBuffers(registrationID int64, fileName string) *logbuffer.LogBuffers {
	if existing, ok := c.logBuffersByID[registrationID]; ok {
		existing.IncRef()
		return existing
	}

	buf := c.ctx.logBuffersFactory.Map(fileName)
	buf.IncRef()
	c.logBuffersByID[registrationID] = buf
	return buf
}

// releaseLogBuffers decrements the refcount of buf, registered under
// registrationID. Once it reaches zero, buf is removed from the active map
// and pushed onto the linger list with the current time stamped.
func (c *ClientConductor) releaseLogBuffers(buf *logbuffer.LogBuffers, registrationID int64) {
	if buf.DecRef() > 0 {
		return
	}

	delete(c.logBuffersByID, registrationID)
	buf.SetTimeOfLastStateChange(c.ctx.nanoClock.Now())
	c.lingeringLogBuffers = append(c.lingeringLogBuffers, buf)
}

// sweepLingeringLogBuffers deletes every lingering LogBuffers whose
// RESOURCE_LINGER has elapsed. Removal is unordered (swap-with-last, spec
// §9 "Unordered fast removal") since the list's order is not observable.
func (c *ClientConductor) sweepLingeringLogBuffers(now int64) {
	lingerNs := c.ctx.resourceLinger.Nanoseconds()

	for i := len(c.lingeringLogBuffers) - 1; i >= 0; i-- {
		entry := c.lingeringLogBuffers[i]
		if now-entry.TimeOfLastStateChange() <= lingerNs {
			continue
		}

		last := len(c.lingeringLogBuffers) - 1
		c.lingeringLogBuffers[i] = c.lingeringLogBuffers[last]
		c.lingeringLogBuffers = c.lingeringLogBuffers[:last]

		if err := entry.Delete(); err != nil {
			c.ctx.errorHandler(err)
		}
	}
}

// deleteAllLingering unconditionally deletes every lingering LogBuffers, run
// once on an orderly close after force-close has had a chance to push new
// entries onto the list.
func (c *ClientConductor) deleteAllLingering() {
	for _, entry := range c.lingeringLogBuffers {
		if err := entry.Delete(); err != nil {
			c.ctx.errorHandler(err)
		}
	}
	c.lingeringLogBuffers = nil
}

// forceCloseAllResources closes every registered resource without a driver
// round trip, releasing their LogBuffers references. This is used on fatal
// timeouts and as the first step of an orderly close. It reports
// whether any LogBuffers was newly pushed onto the linger list, so the
// caller knows whether to pause long enough for concurrent readers to notice.
func (c *ClientConductor) forceCloseAllResources() bool {
	now := c.ctx.nanoClock.Now()
	addedLinger := false

	for registrationID, resource := range c.resourceByRegistrationID {
		resource.markClosed()

		if ownerID, ok := resource.logBuffersOwnerID(); ok {
			if buf, ok := c.logBuffersByID[ownerID]; ok {
				if buf.DecRef() <= 0 {
					delete(c.logBuffersByID, ownerID)
					buf.SetTimeOfLastStateChange(now)
					c.lingeringLogBuffers = append(c.lingeringLogBuffers, buf)
					addedLinger = true
				}
			}
		}

		delete(c.resourceByRegistrationID, registrationID)
	}

	return addedLinger
}
