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

import "sync/atomic"

// Counter wraps a driver-allocated counter id, keyed in the registry by the
// correlation id of the addCounter command that created it.
type Counter struct {
	conductor *ClientConductor

	registrationID int64
	counterID      int32

	closed atomic.Bool
}

func newCounter(conductor *ClientConductor, registrationID int64, counterID int32) *Counter {
	return &Counter{conductor: conductor, registrationID: registrationID, counterID: counterID}
}

// RegistrationID is the correlation id assigned to this counter.
func (c *Counter) RegistrationID() int64 { return c.registrationID }

// ID is the driver-allocated counter id, used to index into the values buffer.
func (c *Counter) ID() int32 { return c.counterID }

// IsClosed reports whether Close has already completed for this counter.
func (c *Counter) IsClosed() bool { return c.closed.Load() }

// Close releases the counter, issuing removeCounter to the driver and
// awaiting its acknowledgement.
func (c *Counter) Close() error {
	return c.conductor.ReleaseCounter(c)
}

func (c *Counter) resourceRegistrationID() int64    { return c.registrationID }
func (c *Counter) markClosed()                      { c.closed.Store(true) }
func (c *Counter) logBuffersOwnerID() (int64, bool) { return 0, false }
