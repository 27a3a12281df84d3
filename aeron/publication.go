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
	"sync/atomic"

	"github.com/aeron-io/aeron-go/aeron/logbuffer"
)

// Publication is a concurrent (many-writer) publication handle. Its data
// plane (offer/tryClaim over the log buffer) is out of scope here; this
// carries only the identity and lifecycle state the conductor manages.
type Publication struct {
	conductor *ClientConductor

	channel  string
	streamID int32
	sessionID int32

	// originalRegistrationID is stable across a publication rebind;
	// registrationID is the id currently backing this handle. Concurrent
	// publications never rebind in this implementation, so the two are
	// always equal, but the field is kept distinct to match the shape a
	// rebind-capable driver would require.
	originalRegistrationID int64
	registrationID         int64

	publicationLimitID int32
	channelStatusID    int32

	logBuffers *logbuffer.LogBuffers

	closed atomic.Bool
}

func newPublication(conductor *ClientConductor, channel string, streamID int32, ready *publicationReadyFields,
	logBuffers *logbuffer.LogBuffers) *Publication {
	return &Publication{
		conductor:              conductor,
		channel:                channel,
		streamID:               streamID,
		sessionID:              ready.sessionID,
		originalRegistrationID: ready.registrationID,
		registrationID:         ready.registrationID,
		publicationLimitID:     ready.publicationLimitID,
		channelStatusID:        ready.channelStatusIndicatorID,
		logBuffers:             logBuffers,
	}
}

// publicationReadyFields collects the fields carried by OnNewPublication /
// OnNewExclusivePublication, decoupled from the wire flyweight so the
// constructors here and in exclusive_publication.go share one shape.
type publicationReadyFields struct {
	registrationID           int64
	sessionID                int32
	publicationLimitID       int32
	channelStatusIndicatorID int32
}

// Channel is the URI this publication was registered with.
func (pub *Publication) Channel() string { return pub.channel }

// StreamID is the stream this publication was registered for.
func (pub *Publication) StreamID() int32 { return pub.streamID }

// SessionID is the publishing session assigned by the driver.
func (pub *Publication) SessionID() int32 { return pub.sessionID }

// RegistrationID is the correlation id currently backing this publication.
func (pub *Publication) RegistrationID() int64 { return pub.registrationID }

// OriginalRegistrationID is the correlation id assigned when this
// publication was first added, stable across any rebind.
func (pub *Publication) OriginalRegistrationID() int64 { return pub.originalRegistrationID }

// ChannelStatusID is the driver-allocated channel-status counter id.
func (pub *Publication) ChannelStatusID() int32 { return pub.channelStatusID }

// LogBuffers exposes the backing memory-mapped region for callers that write
// the data plane directly.
func (pub *Publication) LogBuffers() *logbuffer.LogBuffers { return pub.logBuffers }

// IsClosed reports whether Close has already completed for this publication.
func (pub *Publication) IsClosed() bool { return pub.closed.Load() }

// Close releases the publication, issuing removePublication to the driver
// and awaiting its acknowledgement. Closing an already-closed publication is
// a no-op.
func (pub *Publication) Close() error {
	return pub.conductor.ReleasePublication(pub)
}

func (pub *Publication) resourceRegistrationID() int64 { return pub.registrationID }
func (pub *Publication) markClosed()                   { pub.closed.Store(true) }
func (pub *Publication) logBuffersOwnerID() (int64, bool) {
	if pub.logBuffers == nil {
		return 0, false
	}
	return pub.registrationID, true
}
