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

// ExclusivePublication is a single-writer publication handle, registered
// with the driver through addExclusivePublication and kept as its own
// registry entry distinct from a concurrent Publication (an explicit
// resolution of what the distilled command set left ambiguous: exclusive and
// concurrent publications never share a registration id domain).
type ExclusivePublication struct {
	conductor *ClientConductor

	channel   string
	streamID  int32
	sessionID int32

	originalRegistrationID int64
	registrationID         int64

	publicationLimitID int32
	channelStatusID    int32

	logBuffers *logbuffer.LogBuffers

	closed atomic.Bool
}

func newExclusivePublication(conductor *ClientConductor, channel string, streamID int32,
	ready *publicationReadyFields, logBuffers *logbuffer.LogBuffers) *ExclusivePublication {
	return &ExclusivePublication{
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

// Channel is the URI this publication was registered with.
func (pub *ExclusivePublication) Channel() string { return pub.channel }

// StreamID is the stream this publication was registered for.
func (pub *ExclusivePublication) StreamID() int32 { return pub.streamID }

// SessionID is the publishing session assigned by the driver.
func (pub *ExclusivePublication) SessionID() int32 { return pub.sessionID }

// RegistrationID is the correlation id currently backing this publication.
func (pub *ExclusivePublication) RegistrationID() int64 { return pub.registrationID }

// ChannelStatusID is the driver-allocated channel-status counter id.
func (pub *ExclusivePublication) ChannelStatusID() int32 { return pub.channelStatusID }

// LogBuffers exposes the backing memory-mapped region for callers that write
// the data plane directly.
func (pub *ExclusivePublication) LogBuffers() *logbuffer.LogBuffers { return pub.logBuffers }

// IsClosed reports whether Close has already completed for this publication.
func (pub *ExclusivePublication) IsClosed() bool { return pub.closed.Load() }

// Close releases the publication, issuing removePublication to the driver
// and awaiting its acknowledgement.
func (pub *ExclusivePublication) Close() error {
	return pub.conductor.ReleaseExclusivePublication(pub)
}

func (pub *ExclusivePublication) resourceRegistrationID() int64 { return pub.registrationID }
func (pub *ExclusivePublication) markClosed()                   { pub.closed.Store(true) }
func (pub *ExclusivePublication) logBuffersOwnerID() (int64, bool) {
	if pub.logBuffers == nil {
		return 0, false
	}
	return pub.registrationID, true
}
