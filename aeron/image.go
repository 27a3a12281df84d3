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

// Image is a source's read position under a Subscription, created on
// OnAvailableImage and removed on OnUnavailableImage. Its data
// plane (term reads, position tracking) is out of scope here; this handle
// only carries the identity and lifecycle state the conductor manages.
type Image struct {
	conductor *ClientConductor

	correlationID              int64
	subscriptionRegistrationID int64
	sessionID                  int32
	streamID                   int32
	sourceIdentity             string

	logBuffers *logbuffer.LogBuffers

	closed atomic.Bool
}

// CorrelationID is the registration id this image's LogBuffers is keyed
// under; it is distinct per image even when several images share a
// subscription.
func (img *Image) CorrelationID() int64 { return img.correlationID }

// SubscriptionRegistrationID is the owning Subscription's registration id.
func (img *Image) SubscriptionRegistrationID() int64 { return img.subscriptionRegistrationID }

// SessionID is the publishing session this image observes.
func (img *Image) SessionID() int32 { return img.sessionID }

// StreamID is the stream this image belongs to.
func (img *Image) StreamID() int32 { return img.streamID }

// SourceIdentity describes the network source this image was resolved from.
func (img *Image) SourceIdentity() string { return img.sourceIdentity }

// LogBuffers exposes the backing memory-mapped region for callers that read
// the data plane directly.
func (img *Image) LogBuffers() *logbuffer.LogBuffers { return img.logBuffers }

// IsClosed reports whether this image has been closed, either because
// OnUnavailableImage removed it or because its subscription was released.
func (img *Image) IsClosed() bool { return img.closed.Load() }
