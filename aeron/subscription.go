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

// Subscription is a handle returned by AddSubscription. It owns a list of
// Images keyed by their image correlation id and carries a
// channel-status-indicator id assigned asynchronously by OnNewSubscription.
type Subscription struct {
	conductor *ClientConductor

	channel        string
	streamID       int32
	registrationID int64

	// channelStatusID is unallocated until OnNewSubscription assigns it.
	channelStatusID int32

	availableImageHandler   AvailableImageHandler
	unavailableImageHandler UnavailableImageHandler

	images []*Image

	closed atomic.Bool
}

const channelStatusIDUnallocated = int32(-1)

func newSubscription(conductor *ClientConductor, channel string, streamID int32, registrationID int64,
	available AvailableImageHandler, unavailable UnavailableImageHandler) *Subscription {
	return &Subscription{
		conductor:               conductor,
		channel:                 channel,
		streamID:                streamID,
		registrationID:          registrationID,
		channelStatusID:         channelStatusIDUnallocated,
		availableImageHandler:   available,
		unavailableImageHandler: unavailable,
	}
}

// Channel is the URI this subscription was registered with.
func (sub *Subscription) Channel() string { return sub.channel }

// StreamID is the stream this subscription receives.
func (sub *Subscription) StreamID() int32 { return sub.streamID }

// RegistrationID is the correlation id assigned to this subscription.
func (sub *Subscription) RegistrationID() int64 { return sub.registrationID }

// ChannelStatusID is the driver-allocated channel-status counter id, or
// channelStatusIDUnallocated if OnNewSubscription has not yet run.
func (sub *Subscription) ChannelStatusID() int32 { return sub.channelStatusID }

// IsConnected reports whether at least one image is currently available.
func (sub *Subscription) IsConnected() bool { return len(sub.images) > 0 }

// ImageCount returns the number of images currently held.
func (sub *Subscription) ImageCount() int { return len(sub.images) }

// Images returns a snapshot of the currently held images.
func (sub *Subscription) Images() []*Image {
	out := make([]*Image, len(sub.images))
	copy(out, sub.images)
	return out
}

// HasImage reports whether imageCorrelationID is already held by this
// subscription, used by OnAvailableImage to guard against a duplicate.
func (sub *Subscription) HasImage(imageCorrelationID int64) bool {
	for _, img := range sub.images {
		if img.correlationID == imageCorrelationID {
			return true
		}
	}
	return false
}

func (sub *Subscription) addImage(img *Image) {
	sub.images = append(sub.images, img)
}

// removeImage removes and returns the image for imageCorrelationID, if held.
// Removal is unordered (swap-with-last); list order is not observable.
func (sub *Subscription) removeImage(imageCorrelationID int64) (*Image, bool) {
	for i, img := range sub.images {
		if img.correlationID != imageCorrelationID {
			continue
		}
		last := len(sub.images) - 1
		sub.images[i] = sub.images[last]
		sub.images = sub.images[:last]
		return img, true
	}
	return nil, false
}

// IsClosed reports whether Close has already completed for this subscription.
func (sub *Subscription) IsClosed() bool { return sub.closed.Load() }

// Close releases the subscription, issuing removeSubscription to the driver
// and awaiting its acknowledgement. Closing an already-closed subscription is
// a no-op.
func (sub *Subscription) Close() error {
	return sub.conductor.ReleaseSubscription(sub)
}

func (sub *Subscription) resourceRegistrationID() int64    { return sub.registrationID }
func (sub *Subscription) markClosed()                      { sub.closed.Store(true) }
func (sub *Subscription) logBuffersOwnerID() (int64, bool) { return 0, false }
