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

// Package driver is the client conductor's only window onto the media
// driver: a Proxy for outbound commands and an EventsAdapter for inbound
// ones, each expressed as an interface so the conductor can be exercised
// against a shared-memory-backed implementation in production or a fake in
// tests.
package driver

// Proxy issues outbound commands to the media driver and reports the last
// wall-clock time it observed the driver's own keepalive.
type Proxy interface {
	AddPublication(channel string, streamID int32) int64
	AddExclusivePublication(channel string, streamID int32) int64
	RemovePublication(registrationID int64) int64
	AddSubscription(channel string, streamID int32) int64
	RemoveSubscription(registrationID int64) int64
	AddDestination(registrationID int64, endpoint string) int64
	RemoveDestination(registrationID int64, endpoint string) int64
	AddRcvDestination(registrationID int64, endpoint string) int64
	RemoveRcvDestination(registrationID int64, endpoint string) int64
	AddCounter(typeID int32, key []byte, label string) int64
	RemoveCounter(registrationID int64) int64
	SendClientKeepalive()
	ClientClose()
	TimeOfLastDriverKeepaliveMs() int64
}

// Listener receives every event EventsAdapter decodes off the inbound
// broadcast ring, in the order they were published.
type Listener interface {
	OnError(correlationID int64, errorCode int32, message string)
	OnAvailableImage(imageCorrelationID int64, streamID int32, sessionID int32,
		subscriptionRegistrationID int64, subscriberPositionID int32, logFileName string, sourceIdentity string)
	OnNewPublication(correlationID int64, registrationID int64, streamID int32, sessionID int32,
		publicationLimitID int32, statusIndicatorID int32, logFileName string)
	OnNewExclusivePublication(correlationID int64, registrationID int64, streamID int32, sessionID int32,
		publicationLimitID int32, statusIndicatorID int32, logFileName string)
	OnOperationSuccess(correlationID int64)
	OnUnavailableImage(imageCorrelationID int64, subscriptionRegistrationID int64, streamID int32)
	OnNewSubscription(correlationID int64, statusIndicatorID int32)
	OnNewCounter(correlationID int64, counterID int32)
	OnUnavailableCounter(registrationID int64, counterID int32)
	OnClientTimeout()
	OnChannelEndpointError(statusIndicatorID int32, message string)
}

// EventsAdapter polls the inbound broadcast ring, decodes waiting events,
// and dispatches them to listener, at most fragmentLimit per Receive call;
// the production adapter dispatches at most one per call. LastReceivedCorrelationID
// lets the conductor's await loop detect completion of its own request
// without the adapter knowing anything about awaiting.
type EventsAdapter interface {
	Receive(listener Listener, fragmentLimit int) int
	LastReceivedCorrelationID() int64
}
