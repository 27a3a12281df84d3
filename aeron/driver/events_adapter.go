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

package driver

import (
	"github.com/aeron-io/aeron-go/aeron/atomic"
	"github.com/aeron-io/aeron-go/aeron/broadcast"
	"github.com/aeron-io/aeron-go/aeron/command"
)

// toClientEventsAdapter is the production EventsAdapter, decoding the next
// record the broadcast receiver has waiting into the command flyweights and
// calling the matching Listener method. Each Receive call handles at most one
// record, so successive calls deliver events in order.
type toClientEventsAdapter struct {
	receiver                   *broadcast.CopyReceiver
	lastReceivedCorrelationID int64
}

// NewEventsAdapter returns an EventsAdapter reading from receiver.
func NewEventsAdapter(receiver *broadcast.CopyReceiver) EventsAdapter {
	return &toClientEventsAdapter{receiver: receiver}
}

func (a *toClientEventsAdapter) LastReceivedCorrelationID() int64 {
	return a.lastReceivedCorrelationID
}

func (a *toClientEventsAdapter) Receive(listener Listener, fragmentLimit int) int {
	count := 0
	a.receiver.Receive(func(msgTypeID int32, buffer *atomic.Buffer, offset int32, length int32) {
		if count >= fragmentLimit {
			return
		}
		count++
		a.dispatch(msgTypeID, buffer, offset, listener)
	})
	return count
}

func (a *toClientEventsAdapter) dispatch(msgTypeID int32, buffer *atomic.Buffer, offset int32, listener Listener) {
	switch msgTypeID {
	case command.OnError:
		var m command.ErrorResponse
		m.Wrap(buffer, offset)
		a.lastReceivedCorrelationID = m.OffendingCorrelationID()
		listener.OnError(m.OffendingCorrelationID(), m.ErrorCode(), m.ErrorMessage())

	case command.OnAvailableImage:
		var m command.ImageBuffersReady
		m.Wrap(buffer, offset)
		logFileName := m.LogFileName()
		logFileEnd := int32(28) + 4 + int32(len(logFileName))
		sourceIdentity := m.SourceIdentity(logFileEnd)
		listener.OnAvailableImage(m.CorrelationID(), m.StreamID(), m.SessionID(),
			m.SubscriptionRegistrationID(), m.SubscriberPositionID(), logFileName, sourceIdentity)

	case command.OnPublicationReady:
		var m command.PublicationBuffersReady
		m.Wrap(buffer, offset)
		a.lastReceivedCorrelationID = m.CorrelationID()
		listener.OnNewPublication(m.CorrelationID(), m.RegistrationID(), m.StreamID(), m.SessionID(),
			m.PublicationLimitID(), m.ChannelStatusIndicatorID(), m.LogFileName())

	case command.OnExclusivePublicationReady:
		var m command.PublicationBuffersReady
		m.Wrap(buffer, offset)
		a.lastReceivedCorrelationID = m.CorrelationID()
		listener.OnNewExclusivePublication(m.CorrelationID(), m.RegistrationID(), m.StreamID(), m.SessionID(),
			m.PublicationLimitID(), m.ChannelStatusIndicatorID(), m.LogFileName())

	case command.OnOperationSuccess:
		var m command.OperationSucceeded
		m.Wrap(buffer, offset)
		a.lastReceivedCorrelationID = m.CorrelationID()
		listener.OnOperationSuccess(m.CorrelationID())

	case command.OnUnavailableImage:
		var m command.ImageMessage
		m.Wrap(buffer, offset)
		a.lastReceivedCorrelationID = m.CorrelationID()
		listener.OnUnavailableImage(m.CorrelationID(), m.SubscriptionRegistrationID(), m.StreamID())

	case command.OnSubscriptionReady:
		var m command.SubscriptionReady
		m.Wrap(buffer, offset)
		a.lastReceivedCorrelationID = m.CorrelationID()
		listener.OnNewSubscription(m.CorrelationID(), m.ChannelStatusIndicatorID())

	case command.OnCounterReady:
		var m command.CounterUpdate
		m.Wrap(buffer, offset)
		a.lastReceivedCorrelationID = m.CorrelationID()
		listener.OnNewCounter(m.CorrelationID(), m.CounterID())

	case command.OnUnavailableCounter:
		var m command.CounterUpdate
		m.Wrap(buffer, offset)
		a.lastReceivedCorrelationID = m.CorrelationID()
		listener.OnUnavailableCounter(m.CorrelationID(), m.CounterID())

	case command.OnClientTimeout:
		listener.OnClientTimeout()

	case command.OnChannelEndpointError:
		var m command.ChannelEndpointError
		m.Wrap(buffer, offset)
		listener.OnChannelEndpointError(m.StatusIndicatorID(), m.ErrorMessage())
	}
}
