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
	"sync/atomic"

	aeronatomic "github.com/aeron-io/aeron-go/aeron/atomic"
	"github.com/aeron-io/aeron-go/aeron/command"
	"github.com/aeron-io/aeron-go/aeron/ringbuffer"
)

// scratchLength bounds a single encoded command: correlated header plus two
// URIs or a key+label, comfortably under the ring buffer's own per-message
// ceiling.
const scratchLength = int32(4096)

// toDriverProxy is the production Proxy, encoding each command into a
// scratch buffer and writing it onto the to-driver command ring.
// It is always invoked from the client conductor's single lock, so the
// scratch buffer and correlation counter need no synchronization of their
// own beyond that serialization.
type toDriverProxy struct {
	clientID      int64
	commandBuffer *ringbuffer.ManyToOne
	scratch       *aeronatomic.Buffer
	nextCorrelationID int64
}

// NewProxy returns a Proxy that writes commands onto commandBuffer on behalf
// of clientID.
func NewProxy(clientID int64, commandBuffer *ringbuffer.ManyToOne) Proxy {
	return &toDriverProxy{
		clientID:      clientID,
		commandBuffer: commandBuffer,
		scratch:       aeronatomic.MakeBuffer(scratchLength),
	}
}

func (p *toDriverProxy) nextCorrelation() int64 {
	return atomic.AddInt64(&p.nextCorrelationID, 1)
}

func (p *toDriverProxy) AddPublication(channel string, streamID int32) int64 {
	correlationID := p.nextCorrelation()
	var msg command.PublicationMessage
	msg.Wrap(p.scratch, 0)
	msg.SetClientID(p.clientID)
	msg.SetCorrelationID(correlationID)
	msg.SetStreamID(streamID)
	end := msg.SetChannel(channel)
	p.write(command.AddPublication, end)
	return correlationID
}

func (p *toDriverProxy) AddExclusivePublication(channel string, streamID int32) int64 {
	correlationID := p.nextCorrelation()
	var msg command.PublicationMessage
	msg.Wrap(p.scratch, 0)
	msg.SetClientID(p.clientID)
	msg.SetCorrelationID(correlationID)
	msg.SetStreamID(streamID)
	end := msg.SetChannel(channel)
	p.write(command.AddExclusivePublication, end)
	return correlationID
}

func (p *toDriverProxy) RemovePublication(registrationID int64) int64 {
	return p.writeRemove(command.RemovePublication, registrationID)
}

func (p *toDriverProxy) AddSubscription(channel string, streamID int32) int64 {
	correlationID := p.nextCorrelation()
	var msg command.SubscriptionMessage
	msg.Wrap(p.scratch, 0)
	msg.SetClientID(p.clientID)
	msg.SetCorrelationID(correlationID)
	msg.SetRegistrationCorrelationID(-1)
	msg.SetStreamID(streamID)
	end := msg.SetChannel(channel)
	p.write(command.AddSubscription, end)
	return correlationID
}

func (p *toDriverProxy) RemoveSubscription(registrationID int64) int64 {
	return p.writeRemove(command.RemoveSubscription, registrationID)
}

func (p *toDriverProxy) AddDestination(registrationID int64, endpoint string) int64 {
	return p.writeDestination(command.AddDestination, registrationID, endpoint)
}

func (p *toDriverProxy) RemoveDestination(registrationID int64, endpoint string) int64 {
	return p.writeDestination(command.RemoveDestination, registrationID, endpoint)
}

func (p *toDriverProxy) AddRcvDestination(registrationID int64, endpoint string) int64 {
	return p.writeDestination(command.AddRcvDestination, registrationID, endpoint)
}

func (p *toDriverProxy) RemoveRcvDestination(registrationID int64, endpoint string) int64 {
	return p.writeDestination(command.RemoveRcvDestination, registrationID, endpoint)
}

func (p *toDriverProxy) AddCounter(typeID int32, key []byte, label string) int64 {
	correlationID := p.nextCorrelation()
	var msg command.CounterMessage
	msg.Wrap(p.scratch, 0)
	msg.SetClientID(p.clientID)
	msg.SetCorrelationID(correlationID)
	msg.SetTypeID(typeID)
	keyEnd := msg.SetKey(key)
	end := msg.SetLabel(keyEnd-24, label)
	p.write(command.AddCounter, end)
	return correlationID
}

func (p *toDriverProxy) RemoveCounter(registrationID int64) int64 {
	return p.writeRemove(command.RemoveCounter, registrationID)
}

func (p *toDriverProxy) SendClientKeepalive() {
	correlationID := p.nextCorrelation()
	var msg command.CorrelatedMessage
	msg.Wrap(p.scratch, 0)
	msg.SetClientID(p.clientID)
	msg.SetCorrelationID(correlationID)
	p.write(command.ClientKeepalive, 16)
}

func (p *toDriverProxy) ClientClose() {
	correlationID := p.nextCorrelation()
	var msg command.CorrelatedMessage
	msg.Wrap(p.scratch, 0)
	msg.SetClientID(p.clientID)
	msg.SetCorrelationID(correlationID)
	p.write(command.ClientClose, 16)
}

func (p *toDriverProxy) TimeOfLastDriverKeepaliveMs() int64 {
	return p.commandBuffer.ConsumerHeartbeatTimeMs()
}

func (p *toDriverProxy) writeRemove(msgTypeID int32, registrationID int64) int64 {
	correlationID := p.nextCorrelation()
	var msg command.RemoveMessage
	msg.Wrap(p.scratch, 0)
	msg.SetClientID(p.clientID)
	msg.SetCorrelationID(correlationID)
	msg.SetRegistrationID(registrationID)
	p.write(msgTypeID, 24)
	return correlationID
}

func (p *toDriverProxy) writeDestination(msgTypeID int32, registrationID int64, endpoint string) int64 {
	correlationID := p.nextCorrelation()
	var msg command.DestinationMessage
	msg.Wrap(p.scratch, 0)
	msg.SetClientID(p.clientID)
	msg.SetCorrelationID(correlationID)
	msg.SetRegistrationID(registrationID)
	end := msg.SetChannel(endpoint)
	p.write(msgTypeID, end)
	return correlationID
}

func (p *toDriverProxy) write(msgTypeID int32, length int32) {
	for {
		err := p.commandBuffer.Write(msgTypeID, p.scratch, 0, length)
		if err == nil {
			return
		}
		if err != ringbuffer.ErrInsufficientCapacity {
			panic(err)
		}
		// the driver is behind; spin briefly and retry rather than dropping
		// a command the caller is blocking on an ack for.
	}
}
