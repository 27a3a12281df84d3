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

// Package command implements the flyweights for the control-protocol
// messages exchanged between the client conductor and the media driver: a
// correlated header followed by command-specific fields, native byte order,
// ASCII strings as a length-prefixed byte run. This package does not claim
// wire compatibility with any particular media driver build — only internal
// consistency between this client's proxy and adapter.
package command

import (
	"fmt"

	"github.com/aeron-io/aeron-go/aeron/atomic"
)

// Message type ids carried in the ring/broadcast record header.
const (
	AddPublication          = int32(1)
	RemovePublication        = int32(2)
	AddExclusivePublication  = int32(3)
	AddSubscription          = int32(4)
	RemoveSubscription       = int32(5)
	ClientKeepalive          = int32(6)
	AddDestination           = int32(7)
	RemoveDestination        = int32(8)
	AddCounter               = int32(9)
	RemoveCounter            = int32(10)
	ClientClose              = int32(11)
	AddRcvDestination        = int32(12)
	RemoveRcvDestination     = int32(13)

	OnError                    = int32(101)
	OnAvailableImage           = int32(102)
	OnPublicationReady         = int32(103)
	OnOperationSuccess         = int32(104)
	OnUnavailableImage         = int32(105)
	OnExclusivePublicationReady = int32(106)
	OnSubscriptionReady        = int32(107)
	OnCounterReady             = int32(108)
	OnUnavailableCounter       = int32(109)
	OnClientTimeout            = int32(110)
	OnChannelEndpointError     = int32(111)
)

// minimum message lengths, used to reject truncated frames before reading
// any variable-length field out of them.
const (
	correlatedMsgMinLength  = int32(16) // clientId(8) + correlationId(8)
	pubMsgMinLength         = correlatedMsgMinLength + 4 + 4 // + streamId + channelLength
	subMsgMinLength         = correlatedMsgMinLength + 8 + 4 + 4
	removeMsgMinLength      = correlatedMsgMinLength + 8
	destinationMsgMinLength = correlatedMsgMinLength + 8 + 4
	counterMsgMinLength     = correlatedMsgMinLength + 4 + 4 + 4 // + typeId + keyLength + (key) + labelLength
)

// CorrelatedMessage is the common header of every outbound command.
type CorrelatedMessage struct {
	buffer *atomic.Buffer
	offset int32
}

func (m *CorrelatedMessage) Wrap(buffer *atomic.Buffer, offset int32) {
	m.buffer, m.offset = buffer, offset
}

func (m *CorrelatedMessage) ClientID() int64      { return m.buffer.GetInt64(m.offset) }
func (m *CorrelatedMessage) SetClientID(v int64)  { m.buffer.PutInt64(m.offset, v) }
func (m *CorrelatedMessage) CorrelationID() int64 { return m.buffer.GetInt64(m.offset + 8) }
func (m *CorrelatedMessage) SetCorrelationID(v int64) {
	m.buffer.PutInt64(m.offset+8, v)
}

// PublicationMessage encodes addPublication / addExclusivePublication.
type PublicationMessage struct {
	CorrelatedMessage
}

func (m *PublicationMessage) StreamID() int32     { return m.buffer.GetInt32(m.offset + 16) }
func (m *PublicationMessage) SetStreamID(v int32) { m.buffer.PutInt32(m.offset+16, v) }
func (m *PublicationMessage) Channel() string     { return m.buffer.GetString(m.offset + 20) }
func (m *PublicationMessage) SetChannel(v string) int32 {
	return 20 + m.buffer.PutString(m.offset+20, v)
}

// PublicationMessageLength validates that length holds at least a fixed
// header and that the declared channel length fits within it, and returns the
// message's total encoded length.
func PublicationMessageLength(buffer *atomic.Buffer, offset, length int32) (int32, error) {
	if length < pubMsgMinLength {
		return 0, errMalformed("publication message", length, pubMsgMinLength)
	}
	channelLength := buffer.GetInt32(offset + 16 + 4)
	total := 20 + 4 + channelLength
	if total > length {
		return 0, errMalformed("publication message channel", length, total)
	}
	return total, nil
}

// SubscriptionMessage encodes addSubscription.
type SubscriptionMessage struct {
	CorrelatedMessage
}

func (m *SubscriptionMessage) RegistrationCorrelationID() int64 { return m.buffer.GetInt64(m.offset + 16) }
func (m *SubscriptionMessage) SetRegistrationCorrelationID(v int64) {
	m.buffer.PutInt64(m.offset+16, v)
}
func (m *SubscriptionMessage) StreamID() int32     { return m.buffer.GetInt32(m.offset + 24) }
func (m *SubscriptionMessage) SetStreamID(v int32) { m.buffer.PutInt32(m.offset+24, v) }
func (m *SubscriptionMessage) Channel() string     { return m.buffer.GetString(m.offset + 28) }
func (m *SubscriptionMessage) SetChannel(v string) int32 {
	return 28 + m.buffer.PutString(m.offset+28, v)
}

// RemoveMessage encodes removePublication / removeSubscription / removeCounter.
type RemoveMessage struct {
	CorrelatedMessage
}

func (m *RemoveMessage) RegistrationID() int64     { return m.buffer.GetInt64(m.offset + 16) }
func (m *RemoveMessage) SetRegistrationID(v int64) { m.buffer.PutInt64(m.offset+16, v) }

// DestinationMessage encodes add/removeDestination and add/removeRcvDestination.
type DestinationMessage struct {
	CorrelatedMessage
}

func (m *DestinationMessage) RegistrationID() int64     { return m.buffer.GetInt64(m.offset + 16) }
func (m *DestinationMessage) SetRegistrationID(v int64) { m.buffer.PutInt64(m.offset+16, v) }
func (m *DestinationMessage) Channel() string           { return m.buffer.GetString(m.offset + 24) }
func (m *DestinationMessage) SetChannel(v string) int32 {
	return 24 + m.buffer.PutString(m.offset+24, v)
}

// CounterMessage encodes addCounter.
type CounterMessage struct {
	CorrelatedMessage
}

func (m *CounterMessage) TypeID() int32     { return m.buffer.GetInt32(m.offset + 16) }
func (m *CounterMessage) SetTypeID(v int32) { m.buffer.PutInt32(m.offset+16, v) }
func (m *CounterMessage) Key() []byte {
	length := m.buffer.GetInt32(m.offset + 20)
	return m.buffer.GetBytes(m.offset+24, length)
}
func (m *CounterMessage) SetKey(key []byte) int32 {
	m.buffer.PutInt32(m.offset+20, int32(len(key)))
	m.buffer.PutBytes(m.offset+24, key)
	return 24 + int32(len(key))
}
func (m *CounterMessage) Label(keyLength int32) string {
	return m.buffer.GetString(m.offset + 24 + keyLength)
}
func (m *CounterMessage) SetLabel(keyLength int32, label string) int32 {
	return 24 + keyLength + m.buffer.PutString(m.offset+24+keyLength, label)
}

// PublicationBuffersReady encodes OnNewPublication / OnNewExclusivePublication.
type PublicationBuffersReady struct {
	buffer *atomic.Buffer
	offset int32
}

func (m *PublicationBuffersReady) Wrap(buffer *atomic.Buffer, offset int32) {
	m.buffer, m.offset = buffer, offset
}
func (m *PublicationBuffersReady) CorrelationID() int64       { return m.buffer.GetInt64(m.offset) }
func (m *PublicationBuffersReady) SetCorrelationID(v int64)   { m.buffer.PutInt64(m.offset, v) }
func (m *PublicationBuffersReady) RegistrationID() int64      { return m.buffer.GetInt64(m.offset + 8) }
func (m *PublicationBuffersReady) SetRegistrationID(v int64)  { m.buffer.PutInt64(m.offset+8, v) }
func (m *PublicationBuffersReady) StreamID() int32            { return m.buffer.GetInt32(m.offset + 16) }
func (m *PublicationBuffersReady) SetStreamID(v int32)        { m.buffer.PutInt32(m.offset+16, v) }
func (m *PublicationBuffersReady) SessionID() int32           { return m.buffer.GetInt32(m.offset + 20) }
func (m *PublicationBuffersReady) SetSessionID(v int32)       { m.buffer.PutInt32(m.offset+20, v) }
func (m *PublicationBuffersReady) PublicationLimitID() int32  { return m.buffer.GetInt32(m.offset + 24) }
func (m *PublicationBuffersReady) SetPublicationLimitID(v int32) {
	m.buffer.PutInt32(m.offset+24, v)
}
func (m *PublicationBuffersReady) ChannelStatusIndicatorID() int32 {
	return m.buffer.GetInt32(m.offset + 28)
}
func (m *PublicationBuffersReady) SetChannelStatusIndicatorID(v int32) {
	m.buffer.PutInt32(m.offset+28, v)
}
func (m *PublicationBuffersReady) LogFileName() string { return m.buffer.GetString(m.offset + 32) }
func (m *PublicationBuffersReady) SetLogFileName(v string) int32 {
	return 32 + m.buffer.PutString(m.offset+32, v)
}

// SubscriptionReady encodes OnNewSubscription.
type SubscriptionReady struct {
	buffer *atomic.Buffer
	offset int32
}

func (m *SubscriptionReady) Wrap(buffer *atomic.Buffer, offset int32) { m.buffer, m.offset = buffer, offset }
func (m *SubscriptionReady) CorrelationID() int64                    { return m.buffer.GetInt64(m.offset) }
func (m *SubscriptionReady) SetCorrelationID(v int64)                { m.buffer.PutInt64(m.offset, v) }
func (m *SubscriptionReady) ChannelStatusIndicatorID() int32         { return m.buffer.GetInt32(m.offset + 8) }
func (m *SubscriptionReady) SetChannelStatusIndicatorID(v int32)     { m.buffer.PutInt32(m.offset+8, v) }

// ImageBuffersReady encodes OnAvailableImage.
type ImageBuffersReady struct {
	buffer *atomic.Buffer
	offset int32
}

func (m *ImageBuffersReady) Wrap(buffer *atomic.Buffer, offset int32) { m.buffer, m.offset = buffer, offset }
func (m *ImageBuffersReady) CorrelationID() int64                    { return m.buffer.GetInt64(m.offset) }
func (m *ImageBuffersReady) SetCorrelationID(v int64)                { m.buffer.PutInt64(m.offset, v) }
func (m *ImageBuffersReady) SubscriberPositionID() int32             { return m.buffer.GetInt32(m.offset + 8) }
func (m *ImageBuffersReady) SetSubscriberPositionID(v int32)         { m.buffer.PutInt32(m.offset+8, v) }
func (m *ImageBuffersReady) SubscriptionRegistrationID() int64       { return m.buffer.GetInt64(m.offset + 12) }
func (m *ImageBuffersReady) SetSubscriptionRegistrationID(v int64)   { m.buffer.PutInt64(m.offset+12, v) }
func (m *ImageBuffersReady) StreamID() int32                         { return m.buffer.GetInt32(m.offset + 20) }
func (m *ImageBuffersReady) SetStreamID(v int32)                     { m.buffer.PutInt32(m.offset+20, v) }
func (m *ImageBuffersReady) SessionID() int32                        { return m.buffer.GetInt32(m.offset + 24) }
func (m *ImageBuffersReady) SetSessionID(v int32)                    { m.buffer.PutInt32(m.offset+24, v) }
func (m *ImageBuffersReady) LogFileName() string                     { return m.buffer.GetString(m.offset + 28) }
func (m *ImageBuffersReady) SetLogFileName(v string) int32 {
	return 28 + m.buffer.PutString(m.offset+28, v)
}
func (m *ImageBuffersReady) SourceIdentity(logFileEnd int32) string {
	return m.buffer.GetString(m.offset + logFileEnd)
}
func (m *ImageBuffersReady) SetSourceIdentity(logFileEnd int32, v string) int32 {
	return logFileEnd + m.buffer.PutString(m.offset+logFileEnd, v)
}

// ImageMessage encodes OnUnavailableImage.
type ImageMessage struct {
	buffer *atomic.Buffer
	offset int32
}

func (m *ImageMessage) Wrap(buffer *atomic.Buffer, offset int32)  { m.buffer, m.offset = buffer, offset }
func (m *ImageMessage) CorrelationID() int64                     { return m.buffer.GetInt64(m.offset) }
func (m *ImageMessage) SetCorrelationID(v int64)                 { m.buffer.PutInt64(m.offset, v) }
func (m *ImageMessage) SubscriptionRegistrationID() int64        { return m.buffer.GetInt64(m.offset + 8) }
func (m *ImageMessage) SetSubscriptionRegistrationID(v int64)    { m.buffer.PutInt64(m.offset+8, v) }
func (m *ImageMessage) StreamID() int32                          { return m.buffer.GetInt32(m.offset + 16) }
func (m *ImageMessage) SetStreamID(v int32)                      { m.buffer.PutInt32(m.offset+16, v) }

// CounterUpdate encodes OnNewCounter / OnAvailableCounter / OnUnavailableCounter.
type CounterUpdate struct {
	buffer *atomic.Buffer
	offset int32
}

func (m *CounterUpdate) Wrap(buffer *atomic.Buffer, offset int32) { m.buffer, m.offset = buffer, offset }
func (m *CounterUpdate) CorrelationID() int64                    { return m.buffer.GetInt64(m.offset) }
func (m *CounterUpdate) SetCorrelationID(v int64)                { m.buffer.PutInt64(m.offset, v) }
func (m *CounterUpdate) CounterID() int32                        { return m.buffer.GetInt32(m.offset + 8) }
func (m *CounterUpdate) SetCounterID(v int32)                    { m.buffer.PutInt32(m.offset+8, v) }

// OperationSucceeded encodes a bare ack for destination add/remove commands.
type OperationSucceeded struct {
	buffer *atomic.Buffer
	offset int32
}

func (m *OperationSucceeded) Wrap(buffer *atomic.Buffer, offset int32) { m.buffer, m.offset = buffer, offset }
func (m *OperationSucceeded) CorrelationID() int64                    { return m.buffer.GetInt64(m.offset) }
func (m *OperationSucceeded) SetCorrelationID(v int64)                { m.buffer.PutInt64(m.offset, v) }

// ErrorResponse encodes OnError.
type ErrorResponse struct {
	buffer *atomic.Buffer
	offset int32
}

func (m *ErrorResponse) Wrap(buffer *atomic.Buffer, offset int32) { m.buffer, m.offset = buffer, offset }
func (m *ErrorResponse) OffendingCorrelationID() int64            { return m.buffer.GetInt64(m.offset) }
func (m *ErrorResponse) SetOffendingCorrelationID(v int64)        { m.buffer.PutInt64(m.offset, v) }
func (m *ErrorResponse) ErrorCode() int32                         { return m.buffer.GetInt32(m.offset + 8) }
func (m *ErrorResponse) SetErrorCode(v int32)                     { m.buffer.PutInt32(m.offset+8, v) }
func (m *ErrorResponse) ErrorMessage() string                     { return m.buffer.GetString(m.offset + 12) }
func (m *ErrorResponse) SetErrorMessage(v string) int32 {
	return 12 + m.buffer.PutString(m.offset+12, v)
}

// ChannelEndpointError encodes OnChannelEndpointError.
type ChannelEndpointError struct {
	buffer *atomic.Buffer
	offset int32
}

func (m *ChannelEndpointError) Wrap(buffer *atomic.Buffer, offset int32) { m.buffer, m.offset = buffer, offset }
func (m *ChannelEndpointError) StatusIndicatorID() int32                { return m.buffer.GetInt32(m.offset) }
func (m *ChannelEndpointError) SetStatusIndicatorID(v int32)            { m.buffer.PutInt32(m.offset, v) }
func (m *ChannelEndpointError) ErrorMessage() string                    { return m.buffer.GetString(m.offset + 4) }
func (m *ChannelEndpointError) SetErrorMessage(v string) int32 {
	return 4 + m.buffer.PutString(m.offset+4, v)
}

func errMalformed(what string, got, want int32) error {
	return &MalformedCommandError{What: what, Length: got, Required: want}
}

// MalformedCommandError reports that a received frame was shorter than its
// fixed minimum length, or declared a variable-length field that would run
// past the end of the frame.
type MalformedCommandError struct {
	What     string
	Length   int32
	Required int32
}

func (e *MalformedCommandError) Error() string {
	return fmt.Sprintf("malformed %s: length %d, required at least %d", e.What, e.Length, e.Required)
}
