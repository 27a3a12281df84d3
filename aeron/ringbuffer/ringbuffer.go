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

// Package ringbuffer implements the many-producer/single-consumer ring
// buffer used to carry client commands to the media driver. The record
// layout (an 8-byte header of length+msgTypeId followed by the payload,
// aligned to 8 bytes) matches the shape of the real Aeron control protocol;
// the claim/commit bookkeeping is guarded by a mutex rather than a lock-free
// CAS loop, since cross-process wire compatibility is explicitly out of
// scope for this client and a mutex is sufficient for a
// ring buffer that is only ever shared within one process's goroutines.
package ringbuffer

import (
	"sync"

	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"github.com/aeron-io/aeron-go/aeron/atomic"
)

var logger = logging.MustGetLogger("ringbuffer")

const (
	alignment   = int32(8)
	headerLen   = int32(8)
	PaddingMsgTypeID = int32(-1)
)

// ErrInsufficientCapacity is returned by Write when the buffer has no room
// for the message, even after accounting for reclaimed space.
var ErrInsufficientCapacity = errors.New("ring buffer: insufficient capacity")

// MessageHandler is invoked once per message read off the ring buffer.
type MessageHandler func(msgTypeID int32, buffer *atomic.Buffer, offset int32, length int32)

// ManyToOne is a many-producer/single-consumer ring buffer over a shared
// atomic.Buffer.
type ManyToOne struct {
	mu       sync.Mutex
	buffer   *atomic.Buffer
	capacity int32
	tail     int64
	head     int64

	// consumerHeartbeatMs stands in for the real Aeron ring buffer's trailer
	// heartbeat timestamp: the media driver stamps it periodically so a
	// client can detect a dead driver without a round trip through the
	// command protocol itself. Guarded by mu along with everything else here.
	consumerHeartbeatMs int64
}

// Init wraps buffer, whose capacity must be large enough to hold at least
// one maximally-sized record. The whole buffer is used for data; there is no
// separate trailer section, since head/tail bookkeeping for this simplified,
// single-process implementation lives in Go fields rather than in the
// wrapped memory.
func (rb *ManyToOne) Init(buffer *atomic.Buffer) {
	capacity := buffer.Capacity()
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic(errors.Errorf("ring buffer: capacity %d must be a power of two", capacity))
	}
	rb.buffer = buffer
	rb.capacity = capacity
	rb.tail = 0
	rb.head = 0
}

func align(length, alignment int32) int32 {
	return (length + alignment - 1) &^ (alignment - 1)
}

// MaxMsgLength returns the largest payload this ring buffer can ever carry:
// an eighth of total capacity, the same fraction Aeron's ring buffers use so
// that no single message can starve every other producer.
func (rb *ManyToOne) MaxMsgLength() int32 {
	return rb.capacity/8 - headerLen
}

// Write serializes a single message onto the ring buffer. It returns
// ErrInsufficientCapacity if the buffer has no room even after the consumer
// catches up; this is a transient condition, not a protocol error.
func (rb *ManyToOne) Write(msgTypeID int32, srcBuffer *atomic.Buffer, srcOffset int32, length int32) error {
	if msgTypeID <= 0 {
		return errors.Errorf("ring buffer: invalid message type id %d", msgTypeID)
	}

	recordLength := headerLen + length
	alignedLength := align(recordLength, alignment)
	if alignedLength > rb.MaxMsgLength()+headerLen {
		return errors.Errorf("ring buffer: message length %d exceeds max %d", length, rb.MaxMsgLength())
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()

	mask := int64(rb.capacity - 1)
	writeIndex := int32(rb.tail & mask)
	toEnd := rb.capacity - writeIndex

	var padding int32
	if alignedLength > toEnd {
		padding = toEnd
	}

	used := rb.tail - rb.head
	totalRequired := int64(alignedLength) + int64(padding)
	if totalRequired > int64(rb.capacity)-used {
		return ErrInsufficientCapacity
	}

	if padding > 0 {
		// pad to the end of the physical buffer, then wrap
		rb.buffer.PutInt32(writeIndex+4, PaddingMsgTypeID)
		rb.buffer.PutInt32(writeIndex, padding)
		rb.tail += int64(padding)
		writeIndex = 0
	}

	rb.buffer.PutBytes(writeIndex+headerLen, srcBuffer.GetBytes(srcOffset, length))
	rb.buffer.PutInt32(writeIndex+4, msgTypeID)
	rb.buffer.PutInt32(writeIndex, recordLength)
	rb.tail += int64(alignedLength)

	return nil
}

// Read drains up to messageCountLimit messages, invoking handler for each.
// It returns the number of messages read.
func (rb *ManyToOne) Read(handler MessageHandler, messageCountLimit int32) int32 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	mask := int64(rb.capacity - 1)
	var messagesRead int32

	for messagesRead < messageCountLimit && rb.head < rb.tail {
		readIndex := int32(rb.head & mask)
		length := rb.buffer.GetInt32(readIndex)
		msgTypeID := rb.buffer.GetInt32(readIndex + 4)

		if length <= 0 {
			logger.Warningf("ring buffer: non-positive record length %d at index %d, resetting", length, readIndex)
			rb.head = rb.tail
			break
		}

		alignedLength := align(length, alignment)
		rb.head += int64(alignedLength)

		if msgTypeID == PaddingMsgTypeID {
			continue
		}

		handler(msgTypeID, rb.buffer, readIndex+headerLen, length-headerLen)
		messagesRead++
	}

	return messagesRead
}

// Size returns the number of bytes currently queued.
func (rb *ManyToOne) Size() int64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.tail - rb.head
}

// ConsumerHeartbeatTimeMs returns the last driver-keepalive wall-clock time
// stamped via SetConsumerHeartbeatTimeMs.
func (rb *ManyToOne) ConsumerHeartbeatTimeMs() int64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.consumerHeartbeatMs
}

// SetConsumerHeartbeatTimeMs stamps the driver-keepalive wall-clock time.
// The value lives in a Go field, not in the wrapped buffer, so only code in
// this process (a driver stand-in, or a test harness) can update it.
func (rb *ManyToOne) SetConsumerHeartbeatTimeMs(ms int64) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.consumerHeartbeatMs = ms
}
