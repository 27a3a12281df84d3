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

// Package broadcast implements the single-writer/multi-reader broadcast
// buffer used to carry media-driver events to clients: a record of an
// 8-byte header (length, msgTypeId) followed by its payload, laid out over
// a shared atomic.Buffer the same way the command ring buffer is. A trailing
// 8-byte tail counter, written with release semantics and read with
// acquire semantics, is what lets a receiver detect new records without
// any other synchronization with the writer.
//
// The real protocol also carries a second "latest" counter so a slow
// receiver can detect that the writer has lapped it and discard what it can
// no longer trust; wire-level interop with an out-of-process driver is
// explicitly out of scope here, so this implementation
// omits it and simply trusts that RESOURCE_CHECK_INTERVAL-scale polling
// keeps readers from falling a full buffer behind.
package broadcast

import (
	"github.com/pkg/errors"

	"github.com/aeron-io/aeron-go/aeron/atomic"
)

const (
	alignment         = int32(8)
	headerLen         = int32(8)
	tailCounterLength = int32(8)
	paddingMsgTypeID  = int32(-1)
)

func align(length, alignment int32) int32 {
	return (length + alignment - 1) &^ (alignment - 1)
}

// Transmitter is the single writer side of a broadcast buffer. The client
// conductor's production EventsAdapter never constructs one directly; a
// media-driver stand-in (or a test harness) writes through it into the
// same buffer a Receiver reads from.
type Transmitter struct {
	buffer     *atomic.Buffer
	capacity   int32
	tailOffset int32
	tail       int64
}

// NewTransmitter wraps buffer, whose capacity (minus the 8-byte tail
// counter trailer) must be a power of two.
func NewTransmitter(buffer *atomic.Buffer) *Transmitter {
	capacity := buffer.Capacity() - tailCounterLength
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic(errors.Errorf("broadcast: record capacity %d must be a power of two", capacity))
	}
	return &Transmitter{buffer: buffer, capacity: capacity, tailOffset: capacity}
}

// Transmit appends a message to the broadcast buffer. Every Receiver
// wrapping the same underlying buffer will observe it once its tail
// counter read catches up.
func (t *Transmitter) Transmit(msgTypeID int32, srcBuffer *atomic.Buffer, srcOffset int32, length int32) {
	if msgTypeID <= 0 {
		panic(errors.Errorf("broadcast: invalid message type id %d", msgTypeID))
	}

	recordLength := headerLen + length
	alignedLength := align(recordLength, alignment)

	mask := int64(t.capacity - 1)
	writeIndex := int32(t.tail & mask)
	toEnd := t.capacity - writeIndex

	if alignedLength > toEnd {
		t.buffer.PutInt32(writeIndex+4, paddingMsgTypeID)
		t.buffer.PutInt32(writeIndex, toEnd)
		t.tail += int64(toEnd)
		writeIndex = 0
	}

	t.buffer.PutBytes(writeIndex+headerLen, srcBuffer.GetBytes(srcOffset, length))
	t.buffer.PutInt32(writeIndex+4, msgTypeID)
	t.buffer.PutInt32(writeIndex, recordLength)
	t.tail += int64(alignedLength)

	t.buffer.PutInt64Ordered(t.tailOffset, t.tail)
}

// Receiver reads broadcast messages off a shared buffer starting from
// wherever it last left off. Each Receiver tracks its own cursor, so many
// receivers can independently read every message a Transmitter writes.
type Receiver struct {
	buffer     *atomic.Buffer
	capacity   int32
	tailOffset int32
	cursor     int64

	msgTypeID    int32
	recordOffset int32
	length       int32
	lappedCount  int64
}

// NewReceiver wraps buffer, the same buffer a Transmitter writes into.
func NewReceiver(buffer *atomic.Buffer) *Receiver {
	capacity := buffer.Capacity() - tailCounterLength
	return &Receiver{buffer: buffer, capacity: capacity, tailOffset: capacity}
}

// ReceiveNext advances to the next available message, if any, returning
// whether one was found. The fields exposed by MsgTypeID/Buffer/Offset/
// Length then describe it until the next call.
func (r *Receiver) ReceiveNext() bool {
	tail := r.buffer.GetInt64Volatile(r.tailOffset)
	mask := int64(r.capacity - 1)

	for r.cursor < tail {
		readIndex := int32(r.cursor & mask)
		length := r.buffer.GetInt32(readIndex)
		msgTypeID := r.buffer.GetInt32(readIndex + 4)
		alignedLength := align(length, alignment)
		r.cursor += int64(alignedLength)

		if msgTypeID == paddingMsgTypeID {
			continue
		}

		r.msgTypeID = msgTypeID
		r.recordOffset = readIndex + headerLen
		r.length = length - headerLen
		return true
	}
	return false
}

// MsgTypeID returns the type id of the last message received.
func (r *Receiver) MsgTypeID() int32 { return r.msgTypeID }

// Buffer returns the buffer backing the last message received.
func (r *Receiver) Buffer() *atomic.Buffer { return r.buffer }

// Offset returns the offset of the last message received within Buffer().
func (r *Receiver) Offset() int32 { return r.recordOffset }

// Length returns the length of the last message received.
func (r *Receiver) Length() int32 { return r.length }

// LappedCount returns how many messages this receiver has ever lost to a
// fast writer. Always zero for this implementation (see package doc).
func (r *Receiver) LappedCount() int64 { return r.lappedCount }

// CopyReceiver wraps a Receiver, copying each message into its own scratch
// buffer as it is received, so callers can hold onto the copy across
// further ReceiveNext calls on other receivers (or further writer activity)
// without risk of the underlying record being overwritten by a wrap.
type CopyReceiver struct {
	receiver  *Receiver
	scratch   *atomic.Buffer
	length    int32
	msgTypeID int32
}

// NewCopyReceiver wraps receiver.
func NewCopyReceiver(receiver *Receiver) *CopyReceiver {
	return &CopyReceiver{receiver: receiver}
}

// Receive advances to the next message (if any) and invokes handler with a
// private copy of it. It returns 1 if a message was processed, 0 otherwise.
func (c *CopyReceiver) Receive(handler func(msgTypeID int32, buffer *atomic.Buffer, offset int32, length int32)) int {
	if !c.receiver.ReceiveNext() {
		return 0
	}

	c.msgTypeID = c.receiver.MsgTypeID()
	c.length = c.receiver.Length()
	c.scratch = atomic.MakeBuffer(c.length)
	c.scratch.PutBytes(0, c.receiver.Buffer().GetBytes(c.receiver.Offset(), c.length))

	handler(c.msgTypeID, c.scratch, 0, c.length)
	return 1
}
