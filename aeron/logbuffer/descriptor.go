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

package logbuffer

import (
	"fmt"

	"github.com/aeron-io/aeron-go/aeron/atomic"
)

// PartitionCount is the number of term partitions each log comprises. The
// log file is partitionCount terms plus one metadata section.
const PartitionCount = 3

// LogMetaDataSectionIndex is the buffers[] slot the metadata section is
// wrapped into, one past the last term partition.
const LogMetaDataSectionIndex = PartitionCount

const (
	logMetaDataLength    = int64(4096)
	maxSingleMappingSize = int64(1) << 30
	minTermLength        = int64(64 * 1024)
)

func computeTermLength(logLength int64) int64 {
	return (logLength - logMetaDataLength) / PartitionCount
}

func checkTermLength(termLength int64) {
	if termLength < minTermLength {
		panic(fmt.Sprintf("term length %d is less than the minimum of %d", termLength, minTermLength))
	}
	if termLength&(termLength-1) != 0 {
		panic(fmt.Sprintf("term length %d is not a power of 2", termLength))
	}
}

const (
	termLengthOffset      = int32(0)
	mtuLengthOffset        = termLengthOffset + 4
	initialTermIDOffset    = mtuLengthOffset + 4
	activeTermCountOffset  = initialTermIDOffset + 4
)

// LogBufferMetaData is a flyweight over the metadata section at the tail of
// a log file. The data-plane fields a production publication/subscription
// hot path would also read (term tail counters, end-of-stream position,
// etc.) are out of scope here: this client only needs enough of
// the metadata section to report static, informational properties of the
// log back to callers.
type LogBufferMetaData struct {
	buffer *atomic.Buffer
	offset int32
}

// Wrap points the flyweight at buffer, starting at offset.
func (m *LogBufferMetaData) Wrap(buffer *atomic.Buffer, offset int32) {
	m.buffer = buffer
	m.offset = offset
}

// TermLength returns the configured term length.
func (m *LogBufferMetaData) TermLength() int32 { return m.buffer.GetInt32(m.offset + termLengthOffset) }

// MtuLength returns the configured MTU length.
func (m *LogBufferMetaData) MtuLength() int32 { return m.buffer.GetInt32(m.offset + mtuLengthOffset) }

// InitialTermID returns the initial term id the stream started on.
func (m *LogBufferMetaData) InitialTermID() int32 {
	return m.buffer.GetInt32(m.offset + initialTermIDOffset)
}

// ActiveTermCount returns the monotonically increasing count of term rolls.
func (m *LogBufferMetaData) ActiveTermCount() int32 {
	return m.buffer.GetInt32Volatile(m.offset + activeTermCountOffset)
}
