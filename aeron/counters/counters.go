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

// Package counters decodes the command-and-control (CnC) file the media
// driver publishes: the to-driver and to-clients ring/broadcast buffers, the
// shared counters values buffer, and client liveness configuration. The
// teacher's aeron.go reads exactly these fields off counters.MapFile.
package counters

import (
	"github.com/aeron-io/aeron-go/aeron/atomic"
	"github.com/aeron-io/aeron-go/aeron/util/memmap"
)

// cncVersion must match between this client and the media driver that wrote
// the file; a mismatch is a configuration error, not a protocol one, so it
// is surfaced as a panic rather than a recoverable error.
const cncVersion = int32(1)

const (
	versionOffset                   = int32(0)
	toDriverBufferLengthOffset      = versionOffset + 4
	toClientsBufferLengthOffset     = toDriverBufferLengthOffset + 4
	countersMetadataLengthOffset    = toClientsBufferLengthOffset + 4
	countersValuesLengthOffset      = countersMetadataLengthOffset + 4
	errorLogBufferLengthOffset      = countersValuesLengthOffset + 4
	clientLivenessTimeoutNsOffset   = errorLogBufferLengthOffset + 4
	startTimestampMsOffset          = clientLivenessTimeoutNsOffset + 8
	pidOffset                       = startTimestampMsOffset + 8
	metaDataLength                  = pidOffset + 8
)

// Int64Field is a single int64 slot read from the CnC metadata header.
type Int64Field struct {
	buffer *atomic.Buffer
	offset int32
}

// Get returns the current value of the field.
func (f Int64Field) Get() int64 { return f.buffer.GetInt64(f.offset) }

// BufferField identifies one of the CnC file's variable-length sections.
type BufferField struct {
	buffer *atomic.Buffer
}

// Get returns the section as its own Buffer view.
func (f BufferField) Get() *atomic.Buffer { return f.buffer }

// MetaDataFlyweight decodes the fixed CnC header plus the four buffers that
// follow it.
type MetaDataFlyweight struct {
	ToDriverBuf       BufferField
	ToClientsBuf      BufferField
	CounterMetadataBuf BufferField
	ValuesBuf         BufferField
	ErrorLogBuf       BufferField
	ClientLivenessTo  Int64Field
	StartTimestampMs  Int64Field
	Pid               Int64Field
}

// Wrap decodes the CnC layout out of the full mapped buffer.
func (m *MetaDataFlyweight) Wrap(buffer *atomic.Buffer) {
	version := buffer.GetInt32(versionOffset)
	if version != cncVersion {
		panic("cnc file version mismatch")
	}

	toDriverLen := buffer.GetInt32(toDriverBufferLengthOffset)
	toClientsLen := buffer.GetInt32(toClientsBufferLengthOffset)
	metadataLen := buffer.GetInt32(countersMetadataLengthOffset)
	valuesLen := buffer.GetInt32(countersValuesLengthOffset)
	errorLen := buffer.GetInt32(errorLogBufferLengthOffset)

	offset := metaDataLength
	m.ToDriverBuf = BufferField{subBuffer(buffer, offset, toDriverLen)}
	offset += toDriverLen
	m.ToClientsBuf = BufferField{subBuffer(buffer, offset, toClientsLen)}
	offset += toClientsLen
	m.CounterMetadataBuf = BufferField{subBuffer(buffer, offset, metadataLen)}
	offset += metadataLen
	m.ValuesBuf = BufferField{subBuffer(buffer, offset, valuesLen)}
	offset += valuesLen
	m.ErrorLogBuf = BufferField{subBuffer(buffer, offset, errorLen)}

	m.ClientLivenessTo = Int64Field{buffer, clientLivenessTimeoutNsOffset}
	m.StartTimestampMs = Int64Field{buffer, startTimestampMsOffset}
	m.Pid = Int64Field{buffer, pidOffset}
}

func subBuffer(parent *atomic.Buffer, offset, length int32) *atomic.Buffer {
	sub := new(atomic.Buffer)
	sub.Wrap(parent.PointerAt(offset), length)
	return sub
}

// MapFile maps fileName (the CnC file written by the media driver) and
// decodes its metadata. It is fail-fast: any error mapping or decoding the
// file is a configuration problem, not a recoverable one, so it panics.
func MapFile(fileName string) (*MetaDataFlyweight, *memmap.File) {
	meta, file, err := MapFileErr(fileName)
	if err != nil {
		panic(err)
	}
	return meta, file
}

// MapFileErr is the equivalent of MapFile that returns a failure to map the
// file as an error, for callers (and tests) that want to handle a missing CnC
// file themselves. Decoding still panics on a version mismatch (see Wrap).
func MapFileErr(fileName string) (*MetaDataFlyweight, *memmap.File, error) {
	file, err := memmap.MapExisting(fileName, 0, 0)
	if err != nil {
		return nil, nil, err
	}

	length := memmap.GetFileSize(fileName)
	wholeFile := new(atomic.Buffer)
	wholeFile.Wrap(file.GetMemoryPtr(), int32(length))

	meta := new(MetaDataFlyweight)
	meta.Wrap(wholeFile)

	return meta, file, nil
}

// CreateNew lays out and maps a brand-new CnC file with the given section
// sizes. It is used by tests (and would be used by an in-process media
// driver stand-in) rather than by production clients, which only ever map a
// CnC file the driver itself created.
func CreateNew(fileName string, toDriverLen, toClientsLen, metadataLen, valuesLen, errorLen int32, clientLivenessTimeoutNs int64) (*MetaDataFlyweight, *memmap.File, error) {
	total := int64(metaDataLength) + int64(toDriverLen) + int64(toClientsLen) + int64(metadataLen) + int64(valuesLen) + int64(errorLen)

	file, err := memmap.CreateNew(fileName, total)
	if err != nil {
		return nil, nil, err
	}

	wholeFile := new(atomic.Buffer)
	wholeFile.Wrap(file.GetMemoryPtr(), int32(total))

	wholeFile.PutInt32(versionOffset, cncVersion)
	wholeFile.PutInt32(toDriverBufferLengthOffset, toDriverLen)
	wholeFile.PutInt32(toClientsBufferLengthOffset, toClientsLen)
	wholeFile.PutInt32(countersMetadataLengthOffset, metadataLen)
	wholeFile.PutInt32(countersValuesLengthOffset, valuesLen)
	wholeFile.PutInt32(errorLogBufferLengthOffset, errorLen)
	wholeFile.PutInt64(clientLivenessTimeoutNsOffset, clientLivenessTimeoutNs)

	meta := new(MetaDataFlyweight)
	meta.Wrap(wholeFile)

	return meta, file, nil
}

// CountersReader gives handlers registered via OnAvailableCounter /
// OnUnavailableCounter read access to counter values by id, mirroring the
// reader the real driver events surface hands to application callbacks.
type CountersReader struct {
	values *atomic.Buffer
}

// NewCountersReader wraps the values section of a mapped CnC file.
func NewCountersReader(values *atomic.Buffer) *CountersReader {
	return &CountersReader{values: values}
}

const counterValueSlotLength = int32(64)

// GetCounterValue returns the current value stored for counterID.
func (r *CountersReader) GetCounterValue(counterID int32) int64 {
	return r.values.GetInt64Volatile(counterID * counterValueSlotLength)
}
