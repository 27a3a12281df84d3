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

// Package atomic provides a thin volatile-semantics view over a region of
// memory, used by every component that shares state with the media driver
// through memory-mapped files.
package atomic

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
	"unsafe"
)

// Buffer wraps a fixed-size region of memory, native or memory-mapped, and
// exposes bounds-checked, optionally volatile, accessors to it.
type Buffer struct {
	ptr    unsafe.Pointer
	length int32
}

// MakeBuffer allocates a new Buffer backed by a freshly allocated byte slice.
func MakeBuffer(length int32) *Buffer {
	buf := new(Buffer)
	slice := make([]byte, length)
	buf.Wrap(unsafe.Pointer(&slice[0]), length)
	return buf
}

// Wrap points the buffer at an existing region of memory without copying it.
func (buf *Buffer) Wrap(ptr unsafe.Pointer, length int32) {
	buf.ptr = ptr
	buf.length = length
}

// Capacity returns the size, in bytes, of the wrapped region.
func (buf *Buffer) Capacity() int32 {
	return buf.length
}

func (buf *Buffer) boundsCheck(offset int32, length int32) {
	if offset < 0 || length < 0 || offset+length > buf.length {
		panic(fmt.Sprintf("buffer bounds violation: offset=%d length=%d capacity=%d", offset, length, buf.length))
	}
}

func (buf *Buffer) at(offset int32) unsafe.Pointer {
	return unsafe.Pointer(uintptr(buf.ptr) + uintptr(offset))
}

// PointerAt exposes the address of offset within the buffer, so that a
// sub-region can be wrapped as its own Buffer (e.g. a named section of a
// larger mapped file).
func (buf *Buffer) PointerAt(offset int32) unsafe.Pointer {
	buf.boundsCheck(offset, 0)
	return buf.at(offset)
}

// GetInt32 reads a plain (non-volatile) int32 at offset.
func (buf *Buffer) GetInt32(offset int32) int32 {
	buf.boundsCheck(offset, 4)
	return *(*int32)(buf.at(offset))
}

// PutInt32 writes a plain (non-volatile) int32 at offset.
func (buf *Buffer) PutInt32(offset int32, value int32) {
	buf.boundsCheck(offset, 4)
	*(*int32)(buf.at(offset)) = value
}

// GetInt32Volatile performs an atomic load of an int32 at offset.
func (buf *Buffer) GetInt32Volatile(offset int32) int32 {
	buf.boundsCheck(offset, 4)
	return atomic.LoadInt32((*int32)(buf.at(offset)))
}

// PutInt32Ordered performs an atomic store of an int32 at offset.
func (buf *Buffer) PutInt32Ordered(offset int32, value int32) {
	buf.boundsCheck(offset, 4)
	atomic.StoreInt32((*int32)(buf.at(offset)), value)
}

// CompareAndSetInt32 performs an atomic CAS of an int32 at offset.
func (buf *Buffer) CompareAndSetInt32(offset int32, expected, update int32) bool {
	buf.boundsCheck(offset, 4)
	return atomic.CompareAndSwapInt32((*int32)(buf.at(offset)), expected, update)
}

// GetInt64 reads a plain (non-volatile) int64 at offset.
func (buf *Buffer) GetInt64(offset int32) int64 {
	buf.boundsCheck(offset, 8)
	return *(*int64)(buf.at(offset))
}

// PutInt64 writes a plain (non-volatile) int64 at offset.
func (buf *Buffer) PutInt64(offset int32, value int64) {
	buf.boundsCheck(offset, 8)
	*(*int64)(buf.at(offset)) = value
}

// GetInt64Volatile performs an atomic load of an int64 at offset.
func (buf *Buffer) GetInt64Volatile(offset int32) int64 {
	buf.boundsCheck(offset, 8)
	return atomic.LoadInt64((*int64)(buf.at(offset)))
}

// PutInt64Ordered performs an atomic store of an int64 at offset.
func (buf *Buffer) PutInt64Ordered(offset int32, value int64) {
	buf.boundsCheck(offset, 8)
	atomic.StoreInt64((*int64)(buf.at(offset)), value)
}

// CompareAndSetInt64 performs an atomic CAS of an int64 at offset.
func (buf *Buffer) CompareAndSetInt64(offset int32, expected, update int64) bool {
	buf.boundsCheck(offset, 8)
	return atomic.CompareAndSwapInt64((*int64)(buf.at(offset)), expected, update)
}

// GetBytes copies length bytes starting at offset into a new slice.
func (buf *Buffer) GetBytes(offset int32, length int32) []byte {
	buf.boundsCheck(offset, length)
	dst := make([]byte, length)
	src := unsafe.Slice((*byte)(buf.at(offset)), length)
	copy(dst, src)
	return dst
}

// PutBytes writes src at offset.
func (buf *Buffer) PutBytes(offset int32, src []byte) {
	buf.boundsCheck(offset, int32(len(src)))
	if len(src) == 0 {
		return
	}
	dst := unsafe.Slice((*byte)(buf.at(offset)), len(src))
	copy(dst, src)
}

// GetString reads an ASCII string encoded as a little-endian int32 length
// prefix followed by that many bytes, the layout used throughout the
// control protocol.
func (buf *Buffer) GetString(offset int32) string {
	length := buf.GetInt32(offset)
	return string(buf.GetBytes(offset+4, length))
}

// PutString writes value in the length-prefixed layout used by GetString and
// returns the total number of bytes written, including the 4-byte prefix.
func (buf *Buffer) PutString(offset int32, value string) int32 {
	buf.PutInt32(offset, int32(len(value)))
	buf.PutBytes(offset+4, []byte(value))
	return 4 + int32(len(value))
}

// ByteOrder is the byte order used for all flyweight field encodings; it is
// exposed so non-pointer-arithmetic helpers (e.g. encoding/binary-based wire
// decode of a detached []byte) stay consistent with Buffer's native layout.
var ByteOrder = binary.LittleEndian
