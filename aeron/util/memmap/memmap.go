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

// Package memmap wraps syscall-level memory mapping of files shared with the
// media driver.
package memmap

import (
	"os"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// File is a memory-mapped view of a region of a file on disk.
type File struct {
	data []byte
}

// GetFileSize returns the size, in bytes, of the named file. It panics if the
// file cannot be stat'd: callers map files whose existence is a precondition,
// not something to recover from.
func GetFileSize(fileName string) int64 {
	fi, err := os.Stat(fileName)
	if err != nil {
		panic(errors.Wrapf(err, "stat %s", fileName))
	}
	return fi.Size()
}

// MapExisting maps length bytes of the named file starting at offset. A
// length of 0 maps the remainder of the file from offset.
func MapExisting(fileName string, offset int64, length int) (*File, error) {
	f, err := os.OpenFile(fileName, os.O_RDWR, 0)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", fileName)
	}
	defer f.Close()

	if length == 0 {
		fi, err := f.Stat()
		if err != nil {
			return nil, errors.Wrapf(err, "stat %s", fileName)
		}
		length = int(fi.Size() - offset)
	}

	data, err := unix.Mmap(int(f.Fd()), offset, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, errors.Wrapf(err, "mmap %s", fileName)
	}

	return &File{data: data}, nil
}

// CreateNew creates (or truncates) the named file to length bytes and maps
// it. It is used by tests and by callers that stand up their own CnC-style
// files rather than mapping one created by an external driver process.
func CreateNew(fileName string, length int64) (*File, error) {
	f, err := os.OpenFile(fileName, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "create %s", fileName)
	}
	defer f.Close()

	if err := f.Truncate(length); err != nil {
		return nil, errors.Wrapf(err, "truncate %s", fileName)
	}

	return MapExisting(fileName, 0, int(length))
}

// GetMemoryPtr returns a pointer to the start of the mapped region.
func (file *File) GetMemoryPtr() unsafe.Pointer {
	if len(file.data) == 0 {
		return nil
	}
	return unsafe.Pointer(&file.data[0])
}

// Close unmaps the region. It is safe to call more than once.
func (file *File) Close() error {
	if file.data == nil {
		return nil
	}
	err := unix.Munmap(file.data)
	file.data = nil
	return err
}
