//
// Copyright 2019 Google Inc. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS-IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
//
package otf2stream

import "github.com/google/cioset/iograph"

// FakeReader is a Reader test double that replays a scripted event sequence.
// It is built fluently, one callback invocation at a time, in the style of
// a fixture builder: each event method (Enter, IoSeek, MpiSend, ...)
// enqueues one step, and every method returns the receiver so calls can be
// chained.
type FakeReader struct {
	defs  Definitions
	steps []func(Callbacks) error
	err   error
}

// NewFakeReader returns an empty FakeReader.
func NewFakeReader() *FakeReader {
	return &FakeReader{}
}

// WithDefinitions sets the Definitions ReadDefinitions will return.
func (f *FakeReader) WithDefinitions(d Definitions) *FakeReader {
	f.defs = d
	return f
}

func (f *FakeReader) step(fn func(Callbacks) error) *FakeReader {
	f.steps = append(f.steps, fn)
	return f
}

// Enter enqueues an enter event.
func (f *FakeReader) Enter(loc LocationID, ts iograph.Timestamp, region string) *FakeReader {
	return f.step(func(cb Callbacks) error { return cb.Enter(loc, ts, region) })
}

// Leave enqueues a leave event.
func (f *FakeReader) Leave(loc LocationID, ts iograph.Timestamp, region string) *FakeReader {
	return f.step(func(cb Callbacks) error { return cb.Leave(loc, ts, region) })
}

// IoOperationBegin enqueues an io_operation_begin event.
func (f *FakeReader) IoOperationBegin(loc LocationID, ts iograph.Timestamp, handle IoHandleID, mode iograph.OperationMode, reqSize, opRef uint64) *FakeReader {
	return f.step(func(cb Callbacks) error { return cb.IoOperationBegin(loc, ts, handle, mode, reqSize, opRef) })
}

// IoOperationComplete enqueues an io_operation_complete event.
func (f *FakeReader) IoOperationComplete(loc LocationID, ts iograph.Timestamp, handle IoHandleID, respSize, opRef uint64) *FakeReader {
	return f.step(func(cb Callbacks) error { return cb.IoOperationComplete(loc, ts, handle, respSize, opRef) })
}

// IoCreateHandle enqueues an io_create_handle event.
func (f *FakeReader) IoCreateHandle(loc LocationID, ts iograph.Timestamp, handle IoHandleID, flags iograph.CreationFlags) *FakeReader {
	return f.step(func(cb Callbacks) error { return cb.IoCreateHandle(loc, ts, handle, flags) })
}

// IoDestroyHandle enqueues an io_destroy_handle event.
func (f *FakeReader) IoDestroyHandle(loc LocationID, ts iograph.Timestamp, handle IoHandleID) *FakeReader {
	return f.step(func(cb Callbacks) error { return cb.IoDestroyHandle(loc, ts, handle) })
}

// IoDeleteFile enqueues an io_delete_file event.
func (f *FakeReader) IoDeleteFile(loc LocationID, ts iograph.Timestamp, file IoFileID) *FakeReader {
	return f.step(func(cb Callbacks) error { return cb.IoDeleteFile(loc, ts, file) })
}

// IoDuplicateHandle enqueues an io_duplicate_handle event.
func (f *FakeReader) IoDuplicateHandle(loc LocationID, ts iograph.Timestamp, oldHandle, newHandle IoHandleID) *FakeReader {
	return f.step(func(cb Callbacks) error { return cb.IoDuplicateHandle(loc, ts, oldHandle, newHandle) })
}

// IoSeek enqueues an io_seek event.
func (f *FakeReader) IoSeek(loc LocationID, ts iograph.Timestamp, handle IoHandleID, offsetRequest int64, whence iograph.SeekWhence, offsetResult uint64) *FakeReader {
	return f.step(func(cb Callbacks) error { return cb.IoSeek(loc, ts, handle, offsetRequest, whence, offsetResult) })
}

// MpiCollectiveBegin enqueues an mpi_collective_begin event.
func (f *FakeReader) MpiCollectiveBegin(loc LocationID, ts iograph.Timestamp) *FakeReader {
	return f.step(func(cb Callbacks) error { return cb.MpiCollectiveBegin(loc, ts) })
}

// MpiCollectiveEnd enqueues an mpi_collective_end event.
func (f *FakeReader) MpiCollectiveEnd(loc LocationID, ts iograph.Timestamp, comm uint32, hasRoot bool, root iograph.ProcessID, selfGroup, commGroup []iograph.ProcessID) *FakeReader {
	return f.step(func(cb Callbacks) error {
		return cb.MpiCollectiveEnd(loc, ts, comm, hasRoot, root, selfGroup, commGroup)
	})
}

// MpiSend enqueues an mpi_send event.
func (f *FakeReader) MpiSend(loc LocationID, ts iograph.Timestamp, receiver iograph.ProcessID, comm uint32, tag uint32, length uint64) *FakeReader {
	return f.step(func(cb Callbacks) error { return cb.MpiSend(loc, ts, receiver, comm, tag, length) })
}

// MpiIsend enqueues an mpi_isend event.
func (f *FakeReader) MpiIsend(loc LocationID, ts iograph.Timestamp, receiver iograph.ProcessID, comm uint32, tag uint32, length, requestID uint64) *FakeReader {
	return f.step(func(cb Callbacks) error { return cb.MpiIsend(loc, ts, receiver, comm, tag, length, requestID) })
}

// MpiReceive enqueues an mpi_receive event.
func (f *FakeReader) MpiReceive(loc LocationID, ts iograph.Timestamp, sender iograph.ProcessID, comm uint32, tag uint32, length uint64) *FakeReader {
	return f.step(func(cb Callbacks) error { return cb.MpiReceive(loc, ts, sender, comm, tag, length) })
}

// MpiIreceive enqueues an mpi_ireceive event.
func (f *FakeReader) MpiIreceive(loc LocationID, ts iograph.Timestamp, sender iograph.ProcessID, comm uint32, tag uint32, length, requestID uint64) *FakeReader {
	return f.step(func(cb Callbacks) error { return cb.MpiIreceive(loc, ts, sender, comm, tag, length, requestID) })
}

// ReadDefinitions implements Reader.
func (f *FakeReader) ReadDefinitions() (Definitions, error) {
	return f.defs, nil
}

// ReadEvents implements Reader, replaying the scripted steps in order and
// finishing with EventsDone.
func (f *FakeReader) ReadEvents(cb Callbacks) error {
	for _, step := range f.steps {
		if err := step(cb); err != nil {
			return err
		}
	}
	return cb.EventsDone()
}
