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
package graphbuilder

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/google/cioset/iograph"
	"github.com/google/cioset/otf2stream"
)

func (b *Builder) filenameForHandle(h otf2stream.IoHandleID) string {
	return b.fileName[b.handleFile[h]]
}

// IoOperationBegin implements otf2stream.Callbacks: the begin record is
// enqueued until its matching complete arrives.
func (b *Builder) IoOperationBegin(loc otf2stream.LocationID, ts iograph.Timestamp, handle otf2stream.IoHandleID, mode iograph.OperationMode, reqSize, opRef uint64) error {
	b.observeTimestamp(ts)
	st := b.state(loc)
	st.pendingIO = append(st.pendingIO, pendingIO{handle: handle, mode: mode, reqSize: reqSize, ts: ts})
	return nil
}

// IoOperationComplete implements otf2stream.Callbacks: pairs with the
// oldest outstanding begin on this location, constructing an IoEvent vertex
// whose kind is derived from the begin's operation mode.
func (b *Builder) IoOperationComplete(loc otf2stream.LocationID, ts iograph.Timestamp, handle otf2stream.IoHandleID, respSize, opRef uint64) error {
	b.observeTimestamp(ts)
	st := b.state(loc)
	if len(st.pendingIO) == 0 {
		return status.Errorf(codes.InvalidArgument, "graphbuilder[%s]: io_operation_complete on location %d with no matching begin (handle %d, ts %d)", b.buildID, loc, handle, ts)
	}
	begin := st.pendingIO[0]
	st.pendingIO = st.pendingIO[1:]

	var kind iograph.IoKind
	switch begin.mode {
	case iograph.OperationRead:
		kind = iograph.IoRead
	case iograph.OperationWrite:
		kind = iograph.IoWrite
	case iograph.OperationFlush:
		kind = iograph.IoFlush
	default:
		return status.Errorf(codes.Internal, "graphbuilder[%s]: unknown operation mode %v", b.buildID, begin.mode)
	}
	id := b.g.AddIoEvent(iograph.IoEventPayload{
		Process:      b.rank(loc),
		Filename:     b.filenameForHandle(handle),
		Region:       b.currentRegion(st),
		RequestSize:  begin.reqSize,
		ResponseSize: respSize,
		Option:       iograph.Option{Kind: iograph.OptionOperation, Operation: begin.mode},
		Kind:         kind,
		Timestamp:    ts,
	})
	return b.appendVertex(st, id)
}

// IoCreateHandle implements otf2stream.Callbacks. Handles that own a parent
// (derived handles, e.g. from dup/split) are silently dropped: the parent
// handle's creation already has a vertex.
func (b *Builder) IoCreateHandle(loc otf2stream.LocationID, ts iograph.Timestamp, handle otf2stream.IoHandleID, flags iograph.CreationFlags) error {
	b.observeTimestamp(ts)
	if b.handleHasParent[handle] {
		return nil
	}
	st := b.state(loc)
	id := b.g.AddIoEvent(iograph.IoEventPayload{
		Process:   b.rank(loc),
		Filename:  b.filenameForHandle(handle),
		Region:    b.currentRegion(st),
		Option:    iograph.Option{Kind: iograph.OptionCreation, Creation: flags},
		Kind:      iograph.IoCreate,
		Timestamp: ts,
	})
	return b.appendVertex(st, id)
}

// IoDestroyHandle implements otf2stream.Callbacks, symmetric with
// IoCreateHandle's parent-owning-handle dedup rule.
func (b *Builder) IoDestroyHandle(loc otf2stream.LocationID, ts iograph.Timestamp, handle otf2stream.IoHandleID) error {
	b.observeTimestamp(ts)
	if b.handleHasParent[handle] {
		return nil
	}
	st := b.state(loc)
	id := b.g.AddIoEvent(iograph.IoEventPayload{
		Process:   b.rank(loc),
		Filename:  b.filenameForHandle(handle),
		Region:    b.currentRegion(st),
		Kind:      iograph.IoDeleteOrClose,
		Timestamp: ts,
	})
	return b.appendVertex(st, id)
}

// IoDeleteFile implements otf2stream.Callbacks.
func (b *Builder) IoDeleteFile(loc otf2stream.LocationID, ts iograph.Timestamp, file otf2stream.IoFileID) error {
	b.observeTimestamp(ts)
	st := b.state(loc)
	id := b.g.AddIoEvent(iograph.IoEventPayload{
		Process:   b.rank(loc),
		Filename:  b.fileName[file],
		Region:    b.currentRegion(st),
		Kind:      iograph.IoDeleteOrClose,
		Timestamp: ts,
	})
	return b.appendVertex(st, id)
}

// IoDuplicateHandle implements otf2stream.Callbacks.
func (b *Builder) IoDuplicateHandle(loc otf2stream.LocationID, ts iograph.Timestamp, oldHandle, newHandle otf2stream.IoHandleID) error {
	b.observeTimestamp(ts)
	st := b.state(loc)
	id := b.g.AddIoEvent(iograph.IoEventPayload{
		Process:   b.rank(loc),
		Filename:  b.filenameForHandle(oldHandle),
		Region:    b.currentRegion(st),
		Kind:      iograph.IoDup,
		Timestamp: ts,
	})
	return b.appendVertex(st, id)
}

// IoSeek implements otf2stream.Callbacks.
func (b *Builder) IoSeek(loc otf2stream.LocationID, ts iograph.Timestamp, handle otf2stream.IoHandleID, offsetRequest int64, whence iograph.SeekWhence, offsetResult uint64) error {
	b.observeTimestamp(ts)
	st := b.state(loc)
	id := b.g.AddIoEvent(iograph.IoEventPayload{
		Process:      b.rank(loc),
		Filename:     b.filenameForHandle(handle),
		Region:       b.currentRegion(st),
		RequestSize:  uint64(offsetRequest),
		ResponseSize: offsetResult,
		Offset:       offsetResult,
		Option:       iograph.Option{Kind: iograph.OptionSeek, Seek: whence},
		Kind:         iograph.IoSeek,
		Timestamp:    ts,
	})
	return b.appendVertex(st, id)
}
