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
	"github.com/google/cioset/iograph"
	"github.com/google/cioset/otf2stream"
)

// MpiCollectiveBegin implements otf2stream.Callbacks. The begin record
// itself carries no synchronization information in OTF2 - everything needed
// to build the SyncEvent vertex arrives with mpi_collective_end - so only
// the timestamp bookkeeping matters here.
func (b *Builder) MpiCollectiveBegin(loc otf2stream.LocationID, ts iograph.Timestamp) error {
	b.observeTimestamp(ts)
	return nil
}

// MpiCollectiveEnd implements otf2stream.Callbacks. A self-group of size 0
// means this location's sub-communicator never actually synchronized with
// anyone, so it produces no vertex at all.
func (b *Builder) MpiCollectiveEnd(loc otf2stream.LocationID, ts iograph.Timestamp, comm uint32, hasRoot bool, root iograph.ProcessID, selfGroup, commGroup []iograph.ProcessID) error {
	b.observeTimestamp(ts)
	if len(selfGroup) == 0 {
		return nil
	}
	members := selfGroup
	if len(members) == 0 {
		members = commGroup
	}
	st := b.state(loc)
	id := b.g.AddSyncEvent(iograph.SyncEventPayload{
		Process: b.rank(loc),
		Region:  b.currentRegion(st),
		Comm:    iograph.CommCollective,
		Collective: &iograph.CollectiveData{
			Root:    root,
			HasRoot: hasRoot,
			Members: iograph.NewProcessGroup(members...),
		},
		Timestamp: ts,
	})
	if err := b.appendVertex(st, id); err != nil {
		return err
	}
	st.syncQueue = append(st.syncQueue, id)
	return nil
}

func (b *Builder) addP2P(loc otf2stream.LocationID, ts iograph.Timestamp, remote iograph.ProcessID, tag uint32, length uint64, hasReqID bool, reqID uint64) error {
	st := b.state(loc)
	id := b.g.AddSyncEvent(iograph.SyncEventPayload{
		Process: b.rank(loc),
		Region:  b.currentRegion(st),
		Comm:    iograph.CommP2P,
		P2P: &iograph.P2PData{
			Remote:    remote,
			Tag:       tag,
			Length:    length,
			HasReqID:  hasReqID,
			RequestID: reqID,
		},
		Timestamp: ts,
	})
	if err := b.appendVertex(st, id); err != nil {
		return err
	}
	st.syncQueue = append(st.syncQueue, id)
	return nil
}

// MpiSend implements otf2stream.Callbacks.
func (b *Builder) MpiSend(loc otf2stream.LocationID, ts iograph.Timestamp, receiver iograph.ProcessID, comm uint32, tag uint32, length uint64) error {
	b.observeTimestamp(ts)
	return b.addP2P(loc, ts, receiver, tag, length, false, 0)
}

// MpiIsend implements otf2stream.Callbacks.
func (b *Builder) MpiIsend(loc otf2stream.LocationID, ts iograph.Timestamp, receiver iograph.ProcessID, comm uint32, tag uint32, length, requestID uint64) error {
	b.observeTimestamp(ts)
	return b.addP2P(loc, ts, receiver, tag, length, true, requestID)
}

// MpiReceive implements otf2stream.Callbacks.
func (b *Builder) MpiReceive(loc otf2stream.LocationID, ts iograph.Timestamp, sender iograph.ProcessID, comm uint32, tag uint32, length uint64) error {
	b.observeTimestamp(ts)
	return b.addP2P(loc, ts, sender, tag, length, false, 0)
}

// MpiIreceive implements otf2stream.Callbacks.
func (b *Builder) MpiIreceive(loc otf2stream.LocationID, ts iograph.Timestamp, sender iograph.ProcessID, comm uint32, tag uint32, length, requestID uint64) error {
	b.observeTimestamp(ts)
	return b.addP2P(loc, ts, sender, tag, length, true, requestID)
}
