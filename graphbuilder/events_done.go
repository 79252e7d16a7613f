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
	log "github.com/golang/glog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/google/cioset/iograph"
)

// EventsDone implements otf2stream.Callbacks. It closes off every location's
// program-order chain at the synthetic Terminal vertex, installs the
// cross-process synchronization edges, and populates the graph's final
// Properties.
func (b *Builder) EventsDone() error {
	terminal, err := b.g.AddSynthetic(iograph.SyntheticPayload{Name: iograph.TerminalName, Timestamp: b.lastTS})
	if err != nil {
		b.err = err
		return err
	}
	for _, loc := range b.locOrder {
		st := b.locations[loc]
		if st.edgePoint == iograph.NoVertex {
			continue
		}
		if _, err := b.g.AddEdge(st.edgePoint, terminal); err != nil {
			b.err = err
			return err
		}
	}

	if err := b.installSyncEdges(); err != nil {
		b.err = err
		return err
	}

	props := b.g.Properties()
	props.WallTime = tickDuration(b.clock, uint64(b.lastTS-b.firstTS))
	props.FileIOTime = b.fileIOTime
	props.FileIOMetadataTime = b.fileIOMetaTime
	props.FirstEventTimestamp = b.firstTS
	props.LastEventTimestamp = b.lastTS
	props.Clock = b.clock
	props.FileToFilesystem = b.fileSystem
	props.NumLocations = len(b.locOrder)

	b.done = true
	log.Infof("graphbuilder[%s]: finished, %d vertices, %d locations", b.buildID, b.g.NumVertices(), len(b.locOrder))
	return nil
}

// installSyncEdges is the post-pass run once every event has been read:
// iterating each location's sync queue in order, it draws the cross-process
// arc from every collective root (or, absent a defined root, the
// chronologically earliest candidate - see isCollectiveInitiator) to its
// members' matching collective vertices, and from every p2p vertex to its
// remote's matching partner.
func (b *Builder) installSyncEdges() error {
	for _, loc := range b.locOrder {
		st := b.locations[loc]
		for _, v := range st.syncQueue {
			if b.matchedSync[v] {
				continue
			}
			sd := b.g.Vertex(v).SyncEvent
			switch sd.Comm {
			case iograph.CommCollective:
				if err := b.installCollectiveEdges(v, sd); err != nil {
					return err
				}
			case iograph.CommP2P:
				if err := b.installP2PEdge(v, sd); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (b *Builder) installCollectiveEdges(v iograph.VertexID, sd *iograph.SyncEventPayload) error {
	cd := sd.Collective
	if !b.isCollectiveInitiator(v, sd, cd) {
		return nil
	}
	for m := range cd.Members {
		if m == sd.Process {
			continue
		}
		match, err := b.findFirstPendingCollective(m, v)
		if err != nil {
			return err
		}
		if _, err := b.g.AddEdge(v, match); err != nil {
			return err
		}
		b.g.Vertex(match).SyncEvent.RootEvent = v
		b.matchedSync[match] = true
	}
	return nil
}

func (b *Builder) installP2PEdge(v iograph.VertexID, sd *iograph.SyncEventPayload) error {
	pd := sd.P2P
	match, err := b.findFirstPendingP2P(pd.Remote, sd.Process, v)
	if err != nil {
		return err
	}
	if _, err := b.g.AddEdge(v, match); err != nil {
		return err
	}
	b.g.Vertex(match).SyncEvent.RootEvent = v
	b.matchedSync[match] = true
	return nil
}

// isCollectiveInitiator reports whether v, a collective sync vertex, is the
// one responsible for drawing arcs to its fellow members: ordinarily this is
// restricted to the root rank. When the trace left the root undefined, it
// falls back to treating the chronologically earliest still-pending
// candidate among the same member set as the initiator, logging a warning
// since this is a heuristic rather than an assertion the trace makes
// directly.
func (b *Builder) isCollectiveInitiator(v iograph.VertexID, sd *iograph.SyncEventPayload, cd *iograph.CollectiveData) bool {
	if cd.HasRoot {
		return sd.Process == cd.Root
	}
	log.Warningf("graphbuilder[%s]: collective sync %d has no defined root rank; using earliest-timestamp heuristic", b.buildID, v)
	for m := range cd.Members {
		if m == sd.Process {
			continue
		}
		for _, loc := range b.processLocations[m] {
			for _, w := range b.locations[loc].syncQueue {
				if b.matchedSync[w] || w == v {
					continue
				}
				wsd := b.g.Vertex(w).SyncEvent
				if wsd.Comm != iograph.CommCollective || wsd.Collective.HasRoot {
					continue
				}
				if !sameMembers(wsd.Collective.Members, cd.Members) {
					continue
				}
				if wsd.Timestamp < sd.Timestamp {
					return false
				}
			}
		}
	}
	return true
}

func sameMembers(a, other iograph.ProcessGroup) bool {
	if len(a) != len(other) {
		return false
	}
	for p := range a {
		if !other.Contains(p) {
			return false
		}
	}
	return true
}

// findFirstPendingCollective locates the first not-yet-matched
// collective-kind sync vertex on process m's sync queue, failing fatally if
// none exists - a missing partner indicates a malformed trace.
func (b *Builder) findFirstPendingCollective(m iograph.ProcessID, initiator iograph.VertexID) (iograph.VertexID, error) {
	for _, loc := range b.processLocations[m] {
		for _, v := range b.locations[loc].syncQueue {
			if b.matchedSync[v] {
				continue
			}
			if b.g.Vertex(v).SyncEvent.Comm != iograph.CommCollective {
				continue
			}
			return v, nil
		}
	}
	return iograph.NoVertex, status.Errorf(codes.Internal, "graphbuilder[%s]: collective sync %d has no matching partner on process %d", b.buildID, initiator, m)
}

// findFirstPendingP2P locates the first not-yet-matched p2p sync vertex on
// process r's sync queue whose stored remote equals p.
func (b *Builder) findFirstPendingP2P(r, p iograph.ProcessID, initiator iograph.VertexID) (iograph.VertexID, error) {
	for _, loc := range b.processLocations[r] {
		for _, v := range b.locations[loc].syncQueue {
			if b.matchedSync[v] {
				continue
			}
			sd := b.g.Vertex(v).SyncEvent
			if sd.Comm != iograph.CommP2P || sd.P2P.Remote != p {
				continue
			}
			return v, nil
		}
	}
	return iograph.NoVertex, status.Errorf(codes.Internal, "graphbuilder[%s]: p2p sync %d (process %d) has no matching partner on process %d", b.buildID, initiator, p, r)
}
