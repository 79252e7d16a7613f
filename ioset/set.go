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
// Package ioset defines the Concurrent I/O Set (CIO-Set) entity and the
// process-group machinery used to build and merge it. A Set is a maximal
// collection of I/O operations that ran between two synchronization points
// shared by a group of processes.
package ioset

import (
	"sort"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/google/cioset/iograph"
)

// State is a Set's open/closed lifecycle state.
type State int8

const (
	// Open means the set has not yet observed its closing synchronization.
	Open State = iota
	// Close means the set's end_event and origin are populated.
	Close
)

func (s State) String() string {
	if s == Open {
		return "Open"
	}
	return "Close"
}

// Set is a CIO-Set fragment or final, maximal concurrent I/O set. All
// Members are IoEvent vertices, EndEvent is unset iff State is Open, and
// merging two sets takes the smaller StartEvent and the union of Members.
type Set struct {
	StartEvent iograph.VertexID
	// EndEvent is iograph.NoVertex while State == Open.
	EndEvent iograph.VertexID
	// Origin is the vertex, on the process that caused this set to close,
	// whose synchronization concluded it. It may differ from EndEvent when
	// the close is shared across processes (EndEvent is root-of-sync(Origin)).
	Origin  iograph.VertexID
	State   State
	Members map[iograph.VertexID]struct{}
}

// New returns a new Open Set starting at startEvent.
func New(startEvent iograph.VertexID) *Set {
	return &Set{
		StartEvent: startEvent,
		EndEvent:   iograph.NoVertex,
		Origin:     iograph.NoVertex,
		State:      Open,
		Members:    map[iograph.VertexID]struct{}{},
	}
}

// Insert adds an IoEvent vertex id to the set's members.
func (s *Set) Insert(v iograph.VertexID) {
	s.Members[v] = struct{}{}
}

// Close transitions the set to Close, recording its end event and the
// vertex whose synchronization originated the close.
func (s *Set) Close(end, origin iograph.VertexID) {
	s.EndEvent = end
	s.Origin = origin
	s.State = Close
}

// Empty reports whether the set has no members.
func (s *Set) Empty() bool {
	return len(s.Members) == 0
}

// SortedMembers returns the set's member ids in ascending order. Set
// equality and ordering (used for deduplication and canonicalization of
// merge results) are defined over this sequence alone.
func (s *Set) SortedMembers() []iograph.VertexID {
	out := make([]iograph.VertexID, 0, len(s.Members))
	for v := range s.Members {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Merge returns a new Open set whose StartEvent is the smaller of s and
// other's StartEvents and whose Members is the union of both.
func (s *Set) Merge(other *Set) *Set {
	start := s.StartEvent
	if other.StartEvent < start {
		start = other.StartEvent
	}
	merged := New(start)
	for v := range s.Members {
		merged.Insert(v)
	}
	for v := range other.Members {
		merged.Insert(v)
	}
	return merged
}

// Equal reports whether a and b have identical member sets.
func Equal(a, b *Set) bool {
	if len(a.Members) != len(b.Members) {
		return false
	}
	for v := range a.Members {
		if _, ok := b.Members[v]; !ok {
			return false
		}
	}
	return true
}

// Less orders a before b by comparing their sorted member sequences
// lexicographically; used to canonicalize and deduplicate merge results.
func Less(a, b *Set) bool {
	as, bs := a.SortedMembers(), b.SortedMembers()
	for i := 0; i < len(as) && i < len(bs); i++ {
		if as[i] != bs[i] {
			return as[i] < bs[i]
		}
	}
	return len(as) < len(bs)
}

// SortAndDedup sorts sets by member-set order and removes both empty sets
// and consecutive duplicates, in place semantics mirrored by returning a new
// slice. Candidate sets produced along independent merge branches can be
// identical; this collapses those down to one.
func SortAndDedup(sets []*Set) []*Set {
	filtered := make([]*Set, 0, len(sets))
	for _, s := range sets {
		if !s.Empty() {
			filtered = append(filtered, s)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return Less(filtered[i], filtered[j]) })
	out := filtered[:0]
	for i, s := range filtered {
		if i == 0 || !Equal(s, filtered[i-1]) {
			out = append(out, s)
		}
	}
	return out
}

// ValidateInvariants checks the universal invariants a closed Set must
// uphold: all members are IoEvent vertices, and the set's temporal bounds
// contain every member's timestamp.
func ValidateInvariants(g *iograph.Graph, s *Set) error {
	if s.State != Close {
		return status.Error(codes.Internal, "ValidateInvariants: set is not closed")
	}
	start := g.Vertex(s.StartEvent)
	end := g.Vertex(s.EndEvent)
	if start == nil || end == nil {
		return status.Error(codes.Internal, "ValidateInvariants: start or end vertex missing from graph")
	}
	for v := range s.Members {
		vtx := g.Vertex(v)
		if vtx == nil {
			return status.Errorf(codes.Internal, "ValidateInvariants: member vertex #%d missing from graph", v)
		}
		if vtx.Kind != iograph.KindIoEvent {
			return status.Errorf(codes.Internal, "ValidateInvariants: member vertex #%d is not an IoEvent (kind %s)", v, vtx.Kind)
		}
		if vtx.Timestamp() < start.Timestamp() {
			return status.Errorf(codes.Internal, "ValidateInvariants: member #%d timestamp %d precedes start_event timestamp %d", v, vtx.Timestamp(), start.Timestamp())
		}
		if vtx.Timestamp() > end.Timestamp() {
			return status.Errorf(codes.Internal, "ValidateInvariants: member #%d timestamp %d exceeds end_event timestamp %d", v, vtx.Timestamp(), end.Timestamp())
		}
	}
	return nil
}
