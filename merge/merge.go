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
// Package merge implements the Set Merge Engine: it walks the per-process
// fragment lists discovery.FindSets produced, in lock-step across every
// process that shares a synchronization, and combines them into maximal
// concurrent I/O sets.
package merge

import (
	"sort"

	log "github.com/golang/glog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/google/cioset/iograph"
	"github.com/google/cioset/ioset"
)

// view maps a process id to the index of its current fragment within
// perProcess[pid]. A process is "finished" once its index reaches the
// length of its fragment list.
type view map[iograph.ProcessID]int

func cloneOpen(s *ioset.Set) *ioset.Set {
	out := ioset.New(s.StartEvent)
	for v := range s.Members {
		out.Insert(v)
	}
	return out
}

func finished(v view, perProcess map[iograph.ProcessID][]*ioset.Set) bool {
	for p, pos := range v {
		if pos < len(perProcess[p]) {
			return false
		}
	}
	return true
}

// assembleCandidate merges every process's current fragment under v into one
// open set and collects each contributing process's current end event,
// keyed by process id: end-event agreement is checked per process, not per
// position.
func assembleCandidate(v view, perProcess map[iograph.ProcessID][]*ioset.Set) (*ioset.Set, map[iograph.ProcessID]iograph.VertexID, error) {
	var candidate *ioset.Set
	endEvts := map[iograph.ProcessID]iograph.VertexID{}
	for p, pos := range v {
		list := perProcess[p]
		if pos >= len(list) {
			continue
		}
		frag := list[pos]
		if candidate == nil {
			candidate = cloneOpen(frag)
		} else {
			candidate = candidate.Merge(frag)
		}
		endEvts[p] = frag.EndEvent
	}
	if candidate == nil {
		return nil, nil, status.Error(codes.Internal, "merge: view has no active process to assemble a candidate from")
	}
	return candidate, endEvts, nil
}

// canUpdateEndEvent reports whether every process in pg currently regards
// pivot as its own end event - the consensus check required before a
// synchronization is allowed to conclude a candidate.
func canUpdateEndEvent(pg iograph.ProcessGroup, endEvts map[iograph.ProcessID]iograph.VertexID, pivot iograph.VertexID) bool {
	for p := range pg {
		if v, ok := endEvts[p]; !ok || v != pivot {
			return false
		}
	}
	return true
}

func sortedVertices(m map[iograph.VertexID]struct{}) []iograph.VertexID {
	out := make([]iograph.VertexID, 0, len(m))
	for v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// selectEndEvents decides, given the candidate's contributing end events,
// which of them actually conclude this concurrency region.
func selectEndEvents(g *iograph.Graph, endEvts map[iograph.ProcessID]iograph.VertexID) ([]iograph.VertexID, error) {
	seen := map[iograph.VertexID]struct{}{}
	for _, e := range endEvts {
		seen[e] = struct{}{}
	}
	unique := sortedVertices(seen)

	if len(unique) == 1 {
		// This degenerate branch is only reached when every contributing
		// process already agrees on a single end event; ordinarily that
		// event is Global. A still-pending local sync can land here too
		// (e.g. a process re-entering this candidate after its independent
		// partner advanced) - log and proceed rather than treat it as fatal.
		if ioset.ScopeOf(g, unique[0]) != ioset.ScopeGlobal {
			log.Warningf("merge: sole candidate end-event %d is not Global-scope", unique[0])
		}
		return unique, nil
	}

	local := map[iograph.VertexID]struct{}{}
	for _, e := range unique {
		if ioset.ScopeOf(g, e) != ioset.ScopeGlobal {
			local[e] = struct{}{}
		}
	}
	localSorted := sortedVertices(local)
	if len(localSorted) == 1 {
		return localSorted, nil
	}
	if len(localSorted) == 0 {
		return nil, status.Error(codes.Internal, "merge: no end event found to conclude candidate")
	}

	dependent := map[iograph.VertexID]struct{}{}
	independent := map[iograph.VertexID]struct{}{}
	for i := 0; i < len(localSorted); i++ {
		for j := i + 1; j < len(localSorted); j++ {
			a, b := localSorted[i], localSorted[j]
			pgA := ioset.ProcessGroupOf(g, a)
			pgB := ioset.ProcessGroupOf(g, b)
			if len(pgA.Intersect(pgB)) == 0 {
				independent[a] = struct{}{}
				independent[b] = struct{}{}
			} else {
				dependent[a] = struct{}{}
				dependent[b] = struct{}{}
			}
		}
	}

	if len(dependent) > 0 {
		for _, vd := range sortedVertices(dependent) {
			if canUpdateEndEvent(ioset.ProcessGroupOf(g, vd), endEvts, vd) {
				return []iograph.VertexID{vd}, nil
			}
		}
		return nil, status.Error(codes.Internal, "merge: no dependent end event satisfies the update predicate")
	}
	if len(independent) > 0 {
		var res []iograph.VertexID
		for _, isv := range sortedVertices(independent) {
			if canUpdateEndEvent(ioset.ProcessGroupOf(g, isv), endEvts, isv) {
				res = append(res, isv)
			}
		}
		return res, nil
	}
	return nil, status.Error(codes.Internal, "merge: no end event found")
}

// advance returns a new view with every process in pg moved to its next
// fragment.
func advance(v view, pg iograph.ProcessGroup) view {
	next := make(view, len(v))
	for p, pos := range v {
		next[p] = pos
	}
	for p := range pg {
		if _, ok := next[p]; ok {
			next[p]++
		}
	}
	return next
}

// Merge runs the Set Merge Engine over discovery.FindSets's per-process
// fragment lists, returning the trace's final, deduplicated CIO-Sets.
func Merge(g *iograph.Graph, perProcess map[iograph.ProcessID][]*ioset.Set) ([]*ioset.Set, error) {
	if len(perProcess) == 0 {
		return nil, nil
	}
	initial := make(view, len(perProcess))
	for p := range perProcess {
		initial[p] = 0
	}

	var results []*ioset.Set
	stack := []view{initial}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if finished(cur, perProcess) {
			continue
		}

		candidate, endEvts, err := assembleCandidate(cur, perProcess)
		if err != nil {
			return nil, err
		}
		chosen, err := selectEndEvents(g, endEvts)
		if err != nil {
			return nil, err
		}
		if len(chosen) == 0 {
			return nil, status.Error(codes.Internal, "merge: selectEndEvents returned no end events to advance on")
		}

		for _, e := range chosen {
			out := cloneOpen(candidate)
			out.Close(e, e)
			results = append(results, out)

			pg := ioset.ProcessGroupOf(g, e)
			next := advance(cur, pg)
			if !finished(next, perProcess) {
				stack = append(stack, next)
			}
		}
	}

	return ioset.SortAndDedup(results), nil
}
