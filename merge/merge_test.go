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
package merge

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/google/cioset/discovery"
	"github.com/google/cioset/iograph"
	"github.com/google/cioset/ioset"
)

func mustEdge(t *testing.T, g *iograph.Graph, u, v iograph.VertexID) {
	t.Helper()
	if _, err := g.AddEdge(u, v); err != nil {
		t.Fatalf("AddEdge(%d, %d): %v", u, v, err)
	}
}

func frag(start, end iograph.VertexID, members ...iograph.VertexID) *ioset.Set {
	s := ioset.New(start)
	for _, m := range members {
		s.Insert(m)
	}
	s.Close(end, end)
	return s
}

func TestMergeSingleProcessNoSyncs(t *testing.T) {
	g := iograph.New()
	root, _ := g.AddSynthetic(iograph.SyntheticPayload{Name: iograph.RootName})
	io1 := g.AddIoEvent(iograph.IoEventPayload{Process: 0, Timestamp: 1})
	io2 := g.AddIoEvent(iograph.IoEventPayload{Process: 0, Timestamp: 2})
	terminal, _ := g.AddSynthetic(iograph.SyntheticPayload{Name: iograph.TerminalName, Timestamp: 3})
	mustEdge(t, g, root, io1)
	mustEdge(t, g, io1, io2)
	mustEdge(t, g, io2, terminal)

	perProcess := map[iograph.ProcessID][]*ioset.Set{
		0: {frag(root, terminal, io1, io2)},
	}
	sets, err := Merge(g, perProcess)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(sets) != 1 {
		t.Fatalf("len(sets) = %d, want 1: %+v", len(sets), sets)
	}
	if len(sets[0].Members) != 2 {
		t.Errorf("members = %v, want {io1, io2}", sets[0].Members)
	}
}

func TestMergeEmptyPerProcess(t *testing.T) {
	g := iograph.New()
	sets, err := Merge(g, map[iograph.ProcessID][]*ioset.Set{})
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(sets) != 0 {
		t.Errorf("sets = %+v, want empty", sets)
	}
}

// buildTwoProcessCollectiveGraph mirrors discovery's fixture of the same
// name: two processes, each with one IoEvent before and after a collective
// sync where process 0 is root.
func buildTwoProcessCollectiveGraph(t *testing.T) (*iograph.Graph, map[string]iograph.VertexID) {
	t.Helper()
	g := iograph.New()
	root, _ := g.AddSynthetic(iograph.SyntheticPayload{Name: iograph.RootName})

	io0a := g.AddIoEvent(iograph.IoEventPayload{Process: 0, Timestamp: 1})
	sync0 := g.AddSyncEvent(iograph.SyncEventPayload{
		Process: 0, Comm: iograph.CommCollective, Timestamp: 5,
		Collective: &iograph.CollectiveData{Root: 0, HasRoot: true, Members: iograph.NewProcessGroup(0, 1)},
	})
	io0b := g.AddIoEvent(iograph.IoEventPayload{Process: 0, Timestamp: 9})

	io1a := g.AddIoEvent(iograph.IoEventPayload{Process: 1, Timestamp: 2})
	sync1 := g.AddSyncEvent(iograph.SyncEventPayload{
		Process: 1, Comm: iograph.CommCollective, Timestamp: 6,
		Collective: &iograph.CollectiveData{Root: 0, HasRoot: true, Members: iograph.NewProcessGroup(0, 1)},
	})
	io1b := g.AddIoEvent(iograph.IoEventPayload{Process: 1, Timestamp: 10})

	terminal, _ := g.AddSynthetic(iograph.SyntheticPayload{Name: iograph.TerminalName, Timestamp: 20})

	mustEdge(t, g, root, io0a)
	mustEdge(t, g, io0a, sync0)
	mustEdge(t, g, sync0, io0b)
	mustEdge(t, g, io0b, terminal)

	mustEdge(t, g, root, io1a)
	mustEdge(t, g, io1a, sync1)
	mustEdge(t, g, sync1, io1b)
	mustEdge(t, g, io1b, terminal)

	mustEdge(t, g, sync0, sync1)

	ids := map[string]iograph.VertexID{
		"io0a": io0a, "sync0": sync0, "io0b": io0b,
		"io1a": io1a, "sync1": sync1, "io1b": io1b,
		"terminal": terminal,
	}
	return g, ids
}

func TestMergeCollectiveProducesTwoConcurrentSets(t *testing.T) {
	g, ids := buildTwoProcessCollectiveGraph(t)

	perProcess, err := discovery.FindSets(g)
	if err != nil {
		t.Fatalf("FindSets: %v", err)
	}
	sets, err := Merge(g, perProcess)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if len(sets) != 2 {
		t.Fatalf("len(sets) = %d, want 2: %+v", len(sets), sets)
	}

	var first, second *ioset.Set
	for _, s := range sets {
		if _, ok := s.Members[ids["io0a"]]; ok {
			first = s
		}
		if _, ok := s.Members[ids["io0b"]]; ok {
			second = s
		}
	}
	if first == nil || second == nil {
		t.Fatalf("expected one set containing io0a and one containing io0b, got %+v", sets)
	}
	if _, ok := first.Members[ids["io1a"]]; !ok {
		t.Errorf("first concurrent set missing io1a: %+v", first)
	}
	if first.EndEvent != ids["sync0"] {
		t.Errorf("first set end event = %d, want sync0 (%d)", first.EndEvent, ids["sync0"])
	}
	if _, ok := second.Members[ids["io1b"]]; !ok {
		t.Errorf("second concurrent set missing io1b: %+v", second)
	}
	if second.EndEvent != ids["terminal"] {
		t.Errorf("second set end event = %d, want Terminal (%d)", second.EndEvent, ids["terminal"])
	}

	wantFirstMembers := []iograph.VertexID{ids["io0a"], ids["io1a"]}
	if diff := cmp.Diff(wantFirstMembers, first.SortedMembers()); diff != "" {
		t.Errorf("first set members mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectEndEventsDependentPairPicksConsensus(t *testing.T) {
	// Three processes: a local sync A between 0 and 1, and a local sync B
	// between 1 and 2. A and B's process groups share process 1, so they land
	// in the "dependent" bucket rather than the independent one (unlike
	// TestMergeIndependentLocalSyncsBothSurvive's disjoint pairs). Only B is
	// consistent with every one of its member processes' current end event,
	// so it alone should be chosen.
	g := iograph.New()
	root, _ := g.AddSynthetic(iograph.SyntheticPayload{Name: iograph.RootName})
	io0 := g.AddIoEvent(iograph.IoEventPayload{Process: 0, Timestamp: 1})
	io1 := g.AddIoEvent(iograph.IoEventPayload{Process: 1, Timestamp: 1})
	io2 := g.AddIoEvent(iograph.IoEventPayload{Process: 2, Timestamp: 1})
	mustEdge(t, g, root, io0)
	mustEdge(t, g, root, io1)
	mustEdge(t, g, root, io2)

	syncA := g.AddSyncEvent(iograph.SyncEventPayload{
		Process: 0, Comm: iograph.CommP2P, Timestamp: 5,
		P2P: &iograph.P2PData{Remote: 1},
	})
	syncB := g.AddSyncEvent(iograph.SyncEventPayload{
		Process: 1, Comm: iograph.CommP2P, Timestamp: 6,
		P2P: &iograph.P2PData{Remote: 2},
	})
	mustEdge(t, g, io0, syncA)
	mustEdge(t, g, io1, syncB)

	if got := ioset.ProcessGroupOf(g, syncA).Intersect(ioset.ProcessGroupOf(g, syncB)); len(got) == 0 {
		t.Fatalf("syncA and syncB process groups do not intersect, fixture is not exercising the dependent branch")
	}

	// Process 0 still regards syncA as its end event, but process 1 has
	// already moved on to syncB - only syncB's member processes (1 and 2)
	// agree with each other, so only syncB satisfies canUpdateEndEvent.
	endEvts := map[iograph.ProcessID]iograph.VertexID{
		0: syncA,
		1: syncB,
		2: syncB,
	}
	chosen, err := selectEndEvents(g, endEvts)
	if err != nil {
		t.Fatalf("selectEndEvents: %v", err)
	}
	if diff := cmp.Diff([]iograph.VertexID{syncB}, chosen); diff != "" {
		t.Errorf("chosen end events mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeIndependentLocalSyncsBothSurvive(t *testing.T) {
	// Two disjoint process pairs (0,1) and (2,3), each syncing locally at the
	// same logical step with no shared members: spec.md §4.3.1's independent
	// case, where both local end events are returned and each spawns its own
	// emitted candidate and its own continuing branch.
	g := iograph.New()
	root, _ := g.AddSynthetic(iograph.SyntheticPayload{Name: iograph.RootName})

	mk := func(p iograph.ProcessID, ts iograph.Timestamp) iograph.VertexID {
		return g.AddIoEvent(iograph.IoEventPayload{Process: p, Timestamp: ts})
	}
	io0 := mk(0, 1)
	io1 := mk(1, 1)
	io2 := mk(2, 1)
	io3 := mk(3, 1)

	sync01a := g.AddSyncEvent(iograph.SyncEventPayload{
		Process: 0, Comm: iograph.CommP2P, Timestamp: 5,
		P2P: &iograph.P2PData{Remote: 1},
	})
	sync01b := g.AddSyncEvent(iograph.SyncEventPayload{
		Process: 1, Comm: iograph.CommP2P, Timestamp: 5,
		P2P: &iograph.P2PData{Remote: 0},
	})
	sync23a := g.AddSyncEvent(iograph.SyncEventPayload{
		Process: 2, Comm: iograph.CommP2P, Timestamp: 5,
		P2P: &iograph.P2PData{Remote: 3},
	})
	sync23b := g.AddSyncEvent(iograph.SyncEventPayload{
		Process: 3, Comm: iograph.CommP2P, Timestamp: 5,
		P2P: &iograph.P2PData{Remote: 2},
	})

	terminal, _ := g.AddSynthetic(iograph.SyntheticPayload{Name: iograph.TerminalName, Timestamp: 20})

	mustEdge(t, g, root, io0)
	mustEdge(t, g, io0, sync01a)
	mustEdge(t, g, sync01a, terminal)
	mustEdge(t, g, root, io1)
	mustEdge(t, g, io1, sync01b)
	mustEdge(t, g, sync01b, terminal)
	mustEdge(t, g, sync01a, sync01b)

	mustEdge(t, g, root, io2)
	mustEdge(t, g, io2, sync23a)
	mustEdge(t, g, sync23a, terminal)
	mustEdge(t, g, root, io3)
	mustEdge(t, g, io3, sync23b)
	mustEdge(t, g, sync23b, terminal)
	mustEdge(t, g, sync23a, sync23b)

	perProcess, err := discovery.FindSets(g)
	if err != nil {
		t.Fatalf("FindSets: %v", err)
	}
	sets, err := Merge(g, perProcess)
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	// Two unrelated process pairs conclude their own local sync
	// independently, so the engine must emit a candidate for each rather
	// than stall waiting for agreement that will never come. Check that
	// both groupings actually appear somewhere in the (deduplicated, but
	// possibly diamond-overlapping per spec.md §4.3) result.
	var sawPair01, sawPair23 bool
	for _, s := range sets {
		_, has0 := s.Members[io0]
		_, has1 := s.Members[io1]
		_, has2 := s.Members[io2]
		_, has3 := s.Members[io3]
		if has0 && has1 {
			sawPair01 = true
		}
		if has2 && has3 {
			sawPair23 = true
		}
	}
	if !sawPair01 {
		t.Errorf("no set groups io0 with io1: %+v", sets)
	}
	if !sawPair23 {
		t.Errorf("no set groups io2 with io3: %+v", sets)
	}
}
