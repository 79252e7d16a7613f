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
package discovery

import (
	"testing"

	"github.com/google/cioset/iograph"
)

// buildSingleProcessGraph builds Root -> io1 -> io2 -> Terminal, all on
// process 0, with no synchronizations at all.
func buildSingleProcessGraph(t *testing.T) *iograph.Graph {
	t.Helper()
	g := iograph.New()
	root, err := g.AddSynthetic(iograph.SyntheticPayload{Name: iograph.RootName})
	if err != nil {
		t.Fatalf("AddSynthetic(Root): %v", err)
	}
	io1 := g.AddIoEvent(iograph.IoEventPayload{Process: 0, Kind: iograph.IoWrite, Timestamp: 10})
	io2 := g.AddIoEvent(iograph.IoEventPayload{Process: 0, Kind: iograph.IoWrite, Timestamp: 20})
	terminal, err := g.AddSynthetic(iograph.SyntheticPayload{Name: iograph.TerminalName, Timestamp: 30})
	if err != nil {
		t.Fatalf("AddSynthetic(End): %v", err)
	}
	mustEdge(t, g, root, io1)
	mustEdge(t, g, io1, io2)
	mustEdge(t, g, io2, terminal)
	return g
}

func mustEdge(t *testing.T, g *iograph.Graph, u, v iograph.VertexID) {
	t.Helper()
	if _, err := g.AddEdge(u, v); err != nil {
		t.Fatalf("AddEdge(%d, %d): %v", u, v, err)
	}
}

func TestSingleProcessNoSyncsProducesOneSet(t *testing.T) {
	g := buildSingleProcessGraph(t)
	sets, err := FindSets(g)
	if err != nil {
		t.Fatalf("FindSets: %v", err)
	}
	list := sets[0]
	if len(list) != 1 {
		t.Fatalf("process 0 fragments = %d, want 1: %+v", len(list), list)
	}
	s := list[0]
	if s.StartEvent != g.Root() || s.EndEvent != g.Terminal() || s.Origin != g.Terminal() {
		t.Errorf("fragment = %+v, want start=Root end=origin=Terminal", s)
	}
	if len(s.Members) != 2 {
		t.Errorf("fragment members = %v, want 2 io events", s.Members)
	}
}

// buildTwoProcessCollectiveGraph builds two processes, each with one IoEvent
// before and after a collective sync where process 0 is root.
func buildTwoProcessCollectiveGraph(t *testing.T) (*iograph.Graph, []iograph.VertexID) {
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

	mustEdge(t, g, sync0, sync1) // cross-process sync arc: root draws to member

	return g, []iograph.VertexID{io0a, sync0, io0b, io1a, sync1, io1b, terminal}
}

func TestCollectiveSplitsEachProcessIntoTwoFragments(t *testing.T) {
	g, ids := buildTwoProcessCollectiveGraph(t)
	io0a, sync0, io0b, io1a, sync1, io1b, terminal := ids[0], ids[1], ids[2], ids[3], ids[4], ids[5], ids[6]

	sets, err := FindSets(g)
	if err != nil {
		t.Fatalf("FindSets: %v", err)
	}
	p0 := sets[0]
	if len(p0) != 2 {
		t.Fatalf("process 0 fragments = %d, want 2: %+v", len(p0), p0)
	}
	if _, ok := p0[0].Members[io0a]; !ok {
		t.Errorf("first p0 fragment missing io0a: %+v", p0[0])
	}
	if p0[0].EndEvent != sync0 {
		t.Errorf("first p0 fragment end = %d, want %d (sync0 is its own root)", p0[0].EndEvent, sync0)
	}
	if _, ok := p0[1].Members[io0b]; !ok {
		t.Errorf("second p0 fragment missing io0b: %+v", p0[1])
	}
	if p0[1].EndEvent != terminal {
		t.Errorf("second p0 fragment end = %d, want Terminal %d", p0[1].EndEvent, terminal)
	}

	p1 := sets[1]
	if len(p1) != 2 {
		t.Fatalf("process 1 fragments = %d, want 2: %+v", len(p1), p1)
	}
	if _, ok := p1[0].Members[io1a]; !ok {
		t.Errorf("first p1 fragment missing io1a: %+v", p1[0])
	}
	// sync1's root-of-sync is sync0 (process 0 is the explicit root rank).
	if p1[0].EndEvent != sync0 {
		t.Errorf("first p1 fragment end = %d, want %d (root of sync1 is sync0)", p1[0].EndEvent, sync0)
	}
	if _, ok := p1[1].Members[io1b]; !ok {
		t.Errorf("second p1 fragment missing io1b: %+v", p1[1])
	}
}

func TestNoRootVertexFails(t *testing.T) {
	g := iograph.New()
	if _, err := FindSets(g); err == nil {
		t.Fatal("FindSets on a graph with no Root succeeded, want error")
	}
}
