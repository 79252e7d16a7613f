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
package ioset

import (
	"testing"

	"github.com/google/cioset/iograph"
)

func TestMergeTakesSmallerStart(t *testing.T) {
	a := New(5)
	a.Insert(6)
	a.Insert(7)
	b := New(2)
	b.Insert(8)
	merged := a.Merge(b)
	if merged.StartEvent != 2 {
		t.Errorf("StartEvent = %d, want 2", merged.StartEvent)
	}
	want := map[iograph.VertexID]bool{6: true, 7: true, 8: true}
	if len(merged.Members) != len(want) {
		t.Fatalf("Members = %v, want %v", merged.Members, want)
	}
	for v := range want {
		if _, ok := merged.Members[v]; !ok {
			t.Errorf("Members missing %d", v)
		}
	}
}

func TestEqualityIsMembersOnly(t *testing.T) {
	a := New(0)
	a.Insert(1)
	a.Insert(2)
	b := New(99) // different start, same members
	b.Insert(2)
	b.Insert(1)
	if !Equal(a, b) {
		t.Errorf("Equal(a, b) = false, want true")
	}
}

func TestSortAndDedupRemovesEmptyAndDuplicates(t *testing.T) {
	s1 := New(0)
	s1.Insert(1)
	s2 := New(10)
	s2.Insert(1) // duplicate of s1 by members
	s3 := New(20)
	s4 := New(0)
	s4.Insert(2)

	out := SortAndDedup([]*Set{s1, s2, s3, s4})
	if len(out) != 2 {
		t.Fatalf("SortAndDedup returned %d sets, want 2: %+v", len(out), out)
	}
}

func TestProcessGroupOfCollectiveAndP2P(t *testing.T) {
	g := iograph.New()
	root, _ := g.AddSynthetic(iograph.SyntheticPayload{Name: iograph.RootName})
	p0 := g.AddIoEvent(iograph.IoEventPayload{Process: 0})
	p1 := g.AddIoEvent(iograph.IoEventPayload{Process: 1})
	g.AddEdge(root, p0)
	g.AddEdge(root, p1)

	coll := g.AddSyncEvent(iograph.SyncEventPayload{
		Process: 0,
		Comm:    iograph.CommCollective,
		Collective: &iograph.CollectiveData{
			Root:    0,
			HasRoot: true,
			Members: iograph.NewProcessGroup(0, 1),
		},
	})
	pg := ProcessGroupOf(g, coll)
	if len(pg) != 2 || !pg.Contains(0) || !pg.Contains(1) {
		t.Errorf("ProcessGroupOf(collective) = %v, want {0,1}", pg)
	}
	if ScopeOf(g, coll) != ScopeGlobal {
		t.Errorf("ScopeOf(collective covering all procs) = Local, want Global")
	}

	p2p := g.AddSyncEvent(iograph.SyncEventPayload{
		Process: 0,
		Comm:    iograph.CommP2P,
		P2P:     &iograph.P2PData{Remote: 1},
	})
	pg = ProcessGroupOf(g, p2p)
	if len(pg) != 2 || !pg.Contains(0) || !pg.Contains(1) {
		t.Errorf("ProcessGroupOf(p2p) = %v, want {0,1}", pg)
	}
}
