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
	"sort"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/google/cioset/iograph"
	"github.com/google/cioset/ioset"
)

type color int8

const (
	white color = iota
	gray
	black
)

// visitor carries the explicit DFS's mutable state: the colour map and the
// per-process container of fragments being built up by the discover/examine
// hooks below.
type visitor struct {
	g     *iograph.Graph
	color []color
	sets  map[iograph.ProcessID][]*ioset.Set
	err   error
}

func (vis *visitor) openSetFor(p iograph.ProcessID) *ioset.Set {
	list := vis.sets[p]
	if len(list) == 0 {
		return nil
	}
	last := list[len(list)-1]
	if last.State != ioset.Open {
		return nil
	}
	return last
}

func (vis *visitor) createNewSet(p iograph.ProcessID, start iograph.VertexID) {
	vis.sets[p] = append(vis.sets[p], ioset.New(start))
}

func (vis *visitor) fail(err error) {
	if vis.err == nil {
		vis.err = err
	}
}

// onDiscover handles a newly discovered vertex v: I/O events join the
// process's currently open fragment, and synchronization events close it
// (opening a new one if the sync has successors).
func (vis *visitor) onDiscover(v iograph.VertexID) {
	if vis.err != nil {
		return
	}
	vtx := vis.g.Vertex(v)
	p, ok := vtx.Process()
	if !ok {
		return // synthetic Root/Terminal: no per-process container entry
	}
	open := vis.openSetFor(p)
	if open == nil {
		switch vtx.Kind {
		case iograph.KindSyncEvent:
			root, err := RootOfSync(vis.g, v)
			if err != nil {
				vis.fail(err)
				return
			}
			vis.createNewSet(p, root)
		case iograph.KindIoEvent:
			vis.fail(status.Errorf(codes.Internal, "discovery: I/O event %d on process %d discovered with no open set", v, p))
		}
		return
	}
	switch vtx.Kind {
	case iograph.KindIoEvent:
		open.Insert(v)
	case iograph.KindSyncEvent:
		root, err := RootOfSync(vis.g, v)
		if err != nil {
			vis.fail(err)
			return
		}
		open.Close(root, v)
		if vis.g.OutDegree(v) > 0 {
			vis.createNewSet(p, root)
		} else {
			vis.fail(status.Errorf(codes.Internal, "discovery: sync event %d has no successors; the synthetic End vertex should make this impossible", v))
		}
	}
}

// onExamine handles every out-edge (u, v) the DFS examines, whether or not it
// leads to an undiscovered vertex: it closes a process's open
// fragment when the edge reaches the synthetic End vertex, when it enters a
// same-process synchronization vertex, or when it starts a process's very
// first fragment out of the synthetic Root vertex.
func (vis *visitor) onExamine(u, v iograph.VertexID) {
	if vis.err != nil {
		return
	}
	uVtx, vVtx := vis.g.Vertex(u), vis.g.Vertex(v)

	if vVtx.IsTerminal() {
		if p, ok := uVtx.Process(); ok {
			open := vis.openSetFor(p)
			if open == nil {
				vis.fail(status.Errorf(codes.Internal, "discovery: no open set for process %d on the way to the synthetic End vertex", p))
				return
			}
			open.Close(v, v)
		}
	}

	uP, uOK := uVtx.Process()
	vP, vOK := vVtx.Process()
	if uOK && vOK && uP == vP && vVtx.Kind == iograph.KindSyncEvent {
		if open := vis.openSetFor(vP); open != nil {
			root, err := RootOfSync(vis.g, v)
			if err != nil {
				vis.fail(err)
				return
			}
			open.Close(root, v)
		}
	}

	if uVtx.IsRoot() {
		if vOK {
			vis.createNewSet(vP, u)
			if vVtx.Kind == iograph.KindSyncEvent {
				if open := vis.openSetFor(vP); open != nil {
					root, err := RootOfSync(vis.g, v)
					if err != nil {
						vis.fail(err)
						return
					}
					open.Close(root, v)
				}
			}
		}
	}
}

func (vis *visitor) visit(v iograph.VertexID) {
	vis.color[v] = gray
	vis.onDiscover(v)
	for _, w := range vis.g.OutNeighbors(v) {
		vis.onExamine(v, w)
		if vis.err != nil {
			return
		}
		if vis.color[w] == white {
			vis.visit(w)
			if vis.err != nil {
				return
			}
		}
	}
	vis.color[v] = black
}

func removeEmptySets(sets map[iograph.ProcessID][]*ioset.Set) {
	for p, list := range sets {
		filtered := list[:0]
		for _, s := range list {
			if !s.Empty() {
				filtered = append(filtered, s)
			}
		}
		sets[p] = filtered
	}
}

// sortChrono sorts each process's fragment list by the timestamp of its
// Origin vertex, tie-breaking on insertion order.
func sortChrono(g *iograph.Graph, sets map[iograph.ProcessID][]*ioset.Set) {
	for _, list := range sets {
		sort.SliceStable(list, func(i, j int) bool {
			return g.Vertex(list[i].Origin).Timestamp() < g.Vertex(list[j].Origin).Timestamp()
		})
	}
}

// FindSets runs the Per-Process Set Discovery pass over g, starting a single
// depth-first visit at the synthetic Root vertex and returning the resulting
// per-process fragment lists, sorted chronologically by origin.
func FindSets(g *iograph.Graph) (map[iograph.ProcessID][]*ioset.Set, error) {
	if g.Root() == iograph.NoVertex {
		return nil, status.Error(codes.Internal, "discovery: graph has no Root vertex")
	}
	vis := &visitor{
		g:     g,
		color: make([]color, g.NumVertices()),
		sets:  map[iograph.ProcessID][]*ioset.Set{},
	}
	vis.visit(g.Root())
	if vis.err != nil {
		return nil, vis.err
	}
	removeEmptySets(vis.sets)
	sortChrono(g, vis.sets)
	return vis.sets, nil
}
