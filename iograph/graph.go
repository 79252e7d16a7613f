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
package iograph

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type edgeKey struct {
	u, v VertexID
}

// Graph is a directed graph of Vertex values. Vertex identity is a stable
// integer handle assigned in insertion order; the graph owns all vertex
// payloads, forbids parallel edges, and tracks its unique synthetic Root and
// Terminal vertices.
type Graph struct {
	vertices []*Vertex
	out      map[VertexID][]VertexID
	in       map[VertexID][]VertexID
	edges    map[edgeKey]struct{}
	root     VertexID
	terminal VertexID
	props    Properties
}

// New returns an empty Graph.
func New() *Graph {
	return &Graph{
		out:      map[VertexID][]VertexID{},
		in:       map[VertexID][]VertexID{},
		edges:    map[edgeKey]struct{}{},
		root:     NoVertex,
		terminal: NoVertex,
	}
}

func (g *Graph) addVertex(v *Vertex) VertexID {
	id := VertexID(len(g.vertices))
	v.ID = id
	g.vertices = append(g.vertices, v)
	return id
}

// AddIoEvent appends a new IoEvent vertex and returns its id.
func (g *Graph) AddIoEvent(p IoEventPayload) VertexID {
	return g.addVertex(&Vertex{Kind: KindIoEvent, IoEvent: &p})
}

// AddSyncEvent appends a new SyncEvent vertex and returns its id. The
// vertex's RootEvent back-reference starts unset (NoVertex) until the
// cross-process synchronization pass installs it.
func (g *Graph) AddSyncEvent(p SyncEventPayload) VertexID {
	p.RootEvent = NoVertex
	return g.addVertex(&Vertex{Kind: KindSyncEvent, SyncEvent: &p})
}

// AddSynthetic appends a new Synthetic sentinel vertex and returns its id.
// It is an error to add more than one Root or more than one End.
func (g *Graph) AddSynthetic(p SyntheticPayload) (VertexID, error) {
	switch p.Name {
	case RootName:
		if g.root != NoVertex {
			return NoVertex, status.Error(codes.Internal, "graph already has a Root vertex")
		}
	case TerminalName:
		if g.terminal != NoVertex {
			return NoVertex, status.Error(codes.Internal, "graph already has an End vertex")
		}
	default:
		return NoVertex, status.Errorf(codes.InvalidArgument, "unknown synthetic vertex name %q", p.Name)
	}
	id := g.addVertex(&Vertex{Kind: KindSynthetic, Synthetic: &p})
	if p.Name == RootName {
		g.root = id
	} else {
		g.terminal = id
	}
	return id, nil
}

// AddEdge adds a directed edge u -> v, returning whether a new edge was
// added (false if (u, v) already existed; edge addition is idempotent).
func (g *Graph) AddEdge(u, v VertexID) (bool, error) {
	if u < 0 || int(u) >= len(g.vertices) || v < 0 || int(v) >= len(g.vertices) {
		return false, status.Errorf(codes.InvalidArgument, "AddEdge: vertex out of range (%d -> %d)", u, v)
	}
	key := edgeKey{u, v}
	if _, ok := g.edges[key]; ok {
		return false, nil
	}
	g.edges[key] = struct{}{}
	g.out[u] = append(g.out[u], v)
	g.in[v] = append(g.in[v], u)
	return true, nil
}

// Vertex returns the vertex with the given id, or nil if out of range.
func (g *Graph) Vertex(id VertexID) *Vertex {
	if id < 0 || int(id) >= len(g.vertices) {
		return nil
	}
	return g.vertices[id]
}

// NumVertices returns the number of vertices in the graph.
func (g *Graph) NumVertices() int {
	return len(g.vertices)
}

// Vertices returns all vertex ids in insertion order.
func (g *Graph) Vertices() []VertexID {
	ids := make([]VertexID, len(g.vertices))
	for i := range g.vertices {
		ids[i] = VertexID(i)
	}
	return ids
}

// OutNeighbors returns the ids v is directly connected to via an outgoing
// edge, in the order the edges were added.
func (g *Graph) OutNeighbors(v VertexID) []VertexID {
	return g.out[v]
}

// InNeighbors returns the ids with an outgoing edge to v, in the order the
// edges were added.
func (g *Graph) InNeighbors(v VertexID) []VertexID {
	return g.in[v]
}

// OutDegree returns the number of outgoing edges from v.
func (g *Graph) OutDegree(v VertexID) int {
	return len(g.out[v])
}

// InDegree returns the number of incoming edges to v.
func (g *Graph) InDegree(v VertexID) int {
	return len(g.in[v])
}

// Root returns the id of the graph's unique synthetic Root vertex, or
// NoVertex if none has been added yet.
func (g *Graph) Root() VertexID {
	return g.root
}

// Terminal returns the id of the graph's unique synthetic End vertex, or
// NoVertex if none has been added yet.
func (g *Graph) Terminal() VertexID {
	return g.terminal
}

// NumProcesses returns the number of distinct processes with a direct edge
// from Root, i.e. len(AllProcesses()).
func (g *Graph) NumProcesses() int {
	return len(g.AllProcesses())
}

// Properties returns a pointer to the graph's mutable properties record.
func (g *Graph) Properties() *Properties {
	return &g.props
}

// AllProcesses returns the ProcessGroup of every process with events in the
// graph, derived from Root's direct successors (each process's first event
// is linked directly from Root; see AddEdge's caller in package
// graphbuilder).
func (g *Graph) AllProcesses() ProcessGroup {
	pg := ProcessGroup{}
	if g.root == NoVertex {
		return pg
	}
	for _, v := range g.OutNeighbors(g.root) {
		if p, ok := g.Vertex(v).Process(); ok {
			pg[p] = struct{}{}
		}
	}
	return pg
}
