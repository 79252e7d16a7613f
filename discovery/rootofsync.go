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
// Package discovery implements Per-Process Set Discovery: a depth-first
// traversal of an iograph.Graph that partitions each process's I/O events
// into CIO-Set fragments delimited by the synchronizations it observed.
package discovery

import (
	log "github.com/golang/glog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/google/cioset/iograph"
)

func incomingSyncs(g *iograph.Graph, v iograph.VertexID) []iograph.VertexID {
	var out []iograph.VertexID
	for _, u := range g.InNeighbors(v) {
		if g.Vertex(u).Kind == iograph.KindSyncEvent {
			out = append(out, u)
		}
	}
	return out
}

// RootOfSync returns the vertex representing the causal origin of v's
// synchronization class: a sync vertex with in-degree 1 is its own root; a
// p2p vertex's root is the in-neighbour sync vertex whose process equals its
// stored remote; a collective vertex's root is itself (when it names its own
// process as an explicit root rank) or the in-neighbour sync vertex whose
// out-degree is at least |members|-1 and in-degree 1.
func RootOfSync(g *iograph.Graph, v iograph.VertexID) (iograph.VertexID, error) {
	vtx := g.Vertex(v)
	if vtx == nil || vtx.Kind != iograph.KindSyncEvent {
		return iograph.NoVertex, status.Errorf(codes.Internal, "RootOfSync: vertex %d is not a SyncEvent", v)
	}
	if g.InDegree(v) == 1 {
		return v, nil
	}
	sd := vtx.SyncEvent
	if sd.Comm == iograph.CommP2P {
		remote := sd.P2P.Remote
		for _, s := range incomingSyncs(g, v) {
			if g.Vertex(s).SyncEvent.Process == remote {
				return s, nil
			}
		}
	} else {
		cd := sd.Collective
		if cd.HasRoot && cd.Root == sd.Process {
			return v, nil
		}
		if !cd.HasRoot {
			log.Warningf("discovery: collective sync %d has no defined root rank, falling back to in-degree/out-degree match", v)
		}
		for _, s := range incomingSyncs(g, v) {
			if g.OutDegree(s) >= len(cd.Members)-1 && g.InDegree(s) == 1 {
				return s, nil
			}
		}
	}
	return iograph.NoVertex, status.Errorf(codes.Internal, "RootOfSync: no root found for sync vertex %d", v)
}
