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

import "github.com/google/cioset/iograph"

// Scope classifies whether a synchronization vertex's process group spans
// every process in the trace (Global) or only a subset (Local).
type Scope int8

const (
	// ScopeLocal is a synchronization whose process group is a strict subset
	// of the trace's processes.
	ScopeLocal Scope = iota
	// ScopeGlobal is a synchronization whose process group engulfs every
	// process in the trace. The synthetic Root and End sentinels are always
	// ScopeGlobal.
	ScopeGlobal
)

func (s Scope) String() string {
	if s == ScopeGlobal {
		return "Global"
	}
	return "Local"
}

// ProcessGroupOf derives the ProcessGroup of the given vertex: a collective
// sync's own Members; a p2p sync's {proc_id, remote}; and every process in
// the trace for the synthetic Root/Terminal sentinels.
func ProcessGroupOf(g *iograph.Graph, v iograph.VertexID) iograph.ProcessGroup {
	vtx := g.Vertex(v)
	if vtx == nil {
		return iograph.ProcessGroup{}
	}
	switch vtx.Kind {
	case iograph.KindSyncEvent:
		s := vtx.SyncEvent
		if s.Comm == iograph.CommCollective {
			return s.Collective.Members
		}
		return iograph.NewProcessGroup(s.Process, s.P2P.Remote)
	case iograph.KindSynthetic:
		return g.AllProcesses()
	default:
		return iograph.ProcessGroup{}
	}
}

// ScopeOf classifies v's synchronization scope: Global if its process group
// covers every process in the trace, else Local. The synthetic End sentinel
// is always Global.
func ScopeOf(g *iograph.Graph, v iograph.VertexID) Scope {
	vtx := g.Vertex(v)
	if vtx != nil && vtx.Kind == iograph.KindSynthetic {
		return ScopeGlobal
	}
	if len(ProcessGroupOf(g, v)) == g.NumProcesses() {
		return ScopeGlobal
	}
	return ScopeLocal
}
