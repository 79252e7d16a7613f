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
// Package ciostats computes aggregate I/O statistics over CIO-Sets: per-file
// and per-kind request/response byte counters, each set's "significant"
// operation kind, a Global-vs-local partition of a set list, and an
// augmented-interval-tree index of concurrent, same-file access windows.
package ciostats

import (
	"sort"

	"github.com/google/cioset/iograph"
	"github.com/google/cioset/ioset"
)

// KindTotals accumulates request/response byte counts and operation counts
// for a single IoKind.
type KindTotals struct {
	Ops          uint64
	RequestBytes uint64
	ResponseBytes uint64
}

// FileStats is the per-file aggregate over a single CIO-Set: operation
// counts and bytes moved, broken down by IoKind.
type FileStats struct {
	Filename string
	ByKind   map[iograph.IoKind]*KindTotals
}

func newFileStats(name string) *FileStats {
	return &FileStats{Filename: name, ByKind: map[iograph.IoKind]*KindTotals{}}
}

func (fs *FileStats) add(k iograph.IoKind, req, resp uint64) {
	t, ok := fs.ByKind[k]
	if !ok {
		t = &KindTotals{}
		fs.ByKind[k] = t
	}
	t.Ops++
	t.RequestBytes += req
	t.ResponseBytes += resp
}

// totalFor returns the file's total request-or-response bytes moved for
// kind k (whichever the kind actually measures: response bytes for reads,
// request bytes for writes).
func (fs *FileStats) totalFor(k iograph.IoKind) uint64 {
	t, ok := fs.ByKind[k]
	if !ok {
		return 0
	}
	switch k {
	case iograph.IoRead:
		return t.ResponseBytes
	default:
		return t.RequestBytes
	}
}

// SetStats is the full per-file breakdown for one CIO-Set, plus the set's
// classified significant operation kind: the IoKind responsible for moving
// the most bytes, mirroring the original `modules/significant_op_typ` CLI
// module.
type SetStats struct {
	Files       map[string]*FileStats
	Significant iograph.IoKind
}

// Compute walks set's member vertices and builds its per-file statistics.
func Compute(g *iograph.Graph, set *ioset.Set) *SetStats {
	stats := &SetStats{Files: map[string]*FileStats{}}
	for v := range set.Members {
		vtx := g.Vertex(v)
		if vtx == nil || vtx.Kind != iograph.KindIoEvent {
			continue
		}
		e := vtx.IoEvent
		fs, ok := stats.Files[e.Filename]
		if !ok {
			fs = newFileStats(e.Filename)
			stats.Files[e.Filename] = fs
		}
		fs.add(e.Kind, e.RequestSize, e.ResponseSize)
	}

	var bestKind iograph.IoKind
	var bestBytes uint64
	totals := map[iograph.IoKind]uint64{}
	for _, fs := range stats.Files {
		for k := range fs.ByKind {
			totals[k] += fs.totalFor(k)
		}
	}
	for k, b := range totals {
		if b > bestBytes || (b == bestBytes && k < bestKind) {
			bestBytes = b
			bestKind = k
		}
	}
	stats.Significant = bestKind
	return stats
}

// Partition splits sets by whether the synchronization that closed them was
// Global or Local scope, mirroring the original `modules/global_vs_local`
// query.
func Partition(g *iograph.Graph, sets []*ioset.Set) (global, local []*ioset.Set) {
	for _, s := range sets {
		if s.State != ioset.Close {
			continue
		}
		if ioset.ScopeOf(g, s.EndEvent) == ioset.ScopeGlobal {
			global = append(global, s)
		} else {
			local = append(local, s)
		}
	}
	return global, local
}

// SortedFilenames returns a SetStats's touched filenames in lexical order,
// for deterministic export/report ordering.
func (s *SetStats) SortedFilenames() []string {
	out := make([]string, 0, len(s.Files))
	for f := range s.Files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
