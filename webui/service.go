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
// Package webui serves an already-analyzed trace (graph, CIO-Sets, and
// PIO-Sets) over HTTP as JSON, a read-only viewer alternative to the CSV
// export.
package webui

import (
	"context"
	"sort"
	"sync"

	"github.com/hashicorp/golang-lru/simplelru"

	"github.com/google/cioset/ciostats"
	"github.com/google/cioset/cioexport"
	"github.com/google/cioset/iograph"
	"github.com/google/cioset/ioset"
)

// defaultStatsCacheSize bounds how many distinct CIO-Sets' ciostats.Compute
// results Service keeps warm, mirroring storage_service.go's cacheSize flag.
const defaultStatsCacheSize = 64

// Service answers queries against a single analyzed trace. statsCache holds
// recently computed per-set statistics so repeat requests for the same set
// (the common case for a dashboard polling one set's breakdown) skip
// re-walking its members; it is safe for concurrent use, the same way
// storage_service.go's lruCache backs concurrent HTTP handlers.
type Service struct {
	Result *cioexport.Result

	statsMu    sync.Mutex
	statsCache *simplelru.LRU
}

// cachedSetStats returns a cached ciostats.Compute result for index,
// computing and storing it on a miss. It holds statsMu for the whole
// get-or-compute, since simplelru.LRU itself is not safe for concurrent use.
func (s *Service) cachedSetStats(index int) *ciostats.SetStats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	if s.statsCache == nil {
		s.statsCache, _ = simplelru.NewLRU(defaultStatsCacheSize, nil)
	}
	if v, ok := s.statsCache.Get(index); ok {
		return v.(*ciostats.SetStats)
	}
	stats := ciostats.Compute(s.Result.Graph, s.Result.CioSets[index])
	s.statsCache.Add(index, stats)
	return stats
}

// SummaryResponse is the top-level view of the analyzed trace: its
// properties and set counts, the JSON counterpart of summary.csv.
type SummaryResponse struct {
	TracePath        string `json:"tracePath"`
	NumVertices      int    `json:"numVertices"`
	NumLocations     int    `json:"numLocations"`
	NumCioSets       int    `json:"numCioSets"`
	NumProcesses     int    `json:"numProcesses"`
	WallTimeNs       uint64 `json:"wallTimeNs"`
	FileIOTimeNs     uint64 `json:"fileIoTimeNs"`
}

// GetSummary returns the trace-level summary.
func (s *Service) GetSummary(ctx context.Context) (SummaryResponse, error) {
	props := s.Result.Graph.Properties()
	return SummaryResponse{
		TracePath:    s.Result.TracePath,
		NumVertices:  s.Result.Graph.NumVertices(),
		NumLocations: props.NumLocations,
		NumCioSets:   len(s.Result.CioSets),
		NumProcesses: len(s.Result.Graph.AllProcesses()),
		WallTimeNs:   uint64(props.WallTime),
		FileIOTimeNs: uint64(props.FileIOTime),
	}, nil
}

// IoEventView is a single member event of a set, flattened for JSON.
type IoEventView struct {
	Process      iograph.ProcessID `json:"process"`
	Filename     string            `json:"filename"`
	Region       string            `json:"region"`
	Paradigm     string            `json:"paradigm"`
	Kind         string            `json:"kind"`
	RequestSize  uint64            `json:"requestSize"`
	ResponseSize uint64            `json:"responseSize"`
	Timestamp    iograph.Timestamp `json:"timestamp"`
}

// SetView is a single CIO-Set or PIO-Set fragment, flattened for JSON.
type SetView struct {
	Index   int           `json:"index"`
	Scope   string        `json:"scope"`
	Members []IoEventView `json:"members"`
}

func toSetView(g *iograph.Graph, idx int, set *ioset.Set) SetView {
	view := SetView{Index: idx}
	if set.State == ioset.Close {
		if ioset.ScopeOf(g, set.EndEvent) == ioset.ScopeGlobal {
			view.Scope = "global"
		} else {
			view.Scope = "local"
		}
	} else {
		view.Scope = "open"
	}
	for _, v := range set.SortedMembers() {
		vtx := g.Vertex(v)
		if vtx == nil || vtx.Kind != iograph.KindIoEvent {
			continue
		}
		e := vtx.IoEvent
		view.Members = append(view.Members, IoEventView{
			Process: e.Process, Filename: e.Filename, Region: e.Region,
			Paradigm: e.Paradigm, Kind: e.Kind.String(),
			RequestSize: e.RequestSize, ResponseSize: e.ResponseSize,
			Timestamp: e.Timestamp,
		})
	}
	return view
}

// GetCioSets returns every merged CIO-Set, in Result.CioSets order (the
// member-set order merge.Merge returns them in).
func (s *Service) GetCioSets(ctx context.Context) ([]SetView, error) {
	out := make([]SetView, 0, len(s.Result.CioSets))
	for i, set := range s.Result.CioSets {
		out = append(out, toSetView(s.Result.Graph, i, set))
	}
	return out, nil
}

// GetPioSets returns process proc's pre-merge PIO-Set fragments.
func (s *Service) GetPioSets(ctx context.Context, proc iograph.ProcessID) ([]SetView, error) {
	sets := s.Result.PioSets[proc]
	out := make([]SetView, 0, len(sets))
	for i, set := range sets {
		out = append(out, toSetView(s.Result.Graph, i, set))
	}
	return out, nil
}

// FileStatsResponse is a single CIO-Set's per-file breakdown of request plus
// response bytes by IoKind; operation counts are not included.
type FileStatsResponse struct {
	SetIndex    int                          `json:"setIndex"`
	Significant string                       `json:"significant"`
	Files       map[string]map[string]uint64 `json:"files"`
}

// GetSetStats computes ciostats.Compute for the CIO-Set at index.
func (s *Service) GetSetStats(ctx context.Context, index int) (FileStatsResponse, error) {
	if index < 0 || index >= len(s.Result.CioSets) {
		return FileStatsResponse{}, missingFieldError("index")
	}
	stats := s.cachedSetStats(index)
	resp := FileStatsResponse{SetIndex: index, Significant: stats.Significant.String(), Files: map[string]map[string]uint64{}}
	for _, fn := range stats.SortedFilenames() {
		fs := stats.Files[fn]
		byKind := map[string]uint64{}
		for k, t := range fs.ByKind {
			byKind[k.String()] = t.RequestBytes + t.ResponseBytes
		}
		resp.Files[fn] = byKind
	}
	return resp, nil
}

// ProcessesResponse lists the processes known to the loaded trace, sorted.
type ProcessesResponse struct {
	Processes []iograph.ProcessID `json:"processes"`
}

// GetProcesses returns every process id the graph knows about.
func (s *Service) GetProcesses(ctx context.Context) (ProcessesResponse, error) {
	procs := s.Result.Graph.AllProcesses().Slice()
	sort.Slice(procs, func(i, j int) bool { return procs[i] < procs[j] })
	return ProcessesResponse{Processes: procs}, nil
}

func missingFieldError(fieldName string) error {
	return &fieldError{fieldName}
}

type fieldError struct{ field string }

func (e *fieldError) Error() string { return "missing or invalid field: " + e.field }
