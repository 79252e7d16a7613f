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
package ciostats

import (
	"sort"

	"github.com/Workiva/go-datastructures/augmentedtree"

	"github.com/google/cioset/iograph"
	"github.com/google/cioset/ioset"
)

// setSpan is a CIO-Set's [low, high] access-timestamp window against a
// single file; it implements augmentedtree.Interval the same way
// sched_cpu_span_set.go's threadSpan does, so the tree's Query can answer
// "which sets touched this file during an overlapping window".
type setSpan struct {
	setIndex int
	low, high int64
}

func (s *setSpan) LowAtDimension(d uint64) int64 { return s.low }
func (s *setSpan) HighAtDimension(d uint64) int64 { return s.high }

func (s *setSpan) OverlapsAtDimension(j augmentedtree.Interval, d uint64) bool {
	return s.HighAtDimension(d) >= j.LowAtDimension(d) && j.HighAtDimension(d) >= s.LowAtDimension(d)
}

func (s *setSpan) ID() uint64 { return uint64(s.setIndex) }

// OverlapIndex answers, per file, which CIO-Sets touched it during
// overlapping time windows.
type OverlapIndex struct {
	trees       map[string]augmentedtree.Tree
	spansByFile map[string][]*setSpan
}

// BuildOverlapIndex constructs one augmented interval tree per file touched
// by sets, each leaf spanning the min/max timestamp of that set's I/O events
// against that file.
func BuildOverlapIndex(g *iograph.Graph, sets []*ioset.Set) *OverlapIndex {
	idx := &OverlapIndex{
		trees:       map[string]augmentedtree.Tree{},
		spansByFile: map[string][]*setSpan{},
	}
	for i, s := range sets {
		perFile := map[string]*setSpan{}
		for v := range s.Members {
			vtx := g.Vertex(v)
			if vtx == nil || vtx.Kind != iograph.KindIoEvent {
				continue
			}
			fn := vtx.IoEvent.Filename
			ts := int64(vtx.IoEvent.Timestamp)
			sp, ok := perFile[fn]
			if !ok {
				perFile[fn] = &setSpan{setIndex: i, low: ts, high: ts}
				continue
			}
			if ts < sp.low {
				sp.low = ts
			}
			if ts > sp.high {
				sp.high = ts
			}
		}
		for fn, sp := range perFile {
			idx.spansByFile[fn] = append(idx.spansByFile[fn], sp)
		}
	}
	for fn, spans := range idx.spansByFile {
		tree := augmentedtree.New(1)
		for _, sp := range spans {
			tree.Add(sp)
		}
		idx.trees[fn] = tree
	}
	return idx
}

// Overlapping returns the indices, into the slice BuildOverlapIndex was
// called with, of every other set that touched filename during a window
// overlapping setIndex's own.
func (idx *OverlapIndex) Overlapping(filename string, setIndex int) []int {
	spans := idx.spansByFile[filename]
	var self *setSpan
	for _, sp := range spans {
		if sp.setIndex == setIndex {
			self = sp
			break
		}
	}
	tree, ok := idx.trees[filename]
	if self == nil || !ok {
		return nil
	}
	var out []int
	for _, r := range tree.Query(self) {
		sp := r.(*setSpan)
		if sp.setIndex != setIndex {
			out = append(out, sp.setIndex)
		}
	}
	sort.Ints(out)
	return out
}

// Files returns the filenames BuildOverlapIndex indexed, in lexical order.
func (idx *OverlapIndex) Files() []string {
	out := make([]string, 0, len(idx.spansByFile))
	for fn := range idx.spansByFile {
		out = append(out, fn)
	}
	sort.Strings(out)
	return out
}
