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
package webui

import (
	"context"
	"testing"

	"github.com/google/cioset/cioexport"
	"github.com/google/cioset/iograph"
	"github.com/google/cioset/ioset"
)

func buildResult() *cioexport.Result {
	g := iograph.New()
	root, _ := g.AddSynthetic(iograph.SyntheticPayload{Name: iograph.RootName})
	io1 := g.AddIoEvent(iograph.IoEventPayload{
		Process: 0, Filename: "/data/a", Region: "read", Paradigm: "posix",
		RequestSize: 64, Kind: iograph.IoRead, Timestamp: 10,
	})
	_, _ = g.AddSynthetic(iograph.SyntheticPayload{Name: iograph.TerminalName, Timestamp: 20})
	_, _ = g.AddEdge(root, io1)

	s := ioset.New(io1)
	s.Insert(io1)
	s.Close(io1, io1)

	return &cioexport.Result{
		Graph:     g,
		CioSets:   []*ioset.Set{s},
		PioSets:   map[iograph.ProcessID][]*ioset.Set{0: {s}},
		TracePath: "/traces/example",
	}
}

func TestGetSummary(t *testing.T) {
	svc := &Service{Result: buildResult()}
	resp, err := svc.GetSummary(context.Background())
	if err != nil {
		t.Fatalf("GetSummary: %v", err)
	}
	if resp.NumCioSets != 1 {
		t.Errorf("NumCioSets = %d, want 1", resp.NumCioSets)
	}
}

func TestGetCioSetsFlattensMembers(t *testing.T) {
	svc := &Service{Result: buildResult()}
	sets, err := svc.GetCioSets(context.Background())
	if err != nil {
		t.Fatalf("GetCioSets: %v", err)
	}
	if len(sets) != 1 || len(sets[0].Members) != 1 {
		t.Fatalf("sets = %+v, want one set with one member", sets)
	}
	if sets[0].Members[0].Filename != "/data/a" {
		t.Errorf("member filename = %q, want /data/a", sets[0].Members[0].Filename)
	}
}

func TestGetSetStatsOutOfRange(t *testing.T) {
	svc := &Service{Result: buildResult()}
	if _, err := svc.GetSetStats(context.Background(), 5); err == nil {
		t.Error("GetSetStats(5) expected an error for an out-of-range index")
	}
}

func TestGetProcesses(t *testing.T) {
	svc := &Service{Result: buildResult()}
	resp, err := svc.GetProcesses(context.Background())
	if err != nil {
		t.Fatalf("GetProcesses: %v", err)
	}
	if len(resp.Processes) != 1 || resp.Processes[0] != 0 {
		t.Errorf("Processes = %v, want [0]", resp.Processes)
	}
}
