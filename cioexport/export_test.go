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
package cioexport

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang/protobuf/proto"

	"github.com/google/cioset/iograph"
	"github.com/google/cioset/ioset"
)

func TestExperimentDirLayout(t *testing.T) {
	tmp := t.TempDir()
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	base, err := ExperimentDir(tmp, now)
	if err != nil {
		t.Fatalf("ExperimentDir: %v", err)
	}
	want := filepath.Join(tmp, "rabbitxx-2026-07-30-12-00-00")
	if base != want {
		t.Errorf("base = %q, want %q", base, want)
	}
	for _, sub := range []string{"cio-sets", "pio-sets"} {
		if fi, err := os.Stat(filepath.Join(base, sub)); err != nil || !fi.IsDir() {
			t.Errorf("subdir %s missing or not a directory: %v", sub, err)
		}
	}
}

func TestExportWritesSummaryAndSets(t *testing.T) {
	g := iograph.New()
	_, _ = g.AddSynthetic(iograph.SyntheticPayload{Name: iograph.RootName})
	io1 := g.AddIoEvent(iograph.IoEventPayload{
		Process: 0, Filename: "/data/a", Region: "read", Paradigm: "posix",
		RequestSize: 64, Kind: iograph.IoRead, Timestamp: 10,
	})
	_, _ = g.AddSynthetic(iograph.SyntheticPayload{Name: iograph.TerminalName, Timestamp: 20})

	s := ioset.New(0)
	s.Insert(io1)
	s.Close(1, 1)

	tmp := t.TempDir()
	base, err := ExperimentDir(tmp, time.Now())
	if err != nil {
		t.Fatalf("ExperimentDir: %v", err)
	}
	res := &Result{
		Graph:     g,
		CioSets:   []*ioset.Set{s},
		PioSets:   map[iograph.ProcessID][]*ioset.Set{0: {s}},
		TracePath: "/traces/example",
		BuildTime: 5 * time.Millisecond,
	}
	if err := Export(base, res); err != nil {
		t.Fatalf("Export: %v", err)
	}

	if _, err := os.Stat(filepath.Join(base, "summary.csv")); err != nil {
		t.Errorf("summary.csv missing: %v", err)
	}
	manifestPath := filepath.Join(base, "manifest.binpb")
	manifestData, err := os.ReadFile(manifestPath)
	if err != nil {
		t.Fatalf("read %s: %v", manifestPath, err)
	}
	if len(manifestData) == 0 {
		t.Errorf("manifest.binpb is empty")
	}
	var m ExperimentManifest
	if err := proto.Unmarshal(manifestData, &m); err != nil {
		t.Fatalf("unmarshal manifest.binpb: %v", err)
	}
	if m.TracePath != res.TracePath {
		t.Errorf("manifest TracePath = %q, want %q", m.TracePath, res.TracePath)
	}
	if m.NumCioSets != int64(len(res.CioSets)) {
		t.Errorf("manifest NumCioSets = %d, want %d", m.NumCioSets, len(res.CioSets))
	}

	cioPath := filepath.Join(base, "cio-sets", "set-1.csv")
	data, err := os.ReadFile(cioPath)
	if err != nil {
		t.Fatalf("read %s: %v", cioPath, err)
	}
	if len(data) == 0 {
		t.Errorf("set-1.csv is empty")
	}

	pioPath := filepath.Join(base, "pio-sets", "0", "set-1.csv")
	if _, err := os.Stat(pioPath); err != nil {
		t.Errorf("pio-sets/0/set-1.csv missing: %v", err)
	}
}
