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
// Package cioexport writes an analyzed trace's graph, CIO-Sets, and
// per-process I/O sets (PIO-Sets) to an experiment directory: summary.csv,
// cio-sets/set-N.csv, and pio-sets/P/set-N.csv.
package cioexport

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	log "github.com/golang/glog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/google/cioset/iograph"
	"github.com/google/cioset/ioset"
)

// Result bundles everything a run of the analysis pipeline produced, the
// shape Export expects to persist.
type Result struct {
	Graph       *iograph.Graph
	CioSets     []*ioset.Set
	PioSets     map[iograph.ProcessID][]*ioset.Set
	TracePath   string
	BuildTime   time.Duration
}

// ExperimentDir creates and returns a fresh `rabbitxx-YYYY-MM-DD-HH-MM-SS`
// directory under dir, with its cio-sets/ and pio-sets/ subdirectories
// already created.
func ExperimentDir(dir string, now time.Time) (string, error) {
	name := fmt.Sprintf("rabbitxx-%s", now.Format("2006-01-02-15-04-05"))
	base := filepath.Join(dir, name)
	for _, sub := range []string{"cio-sets", "pio-sets"} {
		if err := os.MkdirAll(filepath.Join(base, sub), 0o755); err != nil {
			return "", status.Errorf(codes.Internal, "cioexport: create %s: %v", sub, err)
		}
	}
	return base, nil
}

// Export writes res to base: the summary, the CIO-Set CSVs, and each
// process's PIO-Set CSVs, the latter written concurrently, mirroring
// server/api_service.go's errgroup fan-out pattern.
func Export(base string, res *Result) error {
	if err := writeSummary(base, res); err != nil {
		return err
	}
	if err := writeManifest(base, res, time.Now()); err != nil {
		return err
	}
	if err := writeSets(filepath.Join(base, "cio-sets"), res.Graph, res.CioSets); err != nil {
		return err
	}

	pioBase := filepath.Join(base, "pio-sets")
	var eg errgroup.Group
	for p, sets := range res.PioSets {
		p, sets := p, sets
		eg.Go(func() error {
			procDir := filepath.Join(pioBase, strconv.FormatUint(uint64(p), 10))
			if err := os.MkdirAll(procDir, 0o755); err != nil {
				return status.Errorf(codes.Internal, "cioexport: create pio-sets/%d: %v", p, err)
			}
			return writeSets(procDir, res.Graph, sets)
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	log.Infof("cioexport: wrote %d CIO-Sets and PIO-Sets for %d processes to %s", len(res.CioSets), len(res.PioSets), base)
	return nil
}

func writeSummary(base string, res *Result) error {
	f, err := os.Create(filepath.Join(base, "summary.csv"))
	if err != nil {
		return status.Errorf(codes.Internal, "cioexport: create summary.csv: %v", err)
	}
	defer f.Close()

	props := res.Graph.Properties()
	rows := [][2]string{
		{"Tracefile", res.TracePath},
		{"Experiment Build Time", res.BuildTime.String()},
		{"Number of Vertices", strconv.Itoa(res.Graph.NumVertices())},
		{"Number of Locations", strconv.Itoa(props.NumLocations)},
		{"Ticks per Second", strconv.FormatUint(props.Clock.TicksPerSecond, 10)},
		{"Start Time", strconv.FormatUint(uint64(props.FirstEventTimestamp), 10)},
		{"Wall Time (ns)", strconv.FormatUint(uint64(props.WallTime), 10)},
		{"File I/O Time (ns)", strconv.FormatUint(uint64(props.FileIOTime), 10)},
		{"File I/O Metadata Time (ns)", strconv.FormatUint(uint64(props.FileIOMetadataTime), 10)},
		{"Number of CIO-Sets", strconv.Itoa(len(res.CioSets))},
	}
	for _, row := range rows {
		if _, err := fmt.Fprintf(f, "%s,%s\n", row[0], row[1]); err != nil {
			return status.Errorf(codes.Internal, "cioexport: write summary.csv: %v", err)
		}
	}
	return nil
}

// writeSets writes one set-N.csv per member of sets into dir, numbered from
// 1, mirroring set2csv/main.cpp's create_cio_set_stats_filename.
func writeSets(dir string, g *iograph.Graph, sets []*ioset.Set) error {
	for i, s := range sets {
		path := filepath.Join(dir, fmt.Sprintf("set-%d.csv", i+1))
		if err := writeSetCSV(path, g, s); err != nil {
			return err
		}
	}
	return nil
}

// writeSetCSV writes one row per member event, in ascending vertex id order,
// with columns proc_id, filename, region_name, paradigm, request_size,
// response_size, offset, kind, duration_ns, timestamp. duration_ns converts
// the event's span from clock ticks using the graph's ticks-per-second,
// taking ticks as nanoseconds when the trace gave no tick rate.
func writeSetCSV(path string, g *iograph.Graph, s *ioset.Set) error {
	f, err := os.Create(path)
	if err != nil {
		return status.Errorf(codes.Internal, "cioexport: create %s: %v", path, err)
	}
	defer f.Close()

	tps := g.Properties().Clock.TicksPerSecond
	members := s.SortedMembers()
	for _, v := range members {
		vtx := g.Vertex(v)
		if vtx == nil || vtx.Kind != iograph.KindIoEvent {
			continue
		}
		e := vtx.IoEvent
		durNs := vtx.Span.Duration()
		if tps != 0 {
			durNs = uint64(float64(durNs) * float64(time.Second) / float64(tps))
		}
		_, err := fmt.Fprintf(f, "%d,%s,%s,%s,%d,%d,%d,%s,%d,%d\n",
			e.Process, e.Filename, e.Region, e.Paradigm,
			e.RequestSize, e.ResponseSize, e.Offset, e.Kind,
			durNs, e.Timestamp)
		if err != nil {
			return status.Errorf(codes.Internal, "cioexport: write %s: %v", path, err)
		}
	}
	return nil
}
