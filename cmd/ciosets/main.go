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
// Binary ciosets runs the full analysis pipeline over a trace - Graph
// Builder, Per-Process Set Discovery, and Set Merge Engine - and persists
// the result to an experiment directory, mirroring the original rabbitxx
// CLI's trace-to-CSV workflow.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"time"

	log "github.com/golang/glog"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/google/cioset/cioexport"
	"github.com/google/cioset/discovery"
	"github.com/google/cioset/graphbuilder"
	"github.com/google/cioset/iograph"
	"github.com/google/cioset/merge"
	"github.com/google/cioset/otf2stream"
	"github.com/google/cioset/testhelpers"
)

var (
	outDir    = flag.String("out", ".", "Directory under which the experiment's rabbitxx-* output folder is created.")
	demo      = flag.Bool("demo", false, "Analyze the built-in two-process-collective demonstration trace instead of a real one.")
	dumpGraph = flag.Bool("dump-graph", false, "Print every graph vertex and its out-edges to stdout, mirroring modules/print_graph.")
)

// newReader resolves trace to a Reader. The real OTF2 decoder is a cgo
// binding onto the OTF2 C library, kept out of this module as an external
// collaborator; -demo instead replays testhelpers' canned FakeReader
// scenario.
var newReader = func(trace string, useDemo bool) (otf2stream.Reader, otf2stream.Mapping, error) {
	if useDemo {
		return testhelpers.TwoProcessCollectiveIO(), testhelpers.IdentityMapping(), nil
	}
	return nil, nil, status.Errorf(codes.Unimplemented,
		"reading real OTF2 traces requires the OTF2 C library binding; run with -demo, or supply a Reader of your own via package otf2stream")
}

func dumpVertices(g *iograph.Graph) {
	ids := make([]iograph.VertexID, 0, g.NumVertices())
	for id := iograph.VertexID(0); id < iograph.VertexID(g.NumVertices()); id++ {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		v := g.Vertex(id)
		if v == nil {
			continue
		}
		fmt.Printf("%d: kind=%v -> %v\n", id, v.Kind, g.OutNeighbors(id))
	}
}

func run(trace string) error {
	start := time.Now()
	r, mapping, err := newReader(trace, *demo)
	if err != nil {
		return err
	}

	g, err := graphbuilder.Build(r, mapping)
	if err != nil {
		return status.Errorf(codes.Internal, "ciosets: build graph: %v", err)
	}
	if *dumpGraph {
		dumpVertices(g)
	}

	pioSets, err := discovery.FindSets(g)
	if err != nil {
		return status.Errorf(codes.Internal, "ciosets: discover sets: %v", err)
	}

	cioSets, err := merge.Merge(g, pioSets)
	if err != nil {
		return status.Errorf(codes.Internal, "ciosets: merge sets: %v", err)
	}

	base, err := cioexport.ExperimentDir(*outDir, time.Now())
	if err != nil {
		return err
	}
	res := &cioexport.Result{
		Graph:     g,
		CioSets:   cioSets,
		PioSets:   pioSets,
		TracePath: trace,
		BuildTime: time.Since(start),
	}
	if err := cioexport.Export(base, res); err != nil {
		return err
	}
	log.Infof("ciosets: wrote experiment to %s", base)
	return nil
}

func main() {
	flag.Parse()
	trace := ""
	if flag.NArg() > 0 {
		trace = flag.Arg(0)
	}
	if trace == "" && !*demo {
		fmt.Fprintln(os.Stderr, "usage: ciosets [-demo] [-out dir] [-dump-graph] <trace-path>")
		os.Exit(2)
	}
	if err := run(trace); err != nil {
		log.Exit(err)
	}
}
