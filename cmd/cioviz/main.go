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
// Binary cioviz serves an analyzed trace's CIO-Sets over HTTP, mirroring
// server/server.go's flag/runServer/main split.
package main

import (
	"flag"
	"fmt"
	"net/http"

	log "github.com/golang/glog"

	"github.com/google/cioset/cioexport"
	"github.com/google/cioset/discovery"
	"github.com/google/cioset/graphbuilder"
	"github.com/google/cioset/merge"
	"github.com/google/cioset/testhelpers"
	"github.com/google/cioset/webui"
)

var (
	port = flag.Int("port", 7403, "The cioviz HTTP port.")
	demo = flag.Bool("demo", true, "Serve the built-in two-process-collective demonstration trace.")
)

var startServer = func(handler http.Handler, listenPort int) error {
	return http.ListenAndServe(fmt.Sprintf(":%d", listenPort), handler)
}

func loadResult() (*cioexport.Result, error) {
	if !*demo {
		return nil, fmt.Errorf("cioviz currently only serves -demo traces; point it at a cioexport.Result-producing pipeline of your own for real data")
	}
	r := testhelpers.TwoProcessCollectiveIO()
	g, err := graphbuilder.Build(r, testhelpers.IdentityMapping())
	if err != nil {
		return nil, err
	}
	pioSets, err := discovery.FindSets(g)
	if err != nil {
		return nil, err
	}
	cioSets, err := merge.Merge(g, pioSets)
	if err != nil {
		return nil, err
	}
	return &cioexport.Result{Graph: g, CioSets: cioSets, PioSets: pioSets, TracePath: "demo"}, nil
}

func runServer() error {
	res, err := loadResult()
	if err != nil {
		return err
	}
	svc := &webui.Service{Result: res}
	r := webui.NewRouter(svc)
	log.Infof("cioviz: serving %d CIO-Sets on :%d", len(res.CioSets), *port)
	return startServer(r, *port)
}

func main() {
	flag.Parse()
	if err := runServer(); err != nil {
		log.Exit(err)
	}
}
