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
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	log "github.com/golang/glog"
	"github.com/gorilla/mux"

	"github.com/google/cioset/iograph"
)

const (
	err400 = "Bad request: %s"
	err500 = "Internal Server Error"
)

var handle = func(r *mux.Router, path string, handler http.HandlerFunc) {
	r.HandleFunc(path, handler)
}

// apiHTTPHandler adapts Service's methods to HTTP, mirroring
// server/server.go's apiServiceHTTPHandler.
type apiHTTPHandler struct {
	*Service
}

func sendStructHTTPResponse(res interface{}, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		http.Error(w, err500, http.StatusInternalServerError)
	}
}

func (a *apiHTTPHandler) handleSummary(w http.ResponseWriter, req *http.Request) {
	resp, err := a.GetSummary(req.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf(err400, err), http.StatusInternalServerError)
		return
	}
	sendStructHTTPResponse(resp, w)
}

func (a *apiHTTPHandler) handleCioSets(w http.ResponseWriter, req *http.Request) {
	resp, err := a.GetCioSets(req.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf(err400, err), http.StatusInternalServerError)
		return
	}
	sendStructHTTPResponse(resp, w)
}

func (a *apiHTTPHandler) handlePioSets(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		http.Error(w, err500, http.StatusInternalServerError)
		return
	}
	proc, err := strconv.ParseUint(req.Form.Get("process"), 10, 32)
	if err != nil {
		http.Error(w, fmt.Sprintf(err400, "process must be an integer"), http.StatusBadRequest)
		return
	}
	resp, err := a.GetPioSets(req.Context(), iograph.ProcessID(proc))
	if err != nil {
		http.Error(w, fmt.Sprintf(err400, err), http.StatusInternalServerError)
		return
	}
	sendStructHTTPResponse(resp, w)
}

func (a *apiHTTPHandler) handleSetStats(w http.ResponseWriter, req *http.Request) {
	if err := req.ParseForm(); err != nil {
		http.Error(w, err500, http.StatusInternalServerError)
		return
	}
	index, err := strconv.Atoi(req.Form.Get("index"))
	if err != nil {
		http.Error(w, fmt.Sprintf(err400, "index must be an integer"), http.StatusBadRequest)
		return
	}
	resp, err := a.GetSetStats(req.Context(), index)
	if err != nil {
		http.Error(w, fmt.Sprintf(err400, err), http.StatusBadRequest)
		return
	}
	sendStructHTTPResponse(resp, w)
}

func (a *apiHTTPHandler) handleProcesses(w http.ResponseWriter, req *http.Request) {
	resp, err := a.GetProcesses(req.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf(err400, err), http.StatusInternalServerError)
		return
	}
	sendStructHTTPResponse(resp, w)
}

// RegisterRoutes wires svc's query methods onto r, mirroring
// server/server.go's registerAPIService.
func RegisterRoutes(r *mux.Router, svc *Service) {
	h := &apiHTTPHandler{svc}
	handle(r, "/api/summary", h.handleSummary)
	handle(r, "/api/cio_sets", h.handleCioSets)
	handle(r, "/api/pio_sets", h.handlePioSets)
	handle(r, "/api/set_stats", h.handleSetStats)
	handle(r, "/api/processes", h.handleProcesses)
}

// NewRouter builds a router serving svc's API routes, logging every
// request's method and path.
func NewRouter(svc *Service) *mux.Router {
	r := mux.NewRouter()
	RegisterRoutes(r, svc)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			log.Infof("webui: %s %s", req.Method, req.URL.Path)
			next.ServeHTTP(w, req)
		})
	})
	return r
}
