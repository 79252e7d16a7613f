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
// Package graphbuilder consumes an otf2stream.Reader's callback stream and
// builds an iograph.Graph: per location, it emits vertices and links them in
// program order, then, once every event has been read, installs the
// cross-process synchronization edges.
package graphbuilder

import (
	"time"

	log "github.com/golang/glog"
	"github.com/google/uuid"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/google/cioset/iograph"
	"github.com/google/cioset/otf2stream"
)

// callFrame records an open enter/leave region: the timestamp it was
// entered at, and the vertex (if any) it should decorate with a duration
// span when it leaves.
type callFrame struct {
	enter  iograph.Timestamp
	vertex iograph.VertexID
}

type pendingIO struct {
	handle  otf2stream.IoHandleID
	mode    iograph.OperationMode
	reqSize uint64
	ts      iograph.Timestamp
}

type locationState struct {
	edgePoint   iograph.VertexID
	regionStack []string
	callStack   []callFrame
	pendingIO   []pendingIO
	syncQueue   []iograph.VertexID
}

func newLocationState() *locationState {
	return &locationState{edgePoint: iograph.NoVertex}
}

// Builder implements otf2stream.Callbacks, accumulating an iograph.Graph
// from the event stream it receives. Construct with New, drive it with a
// Reader's ReadEvents, then call Graph to retrieve the finished result.
type Builder struct {
	g       *iograph.Graph
	mapping otf2stream.Mapping
	buildID string

	locations        map[otf2stream.LocationID]*locationState
	locOrder         []otf2stream.LocationID
	processLocations map[iograph.ProcessID][]otf2stream.LocationID
	matchedSync      map[iograph.VertexID]bool

	handleFile      map[otf2stream.IoHandleID]otf2stream.IoFileID
	handleHasParent map[otf2stream.IoHandleID]bool
	fileName        map[otf2stream.IoFileID]string
	fileSystem      map[string]string

	clock iograph.ClockProperties

	fileIOTime     time.Duration
	fileIOMetaTime time.Duration
	haveFirstTS    bool
	firstTS        iograph.Timestamp
	lastTS         iograph.Timestamp

	done bool
	err  error
}

// New creates a Builder over a freshly-read set of Reader definitions. It
// creates the graph's synthetic Root vertex immediately, before any event is
// read. mapping resolves OTF2 locations to process ids; pass nil to default
// to otf2stream.IdentityMapping.
func New(r otf2stream.Reader, mapping otf2stream.Mapping) (*Builder, error) {
	defs, err := r.ReadDefinitions()
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "ReadDefinitions: %v", err)
	}
	if mapping == nil {
		mapping = otf2stream.IdentityMapping{}
	}
	b := &Builder{
		g:               iograph.New(),
		mapping:         mapping,
		buildID:         uuid.New().String(),
		locations:        map[otf2stream.LocationID]*locationState{},
		processLocations: map[iograph.ProcessID][]otf2stream.LocationID{},
		matchedSync:      map[iograph.VertexID]bool{},
		handleFile:      map[otf2stream.IoHandleID]otf2stream.IoFileID{},
		handleHasParent: map[otf2stream.IoHandleID]bool{},
		fileName:        map[otf2stream.IoFileID]string{},
		fileSystem:      map[string]string{},
	}
	for _, f := range defs.IoFiles {
		b.fileName[f.ID] = f.Name
	}
	for _, h := range defs.IoHandles {
		b.handleFile[h.ID] = h.File
		b.handleHasParent[h.ID] = h.HasParent
	}
	for _, p := range defs.IoFileProperties {
		if p.Name != "File system" {
			continue
		}
		if p.Value == "proc" || p.Value == "sysfs" {
			continue
		}
		b.fileSystem[b.fileName[p.File]] = p.Value
	}
	b.clock = iograph.ClockProperties{
		TicksPerSecond: defs.Clock.TicksPerSecond,
		StartTime:      defs.Clock.StartTime,
		Length:         defs.Clock.Length,
	}
	if _, err := b.g.AddSynthetic(iograph.SyntheticPayload{Name: iograph.RootName, Timestamp: 0}); err != nil {
		return nil, err
	}
	log.Infof("graphbuilder[%s]: initialized with %d locations, %d io files", b.buildID, len(defs.Locations), len(defs.IoFiles))
	return b, nil
}

// Build runs a full Reader pass (definitions, then events) and returns the
// finished graph.
func Build(r otf2stream.Reader, mapping otf2stream.Mapping) (*iograph.Graph, error) {
	b, err := New(r, mapping)
	if err != nil {
		return nil, err
	}
	if err := r.ReadEvents(b); err != nil {
		return nil, err
	}
	return b.Graph()
}

// Graph returns the finished graph. It is an error to call before
// EventsDone has fired (i.e. before the Reader's ReadEvents call returns).
func (b *Builder) Graph() (*iograph.Graph, error) {
	if !b.done {
		return nil, status.Error(codes.FailedPrecondition, "graphbuilder: Graph called before EventsDone")
	}
	if b.err != nil {
		return nil, b.err
	}
	return b.g, nil
}

func (b *Builder) rank(loc otf2stream.LocationID) iograph.ProcessID {
	return b.mapping.Rank(loc)
}

func (b *Builder) state(loc otf2stream.LocationID) *locationState {
	st, ok := b.locations[loc]
	if !ok {
		st = newLocationState()
		b.locations[loc] = st
		b.locOrder = append(b.locOrder, loc)
		rank := b.rank(loc)
		b.processLocations[rank] = append(b.processLocations[rank], loc)
	}
	return st
}

func (b *Builder) currentRegion(st *locationState) string {
	if len(st.regionStack) == 0 {
		return ""
	}
	return st.regionStack[len(st.regionStack)-1]
}

// appendVertex links id from loc's current edge-point (or Root, if loc has
// none yet), makes id the new edge-point, and records the vertex in the
// innermost open call-frame if that frame has not yet been assigned one.
func (b *Builder) appendVertex(st *locationState, id iograph.VertexID) error {
	from := st.edgePoint
	if from == iograph.NoVertex {
		from = b.g.Root()
	}
	if _, err := b.g.AddEdge(from, id); err != nil {
		return err
	}
	st.edgePoint = id
	if n := len(st.callStack); n > 0 && st.callStack[n-1].vertex == iograph.NoVertex {
		st.callStack[n-1].vertex = id
	}
	return nil
}

func (b *Builder) observeTimestamp(ts iograph.Timestamp) {
	if !b.haveFirstTS || ts < b.firstTS {
		b.firstTS = ts
		b.haveFirstTS = true
	}
	if ts > b.lastTS {
		b.lastTS = ts
	}
}

func tickDuration(clock iograph.ClockProperties, ticks uint64) time.Duration {
	tps := clock.TicksPerSecond
	if tps == 0 {
		tps = 1e9 // assume nanosecond-resolution ticks if the trace didn't say
	}
	return time.Duration(float64(ticks) * float64(time.Second) / float64(tps))
}

// Enter implements otf2stream.Callbacks.
func (b *Builder) Enter(loc otf2stream.LocationID, ts iograph.Timestamp, region string) error {
	b.observeTimestamp(ts)
	st := b.state(loc)
	st.regionStack = append(st.regionStack, region)
	st.callStack = append(st.callStack, callFrame{enter: ts, vertex: iograph.NoVertex})
	return nil
}

// Leave implements otf2stream.Callbacks.
func (b *Builder) Leave(loc otf2stream.LocationID, ts iograph.Timestamp, region string) error {
	b.observeTimestamp(ts)
	st := b.state(loc)
	if len(st.regionStack) == 0 || len(st.callStack) == 0 {
		return status.Errorf(codes.Internal, "graphbuilder[%s]: leave %q on location %d with no matching enter", b.buildID, region, loc)
	}
	st.regionStack = st.regionStack[:len(st.regionStack)-1]
	frame := st.callStack[len(st.callStack)-1]
	st.callStack = st.callStack[:len(st.callStack)-1]

	elapsed := tickDuration(b.clock, uint64(ts-frame.enter))
	if frame.vertex != iograph.NoVertex {
		vtx := b.g.Vertex(frame.vertex)
		vtx.Span = iograph.DurationSpan{Enter: frame.enter, Leave: ts, Populated: true}
		if vtx.Kind == iograph.KindIoEvent {
			switch vtx.IoEvent.Kind {
			case iograph.IoRead, iograph.IoWrite, iograph.IoFlush:
				b.fileIOTime += elapsed
			case iograph.IoCreate, iograph.IoDup, iograph.IoSeek, iograph.IoDeleteOrClose:
				b.fileIOMetaTime += elapsed
			}
		}
	}
	return nil
}
