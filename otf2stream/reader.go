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
// Package otf2stream defines the contract an OTF2 trace reader must satisfy
// to feed package graphbuilder. The real OTF2 reader is a cgo binding onto
// the OTF2 C library and is kept out of this module's core as an external
// collaborator; this package only defines the callback/reader interfaces the
// core depends on, plus a Fake implementation used by tests and by the CLI's
// demonstration mode.
package otf2stream

import "github.com/google/cioset/iograph"

// LocationID identifies an OTF2 location: the unit a trace records events
// against. A location usually, but not always, corresponds 1:1 with an MPI
// rank; see Mapping.
type LocationID uint64

// IoFileID and IoHandleID identify OTF2 io_file and io_handle definitions.
type IoFileID uint64
type IoHandleID uint64

// LocationDef, RegionDef, CommDef, IoParadigmDef, IoFileDef, and
// IoFilePropertyDef mirror the OTF2 definition records the graph builder
// requires as input. IoHandleDef additionally carries whether the handle has
// a parent, needed to implement the io_create_handle/io_destroy_handle
// "parent-owning handle" dedup rule.
type LocationDef struct {
	ID   LocationID
	Name string
}

type RegionDef struct {
	ID   uint64
	Name string
}

type CommDef struct {
	ID   uint32
	Name string
}

type IoParadigmDef struct {
	ID   uint8
	Name string
}

type IoFileDef struct {
	ID   IoFileID
	Name string
}

type IoHandleDef struct {
	ID           IoHandleID
	File         IoFileID
	HasParent    bool
	ParentHandle IoHandleID
}

// IoFilePropertyDef mirrors an OTF2 io_file_property record. graphbuilder
// uses the "File system" property, excluding "proc" and "sysfs", to build
// the graph's file-to-filesystem map.
type IoFilePropertyDef struct {
	File  IoFileID
	Name  string
	Value string
}

// ClockPropertiesDef mirrors the OTF2 clock_properties definition.
type ClockPropertiesDef struct {
	TicksPerSecond uint64
	StartTime      iograph.Timestamp
	Length         uint64
}

// Definitions is the full set of definitions a Reader delivers before any
// event callback.
type Definitions struct {
	Locations        []LocationDef
	Regions          []RegionDef
	Comms            []CommDef
	IoParadigms      []IoParadigmDef
	IoFiles          []IoFileDef
	IoHandles        []IoHandleDef
	IoFileProperties []IoFilePropertyDef
	Clock            ClockPropertiesDef
}

// Callbacks is the event-stream contract the graph builder implements:
// enter/leave region markers, I/O events, MPI synchronization events, and a
// terminal EventsDone call once every location's events have been
// delivered. The Reader guarantees per-location chronological order with
// matching begin/end and send/receive pairs.
type Callbacks interface {
	Enter(loc LocationID, ts iograph.Timestamp, region string) error
	Leave(loc LocationID, ts iograph.Timestamp, region string) error

	IoOperationBegin(loc LocationID, ts iograph.Timestamp, handle IoHandleID, mode iograph.OperationMode, reqSize, opRef uint64) error
	IoOperationComplete(loc LocationID, ts iograph.Timestamp, handle IoHandleID, respSize, opRef uint64) error
	IoCreateHandle(loc LocationID, ts iograph.Timestamp, handle IoHandleID, flags iograph.CreationFlags) error
	IoDestroyHandle(loc LocationID, ts iograph.Timestamp, handle IoHandleID) error
	IoDeleteFile(loc LocationID, ts iograph.Timestamp, file IoFileID) error
	IoDuplicateHandle(loc LocationID, ts iograph.Timestamp, oldHandle, newHandle IoHandleID) error
	IoSeek(loc LocationID, ts iograph.Timestamp, handle IoHandleID, offsetRequest int64, whence iograph.SeekWhence, offsetResult uint64) error

	MpiCollectiveBegin(loc LocationID, ts iograph.Timestamp) error
	// MpiCollectiveEnd reports the end of a collective. selfGroup is the
	// subset of ranks this location's sub-communicator actually involves (it
	// may be empty, meaning no real synchronization occurred); commGroup is
	// the full membership of the named communicator. graphbuilder emits no
	// vertex for an empty selfGroup and otherwise takes the members from
	// selfGroup, so it never reads commGroup.
	MpiCollectiveEnd(loc LocationID, ts iograph.Timestamp, comm uint32, hasRoot bool, root iograph.ProcessID, selfGroup, commGroup []iograph.ProcessID) error

	MpiSend(loc LocationID, ts iograph.Timestamp, receiver iograph.ProcessID, comm uint32, tag uint32, length uint64) error
	MpiIsend(loc LocationID, ts iograph.Timestamp, receiver iograph.ProcessID, comm uint32, tag uint32, length, requestID uint64) error
	MpiReceive(loc LocationID, ts iograph.Timestamp, sender iograph.ProcessID, comm uint32, tag uint32, length uint64) error
	MpiIreceive(loc LocationID, ts iograph.Timestamp, sender iograph.ProcessID, comm uint32, tag uint32, length, requestID uint64) error

	EventsDone() error
}

// Reader is the external collaborator that feeds trace content to the Graph
// Builder: definitions first, then a bulk, in-trace-order event pass.
type Reader interface {
	ReadDefinitions() (Definitions, error)
	ReadEvents(cb Callbacks) error
}

// Mapping resolves an OTF2 LocationID to the iograph.ProcessID (MPI rank)
// responsible for it, per _examples/original_source's
// include/rabbitxx/mapping.hpp terminology: "ranks" are the processes that
// ran the program, "locations" are what the trace recorded against, and the
// two may not coincide 1:1.
type Mapping interface {
	Rank(loc LocationID) iograph.ProcessID
}

// IdentityMapping is the common case where locations equal ranks 1:1.
type IdentityMapping struct{}

// Rank implements Mapping.
func (IdentityMapping) Rank(loc LocationID) iograph.ProcessID {
	return iograph.ProcessID(loc)
}

// RoundRobinMapping implements the round-robin strategy
// rabbitxx/mapping.hpp falls back to when the trace recorded more locations
// than ranks: location % ranks = the rank responsible for that location.
type RoundRobinMapping struct {
	numRanks int
}

// NewRoundRobinMapping returns a RoundRobinMapping over numRanks ranks.
// numRanks must be positive.
func NewRoundRobinMapping(numRanks int) *RoundRobinMapping {
	return &RoundRobinMapping{numRanks: numRanks}
}

// Rank implements Mapping.
func (m *RoundRobinMapping) Rank(loc LocationID) iograph.ProcessID {
	if m.numRanks <= 0 {
		return iograph.ProcessID(loc)
	}
	return iograph.ProcessID(uint64(loc) % uint64(m.numRanks))
}
