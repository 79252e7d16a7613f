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
	"time"

	"github.com/golang/protobuf/proto"
	"github.com/golang/protobuf/ptypes"
	tspb "github.com/golang/protobuf/ptypes/timestamp"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ExperimentManifest is the binary-proto counterpart of summary.csv: the
// same experiment-level facts, serialized for programmatic consumers that
// would rather decode a proto than parse a CSV column layout, mirroring
// fs_storage.go's choice of a proto-on-disk representation over one of the
// many struct-to-JSON options.
type ExperimentManifest struct {
	TracePath    string          `protobuf:"bytes,1,opt,name=trace_path,json=tracePath,proto3" json:"trace_path,omitempty"`
	NumVertices  int64           `protobuf:"varint,2,opt,name=num_vertices,json=numVertices,proto3" json:"num_vertices,omitempty"`
	NumLocations int64           `protobuf:"varint,3,opt,name=num_locations,json=numLocations,proto3" json:"num_locations,omitempty"`
	NumCioSets   int64           `protobuf:"varint,4,opt,name=num_cio_sets,json=numCioSets,proto3" json:"num_cio_sets,omitempty"`
	NumProcesses int64           `protobuf:"varint,5,opt,name=num_processes,json=numProcesses,proto3" json:"num_processes,omitempty"`
	BuildTimeNs  int64           `protobuf:"varint,6,opt,name=build_time_ns,json=buildTimeNs,proto3" json:"build_time_ns,omitempty"`
	CreatedAt    *tspb.Timestamp `protobuf:"bytes,7,opt,name=created_at,json=createdAt,proto3" json:"created_at,omitempty"`
}

func (m *ExperimentManifest) Reset()         { *m = ExperimentManifest{} }
func (m *ExperimentManifest) String() string { return proto.CompactTextString(m) }
func (*ExperimentManifest) ProtoMessage()    {}

// buildManifest converts res into its proto form, stamping now as the
// manifest's creation time the way storage_proto_converters.go stamps
// CreationTime via ptypes.TimestampProto.
func buildManifest(res *Result, now time.Time) (*ExperimentManifest, error) {
	createdAt, err := ptypes.TimestampProto(now)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "cioexport: manifest timestamp: %v", err)
	}
	props := res.Graph.Properties()
	return &ExperimentManifest{
		TracePath:    res.TracePath,
		NumVertices:  int64(res.Graph.NumVertices()),
		NumLocations: int64(props.NumLocations),
		NumCioSets:   int64(len(res.CioSets)),
		NumProcesses: int64(len(res.Graph.AllProcesses())),
		BuildTimeNs:  res.BuildTime.Nanoseconds(),
		CreatedAt:    createdAt,
	}, nil
}

// writeManifest serializes res as manifest.binpb alongside summary.csv,
// mirroring fs_storage.go's proto.Marshal/WriteFile persistence of a
// collection.
func writeManifest(base string, res *Result, now time.Time) error {
	m, err := buildManifest(res, now)
	if err != nil {
		return err
	}
	data, err := proto.Marshal(m)
	if err != nil {
		return status.Errorf(codes.Internal, "cioexport: marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(base, "manifest.binpb"), data, 0o644); err != nil {
		return status.Errorf(codes.Internal, "cioexport: write manifest.binpb: %v", err)
	}
	return nil
}
