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
// Package testhelpers builds canned otf2stream.FakeReader scenarios shared
// across the module's tests and the CLI's demonstration mode, so a single
// definition of "two processes doing concurrent I/O around a collective"
// lives in one place instead of being re-typed per test file.
package testhelpers

import (
	"github.com/google/cioset/iograph"
	"github.com/google/cioset/otf2stream"
)

// TwoProcessCollectiveIO builds a trace with two processes, each doing one
// write before and one read after a shared MPI collective: the canonical
// "two concurrent I/O fragments joined by a Global sync" scenario used to
// exercise discovery, merge, and export end to end.
func TwoProcessCollectiveIO() *otf2stream.FakeReader {
	defs := otf2stream.Definitions{
		IoFiles: []otf2stream.IoFileDef{
			{ID: 1, Name: "/data/a"},
			{ID: 2, Name: "/data/b"},
		},
	}
	return otf2stream.NewFakeReader().WithDefinitions(defs).
		Enter(0, 10, "write").
		IoOperationBegin(0, 11, 1, iograph.OperationWrite, 4096, 0).
		IoOperationComplete(0, 15, 1, 0, 0).
		Leave(0, 16, "write").
		Enter(1, 10, "write").
		IoOperationBegin(1, 11, 2, iograph.OperationWrite, 2048, 0).
		IoOperationComplete(1, 15, 2, 0, 0).
		Leave(1, 16, "write").
		MpiCollectiveBegin(0, 20).
		MpiCollectiveBegin(1, 20).
		MpiCollectiveEnd(0, 30, 1, false, 0, []iograph.ProcessID{0, 1}, []iograph.ProcessID{0, 1}).
		MpiCollectiveEnd(1, 30, 1, false, 0, []iograph.ProcessID{0, 1}, []iograph.ProcessID{0, 1}).
		Enter(0, 40, "read").
		IoOperationBegin(0, 41, 1, iograph.OperationRead, 4096, 0).
		IoOperationComplete(0, 45, 1, 4096, 0).
		Leave(0, 46, "read").
		Enter(1, 40, "read").
		IoOperationBegin(1, 41, 2, iograph.OperationRead, 2048, 0).
		IoOperationComplete(1, 45, 2, 2048, 0).
		Leave(1, 46, "read")
}

// IdentityMapping returns the Mapping Build should use for scenarios built
// by this package: every FakeReader location id here is already a rank.
func IdentityMapping() otf2stream.Mapping {
	return otf2stream.IdentityMapping{}
}
