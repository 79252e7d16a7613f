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
package iograph

import "time"

// ClockProperties describes the trace's recording clock.
type ClockProperties struct {
	TicksPerSecond uint64
	StartTime      Timestamp
	Length         uint64
}

// Properties is the graph-wide properties record: aggregate timing figures,
// the trace's clock, and the file-to-filesystem mapping, all populated by
// the Graph Builder's post-pass.
type Properties struct {
	WallTime            time.Duration
	FileIOTime          time.Duration
	FileIOMetadataTime  time.Duration
	FirstEventTimestamp Timestamp
	LastEventTimestamp  Timestamp
	Clock               ClockProperties
	FileToFilesystem    map[string]string
	NumLocations        int
}
