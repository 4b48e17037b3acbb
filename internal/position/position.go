// Copyright 2023 Google Inc.
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//     https://www.apache.org/licenses/LICENSE-2.0
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package position implements the Position Collector and the Source
// Scanner / Position Normalizer: it gathers raw byte-offset and
// (line, column) positions referenced by a span tree, then resolves each to
// the (line, column) of the nearest following non-trivia character in its
// source file.
package position

import "fmt"

// Position is a normalized (line, column) pair, both 1-based.
type Position struct {
	Line, Column int
}

// Raw is a single position request: either a byte offset into a source
// file, or a (line, column) pair. Offsets may be negative: a negative
// offset denotes the end of a preceding token rather than the start of a
// following one, but resolves identically to its absolute value.
type Raw struct {
	// HasOffset distinguishes an offset request (true) from a line/column
	// request (false).
	HasOffset    bool
	Offset       int64
	Line, Column int
}

// Key returns the raw position's canonical map key: the decimal string of
// the absolute offset, or "line,col" for a line/column pair.
func (r Raw) Key() string {
	if r.HasOffset {
		abs := r.Offset
		if abs < 0 {
			abs = -abs
		}
		return fmt.Sprintf("%d", abs)
	}
	return fmt.Sprintf("%d,%d", r.Line, r.Column)
}

// Map is a per-file mapping from a Raw position's canonical Key() to its
// Normalized position.
type Map map[string]Position
