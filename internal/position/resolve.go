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

package position

import "github.com/amcasey/ts-analyze-trace/internal/spantree"

// Maps is the per-file result of Resolve: source path to that file's
// Map from Raw.Key() to Position.
type Maps map[string]Map

// Lookup resolves the raw position r recorded against path, returning
// false if path was unreadable or r was never collected for it.
func (m Maps) Lookup(path string, r Raw) (Position, bool) {
	fileMap, ok := m[path]
	if !ok {
		return Position{}, false
	}
	p, ok := fileMap[r.Key()]
	return p, ok
}

// Resolve collects every raw position referenced by root (see Collect) and
// normalizes each one against its source file (see Normalize), reading
// files sequentially via readFile (typically os.ReadFile).
func Resolve(root *spantree.Node, readFile func(path string) ([]byte, error)) (Maps, error) {
	byFile := Collect(root)
	out := make(Maps, len(byFile))
	for path, requests := range byFile {
		m, err := Normalize(readFile, path, requests)
		if err != nil {
			return nil, err
		}
		if m != nil {
			out[path] = m
		}
	}
	return out, nil
}
