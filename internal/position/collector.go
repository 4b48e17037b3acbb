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

import (
	"github.com/amcasey/ts-analyze-trace/internal/spantree"
	"github.com/amcasey/ts-analyze-trace/internal/typetree"
)

const (
	checkSourceFile = "checkSourceFile"
	checkCategory   = "check"
)

// Collect walks root once, maintaining a "current file" context, and
// returns every raw position that needs normalization, grouped by source
// path.
func Collect(root *spantree.Node) map[string][]Raw {
	out := map[string][]Raw{}
	var walk func(n *spantree.Node, file string, haveFile bool)
	walk = func(n *spantree.Node, file string, haveFile bool) {
		if path, ok := n.Begin.Args.Path(); n.Begin.Name == checkSourceFile && ok {
			file, haveFile = path, true
		}
		if haveFile && n.Begin.Cat == checkCategory {
			if pos, ok := n.Begin.Args.Pos(); ok {
				out[file] = append(out[file], Raw{HasOffset: true, Offset: pos})
			}
			if end, ok := n.Begin.Args.End(); ok {
				out[file] = append(out[file], Raw{HasOffset: true, Offset: -end})
			}
		}
		if t, ok := n.TypeTree.(typetree.Tree); ok {
			for _, loc := range typetree.Locations(t) {
				out[loc.Path] = append(out[loc.Path], Raw{Line: loc.Line, Column: loc.Column})
			}
		}
		for _, child := range n.Children {
			walk(child, file, haveFile)
		}
	}
	walk(root, "", false)
	return out
}
