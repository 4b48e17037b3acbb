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

// Package render implements the printable-tree renderer: it consumes an
// annotated span tree plus a resolved position map and emits a fixed JSON
// shape (type, message, terseMessage, time, optional start/end,
// children). Full ASCII-art tree pretty-printing is out of scope; Node's
// JSON tags are this package's entire printable contract.
package render

import (
	"fmt"
	"sort"

	"github.com/amcasey/ts-analyze-trace/internal/position"
	"github.com/amcasey/ts-analyze-trace/internal/spantree"
	"github.com/amcasey/ts-analyze-trace/internal/traceevent"
)

// Recognized event names.
const (
	kindCheckSourceFile       = "checkSourceFile"
	kindStructuredTypeRelated = "structuredTypeRelatedTo"
	kindGetVariancesWorker    = "getVariancesWorker"
)

// FilePos names a source location in the printable tree: a file path and
// a raw byte offset (not the normalized position — consumers wanting a
// human location resolve it via the position map keyed the same way).
type FilePos struct {
	File   string `json:"file"`
	Offset int64  `json:"offset"`
}

// Node is one node of the printable tree.
type Node struct {
	Type         string   `json:"type"`
	Message      string   `json:"message"`
	TerseMessage string   `json:"terseMessage"`
	Time         string   `json:"time"`
	Start        *FilePos `json:"start,omitempty"`
	End          *FilePos `json:"end,omitempty"`
	Children     []*Node  `json:"children,omitempty"`
}

// Tree renders root into its printable form, given the resolved position
// map. Every promoted span already cleared the span-tree builder's
// duration-or-dominance bar, so every one of them appears somewhere in
// the output: a span whose event doesn't match a specially-handled kind
// or the check category still renders, generically, under its own event
// name.
func Tree(root *spantree.Node, positions position.Maps) []*Node {
	out := renderChildren(root, "", positions)
	nodes := make([]*Node, len(out))
	for i, r := range out {
		nodes[i] = r.node
	}
	return nodes
}

// rendered pairs a Node with the span duration (microseconds) it was
// built from, so siblings promoted up from an elided ancestor still sort
// correctly against their new siblings.
type rendered struct {
	node     *Node
	duration int64
}

// renderChildren renders every child of n (recursively promoting the
// children of any elided child), sorted by descending span duration.
func renderChildren(n *spantree.Node, file string, positions position.Maps) []rendered {
	if path, ok := n.Begin.Args.Path(); n.Begin.Name == kindCheckSourceFile && ok {
		file = path
	}
	var out []rendered
	for _, child := range n.Children {
		node, fileForChildren := describe(child, file, positions)
		if node == nil {
			out = append(out, renderChildren(child, fileForChildren, positions)...)
			continue
		}
		grandchildren := renderChildren(child, fileForChildren, positions)
		node.Children = make([]*Node, len(grandchildren))
		for i, g := range grandchildren {
			node.Children[i] = g.node
		}
		out = append(out, rendered{node: node, duration: child.End - child.Start})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].duration > out[j].duration })
	return out
}

// describe classifies n and returns its rendered Node (nil only if n has
// no event name, which should not occur for a promoted, non-root span),
// plus the file context its children should see.
func describe(n *spantree.Node, file string, positions position.Maps) (*Node, string) {
	ev := n.Begin
	ms := msFromMicros(n.End - n.Start)

	switch {
	case ev.Name == kindCheckSourceFile:
		path, _ := ev.Args.Path()
		return &Node{
			Type:         kindCheckSourceFile,
			Message:      fmt.Sprintf("Check source file %s", path),
			TerseMessage: path,
			Time:         ms,
		}, path

	case ev.Name == kindStructuredTypeRelated:
		src, _ := ev.Args.SourceID()
		tgt, _ := ev.Args.TargetID()
		return &Node{
			Type:         kindStructuredTypeRelated,
			Message:      fmt.Sprintf("Compare types %s and %s", src, tgt),
			TerseMessage: "structured type comparison",
			Time:         ms,
		}, file

	case ev.Name == kindGetVariancesWorker:
		return &Node{
			Type:         kindGetVariancesWorker,
			Message:      "Compute type parameter variances",
			TerseMessage: "variances",
			Time:         ms,
		}, file

	case ev.Cat == "check":
		start, end := positionRange(ev, file)
		return &Node{
			Type:         ev.Name,
			Message:      fmt.Sprintf("%s: %s", ev.Name, rangeMessage(ev, file, positions)),
			TerseMessage: ev.Name,
			Time:         ms,
			Start:        start,
			End:          end,
		}, file

	case ev.Name != "":
		return &Node{
			Type:         ev.Name,
			Message:      ev.Name,
			TerseMessage: ev.Name,
			Time:         ms,
		}, file

	default:
		return nil, file
	}
}

func positionRange(ev traceevent.Event, file string) (*FilePos, *FilePos) {
	var start, end *FilePos
	if pos, ok := ev.Args.Pos(); ok {
		start = &FilePos{File: file, Offset: pos}
	}
	if e, ok := ev.Args.End(); ok {
		end = &FilePos{File: file, Offset: e}
	}
	return start, end
}

// rangeMessage renders the resolved (line, column) range for a
// check-category span's args.pos/args.end. A position missing from the
// map (unreadable source file, or no such arg) falls back to "?".
func rangeMessage(ev traceevent.Event, file string, positions position.Maps) string {
	start, end := "?", "?"
	if pos, ok := ev.Args.Pos(); ok {
		if p, ok := positions.Lookup(file, position.Raw{HasOffset: true, Offset: pos}); ok {
			start = fmt.Sprintf("%d:%d", p.Line, p.Column)
		}
	}
	if e, ok := ev.Args.End(); ok {
		if p, ok := positions.Lookup(file, position.Raw{HasOffset: true, Offset: -e}); ok {
			end = fmt.Sprintf("%d:%d", p.Line, p.Column)
		}
	}
	return fmt.Sprintf("[%s, %s)", start, end)
}

func msFromMicros(micros int64) string {
	return fmt.Sprintf("%dms", (micros+500)/1000)
}
