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

package render

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/amcasey/ts-analyze-trace/internal/position"
	"github.com/amcasey/ts-analyze-trace/internal/spantree"
	"github.com/amcasey/ts-analyze-trace/internal/traceevent"
)

func num(n int64) json.Number { return json.Number(fmt.Sprintf("%d", n)) }

func TestTreeRendersCheckSourceFile(t *testing.T) {
	file := &spantree.Node{
		Begin: traceevent.Event{Name: "checkSourceFile", Args: traceevent.Args{"path": "/a.ts"}},
		Start: 0, End: 1000000,
	}
	root := &spantree.Node{Children: []*spantree.Node{file}}

	nodes := Tree(root, nil)
	if len(nodes) != 1 {
		t.Fatalf("Tree() = %d nodes, want 1", len(nodes))
	}
	got := nodes[0]
	if got.Type != "checkSourceFile" || got.TerseMessage != "/a.ts" || got.Time != "1000ms" {
		t.Errorf("got %+v", got)
	}
}

func TestTreeRendersUnrecognizedKindGenerically(t *testing.T) {
	// Boundary case: a promoted span whose name matches none of the
	// specially-handled kinds and isn't check-category still renders,
	// under its own event name, rather than being dropped.
	grandchild := &spantree.Node{
		Begin: traceevent.Event{Name: "getVariancesWorker"},
		Start: 0, End: 500000,
	}
	unrecognized := &spantree.Node{
		Begin:    traceevent.Event{Name: "root"},
		Start:    0, End: 900000,
		Children: []*spantree.Node{grandchild},
	}
	root := &spantree.Node{Children: []*spantree.Node{unrecognized}}

	nodes := Tree(root, nil)
	if len(nodes) != 1 {
		t.Fatalf("Tree() = %d nodes, want 1", len(nodes))
	}
	if nodes[0].Type != "root" || nodes[0].Time != "900ms" {
		t.Errorf("got %+v, want Type=root Time=900ms", nodes[0])
	}
	if len(nodes[0].Children) != 1 || nodes[0].Children[0].Type != "getVariancesWorker" {
		t.Errorf("children = %+v, want [getVariancesWorker]", nodes[0].Children)
	}
}

func TestTreeElidesNamelessSpanButKeepsChildren(t *testing.T) {
	grandchild := &spantree.Node{
		Begin: traceevent.Event{Name: "getVariancesWorker"},
		Start: 0, End: 500000,
	}
	nameless := &spantree.Node{
		Start:    0, End: 900000,
		Children: []*spantree.Node{grandchild},
	}
	root := &spantree.Node{Children: []*spantree.Node{nameless}}

	nodes := Tree(root, nil)
	if len(nodes) != 1 {
		t.Fatalf("Tree() = %d nodes, want 1 (grandchild promoted)", len(nodes))
	}
	if nodes[0].Type != "getVariancesWorker" {
		t.Errorf("promoted node = %+v, want getVariancesWorker", nodes[0])
	}
}

func TestTreeChildrenSortedByDescendingDuration(t *testing.T) {
	short := &spantree.Node{Begin: traceevent.Event{Name: "getVariancesWorker"}, Start: 0, End: 100000}
	long := &spantree.Node{Begin: traceevent.Event{Name: "getVariancesWorker"}, Start: 0, End: 800000}
	root := &spantree.Node{Children: []*spantree.Node{short, long}}

	nodes := Tree(root, nil)
	if len(nodes) != 2 || nodes[0].Time != "800ms" || nodes[1].Time != "100ms" {
		t.Errorf("Tree() order = %v, want [800ms, 100ms]", []string{nodes[0].Time, nodes[1].Time})
	}
}

func TestTreeCheckCategoryIncludesResolvedRange(t *testing.T) {
	src := &spantree.Node{
		Begin: traceevent.Event{
			Name: "checkExpression",
			Cat:  "check",
			Args: traceevent.Args{"pos": num(0), "end": num(3)},
		},
		Start: 0, End: 200000,
	}
	file := &spantree.Node{
		Begin:    traceevent.Event{Name: "checkSourceFile", Args: traceevent.Args{"path": "/a.ts"}},
		Start:    0, End: 300000,
		Children: []*spantree.Node{src},
	}
	root := &spantree.Node{Children: []*spantree.Node{file}}

	positions := position.Maps{
		"/a.ts": position.Map{
			(position.Raw{HasOffset: true, Offset: 0}).Key(): {Line: 1, Column: 1},
			(position.Raw{HasOffset: true, Offset: 3}).Key(): {Line: 1, Column: 4},
		},
	}

	nodes := Tree(root, positions)
	if len(nodes) != 1 || len(nodes[0].Children) != 1 {
		t.Fatalf("Tree() = %+v, want one checkSourceFile node with one child", nodes)
	}
	child := nodes[0].Children[0]
	wantMsg := "checkExpression: [1:1, 1:4)"
	if child.Message != wantMsg {
		t.Errorf("Message = %q, want %q", child.Message, wantMsg)
	}
	if child.Start == nil || child.Start.Offset != 0 || child.Start.File != "/a.ts" {
		t.Errorf("Start = %+v, want {/a.ts 0}", child.Start)
	}
	if child.End == nil || child.End.Offset != 3 {
		t.Errorf("End = %+v, want offset 3", child.End)
	}
}

func TestTreeEmptyRootYieldsNoNodes(t *testing.T) {
	root := &spantree.Node{}
	if nodes := Tree(root, nil); len(nodes) != 0 {
		t.Errorf("Tree(empty) = %v, want none", nodes)
	}
}
