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

// Package spantree builds a pruned tree of "interesting" spans from a flat,
// start-ordered list of trace spans. A span is promoted into the tree, as a
// child of the innermost still-open ancestor, if it either ran for at least
// a fixed threshold duration or consumed a large-enough fraction of its
// parent's duration; every other span is discarded.
//
// The tree root is a synthetic span covering [minTime, maxTime]: the
// earliest start and latest end observed across all input spans. A Node's
// Children are always contained within the Node's own [Start, End)
// interval, and siblings never overlap (though they may touch).
package spantree

import (
	"sort"

	"github.com/amcasey/ts-analyze-trace/internal/traceevent"
)

// Node is a span promoted into the tree, or the synthetic root.
type Node struct {
	// Begin is the originating event. Zero for the synthetic root.
	Begin traceevent.Event
	Start int64
	End   int64

	// Children are ordered by start time.
	Children []*Node

	// TypeTree, if non-nil, is the type-context sub-tree attached by the
	// optional Type-Tree Attacher (internal/typetree), keyed on the
	// structuredTypeRelatedTo event's sourceId/targetId.
	TypeTree any
}

func (n *Node) duration() int64 {
	return n.End - n.Start
}

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Params bundles the tunable thresholds governing promotion.
type Params struct {
	// ThresholdDuration is the absolute-duration floor (microseconds) at or
	// above which a span is always promoted.
	ThresholdDuration int64
	// MinPercentage is the fraction (0, 1] of a parent's duration a child
	// must reach to be promoted on dominance grounds alone.
	MinPercentage float64
}

func (p Params) promote(duration, parentDuration int64) bool {
	if duration <= 0 {
		return false
	}
	if duration >= p.ThresholdDuration {
		return true
	}
	if parentDuration <= 0 {
		return false
	}
	return float64(duration) >= p.MinPercentage*float64(parentDuration)
}

// Build constructs the pruned span tree. spans need not be pre-sorted;
// unclosed is the set of Begin events still open at end of stream, which
// are synthesized into spans ending at maxTime before tree construction, as
// specified.
func Build(spans []traceevent.Span, unclosed []traceevent.Event, minTime, maxTime int64, params Params) *Node {
	all := make([]traceevent.Span, 0, len(spans)+len(unclosed))
	all = append(all, spans...)
	for _, begin := range unclosed {
		all = append(all, traceevent.Span{Begin: begin, Start: begin.TS, End: maxTime})
	}

	// Stable sort on Start preserves arrival order for spans sharing a
	// timestamp, matching the trace's own arrival order for "B" events at
	// the same microsecond.
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Start < all[j].Start
	})

	root := &Node{Start: minTime, End: maxTime}
	// ancestors is the spine of currently-open promoted ancestors, root
	// first. Because only promoted spans are ever pushed, the top of this
	// stack is always the last promoted ancestor, which is what dominance
	// is computed against.
	ancestors := []*Node{root}

	for _, span := range all {
		for len(ancestors) > 1 && ancestors[len(ancestors)-1].End <= span.Start {
			ancestors = ancestors[:len(ancestors)-1]
		}
		parent := ancestors[len(ancestors)-1]

		duration := span.End - span.Start
		parentDuration := parent.duration()
		if !params.promote(duration, parentDuration) {
			continue
		}

		node := &Node{
			Begin: span.Begin,
			Start: span.Start,
			End:   span.End,
		}
		parent.Children = append(parent.Children, node)
		ancestors = append(ancestors, node)
	}

	return root
}
