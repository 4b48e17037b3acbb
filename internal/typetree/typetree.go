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

// Package typetree implements the optional Type-Tree Attacher: for leaf
// spans naming a structured type-relation check, it fetches and attaches a
// type-context sub-tree indexed by the relation's source and target type
// identifiers.
package typetree

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/simplelru"
	"golang.org/x/sync/singleflight"

	"github.com/amcasey/ts-analyze-trace/internal/spantree"
)

// structuredTypeRelatedTo is the event name that triggers attachment.
const structuredTypeRelatedTo = "structuredTypeRelatedTo"

// Tree is a recursive mapping whose keys are JSON-encoded type descriptors
// and whose values are sub-trees, consumed opaquely except for Location
// fields (see Locations, used by the Position Collector).
type Tree map[string]Tree

// Location names a source position referenced from within a Tree. The
// attacher never interprets these beyond passing them to the Position
// Collector (internal/position).
type Location struct {
	Path   string
	Line   int
	Column int
}

// Provider resolves a type id to its Tree, consulting an external types
// table. Implementations need not be safe for concurrent use; Cache
// provides that.
type Provider interface {
	Lookup(ctx context.Context, typeID string) (Tree, error)
}

// Cache wraps a Provider with a process-wide memoized, concurrency-safe
// cache: a fetch in flight for a given type id is shared by every
// concurrent caller requesting that same id (via singleflight), and its
// result is retained in an LRU (per §5, "The types cache is written-once
// by the first call and read thereafter") until more than the cache's
// capacity of distinct ids have been fetched (see NewCache). A mutex
// guards the LRU and serializes calls into the Provider.
type Cache struct {
	provider Provider
	mu       sync.Mutex
	lru      *lru.LRU
	group    singleflight.Group
}

// NewCache returns a Cache fronting provider. capacity bounds the number of
// distinct type ids retained; pass a generous value (e.g. the number of
// distinct ids expected in one run) since the cache has no other eviction
// policy.
func NewCache(provider Provider, capacity int) (*Cache, error) {
	l, err := lru.NewLRU(capacity, nil /* no onEvict policy */)
	if err != nil {
		return nil, fmt.Errorf("typetree: creating cache: %w", err)
	}
	return &Cache{provider: provider, lru: l}, nil
}

// Lookup returns the Tree for typeID, fetching and caching it on first
// request. Concurrent calls for the same typeID share a single fetch.
func (c *Cache) Lookup(ctx context.Context, typeID string) (Tree, error) {
	c.mu.Lock()
	v, ok := c.lru.Get(typeID)
	c.mu.Unlock()
	if ok {
		return v.(Tree), nil
	}
	v, err, _ := c.group.Do(typeID, func() (any, error) {
		c.mu.Lock()
		defer c.mu.Unlock()
		if v, ok := c.lru.Get(typeID); ok {
			return v.(Tree), nil
		}
		t, err := c.provider.Lookup(ctx, typeID)
		if err != nil {
			return nil, err
		}
		c.lru.Add(typeID, t)
		return t, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Tree), nil
}

// union returns the merge of a and b: every top-level key of both,
// preferring a recursive union on keys present in both.
func union(a, b Tree) Tree {
	if len(a) == 0 {
		return b
	}
	if len(b) == 0 {
		return a
	}
	out := make(Tree, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if existing, ok := out[k]; ok {
			out[k] = union(existing, v)
		} else {
			out[k] = v
		}
	}
	return out
}

// Attach walks tree, and for every leaf span named structuredTypeRelatedTo,
// fetches and attaches the union of the type-trees rooted at that span's
// sourceId and targetId args. A span with only one of the ids gets that
// id's tree; spans missing both ids, or whose lookups return empty trees,
// get an empty attachment.
func Attach(ctx context.Context, root *spantree.Node, cache *Cache) error {
	var walk func(n *spantree.Node) error
	walk = func(n *spantree.Node) error {
		if n.IsLeaf() && n.Begin.Name == structuredTypeRelatedTo {
			var merged Tree
			if sourceID, ok := n.Begin.Args.SourceID(); ok {
				t, err := cache.Lookup(ctx, sourceID)
				if err != nil {
					return fmt.Errorf("typetree: looking up sourceId %q: %w", sourceID, err)
				}
				merged = union(merged, t)
			}
			if targetID, ok := n.Begin.Args.TargetID(); ok {
				t, err := cache.Lookup(ctx, targetID)
				if err != nil {
					return fmt.Errorf("typetree: looking up targetId %q: %w", targetID, err)
				}
				merged = union(merged, t)
			}
			n.TypeTree = merged
		}
		for _, child := range n.Children {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root)
}

// descriptor is the shape of a type-tree key's JSON encoding that this
// package cares about: everything else in the descriptor is opaque and
// passed through unexamined.
type descriptor struct {
	Location *struct {
		Path   string `json:"path"`
		Line   int    `json:"line"`
		Column int    `json:"column"`
	} `json:"location"`
}

// parseLocation extracts the Location named in a type-tree key, if any. A
// key that isn't a JSON object, or that has no location field, yields
// (Location{}, false).
func parseLocation(key string) (Location, bool) {
	var d descriptor
	if err := json.Unmarshal([]byte(key), &d); err != nil || d.Location == nil {
		return Location{}, false
	}
	return Location{
		Path:   d.Location.Path,
		Line:   d.Location.Line,
		Column: d.Location.Column,
	}, true
}

// Locations recursively collects every Location found anywhere within t.
func Locations(t Tree) []Location {
	var out []Location
	var walk func(t Tree)
	walk = func(t Tree) {
		for key, child := range t {
			if loc, ok := parseLocation(key); ok {
				out = append(out, loc)
			}
			walk(child)
		}
	}
	walk(t)
	return out
}
