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

// Package typesfile reads the auxiliary "types" JSON emitted alongside a
// tsc --generateTrace trace and exposes it as a typetree.Provider. This
// reader models only the fields the attacher (internal/typetree) needs,
// not a full description of tsc's types.json.
package typesfile

import (
	"context"
	"encoding/json"
	"io"

	"github.com/amcasey/ts-analyze-trace/internal/tslog"
	"github.com/amcasey/ts-analyze-trace/internal/typetree"
)

// record is one entry of the types array: a type descriptor, its optional
// source location, and its nested component types (e.g. a union's
// constituents, or an object type's properties).
type record struct {
	ID       string          `json:"id"`
	Display  string          `json:"display"`
	Location *recordLocation `json:"location"`
	Children []record        `json:"children"`
}

type recordLocation struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// descriptorKey renders the JSON-encoded type descriptor used as this
// record's key in the resulting typetree.Tree, matching the shape
// typetree.Locations expects to parse back out.
func (r record) descriptorKey() string {
	desc := struct {
		Name     string          `json:"name"`
		Location *recordLocation `json:"location,omitempty"`
	}{Name: r.Display, Location: r.Location}
	b, err := json.Marshal(desc)
	if err != nil {
		// Marshaling a struct of strings/ints never fails; this is
		// unreachable in practice.
		tslog.Panic("typesfile: marshaling descriptor for %q: %v", r.ID, err)
	}
	return string(b)
}

func (r record) tree() typetree.Tree {
	if len(r.Children) == 0 {
		return typetree.Tree{r.descriptorKey(): nil}
	}
	children := make(typetree.Tree, len(r.Children))
	for _, c := range r.Children {
		children[c.descriptorKey()] = c.tree()
	}
	return typetree.Tree{r.descriptorKey(): children}
}

// Provider is a typetree.Provider backed by a fully-parsed types array.
type Provider struct {
	byID map[string]typetree.Tree
}

// Read parses a types JSON array from r and returns a Provider over it. A
// malformed types file only warns and yields an empty, error-free
// Provider rather than failing the whole run.
func Read(r io.Reader) *Provider {
	var records []record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		tslog.Print(tslog.Warning("typesfile: malformed types file, ignoring: %v", err))
		return &Provider{byID: map[string]typetree.Tree{}}
	}
	byID := make(map[string]typetree.Tree, len(records))
	for _, rec := range records {
		byID[rec.ID] = rec.tree()
	}
	return &Provider{byID: byID}
}

// Lookup implements typetree.Provider.
func (p *Provider) Lookup(_ context.Context, typeID string) (typetree.Tree, error) {
	t, ok := p.byID[typeID]
	if !ok {
		return typetree.Tree{}, nil
	}
	return t, nil
}
