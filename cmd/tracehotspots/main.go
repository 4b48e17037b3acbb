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

// Command tracehotspots analyzes a tsc --generateTrace trace file and
// prints its hottest spans as a tree, optionally enriched with
// type-comparison context from an accompanying types file.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/amcasey/ts-analyze-trace/internal/position"
	"github.com/amcasey/ts-analyze-trace/internal/render"
	"github.com/amcasey/ts-analyze-trace/internal/spantree"
	"github.com/amcasey/ts-analyze-trace/internal/traceevent"
	"github.com/amcasey/ts-analyze-trace/internal/tslog"
	"github.com/amcasey/ts-analyze-trace/internal/typesfile"
	"github.com/amcasey/ts-analyze-trace/internal/typetree"
)

// Exit codes.
const (
	exitOK            = 0
	exitArgMisuse     = 1
	exitTraceMissing  = 2
	exitTypesMissing  = 3
	exitInternalError = 4
)

// typeCacheCapacity bounds the process-wide type-tree cache (see
// internal/typetree.NewCache); generous since one run analyzes one trace.
const typeCacheCapacity = 4096

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	flags := pflag.NewFlagSet("tracehotspots", pflag.ContinueOnError)
	jsonPath := flags.String("json", "", "write the final printable tree as JSON to this path")
	thresholdDuration := flags.Int64("thresholdDuration", 500000, "absolute duration (microseconds) at or above which a span is always promoted")
	minDuration := flags.Int64("minDuration", 100000, "floor (microseconds) below which closed spans are dropped entirely")
	minPercentage := flags.Float64("minPercentage", 0.6, "fraction of a parent's duration a child must reach to be promoted on dominance grounds")

	if err := flags.Parse(args); err != nil {
		tslog.Print(tslog.Error("%v", err))
		return exitArgMisuse
	}

	positional := flags.Args()
	if len(positional) < 1 || len(positional) > 2 {
		tslog.Print(tslog.Error("usage: tracehotspots [flags] trace_path [types_path]"))
		return exitArgMisuse
	}
	tracePath := positional[0]
	var typesPath string
	if len(positional) == 2 {
		typesPath = positional[1]
	}

	traceFile, err := os.Open(tracePath)
	if err != nil {
		tslog.Print(tslog.Error("opening trace file %q: %v", tracePath, err))
		return exitTraceMissing
	}
	defer traceFile.Close()

	var typesProvider typetree.Provider
	if typesPath != "" {
		typesFile, err := os.Open(typesPath)
		if err != nil {
			tslog.Print(tslog.Error("opening types file %q: %v", typesPath, err))
			return exitTypesMissing
		}
		defer typesFile.Close()
		typesProvider = typesfile.Read(typesFile)
	}

	root, err := analyze(traceFile, typesProvider, *thresholdDuration, *minDuration, *minPercentage)
	if err != nil {
		tslog.Print(tslog.Error("%v", err))
		return exitInternalError
	}

	nodes := render.Tree(root, mustResolvePositions(root))
	if len(nodes) == 0 {
		fmt.Println("No hot spots found")
		return exitOK
	}

	if *jsonPath != "" {
		if err := writeJSON(*jsonPath, nodes); err != nil {
			tslog.Print(tslog.Error("%v", err))
			return exitInternalError
		}
		return exitOK
	}
	printPlain(nodes, 0)
	return exitOK
}

func analyze(traceFile *os.File, typesProvider typetree.Provider, thresholdDuration, minDuration int64, minPercentage float64) (*spantree.Node, error) {
	pr, err := traceevent.Ingest(traceFile, minDuration)
	if err != nil {
		return nil, fmt.Errorf("ingesting trace: %w", err)
	}

	root := spantree.Build(pr.Spans, pr.Unclosed, pr.MinTime, pr.MaxTime, spantree.Params{
		ThresholdDuration: thresholdDuration,
		MinPercentage:     minPercentage,
	})

	if typesProvider != nil {
		cache, err := typetree.NewCache(typesProvider, typeCacheCapacity)
		if err != nil {
			return nil, fmt.Errorf("creating type cache: %w", err)
		}
		if err := typetree.Attach(context.Background(), root, cache); err != nil {
			return nil, fmt.Errorf("attaching type context: %w", err)
		}
	}

	return root, nil
}

func mustResolvePositions(root *spantree.Node) position.Maps {
	maps, err := position.Resolve(root, os.ReadFile)
	if err != nil {
		tslog.Print(tslog.Warning("resolving source positions: %v", err))
		return position.Maps{}
	}
	return maps
}

func writeJSON(path string, nodes []*render.Node) error {
	b, err := json.MarshalIndent(nodes, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding printable tree: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("writing %q: %w", path, err)
	}
	return nil
}

func printPlain(nodes []*render.Node, depth int) {
	for _, n := range nodes {
		fmt.Printf("%*s%s (%s): %s\n", depth*2, "", n.TerseMessage, n.Time, n.Message)
		printPlain(n.Children, depth+1)
	}
}
