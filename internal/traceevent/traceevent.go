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

// Package traceevent implements the Streaming Trace Ingester: it pulls
// Chrome-Trace-Event-Format events one at a time from a JSON array and
// reconstructs closed spans from paired Begin/End and complete events.
package traceevent

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/amcasey/ts-analyze-trace/internal/tslog"
)

// Phase is a trace event's phase designator.
type Phase string

// Recognized phases. Only Begin, End, and Complete contribute to spans.
const (
	PhaseBegin    Phase = "B"
	PhaseEnd      Phase = "E"
	PhaseComplete Phase = "X"
	PhaseMetadata Phase = "M"
	PhaseInstant  Phase = "i"
	PhaseInstant2 Phase = "I"
)

// Args is the opaque per-event arguments mapping. Values decode to string,
// json.Number, bool, nil, []any, or map[string]any, per encoding/json's
// normal `any` unmarshaling (with UseNumber in effect, numbers land as
// json.Number rather than float64).
type Args map[string]any

// Path returns args["path"], the source file associated with a
// checkSourceFile span.
func (a Args) Path() (string, bool) {
	v, ok := a["path"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Pos returns args["pos"] as an integer byte offset.
func (a Args) Pos() (int64, bool) {
	return a.intField("pos")
}

// End returns args["end"] as an integer byte offset.
func (a Args) End() (int64, bool) {
	return a.intField("end")
}

// SourceID returns args["sourceId"].
func (a Args) SourceID() (string, bool) {
	v, ok := a["sourceId"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// TargetID returns args["targetId"].
func (a Args) TargetID() (string, bool) {
	v, ok := a["targetId"]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func (a Args) intField(key string) (int64, bool) {
	v, ok := a[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	case float64:
		return int64(n), true
	default:
		return 0, false
	}
}

// Event is a single record lifted from the trace.
type Event struct {
	Phase  Phase
	TS     int64
	Dur    int64
	HasDur bool
	Name   string
	Cat    string
	Args   Args
}

// rawEvent mirrors the on-the-wire shape of a Chrome Trace Event Format
// event. ts and dur may be numbers or numeric strings, so both are declared
// as json.Number, which encoding/json fills from either form.
type rawEvent struct {
	Ph   string         `json:"ph"`
	TS   json.Number    `json:"ts"`
	Dur  *json.Number   `json:"dur"`
	Name string         `json:"name"`
	Cat  string         `json:"cat"`
	Args map[string]any `json:"args"`
}

func (re rawEvent) toEvent() (Event, error) {
	ts, err := re.TS.Int64()
	if err != nil {
		return Event{}, fmt.Errorf("event %q: invalid ts %q: %w", re.Name, re.TS, err)
	}
	ev := Event{
		Phase: Phase(re.Ph),
		TS:    ts,
		Name:  re.Name,
		Cat:   re.Cat,
		Args:  Args(re.Args),
	}
	if re.Dur != nil {
		dur, err := re.Dur.Int64()
		if err != nil {
			return Event{}, fmt.Errorf("event %q: invalid dur %q: %w", re.Name, *re.Dur, err)
		}
		ev.Dur = dur
		ev.HasDur = true
	}
	return ev, nil
}

// Span is a closed time interval [Start, End) lifted directly from the
// trace, prior to any tree construction.
type Span struct {
	// Begin is the originating event: the "B" event for a B/E pair, or the
	// sole "X" event for a complete event.
	Begin Event
	Start int64
	End   int64
}

func (s Span) duration() int64 {
	return s.End - s.Start
}

// ParseResult is the output of Ingest.
type ParseResult struct {
	// MinTime and MaxTime bound every span's start and end, respectively.
	MinTime, MaxTime int64
	// Spans holds every closed span whose duration met minDuration, in
	// arrival order.
	Spans []Span
	// Unclosed holds the Begin events still open at end of stream, in the
	// order they were opened.
	Unclosed []Event
}

// Ingest streams trace events from r, a single top-level JSON array of
// event objects, and returns the reconstructed ParseResult. Only events at
// the array's top level are considered; minDuration is a floor in
// microseconds below which closed spans are dropped from the output list
// (but still contribute to MinTime/MaxTime).
func Ingest(r io.Reader, minDuration int64) (*ParseResult, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("reading trace: expected top-level JSON array, got %v", tok)
	}

	pr := &ParseResult{}
	haveTime := false
	var stack []Event

	observe := func(start, end int64) {
		if !haveTime || start < pr.MinTime {
			pr.MinTime = start
		}
		if !haveTime || end > pr.MaxTime {
			pr.MaxTime = end
		}
		haveTime = true
	}

	for dec.More() {
		var re rawEvent
		if err := dec.Decode(&re); err != nil {
			return nil, fmt.Errorf("reading trace: %w", err)
		}
		ev, err := re.toEvent()
		if err != nil {
			return nil, err
		}
		switch ev.Phase {
		case PhaseMetadata, PhaseInstant, PhaseInstant2:
			// Metadata and instant events don't contribute to spans.
		case PhaseBegin:
			// A Begin event's own timestamp bounds the root interval even if
			// it is never closed (see the unclosed-at-EOF handling below).
			observe(ev.TS, ev.TS)
			stack = append(stack, ev)
		case PhaseEnd:
			observe(ev.TS, ev.TS)
			if len(stack) == 0 {
				tslog.Print(tslog.Warning("trace: unmatched End event %q at ts=%d; skipping", ev.Name, ev.TS))
				continue
			}
			begin := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			span := Span{Begin: begin, Start: begin.TS, End: ev.TS}
			if span.duration() >= minDuration {
				pr.Spans = append(pr.Spans, span)
			}
		case PhaseComplete:
			if !ev.HasDur {
				tslog.Print(tslog.Warning("trace: Complete event %q missing dur; treating as zero-duration", ev.Name))
			}
			span := Span{Begin: ev, Start: ev.TS, End: ev.TS + ev.Dur}
			observe(span.Start, span.End)
			if span.duration() >= minDuration {
				pr.Spans = append(pr.Spans, span)
			}
		default:
			tslog.Print(tslog.Warning("trace: unknown event phase %q for event %q; skipping", ev.Phase, ev.Name))
		}
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("reading trace: %w", err)
	}

	for _, begin := range stack {
		tslog.Print(tslog.Warning("trace: unclosed Begin event %q at ts=%d at end of stream", begin.Name, begin.TS))
	}
	pr.Unclosed = stack

	return pr, nil
}
