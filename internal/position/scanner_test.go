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
	"errors"
	"testing"
)

func offsetReq(n int64) Raw  { return Raw{HasOffset: true, Offset: n} }
func lineColReq(l, c int) Raw { return Raw{Line: l, Column: c} }

func TestNormalizeSkipsLeadingCommentAndWhitespace(t *testing.T) {
	// A line comment followed by whitespace, then code.
	src := []byte("// hi\n  x")
	got := normalizeBytes(src, []Raw{offsetReq(0)})
	want := Position{Line: 2, Column: 3}
	if got[offsetReq(0).Key()] != want {
		t.Errorf("normalizeBytes(%q) = %v, want %v", src, got[offsetReq(0).Key()], want)
	}
}

func TestNormalizeTemplateInterpolationHoleIsNonTrivia(t *testing.T) {
	// "`a${b}c`" — b, braces, and string chars are all non-trivia; the
	// closing `}` of the hole must not be mistaken for a plain block close.
	src := []byte("`a${b}c`") // indices: ` a $ { b } c `
	reqs := []Raw{offsetReq(4), offsetReq(5)} // 'b' and '}'
	got := normalizeBytes(src, reqs)
	if got[offsetReq(4).Key()] != (Position{Line: 1, Column: 5}) {
		t.Errorf("position of 'b' = %v, want (1,5)", got[offsetReq(4).Key()])
	}
	if got[offsetReq(5).Key()] != (Position{Line: 1, Column: 6}) {
		t.Errorf("position of '}' = %v, want (1,6)", got[offsetReq(5).Key()])
	}
}

func TestNormalizeMultiLineCommentSkipped(t *testing.T) {
	src := []byte("/* a\nb */x")
	got := normalizeBytes(src, []Raw{offsetReq(0)})
	want := Position{Line: 2, Column: 5}
	if got[offsetReq(0).Key()] != want {
		t.Errorf("got %v, want %v", got[offsetReq(0).Key()], want)
	}
}

func TestNormalizeCommentOpenerStarIsNotCloser(t *testing.T) {
	// "/*/" opens a comment; the following '/' is ordinary comment body,
	// not a closer (a real closer needs "*/").
	src := []byte("/*/x*/y")
	got := normalizeBytes(src, []Raw{offsetReq(0)})
	want := Position{Line: 1, Column: 7}
	if got[offsetReq(0).Key()] != want {
		t.Errorf("got %v, want %v", got[offsetReq(0).Key()], want)
	}
}

func TestNormalizeCRLFAdvancesLineOnce(t *testing.T) {
	src := []byte("x\r\ny")
	got := normalizeBytes(src, []Raw{offsetReq(3)})
	want := Position{Line: 2, Column: 1}
	if got[offsetReq(3).Key()] != want {
		t.Errorf("got %v, want %v", got[offsetReq(3).Key()], want)
	}
}

func TestNormalizeUnterminatedStringResetsOnNewline(t *testing.T) {
	src := []byte("'unterminated\nx")
	got := normalizeBytes(src, []Raw{offsetReq(14)})
	want := Position{Line: 2, Column: 1}
	if got[offsetReq(14).Key()] != want {
		t.Errorf("got %v, want %v", got[offsetReq(14).Key()], want)
	}
}

func TestNormalizeRegexBodyIsNonTrivia(t *testing.T) {
	src := []byte("/ab[c/]d/e")
	// The whole "/ab[c/]d/" is a single regex literal: '/' inside the
	// character class doesn't close it, so the first real close is at the
	// final '/' before 'e'.
	got := normalizeBytes(src, []Raw{offsetReq(9)})
	want := Position{Line: 1, Column: 10}
	if got[offsetReq(9).Key()] != want {
		t.Errorf("got %v, want %v", got[offsetReq(9).Key()], want)
	}
}

func TestNormalizeWhitespaceInsideStringIsTrivia(t *testing.T) {
	// A request landing on whitespace inside a live string literal must
	// still advance past it, the same as whitespace in default code.
	src := []byte(`"  x"`)
	got := normalizeBytes(src, []Raw{offsetReq(1)})
	want := Position{Line: 1, Column: 4}
	if got[offsetReq(1).Key()] != want {
		t.Errorf("got %v, want %v", got[offsetReq(1).Key()], want)
	}
}

func TestNormalizeNegativeOffsetMatchesAbsoluteValue(t *testing.T) {
	src := []byte("// c\nx")
	pos := Raw{HasOffset: true, Offset: 5}
	end := Raw{HasOffset: true, Offset: -5}
	if pos.Key() != end.Key() {
		t.Fatalf("Key() differs for +5/-5: %q vs %q", pos.Key(), end.Key())
	}
	got := normalizeBytes(src, []Raw{end})
	want := Position{Line: 2, Column: 1}
	if got[end.Key()] != want {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestNormalizeLineColumnRequest(t *testing.T) {
	src := []byte("ab\ncd")
	got := normalizeBytes(src, []Raw{lineColReq(2, 1)})
	want := Position{Line: 2, Column: 1}
	if got[lineColReq(2, 1).Key()] != want {
		t.Errorf("got %v, want %v", got[lineColReq(2, 1).Key()], want)
	}
}

func TestNormalizeUnmatchedPositionBindsToEOF(t *testing.T) {
	src := []byte("x")
	got := normalizeBytes(src, []Raw{offsetReq(50)})
	want := Position{Line: 1, Column: 2}
	if got[offsetReq(50).Key()] != want {
		t.Errorf("got %v, want %v", got[offsetReq(50).Key()], want)
	}
}

func TestNormalizeUnreadableFileYieldsNilMapNoError(t *testing.T) {
	readFile := func(string) ([]byte, error) { return nil, errors.New("boom") }
	m, err := Normalize(readFile, "/missing.ts", []Raw{offsetReq(0)})
	if err != nil {
		t.Fatalf("Normalize() returned error %v, want nil", err)
	}
	if m != nil {
		t.Errorf("Normalize() = %v, want nil map", m)
	}
}
