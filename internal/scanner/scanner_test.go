// Copyright 2022 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package scanner

import (
	"testing"

	"github.com/vx-lang/hazc/internal/token"
)

func kinds(t *testing.T, src string) []token.Kind {
	t.Helper()
	toks, err := Tokens(src, "test.hz")
	if err != nil {
		t.Fatalf("Tokens(%q) error: %v", src, err)
	}
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func TestScannerKeywordsBeatIdentifier(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []token.Kind
	}{
		{"if_keyword", "if", []token.Kind{token.IF, token.EOF}},
		{"identifier_with_keyword_prefix", "iffy", []token.Kind{token.IDENTIFIER, token.EOF}},
		{"proc_keyword", "proc", []token.Kind{token.PROC, token.EOF}},
		{"u8_keyword", "u8", []token.Kind{token.U8, token.EOF}},
		{"u8x_identifier", "u8x", []token.Kind{token.IDENTIFIER, token.EOF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kinds(t, tt.src)
			if !equalKinds(got, tt.want) {
				t.Errorf("kinds(%q) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestScannerOperatorsLongestAlternativeFirst(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []token.Kind
	}{
		{"arrow_not_minus_then_greater", "->", []token.Kind{token.ARROW, token.EOF}},
		{"geq_not_greater_then_assign", ">=", []token.Kind{token.GREATEREQUALS, token.EOF}},
		{"leq_not_lower_then_assign", "<=", []token.Kind{token.LOWEREQUALS, token.EOF}},
		{"eq_not_two_assigns", "==", []token.Kind{token.EQUALS, token.EOF}},
		{"neq_not_bang_then_assign", "!=", []token.Kind{token.NOTEQUALS, token.EOF}},
		{"ellipsis_not_three_dots", "...", []token.Kind{token.ELLIPSIS, token.EOF}},
		{"dot_then_dot", "..", []token.Kind{token.DOT, token.DOT, token.EOF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kinds(t, tt.src)
			if !equalKinds(got, tt.want) {
				t.Errorf("kinds(%q) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestScannerDirectivesAndRegisters(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []token.Kind
	}{
		{"define", "%define X 1", []token.Kind{token.DEFINE, token.IDENTIFIER, token.NUMBER, token.EOF}},
		{"include", `%include "a.hz"`, []token.Kind{token.INCLUDE, token.STRING, token.EOF}},
		{"register", "%rax", []token.Kind{token.REGISTER, token.EOF}},
		{"modulo", "a % b", []token.Kind{token.IDENTIFIER, token.PERCENT, token.IDENTIFIER, token.EOF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := kinds(t, tt.src)
			if !equalKinds(got, tt.want) {
				t.Errorf("kinds(%q) = %v, want %v", tt.src, got, tt.want)
			}
		})
	}
}

func TestScannerCommentsAndNewlinesAreSkipped(t *testing.T) {
	src := "var x u8; // trailing comment\nvar y u8;"
	toks, err := Tokens(src, "test.hz")
	if err != nil {
		t.Fatalf("Tokens error: %v", err)
	}
	// locate the second `var` and check its line advanced to 2
	count := 0
	for _, tok := range toks {
		if tok.Kind == token.VAR {
			count++
			if count == 2 && tok.Pos.Line != 2 {
				t.Errorf("second var at line %d, want 2", tok.Pos.Line)
			}
		}
	}
	if count != 2 {
		t.Fatalf("expected 2 var tokens, got %d", count)
	}
}

func TestScannerStringAndCharLiterals(t *testing.T) {
	toks := kinds(t, `"hello\n" 'a' '\n'`)
	want := []token.Kind{token.STRING, token.CHAR, token.CHAR, token.EOF}
	if !equalKinds(toks, want) {
		t.Errorf("kinds = %v, want %v", toks, want)
	}
}

func TestScannerUnexpectedCharacter(t *testing.T) {
	_, err := Tokens("var x = @;", "test.hz")
	if err == nil {
		t.Fatal("expected error for unexpected character '@'")
	}
}

func equalKinds(a, b []token.Kind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
