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

package preprocessor

import (
	"fmt"
	"testing"

	"github.com/vx-lang/hazc/internal/scanner"
	"github.com/vx-lang/hazc/internal/token"
)

func expand(t *testing.T, src string, files map[string]string) []token.Token {
	t.Helper()
	toks, err := scanner.Tokens(src, "main.hz")
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	read := func(path string) (string, error) {
		if content, ok := files[path]; ok {
			return content, nil
		}
		return "", fmt.Errorf("not found: %s", path)
	}
	p := New([]string{""}, read)
	out, err := p.Process(toks)
	if err != nil {
		t.Fatalf("preprocess error: %v", err)
	}
	return out
}

func lexemes(toks []token.Token) []string {
	var out []string
	for _, tok := range toks {
		if tok.Kind == token.EOF {
			continue
		}
		out = append(out, tok.Lexeme)
	}
	return out
}

func TestDefineObjectLikeMacro(t *testing.T) {
	out := expand(t, "%define SIZE 10\nvar x u8[SIZE];", nil)
	got := lexemes(out)
	want := []string{"var", "x", "u8", "[", "10", "]", ";"}
	if !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDefineFunctionLikeMacro(t *testing.T) {
	out := expand(t, "%define ADD(a,b) [a + b]\nvar x = ADD(1,2);", nil)
	got := lexemes(out)
	want := []string{"var", "x", "=", "1", "+", "2", ";"}
	if !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDefineNestedMacroExpansion(t *testing.T) {
	out := expand(t, "%define A 1\n%define B [A + A]\nvar x = B;", nil)
	got := lexemes(out)
	want := []string{"var", "x", "=", "1", "+", "1", ";"}
	if !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestIncludeSplicesFileOnce(t *testing.T) {
	files := map[string]string{
		"a.hz": "%define FOO 1\n",
	}
	out := expand(t, `%include "a.hz"
%include "a.hz"
var x = FOO;`, files)
	got := lexemes(out)
	want := []string{"var", "x", "=", "1", ";"}
	if !equalStrings(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestIncludeMissingFileErrors(t *testing.T) {
	toks, err := scanner.Tokens(`%include "missing.hz"`, "main.hz")
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	read := func(path string) (string, error) { return "", fmt.Errorf("nope") }
	p := New([]string{""}, read)
	if _, err := p.Process(toks); err == nil {
		t.Fatal("expected error for missing include")
	}
}

func TestMacroTooManyArgumentsErrors(t *testing.T) {
	toks, err := scanner.Tokens("%define ADD(a) a\nADD(1,2);", "main.hz")
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	p := New(nil, func(string) (string, error) { return "", fmt.Errorf("n/a") })
	if _, err := p.Process(toks); err == nil {
		t.Fatal("expected error for too many macro arguments")
	}
}

func equalStrings(a, b []string) bool {
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
