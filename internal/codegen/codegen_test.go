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

package codegen

import (
	"strings"
	"testing"

	"github.com/vx-lang/hazc/internal/parser"
	"github.com/vx-lang/hazc/internal/scanner"
)

func generate(t *testing.T, src string) string {
	t.Helper()
	toks, err := scanner.Tokens(src, "test.hz")
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}
	decls, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	asm, err := New().Generate(decls)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return asm
}

func generateErr(t *testing.T, src string) error {
	t.Helper()
	toks, err := scanner.Tokens(src, "test.hz")
	if err != nil {
		t.Fatalf("Tokens: %v", err)
	}
	decls, err := parser.Parse(toks)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	_, err = New().Generate(decls)
	return err
}

func TestGenerateEmitsCalledProcOnly(t *testing.T) {
	asm := generate(t, `
		proc used() -> u64 { return 1; }
		proc unused() -> u64 { return 2; }
		proc main() -> u64 { return used(); }
	`)
	if !strings.Contains(asm, "used:") {
		t.Errorf("expected called procedure 'used' to be emitted:\n%s", asm)
	}
	if !strings.Contains(asm, "main:") {
		t.Errorf("expected 'main' to be emitted:\n%s", asm)
	}
	if strings.Contains(asm, "unused:") {
		t.Errorf("expected uncalled procedure 'unused' to be pruned:\n%s", asm)
	}
}

func TestGenerateForwardCallResolves(t *testing.T) {
	asm := generate(t, `
		proc helper() -> u64;
		proc main() -> u64 { return helper(); }
		proc helper() -> u64 { return 7; }
	`)
	if !strings.Contains(asm, "helper:") {
		t.Errorf("expected forward-called procedure to be emitted:\n%s", asm)
	}
	if strings.Count(asm, "helper:") != 1 {
		t.Errorf("expected exactly one 'helper:' label, got:\n%s", asm)
	}
}

func TestGenerateUninitializedGlobalInBSS(t *testing.T) {
	// Top-level `var` declarations never carry an initializer — they
	// are always BSS-style, matching the reference grammar exactly.
	asm := generate(t, `
		var counter: u64;
		proc main() -> u64 { return counter; }
	`)
	if !strings.Contains(asm, "counter:") {
		t.Errorf("expected global 'counter' in output:\n%s", asm)
	}
}

func TestGenerateStructFieldAccess(t *testing.T) {
	asm := generate(t, `
		struct Point { x: u64; y: u64; }
		proc sum(p: Point*) -> u64 {
			return p.x + p.y;
		}
		proc main() -> u64 {
			var pt: Point;
			return sum(&pt);
		}
	`)
	if !strings.Contains(asm, "sum:") {
		t.Errorf("expected 'sum' to be emitted:\n%s", asm)
	}
}

func TestGenerateClassMethodDispatch(t *testing.T) {
	asm := generate(t, `
		class Counter {
			var n: u64;
			Counter() { this.n = 0; }
			proc Bump() -> u64 { this.n = this.n + 1; return this.n; }
		}
		proc main() -> u64 {
			var c: Counter();
			return c.Bump();
		}
	`)
	if !strings.Contains(asm, "__Counter_proc_Bump:") {
		t.Errorf("expected mangled method label in output:\n%s", asm)
	}
	if !strings.Contains(asm, "__Counter_init_:") {
		t.Errorf("expected mangled initializer label in output:\n%s", asm)
	}
}

func TestGenerateEnumDotAccessIsConstant(t *testing.T) {
	asm := generate(t, `
		enum Color { Red, Green, Blue }
		proc main() -> u64 { return Color.Green; }
	`)
	if !strings.Contains(asm, "push 1") {
		t.Errorf("expected enum member Green (value 1) folded to a literal push:\n%s", asm)
	}
}

func TestGenerateUndefinedIdentifierErrors(t *testing.T) {
	err := generateErr(t, `proc main() -> u64 { return missing; }`)
	if err == nil {
		t.Fatal("expected an error for an undefined identifier")
	}
}

func TestGenerateArgumentCountMismatchErrors(t *testing.T) {
	err := generateErr(t, `
		proc takesOne(x: u64) -> u64 { return x; }
		proc main() -> u64 { return takesOne(1, 2); }
	`)
	if err == nil {
		t.Fatal("expected an error for a wrong argument count")
	}
}

func TestGenerateBreakOutsideLoopErrors(t *testing.T) {
	err := generateErr(t, `proc main() -> u64 { break; return 0; }`)
	if err == nil {
		t.Fatal("expected an error for break outside a while loop")
	}
}

func TestGenerateWhileAndShortCircuit(t *testing.T) {
	asm := generate(t, `
		proc main() -> u64 {
			var i: u64 = 0;
			while (i < 10 and i != 5) {
				i = i + 1;
			}
			return i;
		}
	`)
	if !strings.Contains(asm, "main:") {
		t.Errorf("expected 'main' to be emitted:\n%s", asm)
	}
	if !strings.Contains(asm, "jz") {
		t.Errorf("expected a conditional jump for the while loop:\n%s", asm)
	}
}
