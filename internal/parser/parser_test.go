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

package parser

import (
	"testing"

	"github.com/vx-lang/hazc/internal/ast"
	"github.com/vx-lang/hazc/internal/scanner"
	"github.com/vx-lang/hazc/internal/types"
)

func parseSrc(t *testing.T, src string) []ast.Decl {
	t.Helper()
	toks, err := scanner.Tokens(src, "test.hz")
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	decls, err := Parse(toks)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return decls
}

func parseSrcErr(t *testing.T, src string) error {
	t.Helper()
	toks, err := scanner.Tokens(src, "test.hz")
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	_, err = Parse(toks)
	return err
}

func TestParseGlobalVarDecl(t *testing.T) {
	decls := parseSrc(t, "var counter: u32;")
	if len(decls) != 1 {
		t.Fatalf("got %d decls, want 1", len(decls))
	}
	v, ok := decls[0].(*ast.VarDecl)
	if !ok {
		t.Fatalf("decl type = %T, want *ast.VarDecl", decls[0])
	}
	if v.Name != "counter" || v.Type.Kind != types.U32 || v.Init != nil {
		t.Errorf("VarDecl = %+v, want name=counter type=u32 init=nil", v)
	}
}

func TestParseProcWithBodyAndParams(t *testing.T) {
	decls := parseSrc(t, `
proc add(a: i32, b: i32) -> i32 {
	return a + b;
}`)
	if len(decls) != 1 {
		t.Fatalf("got %d decls, want 1", len(decls))
	}
	pd, ok := decls[0].(*ast.ProcDecl)
	if !ok {
		t.Fatalf("decl type = %T, want *ast.ProcDecl", decls[0])
	}
	if pd.Name != "add" || len(pd.Params) != 2 || pd.ReturnType.Kind != types.I32 || !pd.Defined {
		t.Errorf("ProcDecl = %+v", pd)
	}
	if len(pd.Body) != 1 {
		t.Fatalf("body has %d statements, want 1", len(pd.Body))
	}
	ret, ok := pd.Body[0].(*ast.ReturnStmt)
	if !ok || !ret.HasValue {
		t.Fatalf("body[0] = %#v, want ReturnStmt with a value", pd.Body[0])
	}
	bin, ok := ret.Value.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("return value = %T, want *ast.BinaryExpr", ret.Value)
	}
	if _, ok := bin.Left.(*ast.IdentExpr); !ok {
		t.Errorf("left operand = %T, want *ast.IdentExpr", bin.Left)
	}
}

func TestParseForwardProcNeverDefinedErrors(t *testing.T) {
	if err := parseSrcErr(t, "proc helper(x: u32);"); err == nil {
		t.Fatal("expected error for never-defined forward-declared procedure")
	}
}

func TestParseForwardProcLaterDefinedOK(t *testing.T) {
	decls := parseSrc(t, `
proc helper(x: u32);
proc helper(x: u32) { return; }`)
	if len(decls) != 2 {
		t.Fatalf("got %d decls, want 2", len(decls))
	}
}

func TestParseForwardStructNeverDefinedErrors(t *testing.T) {
	if err := parseSrcErr(t, "struct Foo;"); err == nil {
		t.Fatal("expected error for never-defined forward-declared struct")
	}
}

func TestParseStructWithFieldsAndArray(t *testing.T) {
	decls := parseSrc(t, `
struct Point {
	x: i32;
	y: i32;
	samples: u8[16];
}`)
	sd, ok := decls[0].(*ast.StructDecl)
	if !ok {
		t.Fatalf("decl type = %T, want *ast.StructDecl", decls[0])
	}
	if len(sd.Fields) != 3 {
		t.Fatalf("got %d fields, want 3", len(sd.Fields))
	}
	arr := sd.Fields[2].Type
	if arr.Kind != types.ARRAY || arr.Len != 16 || arr.Elem.Kind != types.U8 {
		t.Errorf("samples field type = %+v, want array[16] of u8", arr)
	}
}

func TestParseEnumAutoIncrementsAndExplicitValues(t *testing.T) {
	decls := parseSrc(t, `
enum Color {
	Red,
	Green = 5,
	Blue,
}`)
	ed, ok := decls[0].(*ast.EnumDecl)
	if !ok {
		t.Fatalf("decl type = %T, want *ast.EnumDecl", decls[0])
	}
	want := map[string]int64{"Red": 0, "Green": 5, "Blue": 6}
	if len(ed.Members) != len(want) {
		t.Fatalf("got %d members, want %d", len(ed.Members), len(want))
	}
	for _, m := range ed.Members {
		if want[m.Name] != m.Value {
			t.Errorf("member %s = %d, want %d", m.Name, m.Value, want[m.Name])
		}
	}
}

func TestParseEnumDotAccessInSwitchCase(t *testing.T) {
	decls := parseSrc(t, `
enum Color { Red, Green, Blue }
proc classify(c: u64) -> u64 {
	switch (c) {
	case Color.Green:
		return 1;
	default:
		return 0;
	}
}`)
	pd := decls[1].(*ast.ProcDecl)
	sw := pd.Body[0].(*ast.SwitchStmt)
	if len(sw.Cases) != 1 {
		t.Fatalf("got %d cases, want 1", len(sw.Cases))
	}
	num := sw.Cases[0].Value.(*ast.NumberExpr)
	if num.Value != 1 {
		t.Errorf("Color.Green resolved to %d, want 1", num.Value)
	}
}

func TestParseClassDesugarsMethodsAndInitializer(t *testing.T) {
	decls := parseSrc(t, `
class Counter {
	var value: u32;

	Counter(start: u32) {
		this.value = start;
	}

	proc increment() -> u32 {
		return this.value;
	}
}`)
	if len(decls) != 3 {
		t.Fatalf("got %d decls, want 3 (class, method, init)", len(decls))
	}
	cd, ok := decls[0].(*ast.ClassDecl)
	if !ok {
		t.Fatalf("decls[0] = %T, want *ast.ClassDecl", decls[0])
	}
	if cd.Init == nil || cd.Init.Name != "__Counter_init_" {
		t.Fatalf("class init = %+v, want name __Counter_init_", cd.Init)
	}
	if len(cd.Methods) != 1 || cd.Methods[0].Name != "__Counter_proc_increment" {
		t.Fatalf("class methods = %+v", cd.Methods)
	}
	if cd.Methods[0].Params[0].Name != "this" {
		t.Errorf("method's first parameter = %+v, want implicit this", cd.Methods[0].Params[0])
	}
}

func TestParseLocalClassConstructionSugar(t *testing.T) {
	decls := parseSrc(t, `
class Counter { Counter() { return; } }
proc main() {
	var c: Counter();
}`)
	pd := decls[2].(*ast.ProcDecl)
	ms, ok := pd.Body[0].(*ast.MultipleStmt)
	if !ok {
		t.Fatalf("body[0] = %T, want *ast.MultipleStmt", pd.Body[0])
	}
	if len(ms.Stmts) != 2 {
		t.Fatalf("got %d desugared statements, want 2", len(ms.Stmts))
	}
	if _, ok := ms.Stmts[0].(*ast.LocalVarStmt); !ok {
		t.Errorf("stmt[0] = %T, want *ast.LocalVarStmt", ms.Stmts[0])
	}
	call, ok := ms.Stmts[1].(*ast.ExprStmt).X.(*ast.CallExpr)
	if !ok {
		t.Fatalf("stmt[1] expr = %T, want *ast.CallExpr", ms.Stmts[1])
	}
	if callee, ok := call.Callee.(*ast.IdentExpr); !ok || callee.Name != "__Counter_init_" {
		t.Errorf("callee = %+v, want __Counter_init_", call.Callee)
	}
}

func TestParseConstantFoldingAtComparisonLevel(t *testing.T) {
	decls := parseSrc(t, `
proc get() -> u32 {
	return 2 + 3 * 4 > 10;
}`)
	pd := decls[0].(*ast.ProcDecl)
	ret := pd.Body[0].(*ast.ReturnStmt)
	n, ok := ret.Value.(*ast.NumberExpr)
	if !ok {
		t.Fatalf("folded constant = %T, want *ast.NumberExpr", ret.Value)
	}
	if n.Value != 1 { // 2+3*4 = 14 > 10 -> true -> 1
		t.Errorf("folded value = %d, want 1", n.Value)
	}
}

func TestParseConstantFoldingStopsAtNonConstant(t *testing.T) {
	decls := parseSrc(t, `
proc get(x: u32) -> u32 {
	return x + 1 + 2;
}`)
	pd := decls[0].(*ast.ProcDecl)
	ret := pd.Body[0].(*ast.ReturnStmt)
	bin, ok := ret.Value.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("value = %T, want *ast.BinaryExpr", ret.Value)
	}
	// (x + 1) cannot fold (x is not a Number); the outer "+ 2" also
	// cannot fold since its left operand is no longer a Number either.
	if _, ok := bin.Left.(*ast.BinaryExpr); !ok {
		t.Errorf("left = %T, want nested *ast.BinaryExpr (x + 1)", bin.Left)
	}
	if n, ok := bin.Right.(*ast.NumberExpr); !ok || n.Value != 2 {
		t.Errorf("right = %+v, want NumberExpr{2}", bin.Right)
	}
}

func TestParseUnaryMinusLowersToBinaryExpr(t *testing.T) {
	decls := parseSrc(t, `
proc get(x: i32) -> i32 {
	return -x;
}`)
	pd := decls[0].(*ast.ProcDecl)
	ret := pd.Body[0].(*ast.ReturnStmt)
	bin, ok := ret.Value.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("value = %T, want *ast.BinaryExpr", ret.Value)
	}
	left, ok := bin.Left.(*ast.NumberExpr)
	if !ok || left.Value != 0 {
		t.Errorf("left = %+v, want NumberExpr{0}", bin.Left)
	}
	if _, ok := bin.Right.(*ast.IdentExpr); !ok {
		t.Errorf("right = %T, want *ast.IdentExpr", bin.Right)
	}
}

func TestParseBangProducesNegateExpr(t *testing.T) {
	decls := parseSrc(t, `
proc get(x: u32) -> u32 {
	return !x;
}`)
	pd := decls[0].(*ast.ProcDecl)
	ret := pd.Body[0].(*ast.ReturnStmt)
	if _, ok := ret.Value.(*ast.NegateExpr); !ok {
		t.Errorf("value = %T, want *ast.NegateExpr", ret.Value)
	}
}

func TestParseDereferenceAndIndexShareOneNode(t *testing.T) {
	decls := parseSrc(t, `
proc get(p: u32*) -> u32 {
	var a: u32 = *p;
	var b: u32 = p[3];
	return a + b;
}`)
	pd := decls[0].(*ast.ProcDecl)

	a := pd.Body[0].(*ast.LocalVarStmt)
	deref, ok := a.Init.(*ast.DereferenceExpr)
	if !ok {
		t.Fatalf("*p = %T, want *ast.DereferenceExpr", a.Init)
	}
	if n, ok := deref.Offset.(*ast.NumberExpr); !ok || n.Value != 0 {
		t.Errorf("*p offset = %+v, want NumberExpr{0}", deref.Offset)
	}

	b := pd.Body[1].(*ast.LocalVarStmt)
	deref2, ok := b.Init.(*ast.DereferenceExpr)
	if !ok {
		t.Fatalf("p[3] = %T, want *ast.DereferenceExpr", b.Init)
	}
	if n, ok := deref2.Offset.(*ast.NumberExpr); !ok || n.Value != 3 {
		t.Errorf("p[3] offset = %+v, want NumberExpr{3}", deref2.Offset)
	}
}

func TestParseAddressOfRequiresBareIdentifier(t *testing.T) {
	decls := parseSrc(t, `
proc get(x: u32) -> u32* {
	return &x;
}`)
	pd := decls[0].(*ast.ProcDecl)
	ret := pd.Body[0].(*ast.ReturnStmt)
	addr, ok := ret.Value.(*ast.AddressOfExpr)
	if !ok || addr.Name != "x" {
		t.Errorf("value = %+v, want AddressOfExpr{Name: x}", ret.Value)
	}
}

func TestParseAssignmentTargets(t *testing.T) {
	decls := parseSrc(t, `
struct Pair { x: u32; y: u32; }
proc set(p: Pair*, v: u32) {
	p.x = v;
	*p = v;
	%rax = v;
}`)
	pd := decls[1].(*ast.ProcDecl)
	if _, ok := pd.Body[0].(*ast.WriteFieldStmt); !ok {
		t.Errorf("stmt[0] = %T, want *ast.WriteFieldStmt", pd.Body[0])
	}
	if _, ok := pd.Body[1].(*ast.SetAtPointerStmt); !ok {
		t.Errorf("stmt[1] = %T, want *ast.SetAtPointerStmt", pd.Body[1])
	}
	if _, ok := pd.Body[2].(*ast.AssignRegisterStmt); !ok {
		t.Errorf("stmt[2] = %T, want *ast.AssignRegisterStmt", pd.Body[2])
	}
}

func TestParseSwitchStatement(t *testing.T) {
	decls := parseSrc(t, `
proc classify(x: u32) -> u32 {
	switch (x) {
	case 1:
		return 10;
	case 2:
		return 20;
	default:
		return 0;
	}
}`)
	pd := decls[0].(*ast.ProcDecl)
	sw, ok := pd.Body[0].(*ast.SwitchStmt)
	if !ok {
		t.Fatalf("body[0] = %T, want *ast.SwitchStmt", pd.Body[0])
	}
	if len(sw.Cases) != 2 || sw.Default == nil {
		t.Errorf("switch = %+v, want 2 cases with a default", sw)
	}
}

func TestParseRawStackStatements(t *testing.T) {
	decls := parseSrc(t, `
proc helper() {
	push 42;
	pop x;
	pop;
	call other 2;
}`)
	pd := decls[0].(*ast.ProcDecl)
	if _, ok := pd.Body[0].(*ast.PushStmt); !ok {
		t.Errorf("stmt[0] = %T, want *ast.PushStmt", pd.Body[0])
	}
	pop1 := pd.Body[1].(*ast.PopStmt)
	if pop1.Target != "x" || pop1.Discard {
		t.Errorf("pop[1] = %+v, want Target=x Discard=false", pop1)
	}
	pop2 := pd.Body[2].(*ast.PopStmt)
	if !pop2.Discard {
		t.Errorf("pop[2] = %+v, want Discard=true", pop2)
	}
	call := pd.Body[3].(*ast.CallStmt)
	if call.Name != "other" || call.ArgCount != 2 {
		t.Errorf("call = %+v, want Name=other ArgCount=2", call)
	}
}

func TestParseInlineAsm(t *testing.T) {
	decls := parseSrc(t, `
proc helper() {
	asm "nop";
}`)
	pd := decls[0].(*ast.ProcDecl)
	asm, ok := pd.Body[0].(*ast.InlineAsmStmt)
	if !ok || asm.Text != "nop" {
		t.Errorf("stmt[0] = %+v, want InlineAsmStmt{Text: nop}", pd.Body[0])
	}
}

func TestParseCastDisambiguatesFromGroupedExpr(t *testing.T) {
	decls := parseSrc(t, `
proc get(x: u64) -> u32 {
	return (u32) x;
}`)
	pd := decls[0].(*ast.ProcDecl)
	ret := pd.Body[0].(*ast.ReturnStmt)
	cast, ok := ret.Value.(*ast.CastExpr)
	if !ok || cast.Type.Kind != types.U32 {
		t.Errorf("value = %+v, want CastExpr{Type: u32}", ret.Value)
	}
}

func TestParseGroupedExprIsNotMistakenForCast(t *testing.T) {
	decls := parseSrc(t, `
proc get(a: u32, b: u32) -> u32 {
	return (a + b) * 2;
}`)
	pd := decls[0].(*ast.ProcDecl)
	ret := pd.Body[0].(*ast.ReturnStmt)
	bin, ok := ret.Value.(*ast.BinaryExpr)
	if !ok {
		t.Fatalf("value = %T, want *ast.BinaryExpr", ret.Value)
	}
	if _, ok := bin.Left.(*ast.BinaryExpr); !ok {
		t.Errorf("left = %T, want nested *ast.BinaryExpr (a + b)", bin.Left)
	}
}

func TestParseSizeofTypeAndExpr(t *testing.T) {
	decls := parseSrc(t, `
proc get(x: u32) -> u64 {
	var a: u64 = sizeof(u32);
	var b: u64 = sizeof(x);
	return a + b;
}`)
	pd := decls[0].(*ast.ProcDecl)
	a := pd.Body[0].(*ast.LocalVarStmt)
	if _, ok := a.Init.(*ast.SizeofTypeExpr); !ok {
		t.Errorf("a init = %T, want *ast.SizeofTypeExpr", a.Init)
	}
	b := pd.Body[1].(*ast.LocalVarStmt)
	if _, ok := b.Init.(*ast.SizeofExpr); !ok {
		t.Errorf("b init = %T, want *ast.SizeofExpr", b.Init)
	}
}

func TestParseCharLiteralEscapes(t *testing.T) {
	decls := parseSrc(t, `
proc get() -> u8 {
	return '\n';
}`)
	pd := decls[0].(*ast.ProcDecl)
	ret := pd.Body[0].(*ast.ReturnStmt)
	n, ok := ret.Value.(*ast.NumberExpr)
	if !ok || n.Value != int64('\n') {
		t.Errorf("value = %+v, want NumberExpr{%d}", ret.Value, '\n')
	}
}

func TestParseReserveUninitAndInit(t *testing.T) {
	decls := parseSrc(t, `
proc get() -> u8* {
	var a: u8* = res u8 64;
	var b: u32* = res u32[1, 2, 3];
	return a;
}`)
	pd := decls[0].(*ast.ProcDecl)
	a := pd.Body[0].(*ast.LocalVarStmt)
	ru, ok := a.Init.(*ast.ReserveUninitExpr)
	if !ok || ru.Count != 64 {
		t.Errorf("a init = %+v, want ReserveUninitExpr{Count: 64}", a.Init)
	}
	b := pd.Body[1].(*ast.LocalVarStmt)
	ri, ok := b.Init.(*ast.ReserveInitExpr)
	if !ok || len(ri.Values) != 3 {
		t.Errorf("b init = %+v, want ReserveInitExpr with 3 values", b.Init)
	}
}

func TestParseExpectedDeclarationError(t *testing.T) {
	if err := parseSrcErr(t, "123;"); err == nil {
		t.Fatal("expected a parse error for a stray top-level expression")
	}
}

func TestParseMissingSemicolonError(t *testing.T) {
	if err := parseSrcErr(t, "var x: u32"); err == nil {
		t.Fatal("expected a parse error for a missing ';'")
	}
}
