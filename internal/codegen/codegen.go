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

// Package codegen lowers a parsed program into FASM MS64 COFF source
// text, following the reference generator's naive stack machine: every
// expression pushes its one result value onto the runtime stack, every
// statement that consumes a value pops it. Dispatch on node kind uses
// an exhaustive Go type switch per ast.Stmt/ast.Expr instead of the
// reference's reflective method lookup; an unreachable default arm
// panics with an internal marker that Generate recovers into a
// diag.Internal error, so a truly-impossible node shape never panics
// the whole process.
package codegen

import (
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/vx-lang/hazc/internal/ast"
	"github.com/vx-lang/hazc/internal/diag"
	"github.com/vx-lang/hazc/internal/token"
	"github.com/vx-lang/hazc/internal/types"
)

const asmTemplate = `format MS64 COFF
; bits 64
; default rel

section '.text' readable executable
%s

%s

section '.data' readable writeable
%s

section '.bss' readable writeable
%s
`

// argRegisters holds the Windows x64 integer calling-convention
// registers, in argument order. Only the first four arguments are
// ever passed in registers; the rest live on the caller's stack.
var argRegisters = [4]string{"rcx", "rdx", "r8", "r9"}

var typeSizes = map[types.Kind]int{
	types.U8: 1, types.I8: 1,
	types.U16: 2, types.I16: 2,
	types.U32: 4, types.I32: 4,
	types.U64: 8, types.I64: 8,
	types.PTR: 8, types.PROCPTR: 8,
	types.STRUCT: 8, types.SUB_STRUCT: 8, types.CLASS: 8,
}

var asmTypeNames = map[types.Kind]string{
	types.U8: "byte", types.I8: "byte",
	types.U16: "word", types.I16: "word",
	types.U32: "dword", types.I32: "dword",
	types.U64: "qword", types.I64: "qword",
	types.PTR: "qword", types.PROCPTR: "qword",
	types.STRUCT: "qword", types.SUB_STRUCT: "qword", types.CLASS: "qword",
}

var asmTypeLetters = map[types.Kind]string{
	types.U8: "b", types.I8: "b",
	types.U16: "w", types.I16: "w",
	types.U32: "d", types.I32: "d",
	types.U64: "q", types.I64: "q",
	types.PTR: "q", types.PROCPTR: "q",
	types.STRUCT: "q", types.SUB_STRUCT: "q", types.CLASS: "q",
}

// registerVariations gives the sub-register name holding 1/2/4/8 bytes
// of each 64-bit general-purpose register the generator ever loads a
// value into.
var registerVariations = map[string]map[int]string{
	"rax": {1: "al", 2: "ax", 4: "eax", 8: "rax"},
	"rbx": {1: "bl", 2: "bx", 4: "ebx", 8: "rbx"},
	"rcx": {1: "cl", 2: "cx", 4: "ecx", 8: "rcx"},
	"rdx": {1: "dl", 2: "dx", 4: "edx", 8: "rdx"},
	"rdi": {1: "dil", 2: "di", 4: "edi", 8: "rdi"},
	"rsi": {1: "sil", 2: "si", 4: "esi", 8: "rsi"},
}

func init() {
	for i := 8; i <= 15; i++ {
		registerVariations[fmt.Sprintf("r%d", i)] = map[int]string{
			1: fmt.Sprintf("r%db", i),
			2: fmt.Sprintf("r%dw", i),
			4: fmt.Sprintf("r%dd", i),
			8: fmt.Sprintf("r%d", i),
		}
	}
}

// binaryOps maps a fold-surviving binary operator straight to its
// instruction sequence; AND/OR are handled separately as short-circuit
// branches before this table is ever consulted. LOWER/GREATEREQUALS
// emit the direct setl/setge form rather than the reference's
// decrement-then-compare trick — a deliberate simplification, see
// DESIGN.md.
var binaryOps = map[token.Kind][]string{
	token.PLUS:  {"pop rax", "pop rbx", "add rax, rbx", "push rax"},
	token.MINUS: {"pop rax", "pop rbx", "sub rax, rbx", "push rax"},
	token.STAR:  {"pop rax", "pop rbx", "mul rbx", "push rax"},
	token.SLASH: {"xor rdx, rdx", "pop rax", "pop rbx", "div rbx", "push rax"},
	token.EQUALS: {"pop rax", "pop rbx", "cmp rax, rbx", "sete al",
		"movzx rax, al", "push rax"},
	token.NOTEQUALS: {"pop rax", "pop rbx", "cmp rax, rbx", "setne al",
		"movzx rax, al", "push rax"},
	token.GREATER: {"pop rax", "pop rbx", "cmp rax, rbx", "setg al",
		"movzx rax, al", "push rax"},
	token.LOWER: {"pop rax", "pop rbx", "cmp rax, rbx", "setl al",
		"movzx rax, al", "push rax"},
	token.LOWEREQUALS: {"pop rax", "pop rbx", "cmp rax, rbx", "setle al",
		"movzx rax, al", "push rax"},
	token.GREATEREQUALS: {"pop rax", "pop rbx", "cmp rax, rbx", "setge al",
		"movzx rax, al", "push rax"},
	token.PERCENT: {"xor rdx, rdx", "pop rax", "pop rbx", "div rbx", "push rdx"},
	token.CARET:   {"pop rax", "pop rbx", "xor rax, rbx", "push rax"},
	token.PIPE:    {"pop rax", "pop rbx", "or rax, rbx", "push rax"},
	token.AMP:     {"pop rax", "pop rbx", "and rax, rbx", "push rax"},
}

// funcInfo is the call-site metadata the generator needs for every
// procedure it knows about, whether local, exported, or extern.
type funcInfo struct {
	returnType *types.Type
	params     []ast.Param
	variadic   bool
	stdcall    bool
	extern     bool
	local      bool
	called     bool
	body       []string
	hasBody    bool
}

// classInfo records a class's method table and initializer for
// AccessStructMember/CallExpr/NewExpr dispatch; the method bodies
// themselves are ordinary entries in Generator.functions under their
// mangled name, since the parser already flattened them to top-level
// ast.ProcDecl nodes.
type classInfo struct {
	methods map[string]string // method name -> mangled function name
	initFn  string            // "" if the class has no initializer
}

// dataEntry is one `.data` or `.bss` line, kept in insertion order so
// output is deterministic across runs.
type dataEntry struct {
	name  string
	kind  types.Kind
	value string // .data: comma joined values; .bss: element count
}

// Generator turns a parsed program into one assembly source string.
// Use New for every compilation: it carries no state across calls.
type Generator struct {
	layouts *types.LayoutCache

	funcOrder []string
	functions map[string]*funcInfo

	globals     map[string]*types.Type
	globalOrder []string

	classes  map[string]*classInfo
	enumData map[string]map[string]int64

	data []dataEntry
	bss  []dataEntry

	externs    []string
	externSeen map[string]bool

	// per-function state, reset at the start of each ProcDecl
	currentFunc string
	body        *[]string
	scope       scope
	localOffset int
	labelCount  int
	breakStack  []string

	tmpID int // shared counter for __str_N / __array_N labels
}

// New returns a Generator ready to compile one program.
func New() *Generator {
	g := &Generator{
		layouts:    types.NewLayoutCache(),
		functions:  map[string]*funcInfo{},
		globals:    map[string]*types.Type{},
		classes:    map[string]*classInfo{},
		enumData:   map[string]map[string]int64{},
		externSeen: map[string]bool{},
	}
	g.functions["malloc"] = &funcInfo{
		returnType: &types.Type{Kind: types.PTR}, extern: true, called: true, local: true,
		params: []ast.Param{{Name: "size", Type: &types.Type{Kind: types.U64}}},
	}
	g.functions["free"] = &funcInfo{
		returnType: &types.Type{Kind: types.NONE}, extern: true, called: true, local: true,
		params: []ast.Param{{Name: "ptr", Type: &types.Type{Kind: types.PTR}}},
	}
	g.addExtern("extrn malloc")
	g.addExtern("extrn free")
	return g
}

// Generate lowers decls into FASM MS64 COFF source text.
func (g *Generator) Generate(decls []ast.Decl) (asm string, err error) {
	defer func() {
		if r := recover(); r != nil {
			if u, ok := r.(unreachablePanic); ok {
				err = diag.Internalf(u.pos, "%s", u.msg)
				return
			}
			panic(r)
		}
	}()

	// Pass 1: struct/class layouts and every procedure's call signature,
	// regardless of declaration order, so a call anywhere in the file
	// can resolve a procedure declared later in the file. Extern
	// declarations and globals are deliberately NOT pre-registered
	// here: those only become visible once pass 2 reaches them in
	// textual order, matching the reference generator exactly.
	for _, d := range decls {
		switch n := d.(type) {
		case *ast.StructDecl:
			if err := g.registerStruct(n); err != nil {
				return "", err
			}
		case *ast.ClassDecl:
			if err := g.registerClass(n); err != nil {
				return "", err
			}
		case *ast.ProcDecl:
			g.registerProcSignature(n)
		}
	}

	for _, d := range decls {
		switch d.(type) {
		case *ast.StructDecl, *ast.ClassDecl:
			continue
		}
		if err := g.genDecl(d); err != nil {
			return "", err
		}
	}

	return g.assemble(), nil
}

func (g *Generator) assemble() string {
	var funcs strings.Builder
	for _, name := range g.funcOrder {
		fi := g.functions[name]
		if fi.extern || !fi.hasBody {
			continue
		}
		if fi.called {
			funcs.WriteString(name + ":\n")
			for _, line := range fi.body {
				funcs.WriteString("    " + line + "\n")
			}
			funcs.WriteString("\n")
		} else if !fi.local {
			g.removeExtern("public " + name)
		}
	}
	for name, fi := range g.functions {
		if fi.extern && !fi.called {
			g.removeExtern("extrn " + name)
		}
	}

	dataLines := lo.Map(g.data, func(e dataEntry, _ int) string {
		return fmt.Sprintf("    %s: d%s %s", e.name, asmTypeLetters[e.kind], e.value)
	})
	bssLines := lo.Map(g.bss, func(e dataEntry, _ int) string {
		return fmt.Sprintf("    %s: r%s %s", e.name, asmTypeLetters[e.kind], e.value)
	})
	externLines := lo.Map(g.externs, func(e string, _ int) string { return "    " + e })

	return fmt.Sprintf(asmTemplate,
		strings.Join(externLines, "\n"),
		funcs.String(),
		strings.Join(dataLines, "\n"),
		strings.Join(bssLines, "\n"))
}

func (g *Generator) addExtern(line string) {
	if !g.externSeen[line] {
		g.externSeen[line] = true
		g.externs = append(g.externs, line)
	}
}

func (g *Generator) removeExtern(line string) {
	g.externs = lo.Filter(g.externs, func(e string, _ int) bool { return e != line })
	delete(g.externSeen, line)
}

func (g *Generator) emit(format string, args ...any) {
	*g.body = append(*g.body, fmt.Sprintf(format, args...))
}

func (g *Generator) newLabel() int {
	l := g.labelCount
	g.labelCount++
	return l
}

func (g *Generator) newTempName(prefix string) string {
	name := fmt.Sprintf("__%s_%d", prefix, g.tmpID)
	g.tmpID++
	return name
}

// fail builds a stage-tagged Generate diagnostic.
func (g *Generator) fail(pos token.Position, format string, args ...any) error {
	return diag.New(diag.Generate, pos, format, args...)
}

// unreachablePanic is the only panic value Generate's recover handles;
// anything else propagates as a genuine crash.
type unreachablePanic struct {
	pos token.Position
	msg string
}

func (g *Generator) unreachable(pos token.Position, format string, args ...any) {
	panic(unreachablePanic{pos: pos, msg: fmt.Sprintf(format, args...)})
}

// scope is a stack of block-local variable tables: pushScope enters a
// new CompoundStmt, popScope leaves it (called via defer so every exit
// path, including a generation panic, restores the enclosing scope).
type scope []map[string]localVar

type localVar struct {
	typ    *types.Type
	offset int
}

func newScope() scope { return scope{map[string]localVar{}} }

func (s *scope) pushScope() { *s = append(*s, map[string]localVar{}) }
func (s *scope) popScope()  { *s = (*s)[:len(*s)-1] }

func (s scope) declare(name string, v localVar) { s[len(s)-1][name] = v }

func (s scope) lookup(name string) (localVar, bool) {
	for i := len(s) - 1; i >= 0; i-- {
		if v, ok := s[i][name]; ok {
			return v, true
		}
	}
	return localVar{}, false
}

