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

// Package ast defines the syntax tree built by the parser. Decl, Stmt
// and Expr are sealed: each carries an unexported marker method so
// only this package can add new concrete node types, which lets the
// generator dispatch on them with an exhaustive Go type switch instead
// of the reflective attribute dispatch the reference implementation
// uses.
package ast

import (
	"github.com/vx-lang/hazc/internal/token"
	"github.com/vx-lang/hazc/internal/types"
)

// Decl is a top-level (translation-unit scope) declaration.
type Decl interface {
	declNode()
	Position() token.Position
}

// Stmt is a statement that can appear inside a procedure body.
type Stmt interface {
	stmtNode()
	Position() token.Position
}

// Expr is an expression producing a value.
type Expr interface {
	exprNode()
	Position() token.Position
}

type Base struct{ Pos token.Position }

func (b Base) Position() token.Position { return b.Pos }

// ---- declarations ----

// Param is one formal parameter of a procedure declaration.
type Param struct {
	Name string
	Type *types.Type
}

// VarDecl is a top-level `var`/`local var` declaration.
type VarDecl struct {
	Base
	Name  string
	Type  *types.Type
	Init  Expr // nil if uninitialized
	Local bool
}

func (*VarDecl) declNode() {}

// ProcDecl is a top-level `proc`/`local proc` declaration. Body is nil
// for a forward declaration; Defined is true exactly when this node
// carries a body. Rejecting a forward-declared procedure that never
// gets a body is done by the parser's own bookkeeping, not via Defined.
type ProcDecl struct {
	Base
	Name       string
	Params     []Param
	Variadic   bool
	ReturnType *types.Type // a types.NONE kind means no return value
	Stdcall    bool
	Local      bool
	Body       []Stmt
	Defined    bool
}

func (*ProcDecl) declNode() {}

// ExternProcDecl is an `external proc` declaration.
type ExternProcDecl struct {
	Base
	Name       string
	Params     []Param
	Variadic   bool
	ReturnType *types.Type
	Stdcall    bool
}

func (*ExternProcDecl) declNode() {}

// ExternVarDecl is an `external var` declaration.
type ExternVarDecl struct {
	Base
	Name string
	Type *types.Type
}

func (*ExternVarDecl) declNode() {}

// StructDecl is a top-level `struct` declaration. A forward declaration
// (`struct Foo;`) produces no node, so Defined is true on every parsed
// StructDecl.
type StructDecl struct {
	Base
	Name    string
	Fields  []types.Field
	Defined bool
}

func (*StructDecl) declNode() {}

// Method is a `proc` declared inside a `class` body, desugared by the
// parser into a free procedure named "__<Class>_proc_<Method>" with an
// implicit leading `this` parameter (see ClassDecl.Methods/Init).
type Method = ProcDecl

// ClassDecl is a top-level `class` declaration: fields plus methods,
// with an optional initializer method (named the same as the class)
// desugared to "__<Class>_init_".
type ClassDecl struct {
	Base
	Name    string
	Fields  []types.Field
	Methods []*Method
	Init    *Method // nil if the class declares no initializer
}

func (*ClassDecl) declNode() {}

// EnumMember is one `name = value` (or auto-incremented) entry of an
// EnumDecl.
type EnumMember struct {
	Name  string
	Value int64
}

// EnumDecl is a top-level `enum` declaration.
type EnumDecl struct {
	Base
	Name    string
	Members []EnumMember
}

func (*EnumDecl) declNode() {}

// ---- statements ----

// LocalVarStmt is a local `var` declaration inside a body,
// optionally with an initializer. An anonymous inline struct local
// (`local struct {...} x;` in the reference grammar) is represented
// here too: its Type.Kind is types.SUB_STRUCT.
type LocalVarStmt struct {
	Base
	Name string
	Type *types.Type
	Init Expr
}

func (*LocalVarStmt) stmtNode() {}

// LocalArrayStmt is a local fixed-size array declaration, optionally
// with a literal element initializer list.
type LocalArrayStmt struct {
	Base
	Name string
	Elem *types.Type
	Len  int
	Init []Expr
}

func (*LocalArrayStmt) stmtNode() {}

// AssignStmt is `name = value;` for a local/global/parameter.
type AssignStmt struct {
	Base
	Name  string
	Value Expr
}

func (*AssignStmt) stmtNode() {}

// WriteFieldStmt is `object.field = value;`.
type WriteFieldStmt struct {
	Base
	Object Expr
	Field  string
	Value  Expr
}

func (*WriteFieldStmt) stmtNode() {}

// SetAtPointerStmt is `*pointer = value;` (Offset = NumberExpr{0}) or
// `pointer[i] = value;` (Offset = i).
type SetAtPointerStmt struct {
	Base
	Pointer Expr
	Offset  Expr
	Value   Expr
}

func (*SetAtPointerStmt) stmtNode() {}

// AssignRegisterStmt is `%rax = value;`.
type AssignRegisterStmt struct {
	Base
	Register string
	Value    Expr
}

func (*AssignRegisterStmt) stmtNode() {}

// ExprStmt is an expression evaluated for its side effect, its result
// discarded (typically a call).
type ExprStmt struct {
	Base
	X Expr
}

func (*ExprStmt) stmtNode() {}

// ReturnStmt is `return;` or `return value;`.
type ReturnStmt struct {
	Base
	Value    Expr
	HasValue bool
}

func (*ReturnStmt) stmtNode() {}

// CompoundStmt is a `{ ... }` block introducing a new lexical scope.
type CompoundStmt struct {
	Base
	Stmts []Stmt
}

func (*CompoundStmt) stmtNode() {}

// IfStmt is `if (cond) then [else else_]`.
type IfStmt struct {
	Base
	Cond Expr
	Then Stmt
	Else Stmt // nil if no else branch
}

func (*IfStmt) stmtNode() {}

// WhileStmt is `while (cond) body`.
type WhileStmt struct {
	Base
	Cond Expr
	Body Stmt
}

func (*WhileStmt) stmtNode() {}

// BreakStmt is `break;`, valid only inside a WhileStmt.
type BreakStmt struct{ Base }

func (*BreakStmt) stmtNode() {}

// SwitchCase is one `case value: stmts...` arm of a SwitchStmt.
type SwitchCase struct {
	Value Expr
	Body  []Stmt
}

// SwitchStmt is `switch (value) { case ...: ...; default: ...; }`,
// lowered at generation time into a sequential compare-and-jump chain
// with no fallthrough between cases.
type SwitchStmt struct {
	Base
	Value   Expr
	Cases   []SwitchCase
	Default []Stmt // nil if no default arm
}

func (*SwitchStmt) stmtNode() {}

// PushStmt is the raw stack-machine `push value;` statement.
type PushStmt struct {
	Base
	Value Expr
}

func (*PushStmt) stmtNode() {}

// PopStmt is the raw stack-machine `pop name;` (store into name) or
// `pop;`/`drop;` (discard) statement.
type PopStmt struct {
	Base
	Target  string // "" when Discard
	Discard bool
}

func (*PopStmt) stmtNode() {}

// CallStmt is the raw stack-machine `call name argc;` statement: call
// name with argc values already sitting on the stack, bypassing normal
// type-checked argument marshalling entirely.
type CallStmt struct {
	Base
	Name     string
	ArgCount int
}

func (*CallStmt) stmtNode() {}

// InlineAsmStmt is `asm "...";`, copied verbatim into the function body.
type InlineAsmStmt struct {
	Base
	Text string
}

func (*InlineAsmStmt) stmtNode() {}

// MultipleStmt groups several statements produced by desugaring a
// single piece of surface syntax (e.g. `var x: Foo(args);` becomes a
// local declaration followed by an initializer call).
type MultipleStmt struct {
	Base
	Stmts []Stmt
}

func (*MultipleStmt) stmtNode() {}

// ---- expressions ----

// NumberExpr is an integer literal.
type NumberExpr struct {
	Base
	Value int64
}

func (*NumberExpr) exprNode() {}

// StringExpr is a string literal. Value holds the raw lexeme,
// including its surrounding quotes and any unresolved escapes:
// decoding happens at the point of use (e.g. codegen laying out the
// bytes), not at parse time, matching the reference parser.
type StringExpr struct {
	Base
	Value string
}

func (*StringExpr) exprNode() {}

// IdentExpr reads a local, parameter, or global by name.
type IdentExpr struct {
	Base
	Name string
}

func (*IdentExpr) exprNode() {}

// RegisterExpr reads a named machine register (e.g. `%rax`).
type RegisterExpr struct {
	Base
	Name string
}

func (*RegisterExpr) exprNode() {}

// NegateExpr is unary `!x`. Unary arithmetic negation (`-x`) is not a
// distinct node: the parser lowers it to BinaryExpr{Op: token.MINUS,
// Left: NumberExpr{0}, Right: x}, exactly as the reference parser does.
type NegateExpr struct {
	Base
	X Expr
}

func (*NegateExpr) exprNode() {}

// AddressOfExpr is `&name`. The operand must be a bare identifier, not
// an arbitrary expression — the reference grammar requires this too.
type AddressOfExpr struct {
	Base
	Name string
}

func (*AddressOfExpr) exprNode() {}

// DereferenceExpr is pointer dereference with an element offset:
// `*pointer` parses as Offset = NumberExpr{0}; `pointer[i]` parses as
// Offset = i. Both forms share one node because both compile to the
// same addressing arithmetic (pointer + offset*sizeof(base)).
type DereferenceExpr struct {
	Base
	Pointer Expr
	Offset  Expr
}

func (*DereferenceExpr) exprNode() {}

// BinaryExpr is a binary operator application. The parser folds two
// constant integer operands only for comparison, term and factor
// operators other than `%`; bitwise, `and`/`or`, `%` and the lowered
// unary minus stay BinaryExpr nodes even when both operands are
// constants.
type BinaryExpr struct {
	Base
	Op    token.Kind
	Left  Expr
	Right Expr
}

func (*BinaryExpr) exprNode() {}

// CallExpr is a typed procedure or method call: Callee is an
// IdentExpr for a plain call, or a FieldAccessExpr for a method call
// dispatched through an object (`obj.method(args)`).
type CallExpr struct {
	Base
	Callee Expr
	Args   []Expr
}

func (*CallExpr) exprNode() {}

// CastExpr is `(type) x`. Per the documented open-question decision,
// generation emits no narrowing/extension instructions for this node:
// it is a typed reinterpretation only, exactly as the reference
// generator leaves it (see the CastExpr case of codegen's genExpr).
type CastExpr struct {
	Base
	Type *types.Type
	X    Expr
}

func (*CastExpr) exprNode() {}

// FieldAccessExpr is `object.field`.
type FieldAccessExpr struct {
	Base
	Object Expr
	Field  string
}

func (*FieldAccessExpr) exprNode() {}

// SizeofExpr is `sizeof(expr)`.
type SizeofExpr struct {
	Base
	X Expr
}

func (*SizeofExpr) exprNode() {}

// SizeofTypeExpr is `sizeof(type)`.
type SizeofTypeExpr struct {
	Base
	Type *types.Type
}

func (*SizeofTypeExpr) exprNode() {}

// NewExpr is `new ClassName(args)`: allocate with malloc, call the
// class initializer, and yield a pointer to the new instance.
type NewExpr struct {
	Base
	ClassName string
	Args      []Expr
}

func (*NewExpr) exprNode() {}

// ReserveUninitExpr is `res type count`: reserve zero-initialized
// storage sized for count consecutive values of Type.
type ReserveUninitExpr struct {
	Base
	Type  *types.Type
	Count int
}

func (*ReserveUninitExpr) exprNode() {}

// ReserveInitExpr is `res type[v1, v2, ...]`: constant values of Type
// laid out in the data section, yielding a pointer to the first one.
type ReserveInitExpr struct {
	Base
	Type   *types.Type
	Values []Expr
}

func (*ReserveInitExpr) exprNode() {}
