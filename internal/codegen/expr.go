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
	"fmt"

	"github.com/vx-lang/hazc/internal/ast"
	"github.com/vx-lang/hazc/internal/token"
	"github.com/vx-lang/hazc/internal/types"
)

// genExpr generates code that leaves X's value as the top stack cell
// and returns its static type, used both for emission sizing and for
// validateArgument/validateType checks at call and assignment sites.
func (g *Generator) genExpr(x ast.Expr) (*types.Type, error) {
	switch n := x.(type) {
	case *ast.NumberExpr:
		g.emit("mov rax, %d", n.Value)
		g.emit("push rax")
		return &types.Type{Kind: types.U64}, nil

	case *ast.StringExpr:
		label := g.internString(n.Value)
		g.emit("lea rax, [%s]", label)
		g.emit("push rax")
		return &types.Type{Kind: types.PTR, Base: &types.Type{Kind: types.U8}}, nil

	case *ast.IdentExpr:
		return g.genLoadIdent(n)

	case *ast.RegisterExpr:
		g.emit("push %s", n.Name)
		return &types.Type{Kind: types.U64}, nil

	case *ast.NegateExpr:
		t, err := g.genExpr(n.X)
		if err != nil {
			return nil, err
		}
		g.emit("pop rax")
		g.emit("test rax, rax")
		g.emit("sete al")
		g.emit("movzx rax, al")
		g.emit("push rax")
		return t, nil

	case *ast.AddressOfExpr:
		return g.genAddressOf(n)

	case *ast.DereferenceExpr:
		return g.genDereference(n)

	case *ast.BinaryExpr:
		return g.genBinary(n)

	case *ast.CallExpr:
		return g.genCall(n)

	case *ast.CastExpr:
		if _, err := g.genExpr(n.X); err != nil {
			return nil, err
		}
		return n.Type, nil // Cast is identity at generation time; see DESIGN.md

	case *ast.FieldAccessExpr:
		return g.genFieldAccess(n)

	case *ast.SizeofExpr:
		t, err := g.resolveType(n.X)
		if err != nil {
			return nil, err
		}
		size, _, err := types.SizeOf(t, g.layouts)
		if err != nil {
			return nil, g.fail(n.Pos, "sizeof: %v", err)
		}
		g.emit("push %d", size)
		return &types.Type{Kind: types.U64}, nil

	case *ast.SizeofTypeExpr:
		size, _, err := types.SizeOf(n.Type, g.layouts)
		if err != nil {
			return nil, g.fail(n.Pos, "sizeof: %v", err)
		}
		g.emit("push %d", size)
		return &types.Type{Kind: types.U64}, nil

	case *ast.NewExpr:
		return g.genNew(n)

	case *ast.ReserveUninitExpr:
		return g.genReserveUninit(n)

	case *ast.ReserveInitExpr:
		return g.genReserveInit(n)

	default:
		g.unreachable(x.Position(), "unhandled expression type %T", x)
		return nil, nil
	}
}

// genLoadIdent resolves name against the local scope, then the
// current procedure's parameters (already folded into scope by
// declareParam), then the global table, in that order — exactly the
// reference resolver's lookup chain.
func (g *Generator) genLoadIdent(n *ast.IdentExpr) (*types.Type, error) {
	if lv, ok := g.scope.lookup(n.Name); ok {
		g.emit("mov %s, [rbp%+d]", sizedReg("rax", lv.typ), lv.offset)
		g.emit("push rax")
		return lv.typ, nil
	}
	if t, ok := g.globals[n.Name]; ok {
		g.emit("mov %s, [%s]", sizedReg("rax", t), n.Name)
		g.emit("push rax")
		return t, nil
	}
	if members, ok := g.enumValueOwner(n.Name); ok {
		g.emit("push %d", members)
		return &types.Type{Kind: types.U64}, nil
	}
	return nil, g.fail(n.Pos, "undefined identifier %q", n.Name)
}

// enumValueOwner looks a bare name up as a member of any registered
// enum, for the (rare) case a member name is referenced without its
// enum qualifier; qualified EnumName.Member access goes through
// genFieldAccess's enum special case instead.
func (g *Generator) enumValueOwner(name string) (int64, bool) {
	for _, members := range g.enumData {
		if v, ok := members[name]; ok {
			return v, true
		}
	}
	return 0, false
}

func sizedReg(base string, t *types.Type) string {
	if t == nil {
		return base
	}
	size := typeSizes[t.Kind]
	if size == 0 {
		size = 8
	}
	if variations, ok := registerVariations[base]; ok {
		if r, ok := variations[size]; ok {
			return r
		}
	}
	return base
}

func (g *Generator) genAddressOf(n *ast.AddressOfExpr) (*types.Type, error) {
	if lv, ok := g.scope.lookup(n.Name); ok {
		if lv.typ != nil && isStorageKind(lv.typ.Kind) {
			// lv.offset already holds the pointer slot declareLocalStorage
			// set up, which IS the storage's address — reading it (rather
			// than taking its own address) is what yields a usable
			// `ptr Struct`/`ptr Elem`, matching the same assumption every
			// other struct/class/array access in this package makes.
			g.emit("mov rax, [rbp%+d]", lv.offset)
			g.emit("push rax")
			return &types.Type{Kind: types.PTR, Base: lv.typ}, nil
		}
		g.emit("lea rax, [rbp%+d]", lv.offset)
		g.emit("push rax")
		return &types.Type{Kind: types.PTR, Base: lv.typ}, nil
	}
	if t, ok := g.globals[n.Name]; ok {
		g.emit("lea rax, [%s]", n.Name)
		g.emit("push rax")
		return &types.Type{Kind: types.PTR, Base: t}, nil
	}
	return nil, g.fail(n.Pos, "undefined identifier %q", n.Name)
}

func (g *Generator) genDereference(n *ast.DereferenceExpr) (*types.Type, error) {
	ptrType, err := g.genExpr(n.Pointer)
	if err != nil {
		return nil, err
	}
	if ptrType.Kind != types.PTR {
		return nil, g.fail(n.Pos, "cannot dereference non-pointer type %s", ptrType.Kind)
	}
	elem := ptrType.Base
	if elem == nil {
		elem = &types.Type{Kind: types.U64}
	}
	size, _, err := types.SizeOf(elem, g.layouts)
	if err != nil {
		return nil, g.fail(n.Pos, "%v", err)
	}
	if _, err := g.genExpr(n.Offset); err != nil {
		return nil, err
	}
	g.emit("pop rbx") // offset
	g.emit("pop rax")
	g.emit("imul rbx, %d", size)
	g.emit("add rax, rbx")
	g.emit("mov %s, [rax]", sizedReg("rax", elem))
	g.emit("push rax")
	return elem, nil
}

// genBinary generates short-circuit AND/OR as label-jump branches
// ahead of the generic table dispatch in binaryOps; every other
// operator reaches the generic path. Operands may both be constants:
// the parser folds only some operator levels (and never unary minus).
func (g *Generator) genBinary(n *ast.BinaryExpr) (*types.Type, error) {
	if n.Op == token.AND || n.Op == token.OR {
		return g.genShortCircuit(n)
	}

	// Evaluated right then left so the table's "pop rax" (top of stack)
	// lands the left operand in rax, matching what binaryOps assumes for
	// every non-commutative operator (subtraction, division, the
	// ordered comparisons).
	if _, err := g.genExpr(n.Right); err != nil {
		return nil, err
	}
	if _, err := g.genExpr(n.Left); err != nil {
		return nil, err
	}
	ops, ok := binaryOps[n.Op]
	if !ok {
		g.unreachable(n.Pos, "unhandled binary operator %s", n.Op)
	}
	for _, line := range ops {
		g.emit("%s", line)
	}
	// Every binary operator in this table — arithmetic or comparison —
	// produces a plain u64 result; the reference generator never tracks
	// a distinct boolean type either.
	return &types.Type{Kind: types.U64}, nil
}

func (g *Generator) genShortCircuit(n *ast.BinaryExpr) (*types.Type, error) {
	label := g.newLabel()
	if _, err := g.genExpr(n.Left); err != nil {
		return nil, err
	}
	g.emit("pop rax")
	g.emit("test rax, rax")
	if n.Op == token.AND {
		g.emit("jz .Lshort%d", label)
	} else {
		g.emit("jnz .Lshort%d", label)
	}
	if _, err := g.genExpr(n.Right); err != nil {
		return nil, err
	}
	g.emit("pop rax")
	g.emit("test rax, rax")
	g.emit("setne al")
	g.emit("movzx rax, al")
	g.emit("jmp .Ldone%d", label)
	g.emit(".Lshort%d:", label)
	if n.Op == token.AND {
		g.emit("mov rax, 0")
	} else {
		g.emit("mov rax, 1")
	}
	g.emit(".Ldone%d:", label)
	g.emit("push rax")
	return &types.Type{Kind: types.U64}, nil
}

// genCall lowers a typed call: arguments are evaluated right to left,
// so the first four land on top of the stack in argument order and pop
// straight into the Windows x64 integer argument registers, with any
// remaining arguments left underneath as stack arguments (closest to
// the return address), shadow space reserved per the calling
// convention. A FieldAccessExpr callee is a method call: the object
// address becomes the implicit leading `this` argument.
func (g *Generator) genCall(n *ast.CallExpr) (*types.Type, error) {
	name, thisArg, err := g.resolveCallee(n.Callee)
	if err != nil {
		return nil, err
	}
	fi, ok := g.functions[name]
	if !ok {
		return nil, g.fail(n.Pos, "call to undefined procedure %q", name)
	}
	fi.called = true

	args := n.Args
	if thisArg != nil {
		args = append([]ast.Expr{thisArg}, args...)
	}
	if !fi.variadic && len(args) != len(fi.params) {
		return nil, g.fail(n.Pos, "%q expects %d argument(s), got %d", name, len(fi.params), len(args))
	}

	for i := len(args) - 1; i >= 0; i-- {
		argType, err := g.genExpr(args[i])
		if err != nil {
			return nil, err
		}
		if i < len(fi.params) && !types.Equal(argType, fi.params[i].Type) {
			return nil, g.fail(args[i].Position(), "argument %d to %q: type mismatch", i+1, name)
		}
	}

	// Right-to-left evaluation leaves args[0] on top of the stack, so
	// popping ascending into argRegisters lands each argument in its
	// correct register; anything past the fourth stays on the stack,
	// in order, directly beneath the popped registers.
	regArgc := min(len(args), len(argRegisters))
	for i := 0; i < regArgc; i++ {
		g.emit("pop %s", argRegisters[i])
	}
	shadow := 32
	g.emit("sub rsp, %d", shadow)
	g.emit("call %s", name)
	g.emit("add rsp, %d", shadow+extraArgsBytes(len(args)))
	if fi.returnType != nil && fi.returnType.Kind != types.NONE {
		g.emit("push rax")
		return fi.returnType, nil
	}
	return &types.Type{Kind: types.NONE}, nil
}

func extraArgsBytes(argc int) int {
	if argc > len(argRegisters) {
		return (argc - len(argRegisters)) * 8
	}
	return 0
}

func (g *Generator) resolveCallee(callee ast.Expr) (name string, thisArg ast.Expr, err error) {
	switch c := callee.(type) {
	case *ast.IdentExpr:
		return c.Name, nil, nil
	case *ast.FieldAccessExpr:
		objType, err := g.resolveType(c.Object)
		if err != nil {
			return "", nil, err
		}
		className := objType.Name
		if objType.Kind == types.PTR && objType.Base != nil {
			className = objType.Base.Name
		}
		ci, ok := g.classes[className]
		if !ok {
			return "", nil, g.fail(callee.Position(), "unknown class %q", className)
		}
		mangled, ok := ci.methods[c.Field]
		if !ok {
			return "", nil, g.fail(callee.Position(), "class %q has no method %q", className, c.Field)
		}
		return mangled, c.Object, nil
	default:
		return "", nil, g.fail(callee.Position(), "callee is not a procedure or method reference")
	}
}

func (g *Generator) genFieldAccess(n *ast.FieldAccessExpr) (*types.Type, error) {
	if ident, ok := n.Object.(*ast.IdentExpr); ok {
		if members, ok := g.enumData[ident.Name]; ok {
			v, ok := members[n.Field]
			if !ok {
				return nil, g.fail(n.Pos, "enum %q has no member %q", ident.Name, n.Field)
			}
			g.emit("push %d", v)
			return &types.Type{Kind: types.U64}, nil
		}
	}

	objType, err := g.genExpr(n.Object)
	if err != nil {
		return nil, err
	}
	// STRUCT/CLASS-kind values are always represented by their base
	// address (see typeSizes), so a plain struct and a pointer-to-struct
	// read the same way here.
	structName := objType.Name
	if objType.Kind == types.PTR {
		structName = objType.Base.Name
	}
	layout, ok := g.layouts.GetNamed(structName)
	if !ok {
		return nil, g.fail(n.Pos, "unknown struct/class %q", structName)
	}
	field, ok := layout.Fields[n.Field]
	if !ok {
		return nil, g.fail(n.Pos, "type %q has no field %q", structName, n.Field)
	}
	g.emit("pop rax")
	g.emit("mov %s, [rax+%d]", sizedReg("rax", field.Type), field.Offset)
	g.emit("push rax")
	return field.Type, nil
}

// genNew allocates an instance and, if the class has an initializer,
// calls it. The instance pointer is held in a dedicated local slot
// (not a register) across argument evaluation: evaluating an argument
// may itself contain a call, which would clobber rcx if `this` were
// loaded into it before the arguments are generated — so, matching
// generator.py:1315-1352, `this` is loaded into rcx only after every
// argument has been evaluated (right to left, so the pops line up
// with argRegisters like an ordinary call).
func (g *Generator) genNew(n *ast.NewExpr) (*types.Type, error) {
	layout, ok := g.layouts.GetNamed(n.ClassName)
	if !ok {
		return nil, g.fail(n.Pos, "unknown class %q", n.ClassName)
	}
	tempOffset, err := g.allocLocal(&types.Type{Kind: types.PTR})
	if err != nil {
		return nil, g.fail(n.Pos, "new %q: %v", n.ClassName, err)
	}
	g.emit("mov rcx, %d", layout.Size)
	g.emit("sub rsp, 32")
	g.emit("call malloc")
	g.emit("add rsp, 32")
	g.emit("mov qword [rbp%+d], rax", tempOffset)

	ci, ok := g.classes[n.ClassName]
	if ok && ci.initFn != "" {
		g.functions[ci.initFn].called = true
		for i := len(n.Args) - 1; i >= 0; i-- {
			if _, err := g.genExpr(n.Args[i]); err != nil {
				return nil, err
			}
		}
		g.emit("mov rcx, qword [rbp%+d]", tempOffset)
		regArgc := min(len(n.Args), len(argRegisters)-1)
		for i := 0; i < regArgc; i++ {
			g.emit("pop %s", argRegisters[i+1])
		}
		extra := 0
		if len(n.Args) > len(argRegisters) {
			extra = (len(n.Args) - len(argRegisters)) * 8
		}
		g.emit("sub rsp, 32")
		g.emit("call %s", ci.initFn)
		g.emit("add rsp, %d", 32+extra)
	}
	g.emit("mov rax, qword [rbp%+d]", tempOffset)
	g.emit("push rax")
	return &types.Type{Kind: types.PTR, Base: &types.Type{Kind: types.CLASS, Name: n.ClassName}}, nil
}

func (g *Generator) genReserveUninit(n *ast.ReserveUninitExpr) (*types.Type, error) {
	label := g.newTempName("res")
	g.bss = append(g.bss, dataEntry{name: label, kind: n.Type.Kind, value: fmt.Sprintf("%d", n.Count)})
	g.emit("lea rax, [%s]", label)
	g.emit("push rax")
	return &types.Type{Kind: types.PTR, Base: n.Type}, nil
}

func (g *Generator) genReserveInit(n *ast.ReserveInitExpr) (*types.Type, error) {
	label := g.newTempName("arr")
	values := make([]string, 0, len(n.Values))
	for _, v := range n.Values {
		text, err := g.constantText(v)
		if err != nil {
			return nil, err
		}
		values = append(values, text)
	}
	joined := ""
	for i, v := range values {
		if i > 0 {
			joined += ", "
		}
		joined += v
	}
	g.data = append(g.data, dataEntry{name: label, kind: n.Type.Kind, value: joined})
	g.emit("lea rax, [%s]", label)
	g.emit("push rax")
	return &types.Type{Kind: types.PTR, Base: n.Type}, nil
}

// resolveType computes an expression's static type without emitting
// any code, for contexts (sizeof, method-call target resolution) that
// need the type but must not touch the runtime stack.
func (g *Generator) resolveType(e ast.Expr) (*types.Type, error) {
	switch n := e.(type) {
	case *ast.NumberExpr:
		return &types.Type{Kind: types.U64}, nil
	case *ast.StringExpr:
		return &types.Type{Kind: types.PTR, Base: &types.Type{Kind: types.U8}}, nil
	case *ast.IdentExpr:
		if lv, ok := g.scope.lookup(n.Name); ok {
			return lv.typ, nil
		}
		if t, ok := g.globals[n.Name]; ok {
			return t, nil
		}
		return &types.Type{Kind: types.U64}, nil
	case *ast.AddressOfExpr:
		if lv, ok := g.scope.lookup(n.Name); ok {
			return &types.Type{Kind: types.PTR, Base: lv.typ}, nil
		}
		if t, ok := g.globals[n.Name]; ok {
			return &types.Type{Kind: types.PTR, Base: t}, nil
		}
		return nil, g.fail(n.Pos, "undefined identifier %q", n.Name)
	case *ast.DereferenceExpr:
		t, err := g.resolveType(n.Pointer)
		if err != nil {
			return nil, err
		}
		if t.Kind != types.PTR {
			return nil, g.fail(n.Pos, "cannot dereference non-pointer type %s", t.Kind)
		}
		return t.Base, nil
	case *ast.FieldAccessExpr:
		objType, err := g.resolveType(n.Object)
		if err != nil {
			return nil, err
		}
		structName := objType.Name
		if objType.Kind == types.PTR {
			structName = objType.Base.Name
		}
		layout, ok := g.layouts.GetNamed(structName)
		if !ok {
			return nil, g.fail(n.Pos, "unknown struct/class %q", structName)
		}
		field, ok := layout.Fields[n.Field]
		if !ok {
			return nil, g.fail(n.Pos, "type %q has no field %q", structName, n.Field)
		}
		return field.Type, nil
	case *ast.CastExpr:
		return n.Type, nil
	case *ast.CallExpr:
		name, _, err := g.resolveCallee(n.Callee)
		if err != nil {
			return nil, err
		}
		fi, ok := g.functions[name]
		if !ok {
			return nil, g.fail(n.Pos, "call to undefined procedure %q", name)
		}
		return fi.returnType, nil
	case *ast.NewExpr:
		return &types.Type{Kind: types.PTR, Base: &types.Type{Kind: types.CLASS, Name: n.ClassName}}, nil
	default:
		return &types.Type{Kind: types.U64}, nil
	}
}

// internString registers a deduplicated NUL-terminated data label for
// a raw (quote-including) string lexeme, decoding escapes and hex
// surface quoting at the point of layout, matching the reference
// generator's _generate_String.
func (g *Generator) internString(raw string) string {
	decoded := decodeStringLiteral(raw)
	label := g.newTempName("str")
	bytes := make([]string, 0, len(decoded)+1)
	for i := 0; i < len(decoded); i++ {
		bytes = append(bytes, fmt.Sprintf("%d", decoded[i]))
	}
	bytes = append(bytes, "0")
	joined := ""
	for i, b := range bytes {
		if i > 0 {
			joined += ", "
		}
		joined += b
	}
	g.data = append(g.data, dataEntry{name: label, kind: types.U8, value: joined})
	return label
}

// decodeStringLiteral strips the surrounding quotes from a raw string
// lexeme and resolves its backslash escapes.
func decodeStringLiteral(raw string) []byte {
	inner := raw
	if len(inner) >= 2 && inner[0] == '"' && inner[len(inner)-1] == '"' {
		inner = inner[1 : len(inner)-1]
	}
	out := make([]byte, 0, len(inner))
	for i := 0; i < len(inner); i++ {
		if inner[i] == '\\' && i+1 < len(inner) {
			if c, ok := token.DecodeCharEscape(inner[i+1]); ok {
				out = append(out, c)
				i++
				continue
			}
		}
		out = append(out, inner[i])
	}
	return out
}
