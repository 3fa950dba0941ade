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

func (g *Generator) genStmt(s ast.Stmt) error {
	switch n := s.(type) {
	case *ast.LocalVarStmt:
		return g.genLocalVar(n)
	case *ast.LocalArrayStmt:
		return g.genLocalArray(n)
	case *ast.AssignStmt:
		return g.genAssign(n)
	case *ast.WriteFieldStmt:
		return g.genWriteField(n)
	case *ast.SetAtPointerStmt:
		return g.genSetAtPointer(n)
	case *ast.AssignRegisterStmt:
		return g.genAssignRegister(n)
	case *ast.ExprStmt:
		t, err := g.genExpr(n.X)
		if err != nil {
			return err
		}
		if t != nil && t.Kind != types.NONE {
			g.emit("add rsp, 8") // discard the unused result
		}
		return nil
	case *ast.ReturnStmt:
		return g.genReturn(n)
	case *ast.CompoundStmt:
		g.scope.pushScope()
		defer g.scope.popScope()
		for _, stmt := range n.Stmts {
			if err := g.genStmt(stmt); err != nil {
				return err
			}
		}
		return nil
	case *ast.IfStmt:
		return g.genIf(n)
	case *ast.WhileStmt:
		return g.genWhile(n)
	case *ast.BreakStmt:
		return g.genBreak(n)
	case *ast.SwitchStmt:
		return g.genSwitch(n)
	case *ast.PushStmt:
		_, err := g.genExpr(n.Value)
		return err
	case *ast.PopStmt:
		return g.genPop(n)
	case *ast.CallStmt:
		return g.genRawCall(n)
	case *ast.InlineAsmStmt:
		g.emit("%s", n.Text)
		return nil
	case *ast.MultipleStmt:
		for _, stmt := range n.Stmts {
			if err := g.genStmt(stmt); err != nil {
				return err
			}
		}
		return nil
	default:
		g.unreachable(s.Position(), "unhandled statement type %T", s)
		return nil
	}
}

func (g *Generator) allocLocal(t *types.Type) (int, error) {
	size, align, err := types.SizeOf(t, g.layouts)
	if err != nil {
		return 0, err
	}
	g.localOffset -= size
	if rem := (-g.localOffset) % align; rem != 0 {
		g.localOffset -= align - rem
	}
	return g.localOffset, nil
}

// isStorageKind reports whether t is represented in a stack frame as
// inline byte storage behind a pointer slot, rather than directly in
// its own stack cell — struct/class instances and fixed-size arrays.
func isStorageKind(k types.Kind) bool {
	return k == types.STRUCT || k == types.CLASS || k == types.SUB_STRUCT || k == types.ARRAY
}

// declareLocalStorage reserves inline storage for t plus a separate
// 8-byte pointer slot pointing at it, and declares name at the pointer
// slot's offset — matching the reference generator's LocalStruct/
// LocalArray lowering (generator.py:528-588). Every other place in this
// package that loads a struct/class/array local treats its value as
// already being the storage's address, so the local must be declared
// this way for that assumption to hold.
func (g *Generator) declareLocalStorage(pos token.Position, name string, scopeType, storageType *types.Type) error {
	storageOffset, err := g.allocLocal(storageType)
	if err != nil {
		return g.fail(pos, "local %q: %v", name, err)
	}
	ptrOffset, err := g.allocLocal(&types.Type{Kind: types.PTR})
	if err != nil {
		return g.fail(pos, "local %q: %v", name, err)
	}
	g.scope.declare(name, localVar{typ: scopeType, offset: ptrOffset})
	g.emit("lea rax, [rbp%+d]", storageOffset)
	g.emit("mov qword [rbp%+d], rax", ptrOffset)
	return nil
}

func (g *Generator) genLocalVar(n *ast.LocalVarStmt) error {
	typ := n.Type
	if n.Init != nil && typ == nil {
		t, err := g.resolveType(n.Init)
		if err != nil {
			return err
		}
		typ = t
	}

	if typ != nil && isStorageKind(typ.Kind) {
		// Struct/class/sub-struct/array locals take no initializer
		// expression; class construction goes through the class-init-call
		// sugar of parseLocalVarStatement instead.
		if n.Init != nil {
			return g.fail(n.Pos, "cannot initialize struct/class local %q with an expression", n.Name)
		}
		return g.declareLocalStorage(n.Pos, n.Name, typ, typ)
	}

	offset, err := g.allocLocal(typ)
	if err != nil {
		return g.fail(n.Pos, "local %q: %v", n.Name, err)
	}
	g.scope.declare(n.Name, localVar{typ: typ, offset: offset})

	if n.Init != nil {
		initType, err := g.genExpr(n.Init)
		if err != nil {
			return err
		}
		if !types.Equal(initType, typ) {
			return g.fail(n.Pos, "cannot initialize %q: type mismatch", n.Name)
		}
		g.emit("pop rax")
		g.emit("mov [rbp%+d], %s", offset, sizedReg("rax", typ))
	}
	return nil
}

func (g *Generator) genLocalArray(n *ast.LocalArrayStmt) error {
	arrType := &types.Type{Kind: types.ARRAY, Elem: n.Elem, Len: n.Len}
	ptrType := &types.Type{Kind: types.PTR, Base: n.Elem}
	if err := g.declareLocalStorage(n.Pos, n.Name, ptrType, arrType); err != nil {
		return err
	}
	lv, _ := g.scope.lookup(n.Name)

	elemSize, _, err := types.SizeOf(n.Elem, g.layouts)
	if err != nil {
		return g.fail(n.Pos, "%v", err)
	}
	for i, v := range n.Init {
		vt, err := g.genExpr(v)
		if err != nil {
			return err
		}
		if !types.Equal(vt, n.Elem) {
			return g.fail(v.Position(), "array %q element %d: type mismatch", n.Name, i)
		}
		g.emit("pop rax")
		g.emit("mov rbx, [rbp%+d]", lv.offset)
		g.emit("mov [rbx%+d], %s", i*elemSize, sizedReg("rax", n.Elem))
	}
	return nil
}

func (g *Generator) genAssign(n *ast.AssignStmt) error {
	lvType, err := g.resolveLValueType(n.Name)
	if err != nil {
		return g.fail(n.Pos, "%v", err)
	}
	valType, err := g.genExpr(n.Value)
	if err != nil {
		return err
	}
	if !types.Equal(lvType, valType) {
		return g.fail(n.Pos, "cannot assign to %q: type mismatch", n.Name)
	}
	g.emit("pop rax")
	if lv, ok := g.scope.lookup(n.Name); ok {
		g.emit("mov [rbp%+d], %s", lv.offset, sizedReg("rax", lv.typ))
		return nil
	}
	g.emit("mov [%s], %s", n.Name, sizedReg("rax", lvType))
	return nil
}

func (g *Generator) resolveLValueType(name string) (*types.Type, error) {
	if lv, ok := g.scope.lookup(name); ok {
		return lv.typ, nil
	}
	if t, ok := g.globals[name]; ok {
		return t, nil
	}
	return nil, fmt.Errorf("undefined identifier %q", name)
}

func (g *Generator) genWriteField(n *ast.WriteFieldStmt) error {
	objType, err := g.resolveType(n.Object)
	if err != nil {
		return err
	}
	structName := objType.Name
	if objType.Kind == types.PTR {
		structName = objType.Base.Name
	}
	layout, ok := g.layouts.GetNamed(structName)
	if !ok {
		return g.fail(n.Pos, "unknown struct/class %q", structName)
	}
	field, ok := layout.Fields[n.Field]
	if !ok {
		return g.fail(n.Pos, "type %q has no field %q", structName, n.Field)
	}

	if _, err := g.genExpr(n.Object); err != nil {
		return err
	}
	valType, err := g.genExpr(n.Value)
	if err != nil {
		return err
	}
	if !types.Equal(valType, field.Type) {
		return g.fail(n.Pos, "cannot assign to %q.%q: type mismatch", structName, n.Field)
	}
	g.emit("pop rax")  // value
	g.emit("pop rbx")  // object base
	g.emit("mov [rbx+%d], %s", field.Offset, sizedReg("rax", field.Type))
	return nil
}

func (g *Generator) genSetAtPointer(n *ast.SetAtPointerStmt) error {
	ptrType, err := g.resolveType(n.Pointer)
	if err != nil {
		return err
	}
	if ptrType.Kind != types.PTR {
		return g.fail(n.Pos, "cannot index non-pointer type %s", ptrType.Kind)
	}
	elem := ptrType.Base
	size, _, err := types.SizeOf(elem, g.layouts)
	if err != nil {
		return g.fail(n.Pos, "%v", err)
	}

	if _, err := g.genExpr(n.Pointer); err != nil {
		return err
	}
	if _, err := g.genExpr(n.Offset); err != nil {
		return err
	}
	valType, err := g.genExpr(n.Value)
	if err != nil {
		return err
	}
	if !types.Equal(valType, elem) {
		return g.fail(n.Pos, "cannot store through pointer: type mismatch")
	}
	g.emit("pop rax") // value
	g.emit("pop rbx") // offset
	g.emit("pop rcx") // pointer
	g.emit("imul rbx, %d", size)
	g.emit("add rcx, rbx")
	g.emit("mov [rcx], %s", sizedReg("rax", elem))
	return nil
}

func (g *Generator) genAssignRegister(n *ast.AssignRegisterStmt) error {
	if _, err := g.genExpr(n.Value); err != nil {
		return err
	}
	g.emit("pop %s", n.Register)
	return nil
}

func (g *Generator) genReturn(n *ast.ReturnStmt) error {
	if n.HasValue {
		if _, err := g.genExpr(n.Value); err != nil {
			return err
		}
		g.emit("pop rax")
	}
	g.emit("mov rsp, rbp")
	g.emit("pop rbp")
	g.emit("ret")
	return nil
}

func (g *Generator) genIf(n *ast.IfStmt) error {
	elseLabel := g.newLabel()
	if _, err := g.genExpr(n.Cond); err != nil {
		return err
	}
	g.emit("pop rax")
	g.emit("test rax, rax")
	g.emit("jz .Lelse%d", elseLabel)
	if err := g.genStmt(n.Then); err != nil {
		return err
	}
	if n.Else == nil {
		g.emit(".Lelse%d:", elseLabel)
		return nil
	}
	endLabel := g.newLabel()
	g.emit("jmp .Lend%d", endLabel)
	g.emit(".Lelse%d:", elseLabel)
	if err := g.genStmt(n.Else); err != nil {
		return err
	}
	g.emit(".Lend%d:", endLabel)
	return nil
}

func (g *Generator) genWhile(n *ast.WhileStmt) error {
	top := g.newLabel()
	end := g.newLabel()
	g.breakStack = append(g.breakStack, fmt.Sprintf(".Lwhileend%d", end))
	defer func() { g.breakStack = g.breakStack[:len(g.breakStack)-1] }()

	g.emit(".Lwhile%d:", top)
	if _, err := g.genExpr(n.Cond); err != nil {
		return err
	}
	g.emit("pop rax")
	g.emit("test rax, rax")
	g.emit("jz .Lwhileend%d", end)
	if err := g.genStmt(n.Body); err != nil {
		return err
	}
	g.emit("jmp .Lwhile%d", top)
	g.emit(".Lwhileend%d:", end)
	return nil
}

func (g *Generator) genBreak(n *ast.BreakStmt) error {
	if len(g.breakStack) == 0 {
		return g.fail(n.Pos, "break outside of a while loop")
	}
	g.emit("jmp %s", g.breakStack[len(g.breakStack)-1])
	return nil
}

// genSwitch lowers a switch into a sequential compare-and-jump chain:
// no case falls through into the next, matching the reference
// generator's switch lowering.
func (g *Generator) genSwitch(n *ast.SwitchStmt) error {
	if _, err := g.genExpr(n.Value); err != nil {
		return err
	}
	g.emit("pop rbx") // switched-on value, held for every comparison

	end := g.newLabel()
	for _, c := range n.Cases {
		caseLabel := g.newLabel()
		if _, err := g.genExpr(c.Value); err != nil {
			return err
		}
		g.emit("pop rax")
		g.emit("cmp rbx, rax")
		g.emit("jne .Lcase%d", caseLabel)
		for _, stmt := range c.Body {
			if err := g.genStmt(stmt); err != nil {
				return err
			}
		}
		g.emit("jmp .Lswitchend%d", end)
		g.emit(".Lcase%d:", caseLabel)
	}
	for _, stmt := range n.Default {
		if err := g.genStmt(stmt); err != nil {
			return err
		}
	}
	g.emit(".Lswitchend%d:", end)
	return nil
}

func (g *Generator) genPop(n *ast.PopStmt) error {
	if n.Discard {
		g.emit("add rsp, 8")
		return nil
	}
	typ, err := g.resolveLValueType(n.Target)
	if err != nil {
		return g.fail(n.Pos, "%v", err)
	}
	g.emit("pop rax")
	if lv, ok := g.scope.lookup(n.Target); ok {
		g.emit("mov [rbp%+d], %s", lv.offset, sizedReg("rax", lv.typ))
		return nil
	}
	g.emit("mov [%s], %s", n.Target, sizedReg("rax", typ))
	return nil
}

// genRawCall implements the raw stack-machine `call name argc;` form:
// argc values are already sitting on the stack in evaluation order, so
// only the register shuffle and the call itself are emitted — no
// type-checked argument marshalling, by design (see ast.CallStmt).
func (g *Generator) genRawCall(n *ast.CallStmt) error {
	fi, ok := g.functions[n.Name]
	if !ok {
		return g.fail(n.Pos, "call to undefined procedure %q", n.Name)
	}
	fi.called = true

	regArgc := n.ArgCount
	if regArgc > len(argRegisters) {
		regArgc = len(argRegisters)
	}
	for i := regArgc - 1; i >= 0; i-- {
		g.emit("pop %s", argRegisters[i])
	}
	shadow := 32
	g.emit("sub rsp, %d", shadow)
	g.emit("call %s", n.Name)
	g.emit("add rsp, %d", shadow+extraArgsBytes(n.ArgCount))
	if fi.returnType != nil && fi.returnType.Kind != types.NONE {
		g.emit("push rax")
	}
	return nil
}
