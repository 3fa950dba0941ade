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
	"github.com/vx-lang/hazc/internal/types"
)

func (g *Generator) registerStruct(n *ast.StructDecl) error {
	if !n.Defined {
		return g.fail(n.Pos, "struct %q is never defined", n.Name)
	}
	layout, err := types.CalculateLayout(n.Fields, g.layouts)
	if err != nil {
		return g.fail(n.Pos, "laying out struct %q: %v", n.Name, err)
	}
	g.layouts.SetNamed(n.Name, layout)
	return nil
}

func (g *Generator) registerClass(n *ast.ClassDecl) error {
	layout, err := types.CalculateLayout(n.Fields, g.layouts)
	if err != nil {
		return g.fail(n.Pos, "laying out class %q: %v", n.Name, err)
	}
	g.layouts.SetNamed(n.Name, layout)

	ci := &classInfo{methods: map[string]string{}}
	for _, m := range n.Methods {
		methodName := methodSuffix(n.Name, m.Name)
		ci.methods[methodName] = m.Name
	}
	if n.Init != nil {
		ci.initFn = n.Init.Name
	}
	g.classes[n.Name] = ci
	return nil
}

// methodSuffix recovers the surface method name from a mangled
// "__Class_proc_Method" function name; used to populate classInfo so
// FieldAccessExpr/CallExpr dispatch can go from "obj.Method(...)" back
// to the mangled symbol without re-deriving the parser's naming rule
// at every call site.
func methodSuffix(class, mangled string) string {
	prefix := fmt.Sprintf("__%s_proc_", class)
	if len(mangled) > len(prefix) && mangled[:len(prefix)] == prefix {
		return mangled[len(prefix):]
	}
	return mangled
}

func isClassInit(name string) bool {
	return len(name) > 7 && name[:2] == "__" && name[len(name)-6:] == "_init_"
}

// registerProcSignature pre-registers a procedure's call signature.
// A name may own two ProcDecl nodes in the declaration list — a
// forward declaration (Body nil) and its later definition (Body set)
// — so this only creates the funcInfo once and OR's hasBody in from
// whichever node carries a body.
func (g *Generator) registerProcSignature(n *ast.ProcDecl) {
	if existing, ok := g.functions[n.Name]; ok {
		if n.Body != nil {
			existing.hasBody = true
		}
		return
	}
	fi := &funcInfo{
		returnType: n.ReturnType,
		params:     n.Params,
		variadic:   n.Variadic,
		stdcall:    n.Stdcall,
		local:      n.Local,
		hasBody:    n.Body != nil,
		called:     isClassInit(n.Name) || n.Name == "main",
	}
	g.functions[n.Name] = fi
	g.funcOrder = append(g.funcOrder, n.Name)
	if !n.Local {
		g.addExtern("public " + n.Name)
	}
}

func (g *Generator) genDecl(d ast.Decl) error {
	switch n := d.(type) {
	case *ast.VarDecl:
		return g.genGlobalVar(n)
	case *ast.ProcDecl:
		return g.genProc(n)
	case *ast.ExternProcDecl:
		return g.genExternProc(n)
	case *ast.ExternVarDecl:
		return g.genExternVar(n)
	case *ast.EnumDecl:
		return g.genEnum(n)
	default:
		g.unreachable(d.Position(), "unhandled declaration type %T", d)
		return nil
	}
}

func (g *Generator) genExternProc(n *ast.ExternProcDecl) error {
	if _, exists := g.functions[n.Name]; !exists {
		g.functions[n.Name] = &funcInfo{
			returnType: n.ReturnType, params: n.Params, variadic: n.Variadic,
			stdcall: n.Stdcall, extern: true, called: false,
		}
		g.addExtern("extrn " + n.Name)
	}
	return nil
}

func (g *Generator) genExternVar(n *ast.ExternVarDecl) error {
	g.globals[n.Name] = n.Type
	g.globalOrder = append(g.globalOrder, n.Name)
	g.addExtern("extrn " + n.Name)
	return nil
}

func (g *Generator) genGlobalVar(n *ast.VarDecl) error {
	g.globals[n.Name] = n.Type
	g.globalOrder = append(g.globalOrder, n.Name)

	size, _, err := types.SizeOf(n.Type, g.layouts)
	if err != nil {
		return g.fail(n.Pos, "global %q: %v", n.Name, err)
	}

	if n.Init == nil {
		switch n.Type.Kind {
		case types.STRUCT, types.CLASS, types.SUB_STRUCT, types.ARRAY:
			// The rN bss directive reserves N units of its own width, not N
			// bytes, so a composite global reserves size individual bytes.
			g.bss = append(g.bss, dataEntry{name: n.Name, kind: types.U8, value: fmt.Sprintf("%d", size)})
		default:
			g.bss = append(g.bss, dataEntry{name: n.Name, kind: n.Type.Kind, value: "1"})
		}
		if !n.Local {
			g.addExtern("public " + n.Name)
		}
		return nil
	}

	value, err := g.constantText(n.Init)
	if err != nil {
		return g.fail(n.Pos, "initializing global %q: %v", n.Name, err)
	}
	g.data = append(g.data, dataEntry{name: n.Name, kind: n.Type.Kind, value: value})
	if !n.Local {
		g.addExtern("public " + n.Name)
	}
	return nil
}

// constantText renders a constant-folded global initializer as literal
// assembly operand text; globals may only be initialized with values
// the parser has already folded to a NumberExpr (or a StringExpr,
// which is interned here and rendered as the label of its bytes).
func (g *Generator) constantText(e ast.Expr) (string, error) {
	switch n := e.(type) {
	case *ast.NumberExpr:
		return fmt.Sprintf("%d", n.Value), nil
	case *ast.StringExpr:
		label := g.internString(n.Value)
		return label, nil
	default:
		return "", g.fail(e.Position(), "global initializer must be a constant")
	}
}

func (g *Generator) genProc(n *ast.ProcDecl) error {
	if n.Body == nil {
		return nil // forward-declaration stub; the defining node carries the body
	}

	fi := g.functions[n.Name]
	body := make([]string, 0, 16)
	g.currentFunc = n.Name
	g.body = &body
	g.scope = newScope()
	g.localOffset = 0
	g.breakStack = nil

	g.scope.pushScope()
	for i, p := range n.Params {
		g.declareParam(p, i)
	}

	for _, s := range n.Body {
		if err := g.genStmt(s); err != nil {
			return err
		}
	}
	if fi.returnType == nil || fi.returnType.Kind == types.NONE {
		g.emit("mov rsp, rbp")
		g.emit("pop rbp")
		g.emit("ret")
	}
	g.scope.popScope()

	frameSize := alignUp(-g.localOffset, 16)
	prologue := []string{"push rbp", "mov rbp, rsp"}
	if frameSize > 0 {
		prologue = append(prologue, fmt.Sprintf("sub rsp, %d", frameSize))
	}
	for i, p := range n.Params {
		if i >= len(argRegisters) {
			break
		}
		prologue = append(prologue, fmt.Sprintf("mov [rbp%+d], %s", paramOffset(i), sizedReg(argRegisters[i], p.Type)))
	}

	fi.body = append(prologue, body...)
	fi.hasBody = true
	return nil
}

func paramOffset(i int) int { return -8 * (i + 1) }

func alignUp(n, align int) int {
	if n <= 0 {
		return 0
	}
	if r := n % align; r != 0 {
		return n + (align - r)
	}
	return n
}

func (g *Generator) declareParam(p ast.Param, i int) {
	if i < len(argRegisters) {
		off := paramOffset(i)
		g.scope.declare(p.Name, localVar{typ: p.Type, offset: off})
		if off < g.localOffset {
			g.localOffset = off
		}
		return
	}
	// Arguments beyond the register set sit above the 32-byte shadow
	// space the caller reserved for the register args, plus the return
	// address and saved rbp: [rbp+48], [rbp+56], ... in declaration order.
	stackIndex := i - len(argRegisters)
	g.scope.declare(p.Name, localVar{typ: p.Type, offset: 48 + 8*stackIndex})
}

func (g *Generator) genEnum(n *ast.EnumDecl) error {
	members := map[string]int64{}
	for _, m := range n.Members {
		members[m.Name] = m.Value
	}
	g.enumData[n.Name] = members
	return nil
}
