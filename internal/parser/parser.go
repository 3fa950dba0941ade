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

// Package parser turns a preprocessed token stream into the top-level
// declaration list consumed by the generator. It is a straightforward
// recursive-descent parser with a precedence-climbing expression
// grammar and inline constant folding at the comparison/arithmetic
// levels, grounded directly on the reference parser it replaces.
package parser

import (
	"fmt"
	"strconv"

	"github.com/vx-lang/hazc/internal/ast"
	"github.com/vx-lang/hazc/internal/diag"
	"github.com/vx-lang/hazc/internal/token"
	"github.com/vx-lang/hazc/internal/types"
)

// Parser consumes a token stream and produces Decls.
type Parser struct {
	toks []token.Token
	pos  int

	typedefs map[string]*types.Type
	enumData map[string]map[string]int64

	structFwd forwardTracker
	classFwd  forwardTracker
	procFwd   forwardTracker
}

// New returns a Parser ready to parse toks, which must end in a
// token.EOF sentinel (as produced by the scanner/preprocessor).
func New(toks []token.Token) *Parser {
	return &Parser{
		toks:      toks,
		typedefs:  map[string]*types.Type{},
		enumData:  map[string]map[string]int64{},
		structFwd: newForwardTracker(),
		classFwd:  newForwardTracker(),
		procFwd:   newForwardTracker(),
	}
}

// Parse scans toks (as returned by the preprocessor) into the
// program's top-level declarations.
func Parse(toks []token.Token) ([]ast.Decl, error) {
	return New(toks).Parse()
}

// Parse runs the parser to completion.
func (p *Parser) Parse() ([]ast.Decl, error) {
	var decls []ast.Decl

	for p.available() {
		nodes, err := p.parseDeclarations()
		if err != nil {
			return nil, err
		}
		decls = append(decls, nodes...)
	}

	for name, pos := range p.structFwd.remaining() {
		return nil, p.errorfAt(pos, "body of struct %q was never defined, only forward declared", name)
	}
	for name, pos := range p.classFwd.remaining() {
		return nil, p.errorfAt(pos, "body of class %q was never defined, only forward declared", name)
	}
	for name, pos := range p.procFwd.remaining() {
		return nil, p.errorfAt(pos, "body of procedure %q was never defined, only forward declared", name)
	}

	return decls, nil
}

// ---- forward-declaration tracking ----

// forwardTracker records names seen forward-declared but not yet
// resolved with a body, so Parse's final pass can reject any left
// dangling at end of file. It generalizes the struct/class
// never-defined check already present upstream to also cover
// procedures, which the original grammar allowed to dangle silently.
type forwardTracker map[string]token.Position

func newForwardTracker() forwardTracker { return forwardTracker{} }

func (t forwardTracker) declare(name string, pos token.Position) {
	if _, ok := t[name]; !ok {
		t[name] = pos
	}
}

func (t forwardTracker) resolve(name string) { delete(t, name) }

func (t forwardTracker) remaining() map[string]token.Position { return t }

// ---- token cursor helpers ----

func (p *Parser) peek() token.Token       { return p.toks[p.pos] }
func (p *Parser) previous() token.Token   { return p.toks[p.pos-1] }
func (p *Parser) available() bool         { return p.peek().Kind != token.EOF }
func (p *Parser) check(k token.Kind) bool { return p.peek().Kind == k }

func (p *Parser) advance() token.Token {
	t := p.peek()
	p.pos++
	return t
}

func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(k token.Kind, msg string) (token.Token, error) {
	if p.check(k) {
		return p.advance(), nil
	}
	return token.Token{}, p.errorfAt(p.peek().Pos, "%s", msg)
}

func (p *Parser) errorfAt(pos token.Position, format string, args ...any) error {
	return diag.New(diag.Parse, pos, format, args...)
}

// ---- top-level declarations ----

func (p *Parser) parseDeclarations() ([]ast.Decl, error) {
	isLocal := p.match(token.LOCAL)

	switch {
	case p.match(token.VAR):
		return p.parseVarDecl(isLocal)
	case p.match(token.PROC):
		return p.parseProcDecl(isLocal)
	case p.match(token.EXTERNAL):
		return p.parseExternDecl()
	case p.match(token.STRUCT):
		return p.parseStructDecl()
	case p.match(token.ENUM):
		return p.parseEnumDecl()
	case p.match(token.CLASS):
		return p.parseClassDecl()
	default:
		return nil, p.errorfAt(p.peek().Pos, "expected declaration")
	}
}

func (p *Parser) parseVarDecl(isLocal bool) ([]ast.Decl, error) {
	name, err := p.consume(token.IDENTIFIER, "expected variable name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.COLON, "expected variable type"); err != nil {
		return nil, err
	}
	vtype, err := p.consumeType("expected variable type")
	if err != nil {
		return nil, err
	}
	// Top-level vars are always BSS-style: the reference grammar never
	// accepted an initializer here, only parsed it out in a disabled
	// code path.
	if _, err := p.consume(token.SEMICOLON, "expected ';' after global variable declaration"); err != nil {
		return nil, err
	}
	return []ast.Decl{&ast.VarDecl{Base: pos(name), Name: name.Lexeme, Type: vtype, Local: isLocal}}, nil
}

func (p *Parser) parseParamList() ([]ast.Param, bool, error) {
	var params []ast.Param
	variadic := false
	if !p.match(token.LPAREN) {
		return params, variadic, nil
	}
	if !p.check(token.RPAREN) {
		for {
			if p.match(token.ELLIPSIS) {
				variadic = true
				break
			}
			name, err := p.consume(token.IDENTIFIER, "expected procedure parameter name")
			if err != nil {
				return nil, false, err
			}
			if _, err := p.consume(token.COLON, "expected procedure parameter type"); err != nil {
				return nil, false, err
			}
			ptype, err := p.consumeType("expected procedure parameter type")
			if err != nil {
				return nil, false, err
			}
			params = append(params, ast.Param{Name: name.Lexeme, Type: ptype})
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after procedure parameters"); err != nil {
		return nil, false, err
	}
	return params, variadic, nil
}

func (p *Parser) parseReturnType() (*types.Type, error) {
	if p.match(token.ARROW) {
		return p.consumeType("expected procedure return type after '->'")
	}
	return &types.Type{Kind: types.NONE}, nil
}

func (p *Parser) parseProcDecl(isLocal bool) ([]ast.Decl, error) {
	stdcall := p.match(token.STDCALL)
	name, err := p.consume(token.IDENTIFIER, "expected procedure name")
	if err != nil {
		return nil, err
	}
	params, variadic, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	retType, err := p.parseReturnType()
	if err != nil {
		return nil, err
	}

	if p.match(token.SEMICOLON) {
		p.procFwd.declare(name.Lexeme, name.Pos)
		return []ast.Decl{&ast.ProcDecl{
			Base: pos(name), Name: name.Lexeme, Params: params, Variadic: variadic,
			ReturnType: retType, Stdcall: stdcall, Local: isLocal, Body: nil, Defined: false,
		}}, nil
	}

	if _, err := p.consume(token.LBRACE, "expected '{' for procedure body"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	p.procFwd.resolve(name.Lexeme)
	return []ast.Decl{&ast.ProcDecl{
		Base: pos(name), Name: name.Lexeme, Params: params, Variadic: variadic,
		ReturnType: retType, Stdcall: stdcall, Local: isLocal, Body: body, Defined: true,
	}}, nil
}

func (p *Parser) parseExternDecl() ([]ast.Decl, error) {
	switch {
	case p.match(token.PROC):
		stdcall := p.match(token.STDCALL)
		name, err := p.consume(token.IDENTIFIER, "expected procedure name")
		if err != nil {
			return nil, err
		}
		params, variadic, err := p.parseParamList()
		if err != nil {
			return nil, err
		}
		retType, err := p.parseReturnType()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.SEMICOLON, "expected ';' after extern procedure"); err != nil {
			return nil, err
		}
		return []ast.Decl{&ast.ExternProcDecl{
			Base: pos(name), Name: name.Lexeme, Params: params, Variadic: variadic,
			ReturnType: retType, Stdcall: stdcall,
		}}, nil

	case p.match(token.VAR):
		name, err := p.consume(token.IDENTIFIER, "expected variable name")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.COLON, "expected variable type"); err != nil {
			return nil, err
		}
		vtype, err := p.consumeType("expected variable type")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.SEMICOLON, "expected ';' after extern variable declaration"); err != nil {
			return nil, err
		}
		return []ast.Decl{&ast.ExternVarDecl{Base: pos(name), Name: name.Lexeme, Type: vtype}}, nil

	default:
		return nil, p.errorfAt(p.peek().Pos, "expected 'proc' or 'var' after 'external'")
	}
}

func (p *Parser) parseSubStructFields() ([]types.Field, error) {
	if _, err := p.consume(token.LBRACE, "expected '{'"); err != nil {
		return nil, err
	}
	var fields []types.Field
	for !p.check(token.RBRACE) {
		name, err := p.consume(token.IDENTIFIER, "expected field name")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.COLON, "expected field type"); err != nil {
			return nil, err
		}
		ftype, err := p.consumeType("expected field type")
		if err != nil {
			return nil, err
		}
		ftype, err = p.maybeArraySuffix(ftype)
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.SEMICOLON, "expected ';' after field"); err != nil {
			return nil, err
		}
		fields = append(fields, types.Field{Name: name.Lexeme, Type: ftype})
	}
	if _, err := p.consume(token.RBRACE, "expected '}'"); err != nil {
		return nil, err
	}
	return fields, nil
}

// maybeArraySuffix wraps base in an ARRAY type if a `[n]` suffix
// follows, used by both sub-struct field lists and class field lists.
func (p *Parser) maybeArraySuffix(base *types.Type) (*types.Type, error) {
	if !p.match(token.LBRACKET) {
		return base, nil
	}
	sizeTok, err := p.consume(token.NUMBER, "expected array size")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RBRACKET, "expected ']' after array size"); err != nil {
		return nil, err
	}
	n, convErr := strconv.Atoi(sizeTok.Lexeme)
	if convErr != nil {
		return nil, p.errorfAt(sizeTok.Pos, "invalid array size %q", sizeTok.Lexeme)
	}
	return &types.Type{Kind: types.ARRAY, Elem: base, Len: n}, nil
}

func (p *Parser) parseStructDecl() ([]ast.Decl, error) {
	name, err := p.consume(token.IDENTIFIER, "expected struct name")
	if err != nil {
		return nil, err
	}

	if p.match(token.SEMICOLON) {
		p.typedefs[name.Lexeme] = &types.Type{Kind: types.STRUCT, Name: name.Lexeme}
		p.structFwd.declare(name.Lexeme, name.Pos)
		return nil, nil
	}

	fields, err := p.parseSubStructFields()
	if err != nil {
		return nil, err
	}
	p.typedefs[name.Lexeme] = &types.Type{Kind: types.STRUCT, Name: name.Lexeme}
	p.structFwd.resolve(name.Lexeme)
	return []ast.Decl{&ast.StructDecl{Base: pos(name), Name: name.Lexeme, Fields: fields, Defined: true}}, nil
}

func (p *Parser) parseEnumDecl() ([]ast.Decl, error) {
	name, err := p.consume(token.IDENTIFIER, "expected enum name")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LBRACE, "expected '{'"); err != nil {
		return nil, err
	}

	var members []ast.EnumMember
	values := map[string]int64{}
	next := int64(0)

	if !p.check(token.RBRACE) {
		for {
			memberName, err := p.consume(token.IDENTIFIER, "expected enumeration value name")
			if err != nil {
				return nil, err
			}
			if p.match(token.ASSIGN) {
				numTok, err := p.consume(token.NUMBER, "expected number after '=' in enum")
				if err != nil {
					return nil, err
				}
				n, convErr := strconv.ParseInt(numTok.Lexeme, 10, 64)
				if convErr != nil {
					return nil, p.errorfAt(numTok.Pos, "invalid enum value %q", numTok.Lexeme)
				}
				next = n
			}
			members = append(members, ast.EnumMember{Name: memberName.Lexeme, Value: next})
			values[memberName.Lexeme] = next
			next++
			if !p.match(token.COMMA) {
				break
			}
			if p.check(token.RBRACE) {
				break
			}
		}
	}

	if _, err := p.consume(token.RBRACE, "expected '}'"); err != nil {
		return nil, err
	}

	// An enum never materializes as its own Type kind: it registers as
	// a plain u64 typedef, and its members live in enumData for
	// constant lookup. See internal/types' note on Kind ENUM.
	p.typedefs[name.Lexeme] = &types.Type{Kind: types.U64}
	p.enumData[name.Lexeme] = values
	return []ast.Decl{&ast.EnumDecl{Base: pos(name), Name: name.Lexeme, Members: members}}, nil
}

func (p *Parser) parseClassDecl() ([]ast.Decl, error) {
	name, err := p.consume(token.IDENTIFIER, "expected class name")
	if err != nil {
		return nil, err
	}

	if p.match(token.SEMICOLON) {
		p.typedefs[name.Lexeme] = &types.Type{Kind: types.CLASS, Name: name.Lexeme}
		p.classFwd.declare(name.Lexeme, name.Pos)
		return nil, nil
	}

	if _, err := p.consume(token.LBRACE, "expected '{'"); err != nil {
		return nil, err
	}

	selfType := &types.Type{Kind: types.CLASS, Name: name.Lexeme}
	var fields []types.Field
	var methods []*ast.Method
	var init *ast.Method

	for !p.check(token.RBRACE) {
		switch {
		case p.match(token.VAR):
			fieldName, err := p.consume(token.IDENTIFIER, "expected field name")
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(token.COLON, "expected field type"); err != nil {
				return nil, err
			}
			ftype, err := p.consumeType("expected field type")
			if err != nil {
				return nil, err
			}
			ftype, err = p.maybeArraySuffix(ftype)
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(token.SEMICOLON, "expected ';' after field"); err != nil {
				return nil, err
			}
			fields = append(fields, types.Field{Name: fieldName.Lexeme, Type: ftype})

		case p.match(token.PROC):
			methodName, err := p.consume(token.IDENTIFIER, "expected method name")
			if err != nil {
				return nil, err
			}
			params, variadic, err := p.parseParamList()
			if err != nil {
				return nil, err
			}
			retType, err := p.parseReturnType()
			if err != nil {
				return nil, err
			}
			params = append([]ast.Param{{Name: "this", Type: selfType}}, params...)
			procName := fmt.Sprintf("__%s_proc_%s", name.Lexeme, methodName.Lexeme)

			if p.match(token.SEMICOLON) {
				p.procFwd.declare(procName, methodName.Pos)
				methods = append(methods, &ast.ProcDecl{
					Base: pos(methodName), Name: procName, Params: params, Variadic: variadic,
					ReturnType: retType, Local: true, Body: nil, Defined: false,
				})
				continue
			}
			if _, err := p.consume(token.LBRACE, "expected '{' for method body"); err != nil {
				return nil, err
			}
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			p.procFwd.resolve(procName)
			methods = append(methods, &ast.ProcDecl{
				Base: pos(methodName), Name: procName, Params: params, Variadic: variadic,
				ReturnType: retType, Local: true, Body: body, Defined: true,
			})

		case p.check(token.IDENTIFIER) && p.peek().Lexeme == name.Lexeme:
			initTok := p.advance()
			params, variadic, err := p.parseParamList()
			if err != nil {
				return nil, err
			}
			params = append([]ast.Param{{Name: "this", Type: selfType}}, params...)
			if _, err := p.consume(token.LBRACE, "expected '{' for method body"); err != nil {
				return nil, err
			}
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			init = &ast.ProcDecl{
				Base: pos(initTok), Name: fmt.Sprintf("__%s_init_", name.Lexeme), Params: params,
				Variadic: variadic, ReturnType: &types.Type{Kind: types.NONE}, Local: true, Body: body, Defined: true,
			}

		default:
			return nil, p.errorfAt(p.peek().Pos, "expected class member, method or initializer")
		}
	}

	if _, err := p.consume(token.RBRACE, "expected '}'"); err != nil {
		return nil, err
	}

	p.typedefs[name.Lexeme] = selfType
	p.classFwd.resolve(name.Lexeme)

	decls := make([]ast.Decl, 0, 1+len(methods)+1)
	decls = append(decls, &ast.ClassDecl{Base: pos(name), Name: name.Lexeme, Fields: fields, Methods: methods, Init: init})
	for _, m := range methods {
		decls = append(decls, m)
	}
	if init != nil {
		decls = append(decls, init)
	}
	return decls, nil
}

// ---- types ----

func (p *Parser) matchType() (*types.Type, bool, error) {
	if base, ok := p.matchBaseKind(); ok {
		t := &types.Type{Kind: base}
		for p.match(token.STAR) {
			t = &types.Type{Kind: types.PTR, Base: t}
		}
		return t, true, nil
	}

	if p.match(token.STRUCT) {
		fields, err := p.parseSubStructFields()
		if err != nil {
			return nil, false, err
		}
		return &types.Type{Kind: types.SUB_STRUCT, Fields: fields}, true, nil
	}

	if p.check(token.IDENTIFIER) {
		name := p.peek().Lexeme
		base, ok := p.typedefs[name]
		if !ok {
			return nil, false, nil
		}
		p.advance()
		t := base
		for p.match(token.STAR) {
			t = &types.Type{Kind: types.PTR, Base: t}
		}
		return t, true, nil
	}

	return nil, false, nil
}

func (p *Parser) matchBaseKind() (types.Kind, bool) {
	switch {
	case p.match(token.U8):
		return types.U8, true
	case p.match(token.U16):
		return types.U16, true
	case p.match(token.U32):
		return types.U32, true
	case p.match(token.U64):
		return types.U64, true
	case p.match(token.I8):
		return types.I8, true
	case p.match(token.I16):
		return types.I16, true
	case p.match(token.I32):
		return types.I32, true
	case p.match(token.I64):
		return types.I64, true
	case p.match(token.PTR):
		return types.PTR, true
	default:
		return types.NONE, false
	}
}

func (p *Parser) consumeType(errMsg string) (*types.Type, error) {
	t, ok, err := p.matchType()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, p.errorfAt(p.peek().Pos, "%s", errMsg)
	}
	return t, nil
}

// ---- statements ----

func (p *Parser) parseBlock() ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for !p.check(token.RBRACE) {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	if _, err := p.consume(token.RBRACE, "expected '}' after code block"); err != nil {
		return nil, err
	}
	return stmts, nil
}

func (p *Parser) parseStatement() (ast.Stmt, error) {
	switch {
	case p.match(token.VAR):
		return p.parseLocalVarStatement()
	case p.match(token.RETURN):
		return p.parseReturnStatement()
	case p.match(token.LBRACE):
		lbrace := p.previous()
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.CompoundStmt{Base: pos(lbrace), Stmts: body}, nil
	case p.match(token.IF):
		return p.parseIfStatement()
	case p.match(token.WHILE):
		return p.parseWhileStatement()
	case p.match(token.BREAK):
		tok := p.previous()
		if _, err := p.consume(token.SEMICOLON, "expected ';' after break"); err != nil {
			return nil, err
		}
		return &ast.BreakStmt{Base: pos(tok)}, nil
	case p.match(token.ASM):
		return p.parseAsmStatement()
	case p.match(token.SWITCH):
		return p.parseSwitchStatement()
	case p.match(token.PUSH):
		return p.parsePushStatement()
	case p.match(token.POP):
		return p.parsePopStatement()
	case p.match(token.CALL):
		return p.parseCallStatement()
	default:
		return p.parseExpressionOrAssignStatement()
	}
}

func (p *Parser) parseLocalVarStatement() (ast.Stmt, error) {
	name, err := p.consume(token.IDENTIFIER, "expected variable name")
	if err != nil {
		return nil, err
	}

	if p.match(token.ASSIGN) {
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.SEMICOLON, "expected ';' after local variable declaration"); err != nil {
			return nil, err
		}
		return &ast.LocalVarStmt{Base: pos(name), Name: name.Lexeme, Type: nil, Init: value}, nil
	}

	if _, err := p.consume(token.COLON, "expected variable type"); err != nil {
		return nil, err
	}
	vtype, err := p.consumeType("expected variable type")
	if err != nil {
		return nil, err
	}

	if p.match(token.LBRACKET) {
		sizeTok, err := p.consume(token.NUMBER, "expected array size")
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RBRACKET, "expected ']' after local array size"); err != nil {
			return nil, err
		}
		if _, err := p.consume(token.SEMICOLON, "expected ';' after local variable declaration"); err != nil {
			return nil, err
		}
		n, convErr := strconv.Atoi(sizeTok.Lexeme)
		if convErr != nil {
			return nil, p.errorfAt(sizeTok.Pos, "invalid array size %q", sizeTok.Lexeme)
		}
		return &ast.LocalArrayStmt{Base: pos(name), Name: name.Lexeme, Elem: vtype, Len: n}, nil
	}

	if vtype.Kind == types.STRUCT && p.match(token.SEMICOLON) {
		return &ast.LocalVarStmt{Base: pos(name), Name: name.Lexeme, Type: vtype}, nil
	}

	if vtype.Kind == types.CLASS {
		if p.match(token.SEMICOLON) {
			return &ast.LocalVarStmt{Base: pos(name), Name: name.Lexeme, Type: vtype}, nil
		}
		if p.match(token.LPAREN) {
			args := []ast.Expr{&ast.IdentExpr{Base: pos(name), Name: name.Lexeme}}
			if !p.check(token.RPAREN) {
				for {
					a, err := p.parseExpression()
					if err != nil {
						return nil, err
					}
					args = append(args, a)
					if !p.match(token.COMMA) {
						break
					}
				}
			}
			if _, err := p.consume(token.RPAREN, "expected ')' after local class initializer"); err != nil {
				return nil, err
			}
			if _, err := p.consume(token.SEMICOLON, "expected ';' after local variable declaration"); err != nil {
				return nil, err
			}
			initName := fmt.Sprintf("__%s_init_", vtype.Name)
			return &ast.MultipleStmt{Base: pos(name), Stmts: []ast.Stmt{
				&ast.LocalVarStmt{Base: pos(name), Name: name.Lexeme, Type: vtype},
				&ast.ExprStmt{Base: pos(name), X: &ast.CallExpr{Base: pos(name), Callee: &ast.IdentExpr{Base: pos(name), Name: initName}, Args: args}},
			}}, nil
		}
	}

	var init ast.Expr
	if p.match(token.ASSIGN) {
		init, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.SEMICOLON, "expected ';' after local variable declaration"); err != nil {
		return nil, err
	}
	return &ast.LocalVarStmt{Base: pos(name), Name: name.Lexeme, Type: vtype, Init: init}, nil
}

func (p *Parser) parseReturnStatement() (ast.Stmt, error) {
	tok := p.previous()
	var value ast.Expr
	hasValue := false
	if !p.check(token.SEMICOLON) {
		v, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		value, hasValue = v, true
	}
	if _, err := p.consume(token.SEMICOLON, "expected ';' after return statement"); err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{Base: pos(tok), Value: value, HasValue: hasValue}, nil
}

func (p *Parser) parseIfStatement() (ast.Stmt, error) {
	tok := p.previous()
	if _, err := p.consume(token.LPAREN, "expected '(' after if keyword"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after if expression"); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var elseStmt ast.Stmt
	if p.match(token.ELSE) {
		elseStmt, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	return &ast.IfStmt{Base: pos(tok), Cond: cond, Then: then, Else: elseStmt}, nil
}

func (p *Parser) parseWhileStatement() (ast.Stmt, error) {
	tok := p.previous()
	if _, err := p.consume(token.LPAREN, "expected '(' after while keyword"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after while expression"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Base: pos(tok), Cond: cond, Body: body}, nil
}

func (p *Parser) parseAsmStatement() (ast.Stmt, error) {
	tok := p.previous()
	str, err := p.consume(token.STRING, "expected string")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMICOLON, "expected ';' after asm"); err != nil {
		return nil, err
	}
	return &ast.InlineAsmStmt{Base: pos(tok), Text: str.Lexeme[1 : len(str.Lexeme)-1]}, nil
}

func (p *Parser) parseSwitchStatement() (ast.Stmt, error) {
	tok := p.previous()
	if _, err := p.consume(token.LPAREN, "expected '(' after switch keyword"); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, "expected ')' after switch expression"); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LBRACE, "expected switch body"); err != nil {
		return nil, err
	}

	var cases []ast.SwitchCase
	var defaultCase []ast.Stmt
	haveDefault := false

	for !p.check(token.RBRACE) {
		switch {
		case p.match(token.DEFAULT):
			if _, err := p.consume(token.COLON, "expected ':'"); err != nil {
				return nil, err
			}
			haveDefault = true
			for !p.check(token.CASE) && !p.check(token.DEFAULT) && !p.check(token.RBRACE) {
				s, err := p.parseStatement()
				if err != nil {
					return nil, err
				}
				defaultCase = append(defaultCase, s)
			}

		case p.match(token.CASE):
			value, err := p.consumeNumConstant("expected case expression (must be a constant number)")
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(token.COLON, "expected ':'"); err != nil {
				return nil, err
			}
			var body []ast.Stmt
			for !p.check(token.CASE) && !p.check(token.DEFAULT) && !p.check(token.RBRACE) {
				s, err := p.parseStatement()
				if err != nil {
					return nil, err
				}
				body = append(body, s)
			}
			cases = append(cases, ast.SwitchCase{Value: &ast.NumberExpr{Base: base(p.previous().Pos), Value: value}, Body: body})

		default:
			return nil, p.errorfAt(p.peek().Pos, "expected a case")
		}
	}

	if _, err := p.consume(token.RBRACE, "expected '}' after switch cases"); err != nil {
		return nil, err
	}
	if !haveDefault {
		defaultCase = nil
	}
	return &ast.SwitchStmt{Base: pos(tok), Value: value, Cases: cases, Default: defaultCase}, nil
}

func (p *Parser) parsePushStatement() (ast.Stmt, error) {
	tok := p.previous()
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMICOLON, "expected ';' after push statement"); err != nil {
		return nil, err
	}
	return &ast.PushStmt{Base: pos(tok), Value: value}, nil
}

func (p *Parser) parsePopStatement() (ast.Stmt, error) {
	tok := p.previous()
	if p.match(token.IDENTIFIER) {
		name := p.previous()
		if _, err := p.consume(token.SEMICOLON, "expected ';' after pop statement"); err != nil {
			return nil, err
		}
		return &ast.PopStmt{Base: pos(tok), Target: name.Lexeme}, nil
	}
	if _, err := p.consume(token.SEMICOLON, "expected ';' after pop statement"); err != nil {
		return nil, err
	}
	return &ast.PopStmt{Base: pos(tok), Discard: true}, nil
}

func (p *Parser) parseCallStatement() (ast.Stmt, error) {
	tok := p.previous()
	name, err := p.consume(token.IDENTIFIER, "expected function name")
	if err != nil {
		return nil, err
	}
	argc := 0
	if p.match(token.NUMBER) {
		n, convErr := strconv.Atoi(p.previous().Lexeme)
		if convErr != nil {
			return nil, p.errorfAt(p.previous().Pos, "invalid argument count %q", p.previous().Lexeme)
		}
		argc = n
	}
	if _, err := p.consume(token.SEMICOLON, "expected ';' after call statement"); err != nil {
		return nil, err
	}
	return &ast.CallStmt{Base: pos(tok), Name: name.Lexeme, ArgCount: argc}, nil
}

// parseExpressionOrAssignStatement parses a bare expression statement,
// lowering an assignment expression (built by parseAssign) into the
// matching typed assignment statement node.
func (p *Parser) parseExpressionOrAssignStatement() (ast.Stmt, error) {
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMICOLON, "expected ';' after expression statement"); err != nil {
		return nil, err
	}
	return p.lowerAssignStmt(expr), nil
}

// lowerAssignStmt converts a top-level assignExpr produced by
// parseAssign into its typed statement form; any other expression is
// wrapped as an ExprStmt evaluated for side effect.
func (p *Parser) lowerAssignStmt(expr ast.Expr) ast.Stmt {
	if a, ok := expr.(*assignExpr); ok {
		switch target := a.target.(type) {
		case *ast.IdentExpr:
			return &ast.AssignStmt{Base: base(a.Position()), Name: target.Name, Value: a.value}
		case *ast.DereferenceExpr:
			return &ast.SetAtPointerStmt{Base: base(a.Position()), Pointer: target.Pointer, Offset: target.Offset, Value: a.value}
		case *ast.FieldAccessExpr:
			return &ast.WriteFieldStmt{Base: base(a.Position()), Object: target.Object, Field: target.Field, Value: a.value}
		case *ast.RegisterExpr:
			return &ast.AssignRegisterStmt{Base: base(a.Position()), Register: target.Name, Value: a.value}
		}
	}
	return &ast.ExprStmt{Base: base(expr.Position()), X: expr}
}

// ---- expressions ----

// assignExpr is an internal-only carrier produced by parseAssign: it
// is never handed to the generator. parseExpression's statement-level
// caller lowers it into the matching typed *Stmt (AssignStmt,
// SetAtPointerStmt, WriteFieldStmt, AssignRegisterStmt); nested uses
// inside a larger expression are rejected at generation time the same
// way the reference implementation restricted assignment to statement
// position in practice.
type assignExpr struct {
	ast.Expr
	target ast.Expr
	value  ast.Expr
}

func (p *Parser) parseExpression() (ast.Expr, error) {
	return p.parseAssign()
}

func (p *Parser) parseAssign() (ast.Expr, error) {
	left, err := p.parseBitwise()
	if err != nil {
		return nil, err
	}

	for p.match(token.ASSIGN) {
		switch left.(type) {
		case *ast.IdentExpr, *ast.DereferenceExpr, *ast.FieldAccessExpr, *ast.RegisterExpr:
			value, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			left = &assignExpr{Expr: left, target: left, value: value}
		default:
			return nil, p.errorfAt(left.Position(), "invalid assignment target")
		}
	}
	return left, nil
}

func (p *Parser) parseBitwise() (ast.Expr, error) {
	left, err := p.parseOrAnd()
	if err != nil {
		return nil, err
	}
	for p.match(token.CARET, token.PIPE, token.AMP) {
		op := p.previous().Kind
		right, err := p.parseOrAnd()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Base: base(left.Position()), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseOrAnd() (ast.Expr, error) {
	left, err := p.parseEquals()
	if err != nil {
		return nil, err
	}
	for p.match(token.AND, token.OR, token.PERCENT) {
		op := p.previous().Kind
		right, err := p.parseEquals()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{Base: base(left.Position()), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseEquals() (ast.Expr, error) {
	left, err := p.parseGreater()
	if err != nil {
		return nil, err
	}
	for p.match(token.EQUALS, token.NOTEQUALS) {
		op := p.previous().Kind
		right, err := p.parseGreater()
		if err != nil {
			return nil, err
		}
		if ln, lok := left.(*ast.NumberExpr); lok {
			if rn, rok := right.(*ast.NumberExpr); rok {
				var v int64
				if op == token.EQUALS {
					v = boolToInt64(ln.Value == rn.Value)
				} else {
					v = boolToInt64(ln.Value != rn.Value)
				}
				left = &ast.NumberExpr{Base: base(left.Position()), Value: v}
				continue
			}
		}
		left = &ast.BinaryExpr{Base: base(left.Position()), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseGreater() (ast.Expr, error) {
	left, err := p.parseGreaterEquals()
	if err != nil {
		return nil, err
	}
	for p.match(token.GREATER, token.LOWER) {
		op := p.previous().Kind
		right, err := p.parseGreaterEquals()
		if err != nil {
			return nil, err
		}
		if ln, lok := left.(*ast.NumberExpr); lok {
			if rn, rok := right.(*ast.NumberExpr); rok {
				var v int64
				if op == token.GREATER {
					v = boolToInt64(ln.Value > rn.Value)
				} else {
					v = boolToInt64(ln.Value < rn.Value)
				}
				left = &ast.NumberExpr{Base: base(left.Position()), Value: v}
				continue
			}
		}
		left = &ast.BinaryExpr{Base: base(left.Position()), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseGreaterEquals() (ast.Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.match(token.GREATEREQUALS, token.LOWEREQUALS) {
		op := p.previous().Kind
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if ln, lok := left.(*ast.NumberExpr); lok {
			if rn, rok := right.(*ast.NumberExpr); rok {
				var v int64
				if op == token.GREATEREQUALS {
					v = boolToInt64(ln.Value >= rn.Value)
				} else {
					v = boolToInt64(ln.Value <= rn.Value)
				}
				left = &ast.NumberExpr{Base: base(left.Position()), Value: v}
				continue
			}
		}
		left = &ast.BinaryExpr{Base: base(left.Position()), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseTerm() (ast.Expr, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.match(token.PLUS, token.MINUS) {
		op := p.previous().Kind
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		if ln, lok := left.(*ast.NumberExpr); lok {
			if rn, rok := right.(*ast.NumberExpr); rok {
				var v int64
				if op == token.PLUS {
					v = ln.Value + rn.Value
				} else {
					v = ln.Value - rn.Value
				}
				left = &ast.NumberExpr{Base: base(left.Position()), Value: v}
				continue
			}
		}
		left = &ast.BinaryExpr{Base: base(left.Position()), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseFactor() (ast.Expr, error) {
	left, err := p.parseCall()
	if err != nil {
		return nil, err
	}
	for p.match(token.STAR, token.SLASH) {
		op := p.previous().Kind
		right, err := p.parseCall()
		if err != nil {
			return nil, err
		}
		if ln, lok := left.(*ast.NumberExpr); lok {
			if rn, rok := right.(*ast.NumberExpr); rok {
				var v int64
				if op == token.STAR {
					v = ln.Value * rn.Value
				} else {
					v = ln.Value / rn.Value
				}
				left = &ast.NumberExpr{Base: base(left.Position()), Value: v}
				continue
			}
		}
		left = &ast.BinaryExpr{Base: base(left.Position()), Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *Parser) parseCall() (ast.Expr, error) {
	left, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.match(token.LPAREN):
			callPos := p.previous().Pos
			var args []ast.Expr
			if !p.check(token.RPAREN) {
				for {
					a, err := p.parseExpression()
					if err != nil {
						return nil, err
					}
					args = append(args, a)
					if !p.match(token.COMMA) {
						break
					}
				}
			}
			if _, err := p.consume(token.RPAREN, "expected ')' after function call arguments"); err != nil {
				return nil, err
			}
			left = &ast.CallExpr{Base: base(callPos), Callee: left, Args: args}

		case p.match(token.LBRACKET):
			bracketPos := p.previous().Pos
			offset, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if _, err := p.consume(token.RBRACKET, "expected ']' after pointer dereference offset"); err != nil {
				return nil, err
			}
			left = &ast.DereferenceExpr{Base: base(bracketPos), Pointer: left, Offset: offset}

		case p.match(token.DOT):
			field, err := p.consume(token.IDENTIFIER, "expected field name")
			if err != nil {
				return nil, err
			}
			left = &ast.FieldAccessExpr{Base: pos(field), Object: left, Field: field.Lexeme}

		default:
			return left, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	switch {
	case p.match(token.NUMBER):
		tok := p.previous()
		n, convErr := strconv.ParseInt(tok.Lexeme, 10, 64)
		if convErr != nil {
			return nil, p.errorfAt(tok.Pos, "invalid number %q", tok.Lexeme)
		}
		return &ast.NumberExpr{Base: pos(tok), Value: n}, nil

	case p.match(token.CHAR):
		tok := p.previous()
		v, err := decodeCharLiteral(tok)
		if err != nil {
			return nil, err
		}
		return &ast.NumberExpr{Base: pos(tok), Value: int64(v)}, nil

	case p.match(token.STRING):
		tok := p.previous()
		return &ast.StringExpr{Base: pos(tok), Value: tok.Lexeme}, nil

	case p.match(token.IDENTIFIER):
		tok := p.previous()
		return &ast.IdentExpr{Base: pos(tok), Name: tok.Lexeme}, nil

	case p.match(token.LPAREN):
		if castType, ok, err := p.matchType(); err != nil {
			return nil, err
		} else if ok {
			if _, err := p.consume(token.RPAREN, "expected ')' after cast type"); err != nil {
				return nil, err
			}
			x, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			return &ast.CastExpr{Base: base(x.Position()), Type: castType, X: x}, nil
		}
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RPAREN, "expected ')' after expression"); err != nil {
			return nil, err
		}
		return expr, nil

	case p.match(token.MINUS):
		minusPos := p.previous().Pos
		x, err := p.parseCall()
		if err != nil {
			return nil, err
		}
		return &ast.BinaryExpr{Base: base(minusPos), Op: token.MINUS, Left: &ast.NumberExpr{Base: base(minusPos), Value: 0}, Right: x}, nil

	case p.match(token.AND):
		// `and` as a prefix (rather than the `a and b` infix handled in
		// parseOrAnd) denotes address-of, same as `&`.
		name, err := p.consume(token.IDENTIFIER, "expected variable name")
		if err != nil {
			return nil, err
		}
		return &ast.AddressOfExpr{Base: pos(name), Name: name.Lexeme}, nil

	case p.match(token.STAR):
		starPos := p.previous().Pos
		x, err := p.parseBitwise()
		if err != nil {
			return nil, err
		}
		return &ast.DereferenceExpr{Base: base(starPos), Pointer: x, Offset: &ast.NumberExpr{Base: base(starPos), Value: 0}}, nil

	case p.match(token.BANG):
		bangPos := p.previous().Pos
		x, err := p.parseBitwise()
		if err != nil {
			return nil, err
		}
		return &ast.NegateExpr{Base: base(bangPos), X: x}, nil

	case p.match(token.TRUE):
		return &ast.NumberExpr{Base: pos(p.previous()), Value: 1}, nil

	case p.match(token.FALSE):
		return &ast.NumberExpr{Base: pos(p.previous()), Value: 0}, nil

	case p.match(token.RES):
		return p.parseReserveExpr()

	case p.match(token.AMP):
		name, err := p.consume(token.IDENTIFIER, "expected variable name")
		if err != nil {
			return nil, err
		}
		return &ast.AddressOfExpr{Base: pos(name), Name: name.Lexeme}, nil

	case p.match(token.SIZEOF):
		sizeofPos := p.previous().Pos
		if _, err := p.consume(token.LPAREN, "expected '(' after sizeof keyword"); err != nil {
			return nil, err
		}
		if stype, ok, err := p.matchType(); err != nil {
			return nil, err
		} else if ok {
			if _, err := p.consume(token.RPAREN, "expected ')' after sizeof type"); err != nil {
				return nil, err
			}
			return &ast.SizeofTypeExpr{Base: base(sizeofPos), Type: stype}, nil
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RPAREN, "expected ')' after sizeof value"); err != nil {
			return nil, err
		}
		return &ast.SizeofExpr{Base: base(sizeofPos), X: value}, nil

	case p.match(token.NEW):
		name, err := p.consume(token.IDENTIFIER, "expected class name")
		if err != nil {
			return nil, err
		}
		var args []ast.Expr
		if p.match(token.LPAREN) {
			if !p.check(token.RPAREN) {
				for {
					a, err := p.parseExpression()
					if err != nil {
						return nil, err
					}
					args = append(args, a)
					if !p.match(token.COMMA) {
						break
					}
				}
			}
			if _, err := p.consume(token.RPAREN, "expected ')' after initializer arguments"); err != nil {
				return nil, err
			}
		}
		return &ast.NewExpr{Base: pos(name), ClassName: name.Lexeme, Args: args}, nil

	case p.match(token.REGISTER):
		tok := p.previous()
		return &ast.RegisterExpr{Base: pos(tok), Name: tok.Lexeme[1:]}, nil

	default:
		return nil, p.errorfAt(p.peek().Pos, "expected expression")
	}
}

func (p *Parser) parseReserveExpr() (ast.Expr, error) {
	resPos := p.previous().Pos
	resType, err := p.consumeType("expected reserve type")
	if err != nil {
		return nil, err
	}

	if p.match(token.LBRACKET) {
		var values []ast.Expr
		if !p.check(token.RBRACKET) {
			for {
				v, err := p.parseConstant()
				if err != nil {
					return nil, err
				}
				values = append(values, v)
				if !p.match(token.COMMA) {
					break
				}
			}
		}
		if _, err := p.consume(token.RBRACKET, "expected ']' after reserve initial values"); err != nil {
			return nil, err
		}
		return &ast.ReserveInitExpr{Base: base(resPos), Type: resType, Values: values}, nil
	}

	countTok, err := p.consume(token.NUMBER, "expected reserve count")
	if err != nil {
		return nil, err
	}
	count, convErr := strconv.Atoi(countTok.Lexeme)
	if convErr != nil {
		return nil, p.errorfAt(countTok.Pos, "invalid reserve count %q", countTok.Lexeme)
	}
	return &ast.ReserveUninitExpr{Base: base(resPos), Type: resType, Count: count}, nil
}

// consumeNumConstant parses a compile-time-constant integer used in a
// `case` label: a number literal, a char literal, or `EnumName.Member`.
func (p *Parser) consumeNumConstant(errMsg string) (int64, error) {
	if p.match(token.NUMBER) {
		tok := p.previous()
		n, convErr := strconv.ParseInt(tok.Lexeme, 10, 64)
		if convErr != nil {
			return 0, p.errorfAt(tok.Pos, "invalid number %q", tok.Lexeme)
		}
		return n, nil
	}
	if p.match(token.CHAR) {
		v, err := decodeCharLiteral(p.previous())
		if err != nil {
			return 0, err
		}
		return int64(v), nil
	}
	if p.match(token.IDENTIFIER) {
		enumName := p.previous()
		if p.match(token.DOT) {
			field, err := p.consume(token.IDENTIFIER, "expected field name after '.'")
			if err != nil {
				return 0, err
			}
			if members, ok := p.enumData[enumName.Lexeme]; ok {
				if v, ok := members[field.Lexeme]; ok {
					return v, nil
				}
			}
		}
	}
	return 0, p.errorfAt(p.peek().Pos, "%s", errMsg)
}

// parseConstant parses the restricted constant grammar accepted inside
// a `res type[...]` initializer list.
func (p *Parser) parseConstant() (ast.Expr, error) {
	switch {
	case p.match(token.NUMBER):
		tok := p.previous()
		n, convErr := strconv.ParseInt(tok.Lexeme, 10, 64)
		if convErr != nil {
			return nil, p.errorfAt(tok.Pos, "invalid number %q", tok.Lexeme)
		}
		return &ast.NumberExpr{Base: pos(tok), Value: n}, nil

	case p.match(token.STRING):
		tok := p.previous()
		return &ast.StringExpr{Base: pos(tok), Value: tok.Lexeme}, nil

	case p.match(token.CHAR):
		tok := p.previous()
		v, err := decodeCharLiteral(tok)
		if err != nil {
			return nil, err
		}
		return &ast.NumberExpr{Base: pos(tok), Value: int64(v)}, nil

	case p.match(token.TRUE):
		return &ast.NumberExpr{Base: pos(p.previous()), Value: 1}, nil

	case p.match(token.FALSE):
		return &ast.NumberExpr{Base: pos(p.previous()), Value: 0}, nil

	case p.match(token.RES):
		return p.parseReserveExpr()

	default:
		return nil, p.errorfAt(p.peek().Pos, "expected constant expression")
	}
}

// decodeCharLiteral strips the surrounding quotes from a CHAR token
// and resolves any escape via token.DecodeCharEscape, falling back to
// the single non-escaped byte itself.
func decodeCharLiteral(tok token.Token) (byte, error) {
	body := tok.Lexeme[1 : len(tok.Lexeme)-1]
	if len(body) == 2 && body[0] == '\\' {
		if v, ok := token.DecodeCharEscape(body[1]); ok {
			return v, nil
		}
		return body[1], nil
	}
	if len(body) == 1 {
		return body[0], nil
	}
	return 0, diag.New(diag.Parse, tok.Pos, "invalid char literal %q", tok.Lexeme)
}

func boolToInt64(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// pos/base build an ast.Base from a token or a bare Position, kept as
// tiny helpers so every node literal above reads the same way.
func pos(tok token.Token) ast.Base {
	return ast.Base{Pos: tok.Pos}
}

func base(p token.Position) ast.Base {
	return ast.Base{Pos: p}
}

