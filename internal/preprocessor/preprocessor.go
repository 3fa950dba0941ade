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

// Package preprocessor rewrites a token stream before it reaches the
// parser, expanding `%define` macros (object-like and function-like)
// and splicing in `%include`d files. It mirrors the token-stream
// rewriting approach of the reference preprocessor it is grounded on:
// rather than operating on text, it walks already-scanned tokens and
// recursively re-preprocesses macro bodies and included files through
// fresh Preprocessor values that share the same macro table and
// include-once record.
package preprocessor

import (
	"path/filepath"

	"github.com/samber/lo"
	"github.com/vx-lang/hazc/internal/diag"
	"github.com/vx-lang/hazc/internal/scanner"
	"github.com/vx-lang/hazc/internal/token"
)

// Macro is an expansion entry: a (possibly empty) parameter list and
// the token body substituted in its place.
type Macro struct {
	Params []string
	Tokens []token.Token
}

// FileReader loads the contents of an %include target. Production
// code wires os.ReadFile; tests wire an in-memory map.
type FileReader func(path string) (string, error)

// includeSet is the include-once record shared by a Preprocessor and
// every child Preprocessor spawned while expanding it, so a file
// %include'd from two different places (directly, or via a macro
// body, or via another included file) is only ever read once — the
// same semantics as the reference implementation's shared `included`
// list.
type includeSet struct {
	names []string
}

func (s *includeSet) contains(name string) bool {
	return lo.Contains(s.names, name)
}

func (s *includeSet) add(name string) {
	s.names = append(s.names, name)
}

// Preprocessor expands one token stream. Use New for the top-level
// translation unit; child invocations (macro bodies, included files)
// are spawned internally and share state via pointers/maps.
type Preprocessor struct {
	macros      map[string]*Macro
	included    *includeSet
	includeDirs []string
	readFile    FileReader

	toks []token.Token
	pos  int
}

// New returns a top-level Preprocessor. includeDirs is searched in
// order for %include targets; readFile loads a candidate path.
func New(includeDirs []string, readFile FileReader) *Preprocessor {
	return &Preprocessor{
		macros:      map[string]*Macro{},
		included:    &includeSet{},
		includeDirs: includeDirs,
		readFile:    readFile,
	}
}

func (p *Preprocessor) child(toks []token.Token) *Preprocessor {
	return &Preprocessor{
		macros:      p.macros,
		included:    p.included,
		includeDirs: p.includeDirs,
		readFile:    p.readFile,
		toks:        toks,
	}
}

func (p *Preprocessor) peek() token.Token       { return p.toks[p.pos] }
func (p *Preprocessor) available() bool         { return p.peek().Kind != token.EOF }
func (p *Preprocessor) check(k token.Kind) bool { return p.peek().Kind == k }

func (p *Preprocessor) advance() token.Token {
	t := p.peek()
	p.pos++
	return t
}

func (p *Preprocessor) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Preprocessor) consume(k token.Kind, msg string) (token.Token, error) {
	if p.check(k) {
		return p.advance(), nil
	}
	return token.Token{}, diag.New(diag.Preprocess, p.peek().Pos, "%s", msg)
}

func (p *Preprocessor) errorf(pos token.Position, format string, args ...any) error {
	return diag.New(diag.Preprocess, pos, format, args...)
}

// Process expands toks (which must end with a token.EOF sentinel) into
// its fully-macro-expanded, fully-%include-spliced form.
func (p *Preprocessor) Process(toks []token.Token) ([]token.Token, error) {
	p.toks = toks
	p.pos = 0
	return p.run()
}

func (p *Preprocessor) run() ([]token.Token, error) {
	var out []token.Token

	for p.available() {
		tok := p.advance()

		switch tok.Kind {
		case token.DEFINE:
			if err := p.define(tok); err != nil {
				return nil, err
			}

		case token.INCLUDE:
			expanded, err := p.include(tok)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)

		case token.IDENTIFIER:
			expanded, err := p.expandToken(tok)
			if err != nil {
				return nil, err
			}
			out = append(out, expanded...)

		default:
			out = append(out, tok)
		}
	}

	out = append(out, p.toks[len(p.toks)-1]) // trailing EOF
	return out, nil
}

func (p *Preprocessor) define(directive token.Token) error {
	name, err := p.consume(token.IDENTIFIER, "expected macro name")
	if err != nil {
		return err
	}

	var params []string
	if p.match(token.LPAREN) {
		for {
			arg, err := p.consume(token.IDENTIFIER, "expected macro argument")
			if err != nil {
				return err
			}
			params = append(params, arg.Lexeme)
			if !p.match(token.COMMA) {
				break
			}
		}
		if _, err := p.consume(token.RPAREN, "expected ')' for macro"); err != nil {
			return err
		}
	}

	var body []token.Token
	if p.match(token.LBRACKET) {
		for !p.check(token.RBRACKET) {
			if !p.available() {
				return p.errorf(name.Pos, "expected ']' after macro definition")
			}
			body = append(body, p.advance())
		}
		if _, err := p.consume(token.RBRACKET, "expected ']' after macro definition"); err != nil {
			return err
		}
	} else {
		if !p.available() {
			return p.errorf(name.Pos, "expected macro value")
		}
		body = append(body, p.advance())
	}

	if len(body) == 0 {
		return p.errorf(directive.Pos, "empty macro body")
	}

	body = append(body, token.Token{Kind: token.EOF, Pos: body[len(body)-1].Pos})
	preprocessed, err := p.child(body).Process(body)
	if err != nil {
		return err
	}

	p.macros[name.Lexeme] = &Macro{Params: params, Tokens: preprocessed[:len(preprocessed)-1]}
	return nil
}

func (p *Preprocessor) include(directive token.Token) ([]token.Token, error) {
	file, err := p.consume(token.STRING, "expected file name")
	if err != nil {
		return nil, err
	}
	name := file.Lexeme[1 : len(file.Lexeme)-1]

	if p.included.contains(name) {
		return nil, nil
	}

	var code string
	found := false
	for _, dir := range p.includeDirs {
		text, err := p.readFile(filepath.Join(dir, name))
		if err == nil {
			code = text
			found = true
			break
		}
	}
	if !found {
		return nil, p.errorf(directive.Pos, "file '%s' not found", name)
	}
	p.included.add(name)

	toks, err := scanner.Tokens(code, name)
	if err != nil {
		return nil, err
	}
	preprocessed, err := p.child(toks).Process(toks)
	if err != nil {
		return nil, err
	}
	return preprocessed[:len(preprocessed)-1], nil
}

// expandToken substitutes ident if it names a macro (recursing into
// argument expansion for function-like macros), or returns it
// unchanged otherwise.
func (p *Preprocessor) expandToken(ident token.Token) ([]token.Token, error) {
	macro, ok := p.macros[ident.Lexeme]
	if !ok {
		return []token.Token{ident}, nil
	}
	if len(macro.Params) == 0 {
		return macro.Tokens, nil
	}

	var args [][]token.Token
	if p.match(token.LPAREN) {
		opens := 1
		if !p.check(token.RPAREN) {
			for {
				var arg []token.Token
				for !(opens == 1 && p.check(token.COMMA)) && p.available() && opens > 0 {
					tok := p.advance()
					if tok.Kind == token.LPAREN {
						opens++
					}
					if tok.Kind == token.RPAREN {
						opens--
					}
					if opens == 0 {
						break
					}
					if tok.Kind == token.IDENTIFIER {
						expanded, err := p.expandToken(tok)
						if err != nil {
							return nil, err
						}
						arg = append(arg, expanded...)
					} else {
						arg = append(arg, tok)
					}
				}
				args = append(args, arg)
				if len(args) > len(macro.Params) {
					return nil, p.errorf(ident.Pos, "too many arguments passed to macro %q", ident.Lexeme)
				}
				if !p.match(token.COMMA) {
					break
				}
			}
		}
		if opens > 0 {
			return nil, p.errorf(ident.Pos, "unclosed macro arguments")
		}
	}

	var out []token.Token
	for _, bodyTok := range macro.Tokens {
		if bodyTok.Kind == token.IDENTIFIER {
			if idx := lo.IndexOf(macro.Params, bodyTok.Lexeme); idx >= 0 && idx < len(args) {
				out = append(out, args[idx]...)
				continue
			}
		}
		out = append(out, bodyTok)
	}
	return out, nil
}
