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

// Package scanner turns source text into a flat token stream using one
// master regular expression built from an ordered table of per-token
// patterns, the same table-driven technique as the reference scanner
// this package reimplements: earlier entries in the table win ties, so
// keywords and multi-character operators are listed ahead of the
// generic identifier/operator patterns they would otherwise be
// shadowed by.
package scanner

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vx-lang/hazc/internal/diag"
	"github.com/vx-lang/hazc/internal/token"
)

type tableEntry struct {
	name    string // regexp group name, "k0".."kN"
	kind    token.Kind
	ignore  bool // matched text is discarded (comments)
	newline bool // matched text is a single newline
}

var (
	entries      []tableEntry
	masterRegexp *regexp.Regexp
)

func addEntry(kind token.Kind, pattern string) string {
	name := fmt.Sprintf("k%d", len(entries))
	entries = append(entries, tableEntry{name: name, kind: kind})
	return fmt.Sprintf("(?P<%s>%s)", name, pattern)
}

func addSpecial(label, pattern string, newline bool) string {
	name := fmt.Sprintf("k%d", len(entries))
	entries = append(entries, tableEntry{name: name, ignore: !newline, newline: newline})
	return fmt.Sprintf("(?P<%s>%s)", name, pattern)
}

func init() {
	var parts []string
	parts = append(parts, addSpecial("NEWLINE", `\n`, true))
	parts = append(parts, addSpecial("IGNORE", `//[^\n]*`, false))

	parts = append(parts, addEntry(token.NUMBER, `[0-9]+`))

	parts = append(parts, addEntry(token.STAR, `\*`))
	parts = append(parts, addEntry(token.PLUS, `\+`))
	parts = append(parts, addEntry(token.ARROW, `->`))
	parts = append(parts, addEntry(token.MINUS, `-`))
	parts = append(parts, addEntry(token.SLASH, `/`))
	parts = append(parts, addEntry(token.LPAREN, `\(`))
	parts = append(parts, addEntry(token.RPAREN, `\)`))
	parts = append(parts, addEntry(token.LBRACKET, `\[`))
	parts = append(parts, addEntry(token.RBRACKET, `\]`))
	parts = append(parts, addEntry(token.LBRACE, `\{`))
	parts = append(parts, addEntry(token.RBRACE, `\}`))
	parts = append(parts, addEntry(token.COMMA, `,`))
	parts = append(parts, addEntry(token.ELLIPSIS, `\.\.\.`))
	parts = append(parts, addEntry(token.DOT, `\.`))
	parts = append(parts, addEntry(token.SEMICOLON, `;`))
	parts = append(parts, addEntry(token.COLON, `:`))
	parts = append(parts, addEntry(token.OR, `\|\||\bor\b`))
	parts = append(parts, addEntry(token.AND, `&&|\band\b`))
	parts = append(parts, addEntry(token.CARET, `\^`))
	parts = append(parts, addEntry(token.PIPE, `\|`))
	parts = append(parts, addEntry(token.AMP, `&`))
	parts = append(parts, addEntry(token.NOTEQUALS, `!=`))
	parts = append(parts, addEntry(token.BANG, `!`))
	parts = append(parts, addEntry(token.QUESTION, `\?`))
	parts = append(parts, addEntry(token.EQUALS, `==`))
	parts = append(parts, addEntry(token.ASSIGN, `=`))
	parts = append(parts, addEntry(token.GREATEREQUALS, `>=`))
	parts = append(parts, addEntry(token.GREATER, `>`))
	parts = append(parts, addEntry(token.LOWEREQUALS, `<=`))
	parts = append(parts, addEntry(token.LOWER, `<`))

	parts = append(parts, addEntry(token.U8, `\bu8\b`))
	parts = append(parts, addEntry(token.U16, `\bu16\b`))
	parts = append(parts, addEntry(token.U32, `\bu32\b`))
	parts = append(parts, addEntry(token.U64, `\bu64\b`))
	parts = append(parts, addEntry(token.I8, `\bi8\b`))
	parts = append(parts, addEntry(token.I16, `\bi16\b`))
	parts = append(parts, addEntry(token.I32, `\bi32\b`))
	parts = append(parts, addEntry(token.I64, `\bi64\b`))
	parts = append(parts, addEntry(token.PTR, `\bptr\b`))
	parts = append(parts, addEntry(token.PROC, `\bproc\b`))
	parts = append(parts, addEntry(token.STRUCT, `\bstruct\b`))
	parts = append(parts, addEntry(token.CLASS, `\bclass\b`))
	parts = append(parts, addEntry(token.ENUM, `\benum\b`))

	parts = append(parts, addEntry(token.LOCAL, `\blocal\b`))
	parts = append(parts, addEntry(token.BREAK, `\bbreak\b`))
	parts = append(parts, addEntry(token.EXTERNAL, `\bexternal\b`))
	parts = append(parts, addEntry(token.RETURN, `\breturn\b`))
	parts = append(parts, addEntry(token.NEW, `\bnew\b`))
	parts = append(parts, addEntry(token.TRUE, `\btrue\b`))
	parts = append(parts, addEntry(token.FALSE, `\bfalse\b`))
	parts = append(parts, addEntry(token.WHILE, `\bwhile\b`))
	parts = append(parts, addEntry(token.IF, `\bif\b`))
	parts = append(parts, addEntry(token.ELSE, `\belse\b`))
	parts = append(parts, addEntry(token.VAR, `\bvar\b`))
	parts = append(parts, addEntry(token.STDCALL, `\bstdcall\b`))
	parts = append(parts, addEntry(token.RES, `\bres\b`))
	parts = append(parts, addEntry(token.SWITCH, `\bswitch\b`))
	parts = append(parts, addEntry(token.CASE, `\bcase\b`))
	parts = append(parts, addEntry(token.DEFAULT, `\bdefault\b`))
	parts = append(parts, addEntry(token.PUSH, `\bpush\b`))
	parts = append(parts, addEntry(token.POP, `\bpop\b|\bdrop\b`))
	parts = append(parts, addEntry(token.CALL, `\bcall\b`))
	parts = append(parts, addEntry(token.ASM, `\basm\b`))

	parts = append(parts, addEntry(token.REGISTER, `%rsp\b|%rbp\b|%rax\b|%rbx\b|%rcx\b|%rdx\b|%rdi\b|%rsi\b|%r8\b|%r9\b|%r10\b|%r11\b|%r12\b|%r13\b|%r14\b|%r15\b`))
	parts = append(parts, addEntry(token.DEFINE, `%define\b`))
	parts = append(parts, addEntry(token.INCLUDE, `%include\b`))
	parts = append(parts, addEntry(token.PERCENT, `%`))
	parts = append(parts, addEntry(token.SIZEOF, `\bsizeof\b`))

	parts = append(parts, addEntry(token.STRING, `"(?:[^"\\]|\\.)*"`))
	parts = append(parts, addEntry(token.CHAR, `'\\0'|'\\n'|'\\r'|'\\''|'\\t'|'\\\\'|'[ -&(-~]'`))
	parts = append(parts, addEntry(token.IDENTIFIER, `[a-zA-Z_][a-zA-Z0-9_]*`))

	masterRegexp = regexp.MustCompile("^(?:" + strings.Join(parts, "|") + ")")
}

// Scanner produces a single-pass token stream from source text.
type Scanner struct {
	src  string
	file string
	pos  int
	line int
	col  int
}

// New returns a Scanner positioned at the start of src.
func New(src, file string) *Scanner {
	return &Scanner{src: src, file: file, line: 1, col: 1}
}

func (s *Scanner) position() token.Position {
	return token.Position{File: s.file, Line: s.line, Col: s.col}
}

// Next returns the next token, or io.EOF-equivalent token.EOF when the
// input is exhausted. Whitespace (other than newlines, which advance
// line/col bookkeeping) and `//` comments are skipped transparently.
func (s *Scanner) Next() (token.Token, error) {
	for {
		if s.pos >= len(s.src) {
			return token.Token{Kind: token.EOF, Pos: s.position()}, nil
		}

		c := s.src[s.pos]
		if c == ' ' || c == '\t' || c == '\r' {
			s.pos++
			s.col++
			continue
		}

		loc := masterRegexp.FindStringSubmatchIndex(s.src[s.pos:])
		if loc == nil {
			return token.Token{}, diag.New(diag.Scan, s.position(), "unexpected character %q", c)
		}

		matchEnd := loc[1]
		lexeme := s.src[s.pos : s.pos+matchEnd]
		idx := groupIndex(loc)
		entry := entries[idx]

		if entry.newline {
			s.pos += matchEnd
			s.line++
			s.col = 1
			continue
		}
		if entry.ignore {
			s.pos += matchEnd
			s.col += matchEnd
			continue
		}

		tok := token.Token{Kind: entry.kind, Lexeme: lexeme, Pos: s.position()}
		s.pos += matchEnd
		s.col += matchEnd
		return tok, nil
	}
}

// groupIndex finds which named alternative matched from a
// FindStringSubmatchIndex result: entries are pairs (start,end) per
// group in declaration order, following the whole-match pair.
func groupIndex(loc []int) int {
	for i := 1; i < len(loc)/2; i++ {
		if loc[2*i] != -1 {
			return i - 1
		}
	}
	return -1
}

// Tokens runs the scanner to completion, returning every token
// including a trailing token.EOF.
func Tokens(src, file string) ([]token.Token, error) {
	s := New(src, file)
	var out []token.Token
	for {
		tok, err := s.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out, nil
		}
	}
}
