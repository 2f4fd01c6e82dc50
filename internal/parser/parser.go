// Package parser implements a hand-written recursive-descent parser for
// Huff source text, producing typed source.File definitions directly
// (spec.md §6 treats the lexer/parser as an external collaborator; this
// package supplements it, as SPEC_FULL.md §4.10 records, mirroring the
// original py_huff PEG grammar rule for rule rather than routing through an
// intermediate untyped concrete syntax tree).
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/huffc-go/huffc/internal/abi"
	"github.com/huffc-go/huffc/internal/ast"
	"github.com/huffc-go/huffc/internal/compileerr"
	"github.com/huffc-go/huffc/internal/lexer"
	"github.com/huffc-go/huffc/internal/opcode"
	"github.com/huffc-go/huffc/internal/source"
)

// Result is one file's parse output, plus any non-fatal warnings (spec.md
// §9 / SPEC_FULL.md §5: an odd-length hex literal is padded, not rejected,
// but is worth surfacing).
type Result struct {
	File     source.File
	Warnings []string
}

// Parser consumes a token stream and builds a source.File.
type Parser struct {
	toks       []lexer.Token
	pos        int
	warnings   []string
	avoidPush0 bool
}

// Parse tokenizes and parses one Huff source file. avoidPush0 matches the
// CLI's --avoid-push0 flag (spec.md §6): when set, a standalone 0x00 literal
// lowers to PUSH1 0x00 instead of PUSH0.
func Parse(src []byte, avoidPush0 bool) (Result, error) {
	toks, err := lexer.Tokenize(src)
	if err != nil {
		return Result{}, compileerr.Wrap(compileerr.KindLexError, err, "%v", err)
	}
	p := &Parser{toks: toks, avoidPush0: avoidPush0}
	f, err := p.parseProgram()
	if err != nil {
		return Result{}, err
	}
	return Result{File: f, Warnings: p.warnings}, nil
}

func (p *Parser) peek() lexer.Token { return p.toks[p.pos] }

func (p *Parser) peekAt(off int) lexer.Token {
	i := p.pos + off
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) at(k lexer.Kind) bool { return p.peek().Kind == k }

func (p *Parser) atIdent(val string) bool {
	t := p.peek()
	return t.Kind == lexer.IDENT && t.Val == val
}

func (p *Parser) expect(k lexer.Kind) (lexer.Token, error) {
	tok := p.peek()
	if tok.Kind != k {
		return tok, p.errorf("expected %s, got %s at line %d col %d", k, tok, tok.Line, tok.Col)
	}
	return p.advance(), nil
}

func (p *Parser) expectIdent(val string) error {
	tok := p.peek()
	if tok.Kind != lexer.IDENT || tok.Val != val {
		return p.errorf("expected %q, got %s at line %d col %d", val, tok, tok.Line, tok.Col)
	}
	p.advance()
	return nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return compileerr.New(compileerr.KindParseError, format, args...)
}

// identifier validates and returns an identifier token's text, rejecting
// opcode names per spec.md §3's shared-namespace rule.
func (p *Parser) identifier() (string, error) {
	tok, err := p.expect(lexer.IDENT)
	if err != nil {
		return "", err
	}
	if opcode.IsName(tok.Val) {
		return "", p.errorf("valid opcode %q cannot be used as an identifier (line %d)", tok.Val, tok.Line)
	}
	return tok.Val, nil
}

func hexToBytes(hexDigits string) ([]byte, bool) {
	odd := len(hexDigits)%2 != 0
	if odd {
		hexDigits = "0" + hexDigits
	}
	out := make([]byte, len(hexDigits)/2)
	for i := 0; i < len(out); i++ {
		hi, ok1 := hexNibble(hexDigits[i*2])
		lo, ok2 := hexNibble(hexDigits[i*2+1])
		if !ok1 || !ok2 {
			return nil, false
		}
		out[i] = hi<<4 | lo
	}
	return out, odd
}

func hexNibble(b byte) (byte, bool) {
	switch {
	case b >= '0' && b <= '9':
		return b - '0', true
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10, true
	case b >= 'A' && b <= 'F':
		return b - 'A' + 10, true
	}
	return 0, false
}

func (p *Parser) parseHexLiteral() ([]byte, error) {
	tok, err := p.expect(lexer.HEX)
	if err != nil {
		return nil, err
	}
	data, odd := hexToBytes(tok.Val)
	if data == nil {
		return nil, p.errorf("malformed hex literal 0x%s at line %d", tok.Val, tok.Line)
	}
	if odd {
		p.warnings = append(p.warnings, fmt.Sprintf("hex literal 0x%s at line %d has an odd number of digits; padded with a leading zero nibble", tok.Val, tok.Line))
	}
	return data, nil
}

// parseProgram parses the whole token stream into a source.File.
func (p *Parser) parseProgram() (source.File, error) {
	var f source.File
	for !p.at(lexer.EOF) {
		if err := p.parseDefinition(&f); err != nil {
			return source.File{}, err
		}
	}
	return f, nil
}

func (p *Parser) parseDefinition(f *source.File) error {
	if p.at(lexer.HASH) && p.peekAt(1).Kind == lexer.IDENT && p.peekAt(1).Val == "include" {
		return p.parseInclude(f)
	}
	if _, err := p.expect(lexer.HASH); err != nil {
		return err
	}
	if err := p.expectIdent("define"); err != nil {
		return err
	}
	kind := p.peek()
	if kind.Kind != lexer.IDENT {
		return p.errorf("expected definition kind after #define at line %d", kind.Line)
	}
	switch kind.Val {
	case "macro", "fn":
		return p.parseMacro(f)
	case "constant":
		return p.parseConstant(f)
	case "table":
		return p.parseTable(f)
	case "function":
		return p.parseFunction(f)
	case "event":
		return p.parseEvent(f)
	case "error":
		return p.parseError(f)
	case "jumptable":
		return p.parseJumpTable(f)
	default:
		return p.errorf("unrecognized #define kind %q at line %d", kind.Val, kind.Line)
	}
}

func (p *Parser) parseInclude(f *source.File) error {
	p.advance() // '#'
	p.advance() // 'include'
	tok, err := p.expect(lexer.STRING)
	if err != nil {
		return err
	}
	f.Includes = append(f.Includes, source.IncludeDef{Path: tok.Val})
	return nil
}

func (p *Parser) parseConstant(f *source.File) error {
	p.advance() // 'constant'
	ident, err := p.identifier()
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.EQUALS); err != nil {
		return err
	}
	if p.atIdent("FREE_STORAGE_POINTER") {
		p.advance()
		if _, err := p.expect(lexer.LPAREN); err != nil {
			return err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return err
		}
		f.Constants = append(f.Constants, source.ConstantDef{Ident: ident, Value: nil})
		return nil
	}
	data, err := p.parseHexLiteral()
	if err != nil {
		return err
	}
	f.Constants = append(f.Constants, source.ConstantDef{Ident: ident, Value: data})
	return nil
}

func (p *Parser) parseTable(f *source.File) error {
	p.advance() // 'table'
	ident, err := p.identifier()
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return err
	}
	data, err := p.parseHexLiteral()
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return err
	}
	f.Tables = append(f.Tables, source.TableDef{Ident: ident, Data: data})
	return nil
}

func (p *Parser) parseJumpTable(f *source.File) error {
	p.advance() // 'jumptable'
	packed := false
	if p.atIdent("__packed") {
		packed = true
		p.advance()
	}
	ident, err := p.identifier()
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return err
	}
	var entries []string
	for !p.at(lexer.RBRACE) {
		e, err := p.identifier()
		if err != nil {
			return err
		}
		entries = append(entries, e)
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return err
	}
	f.JumpTables = append(f.JumpTables, source.JumpTableDef{Ident: ident, Packed: packed, Entries: entries})
	return nil
}

func (p *Parser) parseNumber() (int, error) {
	tok, err := p.expect(lexer.NUMBER)
	if err != nil {
		return 0, err
	}
	n, convErr := strconv.Atoi(tok.Val)
	if convErr != nil {
		return 0, p.errorf("malformed number %q at line %d", tok.Val, tok.Line)
	}
	return n, nil
}

// parseType parses a single `type` node: a primitive, possibly followed by
// array suffixes, or a parenthesized tuple.
func (p *Parser) parseType() (abi.Type, error) {
	var t abi.Type
	if p.at(lexer.LPAREN) {
		components, err := p.parseTuple()
		if err != nil {
			return abi.Type{}, err
		}
		t.Components = components
	} else {
		tok, err := p.expect(lexer.IDENT)
		if err != nil {
			return abi.Type{}, err
		}
		switch tok.Val {
		case "uint", "int":
			hasWidth := p.at(lexer.NUMBER)
			width := 0
			if hasWidth {
				width, err = p.parseNumber()
				if err != nil {
					return abi.Type{}, err
				}
			}
			base, err := abi.NormalizeBase(tok.Val, width, hasWidth)
			if err != nil {
				return abi.Type{}, err
			}
			t.Base = base
		case "bytes":
			hasWidth := p.at(lexer.NUMBER)
			width := 0
			if hasWidth {
				width, err = p.parseNumber()
				if err != nil {
					return abi.Type{}, err
				}
			}
			base, err := abi.NormalizeBase("bytes", width, hasWidth)
			if err != nil {
				return abi.Type{}, err
			}
			t.Base = base
		case "string", "address", "bool":
			t.Base = tok.Val
		default:
			// The lexer keeps a width suffix inside the identifier
			// ("uint256", "bytes32"), so split it off here.
			name := strings.TrimRight(tok.Val, "0123456789")
			if name == tok.Val || (name != "uint" && name != "int" && name != "bytes") {
				return abi.Type{}, p.errorf("unrecognized type %q at line %d", tok.Val, tok.Line)
			}
			width, _ := strconv.Atoi(tok.Val[len(name):])
			base, err := abi.NormalizeBase(name, width, true)
			if err != nil {
				return abi.Type{}, err
			}
			t.Base = base
		}
	}
	for p.at(lexer.LBRACK) {
		p.advance()
		dim := -1
		if p.at(lexer.NUMBER) {
			n, err := p.parseNumber()
			if err != nil {
				return abi.Type{}, err
			}
			if n == 0 {
				return abi.Type{}, p.errorf("array quantifier cannot be 0 at line %d", p.peek().Line)
			}
			dim = n
		}
		if _, err := p.expect(lexer.RBRACK); err != nil {
			return abi.Type{}, err
		}
		t.ArrayDims = append(t.ArrayDims, dim)
	}
	return t, nil
}

// parseTuple parses `(type ident?, type ident?, ...)`.
func (p *Parser) parseTuple() ([]abi.Type, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var types []abi.Type
	for !p.at(lexer.RPAREN) {
		t, err := p.parseType()
		if err != nil {
			return nil, err
		}
		if p.at(lexer.IDENT) && !opcode.IsName(p.peek().Val) {
			t.Name = p.advance().Val
		}
		types = append(types, t)
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return types, nil
}

func (p *Parser) parseFunction(f *source.File) error {
	p.advance() // 'function'
	ident, err := p.identifier()
	if err != nil {
		return err
	}
	inputs, err := p.parseTuple()
	if err != nil {
		return err
	}
	mutTok := p.peek()
	if mutTok.Kind != lexer.IDENT || (mutTok.Val != "view" && mutTok.Val != "nonpayable" && mutTok.Val != "payable" && mutTok.Val != "pure") {
		return p.errorf("expected state mutability, got %s at line %d", mutTok, mutTok.Line)
	}
	p.advance()
	if err := p.expectIdent("returns"); err != nil {
		return err
	}
	outputs, err := p.parseTuple()
	if err != nil {
		return err
	}
	f.Functions = append(f.Functions, source.FunctionDef{Ident: ident, Inputs: inputs, Outputs: outputs, Mutability: mutTok.Val})
	return nil
}

func (p *Parser) parseError(f *source.File) error {
	p.advance() // 'error'
	ident, err := p.identifier()
	if err != nil {
		return err
	}
	inputs, err := p.parseTuple()
	if err != nil {
		return err
	}
	f.Errors = append(f.Errors, source.ErrorDef{Ident: ident, Inputs: inputs})
	return nil
}

func (p *Parser) parseEvent(f *source.File) error {
	p.advance() // 'event'
	ident, err := p.identifier()
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return err
	}
	var args []abi.Type
	for !p.at(lexer.RPAREN) {
		t, err := p.parseType()
		if err != nil {
			return err
		}
		if p.atIdent("indexed") {
			p.advance()
			t.Indexed = true
		}
		if p.at(lexer.IDENT) && !opcode.IsName(p.peek().Val) {
			t.Name = p.advance().Val
		}
		args = append(args, t)
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return err
	}
	f.Events = append(f.Events, source.EventDef{Ident: ident, Args: args})
	return nil
}

// parseMacro parses a full macro or fn definition. `fn` macros are not
// supported per spec.md's Non-goals; they are rejected with ParseError
// rather than silently accepted.
func (p *Parser) parseMacro(f *source.File) error {
	macroType := p.advance().Val // 'macro' or 'fn'
	if macroType != "macro" {
		return p.errorf("macro type %q not supported (line %d)", macroType, p.peek().Line)
	}
	ident, err := p.identifier()
	if err != nil {
		return err
	}
	params, err := p.parseParamList()
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.EQUALS); err != nil {
		return err
	}
	if err := p.expectIdent("takes"); err != nil {
		return err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return err
	}
	if _, err := p.parseNumber(); err != nil {
		return err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return err
	}
	if err := p.expectIdent("returns"); err != nil {
		return err
	}
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return err
	}
	if _, err := p.parseNumber(); err != nil {
		return err
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return err
	}
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return err
	}
	body, err := p.parseMacroBody(params)
	if err != nil {
		return err
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return err
	}
	f.Macros = append(f.Macros, ast.Macro{Ident: ident, Params: params, Body: body})
	return nil
}

func (p *Parser) parseParamList() ([]string, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var params []string
	for !p.at(lexer.RPAREN) {
		name, err := p.identifier()
		if err != nil {
			return nil, err
		}
		params = append(params, name)
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseMacroBody(params []string) ([]ast.MacroElement, error) {
	isParam := make(map[string]bool, len(params))
	for _, pr := range params {
		isParam[pr] = true
	}
	var body []ast.MacroElement
	for !p.at(lexer.RBRACE) && !p.at(lexer.EOF) {
		el, err := p.parseMacroBodyElement()
		if err != nil {
			return nil, err
		}
		if mp, ok := el.(ast.MacroParam); ok && !isParam[mp.Ident] {
			return nil, p.errorf("invalid macro arg %q (not a declared parameter)", mp.Ident)
		}
		body = append(body, el)
	}
	return body, nil
}

// parseMacroBodyElement parses one macro_body_el: dest_definition,
// hex_literal, push_op, macro_arg, const_ref, invocation, or identifier.
func (p *Parser) parseMacroBodyElement() (ast.MacroElement, error) {
	switch {
	case p.at(lexer.HEX):
		data, err := p.parseHexLiteral()
		if err != nil {
			return nil, err
		}
		op, err := opcode.BytesToPush(data, p.avoidPush0)
		if err != nil {
			return nil, err
		}
		return ast.Op{Op: op}, nil

	case p.at(lexer.LT):
		return p.parseMacroArg()

	case p.at(lexer.LBRACK):
		return p.parseConstRef()

	case p.at(lexer.IDENT):
		return p.parseIdentOrInvocationOrLabel()
	}
	tok := p.peek()
	return nil, p.errorf("unrecognized macro body element %s at line %d", tok, tok.Line)
}

func (p *Parser) parseMacroArg() (ast.MacroElement, error) {
	if _, err := p.expect(lexer.LT); err != nil {
		return nil, err
	}
	name, err := p.identifier()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.GT); err != nil {
		return nil, err
	}
	return ast.MacroParam{Ident: name}, nil
}

func (p *Parser) parseConstRef() (ast.MacroElement, error) {
	if _, err := p.expect(lexer.LBRACK); err != nil {
		return nil, err
	}
	name, err := p.identifier()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RBRACK); err != nil {
		return nil, err
	}
	return ast.ConstRef{Ident: name}, nil
}

// isPushMnemonic reports whether s is "pushN" for N in 1..32.
func isPushMnemonic(s string) (int, bool) {
	if len(s) < 5 || s[:4] != "push" {
		return 0, false
	}
	n, err := strconv.Atoi(s[4:])
	if err != nil || n < 1 || n > 32 {
		return 0, false
	}
	return n, true
}

func (p *Parser) parseIdentOrInvocationOrLabel() (ast.MacroElement, error) {
	tok := p.peek()

	if n, ok := isPushMnemonic(tok.Val); ok && p.peekAt(1).Kind == lexer.HEX {
		p.advance() // pushN
		data, err := p.parseHexLiteral()
		if err != nil {
			return nil, err
		}
		op, err := opcode.NewPush(data, n)
		if err != nil {
			return nil, err
		}
		return ast.Op{Op: op}, nil
	}

	p.advance()
	if p.at(lexer.COLON) {
		p.advance()
		if opcode.IsName(tok.Val) {
			return nil, p.errorf("valid opcode %q cannot be a label (line %d)", tok.Val, tok.Line)
		}
		return ast.LabelDef{Ident: tok.Val}, nil
	}
	if p.at(lexer.LPAREN) {
		return p.parseInvocation(tok.Val)
	}
	if op, ok := opcode.Lookup(tok.Val); ok {
		return ast.Op{Op: op}, nil
	}
	return ast.GeneralRef{Ident: tok.Val}, nil
}

func (p *Parser) parseInvocation(ident string) (ast.MacroElement, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var args []ast.MacroElement
	for !p.at(lexer.RPAREN) {
		arg, err := p.parseCallArg()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.at(lexer.COMMA) {
			p.advance()
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	return ast.Invocation{Ident: ident, Args: args}, nil
}

// parseCallArg parses one call_arg: macro_arg, identifier, hex_literal, or
// push_op — never an invocation or label definition.
func (p *Parser) parseCallArg() (ast.MacroElement, error) {
	switch {
	case p.at(lexer.LT):
		return p.parseMacroArg()
	case p.at(lexer.HEX):
		data, err := p.parseHexLiteral()
		if err != nil {
			return nil, err
		}
		op, err := opcode.BytesToPush(data, p.avoidPush0)
		if err != nil {
			return nil, err
		}
		return ast.Op{Op: op}, nil
	case p.at(lexer.IDENT):
		tok := p.peek()
		if n, ok := isPushMnemonic(tok.Val); ok && p.peekAt(1).Kind == lexer.HEX {
			p.advance()
			data, err := p.parseHexLiteral()
			if err != nil {
				return nil, err
			}
			op, err := opcode.NewPush(data, n)
			if err != nil {
				return nil, err
			}
			return ast.Op{Op: op}, nil
		}
		p.advance()
		if op, ok := opcode.Lookup(tok.Val); ok {
			return ast.Op{Op: op}, nil
		}
		return ast.GeneralRef{Ident: tok.Val}, nil
	}
	tok := p.peek()
	return nil, p.errorf("invalid call argument %s at line %d", tok, tok.Line)
}
