package parser

import (
	"fmt"
	"strconv"

	"github.com/xplshn/jmmc/pkg/ast"
	"github.com/xplshn/jmmc/pkg/config"
	"github.com/xplshn/jmmc/pkg/lexer"
	"github.com/xplshn/jmmc/pkg/report"
	"github.com/xplshn/jmmc/pkg/token"
)

// Parser holds the state for the parsing process
type Parser struct {
	tokens   []token.Token
	pos      int
	current  token.Token
	previous token.Token
	cfg      *config.Config
}

// bailout carries the first syntax error up to Parse
type bailout struct{ r *report.Report }

// NewParser creates and initializes a new Parser from a token stream ending in EOF
func NewParser(tokens []token.Token, cfg *config.Config) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		tokens = append(tokens, token.Token{Type: token.EOF})
	}
	return &Parser{tokens: tokens, current: tokens[0], cfg: cfg}
}

// ParseSource lexes and parses a single compilation unit.
func ParseSource(src string, fileIndex int, cfg *config.Config) (*ast.Node, error) {
	toks := lexer.NewLexer([]rune(src), fileIndex).Tokenize()
	return NewParser(toks, cfg).Parse()
}

// Parse builds the tree for one compilation unit. The returned error is a
// *report.Report at the syntax stage.
func (p *Parser) Parse() (root *ast.Node, err error) {
	for _, tok := range p.tokens {
		if tok.Type == token.Illegal {
			r := report.New(report.Syntax, tok.Line, tok.Column, "%s", tok.Value)
			return nil, &r
		}
	}
	defer func() {
		if rec := recover(); rec != nil {
			b, ok := rec.(bailout)
			if !ok {
				panic(rec)
			}
			root, err = nil, b.r
		}
	}()
	return p.parseProgram(), nil
}

// Parser helpers
func (p *Parser) advance() {
	if p.pos < len(p.tokens)-1 {
		p.previous = p.current
		p.pos++
		p.current = p.tokens[p.pos]
	}
}

func (p *Parser) peek() token.Token {
	if p.pos+1 < len(p.tokens) {
		return p.tokens[p.pos+1]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *Parser) check(tokType token.Type) bool {
	return p.current.Type == tokType
}

func (p *Parser) match(tokType token.Type) bool {
	if !p.check(tokType) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(tokType token.Type, message string) token.Token {
	if p.check(tokType) {
		p.advance()
		return p.previous
	}
	p.fail(p.current, "%s", message)
	return token.Token{}
}

func (p *Parser) expectIdent(what string) token.Token {
	return p.expect(token.Ident, fmt.Sprintf("Expected %s, found '%s'.", what, describe(p.current)))
}

func (p *Parser) fail(tok token.Token, format string, args ...interface{}) {
	r := report.New(report.Syntax, tok.Line, tok.Column, format, args...)
	panic(bailout{&r})
}

func describe(tok token.Token) string {
	if tok.Value != "" {
		return tok.Value
	}
	return tok.Type.String()
}

// Declarations

func (p *Parser) parseProgram() *ast.Node {
	tok := p.current
	var imports []*ast.Node
	for p.check(token.Import) {
		imports = append(imports, p.parseImport())
	}
	if !p.check(token.Class) {
		p.fail(p.current, "Expected a class declaration, found '%s'.", describe(p.current))
	}
	class := p.parseClass()
	if !p.check(token.EOF) {
		p.fail(p.current, "Unexpected '%s' after the class declaration.", describe(p.current))
	}
	return ast.NewProgram(tok, imports, class)
}

func (p *Parser) parseImport() *ast.Node {
	tok := p.expect(token.Import, "Expected 'import'.")
	path := []string{p.expectIdent("an import name").Value}
	for p.match(token.Dot) {
		path = append(path, p.expectIdent("an import name").Value)
	}
	p.expect(token.Semi, "Expected ';' after import.")
	return ast.NewImport(tok, path)
}

func (p *Parser) parseClass() *ast.Node {
	p.expect(token.Class, "Expected 'class'.")
	nameTok := p.expectIdent("a class name")
	super := ""
	if p.match(token.Extends) {
		super = p.expectIdent("a superclass name").Value
	}
	p.expect(token.LBrace, "Expected '{' after class header.")

	var fields, methods []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		tok := p.current
		isPublic := p.match(token.Public)
		isStatic := p.match(token.Static)
		typ := p.parseType()
		nameTok := p.expectIdent("a member name")
		if p.check(token.LParen) || isPublic || isStatic {
			methods = append(methods, p.parseMethodRest(tok, nameTok, typ, isPublic, isStatic))
			continue
		}
		fields = append(fields, p.parseVarDeclRest(tok, nameTok, typ))
	}
	p.expect(token.RBrace, "Expected '}' at the end of the class body.")
	return ast.NewClassDecl(nameTok, nameTok.Value, super, fields, methods)
}

func (p *Parser) parseType() ast.Type {
	switch {
	case p.match(token.Int):
		if p.match(token.LBracket) {
			p.expect(token.RBracket, "Expected ']' in array type.")
			return ast.TypeIntArray
		}
		return ast.TypeInt
	case p.match(token.Boolean):
		return ast.TypeBool
	case p.match(token.Void):
		return ast.TypeVoid
	case p.match(token.StringKeyword):
		if p.match(token.LBracket) {
			p.expect(token.RBracket, "Expected ']' in array type.")
			return ast.TypeStringArray
		}
		return ast.Type{Name: "String"}
	case p.match(token.Ident):
		if p.check(token.LBracket) {
			p.fail(p.current, "Only int arrays are supported.")
		}
		return ast.Type{Name: p.previous.Value}
	}
	p.fail(p.current, "Expected a type, found '%s'.", describe(p.current))
	return ast.Type{}
}

func (p *Parser) parseVarDeclRest(tok, nameTok token.Token, typ ast.Type) *ast.Node {
	if typ == ast.TypeVoid {
		p.fail(tok, "Variable '%s' cannot be void.", nameTok.Value)
	}
	var init *ast.Node
	if p.match(token.Eq) {
		init = p.parseExpr()
	}
	p.expect(token.Semi, "Expected ';' after variable declaration.")
	return ast.NewVarDecl(nameTok, nameTok.Value, typ, init)
}

func (p *Parser) parseMethodRest(tok, nameTok token.Token, ret ast.Type, isPublic, isStatic bool) *ast.Node {
	p.expect(token.LParen, "Expected '(' after method name.")
	var params []*ast.Node
	if !p.check(token.RParen) {
		for {
			ptok := p.current
			ptyp := p.parseType()
			pname := p.expectIdent("a parameter name")
			if ptyp == ast.TypeVoid {
				p.fail(ptok, "Parameter '%s' cannot be void.", pname.Value)
			}
			params = append(params, ast.NewParam(pname, pname.Value, ptyp))
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen, "Expected ')' after parameters.")

	if isStatic {
		if nameTok.Value != "main" || ret != ast.TypeVoid || len(params) != 1 || params[0].Data.(ast.ParamNode).Type != ast.TypeStringArray {
			p.fail(tok, "Only 'static void main(String[] args)' may be static.")
		}
	}

	p.expect(token.LBrace, "Expected '{' before method body.")
	var body []*ast.Node
	for !p.check(token.RBrace) && !p.check(token.EOF) {
		if p.atVarDecl() {
			dtok := p.current
			typ := p.parseType()
			body = append(body, p.parseVarDeclRest(dtok, p.expectIdent("a variable name"), typ))
			continue
		}
		body = append(body, p.parseStmt())
	}
	p.expect(token.RBrace, "Expected '}' at the end of the method body.")
	return ast.NewMethodDecl(nameTok, nameTok.Value, ret, params, body, isPublic, isStatic)
}

// atVarDecl decides between a declaration and a statement from one token of lookahead.
func (p *Parser) atVarDecl() bool {
	switch p.current.Type {
	case token.Int, token.Boolean, token.StringKeyword:
		return true
	case token.Ident:
		return p.peek().Type == token.Ident
	}
	return false
}

// Statements

func (p *Parser) parseStmt() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.LBrace):
		var stmts []*ast.Node
		for !p.check(token.RBrace) && !p.check(token.EOF) {
			if p.atVarDecl() {
				p.fail(p.current, "Variables must be declared at the start of the method body.")
			}
			stmts = append(stmts, p.parseStmt())
		}
		p.expect(token.RBrace, "Expected '}' after block.")
		return ast.NewBlock(tok, stmts)

	case p.match(token.If):
		p.expect(token.LParen, "Expected '(' after 'if'.")
		cond := p.parseExpr()
		p.expect(token.RParen, "Expected ')' after if condition.")
		thenBody := p.parseStmt()
		var elseBody *ast.Node
		if p.match(token.Else) {
			elseBody = p.parseStmt()
		}
		return ast.NewIf(tok, cond, thenBody, elseBody)

	case p.match(token.While):
		p.expect(token.LParen, "Expected '(' after 'while'.")
		cond := p.parseExpr()
		p.expect(token.RParen, "Expected ')' after while condition.")
		return ast.NewWhile(tok, cond, p.parseStmt())

	case p.match(token.Return):
		var expr *ast.Node
		if !p.check(token.Semi) {
			expr = p.parseExpr()
		}
		p.expect(token.Semi, "Expected ';' after return.")
		return ast.NewReturn(tok, expr)

	case p.check(token.Ident) && p.peek().Type == token.Eq:
		p.advance()
		p.advance()
		rhs := p.parseExpr()
		p.expect(token.Semi, "Expected ';' after assignment.")
		return ast.NewAssign(tok, tok.Value, rhs)
	}

	expr := p.parseExpr()
	if p.match(token.Eq) {
		acc, ok := expr.Data.(ast.ArrayAccessNode)
		if !ok || acc.Array.Type != ast.Ident {
			p.fail(tok, "Invalid assignment target.")
		}
		rhs := p.parseExpr()
		p.expect(token.Semi, "Expected ';' after assignment.")
		return ast.NewArrayAssign(tok, acc.Array.Data.(ast.IdentNode).Name, acc.Index, rhs)
	}
	p.expect(token.Semi, "Expected ';' after expression.")
	return ast.NewExprStmt(tok, expr)
}

// Expression Parsing

func (p *Parser) parseExpr() *ast.Node { return p.parseBinaryExpr(1) }

func (p *Parser) parseBinaryExpr(minPrec int) *ast.Node {
	left := p.parseUnaryExpr()
	for {
		op := p.current
		prec := ast.Precedence(op.Type)
		if prec < minPrec {
			return left
		}
		p.advance()
		right := p.parseBinaryExpr(prec + 1)
		left = ast.NewBinaryOp(op, op.Type, left, right)
	}
}

func (p *Parser) parseUnaryExpr() *ast.Node {
	tok := p.current
	if p.match(token.Not) {
		return ast.NewUnaryOp(tok, token.Not, p.parseUnaryExpr())
	}
	return p.parsePostfixExpr()
}

func (p *Parser) parsePostfixExpr() *ast.Node {
	expr := p.parsePrimaryExpr()
	for {
		tok := p.current
		switch {
		case p.match(token.LBracket):
			index := p.parseExpr()
			p.expect(token.RBracket, "Expected ']' after array index.")
			expr = ast.NewArrayAccess(tok, expr, index)
		case p.match(token.Dot):
			nameTok := p.expectIdent("a method name or 'length'")
			if nameTok.Value == "length" && !p.check(token.LParen) {
				expr = ast.NewLength(nameTok, expr)
				continue
			}
			expr = ast.NewCall(nameTok, expr, nameTok.Value, p.parseArgs())
		default:
			return expr
		}
	}
}

func (p *Parser) parseArgs() []*ast.Node {
	p.expect(token.LParen, "Expected '(' before call arguments.")
	var args []*ast.Node
	if !p.check(token.RParen) {
		for {
			args = append(args, p.parseExpr())
			if !p.match(token.Comma) {
				break
			}
		}
	}
	p.expect(token.RParen, "Expected ')' after call arguments.")
	return args
}

func (p *Parser) parsePrimaryExpr() *ast.Node {
	tok := p.current
	switch {
	case p.match(token.Number):
		val, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil || val > 1<<31-1 {
			p.fail(tok, "Integer literal %s does not fit in an int.", tok.Value)
		}
		return ast.NewIntLit(tok, int32(val))
	case p.match(token.True):
		return ast.NewBoolLit(tok, true)
	case p.match(token.False):
		return ast.NewBoolLit(tok, false)
	case p.match(token.This):
		return ast.NewThis(tok)
	case p.match(token.Ident):
		if p.check(token.LParen) {
			return ast.NewCall(tok, nil, tok.Value, p.parseArgs())
		}
		return ast.NewIdent(tok, tok.Value)
	case p.match(token.New):
		if p.match(token.Int) {
			p.expect(token.LBracket, "Expected '[' after 'new int'.")
			size := p.parseExpr()
			p.expect(token.RBracket, "Expected ']' after array size.")
			return ast.NewNewIntArray(tok, size)
		}
		class := p.expectIdent("a class name after 'new'")
		p.expect(token.LParen, "Expected '(' after class name.")
		p.expect(token.RParen, "Expected ')' after '('.")
		return ast.NewNewObject(tok, class.Value)
	case p.match(token.LParen):
		expr := p.parseExpr()
		p.expect(token.RParen, "Expected ')' after expression.")
		return expr
	}
	p.fail(tok, "Expected an expression, found '%s'.", describe(tok))
	return nil
}
