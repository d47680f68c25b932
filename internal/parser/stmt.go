package parser

import (
	"github.com/EmilienKia/klang-sub000/internal/ast"
	"github.com/EmilienKia/klang-sub000/internal/token"
)

// parseStatement implements the statement alternation of spec.md §4.2:
// block | return | if-else | while | for | variable_decl | expr_stmt.
// A leading IDENT ':' distinguishes a local variable declaration from an
// expression statement via a bounded tell/seek lookahead.
func (p *Parser) parseStatement() (ast.Statement, error) {
	switch {
	case p.atPunct(token.PLBrace):
		return p.parseBlock()
	case p.atKeyword(token.KwReturn):
		return p.parseReturn()
	case p.atKeyword(token.KwIf):
		return p.parseIfElse()
	case p.atKeyword(token.KwWhile):
		return p.parseWhile()
	case p.atKeyword(token.KwFor):
		return p.parseFor()
	}

	if p.peek().Kind == token.Identifier {
		save := p.tell()
		p.get()
		isDecl := p.atPunct(token.PColon)
		p.seek(save)
		if isDecl {
			start := p.peek().Start
			return p.parseVariableDecl(start, true)
		}
	}

	return p.parseExprStmt()
}

func (p *Parser) parseBlock() (*ast.BlockStmt, error) {
	start := p.peek().Start
	if _, err := p.expectPunct(token.PLBrace, "'{' to open block"); err != nil {
		return nil, err
	}
	var stmts []ast.Statement
	for !p.atPunct(token.PRBrace) {
		if p.peek().Kind == token.EOF {
			return nil, p.fail(0x10020, "unterminated block")
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	p.get() // consume '}'
	return &ast.BlockStmt{
		Span:  ast.Span{Start: start, End: p.prevEnd()},
		Stmts: stmts,
	}, nil
}

func (p *Parser) parseReturn() (ast.Statement, error) {
	start := p.peek().Start
	p.get() // 'return'
	var val ast.Expression
	if !p.atPunct(token.PSemicolon) {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		val = e
	}
	if _, err := p.expectPunct(token.PSemicolon, "';' after return statement"); err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{
		Span:  ast.Span{Start: start, End: p.prevEnd()},
		Value: val,
	}, nil
}

func (p *Parser) parseIfElse() (ast.Statement, error) {
	start := p.peek().Start
	p.get() // 'if'
	if _, err := p.expectPunct(token.PLParen, "'(' after 'if'"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(token.PRParen, "')' after if condition"); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var els ast.Statement
	if p.atKeyword(token.KwElse) {
		p.get()
		e, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		els = e
	}
	return &ast.IfElseStmt{
		Span: ast.Span{Start: start, End: p.prevEnd()},
		Cond: cond,
		Then: then,
		Else: els,
	}, nil
}

func (p *Parser) parseWhile() (ast.Statement, error) {
	start := p.peek().Start
	p.get() // 'while'
	if _, err := p.expectPunct(token.PLParen, "'(' after 'while'"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(token.PRParen, "')' after while condition"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{
		Span: ast.Span{Start: start, End: p.prevEnd()},
		Cond: cond,
		Body: body,
	}, nil
}

// parseFor implements the C-style three-clause header. The first clause
// is either a variable_decl (IDENT ':' type_spec ...) or a bare
// expression, distinguished the same way parseStatement tells a
// variable declaration from an expression statement.
func (p *Parser) parseFor() (ast.Statement, error) {
	start := p.peek().Start
	p.get() // 'for'
	if _, err := p.expectPunct(token.PLParen, "'(' after 'for'"); err != nil {
		return nil, err
	}

	f := &ast.ForStmt{}

	if !p.atPunct(token.PSemicolon) {
		isDecl := false
		if p.peek().Kind == token.Identifier {
			save := p.tell()
			p.get()
			isDecl = p.atPunct(token.PColon)
			p.seek(save)
		}
		if isDecl {
			d, err := p.parseVariableDecl(p.peek().Start, false)
			if err != nil {
				return nil, err
			}
			f.Decl = d
		} else {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			f.Init = e
		}
	}
	if _, err := p.expectPunct(token.PSemicolon, "';' after for-loop init clause"); err != nil {
		return nil, err
	}

	if !p.atPunct(token.PSemicolon) {
		c, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		f.Cond = c
	}
	if _, err := p.expectPunct(token.PSemicolon, "';' after for-loop condition"); err != nil {
		return nil, err
	}

	if !p.atPunct(token.PRParen) {
		s, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		f.Step = s
	}
	if _, err := p.expectPunct(token.PRParen, "')' to close for-loop header"); err != nil {
		return nil, err
	}

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	f.Body = body
	f.Span = ast.Span{Start: start, End: p.prevEnd()}
	return f, nil
}

func (p *Parser) parseExprStmt() (ast.Statement, error) {
	start := p.peek().Start
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(token.PSemicolon, "';' after expression statement"); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{
		Span: ast.Span{Start: start, End: p.prevEnd()},
		X:    e,
	}, nil
}
