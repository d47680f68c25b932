package parser

import (
	"github.com/EmilienKia/klang-sub000/internal/ast"
	"github.com/EmilienKia/klang-sub000/internal/token"
)

// parsePrimary implements primary_expr := literal | qualified_id
// | '(' expr ')'. Postfix call/index/++/-- chains are the caller's
// concern (parsePostfix).
func (p *Parser) parsePrimary() (ast.Expression, error) {
	start := p.peek().Start
	t := p.peek()

	switch t.Kind {
	case token.IntegerLiteral:
		p.get()
		return &ast.IntLiteral{Span: ast.Span{Start: start, End: p.prevEnd()}, Tok: t}, nil
	case token.FloatLiteral:
		p.get()
		return &ast.FloatLiteral{Span: ast.Span{Start: start, End: p.prevEnd()}, Tok: t}, nil
	case token.CharLiteral:
		p.get()
		return &ast.CharLiteral{Span: ast.Span{Start: start, End: p.prevEnd()}, Tok: t}, nil
	case token.StringLiteral:
		p.get()
		return &ast.StringLiteral{Span: ast.Span{Start: start, End: p.prevEnd()}, Tok: t}, nil
	case token.BoolLiteral:
		p.get()
		return &ast.BoolLiteral{Span: ast.Span{Start: start, End: p.prevEnd()}, Value: t.Text == "true"}, nil
	case token.NullLiteral:
		p.get()
		return &ast.NullLiteral{Span: ast.Span{Start: start, End: p.prevEnd()}}, nil
	}

	if p.atPunct(token.PLParen) {
		p.get()
		x, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expectPunct(token.PRParen, "')' to close parenthesized expression"); err != nil {
			return nil, err
		}
		return x, nil
	}

	if t.Kind == token.Identifier || (t.Kind == token.Punctuator && t.Punct == token.PColon) {
		qi, err := p.parseQualifiedIdentifier()
		if err != nil {
			return nil, err
		}
		return &ast.Ident{Span: ast.Span{Start: start, End: p.prevEnd()}, Name: qi}, nil
	}

	return nil, p.fail(0x10030, "expected expression, got {}", t)
}
