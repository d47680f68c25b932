package parser

import (
	"github.com/EmilienKia/klang-sub000/internal/ast"
	"github.com/EmilienKia/klang-sub000/internal/token"
)

// parseDeclaration implements:
//   declaration := visibility_decl | namespace_decl | function_decl | variable_decl
// The four alternatives are distinguished by at most one token of
// lookahead plus a bounded tell/seek backtrack for function vs. variable
// (both start with an identifier); spec.md §4.2 "parse_declaration tries
// visibility, then namespace, then function, then variable".
func (p *Parser) parseDeclaration() (ast.Declaration, error) {
	start := p.peek().Start

	if v, ok := p.tryVisibilityDecl(start); ok {
		return v, nil
	}
	if n, ok, err := p.tryNamespaceDecl(start); ok || err != nil {
		return n, err
	}

	// function_decl and variable_decl both begin with IDENT; distinguish
	// by whether '(' follows the identifier.
	save := p.tell()
	id, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	if p.atPunct(token.PLParen) {
		return p.parseFunctionDecl(start, id.Text)
	}
	p.seek(save)
	return p.parseVariableDecl(start, true)
}

func (p *Parser) tryVisibilityDecl(start token.Coord) (ast.Declaration, bool) {
	if p.peek().Kind != token.Keyword {
		return nil, false
	}
	var vis ast.Visibility
	switch p.peek().Keyword {
	case token.KwPublic:
		vis = ast.VisPublic
	case token.KwProtected:
		vis = ast.VisProtected
	case token.KwPrivate:
		vis = ast.VisPrivate
	default:
		return nil, false
	}
	save := p.tell()
	p.get()
	if !p.atPunct(token.PColon) {
		p.seek(save)
		return nil, false
	}
	p.get()
	return &ast.VisibilityDecl{
		Span:       ast.Span{Start: start, End: p.prevEnd()},
		Visibility: vis,
	}, true
}

func (p *Parser) tryNamespaceDecl(start token.Coord) (ast.Declaration, bool, error) {
	if !p.atKeyword(token.KwNamespace) {
		return nil, false, nil
	}
	p.get()
	name := ""
	if p.peek().Kind == token.Identifier {
		name = p.get().Text
	}
	if _, err := p.expectPunct(token.PLBrace, "'{' to open namespace body"); err != nil {
		return nil, true, err
	}
	var decls []ast.Declaration
	for !p.atPunct(token.PRBrace) {
		if p.peek().Kind == token.EOF {
			return nil, true, p.fail(0x10010, "unterminated namespace body")
		}
		d, err := p.parseDeclaration()
		if err != nil {
			return nil, true, err
		}
		decls = append(decls, d)
	}
	p.get() // consume '}'
	return &ast.NamespaceDecl{
		Span:  ast.Span{Start: start, End: p.prevEnd()},
		Name:  name,
		Decls: decls,
	}, true, nil
}

// parseFunctionDecl parses the remainder of a function_decl once the name
// and opening '(' have been identified by the caller (name already
// consumed, '(' not yet consumed).
func (p *Parser) parseFunctionDecl(start token.Coord, name string) (ast.Declaration, error) {
	if _, err := p.expectPunct(token.PLParen, "'(' in function declaration"); err != nil {
		return nil, err
	}
	var params []ast.Parameter
	if !p.atPunct(token.PRParen) {
		for {
			pstart := p.peek().Start
			pid, err := p.expectIdentifier()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct(token.PColon, "':' before parameter type"); err != nil {
				return nil, err
			}
			ts, err := p.parseTypeSpecifier()
			if err != nil {
				return nil, err
			}
			params = append(params, ast.Parameter{
				Span: ast.Span{Start: pstart, End: p.prevEnd()},
				Name: pid.Text,
				Type: ts,
			})
			if p.atPunct(token.PComma) {
				p.get()
				continue
			}
			break
		}
	}
	if _, err := p.expectPunct(token.PRParen, "')' to close parameter list"); err != nil {
		return nil, err
	}

	var ret ast.TypeSpecifier
	if p.atPunct(token.PColon) {
		p.get()
		t, err := p.parseTypeSpecifier()
		if err != nil {
			return nil, err
		}
		ret = t
	}

	var body *ast.BlockStmt
	if p.atPunct(token.PSemicolon) {
		p.get()
	} else {
		b, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		body = b
	}

	return &ast.FunctionDecl{
		Span:       ast.Span{Start: start, End: p.prevEnd()},
		Name:       name,
		Params:     params,
		ReturnType: ret,
		Body:       body,
	}, nil
}

// parseVariableDecl parses "IDENT : type_spec ('=' assign_expr)? ';'?".
// requireSemi is false when called from a for-header, where the
// terminating ';' is consumed by the caller instead.
func (p *Parser) parseVariableDecl(start token.Coord, requireSemi bool) (*ast.VariableDecl, error) {
	id, err := p.expectIdentifier()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(token.PColon, "':' before variable type"); err != nil {
		return nil, err
	}
	ts, err := p.parseTypeSpecifier()
	if err != nil {
		return nil, err
	}
	var init ast.Expression
	if p.atOp(token.OpAssign) {
		p.get()
		e, err := p.parseAssignExpr()
		if err != nil {
			return nil, err
		}
		init = e
	}
	if requireSemi {
		if _, err := p.expectPunct(token.PSemicolon, "';' after variable declaration"); err != nil {
			return nil, err
		}
	}
	return &ast.VariableDecl{
		Span: ast.Span{Start: start, End: p.prevEnd()},
		Name: id.Text,
		Type: ts,
		Init: init,
	}, nil
}

// parseTypeSpecifier implements:
//   type_spec := 'unsigned'? primitive_kw | qualified_id
func (p *Parser) parseTypeSpecifier() (ast.TypeSpecifier, error) {
	start := p.peek().Start
	unsigned := false
	if p.atKeyword(token.KwUnsigned) {
		p.get()
		unsigned = true
	}
	if p.peek().Kind == token.Keyword && token.IsPrimitiveKeyword(p.peek().Keyword) {
		kwTok := p.get()
		return &ast.KeywordType{
			Span:     ast.Span{Start: start, End: p.prevEnd()},
			Keyword:  primitiveKeywordText(kwTok.Keyword),
			Unsigned: unsigned,
		}, nil
	}
	if unsigned {
		return nil, p.fail(0x10011, "expected primitive type keyword after 'unsigned', got {}", p.peek())
	}
	qi, err := p.parseQualifiedIdentifier()
	if err != nil {
		return nil, err
	}
	return &ast.IdentifiedType{
		Span: ast.Span{Start: start, End: p.prevEnd()},
		Name: qi,
	}, nil
}

var primitiveKeywordTexts = map[token.KeywordKind]string{
	token.KwBool:   "bool",
	token.KwByte:   "byte",
	token.KwChar:   "char",
	token.KwShort:  "short",
	token.KwInt:    "int",
	token.KwLong:   "long",
	token.KwFloat:  "float",
	token.KwDouble: "double",
}

func primitiveKeywordText(k token.KeywordKind) string {
	return primitiveKeywordTexts[k]
}
