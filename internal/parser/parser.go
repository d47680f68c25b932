// Package parser implements the pure recursive-descent grammar of
// spec.md §4.2: tokens in, a concrete ast.Unit out, with a manual
// precedence climb for expressions and short tell/seek-bounded
// backtracking for the handful of ambiguous productions (declaration
// dispatch, cast-vs-parenthesis).
package parser

import (
	"fmt"

	"github.com/EmilienKia/klang-sub000/internal/ast"
	"github.com/EmilienKia/klang-sub000/internal/diag"
	"github.com/EmilienKia/klang-sub000/internal/lexer"
	"github.com/EmilienKia/klang-sub000/internal/token"
)

// Error is the parsing_error of spec.md §4.2/§7: the first production
// that cannot backtrack past a distinguishing token throws one of these
// and aborts the unit.
type Error struct {
	Entry diag.Entry
}

func (e *Error) Error() string { return e.Entry.Message() }

// Parser drives a lexer.Cursor through the grammar. Construct one with
// New and call Parse.
type Parser struct {
	c   *lexer.Cursor
	log diag.Logger
}

// New builds a Parser over a token cursor. log receives every syntactic
// diagnostic; it may be nil to discard them.
func New(c *lexer.Cursor, log diag.Logger) *Parser {
	return &Parser{c: c, log: log}
}

// Parse parses one translation unit and returns its concrete syntax
// tree, or the first parsing_error encountered.
func Parse(src string, log diag.Logger) (*ast.Unit, error) {
	toks, err := lexer.Scan(src, log)
	if err != nil {
		return nil, err
	}
	p := New(lexer.NewCursor(toks), log)
	return p.ParseUnit()
}

// ---------------------------------
// ----- Low-level token access -----
// ---------------------------------

func (p *Parser) peek() token.Token { return p.c.Peek() }
func (p *Parser) get() token.Token  { return p.c.Get() }
func (p *Parser) tell() int         { return p.c.Tell() }
func (p *Parser) seek(pos int)      { p.c.Seek(pos) }

func (p *Parser) atPunct(k token.PunctuatorKind) bool {
	t := p.peek()
	return t.Kind == token.Punctuator && t.Punct == k
}

func (p *Parser) atOp(k token.OperatorKind) bool {
	t := p.peek()
	return t.Kind == token.Operator && t.Op == k
}

func (p *Parser) atKeyword(k token.KeywordKind) bool {
	t := p.peek()
	return t.Kind == token.Keyword && t.Keyword == k
}

// expectPunct consumes a punctuator of kind k or throws a parsing_error.
func (p *Parser) expectPunct(k token.PunctuatorKind, what string) (token.Token, error) {
	if !p.atPunct(k) {
		return token.Token{}, p.fail(0x10001, "expected {}, got {}", what, p.peek())
	}
	return p.get(), nil
}

func (p *Parser) expectKeyword(k token.KeywordKind, what string) (token.Token, error) {
	if !p.atKeyword(k) {
		return token.Token{}, p.fail(0x10002, "expected {}, got {}", what, p.peek())
	}
	return p.get(), nil
}

func (p *Parser) expectIdentifier() (token.Token, error) {
	if p.peek().Kind != token.Identifier {
		return token.Token{}, p.fail(0x10003, "expected identifier, got {}", p.peek())
	}
	return p.get(), nil
}

// fail builds and logs a parsing_error at the current token position.
func (p *Parser) fail(code uint32, format string, args ...interface{}) error {
	t := p.peek()
	e := diag.Entry{
		Severity: diag.Error,
		Code:     code,
		Start:    t.Start,
		End:      t.End,
		Template: format,
		Args:     args,
	}
	if p.log != nil {
		p.log.Log(e)
	}
	return &Error{Entry: e}
}

// ----------------------------
// ----- Grammar: top level -----
// ----------------------------

// ParseUnit parses unit := module_decl? import* declaration*.
func (p *Parser) ParseUnit() (*ast.Unit, error) {
	start := p.peek().Start
	u := &ast.Unit{}

	if p.atKeyword(token.KwModule) {
		p.get()
		qi, err := p.parseQualifiedIdentifier()
		if err != nil {
			return nil, err
		}
		u.ModuleName = &qi
		if _, err := p.expectPunct(token.PSemicolon, "';' after module name"); err != nil {
			return nil, err
		}
	}

	for p.atKeyword(token.KwImport) {
		p.get()
		id, err := p.expectIdentifier()
		if err != nil {
			return nil, err
		}
		u.Imports = append(u.Imports, id.Text)
		if _, err := p.expectPunct(token.PSemicolon, "';' after import"); err != nil {
			return nil, err
		}
	}

	for p.peek().Kind != token.EOF {
		d, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		u.Decls = append(u.Decls, d)
	}

	u.Start = start
	u.End = p.peek().End
	return u, nil
}

func (p *Parser) parseQualifiedIdentifier() (ast.QualifiedIdentifier, error) {
	start := p.peek().Start
	rootPrefix := false
	if p.atPunct(token.PColon) {
		// A leading "::" spells a rooted reference; the grammar admits
		// this at the lexical level as two consecutive colons.
		save := p.tell()
		p.get()
		if p.atPunct(token.PColon) {
			p.get()
			rootPrefix = true
		} else {
			p.seek(save)
		}
	}
	id, err := p.expectIdentifier()
	if err != nil {
		return ast.QualifiedIdentifier{}, err
	}
	parts := []string{id.Text}
	for p.atPunct(token.PDot) {
		p.get()
		id, err := p.expectIdentifier()
		if err != nil {
			return ast.QualifiedIdentifier{}, err
		}
		parts = append(parts, id.Text)
	}
	return ast.QualifiedIdentifier{
		RootPrefix: rootPrefix,
		Parts:      parts,
		Span:       ast.Span{Start: start, End: p.prevEnd()},
	}, nil
}

// prevEnd returns the end coordinate of the token just consumed, used to
// close out a span after the last Get call.
func (p *Parser) prevEnd() token.Coord {
	p.c.Unget()
	t := p.c.Get()
	return t.End
}
