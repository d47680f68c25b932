package parser

import (
	"github.com/EmilienKia/klang-sub000/internal/ast"
	"github.com/EmilienKia/klang-sub000/internal/token"
)

// parseExpr is the entry point used wherever the grammar wants "an
// expression"; spec.md §4.2's precedence ladder bottoms out at
// assignment, there being no comma operator in this language.
func (p *Parser) parseExpr() (ast.Expression, error) {
	return p.parseAssignExpr()
}

var assignOps = map[token.OperatorKind]ast.BinaryOp{
	token.OpAssign:        ast.BinAssign,
	token.OpPlusAssign:    ast.BinAddAssign,
	token.OpMinusAssign:   ast.BinSubAssign,
	token.OpStarAssign:    ast.BinMulAssign,
	token.OpSlashAssign:   ast.BinDivAssign,
	token.OpPercentAssign: ast.BinModAssign,
	token.OpAndAssign:     ast.BinAndAssign,
	token.OpOrAssign:      ast.BinOrAssign,
	token.OpXorAssign:     ast.BinXorAssign,
	token.OpShlAssign:     ast.BinShlAssign,
	token.OpShrAssign:     ast.BinShrAssign,
}

// parseAssignExpr implements the right-associative assignment level:
// ternary ( assign_op assign_expr )?.
func (p *Parser) parseAssignExpr() (ast.Expression, error) {
	start := p.peek().Start
	left, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if p.peek().Kind == token.Operator {
		if op, ok := assignOps[p.peek().Op]; ok {
			opTok := p.get()
			right, err := p.parseAssignExpr()
			if err != nil {
				return nil, err
			}
			return &ast.BinaryExpr{
				Span:    ast.Span{Start: start, End: p.prevEnd()},
				Op:      op,
				OpToken: opTok,
				Left:    left,
				Right:   right,
			}, nil
		}
	}
	return left, nil
}

// parseTernary implements the right-associative "cond ? then : else"
// level.
func (p *Parser) parseTernary() (ast.Expression, error) {
	start := p.peek().Start
	cond, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if !p.atOp(token.OpQuestion) {
		return cond, nil
	}
	p.get()
	then, err := p.parseAssignExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expectPunct(token.PColon, "':' in conditional expression"); err != nil {
		return nil, err
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &ast.TernaryExpr{
		Span: ast.Span{Start: start, End: p.prevEnd()},
		Cond: cond,
		Then: then,
		Else: els,
	}, nil
}

func (p *Parser) parseLeftAssoc(next func() (ast.Expression, error), ops map[token.OperatorKind]ast.BinaryOp) (ast.Expression, error) {
	start := p.peek().Start
	left, err := next()
	if err != nil {
		return nil, err
	}
	for p.peek().Kind == token.Operator {
		op, ok := ops[p.peek().Op]
		if !ok {
			break
		}
		opTok := p.get()
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &ast.BinaryExpr{
			Span:    ast.Span{Start: start, End: p.prevEnd()},
			Op:      op,
			OpToken: opTok,
			Left:    left,
			Right:   right,
		}
	}
	return left, nil
}

var logicalOrOps = map[token.OperatorKind]ast.BinaryOp{token.OpOrOr: ast.BinLogOr}
var logicalAndOps = map[token.OperatorKind]ast.BinaryOp{token.OpAndAnd: ast.BinLogAnd}
var bitOrOps = map[token.OperatorKind]ast.BinaryOp{token.OpPipe: ast.BinBitOr}
var bitXorOps = map[token.OperatorKind]ast.BinaryOp{token.OpCaret: ast.BinBitXor}
var bitAndOps = map[token.OperatorKind]ast.BinaryOp{token.OpAmp: ast.BinBitAnd}
var equalityOps = map[token.OperatorKind]ast.BinaryOp{token.OpEq: ast.BinEq, token.OpNe: ast.BinNe}
var relationalOps = map[token.OperatorKind]ast.BinaryOp{
	token.OpLt: ast.BinLt, token.OpLe: ast.BinLe,
	token.OpGt: ast.BinGt, token.OpGe: ast.BinGe,
}
var shiftOps = map[token.OperatorKind]ast.BinaryOp{token.OpShl: ast.BinShl, token.OpShr: ast.BinShr}
var additiveOps = map[token.OperatorKind]ast.BinaryOp{token.OpPlus: ast.BinAdd, token.OpMinus: ast.BinSub}
var multiplicativeOps = map[token.OperatorKind]ast.BinaryOp{
	token.OpStar: ast.BinMul, token.OpSlash: ast.BinDiv, token.OpPercent: ast.BinMod,
}

func (p *Parser) parseLogicalOr() (ast.Expression, error) {
	return p.parseLeftAssoc(p.parseLogicalAnd, logicalOrOps)
}
func (p *Parser) parseLogicalAnd() (ast.Expression, error) {
	return p.parseLeftAssoc(p.parseBitOr, logicalAndOps)
}
func (p *Parser) parseBitOr() (ast.Expression, error) {
	return p.parseLeftAssoc(p.parseBitXor, bitOrOps)
}
func (p *Parser) parseBitXor() (ast.Expression, error) {
	return p.parseLeftAssoc(p.parseBitAnd, bitXorOps)
}
func (p *Parser) parseBitAnd() (ast.Expression, error) {
	return p.parseLeftAssoc(p.parseEquality, bitAndOps)
}
func (p *Parser) parseEquality() (ast.Expression, error) {
	return p.parseLeftAssoc(p.parseRelational, equalityOps)
}
func (p *Parser) parseRelational() (ast.Expression, error) {
	return p.parseLeftAssoc(p.parseShift, relationalOps)
}
func (p *Parser) parseShift() (ast.Expression, error) {
	return p.parseLeftAssoc(p.parseAdditive, shiftOps)
}
func (p *Parser) parseAdditive() (ast.Expression, error) {
	return p.parseLeftAssoc(p.parseMultiplicative, additiveOps)
}
func (p *Parser) parseMultiplicative() (ast.Expression, error) {
	return p.parseLeftAssoc(p.parseCast, multiplicativeOps)
}

// parseCast implements the cast-vs-parenthesis disambiguation of
// spec.md §4.2: a leading '(' is speculatively parsed as
// '(' type_spec ')' cast_expr; on any failure (not a type specifier, or
// no closing ')') the cursor is restored and control falls through to
// unary_expr, so "(x)" and "(a + b)" are ordinary parenthesized
// expressions while "(int)x" is a cast.
func (p *Parser) parseCast() (ast.Expression, error) {
	if p.atPunct(token.PLParen) {
		if x, ok := p.tryCast(); ok {
			return x, nil
		}
	}
	return p.parseUnary()
}

func (p *Parser) tryCast() (ast.Expression, bool) {
	start := p.peek().Start
	save := p.tell()
	p.get() // '('

	if !p.looksLikeTypeSpecifier() {
		p.seek(save)
		return nil, false
	}
	ts, err := p.parseTypeSpecifier()
	if err != nil {
		p.seek(save)
		return nil, false
	}
	if !p.atPunct(token.PRParen) {
		p.seek(save)
		return nil, false
	}
	p.get() // ')'

	x, err := p.parseCast()
	if err != nil {
		p.seek(save)
		return nil, false
	}
	return &ast.CastExpr{
		Span: ast.Span{Start: start, End: p.prevEnd()},
		Type: ts,
		X:    x,
	}, true
}

// looksLikeTypeSpecifier performs the single-token-of-lookahead check
// that lets tryCast fail fast without attempting a full type-spec parse
// on expressions like "(x + y)" that begin with an identifier but are
// not casts: it accepts only 'unsigned' or a primitive keyword, so a
// parenthesized identifier such as "(x)" is never taken as a cast.
func (p *Parser) looksLikeTypeSpecifier() bool {
	t := p.peek()
	return t.Kind == token.Keyword && (t.Keyword == token.KwUnsigned || token.IsPrimitiveKeyword(t.Keyword))
}

var unaryPrefixOps = map[token.OperatorKind]ast.UnaryOp{
	token.OpPlus:  ast.UnaryPlus,
	token.OpMinus: ast.UnaryMinus,
	token.OpNot:   ast.UnaryNot,
	token.OpTilde: ast.UnaryBitNot,
}

// parseUnary implements prefix unary operators, including the ++/--
// prefix forms, falling through to postfix_expr.
func (p *Parser) parseUnary() (ast.Expression, error) {
	start := p.peek().Start
	switch {
	case p.atOp(token.OpIncrement):
		return p.parsePrefixIncDec(start, ast.PrefixIncrement)
	case p.atOp(token.OpDecrement):
		return p.parsePrefixIncDec(start, ast.PrefixDecrement)
	}
	if p.peek().Kind == token.Operator {
		if op, ok := unaryPrefixOps[p.peek().Op]; ok {
			opTok := p.get()
			x, err := p.parseCast()
			if err != nil {
				return nil, err
			}
			return &ast.UnaryExpr{
				Span:    ast.Span{Start: start, End: p.prevEnd()},
				Op:      op,
				OpToken: opTok,
				X:       x,
			}, nil
		}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePrefixIncDec(start token.Coord, op ast.UnaryOp) (ast.Expression, error) {
	opTok := p.get()
	x, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &ast.UnaryExpr{
		Span:    ast.Span{Start: start, End: p.prevEnd()},
		Op:      op,
		OpToken: opTok,
		X:       x,
	}, nil
}

// parsePostfix implements call, index and postfix ++/-- applications
// chained onto a primary expression, left to right.
func (p *Parser) parsePostfix() (ast.Expression, error) {
	start := p.peek().Start
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch {
		case p.atPunct(token.PLParen):
			p.get()
			var args []ast.Expression
			if !p.atPunct(token.PRParen) {
				for {
					a, err := p.parseAssignExpr()
					if err != nil {
						return nil, err
					}
					args = append(args, a)
					if p.atPunct(token.PComma) {
						p.get()
						continue
					}
					break
				}
			}
			if _, err := p.expectPunct(token.PRParen, "')' to close call arguments"); err != nil {
				return nil, err
			}
			x = &ast.CallExpr{
				Span:   ast.Span{Start: start, End: p.prevEnd()},
				Callee: x,
				Args:   args,
			}
		case p.atPunct(token.PLBracket):
			p.get()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expectPunct(token.PRBracket, "']' to close index expression"); err != nil {
				return nil, err
			}
			x = &ast.IndexExpr{
				Span:  ast.Span{Start: start, End: p.prevEnd()},
				X:     x,
				Index: idx,
			}
		case p.atOp(token.OpIncrement):
			opTok := p.get()
			x = &ast.UnaryExpr{Span: ast.Span{Start: start, End: p.prevEnd()}, Op: ast.PostfixIncrement, OpToken: opTok, X: x}
		case p.atOp(token.OpDecrement):
			opTok := p.get()
			x = &ast.UnaryExpr{Span: ast.Span{Start: start, End: p.prevEnd()}, Op: ast.PostfixDecrement, OpToken: opTok, X: x}
		default:
			return x, nil
		}
	}
}
