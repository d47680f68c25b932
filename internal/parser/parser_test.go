package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmilienKia/klang-sub000/internal/ast"
)

func parseOK(t *testing.T, src string) *ast.Unit {
	t.Helper()
	u, err := Parse(src, nil)
	require.NoError(t, err)
	return u
}

func firstFuncDecl(t *testing.T, u *ast.Unit, name string) *ast.FunctionDecl {
	t.Helper()
	for _, d := range u.Decls {
		if fn, ok := d.(*ast.FunctionDecl); ok && fn.Name == name {
			return fn
		}
	}
	t.Fatalf("no function named %s in unit", name)
	return nil
}

func returnValue(t *testing.T, fn *ast.FunctionDecl) ast.Expression {
	t.Helper()
	require.NotNil(t, fn.Body)
	for _, s := range fn.Body.Stmts {
		if r, ok := s.(*ast.ReturnStmt); ok {
			return r.Value
		}
	}
	t.Fatalf("function %s has no return statement", fn.Name)
	return nil
}

// TestParsePrecedenceTighterBindsInner exercises spec.md §8's precedence
// property for a pair with prec(OP1) < prec(OP2): "a + b * c" must parse
// as "a + (b * c)", i.e. the top node is the '+' with a '*' on its right.
func TestParsePrecedenceTighterBindsInner(t *testing.T) {
	u := parseOK(t, `f() : int { return 1 + 2 * 3; }`)
	fn := firstFuncDecl(t, u, "f")
	top, ok := returnValue(t, fn).(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BinAdd, top.Op)
	right, ok := top.Right.(*ast.BinaryExpr)
	require.True(t, ok, "multiplication should nest under the right operand of +")
	assert.Equal(t, ast.BinMul, right.Op)
}

// TestParsePrecedenceLeftAssociative exercises the reversed-precedence
// half of the same property: "a * b + c" parses as "(a * b) + c".
func TestParsePrecedenceLeftAssociative(t *testing.T) {
	u := parseOK(t, `f() : int { return 1 * 2 + 3; }`)
	fn := firstFuncDecl(t, u, "f")
	top, ok := returnValue(t, fn).(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BinAdd, top.Op)
	left, ok := top.Left.(*ast.BinaryExpr)
	require.True(t, ok, "multiplication should nest under the left operand of +")
	assert.Equal(t, ast.BinMul, left.Op)
}

// TestParseSameLevelIsLeftAssociative checks "a - b - c" groups as
// "(a - b) - c", not "a - (b - c)".
func TestParseSameLevelIsLeftAssociative(t *testing.T) {
	u := parseOK(t, `f() : int { return 10 - 3 - 2; }`)
	fn := firstFuncDecl(t, u, "f")
	top, ok := returnValue(t, fn).(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BinSub, top.Op)
	_, ok = top.Left.(*ast.BinaryExpr)
	assert.True(t, ok, "left-associative subtraction nests on the left")
	_, ok = top.Right.(*ast.BinaryExpr)
	assert.False(t, ok, "the right operand of the outer '-' should be a bare literal")
}

// TestParseCastOfTypeKeyword exercises spec.md §8's cast-vs-parenthesized
// disambiguation: "(int)x" parses as a cast because "int" is a type
// keyword.
func TestParseCastOfTypeKeyword(t *testing.T) {
	u := parseOK(t, `f(x: float) : int { return (int)x; }`)
	fn := firstFuncDecl(t, u, "f")
	cast, ok := returnValue(t, fn).(*ast.CastExpr)
	require.True(t, ok, "(int)x should parse as a cast expression")
	assert.NotNil(t, cast.Type)
}

// TestParseParenthesizedNonType is the other half of the same property:
// "(x)" parses as a parenthesized expression, not a cast, when x is not
// a type keyword.
func TestParseParenthesizedNonType(t *testing.T) {
	u := parseOK(t, `f(x: int) : int { return (x) + 1; }`)
	fn := firstFuncDecl(t, u, "f")
	top, ok := returnValue(t, fn).(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BinAdd, top.Op)
	_, ok = top.Left.(*ast.CastExpr)
	assert.False(t, ok, "(x) should not parse as a cast when x is not a type keyword")
}

// TestParseFunctionDeclNoFnKeyword confirms a function declaration is
// recognized purely by an identifier followed by '(' — this grammar has
// no leading keyword for function declarations.
func TestParseFunctionDeclNoFnKeyword(t *testing.T) {
	u := parseOK(t, `add(a: int, b: int) : int { return a + b; }`)
	fn := firstFuncDecl(t, u, "add")
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.Equal(t, "b", fn.Params[1].Name)
}

// TestParseFunctionPrototypeHasNoBody confirms a declaration-only
// prototype ("... ;" instead of a block) leaves Body nil.
func TestParseFunctionPrototypeHasNoBody(t *testing.T) {
	u := parseOK(t, `extern_fn(a: int) : int;`)
	fn := firstFuncDecl(t, u, "extern_fn")
	assert.Nil(t, fn.Body)
}

// TestParseGlobalVariableDecl confirms a bare top-level "name : type =
// init ;" is parsed as a VariableDecl, not mistaken for a function.
func TestParseGlobalVariableDecl(t *testing.T) {
	u := parseOK(t, `counter : int = 0;`)
	require.Len(t, u.Decls, 1)
	v, ok := u.Decls[0].(*ast.VariableDecl)
	require.True(t, ok)
	assert.Equal(t, "counter", v.Name)
	require.NotNil(t, v.Init)
}

// TestParseModuleAndImports confirms the "module NAME ; (import IDENT
// ;)* declaration*" unit grammar.
func TestParseModuleAndImports(t *testing.T) {
	u := parseOK(t, `
module demo;
import std;

f() : int { return 0; }
`)
	require.NotNil(t, u.ModuleName)
	require.Len(t, u.Imports, 1)
	assert.Equal(t, "std", u.Imports[0])
	require.Len(t, u.Decls, 1)
}

// TestParseForHeaderDeclVsInit confirms the C-style for-header parses a
// declaration first clause ("i : int = 0") into Decl rather than Init.
func TestParseForHeaderDeclVsInit(t *testing.T) {
	u := parseOK(t, `
f() : int {
	for (i : int = 0; i < 10; i = i + 1) {
	}
	return 0;
}
`)
	fn := firstFuncDecl(t, u, "f")
	var forStmt *ast.ForStmt
	for _, s := range fn.Body.Stmts {
		if f, ok := s.(*ast.ForStmt); ok {
			forStmt = f
		}
	}
	require.NotNil(t, forStmt)
	require.NotNil(t, forStmt.Decl)
	assert.Nil(t, forStmt.Init)
	assert.Equal(t, "i", forStmt.Decl.Name)
}

// TestParseTernaryRightAssociative confirms "a ? b : c ? d : e" groups as
// "a ? b : (c ? d : e)".
func TestParseTernaryRightAssociative(t *testing.T) {
	u := parseOK(t, `f(a: bool, b: int, c: bool, d: int, e: int) : int { return a ? b : c ? d : e; }`)
	fn := firstFuncDecl(t, u, "f")
	top, ok := returnValue(t, fn).(*ast.TernaryExpr)
	require.True(t, ok)
	_, ok = top.Else.(*ast.TernaryExpr)
	assert.True(t, ok, "a nested ternary in the else position should not be split across the outer one")
}

// TestParseCompoundAssignmentOperator confirms "a += b" parses to a
// single BinaryExpr node tagged BinAddAssign rather than being
// desugared at parse time (desugaring happens later, in codegen, per
// spec.md §4.5 "compute the operation, then store").
func TestParseCompoundAssignmentOperator(t *testing.T) {
	u := parseOK(t, `f(a: int, b: int) : int { a += b; return a; }`)
	fn := firstFuncDecl(t, u, "f")
	var stmt *ast.ExprStmt
	for _, s := range fn.Body.Stmts {
		if e, ok := s.(*ast.ExprStmt); ok {
			stmt = e
		}
	}
	require.NotNil(t, stmt)
	bin, ok := stmt.X.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ast.BinAddAssign, bin.Op)
	assert.True(t, bin.Op.IsAssignment())
}
