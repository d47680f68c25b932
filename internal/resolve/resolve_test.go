package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmilienKia/klang-sub000/internal/model"
	"github.com/EmilienKia/klang-sub000/internal/parser"
	"github.com/EmilienKia/klang-sub000/internal/types"
)

func resolveOK(t *testing.T, src string) *model.Unit {
	t.Helper()
	u, err := parser.Parse(src, nil)
	require.NoError(t, err)
	m, err := model.Lower(u, nil)
	require.NoError(t, err)
	require.NoError(t, Resolve(m, nil))
	return m
}

func firstFunc(t *testing.T, m *model.Unit, name string) *model.Function {
	t.Helper()
	for _, fn := range m.Root.Functions {
		if fn.Name == name {
			return fn
		}
	}
	t.Fatalf("no function named %s in unit", name)
	return nil
}

func returnExpr(t *testing.T, fn *model.Function) model.Expression {
	t.Helper()
	for _, s := range fn.Body.Stmts {
		if r, ok := s.(*model.Return); ok {
			return r.Value
		}
	}
	t.Fatalf("function %s has no return statement", fn.Name)
	return nil
}

func TestResolveIntLiteralWidths(t *testing.T) {
	m := resolveOK(t, `f() : long { return 1ll; }`)
	fn := firstFunc(t, m, "f")
	ret := returnExpr(t, fn)
	assert.True(t, ret.Type().Equal(types.Primitive(types.Long)))
}

func TestResolveBinaryArithmeticCastsRightToLeft(t *testing.T) {
	m := resolveOK(t, `f(a: long, b: int) : long { return a + b; }`)
	fn := firstFunc(t, m, "f")
	ret := returnExpr(t, fn)
	bin, ok := ret.(*model.BinaryExpr)
	require.True(t, ok)
	assert.True(t, bin.Type().Equal(types.Primitive(types.Long)))
	cast, ok := bin.Right.(*model.CastExpr)
	require.True(t, ok, "right operand should be wrapped in an implicit cast to long")
	assert.True(t, cast.Implicit)
	assert.True(t, cast.Target.Equal(types.Primitive(types.Long)))
}

func TestResolveComparisonProducesBool(t *testing.T) {
	m := resolveOK(t, `cmp(a: int, b: int) : bool { return a >= b; }`)
	fn := firstFunc(t, m, "cmp")
	ret := returnExpr(t, fn)
	assert.True(t, ret.Type().Equal(types.Primitive(types.Bool)))
}

func TestResolveLogicalCastsOperandsToBool(t *testing.T) {
	m := resolveOK(t, `f(a: int, b: int) : bool { return a && b; }`)
	fn := firstFunc(t, m, "f")
	ret := returnExpr(t, fn)
	bin, ok := ret.(*model.BinaryExpr)
	require.True(t, ok)
	_, ok = bin.Left.(*model.CastExpr)
	assert.True(t, ok, "logical operand should be cast to bool")
	_, ok = bin.Right.(*model.CastExpr)
	assert.True(t, ok, "logical operand should be cast to bool")
}

func TestResolveBitwiseRejectsFloat(t *testing.T) {
	u, err := parser.Parse(`f(a: float, b: float) : float { return a & b; }`, nil)
	require.NoError(t, err)
	m, err := model.Lower(u, nil)
	require.NoError(t, err)
	err = Resolve(m, nil)
	assert.Error(t, err, "bitwise operators should be rejected on float operands")
}

func TestResolveCallArityMismatch(t *testing.T) {
	u, err := parser.Parse(`
add(a: int, b: int) : int { return a + b; }
f() : int { return add(1); }
`, nil)
	require.NoError(t, err)
	m, err := model.Lower(u, nil)
	require.NoError(t, err)
	err = Resolve(m, nil)
	assert.Error(t, err, "calling add/2 with one argument should fail arity check")
}

func TestResolveAssignmentToVariableTarget(t *testing.T) {
	u, err := parser.Parse(`f(a: int) : int { return a = 1 + 2; }`, nil)
	require.NoError(t, err)
	m, err := model.Lower(u, nil)
	require.NoError(t, err)
	require.NoError(t, Resolve(m, nil))
}

func TestResolveTernaryAlignsElseToThen(t *testing.T) {
	m := resolveOK(t, `f(a: bool, b: long, c: int) : long { return a ? b : c; }`)
	fn := firstFunc(t, m, "f")
	ret := returnExpr(t, fn)
	tern, ok := ret.(*model.TernaryExpr)
	require.True(t, ok)
	assert.True(t, tern.Type().Equal(types.Primitive(types.Long)))
	_, ok = tern.Else.(*model.CastExpr)
	assert.True(t, ok, "else-branch should be cast up to the then-branch's type")
}

func TestResolveStringLiteralRejected(t *testing.T) {
	u, err := parser.Parse(`f() : int { return "hi"; }`, nil)
	require.NoError(t, err)
	m, err := model.Lower(u, nil)
	require.NoError(t, err)
	err = Resolve(m, nil)
	assert.Error(t, err, "string literals have no admissible type in this type system")
}

func TestResolveShadowingRejected(t *testing.T) {
	u, err := parser.Parse(`
f(a: int) : int {
	a : int = 2;
	return a;
}
`, nil)
	require.NoError(t, err)
	m, err := model.Lower(u, nil)
	require.NoError(t, err)
	err = Resolve(m, nil)
	assert.Error(t, err, "a local reusing an enclosing scope's name should be rejected")
}
