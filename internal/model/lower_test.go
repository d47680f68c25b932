package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmilienKia/klang-sub000/internal/parser"
	"github.com/EmilienKia/klang-sub000/internal/types"
)

func lowerOK(t *testing.T, src string) *Unit {
	t.Helper()
	u, err := parser.Parse(src, nil)
	require.NoError(t, err)
	m, err := Lower(u, nil)
	require.NoError(t, err)
	return m
}

func TestLowerFunctionParamsAndReturnType(t *testing.T) {
	m := lowerOK(t, `add(a: int, b: int) : int { return a + b; }`)
	require.Len(t, m.Root.Functions, 1)
	fn := m.Root.Functions[0]
	assert.Equal(t, "add", fn.Name)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Name)
	assert.True(t, fn.HasReturn)
	assert.True(t, fn.ReturnType.Equal(types.Primitive(types.Int)))
}

func TestLowerVoidFunctionHasNoReturnType(t *testing.T) {
	m := lowerOK(t, `f() { return; }`)
	fn := m.Root.Functions[0]
	assert.False(t, fn.HasReturn)
}

func TestLowerNestedNamespace(t *testing.T) {
	m := lowerOK(t, `
namespace outer {
	namespace inner {
		g() : int { return 1; }
	}
}
`)
	require.Len(t, m.Root.Namespaces, 1)
	outer := m.Root.Namespaces[0]
	assert.Equal(t, "outer", outer.Name)
	require.Len(t, outer.Namespaces, 1)
	inner := outer.Namespaces[0]
	assert.Equal(t, "inner", inner.Name)
	require.Len(t, inner.Functions, 1)
	assert.Same(t, outer, inner.Parent)
}

func TestLowerLocalDeclaredInBlockScope(t *testing.T) {
	m := lowerOK(t, `
f() : int {
	x : int = 1;
	return x;
}
`)
	fn := m.Root.Functions[0]
	require.Len(t, fn.Body.Locals, 1)
	assert.Equal(t, "x", fn.Body.Locals[0].Name)
	assert.Same(t, fn.Body, fn.Body.Locals[0].Owner)
}

func TestLowerForHeaderDeclarationScopedToLoop(t *testing.T) {
	m := lowerOK(t, `
f() : int {
	for (i : int = 0; i < 10; i = i + 1) {
	}
	return 0;
}
`)
	fn := m.Root.Functions[0]
	var forStmt *For
	for _, s := range fn.Body.Stmts {
		if f, ok := s.(*For); ok {
			forStmt = f
		}
	}
	require.NotNil(t, forStmt)
	require.NotNil(t, forStmt.Decl)
	assert.Equal(t, "i", forStmt.Decl.Name)
	// The header declaration lives only on For.Decl, not duplicated into
	// the enclosing function body's own local list.
	for _, l := range fn.Body.Locals {
		assert.NotEqual(t, "i", l.Name)
	}
}

func TestLowerIfElseBothBranches(t *testing.T) {
	m := lowerOK(t, `
f(a: bool) : int {
	if (a) {
		return 1;
	} else {
		return 2;
	}
}
`)
	fn := m.Root.Functions[0]
	var ie *IfElse
	for _, s := range fn.Body.Stmts {
		if x, ok := s.(*IfElse); ok {
			ie = x
		}
	}
	require.NotNil(t, ie)
	assert.NotNil(t, ie.Then)
	assert.NotNil(t, ie.Else)
}

func TestLowerGlobalVariable(t *testing.T) {
	m := lowerOK(t, `counter : int = 0;`)
	require.Len(t, m.Root.Globals, 1)
	g := m.Root.Globals[0]
	assert.Equal(t, "counter", g.Name)
	assert.NotNil(t, g.Init)
}
