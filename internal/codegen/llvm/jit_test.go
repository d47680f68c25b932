//go:build llvm

package llvm

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"

	"github.com/EmilienKia/klang-sub000/internal/diag"
	"github.com/EmilienKia/klang-sub000/internal/model"
	"github.com/EmilienKia/klang-sub000/internal/parser"
	"github.com/EmilienKia/klang-sub000/internal/resolve"
)

// compileAndJIT runs the whole pipeline -- parse, lower, resolve, emit --
// and hands the resulting module to a fresh JIT, mirroring spec.md §8's
// six end-to-end scenarios. The caller is responsible for calling
// Close() on the returned JIT once done looking up symbols.
func compileAndJIT(t *testing.T, src string) *JIT {
	t.Helper()
	col := diag.NewCollector()

	u, err := parser.Parse(src, col)
	require.NoError(t, err)
	require.False(t, col.HasErrors(), "parse diagnostics: %v", col.Entries())

	m, err := model.Lower(u, col)
	require.NoError(t, err)
	require.False(t, col.HasErrors(), "lowering diagnostics: %v", col.Entries())

	require.NoError(t, resolve.Resolve(m, col))
	require.False(t, col.HasErrors(), "resolve diagnostics: %v", col.Entries())

	ctx, mod, err := Emit(m, "jit_test", Options{Threads: 1, Optimize: true}, col)
	require.NoError(t, err)

	jit, err := NewJIT(ctx)
	require.NoError(t, err)
	require.NoError(t, jit.AddModule(mod))
	return jit
}

func TestJITReturnsConstant(t *testing.T) {
	jit := compileAndJIT(t, `test() : int { return 42; }`)
	defer jit.Close()

	addr, err := jit.Lookup("test")
	require.NoError(t, err)
	fn := *(*func() int32)(unsafe.Pointer(&addr))
	require.EqualValues(t, 42, fn())
}

func TestJITIncrement(t *testing.T) {
	jit := compileAndJIT(t, `increment(i: int) : int { return i + 1; }`)
	defer jit.Close()

	addr, err := jit.Lookup("increment")
	require.NoError(t, err)
	fn := *(*func(int32) int32)(unsafe.Pointer(&addr))
	require.EqualValues(t, 42, fn(41))
}

func TestJITMultiply(t *testing.T) {
	jit := compileAndJIT(t, `multiply(a: int, b: int) : int { return a * b; }`)
	defer jit.Close()

	addr, err := jit.Lookup("multiply")
	require.NoError(t, err)
	fn := *(*func(int32, int32) int32)(unsafe.Pointer(&addr))
	require.EqualValues(t, 6, fn(2, 3))
}

func TestJITDivSigned(t *testing.T) {
	jit := compileAndJIT(t, `div(a: int, b: int) : int { return a / b; }`)
	defer jit.Close()

	addr, err := jit.Lookup("div")
	require.NoError(t, err)
	fn := *(*func(int32, int32) int32)(unsafe.Pointer(&addr))
	require.EqualValues(t, -3, fn(-6, 2))
}

func TestJITDivUnsigned(t *testing.T) {
	jit := compileAndJIT(t, `div(a: unsigned int, b: unsigned int) : unsigned int { return a / b; }`)
	defer jit.Close()

	addr, err := jit.Lookup("div")
	require.NoError(t, err)
	fn := *(*func(uint32, uint32) uint32)(unsafe.Pointer(&addr))
	// Same bit pattern as (-6, 2) interpreted unsigned: division truncates
	// toward zero on the huge unsigned value rather than producing -3.
	require.Equal(t, uint32(0xFFFFFFFA)/2, fn(0xFFFFFFFA, 2))
}

func TestJITBitwiseAnd(t *testing.T) {
	jit := compileAndJIT(t, `and(a: byte, b: byte) : byte { return a & b; }`)
	defer jit.Close()

	addr, err := jit.Lookup("and")
	require.NoError(t, err)
	fn := *(*func(byte, byte) byte)(unsafe.Pointer(&addr))
	require.EqualValues(t, 1, fn(5, 3))
}

func TestJITComparison(t *testing.T) {
	jit := compileAndJIT(t, `cmp(a: int, b: int) : bool { return a >= b; }`)
	defer jit.Close()

	addr, err := jit.Lookup("cmp")
	require.NoError(t, err)
	fn := *(*func(int32, int32) bool)(unsafe.Pointer(&addr))
	require.True(t, fn(3, 3))
	require.False(t, fn(2, 3))
}
