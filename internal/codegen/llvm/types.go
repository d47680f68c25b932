package llvm

import (
	"fmt"

	golvm "tinygo.org/x/go-llvm"

	"github.com/EmilienKia/klang-sub000/internal/types"
)

// llvmType maps a primitive semantic type to its LLVM representation
// (spec.md §4.5 "Primitives map to LLVM integer/float types of the
// recorded width. bool maps to i1."). ctx is the per-compilation LLVM
// context every type must be built against.
func llvmType(ctx golvm.Context, t types.Type) (golvm.Type, error) {
	switch t.Kind {
	case types.Bool:
		return ctx.Int1Type(), nil
	case types.Byte, types.Char:
		return ctx.Int8Type(), nil
	case types.Short, types.UShort:
		return ctx.Int16Type(), nil
	case types.Int, types.UInt:
		return ctx.Int32Type(), nil
	case types.Long, types.ULong:
		return ctx.Int64Type(), nil
	case types.Float:
		return ctx.FloatType(), nil
	case types.Double:
		return ctx.DoubleType(), nil
	case types.Void:
		return ctx.VoidType(), nil
	default:
		return golvm.Type{}, fmt.Errorf("no LLVM representation for type %s", t)
	}
}

// isFloatKind reports whether t lowers to an LLVM floating-point type.
func isFloatKind(t types.Type) bool { return t.IsFloat }
