// Package types implements the primitive type table and the qualified
// Name value used by both the AST and the semantic model (spec.md §3).
package types

import (
	"fmt"
	"strings"
)

// Kind enumerates the fixed set of primitive types plus the resolver's
// placeholder for a not-yet-resolved type reference.
type Kind int

const (
	Unresolved Kind = iota
	Void // The result of a function with no declared return type.
	Bool
	Byte // u8
	Char // i8
	Short
	UShort
	Int
	UInt
	Long
	ULong
	Float
	Double
)

// Type describes one primitive, carrying its bit width, signedness and
// whether it is a floating-point kind. Unresolved carries the
// placeholder's original name instead (spec.md §3 "unresolved
// (qualified_identifier) — a placeholder until the resolver substitutes a
// primitive").
type Type struct {
	Kind       Kind
	Width      int // In bits; 0 for Unresolved.
	Signed     bool
	IsFloat    bool
	Unresolved *Name // Only set when Kind == Unresolved.
}

// Name is a possibly-absolute dotted identifier path (spec.md §3 "Name").
// Equality is structural: two Names are equal iff their root-prefix flag
// and parts match exactly.
type Name struct {
	RootPrefix bool
	Parts      []string
}

// NewRelativeName builds a Name with no leading "::"-style root prefix.
func NewRelativeName(parts ...string) Name {
	return Name{Parts: append([]string(nil), parts...)}
}

// NewAbsoluteName builds a Name anchored at the unit root.
func NewAbsoluteName(parts ...string) Name {
	return Name{RootPrefix: true, Parts: append([]string(nil), parts...)}
}

// Equal reports structural equality between two Names.
func (n Name) Equal(o Name) bool {
	if n.RootPrefix != o.RootPrefix || len(n.Parts) != len(o.Parts) {
		return false
	}
	for i := range n.Parts {
		if n.Parts[i] != o.Parts[i] {
			return false
		}
	}
	return true
}

// String renders a Name in "::"-joined form, with a leading "::" for a
// rooted name; the parser's own source syntax separates parts with '.'.
func (n Name) String() string {
	prefix := ""
	if n.RootPrefix {
		prefix = "::"
	}
	return prefix + strings.Join(n.Parts, "::")
}

// Simple reports whether this Name has exactly one part and no root
// prefix, the only shape the current language grammar actually produces
// (spec.md §4.4: "future-proofed; current language uses only simple
// names").
func (n Name) Simple() (string, bool) {
	if !n.RootPrefix && len(n.Parts) == 1 {
		return n.Parts[0], true
	}
	return "", false
}

// table describes every concrete primitive type by Kind.
var table = map[Kind]Type{
	Void:   {Kind: Void, Width: 0, Signed: false, IsFloat: false},
	Bool:   {Kind: Bool, Width: 1, Signed: false, IsFloat: false},
	Byte:   {Kind: Byte, Width: 8, Signed: false, IsFloat: false},
	Char:   {Kind: Char, Width: 8, Signed: true, IsFloat: false},
	Short:  {Kind: Short, Width: 16, Signed: true, IsFloat: false},
	UShort: {Kind: UShort, Width: 16, Signed: false, IsFloat: false},
	Int:    {Kind: Int, Width: 32, Signed: true, IsFloat: false},
	UInt:   {Kind: UInt, Width: 32, Signed: false, IsFloat: false},
	Long:   {Kind: Long, Width: 64, Signed: true, IsFloat: false},
	ULong:  {Kind: ULong, Width: 64, Signed: false, IsFloat: false},
	Float:  {Kind: Float, Width: 32, Signed: false, IsFloat: true},
	Double: {Kind: Double, Width: 64, Signed: false, IsFloat: true},
}

// Primitive returns the canonical Type value for a primitive Kind. It
// panics for Unresolved, which carries no fixed width; build it with
// NewUnresolved instead.
func Primitive(k Kind) Type {
	t, ok := table[k]
	if !ok {
		panic(fmt.Sprintf("types: %v is not a primitive kind", k))
	}
	return t
}

// NewUnresolved builds the resolver's unresolved-type placeholder for the
// given name reference.
func NewUnresolved(n Name) Type {
	return Type{Kind: Unresolved, Unresolved: &n}
}

// IsUnresolved reports whether t is still the placeholder form.
func (t Type) IsUnresolved() bool {
	return t.Kind == Unresolved
}

// IsInteger reports whether t is one of the fixed-width integer kinds
// (bool is not considered an integer kind for arithmetic purposes).
func (t Type) IsInteger() bool {
	switch t.Kind {
	case Byte, Char, Short, UShort, Int, UInt, Long, ULong:
		return true
	}
	return false
}

// IsBool reports whether t is the boolean type.
func (t Type) IsBool() bool { return t.Kind == Bool }

// IsVoid reports whether t is the result type of a function with no
// declared return type.
func (t Type) IsVoid() bool { return t.Kind == Void }

// IsPrimitive reports whether t is a concrete primitive (not the
// unresolved placeholder and not the void marker).
func (t Type) IsPrimitive() bool {
	return t.Kind != Unresolved && t.Kind != Void
}

// Equal reports whether two Types denote the same primitive (or the same
// unresolved placeholder name).
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind == Unresolved {
		if t.Unresolved == nil || o.Unresolved == nil {
			return t.Unresolved == o.Unresolved
		}
		return t.Unresolved.Equal(*o.Unresolved)
	}
	return true
}

// String renders a Type for diagnostics.
func (t Type) String() string {
	switch t.Kind {
	case Unresolved:
		if t.Unresolved != nil {
			return fmt.Sprintf("unresolved(%s)", t.Unresolved)
		}
		return "unresolved"
	case Void:
		return "void"
	case Bool:
		return "bool"
	case Byte:
		return "byte"
	case Char:
		return "char"
	case Short:
		return "short"
	case UShort:
		return "ushort"
	case Int:
		return "int"
	case UInt:
		return "uint"
	case Long:
		return "long"
	case ULong:
		return "ulong"
	case Float:
		return "float"
	case Double:
		return "double"
	default:
		return "?"
	}
}

// FromKeyword maps a primitive-type keyword spelling plus an optional
// leading "unsigned" qualifier to its concrete Type, per the
// type_specifier grammar in spec.md §3/§4.2. ok is false for a keyword
// that does not name a primitive type.
func FromKeyword(word string, unsigned bool) (Type, bool) {
	switch word {
	case "bool":
		return Primitive(Bool), true
	case "byte":
		return Primitive(Byte), true
	case "char":
		return Primitive(Char), true
	case "short":
		if unsigned {
			return Primitive(UShort), true
		}
		return Primitive(Short), true
	case "int":
		if unsigned {
			return Primitive(UInt), true
		}
		return Primitive(Int), true
	case "long":
		if unsigned {
			return Primitive(ULong), true
		}
		return Primitive(Long), true
	case "float":
		return Primitive(Float), true
	case "double":
		return Primitive(Double), true
	}
	return Type{}, false
}
