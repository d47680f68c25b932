// Package token defines the lexical vocabulary shared by the lexer and
// parser: source coordinates, token kinds and the literal-payload metadata
// carried by numeric tokens.
package token

import "fmt"

// Coord is a single position in a source unit: a byte offset together with
// the 1-indexed line and column it corresponds to. Every token carries a
// start and end Coord; lexemes that span lines still carry one start/end
// pair rather than one per line.
type Coord struct {
	Offset int
	Line   int
	Column int
}

// String renders a Coord as "line,column", the form used by diagnostic
// lines (see internal/diag).
func (c Coord) String() string {
	return fmt.Sprintf("%d,%d", c.Line, c.Column)
}

// Kind differentiates the tagged-variant shapes a Token may take.
type Kind int

const (
	Invalid Kind = iota
	EOF
	Identifier
	Keyword
	Punctuator
	Operator
	IntegerLiteral
	FloatLiteral
	CharLiteral
	StringLiteral
	BoolLiteral
	NullLiteral
	Comment
)

//go:generate stringer -type=Kind

func (k Kind) String() string {
	switch k {
	case Invalid:
		return "INVALID"
	case EOF:
		return "EOF"
	case Identifier:
		return "IDENTIFIER"
	case Keyword:
		return "KEYWORD"
	case Punctuator:
		return "PUNCTUATOR"
	case Operator:
		return "OPERATOR"
	case IntegerLiteral:
		return "INTEGER_LITERAL"
	case FloatLiteral:
		return "FLOAT_LITERAL"
	case CharLiteral:
		return "CHAR_LITERAL"
	case StringLiteral:
		return "STRING_LITERAL"
	case BoolLiteral:
		return "BOOL_LITERAL"
	case NullLiteral:
		return "NULL_LITERAL"
	case Comment:
		return "COMMENT"
	default:
		return fmt.Sprintf("KIND(%d)", int(k))
	}
}

// KeywordKind enumerates reserved words. Primitive-type keywords are a
// sub-range so the parser can test membership with a single range check.
type KeywordKind int

const (
	KwModule KeywordKind = iota
	KwImport
	KwNamespace
	KwPublic
	KwProtected
	KwPrivate
	KwReturn
	KwIf
	KwElse
	KwWhile
	KwFor
	KwUnsigned
	// Primitive-type keywords. Keep contiguous: IsPrimitiveKeyword relies
	// on this range.
	KwBool
	KwByte
	KwChar
	KwShort
	KwInt
	KwLong
	KwFloat
	KwDouble
)

// IsPrimitiveKeyword reports whether k names a primitive type.
func IsPrimitiveKeyword(k KeywordKind) bool {
	return k >= KwBool && k <= KwDouble
}

var keywordText = map[string]KeywordKind{
	"module":    KwModule,
	"import":    KwImport,
	"namespace": KwNamespace,
	"public":    KwPublic,
	"protected": KwProtected,
	"private":   KwPrivate,
	"return":    KwReturn,
	"if":        KwIf,
	"else":      KwElse,
	"while":     KwWhile,
	"for":       KwFor,
	"unsigned":  KwUnsigned,
	"bool":      KwBool,
	"byte":      KwByte,
	"char":      KwChar,
	"short":     KwShort,
	"int":       KwInt,
	"long":      KwLong,
	"float":     KwFloat,
	"double":    KwDouble,
}

// LookupKeyword returns the KeywordKind for text and true if text names a
// reserved word other than true/false/null (those are handled as literal
// kinds, see LookupLiteralWord).
func LookupKeyword(text string) (KeywordKind, bool) {
	k, ok := keywordText[text]
	return k, ok
}

// LookupLiteralWord classifies the three reserved literal spellings.
func LookupLiteralWord(text string) (Kind, bool) {
	switch text {
	case "true", "false":
		return BoolLiteral, true
	case "null":
		return NullLiteral, true
	}
	return Invalid, false
}

// PunctuatorKind enumerates single-purpose structural punctuation.
type PunctuatorKind int

const (
	PLParen PunctuatorKind = iota
	PRParen
	PLBrace
	PRBrace
	PLBracket
	PRBracket
	PSemicolon
	PColon
	PComma
	PDot
)

// OperatorKind enumerates the operator vocabulary. Ordering is irrelevant;
// the longest-match table in the lexer is keyed by text, not by this
// ordering.
type OperatorKind int

const (
	OpAssign OperatorKind = iota
	OpPlusAssign
	OpMinusAssign
	OpStarAssign
	OpSlashAssign
	OpPercentAssign
	OpAndAssign
	OpOrAssign
	OpXorAssign
	OpShlAssign
	OpShrAssign
	OpPlus
	OpMinus
	OpStar
	OpSlash
	OpPercent
	OpAmp
	OpPipe
	OpCaret
	OpTilde
	OpShl
	OpShr
	OpEq
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
	OpAndAnd
	OpOrOr
	OpNot
	OpQuestion
	OpDotStar
	OpArrowStar
	OpIncrement
	OpDecrement
)

// Base is the numeric base an integer literal was written in.
type Base int

const (
	Decimal Base = iota
	Binary
	Octal
	Hex
)

// IntWidth is the declared width of an integer literal's suffix.
type IntWidth int

const (
	WidthDefault IntWidth = iota
	WidthShort
	WidthInt
	WidthLong
	WidthLongLong
	Width64
	Width128
	WidthByte
)

// FloatWidth distinguishes float/double literal suffixes.
type FloatWidth int

const (
	FloatSingle FloatWidth = iota
	FloatDouble
)

// Token is the tagged-variant lexeme the lexer emits and the parser
// consumes. Numeric-literal-only fields are zero for non-numeric kinds.
type Token struct {
	Kind  Kind
	Text  string // Raw source slice.
	Start Coord
	End   Coord

	Keyword    KeywordKind
	Punct      PunctuatorKind
	Op         OperatorKind
	IntBase    Base
	IntWidth   IntWidth
	IntUnsigned bool
	FloatWidth FloatWidth
}

// String renders a Token for diagnostics and test fixtures.
func (t Token) String() string {
	if len(t.Text) > 20 {
		return fmt.Sprintf("%s %.17q... (%s)", t.Kind, t.Text, t.Start)
	}
	return fmt.Sprintf("%s %q (%s)", t.Kind, t.Text, t.Start)
}
