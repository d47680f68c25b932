package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EmilienKia/klang-sub000/internal/token"
)

func scanOK(t *testing.T, src string) []token.Token {
	t.Helper()
	toks, err := Scan(src, nil)
	require.NoError(t, err)
	return toks
}

func TestDecimalIntegerSuffixes(t *testing.T) {
	suffixes := []string{"", "u", "s", "l", "ll", "ull", "ul", "us"}
	for _, suf := range suffixes {
		src := "123" + suf
		toks := scanOK(t, src)
		require.GreaterOrEqual(t, len(toks), 1)
		tok := toks[0]
		assert.Equal(t, token.IntegerLiteral, tok.Kind, "suffix %q", suf)
		assert.Equal(t, token.Decimal, tok.IntBase, "suffix %q", suf)
		assert.Equal(t, src, tok.Text, "suffix %q", suf)

		n, err := DecodeIntegerValue(tok)
		require.NoError(t, err)
		assert.Equal(t, uint64(123), n, "suffix %q", suf)
	}
}

func TestHexIntegerSuffixes(t *testing.T) {
	suffixes := []string{"", "u", "s", "l", "ll"}
	for _, suf := range suffixes {
		src := "0xFF" + suf
		toks := scanOK(t, src)
		tok := toks[0]
		assert.Equal(t, token.IntegerLiteral, tok.Kind)
		assert.Equal(t, token.Hex, tok.IntBase)
		assert.Equal(t, "FF", func() string {
			n, err := DecodeIntegerValue(tok)
			require.NoError(t, err)
			return toHexUpper(n)
		}())
	}
}

func toHexUpper(n uint64) string {
	const digits = "0123456789ABCDEF"
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{digits[n%16]}, b...)
		n /= 16
	}
	return string(b)
}

func TestOperatorLongestMatch(t *testing.T) {
	toks := scanOK(t, ">>=")
	require.Len(t, toks, 2) // operator + EOF
	assert.Equal(t, token.Operator, toks[0].Kind)
	assert.Equal(t, token.OpShrAssign, toks[0].Op)

	toks = scanOK(t, "> >=")
	require.Len(t, toks, 3) // '>' '>=' EOF
	assert.Equal(t, token.OpGt, toks[0].Op)
	assert.Equal(t, token.OpGe, toks[1].Op)

	toks = scanOK(t, ">>=")
	assert.Equal(t, token.OpShrAssign, toks[0].Op)
}

func TestGetUngetGetRoundtrip(t *testing.T) {
	toks := scanOK(t, "foo bar baz")
	c := NewCursor(toks)
	a := c.Get()
	b := c.Get()
	c.Unget()
	b2 := c.Get()
	assert.Equal(t, b, b2)
	assert.Equal(t, "foo", a.Text)
	assert.Equal(t, "bar", b.Text)
}

func TestCursorTellSeek(t *testing.T) {
	toks := scanOK(t, "a b c")
	c := NewCursor(toks)
	c.Get()
	pos := c.Tell()
	second := c.Get()
	c.Seek(pos)
	again := c.Get()
	assert.Equal(t, second, again)
}

func TestCommentsFilteredFromCursorView(t *testing.T) {
	raw := scanOK(t, "a // comment\nb")
	hasComment := false
	for _, tk := range raw {
		if tk.Kind == token.Comment {
			hasComment = true
		}
	}
	assert.True(t, hasComment, "raw sequence should retain comments")

	c := NewCursor(raw)
	first := c.Get()
	second := c.Get()
	assert.Equal(t, "a", first.Text)
	assert.Equal(t, "b", second.Text)
}

func TestUnterminatedStringIsFatal(t *testing.T) {
	_, err := Scan(`"unterminated`, nil)
	assert.Error(t, err)
}

func TestCharLiteralWithEscape(t *testing.T) {
	toks := scanOK(t, `'\n'`)
	assert.Equal(t, token.CharLiteral, toks[0].Kind)
}

func TestFloatLiteral(t *testing.T) {
	toks := scanOK(t, "3.14")
	assert.Equal(t, token.FloatLiteral, toks[0].Kind)
	v, err := DecodeFloatValue(toks[0])
	require.NoError(t, err)
	assert.InDelta(t, 3.14, v, 0.0001)
}

func TestBoolAndNullLiterals(t *testing.T) {
	toks := scanOK(t, "true false null")
	assert.Equal(t, token.BoolLiteral, toks[0].Kind)
	assert.Equal(t, token.BoolLiteral, toks[1].Kind)
	assert.Equal(t, token.NullLiteral, toks[2].Kind)
}

func TestKeywordVsIdentifier(t *testing.T) {
	toks := scanOK(t, "int intx")
	assert.Equal(t, token.Keyword, toks[0].Kind)
	assert.Equal(t, token.Identifier, toks[1].Kind)
}
