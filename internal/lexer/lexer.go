// Package lexer implements streaming tokenization with lookahead and
// rollback, following the state-function discipline used throughout the
// retrieval pack's hand-written scanners (one function per lexer state,
// returning the next state to run). Unlike a channel-fed scanner, Lexer
// tokenizes the whole unit up front into a buffer so that Cursor can offer
// tell/seek backtracking to the parser without goroutine coordination.
package lexer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/EmilienKia/klang-sub000/internal/diag"
	"github.com/EmilienKia/klang-sub000/internal/token"
)

const eof = rune(-1)

// stateFunc defines one state of the scanning FSM; it is called with the
// scanner positioned at the next unconsumed byte and returns the state to
// run next, or nil when scanning is complete.
type stateFunc func(*scanner) stateFunc

// scanner walks the source byte-by-byte (with UTF-8 decoding so that
// pass-through bytes inside string/char bodies are not corrupted) and
// accumulates Token values into out.
type scanner struct {
	src         string
	start       int // Byte offset of the token currently being scanned.
	pos         int // Next unread byte offset.
	width       int // Width in bytes of the last rune returned by next.
	line        int
	col         int // Column of s.start, 1-indexed.
	startLine   int
	out         []token.Token
	log         diag.Logger
	fatal       error
}

// Scan tokenizes src in full and returns the complete token sequence
// (comments included — callers that need the parser's filtered view should
// use NewCursor, which hides comments). A non-nil error is returned only
// for a byte sequence the FSM cannot recover from (spec.md §4.1 "a truly
// unrecognizable byte emits an error and terminates the unit"); malformed
// escapes and unterminated comments are reported through log as warnings
// and otherwise accepted with best-effort content.
func Scan(src string, log diag.Logger) ([]token.Token, error) {
	s := &scanner{
		src:       src,
		line:      1,
		col:       1,
		startLine: 1,
		log:       log,
	}
	for state := stateStart; state != nil; {
		state = state(s)
	}
	if s.fatal != nil {
		return nil, s.fatal
	}
	return s.out, nil
}

// next returns and consumes the next rune, or eof past the end of input.
func (s *scanner) next() rune {
	if s.pos >= len(s.src) {
		s.width = 0
		return eof
	}
	r, w := utf8.DecodeRuneInString(s.src[s.pos:])
	s.width = w
	s.pos += w
	return r
}

// backup steps back over the last rune returned by next. Must only be
// called once per call to next.
func (s *scanner) backup() {
	s.pos -= s.width
}

// peek returns, without consuming, the next rune.
func (s *scanner) peek() rune {
	r := s.next()
	s.backup()
	return r
}

// peekAt looks ahead n runes without consuming any input (n=0 is peek).
// Used by the fraction/exponent lookahead in decimal literals and the
// l64/l128 integer-suffix checks.
func (s *scanner) peekAt(n int) rune {
	p := s.pos
	var r rune = eof
	for i := 0; i <= n; i++ {
		if p >= len(s.src) {
			return eof
		}
		var w int
		r, w = utf8.DecodeRuneInString(s.src[p:])
		p += w
	}
	return r
}

func (s *scanner) text() string {
	return s.src[s.start:s.pos]
}

// emitFull appends a fully-populated Token and resets start to pos.
func (s *scanner) emitFull(t token.Token) {
	t.Text = s.text()
	t.Start = token.Coord{Offset: s.start, Line: s.startLine, Column: s.col}
	t.End = token.Coord{Offset: s.pos, Line: s.line, Column: s.col + len([]rune(t.Text))}
	s.out = append(s.out, t)
	s.col += utf8.RuneCountInString(t.Text)
	s.start = s.pos
	s.startLine = s.line
}

// emit appends a simple token (no numeric/keyword metadata beyond kind).
func (s *scanner) emit(kind token.Kind) {
	s.emitFull(token.Token{Kind: kind})
}

// ignore discards the pending lexeme without emitting a token (used for
// whitespace and comments-as-noise paths, though comments are retained per
// spec.md §3 "Comments are retained in the raw sequence").
func (s *scanner) ignore() {
	s.col += utf8.RuneCountInString(s.text())
	s.start = s.pos
	s.startLine = s.line
}

func (s *scanner) newline() {
	s.line++
	s.col = 1
	s.startLine = s.line
}

// warn reports a recoverable lexical diagnostic (code 0x0???? family) and
// continues scanning.
func (s *scanner) warn(code uint32, msg string, args ...interface{}) {
	if s.log != nil {
		s.log.Log(diag.Entry{
			Severity: diag.Warning,
			Code:     code,
			Start:    token.Coord{Offset: s.start, Line: s.startLine, Column: s.col},
			End:      token.Coord{Offset: s.pos, Line: s.line, Column: s.col},
			Template: msg,
			Args:     args,
		})
	}
}

// fail records the fatal lexical error (spec.md §4.1) under the given
// code and stops the FSM.
func (s *scanner) fail(code uint32, msg string, args ...interface{}) stateFunc {
	if s.log != nil {
		s.log.Log(diag.Entry{
			Severity: diag.Error,
			Code:     code,
			Start:    token.Coord{Offset: s.start, Line: s.startLine, Column: s.col},
			End:      token.Coord{Offset: s.pos, Line: s.line, Column: s.col},
			Template: msg,
			Args:     args,
		})
	}
	s.fatal = fmt.Errorf(msg, args...)
	return nil
}

// ------------------------------
// ----- Cursor over tokens -----
// ------------------------------

// Cursor is the restartable, rewindable view over a scanned token sequence
// that the parser drives. It hides Comment tokens (spec.md §3: "filtered
// from the parser view") while Scan's raw []token.Token retains them.
type Cursor struct {
	view []token.Token // Non-comment tokens, always ending in one EOF token.
	pos  int           // Index into view of the next token Get will return.
}

// NewCursor builds a Cursor from a raw token sequence produced by Scan,
// dropping Comment tokens and guaranteeing the view ends with an EOF
// token even if the raw sequence didn't carry one.
func NewCursor(raw []token.Token) *Cursor {
	view := make([]token.Token, 0, len(raw)+1)
	for _, t := range raw {
		if t.Kind == token.Comment {
			continue
		}
		view = append(view, t)
	}
	if len(view) == 0 || view[len(view)-1].Kind != token.EOF {
		view = append(view, token.Token{Kind: token.EOF})
	}
	return &Cursor{view: view}
}

// Get returns the next non-comment token and advances the cursor. Past the
// final token it repeatedly returns the terminal EOF token.
func (c *Cursor) Get() token.Token {
	t := c.view[c.pos]
	if c.pos < len(c.view)-1 {
		c.pos++
	}
	return t
}

// Unget rewinds the cursor by n non-comment tokens (default 1).
func (c *Cursor) Unget(n ...int) {
	k := 1
	if len(n) > 0 {
		k = n[0]
	}
	c.pos -= k
	if c.pos < 0 {
		c.pos = 0
	}
}

// Peek returns the next token without advancing the cursor.
func (c *Cursor) Peek() token.Token {
	return c.view[c.pos]
}

// Tell returns an opaque cursor position for later Seek.
func (c *Cursor) Tell() int {
	return c.pos
}

// Seek restores a position previously returned by Tell.
func (c *Cursor) Seek(pos int) {
	if pos < 0 {
		pos = 0
	}
	if pos > len(c.view)-1 {
		pos = len(c.view) - 1
	}
	c.pos = pos
}

// Eof reports whether the cursor sits at (or past) the terminal EOF token.
func (c *Cursor) Eof() bool {
	return c.view[c.pos].Kind == token.EOF
}

// ---------------------------------
// ----- Operator/punctuator table --
// ---------------------------------

// opEntry is one row of the longest-match operator/punctuator table.
type opEntry struct {
	text  string
	kind  token.Kind
	op    token.OperatorKind
	punct token.PunctuatorKind
}

// opTable is built once at package init (spec.md §9 "Implementers should
// build this table once at process startup... rather than per-lex") and
// kept sorted by descending text length so the longest match always wins.
var opTable []opEntry

func init() {
	opTable = []opEntry{
		{text: "(", kind: token.Punctuator, punct: token.PLParen},
		{text: ")", kind: token.Punctuator, punct: token.PRParen},
		{text: "{", kind: token.Punctuator, punct: token.PLBrace},
		{text: "}", kind: token.Punctuator, punct: token.PRBrace},
		{text: "[", kind: token.Punctuator, punct: token.PLBracket},
		{text: "]", kind: token.Punctuator, punct: token.PRBracket},
		{text: ";", kind: token.Punctuator, punct: token.PSemicolon},
		{text: ":", kind: token.Punctuator, punct: token.PColon},
		{text: ",", kind: token.Punctuator, punct: token.PComma},
		{text: ".", kind: token.Punctuator, punct: token.PDot},

		{text: "=", kind: token.Operator, op: token.OpAssign},
		{text: "+=", kind: token.Operator, op: token.OpPlusAssign},
		{text: "-=", kind: token.Operator, op: token.OpMinusAssign},
		{text: "*=", kind: token.Operator, op: token.OpStarAssign},
		{text: "/=", kind: token.Operator, op: token.OpSlashAssign},
		{text: "%=", kind: token.Operator, op: token.OpPercentAssign},
		{text: "&=", kind: token.Operator, op: token.OpAndAssign},
		{text: "|=", kind: token.Operator, op: token.OpOrAssign},
		{text: "^=", kind: token.Operator, op: token.OpXorAssign},
		{text: "<<=", kind: token.Operator, op: token.OpShlAssign},
		{text: ">>=", kind: token.Operator, op: token.OpShrAssign},

		{text: "++", kind: token.Operator, op: token.OpIncrement},
		{text: "--", kind: token.Operator, op: token.OpDecrement},
		{text: "+", kind: token.Operator, op: token.OpPlus},
		{text: "-", kind: token.Operator, op: token.OpMinus},
		{text: "*", kind: token.Operator, op: token.OpStar},
		{text: "/", kind: token.Operator, op: token.OpSlash},
		{text: "%", kind: token.Operator, op: token.OpPercent},
		{text: "&", kind: token.Operator, op: token.OpAmp},
		{text: "|", kind: token.Operator, op: token.OpPipe},
		{text: "^", kind: token.Operator, op: token.OpCaret},
		{text: "~", kind: token.Operator, op: token.OpTilde},
		{text: "<<", kind: token.Operator, op: token.OpShl},
		{text: ">>", kind: token.Operator, op: token.OpShr},
		{text: "==", kind: token.Operator, op: token.OpEq},
		{text: "!=", kind: token.Operator, op: token.OpNe},
		{text: "<", kind: token.Operator, op: token.OpLt},
		{text: "<=", kind: token.Operator, op: token.OpLe},
		{text: ">", kind: token.Operator, op: token.OpGt},
		{text: ">=", kind: token.Operator, op: token.OpGe},
		{text: "&&", kind: token.Operator, op: token.OpAndAnd},
		{text: "||", kind: token.Operator, op: token.OpOrOr},
		{text: "!", kind: token.Operator, op: token.OpNot},
		{text: "?", kind: token.Operator, op: token.OpQuestion},
		{text: ".*", kind: token.Operator, op: token.OpDotStar},
		{text: "->*", kind: token.Operator, op: token.OpArrowStar},
	}
	// Sort by descending length so the greedy strip below always takes the
	// longest available match (">>=" beats ">>" beats ">").
	for i := 1; i < len(opTable); i++ {
		for j := i; j > 0 && len(opTable[j].text) > len(opTable[j-1].text); j-- {
			opTable[j], opTable[j-1] = opTable[j-1], opTable[j]
		}
	}
}

// matchLongest strips the longest operator/punctuator prefix of s and
// returns the matching entry and its byte length, or ok=false.
func matchLongest(s string) (opEntry, int, bool) {
	for _, e := range opTable {
		if strings.HasPrefix(s, e.text) {
			return e, len(e.text), true
		}
	}
	return opEntry{}, 0, false
}
