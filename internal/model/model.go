// Package model defines the semantic tree lowered from the AST
// (spec.md §3 "Semantic model", §4.3). Unlike the AST, every node here
// keeps an owning parent pointer and every expression carries a
// resolved-type slot that starts unresolved and is filled in by
// internal/resolve.
package model

import (
	"github.com/EmilienKia/klang-sub000/internal/ast"
	"github.com/EmilienKia/klang-sub000/internal/token"
	"github.com/EmilienKia/klang-sub000/internal/types"
)

// Node is implemented by every semantic tree shape.
type Node interface {
	Bounds() (ast.Span, bool) // The span is optional: synthesized nodes (e.g. an inserted cast) carry none.
}

// base is embedded by every concrete semantic node. A zero Span (no
// originating token) is valid — it marks a resolver-synthesized node.
type base struct {
	Span    ast.Span
	HasSpan bool
}

func (b base) Bounds() (ast.Span, bool) { return b.Span, b.HasSpan }

func spanOf(n ast.Node) base {
	start, end := n.Bounds()
	return base{Span: ast.Span{Start: start, End: end}, HasSpan: true}
}

// Unit is the semantic tree root: one translation unit, one root
// namespace.
type Unit struct {
	base
	ModuleName types.Name
	Imports    []string
	Root       *Namespace
}

// Namespace is a lexical container of declarations, forming a tree
// rooted at an anonymous absolute root (spec.md §3 "root is anonymous
// with absolute prefix").
type Namespace struct {
	base
	Name       string // Empty for the root or an anonymous namespace block.
	Parent     *Namespace
	Namespaces []*Namespace
	Functions  []*Function
	Globals    []*GlobalVariable

	// DefaultVisibility tracks the most recent visibility_decl seen in
	// this namespace's declaration sequence; it has no behavioral effect
	// on resolution or codegen today (the language has no access
	// control enforcement yet) but is retained so a future checker can
	// consume it without another lowering pass.
	DefaultVisibility ast.Visibility
}

// Variable is implemented by every named, typed storage location a
// symbol expression may resolve to: a function parameter, a local, or
// a global.
type Variable interface {
	Node
	VarName() string
	VarType() types.Type
	SetVarType(types.Type)
}

// Function declares (Body == nil) or defines a function.
type Function struct {
	base
	Name       string
	Params     []*Parameter
	ReturnType types.Type // types.Primitive(types.Void)-shaped placeholder is not modeled; nil ReturnType (zero Type{}) means void.
	HasReturn  bool       // False for an implicit void return type.
	Body       *Block
	Parent     *Namespace
}

// Parameter is one entry of a function's parameter list; it implements
// Variable so a symbol expression can resolve directly to it.
type Parameter struct {
	base
	Name  string
	Type  types.Type
	Owner *Function
}

func (p *Parameter) VarName() string          { return p.Name }
func (p *Parameter) VarType() types.Type      { return p.Type }
func (p *Parameter) SetVarType(t types.Type)  { p.Type = t }

// GlobalVariable is a namespace-scoped variable declaration.
type GlobalVariable struct {
	base
	Name   string
	Type   types.Type
	Init   Expression // nil if no initializer.
	Parent *Namespace
}

func (g *GlobalVariable) VarName() string         { return g.Name }
func (g *GlobalVariable) VarType() types.Type     { return g.Type }
func (g *GlobalVariable) SetVarType(t types.Type) { g.Type = t }

// LocalVariable is a block- or for-header-scoped variable declaration.
// It implements both Variable and Statement, mirroring ast.VariableDecl.
type LocalVariable struct {
	base
	Name  string
	Type  types.Type
	Init  Expression
	Owner *Block
}

func (l *LocalVariable) VarName() string         { return l.Name }
func (l *LocalVariable) VarType() types.Type     { return l.Type }
func (l *LocalVariable) SetVarType(t types.Type) { l.Type = t }
func (*LocalVariable) stmtNode()                 {}

// Statement is implemented by every semantic statement shape.
type Statement interface {
	Node
	stmtNode()
}

// Block is a statement sequence with its own local-variable scope.
type Block struct {
	base
	Stmts  []Statement
	Locals []*LocalVariable
	Parent Node // *Function for a function body, *For for a for-header scope, otherwise the enclosing *Block.
}

func (*Block) stmtNode() {}

// Return optionally carries the function's return value expression.
type Return struct {
	base
	Value      Expression // nil for a bare "return;".
	Enclosing  *Function
}

func (*Return) stmtNode() {}

// IfElse mirrors ast.IfElseStmt at the semantic level.
type IfElse struct {
	base
	Cond Expression
	Then Statement
	Else Statement
}

func (*IfElse) stmtNode() {}

// While mirrors ast.WhileStmt.
type While struct {
	base
	Cond Expression
	Body Statement
}

func (*While) stmtNode() {}

// For mirrors ast.ForStmt. Exactly one of Decl/Init is set, or neither.
type For struct {
	base
	Decl *LocalVariable
	Init Expression
	Cond Expression
	Step Expression
	Body Statement
}

func (*For) stmtNode() {}

// ExprStmt is a bare expression used as a statement.
type ExprStmt struct {
	base
	X Expression
}

func (*ExprStmt) stmtNode() {}

// Expression is implemented by every semantic expression shape. Every
// expression carries a resolved-type slot, initially unresolved
// (spec.md §3 "Every expression has a type slot, initially
// unresolved").
type Expression interface {
	Node
	exprNode()
	Type() types.Type
	SetType(types.Type)
}

// exprBase is embedded by every concrete expression node.
type exprBase struct {
	base
	Typ types.Type
}

func (e *exprBase) exprNode()             {}
func (e *exprBase) Type() types.Type      { return e.Typ }
func (e *exprBase) SetType(t types.Type)  { e.Typ = t }

// newExprBase builds the common embedded state for a lowered expression
// node: its originating span and a pending (zero-value, Kind ==
// Unresolved) type slot for the resolver to fill in.
func newExprBase(n ast.Node) exprBase {
	return exprBase{base: spanOf(n)}
}

// Referent classifies what a SymbolExpr's name resolved to (spec.md §3
// "one of unresolved | variable | function").
type Referent int

const (
	RefUnresolved Referent = iota
	RefVariable
	RefFunction
)

// SymbolExpr is a bare name reference, resolved by internal/resolve.
type SymbolExpr struct {
	exprBase
	Name     types.Name
	Referent Referent
	Var      Variable
	Fn       *Function
}

// IntLiteral carries the raw integer token, whose text and lexical
// metadata the resolver uses to pick a concrete type (spec.md
// §4.4 "literal: type from literal kind/suffix").
type IntLiteral struct {
	exprBase
	Tok token.Token
}

// FloatLiteral mirrors IntLiteral for float literals.
type FloatLiteral struct {
	exprBase
	Tok token.Token
}

// CharLiteral carries the decoded byte value of a character literal.
type CharLiteral struct {
	exprBase
	Value byte
}

// StringLiteral carries a decoded string literal; the current type
// system has no array/pointer kind to assign it (spec.md §3 lists only
// primitive types), so the resolver reports it as an unsupported
// literal — see DESIGN.md.
type StringLiteral struct {
	exprBase
	Value string
}

// BoolLiteral is "true" or "false".
type BoolLiteral struct {
	exprBase
	Value bool
}

// NullLiteral is the "null" literal; like StringLiteral it has no
// admissible type in a pointer-free type system and is rejected by the
// resolver.
type NullLiteral struct {
	exprBase
}

// UnaryOp mirrors ast.UnaryOp at the semantic level.
type UnaryOp = ast.UnaryOp

// UnaryExpr is a prefix or postfix unary operator application.
type UnaryExpr struct {
	exprBase
	Op UnaryOp
	X  Expression
}

// BinaryOp mirrors ast.BinaryOp at the semantic level.
type BinaryOp = ast.BinaryOp

// BinaryExpr is a binary (including compound-assignment) operator
// application.
type BinaryExpr struct {
	exprBase
	Op    BinaryOp
	Left  Expression
	Right Expression
}

// TernaryExpr is "cond ? then : else".
type TernaryExpr struct {
	exprBase
	Cond Expression
	Then Expression
	Else Expression
}

// CastExpr is a conversion to Target, either written explicitly by the
// programmer (lowered from ast.CastExpr) or synthesized by the resolver
// to satisfy an implicit-conversion rule (spec.md §3 "Implicit
// conversions appear only as explicit cast_expression nodes").
type CastExpr struct {
	exprBase
	Target   types.Type
	X        Expression
	Implicit bool
}

// CallExpr invokes a function named by Callee (a SymbolExpr) with Args.
type CallExpr struct {
	exprBase
	Callee Expression
	Args   []Expression
}

// IndexExpr is "x[i]"; see DESIGN.md for why the resolver currently
// rejects this against every primitive operand type.
type IndexExpr struct {
	exprBase
	X     Expression
	Index Expression
}

// NewImplicitCast wraps x in a resolver-synthesized CastExpr targeting
// target. It carries no originating span, marking it as inserted rather
// than written by the programmer (spec.md §3 "Implicit conversions
// appear only as explicit cast_expression nodes inserted by the
// resolver").
func NewImplicitCast(x Expression, target types.Type) *CastExpr {
	return &CastExpr{
		exprBase: exprBase{Typ: target},
		Target:   target,
		X:        x,
		Implicit: true,
	}
}
