// Package resolve implements symbol resolution and type computation over
// the semantic model built by internal/model (spec.md §4.4 "Resolver").
// It never changes the tree's shape (no node is added or removed except
// implicit casts, which are themselves ordinary CastExpr nodes) — it only
// fills in each SymbolExpr's Referent/Var/Fn and every expression's Type
// slot.
package resolve

import (
	"github.com/EmilienKia/klang-sub000/internal/ast"
	"github.com/EmilienKia/klang-sub000/internal/diag"
	"github.com/EmilienKia/klang-sub000/internal/model"
	"github.com/EmilienKia/klang-sub000/internal/token"
	"github.com/EmilienKia/klang-sub000/internal/types"
)

// scope is one level of the ascending lookup chain used for simple-name
// resolution (spec.md §4.4 "block locals, then function params, then
// ascending enclosing namespaces' globals/functions"). It never holds a
// namespace pointer: the namespace chain is walked separately, once the
// scope chain is exhausted.
type scope struct {
	parent *scope
	locals []*model.LocalVariable
	params []*model.Parameter
}

func (s *scope) lookup(name string) model.Variable {
	for cur := s; cur != nil; cur = cur.parent {
		for i := len(cur.locals) - 1; i >= 0; i-- {
			if cur.locals[i].Name == name {
				return cur.locals[i]
			}
		}
		for _, p := range cur.params {
			if p.Name == name {
				return p
			}
		}
	}
	return nil
}

// resolver walks the semantic tree resolving names and computing types.
type resolver struct {
	log diag.Logger
}

// Resolve resolves every symbol and computes every expression's type in
// place across u. It returns the first error encountered; partial
// resolution may be visible on u afterward.
func Resolve(u *model.Unit, log diag.Logger) error {
	r := &resolver{log: log}
	return r.resolveNamespace(u.Root)
}

// bounds unwraps a model.Node's optional span, reporting ok=false for a
// resolver-synthesized node with no originating source text.
func bounds(n model.Node) (start, end token.Coord, ok bool) {
	sp, has := n.Bounds()
	if !has {
		return token.Coord{}, token.Coord{}, false
	}
	return sp.Start, sp.End, true
}

func (r *resolver) fail(code uint32, n model.Node, format string, args ...interface{}) error {
	e := diag.Entry{Severity: diag.Error, Code: code, Template: format, Args: args}
	if start, end, ok := bounds(n); ok {
		e.Start, e.End = start, end
	}
	if r.log != nil {
		r.log.Log(e)
	}
	return &ResolveError{Entry: e}
}

// ResolveError is thrown when a name cannot be resolved or an operand's
// type violates a type-computation rule.
type ResolveError struct{ Entry diag.Entry }

func (e *ResolveError) Error() string { return e.Entry.Message() }

func (r *resolver) resolveNamespace(ns *model.Namespace) error {
	for _, g := range ns.Globals {
		if err := r.resolveGlobal(g); err != nil {
			return err
		}
	}
	for _, fn := range ns.Functions {
		if err := r.resolveFunction(fn, ns); err != nil {
			return err
		}
	}
	for _, child := range ns.Namespaces {
		if err := r.resolveNamespace(child); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) resolveGlobal(g *model.GlobalVariable) error {
	if g.Init == nil {
		return nil
	}
	init, err := r.resolveExpr(g.Init, nil, g.Parent)
	if err != nil {
		return err
	}
	cast, err := r.castTo(init, g.Type, g)
	if err != nil {
		return err
	}
	g.Init = cast
	return nil
}

func (r *resolver) resolveFunction(fn *model.Function, ns *model.Namespace) error {
	if fn.Body == nil {
		return nil // Prototype only; nothing to resolve.
	}
	top := &scope{params: fn.Params}
	return r.resolveBlock(fn.Body, top, ns)
}

func (r *resolver) resolveBlock(b *model.Block, parent *scope, ns *model.Namespace) error {
	if err := checkNoShadowing(b, parent); err != nil {
		if r.log != nil {
			r.log.Log(err.Entry)
		}
		return err
	}
	s := &scope{parent: parent, locals: b.Locals}
	for _, st := range b.Stmts {
		if err := r.resolveStmt(st, s, ns); err != nil {
			return err
		}
	}
	return nil
}

// checkNoShadowing rejects a local that reuses the name of a local or
// parameter already visible in an enclosing scope of the same function
// (spec.md §3 "No local may shadow a name already visible in an enclosing
// scope of the same function").
func checkNoShadowing(b *model.Block, parent *scope) *ResolveError {
	for _, l := range b.Locals {
		if parent != nil && parent.lookup(l.Name) != nil {
			e := diag.Entry{
				Severity: diag.Error,
				Code:     0x30001,
				Template: "declaration of {} shadows a variable already visible in this function",
				Args:     []interface{}{l.Name},
			}
			if start, end, ok := bounds(l); ok {
				e.Start, e.End = start, end
			}
			return &ResolveError{Entry: e}
		}
	}
	return nil
}

func (r *resolver) resolveStmt(s model.Statement, sc *scope, ns *model.Namespace) error {
	switch ss := s.(type) {
	case *model.Block:
		return r.resolveBlock(ss, sc, ns)
	case *model.Return:
		return r.resolveReturn(ss, sc, ns)
	case *model.IfElse:
		return r.resolveIfElse(ss, sc, ns)
	case *model.While:
		return r.resolveWhile(ss, sc, ns)
	case *model.For:
		return r.resolveFor(ss, sc, ns)
	case *model.LocalVariable:
		return r.resolveLocal(ss, sc, ns)
	case *model.ExprStmt:
		x, err := r.resolveExpr(ss.X, sc, ns)
		if err != nil {
			return err
		}
		ss.X = x
		return nil
	default:
		return r.fail(0x30002, s, "unsupported statement shape")
	}
}

func (r *resolver) resolveLocal(l *model.LocalVariable, sc *scope, ns *model.Namespace) error {
	if l.Init == nil {
		return nil
	}
	init, err := r.resolveExpr(l.Init, sc, ns)
	if err != nil {
		return err
	}
	cast, err := r.castTo(init, l.Type, l)
	if err != nil {
		return err
	}
	l.Init = cast
	return nil
}

func (r *resolver) resolveReturn(s *model.Return, sc *scope, ns *model.Namespace) error {
	fn := s.Enclosing
	if s.Value == nil {
		if fn != nil && fn.HasReturn && !fn.ReturnType.IsVoid() {
			return r.fail(0x30003, s, "missing return value in function declared to return {}", fn.ReturnType)
		}
		return nil
	}
	v, err := r.resolveExpr(s.Value, sc, ns)
	if err != nil {
		return err
	}
	if fn == nil || !fn.HasReturn || fn.ReturnType.IsVoid() {
		return r.fail(0x30004, s, "return with a value in a function with no declared return type")
	}
	cast, err := r.castTo(v, fn.ReturnType, s)
	if err != nil {
		return err
	}
	s.Value = cast
	return nil
}

func (r *resolver) resolveIfElse(s *model.IfElse, sc *scope, ns *model.Namespace) error {
	cond, err := r.resolveExpr(s.Cond, sc, ns)
	if err != nil {
		return err
	}
	cond, err = r.castTo(cond, types.Primitive(types.Bool), s)
	if err != nil {
		return err
	}
	s.Cond = cond
	if err := r.resolveStmt(s.Then, sc, ns); err != nil {
		return err
	}
	if s.Else != nil {
		return r.resolveStmt(s.Else, sc, ns)
	}
	return nil
}

func (r *resolver) resolveWhile(s *model.While, sc *scope, ns *model.Namespace) error {
	cond, err := r.resolveExpr(s.Cond, sc, ns)
	if err != nil {
		return err
	}
	cond, err = r.castTo(cond, types.Primitive(types.Bool), s)
	if err != nil {
		return err
	}
	s.Cond = cond
	return r.resolveStmt(s.Body, sc, ns)
}

// resolveFor mirrors the for-header's own block scope from lowering: the
// header's declaration (if any) is resolved in a scope of its own, which
// the condition/step/body see but an enclosing statement does not.
func (r *resolver) resolveFor(s *model.For, sc *scope, ns *model.Namespace) error {
	headerScope := sc
	if s.Decl != nil {
		if err := r.resolveLocal(s.Decl, sc, ns); err != nil {
			return err
		}
		headerScope = &scope{parent: sc, locals: []*model.LocalVariable{s.Decl}}
	} else if s.Init != nil {
		init, err := r.resolveExpr(s.Init, sc, ns)
		if err != nil {
			return err
		}
		s.Init = init
	}
	if s.Cond != nil {
		cond, err := r.resolveExpr(s.Cond, headerScope, ns)
		if err != nil {
			return err
		}
		cond, err = r.castTo(cond, types.Primitive(types.Bool), s)
		if err != nil {
			return err
		}
		s.Cond = cond
	}
	if s.Step != nil {
		step, err := r.resolveExpr(s.Step, headerScope, ns)
		if err != nil {
			return err
		}
		s.Step = step
	}
	return r.resolveStmt(s.Body, headerScope, ns)
}

// resolveExpr computes sc's and ns's visible symbols against e, returning
// the (possibly cast-wrapped) replacement expression with its Type slot
// filled in. sc may be nil at namespace (global-initializer) scope.
func (r *resolver) resolveExpr(e model.Expression, sc *scope, ns *model.Namespace) (model.Expression, error) {
	switch ee := e.(type) {
	case *model.SymbolExpr:
		return r.resolveSymbol(ee, sc, ns)
	case *model.IntLiteral:
		ee.SetType(intLiteralType(ee))
		return ee, nil
	case *model.FloatLiteral:
		ee.SetType(floatLiteralType(ee))
		return ee, nil
	case *model.CharLiteral:
		ee.SetType(types.Primitive(types.Char))
		return ee, nil
	case *model.BoolLiteral:
		ee.SetType(types.Primitive(types.Bool))
		return ee, nil
	case *model.StringLiteral:
		return nil, r.fail(0x30010, ee, "string literals have no admissible type in this language")
	case *model.NullLiteral:
		return nil, r.fail(0x30011, ee, "null has no admissible type in this language")
	case *model.UnaryExpr:
		return r.resolveUnary(ee, sc, ns)
	case *model.BinaryExpr:
		return r.resolveBinary(ee, sc, ns)
	case *model.TernaryExpr:
		return r.resolveTernary(ee, sc, ns)
	case *model.CastExpr:
		return r.resolveCast(ee, sc, ns)
	case *model.CallExpr:
		return r.resolveCall(ee, sc, ns)
	case *model.IndexExpr:
		return nil, r.fail(0x30012, ee, "indexing has no admissible type: no array or pointer type exists")
	default:
		return nil, r.fail(0x30013, e, "unsupported expression shape")
	}
}

func (r *resolver) resolveSymbol(e *model.SymbolExpr, sc *scope, ns *model.Namespace) (model.Expression, error) {
	if simple, ok := e.Name.Simple(); ok {
		if sc != nil {
			if v := sc.lookup(simple); v != nil {
				e.Referent = model.RefVariable
				e.Var = v
				e.SetType(v.VarType())
				return e, nil
			}
		}
		for cur := ns; cur != nil; cur = cur.Parent {
			for _, g := range cur.Globals {
				if g.Name == simple {
					e.Referent = model.RefVariable
					e.Var = g
					e.SetType(g.Type)
					return e, nil
				}
			}
			for _, fn := range cur.Functions {
				if fn.Name == simple {
					e.Referent = model.RefFunction
					e.Fn = fn
					e.SetType(functionValueType(fn))
					return e, nil
				}
			}
		}
		return nil, r.fail(0x30020, e, "undeclared name {}", simple)
	}

	// Rooted/multi-part names resolve by walking the namespace tree from
	// its root, per spec.md §4.4.
	root := ns
	for root.Parent != nil {
		root = root.Parent
	}
	cur := root
	parts := e.Name.Parts
	for i, part := range parts {
		last := i == len(parts)-1
		if last {
			for _, g := range cur.Globals {
				if g.Name == part {
					e.Referent = model.RefVariable
					e.Var = g
					e.SetType(g.Type)
					return e, nil
				}
			}
			for _, fn := range cur.Functions {
				if fn.Name == part {
					e.Referent = model.RefFunction
					e.Fn = fn
					e.SetType(functionValueType(fn))
					return e, nil
				}
			}
			return nil, r.fail(0x30021, e, "undeclared name {}", e.Name)
		}
		next := findChildNamespace(cur, part)
		if next == nil {
			return nil, r.fail(0x30021, e, "undeclared name {}", e.Name)
		}
		cur = next
	}
	return nil, r.fail(0x30021, e, "undeclared name {}", e.Name)
}

func findChildNamespace(ns *model.Namespace, name string) *model.Namespace {
	for _, child := range ns.Namespaces {
		if child.Name == name {
			return child
		}
	}
	return nil
}

// functionValueType is the type a bare reference to a function name would
// carry if it were ever used outside a call (the grammar only actually
// permits this as a CallExpr's Callee, which discards the type again, but
// SymbolExpr always needs something in its Type slot).
func functionValueType(fn *model.Function) types.Type {
	if fn.HasReturn {
		return fn.ReturnType
	}
	return types.Primitive(types.Void)
}

func intLiteralType(l *model.IntLiteral) types.Type {
	t := l.Tok
	switch t.IntWidth {
	case token.WidthByte:
		return types.Primitive(types.Byte)
	case token.WidthShort:
		if t.IntUnsigned {
			return types.Primitive(types.UShort)
		}
		return types.Primitive(types.Short)
	case token.WidthLong, token.WidthLongLong, token.Width64, token.Width128:
		if t.IntUnsigned {
			return types.Primitive(types.ULong)
		}
		return types.Primitive(types.Long)
	default:
		if t.IntUnsigned {
			return types.Primitive(types.UInt)
		}
		return types.Primitive(types.Int)
	}
}

func floatLiteralType(l *model.FloatLiteral) types.Type {
	if l.Tok.FloatWidth == token.FloatDouble {
		return types.Primitive(types.Double)
	}
	return types.Primitive(types.Float)
}

func (r *resolver) resolveUnary(e *model.UnaryExpr, sc *scope, ns *model.Namespace) (model.Expression, error) {
	x, err := r.resolveExpr(e.X, sc, ns)
	if err != nil {
		return nil, err
	}
	e.X = x

	switch e.Op {
	case ast.UnaryNot:
		cast, err := r.castTo(x, types.Primitive(types.Bool), e)
		if err != nil {
			return nil, err
		}
		e.X = cast
		e.SetType(types.Primitive(types.Bool))
		return e, nil
	case ast.UnaryBitNot:
		if x.Type().IsFloat {
			return nil, r.fail(0x30030, e, "bitwise complement is not defined for a floating-point operand")
		}
		e.SetType(x.Type())
		return e, nil
	default:
		// Unary plus/minus and pre/post increment/decrement all preserve
		// the operand's arithmetic type.
		e.SetType(x.Type())
		return e, nil
	}
}

func isLogical(op model.BinaryOp) bool {
	return op == ast.BinLogAnd || op == ast.BinLogOr
}

func isComparison(op model.BinaryOp) bool {
	switch op {
	case ast.BinEq, ast.BinNe, ast.BinLt, ast.BinLe, ast.BinGt, ast.BinGe:
		return true
	}
	return false
}

func isShift(op model.BinaryOp) bool {
	return op == ast.BinShl || op == ast.BinShr
}

func isBitwise(op model.BinaryOp) bool {
	switch op {
	case ast.BinBitOr, ast.BinBitXor, ast.BinBitAnd:
		return true
	}
	return false
}

func (r *resolver) resolveBinary(e *model.BinaryExpr, sc *scope, ns *model.Namespace) (model.Expression, error) {
	left, err := r.resolveExpr(e.Left, sc, ns)
	if err != nil {
		return nil, err
	}
	e.Left = left

	if e.Op.IsAssignment() {
		return r.resolveAssignment(e, sc, ns)
	}

	right, err := r.resolveExpr(e.Right, sc, ns)
	if err != nil {
		return nil, err
	}
	e.Right = right

	switch {
	case isLogical(e.Op):
		l, err := r.castTo(e.Left, types.Primitive(types.Bool), e)
		if err != nil {
			return nil, err
		}
		rr, err := r.castTo(e.Right, types.Primitive(types.Bool), e)
		if err != nil {
			return nil, err
		}
		e.Left, e.Right = l, rr
		e.SetType(types.Primitive(types.Bool))
		return e, nil

	case isComparison(e.Op):
		if err := r.alignComparisonOperands(e); err != nil {
			return nil, err
		}
		e.SetType(types.Primitive(types.Bool))
		return e, nil

	case isShift(e.Op) || isBitwise(e.Op):
		if e.Left.Type().IsFloat || e.Right.Type().IsFloat {
			return nil, r.fail(0x30031, e, "bitwise and shift operators are not defined for a floating-point operand")
		}
		if e.Left.Type().IsBool() || e.Right.Type().IsBool() {
			return nil, r.fail(0x30032, e, "bitwise and shift operators are not defined for a bool operand")
		}
		rr, err := r.castTo(e.Right, e.Left.Type(), e)
		if err != nil {
			return nil, err
		}
		e.Right = rr
		e.SetType(e.Left.Type())
		return e, nil

	default: // Arithmetic: + - * / %
		if e.Left.Type().IsBool() || e.Right.Type().IsBool() {
			return nil, r.fail(0x30033, e, "arithmetic operators are not defined for a bool operand")
		}
		rr, err := r.castTo(e.Right, e.Left.Type(), e)
		if err != nil {
			return nil, err
		}
		e.Right = rr
		e.SetType(e.Left.Type())
		return e, nil
	}
}

// resolveAssignment handles BinAssign and every compound-assignment form.
// The left side must be an lvalue: a resolved variable reference (an
// index expression is itself rejected — see resolveExpr).
func (r *resolver) resolveAssignment(e *model.BinaryExpr, sc *scope, ns *model.Namespace) (model.Expression, error) {
	sym, ok := e.Left.(*model.SymbolExpr)
	if !ok || sym.Referent != model.RefVariable {
		return nil, r.fail(0x30034, e, "left-hand side of an assignment must be a variable")
	}
	right, err := r.resolveExpr(e.Right, sc, ns)
	if err != nil {
		return nil, err
	}
	cast, err := r.castTo(right, sym.Type(), e)
	if err != nil {
		return nil, err
	}
	e.Right = cast
	e.SetType(sym.Type())
	return e, nil
}

// alignComparisonOperands applies spec.md §4.4's comparison rule: if
// either side is bool, the other side is cast to bool; otherwise the
// right side is cast to the left side's type.
func (r *resolver) alignComparisonOperands(e *model.BinaryExpr) error {
	lt, rt := e.Left.Type(), e.Right.Type()
	switch {
	case lt.IsBool() && !rt.IsBool():
		rr, err := r.castTo(e.Right, lt, e)
		if err != nil {
			return err
		}
		e.Right = rr
	case rt.IsBool() && !lt.IsBool():
		l, err := r.castTo(e.Left, rt, e)
		if err != nil {
			return err
		}
		e.Left = l
	default:
		rr, err := r.castTo(e.Right, lt, e)
		if err != nil {
			return err
		}
		e.Right = rr
	}
	return nil
}

func (r *resolver) resolveTernary(e *model.TernaryExpr, sc *scope, ns *model.Namespace) (model.Expression, error) {
	cond, err := r.resolveExpr(e.Cond, sc, ns)
	if err != nil {
		return nil, err
	}
	cond, err = r.castTo(cond, types.Primitive(types.Bool), e)
	if err != nil {
		return nil, err
	}
	e.Cond = cond

	then, err := r.resolveExpr(e.Then, sc, ns)
	if err != nil {
		return nil, err
	}
	e.Then = then

	els, err := r.resolveExpr(e.Else, sc, ns)
	if err != nil {
		return nil, err
	}
	cast, err := r.castTo(els, then.Type(), e)
	if err != nil {
		return nil, err
	}
	e.Else = cast
	e.SetType(then.Type())
	return e, nil
}

func (r *resolver) resolveCast(e *model.CastExpr, sc *scope, ns *model.Namespace) (model.Expression, error) {
	x, err := r.resolveExpr(e.X, sc, ns)
	if err != nil {
		return nil, err
	}
	e.X = x
	if e.Target.IsUnresolved() {
		return nil, r.fail(0x30040, e, "unknown type {} in cast", e.Target)
	}
	e.SetType(e.Target)
	return e, nil
}

func (r *resolver) resolveCall(e *model.CallExpr, sc *scope, ns *model.Namespace) (model.Expression, error) {
	callee, err := r.resolveExpr(e.Callee, sc, ns)
	if err != nil {
		return nil, err
	}
	e.Callee = callee

	sym, ok := callee.(*model.SymbolExpr)
	if !ok || sym.Referent != model.RefFunction {
		return nil, r.fail(0x30050, e, "call target is not a function")
	}
	fn := sym.Fn
	if len(e.Args) != len(fn.Params) {
		return nil, r.fail(0x30051, e, "{} expects {} argument(s), got {}", fn.Name, len(fn.Params), len(e.Args))
	}
	for i, a := range e.Args {
		ra, err := r.resolveExpr(a, sc, ns)
		if err != nil {
			return nil, err
		}
		cast, err := r.castTo(ra, fn.Params[i].Type, e)
		if err != nil {
			return nil, err
		}
		e.Args[i] = cast
	}
	if fn.HasReturn {
		e.SetType(fn.ReturnType)
	} else {
		e.SetType(types.Primitive(types.Void))
	}
	return e, nil
}

// castTo wraps x in an implicit cast to target unless it is already
// exactly target-typed. at supplies the span used when the target type
// itself is invalid (unresolved).
func (r *resolver) castTo(x model.Expression, target types.Type, at model.Node) (model.Expression, error) {
	if target.IsUnresolved() {
		return nil, r.fail(0x30041, at, "unknown type {}", target)
	}
	if x.Type().Equal(target) {
		return x, nil
	}
	return model.NewImplicitCast(x, target), nil
}
