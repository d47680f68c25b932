package model

import (
	"github.com/EmilienKia/klang-sub000/internal/ast"
	"github.com/EmilienKia/klang-sub000/internal/diag"
	"github.com/EmilienKia/klang-sub000/internal/types"
)

// lowerer walks an AST unit and builds the corresponding semantic tree
// (spec.md §4.3). It performs no name resolution and no type inference;
// every expression's type slot and every SymbolExpr's referent are left
// unresolved for internal/resolve to fill in.
//
// spec.md describes the walk as maintaining a stack of named contexts
// (ns_context, function_context, block_context, for_context,
// return_context, expression_statement_context). Go's static call graph
// already pins which of these is active at any lowering call — a
// parseStatement inside a for-header body cannot be confused with one
// inside a plain block — so the stack is realized here as the current
// namespace/function/block fields below rather than a generic tagged
// stack; see DESIGN.md.
type lowerer struct {
	log diag.Logger

	ns    *Namespace // Innermost enclosing namespace (ns_context).
	fn    *Function  // Enclosing function, nil at namespace scope (function_context).
	block *Block      // Innermost enclosing block, nil outside one (block_context).
}

// Lower builds a semantic Unit from a parsed AST Unit.
func Lower(u *ast.Unit, log diag.Logger) (*Unit, error) {
	l := &lowerer{log: log}
	root := &Namespace{}
	model := &Unit{Root: root}
	if u.ModuleName != nil {
		model.ModuleName = types.Name{RootPrefix: u.ModuleName.RootPrefix, Parts: append([]string(nil), u.ModuleName.Parts...)}
	}
	model.Imports = append([]string(nil), u.Imports...)

	l.ns = root
	for _, d := range u.Decls {
		if err := l.lowerDecl(d); err != nil {
			return nil, err
		}
	}
	return model, nil
}

func (l *lowerer) fail(code uint32, n ast.Node, format string, args ...interface{}) error {
	start, end := n.Bounds()
	e := diag.Entry{Severity: diag.Error, Code: code, Start: start, End: end, Template: format, Args: args}
	if l.log != nil {
		l.log.Log(e)
	}
	return &LoweringError{Entry: e}
}

// LoweringError is thrown when a declaration appears somewhere the
// current context does not accept it (spec.md §4.3 "Reject
// declarations in contexts that do not accept variables").
type LoweringError struct{ Entry diag.Entry }

func (e *LoweringError) Error() string { return e.Entry.Message() }

func (l *lowerer) lowerDecl(d ast.Declaration) error {
	switch dd := d.(type) {
	case *ast.VisibilityDecl:
		l.ns.DefaultVisibility = dd.Visibility
		return nil
	case *ast.NamespaceDecl:
		return l.lowerNamespace(dd)
	case *ast.FunctionDecl:
		return l.lowerFunction(dd)
	case *ast.VariableDecl:
		return l.lowerGlobal(dd)
	default:
		return l.fail(0x20001, d, "unsupported declaration shape")
	}
}

func (l *lowerer) lowerNamespace(d *ast.NamespaceDecl) error {
	child := &Namespace{base: spanOf(d), Name: d.Name, Parent: l.ns}
	l.ns.Namespaces = append(l.ns.Namespaces, child)

	saved := l.ns
	l.ns = child
	for _, inner := range d.Decls {
		if err := l.lowerDecl(inner); err != nil {
			l.ns = saved
			return err
		}
	}
	l.ns = saved
	return nil
}

func (l *lowerer) lowerGlobal(d *ast.VariableDecl) error {
	g := &GlobalVariable{
		base:   spanOf(d),
		Name:   d.Name,
		Type:   typeFromSpec(d.Type),
		Parent: l.ns,
	}
	if d.Init != nil {
		init, err := l.lowerExpr(d.Init)
		if err != nil {
			return err
		}
		g.Init = init
	}
	l.ns.Globals = append(l.ns.Globals, g)
	return nil
}

func (l *lowerer) lowerFunction(d *ast.FunctionDecl) error {
	fn := &Function{
		base:   spanOf(d),
		Name:   d.Name,
		Parent: l.ns,
	}
	if d.ReturnType != nil {
		fn.ReturnType = typeFromSpec(d.ReturnType)
		fn.HasReturn = true
	}
	for _, p := range d.Params {
		fn.Params = append(fn.Params, &Parameter{
			base:  spanOf(&p),
			Name:  p.Name,
			Type:  typeFromSpec(p.Type),
			Owner: fn,
		})
	}
	l.ns.Functions = append(l.ns.Functions, fn)

	if d.Body == nil {
		return nil // Prototype only.
	}

	savedFn := l.fn
	l.fn = fn
	body, err := l.lowerBlock(d.Body, fn)
	l.fn = savedFn
	if err != nil {
		return err
	}
	fn.Body = body
	return nil
}

// typeFromSpec builds the (initially unresolved, unless primitive) Type
// for a type_specifier AST node. A KeywordType resolves to its concrete
// primitive immediately since that mapping needs no symbol table; an
// IdentifiedType becomes the resolver's unresolved placeholder.
func typeFromSpec(ts ast.TypeSpecifier) types.Type {
	switch t := ts.(type) {
	case *ast.KeywordType:
		if pt, ok := types.FromKeyword(t.Keyword, t.Unsigned); ok {
			return pt
		}
		return types.Type{}
	case *ast.IdentifiedType:
		name := types.Name{RootPrefix: t.Name.RootPrefix, Parts: append([]string(nil), t.Name.Parts...)}
		return types.NewUnresolved(name)
	default:
		return types.Type{}
	}
}

// lowerBlock lowers a block under parent, which becomes the new
// block_context's enclosing Node.
func (l *lowerer) lowerBlock(b *ast.BlockStmt, parent Node) (*Block, error) {
	blk := &Block{base: spanOf(b), Parent: parent}

	savedBlock := l.block
	l.block = blk
	for _, s := range b.Stmts {
		st, err := l.lowerStmt(s)
		if err != nil {
			l.block = savedBlock
			return nil, err
		}
		blk.Stmts = append(blk.Stmts, st)
	}
	l.block = savedBlock
	return blk, nil
}

func (l *lowerer) lowerStmt(s ast.Statement) (Statement, error) {
	switch ss := s.(type) {
	case *ast.BlockStmt:
		return l.lowerBlock(ss, l.block)
	case *ast.ReturnStmt:
		return l.lowerReturn(ss)
	case *ast.IfElseStmt:
		return l.lowerIfElse(ss)
	case *ast.WhileStmt:
		return l.lowerWhile(ss)
	case *ast.ForStmt:
		return l.lowerFor(ss)
	case *ast.VariableDecl:
		return l.lowerLocal(ss)
	case *ast.ExprStmt:
		x, err := l.lowerExpr(ss.X)
		if err != nil {
			return nil, err
		}
		return &ExprStmt{base: spanOf(ss), X: x}, nil
	default:
		return nil, l.fail(0x20002, s, "unsupported statement shape")
	}
}

func (l *lowerer) lowerReturn(s *ast.ReturnStmt) (Statement, error) {
	r := &Return{base: spanOf(s), Enclosing: l.fn}
	if s.Value != nil {
		v, err := l.lowerExpr(s.Value)
		if err != nil {
			return nil, err
		}
		r.Value = v
	}
	return r, nil
}

func (l *lowerer) lowerIfElse(s *ast.IfElseStmt) (Statement, error) {
	cond, err := l.lowerExpr(s.Cond)
	if err != nil {
		return nil, err
	}
	then, err := l.lowerStmt(s.Then)
	if err != nil {
		return nil, err
	}
	ie := &IfElse{base: spanOf(s), Cond: cond, Then: then}
	if s.Else != nil {
		els, err := l.lowerStmt(s.Else)
		if err != nil {
			return nil, err
		}
		ie.Else = els
	}
	return ie, nil
}

func (l *lowerer) lowerWhile(s *ast.WhileStmt) (Statement, error) {
	cond, err := l.lowerExpr(s.Cond)
	if err != nil {
		return nil, err
	}
	body, err := l.lowerStmt(s.Body)
	if err != nil {
		return nil, err
	}
	return &While{base: spanOf(s), Cond: cond, Body: body}, nil
}

// lowerFor lowers the C-style for-header in its own scope (for_context):
// a declaration in the header is visible to the condition, step and
// body but not outside the loop.
func (l *lowerer) lowerFor(s *ast.ForStmt) (Statement, error) {
	f := &For{base: spanOf(s)}

	// The header's optional declaration needs a scope of its own; model
	// it as a single-statement block context so lowerLocal's "declare
	// into the innermost block" rule applies uniformly.
	headerBlock := &Block{Parent: f}
	savedBlock := l.block
	l.block = headerBlock

	if s.Decl != nil {
		d, err := l.lowerLocal(s.Decl)
		if err != nil {
			l.block = savedBlock
			return nil, err
		}
		f.Decl = d.(*LocalVariable)
	} else if s.Init != nil {
		init, err := l.lowerExpr(s.Init)
		if err != nil {
			l.block = savedBlock
			return nil, err
		}
		f.Init = init
	}

	if s.Cond != nil {
		c, err := l.lowerExpr(s.Cond)
		if err != nil {
			l.block = savedBlock
			return nil, err
		}
		f.Cond = c
	}
	if s.Step != nil {
		st, err := l.lowerExpr(s.Step)
		if err != nil {
			l.block = savedBlock
			return nil, err
		}
		f.Step = st
	}

	body, err := l.lowerStmt(s.Body)
	l.block = savedBlock
	if err != nil {
		return nil, err
	}
	f.Body = body
	return f, nil
}

// lowerLocal declares a variable in the innermost block scope. Per
// spec.md §4.3, a context that does not accept variables (there is none
// reachable from parseStatement/parseFor today, since both always lower
// through a block) would reject it here.
func (l *lowerer) lowerLocal(d *ast.VariableDecl) (Statement, error) {
	if l.block == nil {
		return nil, l.fail(0x20003, d, "variable declaration outside any block scope")
	}
	lv := &LocalVariable{
		base:  spanOf(d),
		Name:  d.Name,
		Type:  typeFromSpec(d.Type),
		Owner: l.block,
	}
	if d.Init != nil {
		init, err := l.lowerExpr(d.Init)
		if err != nil {
			return nil, err
		}
		lv.Init = init
	}
	l.block.Locals = append(l.block.Locals, lv)
	return lv, nil
}

var unaryOpSet = map[ast.UnaryOp]struct{}{
	ast.UnaryPlus: {}, ast.UnaryMinus: {}, ast.UnaryNot: {}, ast.UnaryBitNot: {},
	ast.PostfixIncrement: {}, ast.PostfixDecrement: {}, ast.PrefixIncrement: {}, ast.PrefixDecrement: {},
}

func (l *lowerer) lowerExpr(e ast.Expression) (Expression, error) {
	switch ee := e.(type) {
	case *ast.Ident:
		name := types.Name{RootPrefix: ee.Name.RootPrefix, Parts: append([]string(nil), ee.Name.Parts...)}
		return &SymbolExpr{exprBase: newExprBase(ee), Name: name}, nil
	case *ast.IntLiteral:
		return &IntLiteral{exprBase: newExprBase(ee), Tok: ee.Tok}, nil
	case *ast.FloatLiteral:
		return &FloatLiteral{exprBase: newExprBase(ee), Tok: ee.Tok}, nil
	case *ast.CharLiteral:
		return &CharLiteral{exprBase: newExprBase(ee), Value: decodeCharLiteral(ee.Tok.Text)}, nil
	case *ast.StringLiteral:
		return &StringLiteral{exprBase: newExprBase(ee), Value: decodeStringLiteral(ee.Tok.Text)}, nil
	case *ast.BoolLiteral:
		return &BoolLiteral{exprBase: newExprBase(ee), Value: ee.Value}, nil
	case *ast.NullLiteral:
		return &NullLiteral{exprBase: newExprBase(ee)}, nil
	case *ast.UnaryExpr:
		x, err := l.lowerExpr(ee.X)
		if err != nil {
			return nil, err
		}
		if _, ok := unaryOpSet[ee.Op]; !ok {
			return nil, l.fail(0x20004, ee, "unsupported unary operator")
		}
		return &UnaryExpr{exprBase: newExprBase(ee), Op: ee.Op, X: x}, nil
	case *ast.BinaryExpr:
		left, err := l.lowerExpr(ee.Left)
		if err != nil {
			return nil, err
		}
		right, err := l.lowerExpr(ee.Right)
		if err != nil {
			return nil, err
		}
		return &BinaryExpr{exprBase: newExprBase(ee), Op: ee.Op, Left: left, Right: right}, nil
	case *ast.TernaryExpr:
		cond, err := l.lowerExpr(ee.Cond)
		if err != nil {
			return nil, err
		}
		then, err := l.lowerExpr(ee.Then)
		if err != nil {
			return nil, err
		}
		els, err := l.lowerExpr(ee.Else)
		if err != nil {
			return nil, err
		}
		return &TernaryExpr{exprBase: newExprBase(ee), Cond: cond, Then: then, Else: els}, nil
	case *ast.CastExpr:
		x, err := l.lowerExpr(ee.X)
		if err != nil {
			return nil, err
		}
		return &CastExpr{exprBase: newExprBase(ee), Target: typeFromSpec(ee.Type), X: x}, nil
	case *ast.CallExpr:
		callee, err := l.lowerExpr(ee.Callee)
		if err != nil {
			return nil, err
		}
		var args []Expression
		for _, a := range ee.Args {
			la, err := l.lowerExpr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, la)
		}
		return &CallExpr{exprBase: newExprBase(ee), Callee: callee, Args: args}, nil
	case *ast.IndexExpr:
		x, err := l.lowerExpr(ee.X)
		if err != nil {
			return nil, err
		}
		idx, err := l.lowerExpr(ee.Index)
		if err != nil {
			return nil, err
		}
		return &IndexExpr{exprBase: newExprBase(ee), X: x, Index: idx}, nil
	default:
		return nil, l.fail(0x20005, e, "unsupported expression shape")
	}
}

func decodeCharLiteral(text string) byte {
	if len(text) == 0 {
		return 0
	}
	if text[0] != '\\' {
		return text[0]
	}
	if len(text) < 2 {
		return 0
	}
	switch text[1] {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	case '\\':
		return '\\'
	case '\'':
		return '\''
	default:
		return text[1]
	}
}

func decodeStringLiteral(text string) string {
	// Best-effort: the lexer already validated escape structure: only
	// the common single-character escapes are substituted here, matching
	// decodeCharLiteral; the resolver rejects string literals outright
	// (see StringLiteral's doc comment) so exact decoding fidelity beyond
	// diagnostics display is not load-bearing.
	var b []byte
	for i := 0; i < len(text); i++ {
		if text[i] == '\\' && i+1 < len(text) {
			i++
			switch text[i] {
			case 'n':
				b = append(b, '\n')
			case 't':
				b = append(b, '\t')
			case 'r':
				b = append(b, '\r')
			default:
				b = append(b, text[i])
			}
			continue
		}
		b = append(b, text[i])
	}
	return string(b)
}
