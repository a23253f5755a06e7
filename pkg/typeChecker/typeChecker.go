package typeChecker

import (
	"github.com/xplshn/jmmc/pkg/ast"
	"github.com/xplshn/jmmc/pkg/config"
	"github.com/xplshn/jmmc/pkg/report"
	"github.com/xplshn/jmmc/pkg/symtab"
	"github.com/xplshn/jmmc/pkg/token"
	"github.com/xplshn/jmmc/pkg/util"
)

type TypeChecker struct {
	table   *symtab.Table
	cfg     *config.Config
	reports *report.List
}

// methodCtx is nil while checking field declarations.
type methodCtx struct {
	method *symtab.Method
}

func NewTypeChecker(table *symtab.Table, cfg *config.Config, reports *report.List) *TypeChecker {
	if cfg == nil {
		cfg = config.NewConfig()
	}
	return &TypeChecker{table: table, cfg: cfg, reports: reports}
}

func (tc *TypeChecker) errorAt(node *ast.Node, format string, args ...interface{}) {
	tc.reports.Addf(report.Semantic, node.Line(), node.Col(), format, args...)
}

// Check walks the program once, recording every violation it finds.
func (tc *TypeChecker) Check(root *ast.Node) {
	prog, ok := root.Data.(ast.ProgramNode)
	if !ok {
		report.Internal(report.Semantic, "type checker root is %s, not Program", root.Type)
	}
	class := prog.Class.Data.(ast.ClassDeclNode)
	for _, f := range class.Fields {
		tc.checkVarDecl(nil, f)
	}
	for _, m := range class.Methods {
		tc.checkMethod(m)
	}
}

func (tc *TypeChecker) checkMethod(node *ast.Node) {
	decl := node.Data.(ast.MethodDeclNode)
	method, ok := tc.table.Method(decl.Name)
	if !ok {
		report.Internal(report.Semantic, "method %s missing from the symbol table", decl.Name)
	}
	ctx := &methodCtx{method: method}
	if decl.ReturnType != ast.TypeVoid {
		tc.checkDeclaredType(node, decl.ReturnType)
	}
	for _, p := range decl.Params {
		tc.checkDeclaredType(p, p.Data.(ast.ParamNode).Type)
	}
	tc.checkStmts(ctx, decl.Body)
}

// checkDeclaredType rejects class types that are neither this class, its super, nor imported.
func (tc *TypeChecker) checkDeclaredType(node *ast.Node, t ast.Type) {
	if !tc.cfg.IsFeatureEnabled(config.FeatImportCheck) || !t.IsClass() {
		return
	}
	if t.Name == tc.table.ClassName || t.Name == tc.table.Super {
		return
	}
	if _, ok := tc.table.IsImported(t.Name); !ok {
		tc.errorAt(node, "Class Not Imported: %s", t.Name)
	}
}

// typeOf maps a declared type onto the lattice.
func (tc *TypeChecker) typeOf(t ast.Type) Type {
	switch {
	case t == ast.TypeInt:
		return IntType
	case t == ast.TypeBool:
		return BoolType
	case t == ast.TypeIntArray:
		return IntArrayType
	case t == ast.TypeStringArray:
		return StringArrayType
	case t == ast.TypeVoid:
		return VoidType
	case t.Name == tc.table.ClassName:
		return ClassType(t.Name)
	case t.Name == tc.table.Super:
		return UnresolvedType(t.Name, Inherited)
	}
	return UnresolvedType(t.Name, Imported)
}

// Statements

func (tc *TypeChecker) checkStmts(ctx *methodCtx, stmts []*ast.Node) {
	returned := false
	for _, s := range stmts {
		if returned {
			util.Warn(tc.cfg, config.WarnUnreachableCode, s.Tok, "Unreachable statement after return")
			returned = false
		}
		tc.checkStmt(ctx, s)
		if s.Type == ast.Return {
			returned = true
		}
	}
}

func (tc *TypeChecker) checkStmt(ctx *methodCtx, node *ast.Node) {
	switch d := node.Data.(type) {
	case ast.VarDeclNode:
		tc.checkVarDecl(ctx, node)
	case ast.BlockNode:
		tc.checkStmts(ctx, d.Stmts)
	case ast.IfNode:
		tc.checkCondition(ctx, d.Cond)
		tc.checkStmt(ctx, d.ThenBody)
		if d.ElseBody != nil {
			tc.checkStmt(ctx, d.ElseBody)
		}
	case ast.WhileNode:
		tc.checkCondition(ctx, d.Cond)
		tc.checkStmt(ctx, d.Body)
	case ast.ExprStmtNode:
		tc.checkExpr(ctx, d.Expr)
	case ast.AssignNode:
		tc.checkAssign(ctx, node, d.Name, d.Rhs)
	case ast.ArrayAssignNode:
		tc.checkArrayAssign(ctx, node, d)
	case ast.ReturnNode:
		tc.checkReturn(ctx, node, d)
	default:
		report.Internal(report.Semantic, "unexpected %s in statement position", node.Type)
	}
}

func (tc *TypeChecker) checkVarDecl(ctx *methodCtx, node *ast.Node) {
	decl := node.Data.(ast.VarDeclNode)
	tc.checkDeclaredType(node, decl.Type)
	if decl.Init != nil {
		tc.checkAssign(ctx, node, decl.Name, decl.Init)
	}
}

func (tc *TypeChecker) checkCondition(ctx *methodCtx, cond *ast.Node) {
	r := tc.checkExpr(ctx, cond)
	if !r.typ.IsError() && !r.typ.boolLike() {
		tc.errorAt(cond, "Conditional expression not boolean")
	}
}

// lookupVar resolves a variable the way assignments do: locals, parameters, then fields.
func (tc *TypeChecker) lookupVar(ctx *methodCtx, name string) (ast.Type, bool) {
	if ctx != nil {
		if l, ok := ctx.method.Local(name); ok {
			return l.Type, true
		}
		if p, ok := ctx.method.Param(name); ok {
			return p.Type, true
		}
	}
	if f, ok := tc.table.Field(name); ok {
		return f.Type, true
	}
	return ast.Type{}, false
}

// markInitialized flags name in whichever table holds it; parameters need nothing.
func (tc *TypeChecker) markInitialized(ctx *methodCtx, name string) {
	if ctx != nil {
		if ctx.method.InitializeLocal(name) {
			return
		}
		if _, isParam := ctx.method.Param(name); isParam {
			return
		}
	}
	tc.table.InitializeField(name)
}

// staticField reports whether name only resolves to a field while checking a
// static method, where there is no this to read it from.
func (tc *TypeChecker) staticField(ctx *methodCtx, name string) bool {
	if ctx == nil || !ctx.method.IsStatic {
		return false
	}
	if _, ok := ctx.method.Local(name); ok {
		return false
	}
	if _, ok := ctx.method.Param(name); ok {
		return false
	}
	_, ok := tc.table.Field(name)
	return ok
}

func (tc *TypeChecker) assignable(target, value Type) bool {
	if target.Equal(value) {
		return true
	}
	return target.isObject() && value.isObject() && (target.IsExternal() || value.IsExternal())
}

func (tc *TypeChecker) checkAssign(ctx *methodCtx, node *ast.Node, name string, rhsNode *ast.Node) {
	rhs := tc.checkExpr(ctx, rhsNode)
	declared, ok := tc.lookupVar(ctx, name)
	if !ok {
		tc.errorAt(node, "Variable for assignment not declared: %s", name)
		return
	}
	if tc.staticField(ctx, name) {
		tc.errorAt(node, "Cannot use this in main method")
		return
	}
	if rhs.typ.IsError() {
		return
	}
	if rhs.typ.IsDeferred() {
		tc.markInitialized(ctx, name)
		return
	}
	target := tc.typeOf(declared)
	if !tc.assignable(target, rhs.typ) {
		tc.errorAt(node, "Mismatched types on Assignment: '%s' and '%s'", target, rhs.typ)
		return
	}
	tc.markInitialized(ctx, name)
}

func (tc *TypeChecker) checkArrayAssign(ctx *methodCtx, node *ast.Node, d ast.ArrayAssignNode) {
	index := tc.checkExpr(ctx, d.Index)
	value := tc.checkExpr(ctx, d.Rhs)
	declared, ok := tc.lookupVar(ctx, d.Name)
	if !ok {
		tc.errorAt(node, "Variable for assignment not declared: %s", d.Name)
		return
	}
	if tc.staticField(ctx, d.Name) {
		tc.errorAt(node, "Cannot use this in main method")
		return
	}
	if index.typ.IsError() || value.typ.IsError() {
		return
	}
	if !index.typ.intLike() {
		tc.errorAt(d.Index, "Array index must be of type int")
		return
	}
	if declared != ast.TypeIntArray {
		tc.errorAt(node, "Variable is not an array: %s", d.Name)
		return
	}
	if !value.typ.intLike() {
		tc.errorAt(node, "Mismatched types on Array Assignment: 'int' and '%s'", value.typ)
		return
	}
	// Every store re-marks the array; the flag never goes back to false.
	tc.markInitialized(ctx, d.Name)
}

func (tc *TypeChecker) checkReturn(ctx *methodCtx, node *ast.Node, d ast.ReturnNode) {
	want := tc.typeOf(ctx.method.ReturnType)
	got := known(VoidType)
	if d.Expr != nil {
		got = tc.checkExpr(ctx, d.Expr)
	}
	if got.typ.IsError() || got.typ.IsDeferred() {
		return
	}
	if !want.Equal(got.typ) {
		tc.errorAt(node, "Mismatched types on return statement: '%s' and '%s'", want, got.typ)
	}
}

// Expressions

func (tc *TypeChecker) checkExpr(ctx *methodCtx, node *ast.Node) result {
	switch d := node.Data.(type) {
	case ast.IntLitNode:
		return known(IntType)
	case ast.BoolLitNode:
		return known(BoolType)
	case ast.IdentNode:
		return tc.checkIdent(ctx, node, d.Name)
	case ast.ThisNode:
		return tc.checkThis(ctx, node)
	case ast.BinaryOpNode:
		if ast.IsArithmetic(d.Op) {
			return tc.checkArithmetic(ctx, node, d)
		}
		return tc.checkRelational(ctx, node, d)
	case ast.UnaryOpNode:
		r := tc.checkExpr(ctx, d.Expr)
		if r.typ.IsError() {
			return errResult
		}
		if !r.typ.boolLike() {
			tc.errorAt(d.Expr, "Unary expression not boolean")
			return errResult
		}
		return known(BoolType)
	case ast.ArrayAccessNode:
		arr := tc.checkExpr(ctx, d.Array)
		index := tc.checkExpr(ctx, d.Index)
		if arr.typ.IsError() || index.typ.IsError() {
			return errResult
		}
		if !arr.typ.arrayLike() {
			tc.errorAt(d.Array, "Variable is not an array: %s", ast.FormatExpr(d.Array))
			return errResult
		}
		if !index.typ.intLike() {
			tc.errorAt(d.Index, "Array index must be of type int")
			return errResult
		}
		return known(IntType)
	case ast.LengthNode:
		r := tc.checkExpr(ctx, d.Expr)
		if r.typ.IsError() {
			return errResult
		}
		if !r.typ.arrayLike() && r.typ.Kind != KindStringArray {
			tc.errorAt(d.Expr, "Variable is not an array: %s", ast.FormatExpr(d.Expr))
			return errResult
		}
		return known(LengthType)
	case ast.CallNode:
		return tc.checkCall(ctx, node, d)
	case ast.NewIntArrayNode:
		size := tc.checkExpr(ctx, d.Size)
		if size.typ.IsError() {
			return errResult
		}
		if !size.typ.intLike() {
			tc.errorAt(d.Size, "Array init size is not an Integer")
			return errResult
		}
		return known(IntArrayType)
	case ast.NewObjectNode:
		if d.Class == tc.table.ClassName {
			return known(ClassType(d.Class))
		}
		return known(UnresolvedType(d.Class, Imported))
	}
	return tc.defaultVisit(ctx, node)
}

// defaultVisit recurses into the children and bubbles any error up.
func (tc *TypeChecker) defaultVisit(ctx *methodCtx, node *ast.Node) result {
	out := known(IntType)
	for _, c := range ast.Children(node) {
		if tc.checkExpr(ctx, c).typ.IsError() {
			out = errResult
		}
	}
	return out
}

func (tc *TypeChecker) checkIdent(ctx *methodCtx, node *ast.Node, name string) result {
	if ctx != nil {
		if l, ok := ctx.method.Local(name); ok {
			init := InitFalse
			if l.Initialized {
				init = InitTrue
			}
			return result{typ: tc.typeOf(l.Type), init: init}
		}
		if p, ok := ctx.method.Param(name); ok {
			return known(tc.typeOf(p.Type))
		}
	}
	if f, ok := tc.table.Field(name); ok {
		if tc.staticField(ctx, name) {
			tc.errorAt(node, "Cannot use this in main method")
			return errResult
		}
		// Another method may have written the field already.
		init := InitUnknown
		if f.Initialized {
			init = InitTrue
		}
		return result{typ: tc.typeOf(f.Type), init: init}
	}
	if _, ok := tc.table.IsImported(name); ok {
		return known(ClassRefType(name))
	}
	tc.errorAt(node, "Variable '%s' not declared", name)
	return errResult
}

func (tc *TypeChecker) checkThis(ctx *methodCtx, node *ast.Node) result {
	if ctx != nil && ctx.method.IsStatic {
		tc.errorAt(node, "Cannot use this in main method")
		return errResult
	}
	return known(ClassType(tc.table.ClassName))
}

func uninitialized(node *ast.Node, r result) bool {
	return node.Type == ast.Ident && r.init == InitFalse
}

func (tc *TypeChecker) checkInitialized(left, right *ast.Node, l, r result) bool {
	if uninitialized(left, l) {
		tc.errorAt(left, "Left Member not initialized: %s", left.Data.(ast.IdentNode).Name)
		return false
	}
	if uninitialized(right, r) {
		tc.errorAt(right, "Right Member not initialized: %s", right.Data.(ast.IdentNode).Name)
		return false
	}
	return true
}

func (tc *TypeChecker) checkArithmetic(ctx *methodCtx, node *ast.Node, d ast.BinaryOpNode) result {
	l := tc.checkExpr(ctx, d.Left)
	r := tc.checkExpr(ctx, d.Right)
	if l.typ.IsError() || r.typ.IsError() {
		return errResult
	}
	if l.typ.Kind == KindIntArray || r.typ.Kind == KindIntArray {
		tc.errorAt(node, "Array Variables cannot be used directly with an Binary Operator: '%s' %s '%s'",
			ast.FormatExpr(d.Left), d.Op, ast.FormatExpr(d.Right))
		return errResult
	}
	if !tc.checkInitialized(d.Left, d.Right, l, r) {
		return errResult
	}
	if !l.typ.intLike() || !r.typ.intLike() {
		tc.errorAt(node, "Mismatched types on Binary Operator: '%s %s %s'", l.typ, d.Op, r.typ)
		return errResult
	}
	return known(IntType)
}

func (tc *TypeChecker) checkRelational(ctx *methodCtx, node *ast.Node, d ast.BinaryOpNode) result {
	// Both sides are always visited; && and || do not short-circuit here.
	l := tc.checkExpr(ctx, d.Left)
	r := tc.checkExpr(ctx, d.Right)
	if l.typ.IsError() || r.typ.IsError() {
		return errResult
	}
	if !tc.checkInitialized(d.Left, d.Right, l, r) {
		return errResult
	}
	var ok bool
	switch d.Op {
	case token.AndAnd, token.OrOr:
		ok = l.typ.boolLike() && r.typ.boolLike()
	case token.EqEq, token.Neq:
		ok = (l.typ.intLike() && r.typ.intLike()) || (l.typ.boolLike() && r.typ.boolLike())
	default:
		ok = l.typ.intLike() && r.typ.intLike()
	}
	if !ok {
		tc.errorAt(node, "Mismatched types on Relational Operator: '%s' and '%s'", l.typ, r.typ)
		return errResult
	}
	return known(BoolType)
}

func (tc *TypeChecker) checkCall(ctx *methodCtx, node *ast.Node, d ast.CallNode) result {
	var recv result
	if d.Receiver == nil {
		recv = tc.checkThis(ctx, node)
	} else {
		recv = tc.checkExpr(ctx, d.Receiver)
	}
	args := make([]result, len(d.Args))
	argFailed := false
	for i, a := range d.Args {
		args[i] = tc.checkExpr(ctx, a)
		argFailed = argFailed || args[i].typ.IsError()
	}

	switch {
	case recv.typ.IsError():
		return errResult
	case recv.typ.IsExternal():
		return known(DeferredType(d.Method))
	case recv.typ.Kind == KindClass:
		method, declared := tc.table.Method(d.Method)
		if !declared {
			if tc.table.HasSuper() {
				return known(DeferredType(d.Method))
			}
			tc.errorAt(node, "Method not found: %s", d.Method)
			return errResult
		}
		if argFailed {
			return errResult
		}
		if !tc.argumentsMatch(method, args) {
			tc.errorAt(node, "Incorrect parameters in method call: %s() in class %s", d.Method, tc.table.ClassName)
			return errResult
		}
		return known(tc.typeOf(method.ReturnType))
	}
	tc.errorAt(node, "Method not found: %s", d.Method)
	return errResult
}

func (tc *TypeChecker) argumentsMatch(method *symtab.Method, args []result) bool {
	if len(args) != len(method.Params) {
		return false
	}
	for i, p := range method.Params {
		arg := args[i].typ
		if arg.IsDeferred() {
			continue
		}
		if arg.Kind == KindClassRef || !tc.assignable(tc.typeOf(p.Type), arg) {
			return false
		}
	}
	return true
}
