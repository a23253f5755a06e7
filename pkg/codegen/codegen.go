package codegen

import (
	"fmt"
	"strconv"

	"github.com/xplshn/jmmc/pkg/ast"
	"github.com/xplshn/jmmc/pkg/config"
	"github.com/xplshn/jmmc/pkg/ir"
	"github.com/xplshn/jmmc/pkg/report"
	"github.com/xplshn/jmmc/pkg/symtab"
	"github.com/xplshn/jmmc/pkg/token"
)

// noHint marks an expression whose consumer does not care about its type.
var noHint = ir.Void

// receiverHint types an unknown call result that is itself called on.
var receiverHint = ir.ClassType("Object")

type methodCtx struct {
	sym        *symtab.Method
	out        *ir.Method
	tempCount  int
	ifCount    int
	whileCount int
	params     map[string]int
	reserved   map[string]bool
}

// Context lowers a checked class tree into OLLIR.
type Context struct {
	table *symtab.Table
	cfg   *config.Config
	cls   *ir.Class
	m     *methodCtx
}

func NewContext(table *symtab.Table, cfg *config.Config) *Context {
	return &Context{table: table, cfg: cfg}
}

func irType(t ast.Type) ir.Type {
	switch t {
	case ast.TypeInt:
		return ir.Int
	case ast.TypeBool:
		return ir.Bool
	case ast.TypeIntArray:
		return ir.IntArray
	case ast.TypeStringArray:
		return ir.StringArray
	case ast.TypeVoid:
		return ir.Void
	}
	return ir.ClassType(t.Name)
}

var binaryOps = map[token.Type]ir.Op{
	token.Plus: ir.OpAdd, token.Minus: ir.OpSub, token.Star: ir.OpMul, token.Slash: ir.OpDiv,
	token.Lt: ir.OpLt, token.Gt: ir.OpGt, token.Lte: ir.OpLte, token.Gte: ir.OpGte,
	token.EqEq: ir.OpEq, token.Neq: ir.OpNeq, token.AndAnd: ir.OpAnd, token.OrOr: ir.OpOr,
}

func (ctx *Context) GenerateIR(root *ast.Node) (*ir.Class, error) {
	if root == nil || root.Type != ast.Program {
		return nil, fmt.Errorf("codegen: expected a program node")
	}
	prog := root.Data.(ast.ProgramNode)
	if prog.Class == nil {
		return nil, fmt.Errorf("codegen: program has no class")
	}
	class := prog.Class.Data.(ast.ClassDeclNode)

	ctx.cls = &ir.Class{Name: class.Name, Super: class.Super}
	for _, imp := range prog.Imports {
		ctx.cls.Imports = append(ctx.cls.Imports, ast.NormalizeImport(imp.Data.(ast.ImportNode).Name()))
	}
	for _, f := range ctx.table.Fields {
		ctx.cls.Fields = append(ctx.cls.Fields, &ir.Field{Name: f.Name, Typ: irType(f.Type)})
	}

	ctx.cls.Methods = append(ctx.cls.Methods, ctx.constructor(class.Fields))
	for i, node := range class.Methods {
		if redeclaredLater(class.Methods[i+1:], node) {
			continue
		}
		ctx.cls.Methods = append(ctx.cls.Methods, ctx.method(node))
	}
	return ctx.cls, nil
}

// redeclaredLater reports whether a later declaration replaced node in the table.
func redeclaredLater(rest []*ast.Node, node *ast.Node) bool {
	name := node.Data.(ast.MethodDeclNode).Name
	for _, n := range rest {
		if n.Data.(ast.MethodDeclNode).Name == name {
			return true
		}
	}
	return false
}

func (ctx *Context) enterMethod(sym *symtab.Method, m *ir.Method) {
	mc := &methodCtx{sym: sym, out: m, params: make(map[string]int), reserved: make(map[string]bool)}
	if sym != nil {
		for _, p := range sym.Params {
			mc.params[p.Name] = p.Index
		}
		for _, name := range sym.Symbols() {
			mc.reserved[name] = true
		}
	}
	ctx.m = mc
}

func (ctx *Context) emit(in ir.Instr) { ctx.m.out.Emit(in) }

func (ctx *Context) this() *ir.This { return &ir.This{Class: ctx.cls.Name} }

// newTemp hands out the next tN not already taken by a declared name.
func (ctx *Context) newTemp(t ir.Type) *ir.Operand {
	for {
		name := "t" + strconv.Itoa(ctx.m.tempCount)
		ctx.m.tempCount++
		if !ctx.m.reserved[name] {
			return &ir.Operand{Name: name, Typ: t}
		}
	}
}

// constructor calls the super constructor and then runs the field initializers.
func (ctx *Context) constructor(fields []*ast.Node) *ir.Method {
	m := &ir.Method{Name: "<init>", IsConstructor: true, Ret: ir.Void}
	ctx.enterMethod(nil, m)
	ctx.emit(&ir.Call{Kind: ir.InvokeSpecial, Target: ctx.this(), Method: "<init>", Ret: ir.Void})
	for _, f := range fields {
		if d := f.Data.(ast.VarDeclNode); d.Init != nil {
			ctx.assign(f, d.Name, d.Init)
		}
	}
	return m
}

func (ctx *Context) method(node *ast.Node) *ir.Method {
	d := node.Data.(ast.MethodDeclNode)
	sym, ok := ctx.table.Method(d.Name)
	if !ok {
		report.Internal(report.Generation, "method %s missing from the symbol table", d.Name)
	}
	m := &ir.Method{Name: d.Name, IsStatic: d.IsStatic, Ret: irType(d.ReturnType)}
	for _, p := range sym.Params {
		m.Params = append(m.Params, &ir.Operand{Name: p.Name, Typ: irType(p.Type), Param: p.Index})
	}
	ctx.enterMethod(sym, m)
	for _, s := range d.Body {
		ctx.stmt(s)
	}
	if m.Ret.Kind == ir.KindVoid && needsReturn(m) {
		m.Emit(&ir.Return{Typ: ir.Void})
	}
	return m
}

func needsReturn(m *ir.Method) bool {
	if len(m.Instrs) == 0 || len(m.LabelsAt(len(m.Instrs))) > 0 {
		return true
	}
	_, ok := m.Instrs[len(m.Instrs)-1].(*ir.Return)
	return !ok
}

// resolve finds name among the locals, then the parameters, then the fields.
func (ctx *Context) resolve(name string) (op *ir.Operand, isField, ok bool) {
	if sym := ctx.m.sym; sym != nil {
		if l, found := sym.Local(name); found {
			return &ir.Operand{Name: name, Typ: irType(l.Type)}, false, true
		}
		if p, found := sym.Param(name); found {
			return &ir.Operand{Name: name, Typ: irType(p.Type), Param: ctx.m.params[name]}, false, true
		}
	}
	if f, found := ctx.table.Field(name); found {
		return &ir.Operand{Name: name, Typ: irType(f.Type)}, true, true
	}
	return nil, false, false
}

func (ctx *Context) mustResolve(node *ast.Node, name string) (*ir.Operand, bool) {
	op, isField, ok := ctx.resolve(name)
	if !ok {
		report.Internal(report.Generation, "unresolved name %s at %d:%d", name, node.Line(), node.Col())
	}
	return op, isField
}

func (ctx *Context) stmt(node *ast.Node) {
	switch d := node.Data.(type) {
	case ast.VarDeclNode:
		if d.Init != nil {
			ctx.assign(node, d.Name, d.Init)
		}
	case ast.BlockNode:
		for _, s := range d.Stmts {
			ctx.stmt(s)
		}
	case ast.IfNode:
		ctx.ifStmt(d)
	case ast.WhileNode:
		ctx.whileStmt(d)
	case ast.ExprStmtNode:
		ctx.exprStmt(d.Expr)
	case ast.AssignNode:
		ctx.assign(node, d.Name, d.Rhs)
	case ast.ArrayAssignNode:
		ctx.arrayAssign(node, d)
	case ast.ReturnNode:
		if d.Expr == nil {
			ctx.emit(&ir.Return{Typ: ir.Void})
			return
		}
		typ := ctx.m.out.Ret
		ctx.emit(&ir.Return{Typ: typ, Val: ctx.value(d.Expr, typ)})
	default:
		report.Internal(report.Generation, "unexpected %s node in statement position", node.Type)
	}
}

func (ctx *Context) ifStmt(d ast.IfNode) {
	n := ctx.m.ifCount
	ctx.m.ifCount++
	then, end := fmt.Sprintf("if_then_%d", n), fmt.Sprintf("if_end_%d", n)

	ctx.emit(&ir.Branch{Cond: ctx.cond(d.Cond), Label: then})
	if d.ElseBody != nil {
		ctx.stmt(d.ElseBody)
	}
	ctx.emit(&ir.Goto{Label: end})
	ctx.m.out.Mark(then)
	ctx.stmt(d.ThenBody)
	ctx.m.out.Mark(end)
}

func (ctx *Context) whileStmt(d ast.WhileNode) {
	n := ctx.m.whileCount
	ctx.m.whileCount++
	body, end := fmt.Sprintf("while_body_%d", n), fmt.Sprintf("while_end_%d", n)

	ctx.emit(&ir.Branch{Cond: ctx.cond(d.Cond), Label: body})
	ctx.emit(&ir.Goto{Label: end})
	ctx.m.out.Mark(body)
	ctx.stmt(d.Body)
	ctx.emit(&ir.Branch{Cond: ctx.cond(d.Cond), Label: body})
	ctx.m.out.Mark(end)
}

// cond keeps comparisons and negations inline; anything else becomes an operand.
func (ctx *Context) cond(node *ast.Node) ir.Instr {
	switch d := node.Data.(type) {
	case ast.BinaryOpNode:
		if ast.IsComparison(d.Op) {
			return ctx.rhs(node, ir.Bool)
		}
	case ast.UnaryOpNode:
		return ctx.rhs(node, ir.Bool)
	}
	return &ir.NoOp{Val: ctx.value(node, ir.Bool)}
}

func (ctx *Context) exprStmt(expr *ast.Node) {
	if d, ok := expr.Data.(ast.CallNode); ok {
		ctx.emit(ctx.call(d, noHint))
		return
	}
	ctx.value(expr, noHint)
}

func (ctx *Context) assign(node *ast.Node, name string, rhs *ast.Node) {
	dest, isField := ctx.mustResolve(node, name)
	if isField {
		ctx.emit(&ir.PutField{Object: ctx.this(), Field: dest, Val: ctx.value(rhs, dest.Typ)})
		return
	}
	if obj, ok := rhs.Data.(ast.NewObjectNode); ok && dest.Typ == ir.ClassType(obj.Class) {
		ctx.construct(dest, obj.Class)
		return
	}
	ctx.emit(&ir.Assign{Dest: dest, Typ: dest.Typ, Rhs: ctx.rhs(rhs, dest.Typ)})
}

func (ctx *Context) arrayAssign(node *ast.Node, d ast.ArrayAssignNode) {
	arr, isField := ctx.mustResolve(node, d.Name)
	if isField {
		arr = ctx.fieldCopy(arr)
	}
	elem := &ir.ArrayElem{Array: arr, Index: ctx.index(d.Index)}
	ctx.emit(&ir.Assign{Dest: elem, Typ: ir.Int, Rhs: ctx.rhs(d.Rhs, ir.Int)})
}

func (ctx *Context) fieldCopy(field *ir.Operand) *ir.Operand {
	t := ctx.newTemp(field.Typ)
	ctx.emit(&ir.Assign{Dest: t, Typ: t.Typ, Rhs: &ir.GetField{Object: ctx.this(), Field: field}})
	return t
}

func (ctx *Context) construct(dest *ir.Operand, class string) {
	typ := ir.ClassType(class)
	ctx.emit(&ir.Assign{Dest: dest, Typ: dest.Typ, Rhs: &ir.Call{Kind: ir.New, Target: &ir.ClassRef{Name: class}, Ret: typ}})
	ctx.emit(&ir.Call{Kind: ir.InvokeSpecial, Target: dest, Method: "<init>", Ret: ir.Void})
}

// value lowers node to something usable as an operand: literals and variables stay
// inline, everything else lands in a fresh temporary.
func (ctx *Context) value(node *ast.Node, hint ir.Type) ir.Value {
	switch d := node.Data.(type) {
	case ast.IntLitNode:
		return ir.IntLit(d.Value)
	case ast.BoolLitNode:
		return ir.BoolLit(d.Value)
	case ast.ThisNode:
		return ctx.this()
	case ast.IdentNode:
		if op, isField := ctx.mustResolve(node, d.Name); !isField {
			return op
		}
	case ast.NewObjectNode:
		t := ctx.newTemp(ir.ClassType(d.Class))
		ctx.construct(t, d.Class)
		return t
	}

	in := ctx.rhs(node, hint)
	typ := ir.ResultType(in)
	if c, ok := in.(*ir.Call); ok && typ.Kind == ir.KindVoid {
		// the result is consumed, so an unknown external call is taken as int
		c.Ret, typ = ir.Int, ir.Int
	}
	t := ctx.newTemp(typ)
	ctx.emit(&ir.Assign{Dest: t, Typ: typ, Rhs: in})
	return t
}

// index materializes an array index; literal indexes get their own temporary.
func (ctx *Context) index(node *ast.Node) ir.Value {
	v := ctx.value(node, ir.Int)
	if lit, ok := v.(*ir.Literal); ok {
		t := ctx.newTemp(ir.Int)
		ctx.emit(&ir.Assign{Dest: t, Typ: ir.Int, Rhs: &ir.NoOp{Val: lit}})
		return t
	}
	return v
}

func (ctx *Context) arrayOf(node *ast.Node) *ir.Operand {
	v := ctx.value(node, ir.IntArray)
	op, ok := v.(*ir.Operand)
	if !ok {
		report.Internal(report.Generation, "%s at %d:%d is not an array operand", v, node.Line(), node.Col())
	}
	return op
}

// rhs lowers node to an instruction that may stand after :=.
func (ctx *Context) rhs(node *ast.Node, hint ir.Type) ir.Instr {
	switch d := node.Data.(type) {
	case ast.IntLitNode, ast.BoolLitNode, ast.ThisNode, ast.NewObjectNode:
		return &ir.NoOp{Val: ctx.value(node, hint)}
	case ast.IdentNode:
		op, isField := ctx.mustResolve(node, d.Name)
		if isField {
			return &ir.GetField{Object: ctx.this(), Field: op}
		}
		return &ir.NoOp{Val: op}
	case ast.BinaryOpNode:
		operandHint, typ := ir.Int, ir.Int
		switch {
		case ast.IsLogical(d.Op):
			operandHint, typ = ir.Bool, ir.Bool
		case ast.IsComparison(d.Op):
			typ = ir.Bool
		}
		left := ctx.value(d.Left, operandHint)
		right := ctx.value(d.Right, operandHint)
		return &ir.BinaryOp{Op: binaryOps[d.Op], Left: left, Right: right, Typ: typ}
	case ast.UnaryOpNode:
		return &ir.UnaryOp{Op: ir.OpNot, Operand: ctx.value(d.Expr, ir.Bool)}
	case ast.ArrayAccessNode:
		arr := ctx.arrayOf(d.Array)
		return &ir.NoOp{Val: &ir.ArrayElem{Array: arr, Index: ctx.index(d.Index)}}
	case ast.LengthNode:
		return &ir.Call{Kind: ir.ArrayLength, Target: ctx.arrayOf(d.Expr), Ret: ir.Int}
	case ast.CallNode:
		return ctx.call(d, hint)
	case ast.NewIntArrayNode:
		size := ctx.value(d.Size, ir.Int)
		return &ir.Call{Kind: ir.New, Target: &ir.ClassRef{Name: "array"}, Args: []ir.Value{size}, Ret: ir.IntArray}
	}
	report.Internal(report.Generation, "unexpected %s node in expression position", node.Type)
	return nil
}

// staticTarget reports whether recv names a class rather than a variable.
func (ctx *Context) staticTarget(recv *ast.Node) (string, bool) {
	if recv.Type != ast.Ident {
		return "", false
	}
	name := recv.Data.(ast.IdentNode).Name
	if _, _, isVar := ctx.resolve(name); isVar {
		return "", false
	}
	if _, ok := ctx.table.IsImported(name); ok || name == ctx.cls.Name {
		return name, true
	}
	return "", false
}

func (ctx *Context) call(d ast.CallNode, hint ir.Type) *ir.Call {
	c := &ir.Call{Kind: ir.InvokeVirtual, Method: d.Method}
	own := false
	if d.Receiver == nil || d.Receiver.Type == ast.This {
		c.Target, own = ctx.this(), true
	} else if name, ok := ctx.staticTarget(d.Receiver); ok {
		c.Kind, c.Target = ir.InvokeStatic, &ir.ClassRef{Name: name}
	} else {
		c.Target = ctx.value(d.Receiver, receiverHint)
		own = c.Target.Type() == ir.ClassType(ctx.cls.Name)
	}

	var declared *symtab.Method
	if own {
		if m, ok := ctx.table.Method(d.Method); ok {
			declared = m
		}
	}
	for i, a := range d.Args {
		argHint := noHint
		if declared != nil && i < len(declared.Params) {
			argHint = irType(declared.Params[i].Type)
		}
		c.Args = append(c.Args, ctx.value(a, argHint))
	}

	if declared != nil {
		c.Ret = irType(declared.ReturnType)
	} else {
		c.Ret = hint
	}
	return c
}
