package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xplshn/jmmc/pkg/config"
	"github.com/xplshn/jmmc/pkg/ir"
	"github.com/xplshn/jmmc/pkg/report"
)

type jasminBackend struct {
	out       *strings.Builder
	body      *strings.Builder
	cls       *ir.Class
	cfg       *config.Config
	super     string
	slots     map[string]int
	depth     int
	maxDepth  int
	condCount int
}

func NewJasminBackend() Backend { return &jasminBackend{} }

var arithOps = map[ir.Op]string{
	ir.OpAdd: "iadd", ir.OpSub: "isub", ir.OpMul: "imul", ir.OpDiv: "idiv",
	ir.OpAnd: "iand", ir.OpOr: "ior",
}

var condSuffix = map[ir.Op]string{
	ir.OpLt: "lt", ir.OpGt: "gt", ir.OpLte: "le", ir.OpGte: "ge", ir.OpEq: "eq", ir.OpNeq: "ne",
}

// mirrored gives the operator that holds when the operands swap sides.
var mirrored = map[ir.Op]ir.Op{
	ir.OpLt: ir.OpGt, ir.OpGt: ir.OpLt, ir.OpLte: ir.OpGte, ir.OpGte: ir.OpLte,
	ir.OpEq: ir.OpEq, ir.OpNeq: ir.OpNeq,
}

func (b *jasminBackend) Generate(cls *ir.Class, cfg *config.Config) (*bytes.Buffer, error) {
	if err := cls.Validate(); err != nil {
		r := report.New(report.Generation, 0, 0, "%v", err)
		return nil, &r
	}
	if cfg == nil {
		cfg = config.NewConfig()
	}

	var sb strings.Builder
	b.out, b.cls, b.cfg, b.condCount = &sb, cls, cfg, 0
	b.super = "java/lang/Object"
	if cls.Super != "" && cls.Super != "Object" {
		b.super = b.className(cls.Super)
	}

	fmt.Fprintf(b.out, ".class public %s\n.super %s\n", cls.Name, b.super)
	if len(cls.Fields) > 0 {
		b.out.WriteByte('\n')
		for _, f := range cls.Fields {
			fmt.Fprintf(b.out, ".field private %s %s\n", f.Name, b.descriptor(f.Typ))
		}
	}
	for _, m := range cls.Methods {
		b.method(m)
	}
	return bytes.NewBufferString(sb.String()), nil
}

// className resolves a simple class name through the imports to its JVM form.
func (b *jasminBackend) className(name string) string {
	if name == b.cls.Name {
		return name
	}
	switch name {
	case "String":
		return "java/lang/String"
	case "Object":
		return "java/lang/Object"
	}
	for _, imp := range b.cls.Imports {
		parts := strings.Split(imp, ".")
		if parts[len(parts)-1] == name {
			return strings.Join(parts, "/")
		}
	}
	return name
}

func (b *jasminBackend) descriptor(t ir.Type) string {
	switch t.Kind {
	case ir.KindVoid:
		return "V"
	case ir.KindInt:
		return "I"
	case ir.KindBool:
		return "Z"
	case ir.KindIntArray:
		return "[I"
	case ir.KindStringArray:
		return "[Ljava/lang/String;"
	}
	return "L" + b.className(t.Class) + ";"
}

func (b *jasminBackend) methodDescriptor(args []ir.Type, ret ir.Type) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, a := range args {
		sb.WriteString(b.descriptor(a))
	}
	sb.WriteByte(')')
	sb.WriteString(b.descriptor(ret))
	return sb.String()
}

func (b *jasminBackend) header(m *ir.Method) string {
	if m.IsConstructor {
		return "<init>()V"
	}
	params := make([]ir.Type, len(m.Params))
	for i, p := range m.Params {
		params[i] = p.Typ
	}
	static := ""
	if m.IsStatic {
		static = "static "
	}
	return static + m.Name + b.methodDescriptor(params, m.Ret)
}

func (b *jasminBackend) method(m *ir.Method) {
	var body strings.Builder
	b.body, b.depth, b.maxDepth = &body, 0, 0
	b.slots = m.VarTable()

	for i, in := range m.Instrs {
		b.labels(m.LabelsAt(i))
		b.instr(in)
	}
	b.labels(m.LabelsAt(len(m.Instrs)))
	if m.Ret.Kind == ir.KindVoid && needsReturn(m) {
		b.emit(0, "return")
	}

	stack := b.cfg.StackLimit
	if stack <= 0 {
		stack = b.maxDepth
	}
	locals := b.cfg.LocalsLimit
	if locals <= 0 {
		locals = len(b.slots)
	}
	fmt.Fprintf(b.out, "\n.method public %s\n", b.header(m))
	fmt.Fprintf(b.out, "\t.limit stack %d\n\t.limit locals %d\n", stack, locals)
	b.out.WriteString(body.String())
	b.out.WriteString(".end method\n")
}

// emit writes one instruction and moves the tracked stack depth by delta.
func (b *jasminBackend) emit(delta int, format string, args ...interface{}) {
	b.body.WriteByte('\t')
	fmt.Fprintf(b.body, format, args...)
	b.body.WriteByte('\n')
	b.depth += delta
	if b.depth > b.maxDepth {
		b.maxDepth = b.depth
	}
}

func (b *jasminBackend) label(name string) { b.body.WriteString(name + ":\n") }

func (b *jasminBackend) labels(names []string) {
	for _, l := range names {
		b.label(l)
	}
}

func (b *jasminBackend) slot(name string) int {
	s, ok := b.slots[name]
	if !ok {
		report.Internal(report.Generation, "no local slot for %s", name)
	}
	return s
}

func (b *jasminBackend) slotInstr(op, name string) string {
	s := b.slot(name)
	if s < 4 {
		return fmt.Sprintf("%s_%d", op, s)
	}
	return fmt.Sprintf("%s %d", op, s)
}

func (b *jasminBackend) pushInt(n int32) {
	switch {
	case n == -1:
		b.emit(1, "iconst_m1")
	case n >= 0 && n <= 5:
		b.emit(1, "iconst_%d", n)
	case n >= -128 && n <= 127:
		b.emit(1, "bipush %d", n)
	case n >= -32768 && n <= 32767:
		b.emit(1, "sipush %d", n)
	default:
		b.emit(1, "ldc %d", n)
	}
}

func (b *jasminBackend) load(v ir.Value) {
	switch v := v.(type) {
	case *ir.Literal:
		b.pushInt(v.Value)
	case *ir.Operand:
		op := "iload"
		if v.Typ.IsReference() {
			op = "aload"
		}
		b.emit(1, "%s", b.slotInstr(op, v.Name))
	case *ir.This:
		b.emit(1, "aload_0")
	case *ir.ArrayElem:
		b.load(v.Array)
		b.load(v.Index)
		b.emit(-1, "iaload")
	default:
		report.Internal(report.Generation, "cannot load %s", v)
	}
}

func (b *jasminBackend) store(dest *ir.Operand) {
	op := "istore"
	if dest.Typ.IsReference() {
		op = "astore"
	}
	b.emit(-1, "%s", b.slotInstr(op, dest.Name))
}

// owner names the class holding the members reached through v.
func (b *jasminBackend) owner(v ir.Value) string {
	switch v := v.(type) {
	case *ir.This:
		return b.cls.Name
	case *ir.ClassRef:
		return b.className(v.Name)
	}
	if t := v.Type(); t.Kind == ir.KindClass {
		return b.className(t.Class)
	}
	report.Internal(report.Generation, "%s has no class", v)
	return ""
}

func (b *jasminBackend) instr(in ir.Instr) {
	switch in := in.(type) {
	case *ir.Assign:
		b.assign(in)
	case *ir.Goto:
		b.emit(0, "goto %s", in.Label)
	case *ir.Branch:
		b.branch(in.Cond, in.Label)
	case *ir.Return:
		if in.Val == nil || in.Typ.Kind == ir.KindVoid {
			b.emit(0, "return")
			return
		}
		b.load(in.Val)
		if in.Typ.IsReference() {
			b.emit(-1, "areturn")
		} else {
			b.emit(-1, "ireturn")
		}
	case *ir.PutField:
		b.load(in.Object)
		b.load(in.Val)
		b.emit(-2, "putfield %s/%s %s", b.owner(in.Object), in.Field.Name, b.descriptor(in.Field.Typ))
	default:
		b.value(in)
		if ir.ResultType(in).Kind != ir.KindVoid {
			b.emit(-1, "pop")
		}
	}
}

func (b *jasminBackend) assign(a *ir.Assign) {
	switch dest := a.Dest.(type) {
	case *ir.ArrayElem:
		b.load(dest.Array)
		b.load(dest.Index)
		b.value(a.Rhs)
		b.emit(-3, "iastore")
	case *ir.Operand:
		if b.increment(dest, a.Rhs) {
			return
		}
		b.value(a.Rhs)
		b.store(dest)
	default:
		report.Internal(report.Generation, "cannot assign to %s", a.Dest)
	}
}

// increment fuses x := x + c, x := c + x and x := x - c into iinc when c fits a byte.
func (b *jasminBackend) increment(dest *ir.Operand, rhs ir.Instr) bool {
	bin, ok := rhs.(*ir.BinaryOp)
	if !ok || dest.Typ.Kind != ir.KindInt {
		return false
	}
	same := func(v ir.Value) bool {
		op, ok := v.(*ir.Operand)
		return ok && op.Name == dest.Name
	}
	literal := func(v ir.Value) (int32, bool) {
		l, ok := v.(*ir.Literal)
		if !ok {
			return 0, false
		}
		return l.Value, true
	}

	var c int32
	matched := false
	switch bin.Op {
	case ir.OpAdd:
		if v, ok := literal(bin.Right); ok && same(bin.Left) {
			c, matched = v, true
		} else if v, ok := literal(bin.Left); ok && same(bin.Right) {
			c, matched = v, true
		}
	case ir.OpSub:
		if v, ok := literal(bin.Right); ok && same(bin.Left) {
			c, matched = -v, true
		}
	}
	if !matched || c < -128 || c > 127 {
		return false
	}
	b.emit(0, "iinc %d %d", b.slot(dest.Name), c)
	return true
}

// value leaves the result of in on the stack; void calls leave nothing.
func (b *jasminBackend) value(in ir.Instr) {
	switch in := in.(type) {
	case *ir.NoOp:
		b.load(in.Val)
	case *ir.GetField:
		b.load(in.Object)
		b.emit(0, "getfield %s/%s %s", b.owner(in.Object), in.Field.Name, b.descriptor(in.Field.Typ))
	case *ir.UnaryOp:
		b.load(in.Operand)
		b.materialize(func(label string) { b.emit(-1, "ifeq %s", label) })
	case *ir.BinaryOp:
		if in.Op.IsComparison() {
			b.materialize(func(label string) { b.compare(in, label) })
			return
		}
		op, ok := arithOps[in.Op]
		if !ok {
			report.Internal(report.Generation, "unsupported operator %s", in.Op)
		}
		b.load(in.Left)
		b.load(in.Right)
		b.emit(-1, "%s", op)
	case *ir.Call:
		b.call(in)
	default:
		report.Internal(report.Generation, "%s does not produce a value", in)
	}
}

// materialize turns a conditional jump into 0 or 1 on the stack.
func (b *jasminBackend) materialize(jump func(label string)) {
	n := b.condCount
	b.condCount++
	t, next := fmt.Sprintf("TRUE%d", n), fmt.Sprintf("NEXT%d", n)
	jump(t)
	b.emit(1, "iconst_0")
	b.emit(0, "goto %s", next)
	b.depth--
	b.label(t)
	b.emit(1, "iconst_1")
	b.label(next)
}

func isZero(v ir.Value) bool {
	l, ok := v.(*ir.Literal)
	return ok && l.Value == 0
}

// compare jumps to label when the comparison holds, using the zero forms when one
// side is the literal 0.
func (b *jasminBackend) compare(bin *ir.BinaryOp, label string) {
	switch {
	case isZero(bin.Right):
		b.load(bin.Left)
		b.emit(-1, "if%s %s", condSuffix[bin.Op], label)
	case isZero(bin.Left):
		b.load(bin.Right)
		b.emit(-1, "if%s %s", condSuffix[mirrored[bin.Op]], label)
	default:
		b.load(bin.Left)
		b.load(bin.Right)
		kind := "icmp"
		if bin.Left.Type().IsReference() {
			kind = "acmp"
		}
		b.emit(-2, "if_%s%s %s", kind, condSuffix[bin.Op], label)
	}
}

func (b *jasminBackend) branch(cond ir.Instr, label string) {
	switch c := cond.(type) {
	case *ir.BinaryOp:
		if c.Op.IsComparison() {
			b.compare(c, label)
			return
		}
	case *ir.UnaryOp:
		b.load(c.Operand)
		b.emit(-1, "ifeq %s", label)
		return
	}
	b.value(cond)
	b.emit(-1, "ifne %s", label)
}

func (b *jasminBackend) call(c *ir.Call) {
	switch c.Kind {
	case ir.InvokeVirtual, ir.InvokeSpecial, ir.InvokeStatic:
		popped := len(c.Args)
		if c.Kind != ir.InvokeStatic {
			b.load(c.Target)
			popped++
		}
		args := make([]ir.Type, len(c.Args))
		for i, a := range c.Args {
			b.load(a)
			args[i] = a.Type()
		}
		owner := b.owner(c.Target)
		if _, ok := c.Target.(*ir.This); ok && c.Kind == ir.InvokeSpecial {
			owner = b.super
		}
		pushed := 1
		if c.Ret.Kind == ir.KindVoid {
			pushed = 0
		}
		b.emit(pushed-popped, "%s %s/%s%s", c.Kind, owner, c.Method, b.methodDescriptor(args, c.Ret))
	case ir.New:
		if c.Ret.Kind == ir.KindIntArray {
			if len(c.Args) != 1 {
				report.Internal(report.Generation, "new array takes one size operand, got %d", len(c.Args))
			}
			b.load(c.Args[0])
			b.emit(0, "newarray int")
			return
		}
		b.emit(1, "new %s", b.owner(c.Target))
	case ir.ArrayLength:
		b.load(c.Target)
		b.emit(0, "arraylength")
	case ir.Ldc:
		b.load(c.Target)
	}
}
