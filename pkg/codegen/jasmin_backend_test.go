package codegen

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/jmmc/pkg/config"
	"github.com/xplshn/jmmc/pkg/ir"
	"github.com/xplshn/jmmc/pkg/report"
)

func jasmin(t *testing.T, cls *ir.Class, cfg *config.Config) string {
	t.Helper()
	buf, err := NewJasminBackend().Generate(cls, cfg)
	require.NoError(t, err)
	return buf.String()
}

func computedLimits() *config.Config {
	cfg := config.NewConfig()
	cfg.StackLimit, cfg.LocalsLimit = 0, 0
	return cfg
}

func single(m *ir.Method) *ir.Class {
	return &ir.Class{Name: "A", Methods: []*ir.Method{m}}
}

func TestJasminSimpleClass(t *testing.T) {
	want := `.class public Simple
.super java/lang/Object

.field private count I

.method public <init>()V
	.limit stack 99
	.limit locals 99
	aload_0
	invokespecial java/lang/Object/<init>()V
	return
.end method

.method public add(II)I
	.limit stack 99
	.limit locals 99
	iload_1
	iload_2
	iadd
	istore_3
	iload_3
	ireturn
.end method

.method public static main([Ljava/lang/String;)V
	.limit stack 99
	.limit locals 99
	new Simple
	astore_1
	aload_1
	invokespecial Simple/<init>()V
	aload_1
	iconst_1
	iconst_2
	invokevirtual Simple/add(II)I
	istore_2
	iload_2
	invokestatic io/println(I)V
	return
.end method
`
	assert.Equal(t, want, jasmin(t, lower(t, simpleSrc), config.NewConfig()))
}

func TestJasminComputedLimits(t *testing.T) {
	out := jasmin(t, lower(t, simpleSrc), computedLimits())
	assert.Contains(t, out, ".method public add(II)I\n\t.limit stack 2\n\t.limit locals 4\n")
	assert.Contains(t, out, ".method public static main([Ljava/lang/String;)V\n\t.limit stack 3\n\t.limit locals 3\n")
	assert.Contains(t, out, ".method public <init>()V\n\t.limit stack 1\n\t.limit locals 1\n")
}

func TestJasminArraysAndFields(t *testing.T) {
	cls := lower(t, `class Arr {
    int[] data;
    int total;
    public int fill(int n) {
        int[] local;
        local = new int[n];
        local[0] = n;
        data = local;
        data[1] = local[0];
        total = data.length;
        return total;
    }
}`)
	want := `.method public fill(I)I
	.limit stack 99
	.limit locals 99
	iload_1
	newarray int
	astore_2
	iconst_0
	istore_3
	aload_2
	iload_3
	iload_1
	iastore
	aload_0
	aload_2
	putfield Arr/data [I
	aload_0
	getfield Arr/data [I
	astore 4
	iconst_1
	istore 5
	iconst_0
	istore 6
	aload 4
	iload 5
	aload_2
	iload 6
	iaload
	iastore
	aload_0
	getfield Arr/data [I
	astore 7
	aload 7
	arraylength
	istore 8
	aload_0
	iload 8
	putfield Arr/total I
	aload_0
	getfield Arr/total I
	istore 9
	iload 9
	ireturn
.end method
`
	assert.Contains(t, jasmin(t, cls, nil), want)
}

func TestJasminLiteralSelection(t *testing.T) {
	testCases := []struct {
		value int32
		want  string
	}{
		{-1, "iconst_m1"},
		{0, "iconst_0"},
		{5, "iconst_5"},
		{6, "bipush 6"},
		{-2, "bipush -2"},
		{127, "bipush 127"},
		{-128, "bipush -128"},
		{128, "sipush 128"},
		{-129, "sipush -129"},
		{32767, "sipush 32767"},
		{-32768, "sipush -32768"},
		{32768, "ldc 32768"},
		{-32769, "ldc -32769"},
	}
	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			var body strings.Builder
			b := &jasminBackend{body: &body}
			b.pushInt(tc.value)
			assert.Equal(t, "\t"+tc.want+"\n", body.String())
			assert.Equal(t, 1, b.maxDepth)
		})
	}
}

func TestJasminIncrementFusion(t *testing.T) {
	x := &ir.Operand{Name: "x", Typ: ir.Int}
	y := &ir.Operand{Name: "y", Typ: ir.Int}
	bin := func(op ir.Op, l, r ir.Value) ir.Instr { return &ir.BinaryOp{Op: op, Left: l, Right: r, Typ: ir.Int} }

	testCases := []struct {
		name string
		rhs  ir.Instr
		want string
	}{
		{"add right literal", bin(ir.OpAdd, x, ir.IntLit(1)), "\tiinc 1 1\n"},
		{"add left literal", bin(ir.OpAdd, ir.IntLit(2), x), "\tiinc 1 2\n"},
		{"subtract literal", bin(ir.OpSub, x, ir.IntLit(3)), "\tiinc 1 -3\n"},
		{"subtract negative literal", bin(ir.OpSub, x, ir.IntLit(-127)), "\tiinc 1 127\n"},
		{"constant out of range", bin(ir.OpAdd, x, ir.IntLit(200)), "\tiload_1\n\tsipush 200\n\tiadd\n\tistore_1\n"},
		{"other operand", bin(ir.OpAdd, y, ir.IntLit(1)), "\tiload_2\n\ticonst_1\n\tiadd\n\tistore_1\n"},
		{"literal minus operand", bin(ir.OpSub, ir.IntLit(3), x), "\ticonst_3\n\tiload_1\n\tisub\n\tistore_1\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := &ir.Method{Name: "f", Ret: ir.Void}
			m.Emit(&ir.Assign{Dest: x, Typ: ir.Int, Rhs: tc.rhs})
			out := jasmin(t, single(m), nil)
			assert.Contains(t, out, ".limit locals 99\n"+tc.want+"\treturn\n")
		})
	}
}

func TestJasminBooleanMaterialization(t *testing.T) {
	x := &ir.Operand{Name: "x", Typ: ir.Int}
	y := &ir.Operand{Name: "y", Typ: ir.Int}
	b := &ir.Operand{Name: "b", Typ: ir.Bool}
	m := &ir.Method{Name: "f", Ret: ir.Void}
	m.Emit(&ir.Assign{Dest: b, Typ: ir.Bool, Rhs: &ir.BinaryOp{Op: ir.OpLt, Left: x, Right: y, Typ: ir.Bool}})
	m.Emit(&ir.Assign{Dest: b, Typ: ir.Bool, Rhs: &ir.UnaryOp{Op: ir.OpNot, Operand: b}})

	want := `	.limit stack 2
	.limit locals 4
	iload_2
	iload_3
	if_icmplt TRUE0
	iconst_0
	goto NEXT0
TRUE0:
	iconst_1
NEXT0:
	istore_1
	iload_1
	ifeq TRUE1
	iconst_0
	goto NEXT1
TRUE1:
	iconst_1
NEXT1:
	istore_1
	return
`
	assert.Contains(t, jasmin(t, single(m), computedLimits()), want)
}

func TestJasminBranches(t *testing.T) {
	x := &ir.Operand{Name: "x", Typ: ir.Int, Param: 1}
	y := &ir.Operand{Name: "y", Typ: ir.Int, Param: 2}
	b := &ir.Operand{Name: "b", Typ: ir.Bool, Param: 3}
	cmp := func(op ir.Op, l, r ir.Value) ir.Instr { return &ir.BinaryOp{Op: op, Left: l, Right: r, Typ: ir.Bool} }

	testCases := []struct {
		name string
		cond ir.Instr
		want string
	}{
		{"compare with zero", cmp(ir.OpGt, x, ir.IntLit(0)), "\tiload_1\n\tifgt L\n"},
		{"zero on the left", cmp(ir.OpLt, ir.IntLit(0), x), "\tiload_1\n\tifgt L\n"},
		{"two operands", cmp(ir.OpNeq, x, y), "\tiload_1\n\tiload_2\n\tif_icmpne L\n"},
		{"less or equal", cmp(ir.OpLte, x, y), "\tiload_1\n\tiload_2\n\tif_icmple L\n"},
		{"plain operand", &ir.NoOp{Val: b}, "\tiload_3\n\tifne L\n"},
		{"negation", &ir.UnaryOp{Op: ir.OpNot, Operand: b}, "\tiload_3\n\tifeq L\n"},
		{"conjunction", &ir.BinaryOp{Op: ir.OpAnd, Left: b, Right: ir.BoolLit(true), Typ: ir.Bool}, "\tiload_3\n\ticonst_1\n\tiand\n\tifne L\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := &ir.Method{Name: "g", Params: []*ir.Operand{x, y, b}, Ret: ir.Void}
			m.Emit(&ir.Branch{Cond: tc.cond, Label: "L"})
			m.Mark("L")
			out := jasmin(t, single(m), nil)
			assert.Contains(t, out, ".method public g(IIZ)V\n")
			assert.Contains(t, out, tc.want+"L:\n\treturn\n")
		})
	}
}

func TestJasminDescriptors(t *testing.T) {
	b := &jasminBackend{cls: &ir.Class{Name: "Self", Imports: []string{"io", "a.b.Foo"}}}
	testCases := []struct {
		typ  ir.Type
		want string
	}{
		{ir.Int, "I"},
		{ir.Bool, "Z"},
		{ir.IntArray, "[I"},
		{ir.StringArray, "[Ljava/lang/String;"},
		{ir.Void, "V"},
		{ir.ClassType("Foo"), "La/b/Foo;"},
		{ir.ClassType("Self"), "LSelf;"},
		{ir.ClassType("String"), "Ljava/lang/String;"},
		{ir.ClassType("Other"), "LOther;"},
	}
	for _, tc := range testCases {
		t.Run(tc.want, func(t *testing.T) {
			assert.Equal(t, tc.want, b.descriptor(tc.typ))
		})
	}
	assert.Equal(t, "(I[IZ)La/b/Foo;", b.methodDescriptor([]ir.Type{ir.Int, ir.IntArray, ir.Bool}, ir.ClassType("Foo")))
}

func TestJasminPopsUnusedCallResult(t *testing.T) {
	cls := lower(t, `class V {
    int x;
    public int get() {
        return x;
    }
    public void run(boolean c) {
        if (c) {
            this.get();
        }
    }
}`)
	out := jasmin(t, cls, nil)
	assert.Contains(t, out, "if_then_0:\n\taload_0\n\tinvokevirtual V/get()I\n\tpop\nif_end_0:\n\treturn\n")
}

func TestJasminResolvesSuperThroughImports(t *testing.T) {
	ctor := &ir.Method{Name: "<init>", IsConstructor: true, Ret: ir.Void}
	ctor.Emit(&ir.Call{Kind: ir.InvokeSpecial, Target: &ir.This{Class: "Sub"}, Method: "<init>", Ret: ir.Void})
	cls := &ir.Class{Name: "Sub", Super: "Base", Imports: []string{"pkg.Base"}, Methods: []*ir.Method{ctor}}

	out := jasmin(t, cls, nil)
	assert.True(t, strings.HasPrefix(out, ".class public Sub\n.super pkg/Base\n"))
	assert.Contains(t, out, "\taload_0\n\tinvokespecial pkg/Base/<init>()V\n\treturn\n")
}

func TestJasminReferenceReturn(t *testing.T) {
	arr := &ir.Operand{Name: "a", Typ: ir.IntArray, Param: 1}
	m := &ir.Method{Name: "id", Params: []*ir.Operand{arr}, Ret: ir.IntArray}
	m.Emit(&ir.Return{Typ: ir.IntArray, Val: arr})
	assert.Contains(t, jasmin(t, single(m), nil), "\taload_1\n\tareturn\n.end method\n")
}

func TestJasminValidationFailure(t *testing.T) {
	m := &ir.Method{Name: "f", Ret: ir.Void}
	m.Emit(&ir.Goto{Label: "nowhere"})

	buf, err := NewJasminBackend().Generate(single(m), nil)
	assert.Nil(t, buf)
	var r *report.Report
	require.True(t, errors.As(err, &r))
	assert.Equal(t, report.Generation, r.Stage)
	assert.Equal(t, report.Error, r.Severity)
	assert.Contains(t, r.Message, "undeclared label nowhere")
}
